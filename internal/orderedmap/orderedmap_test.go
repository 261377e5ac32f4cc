package orderedmap

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestMap_SetKeepsFirstPosition(t *testing.T) {
	m := New[int]()
	m.Set("b", 1)
	m.Set("a", 2)
	m.Set("b", 3)

	if got := m.Keys(); !reflect.DeepEqual(got, []string{"b", "a"}) {
		t.Errorf("expected keys [b a], got %v", got)
	}
	if v, _ := m.Get("b"); v != 3 {
		t.Errorf("expected b=3, got %d", v)
	}
	if m.Len() != 2 {
		t.Errorf("expected len 2, got %d", m.Len())
	}
}

func TestMap_MarshalPreservesOrder(t *testing.T) {
	m := New[string]()
	m.Set("zeta", "1")
	m.Set("alpha", "2")
	m.Set("AT&T", "3")

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"zeta":"1","alpha":"2","AT&T":"3"}`
	if string(data) != expected {
		t.Errorf("expected %s, got %s", expected, data)
	}
}

func TestMap_UnmarshalPreservesOrder(t *testing.T) {
	input := `{"0xB":{"name":"B"},"0xa":{"name":"A"},"0xc":null}`

	m := New[json.RawMessage]()
	if err := json.Unmarshal([]byte(input), m); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := m.Keys(); !reflect.DeepEqual(got, []string{"0xB", "0xa", "0xc"}) {
		t.Errorf("unexpected key order: %v", got)
	}

	out, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != input {
		t.Errorf("round trip mismatch: %s", out)
	}
}

func TestMap_UnmarshalRejectsNonObject(t *testing.T) {
	tests := []string{`[]`, `"x"`, `42`}

	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			m := New[int]()
			if err := json.Unmarshal([]byte(input), m); err == nil {
				t.Errorf("expected error for %s", input)
			}
		})
	}
}

func TestMap_EachStopsEarly(t *testing.T) {
	m := New[int]()
	m.Set("a", 1)
	m.Set("b", 2)
	m.Set("c", 3)

	var seen []string
	m.Each(func(k string, _ int) bool {
		seen = append(seen, k)
		return k != "b"
	})

	if !reflect.DeepEqual(seen, []string{"a", "b"}) {
		t.Errorf("expected [a b], got %v", seen)
	}
}

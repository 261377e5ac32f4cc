package filestore

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bimakw/tokendata/internal/orderedmap"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadAddresses(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected []string
	}{
		{
			name:     "comma separated",
			content:  "0xAAA,0xbbb",
			expected: []string{"0xaaa", "0xbbb"},
		},
		{
			name:     "newlines and spaces",
			content:  "0xaaa\n0xbbb  0xccc\r\n",
			expected: []string{"0xaaa", "0xbbb", "0xccc"},
		},
		{
			name:     "mixed separators and empty parts",
			content:  " 0xaaa ,, 0xbbb,\n\t0xccc, ",
			expected: []string{"0xaaa", "0xbbb", "0xccc"},
		},
		{
			name:     "dedupe keeps first position",
			content:  "0xbbb,0xAAA,0xBBB,0xaaa",
			expected: []string{"0xbbb", "0xaaa"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "addrs.txt", tt.content)

			got, err := LoadAddresses(path)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if strings.Join(got, ",") != strings.Join(tt.expected, ",") {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestLoadAddresses_Empty(t *testing.T) {
	path := writeFile(t, t.TempDir(), "addrs.txt", " ,\n , ")

	_, err := LoadAddresses(path)
	if !errors.Is(err, ErrNoAddresses) {
		t.Errorf("expected ErrNoAddresses, got %v", err)
	}
}

func TestLoadAddresses_Missing(t *testing.T) {
	_, err := LoadAddresses(filepath.Join(t.TempDir(), "nope.txt"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestTablePath(t *testing.T) {
	got := TablePath("/data", 8453, AddressToMetadataFile)
	want := filepath.Join("/data", "8453", "address_to_metadata.json")
	if got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestReadTable(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "t.json", `{"zeta":"0xA","alpha":"0xB"}`)

	m, err := ReadTable[string](path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if keys := m.Keys(); keys[0] != "zeta" || keys[1] != "alpha" {
		t.Errorf("expected document order, got %v", keys)
	}

	if _, err := ReadTable[string](filepath.Join(dir, "missing.json")); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}

	bad := writeFile(t, dir, "bad.json", `[1,2]`)
	if _, err := ReadTable[string](bad); err == nil {
		t.Error("expected error for non-object table")
	}
}

func TestEncode(t *testing.T) {
	m := orderedmap.New[any]()
	m.Set("b", map[string]any{"y": 1, "x": "AT&T"})
	m.Set("a", nil)

	tests := []struct {
		name     string
		opts     WriteOptions
		expected string
	}{
		{
			name:     "compact keeps order",
			opts:     WriteOptions{},
			expected: `{"b":{"x":"AT&T","y":1},"a":null}`,
		},
		{
			name:     "sorted",
			opts:     WriteOptions{SortKeys: true},
			expected: `{"a":null,"b":{"x":"AT&T","y":1}}`,
		},
		{
			name:     "pretty sorted",
			opts:     WriteOptions{Pretty: true, SortKeys: true},
			expected: "{\n  \"a\": null,\n  \"b\": {\n    \"x\": \"AT&T\",\n    \"y\": 1\n  }\n}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(m, tt.opts)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestEncode_PreservesLargeNumbers(t *testing.T) {
	got, err := Encode(json.RawMessage(`{"n":123456789012345678901234567890}`), WriteOptions{SortKeys: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != `{"n":123456789012345678901234567890}` {
		t.Errorf("number was altered: %s", got)
	}
}

func TestWriteJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "1", NamesToAddressFile)

	if err := WriteJSON(path, map[string]string{"USDC": "0xa"}, WriteOptions{Pretty: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pretty, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(pretty) != "{\n  \"USDC\": \"0xa\"\n}" {
		t.Errorf("expected pretty table without trailing newline, got %q", pretty)
	}
	// Overwrite replaces the whole file
	if err := WriteJSON(path, map[string]string{"DAI": "0xb"}, WriteOptions{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != `{"DAI":"0xb"}` {
		t.Errorf("unexpected content %s", data)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected no leftover temp files, got %d entries", len(entries))
	}
}

// Package filestore reads and writes the per-chain JSON lookup tables.
package filestore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/bimakw/tokendata/internal/orderedmap"
)

// Table file names inside a chain directory
const (
	AddressToMetadataFile = "address_to_metadata.json"
	NamesToAddressFile    = "names_to_address.json"
	TickersToAddressFile  = "tickers_to_address.json"
)

// ErrNoAddresses is returned when an address list holds no entries
var ErrNoAddresses = errors.New("no addresses found in file")

// ChainDir returns <root>/<chainID>
func ChainDir(root string, chainID int64) string {
	return filepath.Join(root, strconv.FormatInt(chainID, 10))
}

// TablePath returns the path of a table file for a chain
func TablePath(root string, chainID int64, file string) string {
	return filepath.Join(ChainDir(root, chainID), file)
}

// LoadAddresses reads an address list separated by commas and/or
// whitespace. Addresses are lowercased and de-duplicated, keeping the order
// they were first seen.
func LoadAddresses(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read address list: %w", err)
	}

	fields := strings.FieldsFunc(string(raw), func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})

	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		addr := strings.ToLower(f)
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoAddresses)
	}
	return out, nil
}

// ReadTable decodes a JSON object file keeping its key order. A missing file
// is reported with an error wrapping fs.ErrNotExist.
func ReadTable[V any](path string) (*orderedmap.Map[V], error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	m := orderedmap.New[V]()
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return m, nil
}

// WriteOptions controls how a table is serialized
type WriteOptions struct {
	// Pretty indents with two spaces; otherwise output is compact
	Pretty bool
	// SortKeys orders object keys lexically at every level
	SortKeys bool
}

// WriteJSON encodes v and replaces path with the result. The parent
// directory is created if needed. The file is written to a temporary name
// in the same directory and renamed, so readers never see a partial table.
func WriteJSON(path string, v any, opts WriteOptions) error {
	data, err := Encode(v, opts)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}

	return nil
}

// Encode serializes v according to opts without HTML escaping
func Encode(v any, opts WriteOptions) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode json: %w", err)
	}
	data := bytes.TrimRight(buf.Bytes(), "\n")

	if opts.SortKeys {
		// Generic maps encode with sorted keys
		var generic any
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&generic); err != nil {
			return nil, fmt.Errorf("failed to re-decode json: %w", err)
		}

		buf.Reset()
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(generic); err != nil {
			return nil, fmt.Errorf("failed to encode json: %w", err)
		}
		data = bytes.TrimRight(buf.Bytes(), "\n")
	}

	if !opts.Pretty {
		return data, nil
	}

	var out bytes.Buffer
	if err := json.Indent(&out, data, "", "  "); err != nil {
		return nil, fmt.Errorf("failed to indent json: %w", err)
	}
	return out.Bytes(), nil
}

package services

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/bimakw/tokendata/internal/config"
	"github.com/bimakw/tokendata/internal/infrastructure/filestore"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return string(data)
}

func TestNormalizeService_Run(t *testing.T) {
	root := t.TempDir()
	metaPath := filestore.TablePath(root, 1, filestore.AddressToMetadataFile)
	namesPath := filestore.TablePath(root, 1, filestore.NamesToAddressFile)
	tickersPath := filestore.TablePath(root, 1, filestore.TickersToAddressFile)

	writeFile(t, metaPath, `{"0xBBB":{"name":"Beta","ticker":"BETA"},"0xAaA":{"name":"Alpha","ticker":"ALPHA"}}`)
	writeFile(t, namesPath, `{"Beta":"0xBBB","Alpha":"0xAaA"}`)
	writeFile(t, tickersPath, `{"BETA":"0xBBB","ALPHA":"0xAaA","COUNT":3}`)

	service := NewNormalizeService(config.OutputConfig{Root: root}, zap.NewNop())

	result, err := service.Run([]int64{1, 8453})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Files) != 3 {
		t.Errorf("expected 3 files, got %v", result.Files)
	}
	if len(result.Skipped) != 1 || result.Skipped[0] != filestore.ChainDir(root, 8453) {
		t.Errorf("expected missing chain skipped, got %v", result.Skipped)
	}

	wantMeta := "{\n" +
		"  \"0xbbb\": {\n    \"name\": \"Beta\",\n    \"ticker\": \"BETA\"\n  },\n" +
		"  \"0xaaa\": {\n    \"name\": \"Alpha\",\n    \"ticker\": \"ALPHA\"\n  }\n" +
		"}"
	if got := readFile(t, metaPath); got != wantMeta {
		t.Errorf("unexpected metadata table:\n%s", got)
	}

	if got := readFile(t, namesPath); got != "{\n  \"Beta\": \"0xbbb\",\n  \"Alpha\": \"0xaaa\"\n}" {
		t.Errorf("unexpected names table:\n%s", got)
	}
	if got := readFile(t, tickersPath); got != "{\n  \"BETA\": \"0xbbb\",\n  \"ALPHA\": \"0xaaa\",\n  \"COUNT\": 3\n}" {
		t.Errorf("unexpected tickers table:\n%s", got)
	}
}

func TestNormalizeService_Idempotent(t *testing.T) {
	root := t.TempDir()
	metaPath := filestore.TablePath(root, 1, filestore.AddressToMetadataFile)
	writeFile(t, metaPath, `{"0xABC":{"name":"Foo"}}`)

	service := NewNormalizeService(config.OutputConfig{Root: root}, zap.NewNop())

	if _, err := service.Run([]int64{1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first := readFile(t, metaPath)

	if _, err := service.Run([]int64{1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second := readFile(t, metaPath); second != first {
		t.Errorf("second run changed the file:\n%s\n%s", first, second)
	}
}

func TestNormalizeService_ParseErrorIsPerFile(t *testing.T) {
	root := t.TempDir()
	metaPath := filestore.TablePath(root, 1, filestore.AddressToMetadataFile)
	namesPath := filestore.TablePath(root, 1, filestore.NamesToAddressFile)

	writeFile(t, metaPath, `{broken`)
	writeFile(t, namesPath, `{"Foo":"0xABC"}`)

	service := NewNormalizeService(config.OutputConfig{Root: root}, zap.NewNop())

	result, err := service.Run([]int64{1})
	if err == nil {
		t.Fatal("expected a parse error")
	}

	if got := readFile(t, metaPath); got != `{broken` {
		t.Errorf("broken file must be left untouched, got %s", got)
	}
	if got := readFile(t, namesPath); got != "{\n  \"Foo\": \"0xabc\"\n}" {
		t.Errorf("expected names table normalized, got %s", got)
	}
	if len(result.Files) != 1 || len(result.Skipped) != 1 {
		t.Errorf("unexpected result %+v", result)
	}
}

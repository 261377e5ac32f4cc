package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/bimakw/tokendata/internal/config"
	"github.com/bimakw/tokendata/internal/infrastructure/filestore"
	"github.com/bimakw/tokendata/internal/orderedmap"
)

// NormalizeService rewrites the per-chain tables so every address is
// lowercase
type NormalizeService struct {
	output config.OutputConfig
	logger *zap.Logger
}

// NewNormalizeService creates a new normalize service
func NewNormalizeService(output config.OutputConfig, logger *zap.Logger) *NormalizeService {
	return &NormalizeService{
		output: output,
		logger: logger,
	}
}

// NormalizeResult lists the files rewritten
type NormalizeResult struct {
	Files   []string
	Skipped []string
}

// Run normalizes the tables of every chain. A missing chain directory or
// file is skipped. A file that fails to parse is left untouched and
// reported in the joined error; the remaining files are still processed.
func (s *NormalizeService) Run(chainIDs []int64) (*NormalizeResult, error) {
	result := &NormalizeResult{}
	var errs []error

	for _, chainID := range chainIDs {
		dir := filestore.ChainDir(s.output.Root, chainID)
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			s.logger.Warn("Chain directory not found, skipping", zap.String("dir", dir))
			result.Skipped = append(result.Skipped, dir)
			continue
		}

		files := []struct {
			name      string
			normalize func(path string) error
		}{
			{filestore.AddressToMetadataFile, LowercaseKeys},
			{filestore.NamesToAddressFile, LowercaseValues},
			{filestore.TickersToAddressFile, LowercaseValues},
		}

		for _, f := range files {
			path := filestore.TablePath(s.output.Root, chainID, f.name)
			err := f.normalize(path)
			switch {
			case errors.Is(err, fs.ErrNotExist):
				s.logger.Warn("File not found, skipping", zap.String("path", path))
				result.Skipped = append(result.Skipped, path)
			case err != nil:
				s.logger.Error("Failed to normalize", zap.String("path", path), zap.Error(err))
				errs = append(errs, err)
			default:
				s.logger.Info("Normalized", zap.String("path", path))
				result.Files = append(result.Files, path)
			}
		}
	}

	return result, errors.Join(errs...)
}

// LowercaseKeys lowercases every top-level key of the JSON object at path,
// leaving values and key order untouched. Two keys that differ only in case
// collapse to the later value at the earlier position.
func LowercaseKeys(path string) error {
	table, err := filestore.ReadTable[json.RawMessage](path)
	if err != nil {
		return err
	}

	out := orderedmap.New[json.RawMessage]()
	table.Each(func(k string, v json.RawMessage) bool {
		out.Set(strings.ToLower(k), v)
		return true
	})

	return filestore.WriteJSON(path, out, filestore.WriteOptions{Pretty: true})
}

// LowercaseValues lowercases every string value of the JSON object at path.
// Non-string values are kept as they are.
func LowercaseValues(path string) error {
	table, err := filestore.ReadTable[json.RawMessage](path)
	if err != nil {
		return err
	}

	var convErr error
	table.Each(func(k string, v json.RawMessage) bool {
		var s string
		if json.Unmarshal(v, &s) != nil {
			return true
		}
		data, err := json.Marshal(strings.ToLower(s))
		if err != nil {
			convErr = fmt.Errorf("failed to encode %s: %w", k, err)
			return false
		}
		table.Set(k, data)
		return true
	})
	if convErr != nil {
		return convErr
	}

	return filestore.WriteJSON(path, table, filestore.WriteOptions{Pretty: true})
}

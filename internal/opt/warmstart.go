package opt

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cwbudde/hypersmac/internal/space"
)

// ReadAdditionalConfigs reads a CSV log with a header row and converts every
// row into a configuration, in file order. A nil convert uses space.FromRow.
func ReadAdditionalConfigs(path string, cs *space.Space, convert space.RowConverter) ([]space.Configuration, error) {
	if convert == nil {
		convert = space.FromRow
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open warm-start file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("warm-start file %s has no header", path)
		}
		return nil, fmt.Errorf("read warm-start header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	r.FieldsPerRecord = len(header)

	var configs []space.Configuration
	for line := 2; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read warm-start file: %w", err)
		}
		row := make(map[string]string, len(header))
		for i, name := range header {
			row[name] = rec[i]
		}
		cfg, err := convert(row, cs)
		if err != nil {
			return nil, fmt.Errorf("warm-start line %d: %w", line, err)
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}

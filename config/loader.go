package config

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const utf8BOM = "\ufeff"

// TableRow is one record of a keyword table, keyed by header name
type TableRow map[string]string

// LoadTable reads a CSV keyword table. The header row is required and every
// column in required must be present; rows keep their file order.
func LoadTable(path string, required ...string) ([]TableRow, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %v", err)
	}

	f, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open table %s: %w", path, err)
	}
	defer f.Close()

	rows, err := ReadTable(f, required...)
	if err != nil {
		return nil, fmt.Errorf("failed to read table %s: %w", path, err)
	}
	return rows, nil
}

// ReadTable parses CSV content with a header row, tolerating a UTF-8 BOM
func ReadTable(r io.Reader, required ...string) ([]TableRow, error) {
	return ReadTableAliased(r, nil, required...)
}

// ReadTableAliased is ReadTable with header renaming: a header found in
// aliases is replaced by its canonical name before required columns are checked.
func ReadTableAliased(r io.Reader, aliases map[string]string, required ...string) ([]TableRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("table is empty")
	}
	if err != nil {
		return nil, err
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], utf8BOM))
		if canonical, ok := aliases[header[i]]; ok {
			header[i] = canonical
		}
	}

	for _, col := range required {
		found := false
		for _, h := range header {
			if h == col {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("missing column %q", col)
		}
	}

	var rows []TableRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		row := make(TableRow, len(header))
		for i, h := range header {
			if i < len(record) {
				row[h] = strings.TrimSpace(record[i])
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

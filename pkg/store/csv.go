package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
)

// ReadTable reads a delimited file with a header row and returns the header
// and the data records.
func ReadTable(path string) (header []string, rows [][]string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, errors.New("table has no header row")
	}
	return records[0], records[1:], nil
}

// WriteTable replaces the file content with the given header and records.
func WriteTable(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// requireColumns resolves the index of each named column, failing if any is
// missing from the header.
func requireColumns(header []string, names ...string) (map[string]int, error) {
	index := map[string]int{}
	for i, col := range header {
		index[col] = i
	}
	for _, name := range names {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("required column '%s' missing", name)
		}
	}
	return index, nil
}

package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// candidate source extensions: delimited text and OOXML spreadsheets.
// Legacy binary .xls is not supported.
var sourceExtensions = map[string]bool{
	".csv":  true,
	".xlsx": true,
}

// DiscoverFiles lists candidate source files in the data directory by
// extension, in stable name order.
func DiscoverFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read data directory: %v", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if sourceExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

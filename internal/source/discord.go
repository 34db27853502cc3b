package source

import (
	"encoding/csv"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/plugmemory/plugmem/internal/record"
)

// Discord exports are tabular: channels/<name>/messages.csv with
// Timestamp/Contents/Author columns. The channel name is the enclosing
// directory.

// NormalizeDiscordCSV maps one messages.csv into unified records.
func NormalizeDiscordCSV(path string) ([]record.Message, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // tolerate ragged rows

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	// Map header columns to the unified field names.
	col := map[string]int{}
	for i, name := range rows[0] {
		col[name] = i
	}
	get := func(row []string, name string) string {
		idx, ok := col[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return row[idx]
	}

	channel := filepath.Base(filepath.Dir(path))
	records := make([]record.Message, 0, len(rows)-1)
	for _, row := range rows[1:] {
		role := get(row, "Author")
		if role == "" {
			role = "unknown"
		}
		records = append(records, record.Message{
			Content:    get(row, "Contents"),
			Timestamp:  record.ParseTimestamp(get(row, "Timestamp")),
			Role:       role,
			Source:     record.SourceDiscord,
			SourceFile: path,
			Channel:    channel,
		})
	}
	return records, nil
}

// findDiscordCSVs lists every messages.csv under dir recursively.
func findDiscordCSVs(dir string) []string {
	var paths []string
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() && d.Name() == "messages.csv" {
			paths = append(paths, path)
		}
		return nil
	})
	return paths
}

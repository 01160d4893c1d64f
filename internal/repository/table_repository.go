package repository

import (
	"encoding/csv"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"studyplanner_backend/internal/model"
)

// TableRepository reads raw tabular sources. Source datasets come from
// different distributions, so nothing here assumes exact file or column
// names; callers pick files by keyword and resolve columns by alias.
type TableRepository struct{}

func NewTableRepository() *TableRepository {
	return &TableRepository{}
}

// FindCSVs walks root recursively and returns every .csv path, sorted, so
// multi-part tables concatenate in a stable order.
func (r *TableRepository) FindCSVs(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(strings.ToLower(d.Name()), ".csv") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}

// PickFile chooses the best match from paths: an exact "<keyword>.csv" name
// first, then the first name containing any include keyword and no exclude
// keyword, then the first file as a last resort. Returns "" only for an
// empty list. Matching is case-insensitive.
func (r *TableRepository) PickFile(paths, include, exclude []string) string {
	if len(paths) == 0 {
		return ""
	}

	for _, p := range paths {
		name := strings.ToLower(filepath.Base(p))
		for _, inc := range include {
			if name == strings.ToLower(inc)+".csv" {
				return p
			}
		}
	}

	for _, p := range paths {
		name := strings.ToLower(filepath.Base(p))
		if len(include) > 0 && !containsAny(name, include) {
			continue
		}
		if containsAny(name, exclude) {
			continue
		}
		return p
	}

	return paths[0]
}

func containsAny(name string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(name, strings.ToLower(k)) {
			return true
		}
	}
	return false
}

// LoadTable reads a CSV into a Table, normalizing the header: lower-cased,
// trimmed, spaces replaced with underscores. Ragged rows are tolerated;
// missing cells read as "".
func (r *TableRepository) LoadTable(path, name string) (*model.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open table %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse table %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("table %s is empty", path)
	}

	columns := make([]string, len(records[0]))
	for i, c := range records[0] {
		columns[i] = NormalizeColumn(c)
	}
	return &model.Table{
		Name:    name,
		Path:    path,
		Columns: columns,
		Rows:    records[1:],
	}, nil
}

// LoadConcat reads several same-shaped CSV parts into one Table, aligning
// the later parts' columns to the first part's layout by name.
func (r *TableRepository) LoadConcat(paths []string, name string) (*model.Table, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no files to load for table %s", name)
	}

	base, err := r.LoadTable(paths[0], name)
	if err != nil {
		return nil, err
	}
	for _, p := range paths[1:] {
		part, err := r.LoadTable(p, name)
		if err != nil {
			return nil, err
		}
		mapping := make([]int, len(base.Columns))
		for i, c := range base.Columns {
			mapping[i] = part.Index(c)
		}
		for rowIdx := range part.Rows {
			row := make([]string, len(base.Columns))
			for i, src := range mapping {
				if src >= 0 {
					row[i] = part.Cell(rowIdx, src)
				}
			}
			base.Rows = append(base.Rows, row)
		}
	}
	base.Path = strings.Join(paths, ",")
	return base, nil
}

// NormalizeColumn applies the shared column-name normalization.
func NormalizeColumn(c string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(c)), " ", "_")
}

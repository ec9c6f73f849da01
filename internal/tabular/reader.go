package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

var (
	ErrMissingColumn       = errors.New("missing required column")
	ErrUnsupportedEncoding = errors.New("unsupported encoding")
)

// Encodings accepted for input files.
const (
	EncodingUTF8   = "utf-8"
	EncodingLatin1 = "latin-1"
)

// table is a CSV file loaded with its header indexed by column name.
type table struct {
	path    string
	columns map[string]int
	rows    [][]string
}

func (t *table) require(names ...string) error {
	var missing []string
	for _, name := range names {
		if _, ok := t.columns[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s: %w: %s", t.path, ErrMissingColumn, strings.Join(missing, ", "))
	}
	return nil
}

// cell returns the trimmed value of the named column, or an empty string when
// the column or the cell is absent.
func (t *table) cell(row []string, name string) string {
	idx, ok := t.columns[name]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func readTable(path, encoding string) (*table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader, err := decode(file, encoding)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	r := csv.NewReader(reader)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return &table{path: path, columns: map[string]int{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: read header: %w", path, err)
	}

	columns := make(map[string]int, len(header))
	for idx, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, exists := columns[name]; !exists {
			columns[name] = idx
		}
	}

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s: read rows: %w", path, err)
	}

	return &table{path: path, columns: columns, rows: rows}, nil
}

func decode(r io.Reader, encoding string) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", EncodingUTF8, "utf8":
		return r, nil
	case EncodingLatin1, "latin1", "iso-8859-1":
		return charmap.ISO8859_1.NewDecoder().Reader(r), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEncoding, encoding)
	}
}

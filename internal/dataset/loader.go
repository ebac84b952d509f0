package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

// Sentinel errors for dataset loading. Callers match with errors.Is and
// render the narrated text themselves.
var (
	// ErrFileNotFound indicates the dataset file does not exist.
	ErrFileNotFound = errors.New("file not found")

	// ErrEmptyFile indicates the file is empty or contains only headers.
	ErrEmptyFile = errors.New("file is empty")

	// ErrInvalidPath indicates an empty or malformed file path.
	ErrInvalidPath = errors.New("empty or invalid file path")

	// ErrBadEncoding indicates the file could not be decoded.
	ErrBadEncoding = errors.New("could not decode file")
)

// Load reads a CSV file into a Table. Files that are not valid UTF-8 are
// decoded again as Latin-1, matching how spreadsheet exports from older
// tools usually arrive.
func Load(path string) (*Table, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrInvalidPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyFile, path)
	}

	latin1 := false
	if !utf8.Valid(data) {
		decoded, decErr := charmap.ISO8859_1.NewDecoder().Bytes(data)
		if decErr != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrBadEncoding, path, decErr)
		}
		data = decoded
		latin1 = true
	}

	table, err := parseCSV(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	table.Latin1 = latin1

	if table.NumRows() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyFile, path)
	}

	return table, nil
}

// LoadXLSX reads the first sheet of an Excel workbook into a Table
func LoadXLSX(path string) (*Table, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrInvalidPath
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyFile, path)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyFile, path)
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
	}

	return NewTable(header, rows[1:]), nil
}

// LoadAny dispatches on the file extension, defaulting to CSV
func LoadAny(path string) (*Table, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return LoadXLSX(path)
	}
	return Load(path)
}

// Summary returns the load confirmation text for a table:
// "Loaded N rows, M columns. Columns: a, b, c", with a latin1 note when
// the decoding fallback fired.
func Summary(t *Table) string {
	encoding := ""
	if t.Latin1 {
		encoding = " (latin1 encoding)"
	}
	return fmt.Sprintf("Loaded %d rows, %d columns%s. Columns: %s",
		t.NumRows(), t.NumCols(), encoding, strings.Join(t.Columns, ", "))
}

// parseCSV parses raw CSV bytes into a Table. Short rows are padded so
// analyses can index any column on any row.
func parseCSV(data []byte) (*Table, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	records := make([][]string, 0, 128)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if len(records) == 0 {
		return nil, ErrEmptyFile
	}

	header := records[0]
	if len(header) > 0 {
		// Strip a UTF-8 BOM so the first column name matches lookups
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(h)
	}

	return NewTable(header, records[1:]), nil
}

package sniffer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/unicode"

	"molit/server/config"
)

var (
	// ErrFileUnreadable means no candidate encoding produced readable text.
	ErrFileUnreadable = errors.New("no encoding decodes the file")
	// ErrSchemaUnresolved means no header row was found or required
	// semantic columns are missing. The file is retryable on a later run.
	ErrSchemaUnresolved = errors.New("required columns could not be resolved")
)

// headerScanRows and headerScanLines bound how deep the header heuristics
// look past leading metadata banners.
const (
	headerScanRows  = 20
	headerScanLines = 30
	minSeparators   = 5
)

// candidateEncodings is the priority order for delimited text files. The
// x/text EUC-KR tables follow the WHATWG definition, which is the cp949
// superset, so one decoder covers both legacy Korean labels.
var candidateEncodings = []struct {
	name string
	enc  encoding.Encoding
}{
	{"cp949", korean.EUCKR},
	{"utf-8-sig", unicode.UTF8BOM},
	{"utf-8", unicode.UTF8},
}

// Table is a source file reduced to a resolved header and its data rows.
type Table struct {
	Columns []string
	Fields  map[config.SemanticField]int
	Rows    [][]string
}

// Value returns the cell for a semantic field in the given row, or "" when
// the field is unresolved or the row is too short.
func (t *Table) Value(row []string, field config.SemanticField) string {
	idx, ok := t.Fields[field]
	if !ok || idx >= len(row) {
		return ""
	}
	return row[idx]
}

type Sniffer struct {
	logger *logrus.Logger
}

func NewSniffer(logger *logrus.Logger) *Sniffer {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &Sniffer{logger: logger}
}

// Sniff locates the header row of a source file and maps the semantic
// fields onto its columns.
func (s *Sniffer) Sniff(path string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return s.sniffSpreadsheet(path)
	case ".csv":
		return s.sniffDelimited(path)
	default:
		return nil, fmt.Errorf("unsupported file type: %s", filepath.Ext(path))
	}
}

// sniffSpreadsheet scans the first rows of the first sheet for a known
// header label; government downloads usually carry a few banner rows above
// the real header.
func (s *Sniffer) sniffSpreadsheet(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileUnreadable, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %v", sheet, err)
	}

	headerIdx := -1
	for i, row := range rows {
		if i >= headerScanRows {
			break
		}
		if containsHeaderToken(strings.Join(row, " ")) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 || headerIdx+1 >= len(rows) {
		return nil, fmt.Errorf("%w: no header row in first %d rows", ErrSchemaUnresolved, headerScanRows)
	}

	s.logger.WithFields(logrus.Fields{
		"file":       filepath.Base(path),
		"sheet":      sheet,
		"header_row": headerIdx,
	}).Debug("Resolved spreadsheet header")

	return buildTable(rows[headerIdx], rows[headerIdx+1:])
}

// sniffDelimited tries each candidate encoding in order and accepts the
// first one whose decoded text contains a plausible header line: more than
// minSeparators commas plus at least one known header label. Malformed
// individual lines below the header are skipped, not fatal.
func (s *Sniffer) sniffDelimited(path string) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %v", err)
	}

	decodedAny := false
	for _, cand := range candidateEncodings {
		decoded, err := cand.enc.NewDecoder().Bytes(raw)
		if err != nil {
			continue
		}
		text := string(decoded)
		if !strings.ContainsRune(text, utf8.RuneError) && utf8.ValidString(text) {
			decodedAny = true
		}

		lines := strings.Split(text, "\n")
		headerIdx := -1
		for i, line := range lines {
			if i >= headerScanLines {
				break
			}
			if strings.Count(line, ",") > minSeparators && containsHeaderToken(line) {
				headerIdx = i
				break
			}
		}
		if headerIdx < 0 {
			continue
		}

		s.logger.WithFields(logrus.Fields{
			"file":       filepath.Base(path),
			"encoding":   cand.name,
			"header_row": headerIdx,
		}).Debug("Resolved delimited header")

		header, dataRows, err := parseCSVFrom(lines[headerIdx:])
		if err != nil {
			return nil, err
		}
		return buildTable(header, dataRows)
	}

	if !decodedAny {
		return nil, ErrFileUnreadable
	}
	return nil, fmt.Errorf("%w: no header line in first %d lines", ErrSchemaUnresolved, headerScanLines)
}

// parseCSVFrom parses the header line and everything after it, dropping
// individual records the csv reader rejects.
func parseCSVFrom(lines []string) ([]string, [][]string, error) {
	reader := csv.NewReader(strings.NewReader(strings.Join(lines, "\n")))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: unparsable header line", ErrSchemaUnresolved)
	}

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Malformed line; skip it and keep going
			continue
		}
		rows = append(rows, record)
	}
	return header, rows, nil
}

// buildTable normalizes column names and resolves semantic fields via the
// alias table, falling back to the fixed government layout for wide tables.
func buildTable(header []string, rows [][]string) (*Table, error) {
	columns := make([]string, len(header))
	byName := make(map[string]int, len(header))
	for i, c := range header {
		columns[i] = NormalizeColumn(c)
		if _, seen := byName[columns[i]]; !seen {
			byName[columns[i]] = i
		}
	}

	fields := make(map[config.SemanticField]int)
	for field, aliases := range config.FieldAliases {
		for _, alias := range aliases {
			if idx, ok := byName[alias]; ok {
				fields[field] = idx
				break
			}
		}
	}

	// Standard government downloads keep a known column order even when
	// the header labels have drifted beyond the alias table.
	if _, ok := fields[config.FieldName]; !ok && len(columns) >= config.PositionalMinColumns {
		for field, idx := range config.PositionalFallback {
			fields[field] = idx
		}
	}

	var missing []string
	for _, field := range config.RequiredFields {
		if _, ok := fields[field]; !ok {
			missing = append(missing, string(field))
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrSchemaUnresolved, strings.Join(missing, ", "))
	}

	return &Table{Columns: columns, Fields: fields, Rows: rows}, nil
}

// NormalizeColumn strips whitespace, quote characters and embedded spaces
// from a raw column name.
func NormalizeColumn(c string) string {
	c = strings.TrimSpace(c)
	c = strings.ReplaceAll(c, `"`, "")
	c = strings.ReplaceAll(c, " ", "")
	return strings.TrimPrefix(c, "\uFEFF")
}

func containsHeaderToken(s string) bool {
	for _, token := range config.HeaderTokens {
		if strings.Contains(s, token) {
			return true
		}
	}
	return false
}

package tabular

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"
)

// ErrUnsupportedFormat is returned only after every parse strategy has
// been exhausted on an input.
var ErrUnsupportedFormat = eris.New("tabular: unsupported format")

// LoadFile reads the file at path and parses it with LoadBytes, using
// the path itself as the filename hint.
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "tabular: read %s", path)
	}
	return LoadBytes(data, path)
}

// LoadBytes parses a byte buffer into a Table. The strategy order is
// dictated by Detect; on failure the remaining strategies are tried
// before giving up. A parse only counts as a success if it yields at
// least one non-empty column name.
func LoadBytes(data []byte, filenameHint string) (*Table, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, eris.Wrap(ErrUnsupportedFormat, "tabular: empty input")
	}

	strategies := strategyOrder(Detect(filenameHint, data))

	var lastErr error
	for _, f := range strategies {
		t, err := parseAs(f, data)
		if err != nil {
			lastErr = err
			zap.L().Debug("tabular: parse strategy failed",
				zap.String("format", f.String()),
				zap.String("hint", filenameHint),
				zap.Error(err),
			)
			continue
		}
		if !t.hasUsableColumn() {
			lastErr = eris.Errorf("tabular: %s parse produced no usable columns", f)
			continue
		}
		return t, nil
	}

	if lastErr != nil {
		return nil, eris.Wrap(ErrUnsupportedFormat, lastErr.Error())
	}
	return nil, ErrUnsupportedFormat
}

// strategyOrder puts the detected format first, then the remaining
// parseable formats as fallbacks. FormatStructured never parses bytes.
func strategyOrder(detected Format) []Format {
	if detected == FormatSpreadsheet {
		return []Format{FormatSpreadsheet, FormatDelimited}
	}
	return []Format{FormatDelimited, FormatSpreadsheet}
}

func parseAs(f Format, data []byte) (*Table, error) {
	switch f {
	case FormatSpreadsheet:
		return parseSpreadsheet(data)
	default:
		return parseDelimited(data)
	}
}

// parseDelimited parses delimiter-separated text. The delimiter is
// sniffed from the header line among comma, tab, semicolon, and pipe.
func parseDelimited(data []byte) (*Table, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = sniffDelimiter(data)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1 // allow variable fields

	var t Table
	first := true
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "tabular: read delimited row")
		}

		for i, field := range record {
			record[i] = strings.TrimSpace(field)
		}

		if first {
			first = false
			t.Columns = record
			continue
		}
		t.Rows = append(t.Rows, record)
	}

	if len(t.Columns) == 0 {
		return nil, eris.New("tabular: delimited input has no header row")
	}
	return &t, nil
}

// sniffDelimiter counts candidate delimiters on the first line and
// picks the most frequent, defaulting to comma.
func sniffDelimiter(data []byte) rune {
	line := data
	if idx := bytes.IndexByte(data, '\n'); idx >= 0 {
		line = data[:idx]
	}

	best := ','
	bestCount := bytes.Count(line, []byte{','})
	for _, cand := range []byte{'\t', ';', '|'} {
		if n := bytes.Count(line, []byte{cand}); n > bestCount {
			best = rune(cand)
			bestCount = n
		}
	}
	return best
}

// parseSpreadsheet parses an XLSX workbook, reading the first sheet.
func parseSpreadsheet(data []byte) (*Table, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, eris.Wrap(err, "tabular: open workbook")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("tabular: workbook has no sheets")
	}

	sheet := f.Sheets[0]
	var t Table
	for i, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = strings.TrimSpace(cell.String())
		}

		if i == 0 {
			t.Columns = cells
			continue
		}
		t.Rows = append(t.Rows, cells)
	}

	if len(t.Columns) == 0 {
		return nil, eris.New("tabular: sheet has no header row")
	}
	return &t, nil
}

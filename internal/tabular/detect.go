package tabular

import (
	"bytes"
	"path/filepath"
	"strings"
)

// Format is the parse strategy selected for an input.
type Format int

const (
	// FormatDelimited is delimiter-separated text (CSV, TSV, pipe).
	FormatDelimited Format = iota
	// FormatSpreadsheet is an XLSX/XLS workbook.
	FormatSpreadsheet
	// FormatStructured is an already-structured Table needing no parse.
	FormatStructured
)

func (f Format) String() string {
	switch f {
	case FormatDelimited:
		return "delimited"
	case FormatSpreadsheet:
		return "spreadsheet"
	case FormatStructured:
		return "structured"
	default:
		return "unknown"
	}
}

// Magic bytes for spreadsheet container formats. XLSX is a ZIP archive;
// legacy XLS is an OLE compound file.
var (
	zipMagic = []byte{0x50, 0x4B, 0x03, 0x04}
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// Detect decides the parse strategy for an input from its filename hint
// and/or leading bytes. It never fails: an unrecognized input defaults
// to FormatDelimited and the loader's fallback chain takes it from
// there.
func Detect(filenameHint string, data []byte) Format {
	if ext := strings.ToLower(filepath.Ext(filenameHint)); ext != "" {
		switch ext {
		case ".csv", ".tsv", ".txt", ".psv":
			return FormatDelimited
		case ".xlsx", ".xlsm", ".xls":
			return FormatSpreadsheet
		}
		// Unrecognized extension: fall through to sniffing.
	}

	if len(data) >= 4 && bytes.HasPrefix(data, zipMagic) {
		return FormatSpreadsheet
	}
	if len(data) >= 8 && bytes.HasPrefix(data, oleMagic) {
		return FormatSpreadsheet
	}

	return FormatDelimited
}

// Package dedupe collapses duplicate rows in a normalized table using a
// priority-ordered identity key.
package dedupe

import (
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/referral-cli/internal/model"
	"github.com/sells-group/referral-cli/internal/tabular"
)

// rowSep joins cells for full-row comparison; 0x1f is the ASCII unit
// separator and cannot appear in trimmed cell text.
const rowSep = "\x1f"

// Dedupe collapses duplicate rows. When the named identity column
// exists and carries at least one non-blank value, rows deduplicate by
// first-seen-per-identifier (keep-first); rows with a blank identifier
// are kept as-is since they carry no identity claim. When no usable
// identity column exists, exact full-row duplicates are removed, never
// a weaker subset key, which would risk false merges. If the identity
// column was structurally present but never populated it is dropped
// from the output.
func Dedupe(t *tabular.Table, idColumn string, warns *model.Warnings) *tabular.Table {
	idIdx := t.ColumnIndex(idColumn)
	if idIdx >= 0 && columnHasValue(t, idIdx) {
		return dedupeByID(t, idIdx, warns)
	}
	if idIdx >= 0 {
		// Structurally present but entirely blank: drop it so downstream
		// consumers fall back to the name+address identity.
		t = dropColumn(t, idIdx)
	}
	return dedupeFullRow(t, warns)
}

func columnHasValue(t *tabular.Table, col int) bool {
	for r := range t.Rows {
		if strings.TrimSpace(t.Cell(r, col)) != "" {
			return true
		}
	}
	return false
}

func dedupeByID(t *tabular.Table, idIdx int, warns *model.Warnings) *tabular.Table {
	out := &tabular.Table{Columns: t.Columns}
	seen := make(map[string]bool)
	removed := 0

	for _, row := range t.Rows {
		id := ""
		if idIdx < len(row) {
			id = strings.TrimSpace(row[idIdx])
		}
		if id == "" {
			out.Rows = append(out.Rows, row)
			continue
		}
		if seen[id] {
			removed++
			continue
		}
		seen[id] = true
		out.Rows = append(out.Rows, row)
	}

	if removed > 0 {
		warns.Add(model.WarnDedupCount, "removed %d duplicate rows by identity key", removed)
		zap.L().Info("dedupe: collapsed by identity",
			zap.Int("removed", removed),
			zap.Int("remaining", len(out.Rows)),
		)
	}
	return out
}

func dedupeFullRow(t *tabular.Table, warns *model.Warnings) *tabular.Table {
	out := &tabular.Table{Columns: t.Columns}
	seen := make(map[string]bool)
	removed := 0

	for _, row := range t.Rows {
		key := strings.Join(row, rowSep)
		if seen[key] {
			removed++
			continue
		}
		seen[key] = true
		out.Rows = append(out.Rows, row)
	}

	if removed > 0 {
		warns.Add(model.WarnDedupCount, "removed %d exact duplicate rows", removed)
		zap.L().Info("dedupe: collapsed exact duplicates",
			zap.Int("removed", removed),
			zap.Int("remaining", len(out.Rows)),
		)
	}
	return out
}

func dropColumn(t *tabular.Table, col int) *tabular.Table {
	out := &tabular.Table{}
	out.Columns = append(out.Columns, t.Columns[:col]...)
	out.Columns = append(out.Columns, t.Columns[col+1:]...)
	for _, row := range t.Rows {
		nr := make([]string, 0, len(row))
		for i, cell := range row {
			if i == col {
				continue
			}
			nr = append(nr, cell)
		}
		out.Rows = append(out.Rows, nr)
	}
	return out
}

package schema

import (
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/referral-cli/internal/model"
	"github.com/sells-group/referral-cli/internal/tabular"
)

// sanityFloor is the fixed historical cutoff for event dates. Serial 0
// decodes to 1899-12-30 and typo years land before this; such rows are
// data-entry errors and are dropped.
var sanityFloor = time.Date(1990, time.January, 1, 0, 0, 0, 0, time.UTC)

// Normalize maps a loaded table onto the canonical attribute set using
// the given column rules. Canonical columns come first in rule order;
// source columns not covered by any rule are preserved after them
// (non-critical passthrough). A required rule with no matching variant
// records a warning and continues with blanks; an optional one logs at
// debug only.
func Normalize(t *tabular.Table, rules []ColumnRule, warns *model.Warnings) *tabular.Table {
	matched := make([][]int, len(rules))
	claimed := make(map[int]bool)

	for ri, rule := range rules {
		for ci, col := range t.Columns {
			for _, variant := range rule.Variants {
				if model.FoldKey(col) == model.FoldKey(variant) {
					matched[ri] = append(matched[ri], ci)
					claimed[ci] = true
					break
				}
			}
		}

		if len(matched[ri]) == 0 {
			if rule.Required {
				warns.Add(model.WarnSchemaMissingColumn,
					"required column %q not found in source (tried %d variants)",
					rule.Canonical, len(rule.Variants))
				zap.L().Warn("schema: required column missing",
					zap.String("canonical", rule.Canonical),
				)
			} else {
				zap.L().Debug("schema: optional column absent",
					zap.String("canonical", rule.Canonical),
				)
			}
		}
	}

	out := &tabular.Table{}
	for _, rule := range rules {
		out.Columns = append(out.Columns, rule.Canonical)
	}
	var passthrough []int
	for ci, col := range t.Columns {
		if !claimed[ci] && col != "" {
			out.Columns = append(out.Columns, col)
			passthrough = append(passthrough, ci)
		}
	}

	for r := range t.Rows {
		row := make([]string, 0, len(out.Columns))
		for ri := range rules {
			// First non-empty value across matched variants wins, so a
			// secondary-referrer column fills in when the primary is blank.
			var v string
			for _, ci := range matched[ri] {
				if cell := t.Cell(r, ci); cell != "" {
					v = cell
					break
				}
			}
			row = append(row, v)
		}
		for _, ci := range passthrough {
			row = append(row, t.Cell(r, ci))
		}
		out.Rows = append(out.Rows, row)
	}

	return out
}

// ToEvents converts a normalized, deduplicated table into typed
// referral events, applying coercions and the retention invariants:
// rows without a full name are discarded, as are rows whose event date
// falls before the sanity floor. Coordinates are only kept as a pair.
func ToEvents(t *tabular.Table, direction model.Direction) []model.ReferralEvent {
	col := func(name string) int { return t.ColumnIndex(name) }
	caseID, personID := col(ColCaseID), col(ColPersonID)
	name, street, city, state, zip := col(ColFullName), col(ColStreet), col(ColCity), col(ColState), col(ColZip)
	fullAddr, lat, lng := col(ColFullAddress), col(ColLatitude), col(ColLongitude)
	phone, specialty := col(ColPhone), col(ColSpecialty)
	eventDate, lastVerified := col(ColEventDate), col(ColLastVerified)

	var events []model.ReferralEvent
	dropped := 0
	for r := range t.Rows {
		e := model.ReferralEvent{
			CaseID:    t.Cell(r, caseID),
			PersonID:  t.Cell(r, personID),
			FullName:  t.Cell(r, name),
			Street:    t.Cell(r, street),
			City:      t.Cell(r, city),
			State:     NormalizeState(t.Cell(r, state)),
			Zip:       t.Cell(r, zip),
			Phone:     NormalizePhone(t.Cell(r, phone)),
			Specialty: t.Cell(r, specialty),
			Direction: direction,
		}

		if e.FullName == "" {
			dropped++
			continue
		}

		e.EventDate = CoerceDate(t.Cell(r, eventDate))
		if e.EventDate != nil && e.EventDate.Before(sanityFloor) {
			dropped++
			continue
		}
		e.LastVerified = CoerceDate(t.Cell(r, lastVerified))

		e.Latitude = CoerceCoordinate(t.Cell(r, lat), -90, 90)
		e.Longitude = CoerceCoordinate(t.Cell(r, lng), -180, 180)
		if e.Latitude == nil || e.Longitude == nil {
			e.Latitude, e.Longitude = nil, nil
		}

		if addr := t.Cell(r, fullAddr); addr != "" {
			e.FullAddress = addr
		} else {
			e.FullAddress = BuildFullAddress(e.Street, e.City, e.State, e.Zip)
		}

		events = append(events, e)
	}

	if dropped > 0 {
		zap.L().Debug("schema: dropped unusable rows",
			zap.String("direction", string(direction)),
			zap.Int("dropped", dropped),
		)
	}
	return events
}

// ToPreferred converts a normalized preferred-list table into curated
// contact records. Rows without a full name are discarded.
func ToPreferred(t *tabular.Table) []model.PreferredProviderRecord {
	col := func(name string) int { return t.ColumnIndex(name) }
	personID, name := col(ColPersonID), col(ColFullName)
	street, city, state, zip := col(ColStreet), col(ColCity), col(ColState), col(ColZip)
	fullAddr, lat, lng := col(ColFullAddress), col(ColLatitude), col(ColLongitude)
	phone, specialty := col(ColPhone), col(ColSpecialty)

	var records []model.PreferredProviderRecord
	for r := range t.Rows {
		p := model.PreferredProviderRecord{
			PersonID:  t.Cell(r, personID),
			FullName:  t.Cell(r, name),
			Street:    t.Cell(r, street),
			City:      t.Cell(r, city),
			State:     NormalizeState(t.Cell(r, state)),
			Zip:       t.Cell(r, zip),
			Phone:     NormalizePhone(t.Cell(r, phone)),
			Specialty: t.Cell(r, specialty),
		}
		if p.FullName == "" {
			continue
		}

		p.Latitude = CoerceCoordinate(t.Cell(r, lat), -90, 90)
		p.Longitude = CoerceCoordinate(t.Cell(r, lng), -180, 180)
		if p.Latitude == nil || p.Longitude == nil {
			p.Latitude, p.Longitude = nil, nil
		}

		if addr := t.Cell(r, fullAddr); addr != "" {
			p.FullAddress = addr
		} else {
			p.FullAddress = BuildFullAddress(p.Street, p.City, p.State, p.Zip)
		}

		records = append(records, p)
	}
	return records
}

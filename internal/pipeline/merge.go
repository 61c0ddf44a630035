package pipeline

import (
	"go.uber.org/zap"

	"github.com/sells-group/referral-cli/internal/model"
)

// MergePreferred overlays the curated contact list onto the aggregated
// provider set. Matching tries the stable person identifier first, then
// the folded full name. A matched provider gains is_preferred and any
// contact fields the curated record supplies (non-blank fields only,
// so the curated list corrects stale contact data without erasing
// referral-derived fields it does not cover). Unmatched records join
// the set as preferred-only providers with zero referral counts.
//
// Two anomaly checks guard against ingesting the wrong file: a curated
// list larger than maxEntries, or a merged set where the preferred
// fraction exceeds maxFraction. Either raises a warning; neither stops
// the merge.
func MergePreferred(providers []model.Provider, preferred []model.PreferredProviderRecord, maxEntries int, maxFraction float64, warns *model.Warnings) []model.Provider {
	if maxEntries > 0 && len(preferred) > maxEntries {
		warns.AddOnce(model.WarnPreferredListSize,
			"preferred list has %d entries, above the expected maximum of %d",
			len(preferred), maxEntries)
		zap.L().Warn("pipeline: preferred list unusually large",
			zap.Int("entries", len(preferred)),
			zap.Int("max", maxEntries),
		)
	}

	out := make([]model.Provider, len(providers))
	copy(out, providers)

	byID := make(map[string]int)
	byName := make(map[string]int)
	for i := range out {
		if out[i].PersonID != "" {
			byID[out[i].PersonID] = i
		}
		if key := model.FoldKey(out[i].FullName); key != "" {
			if _, dup := byName[key]; !dup {
				byName[key] = i
			}
		}
	}

	for i := range preferred {
		rec := &preferred[i]
		idx, ok := -1, false
		if rec.PersonID != "" {
			idx, ok = lookup(byID, rec.PersonID)
		}
		if !ok {
			idx, ok = lookup(byName, model.FoldKey(rec.FullName))
		}
		if ok {
			out[idx].IsPreferred = true
			overlayPreferred(&out[idx], rec)
			continue
		}
		out = append(out, model.Provider{
			PersonID:    rec.PersonID,
			FullName:    rec.FullName,
			Street:      rec.Street,
			City:        rec.City,
			State:       rec.State,
			Zip:         rec.Zip,
			FullAddress: rec.FullAddress,
			Latitude:    rec.Latitude,
			Longitude:   rec.Longitude,
			Phone:       rec.Phone,
			Specialty:   rec.Specialty,
			IsPreferred: true,
		})
	}

	if maxFraction > 0 && len(out) > 0 {
		flagged := 0
		for i := range out {
			if out[i].IsPreferred {
				flagged++
			}
		}
		if frac := float64(flagged) / float64(len(out)); frac > maxFraction {
			warns.AddOnce(model.WarnPreferredFraction,
				"%.0f%% of providers are flagged preferred, above the expected maximum of %.0f%%",
				frac*100, maxFraction*100)
			zap.L().Warn("pipeline: preferred fraction unusually high",
				zap.Int("flagged", flagged),
				zap.Int("total", len(out)),
			)
		}
	}

	return out
}

func lookup(index map[string]int, key string) (int, bool) {
	if key == "" {
		return -1, false
	}
	idx, ok := index[key]
	return idx, ok
}

// overlayPreferred copies non-blank curated fields onto the provider.
// Blank curated fields never erase referral-derived values.
func overlayPreferred(p *model.Provider, rec *model.PreferredProviderRecord) {
	if rec.PersonID != "" {
		p.PersonID = rec.PersonID
	}
	if rec.Street != "" {
		p.Street = rec.Street
	}
	if rec.City != "" {
		p.City = rec.City
	}
	if rec.State != "" {
		p.State = rec.State
	}
	if rec.Zip != "" {
		p.Zip = rec.Zip
	}
	if rec.FullAddress != "" {
		p.FullAddress = rec.FullAddress
	}
	if rec.Latitude != nil && rec.Longitude != nil {
		p.Latitude, p.Longitude = rec.Latitude, rec.Longitude
	}
	if rec.Phone != "" {
		p.Phone = rec.Phone
	}
	if rec.Specialty != "" {
		p.Specialty = rec.Specialty
	}
}

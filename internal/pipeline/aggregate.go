package pipeline

import (
	"github.com/sells-group/referral-cli/internal/model"
)

// eventIdentity mirrors Provider.IdentityKey for a raw event.
func eventIdentity(e *model.ReferralEvent) string {
	if e.PersonID != "" {
		return "id:" + e.PersonID
	}
	return "na:" + model.FoldKey(e.FullName) + "|" + model.FoldKey(e.FullAddress)
}

// Aggregate folds direction-tagged events into one Provider per
// distinct identity. Counts sum per direction; a provider seen in only
// one direction keeps a zero for the other. last_verified_date takes
// the maximum across contributing events. Contact fields come from the
// first event that supplies them, so first-seen values win and later
// events only fill gaps. Output order is first-seen order, so reruns
// on identical input produce identical sets.
func Aggregate(events []model.ReferralEvent) []model.Provider {
	byKey := make(map[string]*model.Provider)
	var order []string

	for i := range events {
		e := &events[i]
		key := eventIdentity(e)

		p, ok := byKey[key]
		if !ok {
			p = &model.Provider{
				PersonID:    e.PersonID,
				FullName:    e.FullName,
				Street:      e.Street,
				City:        e.City,
				State:       e.State,
				Zip:         e.Zip,
				FullAddress: e.FullAddress,
				Latitude:    e.Latitude,
				Longitude:   e.Longitude,
				Phone:       e.Phone,
				Specialty:   e.Specialty,
			}
			byKey[key] = p
			order = append(order, key)
		} else {
			fillMissing(p, e)
		}

		switch e.Direction {
		case model.DirectionInbound:
			p.InboundCount++
		case model.DirectionOutbound:
			p.OutboundCount++
		}

		if e.LastVerified != nil && (p.LastVerified == nil || e.LastVerified.After(*p.LastVerified)) {
			p.LastVerified = e.LastVerified
		}
	}

	out := make([]model.Provider, 0, len(order))
	for _, key := range order {
		out = append(out, *byKey[key])
	}
	return out
}

// fillMissing copies fields from a later event only where the provider
// has no value yet; it never overwrites first-seen values.
func fillMissing(p *model.Provider, e *model.ReferralEvent) {
	if p.PersonID == "" {
		p.PersonID = e.PersonID
	}
	if p.Street == "" {
		p.Street = e.Street
	}
	if p.City == "" {
		p.City = e.City
	}
	if p.State == "" {
		p.State = e.State
	}
	if p.Zip == "" {
		p.Zip = e.Zip
	}
	if p.FullAddress == "" {
		p.FullAddress = e.FullAddress
	}
	if !p.HasCoordinates() && e.HasCoordinates() {
		p.Latitude, p.Longitude = e.Latitude, e.Longitude
	}
	if p.Phone == "" {
		p.Phone = e.Phone
	}
	if p.Specialty == "" {
		p.Specialty = e.Specialty
	}
}

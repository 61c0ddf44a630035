// Package model defines the core value types shared across the referral pipeline.
package model

import (
	"strings"
	"time"
)

// Direction identifies which referral flow an event belongs to.
type Direction string

const (
	// DirectionInbound marks a case referred to the organization.
	DirectionInbound Direction = "inbound"
	// DirectionOutbound marks a case referred out to an external provider.
	DirectionOutbound Direction = "outbound"
)

// ReferralEvent is one normalized referral transaction.
// Optional values use pointers; absent means the source did not supply
// a usable value (invalid values are dropped during normalization,
// never clamped or guessed).
type ReferralEvent struct {
	CaseID   string `json:"case_id,omitempty"`
	PersonID string `json:"person_id,omitempty"`

	FullName    string `json:"full_name"`
	Street      string `json:"street,omitempty"`
	City        string `json:"city,omitempty"`
	State       string `json:"state,omitempty"`
	Zip         string `json:"zip,omitempty"`
	FullAddress string `json:"full_address,omitempty"`

	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`

	Phone     string `json:"phone,omitempty"`
	Specialty string `json:"specialty,omitempty"`

	Direction    Direction  `json:"direction"`
	EventDate    *time.Time `json:"event_date,omitempty"`
	LastVerified *time.Time `json:"last_verified_date,omitempty"`
}

// HasCoordinates reports whether both latitude and longitude are present.
// Normalization guarantees they are only ever set as a pair.
func (e *ReferralEvent) HasCoordinates() bool {
	return e.Latitude != nil && e.Longitude != nil
}

// Specialties splits the free-text specialty field on commas, trimming
// whitespace and dropping empty entries.
func (e *ReferralEvent) Specialties() []string {
	return SplitSpecialties(e.Specialty)
}

// SplitSpecialties splits a comma-separated specialty string into
// trimmed non-empty values.
func SplitSpecialties(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}

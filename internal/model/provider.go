package model

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// foldCaser performs Unicode case folding for identity comparison.
// strings.ToLower is not a correct case-insensitive equality for all
// scripts, so join keys are folded instead.
var foldCaser = cases.Fold()

// FoldKey returns the case-folded, whitespace-collapsed form of s used
// for identity and join keys.
func FoldKey(s string) string {
	return foldCaser.String(strings.Join(strings.Fields(s), " "))
}

// Provider is the aggregate entity produced by one pipeline run: one
// per distinct identity, immutable once built.
type Provider struct {
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

	InboundCount  int        `json:"inbound_count"`
	OutboundCount int        `json:"outbound_count"`
	LastVerified  *time.Time `json:"last_verified_date,omitempty"`
	IsPreferred   bool       `json:"is_preferred"`
}

// IdentityKey returns the provider's dedup key: the stable person
// identifier when the source supplied one, otherwise the folded
// name+address pair.
func (p *Provider) IdentityKey() string {
	if p.PersonID != "" {
		return "id:" + p.PersonID
	}
	return "na:" + FoldKey(p.FullName) + "|" + FoldKey(p.FullAddress)
}

// HasCoordinates reports whether both latitude and longitude are present.
func (p *Provider) HasCoordinates() bool {
	return p.Latitude != nil && p.Longitude != nil
}

// Specialties splits the provider's specialty field into individual values.
func (p *Provider) Specialties() []string {
	return SplitSpecialties(p.Specialty)
}

// PreferredProviderRecord is one entry from the curated contact list.
// It carries the same address shape as Provider and is the source of
// the is_preferred flag.
type PreferredProviderRecord struct {
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
}

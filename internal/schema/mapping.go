// Package schema maps heterogeneous source column layouts onto a
// canonical attribute set and coerces cell values into typed fields.
package schema

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Canonical attribute names produced by the normalizer.
const (
	ColCaseID       = "case_id"
	ColPersonID     = "person_id"
	ColFullName     = "full_name"
	ColStreet       = "street"
	ColCity         = "city"
	ColState        = "state"
	ColZip          = "zip"
	ColFullAddress  = "full_address"
	ColLatitude     = "latitude"
	ColLongitude    = "longitude"
	ColPhone        = "phone"
	ColSpecialty    = "specialty"
	ColEventDate    = "event_date"
	ColLastVerified = "last_verified_date"
)

// ColumnRule maps known source column-name variants onto one canonical
// attribute. Several variants may be present in one table (e.g. primary
// and secondary referrer columns); the first non-empty value per row
// wins. Required rules warn when no variant is present; optional rules
// log at debug only.
type ColumnRule struct {
	Canonical string   `yaml:"canonical"`
	Variants  []string `yaml:"variants"`
	Required  bool     `yaml:"required"`
}

// Mapping holds the per-direction column rules plus the rules for the
// curated preferred-provider list. Adding a new source variant means
// adding a mapping entry, not new control flow.
type Mapping struct {
	Inbound   []ColumnRule `yaml:"inbound"`
	Outbound  []ColumnRule `yaml:"outbound"`
	Preferred []ColumnRule `yaml:"preferred"`
}

// LoadMapping reads a mapping overlay from a YAML file. The file uses a
// top-level "mapping" key. Directions absent from the file keep the
// compiled-in defaults.
func LoadMapping(path string) (*Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "schema: read mapping %s", path)
	}

	var wrapper struct {
		Mapping Mapping `yaml:"mapping"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "schema: parse mapping")
	}

	m := DefaultMapping()
	if len(wrapper.Mapping.Inbound) > 0 {
		m.Inbound = wrapper.Mapping.Inbound
	}
	if len(wrapper.Mapping.Outbound) > 0 {
		m.Outbound = wrapper.Mapping.Outbound
	}
	if len(wrapper.Mapping.Preferred) > 0 {
		m.Preferred = wrapper.Mapping.Preferred
	}
	return m, nil
}

// DefaultMapping returns the compiled-in column mapping covering the
// known export layouts: primary/secondary referrer shapes for inbound,
// the outbound referral report, and the curated contact list.
//
// Both direction rule sets run against the same table, so a generic
// variant ("Full Name", "Name", "Date") may appear in only one
// direction; listing it in both would count every row twice. Generics
// live in the inbound rules; outbound matches its specific headers.
func DefaultMapping() *Mapping {
	addressRules := func(prefix string) []ColumnRule {
		return []ColumnRule{
			{Canonical: ColStreet, Variants: []string{prefix + "Street", prefix + "Address Line 1", prefix + "Street Address", "Address1"}},
			{Canonical: ColCity, Variants: []string{prefix + "City", "City"}},
			{Canonical: ColState, Variants: []string{prefix + "State", "State", "State/Province"}},
			{Canonical: ColZip, Variants: []string{prefix + "Zip", prefix + "Zip Code", "Zip", "Postal Code", "ZIP"}},
			{Canonical: ColFullAddress, Variants: []string{prefix + "Full Address", "Full Address", "Address", "Mailing Address"}},
			{Canonical: ColLatitude, Variants: []string{prefix + "Latitude", "Latitude", "Lat"}},
			{Canonical: ColLongitude, Variants: []string{prefix + "Longitude", "Longitude", "Lng", "Long"}},
			{Canonical: ColPhone, Variants: []string{prefix + "Phone", "Phone", "Phone Number", "Office Phone"}},
		}
	}

	inbound := []ColumnRule{
		{Canonical: ColCaseID, Variants: []string{"Case ID", "Case Number", "Case #", "Matter ID"}},
		{Canonical: ColPersonID, Variants: []string{"Referring Provider ID", "Primary Referrer ID", "Secondary Referrer ID", "Person ID", "PERSON_ID", "Contact ID"}},
		{Canonical: ColFullName, Variants: []string{"Referred By", "Referring Provider", "Primary Referrer Name", "Secondary Referrer Name", "Referrer Name", "Full Name", "Name"}, Required: true},
		{Canonical: ColSpecialty, Variants: []string{"Specialty", "Specialties", "Practice Area"}},
		{Canonical: ColEventDate, Variants: []string{"Referral Date", "Date Referred", "Open Date", "Date", "Created Date"}, Required: true},
		{Canonical: ColLastVerified, Variants: []string{"Last Verified", "Last Verified Date", "Verified On"}},
	}
	inbound = append(inbound, addressRules("Referrer ")...)

	outbound := []ColumnRule{
		{Canonical: ColCaseID, Variants: []string{"Case ID", "Case Number", "Case #", "Matter ID"}},
		{Canonical: ColPersonID, Variants: []string{"Referred To ID", "Outbound Referrer ID", "Provider ID", "Person ID", "PERSON_ID"}},
		{Canonical: ColFullName, Variants: []string{"Referred To", "Referred Out To", "Provider Name", "Doctor Name"}, Required: true},
		{Canonical: ColSpecialty, Variants: []string{"Specialty", "Specialties", "Provider Type"}},
		{Canonical: ColEventDate, Variants: []string{"Referral Date", "Date Referred Out", "Sent Date"}, Required: true},
		{Canonical: ColLastVerified, Variants: []string{"Last Verified", "Last Verified Date", "Verified On"}},
	}
	outbound = append(outbound, addressRules("Provider ")...)

	preferred := []ColumnRule{
		{Canonical: ColPersonID, Variants: []string{"Provider ID", "Person ID", "PERSON_ID", "Contact ID"}},
		{Canonical: ColFullName, Variants: []string{"Provider Name", "Full Name", "Name", "Contact Name"}, Required: true},
		{Canonical: ColSpecialty, Variants: []string{"Specialty", "Specialties", "Provider Type"}},
	}
	preferred = append(preferred, addressRules("")...)

	return &Mapping{Inbound: inbound, Outbound: outbound, Preferred: preferred}
}

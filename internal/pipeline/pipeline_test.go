package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/referral-cli/internal/model"
	"github.com/sells-group/referral-cli/internal/schema"
	"github.com/sells-group/referral-cli/internal/tabular"
)

func date(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestAggregate_CountsAndFirstSeenFields(t *testing.T) {
	events := []model.ReferralEvent{
		{PersonID: "P1", FullName: "Dr. Doe", Phone: "(512) 555-0100", Direction: model.DirectionOutbound, LastVerified: date("2024-01-01")},
		{PersonID: "P1", FullName: "Dr. Doe", Phone: "(512) 555-0999", Direction: model.DirectionOutbound, LastVerified: date("2024-06-01")},
		{PersonID: "P1", FullName: "Dr. Doe", Direction: model.DirectionInbound},
		{PersonID: "P2", FullName: "Dr. Roe", Direction: model.DirectionInbound},
	}

	providers := Aggregate(events)
	require.Len(t, providers, 2)

	p1 := providers[0]
	assert.Equal(t, "P1", p1.PersonID)
	assert.Equal(t, 2, p1.OutboundCount)
	assert.Equal(t, 1, p1.InboundCount)
	assert.Equal(t, "(512) 555-0100", p1.Phone) // first-seen wins
	require.NotNil(t, p1.LastVerified)
	assert.Equal(t, *date("2024-06-01"), *p1.LastVerified) // max wins

	assert.Equal(t, 0, providers[1].OutboundCount)
}

func TestAggregate_NameAddressIdentityWhenNoID(t *testing.T) {
	events := []model.ReferralEvent{
		{FullName: "Dr.  Jane   Doe", FullAddress: "1 Main St, Austin, TX", Direction: model.DirectionInbound},
		{FullName: "DR. JANE DOE", FullAddress: "1 main st, austin, tx", Direction: model.DirectionInbound},
		{FullName: "Dr. Jane Doe", FullAddress: "9 Elm St, Dallas, TX", Direction: model.DirectionInbound},
	}

	providers := Aggregate(events)
	require.Len(t, providers, 2) // same name, different address stays distinct
	assert.Equal(t, 2, providers[0].InboundCount)
}

func TestFilterWindow_FallbackWarnsOnce(t *testing.T) {
	events := []model.ReferralEvent{
		{FullName: "Dr. Doe", Direction: model.DirectionInbound, EventDate: date("2019-05-01")},
		{FullName: "Dr. Roe", Direction: model.DirectionInbound, EventDate: date("2020-02-01")},
	}
	w := &TimeWindow{Start: *date("2024-01-01"), End: *date("2024-12-31")}

	var warns model.Warnings
	out := FilterWindow(events, w, true, &warns)
	assert.Len(t, out, 2) // full history returned
	assert.True(t, warns.Has(model.WarnTimeWindowFallback))
	assert.Len(t, warns.List(), 1)
}

func TestFilterWindow_NoFallbackReturnsEmpty(t *testing.T) {
	events := []model.ReferralEvent{
		{FullName: "Dr. Doe", Direction: model.DirectionInbound, EventDate: date("2019-05-01")},
	}
	w := &TimeWindow{Start: *date("2024-01-01"), End: *date("2024-12-31")}

	var warns model.Warnings
	out := FilterWindow(events, w, false, &warns)
	assert.Empty(t, out)
	assert.Empty(t, warns.List())
}

func TestFilterWindow_UndatedExcludedByActiveWindow(t *testing.T) {
	events := []model.ReferralEvent{
		{FullName: "Dr. Doe", Direction: model.DirectionInbound, EventDate: date("2024-05-01")},
		{FullName: "Dr. Roe", Direction: model.DirectionInbound}, // no date
	}
	w := &TimeWindow{Start: *date("2024-01-01"), End: *date("2024-12-31")}

	var warns model.Warnings
	out := FilterWindow(events, w, true, &warns)
	require.Len(t, out, 1)
	assert.Equal(t, "Dr. Doe", out[0].FullName)
}

func TestMergePreferred_OverlayAndPreferredOnly(t *testing.T) {
	providers := []model.Provider{
		{FullName: "Dr. Jane Doe", Phone: "(512) 555-0100", OutboundCount: 3},
	}
	preferred := []model.PreferredProviderRecord{
		{FullName: "DR. JANE DOE", Phone: "(512) 555-0200", Specialty: "Chiropractic"},
		{FullName: "Dr. New Face", City: "Austin"},
	}

	var warns model.Warnings
	out := MergePreferred(providers, preferred, 0, 0, &warns)
	require.Len(t, out, 2)

	assert.True(t, out[0].IsPreferred)
	assert.Equal(t, "(512) 555-0200", out[0].Phone) // curated contact data wins
	assert.Equal(t, "Chiropractic", out[0].Specialty)
	assert.Equal(t, 3, out[0].OutboundCount)

	assert.True(t, out[1].IsPreferred)
	assert.Equal(t, 0, out[1].OutboundCount)
	assert.Empty(t, warns.List())
}

func TestMergePreferred_AnomalyWarnings(t *testing.T) {
	providers := []model.Provider{{FullName: "Dr. A"}}
	preferred := []model.PreferredProviderRecord{
		{FullName: "Dr. B"},
		{FullName: "Dr. C"},
		{FullName: "Dr. D"},
	}

	var warns model.Warnings
	MergePreferred(providers, preferred, 2, 0.5, &warns)
	assert.True(t, warns.Has(model.WarnPreferredListSize))
	assert.True(t, warns.Has(model.WarnPreferredFraction))
}

func buildInput() (*tabular.Table, *tabular.Table) {
	referrals := &tabular.Table{
		Columns: []string{"Case ID", "Referred By", "Referred To", "Referral Date", "Referrer City", "Provider City"},
		Rows: [][]string{
			{"C1", "Dr. Inbound One", "Dr. Outbound One", "2024-01-10", "Austin", "Dallas"},
			{"C2", "", "Dr. Outbound One", "2024-02-11", "", "Dallas"},
			{"C3", "Dr. Inbound Two", "", "2024-03-12", "Waco", ""},
		},
	}
	preferredList := &tabular.Table{
		Columns: []string{"Provider Name", "Specialty"},
		Rows: [][]string{
			{"Dr. Outbound One", "Orthopedics"},
			{"Dr. Standalone", "Neurology"},
		},
	}
	return referrals, preferredList
}

func TestBuild_EndToEnd(t *testing.T) {
	referrals, preferredList := buildInput()
	res := Build(referrals, preferredList, schema.DefaultMapping(), Options{})

	byName := make(map[string]model.Provider)
	for _, p := range res.Providers {
		byName[p.FullName] = p
	}
	require.Len(t, res.Providers, 4)

	out := byName["Dr. Outbound One"]
	assert.Equal(t, 2, out.OutboundCount)
	assert.True(t, out.IsPreferred)
	assert.Equal(t, "Orthopedics", out.Specialty)

	assert.Equal(t, 1, byName["Dr. Inbound One"].InboundCount)
	assert.True(t, byName["Dr. Standalone"].IsPreferred)
	assert.Equal(t, 0, byName["Dr. Standalone"].OutboundCount)

	assert.Equal(t, 2, res.InboundEvents)
	assert.Equal(t, 2, res.OutboundEvents)
	assert.Equal(t, 2, res.PreferredEntries)
}

func TestBuild_GenericHeadersCountOnceAsInbound(t *testing.T) {
	// Generic headers match only the inbound rules; if they matched
	// both directions every row would count twice.
	referrals := &tabular.Table{
		Columns: []string{"Name", "Date"},
		Rows: [][]string{
			{"Dr. Generic", "2024-01-10"},
		},
	}

	res := Build(referrals, nil, schema.DefaultMapping(), Options{})

	assert.Equal(t, 1, res.InboundEvents)
	assert.Equal(t, 0, res.OutboundEvents)
	require.Len(t, res.Providers, 1)
	assert.Equal(t, 1, res.Providers[0].InboundCount)
	assert.Equal(t, 0, res.Providers[0].OutboundCount)
}

func TestBuild_Deterministic(t *testing.T) {
	r1, p1 := buildInput()
	r2, p2 := buildInput()

	a := Build(r1, p1, schema.DefaultMapping(), Options{})
	b := Build(r2, p2, schema.DefaultMapping(), Options{})
	assert.Equal(t, a.Providers, b.Providers)
}

func TestBuild_WindowRestrictsCounts(t *testing.T) {
	referrals, preferredList := buildInput()
	res := Build(referrals, preferredList, schema.DefaultMapping(), Options{
		Window: &TimeWindow{Start: *date("2024-03-01"), End: *date("2024-12-31")},
	})

	assert.Equal(t, 1, res.InboundEvents) // only the March case
	assert.Equal(t, 0, res.OutboundEvents)
}

package schema

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoerceDate_SerialAndISOConverge(t *testing.T) {
	// Serial 45292 is 2024-01-01.
	fromSerial := CoerceDate("45292")
	fromISO := CoerceDate("2024-01-01")
	require.NotNil(t, fromSerial)
	require.NotNil(t, fromISO)
	assert.True(t, fromSerial.Equal(*fromISO), "serial %v vs iso %v", fromSerial, fromISO)
}

func TestCoerceDate_SerialFraction(t *testing.T) {
	d := CoerceDate("45292.5")
	require.NotNil(t, d)
	assert.Equal(t, 12, d.Hour())
}

func TestCoerceDate_Layouts(t *testing.T) {
	for _, in := range []string{"2024-06-01", "06/01/2024", "6/1/2024", "2024-06-01 09:30:00"} {
		d := CoerceDate(in)
		require.NotNil(t, d, "input %q", in)
		assert.Equal(t, time.June, d.Month())
	}
}

func TestCoerceDate_Unparseable(t *testing.T) {
	assert.Nil(t, CoerceDate(""))
	assert.Nil(t, CoerceDate("not a date"))
	assert.Nil(t, CoerceDate("-5"))
	assert.Nil(t, CoerceDate("99999999")) // out of serial range
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "(512) 555-0142", NormalizePhone("512-555-0142"))
	assert.Equal(t, "(512) 555-0142", NormalizePhone("(512) 555.0142"))
	assert.Equal(t, "", NormalizePhone("555-0142"))       // 7 digits
	assert.Equal(t, "", NormalizePhone("1-512-555-0142")) // 11 digits
	assert.Equal(t, "", NormalizePhone(""))
}

func TestCoerceCoordinate(t *testing.T) {
	v := CoerceCoordinate("30.2672", -90, 90)
	require.NotNil(t, v)
	assert.InDelta(t, 30.2672, *v, 1e-9)

	assert.Nil(t, CoerceCoordinate("91.0", -90, 90))   // dropped, not clamped
	assert.Nil(t, CoerceCoordinate("-181.0", -180, 180))
	assert.Nil(t, CoerceCoordinate("abc", -90, 90))
	assert.Nil(t, CoerceCoordinate("", -90, 90))
}

func TestNormalizeState(t *testing.T) {
	assert.Equal(t, "TX", NormalizeState("Texas"))
	assert.Equal(t, "TX", NormalizeState("tx"))
	assert.Equal(t, "DC", NormalizeState("District of Columbia"))
	assert.Equal(t, "NY", NormalizeState(" new york "))
	assert.Equal(t, "", NormalizeState(""))
}

func TestBuildFullAddress(t *testing.T) {
	assert.Equal(t, "1 Main St, Austin, TX, 78701", BuildFullAddress("1 Main St", "Austin", "TX", "78701"))
	assert.Equal(t, "Austin, TX", BuildFullAddress("", "Austin", "TX", ""))
	assert.Equal(t, "", BuildFullAddress("", "", "", ""))
}

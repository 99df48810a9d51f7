package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(d int) time.Time {
	return time.Date(2026, time.September, d, 14, 0, 0, 0, time.UTC)
}

func TestOverlaps(t *testing.T) {
	cases := []struct {
		name                       string
		aStart, aEnd, bStart, bEnd time.Time
		want                       bool
	}{
		{"identical", day(1), day(5), day(1), day(5), true},
		{"contained", day(1), day(10), day(3), day(5), true},
		{"partial front", day(1), day(5), day(4), day(8), true},
		{"partial back", day(4), day(8), day(1), day(5), true},
		{"disjoint", day(1), day(3), day(5), day(8), false},
		{"touching at boundary", day(1), day(5), day(5), day(8), false},
		{"touching reversed", day(5), day(8), day(1), day(5), false},
		{"one night inside", day(3), day(4), day(1), day(10), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Overlaps(tc.aStart, tc.aEnd, tc.bStart, tc.bEnd))
		})
	}
}

func TestValidateStay(t *testing.T) {
	now := day(1)

	assert.NoError(t, ValidateStay(day(2), day(4), now))
	assert.ErrorIs(t, ValidateStay(day(4), day(2), now), ErrInvalidStay)
	assert.ErrorIs(t, ValidateStay(day(2), day(2), now), ErrInvalidStay)

	// Past or present check-in is rejected even when checkout is ahead.
	assert.ErrorIs(t, ValidateStay(day(1), day(3), now), ErrStayInPast)
	past := now.Add(-48 * time.Hour)
	assert.ErrorIs(t, ValidateStay(past, day(3), now), ErrStayInPast)
}

func TestNights(t *testing.T) {
	assert.Equal(t, uint32(0), Nights(day(3), day(3)))
	assert.Equal(t, uint32(1), Nights(day(3), day(4)))
	assert.Equal(t, uint32(4), Nights(day(1), day(5)))

	// A partial extra day bills as a whole night.
	assert.Equal(t, uint32(2), Nights(day(3), day(4).Add(6*time.Hour)))
	assert.Equal(t, uint32(1), Nights(day(3), day(3).Add(90*time.Minute)))
}

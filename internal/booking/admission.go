package booking

import "time"

// ValidateStay checks the shape of a proposed dwelling stay before
// any database work: the interval must be non-empty and both ends
// must lie in the future relative to now. The overlap test against
// existing bookings runs afterwards, inside the booking transaction.
func ValidateStay(checkIn, checkOut, now time.Time) error {
	if !checkOut.After(checkIn) {
		return ErrInvalidStay
	}
	if !checkIn.After(now) || !checkOut.After(now) {
		return ErrStayInPast
	}
	return nil
}

// Nights returns the number of billable nights in the half-open
// interval [checkIn, checkOut). Partial trailing days count as a
// full night, so any non-empty interval bills at least one.
func Nights(checkIn, checkOut time.Time) uint32 {
	d := checkOut.Sub(checkIn)
	if d <= 0 {
		return 0
	}
	nights := uint32(d / (24 * time.Hour))
	if d%(24*time.Hour) != 0 {
		nights++
	}
	return nights
}

// Overlaps reports whether the half-open intervals [aStart, aEnd)
// and [bStart, bEnd) intersect. Touching boundaries do not overlap:
// a checkout at the same instant as the next check-in is fine.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

package git

import (
	"fmt"
	"time"
)

// Time is a git timestamp: seconds since the epoch plus the UTC offset of the
// recording clock, in minutes.
type Time struct {
	Seconds       int64
	OffsetMinutes int
}

// NewTime converts t, keeping its zone offset.
func NewTime(t time.Time) Time {
	_, offset := t.Zone()
	return Time{
		Seconds:       t.Unix(),
		OffsetMinutes: offset / 60,
	}
}

// Time converts back to a time.Time in the original zone.
func (t Time) Time() time.Time {
	return time.Unix(t.Seconds, 0).In(time.FixedZone("", t.OffsetMinutes*60))
}

// String formats the timestamp the way git does in commit headers.
func (t Time) String() string {
	sign := '+'
	offset := t.OffsetMinutes
	if offset < 0 {
		sign = '-'
		offset = -offset
	}
	return fmt.Sprintf("%d %c%02d%02d", t.Seconds, sign, offset/60, offset%60)
}

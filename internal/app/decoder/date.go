package decoder

import (
	"fmt"
	"time"
)

// PackedDate is the 16-bit date field of a history record:
// bits 15–9 year within century, bits 8–5 month, bits 4–0 day.
type PackedDate uint16

// Year returns the 7-bit year offset.
func (d PackedDate) Year() int { return int(d>>9) & 0x7f }

// Month returns the 4-bit month. It is not range checked.
func (d PackedDate) Month() int { return int(d>>5) & 0x0f }

// Day returns the 5-bit day. It is not range checked.
func (d PackedDate) Day() int { return int(d) & 0x1f }

// PackDate builds a PackedDate from its parts, masking each to its width.
func PackDate(year, month, day int) PackedDate {
	return PackedDate((year&0x7f)<<9 | (month&0x0f)<<5 | day&0x1f)
}

// DecodeDate renders packed as "YYYY/M/D". The card stores only the year
// within the century; the century is taken from now, so a record is assumed
// to be from the same century as the clock.
func DecodeDate(packed uint16, now time.Time) string {
	d := PackedDate(packed)
	century := fmt.Sprintf("%04d", now.Year())[:2]
	return fmt.Sprintf("%s%02d/%d/%d", century, d.Year(), d.Month(), d.Day())
}

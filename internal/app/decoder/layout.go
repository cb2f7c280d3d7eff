package decoder

import (
	"encoding/binary"

	"github.com/farecard/farecard/internal/domain"
)

// layout is one fixed-width view of a history block:
//
//	0 console  1 category  2–3 word  4–5 date
//	6 entry line  7 entry station  8 exit line  9 exit station
//	10–11 balance  12–15 tail
//
// The card mixes byte orders inside the record, so the decoder reads the
// same bytes through a big-endian view and a little-endian view and takes
// each field from the view that matches it.
type layout struct {
	Console      uint8
	Category     uint8
	Word         uint16
	Date         uint16
	EntryLine    uint8
	EntryStation uint8
	ExitLine     uint8
	ExitStation  uint8
	Balance      uint16
	Tail         [4]uint8
}

// readLayout interprets b (which must be BlockSize long) using order.
func readLayout(b domain.RawBlock, order binary.ByteOrder) layout {
	var l layout
	l.Console = b[0]
	l.Category = b[1]
	l.Word = order.Uint16(b[2:4])
	l.Date = order.Uint16(b[4:6])
	l.EntryLine = b[6]
	l.EntryStation = b[7]
	l.ExitLine = b[8]
	l.ExitStation = b[9]
	l.Balance = order.Uint16(b[10:12])
	copy(l.Tail[:], b[12:16])
	return l
}

func (l layout) entry() domain.StationKey {
	return domain.StationKey{LineID: l.EntryLine, StationID: l.EntryStation}
}

func (l layout) exit() domain.StationKey {
	return domain.StationKey{LineID: l.ExitLine, StationID: l.ExitStation}
}

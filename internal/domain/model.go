// Package domain holds the card history types shared by every layer.
// It imports nothing outside the standard library.
package domain

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// ─── Card Layout ────────────────────────────────────────────────────────────

const (
	// BlockSize is the length of one history record on the card.
	BlockSize = 16

	// HistorySlots is the number of history records the card keeps.
	HistorySlots = 20

	// HistoryServiceCode is the FeliCa service holding the usage history
	// (read without encryption).
	HistoryServiceCode = 0x090f

	// TransitSystemCode identifies the transit card system family.
	TransitSystemCode = 0x0003
)

// RawBlock is one history slot exactly as read from the card.
type RawBlock []byte

// ParseRawBlock decodes a 32-digit hex string into a block.
// Spaces inside the string are ignored.
func ParseRawBlock(s string) (RawBlock, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	if len(b) != BlockSize {
		return nil, fmt.Errorf("%w: %d bytes, want %d", ErrMalformedRecord, len(b), BlockSize)
	}
	return RawBlock(b), nil
}

// Validate reports whether the block has the fixed record length.
func (b RawBlock) Validate() error {
	if len(b) != BlockSize {
		return fmt.Errorf("%w: %d bytes, want %d", ErrMalformedRecord, len(b), BlockSize)
	}
	return nil
}

// String formats the block as lowercase hex.
func (b RawBlock) String() string {
	return hex.EncodeToString(b)
}

// ─── Stations ───────────────────────────────────────────────────────────────

// StationKey is the composite (line, station) reference used on the card.
type StationKey struct {
	LineID    uint8 `json:"line_id"`
	StationID uint8 `json:"station_id"`
}

// String formats the key as "line:station".
func (k StationKey) String() string {
	return fmt.Sprintf("%d:%d", k.LineID, k.StationID)
}

// StationEntry is one row of the station reference table.
type StationEntry struct {
	AreaCode    int    `json:"area_code"`
	LineID      uint8  `json:"line_id"`
	StationID   uint8  `json:"station_id"`
	CompanyName string `json:"company_name"`
	LineName    string `json:"line_name"`
	StationName string `json:"station_name"`
}

// Key returns the composite lookup key of the row.
func (e StationEntry) Key() StationKey {
	return StationKey{LineID: e.LineID, StationID: e.StationID}
}

// ─── Transactions ───────────────────────────────────────────────────────────

// TransactionRecord is the decoded form of one RawBlock.
type TransactionRecord struct {
	ConsoleCode  uint8      `json:"console_code"`
	ConsoleType  string     `json:"console_type"`
	CategoryCode uint8      `json:"category_code"`
	Category     string     `json:"category"`
	PaymentDate  string     `json:"payment_date"`
	Entry        StationKey `json:"entry"`
	EntryStation string     `json:"entry_station"`
	Exit         StationKey `json:"exit"`
	ExitStation  string     `json:"exit_station"`
	Balance      uint16     `json:"balance"`
	IsGateless   bool       `json:"is_gateless"`
}

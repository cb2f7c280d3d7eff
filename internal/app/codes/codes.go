// Package codes holds the issuer-defined code tables for history records:
// the terminal (console) type at byte 0 and the transaction category at byte 1.
//
// Issuers keep adding codes, so an unmapped code is not an error: it renders
// as a fallback label carrying the raw code in hex.
package codes

import "fmt"

// Table is an immutable byte → label mapping.
type Table struct {
	name   string
	labels map[uint8]string
}

// NewTable copies labels into a new Table.
func NewTable(name string, labels map[uint8]string) *Table {
	m := make(map[uint8]string, len(labels))
	for k, v := range labels {
		m[k] = v
	}
	return &Table{name: name, labels: m}
}

// Name returns the table's domain ("console" or "category").
func (t *Table) Name() string { return t.name }

// Len returns the number of mapped codes.
func (t *Table) Len() int { return len(t.labels) }

// Lookup returns the label for code and whether the code is mapped.
func (t *Table) Lookup(code uint8) (string, bool) {
	label, ok := t.labels[code]
	return label, ok
}

// Resolve returns the label for code, or Unknown(code) if unmapped.
func (t *Table) Resolve(code uint8) string {
	if label, ok := t.Lookup(code); ok {
		return label
	}
	return Unknown(code)
}

// Unknown formats the fallback label for an unmapped code, e.g. "不明（0x2a）".
func Unknown(code uint8) string {
	return fmt.Sprintf("不明（%#x）", code)
}

// ─── Console (terminal) types ───────────────────────────────────────────────

const (
	ConsoleInVehicle = "車載端末"
	ConsoleRetail    = "物販端末"
	ConsoleVending   = "自販機"
)

var consoleTable = NewTable("console", map[uint8]string{
	0x03: "精算機",
	0x04: "携帯型端末",
	0x05: ConsoleInVehicle,
	0x07: "券売機",
	0x08: "券売機",
	0x09: "入金機",
	0x12: "券売機",
	0x14: "券売機等",
	0x15: "券売機等",
	0x16: "改札機",
	0x17: "簡易改札機",
	0x18: "窓口端末",
	0x19: "窓口端末",
	0x1A: "改札端末",
	0x1B: "携帯電話",
	0x1C: "乗継精算機",
	0x1D: "連絡改札機",
	0x1F: "簡易入金機",
	0x23: "不明（改札機？）",
	0x46: "VIEW ALTTE",
	0x47: "VIEW ALTTE",
	0xC7: ConsoleRetail,
	0xC8: ConsoleVending,
})

// ─── Transaction categories ─────────────────────────────────────────────────

var categoryTable = NewTable("category", map[uint8]string{
	0x01: "運賃支払",
	0x02: "チャージ",
	0x03: "乗車券購入",
	0x04: "清算",
	0x05: "入場清算",
	0x06: "窓口処理",
	0x07: "新規発行",
	0x08: "窓口控除",
	0x0D: "バス",
	0x0F: "バス",
	0x11: "再発行",
	0x13: "新幹線利用",
	0x14: "自動チャージ",
	0x15: "自動チャージ",
	0x1F: "入金（バス）",
	0x46: "物販",
	0x48: "特典チャージ",
	0x49: "入金（レジ）",
	0x4A: "物販取り消し",
	0x4B: "入場物販",
	0x84: "他社清算",
	0x85: "他社入場清算",
	0xC6: "現金併用物販",
})

// ConsoleTable returns the terminal type table.
func ConsoleTable() *Table { return consoleTable }

// CategoryTable returns the transaction category table.
func CategoryTable() *Table { return categoryTable }

// Console resolves a terminal type code.
func Console(code uint8) string { return consoleTable.Resolve(code) }

// Category resolves a transaction category code.
func Category(code uint8) string { return categoryTable.Resolve(code) }

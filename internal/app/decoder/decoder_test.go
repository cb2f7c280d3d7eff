package decoder

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/farecard/farecard/internal/app/codes"
	"github.com/farecard/farecard/internal/app/station"
	"github.com/farecard/farecard/internal/domain"
)

var fixedNow = func() time.Time { return time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC) }

func newTestDecoder(t *testing.T) *Decoder {
	t.Helper()
	tbl := station.NewTable([]domain.StationEntry{
		{LineID: 0, StationID: 1, CompanyName: "JR東日本", LineName: "山手", StationName: "品川"},
		{LineID: 0, StationID: 2, CompanyName: "JR東日本", LineName: "山手", StationName: "大崎"},
		{LineID: 10, StationID: 5, CompanyName: "ゆりかもめ", LineName: "ゆりかもめ", StationName: "新橋"},
	})
	cfg := DefaultConfig()
	cfg.Now = fixedNow
	return New(cfg, station.NewResolver(tbl, nil))
}

func block(b ...byte) domain.RawBlock {
	out := make(domain.RawBlock, domain.BlockSize)
	copy(out, b)
	return out
}

// ─── Date ───────────────────────────────────────────────────────────────────

func TestDecodeDate(t *testing.T) {
	now := fixedNow()
	tests := []struct {
		packed uint16
		want   string
	}{
		{0x1234, "2009/1/20"},
		{uint16(PackDate(24, 3, 15)), "2024/3/15"},
		{uint16(PackDate(5, 12, 1)), "2005/12/1"},
		{uint16(PackDate(0, 1, 1)), "2000/1/1"},
		{uint16(PackDate(24, 0, 0)), "2024/0/0"},   // no range check
		{uint16(PackDate(24, 15, 31)), "2024/15/31"}, // no range check
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%#04x", tt.packed), func(t *testing.T) {
			if got := DecodeDate(tt.packed, now); got != tt.want {
				t.Errorf("DecodeDate(%#04x) = %q, want %q", tt.packed, got, tt.want)
			}
		})
	}
}

func TestDecodeDate_CenturyFromClock(t *testing.T) {
	packed := uint16(PackDate(7, 4, 1))
	if got := DecodeDate(packed, time.Date(2150, 1, 1, 0, 0, 0, 0, time.UTC)); got != "2107/4/1" {
		t.Errorf("DecodeDate in 2150 = %q, want %q", got, "2107/4/1")
	}
}

func TestDecodeDate_RoundTrip(t *testing.T) {
	now := fixedNow()
	for year := 0; year <= 127; year++ {
		for month := 1; month <= 12; month++ {
			for _, day := range []int{1, 15, 28, 31} {
				got := DecodeDate(uint16(PackDate(year, month, day)), now)
				parts := strings.Split(got, "/")
				if len(parts) != 3 {
					t.Fatalf("DecodeDate = %q, want three parts", got)
				}
				if !strings.HasPrefix(parts[0], "20") || !strings.HasSuffix(parts[0], fmt.Sprintf("%02d", year)) {
					t.Fatalf("year part %q does not carry offset %02d", parts[0], year)
				}
				if parts[1] != fmt.Sprint(month) || parts[2] != fmt.Sprint(day) {
					t.Fatalf("DecodeDate(%d,%d,%d) = %q", year, month, day, got)
				}
			}
		}
	}
}

// ─── Layout ─────────────────────────────────────────────────────────────────

func TestLayout_DualEndianness(t *testing.T) {
	b := block(0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0x00, 0x01)
	be := readLayout(b, binary.BigEndian)
	le := readLayout(b, binary.LittleEndian)
	if le.Balance != 256 {
		t.Errorf("little-endian balance = %d, want 256", le.Balance)
	}
	if be.Balance != 1 {
		t.Errorf("big-endian balance = %d, want 1", be.Balance)
	}

	b = block(0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0x01, 0x00)
	be = readLayout(b, binary.BigEndian)
	le = readLayout(b, binary.LittleEndian)
	if le.Balance != 1 {
		t.Errorf("little-endian balance = %d, want 1", le.Balance)
	}
	if be.Balance != 256 {
		t.Errorf("big-endian balance = %d, want 256", be.Balance)
	}
}

func TestLayout_DateIsBigEndian(t *testing.T) {
	b := block(0, 0, 0, 0, 0x12, 0x34)
	if got := readLayout(b, binary.BigEndian).Date; got != 0x1234 {
		t.Errorf("big-endian date = %#04x, want 0x1234", got)
	}
	if got := readLayout(b, binary.LittleEndian).Date; got != 0x3412 {
		t.Errorf("little-endian date = %#04x, want 0x3412", got)
	}
}

// ─── Decode ─────────────────────────────────────────────────────────────────

func TestDecode_GateTransaction(t *testing.T) {
	d := newTestDecoder(t)
	rec, err := d.Decode(block(0x16, 0x01, 0, 0, 0x12, 0x34, 0x00, 0x01, 0x00, 0x02, 0x00, 0x01))
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}

	if rec.ConsoleType != "改札機" {
		t.Errorf("ConsoleType = %q, want %q", rec.ConsoleType, "改札機")
	}
	if rec.Category != "運賃支払" {
		t.Errorf("Category = %q, want %q", rec.Category, "運賃支払")
	}
	if rec.PaymentDate != "2009/1/20" {
		t.Errorf("PaymentDate = %q, want %q", rec.PaymentDate, "2009/1/20")
	}
	if rec.IsGateless {
		t.Error("IsGateless = true, want false")
	}
	if rec.EntryStation != "品川駅（山手線）" {
		t.Errorf("EntryStation = %q, want %q", rec.EntryStation, "品川駅（山手線）")
	}
	if rec.ExitStation != "大崎駅（山手線）" {
		t.Errorf("ExitStation = %q, want %q", rec.ExitStation, "大崎駅（山手線）")
	}
	if rec.Balance != 256 {
		t.Errorf("Balance = %d, want 256", rec.Balance)
	}
	if rec.Entry != (domain.StationKey{LineID: 0, StationID: 1}) {
		t.Errorf("Entry = %v, want 0:1", rec.Entry)
	}
	if rec.Exit != (domain.StationKey{LineID: 0, StationID: 2}) {
		t.Errorf("Exit = %v, want 0:2", rec.Exit)
	}
}

func TestDecode_UnknownStationAndCodes(t *testing.T) {
	d := newTestDecoder(t)
	rec, err := d.Decode(block(0x16, 0x2A, 0, 0, 0, 0, 0xEE, 0xEE, 0x0A, 0x05, 0x10, 0x27))
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if rec.Category != "不明（0x2a）" {
		t.Errorf("Category = %q, want %q", rec.Category, "不明（0x2a）")
	}
	if rec.EntryStation != "駅名不明（路線不明）" {
		t.Errorf("EntryStation = %q, want placeholders", rec.EntryStation)
	}
	if rec.ExitStation != "新橋駅（ゆりかもめ）" {
		t.Errorf("ExitStation = %q, want %q", rec.ExitStation, "新橋駅（ゆりかもめ）")
	}
	if rec.Balance != 10000 {
		t.Errorf("Balance = %d, want 10000", rec.Balance)
	}

	rec, _ = d.Decode(block(0xFE))
	if rec.ConsoleType != "不明（0xfe）" {
		t.Errorf("ConsoleType = %q, want %q", rec.ConsoleType, "不明（0xfe）")
	}
}

func TestDecode_GatelessSuppressesStations(t *testing.T) {
	d := newTestDecoder(t)
	tests := []struct {
		name     string
		console  byte
		category byte
	}{
		{"in-vehicle terminal", 0x05, 0x0D},
		{"retail terminal", 0xC7, 0x46},
		{"vending machine", 0xC8, 0x46},
		{"charge at gate terminal", 0x16, 0x02},
		{"auto charge", 0x16, 0x14},
		{"bonus charge", 0x16, 0x48},
		{"deposit at register", 0x16, 0x49},
		{"deposit on bus", 0x16, 0x1F},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// station bytes point at a real station; they must not be used
			rec, err := d.Decode(block(tt.console, tt.category, 0, 0, 0, 0, 0x00, 0x01, 0x00, 0x02))
			if err != nil {
				t.Fatalf("Decode() error: %v", err)
			}
			if !rec.IsGateless {
				t.Fatal("IsGateless = false, want true")
			}
			if rec.EntryStation != GatelessStation || rec.ExitStation != GatelessStation {
				t.Errorf("stations = (%q, %q), want placeholders", rec.EntryStation, rec.ExitStation)
			}
		})
	}
}

type panicLookup struct{}

func (panicLookup) LookupStation(domain.StationKey) (domain.StationEntry, bool) {
	panic("station lookup on gateless record")
}

func TestDecode_GatelessNeverLooksUp(t *testing.T) {
	d := New(Config{Now: fixedNow}, station.NewResolver(panicLookup{}, nil))
	if _, err := d.Decode(block(0xC8, 0x46, 0, 0, 0, 0, 1, 2, 3, 4)); err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
}

func TestDecode_MalformedLength(t *testing.T) {
	d := newTestDecoder(t)
	for _, n := range []int{0, 1, 15, 17, 32} {
		_, err := d.Decode(make(domain.RawBlock, n))
		if !errors.Is(err, domain.ErrMalformedRecord) {
			t.Errorf("Decode(%d bytes) error = %v, want ErrMalformedRecord", n, err)
		}
	}
}

func TestDecode_TotalOverAllCodes(t *testing.T) {
	d := newTestDecoder(t)
	for c := 0; c <= 0xFF; c++ {
		for _, cat := range []byte{0x00, 0x01, 0x02, byte(c)} {
			if _, err := d.Decode(block(byte(c), cat, 0xFF, 0xFF, 0xFF, 0xFF, byte(c), cat)); err != nil {
				t.Fatalf("Decode(console=%#x, category=%#x) error: %v", c, cat, err)
			}
		}
	}
}

func TestDecode_CustomGatelessRule(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Now = fixedNow
	cfg.Gateless = KeywordRule(nil, []string{"バス"})
	d := New(cfg, nil)

	rec, _ := d.Decode(block(0x05, 0x0D))
	if !rec.IsGateless {
		t.Error("bus category should be gateless under custom rule")
	}
	rec, _ = d.Decode(block(0xC8, 0x46))
	if rec.IsGateless {
		t.Error("vending machine should not be gateless under custom rule")
	}
}

func TestDecode_CustomTables(t *testing.T) {
	cfg := Config{
		Consoles:   codes.NewTable("console", map[uint8]string{0x2A: "新型自販機"}),
		Categories: codes.NewTable("category", map[uint8]string{0x2B: "電子マネー入金"}),
		Now:        fixedNow,
	}
	d := New(cfg, nil)
	rec, _ := d.Decode(block(0x2A, 0x2B))
	if rec.ConsoleType != "新型自販機" {
		t.Errorf("ConsoleType = %q", rec.ConsoleType)
	}
	// new category labels containing the keyword suppress stations
	if !rec.IsGateless {
		t.Error("IsGateless = false, want true for a new deposit label")
	}
}

func TestDecodeAll(t *testing.T) {
	d := newTestDecoder(t)
	recs, err := d.DecodeAll([]domain.RawBlock{block(0x16, 0x01), block(0xC8, 0x46)})
	if err != nil {
		t.Fatalf("DecodeAll() error: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("DecodeAll() returned %d, want 2", len(recs))
	}

	_, err = d.DecodeAll([]domain.RawBlock{block(0x16), make(domain.RawBlock, 3)})
	if !errors.Is(err, domain.ErrMalformedRecord) {
		t.Fatalf("DecodeAll() error = %v, want ErrMalformedRecord", err)
	}
	if !strings.Contains(err.Error(), "slot 1") {
		t.Errorf("error %q should name slot 1", err)
	}
}

// ─── Gateless Rule ──────────────────────────────────────────────────────────

func TestDefaultGatelessRule(t *testing.T) {
	rule := DefaultGatelessRule()
	tests := []struct {
		console, category string
		want              bool
	}{
		{"改札機", "運賃支払", false},
		{"車載端末", "バス", true},
		{"物販端末", "物販", true},
		{"自販機", "物販", true},
		{"改札機", "チャージ", true},
		{"券売機", "入金（バス）", true},
		{"改札機", "不明（0x2a）", false},
		{"不明（0xc9）", "物販", false},
	}
	for _, tt := range tests {
		if got := rule(tt.console, tt.category); got != tt.want {
			t.Errorf("rule(%q, %q) = %v, want %v", tt.console, tt.category, got, tt.want)
		}
	}
}

func TestKeywordRule_IgnoresEmptyKeyword(t *testing.T) {
	rule := KeywordRule(nil, []string{""})
	if rule("改札機", "運賃支払") {
		t.Error("empty keyword should not match every label")
	}
}

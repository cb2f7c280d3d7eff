// Package decoder turns raw 16-byte history blocks into transaction records.
//
// Decoding is pure and total for well-formed blocks: unknown console or
// category codes and unknown stations degrade to placeholder labels. Only a
// block of the wrong length is an error (domain.ErrMalformedRecord).
package decoder

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/farecard/farecard/internal/app/codes"
	"github.com/farecard/farecard/internal/app/station"
	"github.com/farecard/farecard/internal/domain"
	"github.com/farecard/farecard/internal/infra/observability"
)

// GatelessStation is shown in place of both stations of a gateless record.
const GatelessStation = "----"

// Config controls decoder behavior.
type Config struct {
	Consoles   *codes.Table
	Categories *codes.Table
	Gateless   GatelessRule
	Now        func() time.Time // clock supplying the century of payment dates
	Logger     zerolog.Logger
}

// DefaultConfig returns the issuer code tables and the default gateless rule.
func DefaultConfig() Config {
	return Config{
		Consoles:   codes.ConsoleTable(),
		Categories: codes.CategoryTable(),
		Gateless:   DefaultGatelessRule(),
		Now:        time.Now,
		Logger:     zerolog.Nop(),
	}
}

// Decoder decodes history blocks. It holds only read-only state and is
// safe for concurrent use.
type Decoder struct {
	config   Config
	stations *station.Resolver
}

// New creates a decoder resolving stations through stations.
// Zero fields of cfg are filled from DefaultConfig.
func New(cfg Config, stations *station.Resolver) *Decoder {
	def := DefaultConfig()
	if cfg.Consoles == nil {
		cfg.Consoles = def.Consoles
	}
	if cfg.Categories == nil {
		cfg.Categories = def.Categories
	}
	if cfg.Gateless == nil {
		cfg.Gateless = def.Gateless
	}
	if cfg.Now == nil {
		cfg.Now = def.Now
	}
	if stations == nil {
		stations = station.NewResolver(nil, nil)
	}
	return &Decoder{config: cfg, stations: stations}
}

// Decode decodes one block.
func (d *Decoder) Decode(block domain.RawBlock) (domain.TransactionRecord, error) {
	if err := block.Validate(); err != nil {
		observability.MalformedRecords.Inc()
		return domain.TransactionRecord{}, err
	}

	be := readLayout(block, binary.BigEndian)
	le := readLayout(block, binary.LittleEndian)

	rec := domain.TransactionRecord{
		ConsoleCode:  be.Console,
		ConsoleType:  d.resolve(d.config.Consoles, be.Console),
		CategoryCode: be.Category,
		Category:     d.resolve(d.config.Categories, be.Category),
		PaymentDate:  DecodeDate(be.Date, d.config.Now()),
		Entry:        be.entry(),
		Exit:         be.exit(),
		Balance:      le.Balance,
	}

	rec.IsGateless = d.config.Gateless(rec.ConsoleType, rec.Category)
	if rec.IsGateless {
		rec.EntryStation = GatelessStation
		rec.ExitStation = GatelessStation
		observability.GatelessRecords.Inc()
	} else {
		rec.EntryStation = d.stations.Render(rec.Entry)
		rec.ExitStation = d.stations.Render(rec.Exit)
	}

	observability.RecordsDecoded.Inc()
	return rec, nil
}

// DecodeAll decodes blocks in order. Each slot is independent; the first
// malformed block aborts with its slot index.
func (d *Decoder) DecodeAll(blocks []domain.RawBlock) ([]domain.TransactionRecord, error) {
	out := make([]domain.TransactionRecord, 0, len(blocks))
	for i, b := range blocks {
		rec, err := d.Decode(b)
		if err != nil {
			return nil, fmt.Errorf("slot %d: %w", i, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (d *Decoder) resolve(t *codes.Table, code uint8) string {
	if label, ok := t.Lookup(code); ok {
		return label
	}
	observability.FallbackResolutions.WithLabelValues(t.Name()).Inc()
	d.config.Logger.Debug().
		Str("table", t.Name()).
		Uint8("code", code).
		Msg("unmapped code")
	return codes.Unknown(code)
}

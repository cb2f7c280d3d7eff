package cli

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/farecard/farecard/internal/app/decoder"
	"github.com/farecard/farecard/internal/app/station"
	"github.com/farecard/farecard/internal/daemon"
	"github.com/farecard/farecard/internal/domain"
	"github.com/farecard/farecard/internal/infra/sqlite"
	"github.com/farecard/farecard/internal/infra/stationcsv"
	"github.com/farecard/farecard/internal/logger"
)

// pipeline bundles the decoding components built from config.
type pipeline struct {
	lookup   domain.StationLookup
	resolver *station.Resolver
	decoder  *decoder.Decoder
	db       *sqlite.DB // nil when stations come from the CSV
	rows     int
}

// buildPipeline loads the station table (SQLite or CSV), wraps it in the
// lookup cache and constructs the resolver and decoder.
func buildPipeline(cfg daemon.Config, log zerolog.Logger) (*pipeline, error) {
	p := &pipeline{}

	var lookup domain.StationLookup
	if cfg.Stations.UseDB {
		db, err := sqlite.Open(daemon.Home())
		if err != nil {
			return nil, err
		}
		n, err := db.CountStations()
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("count stations: %w", err)
		}
		if n == 0 {
			log.Warn().Str("db", db.Path()).Msg("station table is empty; run 'farecard stations import'")
		}
		p.db, p.rows, lookup = db, n, db
	} else {
		entries, err := stationcsv.Load(cfg.Stations.CSVPath)
		if err != nil {
			return nil, err
		}
		p.rows = len(entries)
		lookup = station.NewTable(entries)
	}

	if ttl := cfg.Stations.CacheTTLDuration(); ttl > 0 {
		lookup = station.NewCachedLookup(lookup, ttl)
	}
	p.lookup = lookup
	p.resolver = station.NewResolver(lookup, cfg.Decoder.ExceptionLines)

	dcfg := decoder.DefaultConfig()
	dcfg.Gateless = cfg.Decoder.GatelessRule()
	dcfg.Logger = logger.Component(log, "decoder")
	p.decoder = decoder.New(dcfg, p.resolver)

	log.Debug().
		Int("stations", p.rows).
		Bool("sqlite", p.db != nil).
		Msg("pipeline ready")
	return p, nil
}

// Close releases the station database, if any.
func (p *pipeline) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}

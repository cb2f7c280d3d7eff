package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/farecard/farecard/internal/app/station"
	"github.com/farecard/farecard/internal/daemon"
	"github.com/farecard/farecard/internal/domain"
	"github.com/farecard/farecard/internal/infra/sqlite"
	"github.com/farecard/farecard/internal/infra/stationcsv"
)

func init() {
	rootCmd.AddCommand(stationsCmd)
	stationsCmd.AddCommand(stationsImportCmd)
	stationsCmd.AddCommand(stationsLookupCmd)
	stationsCmd.AddCommand(stationsInfoCmd)
}

var stationsCmd = &cobra.Command{
	Use:   "stations",
	Short: "Manage the station code table",
	Long: `Manage the station code reference table. Stations are read from the
CSV named by [stations].csv_path, or from the SQLite copy in $FARECARD_HOME
when [stations].use_db is set.`,
}

// ─── stations import ────────────────────────────────────────────────────────

var stationsImportCmd = &cobra.Command{
	Use:   "import [CSV]",
	Short: "Import a station code CSV into the local database",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStationsImport,
}

func runStationsImport(cmd *cobra.Command, args []string) error {
	cfg, log, _, err := setup(cmd)
	if err != nil {
		return err
	}
	path := cfg.Stations.CSVPath
	if len(args) == 1 {
		path = args[0]
	}

	entries, err := stationcsv.Load(path)
	if err != nil {
		return err
	}

	db, err := sqlite.Open(daemon.Home())
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.ReplaceStations(path, entries); err != nil {
		return fmt.Errorf("import stations: %w", err)
	}
	log.Info().Str("source", path).Int("rows", len(entries)).Msg("stations imported")
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d stations from %s into %s\n", len(entries), path, db.Path())
	return nil
}

// ─── stations lookup ────────────────────────────────────────────────────────

var stationsLookupCmd = &cobra.Command{
	Use:   "lookup LINE STATION",
	Short: "Show the display name for a line/station code pair",
	Args:  cobra.ExactArgs(2),
	RunE:  runStationsLookup,
}

func runStationsLookup(cmd *cobra.Command, args []string) error {
	key, err := parseStationKey(args[0], args[1])
	if err != nil {
		return err
	}
	cfg, log, _, err := setup(cmd)
	if err != nil {
		return err
	}
	p, err := buildPipeline(cfg, log)
	if err != nil {
		return err
	}
	defer p.Close()

	out := cmd.OutOrStdout()
	entry, ok := p.lookup.LookupStation(key)
	if !ok {
		fmt.Fprintf(out, "%s: %s\n", key, p.resolver.Render(key))
		return fmt.Errorf("%w: %s", domain.ErrStationNotFound, key)
	}
	fmt.Fprintf(out, "%s: %s\n", key, p.resolver.Render(key))
	fmt.Fprintf(out, "  company: %s\n", entry.CompanyName)
	fmt.Fprintf(out, "  area:    %d\n", entry.AreaCode)
	return nil
}

// parseStationKey parses decimal or 0x-prefixed line and station codes.
func parseStationKey(line, stn string) (domain.StationKey, error) {
	l, err := strconv.ParseUint(line, 0, 8)
	if err != nil {
		return domain.StationKey{}, fmt.Errorf("%w: line %q", domain.ErrInvalidStation, line)
	}
	s, err := strconv.ParseUint(stn, 0, 8)
	if err != nil {
		return domain.StationKey{}, fmt.Errorf("%w: station %q", domain.ErrInvalidStation, stn)
	}
	return domain.StationKey{LineID: uint8(l), StationID: uint8(s)}, nil
}

// ─── stations info ──────────────────────────────────────────────────────────

var stationsInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show where station names are loaded from",
	Args:  cobra.NoArgs,
	RunE:  runStationsInfo,
}

func runStationsInfo(cmd *cobra.Command, args []string) error {
	cfg, _, _, err := setup(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if !cfg.Stations.UseDB {
		entries, err := stationcsv.Load(cfg.Stations.CSVPath)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Source:   %s (csv)\n", cfg.Stations.CSVPath)
		fmt.Fprintf(out, "Rows:     %d\n", len(entries))
		fmt.Fprintf(out, "Distinct: %d\n", station.NewTable(entries).Keys())
		return nil
	}

	db, err := sqlite.Open(daemon.Home())
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := db.CountStations()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Source:   %s (sqlite)\n", db.Path())
	fmt.Fprintf(out, "Rows:     %d\n", n)

	imp, err := db.LatestStationImport()
	if err != nil {
		return err
	}
	if imp == nil {
		fmt.Fprintln(out, "Imported: never")
		return nil
	}
	fmt.Fprintf(out, "Imported: %s from %s (%d rows)\n",
		imp.ImportedAt.Format("2006-01-02 15:04:05"), imp.Source, imp.RowCount)
	return nil
}

package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/farecard/farecard/internal/app/history"
	"github.com/farecard/farecard/internal/domain"
	"github.com/farecard/farecard/internal/infra/dump"
	"github.com/farecard/farecard/internal/infra/observability"
)

func init() {
	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(decodeCmd)

	readCmd.Flags().StringP("dump", "d", "", "Card dump to read (default [reader].dump_path)")
	decodeCmd.Flags().Bool("json", false, "Print records as JSON")
}

// ─── read ───────────────────────────────────────────────────────────────────

var readCmd = &cobra.Command{
	Use:   "read",
	Short: "Page through a card's history one transaction at a time",
	Long: `Read the 20 history slots of a card and show them newest first,
one per Enter press.`,
	Args: cobra.NoArgs,
	RunE: runRead,
}

func runRead(cmd *cobra.Command, args []string) error {
	cfg, log, ctx, err := setup(cmd)
	if err != nil {
		return err
	}
	if path, _ := cmd.Flags().GetString("dump"); path != "" {
		cfg.Reader.DumpPath = path
	}

	con := newConsole(cmd.OutOrStdout(), cmd.InOrStdin(), flagNoColor)
	tracer := observability.NewTracer(observability.DefaultTracerConfig())
	defer logSpans(log, tracer)
	con.block("[System] Initializing...")

	initSpan := tracer.StartSpan(ctx, "init", nil)
	p, err := buildPipeline(cfg, log)
	if err != nil {
		tracer.EndSpan(initSpan, err)
		return err
	}
	defer p.Close()

	if cfg.Reader.DumpPath == "" {
		tracer.EndSpan(initSpan, domain.ErrNoReader)
		con.block("[System] Error: Device not found.", "[System] Terminating program...")
		return domain.ErrNoReader
	}
	reader := dump.NewReader(cfg.Reader.DumpPath)
	tracer.EndSpan(initSpan, nil)
	con.block(fmt.Sprintf("[System] Initialize: done(%s)", initSpan.Millis()), "[System] Please touch card.")

	return walkCard(ctx, con, tracer, reader, p, log)
}

// walkCard reads one card presentation and pages through it.
func walkCard(ctx context.Context, con *console, tracer *observability.Tracer, reader domain.HistoryReader, p *pipeline, log zerolog.Logger) error {
	con.block("[System] Card detected.", "[System] Loading card information...")

	readSpan := tracer.StartSpan(ctx, "read", nil)
	blocks, err := reader.ReadHistory(ctx)
	tracer.EndSpan(readSpan, err)
	if err != nil {
		if errors.Is(err, domain.ErrUnsupportedCard) || errors.Is(err, domain.ErrInvalidDump) {
			con.block("[System] Incompatible card detected.", "[System] Terminating program...")
		}
		return err
	}
	con.block(fmt.Sprintf("[System] Read data: done(%s)", readSpan.Millis()), "[System] Please release card.")

	sess, err := history.New(blocks, p.decoder)
	if err != nil {
		return err
	}
	log.Info().
		Str("session", sess.ID()).
		Int("records", sess.Len()).
		Msg("history loaded")

	ctx = observability.WithTraceID(ctx, sess.ID())
	pageSpan := tracer.StartSpan(ctx, "page", map[string]string{"records": strconv.Itoa(sess.Len())})
	err = con.page(sess)
	tracer.EndSpan(pageSpan, err)
	return err
}

// logSpans reports the timed phases of a read at debug level.
func logSpans(log zerolog.Logger, tracer *observability.Tracer) {
	for _, sp := range tracer.Spans(0) {
		ev := log.Debug().
			Str("trace", sp.TraceID).
			Str("operation", sp.Operation).
			Str("took", sp.Millis())
		if msg, ok := sp.Attrs["error"]; ok {
			ev = ev.Str("error", msg)
		}
		ev.Msg("phase")
	}
	log.Debug().Int("spans", tracer.SpanCount()).Msg("read finished")
}

// ─── decode ─────────────────────────────────────────────────────────────────

var decodeCmd = &cobra.Command{
	Use:   "decode DUMP",
	Short: "Decode every record of a card dump at once",
	Long: `Decode all history records in a dump file and print them in slot
order, newest first. Use --json for machine-readable output.`,
	Args: cobra.ExactArgs(1),
	RunE: runDecode,
}

func runDecode(cmd *cobra.Command, args []string) error {
	cfg, log, ctx, err := setup(cmd)
	if err != nil {
		return err
	}
	asJSON, _ := cmd.Flags().GetBool("json")

	p, err := buildPipeline(cfg, log)
	if err != nil {
		return err
	}
	defer p.Close()

	blocks, err := dump.NewReader(args[0]).ReadHistory(ctx)
	if err != nil {
		return err
	}
	sess, err := history.New(blocks, p.decoder)
	if err != nil {
		return err
	}
	recs, err := sess.Records()
	if err != nil {
		return err
	}
	return printRecords(cmd.OutOrStdout(), sess.ID(), recs, asJSON)
}

func printRecords(w io.Writer, sessionID string, recs []domain.TransactionRecord, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]interface{}{
			"session_id": sessionID,
			"total":      len(recs),
			"records":    recs,
		})
	}
	for i, rec := range recs {
		for _, line := range recordLines(i+1, rec) {
			fmt.Fprintln(w, line)
		}
		fmt.Fprintln(w)
	}
	return nil
}

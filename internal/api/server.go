// Package api provides the HTTP server for farecard.
// It decodes history blocks posted by remote readers and answers station
// and code lookups.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/farecard/farecard/internal/app/codes"
	"github.com/farecard/farecard/internal/app/decoder"
	"github.com/farecard/farecard/internal/app/history"
	"github.com/farecard/farecard/internal/app/station"
	"github.com/farecard/farecard/internal/domain"
)

// Version is reported by /api/version.
const Version = "0.1.0"

// maxBodyBytes bounds request bodies; 20 hex blocks fit comfortably.
const maxBodyBytes = 64 << 10

// Server is the farecard HTTP API server.
type Server struct {
	decoder        *decoder.Decoder
	resolver       *station.Resolver
	lookup         domain.StationLookup
	validate       *validator.Validate
	log            zerolog.Logger
	metricsEnabled bool
}

// NewServer creates a new API server.
func NewServer(dec *decoder.Decoder, resolver *station.Resolver, lookup domain.StationLookup, log zerolog.Logger) *Server {
	return &Server{
		decoder:  dec,
		resolver: resolver,
		lookup:   lookup,
		validate: validator.New(),
		log:      log,
	}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(s.requestLogger)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/api/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"version": Version})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/history/decode", s.handleDecodeHistory)
		r.Post("/records/decode", s.handleDecodeRecord)
		r.Get("/stations/{line}/{station}", s.handleStation)
		r.Get("/codes/{table}/{code}", s.handleCode)
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// ─── Request / response types ───────────────────────────────────────────────

// DecodeHistoryRequest carries the blocks of one card read in slot order.
type DecodeHistoryRequest struct {
	Blocks []string `json:"blocks" validate:"required,min=1,max=20,dive,hexadecimal"`
}

// DecodeRecordRequest carries a single block.
type DecodeRecordRequest struct {
	Block string `json:"block" validate:"required,hexadecimal"`
}

// HistoryEntry is one decoded record with its 1-based position.
type HistoryEntry struct {
	Position int `json:"position"`
	domain.TransactionRecord
}

// DecodeHistoryResponse is returned by POST /v1/history/decode.
type DecodeHistoryResponse struct {
	SessionID string         `json:"session_id"`
	Total     int            `json:"total"`
	Records   []HistoryEntry `json:"records"`
}

// StationResponse is returned by GET /v1/stations/{line}/{station}.
type StationResponse struct {
	domain.StationEntry
	Display string `json:"display"`
}

// ─── Handlers ───────────────────────────────────────────────────────────────

func (s *Server) handleDecodeHistory(w http.ResponseWriter, r *http.Request) {
	var req DecodeHistoryRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	blocks := make([]domain.RawBlock, len(req.Blocks))
	for i, h := range req.Blocks {
		b, err := domain.ParseRawBlock(h)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "block "+strconv.Itoa(i)+": "+err.Error())
			return
		}
		blocks[i] = b
	}

	sess, err := history.New(blocks, s.decoder)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	recs, err := sess.Records()
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	resp := DecodeHistoryResponse{SessionID: sess.ID(), Total: sess.Len()}
	resp.Records = make([]HistoryEntry, len(recs))
	for i, rec := range recs {
		resp.Records[i] = HistoryEntry{Position: i + 1, TransactionRecord: rec}
	}

	s.log.Info().
		Str("session", sess.ID()).
		Int("records", sess.Len()).
		Msg("history decoded")
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDecodeRecord(w http.ResponseWriter, r *http.Request) {
	var req DecodeRecordRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	b, err := domain.ParseRawBlock(req.Block)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	rec, err := s.decoder.Decode(b)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleStation(w http.ResponseWriter, r *http.Request) {
	line, err1 := strconv.ParseUint(chi.URLParam(r, "line"), 10, 8)
	st, err2 := strconv.ParseUint(chi.URLParam(r, "station"), 10, 8)
	if err1 != nil || err2 != nil {
		writeError(w, http.StatusBadRequest, "line and station must be integers 0-255")
		return
	}
	key := domain.StationKey{LineID: uint8(line), StationID: uint8(st)}

	var (
		entry domain.StationEntry
		found bool
	)
	if s.lookup != nil {
		entry, found = s.lookup.LookupStation(key)
	}
	if !found {
		writeError(w, http.StatusNotFound, domain.ErrStationNotFound.Error()+": "+key.String())
		return
	}
	writeJSON(w, http.StatusOK, StationResponse{StationEntry: entry, Display: s.resolver.Render(key)})
}

func (s *Server) handleCode(w http.ResponseWriter, r *http.Request) {
	var table *codes.Table
	switch chi.URLParam(r, "table") {
	case "console":
		table = codes.ConsoleTable()
	case "category":
		table = codes.CategoryTable()
	default:
		writeError(w, http.StatusNotFound, "unknown code table")
		return
	}

	code, err := strconv.ParseUint(chi.URLParam(r, "code"), 0, 8)
	if err != nil {
		writeError(w, http.StatusBadRequest, "code must be 0-255 (decimal or 0x hex)")
		return
	}
	_, known := table.Lookup(uint8(code))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"table": table.Name(),
		"code":  code,
		"label": table.Resolve(uint8(code)),
		"known": known,
	})
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// decodeBody parses and validates a JSON body, writing the error response
// itself when it returns false.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			writeError(w, http.StatusBadRequest, "invalid field "+verrs[0].Namespace()+": "+verrs[0].Tag())
			return false
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrMalformedRecord),
		errors.Is(err, domain.ErrTooManyBlocks),
		errors.Is(err, domain.ErrEmptyHistory):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    "error",
		},
	})
}

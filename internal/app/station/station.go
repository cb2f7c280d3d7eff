// Package station resolves the (line, station) codes stored in history
// records into display names using the station reference table.
package station

import (
	"fmt"

	"github.com/farecard/farecard/internal/domain"
	"github.com/farecard/farecard/internal/infra/observability"
)

const (
	UnknownStation = "駅名不明"
	UnknownLine    = "路線不明"

	stationMarker = "駅"
	lineSuffix    = "線"
)

// DefaultExceptionLines are lines whose proper names read naturally
// without the generic 線 suffix.
var DefaultExceptionLines = []string{
	"ゆりかもめ",
	"つくばエクスプレス",
	"アストラムライン",
	"金沢シーサイドライン",
	"東京モノレール",
	"東部丘陵リニモ",
	"ディズニーリゾートライン",
	"日暮里・舎人ライナー",
	"生駒ケーブル",
	"西信貴ケーブル",
}

// ─── In-memory table ────────────────────────────────────────────────────────

// Table is a read-only, in-memory station reference table.
// When several rows share a key the first one loaded wins.
type Table struct {
	entries []domain.StationEntry
	index   map[domain.StationKey]int
}

// NewTable indexes entries in order.
func NewTable(entries []domain.StationEntry) *Table {
	t := &Table{
		entries: make([]domain.StationEntry, len(entries)),
		index:   make(map[domain.StationKey]int, len(entries)),
	}
	copy(t.entries, entries)
	for i, e := range t.entries {
		if _, dup := t.index[e.Key()]; !dup {
			t.index[e.Key()] = i
		}
	}
	return t
}

// LookupStation implements domain.StationLookup.
func (t *Table) LookupStation(key domain.StationKey) (domain.StationEntry, bool) {
	i, ok := t.index[key]
	if !ok {
		return domain.StationEntry{}, false
	}
	return t.entries[i], true
}

// Len returns the number of rows, duplicates included.
func (t *Table) Len() int { return len(t.entries) }

// Keys returns the number of distinct (line, station) keys.
func (t *Table) Keys() int { return len(t.index) }

// ─── Resolver ───────────────────────────────────────────────────────────────

// Resolver renders station keys as "{station}駅（{line}線）".
type Resolver struct {
	lookup     domain.StationLookup
	exceptions map[string]struct{}
}

// NewResolver creates a resolver over lookup. A nil exceptions slice
// selects DefaultExceptionLines.
func NewResolver(lookup domain.StationLookup, exceptions []string) *Resolver {
	if exceptions == nil {
		exceptions = DefaultExceptionLines
	}
	set := make(map[string]struct{}, len(exceptions))
	for _, name := range exceptions {
		set[name] = struct{}{}
	}
	return &Resolver{lookup: lookup, exceptions: set}
}

// Resolve returns the display station and line names for key.
// A missing station name and a missing line name default independently.
func (r *Resolver) Resolve(key domain.StationKey) (stationName, lineName string) {
	stationName, lineName = UnknownStation, UnknownLine
	var e domain.StationEntry
	if r.lookup != nil {
		e, _ = r.lookup.LookupStation(key)
	}

	if e.StationName != "" {
		stationName = e.StationName + stationMarker
	} else {
		observability.FallbackResolutions.WithLabelValues("station").Inc()
	}
	if e.LineName != "" {
		lineName = r.LineName(e.LineName)
	} else {
		observability.FallbackResolutions.WithLabelValues("line").Inc()
	}
	return
}

// LineName applies the 線 suffix unless name is an exception line.
func (r *Resolver) LineName(name string) string {
	if _, ok := r.exceptions[name]; ok {
		return name
	}
	return name + lineSuffix
}

// Render formats key for display.
func (r *Resolver) Render(key domain.StationKey) string {
	stationName, lineName := r.Resolve(key)
	return fmt.Sprintf("%s（%s）", stationName, lineName)
}

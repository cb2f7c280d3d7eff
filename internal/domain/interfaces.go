package domain

import "context"

// ─── Collaborator Interfaces ────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; the decoding pipeline depends on them.

// HistoryReader abstracts the source of raw history blocks (a card reader,
// a dump file). Blocks are returned in slot order, slot 0 newest.
type HistoryReader interface {
	ReadHistory(ctx context.Context) ([]RawBlock, error)
}

// StationLookup abstracts the station reference table.
// Implementations must return the first loaded row for a key.
type StationLookup interface {
	LookupStation(key StationKey) (StationEntry, bool)
}

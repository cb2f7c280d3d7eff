package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────

var (
	// Record errors
	ErrMalformedRecord = errors.New("malformed history record")
	ErrTooManyBlocks   = errors.New("history exceeds card slot count")
	ErrEmptyHistory    = errors.New("history contains no records")

	// Session errors
	ErrSessionDone = errors.New("history session already finished")

	// Reader errors
	ErrNoReader        = errors.New("no card reader or dump source configured")
	ErrUnsupportedCard = errors.New("card does not carry transit history")
	ErrInvalidDump     = errors.New("invalid card dump")

	// Reference data errors
	ErrStationNotFound = errors.New("station not found")
	ErrInvalidStation  = errors.New("invalid station reference row")
)

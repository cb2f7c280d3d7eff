// Package history pages through the decoded history of one card presentation.
//
// A Session starts on slot 0 (the newest record) and only moves forward:
//
//	Viewing(0) → Viewing(1) → … → Viewing(len-1) → Done
package history

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/farecard/farecard/internal/app/decoder"
	"github.com/farecard/farecard/internal/domain"
	"github.com/farecard/farecard/internal/infra/observability"
)

// State is the paging state of a Session.
type State int

const (
	StateViewing State = iota
	StateDone
)

func (s State) String() string {
	switch s {
	case StateViewing:
		return "viewing"
	case StateDone:
		return "done"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Session holds the blocks of one card read and a forward-only cursor.
// It is not safe for concurrent use.
type Session struct {
	id      string
	blocks  []domain.RawBlock
	decoder *decoder.Decoder
	index   int
	state   State
}

// New creates a session over blocks in slot order. Every block is checked
// up front so paging never meets a malformed record halfway.
func New(blocks []domain.RawBlock, dec *decoder.Decoder) (*Session, error) {
	if len(blocks) == 0 {
		return nil, domain.ErrEmptyHistory
	}
	if len(blocks) > domain.HistorySlots {
		return nil, fmt.Errorf("%w: %d blocks, max %d", domain.ErrTooManyBlocks, len(blocks), domain.HistorySlots)
	}
	owned := make([]domain.RawBlock, len(blocks))
	for i, b := range blocks {
		if err := b.Validate(); err != nil {
			return nil, fmt.Errorf("slot %d: %w", i, err)
		}
		owned[i] = append(domain.RawBlock(nil), b...)
	}
	if dec == nil {
		dec = decoder.New(decoder.DefaultConfig(), nil)
	}

	observability.SessionsStarted.Inc()
	return &Session{
		id:      uuid.NewString(),
		blocks:  owned,
		decoder: dec,
		state:   StateViewing,
	}, nil
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// Len returns the number of records in the session.
func (s *Session) Len() int { return len(s.blocks) }

// State returns the current paging state.
func (s *Session) State() State { return s.state }

// Done reports whether the walk has finished.
func (s *Session) Done() bool { return s.state == StateDone }

// Index returns the 0-based slot currently viewed.
func (s *Session) Index() int { return s.index }

// Position returns the 1-based position of the current record and the total.
func (s *Session) Position() (current, total int) {
	return s.index + 1, len(s.blocks)
}

// Current decodes the record under the cursor.
func (s *Session) Current() (domain.TransactionRecord, error) {
	if s.state == StateDone {
		return domain.TransactionRecord{}, domain.ErrSessionDone
	}
	rec, err := s.decoder.Decode(s.blocks[s.index])
	if err != nil {
		return domain.TransactionRecord{}, fmt.Errorf("slot %d: %w", s.index, err)
	}
	observability.PagesViewed.Inc()
	return rec, nil
}

// Advance moves to the next slot. On the last slot it moves the session
// to Done and returns false; once Done it keeps returning false.
func (s *Session) Advance() bool {
	if s.state == StateDone {
		return false
	}
	if s.index+1 < len(s.blocks) {
		s.index++
		return true
	}
	s.state = StateDone
	return false
}

// Records decodes every slot in order without moving the cursor.
func (s *Session) Records() ([]domain.TransactionRecord, error) {
	return s.decoder.DecodeAll(s.blocks)
}

// Package dump reads card history from dump files instead of a live reader.
//
// Two formats are accepted:
//   - text: one block per line as 32 hex digits; blank lines, spaces and
//     '#' comments are ignored. An optional "# system XXXX" line records
//     the polled system code; anything but 0003 is an unsupported card.
//   - binary: the raw blocks back to back, a multiple of 16 bytes. Data
//     without control bytes is tried as text first.
//
// Blocks are in slot order, slot 0 first.
package dump

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"

	"github.com/farecard/farecard/internal/domain"
)

// Reader implements domain.HistoryReader over a dump file.
type Reader struct {
	path string
}

// NewReader returns a reader for the dump at path.
func NewReader(path string) *Reader {
	return &Reader{path: path}
}

// ReadHistory implements domain.HistoryReader.
func (r *Reader) ReadHistory(ctx context.Context) ([]domain.RawBlock, error) {
	if r.path == "" {
		return nil, domain.ErrNoReader
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("read dump: %w", err)
	}
	return Parse(data)
}

// Parse decodes a dump in either format.
func Parse(data []byte) ([]domain.RawBlock, error) {
	var (
		blocks []domain.RawBlock
		err    error
	)
	if isText(data) {
		blocks, err = parseText(data)
		// Binary blocks can be all printable; aligned data that is not a
		// valid text dump is read as binary.
		if aligned(data) && (errors.Is(err, domain.ErrInvalidDump) || (err == nil && len(blocks) == 0)) {
			blocks, err = parseBinary(data)
		}
	} else {
		blocks, err = parseBinary(data)
	}
	if err != nil {
		return nil, err
	}
	if len(blocks) == 0 {
		return nil, fmt.Errorf("%w: no blocks", domain.ErrInvalidDump)
	}
	if len(blocks) > domain.HistorySlots {
		return nil, fmt.Errorf("%w: %d blocks, max %d", domain.ErrInvalidDump, len(blocks), domain.HistorySlots)
	}
	return blocks, nil
}

// Format renders blocks in the text dump format.
func Format(blocks []domain.RawBlock) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %04x\n", systemDirective, domain.TransitSystemCode)
	for i, b := range blocks {
		fmt.Fprintf(&sb, "%s # slot %d\n", b, i)
	}
	return sb.String()
}

func aligned(data []byte) bool {
	return len(data) > 0 && len(data)%domain.BlockSize == 0
}

func isText(data []byte) bool {
	for _, c := range data {
		if c >= 0x80 {
			continue // comments may be non-ASCII
		}
		if c == '\t' || c == '\n' || c == '\r' {
			continue
		}
		if c < 0x20 || c == 0x7f {
			return false
		}
	}
	return true
}

func parseText(data []byte) ([]domain.RawBlock, error) {
	var blocks []domain.RawBlock
	sc := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if err := checkSystem(line); err != nil {
			return nil, err
		}
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.Map(func(r rune) rune {
			if unicode.IsSpace(r) {
				return -1
			}
			return r
		}, line)
		if line == "" {
			continue
		}
		b, err := domain.ParseRawBlock(line)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", domain.ErrInvalidDump, lineNo, err)
		}
		blocks = append(blocks, b)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidDump, err)
	}
	return blocks, nil
}

const systemDirective = "# system"

// checkSystem rejects dumps taken from a card outside the transit system.
func checkSystem(line string) error {
	f := strings.Fields(line)
	if len(f) < 2 || f[0] != "#" || f[1] != "system" {
		return nil
	}
	if len(f) != 3 {
		return fmt.Errorf("%w: malformed system line %q", domain.ErrInvalidDump, line)
	}
	code, err := strconv.ParseUint(f[2], 16, 16)
	if err != nil {
		return fmt.Errorf("%w: system code %q", domain.ErrInvalidDump, f[2])
	}
	if code != domain.TransitSystemCode {
		return fmt.Errorf("%w: system %04x", domain.ErrUnsupportedCard, code)
	}
	return nil
}

func parseBinary(data []byte) ([]domain.RawBlock, error) {
	if len(data)%domain.BlockSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a multiple of %d", domain.ErrInvalidDump, len(data), domain.BlockSize)
	}
	blocks := make([]domain.RawBlock, 0, len(data)/domain.BlockSize)
	for off := 0; off < len(data); off += domain.BlockSize {
		b := make(domain.RawBlock, domain.BlockSize)
		copy(b, data[off:off+domain.BlockSize])
		blocks = append(blocks, b)
	}
	return blocks, nil
}

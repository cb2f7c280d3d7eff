package dump

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/farecard/farecard/internal/domain"
)

const textDump = `# slot 0 is the newest record
16010000123400010002000100000000
C8 46 00 00 AB CD 00 00 00 00 10 27 00 00 00 0A  # 自販機

05 0D 00 00 12 34 00 00 00 00 E8 03 00 00 00 00
`

func TestParse_Text(t *testing.T) {
	blocks, err := Parse([]byte(textDump))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(blocks) != 3 {
		t.Fatalf("Parse() returned %d blocks, want 3", len(blocks))
	}
	if blocks[1][0] != 0xC8 || blocks[1][15] != 0x0A {
		t.Errorf("blocks[1] = %s", blocks[1])
	}
}

func TestParse_Binary(t *testing.T) {
	raw := make([]byte, 2*domain.BlockSize)
	raw[0] = 0x16
	raw[domain.BlockSize] = 0xC8
	blocks, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(blocks) != 2 || blocks[0][0] != 0x16 || blocks[1][0] != 0xC8 {
		t.Errorf("Parse() = %v", blocks)
	}
}

func TestParse_PrintableBinary(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"all printable", []byte("ABCDEFGHIJKLMNOPQRSTUVWXYZ012345")},
		{"whitespace only", bytes.Repeat([]byte("\r\n\t "), 4)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blocks, err := Parse(tt.data)
			if err != nil {
				t.Fatalf("Parse() error: %v", err)
			}
			if want := len(tt.data) / domain.BlockSize; len(blocks) != want {
				t.Fatalf("Parse() returned %d blocks, want %d", len(blocks), want)
			}
			if !bytes.Equal(blocks[0], tt.data[:domain.BlockSize]) {
				t.Errorf("blocks[0] = %s, want raw bytes", blocks[0])
			}
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"comments only", []byte("# nothing\n")},
		{"short hex line", []byte("160100\n")},
		{"binary not aligned", make([]byte, 17)},
		{"too many blocks", bytes.Repeat([]byte("16010000123400010002000100000000\n"), 21)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(tt.data); !errors.Is(err, domain.ErrInvalidDump) {
				t.Errorf("Parse() error = %v, want ErrInvalidDump", err)
			}
		})
	}
}

func TestParse_SystemCode(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		wantErr error
	}{
		{"transit", "# system 0003\n", nil},
		{"other system", "# system 8008\n", domain.ErrUnsupportedCard},
		{"bad code", "# system zz\n", domain.ErrInvalidDump},
		{"plain comment", "# systems differ\n", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.header + textDump))
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Parse() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Parse() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestFormat_RoundTrip(t *testing.T) {
	blocks, err := Parse([]byte(textDump))
	if err != nil {
		t.Fatal(err)
	}
	again, err := Parse([]byte(Format(blocks)))
	if err != nil {
		t.Fatalf("Parse(Format()) error: %v", err)
	}
	for i := range blocks {
		if !bytes.Equal(blocks[i], again[i]) {
			t.Errorf("slot %d = %s, want %s", i, again[i], blocks[i])
		}
	}
}

func TestReader_ReadHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "card.txt")
	if err := os.WriteFile(path, []byte(textDump), 0o600); err != nil {
		t.Fatal(err)
	}

	blocks, err := NewReader(path).ReadHistory(context.Background())
	if err != nil {
		t.Fatalf("ReadHistory() error: %v", err)
	}
	if len(blocks) != 3 {
		t.Errorf("ReadHistory() returned %d blocks, want 3", len(blocks))
	}

	if _, err := NewReader("").ReadHistory(context.Background()); !errors.Is(err, domain.ErrNoReader) {
		t.Errorf("ReadHistory(no path) error = %v, want ErrNoReader", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewReader(path).ReadHistory(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("ReadHistory(canceled) error = %v, want context.Canceled", err)
	}
}

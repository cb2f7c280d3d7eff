package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/farecard/farecard/internal/app/history"
	"github.com/farecard/farecard/internal/domain"
)

const (
	separator  = "==================#=================="
	colorGreen = "\033[32m"
	colorReset = "\033[0m"
)

// console frames status messages the way the reader tool always has:
// a separator, the lines, a timestamp, a separator, in green on terminals.
type console struct {
	out   io.Writer
	in    *bufio.Reader
	color bool
	now   func() time.Time
}

func newConsole(out io.Writer, in io.Reader, noColor bool) *console {
	color := false
	if f, ok := out.(*os.File); ok && !noColor {
		color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &console{out: out, in: bufio.NewReader(in), color: color, now: time.Now}
}

// block prints lines inside a separator frame.
func (c *console) block(lines ...string) {
	var sb strings.Builder
	if c.color {
		sb.WriteString(colorGreen)
	}
	sb.WriteString(separator + "\n")
	for _, l := range lines {
		sb.WriteString(l + "\n")
	}
	sb.WriteString("[Timestamp] " + c.now().Format("2006-01-02 15:04:05") + "\n")
	sb.WriteString(separator + "\n")
	if c.color {
		sb.WriteString(colorReset)
	}
	fmt.Fprintln(c.out, sb.String())
}

// prompt prints msg and waits for Enter. EOF counts as Enter.
func (c *console) prompt(msg string) error {
	fmt.Fprintln(c.out, msg)
	_, err := c.in.ReadString('\n')
	if err == io.EOF {
		return nil
	}
	return err
}

// recordLines formats one record for display.
func recordLines(pos int, rec domain.TransactionRecord) []string {
	return []string{
		fmt.Sprintf("[System] 表示中の履歴情報: %d件目", pos),
		"[Info] 端末種別:" + rec.ConsoleType,
		"[Info] 決済種別:" + rec.Category,
		"[Info] 決済日　:" + rec.PaymentDate,
		"[Info] 乗車駅　:" + rec.EntryStation,
		"[Info] 降車駅　:" + rec.ExitStation,
		fmt.Sprintf("[Info] 残高　　:%d円", rec.Balance),
	}
}

// page walks the session to the end, one record per Enter press.
func (c *console) page(s *history.Session) error {
	for {
		rec, err := s.Current()
		if err != nil {
			return err
		}
		pos, _ := s.Position()
		c.block(recordLines(pos, rec)...)

		last := pos == s.Len()
		msg := "Press Enter to display the previous payment"
		if last {
			msg = "Press Enter to exit program"
		}
		if err := c.prompt(msg); err != nil {
			return err
		}
		if !s.Advance() {
			return nil
		}
	}
}

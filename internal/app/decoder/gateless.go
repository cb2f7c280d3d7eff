package decoder

import (
	"strings"

	"github.com/farecard/farecard/internal/app/codes"
)

// GatelessRule decides from the resolved console and category labels
// whether a record involved no gate, in which case its station bytes are
// not meaningful.
type GatelessRule func(console, category string) bool

// DefaultGatelessConsoles are terminals that sit outside the gates.
var DefaultGatelessConsoles = []string{
	codes.ConsoleInVehicle,
	codes.ConsoleRetail,
	codes.ConsoleVending,
}

// DefaultGatelessKeywords mark charge and deposit categories. They match
// any substring of the resolved label, so new codes whose labels contain
// them are covered without a table change.
var DefaultGatelessKeywords = []string{"チャージ", "入金"}

// KeywordRule returns a rule matching exact console labels or category
// labels containing any keyword.
func KeywordRule(consoles, categoryKeywords []string) GatelessRule {
	set := make(map[string]struct{}, len(consoles))
	for _, c := range consoles {
		set[c] = struct{}{}
	}
	keywords := append([]string(nil), categoryKeywords...)

	return func(console, category string) bool {
		if _, ok := set[console]; ok {
			return true
		}
		for _, kw := range keywords {
			if kw != "" && strings.Contains(category, kw) {
				return true
			}
		}
		return false
	}
}

// DefaultGatelessRule is KeywordRule over the default lists.
func DefaultGatelessRule() GatelessRule {
	return KeywordRule(DefaultGatelessConsoles, DefaultGatelessKeywords)
}

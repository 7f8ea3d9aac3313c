package stack

import (
	"regexp"

	"github.com/pithecene-io/faultline/types"
)

var (
	// Line N of linked script url[: In function F]
	opera10Regex = regexp.MustCompile(`(?i) line (\d+).*script (?:in )?(\S+)(?:: in function (\S+))?$`)
	// line N, column C in <anonymous function: F>|F(args) in url:
	opera11Regex = regexp.MustCompile(`(?i) line (\d+), column (\d+)\s*(?:in (?:<anonymous function: ([^>]+)>|([^)]+))\(.*\))? in (.*):\s*$`)
)

// parseOpera10 parses lines of the legacy Presto stacktrace property.
// Interleaved source lines do not match and are dropped.
func parseOpera10(line string) (types.Frame, bool) {
	m := opera10Regex.FindStringSubmatch(line)
	if m == nil {
		return types.Frame{}, false
	}
	fn := m[3]
	if fn == "" {
		fn = unknownFunction
	}
	return createFrame(m[2], fn, m[1], ""), true
}

// parseOpera11 parses "called from line" chains of the Presto stacktrace property.
func parseOpera11(line string) (types.Frame, bool) {
	m := opera11Regex.FindStringSubmatch(line)
	if m == nil {
		return types.Frame{}, false
	}
	fn := m[3]
	if fn == "" {
		fn = m[4]
	}
	if fn == "" {
		fn = unknownFunction
	}
	return createFrame(m[5], fn, m[1], m[2]), true
}

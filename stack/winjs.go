package stack

import (
	"regexp"

	"github.com/pithecene-io/faultline/types"
)

var winjsRegex = regexp.MustCompile(`(?i)^\s*at (?:((?:\[object object\])?.+) )?\(?((?:file|ms-appx|https?|webpack|blob):.*?):(\d+)(?::(\d+))?\)?\s*$`)

// parseWinJS parses Trident and WinJS stack lines.
func parseWinJS(line string) (types.Frame, bool) {
	m := winjsRegex.FindStringSubmatch(line)
	if m == nil {
		return types.Frame{}, false
	}
	fn := m[1]
	if fn == "" {
		fn = unknownFunction
	}
	return createFrame(m[2], fn, m[3], m[4]), true
}

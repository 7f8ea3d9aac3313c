package stack

import (
	"regexp"
	"strings"

	"github.com/pithecene-io/faultline/types"
)

var (
	// at url:line:col
	chromeNoFnRegex = regexp.MustCompile(`(?i)^\s*at (\S+?)(?::(\d+))(?::(\d+))\s*$`)
	// at [func ]([address at ][async ]url[:line[:col]])
	chromeRegex = regexp.MustCompile(`(?i)^\s*at (?:(.+?\)(?: \[.+\])?|.*?) ?\((?:address at )?)?(?:async )?((?:<anonymous>|[-a-z]+:|.*bundle|/)?.*?)(?::(\d+))?(?::(\d+))?\)?\s*$`)
	// (url:line:col) inside an eval location
	chromeEvalRegex = regexp.MustCompile(`\((\S*)(?::(\d+))(?::(\d+))\)`)
	// at func (data:mime;base64,...
	chromeDataURIRegex = regexp.MustCompile(`at (.+?) ?\(data:(.+?),`)
)

// parseChrome parses V8 stack lines.
func parseChrome(line string) (types.Frame, bool) {
	if m := chromeDataURIRegex.FindStringSubmatch(line); m != nil {
		return createFrame("<data:"+m[2]+">", m[1], "", ""), true
	}

	if m := chromeNoFnRegex.FindStringSubmatch(line); m != nil {
		return createFrame(m[1], unknownFunction, m[2], m[3]), true
	}

	m := chromeRegex.FindStringSubmatch(line)
	if m == nil {
		return types.Frame{}, false
	}

	location, lineno, colno := m[2], m[3], m[4]
	// Nested eval locations collapse to the outermost physical location.
	if strings.HasPrefix(location, "eval") {
		if sub := chromeEvalRegex.FindStringSubmatch(location); sub != nil {
			location, lineno, colno = sub[1], sub[2], sub[3]
		}
	}

	fn := m[1]
	if fn == "" {
		fn = unknownFunction
	}
	fn, location = extractSafariExtensionDetails(fn, location)
	return createFrame(location, fn, lineno, colno), true
}

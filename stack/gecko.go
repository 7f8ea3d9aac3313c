package stack

import (
	"regexp"
	"strings"

	"github.com/pithecene-io/faultline/types"
)

var (
	// func(args)@url[:line[:col]], bare @url, or a scheme-less bundle path
	geckoRegex = regexp.MustCompile(`(?i)^\s*(.*?)(?:\((.*?)\))?(?:^|@)?((?:[-a-z]+)?:/.*?|\[native code\]|[^@]*(?:bundle|\d+\.js)|/[\w\-. /=]+)(?::(\d+))?(?::(\d+))?\s*$`)
	// url line N > eval line M > eval
	geckoEvalRegex = regexp.MustCompile(`(?i)(\S+) line (\d+)(?: > eval line \d+)* > eval`)
)

// parseGecko parses SpiderMonkey stack lines.
func parseGecko(line string) (types.Frame, bool) {
	m := geckoRegex.FindStringSubmatch(line)
	if m == nil {
		return types.Frame{}, false
	}

	fn, location, lineno, colno := m[1], m[3], m[4], m[5]
	if strings.Contains(location, " > eval") {
		if sub := geckoEvalRegex.FindStringSubmatch(location); sub != nil {
			if fn == "" {
				fn = "eval"
			}
			// Gecko never reports a column for eval frames.
			location, lineno, colno = sub[1], sub[2], ""
		}
	}

	if fn == "" {
		fn = unknownFunction
	}
	fn, location = extractSafariExtensionDetails(fn, location)
	return createFrame(location, fn, lineno, colno), true
}

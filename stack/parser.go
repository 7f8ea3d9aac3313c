// Package stack parses engine stack-trace text into normalized frames.
//
// Each supported engine grammar is an independent LineParser. A Parser
// composes a set of them by ascending priority; the first parser that
// matches a line wins and unmatched lines are dropped.
package stack

import (
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/pithecene-io/faultline/types"
)

const (
	// MaxFrames is the number of frames kept per stack, nearest the throw site.
	MaxFrames = 50
	// MaxLineLength is the longest raw line considered for parsing.
	// Longer lines are dropped; they are not stack frames in practice.
	MaxLineLength = 1024
	// UnknownFilename is used when no frame in the stack reported a filename.
	UnknownFilename = "<anonymous>"

	unknownFunction = types.UnknownFunction
)

var (
	// Error header lines such as "TypeError: x is undefined".
	errorHeaderRegex = regexp.MustCompile(`\S*Error: `)
	// Webpack wraps failing module frames in "(error: ...)".
	webpackErrorRegex = regexp.MustCompile(`\(error: (.*)\)`)
	// Minified React banners occupy the first stack line.
	minifiedReactRegex = regexp.MustCompile(`(?i)Minified React error #\d+;`)
	// SDK capture entry points, innermost.
	captureFrameRegex = regexp.MustCompile(`captureMessage|captureException`)
	// SDK callback wrapper, outermost.
	wrapperFrameRegex = regexp.MustCompile(`sentryWrapped`)
)

// LineParser turns one raw stack line into a frame.
type LineParser struct {
	// Name identifies the grammar in configuration.
	Name string
	// Priority orders parsers; lower values are tried first.
	Priority int
	// Parse returns false when the line does not match the grammar.
	Parse func(line string) (types.Frame, bool)
}

// Engine line parsers.
var (
	Opera10 = LineParser{Name: "opera10", Priority: 10, Parse: parseOpera10}
	Opera11 = LineParser{Name: "opera11", Priority: 20, Parse: parseOpera11}
	Chrome  = LineParser{Name: "chrome", Priority: 30, Parse: parseChrome}
	WinJS   = LineParser{Name: "winjs", Priority: 40, Parse: parseWinJS}
	Gecko   = LineParser{Name: "gecko", Priority: 50, Parse: parseGecko}
)

// DefaultParsers returns the parsers for current engines.
func DefaultParsers() []LineParser {
	return []LineParser{Chrome, Gecko}
}

// AllParsers returns every supported engine parser, legacy engines included.
func AllParsers() []LineParser {
	return []LineParser{Opera10, Opera11, Chrome, WinJS, Gecko}
}

// ParsersByName resolves configured parser names.
func ParsersByName(names []string) ([]LineParser, error) {
	if len(names) == 0 {
		return DefaultParsers(), nil
	}
	known := make(map[string]LineParser)
	for _, lp := range AllParsers() {
		known[lp.Name] = lp
	}
	out := make([]LineParser, 0, len(names))
	for _, name := range names {
		lp, ok := known[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, fmt.Errorf("unknown stack parser %q (must be chrome, gecko, winjs, opera10, or opera11)", name)
		}
		out = append(out, lp)
	}
	return out, nil
}

// Parser drives a priority-ordered set of line parsers over stack text.
// A Parser is immutable and safe for concurrent use.
type Parser struct {
	parsers []LineParser
}

// New creates a parser from the given line parsers.
// With no parsers, DefaultParsers is used.
func New(parsers ...LineParser) *Parser {
	if len(parsers) == 0 {
		parsers = DefaultParsers()
	}
	sorted := slices.Clone(parsers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority < sorted[j].Priority
	})
	return &Parser{parsers: sorted}
}

// Names returns the parser names in the order they are tried.
func (p *Parser) Names() []string {
	names := make([]string, len(p.parsers))
	for i, lp := range p.parsers {
		names[i] = lp.Name
	}
	return names
}

// Parse parses stack text into frames ordered outermost first.
//
// skipLines drops leading raw lines. popFrames drops that many frames
// nearest the throw site; popping more frames than exist yields an empty
// result. Parse never fails: unparseable lines are dropped.
func (p *Parser) Parse(text string, skipLines, popFrames int) []types.Frame {
	skipLines = max(skipLines, 0)
	popFrames = max(popFrames, 0)

	lines := strings.Split(text, "\n")
	frames := make([]types.Frame, 0)
	for i := skipLines; i < len(lines); i++ {
		line := lines[i]
		if len(line) > MaxLineLength {
			continue
		}
		if webpackErrorRegex.MatchString(line) {
			line = webpackErrorRegex.ReplaceAllString(line, "$1")
		}
		if errorHeaderRegex.MatchString(line) {
			continue
		}
		if frame, ok := p.parseLine(line); ok {
			frames = append(frames, frame)
		}
		if len(frames) >= MaxFrames+popFrames {
			break
		}
	}

	if popFrames >= len(frames) {
		return []types.Frame{}
	}
	return stripAndReverse(frames[popFrames:])
}

// ParseError parses the stack of an error value. The legacy stacktrace
// property is probed before stack, since touching stack first corrupts
// it on some engines.
func (p *Parser) ParseError(e *types.ErrorValue) []types.Frame {
	if e == nil {
		return []types.Frame{}
	}
	text := e.Stacktrace
	if text == "" {
		text = e.Stack
	}

	skipLines := 0
	if minifiedReactRegex.MatchString(e.MessageText()) {
		skipLines = 1
	}
	popFrames := 0
	if e.FramesToPop != nil {
		popFrames = *e.FramesToPop
	}
	return p.Parse(text, skipLines, popFrames)
}

// parseLine tries each parser in order. A panicking parser drops the line.
func (p *Parser) parseLine(line string) (frame types.Frame, ok bool) {
	defer func() {
		if recover() != nil {
			frame, ok = types.Frame{}, false
		}
	}()
	for _, lp := range p.parsers {
		if f, matched := lp.Parse(line); matched {
			return f, true
		}
	}
	return types.Frame{}, false
}

// stripAndReverse removes SDK-internal frames, reverses the stack to
// outermost-first order and keeps the MaxFrames frames nearest the throw site.
// Input frames are innermost first.
func stripAndReverse(frames []types.Frame) []types.Frame {
	if len(frames) == 0 {
		return []types.Frame{}
	}

	local := slices.Clone(frames)
	if wrapperFrameRegex.MatchString(local[len(local)-1].Function) {
		local = local[:len(local)-1]
	}

	slices.Reverse(local)

	for range 2 {
		if len(local) == 0 || !captureFrameRegex.MatchString(local[len(local)-1].Function) {
			break
		}
		local = local[:len(local)-1]
	}

	if len(local) > MaxFrames {
		local = local[len(local)-MaxFrames:]
	}

	fallback := UnknownFilename
	for i := len(local) - 1; i >= 0; i-- {
		if local[i].Filename != "" {
			fallback = local[i].Filename
			break
		}
	}
	for i := range local {
		if local[i].Filename == "" {
			local[i].Filename = fallback
		}
		if local[i].Function == "" {
			local[i].Function = unknownFunction
		}
	}
	return local
}

// createFrame builds a frame from regex captures. Empty or unparseable
// line and column captures leave the field absent.
func createFrame(filename, function, lineno, colno string) types.Frame {
	if function == "<anonymous>" {
		function = unknownFunction
	}
	return types.Frame{
		Filename: filename,
		Function: function,
		Lineno:   parsePosition(lineno),
		Colno:    parsePosition(colno),
		InApp:    true,
	}
}

func parsePosition(s string) *int {
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return nil
	}
	return &n
}

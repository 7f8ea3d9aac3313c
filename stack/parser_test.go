package stack

import (
	"fmt"
	"strings"
	"testing"

	"github.com/pithecene-io/faultline/types"
)

// frame builds an expected frame; negative positions mean absent.
func frame(filename, function string, lineno, colno int) types.Frame {
	f := types.Frame{Filename: filename, Function: function, InApp: true}
	if lineno >= 0 {
		f.Lineno = &lineno
	}
	if colno >= 0 {
		f.Colno = &colno
	}
	return f
}

func formatPos(p *int) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprint(*p)
}

func formatFrame(f types.Frame) string {
	return fmt.Sprintf("{%s %s %s:%s in_app=%v}", f.Filename, f.Function, formatPos(f.Lineno), formatPos(f.Colno), f.InApp)
}

func assertFrames(t *testing.T, got, want []types.Frame) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d frames, want %d\ngot:  %v", len(got), len(want), formatFrames(got))
	}
	for i := range want {
		if formatFrame(got[i]) != formatFrame(want[i]) {
			t.Errorf("frame[%d] = %s, want %s", i, formatFrame(got[i]), formatFrame(want[i]))
		}
	}
}

func formatFrames(frames []types.Frame) string {
	parts := make([]string, len(frames))
	for i, f := range frames {
		parts[i] = formatFrame(f)
	}
	return strings.Join(parts, ", ")
}

const chromeStack = `TypeError: Object #<Object> has no method 'undefinedMethod'
    at bar (http://path/to/file.js:13:17)
    at bar (http://path/to/file.js:16:5)
    at foo (http://path/to/file.js:20:5)
    at http://path/to/file.js:24:4`

func TestParse_Chrome(t *testing.T) {
	got := New().Parse(chromeStack, 0, 0)
	assertFrames(t, got, []types.Frame{
		frame("http://path/to/file.js", "?", 24, 4),
		frame("http://path/to/file.js", "foo", 20, 5),
		frame("http://path/to/file.js", "bar", 16, 5),
		frame("http://path/to/file.js", "bar", 13, 17),
	})
}

func TestParse_ChromeEval(t *testing.T) {
	text := `Error: message string
    at baz (eval at foo (eval at speak (http://localhost:8080/file.js:21:17)), <anonymous>:1:30)
    at foo (eval at speak (http://localhost:8080/file.js:21:17), <anonymous>:2:96)
    at eval (eval at speak (http://localhost:8080/file.js:21:17), <anonymous>:4:18)
    at Object.speak (http://localhost:8080/file.js:21:17)
    at http://localhost:8080/file.js:31:13`

	got := New().Parse(text, 0, 0)
	assertFrames(t, got, []types.Frame{
		frame("http://localhost:8080/file.js", "?", 31, 13),
		frame("http://localhost:8080/file.js", "Object.speak", 21, 17),
		frame("http://localhost:8080/file.js", "eval", 21, 17),
		frame("http://localhost:8080/file.js", "foo", 21, 17),
		frame("http://localhost:8080/file.js", "baz", 21, 17),
	})
}

func TestParse_ChromeLineShapes(t *testing.T) {
	tests := []struct {
		name string
		line string
		want types.Frame
	}{
		{
			name: "native",
			line: "    at Array.map (native)",
			want: frame("native", "Array.map", -1, -1),
		},
		{
			name: "async without function",
			line: "    at async http://localhost:3000/app.js:10:5",
			want: frame("http://localhost:3000/app.js", "?", 10, 5),
		},
		{
			name: "anonymous location",
			line: "    at <anonymous>:1:1",
			want: frame("<anonymous>", "?", 1, 1),
		},
		{
			name: "anonymous function",
			line: "    at <anonymous> (http://x/a.js:3:4)",
			want: frame("http://x/a.js", "?", 3, 4),
		},
		{
			name: "parenthesized path segment",
			line: "    at Page (http://localhost:3000/_next/static/chunks/app/(group)/page.js:1:2)",
			want: frame("http://localhost:3000/_next/static/chunks/app/(group)/page.js", "Page", 1, 2),
		},
		{
			name: "custom scheme",
			line: "    at render (webpack-internal:///./src/App.js:12:9)",
			want: frame("webpack-internal:///./src/App.js", "render", 12, 9),
		},
		{
			name: "chrome extension",
			line: "    at handler (chrome-extension://abcdef/content.js:5:1)",
			want: frame("chrome-extension://abcdef/content.js", "handler", 5, 1),
		},
		{
			name: "safari extension",
			line: "    at ClipperError@safari-extension:(//3284871F-A480-4FFC-8BC4-3F362C752446/2665fee0/commons.js:223036:10)",
			want: frame("safari-extension://3284871F-A480-4FFC-8BC4-3F362C752446/2665fee0/commons.js", "ClipperError", 223036, 10),
		},
		{
			name: "safari web extension",
			line: "    at classMethod@safari-web-extension:(//3284871F-A480-4FFC-8BC4-3F362C752446/2665fee0/content.js:2:7)",
			want: frame("safari-web-extension://3284871F-A480-4FFC-8BC4-3F362C752446/2665fee0/content.js", "classMethod", 2, 7),
		},
		{
			name: "data uri",
			line: "    at dynamicFn (data:application/javascript,export function dynamicFn() { throw new Error('x'); };:1:38)",
			want: frame("<data:application/javascript>", "dynamicFn", -1, -1),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseChrome(tt.line)
			if !ok {
				t.Fatalf("parseChrome(%q) did not match", tt.line)
			}
			if formatFrame(got) != formatFrame(tt.want) {
				t.Errorf("parseChrome() = %s, want %s", formatFrame(got), formatFrame(tt.want))
			}
		})
	}
}

func TestParse_Gecko(t *testing.T) {
	text := `foo@http://path/to/file.js:41:13
bar@http://path/to/file.js:1:1
.plugin/e.fn[c]/<@http://path/to/file.js:1:1
@http://path/to/file.js:1:1`

	got := New().Parse(text, 0, 0)
	assertFrames(t, got, []types.Frame{
		frame("http://path/to/file.js", "?", 1, 1),
		frame("http://path/to/file.js", ".plugin/e.fn[c]/<", 1, 1),
		frame("http://path/to/file.js", "bar", 1, 1),
		frame("http://path/to/file.js", "foo", 41, 13),
	})
}

func TestParse_GeckoEval(t *testing.T) {
	text := `@http://localhost:8080/file.js line 26 > eval line 2 > eval:1:1
@http://localhost:8080/file.js line 26 > eval:4:6
speak@http://localhost:8080/file.js:26:17
@http://localhost:8080/file.js:33:9`

	got := New().Parse(text, 0, 0)
	assertFrames(t, got, []types.Frame{
		frame("http://localhost:8080/file.js", "?", 33, 9),
		frame("http://localhost:8080/file.js", "speak", 26, 17),
		frame("http://localhost:8080/file.js", "eval", 26, -1),
		frame("http://localhost:8080/file.js", "eval", 26, -1),
	})
}

func TestParse_GeckoLineShapes(t *testing.T) {
	tests := []struct {
		name string
		line string
		want types.Frame
	}{
		{
			name: "native code",
			line: "forEach@[native code]",
			want: frame("[native code]", "forEach", -1, -1),
		},
		{
			name: "ram bundle",
			line: "onPress@index.android.bundle:3:1",
			want: frame("index.android.bundle", "onPress", 3, 1),
		},
		{
			name: "numbered chunk",
			line: "render@12.js:5:3",
			want: frame("12.js", "render", 5, 3),
		},
		{
			name: "absolute path",
			line: "loader@/usr/lib/app/main.js:7:2",
			want: frame("/usr/lib/app/main.js", "loader", 7, 2),
		},
		{
			name: "resource scheme",
			line: "init@resource://gre/modules/Foo.jsm:10:20",
			want: frame("resource://gre/modules/Foo.jsm", "init", 10, 20),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseGecko(tt.line)
			if !ok {
				t.Fatalf("parseGecko(%q) did not match", tt.line)
			}
			if formatFrame(got) != formatFrame(tt.want) {
				t.Errorf("parseGecko() = %s, want %s", formatFrame(got), formatFrame(tt.want))
			}
		})
	}
}

func TestParse_WinJS(t *testing.T) {
	text := `TypeError: Unable to get property 'undef' of undefined or null reference
   at Anonymous function (http://path/to/file.js:7:9)
   at foo (http://path/to/file.js:11:5)
   at Global code (ms-appx://f0f3ad25-6a5c-4e8c-9ba5-11ba10dd4a8c/js/default.js:14:1)`

	got := New(WinJS).Parse(text, 0, 0)
	assertFrames(t, got, []types.Frame{
		frame("ms-appx://f0f3ad25-6a5c-4e8c-9ba5-11ba10dd4a8c/js/default.js", "Global code", 14, 1),
		frame("http://path/to/file.js", "foo", 11, 5),
		frame("http://path/to/file.js", "Anonymous function", 7, 9),
	})
}

const opera10Stacktrace = `  Line 42 of linked script http://path/to/file.js
                this.undef();
  Line 27 of linked script http://path/to/file.js
            ex = ex || this.createException();
  Line 18 of linked script http://path/to/file.js: In function printStackTrace
        var p = new printStackTrace.implementation(), result = p.run(ex);
  Line 4 of inline#1 script in http://path/to/file.js: In function bar
             printTrace(printStackTrace());
  Line 7 of inline#1 script in http://path/to/file.js: In function bar
           bar(n - 1);
  Line 11 of inline#1 script in http://path/to/file.js: In function foo
           bar(1);
  Line 15 of inline#1 script in http://path/to/file.js
         foo();
`

const opera11Stacktrace = `Error thrown at line 42, column 12 in <anonymous function: createException>() in http://path/to/file.js:
    this.undef();
called from line 27, column 8 in <anonymous function: createException>(ex) in http://path/to/file.js:
    ex = ex || this.createException();
called from line 18, column 4 in printStackTrace(options) in http://path/to/file.js:
    var p = new printStackTrace.implementation(), result = p.run(ex);
called from line 4, column 5 in bar(n) in http://path/to/file.js:
    printTrace(printStackTrace());
called from line 7, column 4 in bar(n) in http://path/to/file.js:
    bar(n - 1);
called from line 11, column 4 in foo() in http://path/to/file.js:
    bar(1);
called from line 15, column 3 in http://path/to/file.js:
    foo();`

func TestParse_Opera10(t *testing.T) {
	got := New(AllParsers()...).Parse(opera10Stacktrace, 0, 0)
	const file = "http://path/to/file.js"
	assertFrames(t, got, []types.Frame{
		frame(file, "?", 15, -1),
		frame(file, "foo", 11, -1),
		frame(file, "bar", 7, -1),
		frame(file, "bar", 4, -1),
		frame(file, "printStackTrace", 18, -1),
		frame(file, "?", 27, -1),
		frame(file, "?", 42, -1),
	})
}

func TestParse_Opera11(t *testing.T) {
	got := New(AllParsers()...).Parse(opera11Stacktrace, 0, 0)
	const file = "http://path/to/file.js"
	assertFrames(t, got, []types.Frame{
		frame(file, "?", 15, 3),
		frame(file, "foo", 11, 4),
		frame(file, "bar", 7, 4),
		frame(file, "bar", 4, 5),
		frame(file, "printStackTrace", 18, 4),
		frame(file, "createException", 27, 8),
		frame(file, "createException", 42, 12),
	})
}

func TestParseError_PrefersLegacyStacktrace(t *testing.T) {
	e := &types.ErrorValue{
		Name:       "Error",
		Message:    "x",
		Stacktrace: opera11Stacktrace,
		Stack:      chromeStack,
	}

	got := New(AllParsers()...).ParseError(e)
	if len(got) != 7 {
		t.Fatalf("got %d frames, want 7 (legacy stacktrace)", len(got))
	}
	if got[6].Function != "createException" {
		t.Errorf("innermost function = %q, want createException", got[6].Function)
	}
}

func TestParseError_FallsBackToStack(t *testing.T) {
	e := &types.ErrorValue{Name: "TypeError", Message: "x", Stack: chromeStack}

	got := New().ParseError(e)
	if len(got) != 4 {
		t.Fatalf("got %d frames, want 4", len(got))
	}
}

func TestParseError_MinifiedReactSkipsBanner(t *testing.T) {
	banner := "Minified React error #31; visit https://reactjs.org/docs/error-decoder.html?invariant=31 for the full message"
	e := &types.ErrorValue{
		Name:    "Error",
		Message: banner,
		Stack:   banner + "\n    at render (http://x/app.js:5:9)",
	}

	got := New().ParseError(e)
	assertFrames(t, got, []types.Frame{
		frame("http://x/app.js", "render", 5, 9),
	})

	// Without the skip the banner parses as a bogus frame.
	if unskipped := New().Parse(e.Stack, 0, 0); len(unskipped) != 2 {
		t.Errorf("unskipped parse got %d frames, want 2", len(unskipped))
	}
}

func TestParseError_FramesToPop(t *testing.T) {
	pop := 1
	e := &types.ErrorValue{Name: "TypeError", Message: "x", Stack: chromeStack, FramesToPop: &pop}

	got := New().ParseError(e)
	assertFrames(t, got, []types.Frame{
		frame("http://path/to/file.js", "?", 24, 4),
		frame("http://path/to/file.js", "foo", 20, 5),
		frame("http://path/to/file.js", "bar", 16, 5),
	})
}

func TestParseError_Nil(t *testing.T) {
	if got := New().ParseError(nil); got == nil || len(got) != 0 {
		t.Errorf("ParseError(nil) = %v, want empty slice", got)
	}
}

func TestParse_PopFrames(t *testing.T) {
	p := New()
	full := p.Parse(chromeStack, 0, 0)

	for n := 0; n <= len(full)+2; n++ {
		got := p.Parse(chromeStack, 0, n)
		wantLen := max(len(full)-n, 0)
		if len(got) != wantLen {
			t.Errorf("pop %d: got %d frames, want %d", n, len(got), wantLen)
			continue
		}
		// Popping removes frames nearest the throw site only.
		for i := range got {
			if formatFrame(got[i]) != formatFrame(full[i]) {
				t.Errorf("pop %d: frame[%d] = %s, want %s", n, i, formatFrame(got[i]), formatFrame(full[i]))
			}
		}
	}

	if got := p.Parse(chromeStack, 0, -3); len(got) != len(full) {
		t.Errorf("negative pop: got %d frames, want %d", len(got), len(full))
	}
}

func TestParse_Reversal(t *testing.T) {
	text := "at bar (http://x/file.js:16:5)\nat foo (http://x/file.js:20:5)"

	got := New().Parse(text, 0, 0)
	assertFrames(t, got, []types.Frame{
		frame("http://x/file.js", "foo", 20, 5),
		frame("http://x/file.js", "bar", 16, 5),
	})
}

func TestParse_StripsSDKFrames(t *testing.T) {
	text := `Error: x
    at captureException (http://sdk/bundle.min.js:1:1)
    at foo (http://x/app.js:2:2)
    at sentryWrapped (http://sdk/bundle.min.js:3:3)`

	got := New().Parse(text, 0, 0)
	assertFrames(t, got, []types.Frame{
		frame("http://x/app.js", "foo", 2, 2),
	})
}

func TestParse_StripsNestedCaptureFrames(t *testing.T) {
	text := `    at captureMessage (http://sdk/a.js:1:1)
    at captureException (http://sdk/a.js:2:1)
    at captureMessage (http://sdk/a.js:3:1)
    at main (http://x/app.js:9:9)`

	got := New().Parse(text, 0, 0)
	// At most two capture frames are stripped.
	assertFrames(t, got, []types.Frame{
		frame("http://x/app.js", "main", 9, 9),
		frame("http://sdk/a.js", "captureMessage", 3, 1),
	})
}

func TestParse_FrameLimit(t *testing.T) {
	var b strings.Builder
	b.WriteString("Error: deep\n")
	for i := 1; i <= 80; i++ {
		fmt.Fprintf(&b, "    at fn%d (http://x/app.js:%d:1)\n", i, i)
	}

	got := New().Parse(b.String(), 0, 0)
	if len(got) != MaxFrames {
		t.Fatalf("got %d frames, want %d", len(got), MaxFrames)
	}
	// The frames nearest the throw site survive.
	if got[len(got)-1].Function != "fn1" {
		t.Errorf("innermost = %q, want fn1", got[len(got)-1].Function)
	}
	if got[0].Function != "fn50" {
		t.Errorf("outermost = %q, want fn50", got[0].Function)
	}

	popped := New().Parse(b.String(), 0, 5)
	if len(popped) != MaxFrames {
		t.Fatalf("pop 5: got %d frames, want %d", len(popped), MaxFrames)
	}
	if popped[len(popped)-1].Function != "fn6" {
		t.Errorf("pop 5: innermost = %q, want fn6", popped[len(popped)-1].Function)
	}
}

func TestParse_SkipLines(t *testing.T) {
	got := New().Parse(chromeStack, 2, 0)
	assertFrames(t, got, []types.Frame{
		frame("http://path/to/file.js", "?", 24, 4),
		frame("http://path/to/file.js", "foo", 20, 5),
		frame("http://path/to/file.js", "bar", 16, 5),
	})

	if got := New().Parse(chromeStack, 100, 0); len(got) != 0 {
		t.Errorf("skip past end: got %d frames, want 0", len(got))
	}
}

func TestParse_DropsOversizedLines(t *testing.T) {
	long := "    at huge (http://x/" + strings.Repeat("a", MaxLineLength) + ".js:1:1)"
	text := long + "\n    at small (http://x/b.js:2:2)"

	got := New().Parse(text, 0, 0)
	assertFrames(t, got, []types.Frame{
		frame("http://x/b.js", "small", 2, 2),
	})
}

func TestParse_WebpackErrorWrapper(t *testing.T) {
	got := New().Parse("    at foo (error: (http://x/a.js:1:1))", 0, 0)
	assertFrames(t, got, []types.Frame{
		frame("http://x/a.js", "foo", 1, 1),
	})
}

func TestParse_FillsMissingFilename(t *testing.T) {
	text := "    at foo (http://x/a.js:1:1)\n    at bar ()"

	got := New().Parse(text, 0, 0)
	assertFrames(t, got, []types.Frame{
		frame("http://x/a.js", "bar", -1, -1),
		frame("http://x/a.js", "foo", 1, 1),
	})
}

func TestParse_EmptyAndGarbage(t *testing.T) {
	tests := []string{"", "\n\n", "not a stack", "Error: only a header"}
	for _, text := range tests {
		got := New().Parse(text, 0, 0)
		if got == nil || len(got) != 0 {
			t.Errorf("Parse(%q) = %v, want empty slice", text, got)
		}
	}
}

func TestParse_PanickingParserDropsLine(t *testing.T) {
	boom := LineParser{Name: "boom", Priority: 1, Parse: func(line string) (types.Frame, bool) {
		if strings.Contains(line, "explode") {
			panic("bad line")
		}
		return types.Frame{}, false
	}}

	text := "    at explode (http://x/a.js:1:1)\n    at fine (http://x/b.js:2:2)"
	got := New(boom, Chrome).Parse(text, 0, 0)
	assertFrames(t, got, []types.Frame{
		frame("http://x/b.js", "fine", 2, 2),
	})
}

func TestParse_ReparseIsStable(t *testing.T) {
	p := New()
	first := p.Parse(chromeStack, 0, 0)

	// Re-serialize innermost first in the V8 grammar.
	var b strings.Builder
	for i := len(first) - 1; i >= 0; i-- {
		f := first[i]
		fmt.Fprintf(&b, "    at %s (%s:%d:%d)\n", f.Function, f.Filename, *f.Lineno, *f.Colno)
	}

	second := p.Parse(b.String(), 0, 0)
	assertFrames(t, second, first)
}

func TestNew_SortsByPriority(t *testing.T) {
	p := New(Gecko, WinJS, Opera10, Chrome, Opera11)
	want := []string{"opera10", "opera11", "chrome", "winjs", "gecko"}
	got := p.Names()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Names() = %v, want %v", got, want)
	}

	if got := New().Names(); strings.Join(got, ",") != "chrome,gecko" {
		t.Errorf("default Names() = %v, want [chrome gecko]", got)
	}
}

func TestParsersByName(t *testing.T) {
	got, err := ParsersByName([]string{"gecko", " Chrome "})
	if err != nil {
		t.Fatalf("ParsersByName() error = %v", err)
	}
	if len(got) != 2 || got[0].Name != "gecko" || got[1].Name != "chrome" {
		t.Errorf("ParsersByName() = %v, want [gecko chrome]", got)
	}

	defaults, err := ParsersByName(nil)
	if err != nil {
		t.Fatalf("ParsersByName(nil) error = %v", err)
	}
	if len(defaults) != 2 {
		t.Errorf("ParsersByName(nil) returned %d parsers, want 2", len(defaults))
	}

	if _, err := ParsersByName([]string{"netscape"}); err == nil {
		t.Error("expected error for unknown parser")
	}
}

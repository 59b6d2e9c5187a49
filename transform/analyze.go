package transform

import (
	"fmt"
	"regexp"

	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/parser"
)

// stmtSpan describes one top-level statement of a parsed function body, by
// byte offset into the original source.
type stmtSpan struct {
	start, end int
	isFuncDecl bool
}

// analysis is the result of parsing and inspecting a task body's source.
type analysis struct {
	source string

	// fnName is non-empty when the body's function literal was a named
	// declaration (function foo(x) {...}); the compiled program must then
	// be looked up by this name, since a declaration's completion value is
	// undefined.
	fnName string

	// paramName is the source text of the body function's first (receiver)
	// parameter, or "" if it has none.
	paramName string

	// bodyStart/bodyEnd are the byte offsets of the function body's '{' and
	// '}' characters (inclusive of braces).
	bodyStart, bodyEnd int

	stmts []stmtSpan

	qualifiedDelayCount int
	bareDelayCount      int
	diagnostics         []Diagnostic
}

var (
	lineCommentRe  = regexp.MustCompile(`//[^\n]*`)
	blockCommentRe = regexp.MustCompile(`(?s)/\*.*?\*/`)
	stringLiteralRe = regexp.MustCompile(`(?s)"(?:\\.|[^"\\])*"|'(?:\\.|[^'\\])*'|` + "`(?:\\\\.|[^`\\\\])*`")
)

// maskNonCode replaces the contents of string/template literals and
// comments with spaces (preserving length and newlines), so that a later
// regex scan for delay(...)/delayMs(...) call sites doesn't match text that
// merely looks like a call inside a literal or a comment. Regex literals
// are not specially handled; this is a best-effort heuristic, not a full
// lexer, consistent with spec.md's own allowance for a textual fallback.
func maskNonCode(src string) string {
	mask := func(re *regexp.Regexp, s string) string {
		return re.ReplaceAllStringFunc(s, func(m string) string {
			out := make([]byte, len(m))
			for i := 0; i < len(m); i++ {
				if m[i] == '\n' {
					out[i] = '\n'
				} else {
					out[i] = ' '
				}
			}
			return string(out)
		})
	}
	out := mask(blockCommentRe, src)
	out = mask(lineCommentRe, out)
	out = mask(stringLiteralRe, out)
	return out
}

var (
	bareDelayRe = regexp.MustCompile(`(^|[^.\w$])(delay|delayMs)\s*\(`)
)

func qualifiedDelayRe(param string) *regexp.Regexp {
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(param) + `\s*\.\s*(delay|delayMs)\s*\(`)
}

// analyze parses source, locates the body's function literal and its
// receiver parameter, and scans for delay/delayMs call sites.
func analyze(source string) (*analysis, error) {
	prog, err := parser.ParseFile(nil, "task.js", source, 0)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	var fnLit *ast.FunctionLiteral
	for _, stmt := range prog.Body {
		switch s := stmt.(type) {
		case *ast.FunctionDeclaration:
			fnLit = s.Function
		case *ast.ExpressionStatement:
			if f, ok := s.Expression.(*ast.FunctionLiteral); ok {
				fnLit = f
			}
		}
		if fnLit != nil {
			break
		}
	}
	if fnLit == nil {
		return nil, fmt.Errorf("no function literal found in task body")
	}

	a := &analysis{source: source}
	if fnLit.Name != nil {
		a.fnName = string(fnLit.Name.Name)
	}
	if fnLit.ParameterList != nil && len(fnLit.ParameterList.List) > 0 {
		if id, ok := fnLit.ParameterList.List[0].Target.(*ast.Identifier); ok {
			a.paramName = string(id.Name)
		}
	}
	if fnLit.Body != nil {
		a.bodyStart = int(fnLit.Body.LeftBrace) - 1
		a.bodyEnd = int(fnLit.Body.RightBrace) - 1
		for _, st := range fnLit.Body.List {
			_, isFn := st.(*ast.FunctionDeclaration)
			a.stmts = append(a.stmts, stmtSpan{
				start:      int(st.Idx0()) - 1,
				end:        int(st.Idx1()) - 1,
				isFuncDecl: isFn,
			})
		}
	} else {
		a.bodyStart = int(fnLit.Idx0()) - 1
		a.bodyEnd = int(fnLit.Idx1()) - 1
	}

	masked := maskNonCode(source)
	bodyText := masked[clampIdx(a.bodyStart, masked):clampIdx(a.bodyEnd, masked)]

	qualified := 0
	if a.paramName != "" {
		qualified = len(qualifiedDelayRe(a.paramName).FindAllStringIndex(bodyText, -1))
	}
	bare := len(bareDelayRe.FindAllStringIndex(bodyText, -1))
	if qualified > bare {
		bare = 0 // qualified matches also satisfy the looser bare pattern; avoid double counting
	} else {
		bare -= qualified
		if bare < 0 {
			bare = 0
		}
	}
	a.qualifiedDelayCount = qualified
	a.bareDelayCount = bare

	if qualified == 0 && bare > 0 {
		a.diagnostics = append(a.diagnostics, Diagnostic{
			Pos: a.bodyStart,
			Message: "bare delay(...)/delayMs(...) call is not qualified by the body's receiver " +
				"parameter; falling back to a single-shot, non-suspending body",
		})
	}

	return a, nil
}

func clampIdx(i int, s string) int {
	if i < 0 {
		return 0
	}
	if i > len(s) {
		return len(s)
	}
	return i
}

// isQualifiedDelayStatement reports whether the statement occupying
// source[start:end] is (modulo surrounding whitespace/semicolon) a bare
// expression-statement call to the receiver's delay/delayMs method -- such
// a statement is already a suspension point and must not additionally get
// a statement-level yield appended after it (spec.md §4.1 step 4: "not
// already a suspension point").
func isQualifiedDelayStatement(source string, start, end, srcLen int, param string) bool {
	if param == "" {
		return false
	}
	if start < 0 {
		start = 0
	}
	if end > srcLen {
		end = srcLen
	}
	if start >= end {
		return false
	}
	text := source[start:end]
	re := regexp.MustCompile(`^\s*` + regexp.QuoteMeta(param) + `\s*\.\s*(delay|delayMs)\s*\(`)
	return re.MatchString(text)
}

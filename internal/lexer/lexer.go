package lexer

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/funvibe/expect/internal/token"
)

const tabSize = 8

// Error is a tokenization failure: EOF inside a bracketed or continued
// statement, EOF inside a triple-quoted string, or an inconsistent dedent.
type Error struct {
	Msg string
	Pos token.Pos
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Pos.Row, e.Pos.Col, e.Msg)
}

// Lexer turns Python source into the token stream the standard library
// tokenizer would produce: NEWLINE only at the end of a logical line, NL for
// every other line break, INDENT/DEDENT bookkeeping, and comments kept as tokens.
// Input is consumed one physical line at a time.
type Lexer struct {
	lines []string

	line  []rune // current physical line
	lnum  int    // 1-based row of the current line
	pos   int    // current column in line
	max   int    // len(line)
	input string // current line as read, for token.Line

	parenlev  int
	continued bool
	indents   []int

	// continued string state
	contstr   []rune
	contline  string
	strstart  token.Pos
	quote     string // closing delimiter for the string being continued
	needcont  bool   // single-quoted string continued with a backslash
	lastLine  string
	tokens    []token.Token
	finalized bool
}

// New creates a lexer over src.
func New(src string) *Lexer {
	src = strings.TrimPrefix(src, "\ufeff")
	return &Lexer{
		lines:   splitLines(src),
		indents: []int{0},
	}
}

// Tokenize returns the complete token stream for src, ending in ENDMARKER.
func Tokenize(src string) ([]token.Token, error) {
	return New(src).All()
}

// All runs the lexer to completion.
func (l *Lexer) All() ([]token.Token, error) {
	for !l.finalized {
		if err := l.nextLine(); err != nil {
			return nil, err
		}
	}
	return l.tokens, nil
}

func splitLines(src string) []string {
	var lines []string
	for len(src) > 0 {
		i := strings.IndexByte(src, '\n')
		if i < 0 {
			lines = append(lines, src)
			break
		}
		lines = append(lines, src[:i+1])
		src = src[i+1:]
	}
	return lines
}

func (l *Lexer) emit(kind token.Kind, text string, start, end token.Pos, line string) {
	l.tokens = append(l.tokens, token.Token{Kind: kind, Text: text, Start: start, End: end, Line: line})
}

func (l *Lexer) readLine() (string, bool) {
	l.lnum++
	if l.lnum-1 >= len(l.lines) {
		return "", false
	}
	return l.lines[l.lnum-1], true
}

// nextLine tokenizes one physical line, or finalizes the stream at EOF.
func (l *Lexer) nextLine() error {
	input, ok := l.readLine()
	if ok {
		l.lastLine = input
	}
	l.input = input
	l.line = []rune(input)
	l.pos, l.max = 0, len(l.line)

	switch {
	case l.contstr != nil:
		if !ok {
			return &Error{Msg: "EOF in multi-line string", Pos: l.strstart}
		}
		if !l.continueString() {
			return nil
		}
	case l.parenlev == 0 && !l.continued:
		if !ok {
			l.finish()
			return nil
		}
		done, err := l.lineStart()
		if err != nil || done {
			return err
		}
	default:
		if !ok {
			return &Error{Msg: "EOF in multi-line statement", Pos: token.Pos{Row: l.lnum, Col: 0}}
		}
		l.continued = false
	}

	l.scanTokens()
	return nil
}

// continueString looks for the end of a string opened on an earlier row.
// It reports whether the rest of the line still needs tokenizing.
func (l *Lexer) continueString() bool {
	if end, found := l.findStringEnd(0); found {
		text := string(l.contstr) + string(l.line[:end])
		l.emit(token.STRING, text, l.strstart, token.Pos{Row: l.lnum, Col: end}, l.contline+l.input)
		l.pos = end
		l.contstr = nil
		l.contline = ""
		return true
	}
	if l.needcont && !strings.HasSuffix(l.input, "\\\n") && !strings.HasSuffix(l.input, "\\\r\n") {
		text := string(l.contstr) + l.input
		l.emit(token.ERRORTOKEN, text, l.strstart, token.Pos{Row: l.lnum, Col: l.max}, l.contline)
		l.contstr = nil
		l.contline = ""
		return false
	}
	l.contstr = append(l.contstr, l.line...)
	l.contline += l.input
	return false
}

// lineStart handles indentation, blank lines and comment-only lines at the
// start of a new statement. done is true when the line needs no more work.
func (l *Lexer) lineStart() (done bool, err error) {
	column := 0
measure:
	for l.pos < l.max {
		switch l.line[l.pos] {
		case ' ':
			column++
		case '\t':
			column = (column/tabSize + 1) * tabSize
		case '\f':
			column = 0
		default:
			break measure
		}
		l.pos++
	}
	if l.pos == l.max {
		// Whitespace-only last line without a line break. The line before
		// it ended in a line break, so no NEWLINE is implied.
		l.lastLine = ""
		l.finish()
		return true, nil
	}

	if ch := l.line[l.pos]; ch == '#' || ch == '\r' || ch == '\n' {
		if ch == '#' {
			comment := strings.TrimRight(string(l.line[l.pos:]), "\r\n")
			n := len([]rune(comment))
			l.emit(token.COMMENT, comment, token.Pos{Row: l.lnum, Col: l.pos}, token.Pos{Row: l.lnum, Col: l.pos + n}, l.input)
			l.pos += n
		}
		l.emit(token.NL, string(l.line[l.pos:]), token.Pos{Row: l.lnum, Col: l.pos}, token.Pos{Row: l.lnum, Col: l.max}, l.input)
		return true, nil
	}

	if column > l.indents[len(l.indents)-1] {
		l.indents = append(l.indents, column)
		l.emit(token.INDENT, string(l.line[:l.pos]), token.Pos{Row: l.lnum, Col: 0}, token.Pos{Row: l.lnum, Col: l.pos}, l.input)
	}
	for column < l.indents[len(l.indents)-1] {
		if !containsInt(l.indents, column) {
			return true, &Error{Msg: "unindent does not match any outer indentation level", Pos: token.Pos{Row: l.lnum, Col: l.pos}}
		}
		l.indents = l.indents[:len(l.indents)-1]
		at := token.Pos{Row: l.lnum, Col: l.pos}
		l.emit(token.DEDENT, "", at, at, l.input)
	}
	return false, nil
}

func (l *Lexer) scanTokens() {
	for l.pos < l.max {
		for l.pos < l.max && (l.line[l.pos] == ' ' || l.line[l.pos] == '\t' || l.line[l.pos] == '\f') {
			l.pos++
		}
		if l.pos >= l.max {
			return
		}

		start := l.pos
		ch := l.line[start]
		spos := token.Pos{Row: l.lnum, Col: start}

		switch {
		case ch == '\r' || ch == '\n':
			text := string(l.line[start:])
			kind := token.NEWLINE
			if l.parenlev > 0 {
				kind = token.NL
			}
			l.emit(kind, text, spos, token.Pos{Row: l.lnum, Col: l.max}, l.input)
			l.pos = l.max
		case ch == '#':
			comment := strings.TrimRight(string(l.line[start:]), "\r\n")
			end := start + len([]rune(comment))
			l.emit(token.COMMENT, comment, spos, token.Pos{Row: l.lnum, Col: end}, l.input)
			l.pos = end
		case ch == '\\':
			rest := string(l.line[start:])
			if rest == "\\\n" || rest == "\\\r\n" {
				l.continued = true
				l.pos = l.max
				return
			}
			l.errorToken()
		case isDigit(ch) || (ch == '.' && isDigit(l.peekChar())):
			end := l.readNumber()
			l.emit(token.NUMBER, string(l.line[start:end]), spos, token.Pos{Row: l.lnum, Col: end}, l.input)
			l.pos = end
		case l.stringPrefixLen() >= 0:
			if !l.readString() {
				return
			}
		case isLetter(ch):
			end := l.readIdentifier()
			l.emit(token.NAME, string(l.line[start:end]), spos, token.Pos{Row: l.lnum, Col: end}, l.input)
			l.pos = end
		default:
			n := l.operatorLen()
			if n == 0 {
				l.errorToken()
				continue
			}
			op := string(l.line[start : start+n])
			switch op {
			case "(", "[", "{":
				l.parenlev++
			case ")", "]", "}":
				l.parenlev--
			}
			l.emit(token.OP, op, spos, token.Pos{Row: l.lnum, Col: start + n}, l.input)
			l.pos = start + n
		}
	}
}

func (l *Lexer) errorToken() {
	spos := token.Pos{Row: l.lnum, Col: l.pos}
	l.emit(token.ERRORTOKEN, string(l.line[l.pos]), spos, spos.Shift(1), l.input)
	l.pos++
}

// stringPrefixLen returns the length of the string prefix (r, b, f, u, rb, ...)
// before a quote at the current position, or -1 when no string starts here.
func (l *Lexer) stringPrefixLen() int {
	for n := 0; n <= 2 && l.pos+n < l.max; n++ {
		ch := l.line[l.pos+n]
		if ch == '\'' || ch == '"' {
			if validPrefix(string(l.line[l.pos : l.pos+n])) {
				return n
			}
			return -1
		}
		if !strings.ContainsRune("rRbBuUfF", ch) {
			return -1
		}
	}
	return -1
}

func validPrefix(p string) bool {
	switch strings.ToLower(p) {
	case "", "r", "u", "b", "f", "br", "rb", "fr", "rf":
		return true
	}
	return false
}

// readString scans a string literal starting at l.pos. It reports false when
// the literal continues on the next row, which ends tokenization of this line.
func (l *Lexer) readString() bool {
	start := l.pos
	spos := token.Pos{Row: l.lnum, Col: start}
	qpos := start + l.stringPrefixLen()
	q := l.line[qpos]

	if qpos+2 < l.max && l.line[qpos+1] == q && l.line[qpos+2] == q {
		l.quote = strings.Repeat(string(q), 3)
		l.needcont = false
		if end, found := l.findStringEnd(qpos + 3); found {
			l.emit(token.STRING, string(l.line[start:end]), spos, token.Pos{Row: l.lnum, Col: end}, l.input)
			l.pos = end
			return true
		}
		l.beginContinuedString(start)
		return false
	}

	l.quote = string(q)
	l.needcont = true
	if end, found := l.findStringEnd(qpos + 1); found {
		l.emit(token.STRING, string(l.line[start:end]), spos, token.Pos{Row: l.lnum, Col: end}, l.input)
		l.pos = end
		return true
	}
	if strings.HasSuffix(l.input, "\\\n") || strings.HasSuffix(l.input, "\\\r\n") {
		l.beginContinuedString(start)
		return false
	}
	// Unterminated single-quoted literal: report the quote and keep going.
	l.pos = start
	end := l.readIdentifier()
	if end > start {
		l.emit(token.NAME, string(l.line[start:end]), spos, token.Pos{Row: l.lnum, Col: end}, l.input)
		l.pos = end
	}
	l.errorToken()
	return true
}

func (l *Lexer) beginContinuedString(start int) {
	l.strstart = token.Pos{Row: l.lnum, Col: start}
	l.contstr = append([]rune{}, l.line[start:]...)
	l.contline = l.input
	l.pos = l.max
}

// findStringEnd searches the current line from i for l.quote, honouring
// backslash escapes, and returns the column just past the closing delimiter.
func (l *Lexer) findStringEnd(i int) (int, bool) {
	delim := []rune(l.quote)
	for i < l.max {
		ch := l.line[i]
		if ch == '\\' {
			i += 2
			continue
		}
		if len(delim) == 1 && (ch == '\n' || ch == '\r') {
			return 0, false
		}
		if ch == delim[0] && i+len(delim) <= l.max && string(l.line[i:i+len(delim)]) == l.quote {
			return i + len(delim), true
		}
		i++
	}
	return 0, false
}

func (l *Lexer) readIdentifier() int {
	i := l.pos
	for i < l.max && (isLetter(l.line[i]) || isDigit(l.line[i]) || (l.line[i] >= 0x80 && unicode.IsDigit(l.line[i]))) {
		i++
	}
	return i
}

// readNumber returns the end column of the numeric literal at l.pos. It is
// permissive about digit grouping; the compiler rejects malformed literals.
func (l *Lexer) readNumber() int {
	i := l.pos
	at := func(j int) rune {
		if j < l.max {
			return l.line[j]
		}
		return 0
	}

	if at(i) == '0' && strings.ContainsRune("xXoObB", at(i+1)) {
		i += 2
		for isHexDigit(at(i)) || at(i) == '_' {
			i++
		}
		return i
	}

	for isDigit(at(i)) || at(i) == '_' {
		i++
	}
	if at(i) == '.' {
		i++
		for isDigit(at(i)) || at(i) == '_' {
			i++
		}
	}
	if c := at(i); c == 'e' || c == 'E' {
		j := i + 1
		if at(j) == '+' || at(j) == '-' {
			j++
		}
		if isDigit(at(j)) {
			i = j
			for isDigit(at(i)) || at(i) == '_' {
				i++
			}
		}
	}
	if c := at(i); c == 'j' || c == 'J' {
		i++
	}
	return i
}

var operators = []string{
	"**=", "//=", ">>=", "<<=", "...",
	"**", "//", ">>", "<<", "<=", ">=", "==", "!=", "->", ":=",
	"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "@=",
}

// operatorLen returns the width of the longest operator at l.pos, or 0.
func (l *Lexer) operatorLen() int {
	rest := l.line[l.pos:]
	for _, op := range operators {
		if len(rest) >= len(op) && string(rest[:len(op)]) == op {
			return len(op)
		}
	}
	if strings.ContainsRune("+-*/%@&|^~<>()[]{},:;.=", rest[0]) {
		return 1
	}
	return 0
}

// finish emits the implicit trailing NEWLINE, closing DEDENTs and ENDMARKER.
func (l *Lexer) finish() {
	last := l.lastLine
	if last != "" && !strings.HasSuffix(last, "\n") && !strings.HasSuffix(last, "\r") &&
		!strings.HasPrefix(strings.TrimSpace(last), "#") {
		n := len([]rune(last))
		l.emit(token.NEWLINE, "", token.Pos{Row: l.lnum - 1, Col: n}, token.Pos{Row: l.lnum - 1, Col: n + 1}, "")
	}
	at := token.Pos{Row: l.lnum, Col: 0}
	for range l.indents[1:] {
		l.emit(token.DEDENT, "", at, at, "")
	}
	l.indents = l.indents[:1]
	l.emit(token.ENDMARKER, "", at, at, "")
	l.finalized = true
}

func containsInt(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

func isHexDigit(ch rune) bool {
	return isDigit(ch) || ('a' <= ch && ch <= 'f') || ('A' <= ch && ch <= 'F')
}

func isLetter(ch rune) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_' || (ch >= 0x80 && unicode.IsLetter(ch))
}

func isDigit(ch rune) bool {
	return '0' <= ch && ch <= '9'
}

func (l *Lexer) peekChar() rune {
	if l.pos+1 >= l.max {
		return 0
	}
	return l.line[l.pos+1]
}

package pylit

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jmball/go-m1k/internal/queue"
)

// token represents a tokenized text string that the lexer identified.
type token struct {
	typ tokenType // token type
	val string    // tokenized text
}

type tokenType int

const (
	tokenTypeEOF    tokenType = iota // EOF
	tokenTypeError                   // lexing error
	tokenTypeNumber                  // decimal or floating-point number including scientific notation
	tokenTypeString                  // string enclosed with single or double quotes
	tokenTypeName                    // bare name: True, False or None
	tokenTypeLeftBracket             // '['
	tokenTypeRightBracket            // ']'
	tokenTypeLeftBrace               // '{'
	tokenTypeRightBrace              // '}'
	tokenTypeLeftParen               // '('
	tokenTypeRightParen              // ')'
	tokenTypeComma                   // ','
	tokenTypeColon                   // ':'
)

const eof = rune(-1)

// stateFn represents the state of the lexer as a function that returns the next state.
type stateFn func(*lexer) stateFn

// lexer represents the state of the lexical scanner.
type lexer struct {
	input  string  // input string being lexed
	state  stateFn // next lexing state function to enter
	pos    int     // current position in the input
	start  int     // start position of a token being lexed in input string
	width  int     // width of last rune read from input
	tokens queue.Queue // the queue of scanned tokens
}

func newLexer(input string) *lexer {
	return &lexer{
		input:  input,
		state:  lexValue,
		tokens: queue.NewSliceQueue(2),
	}
}

// next returns the next rune in the input and moves the position.
func (l *lexer) next() (r rune) {
	if l.pos >= len(l.input) {
		l.width = 0
		return eof
	}

	r, l.width = utf8.DecodeRuneInString(l.input[l.pos:])
	l.pos += l.width
	return r
}

// backup steps back one rune; can be called only once per call of next.
func (l *lexer) backup() {
	l.pos -= l.width
}

// peek returns but does not consume the next rune in the input.
func (l *lexer) peek() rune {
	r := l.next()
	l.backup()
	return r
}

// ignore skips over the pending input before this point.
func (l *lexer) ignore() {
	l.start = l.pos
}

// emit reports the current token back to the token queue.
func (l *lexer) emit(typ tokenType) {
	l.tokens.Enqueue(&token{typ: typ, val: l.input[l.start:l.pos]})
	l.start = l.pos
}

// errorf reports a lexing error token with the formatted message.
func (l *lexer) errorf(format string, args ...any) stateFn {
	l.tokens.Enqueue(&token{typ: tokenTypeError, val: fmt.Sprintf(format, args...)})
	return nil
}

// nextToken runs the state machine until the next token is available.
func (l *lexer) nextToken() *token {
	for l.tokens.IsEmpty() && l.state != nil {
		l.state = l.state(l)
	}
	if t, ok := l.tokens.Dequeue().(*token); ok {
		return t
	}
	return &token{typ: tokenTypeEOF}
}

// lexValue is the top-level lexing state; it dispatches on the next rune.
func lexValue(l *lexer) stateFn {
	for {
		r := l.next()
		switch {
		case r == eof:
			l.emit(tokenTypeEOF)
			return nil
		case unicode.IsSpace(r):
			l.ignore()
		case r == '[':
			l.emit(tokenTypeLeftBracket)
		case r == ']':
			l.emit(tokenTypeRightBracket)
		case r == '{':
			l.emit(tokenTypeLeftBrace)
		case r == '}':
			l.emit(tokenTypeRightBrace)
		case r == '(':
			l.emit(tokenTypeLeftParen)
		case r == ')':
			l.emit(tokenTypeRightParen)
		case r == ',':
			l.emit(tokenTypeComma)
		case r == ':':
			l.emit(tokenTypeColon)
		case r == '\'' || r == '"':
			return lexString(r)
		case r == '-' || r == '+' || ('0' <= r && r <= '9'):
			l.backup()
			return lexNumber
		case unicode.IsLetter(r):
			l.backup()
			return lexName
		default:
			return l.errorf("unexpected character %q at offset %d", r, l.pos-l.width)
		}
	}
}

// lexString scans a quoted string with the given quote rune, handling
// backslash escapes.
func lexString(quote rune) stateFn {
	return func(l *lexer) stateFn {
		for {
			switch r := l.next(); r {
			case eof:
				return l.errorf("unterminated string literal")
			case '\\':
				if l.next() == eof {
					return l.errorf("unterminated string literal")
				}
			case quote:
				l.emit(tokenTypeString)
				return lexValue
			}
		}
	}
}

// lexNumber scans an integer or floating-point number, including scientific
// notation.
func lexNumber(l *lexer) stateFn {
	if r := l.peek(); r == '-' || r == '+' {
		l.next()
	}

	digits := "0123456789"
	l.acceptRun(digits)
	if l.accept(".") {
		l.acceptRun(digits)
	}
	if l.accept("eE") {
		l.accept("+-")
		l.acceptRun(digits)
	}

	val := l.input[l.start:l.pos]
	if !validNumber(val) {
		return l.errorf("invalid number literal %q", val)
	}

	l.emit(tokenTypeNumber)
	return lexValue
}

// lexName scans a bare name such as True, False or None.
func lexName(l *lexer) stateFn {
	for {
		r := l.next()
		if r == eof || !unicode.IsLetter(r) {
			l.backup()
			break
		}
	}
	l.emit(tokenTypeName)
	return lexValue
}

// accept consumes the next rune if it's from the valid set.
func (l *lexer) accept(valid string) bool {
	if strings.ContainsRune(valid, l.next()) {
		return true
	}
	l.backup()
	return false
}

// acceptRun consumes a run of runes from the valid set.
func (l *lexer) acceptRun(valid string) {
	for strings.ContainsRune(valid, l.next()) {
	}
	l.backup()
}

// validNumber reports whether val contains at least one digit and is not a
// bare sign or exponent fragment.
func validNumber(val string) bool {
	return strings.ContainsAny(val, "0123456789")
}

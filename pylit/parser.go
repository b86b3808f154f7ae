package pylit

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// List is the decoded form of a list or tuple literal.
type List = []any

// Dict is the decoded form of a dict literal.
type Dict = map[any]any

// ErrEmptyInput indicates that Parse was called with an empty or blank string.
var ErrEmptyInput = errors.New("empty input")

// maxNestingDepth bounds the nesting of collection literals to keep a
// malformed reply from exhausting the stack.
const maxNestingDepth = 64

// Parse decodes a single literal value from input.
//
// It returns one of: nil, bool, int64, float64, string, List or Dict.
// Trailing content after the first complete value is an error.
func Parse(input string) (any, error) {
	if strings.TrimSpace(input) == "" {
		return nil, ErrEmptyInput
	}

	p := &parser{lex: newLexer(input)}

	val, err := p.parseValue(0)
	if err != nil {
		return nil, err
	}

	if tok := p.next(); tok.typ != tokenTypeEOF {
		return nil, fmt.Errorf("unexpected trailing token %q", tok.val)
	}

	return val, nil
}

// parser consumes tokens from the lexer and builds the decoded value.
type parser struct {
	lex    *lexer
	peeked *token
}

// next returns the next token, consuming it.
func (p *parser) next() *token {
	if p.peeked != nil {
		tok := p.peeked
		p.peeked = nil
		return tok
	}
	return p.lex.nextToken()
}

// peek returns the next token without consuming it.
func (p *parser) peek() *token {
	if p.peeked == nil {
		p.peeked = p.lex.nextToken()
	}
	return p.peeked
}

func (p *parser) parseValue(depth int) (any, error) {
	if depth > maxNestingDepth {
		return nil, fmt.Errorf("literal nesting exceeds %d levels", maxNestingDepth)
	}

	tok := p.next()
	switch tok.typ {
	case tokenTypeError:
		return nil, errors.New(tok.val)

	case tokenTypeEOF:
		return nil, errors.New("unexpected end of input")

	case tokenTypeNumber:
		return parseNumber(tok.val)

	case tokenTypeString:
		return unquoteString(tok.val)

	case tokenTypeName:
		switch tok.val {
		case "True":
			return true, nil
		case "False":
			return false, nil
		case "None":
			return nil, nil
		default:
			return nil, fmt.Errorf("unknown name %q", tok.val)
		}

	case tokenTypeLeftBracket:
		return p.parseSequence(depth, tokenTypeRightBracket)

	case tokenTypeLeftParen:
		return p.parseSequence(depth, tokenTypeRightParen)

	case tokenTypeLeftBrace:
		return p.parseDict(depth)

	default:
		return nil, fmt.Errorf("unexpected token %q", tok.val)
	}
}

// parseSequence parses the elements of a list or tuple literal up to the
// given closing token. The opening token has already been consumed.
func (p *parser) parseSequence(depth int, closing tokenType) (List, error) {
	seq := List{}

	if p.peek().typ == closing {
		p.next()
		return seq, nil
	}

	for {
		val, err := p.parseValue(depth + 1)
		if err != nil {
			return nil, err
		}
		seq = append(seq, val)

		tok := p.next()
		switch tok.typ {
		case closing:
			return seq, nil
		case tokenTypeComma:
			// python allows a trailing comma before the closing token
			if p.peek().typ == closing {
				p.next()
				return seq, nil
			}
		default:
			return nil, fmt.Errorf("expected ',' in sequence, got %q", tok.val)
		}
	}
}

// parseDict parses the entries of a dict literal. The opening brace has
// already been consumed.
func (p *parser) parseDict(depth int) (Dict, error) {
	dict := Dict{}

	if p.peek().typ == tokenTypeRightBrace {
		p.next()
		return dict, nil
	}

	for {
		key, err := p.parseValue(depth + 1)
		if err != nil {
			return nil, err
		}

		switch key.(type) {
		case int64, float64, string, bool, nil:
		default:
			return nil, fmt.Errorf("unhashable dict key of type %T", key)
		}

		if tok := p.next(); tok.typ != tokenTypeColon {
			return nil, fmt.Errorf("expected ':' after dict key, got %q", tok.val)
		}

		val, err := p.parseValue(depth + 1)
		if err != nil {
			return nil, err
		}
		dict[key] = val

		tok := p.next()
		switch tok.typ {
		case tokenTypeRightBrace:
			return dict, nil
		case tokenTypeComma:
			if p.peek().typ == tokenTypeRightBrace {
				p.next()
				return dict, nil
			}
		default:
			return nil, fmt.Errorf("expected ',' in dict, got %q", tok.val)
		}
	}
}

// parseNumber decodes a numeric literal, preferring int64 when the literal
// has no fractional or exponent part.
func parseNumber(val string) (any, error) {
	if !strings.ContainsAny(val, ".eE") {
		i, err := strconv.ParseInt(val, 10, 64)
		if err == nil {
			return i, nil
		}
	}

	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number literal %q", val)
	}
	return f, nil
}

// unquoteString strips the surrounding quotes and resolves backslash escapes.
func unquoteString(val string) (string, error) {
	if len(val) < 2 {
		return "", fmt.Errorf("invalid string literal %q", val)
	}
	body := val[1 : len(val)-1]

	if !strings.ContainsRune(body, '\\') {
		return body, nil
	}

	var sb strings.Builder
	sb.Grow(len(body))
	escaped := false
	for _, r := range body {
		if !escaped {
			if r == '\\' {
				escaped = true
				continue
			}
			sb.WriteRune(r)
			continue
		}

		escaped = false
		switch r {
		case 'n':
			sb.WriteRune('\n')
		case 't':
			sb.WriteRune('\t')
		case 'r':
			sb.WriteRune('\r')
		case '\\', '\'', '"':
			sb.WriteRune(r)
		default:
			return "", fmt.Errorf("unsupported escape sequence \\%c", r)
		}
	}
	if escaped {
		return "", fmt.Errorf("invalid string literal %q", val)
	}

	return sb.String(), nil
}

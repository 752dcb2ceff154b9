package parse

import (
	"tlog.app/go/errors"

	"github.com/minicc/minicc/compiler/ast"
	"github.com/minicc/minicc/compiler/tp"
)

type (
	tkind uint8

	token struct {
		kind tkind
		text string
		pos  ast.Pos

		// number payload, typed by the matrix in number.go
		ival  uint64
		fval  float64
		float bool
		typ   tp.ID
	}
)

const (
	tEOF tkind = iota
	tIdent
	tKeyword
	tNumber
	tPunct
)

var keywords = map[string]bool{
	"void": true, "char": true, "short": true, "int": true, "long": true,
	"signed": true, "unsigned": true, "float": true, "double": true,
	"if": true, "else": true, "while": true, "do": true, "for": true,
	"switch": true, "case": true, "default": true,
	"break": true, "continue": true, "goto": true, "return": true,
	"sizeof": true, "extern": true, "static": true,
	"inline": true, "_Noreturn": true,
}

// two-char puncts checked before single chars
var puncts2 = []string{"&&", "||", "==", "!=", "<=", ">=", "<<", ">>", "++", "--"}

func tokenize(b []byte) (toks []token, err error) {
	line, col := 1, 1
	i := 0

	step := func(n int) {
		for j := 0; j < n; j++ {
			if b[i] == '\n' {
				line++
				col = 1
			} else {
				col++
			}
			i++
		}
	}

	for i < len(b) {
		c := b[i]

		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			step(1)
			continue
		case c == '/' && i+1 < len(b) && b[i+1] == '/':
			for i < len(b) && b[i] != '\n' {
				step(1)
			}
			continue
		case c == '/' && i+1 < len(b) && b[i+1] == '*':
			step(2)
			for i+1 < len(b) && !(b[i] == '*' && b[i+1] == '/') {
				step(1)
			}
			if i+1 >= len(b) {
				return nil, errors.New("%d:%d: unterminated comment", line, col)
			}
			step(2)
			continue
		}

		pos := ast.Pos{Line: line, Col: col}

		switch {
		case isDigit(c) || c == '.' && i+1 < len(b) && isDigit(b[i+1]):
			tk, n, err := scanNumber(b[i:])
			if err != nil {
				return nil, errors.Wrap(err, "%d:%d", line, col)
			}

			tk.pos = pos
			toks = append(toks, tk)
			step(n)
		case isIdent0(c):
			st := i
			for i < len(b) && isIdent(b[i]) {
				step(1)
			}

			text := string(b[st:i])
			kind := tIdent
			if keywords[text] {
				kind = tKeyword
			}

			toks = append(toks, token{kind: kind, text: text, pos: pos})
		default:
			if i+1 < len(b) {
				two := string(b[i : i+2])

				matched := false
				for _, p := range puncts2 {
					if two == p {
						toks = append(toks, token{kind: tPunct, text: two, pos: pos})
						step(2)
						matched = true
						break
					}
				}

				if matched {
					continue
				}
			}

			switch c {
			case '(', ')', '{', '}', '[', ']', ';', ',', '?', ':',
				'+', '-', '*', '/', '%', '&', '|', '^', '~', '!', '<', '>', '=':
				toks = append(toks, token{kind: tPunct, text: string(c), pos: pos})
				step(1)
			case '.':
				if i+2 < len(b) && b[i+1] == '.' && b[i+2] == '.' {
					toks = append(toks, token{kind: tPunct, text: "...", pos: pos})
					step(3)
					break
				}

				return nil, errors.New("%d:%d: unexpected character %q", line, col, c)
			default:
				return nil, errors.New("%d:%d: unexpected character %q", line, col, c)
			}
		}
	}

	toks = append(toks, token{kind: tEOF, pos: ast.Pos{Line: line, Col: col}})

	return toks, nil
}

func isDigit(c byte) bool  { return c >= '0' && c <= '9' }
func isIdent0(c byte) bool { return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' }
func isIdent(c byte) bool  { return isIdent0(c) || isDigit(c) }

package diag

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/minicc/minicc/compiler/ast"
)

type (
	Kind uint8

	Diag struct {
		Kind Kind
		Pos  ast.Pos
		Msg  string

		HasPos bool
	}

	// List accumulates static errors. Compilation keeps going to
	// collect more, but any recorded diagnostic suppresses emission.
	List struct {
		File string
		d    []Diag
	}
)

const (
	Syntax Kind = iota
	LvalueRequired
	OperatorMisuse
	DuplicateCase
	UnresolvedLabel
	ZeroDivide
	TypeMismatch
	Redefined
	Undeclared
)

var kindName = map[Kind]string{
	Syntax:          "syntax error",
	LvalueRequired:  "lvalue required",
	OperatorMisuse:  "operator misuse",
	DuplicateCase:   "duplicate case",
	UnresolvedLabel: "unresolved label",
	ZeroDivide:      "zero divide in constant expression",
	TypeMismatch:    "type mismatch",
	Redefined:       "redefined",
	Undeclared:      "undeclared",
}

func (k Kind) String() string { return kindName[k] }

func (l *List) Add(k Kind, pos ast.Pos, format string, args ...any) {
	l.d = append(l.d, Diag{
		Kind:   k,
		Pos:    pos,
		Msg:    fmt.Sprintf(format, args...),
		HasPos: true,
	})
}

// AddGlobal records a diagnostic with no source location.
func (l *List) AddGlobal(k Kind, format string, args ...any) {
	l.d = append(l.d, Diag{
		Kind: k,
		Msg:  fmt.Sprintf(format, args...),
	})
}

func (l *List) Len() int     { return len(l.d) }
func (l *List) Empty() bool  { return len(l.d) == 0 }
func (l *List) All() []Diag  { return l.d }

// Err returns the first diagnostic as an error, nil if the list is empty.
func (l *List) Err() error {
	if len(l.d) == 0 {
		return nil
	}

	return l.d[0]
}

func (d Diag) Error() string {
	if d.HasPos {
		return fmt.Sprintf("%d:%d: %s: %s", d.Pos.Line, d.Pos.Col, d.Kind, d.Msg)
	}

	return fmt.Sprintf("%s: %s", d.Kind, d.Msg)
}

var (
	errColor = color.New(color.FgRed, color.Bold)
	posColor = color.New(color.FgCyan)
)

// Print writes every collected diagnostic to w, colored when w is a
// terminal (fatih/color handles the detection).
func (l *List) Print(w io.Writer) {
	for _, d := range l.d {
		if l.File != "" && d.HasPos {
			posColor.Fprintf(w, "%s:%d:%d: ", l.File, d.Pos.Line, d.Pos.Col)
		} else if l.File != "" {
			posColor.Fprintf(w, "%s: ", l.File)
		}

		errColor.Fprintf(w, "%s", d.Kind)
		fmt.Fprintf(w, ": %s\n", d.Msg)
	}
}

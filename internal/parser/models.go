package parser

import (
	"errors"
	"fmt"
)

// Validation errors returned by the parsers. Callers match them with errors.Is.
var (
	ErrEmptyInput  = errors.New("input contains no numeric data")
	ErrColumnCount = errors.New("unexpected number of columns")
	ErrNonFinite   = errors.New("value is not finite")
)

// ParseError records where in a file a value could not be read.
type ParseError struct {
	Path  string // May be empty when parsing from a reader
	Line  int    // 1-based
	Field int    // 1-based column on the line, 0 if the whole line is at fault
	Err   error
}

func (e *ParseError) Error() string {
	loc := fmt.Sprintf("line %d", e.Line)
	if e.Field > 0 {
		loc = fmt.Sprintf("line %d, field %d", e.Line, e.Field)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %v", e.Path, loc, e.Err)
	}
	return fmt.Sprintf("%s: %v", loc, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// BondPES holds a bond potential energy curve.
// R is the bond length in angstroms, E the bond energy in eV; both have the same length.
type BondPES struct {
	R []float64
	E []float64
}

// Len returns the number of (r, E) rows.
func (p *BondPES) Len() int {
	if p == nil {
		return 0
	}
	return len(p.R)
}

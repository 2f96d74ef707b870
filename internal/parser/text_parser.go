package parser

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// scanLines calls fn for every non-blank line of r with comments stripped.
// A '#' starts a comment that runs to the end of the line.
func scanLines(r io.Reader, fn func(lineNo int, fields []string) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024) // long single-line dumps happen
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = line[:idx]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if err := fn(lineNo, fields); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// ReadFloats reads every whitespace-separated float in r, ignoring line structure.
func ReadFloats(r io.Reader) ([]float64, error) {
	var values []float64
	err := scanLines(r, func(lineNo int, fields []string) error {
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return &ParseError{Line: lineNo, Field: i + 1, Err: err}
			}
			values = append(values, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, ErrEmptyInput
	}
	return values, nil
}

// ParseEnergyGrid reads the flat numeric contents of an energy surface file.
// The values are returned in file order; shaping them is left to the analysis package.
func ParseEnergyGrid(filepath string) ([]float64, error) {
	file, err := os.Open(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to open energy grid file: %w", err)
	}
	defer file.Close()

	values, err := ReadFloats(file)
	if err != nil {
		return nil, withPath(filepath, err)
	}
	return values, nil
}

// ReadBondPES reads two-column (bond length, bond energy) rows.
func ReadBondPES(r io.Reader) (*BondPES, error) {
	pes := &BondPES{}
	err := scanLines(r, func(lineNo int, fields []string) error {
		if len(fields) != 2 {
			return &ParseError{Line: lineNo, Err: fmt.Errorf("%w: want 2, got %d", ErrColumnCount, len(fields))}
		}
		var row [2]float64
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return &ParseError{Line: lineNo, Field: i + 1, Err: err}
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return &ParseError{Line: lineNo, Field: i + 1, Err: ErrNonFinite}
			}
			row[i] = v
		}
		pes.R = append(pes.R, row[0])
		pes.E = append(pes.E, row[1])
		return nil
	})
	if err != nil {
		return nil, err
	}
	if pes.Len() == 0 {
		return nil, ErrEmptyInput
	}
	return pes, nil
}

// ParseBondPES reads a bond potential energy file such as h2_pes.txt.
func ParseBondPES(filepath string) (*BondPES, error) {
	file, err := os.Open(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to open PES file: %w", err)
	}
	defer file.Close()

	pes, err := ReadBondPES(file)
	if err != nil {
		return nil, withPath(filepath, err)
	}
	return pes, nil
}

func withPath(path string, err error) error {
	var pe *ParseError
	if errors.As(err, &pe) {
		pe.Path = path
		return pe
	}
	return fmt.Errorf("%s: %w", path, err)
}

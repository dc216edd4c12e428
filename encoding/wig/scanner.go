// Package wig reads the text signal formats: UCSC wiggle (fixedStep and
// variableStep blocks) and bedGraph.  A single stream may mix them.
package wig

import (
	"bufio"
	"bytes"
	"io"
	"strconv"

	"github.com/pkg/errors"
)

// A Record assigns Value to every base of the 0-based half-open range
// [Start0, End) of chromosome Chr.
type Record struct {
	Chr         string
	Start0, End int
	Value       float64
}

type mode int

const (
	bedGraphMode mode = iota
	fixedStepMode
	variableStepMode
)

// Scanner reads Records from a wiggle or bedGraph stream.  Header lines
// ("track", "browser"), comments and blank lines are skipped.  Scanners are
// not threadsafe.
//
// Usage:
//
//   sc := wig.NewScanner(r)
//   for sc.Scan() {
//     rec := sc.Record()
//   }
//   if err := sc.Err(); err != nil { ... }
type Scanner struct {
	b    *bufio.Scanner
	line int
	rec  Record
	err  error

	mode mode
	chr  string
	// next is the 0-based start of the next fixedStep item.
	next       int
	step, span int
}

// NewScanner creates a Scanner reading from r.
func NewScanner(r io.Reader) *Scanner {
	b := bufio.NewScanner(r)
	b.Buffer(make([]byte, 64*1024), 16*1024*1024)
	return &Scanner{b: b}
}

// Scan reads the next record.  It returns false at the end of the stream or
// on error; Err distinguishes the two.
func (s *Scanner) Scan() bool {
	if s.err != nil {
		return false
	}
	for s.b.Scan() {
		s.line++
		line := bytes.TrimSpace(s.b.Bytes())
		if len(line) == 0 || line[0] == '#' ||
			bytes.HasPrefix(line, []byte("track")) || bytes.HasPrefix(line, []byte("browser")) {
			continue
		}
		fields := bytes.Fields(line)
		var err error
		switch string(fields[0]) {
		case "fixedStep":
			err = s.parseDeclaration(fixedStepMode, fields[1:])
		case "variableStep":
			err = s.parseDeclaration(variableStepMode, fields[1:])
		default:
			if err = s.parseData(fields); err == nil {
				return true
			}
		}
		if err != nil {
			s.err = errors.Wrapf(err, "line %d", s.line)
			return false
		}
	}
	s.err = s.b.Err()
	return false
}

func (s *Scanner) parseDeclaration(m mode, fields [][]byte) error {
	s.mode = m
	s.chr = ""
	s.next, s.step, s.span = -1, 1, 1
	for _, f := range fields {
		eq := bytes.IndexByte(f, '=')
		if eq < 0 {
			return errors.Errorf("malformed declaration field %q", f)
		}
		key, val := string(f[:eq]), string(f[eq+1:])
		if key == "chrom" {
			s.chr = val
			continue
		}
		n, err := strconv.Atoi(val)
		if err != nil {
			return errors.Wrapf(err, "declaration field %s", key)
		}
		switch key {
		case "start":
			if n < 1 {
				return errors.Errorf("start=%d, must be at least 1", n)
			}
			s.next = n - 1
		case "step":
			s.step = n
		case "span":
			s.span = n
		default:
			return errors.Errorf("unknown declaration field %q", key)
		}
	}
	switch {
	case s.chr == "":
		return errors.New("declaration without chrom=")
	case m == fixedStepMode && s.next < 0:
		return errors.New("fixedStep declaration without start=")
	case s.step < 1 || s.span < 1:
		return errors.Errorf("step=%d span=%d, both must be positive", s.step, s.span)
	}
	return nil
}

func (s *Scanner) parseData(fields [][]byte) error {
	// A four-column line is always bedGraph, even after a step block.
	if len(fields) == 4 {
		s.mode = bedGraphMode
	}
	switch s.mode {
	case fixedStepMode:
		if len(fields) != 1 {
			return errors.Errorf("fixedStep data line has %d fields", len(fields))
		}
		v, err := parseValue(fields[0])
		if err != nil {
			return err
		}
		s.rec = Record{Chr: s.chr, Start0: s.next, End: s.next + s.span, Value: v}
		s.next += s.step
		return nil
	case variableStepMode:
		if len(fields) != 2 {
			return errors.Errorf("variableStep data line has %d fields", len(fields))
		}
		pos, err := strconv.Atoi(string(fields[0]))
		if err != nil {
			return errors.Wrap(err, "position")
		}
		if pos < 1 {
			return errors.Errorf("position %d, must be at least 1", pos)
		}
		v, err := parseValue(fields[1])
		if err != nil {
			return err
		}
		s.rec = Record{Chr: s.chr, Start0: pos - 1, End: pos - 1 + s.span, Value: v}
		return nil
	}
	if len(fields) != 4 {
		return errors.Errorf("bedGraph line has %d fields, want 4", len(fields))
	}
	start0, err := strconv.Atoi(string(fields[1]))
	if err != nil {
		return errors.Wrap(err, "start")
	}
	end, err := strconv.Atoi(string(fields[2]))
	if err != nil {
		return errors.Wrap(err, "end")
	}
	if start0 < 0 || end < start0 {
		return errors.Errorf("invalid range [%d, %d)", start0, end)
	}
	v, err := parseValue(fields[3])
	if err != nil {
		return err
	}
	s.rec = Record{Chr: string(fields[0]), Start0: start0, End: end, Value: v}
	return nil
}

func parseValue(f []byte) (float64, error) {
	v, err := strconv.ParseFloat(string(f), 64)
	return v, errors.Wrap(err, "value")
}

// Record returns the most recently scanned record.
func (s *Scanner) Record() Record { return s.rec }

// Err returns the first error encountered.  It is nil if the stream was read
// to the end.
func (s *Scanner) Err() error { return s.err }

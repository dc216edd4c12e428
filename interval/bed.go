package interval

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/base/log"
	gunsafe "github.com/grailbio/base/unsafe"
	"github.com/grailbio/base/vcontext"
	"github.com/klauspost/compress/gzip"
)

// getTokens identifies up to the first len(tokens) tokens from curLine,
// returning the number of tokens saved.  Any (group of) characters <= ' ' is
// treated as a delimiter.
func getTokens(tokens [][]byte, curLine []byte) int {
	posEnd := 0
	lineLen := len(curLine)
	for tokenIdx := range tokens {
		pos := posEnd
		for ; pos != lineLen; pos++ {
			if curLine[pos] > ' ' {
				break
			}
		}
		if pos == lineLen {
			return tokenIdx
		}
		posEnd = pos
		for ; posEnd != lineLen; posEnd++ {
			if curLine[posEnd] <= ' ' {
				break
			}
		}
		tokens[tokenIdx] = curLine[pos:posEnd]
	}
	return len(tokens)
}

// ReadBEDOpts defines behavior of ReadBED and ReadBEDFromPath.
type ReadBEDOpts struct {
	// OneBasedInput interprets the BED interval boundaries as one-based [start,
	// end] instead of the usual zero-based [start, end).
	OneBasedInput bool
	// IgnoreStrand makes every interval Watson, even when column 6 is "-".
	IgnoreStrand bool
}

var (
	trackPrefix   = []byte("track")
	browserPrefix = []byte("browser")
)

// ReadBED reads intervals from a BED stream.  Only the first three columns are
// required.  If the sixth column is "-", the interval is returned on the Crick
// strand, i.e. with its endpoints swapped.  Header lines ("track", "browser",
// "#") and blank lines are skipped.  Intervals are returned in file order.
func ReadBED(r io.Reader, opts ReadBEDOpts) ([]Interval, error) {
	var startAdd int
	if !opts.OneBasedInput {
		startAdd = 1
	}
	var (
		tokens    [6][]byte
		intervals []Interval
		lineIdx   int
	)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineIdx++
		curLine := scanner.Bytes()
		nToken := getTokens(tokens[:], curLine)
		if nToken == 0 {
			continue
		}
		if tokens[0][0] == '#' || bytes.Equal(tokens[0], trackPrefix) || bytes.Equal(tokens[0], browserPrefix) {
			continue
		}
		if nToken < 3 {
			return nil, errors.E(errors.Integrity, fmt.Sprintf("interval.ReadBED: line %d has fewer tokens than expected", lineIdx))
		}
		start, err := strconv.Atoi(gunsafe.BytesToString(tokens[1]))
		if err != nil {
			return nil, errors.E(errors.Integrity, err, fmt.Sprintf("interval.ReadBED: line %d", lineIdx))
		}
		stop, err := strconv.Atoi(gunsafe.BytesToString(tokens[2]))
		if err != nil {
			return nil, errors.E(errors.Integrity, err, fmt.Sprintf("interval.ReadBED: line %d", lineIdx))
		}
		start += startAdd
		if start <= 0 || stop < start {
			return nil, errors.E(errors.Integrity, fmt.Sprintf("interval.ReadBED: invalid coordinate pair on line %d", lineIdx))
		}
		// The chromosome token refers to the scanner's buffer, so it has to be
		// copied before the next Scan.
		chr := string(tokens[0])
		if nToken == 6 && !opts.IgnoreStrand && len(tokens[5]) == 1 && tokens[5][0] == '-' {
			intervals = append(intervals, New(chr, stop, start))
		} else {
			intervals = append(intervals, New(chr, start, stop))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	log.Debug.Printf("BED loaded, %d interval(s).", len(intervals))
	return intervals, nil
}

// ReadBEDFromPath is a wrapper for ReadBED that takes a path instead of an
// io.Reader.  Gzipped files are detected by their path suffix.
func ReadBEDFromPath(path string, opts ReadBEDOpts) (intervals []Interval, err error) {
	ctx := vcontext.Background()
	var infile file.File
	if infile, err = file.Open(ctx, path); err != nil {
		return
	}
	defer func() {
		if cerr := infile.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	reader := io.Reader(infile.Reader(ctx))
	switch fileio.DetermineType(path) {
	case fileio.Gzip:
		if reader, err = gzip.NewReader(reader); err != nil {
			return
		}
	}
	return ReadBED(reader, opts)
}

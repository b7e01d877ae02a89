// Package fastq reads the FASTQ-format read file that cmd/panseed-find's
// -fastq flag points at (spec §6's "FASTQ path" CLI input). It is trimmed to
// exactly what panseed.Finder.SeedsAll needs from a read: an id and a
// sequence, single-end only; pairing, quality strings, and write-back are
// not part of any SPEC_FULL.md operation and are left out rather than
// carried unused.
package fastq

import (
	"bufio"
	"errors"
	"io"
)

var (
	// ErrShort is returned when a truncated FASTQ record is encountered.
	ErrShort = errors.New("fastq: short record")
	// ErrInvalid is returned when a record's framing lines don't match the
	// FASTQ "@id / seq / +unk / qual" shape.
	ErrInvalid = errors.New("fastq: invalid record")
)

// A Read is one FASTQ record's id and sequence.
type Read struct {
	ID, Seq string
}

var errEOF = errors.New("fastq: eof")

// Field enumerates FASTQ fields a Scanner fills in. Both are always
// validated against the expected line shape; a field not in the requested
// set is simply not copied into the Read.
type Field uint

const (
	// ID causes Read.ID to be filled.
	ID Field = 1 << iota
	// Seq causes Read.Seq to be filled.
	Seq
)

// Scanner reads successive FASTQ records from an underlying stream. Scan
// requires id lines to begin with "@" and the third line of a record to
// begin with "+", but performs no further validation (seq/qual length
// agreement, alphabet, and so on). Scanners are not thread-safe.
type Scanner struct {
	b      *bufio.Scanner
	err    error
	fields Field
}

// NewScanner constructs a Scanner over r. fields selects which of a
// record's id/sequence to copy into the caller's Read on each Scan.
func NewScanner(r io.Reader, fields Field) *Scanner {
	return &Scanner{b: bufio.NewScanner(r), fields: fields}
}

// Scan reads the next record into read, reporting whether it succeeded.
// Once Scan returns false it never returns true again; check Err to
// distinguish a clean end of stream from a read or format error.
func (f *Scanner) Scan(read *Read) bool {
	if f.err != nil {
		return false
	}
	if !f.b.Scan() {
		if f.err = f.b.Err(); f.err == nil {
			f.err = errEOF
		}
		return false
	}
	id := f.b.Bytes()
	if len(id) == 0 || id[0] != '@' {
		f.err = ErrInvalid
		return false
	}
	if f.fields&ID != 0 {
		read.ID = string(id)
	}
	if !f.scan() {
		return false
	}
	if f.fields&Seq != 0 {
		read.Seq = f.b.Text()
	}
	if !f.scan() {
		return false
	}
	unk := f.b.Bytes()
	if len(unk) == 0 || unk[0] != '+' {
		f.err = ErrInvalid
		return false
	}
	if !f.scan() {
		return false
	}
	return true
}

func (f *Scanner) scan() bool {
	ok := f.b.Scan()
	if !ok {
		if f.err = f.b.Err(); f.err == nil {
			f.err = ErrShort
		}
	}
	return ok
}

// Err returns the scan error, if any, or nil at a clean end of stream.
func (f *Scanner) Err() error {
	if f.err == errEOF {
		return nil
	}
	return f.err
}

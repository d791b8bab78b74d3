// Package ingestion decodes the row-oriented input stream into raw
// transaction records. Rows look like:
//
//	type, client, tx [, amount]
//
// Fields may carry surrounding whitespace and rows may omit the amount
// column entirely. Decode failures are reported per record and do not
// stop the stream; the first row is usually a header and its failure is
// expected.
package ingestion

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"txledger/internal/tx"
)

// DecodeError reports a row that could not be decoded into a record.
type DecodeError struct {
	Row int // 1-based position in the stream
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode row %d: %v", e.Row, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Header reports whether this failure hit the first row, which is
// legitimately a header and not worth surfacing to the user.
func (e *DecodeError) Header() bool { return e.Row == 1 }

// Reader decodes records one at a time from a row-oriented stream.
type Reader struct {
	csv *csv.Reader
	row int
}

// NewReader wraps an input stream. Rows of varying width are tolerated;
// leading whitespace in fields is dropped.
func NewReader(r io.Reader) *Reader {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	return &Reader{csv: cr}
}

// Next returns the next decoded record. It returns io.EOF at the end of
// the stream and *DecodeError for rows that cannot be decoded; the
// caller may keep reading after a decode error.
func (r *Reader) Next() (tx.Record, error) {
	fields, err := r.csv.Read()
	if err != nil {
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			r.row++
			return tx.Record{}, &DecodeError{Row: r.row, Err: err}
		}
		// io.EOF or a genuine read failure: not a per-row problem.
		return tx.Record{}, err
	}
	r.row++

	rec, err := decode(fields)
	if err != nil {
		return tx.Record{}, &DecodeError{Row: r.row, Err: err}
	}
	return rec, nil
}

func decode(fields []string) (tx.Record, error) {
	if len(fields) < 3 {
		return tx.Record{}, fmt.Errorf("expected at least 3 fields, got %d", len(fields))
	}
	for i, f := range fields {
		fields[i] = strings.TrimSpace(f)
	}

	client, err := strconv.ParseUint(fields[1], 10, 16)
	if err != nil {
		return tx.Record{}, fmt.Errorf("parse client %q: %w", fields[1], err)
	}
	txid, err := strconv.ParseUint(fields[2], 10, 32)
	if err != nil {
		return tx.Record{}, fmt.Errorf("parse tx %q: %w", fields[2], err)
	}

	rec := tx.Record{
		Type:   fields[0],
		Client: uint16(client),
		Tx:     uint32(txid),
	}
	if len(fields) > 3 {
		rec.Amount = fields[3]
	}
	return rec, nil
}

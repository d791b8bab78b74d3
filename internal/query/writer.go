// Package query renders the final account snapshot in the row-oriented
// output format: one row per account with its exact decimal balances.
package query

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"txledger/internal/ledger"
)

var header = []string{"client_id", "available", "held", "total", "locked"}

// WriteSnapshots writes the snapshot rows. Amounts use the Amount type's
// exact decimal text, never scientific notation or rounding.
func WriteSnapshots(w io.Writer, snaps []ledger.Snapshot) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write snapshot header: %w", err)
	}
	for _, s := range snaps {
		row := []string{
			strconv.FormatUint(uint64(s.Client), 10),
			s.Available.String(),
			s.Held.String(),
			s.Total.String(),
			strconv.FormatBool(s.Locked),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write snapshot for client %d: %w", s.Client, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush snapshot: %w", err)
	}
	return nil
}

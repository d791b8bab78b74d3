// Package testutil provides shared builders for engine tests.
package testutil

import (
	"testing"

	"github.com/rs/zerolog"

	"txledger/internal/cache"
	"txledger/internal/core"
	"txledger/internal/tx"
)

// SmallStoreConfig is a store geometry tiny enough that ordinary test
// workloads cross several spill boundaries.
var SmallStoreConfig = cache.Config{SizeLimit: 16, PartitionWidth: 8}

// NewProcessor builds a processor on the small store geometry and
// registers cleanup of its spill directories.
func NewProcessor(t *testing.T) *core.Processor {
	t.Helper()
	p := core.NewProcessor(SmallStoreConfig, zerolog.Nop(), nil)
	t.Cleanup(func() {
		if err := p.Close(); err != nil {
			t.Errorf("processor close: %v", err)
		}
	})
	return p
}

// Deposit builds a raw deposit record.
func Deposit(client uint16, txid uint32, amt string) tx.Record {
	return tx.Record{Type: "deposit", Client: client, Tx: txid, Amount: amt}
}

// Withdrawal builds a raw withdrawal record.
func Withdrawal(client uint16, txid uint32, amt string) tx.Record {
	return tx.Record{Type: "withdrawal", Client: client, Tx: txid, Amount: amt}
}

// Ref builds a dispute, resolve or chargeback record.
func Ref(typ string, client uint16, txid uint32) tx.Record {
	return tx.Record{Type: typ, Client: client, Tx: txid}
}

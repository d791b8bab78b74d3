// Package tx defines the transaction types flowing through the engine:
// raw decoded records, the closed set of transaction kinds, and the
// immutable Transaction value built from a record.
package tx

import (
	"fmt"

	"txledger/internal/amount"
)

// ClientID identifies an account. Never reused.
type ClientID uint16

// TxID identifies a transaction. Globally unique across the whole input
// stream, not scoped per account.
type TxID uint32

// Kind discriminates the transaction variants.
type Kind int32

const (
	KindUnrecognized Kind = iota
	KindDeposit
	KindWithdrawal
	KindDispute
	KindResolve
	KindChargeback
)

func (k Kind) String() string {
	switch k {
	case KindDeposit:
		return "deposit"
	case KindWithdrawal:
		return "withdrawal"
	case KindDispute:
		return "dispute"
	case KindResolve:
		return "resolve"
	case KindChargeback:
		return "chargeback"
	default:
		return "unrecognized"
	}
}

// Record is a raw input row as decoded by the ingestion reader.
// Amount is empty for the kinds that do not carry one.
type Record struct {
	Type   string
	Client uint16
	Tx     uint32
	Amount string
}

// Transaction is one input transaction. Only deposits and withdrawals
// carry an amount; disputes, resolves and chargebacks reference a prior
// transaction by id. Constructed once by FromRecord and immutable after.
type Transaction struct {
	Kind   Kind          `json:"kind"`
	Client ClientID      `json:"client"`
	ID     TxID          `json:"tx"`
	Amount amount.Amount `json:"amount"`
}

// FromRecord builds a Transaction from a raw record. Unknown type text
// yields KindUnrecognized without error; a malformed or over-precise
// amount on a deposit or withdrawal fails.
func FromRecord(rec Record) (Transaction, error) {
	t := Transaction{
		Client: ClientID(rec.Client),
		ID:     TxID(rec.Tx),
	}

	switch rec.Type {
	case "deposit", "withdrawal":
		if rec.Type == "deposit" {
			t.Kind = KindDeposit
		} else {
			t.Kind = KindWithdrawal
		}
		text := rec.Amount
		if text == "" {
			text = "0"
		}
		amt, err := amount.Parse(text)
		if err != nil {
			return Transaction{}, fmt.Errorf("parse %s amount %q: %w", rec.Type, rec.Amount, err)
		}
		t.Amount = amt
	case "dispute":
		t.Kind = KindDispute
	case "resolve":
		t.Kind = KindResolve
	case "chargeback":
		t.Kind = KindChargeback
	default:
		t.Kind = KindUnrecognized
	}

	return t, nil
}

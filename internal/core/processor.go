// Package core contains the Processor, the single-threaded registry that
// routes every incoming record to the right account ledger. It owns all
// ledgers for the life of the run, creates them lazily on first
// reference, and never reorders or batches across accounts.
package core

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"txledger/internal/cache"
	"txledger/internal/ledger"
	"txledger/internal/observability"
	"txledger/internal/tx"
)

// ErrUnrecognizedTransaction reports a record whose type text matches no
// known transaction kind. Such records are never routed to a ledger.
var ErrUnrecognizedTransaction = errors.New("unrecognized transaction type")

// Processor applies an ordered stream of records to per-account ledgers,
// one record at a time.
type Processor struct {
	cfg     cache.Config
	clients map[tx.ClientID]*ledger.Client

	log     zerolog.Logger
	metrics *observability.Metrics
}

// NewProcessor creates an empty registry. Every ledger it creates shares
// the given store geometry.
func NewProcessor(cfg cache.Config, log zerolog.Logger, metrics *observability.Metrics) *Processor {
	return &Processor{
		cfg:     cfg,
		clients: make(map[tx.ClientID]*ledger.Client),
		log:     log,
		metrics: metrics,
	}
}

// Process decodes one raw record and applies it. Operation-level
// failures are returned for logging and leave all state untouched;
// processing continues with the next record.
func (p *Processor) Process(rec tx.Record) error {
	start := time.Now()

	t, err := tx.FromRecord(rec)
	if err != nil {
		p.reject("decode", "bad_amount")
		return err
	}

	kind := t.Kind.String()
	if err := p.apply(t); err != nil {
		p.reject(kind, reasonFor(err))
		return err
	}

	if p.metrics != nil {
		p.metrics.RecordsApplied.WithLabelValues(kind).Inc()
		p.metrics.ProcessDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}
	return nil
}

func (p *Processor) apply(t tx.Transaction) error {
	if t.Kind == tx.KindUnrecognized {
		return ErrUnrecognizedTransaction
	}

	client, err := p.clientFor(t.Client)
	if err != nil {
		return err
	}

	switch t.Kind {
	case tx.KindDeposit:
		return client.Deposit(t)
	case tx.KindWithdrawal:
		return client.Withdraw(t)
	case tx.KindDispute:
		return client.Dispute(t.ID)
	case tx.KindResolve:
		return client.Resolve(t.ID)
	case tx.KindChargeback:
		wasLocked := client.Locked()
		if err := client.Chargeback(t.ID); err != nil {
			return err
		}
		if !wasLocked && p.metrics != nil {
			p.metrics.LockedAccounts.Inc()
		}
		return nil
	default:
		return ErrUnrecognizedTransaction
	}
}

// clientFor looks up an account's ledger, creating it on first reference.
func (p *Processor) clientFor(id tx.ClientID) (*ledger.Client, error) {
	if client, ok := p.clients[id]; ok {
		return client, nil
	}

	client, err := ledger.NewClient(id, p.cfg, p.log, p.metrics)
	if err != nil {
		return nil, fmt.Errorf("create ledger for client %d: %w", id, err)
	}
	p.clients[id] = client
	if p.metrics != nil {
		p.metrics.ActiveAccounts.Set(float64(len(p.clients)))
	}
	return client, nil
}

// Snapshots returns the final state of every known account, sorted by
// account id so runs are comparable.
func (p *Processor) Snapshots() []ledger.Snapshot {
	snaps := make([]ledger.Snapshot, 0, len(p.clients))
	for _, client := range p.clients {
		snaps = append(snaps, client.Snapshot())
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].Client < snaps[j].Client })
	return snaps
}

// Accounts returns the number of ledgers in the registry.
func (p *Processor) Accounts() int {
	return len(p.clients)
}

// Close releases every ledger's stores and their spilled files.
func (p *Processor) Close() error {
	var errs []error
	for _, client := range p.clients {
		errs = append(errs, client.Close())
	}
	return errors.Join(errs...)
}

func (p *Processor) reject(kind, reason string) {
	if p.metrics != nil {
		p.metrics.RecordsRejected.WithLabelValues(kind, reason).Inc()
	}
}

func reasonFor(err error) string {
	switch {
	case errors.Is(err, ledger.ErrDuplicateTransaction):
		return "duplicate"
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ledger.ErrAccountLocked):
		return "account_locked"
	case errors.Is(err, ledger.ErrAlreadyDisputed):
		return "already_disputed"
	case errors.Is(err, ledger.ErrTransactionNotFound):
		return "not_found"
	case errors.Is(err, ledger.ErrWrongTransactionType):
		return "wrong_type"
	case errors.Is(err, ErrUnrecognizedTransaction):
		return "unrecognized"
	case errors.Is(err, cache.ErrIO):
		return "store_io"
	default:
		return "other"
	}
}

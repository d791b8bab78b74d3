// Package ledger implements the per-account balance state machine. Each
// Client tracks available, held and total funds plus a lock flag, and
// owns two transaction stores: every deposit and withdrawal ever applied,
// and the deposits currently under dispute.
package ledger

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"txledger/internal/amount"
	"txledger/internal/cache"
	"txledger/internal/observability"
	"txledger/internal/tx"
)

// Client is one account's ledger. Total is maintained incrementally and
// is always available + held; no operation recomputes it.
type Client struct {
	id        tx.ClientID
	available amount.Amount
	held      amount.Amount
	total     amount.Amount
	locked    bool

	processed *cache.Cache
	disputed  *cache.Cache
}

// NewClient creates an account ledger with two fresh transaction stores
// sharing the given geometry.
func NewClient(id tx.ClientID, cfg cache.Config, log zerolog.Logger, metrics *observability.Metrics) (*Client, error) {
	processed, err := cache.New(cfg, log, metrics)
	if err != nil {
		return nil, fmt.Errorf("client %d: processed store: %w", id, err)
	}
	disputed, err := cache.New(cfg, log, metrics)
	if err != nil {
		_ = processed.Close()
		return nil, fmt.Errorf("client %d: disputed store: %w", id, err)
	}

	return &Client{
		id:        id,
		available: amount.Zero(),
		held:      amount.Zero(),
		total:     amount.Zero(),
		processed: processed,
		disputed:  disputed,
	}, nil
}

// Close releases both transaction stores and their on-disk spill.
func (c *Client) Close() error {
	return errors.Join(c.processed.Close(), c.disputed.Close())
}

func (c *Client) canProcess() error {
	if c.locked {
		return ErrAccountLocked
	}
	return nil
}

// Deposit credits the account. The transaction id must not have been
// processed before.
func (c *Client) Deposit(t tx.Transaction) error {
	if err := c.canProcess(); err != nil {
		return err
	}
	if t.Kind != tx.KindDeposit {
		return fmt.Errorf("%w: expected deposit, got %s", ErrWrongTransactionType, t.Kind)
	}

	seen, err := c.processed.Contains(t.ID)
	if err != nil {
		return err
	}
	if seen {
		return ErrDuplicateTransaction
	}

	if _, err := c.processed.Insert(t.ID, t); err != nil {
		return err
	}
	c.available = c.available.Add(t.Amount)
	c.total = c.total.Add(t.Amount)
	return nil
}

// Withdraw debits the account. Fails without mutation if the id was
// already processed or the available balance cannot cover the amount.
func (c *Client) Withdraw(t tx.Transaction) error {
	if err := c.canProcess(); err != nil {
		return err
	}
	if t.Kind != tx.KindWithdrawal {
		return fmt.Errorf("%w: expected withdrawal, got %s", ErrWrongTransactionType, t.Kind)
	}

	seen, err := c.processed.Contains(t.ID)
	if err != nil {
		return err
	}
	if seen {
		return ErrDuplicateTransaction
	}
	if t.Amount.GreaterThan(c.available) {
		return ErrInsufficientFunds
	}

	if _, err := c.processed.Insert(t.ID, t); err != nil {
		return err
	}
	c.available = c.available.Sub(t.Amount)
	c.total = c.total.Sub(t.Amount)
	return nil
}

// Dispute moves a prior deposit's funds from available to held. Only
// deposits can be disputed, and the deposit stays in the processed store.
// Disputes are accepted even on a locked account: they record an
// investigation, not a funds movement out of the account.
func (c *Client) Dispute(id tx.TxID) error {
	inDispute, err := c.disputed.Contains(id)
	if err != nil {
		return err
	}
	if inDispute {
		return ErrAlreadyDisputed
	}

	t, ok, err := c.processed.Get(id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrTransactionNotFound
	}
	if t.Kind != tx.KindDeposit {
		return fmt.Errorf("%w: cannot dispute a %s", ErrWrongTransactionType, t.Kind)
	}

	if _, err := c.disputed.Insert(id, t); err != nil {
		return err
	}
	c.available = c.available.Sub(t.Amount)
	c.held = c.held.Add(t.Amount)
	return nil
}

// Resolve releases a disputed deposit back to available. The lookup
// consumes the dispute.
func (c *Client) Resolve(id tx.TxID) error {
	if err := c.canProcess(); err != nil {
		return err
	}

	t, ok, err := c.disputed.Remove(id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrTransactionNotFound
	}
	if t.Kind != tx.KindDeposit {
		return fmt.Errorf("%w: cannot resolve a %s", ErrWrongTransactionType, t.Kind)
	}

	c.available = c.available.Add(t.Amount)
	c.held = c.held.Sub(t.Amount)
	return nil
}

// Chargeback permanently removes a disputed deposit's funds and freezes
// the account. There is no unlock transition.
func (c *Client) Chargeback(id tx.TxID) error {
	if err := c.canProcess(); err != nil {
		return err
	}

	t, ok, err := c.disputed.Remove(id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrTransactionNotFound
	}
	if t.Kind != tx.KindDeposit {
		return fmt.Errorf("%w: cannot charge back a %s", ErrWrongTransactionType, t.Kind)
	}

	c.locked = true
	c.total = c.total.Sub(t.Amount)
	c.held = c.held.Sub(t.Amount)
	return nil
}

// ID returns the account id.
func (c *Client) ID() tx.ClientID { return c.id }

// Available returns the spendable balance.
func (c *Client) Available() amount.Amount { return c.available }

// Held returns the balance frozen by open disputes.
func (c *Client) Held() amount.Amount { return c.held }

// Total returns available + held.
func (c *Client) Total() amount.Amount { return c.total }

// Locked reports whether a chargeback has frozen the account.
func (c *Client) Locked() bool { return c.locked }

// Snapshot captures the final state of one account.
type Snapshot struct {
	Client    tx.ClientID
	Available amount.Amount
	Held      amount.Amount
	Total     amount.Amount
	Locked    bool
}

// Snapshot returns the account's current balances and lock state.
func (c *Client) Snapshot() Snapshot {
	return Snapshot{
		Client:    c.id,
		Available: c.available,
		Held:      c.held,
		Total:     c.total,
		Locked:    c.locked,
	}
}

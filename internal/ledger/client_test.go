package ledger_test

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"txledger/internal/amount"
	"txledger/internal/cache"
	"txledger/internal/ledger"
	"txledger/internal/tx"
)

// A tiny store geometry so ledger tests also cross spill boundaries.
var testConfig = cache.Config{SizeLimit: 16, PartitionWidth: 8}

func newClient(t *testing.T) *ledger.Client {
	t.Helper()
	c, err := ledger.NewClient(1, testConfig, zerolog.Nop(), nil)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func deposit(id uint32, amt string) tx.Transaction {
	return tx.Transaction{Kind: tx.KindDeposit, Client: 1, ID: tx.TxID(id), Amount: amount.MustParse(amt)}
}

func withdrawal(id uint32, amt string) tx.Transaction {
	return tx.Transaction{Kind: tx.KindWithdrawal, Client: 1, ID: tx.TxID(id), Amount: amount.MustParse(amt)}
}

// checkBalances asserts the full account state, including the algebraic
// invariant total == available + held.
func checkBalances(t *testing.T, c *ledger.Client, available, held, total string, locked bool) {
	t.Helper()
	if got, want := c.Available(), amount.MustParse(available); !got.Equal(want) {
		t.Errorf("available: got %s, want %s", got, want)
	}
	if got, want := c.Held(), amount.MustParse(held); !got.Equal(want) {
		t.Errorf("held: got %s, want %s", got, want)
	}
	if got, want := c.Total(), amount.MustParse(total); !got.Equal(want) {
		t.Errorf("total: got %s, want %s", got, want)
	}
	if c.Locked() != locked {
		t.Errorf("locked: got %v, want %v", c.Locked(), locked)
	}
	if sum := c.Available().Add(c.Held()); !c.Total().Equal(sum) {
		t.Errorf("invariant broken: total %s != available+held %s", c.Total(), sum)
	}
}

// ============================================================================
// Test: deposit and withdrawal
// ============================================================================

func TestDepositWithdrawRoundTrip(t *testing.T) {
	c := newClient(t)

	if err := c.Deposit(deposit(1, "2.5")); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	checkBalances(t, c, "2.5", "0", "2.5", false)

	if err := c.Withdraw(withdrawal(2, "2.5")); err != nil {
		t.Fatalf("withdraw failed: %v", err)
	}
	checkBalances(t, c, "0", "0", "0", false)
}

func TestDuplicateDepositRejected(t *testing.T) {
	c := newClient(t)

	if err := c.Deposit(deposit(1, "1")); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	if err := c.Deposit(deposit(1, "1")); !errors.Is(err, ledger.ErrDuplicateTransaction) {
		t.Errorf("got %v, want ErrDuplicateTransaction", err)
	}
	checkBalances(t, c, "1", "0", "1", false)
}

func TestDuplicateWithdrawalRejected(t *testing.T) {
	c := newClient(t)

	if err := c.Deposit(deposit(1, "5")); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	if err := c.Withdraw(withdrawal(2, "2")); err != nil {
		t.Fatalf("withdraw failed: %v", err)
	}
	if err := c.Withdraw(withdrawal(2, "2")); !errors.Is(err, ledger.ErrDuplicateTransaction) {
		t.Errorf("got %v, want ErrDuplicateTransaction", err)
	}
	checkBalances(t, c, "3", "0", "3", false)
}

func TestInsufficientFunds(t *testing.T) {
	c := newClient(t)

	if err := c.Deposit(deposit(1, "1.5")); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	if err := c.Withdraw(withdrawal(2, "2.0")); !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Errorf("got %v, want ErrInsufficientFunds", err)
	}
	checkBalances(t, c, "1.5", "0", "1.5", false)
}

func TestWithdrawExactBalanceAllowed(t *testing.T) {
	c := newClient(t)

	if err := c.Deposit(deposit(1, "1.0001")); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	if err := c.Withdraw(withdrawal(2, "1.0001")); err != nil {
		t.Errorf("exact-balance withdraw failed: %v", err)
	}
	checkBalances(t, c, "0", "0", "0", false)
}

// ============================================================================
// Test: dispute / resolve
// ============================================================================

func TestDisputeHoldsFunds(t *testing.T) {
	c := newClient(t)

	if err := c.Deposit(deposit(1, "3")); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	if err := c.Dispute(1); err != nil {
		t.Fatalf("dispute failed: %v", err)
	}
	checkBalances(t, c, "0", "3", "3", false)

	// The deposit stays in history: a second dispute is rejected as
	// already disputed, not as unknown.
	if err := c.Dispute(1); !errors.Is(err, ledger.ErrAlreadyDisputed) {
		t.Errorf("got %v, want ErrAlreadyDisputed", err)
	}
	checkBalances(t, c, "0", "3", "3", false)
}

func TestDisputeUnknownTransaction(t *testing.T) {
	c := newClient(t)

	if err := c.Dispute(404); !errors.Is(err, ledger.ErrTransactionNotFound) {
		t.Errorf("got %v, want ErrTransactionNotFound", err)
	}
	checkBalances(t, c, "0", "0", "0", false)
}

func TestDisputeWithdrawalRejected(t *testing.T) {
	c := newClient(t)

	if err := c.Deposit(deposit(1, "5")); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	if err := c.Withdraw(withdrawal(2, "2")); err != nil {
		t.Fatalf("withdraw failed: %v", err)
	}
	if err := c.Dispute(2); !errors.Is(err, ledger.ErrWrongTransactionType) {
		t.Errorf("got %v, want ErrWrongTransactionType", err)
	}
	checkBalances(t, c, "3", "0", "3", false)
}

func TestDisputeResolveRestores(t *testing.T) {
	c := newClient(t)

	if err := c.Deposit(deposit(1, "2.75")); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	if err := c.Dispute(1); err != nil {
		t.Fatalf("dispute failed: %v", err)
	}
	if err := c.Resolve(1); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	checkBalances(t, c, "2.75", "0", "2.75", false)

	// The resolve consumed the dispute.
	if err := c.Resolve(1); !errors.Is(err, ledger.ErrTransactionNotFound) {
		t.Errorf("got %v, want ErrTransactionNotFound", err)
	}
	checkBalances(t, c, "2.75", "0", "2.75", false)
}

func TestResolveWithoutDispute(t *testing.T) {
	c := newClient(t)

	if err := c.Deposit(deposit(1, "1")); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	if err := c.Resolve(1); !errors.Is(err, ledger.ErrTransactionNotFound) {
		t.Errorf("got %v, want ErrTransactionNotFound", err)
	}
	checkBalances(t, c, "1", "0", "1", false)
}

// ============================================================================
// Test: chargeback and lock state
// ============================================================================

func TestChargebackLocksAccount(t *testing.T) {
	c := newClient(t)

	if err := c.Deposit(deposit(1, "4")); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	if err := c.Deposit(deposit(2, "1")); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	if err := c.Dispute(1); err != nil {
		t.Fatalf("dispute failed: %v", err)
	}
	if err := c.Chargeback(1); err != nil {
		t.Fatalf("chargeback failed: %v", err)
	}
	// The disputed funds leave the account entirely.
	checkBalances(t, c, "1", "0", "1", true)

	if err := c.Withdraw(withdrawal(3, "1")); !errors.Is(err, ledger.ErrAccountLocked) {
		t.Errorf("withdraw on locked: got %v, want ErrAccountLocked", err)
	}
	if err := c.Deposit(deposit(4, "1")); !errors.Is(err, ledger.ErrAccountLocked) {
		t.Errorf("deposit on locked: got %v, want ErrAccountLocked", err)
	}
	if err := c.Resolve(1); !errors.Is(err, ledger.ErrAccountLocked) {
		t.Errorf("resolve on locked: got %v, want ErrAccountLocked", err)
	}
	if err := c.Chargeback(1); !errors.Is(err, ledger.ErrAccountLocked) {
		t.Errorf("chargeback on locked: got %v, want ErrAccountLocked", err)
	}
	checkBalances(t, c, "1", "0", "1", true)
}

func TestDisputeAllowedOnLockedAccount(t *testing.T) {
	// Disputes carry no Active precondition: they may still be recorded
	// after a chargeback froze the account.
	c := newClient(t)

	if err := c.Deposit(deposit(1, "2")); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	if err := c.Deposit(deposit(2, "3")); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	if err := c.Dispute(1); err != nil {
		t.Fatalf("dispute failed: %v", err)
	}
	if err := c.Chargeback(1); err != nil {
		t.Fatalf("chargeback failed: %v", err)
	}

	if err := c.Dispute(2); err != nil {
		t.Errorf("dispute on locked account: got %v, want success", err)
	}
	checkBalances(t, c, "0", "3", "3", true)
}

func TestChargebackWithoutDispute(t *testing.T) {
	c := newClient(t)

	if err := c.Deposit(deposit(1, "1")); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	if err := c.Chargeback(1); !errors.Is(err, ledger.ErrTransactionNotFound) {
		t.Errorf("got %v, want ErrTransactionNotFound", err)
	}
	checkBalances(t, c, "1", "0", "1", false)
}

// ============================================================================
// Test: snapshot
// ============================================================================

func TestSnapshot(t *testing.T) {
	c := newClient(t)

	if err := c.Deposit(deposit(1, "5")); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	if err := c.Dispute(1); err != nil {
		t.Fatalf("dispute failed: %v", err)
	}

	snap := c.Snapshot()
	if snap.Client != 1 {
		t.Errorf("client: got %d, want 1", snap.Client)
	}
	if !snap.Available.Equal(amount.Zero()) {
		t.Errorf("available: got %s, want 0", snap.Available)
	}
	if !snap.Held.Equal(amount.MustParse("5")) {
		t.Errorf("held: got %s, want 5", snap.Held)
	}
	if !snap.Total.Equal(amount.MustParse("5")) {
		t.Errorf("total: got %s, want 5", snap.Total)
	}
	if snap.Locked {
		t.Error("locked: got true, want false")
	}
}

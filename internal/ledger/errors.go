package ledger

import "errors"

// Domain errors for the account state machine. Every one of them is
// local and recoverable: the offending record is reported and skipped,
// and the account is left exactly as it was before the attempt.
var (
	// ErrDuplicateTransaction reports a deposit or withdrawal whose id
	// has already been processed for this account.
	ErrDuplicateTransaction = errors.New("transaction already processed")

	// ErrInsufficientFunds reports a withdrawal larger than the
	// available balance.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrAccountLocked reports an operation against a frozen account.
	ErrAccountLocked = errors.New("account locked")

	// ErrAlreadyDisputed reports a dispute against a transaction that
	// is already under dispute.
	ErrAlreadyDisputed = errors.New("transaction already disputed")

	// ErrTransactionNotFound reports a dispute, resolve or chargeback
	// referencing an id this account has no record of.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrWrongTransactionType reports an operation applied to a
	// transaction kind it cannot target, e.g. disputing a withdrawal.
	ErrWrongTransactionType = errors.New("wrong transaction type")
)

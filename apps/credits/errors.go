package credits

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument indicates a missing or malformed required field
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrLedgerConflict indicates the atomic update lost a race; retrying
	// the whole operation with the original arguments is always safe since
	// no partial debit or credit is ever persisted.
	ErrLedgerConflict = errors.New("ledger conflict, retry the operation")
)

// InsufficientBalanceError reports a rejected consume. The account is left
// untouched; no partial debit happens.
type InsufficientBalanceError struct {
	Balance  int64
	Required int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: have %d, need %d", e.Balance, e.Required)
}

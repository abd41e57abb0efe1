package enums

import "fmt"

// WalletTransactionType classifies an entry in the wallet transaction log.
type WalletTransactionType string

const (
	WalletTransactionCredit           WalletTransactionType = "credit"
	WalletTransactionDebit            WalletTransactionType = "debit"
	WalletTransactionPendingCredit    WalletTransactionType = "pending_credit"
	WalletTransactionPendingConfirmed WalletTransactionType = "pending_confirmed"
	WalletTransactionAudit            WalletTransactionType = "audit"
)

var validWalletTransactionTypes = []WalletTransactionType{
	WalletTransactionCredit,
	WalletTransactionDebit,
	WalletTransactionPendingCredit,
	WalletTransactionPendingConfirmed,
	WalletTransactionAudit,
}

// MovesBalance reports whether rows of this type change wallet balances
// when the log is replayed. Audit rows are informational only.
func (w WalletTransactionType) MovesBalance() bool {
	return w != WalletTransactionAudit
}

// String implements fmt.Stringer.
func (w WalletTransactionType) String() string {
	return string(w)
}

// IsValid reports whether the value is a known WalletTransactionType.
func (w WalletTransactionType) IsValid() bool {
	for _, candidate := range validWalletTransactionTypes {
		if candidate == w {
			return true
		}
	}
	return false
}

// ParseWalletTransactionType converts raw input into a WalletTransactionType.
func ParseWalletTransactionType(value string) (WalletTransactionType, error) {
	for _, candidate := range validWalletTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid wallet transaction type %q", value)
}

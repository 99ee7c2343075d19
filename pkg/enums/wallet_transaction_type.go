package enums

import "fmt"

// WalletTransactionType maps to the wallet transaction rows in Postgres.
type WalletTransactionType string

const (
	WalletTransactionTypeDebit  WalletTransactionType = "debit"
	WalletTransactionTypeCredit WalletTransactionType = "credit"
	WalletTransactionTypeRefund WalletTransactionType = "refund"
)

var validWalletTransactionTypes = []WalletTransactionType{
	WalletTransactionTypeDebit,
	WalletTransactionTypeCredit,
	WalletTransactionTypeRefund,
}

// IsValid reports whether the value is a known WalletTransactionType.
func (t WalletTransactionType) IsValid() bool {
	for _, candidate := range validWalletTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseWalletTransactionType converts raw input into WalletTransactionType.
func ParseWalletTransactionType(value string) (WalletTransactionType, error) {
	for _, candidate := range validWalletTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid wallet transaction type %q", value)
}

package enums

import "fmt"

// WalletOwnerType identifies which kind of party owns a wallet.
type WalletOwnerType string

const (
	WalletOwnerVendor         WalletOwnerType = "vendor"
	WalletOwnerPlatform       WalletOwnerType = "platform"
	WalletOwnerRevenuePartner WalletOwnerType = "revenue_partner"
	WalletOwnerLogistics      WalletOwnerType = "logistics"
)

var validWalletOwnerTypes = []WalletOwnerType{
	WalletOwnerVendor,
	WalletOwnerPlatform,
	WalletOwnerRevenuePartner,
	WalletOwnerLogistics,
}

// String implements fmt.Stringer.
func (w WalletOwnerType) String() string {
	return string(w)
}

// IsValid reports whether the value is a known WalletOwnerType.
func (w WalletOwnerType) IsValid() bool {
	for _, candidate := range validWalletOwnerTypes {
		if candidate == w {
			return true
		}
	}
	return false
}

// IsSingleton reports whether the owner type has exactly one wallet
// platform-wide (no owner id).
func (w WalletOwnerType) IsSingleton() bool {
	return w == WalletOwnerPlatform || w == WalletOwnerRevenuePartner
}

// ParseWalletOwnerType converts raw input into a WalletOwnerType.
func ParseWalletOwnerType(value string) (WalletOwnerType, error) {
	for _, candidate := range validWalletOwnerTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid wallet owner type %q", value)
}

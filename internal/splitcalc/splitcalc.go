// Package splitcalc computes the settlement split for a delivered order
// line. It is pure arithmetic over shopspring decimals: no storage, no
// clock, no side effects.
package splitcalc

import (
	"github.com/shopspring/decimal"

	"github.com/vendora-labs/vendora-backend/pkg/config"
	pkgerrors "github.com/vendora-labs/vendora-backend/pkg/errors"
)

var oneHundred = decimal.NewFromInt(100)

// Split is the full decomposition of an order line's subtotal at
// settlement time. The five output amounts are rounded to two decimal
// places and satisfy
//
//	VendorNet + PlatformShare + PartnerShare + LogisticsShare == Subtotal
//
// exactly. Any rounding remainder lands on the platform share.
type Split struct {
	Subtotal       decimal.Decimal
	PlatformFee    decimal.Decimal
	VendorNet      decimal.Decimal
	PlatformShare  decimal.Decimal
	PartnerShare   decimal.Decimal
	LogisticsShare decimal.Decimal
}

// ComputePlatformFee returns the unrounded platform commission for a
// subtotal. Dispatch uses it to freeze the vendor's pending amount before
// the full split exists.
func ComputePlatformFee(subtotal, vendorCommissionRate decimal.Decimal) (decimal.Decimal, error) {
	if !subtotal.IsPositive() {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "subtotal must be greater than zero")
	}
	if vendorCommissionRate.IsNegative() || vendorCommissionRate.GreaterThan(oneHundred) {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "vendor commission rate must be between 0 and 100")
	}
	return subtotal.Mul(vendorCommissionRate).Div(oneHundred), nil
}

// Compute derives the settlement split. vendorCommissionRate is the
// vendor's platform commission in percent (e.g. 15 for 15%);
// logisticsFee is the fee frozen on the order line at dispatch.
// Intermediate values stay unrounded; rounding happens once, on the
// outputs.
func Compute(subtotal, vendorCommissionRate, logisticsFee decimal.Decimal, cfg config.SettlementConfig) (Split, error) {
	if !subtotal.IsPositive() {
		return Split{}, pkgerrors.New(pkgerrors.CodeValidation, "subtotal must be greater than zero")
	}
	if vendorCommissionRate.IsNegative() || vendorCommissionRate.GreaterThan(oneHundred) {
		return Split{}, pkgerrors.New(pkgerrors.CodeValidation, "vendor commission rate must be between 0 and 100")
	}
	if logisticsFee.IsNegative() {
		return Split{}, pkgerrors.New(pkgerrors.CodeValidation, "logistics fee cannot be negative")
	}

	platformFee := subtotal.Mul(vendorCommissionRate).Div(oneHundred)
	vendorNet := subtotal.Sub(platformFee).Sub(logisticsFee)
	if vendorNet.IsNegative() {
		return Split{}, pkgerrors.New(pkgerrors.CodeValidation, "fees exceed order line subtotal").
			WithDetails(map[string]string{
				"subtotal":      subtotal.String(),
				"platform_fee":  platformFee.String(),
				"logistics_fee": logisticsFee.String(),
			})
	}

	partnerShare := platformFee.Mul(cfg.PartnerShare())

	roundedVendorNet := vendorNet.Round(2)
	roundedPartner := partnerShare.Round(2)
	roundedLogistics := logisticsFee.Round(2)

	// The platform share absorbs the rounding remainder so the four
	// beneficiary amounts reassemble the subtotal to the cent.
	platformShare := subtotal.
		Sub(roundedVendorNet).
		Sub(roundedPartner).
		Sub(roundedLogistics)

	return Split{
		Subtotal:       subtotal,
		PlatformFee:    platformFee.Round(2),
		VendorNet:      roundedVendorNet,
		PlatformShare:  platformShare,
		PartnerShare:   roundedPartner,
		LogisticsShare: roundedLogistics,
	}, nil
}

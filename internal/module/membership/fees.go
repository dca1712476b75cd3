package membership

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Fees maps each membership type to its joining fee.
type Fees map[Type]decimal.Decimal

// ParseFees converts configured decimal strings into Fees.
func ParseFees(raw map[string]string) (Fees, error) {
	fees := make(Fees, len(raw))
	for name, value := range raw {
		t := Type(name)
		if !t.Valid() {
			return nil, fmt.Errorf("%w: %s", ErrInvalidType, name)
		}
		amount, err := decimal.NewFromString(value)
		if err != nil {
			return nil, fmt.Errorf("parse %s fee: %w", name, err)
		}
		if !amount.IsPositive() {
			return nil, fmt.Errorf("%s fee must be positive, got %s", name, value)
		}
		fees[t] = amount
	}
	return fees, nil
}

// For returns the fee for t.
func (f Fees) For(t Type) (decimal.Decimal, error) {
	if !t.Valid() {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrInvalidType, t)
	}
	amount, ok := f[t]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrFeeNotConfigured, t)
	}
	return amount, nil
}

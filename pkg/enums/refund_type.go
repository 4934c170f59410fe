package enums

import "fmt"

// RefundType distinguishes full from partial refunds.
type RefundType string

const (
	RefundTypeFull    RefundType = "full"
	RefundTypePartial RefundType = "partial"
)

// String implements fmt.Stringer.
func (r RefundType) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RefundType.
func (r RefundType) IsValid() bool {
	return r == RefundTypeFull || r == RefundTypePartial
}

// ParseRefundType converts raw input into a RefundType.
func ParseRefundType(value string) (RefundType, error) {
	switch RefundType(value) {
	case RefundTypeFull:
		return RefundTypeFull, nil
	case RefundTypePartial:
		return RefundTypePartial, nil
	}
	return "", fmt.Errorf("invalid refund type %q", value)
}

package enums

import "fmt"

// OrderKind distinguishes time-slot bookings from multi-day rental orders.
type OrderKind string

const (
	OrderKindBooking OrderKind = "booking"
	OrderKindRental  OrderKind = "rental"
)

// String implements fmt.Stringer.
func (k OrderKind) String() string {
	return string(k)
}

// IsValid reports whether the value is a known OrderKind.
func (k OrderKind) IsValid() bool {
	return k == OrderKindBooking || k == OrderKindRental
}

// ParseOrderKind converts raw input into an OrderKind.
func ParseOrderKind(value string) (OrderKind, error) {
	switch OrderKind(value) {
	case OrderKindBooking:
		return OrderKindBooking, nil
	case OrderKindRental:
		return OrderKindRental, nil
	}
	return "", fmt.Errorf("invalid order kind %q", value)
}

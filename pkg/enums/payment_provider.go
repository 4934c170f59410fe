package enums

// PaymentProvider tags which external gateway funded a payment record.
type PaymentProvider string

const (
	PaymentProviderRazorpay PaymentProvider = "razorpay"
)

// String implements fmt.Stringer.
func (p PaymentProvider) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentProvider.
func (p PaymentProvider) IsValid() bool {
	return p == PaymentProviderRazorpay
}

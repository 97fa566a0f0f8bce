package amount

import "fmt"

// Currency is an ISO 4217 alphabetic currency code.
type Currency string

const (
	AED Currency = "AED"
	AUD Currency = "AUD"
	BHD Currency = "BHD"
	CAD Currency = "CAD"
	CHF Currency = "CHF"
	CLP Currency = "CLP"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
	HKD Currency = "HKD"
	IDR Currency = "IDR"
	INR Currency = "INR"
	JOD Currency = "JOD"
	JPY Currency = "JPY"
	KRW Currency = "KRW"
	KWD Currency = "KWD"
	MYR Currency = "MYR"
	NZD Currency = "NZD"
	OMR Currency = "OMR"
	SGD Currency = "SGD"
	THB Currency = "THB"
	TND Currency = "TND"
	USD Currency = "USD"
	VND Currency = "VND"
)

// exponents maps each supported currency to its ISO 4217 decimal exponent.
// A currency missing from this table is treated as unsupported and every
// conversion involving it fails rather than guessing an exponent.
var exponents = map[Currency]int32{
	AED: 2, AUD: 2, CAD: 2, CHF: 2, EUR: 2, GBP: 2, HKD: 2,
	IDR: 2, INR: 2, MYR: 2, NZD: 2, SGD: 2, THB: 2, USD: 2,

	CLP: 0, JPY: 0, KRW: 0, VND: 0,

	BHD: 3, JOD: 3, KWD: 3, OMR: 3, TND: 3,
}

// Exponent returns the decimal exponent for c, or an error for currencies
// outside the supported set.
func (c Currency) Exponent() (int32, error) {
	exp, ok := exponents[c]
	if !ok {
		return 0, fmt.Errorf("unknown exponent for currency %q", c)
	}
	return exp, nil
}

func (c Currency) String() string { return string(c) }

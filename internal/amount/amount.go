// Package amount holds the canonical minor-unit amount type and the
// converters that translate it into the representations payment processors
// expect on the wire. The minor-unit integer is the single source of truth;
// every derived representation is produced with exact decimal arithmetic.
package amount

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrConversion wraps every failure produced by a Convertor so callers can
// classify it without inspecting message text.
var ErrConversion = errors.New("amount conversion failed")

// MinorUnit is the canonical amount in the currency's smallest unit
// (cents for USD, yen for JPY, fils for BHD).
type MinorUnit int64

// StringMinorUnit is the minor-unit amount rendered as a decimal string,
// e.g. "1000" for USD 10.00.
type StringMinorUnit string

// StringMajorUnit is the major-unit amount rendered as a decimal string with
// the currency's full exponent, e.g. "10.00" for 1000 USD minor units.
type StringMajorUnit string

// FloatMajorUnit is the major-unit amount as a float. Only produced for
// processors that insist on numeric JSON amounts; never converted back into
// the canonical value through float arithmetic alone.
type FloatMajorUnit float64

// Convertor converts the canonical minor-unit amount into one wire
// representation and back. Convert must be exact; ConvertBack must reject
// values that do not round-trip to an integral minor-unit amount.
type Convertor[T any] interface {
	Convert(v MinorUnit, currency Currency) (T, error)
	ConvertBack(v T, currency Currency) (MinorUnit, error)
}

func conversionErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConversion, fmt.Sprintf(format, args...))
}

func majorDecimal(v MinorUnit, currency Currency) (decimal.Decimal, int32, error) {
	exp, err := currency.Exponent()
	if err != nil {
		return decimal.Decimal{}, 0, conversionErr("%v", err)
	}
	return decimal.NewFromInt(int64(v)).Shift(-exp), exp, nil
}

func minorFromMajor(d decimal.Decimal, currency Currency) (MinorUnit, error) {
	exp, err := currency.Exponent()
	if err != nil {
		return 0, conversionErr("%v", err)
	}
	shifted := d.Shift(exp)
	if !shifted.IsInteger() {
		return 0, conversionErr("amount %s has more precision than %s allows", d, currency)
	}
	if !shifted.BigInt().IsInt64() {
		return 0, conversionErr("amount %s overflows minor units for %s", d, currency)
	}
	return MinorUnit(shifted.IntPart()), nil
}

// StringMajorUnitConvertor renders amounts like "10.00" (USD) or "1000" (JPY).
type StringMajorUnitConvertor struct{}

func (StringMajorUnitConvertor) Convert(v MinorUnit, currency Currency) (StringMajorUnit, error) {
	d, exp, err := majorDecimal(v, currency)
	if err != nil {
		return "", err
	}
	return StringMajorUnit(d.StringFixed(exp)), nil
}

func (StringMajorUnitConvertor) ConvertBack(v StringMajorUnit, currency Currency) (MinorUnit, error) {
	d, err := decimal.NewFromString(string(v))
	if err != nil {
		return 0, conversionErr("parsing %q: %v", v, err)
	}
	return minorFromMajor(d, currency)
}

// StringMinorUnitConvertor renders the minor-unit integer as a string.
type StringMinorUnitConvertor struct{}

func (StringMinorUnitConvertor) Convert(v MinorUnit, currency Currency) (StringMinorUnit, error) {
	if _, err := currency.Exponent(); err != nil {
		return "", conversionErr("%v", err)
	}
	return StringMinorUnit(decimal.NewFromInt(int64(v)).String()), nil
}

func (StringMinorUnitConvertor) ConvertBack(v StringMinorUnit, currency Currency) (MinorUnit, error) {
	if _, err := currency.Exponent(); err != nil {
		return 0, conversionErr("%v", err)
	}
	d, err := decimal.NewFromString(string(v))
	if err != nil {
		return 0, conversionErr("parsing %q: %v", v, err)
	}
	if !d.IsInteger() {
		return 0, conversionErr("minor-unit amount %q is not integral", v)
	}
	if !d.BigInt().IsInt64() {
		return 0, conversionErr("minor-unit amount %q overflows int64", v)
	}
	return MinorUnit(d.IntPart()), nil
}

// FloatMajorUnitConvertor produces numeric major-unit amounts. The decimal
// intermediate keeps the string paths exact; the final float is whatever the
// wire format forces on us.
type FloatMajorUnitConvertor struct{}

func (FloatMajorUnitConvertor) Convert(v MinorUnit, currency Currency) (FloatMajorUnit, error) {
	d, _, err := majorDecimal(v, currency)
	if err != nil {
		return 0, err
	}
	f, _ := d.Float64()
	return FloatMajorUnit(f), nil
}

func (FloatMajorUnitConvertor) ConvertBack(v FloatMajorUnit, currency Currency) (MinorUnit, error) {
	return minorFromMajor(decimal.NewFromFloat(float64(v)), currency)
}

// MinorUnitConvertor is the identity conversion for processors that already
// take minor units.
type MinorUnitConvertor struct{}

func (MinorUnitConvertor) Convert(v MinorUnit, currency Currency) (MinorUnit, error) {
	if _, err := currency.Exponent(); err != nil {
		return 0, conversionErr("%v", err)
	}
	return v, nil
}

func (MinorUnitConvertor) ConvertBack(v MinorUnit, currency Currency) (MinorUnit, error) {
	if _, err := currency.Exponent(); err != nil {
		return 0, conversionErr("%v", err)
	}
	return v, nil
}

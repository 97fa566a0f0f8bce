package amount

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringMajorUnitConvert(t *testing.T) {
	conv := StringMajorUnitConvertor{}

	cases := []struct {
		name     string
		value    MinorUnit
		currency Currency
		want     StringMajorUnit
	}{
		{"usd cents", 1000, USD, "10.00"},
		{"usd single cent", 1, USD, "0.01"},
		{"usd zero", 0, USD, "0.00"},
		{"jpy zero exponent", 1000, JPY, "1000"},
		{"bhd three decimals", 1001, BHD, "1.001"},
		{"negative refund delta", -250, EUR, "-2.50"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := conv.Convert(tc.value, tc.currency)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestStringMajorUnitRoundTrip(t *testing.T) {
	conv := StringMajorUnitConvertor{}
	for _, currency := range []Currency{USD, JPY, BHD, INR, KRW} {
		for _, v := range []MinorUnit{0, 1, 99, 100, 1000, 123456789, 1<<53 + 1} {
			wire, err := conv.Convert(v, currency)
			require.NoError(t, err)
			back, err := conv.ConvertBack(wire, currency)
			require.NoError(t, err)
			assert.Equal(t, v, back, "currency %s value %d", currency, v)
		}
	}
}

func TestStringMajorUnitConvertBackRejectsExcessPrecision(t *testing.T) {
	conv := StringMajorUnitConvertor{}

	_, err := conv.ConvertBack("10.001", USD)
	require.ErrorIs(t, err, ErrConversion)

	_, err = conv.ConvertBack("10.5", JPY)
	require.ErrorIs(t, err, ErrConversion)
}

func TestUnknownCurrencyFails(t *testing.T) {
	_, err := StringMajorUnitConvertor{}.Convert(1000, Currency("XXX"))
	require.ErrorIs(t, err, ErrConversion)

	_, err = StringMinorUnitConvertor{}.Convert(1000, Currency("ZZZ"))
	require.ErrorIs(t, err, ErrConversion)

	_, err = MinorUnitConvertor{}.Convert(1000, Currency(""))
	require.ErrorIs(t, err, ErrConversion)
}

func TestStringMinorUnitConvertor(t *testing.T) {
	conv := StringMinorUnitConvertor{}

	wire, err := conv.Convert(1000, USD)
	require.NoError(t, err)
	assert.Equal(t, StringMinorUnit("1000"), wire)

	back, err := conv.ConvertBack("1000", USD)
	require.NoError(t, err)
	assert.Equal(t, MinorUnit(1000), back)

	_, err = conv.ConvertBack("10.5", USD)
	require.ErrorIs(t, err, ErrConversion)

	_, err = conv.ConvertBack("not-a-number", USD)
	require.ErrorIs(t, err, ErrConversion)

	_, err = conv.ConvertBack("92233720368547758080", USD)
	require.ErrorIs(t, err, ErrConversion)
}

func TestFloatMajorUnitConvertor(t *testing.T) {
	conv := FloatMajorUnitConvertor{}

	wire, err := conv.Convert(1050, USD)
	require.NoError(t, err)
	assert.InDelta(t, 10.50, float64(wire), 1e-9)

	back, err := conv.ConvertBack(10.50, USD)
	require.NoError(t, err)
	assert.Equal(t, MinorUnit(1050), back)

	_, err = conv.ConvertBack(10.505, USD)
	require.ErrorIs(t, err, ErrConversion)
}

func TestMinorUnitConvertorIdentity(t *testing.T) {
	conv := MinorUnitConvertor{}

	wire, err := conv.Convert(777, JPY)
	require.NoError(t, err)
	assert.Equal(t, MinorUnit(777), wire)

	back, err := conv.ConvertBack(wire, JPY)
	require.NoError(t, err)
	assert.Equal(t, MinorUnit(777), back)
}

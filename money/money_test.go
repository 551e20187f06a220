package money_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyfare/booking-engine/money"
)

func TestAmount_Arithmetic(t *testing.T) {
	a := money.New(100.10)
	b := money.New(0.20)

	assert.True(t, a.Add(b).Equal(money.New(100.30)), "decimal addition must be exact")
	assert.True(t, a.Sub(a).IsZero())
	assert.True(t, a.Neg().IsNegative())
}

func TestAmount_Quantize(t *testing.T) {
	a := money.New(99.999)
	assert.Equal(t, "100.00", a.Quantize().String())

	b := money.New(75.125)
	assert.Equal(t, "75.13", b.Quantize().String())
}

func TestAmount_FromString(t *testing.T) {
	a, err := money.FromString("1234.56")
	require.NoError(t, err)
	assert.Equal(t, "1234.56", a.String())

	_, err = money.FromString("not-a-number")
	assert.Error(t, err)
}

func TestMustParse(t *testing.T) {
	assert.Equal(t, "42.50", money.MustParse("42.50").String())

	assert.Panics(t, func() { money.MustParse("not-a-number") })
	assert.Panics(t, func() { money.MustParse("") })
}

func TestAmount_JSONRoundTrip(t *testing.T) {
	a := money.New(550.75)

	data, err := json.Marshal(a)
	require.NoError(t, err)
	assert.Equal(t, `"550.75"`, string(data))

	var back money.Amount
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, a.Equal(back))
}

func TestPct(t *testing.T) {
	adult := money.New(1000)
	child := adult.Mul(money.Pct(75))
	assert.Equal(t, "750.00", child.Quantize().String())
}

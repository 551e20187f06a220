/*
Package money provides the monetary amount type used across the engine.

PURPOSE:
  Every fare, balance, and ledger delta in the system is a money.Amount.
  Amounts wrap decimal.Decimal so that fare arithmetic and ledger sums are
  exact - binary floats must never touch a wallet balance.

DESIGN:
  - Single currency. The engine does not do multi-currency ledgers; the
    currency code lives in configuration and travels with API payloads only.
  - Displayed/stored totals are quantized to 2 decimal places.
  - Amounts are values: all operations return new Amounts.
*/
package money

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// Amount is an exact monetary quantity.
type Amount struct {
	Value decimal.Decimal
}

func New(value float64) Amount {
	return Amount{Value: decimal.NewFromFloat(value)}
}

func FromInt(value int64) Amount {
	return Amount{Value: decimal.NewFromInt(value)}
}

// FromString parses a decimal string ("1234.50").
func FromString(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, err
	}
	return Amount{Value: d}, nil
}

// MustParse parses a decimal string and panics on failure. For literals
// and fixtures; parse untrusted or stored input with FromString.
func MustParse(s string) Amount {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic("money: cannot parse amount " + strconv.Quote(s) + ": " + err.Error())
	}
	return Amount{Value: d}
}

func Zero() Amount { return Amount{Value: decimal.Zero} }

func (a Amount) Add(b Amount) Amount          { return Amount{Value: a.Value.Add(b.Value)} }
func (a Amount) Sub(b Amount) Amount          { return Amount{Value: a.Value.Sub(b.Value)} }
func (a Amount) Mul(s decimal.Decimal) Amount { return Amount{Value: a.Value.Mul(s)} }
func (a Amount) Neg() Amount                  { return Amount{Value: a.Value.Neg()} }

func (a Amount) IsZero() bool            { return a.Value.IsZero() }
func (a Amount) IsNegative() bool        { return a.Value.IsNegative() }
func (a Amount) IsPositive() bool        { return a.Value.IsPositive() }
func (a Amount) Equal(b Amount) bool     { return a.Value.Equal(b.Value) }
func (a Amount) GreaterThan(b Amount) bool { return a.Value.GreaterThan(b.Value) }
func (a Amount) LessThan(b Amount) bool    { return a.Value.LessThan(b.Value) }

// Quantize rounds to 2 decimal places (bankers' totals, receipts, fares).
func (a Amount) Quantize() Amount {
	return Amount{Value: a.Value.Round(2)}
}

func (a Amount) String() string { return a.Value.StringFixed(2) }

// MarshalJSON encodes the amount as a decimal string, never a float.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.Value.String() + `"`), nil
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return err
	}
	a.Value = d
	return nil
}

// Pct returns a decimal scalar for a percentage (75 -> 0.75).
func Pct(p float64) decimal.Decimal {
	return decimal.NewFromFloat(p).Div(decimal.NewFromInt(100))
}

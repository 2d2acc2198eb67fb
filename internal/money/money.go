// Package money holds the value types used for gratuity splits.  A Percent
// and an Amount are two views of the same share; both are backed by
// shopspring/decimal so that repeated conversions do not accumulate binary
// floating point drift.  Constructors reject NaN, infinities and values
// outside the allowed range, so a zero value never stands in for a broken
// input.
package money

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

// Tolerances used when comparing derived quantities.  Percent conversions
// are lossy, so equality checks always go through these.
var (
	PercentEpsilon = decimal.New(1, -6) // 0.000001 percentage points
	AmountEpsilon  = decimal.New(1, -2) // one cent
)

var (
	hundred = decimal.NewFromInt(100)

	// ErrNotFinite is returned for NaN or infinite inputs.
	ErrNotFinite = errors.New("value is not a finite number")
	// ErrOutOfRange is returned when a value lies outside its domain.
	ErrOutOfRange = errors.New("value out of range")
)

// Percent is a share of a pool expressed in percentage points, in [0,100].
type Percent struct {
	v decimal.Decimal
}

// Amount is a non-negative monetary amount in the pool's currency.
type Amount struct {
	v decimal.Decimal
}

// ZeroPercent and FullPercent are the bounds of the percent domain.
var (
	ZeroPercent = Percent{v: decimal.Zero}
	FullPercent = Percent{v: hundred}
	ZeroAmount  = Amount{v: decimal.Zero}
)

// NewPercent validates f and returns it as a Percent.
func NewPercent(f float64) (Percent, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Percent{}, fmt.Errorf("percent: %w", ErrNotFinite)
	}
	if f < 0 || f > 100 {
		return Percent{}, fmt.Errorf("percent %v: %w", f, ErrOutOfRange)
	}
	return Percent{v: decimal.NewFromFloat(f)}, nil
}

// MustPercent is NewPercent for constants and tests.
func MustPercent(f float64) Percent {
	p, err := NewPercent(f)
	if err != nil {
		panic(err)
	}
	return p
}

// PercentFromDecimal wraps d after snapping it into [0,100].  It is meant
// for results of internal arithmetic, where a value such as -1e-17 is
// rounding residue rather than bad input.
func PercentFromDecimal(d decimal.Decimal) Percent {
	if d.IsNegative() {
		return ZeroPercent
	}
	if d.GreaterThan(hundred) {
		return FullPercent
	}
	return Percent{v: d}
}

// Decimal returns the underlying decimal value.
func (p Percent) Decimal() decimal.Decimal { return p.v }

// Float64 returns the nearest float64.
func (p Percent) Float64() float64 { return p.v.InexactFloat64() }

// IsZero reports whether p is exactly zero.
func (p Percent) IsZero() bool { return p.v.IsZero() }

// Add returns p+q, snapped into the percent domain.
func (p Percent) Add(q Percent) Percent { return PercentFromDecimal(p.v.Add(q.v)) }

// Sub returns p-q, snapped into the percent domain.
func (p Percent) Sub(q Percent) Percent { return PercentFromDecimal(p.v.Sub(q.v)) }

// Of returns the amount this percent represents out of pool.
func (p Percent) Of(pool Amount) Amount {
	return AmountFromDecimal(p.v.Mul(pool.v).Div(hundred))
}

// ApproxEqual compares two percents within PercentEpsilon.
func (p Percent) ApproxEqual(q Percent) bool {
	return p.v.Sub(q.v).Abs().LessThanOrEqual(PercentEpsilon)
}

// Clamp limits p to [0,max].
func (p Percent) Clamp(max Percent) Percent {
	if p.v.GreaterThan(max.v) {
		return max
	}
	return p
}

// String renders the percent with four decimals.
func (p Percent) String() string { return p.v.StringFixed(4) }

// MarshalJSON encodes the percent as a JSON number rounded to 6 places.
func (p Percent) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.v.Round(6).InexactFloat64())
}

// UnmarshalJSON decodes and validates a JSON number.
func (p *Percent) UnmarshalJSON(b []byte) error {
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	v, err := NewPercent(f)
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// NewAmount validates f and returns it as an Amount.
func NewAmount(f float64) (Amount, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Amount{}, fmt.Errorf("amount: %w", ErrNotFinite)
	}
	if f < 0 {
		return Amount{}, fmt.Errorf("amount %v: %w", f, ErrOutOfRange)
	}
	return Amount{v: decimal.NewFromFloat(f)}, nil
}

// MustAmount is NewAmount for constants and tests.
func MustAmount(f float64) Amount {
	a, err := NewAmount(f)
	if err != nil {
		panic(err)
	}
	return a
}

// AmountFromDecimal wraps d, snapping negative residue to zero.
func AmountFromDecimal(d decimal.Decimal) Amount {
	if d.IsNegative() {
		return ZeroAmount
	}
	return Amount{v: d}
}

// Decimal returns the underlying decimal value.
func (a Amount) Decimal() decimal.Decimal { return a.v }

// Float64 returns the nearest float64.
func (a Amount) Float64() float64 { return a.v.InexactFloat64() }

// IsZero reports whether a is exactly zero.
func (a Amount) IsZero() bool { return a.v.IsZero() }

// Add returns a+b.
func (a Amount) Add(b Amount) Amount { return Amount{v: a.v.Add(b.v)} }

// Sub returns a-b, floored at zero.
func (a Amount) Sub(b Amount) Amount { return AmountFromDecimal(a.v.Sub(b.v)) }

// GreaterThan reports whether a > b.
func (a Amount) GreaterThan(b Amount) bool { return a.v.GreaterThan(b.v) }

// Clamp limits a to [0,max].
func (a Amount) Clamp(max Amount) Amount {
	if a.v.GreaterThan(max.v) {
		return max
	}
	return a
}

// PercentOf returns the share a represents of pool.  An empty pool has
// no meaningful share, so the result is zero.
func (a Amount) PercentOf(pool Amount) Percent {
	if pool.v.IsZero() {
		return ZeroPercent
	}
	return PercentFromDecimal(a.v.Mul(hundred).Div(pool.v))
}

// ApproxEqual compares two amounts within AmountEpsilon.
func (a Amount) ApproxEqual(b Amount) bool {
	return a.v.Sub(b.v).Abs().LessThanOrEqual(AmountEpsilon)
}

// String renders the amount with two decimals.
func (a Amount) String() string { return a.v.StringFixed(2) }

// MarshalJSON encodes the amount as a JSON number rounded to cents.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.v.Round(2).InexactFloat64())
}

// UnmarshalJSON decodes and validates a JSON number.
func (a *Amount) UnmarshalJSON(b []byte) error {
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	v, err := NewAmount(f)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// Scan reads a DECIMAL column.  Negative stored values are rejected.
func (a *Amount) Scan(src any) error {
	var d decimal.Decimal
	if err := d.Scan(src); err != nil {
		return err
	}
	if d.IsNegative() {
		return fmt.Errorf("amount %s: %w", d, ErrOutOfRange)
	}
	a.v = d
	return nil
}

// Value writes the amount as an exact decimal string.
func (a Amount) Value() (driver.Value, error) { return a.v.String(), nil }

// SplitCents rounds parts to whole cents so that they add up to total
// rounded to cents.  Each part is floored first; the cents left over go
// to the parts with the largest remainders, earlier parts first on ties.
func SplitCents(total Amount, parts []Amount) []Amount {
	out := make([]Amount, len(parts))
	if len(parts) == 0 {
		return out
	}
	cent := decimal.New(1, -2)
	rem := make([]decimal.Decimal, len(parts))
	sum := decimal.Zero
	for i, p := range parts {
		f := p.v.RoundFloor(2)
		out[i] = Amount{v: f}
		rem[i] = p.v.Sub(f)
		sum = sum.Add(f)
	}
	order := make([]int, len(parts))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(x, y int) bool { return rem[order[x]].GreaterThan(rem[order[y]]) })

	left := total.v.Round(2).Sub(sum).Div(cent).IntPart()
	for k := 0; left > 0; k++ {
		i := order[k%len(order)]
		out[i].v = out[i].v.Add(cent)
		left--
	}
	// Parts summing above total only happens with residue from a ledger
	// that does not close; take the excess from the smallest remainders.
	for left < 0 {
		moved := false
		for k := len(order) - 1; k >= 0 && left < 0; k-- {
			i := order[k]
			if out[i].v.GreaterThanOrEqual(cent) {
				out[i].v = out[i].v.Sub(cent)
				left++
				moved = true
			}
		}
		if !moved {
			break
		}
	}
	return out
}

// SumAmounts adds up amounts.
func SumAmounts(as ...Amount) Amount {
	total := decimal.Zero
	for _, a := range as {
		total = total.Add(a.v)
	}
	return Amount{v: total}
}

// SumPercents adds up percents without snapping, so callers can detect
// totals above 100.
func SumPercents(ps ...Percent) decimal.Decimal {
	total := decimal.Zero
	for _, p := range ps {
		total = total.Add(p.v)
	}
	return total
}

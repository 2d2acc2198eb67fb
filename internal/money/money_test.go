package money

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPercent_RejectsNonFiniteAndOutOfRange(t *testing.T) {
	tests := []struct {
		name    string
		in      float64
		wantErr error
	}{
		{name: "nan", in: math.NaN(), wantErr: ErrNotFinite},
		{name: "inf", in: math.Inf(1), wantErr: ErrNotFinite},
		{name: "negative", in: -0.5, wantErr: ErrOutOfRange},
		{name: "above hundred", in: 100.01, wantErr: ErrOutOfRange},
		{name: "zero", in: 0},
		{name: "hundred", in: 100},
		{name: "fraction", in: 33.3333},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPercent(tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.in, p.Float64(), 1e-9)
		})
	}
}

func TestNewAmount_RejectsNegativeAndNaN(t *testing.T) {
	_, err := NewAmount(math.NaN())
	assert.ErrorIs(t, err, ErrNotFinite)

	_, err = NewAmount(-1)
	assert.ErrorIs(t, err, ErrOutOfRange)

	a, err := NewAmount(12.5)
	require.NoError(t, err)
	assert.Equal(t, "12.50", a.String())
}

func TestPercentOfAndOf_AreInverse(t *testing.T) {
	pool := MustAmount(250)
	p := MustPercent(12)

	amt := p.Of(pool)
	assert.InDelta(t, 30, amt.Float64(), 1e-9)
	assert.True(t, amt.PercentOf(pool).ApproxEqual(p))
}

func TestPercentOf_EmptyPool(t *testing.T) {
	assert.True(t, MustAmount(10).PercentOf(ZeroAmount).IsZero())
}

func TestPercentFromDecimal_SnapsResidue(t *testing.T) {
	assert.True(t, PercentFromDecimal(MustPercent(1).Decimal().Neg()).IsZero())
	assert.Equal(t, FullPercent, PercentFromDecimal(MustPercent(100).Decimal().Add(MustPercent(1).Decimal())))
}

func TestJSONRoundTripValidates(t *testing.T) {
	var p Percent
	assert.Error(t, json.Unmarshal([]byte(`150`), &p))
	require.NoError(t, json.Unmarshal([]byte(`45`), &p))
	b, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `45`, string(b))

	var a Amount
	assert.Error(t, json.Unmarshal([]byte(`-3`), &a))
}

func TestSplitCents_AddsUpToTotal(t *testing.T) {
	pool := MustAmount(100)
	third := MustPercent(100).Decimal().Div(decimal.NewFromInt(3))
	parts := []Amount{
		AmountFromDecimal(third), AmountFromDecimal(third), AmountFromDecimal(third),
	}
	got := SplitCents(pool, parts)
	require.Len(t, got, 3)
	assert.Equal(t, "33.34", got[0].String(), "first of equal remainders takes the spare cent")
	assert.Equal(t, "33.33", got[1].String())
	assert.Equal(t, "33.33", got[2].String())
	assert.True(t, SumAmounts(got...).Decimal().Equal(pool.Decimal()))

	// Seven equal shares of 10.00: 1.428571.. each, three spare cents.
	seventh := MustAmount(10).Decimal().Div(decimal.NewFromInt(7))
	parts = make([]Amount, 7)
	for i := range parts {
		parts[i] = AmountFromDecimal(seventh)
	}
	got = SplitCents(MustAmount(10), parts)
	assert.Equal(t, "10.00", SumAmounts(got...).String())
	for _, a := range got {
		assert.Contains(t, []string{"1.42", "1.43"}, a.String())
	}

	assert.Empty(t, SplitCents(pool, nil))
}

func TestSplitCents_LargestRemainderWins(t *testing.T) {
	got := SplitCents(MustAmount(1), []Amount{MustAmount(0.333), MustAmount(0.667)})
	assert.Equal(t, "0.33", got[0].String())
	assert.Equal(t, "0.67", got[1].String())
}

func TestAmountScanAndValue(t *testing.T) {
	var a Amount
	require.NoError(t, a.Scan([]byte("12.50")))
	assert.Equal(t, "12.50", a.String())
	assert.Error(t, a.Scan("-1"))

	v, err := MustAmount(7.25).Value()
	require.NoError(t, err)
	assert.Equal(t, "7.25", v)
}


package model

import (
    "encoding/json"
    "testing"

    "github.com/shopspring/decimal"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/tour-backoffice/internal/money"
)

type ledgerJSON struct {
    Pool  decimal.Decimal `json:"pool"`
    Guide struct {
        Amount decimal.Decimal `json:"amount"`
    } `json:"guide"`
    Op struct {
        Amount  decimal.Decimal `json:"amount"`
        Members []struct {
            Amount decimal.Decimal `json:"amount"`
        } `json:"members"`
    } `json:"op"`
}

func TestLedgerJSON_CentsClose(t *testing.T) {
    pool := money.MustAmount(10.01)
    guide := money.MustPercent(90)
    op := money.MustPercent(10)
    members := make([]Payee, 7)
    for i := range members {
        pct := money.PercentFromDecimal(op.Decimal().Div(decimal.NewFromInt(7)))
        members[i] = Payee{Key: PayeeKey{Role: RoleOp, MemberID: string(rune('a' + i))}, Percent: pct, Amount: pct.Of(pool)}
    }
    l := AllocationLedger{
        TourID: "T1",
        Pool:   pool,
        Guide:  Payee{Key: PayeeKey{Role: RoleGuide}, Percent: guide, Amount: guide.Of(pool)},
        Op:     OpPool{Percent: op, Amount: op.Of(pool), Members: members},
    }

    b, err := json.Marshal(l)
    require.NoError(t, err)
    var got ledgerJSON
    require.NoError(t, json.Unmarshal(b, &got))

    assert.True(t, got.Guide.Amount.Add(got.Op.Amount).Equal(got.Pool), "top level: %s", b)
    sum := decimal.Zero
    for _, m := range got.Op.Members {
        sum = sum.Add(m.Amount)
        assert.True(t, m.Amount.Equal(m.Amount.Round(2)))
    }
    assert.True(t, sum.Equal(got.Op.Amount), "members: %s", b)

    // the ledger itself is not touched
    assert.False(t, l.Op.Members[0].Amount.Decimal().Equal(l.Op.Members[0].Amount.Decimal().Round(2)))
}

func TestReservationSetEqual(t *testing.T) {
    assert.True(t, NewReservationSet("a", "b").Equal(NewReservationSet("b", "a")))
    assert.True(t, NewReservationSet().Equal(nil))
    assert.False(t, NewReservationSet("a").Equal(NewReservationSet("b")))
    assert.False(t, NewReservationSet("a").Equal(NewReservationSet("a", "b")))
}

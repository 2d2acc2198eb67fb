// Package allocation splits a tour's prepaid gratuity pool between the
// guide, an optional assistant and the OP (back-office) members.
//
// Every operation in this file is a pure function from a valid ledger and
// one edit to a new valid ledger.  Percents are the source of truth inside
// an operation; amounts are derived from them once at the end, and the
// last party of each group takes whatever is left so the totals close
// exactly.
package allocation

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/tour-backoffice/internal/model"
	"github.com/iliyamo/tour-backoffice/internal/money"
)

var hundred = decimal.NewFromInt(100)

// Default splits applied by Initialize.
var (
	DefaultGuideWithAssistant = decimal.NewFromInt(45)
	DefaultAssistant          = decimal.NewFromInt(45)
	DefaultGuideSolo          = decimal.NewFromInt(90)
	DefaultOp                 = decimal.NewFromInt(10)
)

// tops holds the three top-level percents while an edit is computed.
type tops struct {
	guide, assistant, op decimal.Decimal
	hasAssistant         bool
}

func topsOf(l model.AllocationLedger) tops {
	t := tops{guide: l.Guide.Percent.Decimal(), op: l.Op.Percent.Decimal()}
	if l.Assistant != nil {
		t.hasAssistant = true
		t.assistant = l.Assistant.Percent.Decimal()
	}
	return t
}

func (t tops) keys() []model.TopKey {
	if t.hasAssistant {
		return []model.TopKey{model.TopGuide, model.TopAssistant, model.TopOp}
	}
	return []model.TopKey{model.TopGuide, model.TopOp}
}

func (t tops) get(k model.TopKey) decimal.Decimal {
	switch k {
	case model.TopGuide:
		return t.guide
	case model.TopAssistant:
		return t.assistant
	}
	return t.op
}

func (t *tops) set(k model.TopKey, v decimal.Decimal) {
	switch k {
	case model.TopGuide:
		t.guide = v
	case model.TopAssistant:
		t.assistant = v
	default:
		t.op = v
	}
}

// Initialize returns the default split for tour: 45/45/10 with an
// assistant, 90/10 without.  OP starts with no members.
func Initialize(tour model.TourInstance, pool money.Amount) model.AllocationLedger {
	t := tops{guide: DefaultGuideSolo, op: DefaultOp}
	if tour.HasAssistant() {
		t = tops{guide: DefaultGuideWithAssistant, assistant: DefaultAssistant, op: DefaultOp, hasAssistant: true}
	}
	return assemble(model.AllocationLedger{TourID: tour.ID, Pool: pool}, t, nil, nil)
}

// Rebase recomputes the ledger for a new pool.  Percents are kept and
// every amount is re-derived.
func Rebase(l model.AllocationLedger, pool money.Amount) (model.AllocationLedger, error) {
	base := l.Clone()
	base.Pool = pool
	ids, pcts := memberPercents(l)
	return finish(l, assemble(base, topsOf(l), ids, pcts))
}

// SetTopPercent sets one top-level share.  The other shares absorb the
// remainder in proportion to their current weights, or evenly when they
// are all zero.  OP members are rescaled with the OP share.
func SetTopPercent(l model.AllocationLedger, key model.TopKey, pct float64) (model.AllocationLedger, error) {
	if err := checkTopKey(l, key); err != nil {
		return l, err
	}
	v, err := clamp("percent", pct, hundred)
	if err != nil {
		return l, err
	}

	t := topsOf(l)
	rest := hundred.Sub(v)
	others := otherKeys(t, key)
	weight := decimal.Zero
	for _, k := range others {
		weight = weight.Add(t.get(k))
	}
	even := rest.Div(decimal.NewFromInt(int64(len(others))))
	for _, k := range others {
		if weight.IsZero() {
			t.set(k, even)
		} else {
			t.set(k, rest.Mul(t.get(k)).Div(weight))
		}
	}
	t.set(key, v)

	ids, _ := memberPercents(l)
	return finish(l, assemble(l, t, ids, rescaleMembers(l, t.op)))
}

// SetTopAmount sets one top-level share in money.  When the new total
// would exceed the pool every top-level share shrinks by the same factor.
// When it falls short the other shares absorb the gap in proportion to
// their current amounts, or evenly when they are all zero.
func SetTopAmount(l model.AllocationLedger, key model.TopKey, amt float64) (model.AllocationLedger, error) {
	if err := checkTopKey(l, key); err != nil {
		return l, err
	}
	pool := l.Pool.Decimal()
	v, err := clamp("amount", amt, pool)
	if err != nil {
		return l, err
	}
	if pool.IsZero() {
		return l.Clone(), nil
	}

	t := topsOf(l)
	amounts := map[model.TopKey]decimal.Decimal{
		model.TopGuide: l.Guide.Amount.Decimal(),
		model.TopOp:    l.Op.Amount.Decimal(),
	}
	if l.Assistant != nil {
		amounts[model.TopAssistant] = l.Assistant.Amount.Decimal()
	}
	amounts[key] = v

	sum := decimal.Zero
	for _, k := range t.keys() {
		sum = sum.Add(amounts[k])
	}
	switch {
	case sum.GreaterThan(pool):
		factor := pool.Div(sum)
		for _, k := range t.keys() {
			amounts[k] = amounts[k].Mul(factor)
		}
	case sum.LessThan(pool):
		gap := pool.Sub(sum)
		others := otherKeys(t, key)
		weight := decimal.Zero
		for _, k := range others {
			weight = weight.Add(amounts[k])
		}
		for _, k := range others {
			if weight.IsZero() {
				amounts[k] = amounts[k].Add(gap.Div(decimal.NewFromInt(int64(len(others)))))
			} else {
				amounts[k] = amounts[k].Add(gap.Mul(amounts[k]).Div(weight))
			}
		}
	}

	for _, k := range t.keys() {
		t.set(k, amounts[k].Mul(hundred).Div(pool))
	}
	ids, _ := memberPercents(l)
	return finish(l, assemble(l, t, ids, rescaleMembers(l, t.op)))
}

// ToggleOpMember adds or removes an OP member.  Either way the OP share is
// re-split evenly across whoever remains; with nobody left the share stays
// reserved but unassigned.
func ToggleOpMember(l model.AllocationLedger, memberID string, included bool) (model.AllocationLedger, error) {
	if memberID == "" {
		return l, invalid("member_id", "must not be empty")
	}
	ids, _ := memberPercents(l)
	idx := l.Op.MemberIndex(memberID)
	switch {
	case included && idx >= 0:
		return l.Clone(), nil
	case included:
		ids = append(ids, memberID)
	case idx < 0:
		return l, invalid("member_id", "%q is not an OP member", memberID)
	default:
		ids = append(ids[:idx:idx], ids[idx+1:]...)
	}
	return finish(l, assemble(l, topsOf(l), ids, evenSplit(l.Op.Percent.Decimal(), len(ids))))
}

// SetOpMemberPercent sets one member's percent within [0, OP percent].
// The other members split what is left evenly.  A sole member always
// holds the whole OP share.
func SetOpMemberPercent(l model.AllocationLedger, memberID string, pct float64) (model.AllocationLedger, error) {
	idx := l.Op.MemberIndex(memberID)
	if idx < 0 {
		return l, invalid("member_id", "%q is not an OP member", memberID)
	}
	opPct := l.Op.Percent.Decimal()
	v, err := clamp("percent", pct, opPct)
	if err != nil {
		return l, err
	}
	ids, _ := memberPercents(l)
	return finish(l, assemble(l, topsOf(l), ids, pinned(len(ids), idx, v, opPct)))
}

// SetOpMemberAmount is SetOpMemberPercent in money: the amount is clamped
// to [0, OP amount] and the other members split the rest evenly.
func SetOpMemberAmount(l model.AllocationLedger, memberID string, amt float64) (model.AllocationLedger, error) {
	idx := l.Op.MemberIndex(memberID)
	if idx < 0 {
		return l, invalid("member_id", "%q is not an OP member", memberID)
	}
	opAmt := l.Op.Amount.Decimal()
	v, err := clamp("amount", amt, opAmt)
	if err != nil {
		return l, err
	}
	pool := l.Pool.Decimal()
	if pool.IsZero() {
		return l.Clone(), nil
	}
	ids, _ := memberPercents(l)
	amounts := pinned(len(ids), idx, v, opAmt)
	pcts := make([]decimal.Decimal, len(amounts))
	for i, a := range amounts {
		pcts[i] = a.Mul(hundred).Div(pool)
	}
	return finish(l, assemble(l, topsOf(l), ids, pcts))
}

// Validate checks that the ledger closes and that every percent agrees
// with its amount.
func Validate(l model.AllocationLedger) error {
	pool := l.Pool
	top := []model.Payee{l.Guide}
	if l.Assistant != nil {
		top = append(top, *l.Assistant)
	}

	pctSum := money.SumPercents(l.Op.Percent)
	amtSum := l.Op.Amount
	for _, p := range top {
		pctSum = pctSum.Add(p.Percent.Decimal())
		amtSum = amtSum.Add(p.Amount)
	}
	if pctSum.Sub(hundred).Abs().GreaterThan(money.PercentEpsilon) {
		return &InvariantViolation{Rule: "percent-closure", Detail: fmt.Sprintf("top-level percents sum to %s", pctSum.StringFixed(6))}
	}
	if !amtSum.ApproxEqual(pool) {
		return &InvariantViolation{Rule: "amount-closure", Detail: fmt.Sprintf("top-level amounts sum to %s, pool is %s", amtSum, pool)}
	}

	op := model.Payee{Key: model.PayeeKey{Role: model.RoleOp}, Percent: l.Op.Percent, Amount: l.Op.Amount}
	for _, p := range append(append(top, op), l.Op.Members...) {
		if !p.Percent.Of(pool).ApproxEqual(p.Amount) {
			return &InvariantViolation{Rule: "agreement", Detail: fmt.Sprintf("%s%s holds %s%% but %s of %s",
				p.Key.Role, memberSuffix(p.Key), p.Percent, p.Amount, pool)}
		}
	}

	if len(l.Op.Members) == 0 {
		return nil
	}
	mPct := decimal.Zero
	mAmt := money.ZeroAmount
	for _, m := range l.Op.Members {
		mPct = mPct.Add(m.Percent.Decimal())
		mAmt = mAmt.Add(m.Amount)
	}
	if mPct.Sub(l.Op.Percent.Decimal()).Abs().GreaterThan(money.PercentEpsilon) {
		return &InvariantViolation{Rule: "op-percent", Detail: fmt.Sprintf("members hold %s%%, OP share is %s%%", mPct.StringFixed(6), l.Op.Percent)}
	}
	if !mAmt.ApproxEqual(l.Op.Amount) {
		return &InvariantViolation{Rule: "op-amount", Detail: fmt.Sprintf("members hold %s, OP share is %s", mAmt, l.Op.Amount)}
	}
	return nil
}

// assemble builds a ledger from top-level and member percents.  The OP
// share takes whatever the guide and assistant leave, and the last member
// takes whatever the others leave, in both percent and money.
func assemble(base model.AllocationLedger, t tops, ids []string, pcts []decimal.Decimal) model.AllocationLedger {
	pool := base.Pool
	out := model.AllocationLedger{TourID: base.TourID, Pool: pool, UpdatedAt: base.UpdatedAt}

	g := money.PercentFromDecimal(t.guide)
	out.Guide = model.Payee{Key: model.PayeeKey{Role: model.RoleGuide}, Percent: g, Amount: g.Of(pool)}
	leftPct := money.FullPercent.Sub(g)
	leftAmt := pool.Sub(out.Guide.Amount)

	if t.hasAssistant {
		a := money.PercentFromDecimal(t.assistant).Clamp(leftPct)
		amt := a.Of(pool).Clamp(leftAmt)
		out.Assistant = &model.Payee{Key: model.PayeeKey{Role: model.RoleAssistant}, Percent: a, Amount: amt}
		leftPct = leftPct.Sub(a)
		leftAmt = leftAmt.Sub(amt)
	}
	out.Op = model.OpPool{Percent: leftPct, Amount: leftAmt, Members: []model.Payee{}}

	for i, id := range ids {
		key := model.PayeeKey{Role: model.RoleOp, MemberID: id}
		if i == len(ids)-1 {
			out.Op.Members = append(out.Op.Members, model.Payee{Key: key, Percent: leftPct, Amount: leftAmt})
			break
		}
		p := money.PercentFromDecimal(pcts[i]).Clamp(leftPct)
		amt := p.Of(pool).Clamp(leftAmt)
		out.Op.Members = append(out.Op.Members, model.Payee{Key: key, Percent: p, Amount: amt})
		leftPct = leftPct.Sub(p)
		leftAmt = leftAmt.Sub(amt)
	}
	return out
}

// finish validates next and falls back to prev when it is broken.
func finish(prev, next model.AllocationLedger) (model.AllocationLedger, error) {
	if err := Validate(next); err != nil {
		return prev, err
	}
	return next, nil
}

func checkTopKey(l model.AllocationLedger, key model.TopKey) error {
	switch key {
	case model.TopGuide, model.TopOp:
		return nil
	case model.TopAssistant:
		if l.Assistant == nil {
			return invalid("key", "tour has no assistant")
		}
		return nil
	}
	return invalid("key", "unknown share %q", key)
}

// clamp rejects non-finite input and limits the rest to [0,max].
func clamp(field string, f float64, max decimal.Decimal) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, invalid(field, "%s", money.ErrNotFinite)
	}
	v := decimal.NewFromFloat(f)
	if v.IsNegative() {
		return decimal.Zero, nil
	}
	if v.GreaterThan(max) {
		return max, nil
	}
	return v, nil
}

func otherKeys(t tops, key model.TopKey) []model.TopKey {
	var out []model.TopKey
	for _, k := range t.keys() {
		if k != key {
			out = append(out, k)
		}
	}
	return out
}

func memberPercents(l model.AllocationLedger) ([]string, []decimal.Decimal) {
	ids := make([]string, 0, len(l.Op.Members))
	pcts := make([]decimal.Decimal, 0, len(l.Op.Members))
	for _, m := range l.Op.Members {
		ids = append(ids, m.Key.MemberID)
		pcts = append(pcts, m.Percent.Decimal())
	}
	return ids, pcts
}

// rescaleMembers keeps each member's relative weight under a new OP
// share.  Members that all hold zero are split evenly.
func rescaleMembers(l model.AllocationLedger, op decimal.Decimal) []decimal.Decimal {
	n := len(l.Op.Members)
	old := l.Op.Percent.Decimal()
	if n == 0 || old.IsZero() {
		return evenSplit(op, n)
	}
	out := make([]decimal.Decimal, n)
	for i, m := range l.Op.Members {
		out[i] = m.Percent.Decimal().Mul(op).Div(old)
	}
	return out
}

func evenSplit(total decimal.Decimal, n int) []decimal.Decimal {
	if n == 0 {
		return nil
	}
	share := total.Div(decimal.NewFromInt(int64(n)))
	out := make([]decimal.Decimal, n)
	for i := range out {
		out[i] = share
	}
	return out
}

// pinned returns n shares of total where share idx is v and the others
// split total-v evenly.  With n == 1 the only share is total.
func pinned(n, idx int, v, total decimal.Decimal) []decimal.Decimal {
	if n == 1 {
		return []decimal.Decimal{total}
	}
	out := evenSplit(total.Sub(v), n-1)
	out = append(out[:idx:idx], append([]decimal.Decimal{v}, out[idx:]...)...)
	return out
}

func memberSuffix(k model.PayeeKey) string {
	if k.MemberID == "" {
		return ""
	}
	return "(" + k.MemberID + ")"
}

package model

import (
    "encoding/json"
    "time"

    "github.com/iliyamo/tour-backoffice/internal/money"
)

// PayeeRole identifies which kind of party holds a share of the pool.
type PayeeRole string

const (
    RoleGuide     PayeeRole = "GUIDE"
    RoleAssistant PayeeRole = "ASSISTANT"
    RoleOp        PayeeRole = "OP"
)

// TopKey names one of the three top-level shares of a ledger.  The OP
// sub-pool is edited as a single unit at this level.
type TopKey string

const (
    TopGuide     TopKey = "guide"
    TopAssistant TopKey = "assistant"
    TopOp        TopKey = "op"
)

// PayeeKey identifies a payee within a ledger.  MemberID is only set for
// OP members.
type PayeeKey struct {
    Role     PayeeRole `json:"role"`
    MemberID string    `json:"member_id,omitempty"`
}

// Payee is one party's share of the gratuity pool.  Percent and Amount
// are two views of the same quantity and always agree with the pool.
type Payee struct {
    Key     PayeeKey      `json:"key"`
    Percent money.Percent `json:"percent"`
    Amount  money.Amount  `json:"amount"`
}

// OpPool is the back-office share.  Its percent is fixed while members
// are toggled or edited; with no members the share stays reserved but
// nobody holds it.
type OpPool struct {
    Percent money.Percent `json:"percent"`
    Amount  money.Amount  `json:"amount"`
    Members []Payee       `json:"members"`
}

// MemberIndex returns the position of memberID among the members, or -1.
func (o OpPool) MemberIndex(memberID string) int {
    for i, m := range o.Members {
        if m.Key.MemberID == memberID {
            return i
        }
    }
    return -1
}

// AllocationLedger records how one tour's prepaid gratuity is split.
//
// Fields:
//  TourID    – tour the ledger belongs to.
//  Pool      – total gratuity being split.
//  Guide     – the guide's share.
//  Assistant – the assistant's share, nil when the tour has none.
//  Op        – the back-office sub-pool and its members.
//  UpdatedAt – last time the ledger was persisted.
type AllocationLedger struct {
    TourID    string       `json:"tour_id"`    // tour_allocations.tour_id
    Pool      money.Amount `json:"pool"`       // tour_allocations.pool
    Guide     Payee        `json:"guide"`      // tour_allocations.guide_*
    Assistant *Payee       `json:"assistant"`  // tour_allocations.assistant_* (nullable)
    Op        OpPool       `json:"op"`         // tour_allocations.op_* + tour_allocation_members rows
    UpdatedAt time.Time    `json:"updated_at"` // tour_allocations.updated_at
}

// Clone returns a deep copy so that edits never alias the caller's
// snapshot.
func (l AllocationLedger) Clone() AllocationLedger {
    out := l
    if l.Assistant != nil {
        a := *l.Assistant
        out.Assistant = &a
    }
    if l.Op.Members != nil {
        out.Op.Members = make([]Payee, len(l.Op.Members))
        copy(out.Op.Members, l.Op.Members)
    }
    return out
}

// Leaves returns every payee that actually receives money.
func (l AllocationLedger) Leaves() []Payee {
    out := []Payee{l.Guide}
    if l.Assistant != nil {
        out = append(out, *l.Assistant)
    }
    return append(out, l.Op.Members...)
}

// MarshalJSON renders amounts in whole cents that still close: the top
// level shares add up to the pool and the OP members to the OP amount.
func (l AllocationLedger) MarshalJSON() ([]byte, error) {
    type plain AllocationLedger
    out := plain(l.Clone())

    tops := []money.Amount{l.Guide.Amount}
    if l.Assistant != nil {
        tops = append(tops, l.Assistant.Amount)
    }
    tops = append(tops, l.Op.Amount)
    cents := money.SplitCents(l.Pool, tops)
    out.Guide.Amount = cents[0]
    if out.Assistant != nil {
        out.Assistant.Amount = cents[1]
    }
    out.Op.Amount = cents[len(cents)-1]

    if len(out.Op.Members) > 0 {
        parts := make([]money.Amount, len(out.Op.Members))
        for i, m := range out.Op.Members {
            parts[i] = m.Amount
        }
        for i, a := range money.SplitCents(out.Op.Amount, parts) {
            out.Op.Members[i].Amount = a
        }
    }
    return json.Marshal(out)
}

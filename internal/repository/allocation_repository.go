package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/tour-backoffice/internal/model"
	"github.com/iliyamo/tour-backoffice/internal/money"
)

// AllocationRepo persists gratuity ledgers.  The parent row lives in
// tour_allocations and OP members in tour_allocation_members.
type AllocationRepo struct {
	db *sql.DB
}

// NewAllocationRepo returns a new AllocationRepo bound to the given database.
func NewAllocationRepo(db *sql.DB) *AllocationRepo { return &AllocationRepo{db: db} }

// ledgerRow mirrors tour_allocations.
type ledgerRow struct {
	TourID           string
	Pool             decimal.Decimal
	GuidePercent     decimal.Decimal
	GuideAmount      decimal.Decimal
	HasAssistant     bool
	AssistantPercent decimal.NullDecimal
	AssistantAmount  decimal.NullDecimal
	OpPercent        decimal.Decimal
	OpAmount         decimal.Decimal
	UpdatedAt        time.Time
}

// memberRow mirrors tour_allocation_members.
type memberRow struct {
	MemberID string
	Percent  decimal.Decimal
	Amount   decimal.Decimal
}

// Load returns the ledger for tourID.  found is false when no parent row
// exists.  Member rows that are missing or do not add up to the OP share
// are dropped, so a torn save loads as a ledger with no OP members.
func (r *AllocationRepo) Load(ctx context.Context, tourID string) (model.AllocationLedger, bool, error) {
	var p ledgerRow
	err := r.db.QueryRowContext(ctx,
		`SELECT tour_id, pool, guide_percent, guide_amount, has_assistant, assistant_percent, assistant_amount,
		        op_percent, op_amount, updated_at
		 FROM tour_allocations WHERE tour_id = ?`, tourID,
	).Scan(&p.TourID, &p.Pool, &p.GuidePercent, &p.GuideAmount, &p.HasAssistant, &p.AssistantPercent,
		&p.AssistantAmount, &p.OpPercent, &p.OpAmount, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.AllocationLedger{}, false, nil
		}
		return model.AllocationLedger{}, false, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT member_id, percent, amount FROM tour_allocation_members WHERE tour_id = ? ORDER BY position, member_id`,
		tourID)
	if err != nil {
		return model.AllocationLedger{}, false, err
	}
	defer rows.Close()
	var members []memberRow
	for rows.Next() {
		var m memberRow
		if err := rows.Scan(&m.MemberID, &m.Percent, &m.Amount); err != nil {
			return model.AllocationLedger{}, false, err
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return model.AllocationLedger{}, false, err
	}
	return toLedger(p, members), true, nil
}

// Save writes the parent row first, copies the pool onto the tour's
// prepaid gratuity, and then replaces the member rows.  All of it shares
// one transaction; the parent-first order means members never point at a
// missing ledger.
func (r *AllocationRepo) Save(ctx context.Context, l model.AllocationLedger) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	p := fromLedger(l)
	_, err = tx.ExecContext(ctx,
		`INSERT INTO tour_allocations (tour_id, pool, guide_percent, guide_amount, has_assistant,
		     assistant_percent, assistant_amount, op_percent, op_amount, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE pool = VALUES(pool), guide_percent = VALUES(guide_percent),
		     guide_amount = VALUES(guide_amount), has_assistant = VALUES(has_assistant),
		     assistant_percent = VALUES(assistant_percent), assistant_amount = VALUES(assistant_amount),
		     op_percent = VALUES(op_percent), op_amount = VALUES(op_amount), updated_at = VALUES(updated_at)`,
		p.TourID, p.Pool, p.GuidePercent, p.GuideAmount, p.HasAssistant, p.AssistantPercent,
		p.AssistantAmount, p.OpPercent, p.OpAmount, p.UpdatedAt)
	if err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `UPDATE tours SET prepaid_gratuity = ? WHERE id = ?`, l.Pool, l.TourID); err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM tour_allocation_members WHERE tour_id = ?`, l.TourID); err != nil {
		return err
	}
	if len(l.Op.Members) == 0 {
		return nil
	}
	query := `INSERT INTO tour_allocation_members (tour_id, member_id, position, percent, amount) VALUES `
	args := make([]interface{}, 0, len(l.Op.Members)*5)
	for i, m := range l.Op.Members {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?)"
		args = append(args, l.TourID, m.Key.MemberID, i, m.Percent.Decimal(), m.Amount.Decimal())
	}
	_, err = tx.ExecContext(ctx, query, args...)
	return err
}

func fromLedger(l model.AllocationLedger) ledgerRow {
	p := ledgerRow{
		TourID:       l.TourID,
		Pool:         l.Pool.Decimal(),
		GuidePercent: l.Guide.Percent.Decimal(),
		GuideAmount:  l.Guide.Amount.Decimal(),
		OpPercent:    l.Op.Percent.Decimal(),
		OpAmount:     l.Op.Amount.Decimal(),
		UpdatedAt:    l.UpdatedAt,
	}
	if l.Assistant != nil {
		p.HasAssistant = true
		p.AssistantPercent = decimal.NewNullDecimal(l.Assistant.Percent.Decimal())
		p.AssistantAmount = decimal.NewNullDecimal(l.Assistant.Amount.Decimal())
	}
	return p
}

// toLedger rebuilds a ledger from stored rows.
func toLedger(p ledgerRow, members []memberRow) model.AllocationLedger {
	l := model.AllocationLedger{
		TourID: p.TourID,
		Pool:   money.AmountFromDecimal(p.Pool),
		Guide: model.Payee{
			Key:     model.PayeeKey{Role: model.RoleGuide},
			Percent: money.PercentFromDecimal(p.GuidePercent),
			Amount:  money.AmountFromDecimal(p.GuideAmount),
		},
		Op: model.OpPool{
			Percent: money.PercentFromDecimal(p.OpPercent),
			Amount:  money.AmountFromDecimal(p.OpAmount),
			Members: []model.Payee{},
		},
		UpdatedAt: p.UpdatedAt,
	}
	if p.HasAssistant {
		l.Assistant = &model.Payee{
			Key:     model.PayeeKey{Role: model.RoleAssistant},
			Percent: money.PercentFromDecimal(p.AssistantPercent.Decimal),
			Amount:  money.AmountFromDecimal(p.AssistantAmount.Decimal),
		}
	}

	sum := decimal.Zero
	for _, m := range members {
		sum = sum.Add(m.Percent)
	}
	if len(members) == 0 || sum.Sub(p.OpPercent).Abs().GreaterThan(money.PercentEpsilon) {
		return l
	}
	for _, m := range members {
		l.Op.Members = append(l.Op.Members, model.Payee{
			Key:     model.PayeeKey{Role: model.RoleOp, MemberID: m.MemberID},
			Percent: money.PercentFromDecimal(m.Percent),
			Amount:  money.AmountFromDecimal(m.Amount),
		})
	}
	return l
}

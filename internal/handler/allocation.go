package handler

import (
    "context"
    "net/http"
    "strconv"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/tour-backoffice/internal/model"
    "github.com/iliyamo/tour-backoffice/internal/money"
)

// AllocationService is the part of allocation.Service the HTTP layer uses.
type AllocationService interface {
    Get(ctx context.Context, tourID string, pool *money.Amount) (model.AllocationLedger, error)
    SetPool(ctx context.Context, tourID string, pool money.Amount) (model.AllocationLedger, error)
    SetTopPercent(ctx context.Context, tourID string, key model.TopKey, pct float64) (model.AllocationLedger, error)
    SetTopAmount(ctx context.Context, tourID string, key model.TopKey, amt float64) (model.AllocationLedger, error)
    ToggleOpMember(ctx context.Context, tourID, memberID string, included bool) (model.AllocationLedger, error)
    SetOpMemberPercent(ctx context.Context, tourID, memberID string, pct float64) (model.AllocationLedger, error)
    SetOpMemberAmount(ctx context.Context, tourID, memberID string, amt float64) (model.AllocationLedger, error)
}

// AllocationHandler serves /v1/tours/:id/allocation.
type AllocationHandler struct {
    Alloc AllocationService
}

func NewAllocationHandler(svc AllocationService) *AllocationHandler {
    if svc == nil {
        panic("nil allocation service passed to NewAllocationHandler")
    }
    return &AllocationHandler{Alloc: svc}
}

type poolReq struct {
    Pool *float64 `json:"pool" validate:"required"`
}

// shareReq carries exactly one of Percent or Amount.
type shareReq struct {
    Percent *float64 `json:"percent" validate:"required_without=Amount,excluded_with=Amount"`
    Amount  *float64 `json:"amount" validate:"required_without=Percent,excluded_with=Percent"`
}

type topReq struct {
    Key model.TopKey `json:"key" validate:"required,oneof=guide assistant op"`
    shareReq
}

type toggleReq struct {
    Included *bool `json:"included" validate:"required"`
}

// Get returns the ledger.  With ?pool= a missing ledger is created with
// the default split.
func (h *AllocationHandler) Get(c echo.Context) error {
    var pool *money.Amount
    if raw := strings.TrimSpace(c.QueryParam("pool")); raw != "" {
        f, err := strconv.ParseFloat(raw, 64)
        if err != nil {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid pool"})
        }
        a, err := money.NewAmount(f)
        if err != nil {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid pool"})
        }
        pool = &a
    }
    ctx, cancel := requestCtx(c)
    defer cancel()
    l, err := h.Alloc.Get(ctx, tourID(c), pool)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, l)
}

// SetPool rebases the ledger onto a new pool.
func (h *AllocationHandler) SetPool(c echo.Context) error {
    var req poolReq
    if ok, err := bind(c, &req); !ok {
        return err
    }
    pool, err := money.NewAmount(*req.Pool)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid pool", "field": "pool"})
    }
    ctx, cancel := requestCtx(c)
    defer cancel()
    l, err := h.Alloc.SetPool(ctx, tourID(c), pool)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, l)
}

// SetTop edits the guide, assistant or OP share by percent or amount.
func (h *AllocationHandler) SetTop(c echo.Context) error {
    var req topReq
    if ok, err := bind(c, &req); !ok {
        return err
    }
    ctx, cancel := requestCtx(c)
    defer cancel()
    var (
        l   model.AllocationLedger
        err error
    )
    if req.Percent != nil {
        l, err = h.Alloc.SetTopPercent(ctx, tourID(c), req.Key, *req.Percent)
    } else {
        l, err = h.Alloc.SetTopAmount(ctx, tourID(c), req.Key, *req.Amount)
    }
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, l)
}

// ToggleMember adds or removes an OP member.
func (h *AllocationHandler) ToggleMember(c echo.Context) error {
    var req toggleReq
    if ok, err := bind(c, &req); !ok {
        return err
    }
    ctx, cancel := requestCtx(c)
    defer cancel()
    l, err := h.Alloc.ToggleOpMember(ctx, tourID(c), memberID(c), *req.Included)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, l)
}

// SetMember edits one OP member's share by percent or amount.
func (h *AllocationHandler) SetMember(c echo.Context) error {
    var req shareReq
    if ok, err := bind(c, &req); !ok {
        return err
    }
    ctx, cancel := requestCtx(c)
    defer cancel()
    var (
        l   model.AllocationLedger
        err error
    )
    if req.Percent != nil {
        l, err = h.Alloc.SetOpMemberPercent(ctx, tourID(c), memberID(c), *req.Percent)
    } else {
        l, err = h.Alloc.SetOpMemberAmount(ctx, tourID(c), memberID(c), *req.Amount)
    }
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, l)
}

func memberID(c echo.Context) string {
    return strings.TrimSpace(c.Param("member"))
}

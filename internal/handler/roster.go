package handler

import (
    "context"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/tour-backoffice/internal/roster"
)

// RosterService is the part of roster.Service the HTTP layer uses.
type RosterService interface {
    View(ctx context.Context, tourID string) (roster.View, error)
    Assign(ctx context.Context, tourID string, ids ...string) (roster.View, error)
    Unassign(ctx context.Context, tourID, id string) (roster.View, error)
    UnassignAll(ctx context.Context, tourID string) (roster.View, error)
    Reassign(ctx context.Context, fromID, toID, id string) (roster.View, error)
}

// RosterHandler serves /v1/tours/:id/roster.
type RosterHandler struct {
    Roster RosterService
    Log    *zap.Logger
}

func NewRosterHandler(svc RosterService, log *zap.Logger) *RosterHandler {
    if svc == nil {
        panic("nil roster service passed to NewRosterHandler")
    }
    if log == nil {
        log = zap.NewNop()
    }
    return &RosterHandler{Roster: svc, Log: log}
}

type assignReq struct {
    ReservationIDs []string `json:"reservation_ids" validate:"required,min=1,dive,required"`
}

type unassignReq struct {
    ReservationID string `json:"reservation_id" validate:"required"`
}

type reassignReq struct {
    ReservationID string `json:"reservation_id" validate:"required"`
    ToTourID      string `json:"to_tour_id" validate:"required"`
}

// Get returns the assigned, elsewhere and pending lists plus capacity.
func (h *RosterHandler) Get(c echo.Context) error {
    ctx, cancel := requestCtx(c)
    defer cancel()
    v, err := h.Roster.View(ctx, tourID(c))
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, v)
}

// Assign adds every listed reservation or none of them.
func (h *RosterHandler) Assign(c echo.Context) error {
    var req assignReq
    if ok, err := bind(c, &req); !ok {
        return err
    }
    ctx, cancel := requestCtx(c)
    defer cancel()
    v, err := h.Roster.Assign(ctx, tourID(c), trimAll(req.ReservationIDs)...)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, v)
}

// Unassign removes one reservation.  Removing one that is not on the
// roster is a no-op.
func (h *RosterHandler) Unassign(c echo.Context) error {
    var req unassignReq
    if ok, err := bind(c, &req); !ok {
        return err
    }
    ctx, cancel := requestCtx(c)
    defer cancel()
    v, err := h.Roster.Unassign(ctx, tourID(c), strings.TrimSpace(req.ReservationID))
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, v)
}

// Clear empties the tour's roster.
func (h *RosterHandler) Clear(c echo.Context) error {
    ctx, cancel := requestCtx(c)
    defer cancel()
    v, err := h.Roster.UnassignAll(ctx, tourID(c))
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, v)
}

// Reassign moves a reservation from this tour to a sibling.
func (h *RosterHandler) Reassign(c echo.Context) error {
    var req reassignReq
    if ok, err := bind(c, &req); !ok {
        return err
    }
    ctx, cancel := requestCtx(c)
    defer cancel()
    from, to, id := tourID(c), strings.TrimSpace(req.ToTourID), strings.TrimSpace(req.ReservationID)
    v, err := h.Roster.Reassign(ctx, from, to, id)
    if err != nil {
        if roster.IsPartialReassign(err) {
            h.Log.Warn("reassign left reservation unassigned",
                zap.String("reservation_id", id), zap.String("from", from), zap.String("to", to), zap.Error(err))
        }
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, v)
}

func tourID(c echo.Context) string {
    return strings.TrimSpace(c.Param("id"))
}

func trimAll(ids []string) []string {
    out := make([]string, 0, len(ids))
    for _, id := range ids {
        out = append(out, strings.TrimSpace(id))
    }
    return out
}

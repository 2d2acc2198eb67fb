package handler

import (
    "context"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/tour-backoffice/internal/model"
    "github.com/iliyamo/tour-backoffice/internal/money"
)

// TourStore creates and cancels tour instances.
type TourStore interface {
    Create(ctx context.Context, t model.TourInstance) (model.TourInstance, error)
    Delete(ctx context.Context, tourID string) error
}

// TourHandler serves /v1/tours.
type TourHandler struct {
    Tours TourStore
}

func NewTourHandler(tours TourStore) *TourHandler {
    if tours == nil {
        panic("nil tour store passed to NewTourHandler")
    }
    return &TourHandler{Tours: tours}
}

type createTourReq struct {
    ProductID   string  `json:"product_id" validate:"required,max=64"`
    TourDate    string  `json:"tour_date" validate:"required"`
    GuideID     string  `json:"guide_id" validate:"max=64"`
    AssistantID *string `json:"assistant_id" validate:"omitempty,max=64"`
    Gratuity    float64 `json:"prepaid_gratuity" validate:"gte=0"`
}

type tourResp struct {
    ID          string       `json:"id"`
    ProductID   string       `json:"product_id"`
    TourDate    string       `json:"tour_date"`
    GuideID     string       `json:"guide_id"`
    AssistantID *string      `json:"assistant_id"`
    Gratuity    money.Amount `json:"prepaid_gratuity"`
    Roster      []string     `json:"reservation_ids"`
}

// Create schedules a new instance with an empty roster.
func (h *TourHandler) Create(c echo.Context) error {
    var req createTourReq
    if ok, err := bind(c, &req); !ok {
        return err
    }
    date, err := model.ParseTourDate(req.TourDate)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "tour_date must be YYYY-MM-DD", "field": "tour_date"})
    }
    gratuity, err := money.NewAmount(req.Gratuity)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid prepaid_gratuity", "field": "prepaid_gratuity"})
    }
    t := model.TourInstance{
        ProductID: strings.TrimSpace(req.ProductID),
        TourDate:  date,
        GuideID:   strings.TrimSpace(req.GuideID),
        Gratuity:  gratuity,
    }
    if req.AssistantID != nil {
        if a := strings.TrimSpace(*req.AssistantID); a != "" {
            t.AssistantID = &a
        }
    }

    ctx, cancel := requestCtx(c)
    defer cancel()
    created, err := h.Tours.Create(ctx, t)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusCreated, tourResp{
        ID:          created.ID,
        ProductID:   created.ProductID,
        TourDate:    created.TourDate,
        GuideID:     created.GuideID,
        AssistantID: created.AssistantID,
        Gratuity:    created.Gratuity,
        Roster:      created.ReservationIDs.IDs(),
    })
}

// Cancel deletes the instance.  Its reservations become pending again.
func (h *TourHandler) Cancel(c echo.Context) error {
    ctx, cancel := requestCtx(c)
    defer cancel()
    if err := h.Tours.Delete(ctx, tourID(c)); err != nil {
        return writeError(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}

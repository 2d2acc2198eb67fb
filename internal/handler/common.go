package handler // handler defines http handlers

import (
    "context"
    "errors"
    "net/http"
    "time"

    "github.com/go-playground/validator/v10"
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/tour-backoffice/internal/allocation"
    "github.com/iliyamo/tour-backoffice/internal/roster"
)

// requestTimeout bounds the store calls made by one request.
const requestTimeout = 5 * time.Second

// Validator adapts go-playground/validator to echo.  Register it with
// e.Validator = handler.NewValidator().
type Validator struct {
    v *validator.Validate
}

func NewValidator() *Validator {
    return &Validator{v: validator.New(validator.WithRequiredStructEnabled())}
}

// Validate implements echo.Validator.
func (cv *Validator) Validate(i interface{}) error {
    return cv.v.Struct(i)
}

// bind decodes the body into req and runs its validate tags.  A failure
// has already been written as a 400 when ok is false.
func bind(c echo.Context, req interface{}) (ok bool, err error) {
    if err := c.Bind(req); err != nil {
        return false, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if err := c.Validate(req); err != nil {
        return false, c.JSON(http.StatusBadRequest, echo.Map{"error": validationMessage(err)})
    }
    return true, nil
}

// validationMessage names the first failing field.
func validationMessage(err error) string {
    var ve validator.ValidationErrors
    if errors.As(err, &ve) && len(ve) > 0 {
        return ve[0].Field() + " failed " + ve[0].Tag()
    }
    return err.Error()
}

func requestCtx(c echo.Context) (context.Context, context.CancelFunc) {
    return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// writeError maps domain errors onto HTTP responses.
//
//  validation, bad ids          – 400
//  unknown tour or reservation  – 404
//  conflicts and busy groups    – 409 (partial reassign adds retry:true)
//  store failures               – 500
func writeError(c echo.Context, err error) error {
    var (
        partial  *roster.PartialReassignError
        assigned *roster.AlreadyAssignedError
        invalid  *allocation.ValidationError
    )
    switch {
    case errors.As(err, &partial):
        return c.JSON(http.StatusConflict, echo.Map{
            "error":          "reassign incomplete",
            "reservation_id": partial.ReservationID,
            "from_tour_id":   partial.FromTourID,
            "to_tour_id":     partial.ToTourID,
            "retry":          true,
        })
    case errors.As(err, &assigned):
        return c.JSON(http.StatusConflict, echo.Map{
            "error":          "reservation already assigned",
            "reservation_id": assigned.ReservationID,
            "tour_id":        assigned.TourID,
        })
    case errors.As(err, &invalid):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": invalid.Error(), "field": invalid.Field})
    case errors.Is(err, roster.ErrGroupBusy):
        return c.JSON(http.StatusConflict, echo.Map{"error": err.Error(), "retry": true})
    case errors.Is(err, roster.ErrNotSiblings):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    case errors.Is(err, roster.ErrTourNotFound), errors.Is(err, roster.ErrReservationNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
    case errors.Is(err, allocation.ErrNoLedger):
        return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
    case allocation.IsInvariantViolation(err):
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "allocation could not be computed"})
    default:
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
    }
}

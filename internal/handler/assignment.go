package handler

import (
    "errors"
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/restaurant-table-reservation/internal/commit"
    "github.com/iliyamo/restaurant-table-reservation/internal/engine"
    "github.com/iliyamo/restaurant-table-reservation/internal/hold"
    "github.com/iliyamo/restaurant-table-reservation/internal/session"
)

// AssignmentHandler exposes the table assignment flow: quoting
// candidate plans, dry-run validation, and the staff session that
// carries a selection from proposal to committed allocations.  All
// methods assume JWT authentication and role validation has already
// been performed by middleware.
type AssignmentHandler struct {
    Engine   *engine.Engine   // read-only quoting and validation
    Sessions *session.Manager // stateful assignment workflow
}

// NewAssignmentHandler constructs a new AssignmentHandler with the
// provided engine and session manager.  Both must be non-nil.
func NewAssignmentHandler(eng *engine.Engine, sessions *session.Manager) *AssignmentHandler {
    if eng == nil || sessions == nil {
        panic("nil dependency passed to NewAssignmentHandler")
    }
    return &AssignmentHandler{Engine: eng, Sessions: sessions}
}

// bookingID parses the :id path parameter.
func bookingID(c echo.Context) (uint64, error) {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || id == 0 {
        return 0, errors.New("invalid booking id")
    }
    return id, nil
}

// writeDomainError translates the engine and session error taxonomy
// to HTTP statuses.  Handlers decide the status; the domain layers
// only ever return typed errors.
func writeDomainError(c echo.Context, err error) error {
    var inputErr *session.InputError
    var staleCtx *session.StaleContextError
    var staleSel *session.StaleSelectionError
    var sessConflict *session.ConflictError
    var commitConflict *commit.ConflictError
    var commitValidation *commit.ValidationError

    switch {
    case errors.Is(err, engine.ErrBookingNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
    case errors.Is(err, session.ErrSessionNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "assignment session not found"})
    case errors.Is(err, hold.ErrHoldNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "hold not found or expired"})
    case errors.Is(err, session.ErrSessionDisabled):
        return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "manual assignment is disabled"})
    case errors.As(err, &inputErr):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": inputErr.Message})
    case errors.As(err, &staleCtx):
        return c.JSON(http.StatusConflict, echo.Map{
            "error":            "stale context version",
            "expected_version": staleCtx.Expected,
        })
    case errors.As(err, &staleSel):
        return c.JSON(http.StatusConflict, echo.Map{
            "error":            "stale selection version",
            "expected_version": staleSel.Expected,
        })
    case errors.As(err, &sessConflict):
        return c.JSON(http.StatusConflict, echo.Map{
            "error":     "selection conflicts with existing claims",
            "conflicts": sessConflict.Conflicts,
        })
    case errors.As(err, &commitConflict):
        return c.JSON(http.StatusConflict, echo.Map{"error": commitConflict.Message})
    case errors.As(err, &commitValidation):
        return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": commitValidation.Message})
    default:
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
    }
}

// Quote handles GET /v1/bookings/:id/quote.  It returns the ranked
// candidate plans for the booking together with the context version
// the client must echo back on any mutating call.
func (h *AssignmentHandler) Quote(c echo.Context) error {
    id, err := bookingID(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }
    res, err := h.Engine.Quote(c.Request().Context(), id)
    if err != nil {
        return writeDomainError(c, err)
    }
    return c.JSON(http.StatusOK, res)
}

// Validate handles POST /v1/bookings/:id/validate.  It dry-runs a
// manual table selection against the booking's current availability
// context.  A failing check is reported in the body with a 200; only
// malformed requests and unknown bookings are errors.
func (h *AssignmentHandler) Validate(c echo.Context) error {
    id, err := bookingID(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }
    var body struct {
        TableIDs         []uint64 `json:"table_ids"`
        RequireAdjacency *bool    `json:"require_adjacency"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if len(body.TableIDs) == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "table_ids is required"})
    }
    res, err := h.Engine.Validate(c.Request().Context(), id, body.TableIDs, body.RequireAdjacency)
    if err != nil {
        return writeDomainError(c, err)
    }
    return c.JSON(http.StatusOK, res)
}

// OpenSession handles POST /v1/bookings/:id/session.  It returns the
// booking's live session, creating a fresh Draft one when none
// exists.  The call is idempotent per booking.
func (h *AssignmentHandler) OpenSession(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, err := bookingID(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }
    view, err := h.Sessions.GetOrCreate(c.Request().Context(), id, userID)
    if err != nil {
        return writeDomainError(c, err)
    }
    return c.JSON(http.StatusOK, view)
}

// UpdateSelection handles POST /v1/bookings/:id/session/selection.
// In propose mode it stores the selection; in hold mode it also
// backs it with a short lived hold.  Both context_version and
// selection_version must match the session or the call is rejected
// with 409 and the expected value.
func (h *AssignmentHandler) UpdateSelection(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, err := bookingID(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }
    var body struct {
        TableIDs         []uint64 `json:"table_ids"`
        Mode             string   `json:"mode"`
        ContextVersion   string   `json:"context_version"`
        SelectionVersion uint64   `json:"selection_version"`
        IdempotencyKey   *string  `json:"idempotency_key"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    res, err := h.Sessions.Select(c.Request().Context(), session.SelectionRequest{
        BookingID:        id,
        TableIDs:         body.TableIDs,
        Mode:             body.Mode,
        ContextVersion:   body.ContextVersion,
        SelectionVersion: body.SelectionVersion,
        IdempotencyKey:   body.IdempotencyKey,
        UserID:           userID,
    })
    if err != nil {
        return writeDomainError(c, err)
    }
    if res.Validation != nil && !res.Validation.OK {
        return c.JSON(http.StatusUnprocessableEntity, res)
    }
    return c.JSON(http.StatusOK, res)
}

// ConfirmSession handles POST /v1/bookings/:id/session/confirm.  It
// commits the held selection into durable allocations.  Replaying
// the same idempotency key after a success returns the original
// assignment.
func (h *AssignmentHandler) ConfirmSession(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, err := bookingID(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }
    var body struct {
        HoldID           string `json:"hold_id"`
        IdempotencyKey   string `json:"idempotency_key"`
        ContextVersion   string `json:"context_version"`
        SelectionVersion uint64 `json:"selection_version"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.IdempotencyKey == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "idempotency_key is required"})
    }
    res, err := h.Sessions.Confirm(c.Request().Context(), session.ConfirmRequest{
        BookingID:        id,
        HoldID:           body.HoldID,
        IdempotencyKey:   body.IdempotencyKey,
        ContextVersion:   body.ContextVersion,
        SelectionVersion: body.SelectionVersion,
        UserID:           userID,
    })
    if err != nil {
        return writeDomainError(c, err)
    }
    return c.JSON(http.StatusOK, res)
}

// CancelSession handles DELETE /v1/bookings/:id/session.  It
// terminates the booking's live session and releases its hold, if
// any.  Confirmed sessions cannot be cancelled here; allocations are
// released through the booking cancellation flow instead.
func (h *AssignmentHandler) CancelSession(c echo.Context) error {
    if _, err := getUserID(c); err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, err := bookingID(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }
    s, err := h.Sessions.Cancel(c.Request().Context(), id)
    if err != nil {
        return writeDomainError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"session": s})
}

package pharmacy

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/uniclinic/uniclinic/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/prescriptions/complete", h.Complete,
		auth.RequireRole(auth.RolePharmacy, auth.RoleAdmin))
}

type completeRequest struct {
	PrescriptionID uuid.UUID `json:"prescription_id"`
	QueueNo        string    `json:"queue_no"`
}

func (h *Handler) Complete(c echo.Context) error {
	var req completeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.PrescriptionID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "prescription_id is required")
	}

	result, err := h.svc.Dispense(c.Request().Context(), req.PrescriptionID, req.QueueNo)
	if err != nil {
		var insufficient *InsufficientStockError
		switch {
		case errors.As(err, &insufficient):
			return echo.NewHTTPError(http.StatusConflict, insufficient.Error())
		case errors.Is(err, ErrNotPending):
			return echo.NewHTTPError(http.StatusNotFound, "prescription is not pending")
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.JSON(http.StatusOK, result)
}

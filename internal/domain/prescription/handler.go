package prescription

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"time"

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
	read := api.Group("", auth.RequireRole(auth.RoleAny...))
	read.GET("/prescriptions/pending", h.ListPending)
	read.GET("/prescriptions/dispensed", h.ListDispensed)
	read.GET("/prescriptions/:id", h.GetPrescription)
	read.GET("/prescriptions/:id/signature", h.GetSignature)

	api.POST("/prescriptions/queue", h.CreatePrescription,
		auth.RequireRole(auth.RoleDoctor, auth.RoleAdmin))
	api.PUT("/prescriptions/:id/status", h.UpdateStatus,
		auth.RequireRole(auth.RolePharmacy, auth.RoleAdmin))
	api.DELETE("/prescriptions/clear-all", h.ClearAll,
		auth.RequireRole(auth.RoleAdmin))
}

func (h *Handler) CreatePrescription(c echo.Context) error {
	var p Prescription
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if _, err := h.svc.Add(c.Request().Context(), &p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetPrescription(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.ByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "prescription not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListPending(c echo.Context) error {
	items, err := h.svc.Pending(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) ListDispensed(c echo.Context) error {
	items, err := h.svc.Dispensed(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req updateStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ok, err := h.svc.UpdateStatus(c.Request().Context(), id, req.Status)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if !ok {
		return echo.NewHTTPError(http.StatusConflict, "prescription is not pending")
	}
	return c.JSON(http.StatusOK, map[string]any{"id": id, "status": req.Status})
}

// GetSignature returns a verification stamp for a dispensed or pending
// prescription, derived from its immutable identifiers.
func (h *Handler) GetSignature(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.ByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "prescription not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	sum := sha256.Sum256([]byte(p.ID.String() + "|" + p.QueueNumber + "|" +
		p.DoctorName + "|" + p.PrescriptionDate.Format(time.RFC3339)))
	return c.JSON(http.StatusOK, map[string]any{
		"prescription_id": p.ID,
		"queue_number":    p.QueueNumber,
		"doctor_name":     p.DoctorName,
		"signature":       hex.EncodeToString(sum[:]),
		"generated_at":    time.Now(),
	})
}

func (h *Handler) ClearAll(c echo.Context) error {
	if err := h.svc.ClearAll(c.Request().Context()); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

package queue

import (
	"encoding/json"
	"errors"
	"net/http"

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
	read.GET("/queue/reception", h.listStage(StageReception))
	read.GET("/queue/doctor", h.listStage(StageDoctor))
	read.GET("/queue/pharmacy", h.listStage(StagePharmacy))
	read.GET("/queue/completed", h.listStage(StageCompleted))
	read.GET("/queue/student/:queueNo", h.GetEntry)
	read.GET("/queue/stats", h.GetStats)

	api.POST("/queue/add-student", h.AddStudent,
		auth.RequireRole(auth.RoleReceptionist, auth.RoleStaff, auth.RoleAdmin))
	api.POST("/queue/move-to-doctor/:queueNo", h.MoveToDoctor,
		auth.RequireRole(auth.RoleDoctor, auth.RoleAdmin))
	api.POST("/queue/move-to-pharmacy/:queueNo", h.MoveToPharmacy,
		auth.RequireRole(auth.RoleDoctor, auth.RoleAdmin))
	api.POST("/queue/complete/:queueNo", h.Complete,
		auth.RequireRole(auth.RolePharmacy, auth.RoleAdmin))
	api.PUT("/queue/update-status/:queueNo", h.UpdateStatus,
		auth.RequireRole(auth.RoleReceptionist, auth.RoleDoctor, auth.RolePharmacy, auth.RoleStaff, auth.RoleAdmin))
	api.DELETE("/queue/clear-all", h.ClearAll,
		auth.RequireRole(auth.RoleAdmin))
}

func (h *Handler) AddStudent(c echo.Context) error {
	var rec IntakeRecord
	if err := c.Bind(&rec); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	result, err := h.svc.AddStudentToReception(c.Request().Context(), rec)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	// A duplicate intake is answered with the existing entry, not an error.
	status := http.StatusCreated
	if result.IsDuplicate {
		status = http.StatusOK
	}
	return c.JSON(status, result)
}

func (h *Handler) listStage(stage string) echo.HandlerFunc {
	return func(c echo.Context) error {
		items, err := h.svc.ListStage(c.Request().Context(), stage)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, items)
	}
}

func (h *Handler) GetEntry(c echo.Context) error {
	e, err := h.svc.Get(c.Request().Context(), c.Param("queueNo"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "queue entry not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) MoveToDoctor(c echo.Context) error {
	e, err := h.svc.MoveToDoctor(c.Request().Context(), c.Param("queueNo"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "queue entry not found in reception")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) MoveToPharmacy(c echo.Context) error {
	var prescription json.RawMessage
	if err := c.Bind(&prescription); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	e, err := h.svc.AddPrescriptionAndMoveToPharmacy(c.Request().Context(), c.Param("queueNo"), prescription)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "queue entry not found in doctor queue")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) Complete(c echo.Context) error {
	e, err := h.svc.CompletePharmacy(c.Request().Context(), c.Param("queueNo"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "queue entry not found in pharmacy queue")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, e)
}

type updateStatusRequest struct {
	Stage string `json:"stage"`
	StatusUpdate
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	var req updateStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	e, err := h.svc.UpdateEntryStatus(c.Request().Context(), req.Stage, c.Param("queueNo"), req.StatusUpdate)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "queue entry not found in stage")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) GetStats(c echo.Context) error {
	st, err := h.svc.Stats(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, st)
}

func (h *Handler) ClearAll(c echo.Context) error {
	if err := h.svc.ClearAll(c.Request().Context()); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

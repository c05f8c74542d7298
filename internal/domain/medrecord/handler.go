package medrecord

import (
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
	read.GET("/medical-records/:recordId", h.GetByRecordID)
	read.GET("/medical-records/by-email/:email", h.GetByEmail)

	api.POST("/medical-records", h.Create,
		auth.RequireRole(auth.RoleReceptionist, auth.RoleStaff, auth.RoleAdmin))
}

func (h *Handler) Create(c echo.Context) error {
	var r Record
	if err := c.Bind(&r); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	rec, err := h.svc.Save(c.Request().Context(), &r)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, rec)
}

func (h *Handler) GetByRecordID(c echo.Context) error {
	rec, err := h.svc.GetByRecordID(c.Request().Context(), c.Param("recordId"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "medical record not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) GetByEmail(c echo.Context) error {
	rec, err := h.svc.GetByEmail(c.Request().Context(), c.Param("email"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "medical record not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, rec)
}

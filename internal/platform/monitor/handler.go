package monitor

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/uniclinic/uniclinic/internal/domain/inventory"
	"github.com/uniclinic/uniclinic/internal/platform/auth"
)

// Handler serves the automated-inventory endpoints. Reads go straight to the
// source; when it is unreachable they degrade to the monitor's last good
// snapshot instead of failing.
type Handler struct {
	mon    *Monitor
	source Source
}

func NewHandler(mon *Monitor, source Source) *Handler {
	return &Handler{mon: mon, source: source}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/automated-inventory")

	read := g.Group("", auth.RequireRole(auth.RoleAny...))
	read.GET("/status", h.GetStatus)
	read.GET("/alerts", h.GetAlerts)
	read.GET("/analytics", h.GetAnalytics)
	read.GET("/health", h.GetHealth)

	ctl := g.Group("", auth.RequireRole(auth.RolePharmacy, auth.RoleStaff, auth.RoleAdmin))
	ctl.POST("/monitor", h.Control)
	ctl.POST("/alerts/:id/acknowledge", h.AcknowledgeAlert)
}

func (h *Handler) GetStatus(c echo.Context) error {
	st, err := h.source.Status(c.Request().Context())
	if err != nil {
		last, ok := h.mon.LastStatus()
		if !ok {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "inventory status unavailable")
		}
		last.Degraded = true
		return c.JSON(http.StatusOK, last)
	}
	return c.JSON(http.StatusOK, st)
}

func (h *Handler) GetAlerts(c echo.Context) error {
	alerts, err := h.source.Alerts(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "inventory alerts unavailable")
	}
	return c.JSON(http.StatusOK, h.mon.ActiveAlerts(alerts))
}

func (h *Handler) GetAnalytics(c echo.Context) error {
	ctx := c.Request().Context()
	st, err := h.source.Status(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "inventory status unavailable")
	}
	alerts, err := h.source.Alerts(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "inventory alerts unavailable")
	}
	alerts = h.mon.ActiveAlerts(alerts)

	counts := map[string]int{}
	critical := 0
	for _, a := range alerts {
		counts[a.Type]++
		if a.Severity == inventory.SeverityCritical {
			critical++
		}
	}
	return c.JSON(http.StatusOK, map[string]any{
		"status":          st,
		"active_alerts":   len(alerts),
		"critical_alerts": critical,
		"alerts_by_type":  counts,
		"generated_at":    time.Now(),
	})
}

func (h *Handler) GetHealth(c echo.Context) error {
	lastCycle, lastErr := h.mon.LastCycle()
	payload := map[string]any{
		"running":  h.mon.Running(),
		"interval": h.mon.Interval().String(),
	}
	if !lastCycle.IsZero() {
		payload["last_cycle"] = lastCycle
	}
	if lastErr != nil {
		payload["last_error"] = lastErr.Error()
	}
	return c.JSON(http.StatusOK, payload)
}

type controlRequest struct {
	Action string `json:"action"`
}

func (h *Handler) Control(c echo.Context) error {
	var req controlRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	switch req.Action {
	case "start":
		h.mon.Start()
	case "stop":
		h.mon.Stop()
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "action must be start or stop")
	}
	return c.JSON(http.StatusOK, map[string]any{"running": h.mon.Running()})
}

func (h *Handler) AcknowledgeAlert(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "alert id is required")
	}
	h.mon.Acknowledge(id)
	return c.NoContent(http.StatusNoContent)
}

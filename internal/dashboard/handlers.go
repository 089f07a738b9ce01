package dashboard

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/voltswap/voltswap/internal/auth"
)

// Handler provides HTTP endpoints for dashboard metrics.
type Handler struct {
	service *Service
}

// NewHandler creates a new dashboard handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterProtectedRoutes sets up dashboard routes, mirroring the paths the
// console fetches.
func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	r.GET("/dashboard/summary", h.Summary)
	r.GET("/dashboard/stats", h.Stats)
	r.GET("/dashboard/by-day", h.TransactionsByDay)
	r.GET("/dashboard/revenue-by-day", h.RevenueByDay)
	r.GET("/dashboard/battery-status", h.BatteryStatus)
	r.GET("/dashboard/weekly-comparison", h.Weekly)
}

func sessionToken(c *gin.Context) string {
	if sess := auth.Session(c); sess != nil {
		return sess.Token
	}
	return ""
}

// Summary handles GET /v1/dashboard/summary
func (h *Handler) Summary(c *gin.Context) {
	summary, err := h.service.Summarize(c.Request.Context(), sessionToken(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Stats handles GET /v1/dashboard/stats
func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context(), sessionToken(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// TransactionsByDay handles GET /v1/dashboard/by-day
func (h *Handler) TransactionsByDay(c *gin.Context) {
	counts, err := h.service.TransactionsByDay(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, counts)
}

// RevenueByDay handles GET /v1/dashboard/revenue-by-day
func (h *Handler) RevenueByDay(c *gin.Context) {
	revenue, err := h.service.Revenue(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, revenue)
}

// BatteryStatus handles GET /v1/dashboard/battery-status
func (h *Handler) BatteryStatus(c *gin.Context) {
	status, err := h.service.BatteryStatus(c.Request.Context(), sessionToken(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// Weekly handles GET /v1/dashboard/weekly-comparison
func (h *Handler) Weekly(c *gin.Context) {
	comparison, err := h.service.Weekly(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, comparison)
}

func respondError(c *gin.Context, err error) {
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   "internal_error",
		"message": err.Error(),
	})
}

package battery

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/voltswap/voltswap/internal/auth"
	"github.com/voltswap/voltswap/internal/backend"
	"github.com/voltswap/voltswap/internal/validation"
)

// Handler provides HTTP endpoints for battery operations.
type Handler struct {
	service *Service
}

// NewHandler creates a new battery handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterProtectedRoutes sets up battery routes. All battery surfaces are
// staff/admin views, so everything requires a session.
func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	r.GET("/batteries", h.ListBatteries)
	r.GET("/batteries/summary", h.Summary)
	r.GET("/batteries/count/:status", h.CountByStatus)
	r.GET("/batteries/classify", h.Classify)

	r.POST("/battery-returns", h.CreateReturn)
	r.GET("/battery-returns", h.ListReturns)
	r.PATCH("/battery-returns/:batteryId/:transactionId/status", h.UpdateReturnStatus)
}

func sessionToken(c *gin.Context) string {
	if sess := auth.Session(c); sess != nil {
		return sess.Token
	}
	return ""
}

// ListBatteries handles GET /v1/batteries
func (h *Handler) ListBatteries(c *gin.Context) {
	batteries, err := h.service.ListScored(c.Request.Context(), sessionToken(c))
	if err != nil {
		respondBackendError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"batteries": batteries,
		"count":     len(batteries),
	})
}

// Summary handles GET /v1/batteries/summary
func (h *Handler) Summary(c *gin.Context) {
	summary, err := h.service.Summary(c.Request.Context(), sessionToken(c))
	if err != nil {
		respondBackendError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

// CountByStatus handles GET /v1/batteries/count/:status
func (h *Handler) CountByStatus(c *gin.Context) {
	status := validation.SanitizeString(c.Param("status"), 30)

	count, err := h.service.Count(c.Request.Context(), sessionToken(c), status)
	if err != nil {
		respondBackendError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": status,
		"count":  count,
	})
}

// Classify handles GET /v1/batteries/classify
func (h *Handler) Classify(c *gin.Context) {
	classification, err := h.service.Classify(c.Request.Context(), sessionToken(c))
	if err != nil {
		respondBackendError(c, err)
		return
	}

	c.JSON(http.StatusOK, classification)
}

// CreateReturn handles POST /v1/battery-returns
func (h *Handler) CreateReturn(c *gin.Context) {
	var req struct {
		BatteryID     int64        `json:"batteryID"`
		TransactionID int64        `json:"transactionID"`
		Customer      string       `json:"customer"`
		Phone         string       `json:"phone"`
		Status        ReturnStatus `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": err.Error(),
		})
		return
	}

	ret := &Return{
		BatteryID:     req.BatteryID,
		TransactionID: req.TransactionID,
		Customer:      validation.SanitizeString(req.Customer, 200),
		Phone:         validation.SanitizeString(req.Phone, 30),
		Status:        req.Status,
	}

	if err := h.service.CheckIn(c.Request.Context(), ret); err != nil {
		var verrs validation.ValidationErrors
		switch {
		case errors.As(err, &verrs):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_request",
				"message": verrs.Error(),
				"fields":  verrs,
			})
		case errors.Is(err, ErrInvalidStatus):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_status",
				"message": "status must be PENDING, FULL, DAMAGED, or MAINTENANCE",
			})
		case errors.Is(err, ErrReturnExists):
			c.JSON(http.StatusConflict, gin.H{
				"error":   "already_exists",
				"message": "This battery return is already recorded",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "internal_error",
				"message": err.Error(),
			})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"return": ret})
}

// ListReturns handles GET /v1/battery-returns
func (h *Handler) ListReturns(c *gin.Context) {
	returns, err := h.service.ListReturns(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"returns": returns,
		"count":   len(returns),
	})
}

// UpdateReturnStatus handles PATCH /v1/battery-returns/:batteryId/:transactionId/status
func (h *Handler) UpdateReturnStatus(c *gin.Context) {
	batteryID, err1 := strconv.ParseInt(c.Param("batteryId"), 10, 64)
	transactionID, err2 := strconv.ParseInt(c.Param("transactionId"), 10, 64)
	if err1 != nil || err2 != nil || batteryID <= 0 || transactionID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_id",
			"message": "batteryId and transactionId must be positive integers",
		})
		return
	}

	var req struct {
		Status ReturnStatus `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": err.Error(),
		})
		return
	}

	ret, err := h.service.UpdateReturnStatus(c.Request.Context(), batteryID, transactionID, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidStatus):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_status",
				"message": "status must be PENDING, FULL, DAMAGED, or MAINTENANCE",
			})
		case errors.Is(err, ErrReturnNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "No such battery return",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "internal_error",
				"message": err.Error(),
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"return": ret})
}

func respondBackendError(c *gin.Context, err error) {
	var be *backend.Error
	if errors.As(err, &be) {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "backend_error",
			"message": be.Message,
		})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   "internal_error",
		"message": err.Error(),
	})
}

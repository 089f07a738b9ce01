package station

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/voltswap/voltswap/internal/validation"
)

// Handler provides HTTP endpoints for station operations.
type Handler struct {
	service *Service
}

// NewHandler creates a new station handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterProtectedRoutes sets up station routes. Station management is an
// admin surface, so everything requires a session.
func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	r.GET("/stations", h.ListStations)
	r.POST("/stations", h.CreateStation)
	r.GET("/stations/:id", h.GetStation)
	r.GET("/stations/inventory", h.GetInventory)
	r.POST("/stations/transfer", h.Transfer)
	r.GET("/stations/transfers", h.ListTransfers)
}

// ListStations handles GET /v1/stations
func (h *Handler) ListStations(c *gin.Context) {
	stations, err := h.service.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stations": stations,
		"count":    len(stations),
	})
}

// CreateStation handles POST /v1/stations
func (h *Handler) CreateStation(c *gin.Context) {
	var req struct {
		StationID   int64  `json:"stationID"`
		StationName string `json:"stationName"`
		Address     string `json:"address"`
		Status      Status `json:"status"`
		TotalSlots  int    `json:"totalSlots"`
		Available   int    `json:"available"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": err.Error(),
		})
		return
	}

	st := &Station{
		StationID:   req.StationID,
		StationName: validation.SanitizeString(req.StationName, 200),
		Address:     validation.SanitizeString(req.Address, 500),
		Status:      req.Status,
	}
	slots := Slots{Total: req.TotalSlots, Available: req.Available}

	if err := h.service.CreateStation(c.Request.Context(), st, slots); err != nil {
		var verrs validation.ValidationErrors
		switch {
		case errors.As(err, &verrs):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_request",
				"message": verrs.Error(),
				"fields":  verrs,
			})
		case errors.Is(err, ErrInvalidSlots):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_slots",
				"message": "available must be between 0 and total",
			})
		case errors.Is(err, ErrStationExists):
			c.JSON(http.StatusConflict, gin.H{
				"error":   "already_exists",
				"message": "A station with this ID already exists",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "internal_error",
				"message": err.Error(),
			})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"station": st})
}

// GetStation handles GET /v1/stations/:id
func (h *Handler) GetStation(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_id",
			"message": "id must be a positive integer",
		})
		return
	}

	st, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrStationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "No such station",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"station": st})
}

// GetInventory handles GET /v1/stations/inventory
func (h *Handler) GetInventory(c *gin.Context) {
	inv, err := h.service.Inventory(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"inventory": inv})
}

// Transfer handles POST /v1/stations/transfer
func (h *Handler) Transfer(c *gin.Context) {
	var req struct {
		FromStationID int64 `json:"fromStationID"`
		ToStationID   int64 `json:"toStationID"`
		Count         int   `json:"count"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": err.Error(),
		})
		return
	}

	t, err := h.service.ExecuteTransfer(c.Request.Context(), Transfer{
		FromStationID: req.FromStationID,
		ToStationID:   req.ToStationID,
		Count:         req.Count,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidTransferCount):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_transfer",
				"message": "count must be positive",
			})
		case errors.Is(err, ErrSameStation):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "same_station",
				"message": "Source and target stations must differ",
			})
		case errors.Is(err, ErrUnknownStation):
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "unknown_station",
				"message": "Transfer references an unknown station",
			})
		case errors.Is(err, ErrInsufficientSource):
			c.JSON(http.StatusConflict, gin.H{
				"error":   "insufficient_source",
				"message": "Source station has too few available batteries",
			})
		case errors.Is(err, ErrInsufficientTargetCapacity):
			c.JSON(http.StatusConflict, gin.H{
				"error":   "insufficient_target_capacity",
				"message": "Target station has too few free slots",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "internal_error",
				"message": err.Error(),
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"transfer": t})
}

// ListTransfers handles GET /v1/stations/transfers
func (h *Handler) ListTransfers(c *gin.Context) {
	limit := 50
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	transfers, err := h.service.ListTransfers(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transfers": transfers,
		"count":     len(transfers),
	})
}

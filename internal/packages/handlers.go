package packages

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/voltswap/voltswap/internal/auth"
	"github.com/voltswap/voltswap/internal/backend"
)

// Handler provides HTTP endpoints for package operations.
type Handler struct {
	service *Service
}

// NewHandler creates a new packages handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes sets up public package routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/packages", h.ListPackages)
	r.GET("/packages/:id", h.GetPackage)
}

// RegisterProtectedRoutes sets up session-required package routes.
func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	r.POST("/packages/:id/purchase", h.InitiatePurchase)
}

// ListPackages handles GET /v1/packages
func (h *Handler) ListPackages(c *gin.Context) {
	pkgs := h.service.List()
	c.JSON(http.StatusOK, gin.H{
		"packages": pkgs,
		"count":    len(pkgs),
	})
}

// GetPackage handles GET /v1/packages/:id
func (h *Handler) GetPackage(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	pkg, err := Find(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "No such package",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"package": pkg})
}

// InitiatePurchase handles POST /v1/packages/:id/purchase
func (h *Handler) InitiatePurchase(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	clientID := auth.ClientID(c)
	sess := auth.Session(c)
	token := ""
	if sess != nil {
		token = sess.Token
	}

	init, err := h.service.InitiatePurchase(c.Request.Context(), clientID, token, id)
	if err != nil {
		if errors.Is(err, ErrPackageNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "No such package",
			})
			return
		}
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
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"paymentId":   init.PaymentID,
		"approvalUrl": init.ApprovalURL,
	})
}

func idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_id",
			"message": "id must be a positive integer",
		})
		return 0, false
	}
	return id, true
}

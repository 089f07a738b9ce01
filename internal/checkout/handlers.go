package checkout

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/voltswap/voltswap/internal/auth"
)

// Handler provides HTTP endpoints for checkout completion.
type Handler struct {
	reconciler *Reconciler
}

// NewHandler creates a new checkout handler.
func NewHandler(reconciler *Reconciler) *Handler {
	return &Handler{reconciler: reconciler}
}

// RegisterRoutes sets up checkout routes. The completion endpoint requires
// a client identity but not a session: the not-authenticated case must map
// to a reconciliation result, not a 401.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/checkout/complete", auth.RequireClient(), h.Complete)
}

// Complete handles POST /v1/checkout/complete.
// The gateway redirect query is passed through: paymentId (or token) plus
// optional PayerID. Domain failures return 200 with the terminal result;
// only a missing payment id is a 400.
func (h *Handler) Complete(c *gin.Context) {
	clientID := auth.ClientID(c)

	params, err := ParseCallback(c.Request.URL.Query())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "missing_payment_id",
			"message": "Payment ID not found in URL",
		})
		return
	}

	result := h.reconciler.Run(c.Request.Context(), clientID, params)

	c.JSON(http.StatusOK, gin.H{"result": result})
}

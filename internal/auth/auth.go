// Package auth resolves the console client identity and its signed-in
// session from client state.
package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/voltswap/voltswap/internal/clientstate"
)

const (
	// HeaderClientID carries the console client's identity.
	HeaderClientID = "X-Client-ID"

	// ContextKeyClientID is the key for the client ID in gin context
	ContextKeyClientID = "clientID"
	// ContextKeySession is the key for the resolved session in gin context
	ContextKeySession = "session"
)

// Middleware extracts the client ID from the X-Client-ID header and, when
// present, resolves the client's session from the state store. Requests
// without a header or session pass through; handlers that need them use
// RequireClient / RequireSession.
func Middleware(store clientstate.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientID := c.GetHeader(HeaderClientID)
		if clientID != "" {
			c.Set(ContextKeyClientID, clientID)

			sess, err := clientstate.GetSession(c.Request.Context(), store, clientID)
			if err == nil {
				c.Set(ContextKeySession, sess)
			} else if !errors.Is(err, clientstate.ErrNotFound) {
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error":   "internal_error",
					"message": "Failed to load session",
				})
				return
			}
		}

		c.Next()
	}
}

// RequireClient rejects requests without an X-Client-ID header.
func RequireClient() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := c.Get(ContextKeyClientID); !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "missing_client_id",
				"message": "X-Client-ID header required",
			})
			return
		}
		c.Next()
	}
}

// RequireSession rejects requests whose client has no signed-in session.
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := c.Get(ContextKeySession); !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "not_authenticated",
				"message": "Sign in required",
			})
			return
		}
		c.Next()
	}
}

// ClientID returns the client ID set by Middleware, or "".
func ClientID(c *gin.Context) string {
	if v, ok := c.Get(ContextKeyClientID); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// Session returns the resolved session set by Middleware, or nil.
func Session(c *gin.Context) *clientstate.Session {
	if v, ok := c.Get(ContextKeySession); ok {
		if sess, ok := v.(*clientstate.Session); ok {
			return sess
		}
	}
	return nil
}

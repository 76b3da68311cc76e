package server

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Resanso/aquaseer-api/internal/auth"
)

const userContextKey = "aquaseer.user"

type credentialsRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

// HandleSignIn exchanges email and password for a session token.
func HandleSignIn(c *gin.Context, deps Dependencies) {
	if deps.Auth == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "auth gateway not configured"})
		return
	}
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	session, err := deps.Auth.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// HandleSignUp registers an account and signs it in.
func HandleSignUp(c *gin.Context, deps Dependencies) {
	if deps.Auth == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "auth gateway not configured"})
		return
	}
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	session, err := deps.Auth.SignUp(c.Request.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		writeAuthError(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

// HandleSignOut ends the caller's session.
func HandleSignOut(c *gin.Context, deps Dependencies) {
	if deps.Auth == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "auth gateway not configured"})
		return
	}
	if err := deps.Auth.SignOut(c.Request.Context(), bearerToken(c)); err != nil {
		writeAuthError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleCurrentUser returns the user bound to the caller's session.
func HandleCurrentUser(c *gin.Context, deps Dependencies) {
	if deps.Auth == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "auth gateway not configured"})
		return
	}
	user, err := deps.Auth.CurrentUser(c.Request.Context(), bearerToken(c))
	if err != nil {
		writeAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// requireSession rejects requests without a live session. It is a no-op
// when no gateway is configured.
func requireSession(gateway auth.Gateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		if gateway == nil {
			c.Next()
			return
		}
		user, err := gateway.CurrentUser(c.Request.Context(), bearerToken(c))
		if err != nil {
			writeAuthError(c, err)
			c.Abort()
			return
		}
		c.Set(userContextKey, user)
		c.Next()
	}
}

// bearerToken reads the session token from the Authorization header, or
// from the token query parameter for websocket upgrades.
func bearerToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return strings.TrimSpace(c.Query("token"))
}

func writeAuthError(c *gin.Context, err error) {
	var authErr *auth.Error
	if !errors.As(err, &authErr) {
		log.Printf("auth gateway failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "authentication failed"})
		return
	}
	c.JSON(authStatus(authErr.Code), gin.H{"error": authErr.Message, "code": authErr.Code})
}

func authStatus(code string) int {
	switch code {
	case auth.CodeEmailInUse:
		return http.StatusConflict
	case auth.CodeInvalidCredential, auth.CodeSessionNotFound:
		return http.StatusUnauthorized
	default:
		return http.StatusBadRequest
	}
}

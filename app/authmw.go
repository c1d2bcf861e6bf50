package app

import (
	"strings"

	"equipment_lending/lending"
	"equipment_lending/models"
	"equipment_lending/services"

	"github.com/gin-gonic/gin"
)

const AppSessionCookie = "app_session"

// gin context keys set by AuthRequired
const (
	CtxUserID   = "userID"
	CtxUsername = "username"
	CtxRole     = "role"
	CtxUser     = "user"
	CtxSession  = "sessionID"
)

// SessionID reads the session from the cookie, falling back to a bearer token.
func SessionID(c *gin.Context) string {
	if ck, err := c.Request.Cookie(AppSessionCookie); err == nil && ck.Value != "" {
		return ck.Value
	}
	h := c.GetHeader("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func AuthRequired(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid := SessionID(c)
		u, err := auth.Resolve(c.Request.Context(), sid)
		if err != nil {
			Fail(c, err)
			return
		}
		// 把用户放进上下文，后续 handler 可用
		c.Set(CtxSession, sid)
		c.Set(CtxUserID, u.ID)
		c.Set(CtxUsername, u.Username)
		c.Set(CtxRole, u.Role)
		c.Set(CtxUser, u)
		c.Next()
	}
}

// Permit rejects callers whose role does not grant op.
func Permit(op lending.Operation) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := CurrentActor(c).Allow(op); err != nil {
			Fail(c, err)
			return
		}
		c.Next()
	}
}

// CurrentActor returns the authenticated caller; the zero Actor when
// AuthRequired did not run.
func CurrentActor(c *gin.Context) lending.Actor {
	role, _ := c.Get(CtxRole)
	r, _ := role.(lending.Role)
	return lending.Actor{UserID: c.GetString(CtxUserID), Role: r}
}

func CurrentUser(c *gin.Context) *models.User {
	v, _ := c.Get(CtxUser)
	u, _ := v.(*models.User)
	return u
}

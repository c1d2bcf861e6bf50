package controllers

import (
	"net/http"

	"equipment_lending/app"
	"equipment_lending/services"
)

type AuthController struct{ *Srv }

func NewAuthController(s *Srv) *AuthController { return &AuthController{s} }

type signupReq struct {
	Username  string `json:"username" binding:"required"`
	Email     string `json:"email" binding:"required"`
	Password  string `json:"password" binding:"required"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func (r signupReq) input() services.SignupInput {
	return services.SignupInput{
		Username:  r.Username,
		Email:     r.Email,
		Password:  r.Password,
		FirstName: r.FirstName,
		LastName:  r.LastName,
	}
}

// POST /api/auth/signup
func (ac *AuthController) Signup(c *app.Ctx) {
	var req signupReq
	if err := c.ShouldBindJSON(&req); err != nil {
		app.BadRequest(c, err)
		return
	}
	u, err := ac.Auth.Signup(c.Request.Context(), req.input())
	if err != nil {
		app.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, app.H{"user": u})
}

type loginReq struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// POST /api/auth/login
func (ac *AuthController) Login(c *app.Ctx) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		app.BadRequest(c, err)
		return
	}
	sid, u, err := ac.Auth.Login(c.Request.Context(), req.Username, req.Password, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		app.Fail(c, err)
		return
	}
	ac.setAppCookie(c.Writer, sid, ac.Cfg.SessionTTL)
	c.JSON(http.StatusOK, app.H{"token": sid, "user": u})
}

// POST /api/auth/logout
func (ac *AuthController) Logout(c *app.Ctx) {
	if err := ac.Auth.Logout(c.Request.Context(), app.SessionID(c)); err != nil {
		app.Fail(c, err)
		return
	}
	ac.clearAppCookie(c.Writer)
	c.JSON(http.StatusOK, app.H{"ok": true})
}

// GET /api/auth/me
func (ac *AuthController) Me(c *app.Ctx) {
	c.JSON(http.StatusOK, app.H{"user": app.CurrentUser(c)})
}

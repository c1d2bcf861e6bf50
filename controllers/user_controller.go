package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"equipment_lending/app"
)

var errSelfRevoke = errors.New("cannot revoke your own sessions")

type UserController struct{ *Srv }

func NewUserController(s *Srv) *UserController { return &UserController{s} }

// GET /api/admin/users?q=alice&role=STAFF&page=1&size=20
func (uc *UserController) ListUsers(c *app.Ctx) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))

	res, err := uc.Auth.ListUsers(c.Request.Context(), app.CurrentActor(c), c.Query("q"), c.Query("role"), page, size)
	if err != nil {
		app.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{
		"total": res.Total,
		"users": res.Users,
	})
}

// GET /api/admin/users/:id
func (uc *UserController) GetUser(c *app.Ctx) {
	u, err := uc.Auth.GetUser(c.Request.Context(), app.CurrentActor(c), c.Param("id"))
	if err != nil {
		app.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"user": u})
}

type createUserReq struct {
	signupReq
	Role string `json:"role" binding:"required"`
}

// POST /api/admin/users
func (uc *UserController) CreateUser(c *app.Ctx) {
	var req createUserReq
	if err := c.ShouldBindJSON(&req); err != nil {
		app.BadRequest(c, err)
		return
	}
	u, err := uc.Auth.CreateUser(c.Request.Context(), app.CurrentActor(c), req.input(), req.Role)
	if err != nil {
		app.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, app.H{"user": u})
}

// DELETE /api/admin/users/:id/sessions
func (uc *UserController) RevokeSessions(c *app.Ctx) {
	id := c.Param("id")
	// 不允许踢掉自己，避免当前请求的会话失效
	if id == app.CurrentActor(c).UserID {
		app.BadRequest(c, errSelfRevoke)
		return
	}
	if err := uc.Auth.RevokeSessions(c.Request.Context(), app.CurrentActor(c), id); err != nil {
		app.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true})
}

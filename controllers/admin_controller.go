package controllers

import (
	"net/http"

	"equipment_lending/app"
)

type AdminController struct{ *Srv }

func NewAdminController(s *Srv) *AdminController { return &AdminController{s} }

// GET /api/admin/dashboard
func (ac *AdminController) Dashboard(c *app.Ctx) {
	name := ""
	if u := app.CurrentUser(c); u != nil {
		name = u.DisplayName()
	}
	d, err := ac.Catalog.Dashboard(c.Request.Context(), app.CurrentActor(c), name)
	if err != nil {
		app.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

package controllers

import (
	"errors"
	"io"
	"net/http"

	"equipment_lending/app"
	"equipment_lending/lending"
	"equipment_lending/services"
)

type RequestController struct{ *Srv }

func NewRequestController(s *Srv) *RequestController { return &RequestController{s} }

type submitReq struct {
	EquipmentID string `json:"equipmentId" binding:"required"`
	Quantity    int    `json:"quantity"`
	Purpose     string `json:"purpose"`
}

// POST /api/requests
func (rc *RequestController) Submit(c *app.Ctx) {
	var req submitReq
	if err := c.ShouldBindJSON(&req); err != nil {
		app.BadRequest(c, err)
		return
	}
	br, err := rc.Lending.Submit(c.Request.Context(), app.CurrentActor(c), services.SubmitRequest{
		EquipmentID: req.EquipmentID,
		Quantity:    req.Quantity,
		Purpose:     req.Purpose,
	})
	if err != nil {
		app.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, app.H{"request": br})
}

// GET /api/requests?scope=mine|pending|all
func (rc *RequestController) List(c *app.Ctx) {
	scope, err := services.ParseScope(c.Query("scope"))
	if err != nil {
		app.Fail(c, err)
		return
	}
	list, err := rc.Lending.List(c.Request.Context(), app.CurrentActor(c), scope)
	if err != nil {
		app.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"requests": list, "total": len(list)})
}

// GET /api/requests/:id
func (rc *RequestController) Get(c *app.Ctx) {
	br, err := rc.Lending.Get(c.Request.Context(), app.CurrentActor(c), c.Param("id"))
	if err != nil {
		app.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"request": br})
}

type transitionReq struct {
	Notes *string `json:"notes"`
}

// Transition serves PUT /api/requests/:id/{approve|reject|borrowed|returned}.
// The body is optional.
func (rc *RequestController) Transition(action lending.Action) func(c *app.Ctx) {
	return func(c *app.Ctx) {
		var req transitionReq
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			app.BadRequest(c, err)
			return
		}
		br, err := rc.Lending.Transition(c.Request.Context(), app.CurrentActor(c), c.Param("id"), action, req.Notes)
		if err != nil {
			app.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, app.H{"request": br})
	}
}

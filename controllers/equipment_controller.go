package controllers

import (
	"net/http"
	"strconv"

	"equipment_lending/app"
	"equipment_lending/db"
	"equipment_lending/services"
)

type EquipmentController struct{ *Srv }

func NewEquipmentController(s *Srv) *EquipmentController { return &EquipmentController{s} }

// GET /api/equipment?available=true&category=&q=
func (ec *EquipmentController) List(c *app.Ctx) {
	q := db.EquipmentQuery{Q: c.Query("q"), Category: c.Query("category")}
	if v := c.Query("available"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			app.BadRequest(c, err)
			return
		}
		q.AvailableOnly = b
	}
	items, err := ec.Catalog.List(c.Request.Context(), app.CurrentActor(c), q)
	if err != nil {
		app.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"items": items, "total": len(items)})
}

// GET /api/equipment/categories
func (ec *EquipmentController) Categories(c *app.Ctx) {
	cats, err := ec.Catalog.Categories(c.Request.Context(), app.CurrentActor(c))
	if err != nil {
		app.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"categories": cats})
}

// GET /api/equipment/:id
func (ec *EquipmentController) Get(c *app.Ctx) {
	e, err := ec.Catalog.Get(c.Request.Context(), app.CurrentActor(c), c.Param("id"))
	if err != nil {
		app.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"item": e})
}

type equipmentReq struct {
	Name        string `json:"name" binding:"required"`
	Category    string `json:"category" binding:"required"`
	Condition   string `json:"condition" binding:"required"`
	Quantity    int    `json:"quantity"`
	Description string `json:"description"`
}

// POST /api/equipment
func (ec *EquipmentController) Create(c *app.Ctx) {
	var req equipmentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		app.BadRequest(c, err)
		return
	}
	e, err := ec.Catalog.Create(c.Request.Context(), app.CurrentActor(c), services.EquipmentInput{
		Name:        req.Name,
		Category:    req.Category,
		Condition:   req.Condition,
		Quantity:    req.Quantity,
		Description: req.Description,
	})
	if err != nil {
		app.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, app.H{"item": e})
}

type equipmentPatchReq struct {
	Name        *string `json:"name"`
	Category    *string `json:"category"`
	Condition   *string `json:"condition"`
	Quantity    *int    `json:"quantity"`
	Description *string `json:"description"`
}

// PUT /api/equipment/:id
func (ec *EquipmentController) Update(c *app.Ctx) {
	var req equipmentPatchReq
	if err := c.ShouldBindJSON(&req); err != nil {
		app.BadRequest(c, err)
		return
	}
	e, err := ec.Catalog.Update(c.Request.Context(), app.CurrentActor(c), c.Param("id"), services.EquipmentUpdate{
		Name:        req.Name,
		Category:    req.Category,
		Condition:   req.Condition,
		Quantity:    req.Quantity,
		Description: req.Description,
	})
	if err != nil {
		app.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"item": e})
}

// DELETE /api/equipment/:id
func (ec *EquipmentController) Delete(c *app.Ctx) {
	if err := ec.Catalog.Delete(c.Request.Context(), app.CurrentActor(c), c.Param("id")); err != nil {
		app.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true})
}

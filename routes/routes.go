package routes

import (
	"net/http"

	"equipment_lending/app"
	"equipment_lending/controllers"
	"equipment_lending/db"
	"equipment_lending/lending"
	"equipment_lending/metrics"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, a *app.App) *controllers.Srv {
	// 控制器与依赖
	s := controllers.GetSrv(a)
	authCtl := controllers.NewAuthController(s)
	equipCtl := controllers.NewEquipmentController(s)
	reqCtl := controllers.NewRequestController(s)
	adminCtl := controllers.NewAdminController(s)
	userCtl := controllers.NewUserController(s)

	// 复用的中间件
	authMW := app.AuthRequired(s.Auth)
	seenMW := app.TouchLastSeen(s.Repo, a.RDB, a.Config.SeenThrottle)

	r.Use(metrics.Middleware())
	r.GET("/healthz", healthz(a))
	r.GET("/metrics", metrics.Handler())

	// ------------------------------
	// 认证
	// ------------------------------
	auth := r.Group("/api/auth")
	{
		auth.POST("/signup", authCtl.Signup)
		auth.POST("/login", authCtl.Login)
		auth.POST("/logout", authCtl.Logout)
		auth.GET("/me", authMW, seenMW, authCtl.Me)
	}

	// ------------------------------
	// 器材目录
	// ------------------------------
	equipment := r.Group("/api/equipment", authMW, seenMW)
	{
		equipment.GET("", equipCtl.List) // ?available=&category=&q=
		equipment.GET("/categories", equipCtl.Categories)
		equipment.GET("/:id", equipCtl.Get)

		manage := equipment.Group("", app.Permit(lending.OpManageCatalog))
		manage.POST("", equipCtl.Create)
		manage.PUT("/:id", equipCtl.Update)
		manage.DELETE("/:id", equipCtl.Delete)
	}

	// ------------------------------
	// 借用申请
	// ------------------------------
	requests := r.Group("/api/requests", authMW, seenMW)
	{
		requests.POST("", reqCtl.Submit)
		requests.GET("", reqCtl.List) // ?scope=mine|pending|all
		requests.GET("/:id", reqCtl.Get)

		review := requests.Group("/:id", app.Permit(lending.OpTransitionRequest))
		review.PUT("/approve", reqCtl.Transition(lending.ActionApprove))
		review.PUT("/reject", reqCtl.Transition(lending.ActionReject))
		review.PUT("/borrowed", reqCtl.Transition(lending.ActionMarkBorrowed))
		review.PUT("/returned", reqCtl.Transition(lending.ActionMarkReturned))
	}

	// ------------------------------
	// 管理（仅管理员）
	// ------------------------------
	admin := r.Group("/api/admin", authMW, seenMW)
	{
		admin.GET("/dashboard", app.Permit(lending.OpViewDashboard), adminCtl.Dashboard)

		users := admin.Group("/users", app.Permit(lending.OpManageUsers))
		users.GET("", userCtl.ListUsers) // ?q=&role=&page=&size=
		users.POST("", userCtl.CreateUser)
		users.GET("/:id", userCtl.GetUser)
		users.DELETE("/:id/sessions", userCtl.RevokeSessions)
	}
	return s
}

func healthz(a *app.App) gin.HandlerFunc {
	return func(c *app.Ctx) {
		ctx := c.Request.Context()
		status, body := http.StatusOK, app.H{"ok": true}
		if err := db.Ping(ctx, a.DB); err != nil {
			status, body = http.StatusServiceUnavailable, app.H{"ok": false, "db": err.Error()}
		} else if err := a.RDB.Ping(ctx).Err(); err != nil {
			status, body = http.StatusServiceUnavailable, app.H{"ok": false, "redis": err.Error()}
		}
		c.JSON(status, body)
	}
}

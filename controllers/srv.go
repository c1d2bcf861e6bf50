// controllers/srv.go
package controllers

import (
	"net/http"
	"strings"
	"time"

	"equipment_lending/app"
	"equipment_lending/db"
	"equipment_lending/services"
)

type Srv struct {
	Repo      *db.Repo
	Auth      *services.AuthService
	Catalog   *services.CatalogService
	Lending   *services.LendingService
	WebOrigin string
	Cfg       app.Config
}

func GetSrv(a *app.App) *Srv {
	repo := db.NewRepo(a.DB)
	return &Srv{
		Repo:      repo,
		Auth:      services.NewAuthService(repo, a.AppSessions(), a.Log),
		Catalog:   services.NewCatalogService(repo, a.Categories(), a.Log),
		Lending:   services.NewLendingService(repo, a.Log),
		WebOrigin: a.Config.WebOrigin,
		Cfg:       a.Config,
	}
}

// --- helpers ---

// 统一设置业务会话 Cookie
func (s *Srv) setAppCookie(w http.ResponseWriter, sessionID string, maxAge time.Duration) {
	secure := strings.HasPrefix(s.WebOrigin, "https://")
	http.SetCookie(w, &http.Cookie{
		Name:     app.AppSessionCookie,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
		MaxAge:   int(maxAge / time.Second),
	})
}

func (s *Srv) clearAppCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     app.AppSessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1, // 删除
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   strings.HasPrefix(s.WebOrigin, "https://"),
	})
}

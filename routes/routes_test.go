package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"equipment_lending/app"
	"equipment_lending/db"
	"equipment_lending/services"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type harness struct {
	t *testing.T
	r *gin.Engine
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Discard})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := app.Config{
		WebOrigin:    "http://localhost:5173",
		LogLevel:     "debug",
		SessionTTL:   time.Hour,
		CategoryTTL:  time.Minute,
		SeenThrottle: time.Minute,
	}
	a := app.New(cfg, conn, rdb, zerolog.Nop())
	t.Cleanup(a.Close)
	s := RegisterRoutes(a.Router, a)
	s.Auth.WithBcryptCost(bcrypt.MinCost)

	if _, err := s.Auth.EnsureAdmin(context.Background(), services.SignupInput{
		Username: "admin", Email: "admin@school.edu", Password: "adminpw", FirstName: "Ada",
	}); err != nil {
		t.Fatalf("bootstrap admin: %v", err)
	}
	return &harness{t: t, r: a.Router}
}

// do sends a JSON request and decodes the JSON response into a map.
func (h *harness) do(method, path, token string, body any) (int, map[string]any) {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			h.t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.r.ServeHTTP(w, req)
	out := map[string]any{}
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") != "" && bytes.HasPrefix(bytes.TrimSpace(w.Body.Bytes()), []byte("{")) {
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			h.t.Fatalf("%s %s: decode %q: %v", method, path, w.Body.String(), err)
		}
	}
	return w.Code, out
}

func (h *harness) login(username, password string) string {
	h.t.Helper()
	code, body := h.do(http.MethodPost, "/api/auth/login", "", map[string]string{"username": username, "password": password})
	if code != http.StatusOK {
		h.t.Fatalf("login %s: %d %v", username, code, body)
	}
	return body["token"].(string)
}

func field(body map[string]any, obj, key string) any {
	m, _ := body[obj].(map[string]any)
	return m[key]
}

func TestBorrowFlowOverHTTP(t *testing.T) {
	h := newHarness(t)
	admin := h.login("admin", "adminpw")

	code, body := h.do(http.MethodPost, "/api/admin/users", admin, map[string]string{
		"username": "sam", "email": "sam@school.edu", "password": "staffpw", "role": "STAFF",
	})
	if code != http.StatusCreated {
		t.Fatalf("create staff: %d %v", code, body)
	}
	staffID := field(body, "user", "id").(string)
	staff := h.login("sam", "staffpw")

	if code, body = h.do(http.MethodPost, "/api/auth/signup", "", map[string]string{
		"username": "stu", "email": "stu@school.edu", "password": "studentpw",
	}); code != http.StatusCreated || field(body, "user", "role") != "STUDENT" {
		t.Fatalf("signup: %d %v", code, body)
	}
	student := h.login("stu", "studentpw")

	code, body = h.do(http.MethodPost, "/api/equipment", admin, map[string]any{
		"name": "Microscope", "category": "Science", "condition": "Good", "quantity": 5,
	})
	if code != http.StatusCreated {
		t.Fatalf("create equipment: %d %v", code, body)
	}
	equipmentID := field(body, "item", "id").(string)

	code, body = h.do(http.MethodPost, "/api/requests", student, map[string]any{
		"equipmentId": equipmentID, "quantity": 3, "purpose": "biology lab",
	})
	if code != http.StatusCreated || field(body, "request", "status") != "PENDING" {
		t.Fatalf("submit: %d %v", code, body)
	}
	requestID := field(body, "request", "id").(string)

	if code, body = h.do(http.MethodPut, "/api/requests/"+requestID+"/approve", student, nil); code != http.StatusForbidden || body["error"] != "forbidden" {
		t.Fatalf("student approve: %d %v", code, body)
	}
	if code, body = h.do(http.MethodPut, "/api/requests/"+requestID+"/approve", staff, map[string]string{"notes": "ok"}); code != http.StatusOK {
		t.Fatalf("approve: %d %v", code, body)
	}
	if field(body, "request", "adminNotes") != "ok" {
		t.Fatalf("notes not stored: %v", body)
	}
	if code, body = h.do(http.MethodGet, "/api/equipment/"+equipmentID, student, nil); field(body, "item", "availableQuantity") != float64(2) {
		t.Fatalf("available after approve: %d %v", code, body)
	}

	if code, body = h.do(http.MethodPost, "/api/requests", student, map[string]any{"equipmentId": equipmentID, "quantity": 3}); code != http.StatusConflict {
		t.Fatalf("over availability: %d %v", code, body)
	}
	if body["error"] != "insufficient_availability" || body["path"] != "/api/requests" || body["status"] != float64(http.StatusConflict) {
		t.Fatalf("error envelope: %v", body)
	}
	if code, _ = h.do(http.MethodPost, "/api/requests", student, map[string]any{"equipmentId": equipmentID, "quantity": 0}); code != http.StatusBadRequest {
		t.Fatalf("zero quantity: %d", code)
	}

	if code, body = h.do(http.MethodDelete, "/api/equipment/"+equipmentID, admin, nil); code != http.StatusConflict || body["error"] != "has_active_requests" {
		t.Fatalf("delete with approved request: %d %v", code, body)
	}
	if code, body = h.do(http.MethodPut, "/api/requests/"+requestID+"/returned", staff, nil); code != http.StatusConflict || body["error"] != "invalid_transition" {
		t.Fatalf("return before borrow: %d %v", code, body)
	}
	if code, _ = h.do(http.MethodPut, "/api/requests/"+requestID+"/borrowed", staff, nil); code != http.StatusOK {
		t.Fatalf("borrowed: %d", code)
	}
	if code, body = h.do(http.MethodPut, "/api/requests/"+requestID+"/returned", admin, nil); code != http.StatusOK || field(body, "request", "status") != "RETURNED" {
		t.Fatalf("returned: %d %v", code, body)
	}

	code, body = h.do(http.MethodGet, "/api/admin/dashboard", admin, nil)
	if code != http.StatusOK || body["adminName"] != "Ada" || body["totalEquipment"] != float64(1) || body["availableEquipment"] != float64(1) {
		t.Fatalf("dashboard: %d %v", code, body)
	}
	if code, _ = h.do(http.MethodGet, "/api/admin/dashboard", staff, nil); code != http.StatusForbidden {
		t.Fatalf("staff dashboard: %d", code)
	}

	if code, _ = h.do(http.MethodDelete, "/api/admin/users/"+staffID+"/sessions", admin, nil); code != http.StatusOK {
		t.Fatalf("revoke staff sessions: %d", code)
	}
	if code, _ = h.do(http.MethodGet, "/api/requests?scope=pending", staff, nil); code != http.StatusUnauthorized {
		t.Fatalf("staff after revoke: %d", code)
	}
}

func TestAuthAndScopes(t *testing.T) {
	h := newHarness(t)

	if code, body := h.do(http.MethodGet, "/api/equipment", "", nil); code != http.StatusUnauthorized || body["error"] != "unauthorized" {
		t.Fatalf("anonymous browse: %d %v", code, body)
	}
	if code, _ := h.do(http.MethodPost, "/api/auth/login", "", map[string]string{"username": "admin", "password": "nope"}); code != http.StatusUnauthorized {
		t.Fatalf("bad login: %d", code)
	}
	if code, _ := h.do(http.MethodPost, "/api/auth/signup", "", map[string]string{"username": "admin", "email": "x@school.edu", "password": "secret1"}); code != http.StatusConflict {
		t.Fatalf("duplicate signup: %d", code)
	}
	if code, _ := h.do(http.MethodPost, "/api/auth/signup", "", map[string]string{"username": "x"}); code != http.StatusBadRequest {
		t.Fatalf("incomplete signup: %d", code)
	}

	if code, _ := h.do(http.MethodPost, "/api/auth/signup", "", map[string]string{"username": "stu", "email": "stu@school.edu", "password": "studentpw"}); code != http.StatusCreated {
		t.Fatalf("signup: %d", code)
	}
	student := h.login("stu", "studentpw")

	if code, body := h.do(http.MethodGet, "/api/auth/me", student, nil); code != http.StatusOK || field(body, "user", "username") != "stu" {
		t.Fatalf("me: %d %v", code, body)
	}
	if code, _ := h.do(http.MethodGet, "/api/requests?scope=all", student, nil); code != http.StatusForbidden {
		t.Fatalf("student scope=all: %d", code)
	}
	if code, _ := h.do(http.MethodGet, "/api/requests?scope=bogus", student, nil); code != http.StatusBadRequest {
		t.Fatalf("bad scope: %d", code)
	}
	if code, body := h.do(http.MethodGet, "/api/requests", student, nil); code != http.StatusOK || body["total"] != float64(0) {
		t.Fatalf("mine: %d %v", code, body)
	}
	if code, _ := h.do(http.MethodPost, "/api/equipment", student, map[string]any{"name": "x", "category": "y", "condition": "Good", "quantity": 1}); code != http.StatusForbidden {
		t.Fatalf("student create equipment: %d", code)
	}
	if code, _ := h.do(http.MethodGet, "/api/equipment/missing", student, nil); code != http.StatusNotFound {
		t.Fatalf("missing equipment: %d", code)
	}

	if code, _ := h.do(http.MethodPost, "/api/auth/logout", student, nil); code != http.StatusOK {
		t.Fatalf("logout: %d", code)
	}
	if code, _ := h.do(http.MethodGet, "/api/auth/me", student, nil); code != http.StatusUnauthorized {
		t.Fatalf("me after logout: %d", code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	h := newHarness(t)
	if code, body := h.do(http.MethodGet, "/healthz", "", nil); code != http.StatusOK || body["ok"] != true {
		t.Fatalf("healthz: %d %v", code, body)
	}
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	h.r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || !bytes.Contains(w.Body.Bytes(), []byte("lending_http_request_duration_seconds")) {
		t.Fatalf("metrics: %d", w.Code)
	}
}

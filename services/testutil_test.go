package services

import (
	"context"
	"testing"
	"time"

	"equipment_lending/cache"
	"equipment_lending/db"
	"equipment_lending/lending"
	"equipment_lending/models"
	"equipment_lending/session"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type fixture struct {
	repo    *db.Repo
	mr      *miniredis.Miniredis
	auth    *AuthService
	catalog *CatalogService
	lending *LendingService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Discard})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := db.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	repo := db.NewRepo(conn)
	log := zerolog.Nop()
	return &fixture{
		repo:    repo,
		mr:      mr,
		auth:    NewAuthService(repo, session.NewAppSessionStore(rdb, time.Hour), log).WithBcryptCost(bcrypt.MinCost),
		catalog: NewCatalogService(repo, cache.NewCategoryCache(rdb, time.Minute), log),
		lending: NewLendingService(repo, log),
	}
}

func (f *fixture) user(t *testing.T, username string, role lending.Role) lending.Actor {
	t.Helper()
	u := &models.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        username + "@school.edu",
		PasswordHash: "x",
		Role:         role,
	}
	if err := f.repo.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u.Actor()
}

func (f *fixture) equipment(t *testing.T, admin lending.Actor, name, category string, qty int) *models.Equipment {
	t.Helper()
	e, err := f.catalog.Create(context.Background(), admin, EquipmentInput{
		Name: name, Category: category, Condition: "Good", Quantity: qty,
	})
	if err != nil {
		t.Fatalf("create equipment %s: %v", name, err)
	}
	return e
}

func (f *fixture) available(t *testing.T, id string) int {
	t.Helper()
	var e models.Equipment
	if err := f.repo.DB.Unscoped().First(&e, "id = ?", id).Error; err != nil {
		t.Fatalf("reload equipment: %v", err)
	}
	return e.AvailableQuantity
}

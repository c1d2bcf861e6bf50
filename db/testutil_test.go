package db

import (
	"context"
	"testing"

	"equipment_lending/lending"
	"equipment_lending/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newTestRepo returns a Repo over a private in-memory sqlite database. One
// connection keeps the memory database alive and serialises transactions.
func newTestRepo(t *testing.T) *Repo {
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
	if err := Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewRepo(conn)
}

func mustUser(t *testing.T, r *Repo, username string, role lending.Role) *models.User {
	t.Helper()
	u := &models.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        username + "@school.edu",
		PasswordHash: "x",
		Role:         role,
	}
	if err := r.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}

func mustEquipment(t *testing.T, r *Repo, name string, qty int) *models.Equipment {
	t.Helper()
	e := &models.Equipment{
		ID:                uuid.NewString(),
		Name:              name,
		Category:          "Sports",
		Condition:         lending.ConditionGood,
		Quantity:          qty,
		AvailableQuantity: qty,
	}
	if err := r.CreateEquipment(context.Background(), e); err != nil {
		t.Fatalf("create equipment %s: %v", name, err)
	}
	return e
}

func mustSubmit(t *testing.T, r *Repo, userID, equipmentID string, qty int) *models.BorrowRequest {
	t.Helper()
	br, err := r.CreateBorrowRequest(context.Background(), SubmitInput{UserID: userID, EquipmentID: equipmentID, Quantity: qty})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	return br
}

func mustTransition(t *testing.T, r *Repo, requestID string, a lending.Action) *models.BorrowRequest {
	t.Helper()
	br, err := r.Transition(context.Background(), TransitionInput{RequestID: requestID, Action: a})
	if err != nil {
		t.Fatalf("%s %s: %v", a, requestID, err)
	}
	return br
}

func available(t *testing.T, r *Repo, equipmentID string) int {
	t.Helper()
	var e models.Equipment
	if err := r.DB.Unscoped().First(&e, "id = ?", equipmentID).Error; err != nil {
		t.Fatalf("reload equipment: %v", err)
	}
	return e.AvailableQuantity
}

// assertInvariant checks 0 <= available <= quantity and that available equals
// quantity minus the reserved units recorded in the ledger.
func assertInvariant(t *testing.T, r *Repo, equipmentID string) {
	t.Helper()
	var e models.Equipment
	if err := r.DB.Unscoped().First(&e, "id = ?", equipmentID).Error; err != nil {
		t.Fatalf("reload equipment: %v", err)
	}
	if e.AvailableQuantity < 0 || e.AvailableQuantity > e.Quantity {
		t.Fatalf("available %d outside [0, %d]", e.AvailableQuantity, e.Quantity)
	}
	reserved, err := r.ReservedQuantity(context.Background(), equipmentID)
	if err != nil {
		t.Fatalf("reserved: %v", err)
	}
	if e.AvailableQuantity != e.Quantity-reserved {
		t.Fatalf("available %d != quantity %d - reserved %d", e.AvailableQuantity, e.Quantity, reserved)
	}
}

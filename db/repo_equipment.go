// db/repo_equipment.go
package db

import (
	"context"
	"fmt"
	"strings"

	"equipment_lending/lending"
	"equipment_lending/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// forUpdate takes a row lock on the selected rows for the rest of the transaction.
func forUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

func (r *Repo) CreateEquipment(ctx context.Context, e *models.Equipment) error {
	return r.DB.WithContext(ctx).Create(e).Error
}

func (r *Repo) FindEquipmentByID(ctx context.Context, id string) (*models.Equipment, error) {
	if err := checkID(id, "equipment"); err != nil {
		return nil, err
	}
	var e models.Equipment
	if err := r.DB.WithContext(ctx).First(&e, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "equipment "+id)
	}
	return &e, nil
}

type EquipmentQuery struct {
	Q             string // 名称模糊搜索
	Category      string
	AvailableOnly bool
}

func (r *Repo) ListEquipment(ctx context.Context, q EquipmentQuery) ([]models.Equipment, error) {
	tx := r.DB.WithContext(ctx).Model(&models.Equipment{})
	if s := strings.TrimSpace(q.Q); s != "" {
		tx = tx.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(s)+"%")
	}
	if q.Category != "" {
		tx = tx.Where("category = ?", q.Category)
	}
	if q.AvailableOnly {
		tx = tx.Where("available_quantity > 0")
	}
	var items []models.Equipment
	err := tx.Order("name ASC").Find(&items).Error
	return items, err
}

func (r *Repo) ListCategories(ctx context.Context) ([]string, error) {
	var cats []string
	err := r.DB.WithContext(ctx).Model(&models.Equipment{}).
		Distinct().
		Order("category").
		Pluck("category", &cats).Error
	return cats, err
}

// EquipmentPatch carries the editable fields; nil means unchanged.
type EquipmentPatch struct {
	Name        *string
	Category    *string
	Condition   *lending.Condition
	Quantity    *int
	Description *string
}

// UpdateEquipment applies p under a row lock. A new total below the units
// currently reserved is refused; otherwise the reserved count is preserved and
// available quantity follows the total.
func (r *Repo) UpdateEquipment(ctx context.Context, id string, p EquipmentPatch) (*models.Equipment, error) {
	if err := checkID(id, "equipment"); err != nil {
		return nil, err
	}
	var e models.Equipment
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).First(&e, "id = ?", id).Error; err != nil {
			return notFound(err, "equipment "+id)
		}
		reserved := e.Reserved()
		if p.Quantity != nil {
			if *p.Quantity < reserved {
				return fmt.Errorf("%w: %d units are reserved, cannot reduce total to %d",
					lending.ErrInvalidQuantityReduction, reserved, *p.Quantity)
			}
			e.Quantity = *p.Quantity
			e.AvailableQuantity = e.Quantity - reserved
		}
		if p.Name != nil {
			e.Name = *p.Name
		}
		if p.Category != nil {
			e.Category = *p.Category
		}
		if p.Condition != nil {
			e.Condition = *p.Condition
		}
		if p.Description != nil {
			e.Description = *p.Description
		}
		return tx.Save(&e).Error
	})
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// DeleteEquipment soft-deletes an item with no PENDING, APPROVED or BORROWED
// requests. Historical requests keep pointing at the row.
func (r *Repo) DeleteEquipment(ctx context.Context, id string) error {
	if err := checkID(id, "equipment"); err != nil {
		return err
	}
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var e models.Equipment
		if err := forUpdate(tx).First(&e, "id = ?", id).Error; err != nil {
			return notFound(err, "equipment "+id)
		}
		var n int64
		if err := tx.Model(&models.BorrowRequest{}).
			Where("equipment_id = ? AND status IN ?", id, lending.ActiveStatuses()).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: %d open request(s) for %s", lending.ErrHasActiveRequests, n, e.Name)
		}
		return tx.Delete(&e).Error
	})
}

// 汇总：总数 / 可借 / 已全部借出
type EquipmentCounts struct {
	Total     int64
	Available int64
}

func (r *Repo) CountEquipment(ctx context.Context) (EquipmentCounts, error) {
	var c EquipmentCounts
	db := r.DB.WithContext(ctx)
	if err := db.Model(&models.Equipment{}).Count(&c.Total).Error; err != nil {
		return c, err
	}
	if err := db.Model(&models.Equipment{}).Where("available_quantity > 0").Count(&c.Available).Error; err != nil {
		return c, err
	}
	return c, nil
}

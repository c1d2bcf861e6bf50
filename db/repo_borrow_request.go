// db/repo_borrow_request.go
package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"equipment_lending/lending"
	"equipment_lending/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// withRefs preloads requester and equipment; soft-deleted equipment stays visible
// on historical requests.
func withRefs(tx *gorm.DB) *gorm.DB {
	return tx.Preload("User").
		Preload("Equipment", func(db *gorm.DB) *gorm.DB { return db.Unscoped() })
}

type SubmitInput struct {
	UserID      string
	EquipmentID string
	Quantity    int
	Purpose     string
}

// CreateBorrowRequest records a PENDING request after checking the quantity
// against current availability. Nothing is reserved until approval.
func (r *Repo) CreateBorrowRequest(ctx context.Context, in SubmitInput) (*models.BorrowRequest, error) {
	if err := checkID(in.EquipmentID, "equipment"); err != nil {
		return nil, err
	}
	var req *models.BorrowRequest
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var e models.Equipment
		if err := forUpdate(tx).First(&e, "id = ?", in.EquipmentID).Error; err != nil {
			return notFound(err, "equipment "+in.EquipmentID)
		}
		if in.Quantity > e.AvailableQuantity {
			return fmt.Errorf("%w: requested %d, %d available", lending.ErrInsufficientAvailability, in.Quantity, e.AvailableQuantity)
		}
		br := &models.BorrowRequest{
			ID:          uuid.NewString(),
			UserID:      in.UserID,
			EquipmentID: e.ID,
			Quantity:    in.Quantity,
			Purpose:     in.Purpose,
			RequestDate: time.Now().UTC(),
			Status:      lending.StatusPending,
		}
		if err := tx.Create(br).Error; err != nil {
			return err
		}
		if err := withRefs(tx).First(br, "id = ?", br.ID).Error; err != nil {
			return err
		}
		req = br
		return nil
	})
	return req, err
}

func (r *Repo) FindBorrowRequestByID(ctx context.Context, id string) (*models.BorrowRequest, error) {
	if err := checkID(id, "borrow request"); err != nil {
		return nil, err
	}
	var br models.BorrowRequest
	if err := withRefs(r.DB.WithContext(ctx)).First(&br, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "borrow request "+id)
	}
	return &br, nil
}

type BorrowRequestQuery struct {
	UserID      string
	EquipmentID string
	Statuses    []lending.Status
}

func (r *Repo) ListBorrowRequests(ctx context.Context, q BorrowRequestQuery) ([]models.BorrowRequest, error) {
	tx := withRefs(r.DB.WithContext(ctx)).Model(&models.BorrowRequest{}).Order("request_date DESC")
	if q.UserID != "" {
		tx = tx.Where("user_id = ?", q.UserID)
	}
	if q.EquipmentID != "" {
		tx = tx.Where("equipment_id = ?", q.EquipmentID)
	}
	if len(q.Statuses) > 0 {
		tx = tx.Where("status IN ?", q.Statuses)
	}
	var out []models.BorrowRequest
	if err := tx.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

type TransitionInput struct {
	RequestID  string
	Action     lending.Action
	ReviewerID string
	Notes      *string
}

var errAvailabilityOverflow = errors.New("available quantity would exceed total quantity")

// Transition applies one lifecycle step atomically: lock the request, check the
// transition table, adjust the equipment's available quantity with a guarded
// update, then move the request. Two approvals racing for the last units
// serialise on the equipment row; the loser sees the decremented value.
func (r *Repo) Transition(ctx context.Context, in TransitionInput) (*models.BorrowRequest, error) {
	if err := checkID(in.RequestID, "borrow request"); err != nil {
		return nil, err
	}
	var br models.BorrowRequest
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1) 锁住申请
		if err := forUpdate(tx).First(&br, "id = ?", in.RequestID).Error; err != nil {
			return notFound(err, "borrow request "+in.RequestID)
		}
		from := br.Status
		if err := lending.CheckTransition(from, in.Action); err != nil {
			return err
		}

		// 2) 调整可借数量（审批扣减、归还释放）
		if delta := in.Action.AvailabilityDelta(br.Quantity); delta != 0 {
			if err := adjustAvailable(tx, br.EquipmentID, delta); err != nil {
				return err
			}
		}

		// 3) 推进状态；WHERE status = from 防止并发重复推进
		now := time.Now().UTC()
		update := map[string]any{"status": in.Action.Target()}
		switch in.Action {
		case lending.ActionApprove, lending.ActionReject:
			if in.ReviewerID != "" {
				update["reviewed_by"] = in.ReviewerID
			}
			if in.Notes != nil {
				update["admin_notes"] = *in.Notes
			}
		case lending.ActionMarkBorrowed:
			update["borrow_date"] = now
		case lending.ActionMarkReturned:
			update["return_date"] = now
		}
		res := tx.Model(&models.BorrowRequest{}).
			Where("id = ? AND status = ?", br.ID, from).
			Updates(update)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: request %s is no longer %s", lending.ErrInvalidTransition, br.ID, from)
		}

		// 4) 读回
		return withRefs(tx).First(&br, "id = ?", br.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &br, nil
}

// adjustAvailable locks the equipment row and shifts available_quantity by
// delta, refusing to leave [0, quantity].
func adjustAvailable(tx *gorm.DB, equipmentID string, delta int) error {
	var e models.Equipment
	if err := forUpdate(tx.Unscoped()).First(&e, "id = ?", equipmentID).Error; err != nil {
		return notFound(err, "equipment "+equipmentID)
	}
	q := tx.Unscoped().Model(&models.Equipment{}).Where("id = ?", equipmentID)
	if delta < 0 {
		q = q.Where("available_quantity >= ?", -delta)
	} else {
		q = q.Where("available_quantity + ? <= quantity", delta)
	}
	res := q.Update("available_quantity", gorm.Expr("available_quantity + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if delta < 0 {
			return fmt.Errorf("%w: %d requested, %d available for %s",
				lending.ErrInsufficientAvailability, -delta, e.AvailableQuantity, e.Name)
		}
		return fmt.Errorf("%s: %w", e.Name, errAvailabilityOverflow)
	}
	return nil
}

// ReservedQuantity sums the quantities of APPROVED and BORROWED requests for an
// item; available quantity must always equal total minus this figure.
func (r *Repo) ReservedQuantity(ctx context.Context, equipmentID string) (int, error) {
	var sum int
	err := r.DB.WithContext(ctx).Model(&models.BorrowRequest{}).
		Select("COALESCE(SUM(quantity), 0)").
		Where("equipment_id = ? AND status IN ?", equipmentID, lending.ReservingStatuses()).
		Scan(&sum).Error
	return sum, err
}

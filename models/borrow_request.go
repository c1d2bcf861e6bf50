// models/borrow_request.go
package models

import (
	"time"

	"equipment_lending/lending"
)

const BorrowRequestTable = "el_borrow_requests"

// BorrowRequest is a ledger entry. Rows are never deleted.
type BorrowRequest struct {
	ID          string         `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      string         `gorm:"type:uuid;index;not null" json:"userId"`
	EquipmentID string         `gorm:"type:uuid;index;not null" json:"equipmentId"`
	Quantity    int            `gorm:"not null;check:chk_request_quantity,quantity >= 1" json:"quantity"`
	Purpose     string         `gorm:"size:500" json:"purpose,omitempty"`
	RequestDate time.Time      `gorm:"index;not null" json:"requestDate"`
	Status      lending.Status `gorm:"size:20;not null;default:'PENDING';index" json:"status"`
	AdminNotes  string         `gorm:"size:500" json:"adminNotes,omitempty"`
	ReviewedBy  *string        `gorm:"type:uuid" json:"reviewedBy,omitempty"`
	BorrowDate  *time.Time     `json:"borrowDate,omitempty"`
	ReturnDate  *time.Time     `json:"returnDate,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`

	User      *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Equipment *Equipment `gorm:"foreignKey:EquipmentID" json:"equipment,omitempty"`
}

func (BorrowRequest) TableName() string { return BorrowRequestTable }

// models/equipment.go
package models

import (
	"time"

	"equipment_lending/lending"

	"gorm.io/gorm"
)

const EquipmentTable = "el_equipment"

// Equipment is a catalog entry. AvailableQuantity counts units not held by an
// APPROVED or BORROWED request; the check constraint keeps it within [0, Quantity].
type Equipment struct {
	ID                string            `gorm:"type:uuid;primaryKey" json:"id"`
	Name              string            `gorm:"size:100;not null;index" json:"name"`
	Category          string            `gorm:"size:50;not null;index" json:"category"`
	Condition         lending.Condition `gorm:"column:condition_text;size:20;not null" json:"condition"`
	Quantity          int               `gorm:"not null;check:chk_equipment_quantity,quantity >= 1" json:"quantity"`
	AvailableQuantity int               `gorm:"not null;check:chk_equipment_available,available_quantity >= 0 AND available_quantity <= quantity" json:"availableQuantity"`
	Description       string            `gorm:"size:500" json:"description,omitempty"`
	CreatedAt         time.Time         `json:"createdAt"`
	UpdatedAt         time.Time         `json:"updatedAt"`
	DeletedAt         gorm.DeletedAt    `gorm:"index" json:"-"`
}

func (Equipment) TableName() string { return EquipmentTable }

// Reserved is the number of units held by approved or borrowed requests.
func (e Equipment) Reserved() int { return e.Quantity - e.AvailableQuantity }

func (e Equipment) Available() bool { return e.AvailableQuantity > 0 }

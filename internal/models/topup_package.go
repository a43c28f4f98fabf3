package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TopupPackage defines a purchasable wallet topup and the promotional
// bonus it qualifies for. A zero BonusAmount means no paired bonus
// transaction is owed.
type TopupPackage struct {
	ID          uint            `gorm:"primarykey" json:"id"`
	Name        string          `gorm:"size:100;not null" json:"name"`
	Amount      decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"amount"`
	BonusAmount decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"bonus_amount"`
	Active      bool            `gorm:"not null;default:true;index" json:"active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (TopupPackage) TableName() string {
	return "topup_packages"
}

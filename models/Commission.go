package models

import "time"

// Commission statuses, admin-mutated only.
const (
	CommissionStatusPending = "pending"
	CommissionStatusPaid    = "paid"
	CommissionStatusFailed  = "failed"
)

// CommissionRecord is derived 1:1 from a paid booking. The unique index on
// BookingID guarantees at most one record per booking even under webhook
// replays.
type CommissionRecord struct {
	ID        uint `json:"id" gorm:"primaryKey"`
	BookingID uint `json:"bookingID" gorm:"not null;uniqueIndex"`
	OwnerID   uint `json:"ownerID" gorm:"index"`

	CommissionRate   float64 `json:"commissionRate"`   // platform percentage at settlement time
	CommissionAmount float64 `json:"commissionAmount"` // round(totalAmount * rate), display currency
	Currency         string  `json:"currency" gorm:"size:3"`
	Status           string  `json:"status" gorm:"size:16;default:'pending';index"`

	Booking   *Booking  `json:"booking,omitempty" gorm:"foreignKey:BookingID"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

package models

import "time"

// PaymentAccount is an owner's payout destination registered at the payment
// gateway. A verified account is required before the owner can receive split
// settlements.
type PaymentAccount struct {
	ID     uint `json:"id" gorm:"primaryKey"`
	UserID uint `json:"userID" gorm:"not null;uniqueIndex"`

	BusinessName  string `json:"businessName" gorm:"size:256"`
	BankCode      string `json:"bankCode" gorm:"size:16"`
	AccountNumber string `json:"accountNumber" gorm:"size:32"`
	AccountName   string `json:"accountName" gorm:"size:256"`

	SubaccountCode string `json:"subaccountCode" gorm:"size:64;index"` // gateway-issued, e.g. ACCT_xxxx
	IsVerified     bool   `json:"isVerified" gorm:"default:false"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

package models

import "time"

// ChatMessage stores a single message in the guest<->owner conversation
// attached to a booking.
type ChatMessage struct {
	ID        uint    `json:"id" gorm:"primaryKey"`
	BookingID uint    `json:"bookingID" gorm:"not null;index"`
	Booking   Booking `json:"-" gorm:"foreignKey:BookingID"`

	SenderID uint `json:"senderID" gorm:"not null;index"`
	Sender   User `json:"sender" gorm:"foreignKey:SenderID"`

	Content string `json:"content" gorm:"type:text"`
	Type    string `json:"type" gorm:"size:24"` // system|message

	CreatedAt time.Time  `json:"createdAt"`
	ReadAt    *time.Time `json:"readAt"`
}

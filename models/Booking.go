package models

import (
	"time"

	"gorm.io/gorm"
)

// Payment statuses. Mutated only by the settlement flow, never from
// client-asserted values.
const (
	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusFailed   = "failed"
	PaymentStatusRefunded = "refunded"
)

// Booking statuses. confirmed -> checked_in -> completed; confirmed ->
// cancelled/no_show. completed, cancelled and no_show are terminal.
const (
	BookingStatusConfirmed = "confirmed"
	BookingStatusCheckedIn = "checked_in"
	BookingStatusCompleted = "completed"
	BookingStatusCancelled = "cancelled"
	BookingStatusNoShow    = "no_show"
)

type Booking struct {
	gorm.Model
	ApartmentID uint      `json:"apartmentID" gorm:"index"`
	GuestID     uint      `json:"guestID" gorm:"index"`
	CheckIn     time.Time `json:"checkIn"`
	CheckOut    time.Time `json:"checkOut"`
	Guests      int       `json:"guests"`

	// Always server-derived: nights * apartment price
	TotalAmount float64 `json:"totalAmount"`
	Currency    string  `json:"currency"`

	PaymentStatus    string `json:"paymentStatus" gorm:"size:16;default:'pending';index"`
	BookingStatus    string `json:"bookingStatus" gorm:"size:16;default:'confirmed';index"`
	PaymentMethod    string `json:"paymentMethod" gorm:"size:32"`
	PaymentReference string `json:"paymentReference" gorm:"size:64;index"`

	TicketCode      string     `json:"ticketCode" gorm:"size:12;uniqueIndex"`
	CheckInTime     *time.Time `json:"checkInTime"`
	CheckOutTime    *time.Time `json:"checkOutTime"`
	SpecialRequests string     `json:"specialRequests" gorm:"size:1024"`

	Apartment *Apartment `json:"apartment,omitempty" gorm:"foreignKey:ApartmentID"`
	Guest     *User      `json:"guest,omitempty" gorm:"foreignKey:GuestID"`
}

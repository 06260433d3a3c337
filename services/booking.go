package services

import (
	"crypto/rand"
	"errors"
	"log"
	"time"

	"github.com/Apetorku/StayGlobal-sub001/models"
	"github.com/Apetorku/StayGlobal-sub001/storage"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CreateBookingInput carries the guest-supplied booking fields. Any amount a
// client sends is ignored; TotalAmount is always derived server-side.
type CreateBookingInput struct {
	CheckIn         time.Time `json:"checkIn" validate:"required"`
	CheckOut        time.Time `json:"checkOut" validate:"required"`
	Guests          int       `json:"guests" validate:"required,gte=1,lte=16"`
	PaymentMethod   string    `json:"paymentMethod" validate:"omitempty,oneof=card mobile_money bank_transfer"`
	SpecialRequests string    `json:"specialRequests" validate:"max=1024"`
}

// Nights counts the billable nights in a stay, rounding partial days up.
func Nights(checkIn, checkOut time.Time) int {
	hours := checkOut.Sub(checkIn).Hours()
	nights := int(hours / 24)
	if hours > float64(nights)*24 {
		nights++
	}
	if nights < 1 {
		nights = 1
	}
	return nights
}

// StayTotal derives the booking amount from the nightly price. Client input
// never participates.
func StayTotal(price float64, nights int) float64 {
	total := decimal.NewFromFloat(price).Mul(decimal.NewFromInt(int64(nights)))
	return total.Round(2).InexactFloat64()
}

const ticketAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// generateTicketCode returns a short human-readable code, collision-checked
// against existing bookings.
func generateTicketCode() (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		b := make([]byte, 8)
		if _, err := rand.Read(b); err != nil {
			return "", err
		}
		for i, v := range b {
			b[i] = ticketAlphabet[int(v)%len(ticketAlphabet)]
		}
		code := string(b)

		var count int64
		if err := storage.DB.Model(&models.Booking{}).Where("ticket_code = ?", code).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return code, nil
		}
	}
	return "", errors.New("could not generate a unique ticket code")
}

// CreateBooking validates availability and dates, reserves a room with an
// atomic conditional decrement and persists the booking in
// confirmed/payment-pending state.
func CreateBooking(guestID, apartmentID uint, in CreateBookingInput) (*models.Booking, error) {
	if in.Guests < 1 {
		return nil, Validationf("guests must be at least 1")
	}
	if !in.CheckOut.After(in.CheckIn) {
		return nil, Validationf("checkOut must be after checkIn")
	}
	today := time.Now().Truncate(24 * time.Hour)
	if in.CheckIn.Before(today) {
		return nil, Validationf("checkIn must not be in the past")
	}

	var apartment models.Apartment
	if err := storage.DB.First(&apartment, apartmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundf("apartment %d not found", apartmentID)
		}
		return nil, err
	}
	if apartment.IsActive == nil || !*apartment.IsActive {
		return nil, NotFoundf("apartment %d not found", apartmentID)
	}

	// Reserve a room: decrement iff a room is left, never read-then-write.
	res := storage.DB.Model(&models.Apartment{}).
		Where("id = ? AND available_rooms >= 1", apartmentID).
		UpdateColumn("available_rooms", gorm.Expr("available_rooms - 1"))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, Conflictf("no rooms available for apartment %d", apartmentID)
	}

	nights := Nights(in.CheckIn, in.CheckOut)

	booking := models.Booking{
		ApartmentID:     apartmentID,
		GuestID:         guestID,
		CheckIn:         in.CheckIn,
		CheckOut:        in.CheckOut,
		Guests:          in.Guests,
		TotalAmount:     StayTotal(apartment.Price, nights),
		Currency:        apartment.Currency,
		PaymentStatus:   models.PaymentStatusPending,
		BookingStatus:   models.BookingStatusConfirmed,
		PaymentMethod:   in.PaymentMethod,
		SpecialRequests: in.SpecialRequests,
	}

	code, codeErr := generateTicketCode()
	if codeErr != nil {
		releaseRoom(apartmentID)
		return nil, codeErr
	}
	booking.TicketCode = code

	if err := storage.DB.Create(&booking).Error; err != nil {
		releaseRoom(apartmentID)
		return nil, err
	}

	NotifyBookingCreated(&booking, &apartment)

	return &booking, nil
}

// CheckInBooking transitions confirmed -> checked_in. Only the apartment
// owner may admit a guest.
func CheckInBooking(bookingID, actingOwnerID uint) (*models.Booking, error) {
	booking, err := loadBookingWithApartment(bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Apartment.OwnerID != actingOwnerID {
		return nil, Forbiddenf("only the apartment owner can check a guest in")
	}

	now := time.Now()
	res := storage.DB.Model(&models.Booking{}).
		Where("id = ? AND booking_status = ?", bookingID, models.BookingStatusConfirmed).
		Updates(map[string]interface{}{
			"booking_status": models.BookingStatusCheckedIn,
			"check_in_time":  now,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, Conflictf("booking %d is not in confirmed state", bookingID)
	}

	booking.BookingStatus = models.BookingStatusCheckedIn
	booking.CheckInTime = &now
	return booking, nil
}

// SelfCheckout transitions checked_in -> completed on the guest's request and
// releases the room. The transition is guarded by current state, so a
// concurrent auto-checkout sweep and a self-checkout resolve to one winner.
func SelfCheckout(bookingID, actingGuestID uint) (*models.Booking, error) {
	booking, err := loadBookingWithApartment(bookingID)
	if err != nil {
		return nil, err
	}
	if booking.GuestID != actingGuestID {
		return nil, Forbiddenf("only the booking guest can check out")
	}

	now := time.Now()
	res := storage.DB.Model(&models.Booking{}).
		Where("id = ? AND booking_status = ?", bookingID, models.BookingStatusCheckedIn).
		Updates(map[string]interface{}{
			"booking_status": models.BookingStatusCompleted,
			"check_out_time": now,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, Conflictf("booking %d is not checked in", bookingID)
	}

	releaseRoom(booking.ApartmentID)
	booking.BookingStatus = models.BookingStatusCompleted
	booking.CheckOutTime = &now

	NotifyGuestCheckedOut(booking)

	return booking, nil
}

// CancelBooking cancels a confirmed, unpaid booking and restores the room.
// Either the guest or the apartment owner may cancel.
func CancelBooking(bookingID, actingUserID uint) (*models.Booking, error) {
	booking, err := loadBookingWithApartment(bookingID)
	if err != nil {
		return nil, err
	}
	if booking.GuestID != actingUserID && booking.Apartment.OwnerID != actingUserID {
		return nil, Forbiddenf("not a party to booking %d", bookingID)
	}
	if booking.PaymentStatus == models.PaymentStatusPaid {
		return nil, Conflictf("paid bookings cannot be cancelled")
	}

	res := storage.DB.Model(&models.Booking{}).
		Where("id = ? AND booking_status = ? AND payment_status <> ?",
			bookingID, models.BookingStatusConfirmed, models.PaymentStatusPaid).
		Update("booking_status", models.BookingStatusCancelled)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, Conflictf("booking %d cannot be cancelled in its current state", bookingID)
	}

	releaseRoom(booking.ApartmentID)
	booking.BookingStatus = models.BookingStatusCancelled

	NotifyBookingCancelled(booking, actingUserID)

	return booking, nil
}

// MarkNoShow lets the owner close out a confirmed booking whose check-in date
// has passed without the guest arriving.
func MarkNoShow(bookingID, actingOwnerID uint) (*models.Booking, error) {
	booking, err := loadBookingWithApartment(bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Apartment.OwnerID != actingOwnerID {
		return nil, Forbiddenf("only the apartment owner can mark a no-show")
	}
	if time.Now().Before(booking.CheckIn) {
		return nil, Conflictf("check-in date has not passed yet")
	}

	res := storage.DB.Model(&models.Booking{}).
		Where("id = ? AND booking_status = ?", bookingID, models.BookingStatusConfirmed).
		Update("booking_status", models.BookingStatusNoShow)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, Conflictf("booking %d is not in confirmed state", bookingID)
	}

	releaseRoom(booking.ApartmentID)
	booking.BookingStatus = models.BookingStatusNoShow
	return booking, nil
}

// AutoCheckoutSweep completes every overdue checked-in booking. Idempotent:
// it only selects bookings still checked in, so a second run is a no-op.
// Returns the number of bookings transitioned.
func AutoCheckoutSweep() (int, error) {
	now := time.Now()

	var overdue []models.Booking
	if err := storage.DB.
		Where("booking_status = ? AND check_out_time IS NULL AND check_out < ?",
			models.BookingStatusCheckedIn, now).
		Find(&overdue).Error; err != nil {
		return 0, err
	}

	completed := 0
	for i := range overdue {
		b := &overdue[i]

		checkoutAt := b.CheckOut
		if checkoutAt.After(now) {
			checkoutAt = now
		}
		res := storage.DB.Model(&models.Booking{}).
			Where("id = ? AND booking_status = ?", b.ID, models.BookingStatusCheckedIn).
			Updates(map[string]interface{}{
				"booking_status": models.BookingStatusCompleted,
				"check_out_time": checkoutAt,
			})
		if res.Error != nil {
			log.Printf("auto-checkout: booking %d: %v", b.ID, res.Error)
			continue
		}
		if res.RowsAffected == 0 {
			// lost the race to a self-checkout; nothing to do
			continue
		}

		releaseRoom(b.ApartmentID)
		b.BookingStatus = models.BookingStatusCompleted
		b.CheckOutTime = &checkoutAt
		NotifyAutoCheckout(b)
		completed++
	}

	return completed, nil
}

// ExpireUnpaidBookings cancels confirmed bookings whose payment window has
// lapsed and releases their rooms. Called by a scheduler or an admin.
func ExpireUnpaidBookings(window time.Duration) (int, error) {
	cutoff := time.Now().Add(-window)

	var stale []models.Booking
	if err := storage.DB.
		Where("booking_status = ? AND payment_status = ? AND created_at < ?",
			models.BookingStatusConfirmed, models.PaymentStatusPending, cutoff).
		Find(&stale).Error; err != nil {
		return 0, err
	}

	expired := 0
	for i := range stale {
		b := &stale[i]
		res := storage.DB.Model(&models.Booking{}).
			Where("id = ? AND booking_status = ? AND payment_status = ?",
				b.ID, models.BookingStatusConfirmed, models.PaymentStatusPending).
			Update("booking_status", models.BookingStatusCancelled)
		if res.Error != nil {
			log.Printf("expire-unpaid: booking %d: %v", b.ID, res.Error)
			continue
		}
		if res.RowsAffected == 0 {
			continue
		}
		releaseRoom(b.ApartmentID)
		expired++
	}

	return expired, nil
}

// FindBookingByTicketCode resolves a booking for owner-side check-in lookup.
func FindBookingByTicketCode(code string) (*models.Booking, error) {
	var booking models.Booking
	err := storage.DB.Preload("Apartment").Preload("Guest").
		Where("ticket_code = ?", code).First(&booking).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundf("no booking with ticket code %s", code)
		}
		return nil, err
	}
	return &booking, nil
}

func loadBookingWithApartment(bookingID uint) (*models.Booking, error) {
	var booking models.Booking
	err := storage.DB.Preload("Apartment").First(&booking, bookingID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundf("booking %d not found", bookingID)
		}
		return nil, err
	}
	// Preload leaves Apartment nil when the listing row has been deleted.
	if booking.Apartment == nil {
		return nil, NotFoundf("apartment for booking %d no longer exists", bookingID)
	}
	return &booking, nil
}

// releaseRoom gives a reserved room back, capped at totalRooms.
func releaseRoom(apartmentID uint) {
	res := storage.DB.Model(&models.Apartment{}).
		Where("id = ? AND available_rooms < total_rooms", apartmentID).
		UpdateColumn("available_rooms", gorm.Expr("available_rooms + 1"))
	if res.Error != nil {
		log.Printf("release room for apartment %d: %v", apartmentID, res.Error)
	}
}

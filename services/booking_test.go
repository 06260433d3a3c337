package services

import (
	"sync"
	"testing"
	"time"

	"github.com/Apetorku/StayGlobal-sub001/models"
	"github.com/Apetorku/StayGlobal-sub001/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNights(t *testing.T) {
	base := time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC)

	assert.Equal(t, 2, Nights(base, base.Add(48*time.Hour)))
	// Partial days round up
	assert.Equal(t, 2, Nights(base, base.Add(30*time.Hour)))
	// A stay shorter than a day still bills one night
	assert.Equal(t, 1, Nights(base, base.Add(6*time.Hour)))
}

func TestStayTotal(t *testing.T) {
	assert.Equal(t, 200.0, StayTotal(100.00, 2))
	assert.Equal(t, 299.97, StayTotal(99.99, 3))
	assert.Equal(t, 33.33, StayTotal(33.33, 1))
}

func TestCreateBookingDerivesTotal(t *testing.T) {
	setupTestDB(t)
	owner := createTestUser(t, "owner")
	guest := createTestUser(t, "guest")
	apartment := createTestApartment(t, owner.ID, 100.00, 3)

	checkIn := time.Now().Add(24 * time.Hour)
	booking, err := CreateBooking(guest.ID, apartment.ID, CreateBookingInput{
		CheckIn:  checkIn,
		CheckOut: checkIn.Add(48 * time.Hour),
		Guests:   2,
	})
	require.NoError(t, err)

	assert.Equal(t, 200.0, booking.TotalAmount)
	assert.Equal(t, models.BookingStatusConfirmed, booking.BookingStatus)
	assert.Equal(t, models.PaymentStatusPending, booking.PaymentStatus)
	assert.Len(t, booking.TicketCode, 8)

	var stored models.Apartment
	require.NoError(t, storage.DB.First(&stored, apartment.ID).Error)
	assert.Equal(t, 2, stored.AvailableRooms)
}

func TestCreateBookingValidations(t *testing.T) {
	setupTestDB(t)
	owner := createTestUser(t, "owner")
	guest := createTestUser(t, "guest")
	apartment := createTestApartment(t, owner.ID, 100.00, 3)

	future := time.Now().Add(24 * time.Hour)

	_, err := CreateBooking(guest.ID, apartment.ID, CreateBookingInput{
		CheckIn: future, CheckOut: future.Add(24 * time.Hour), Guests: 0,
	})
	assert.IsType(t, ValidationError{}, err)

	_, err = CreateBooking(guest.ID, apartment.ID, CreateBookingInput{
		CheckIn: future.Add(24 * time.Hour), CheckOut: future, Guests: 1,
	})
	assert.IsType(t, ValidationError{}, err)

	past := time.Now().Add(-72 * time.Hour)
	_, err = CreateBooking(guest.ID, apartment.ID, CreateBookingInput{
		CheckIn: past, CheckOut: future, Guests: 1,
	})
	assert.IsType(t, ValidationError{}, err)

	// Nothing above should have taken a room
	var stored models.Apartment
	require.NoError(t, storage.DB.First(&stored, apartment.ID).Error)
	assert.Equal(t, 3, stored.AvailableRooms)
}

func TestCreateBookingInactiveApartment(t *testing.T) {
	setupTestDB(t)
	owner := createTestUser(t, "owner")
	guest := createTestUser(t, "guest")
	apartment := createTestApartment(t, owner.ID, 100.00, 3)

	inactive := false
	require.NoError(t, storage.DB.Model(apartment).Update("is_active", &inactive).Error)

	checkIn := time.Now().Add(24 * time.Hour)
	_, err := CreateBooking(guest.ID, apartment.ID, CreateBookingInput{
		CheckIn: checkIn, CheckOut: checkIn.Add(24 * time.Hour), Guests: 1,
	})
	assert.IsType(t, NotFoundError{}, err)
}

func TestCreateBookingLastRoom(t *testing.T) {
	setupTestDB(t)
	owner := createTestUser(t, "owner")
	first := createTestUser(t, "guest")
	second := createTestUser(t, "guest")
	apartment := createTestApartment(t, owner.ID, 80.00, 1)

	checkIn := time.Now().Add(24 * time.Hour)
	input := CreateBookingInput{CheckIn: checkIn, CheckOut: checkIn.Add(24 * time.Hour), Guests: 1}

	_, err := CreateBooking(first.ID, apartment.ID, input)
	require.NoError(t, err)

	// The room count is the arbiter: a second booking loses cleanly
	_, err = CreateBooking(second.ID, apartment.ID, input)
	assert.IsType(t, ConflictError{}, err)

	var stored models.Apartment
	require.NoError(t, storage.DB.First(&stored, apartment.ID).Error)
	assert.Equal(t, 0, stored.AvailableRooms)

	var count int64
	storage.DB.Model(&models.Booking{}).Where("apartment_id = ?", apartment.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestCreateBookingConcurrentLastRoom(t *testing.T) {
	setupTestDB(t)
	owner := createTestUser(t, "owner")
	guest := createTestUser(t, "guest")
	apartment := createTestApartment(t, owner.ID, 80.00, 1)

	checkIn := time.Now().Add(24 * time.Hour)
	input := CreateBookingInput{CheckIn: checkIn, CheckOut: checkIn.Add(24 * time.Hour), Guests: 1}

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = CreateBooking(guest.ID, apartment.ID, input)
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		assert.IsType(t, ConflictError{}, err)
	}
	assert.Equal(t, 1, successes)

	var stored models.Apartment
	require.NoError(t, storage.DB.First(&stored, apartment.ID).Error)
	assert.Equal(t, 0, stored.AvailableRooms)

	var count int64
	storage.DB.Model(&models.Booking{}).Where("apartment_id = ?", apartment.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestCheckInBookingDeletedApartment(t *testing.T) {
	setupTestDB(t)
	owner := createTestUser(t, "owner")
	guest := createTestUser(t, "guest")
	apartment := createTestApartment(t, owner.ID, 100.00, 2)
	booking := confirmedBooking(t, guest.ID, apartment.ID, 200.00)

	require.NoError(t, storage.DB.Delete(&models.Apartment{}, apartment.ID).Error)

	_, err := CheckInBooking(booking.ID, owner.ID)
	assert.IsType(t, NotFoundError{}, err)

	_, err = CancelBooking(booking.ID, guest.ID)
	assert.IsType(t, NotFoundError{}, err)
}

func TestCheckInBooking(t *testing.T) {
	setupTestDB(t)
	owner := createTestUser(t, "owner")
	guest := createTestUser(t, "guest")
	stranger := createTestUser(t, "guest")
	apartment := createTestApartment(t, owner.ID, 100.00, 2)
	booking := confirmedBooking(t, guest.ID, apartment.ID, 200.00)

	_, err := CheckInBooking(booking.ID, stranger.ID)
	assert.IsType(t, ForbiddenError{}, err)

	checkedIn, err := CheckInBooking(booking.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCheckedIn, checkedIn.BookingStatus)
	assert.NotNil(t, checkedIn.CheckInTime)

	// Second check-in finds the booking out of confirmed state
	_, err = CheckInBooking(booking.ID, owner.ID)
	assert.IsType(t, ConflictError{}, err)
}

func TestSelfCheckout(t *testing.T) {
	setupTestDB(t)
	owner := createTestUser(t, "owner")
	guest := createTestUser(t, "guest")
	apartment := createTestApartment(t, owner.ID, 100.00, 2)
	booking := confirmedBooking(t, guest.ID, apartment.ID, 200.00)

	// Simulate the room taken at booking time
	require.NoError(t, storage.DB.Model(&models.Apartment{}).
		Where("id = ?", apartment.ID).
		Update("available_rooms", 1).Error)

	// Cannot check out before checking in
	_, err := SelfCheckout(booking.ID, guest.ID)
	assert.IsType(t, ConflictError{}, err)

	_, err = CheckInBooking(booking.ID, owner.ID)
	require.NoError(t, err)

	_, err = SelfCheckout(booking.ID, owner.ID)
	assert.IsType(t, ForbiddenError{}, err)

	completed, err := SelfCheckout(booking.ID, guest.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCompleted, completed.BookingStatus)
	assert.NotNil(t, completed.CheckOutTime)

	var stored models.Apartment
	require.NoError(t, storage.DB.First(&stored, apartment.ID).Error)
	assert.Equal(t, 2, stored.AvailableRooms)
}

func TestCancelBooking(t *testing.T) {
	setupTestDB(t)
	owner := createTestUser(t, "owner")
	guest := createTestUser(t, "guest")
	stranger := createTestUser(t, "guest")
	apartment := createTestApartment(t, owner.ID, 100.00, 2)
	booking := confirmedBooking(t, guest.ID, apartment.ID, 200.00)

	require.NoError(t, storage.DB.Model(&models.Apartment{}).
		Where("id = ?", apartment.ID).
		Update("available_rooms", 1).Error)

	_, err := CancelBooking(booking.ID, stranger.ID)
	assert.IsType(t, ForbiddenError{}, err)

	cancelled, err := CancelBooking(booking.ID, guest.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, cancelled.BookingStatus)

	var stored models.Apartment
	require.NoError(t, storage.DB.First(&stored, apartment.ID).Error)
	assert.Equal(t, 2, stored.AvailableRooms)
}

func TestCancelBookingAfterPayment(t *testing.T) {
	setupTestDB(t)
	owner := createTestUser(t, "owner")
	guest := createTestUser(t, "guest")
	apartment := createTestApartment(t, owner.ID, 100.00, 2)
	booking := confirmedBooking(t, guest.ID, apartment.ID, 200.00)

	require.NoError(t, storage.DB.Model(booking).
		Update("payment_status", models.PaymentStatusPaid).Error)

	_, err := CancelBooking(booking.ID, guest.ID)
	assert.IsType(t, ConflictError{}, err)

	var stored models.Booking
	require.NoError(t, storage.DB.First(&stored, booking.ID).Error)
	assert.Equal(t, models.BookingStatusConfirmed, stored.BookingStatus)
}

func TestMarkNoShow(t *testing.T) {
	setupTestDB(t)
	owner := createTestUser(t, "owner")
	guest := createTestUser(t, "guest")
	apartment := createTestApartment(t, owner.ID, 100.00, 2)
	booking := confirmedBooking(t, guest.ID, apartment.ID, 200.00)

	// Check-in date still ahead
	_, err := MarkNoShow(booking.ID, owner.ID)
	assert.IsType(t, ConflictError{}, err)

	require.NoError(t, storage.DB.Model(booking).
		Update("check_in", time.Now().Add(-24*time.Hour)).Error)

	marked, err := MarkNoShow(booking.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusNoShow, marked.BookingStatus)
}

func TestAutoCheckoutSweep(t *testing.T) {
	setupTestDB(t)
	owner := createTestUser(t, "owner")
	guest := createTestUser(t, "guest")
	apartment := createTestApartment(t, owner.ID, 100.00, 3)

	overdue := confirmedBooking(t, guest.ID, apartment.ID, 200.00)
	current := confirmedBooking(t, guest.ID, apartment.ID, 200.00)

	checkInTime := time.Now().Add(-72 * time.Hour)
	plannedCheckout := time.Now().Add(-24 * time.Hour)
	require.NoError(t, storage.DB.Model(overdue).Updates(map[string]interface{}{
		"booking_status": models.BookingStatusCheckedIn,
		"check_in":       checkInTime,
		"check_out":      plannedCheckout,
		"check_in_time":  checkInTime,
	}).Error)
	require.NoError(t, storage.DB.Model(current).Updates(map[string]interface{}{
		"booking_status": models.BookingStatusCheckedIn,
		"check_in_time":  time.Now(),
	}).Error)

	require.NoError(t, storage.DB.Model(&models.Apartment{}).
		Where("id = ?", apartment.ID).
		Update("available_rooms", 1).Error)

	count, err := AutoCheckoutSweep()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	var stored models.Booking
	require.NoError(t, storage.DB.First(&stored, overdue.ID).Error)
	assert.Equal(t, models.BookingStatusCompleted, stored.BookingStatus)
	require.NotNil(t, stored.CheckOutTime)
	// Stamped with the planned checkout, not the sweep time
	assert.WithinDuration(t, plannedCheckout, *stored.CheckOutTime, 2*time.Second)

	var untouched models.Booking
	require.NoError(t, storage.DB.First(&untouched, current.ID).Error)
	assert.Equal(t, models.BookingStatusCheckedIn, untouched.BookingStatus)

	// Idempotent: nothing left to complete
	count, err = AutoCheckoutSweep()
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestExpireUnpaidBookings(t *testing.T) {
	setupTestDB(t)
	owner := createTestUser(t, "owner")
	guest := createTestUser(t, "guest")
	apartment := createTestApartment(t, owner.ID, 100.00, 3)

	stale := confirmedBooking(t, guest.ID, apartment.ID, 200.00)
	fresh := confirmedBooking(t, guest.ID, apartment.ID, 200.00)

	require.NoError(t, storage.DB.Model(stale).
		Update("created_at", time.Now().Add(-2*time.Hour)).Error)
	require.NoError(t, storage.DB.Model(&models.Apartment{}).
		Where("id = ?", apartment.ID).
		Update("available_rooms", 1).Error)

	count, err := ExpireUnpaidBookings(30 * time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	var expired models.Booking
	require.NoError(t, storage.DB.First(&expired, stale.ID).Error)
	assert.Equal(t, models.BookingStatusCancelled, expired.BookingStatus)

	var kept models.Booking
	require.NoError(t, storage.DB.First(&kept, fresh.ID).Error)
	assert.Equal(t, models.BookingStatusConfirmed, kept.BookingStatus)

	var stored models.Apartment
	require.NoError(t, storage.DB.First(&stored, apartment.ID).Error)
	assert.Equal(t, 2, stored.AvailableRooms)
}

func TestFindBookingByTicketCode(t *testing.T) {
	setupTestDB(t)
	owner := createTestUser(t, "owner")
	guest := createTestUser(t, "guest")
	apartment := createTestApartment(t, owner.ID, 100.00, 2)
	booking := confirmedBooking(t, guest.ID, apartment.ID, 200.00)

	found, err := FindBookingByTicketCode(booking.TicketCode)
	require.NoError(t, err)
	assert.Equal(t, booking.ID, found.ID)
	require.NotNil(t, found.Apartment)
	assert.Equal(t, owner.ID, found.Apartment.OwnerID)

	_, err = FindBookingByTicketCode("XXXXXXXX")
	assert.IsType(t, NotFoundError{}, err)
}

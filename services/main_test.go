package services

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Apetorku/StayGlobal-sub001/models"
	"github.com/Apetorku/StayGlobal-sub001/storage"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB points the global DB at a fresh in-memory sqlite instance.
// MaxOpenConns(1) keeps the pool on the single connection that owns the
// in-memory database.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.IdentityVerification{},
		&models.PaymentAccount{},
		&models.Apartment{},
		&models.Booking{},
		&models.CommissionRecord{},
		&models.Notification{},
		&models.ChatMessage{},
		&models.AuditLog{},
	))

	storage.DB = db
	return db
}

// testUserSeq keeps generated fixture values unique; users.phone_number has a
// unique index, so each test user needs a distinct phone number.
var testUserSeq atomic.Uint64

func createTestUser(t *testing.T, role string) *models.User {
	t.Helper()
	seq := testUserSeq.Add(1)
	user := models.User{
		FirstName:   "Test",
		LastName:    role,
		Email:       role + "-" + time.Now().Format("150405.000000") + "@example.com",
		PhoneNumber: fmt.Sprintf("+2335500%06d", seq),
		Role:        role,
		Status:      "active",
	}
	require.NoError(t, storage.DB.Create(&user).Error)
	return &user
}

func createTestApartment(t *testing.T, ownerID uint, price float64, rooms int) *models.Apartment {
	t.Helper()
	active := true
	apartment := models.Apartment{
		OwnerID:        ownerID,
		Title:          "Test Apartment",
		AddressLine:    "1 Test Street",
		City:           "Accra",
		Country:        "Ghana",
		Price:          price,
		Currency:       "GHS",
		TotalRooms:     rooms,
		AvailableRooms: rooms,
		IsActive:       &active,
	}
	require.NoError(t, storage.DB.Create(&apartment).Error)
	return &apartment
}

// makeListable satisfies the listing gate for a user: fully verified identity
// plus a verified payment account.
func makeListable(t *testing.T, userID uint) {
	t.Helper()
	verification := models.IdentityVerification{
		UserID:   userID,
		IDType:   "passport",
		IDNumber: "P1234567",
		Country:  "GH",
		Status:   models.VerificationStatusVerified,
		Level:    models.VerificationLevelFullyVerified,
	}
	require.NoError(t, storage.DB.Create(&verification).Error)

	account := models.PaymentAccount{
		UserID:         userID,
		BusinessName:   "Test Rentals",
		BankCode:       "058",
		AccountNumber:  "0123456789",
		AccountName:    "Test Rentals",
		SubaccountCode: "ACCT_test",
		IsVerified:     true,
	}
	require.NoError(t, storage.DB.Create(&account).Error)
}

func confirmedBooking(t *testing.T, guestID, apartmentID uint, total float64) *models.Booking {
	t.Helper()
	booking := models.Booking{
		ApartmentID:   apartmentID,
		GuestID:       guestID,
		CheckIn:       time.Now().Add(24 * time.Hour),
		CheckOut:      time.Now().Add(72 * time.Hour),
		Guests:        2,
		TotalAmount:   total,
		Currency:      "GHS",
		PaymentStatus: models.PaymentStatusPending,
		BookingStatus: models.BookingStatusConfirmed,
		TicketCode:    randomTicket(t),
	}
	require.NoError(t, storage.DB.Create(&booking).Error)
	return &booking
}

func randomTicket(t *testing.T) string {
	t.Helper()
	code, err := generateTicketCode()
	require.NoError(t, err)
	return code
}

// fakeGateway records calls and plays back scripted responses.
type fakeGateway struct {
	initializeFn func(InitializeRequest) (*InitializeResult, error)
	verifyFn     func(string) (*VerifyResult, error)
	subaccountFn func(businessName, bankCode, accountNumber string, percentageCharge float64) (string, error)

	initCalls   []InitializeRequest
	verifyCalls int
}

func (f *fakeGateway) Initialize(req InitializeRequest) (*InitializeResult, error) {
	f.initCalls = append(f.initCalls, req)
	if f.initializeFn != nil {
		return f.initializeFn(req)
	}
	return &InitializeResult{
		AuthorizationURL: "https://checkout.example/" + req.Reference,
		AccessCode:       "code_" + req.Reference,
		Reference:        req.Reference,
	}, nil
}

func (f *fakeGateway) Verify(reference string) (*VerifyResult, error) {
	f.verifyCalls++
	if f.verifyFn != nil {
		return f.verifyFn(reference)
	}
	return &VerifyResult{Status: "success"}, nil
}

func (f *fakeGateway) CreateSubaccount(businessName, bankCode, accountNumber string, percentageCharge float64) (string, error) {
	if f.subaccountFn != nil {
		return f.subaccountFn(businessName, bankCode, accountNumber, percentageCharge)
	}
	return "ACCT_fake", nil
}

// fakeVerifier returns a fixed set of results.
type fakeVerifier struct {
	results models.VerificationResults
	err     error
}

func (f fakeVerifier) RunChecks(v *models.IdentityVerification) (models.VerificationResults, error) {
	if f.err != nil {
		return models.VerificationResults{}, f.err
	}
	return f.results, nil
}

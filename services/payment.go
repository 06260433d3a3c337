package services

import (
	"errors"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/Apetorku/StayGlobal-sub001/models"
	"github.com/Apetorku/StayGlobal-sub001/storage"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentGateway abstracts the external payment processor. Implementations
// must be safe to call repeatedly with the same reference; the core treats
// delivery as at-least-once and never retries money-moving calls itself.
type PaymentGateway interface {
	Initialize(req InitializeRequest) (*InitializeResult, error)
	Verify(reference string) (*VerifyResult, error)
	CreateSubaccount(businessName, bankCode, accountNumber string, percentageCharge float64) (string, error)
}

// SplitConfig routes part of a charge to an owner subaccount. The flat
// TransactionChargeMinor is the platform's share, withheld at settlement;
// the subaccount bears the gateway's own fees.
type SplitConfig struct {
	SubaccountCode         string
	TransactionChargeMinor int64
	Bearer                 string // "subaccount"
}

type InitializeRequest struct {
	AmountMinor int64
	Currency    string
	Reference   string
	Email       string
	Split       *SplitConfig
}

type InitializeResult struct {
	AuthorizationURL string `json:"authorizationURL"`
	AccessCode       string `json:"accessCode"`
	Reference        string `json:"reference"`
}

type VerifyResult struct {
	Status      string // success, failed, abandoned
	AmountMinor int64
	PaidAt      time.Time
}

// ActiveGateway is wired in main; tests install a fake.
var ActiveGateway PaymentGateway

// MinorUnits converts a display amount to the smallest currency unit,
// rounding half-up so fee splits never leak fractions.
func MinorUnits(amount float64) int64 {
	return decimal.NewFromFloat(amount).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// DisplayAmount is the inverse of MinorUnits.
func DisplayAmount(minor int64) float64 {
	return decimal.NewFromInt(minor).Div(decimal.NewFromInt(100)).InexactFloat64()
}

// PlatformFeeMinor computes the platform's share of a charge in minor units.
func PlatformFeeMinor(amountMinor int64, percent float64) int64 {
	return decimal.NewFromInt(amountMinor).
		Mul(decimal.NewFromFloat(percent)).
		Div(decimal.NewFromInt(100)).
		Round(0).IntPart()
}

func platformFeePercent() float64 {
	if v := os.Getenv("PLATFORM_FEE_PERCENT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && f < 100 {
			return f
		}
	}
	return 5
}

func commissionPercent() float64 {
	if v := os.Getenv("COMMISSION_PERCENT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && f < 100 {
			return f
		}
	}
	return 5
}

func gatewayCurrency() string {
	if v := os.Getenv("PAYSTACK_CURRENCY"); v != "" {
		return v
	}
	return "GHS"
}

// InitializeTransaction asks the gateway for an authorization handle for a
// pending booking. When the owner has a verified payment account the charge
// is split: the platform fee is withheld and the remainder routes to the
// owner's subaccount. A booking carries at most one payment reference: retried
// initializations reuse the stored one, and the reference is persisted before
// the gateway call, so a charge completed against any authorization URL ever
// issued for the booking reconciles through VerifyTransaction.
func InitializeTransaction(bookingID, actingGuestID uint, payerEmail string) (*InitializeResult, error) {
	booking, err := loadBookingWithApartment(bookingID)
	if err != nil {
		return nil, err
	}
	if booking.GuestID != actingGuestID {
		return nil, Forbiddenf("only the booking guest can pay for booking %d", bookingID)
	}
	if booking.BookingStatus != models.BookingStatusConfirmed {
		return nil, Conflictf("booking %d is not awaiting payment", bookingID)
	}
	if booking.PaymentStatus != models.PaymentStatusPending {
		return nil, Conflictf("booking %d payment is already %s", bookingID, booking.PaymentStatus)
	}

	amountMinor := MinorUnits(booking.TotalAmount)
	feeMinor := PlatformFeeMinor(amountMinor, platformFeePercent())

	var split *SplitConfig
	var account models.PaymentAccount
	accErr := storage.DB.Where("user_id = ?", booking.Apartment.OwnerID).First(&account).Error
	if accErr == nil && account.IsVerified && account.SubaccountCode != "" {
		split = &SplitConfig{
			SubaccountCode:         account.SubaccountCode,
			TransactionChargeMinor: feeMinor,
			Bearer:                 "subaccount",
		}
	}
	// No verified payment account: charge to the platform account only and
	// settle the owner out-of-band.

	reference := booking.PaymentReference
	if reference == "" {
		reference = "SG-" + uuid.NewString()
		res := storage.DB.Model(&models.Booking{}).
			Where("id = ? AND payment_reference = ''", bookingID).
			Update("payment_reference", reference)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			// lost the race to a concurrent initialize; use the stored one
			var current models.Booking
			if err := storage.DB.Select("payment_reference").First(&current, bookingID).Error; err != nil {
				return nil, err
			}
			reference = current.PaymentReference
		}
	}

	result, gwErr := ActiveGateway.Initialize(InitializeRequest{
		AmountMinor: amountMinor,
		Currency:    gatewayCurrency(),
		Reference:   reference,
		Email:       payerEmail,
		Split:       split,
	})
	if gwErr != nil {
		return nil, PaymentGatewayError{Msg: "transaction initialization failed", Err: gwErr}
	}

	result.Reference = reference
	return result, nil
}

// VerifyTransaction reconciles a booking against the gateway's record for the
// reference. Safe to call any number of times: the paid transition and the
// commission record are guarded by a single conditional update, so replays
// are no-ops. The local store is always reconciled to the gateway, never the
// reverse.
func VerifyTransaction(reference string) (*models.Booking, error) {
	var booking models.Booking
	err := storage.DB.Preload("Apartment").
		Where("payment_reference = ?", reference).First(&booking).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundf("no booking for payment reference %s", reference)
		}
		return nil, err
	}

	result, gwErr := ActiveGateway.Verify(reference)
	if gwErr != nil {
		return nil, PaymentGatewayError{Msg: "transaction verification failed", Err: gwErr}
	}

	if result.Status != "success" {
		markPaymentFailed(&booking)
		return &booking, nil
	}

	expectedMinor := MinorUnits(booking.TotalAmount)
	diff := result.AmountMinor - expectedMinor
	if diff < -1 || diff > 1 {
		// Never silently accepted: the discrepancy is surfaced for manual
		// review and the payment is treated as failed.
		log.Printf("FRAUD: amount mismatch on reference %s: gateway paid %d minor, booking expects %d minor",
			reference, result.AmountMinor, expectedMinor)
		markPaymentFailed(&booking)
		return &booking, FraudSignal{
			Reference: reference,
			Msg:       "gateway amount does not match booking amount",
		}
	}

	res := storage.DB.Model(&models.Booking{}).
		Where("id = ? AND payment_status = ?", booking.ID, models.PaymentStatusPending).
		Update("payment_status", models.PaymentStatusPaid)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// Replay of an already-settled reference; no further side effects.
		return &booking, nil
	}

	booking.PaymentStatus = models.PaymentStatusPaid
	createCommission(&booking)
	NotifyPaymentReceived(&booking)

	return &booking, nil
}

func markPaymentFailed(booking *models.Booking) {
	res := storage.DB.Model(&models.Booking{}).
		Where("id = ? AND payment_status = ?", booking.ID, models.PaymentStatusPending).
		Update("payment_status", models.PaymentStatusFailed)
	if res.Error != nil {
		log.Printf("mark payment failed for booking %d: %v", booking.ID, res.Error)
		return
	}
	if res.RowsAffected > 0 {
		booking.PaymentStatus = models.PaymentStatusFailed
	}
	// A failed payment does not release the reserved room; cancellation is a
	// separate explicit action.
}

func createCommission(booking *models.Booking) {
	if booking.Apartment == nil {
		log.Printf("create commission for booking %d: apartment %d no longer exists",
			booking.ID, booking.ApartmentID)
		return
	}
	rate := commissionPercent() / 100
	amount := decimal.NewFromFloat(booking.TotalAmount).
		Mul(decimal.NewFromFloat(rate)).
		Round(2).InexactFloat64()

	record := models.CommissionRecord{
		BookingID:        booking.ID,
		OwnerID:          booking.Apartment.OwnerID,
		CommissionRate:   rate,
		CommissionAmount: amount,
		Currency:         booking.Currency,
		Status:           models.CommissionStatusPending,
	}
	// The unique index on booking_id backstops webhook replays.
	if err := storage.DB.Where("booking_id = ?", booking.ID).FirstOrCreate(&record).Error; err != nil {
		log.Printf("create commission for booking %d: %v", booking.ID, err)
	}
}

// RegisterPaymentAccountInput carries an owner's payout details.
type RegisterPaymentAccountInput struct {
	BusinessName  string `json:"businessName" validate:"required,max=256"`
	BankCode      string `json:"bankCode" validate:"required,max=16"`
	AccountNumber string `json:"accountNumber" validate:"required,min=5,max=32"`
	AccountName   string `json:"accountName" validate:"required,max=256"`
}

// RegisterPaymentAccount creates a gateway subaccount for the owner and
// stores the payout destination unverified. An admin flips isVerified after
// the payout details clear.
func RegisterPaymentAccount(userID uint, in RegisterPaymentAccountInput) (*models.PaymentAccount, error) {
	var existing models.PaymentAccount
	err := storage.DB.Where("user_id = ?", userID).First(&existing).Error
	if err == nil {
		return nil, Conflictf("user %d already has a payment account", userID)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	code, gwErr := ActiveGateway.CreateSubaccount(in.BusinessName, in.BankCode, in.AccountNumber, platformFeePercent())
	if gwErr != nil {
		return nil, PaymentGatewayError{Msg: "subaccount creation failed", Err: gwErr}
	}

	account := models.PaymentAccount{
		UserID:         userID,
		BusinessName:   in.BusinessName,
		BankCode:       in.BankCode,
		AccountNumber:  in.AccountNumber,
		AccountName:    in.AccountName,
		SubaccountCode: code,
		IsVerified:     false,
	}
	if err := storage.DB.Create(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

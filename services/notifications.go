package services

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/Apetorku/StayGlobal-sub001/models"
	"github.com/Apetorku/StayGlobal-sub001/storage"
	"github.com/Apetorku/StayGlobal-sub001/utils"
)

// NotificationService handles push notification delivery. Emitting is always
// fire-and-forget: a failed notification never fails the operation that
// triggered it.
type NotificationService struct{}

func NewNotificationService() *NotificationService {
	return &NotificationService{}
}

// NotificationData is the data payload attached to a push message.
type NotificationData struct {
	Type        string `json:"type"`
	ID          string `json:"id"`
	ApartmentID string `json:"apartmentId,omitempty"`
	UserID      string `json:"userId,omitempty"`
	OwnerID     string `json:"ownerId,omitempty"`
}

func (ns *NotificationService) getUserPushTokens(userID uint) ([]string, error) {
	var user models.User
	if err := storage.DB.First(&user, userID).Error; err != nil {
		return nil, fmt.Errorf("user not found: %v", err)
	}

	if user.AllowsNotifications == nil || !*user.AllowsNotifications || user.PushTokens == nil {
		return nil, fmt.Errorf("user has notifications disabled or no tokens")
	}

	var tokens []string
	if err := json.Unmarshal(user.PushTokens, &tokens); err != nil {
		return nil, fmt.Errorf("failed to unmarshal push tokens: %v", err)
	}
	return tokens, nil
}

// SendNotificationToUser pushes to every registered device of a user.
func (ns *NotificationService) SendNotificationToUser(userID uint, title, body string, data NotificationData) error {
	tokens, err := ns.getUserPushTokens(userID)
	if err != nil {
		log.Printf("Failed to get push tokens for user %d: %v", userID, err)
		return err
	}

	dataMap := map[string]string{
		"type":        data.Type,
		"id":          data.ID,
		"apartmentId": data.ApartmentID,
		"userId":      data.UserID,
		"ownerId":     data.OwnerID,
	}

	var lastError error
	for _, token := range tokens {
		if err := utils.SendNotification(token, title, body, dataMap); err != nil {
			log.Printf("Failed to send notification to token %s: %v", token, err)
			lastError = err
		}
	}
	return lastError
}

// emit persists a notification row and fans out the push asynchronously.
func emit(userID uint, notifType, title, message, refType string, refID uint, data NotificationData) {
	notification := models.Notification{
		UserID:  userID,
		Type:    notifType,
		Title:   title,
		Message: message,
		RefType: refType,
		RefID:   refID,
		IsRead:  false,
	}
	if err := storage.DB.Create(&notification).Error; err != nil {
		log.Printf("notification row for user %d: %v", userID, err)
	}

	ns := NewNotificationService()
	go ns.SendNotificationToUser(userID, title, message, data)
}

func NotifyBookingCreated(booking *models.Booking, apartment *models.Apartment) {
	emit(apartment.OwnerID, "booking_created",
		"New Booking",
		fmt.Sprintf("%s was booked from %s to %s (ticket %s)",
			apartment.Title,
			booking.CheckIn.Format("Jan 2, 2006"),
			booking.CheckOut.Format("Jan 2, 2006"),
			booking.TicketCode),
		"booking", booking.ID,
		NotificationData{
			Type:        "booking_created",
			ID:          fmt.Sprintf("%d", booking.ID),
			ApartmentID: fmt.Sprintf("%d", booking.ApartmentID),
			UserID:      fmt.Sprintf("%d", booking.GuestID),
			OwnerID:     fmt.Sprintf("%d", apartment.OwnerID),
		})
}

func NotifyGuestCheckedOut(booking *models.Booking) {
	if booking.Apartment == nil {
		return
	}
	emit(booking.Apartment.OwnerID, "guest_checked_out",
		"Guest Checked Out",
		fmt.Sprintf("The guest for %s has checked out (ticket %s)", booking.Apartment.Title, booking.TicketCode),
		"booking", booking.ID,
		NotificationData{
			Type:        "guest_checked_out",
			ID:          fmt.Sprintf("%d", booking.ID),
			ApartmentID: fmt.Sprintf("%d", booking.ApartmentID),
			OwnerID:     fmt.Sprintf("%d", booking.Apartment.OwnerID),
		})
}

func NotifyAutoCheckout(booking *models.Booking) {
	emit(booking.GuestID, "booking_completed",
		"Stay Completed",
		fmt.Sprintf("Your booking %s has been checked out automatically", booking.TicketCode),
		"booking", booking.ID,
		NotificationData{
			Type:   "booking_completed",
			ID:     fmt.Sprintf("%d", booking.ID),
			UserID: fmt.Sprintf("%d", booking.GuestID),
		})
}

func NotifyBookingCancelled(booking *models.Booking, actorID uint) {
	// Notify the party that did not act.
	recipient := booking.GuestID
	if booking.Apartment != nil && actorID == booking.GuestID {
		recipient = booking.Apartment.OwnerID
	}
	emit(recipient, "booking_cancelled",
		"Booking Cancelled",
		fmt.Sprintf("Booking %s has been cancelled", booking.TicketCode),
		"booking", booking.ID,
		NotificationData{
			Type:   "booking_cancelled",
			ID:     fmt.Sprintf("%d", booking.ID),
			UserID: fmt.Sprintf("%d", booking.GuestID),
		})
}

func NotifyPaymentReceived(booking *models.Booking) {
	emit(booking.GuestID, "payment_confirmed",
		"Payment Confirmed",
		fmt.Sprintf("Your payment for booking %s was confirmed", booking.TicketCode),
		"booking", booking.ID,
		NotificationData{
			Type:   "payment_confirmed",
			ID:     fmt.Sprintf("%d", booking.ID),
			UserID: fmt.Sprintf("%d", booking.GuestID),
		})

	if booking.Apartment != nil {
		emit(booking.Apartment.OwnerID, "payment_received",
			"Payment Received",
			fmt.Sprintf("Payment received for %s (ticket %s)", booking.Apartment.Title, booking.TicketCode),
			"booking", booking.ID,
			NotificationData{
				Type:        "payment_received",
				ID:          fmt.Sprintf("%d", booking.ID),
				ApartmentID: fmt.Sprintf("%d", booking.ApartmentID),
				OwnerID:     fmt.Sprintf("%d", booking.Apartment.OwnerID),
			})
	}
}

func NotifyVerificationOutcome(record *models.IdentityVerification) {
	var title, message string
	switch record.Status {
	case models.VerificationStatusVerified:
		title = "Identity Verified"
		message = "Your identity verification is complete. You can now list apartments."
	case models.VerificationStatusRejected:
		title = "Verification Rejected"
		message = "Your identity verification was rejected. Please review the details and submit again."
	case models.VerificationStatusInReview:
		title = "Verification In Review"
		message = "Your identity verification needs a manual review. We will notify you once it is done."
	default:
		return
	}

	emit(record.UserID, "verification_"+record.Status, title, message,
		"verification", record.ID,
		NotificationData{
			Type:   "verification_" + record.Status,
			ID:     fmt.Sprintf("%d", record.ID),
			UserID: fmt.Sprintf("%d", record.UserID),
		})
}

// Global notification service instance
var NotificationServiceInstance = NewNotificationService()

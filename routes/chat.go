package routes

import (
	"fmt"
	"time"

	"github.com/Apetorku/StayGlobal-sub001/models"
	"github.com/Apetorku/StayGlobal-sub001/services"
	"github.com/Apetorku/StayGlobal-sub001/storage"
	"github.com/Apetorku/StayGlobal-sub001/utils"
	"github.com/kataras/iris/v12"
)

type sendMessageInput struct {
	Content string `json:"content" validate:"required,max=4096"`
}

// bookingForParticipant loads a booking and verifies the caller is either
// the guest or the apartment owner. Chat is scoped to a booking; nobody else
// can read or write it.
func bookingForParticipant(ctx iris.Context, userID uint) *models.Booking {
	bookingID, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Invalid booking ID.", ctx)
		return nil
	}

	var booking models.Booking
	result := storage.DB.Preload("Apartment").Find(&booking, bookingID)
	if result.Error != nil {
		utils.CreateInternalServerError(ctx)
		return nil
	}
	if result.RowsAffected == 0 {
		utils.CreateNotFound(ctx)
		return nil
	}

	if booking.GuestID != userID && (booking.Apartment == nil || booking.Apartment.OwnerID != userID) {
		ctx.StatusCode(iris.StatusForbidden)
		return nil
	}

	return &booking
}

func SendBookingMessage(ctx iris.Context) {
	userID := ctx.Values().Get("userID").(uint)

	booking := bookingForParticipant(ctx, userID)
	if booking == nil {
		return
	}

	var input sendMessageInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	message := models.ChatMessage{
		BookingID: booking.ID,
		SenderID:  userID,
		Content:   input.Content,
		Type:      "message",
	}

	if err := storage.DB.Create(&message).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	// Push to the other side of the conversation
	recipientID := booking.GuestID
	if userID == booking.GuestID && booking.Apartment != nil {
		recipientID = booking.Apartment.OwnerID
	}
	if recipientID != userID {
		go services.NotificationServiceInstance.SendNotificationToUser(recipientID, "New message", input.Content, services.NotificationData{
			Type:   "chat_message",
			ID:     fmt.Sprintf("%d", booking.ID),
			UserID: fmt.Sprintf("%d", userID),
		})
	}

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(message)
}

func ListBookingMessages(ctx iris.Context) {
	userID := ctx.Values().Get("userID").(uint)

	booking := bookingForParticipant(ctx, userID)
	if booking == nil {
		return
	}

	limit := ctx.URLParamIntDefault("limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}

	var messages []models.ChatMessage
	result := storage.DB.Preload("Sender").
		Where("booking_id = ?", booking.ID).
		Order("created_at ASC").
		Limit(limit).
		Find(&messages)

	if result.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(messages)
}

// MarkBookingMessagesRead stamps every message from the other participant
// as read.
func MarkBookingMessagesRead(ctx iris.Context) {
	userID := ctx.Values().Get("userID").(uint)

	booking := bookingForParticipant(ctx, userID)
	if booking == nil {
		return
	}

	now := time.Now()
	result := storage.DB.Model(&models.ChatMessage{}).
		Where("booking_id = ? AND sender_id <> ? AND read_at IS NULL", booking.ID, userID).
		Update("read_at", now)

	if result.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"marked": result.RowsAffected})
}

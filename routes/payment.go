package routes

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log"
	"os"

	"github.com/Apetorku/StayGlobal-sub001/models"
	"github.com/Apetorku/StayGlobal-sub001/services"
	"github.com/Apetorku/StayGlobal-sub001/storage"
	"github.com/Apetorku/StayGlobal-sub001/utils"
	"github.com/kataras/iris/v12"
)

func InitializePayment(ctx iris.Context) {
	guestID := ctx.Values().Get("userID").(uint)

	var input InitializePaymentInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	result, initErr := services.InitializeTransaction(input.BookingID, guestID, input.Email)
	if initErr != nil {
		handleServiceError(initErr, ctx)
		return
	}

	ctx.JSON(iris.Map{
		"authorizationURL": result.AuthorizationURL,
		"accessCode":       result.AccessCode,
		"reference":        result.Reference,
	})
}

func VerifyPayment(ctx iris.Context) {
	reference := ctx.Params().Get("reference")
	if reference == "" {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Missing payment reference.", ctx)
		return
	}

	booking, err := services.VerifyTransaction(reference)
	if err != nil {
		var fraud services.FraudSignal
		if errors.As(err, &fraud) {
			// The booking has already been marked failed; the client just
			// needs to know the payment did not settle.
			utils.CreateError(iris.StatusConflict, "Payment Mismatch", fraud.Msg, ctx)
			return
		}
		handleServiceError(err, ctx)
		return
	}

	ctx.JSON(iris.Map{
		"paymentStatus": booking.PaymentStatus,
		"bookingStatus": booking.BookingStatus,
		"ticketCode":    booking.TicketCode,
	})
}

// PaystackWebhook handles gateway callbacks. The signature header is an
// HMAC-SHA512 of the raw body keyed with the secret key; anything that fails
// the check is rejected before the payload is even parsed.
func PaystackWebhook(ctx iris.Context) {
	body, bodyErr := ctx.GetBody()
	if bodyErr != nil {
		ctx.StatusCode(iris.StatusBadRequest)
		return
	}

	signature := ctx.GetHeader("x-paystack-signature")
	if !validWebhookSignature(body, signature) {
		ctx.StatusCode(iris.StatusUnauthorized)
		return
	}

	var event struct {
		Event string `json:"event"`
		Data  struct {
			Reference string `json:"reference"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &event); err != nil {
		ctx.StatusCode(iris.StatusBadRequest)
		return
	}

	switch event.Event {
	case "charge.success", "charge.failed":
		if _, err := services.VerifyTransaction(event.Data.Reference); err != nil {
			// Reconciliation reads the gateway as the source of truth, so a
			// transient failure here is safe to retry on the next delivery.
			log.Printf("webhook verify %s: %v", event.Data.Reference, err)
		}
	default:
		// Unhandled event types are acknowledged so the gateway stops
		// retrying them.
	}

	ctx.StatusCode(iris.StatusOK)
}

func validWebhookSignature(body []byte, signature string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha512.New, []byte(os.Getenv("PAYSTACK_SECRET_KEY")))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func RegisterPaymentAccount(ctx iris.Context) {
	userID := ctx.Values().Get("userID").(uint)

	var input services.RegisterPaymentAccountInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	account, registerErr := services.RegisterPaymentAccount(userID, input)
	if registerErr != nil {
		handleServiceError(registerErr, ctx)
		return
	}

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(account)
}

func GetPaymentAccount(ctx iris.Context) {
	userID := ctx.Values().Get("userID").(uint)

	var account models.PaymentAccount
	result := storage.DB.Where("user_id = ?", userID).Find(&account)
	if result.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if result.RowsAffected == 0 {
		utils.CreateNotFound(ctx)
		return
	}

	ctx.JSON(account)
}

type InitializePaymentInput struct {
	BookingID uint   `json:"bookingID" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
}

package routes

import (
	"os"
	"strconv"
	"time"

	"github.com/Apetorku/StayGlobal-sub001/models"
	"github.com/Apetorku/StayGlobal-sub001/services"
	"github.com/Apetorku/StayGlobal-sub001/storage"
	"github.com/Apetorku/StayGlobal-sub001/utils"
	"github.com/kataras/iris/v12"
)

func CreateBooking(ctx iris.Context) {
	apartmentID, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Invalid apartment ID.", ctx)
		return
	}

	guestID := ctx.Values().Get("userID").(uint)

	var input services.CreateBookingInput
	if readErr := ctx.ReadJSON(&input); readErr != nil {
		utils.HandleValidationErrors(readErr, ctx)
		return
	}

	booking, bookingErr := services.CreateBooking(guestID, apartmentID, input)
	if bookingErr != nil {
		handleServiceError(bookingErr, ctx)
		return
	}

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(booking)
}

func GetUserBookings(ctx iris.Context) {
	guestID := ctx.Values().Get("userID").(uint)

	var bookings []models.Booking
	result := storage.DB.Preload("Apartment").
		Where("guest_id = ?", guestID).
		Order("created_at DESC").
		Find(&bookings)

	if result.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(bookings)
}

// GetOwnerBookings returns the bookings across all of the owner's apartments.
func GetOwnerBookings(ctx iris.Context) {
	ownerID := ctx.Values().Get("userID").(uint)

	var bookings []models.Booking
	result := storage.DB.Preload("Apartment").Preload("Guest").
		Joins("JOIN apartments ON apartments.id = bookings.apartment_id").
		Where("apartments.owner_id = ?", ownerID).
		Order("bookings.created_at DESC").
		Find(&bookings)

	if result.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(bookings)
}

func CheckInBooking(ctx iris.Context) {
	bookingID, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Invalid booking ID.", ctx)
		return
	}

	ownerID := ctx.Values().Get("userID").(uint)

	booking, checkInErr := services.CheckInBooking(bookingID, ownerID)
	if checkInErr != nil {
		handleServiceError(checkInErr, ctx)
		return
	}

	ctx.JSON(booking)
}

// CheckInByTicket lets an owner check a guest in from the ticket code shown
// at the door.
func CheckInByTicket(ctx iris.Context) {
	ownerID := ctx.Values().Get("userID").(uint)

	var input TicketCodeInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	booking, findErr := services.FindBookingByTicketCode(input.TicketCode)
	if findErr != nil {
		handleServiceError(findErr, ctx)
		return
	}

	checkedIn, checkInErr := services.CheckInBooking(booking.ID, ownerID)
	if checkInErr != nil {
		handleServiceError(checkInErr, ctx)
		return
	}

	ctx.JSON(checkedIn)
}

func GetBookingByTicket(ctx iris.Context) {
	code := ctx.Params().Get("code")

	booking, err := services.FindBookingByTicketCode(code)
	if err != nil {
		handleServiceError(err, ctx)
		return
	}

	// Only the guest or the apartment owner may look a ticket up
	userID := ctx.Values().Get("userID").(uint)
	if booking.GuestID != userID && (booking.Apartment == nil || booking.Apartment.OwnerID != userID) {
		ctx.StatusCode(iris.StatusForbidden)
		return
	}

	ctx.JSON(booking)
}

func SelfCheckout(ctx iris.Context) {
	bookingID, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Invalid booking ID.", ctx)
		return
	}

	guestID := ctx.Values().Get("userID").(uint)

	booking, checkoutErr := services.SelfCheckout(bookingID, guestID)
	if checkoutErr != nil {
		handleServiceError(checkoutErr, ctx)
		return
	}

	ctx.JSON(booking)
}

func CancelBooking(ctx iris.Context) {
	bookingID, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Invalid booking ID.", ctx)
		return
	}

	userID := ctx.Values().Get("userID").(uint)

	booking, cancelErr := services.CancelBooking(bookingID, userID)
	if cancelErr != nil {
		handleServiceError(cancelErr, ctx)
		return
	}

	ctx.JSON(booking)
}

func MarkNoShow(ctx iris.Context) {
	bookingID, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Invalid booking ID.", ctx)
		return
	}

	ownerID := ctx.Values().Get("userID").(uint)

	booking, noShowErr := services.MarkNoShow(bookingID, ownerID)
	if noShowErr != nil {
		handleServiceError(noShowErr, ctx)
		return
	}

	ctx.JSON(booking)
}

// AutoCheckout runs the overdue-stay sweep. Meant to be hit by a scheduler.
func AutoCheckout(ctx iris.Context) {
	count, err := services.AutoCheckoutSweep()
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"checkedOut": count})
}

// ExpireUnpaidBookings releases rooms held by bookings whose payment never
// arrived within the configured window.
func ExpireUnpaidBookings(ctx iris.Context) {
	window := 30 * time.Minute
	if v := os.Getenv("BOOKING_PAYMENT_WINDOW_MIN"); v != "" {
		if minutes, parseErr := strconv.Atoi(v); parseErr == nil && minutes > 0 {
			window = time.Duration(minutes) * time.Minute
		}
	}

	count, err := services.ExpireUnpaidBookings(window)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"expired": count})
}

type TicketCodeInput struct {
	TicketCode string `json:"ticketCode" validate:"required,len=8"`
}

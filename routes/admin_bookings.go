package routes

import (
	"net/http"
	"strings"

	"github.com/Apetorku/StayGlobal-sub001/models"
	"github.com/Apetorku/StayGlobal-sub001/storage"
	"github.com/Apetorku/StayGlobal-sub001/utils"
	"github.com/kataras/iris/v12"
	"gorm.io/gorm"
)

// GET /admin/bookings?status=&payment_status=&page=&per_page=
func AdminListBookings(ctx iris.Context) {
	page := ctx.URLParamIntDefault("page", 1)
	perPage := ctx.URLParamIntDefault("per_page", 25)
	if perPage <= 0 || perPage > 100 {
		perPage = 25
	}

	status := strings.TrimSpace(ctx.URLParamDefault("status", ""))
	paymentStatus := strings.TrimSpace(ctx.URLParamDefault("payment_status", ""))
	ticket := strings.TrimSpace(ctx.URLParamDefault("ticket", ""))

	query := storage.DB.Model(&models.Booking{})
	if status != "" {
		query = query.Where("booking_status = ?", status)
	}
	if paymentStatus != "" {
		query = query.Where("payment_status = ?", paymentStatus)
	}
	if ticket != "" {
		query = query.Where("ticket_code = ?", strings.ToUpper(ticket))
	}

	var total int64
	query.Count(&total)

	var bookings []models.Booking
	err := query.Preload("Apartment").Preload("Guest").
		Order("created_at DESC").
		Offset((page - 1) * perPage).Limit(perPage).
		Find(&bookings).Error
	if err != nil {
		utils.JSONError(ctx, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	utils.JSONPage(ctx, bookings, page, perPage, total)
}

// GET /admin/bookings/:id
func AdminGetBooking(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.JSONError(ctx, http.StatusBadRequest, "invalid_id", "invalid id")
		return
	}

	var booking models.Booking
	if err := storage.DB.Preload("Apartment").Preload("Guest").First(&booking, id).Error; err != nil {
		utils.JSONError(ctx, http.StatusNotFound, "not_found", "booking not found")
		return
	}

	var commission models.CommissionRecord
	hasCommission := storage.DB.Where("booking_id = ?", id).Find(&commission).RowsAffected > 0

	resp := iris.Map{"booking": booking}
	if hasCommission {
		resp["commission"] = commission
	}

	ctx.JSON(iris.Map{"data": resp, "meta": iris.Map{}, "links": iris.Map{}})
}

// POST /admin/bookings/:id/cancel — administrative cancellation of an unpaid
// confirmed booking. The same lifecycle rules apply as for user-initiated
// cancellation; paid bookings need the refund flow instead.
func AdminCancelBooking(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.JSONError(ctx, http.StatusBadRequest, "invalid_id", "invalid id")
		return
	}

	var booking models.Booking
	if err := storage.DB.Preload("Apartment").First(&booking, id).Error; err != nil {
		utils.JSONError(ctx, http.StatusNotFound, "not_found", "booking not found")
		return
	}

	if booking.BookingStatus != models.BookingStatusConfirmed {
		utils.JSONError(ctx, http.StatusConflict, "invalid_state", "only confirmed bookings can be cancelled")
		return
	}
	if booking.PaymentStatus == models.PaymentStatusPaid {
		utils.JSONError(ctx, http.StatusConflict, "invalid_state", "paid bookings require a refund, not a cancellation")
		return
	}

	before := booking
	res := storage.DB.Model(&models.Booking{}).
		Where("id = ? AND booking_status = ?", booking.ID, models.BookingStatusConfirmed).
		Update("booking_status", models.BookingStatusCancelled)
	if res.Error != nil {
		utils.JSONError(ctx, http.StatusInternalServerError, "server_error", res.Error.Error())
		return
	}
	if res.RowsAffected == 0 {
		utils.JSONError(ctx, http.StatusConflict, "invalid_state", "booking state changed concurrently")
		return
	}

	// Release the reserved room, capped at the room total
	storage.DB.Model(&models.Apartment{}).
		Where("id = ? AND available_rooms < total_rooms", booking.ApartmentID).
		UpdateColumn("available_rooms", gorm.Expr("available_rooms + 1"))

	booking.BookingStatus = models.BookingStatusCancelled

	utils.Audit(ctx, "booking.cancel", "booking", booking.ID, before, booking)

	ctx.JSON(iris.Map{"data": booking})
}

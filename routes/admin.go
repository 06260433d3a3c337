package routes

import (
	"net/http"
	"strings"

	"github.com/Apetorku/StayGlobal-sub001/models"
	"github.com/Apetorku/StayGlobal-sub001/storage"
	"github.com/Apetorku/StayGlobal-sub001/utils"
	"github.com/kataras/iris/v12"
)

// ListUsers - GET /admin/users?role=&status=&q=&page=&per_page=
func AdminListUsers(ctx iris.Context) {
	page := ctx.URLParamIntDefault("page", 1)
	perPage := ctx.URLParamIntDefault("per_page", 25)
	if perPage <= 0 || perPage > 100 {
		perPage = 25
	}

	var users []models.User
	q := strings.TrimSpace(ctx.URLParamDefault("q", ""))
	role := strings.TrimSpace(ctx.URLParamDefault("role", ""))
	status := strings.TrimSpace(ctx.URLParamDefault("status", ""))

	query := storage.DB.Model(&models.User{})
	if role != "" {
		query = query.Where("role = ?", role)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where("lower(first_name) LIKE ? OR lower(last_name) LIKE ? OR lower(email) LIKE ?", like, like, like)
	}

	var total int64
	query.Count(&total)
	query = query.Offset((page - 1) * perPage).Limit(perPage)
	if err := query.Find(&users).Error; err != nil {
		utils.JSONError(ctx, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	utils.JSONPage(ctx, users, page, perPage, total)
}

// GET /admin/users/:id — full user info + verification + recent bookings
func AdminGetUser(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.JSONError(ctx, http.StatusBadRequest, "invalid_id", "invalid id")
		return
	}

	var user models.User
	if err := storage.DB.Preload("Verification").Preload("PaymentAccount").First(&user, id).Error; err != nil {
		utils.JSONError(ctx, http.StatusNotFound, "not_found", "user not found")
		return
	}

	var bookings []models.Booking
	storage.DB.Where("guest_id = ?", id).Order("created_at DESC").Limit(20).Find(&bookings)

	var apartments []models.Apartment
	storage.DB.Where("owner_id = ?", id).Order("created_at DESC").Find(&apartments)

	ctx.JSON(iris.Map{
		"data": iris.Map{
			"user":       user,
			"bookings":   bookings,
			"apartments": apartments,
		},
		"meta":  iris.Map{},
		"links": iris.Map{},
	})
}

// Change role - PATCH /admin/users/:id/role
func AdminChangeUserRole(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		ctx.StopWithJSON(http.StatusBadRequest, iris.Map{"error": "invalid_id"})
		return
	}

	var body struct {
		Role string `json:"role"`
	}
	if err := ctx.ReadJSON(&body); err != nil || (body.Role != "guest" && body.Role != "owner" && body.Role != "admin") {
		ctx.StopWithJSON(http.StatusBadRequest, iris.Map{"error": "invalid_role"})
		return
	}

	var user models.User
	if err := storage.DB.First(&user, id).Error; err != nil {
		ctx.StopWithJSON(http.StatusNotFound, iris.Map{"error": "not_found"})
		return
	}

	before := user
	user.Role = body.Role
	if err := storage.DB.Save(&user).Error; err != nil {
		ctx.StopWithJSON(http.StatusInternalServerError, iris.Map{"error": "server_error"})
		return
	}

	utils.Audit(ctx, "user.role_update", "user", user.ID, before, user)

	ctx.JSON(iris.Map{"data": user})
}

// PATCH /admin/users/:id/status { status } — suspend or reinstate. Accounts
// are never hard-deleted.
func AdminSetUserStatus(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		ctx.StopWithJSON(http.StatusBadRequest, iris.Map{"error": "invalid_id"})
		return
	}

	var body struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	}
	if err := ctx.ReadJSON(&body); err != nil || (body.Status != "active" && body.Status != "suspended") {
		ctx.StopWithJSON(http.StatusUnprocessableEntity, iris.Map{"error": "invalid_payload", "message": "status must be active or suspended"})
		return
	}

	var user models.User
	if err := storage.DB.First(&user, id).Error; err != nil {
		ctx.StopWithJSON(http.StatusNotFound, iris.Map{"error": "not_found"})
		return
	}

	before := user
	user.Status = body.Status
	if err := storage.DB.Save(&user).Error; err != nil {
		ctx.StopWithJSON(http.StatusInternalServerError, iris.Map{"error": "server_error"})
		return
	}

	utils.Audit(ctx, "user.status_update", "user", user.ID, before, user)

	ctx.JSON(iris.Map{"data": user})
}

// GET /admin/stats — headline counts for the dashboard
func AdminStats(ctx iris.Context) {
	var totalUsers, totalOwners, totalApartments, totalBookings int64
	var pendingVerifications, paidBookings int64

	storage.DB.Model(&models.User{}).Count(&totalUsers)
	storage.DB.Model(&models.User{}).Where("role = ?", "owner").Count(&totalOwners)
	storage.DB.Model(&models.Apartment{}).Count(&totalApartments)
	storage.DB.Model(&models.Booking{}).Count(&totalBookings)
	storage.DB.Model(&models.Booking{}).Where("payment_status = ?", models.PaymentStatusPaid).Count(&paidBookings)
	storage.DB.Model(&models.IdentityVerification{}).
		Where("status IN ?", []string{models.VerificationStatusPending, models.VerificationStatusInReview}).
		Count(&pendingVerifications)

	var grossRevenue, commissionTotal float64
	storage.DB.Model(&models.Booking{}).
		Where("payment_status = ?", models.PaymentStatusPaid).
		Select("COALESCE(SUM(total_amount), 0)").Scan(&grossRevenue)
	storage.DB.Model(&models.CommissionRecord{}).
		Select("COALESCE(SUM(commission_amount), 0)").Scan(&commissionTotal)

	ctx.JSON(iris.Map{
		"data": iris.Map{
			"totalUsers":           totalUsers,
			"totalOwners":          totalOwners,
			"totalApartments":      totalApartments,
			"totalBookings":        totalBookings,
			"paidBookings":         paidBookings,
			"pendingVerifications": pendingVerifications,
			"grossRevenue":         grossRevenue,
			"commissionTotal":      commissionTotal,
		},
		"meta":  iris.Map{},
		"links": iris.Map{},
	})
}

// GET /admin/activity — latest audit log entries
func AdminActivity(ctx iris.Context) {
	limit := ctx.URLParamIntDefault("limit", 50)
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var logs []models.AuditLog
	if err := storage.DB.Order("created_at DESC").Limit(limit).Find(&logs).Error; err != nil {
		utils.JSONError(ctx, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	ctx.JSON(iris.Map{"data": logs, "meta": iris.Map{}, "links": iris.Map{}})
}

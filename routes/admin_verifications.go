package routes

import (
	"net/http"
	"strings"

	"github.com/Apetorku/StayGlobal-sub001/models"
	"github.com/Apetorku/StayGlobal-sub001/services"
	"github.com/Apetorku/StayGlobal-sub001/storage"
	"github.com/Apetorku/StayGlobal-sub001/utils"
	"github.com/kataras/iris/v12"
)

// GET /admin/verifications?status=&page=&per_page=
func AdminListVerifications(ctx iris.Context) {
	page := ctx.URLParamIntDefault("page", 1)
	perPage := ctx.URLParamIntDefault("per_page", 25)
	if perPage <= 0 || perPage > 100 {
		perPage = 25
	}

	status := strings.TrimSpace(ctx.URLParamDefault("status", ""))

	query := storage.DB.Model(&models.IdentityVerification{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	query.Count(&total)

	var verifications []models.IdentityVerification
	err := query.Order("created_at DESC").
		Offset((page - 1) * perPage).Limit(perPage).
		Find(&verifications).Error
	if err != nil {
		utils.JSONError(ctx, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	utils.JSONPage(ctx, verifications, page, perPage, total)
}

// GET /admin/verifications/:id
func AdminGetVerification(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.JSONError(ctx, http.StatusBadRequest, "invalid_id", "invalid id")
		return
	}

	var verification models.IdentityVerification
	if err := storage.DB.First(&verification, id).Error; err != nil {
		utils.JSONError(ctx, http.StatusNotFound, "not_found", "verification not found")
		return
	}

	var user models.User
	storage.DB.First(&user, verification.UserID)

	ctx.JSON(iris.Map{
		"data":  iris.Map{"verification": verification, "user": user},
		"meta":  iris.Map{},
		"links": iris.Map{},
	})
}

// POST /admin/verifications/:id/review { approve, notes } — resolves an
// in_review submission one way or the other.
func AdminReviewVerification(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.JSONError(ctx, http.StatusBadRequest, "invalid_id", "invalid id")
		return
	}

	var body struct {
		Approve *bool  `json:"approve"`
		Notes   string `json:"notes"`
	}
	if err := ctx.ReadJSON(&body); err != nil || body.Approve == nil {
		utils.JSONError(ctx, http.StatusUnprocessableEntity, "invalid_payload", "approve is required")
		return
	}

	adminID := ctx.Values().Get("userID").(uint)

	var before models.IdentityVerification
	storage.DB.First(&before, id)

	verification, reviewErr := services.ReviewVerification(id, adminID, *body.Approve, body.Notes)
	if reviewErr != nil {
		handleServiceError(reviewErr, ctx)
		return
	}

	utils.Audit(ctx, "verification.review", "verification", verification.ID, before, verification)

	ctx.JSON(iris.Map{"data": verification})
}

// PATCH /admin/payment-accounts/:id/verify — flips an owner's payout account
// to verified once the bank details clear.
func AdminVerifyPaymentAccount(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.JSONError(ctx, http.StatusBadRequest, "invalid_id", "invalid id")
		return
	}

	var account models.PaymentAccount
	if err := storage.DB.First(&account, id).Error; err != nil {
		utils.JSONError(ctx, http.StatusNotFound, "not_found", "payment account not found")
		return
	}

	before := account
	account.IsVerified = true
	if err := storage.DB.Save(&account).Error; err != nil {
		utils.JSONError(ctx, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	utils.Audit(ctx, "payment_account.verify", "payment_account", account.ID, before, account)

	ctx.JSON(iris.Map{"data": account})
}

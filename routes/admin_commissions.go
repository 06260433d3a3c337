package routes

import (
	"net/http"
	"strings"

	"github.com/Apetorku/StayGlobal-sub001/models"
	"github.com/Apetorku/StayGlobal-sub001/storage"
	"github.com/Apetorku/StayGlobal-sub001/utils"
	"github.com/kataras/iris/v12"
)

// GET /admin/commissions?status=&owner_id=&page=&per_page=
func AdminListCommissions(ctx iris.Context) {
	page := ctx.URLParamIntDefault("page", 1)
	perPage := ctx.URLParamIntDefault("per_page", 25)
	if perPage <= 0 || perPage > 100 {
		perPage = 25
	}

	status := strings.TrimSpace(ctx.URLParamDefault("status", ""))
	ownerID := ctx.URLParamIntDefault("owner_id", 0)

	query := storage.DB.Model(&models.CommissionRecord{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if ownerID > 0 {
		query = query.Where("owner_id = ?", ownerID)
	}

	var total int64
	query.Count(&total)

	var commissions []models.CommissionRecord
	err := query.Preload("Booking").
		Order("created_at DESC").
		Offset((page - 1) * perPage).Limit(perPage).
		Find(&commissions).Error
	if err != nil {
		utils.JSONError(ctx, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	utils.JSONPage(ctx, commissions, page, perPage, total)
}

// PATCH /admin/commissions/:id/status { status } — settle or fail a
// commission record. Commission state is admin-mutated only.
func AdminUpdateCommissionStatus(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.JSONError(ctx, http.StatusBadRequest, "invalid_id", "invalid id")
		return
	}

	var body struct {
		Status string `json:"status"`
	}
	if readErr := ctx.ReadJSON(&body); readErr != nil ||
		(body.Status != models.CommissionStatusPending &&
			body.Status != models.CommissionStatusPaid &&
			body.Status != models.CommissionStatusFailed) {
		utils.JSONError(ctx, http.StatusUnprocessableEntity, "invalid_payload", "status must be pending/paid/failed")
		return
	}

	var commission models.CommissionRecord
	if err := storage.DB.First(&commission, id).Error; err != nil {
		utils.JSONError(ctx, http.StatusNotFound, "not_found", "commission not found")
		return
	}

	before := commission
	commission.Status = body.Status
	if err := storage.DB.Save(&commission).Error; err != nil {
		utils.JSONError(ctx, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	utils.Audit(ctx, "commission.status_update", "commission", commission.ID, before, commission)

	ctx.JSON(iris.Map{"data": commission})
}

package routes

import (
	"github.com/Apetorku/StayGlobal-sub001/models"
	"github.com/Apetorku/StayGlobal-sub001/services"
	"github.com/Apetorku/StayGlobal-sub001/storage"
	"github.com/Apetorku/StayGlobal-sub001/utils"
	"github.com/kataras/iris/v12"
)

func SubmitVerification(ctx iris.Context) {
	userID := ctx.Values().Get("userID").(uint)

	var input services.SubmitVerificationInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	record, submitErr := services.SubmitVerification(userID, input)
	if submitErr != nil {
		handleServiceError(submitErr, ctx)
		return
	}

	// Run the automated checks right away so the common happy path resolves
	// without waiting for a manual review.
	evaluated, evalErr := services.Evaluate(record.ID)
	if evalErr != nil {
		// Submission stands even if the checks could not run; they will be
		// retried on the next evaluation pass.
		ctx.StatusCode(iris.StatusCreated)
		ctx.JSON(record)
		return
	}

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(evaluated)
}

// GetVerificationStatus reports the caller's verification progress plus the
// single listing-gate answer clients should rely on.
func GetVerificationStatus(ctx iris.Context) {
	userID := ctx.Values().Get("userID").(uint)

	canList, err := services.CanListApartments(userID)
	if err != nil {
		handleServiceError(err, ctx)
		return
	}

	var record models.IdentityVerification
	result := storage.DB.Where("user_id = ?", userID).Find(&record)
	if result.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	if result.RowsAffected == 0 {
		ctx.JSON(iris.Map{
			"status":            models.VerificationStatusNone,
			"level":             models.VerificationLevelNone,
			"canListApartments": canList,
		})
		return
	}

	var hasPaymentAccount bool
	var account models.PaymentAccount
	if storage.DB.Where("user_id = ?", userID).Find(&account).RowsAffected > 0 {
		hasPaymentAccount = true
	}

	ctx.JSON(iris.Map{
		"status":            record.Status,
		"level":             record.Level,
		"results":           record.Results,
		"submittedAt":       record.SubmittedAt,
		"notes":             record.Notes,
		"hasPaymentAccount": hasPaymentAccount,
		"canListApartments": canList,
	})
}

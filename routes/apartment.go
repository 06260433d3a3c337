package routes

import (
	"github.com/Apetorku/StayGlobal-sub001/models"
	"github.com/Apetorku/StayGlobal-sub001/services"
	"github.com/Apetorku/StayGlobal-sub001/storage"
	"github.com/Apetorku/StayGlobal-sub001/utils"
	"github.com/kataras/iris/v12"
)

func CreateApartment(ctx iris.Context) {
	ownerID := ctx.Values().Get("userID").(uint)

	var input services.CreateApartmentInput
	err := ctx.ReadJSON(&input)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	apartment, createErr := services.CreateApartment(ownerID, input)
	if createErr != nil {
		handleServiceError(createErr, ctx)
		return
	}

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(apartment)
}

func UpdateApartment(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Invalid apartment ID.", ctx)
		return
	}

	ownerID := ctx.Values().Get("userID").(uint)

	var input services.UpdateApartmentInput
	if readErr := ctx.ReadJSON(&input); readErr != nil {
		utils.HandleValidationErrors(readErr, ctx)
		return
	}

	apartment, updateErr := services.UpdateApartment(id, ownerID, input)
	if updateErr != nil {
		handleServiceError(updateErr, ctx)
		return
	}

	ctx.JSON(apartment)
}

func GetApartment(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Invalid apartment ID.", ctx)
		return
	}

	var apartment models.Apartment
	apartmentExists := storage.DB.Preload("Owner").Find(&apartment, id)

	if apartmentExists.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	if apartmentExists.RowsAffected == 0 {
		utils.CreateNotFound(ctx)
		return
	}

	ctx.JSON(&apartment)
}

func GetApartmentsByOwner(ctx iris.Context) {
	ownerID := ctx.Values().Get("userID").(uint)

	var apartments []models.Apartment
	result := storage.DB.Where("owner_id = ?", ownerID).Order("created_at DESC").Find(&apartments)
	if result.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(apartments)
}

// SearchApartments lists active apartments, optionally filtered by city or
// country, with availability included so clients can grey out full listings.
func SearchApartments(ctx iris.Context) {
	city := ctx.URLParamDefault("city", "")
	country := ctx.URLParamDefault("country", "")
	page := ctx.URLParamIntDefault("page", 1)
	perPage := ctx.URLParamIntDefault("per_page", 20)
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	query := storage.DB.Model(&models.Apartment{}).Where("is_active = ?", true)
	if city != "" {
		query = query.Where("lower(city) = lower(?)", city)
	}
	if country != "" {
		query = query.Where("lower(country) = lower(?)", country)
	}

	var total int64
	query.Count(&total)

	var apartments []models.Apartment
	result := query.Order("created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&apartments)

	if result.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	utils.JSONPage(ctx, apartments, page, perPage, total)
}

func DeleteApartmentImage(ctx iris.Context) {
	var input DeleteImageInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	ownerID := ctx.Values().Get("userID").(uint)

	var apartment models.Apartment
	apartmentExists := storage.DB.Find(&apartment, input.ApartmentID)
	if apartmentExists.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if apartmentExists.RowsAffected == 0 {
		utils.CreateNotFound(ctx)
		return
	}
	if apartment.OwnerID != ownerID {
		ctx.StatusCode(iris.StatusForbidden)
		return
	}

	if !storage.DeleteImage(input.ImageURL) {
		utils.CreateError(iris.StatusBadGateway, "Upload Error", "Failed to delete image.", ctx)
		return
	}

	ctx.StatusCode(iris.StatusNoContent)
}

type DeleteImageInput struct {
	ApartmentID uint   `json:"apartmentID" validate:"required"`
	ImageURL    string `json:"imageURL" validate:"required"`
}

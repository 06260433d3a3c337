package services

import (
	"encoding/json"
	"errors"

	"github.com/Apetorku/StayGlobal-sub001/models"
	"github.com/Apetorku/StayGlobal-sub001/storage"
	"gorm.io/gorm"
)

type CreateApartmentInput struct {
	Title       string   `json:"title" validate:"required,max=256"`
	Description string   `json:"description" validate:"max=4096"`
	AddressLine string   `json:"addressLine" validate:"required,max=512"`
	City        string   `json:"city" validate:"required,max=128"`
	Country     string   `json:"country" validate:"required,max=64"`
	Lat         float32  `json:"lat"`
	Lng         float32  `json:"lng"`
	Price       float64  `json:"price" validate:"required,gt=0"`
	Currency    string   `json:"currency" validate:"omitempty,len=3"`
	TotalRooms  int      `json:"totalRooms" validate:"required,gte=1,lte=500"`
	Amenities   []string `json:"amenities"`
	Images      []string `json:"images"`
}

type UpdateApartmentInput struct {
	Title       *string  `json:"title" validate:"omitempty,max=256"`
	Description *string  `json:"description" validate:"omitempty,max=4096"`
	Price       *float64 `json:"price" validate:"omitempty,gt=0"`
	TotalRooms  *int     `json:"totalRooms" validate:"omitempty,gte=1,lte=500"`
	IsActive    *bool    `json:"isActive"`
	Amenities   []string `json:"amenities"`
	Images      []string `json:"images"`
}

// CreateApartment creates a listing for a verified owner. The can-list gate
// (full identity verification plus a verified payment account) is the sole
// precondition check; availableRooms starts at totalRooms.
func CreateApartment(ownerID uint, in CreateApartmentInput) (*models.Apartment, error) {
	canList, err := CanListApartments(ownerID)
	if err != nil {
		return nil, err
	}
	if !canList {
		return nil, Forbiddenf("identity verification and a verified payment account are required to list apartments")
	}

	currency := in.Currency
	if currency == "" {
		currency = gatewayCurrency()
	}

	amenities, _ := json.Marshal(in.Amenities)
	images, _ := json.Marshal(in.Images)
	active := true

	apartment := models.Apartment{
		OwnerID:        ownerID,
		Title:          in.Title,
		Description:    in.Description,
		AddressLine:    in.AddressLine,
		City:           in.City,
		Country:        in.Country,
		Lat:            in.Lat,
		Lng:            in.Lng,
		Price:          in.Price,
		Currency:       currency,
		TotalRooms:     in.TotalRooms,
		AvailableRooms: in.TotalRooms,
		Amenities:      string(amenities),
		Images:         string(images),
		IsActive:       &active,
	}

	if err := storage.DB.Create(&apartment).Error; err != nil {
		return nil, err
	}

	// First listing upgrades a guest account to owner.
	storage.DB.Model(&models.User{}).
		Where("id = ? AND role = ?", ownerID, "guest").
		Update("role", "owner")

	return &apartment, nil
}

// UpdateApartment applies owner edits. Shrinking totalRooms below the number
// of currently occupied rooms is rejected; availableRooms is recomputed so
// occupancy is preserved and 0 <= availableRooms <= totalRooms always holds.
func UpdateApartment(apartmentID, ownerID uint, in UpdateApartmentInput) (*models.Apartment, error) {
	var apartment models.Apartment
	if err := storage.DB.First(&apartment, apartmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundf("apartment %d not found", apartmentID)
		}
		return nil, err
	}
	if apartment.OwnerID != ownerID {
		return nil, Forbiddenf("apartment %d belongs to another owner", apartmentID)
	}

	if in.IsActive != nil && *in.IsActive && (apartment.IsActive == nil || !*apartment.IsActive) {
		canList, err := CanListApartments(ownerID)
		if err != nil {
			return nil, err
		}
		if !canList {
			return nil, Forbiddenf("identity verification and a verified payment account are required to activate a listing")
		}
	}

	if in.Title != nil {
		apartment.Title = *in.Title
	}
	if in.Description != nil {
		apartment.Description = *in.Description
	}
	if in.Price != nil {
		apartment.Price = *in.Price
	}
	if in.Amenities != nil {
		amenities, _ := json.Marshal(in.Amenities)
		apartment.Amenities = string(amenities)
	}
	if in.Images != nil {
		images, _ := json.Marshal(in.Images)
		apartment.Images = string(images)
	}
	if in.IsActive != nil {
		apartment.IsActive = in.IsActive
	}

	if in.TotalRooms != nil && *in.TotalRooms != apartment.TotalRooms {
		occupied := apartment.TotalRooms - apartment.AvailableRooms
		if *in.TotalRooms < occupied {
			return nil, Conflictf("cannot reduce totalRooms below the %d currently occupied rooms", occupied)
		}
		apartment.TotalRooms = *in.TotalRooms
		apartment.AvailableRooms = *in.TotalRooms - occupied
	}

	if err := storage.DB.Save(&apartment).Error; err != nil {
		return nil, err
	}
	return &apartment, nil
}

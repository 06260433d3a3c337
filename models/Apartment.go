package models

import (
	"encoding/json"

	"gorm.io/gorm"
)

type Apartment struct {
	gorm.Model
	OwnerID     uint    `json:"ownerID" gorm:"index"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	AddressLine string  `json:"addressLine"`
	City        string  `json:"city"`
	Country     string  `json:"country"`
	Lat         float32 `json:"lat"`
	Lng         float32 `json:"lng"`

	Price          float64 `json:"price"` // nightly, display currency
	Currency       string  `json:"currency"`
	TotalRooms     int     `json:"totalRooms"`
	AvailableRooms int     `json:"availableRooms"` // 0 <= availableRooms <= totalRooms
	Amenities      string  `json:"amenities"`      // JSON string
	Images         string  `json:"images"`         // JSON array of URLs
	IsActive       *bool   `json:"isActive"`

	Bookings []Booking `json:"bookings,omitempty"`
	Owner    User      `json:"owner" gorm:"foreignKey:OwnerID;references:ID"`
}

// Custom JSON marshaling to convert Images and Amenities strings to arrays
func (a *Apartment) MarshalJSON() ([]byte, error) {
	type Alias Apartment
	aux := &struct {
		Images    []string `json:"images"`
		Amenities []string `json:"amenities"`
		Owner     *User    `json:"owner,omitempty"`
		*Alias
	}{
		Images:    []string{},
		Amenities: []string{},
		Owner:     nil,
		Alias:     (*Alias)(a),
	}

	if a.Images != "" {
		var images []string
		if err := json.Unmarshal([]byte(a.Images), &images); err == nil {
			aux.Images = images
		}
	}

	if a.Amenities != "" {
		var amenities []string
		if err := json.Unmarshal([]byte(a.Amenities), &amenities); err == nil {
			aux.Amenities = amenities
		}
	}

	// Only include owner if it is loaded and avoid circular reference
	if a.Owner.ID > 0 {
		ownerCopy := a.Owner
		ownerCopy.Apartments = nil
		aux.Owner = &ownerCopy
	}

	return json.Marshal(aux)
}

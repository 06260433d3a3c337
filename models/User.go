package models

import (
	"encoding/json"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	FirstName           string         `json:"firstName"`
	LastName            string         `json:"lastName"`
	Email               string         `json:"email"`
	PhoneNumber         string         `json:"phoneNumber" gorm:"uniqueIndex"`
	Password            string         `json:"-"`
	SocialLogin         bool           `json:"socialLogin"`
	SocialProvider      string         `json:"socialProvider"`
	AvatarURL           string         `json:"avatarURL"`
	DateOfBirth         string         `json:"dateOfBirth"`
	Bio                 string         `json:"bio"`
	Apartments          []Apartment    `json:"apartments" gorm:"foreignKey:OwnerID;references:ID"`
	SavedApartments     datatypes.JSON `json:"savedApartments"`
	PushTokens          datatypes.JSON `json:"pushTokens"`
	AllowsNotifications *bool          `json:"allowsNotifications"`
	Role                string         `json:"role" gorm:"type:varchar(20);default:guest;index"` // guest, owner, admin
	Status              string         `json:"status" gorm:"type:varchar(20);default:active"`    // active, suspended; accounts are never hard-deleted

	Verification   *IdentityVerification `json:"verification,omitempty" gorm:"foreignKey:UserID"`
	PaymentAccount *PaymentAccount       `json:"paymentAccount,omitempty" gorm:"foreignKey:UserID"`
}

// Custom JSON marshaling to render the datatypes.JSON columns as arrays
func (u *User) MarshalJSON() ([]byte, error) {
	type Alias User
	aux := &struct {
		SavedApartments []int    `json:"savedApartments,omitempty"`
		PushTokens      []string `json:"pushTokens,omitempty"`
		*Alias
	}{
		SavedApartments: []int{},
		PushTokens:      []string{},
		Alias:           (*Alias)(u),
	}

	if u.SavedApartments != nil {
		var saved []int
		if err := json.Unmarshal(u.SavedApartments, &saved); err == nil {
			aux.SavedApartments = saved
		}
	}

	if u.PushTokens != nil {
		var pushTokens []string
		if err := json.Unmarshal(u.PushTokens, &pushTokens); err == nil {
			aux.PushTokens = pushTokens
		}
	}

	// Note: Apartments field is excluded to prevent circular reference
	return json.Marshal(aux)
}

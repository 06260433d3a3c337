package models

import (
	"time"

	"gorm.io/datatypes"
)

// Verification statuses
const (
	VerificationStatusNone     = "none"
	VerificationStatusPending  = "pending"
	VerificationStatusInReview = "in_review"
	VerificationStatusVerified = "verified"
	VerificationStatusRejected = "rejected"
	VerificationStatusExpired  = "expired"
)

// Verification levels (coarse progress, distinct from per-check results)
const (
	VerificationLevelNone             = "none"
	VerificationLevelIDSubmitted      = "id_submitted"
	VerificationLevelBiometricPending = "biometric_pending"
	VerificationLevelFullyVerified    = "fully_verified"
	VerificationLevelRejected         = "rejected"
)

// Sub-check results
const (
	CheckPending = "pending"
	CheckPassed  = "passed"
	CheckFailed  = "failed"
)

// VerificationResults holds the independent sub-checks run by the external
// verifier plus the aggregate score. Stored as a JSON column.
type VerificationResults struct {
	DocumentAuthenticity string  `json:"documentAuthenticity"` // pending, passed, failed
	BiometricMatch       string  `json:"biometricMatch"`
	FaceMatch            string  `json:"faceMatch"`
	DuplicateCheck       string  `json:"duplicateCheck"`
	OverallScore         float64 `json:"overallScore"`
}

type IdentityVerification struct {
	ID     uint `json:"id" gorm:"primaryKey"`
	UserID uint `json:"userID" gorm:"not null;uniqueIndex"`

	IDType      string `json:"idType" gorm:"size:32;not null"` // national_id, passport, drivers_license, voters_card
	IDNumber    string `json:"idNumber" gorm:"size:32;not null"`
	Country     string `json:"country" gorm:"size:2;not null"`
	FullName    string `json:"fullName" gorm:"size:256"`
	DateOfBirth string `json:"dateOfBirth" gorm:"size:10"` // YYYY-MM-DD

	IDFrontImage string `json:"idFrontImage" gorm:"size:512"`
	IDBackImage  string `json:"idBackImage" gorm:"size:512"`
	SelfieImage  string `json:"selfieImage" gorm:"size:512"`

	// Biometric capture metadata reported by the client SDK
	CaptureQuality      float64 `json:"captureQuality"`
	BiometricConfidence float64 `json:"biometricConfidence"`

	Status  string         `json:"status" gorm:"size:20;default:'none';index"`
	Level   string         `json:"level" gorm:"size:24;default:'none';index"`
	Results datatypes.JSON `json:"results"`

	ReviewedBy  *uint      `json:"reviewedBy" gorm:"index"`
	ReviewedAt  *time.Time `json:"reviewedAt"`
	Notes       string     `json:"notes" gorm:"type:text"`
	SubmittedAt *time.Time `json:"submittedAt"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

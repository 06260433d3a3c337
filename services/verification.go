package services

import (
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/Apetorku/StayGlobal-sub001/models"
	"github.com/Apetorku/StayGlobal-sub001/storage"
	"gorm.io/gorm"
)

// Verifier is the opaque external verification provider. It yields a
// pending/passed/failed result per sub-check; no matching algorithm lives in
// this codebase.
type Verifier interface {
	RunChecks(v *models.IdentityVerification) (models.VerificationResults, error)
}

// ActiveVerifier is wired in main; tests install a fake.
var ActiveVerifier Verifier

// Overall-score weights per sub-check.
const (
	weightDocument  = 0.30
	weightBiometric = 0.30
	weightFace      = 0.25
	weightDuplicate = 0.15
)

type idNumberRule struct{ min, max int }

// Accepted ID number lengths per document type, with per-country overrides
// keyed as "type:country".
var idNumberRules = map[string]idNumberRule{
	"national_id":     {min: 8, max: 15},
	"passport":        {min: 6, max: 9},
	"drivers_license": {min: 6, max: 12},
	"voters_card":     {min: 10, max: 10},

	"national_id:GH": {min: 15, max: 15}, // GHA-XXXXXXXXX-X
	"national_id:NG": {min: 11, max: 11},
	"passport:GH":    {min: 8, max: 8},
}

type SubmitVerificationInput struct {
	IDType              string  `json:"idType" validate:"required,oneof=national_id passport drivers_license voters_card"`
	IDNumber            string  `json:"idNumber" validate:"required,min=5,max=20"`
	Country             string  `json:"country" validate:"required,len=2"`
	FullName            string  `json:"fullName" validate:"required,max=256"`
	DateOfBirth         string  `json:"dateOfBirth" validate:"required"`
	IDFrontImage        string  `json:"idFrontImage" validate:"required"`
	IDBackImage         string  `json:"idBackImage"`
	SelfieImage         string  `json:"selfieImage" validate:"required"`
	CaptureQuality      float64 `json:"captureQuality"`
	BiometricConfidence float64 `json:"biometricConfidence"`
}

func validateIDNumber(idType, country, number string) error {
	rule, ok := idNumberRules[idType+":"+strings.ToUpper(country)]
	if !ok {
		rule, ok = idNumberRules[idType]
	}
	if !ok {
		return Validationf("unsupported ID type %q", idType)
	}
	if len(number) < rule.min || len(number) > rule.max {
		return Validationf("%s number for %s must be %d-%d characters", idType, strings.ToUpper(country), rule.min, rule.max)
	}
	return nil
}

func validateDateOfBirth(dob string, now time.Time) error {
	birth, err := time.Parse("2006-01-02", dob)
	if err != nil {
		return Validationf("dateOfBirth must be YYYY-MM-DD")
	}
	if birth.After(now) {
		return Validationf("dateOfBirth cannot be in the future")
	}
	age := now.Year() - birth.Year()
	if now.YearDay() < birth.YearDay() {
		age--
	}
	if age < 18 {
		return Validationf("applicants must be at least 18 years old")
	}
	return nil
}

// SubmitVerification records an identity submission at pending/id_submitted.
// Re-submission is only allowed after a rejected or expired outcome; the
// record never moves backward from verified.
func SubmitVerification(userID uint, in SubmitVerificationInput) (*models.IdentityVerification, error) {
	if err := validateIDNumber(in.IDType, in.Country, in.IDNumber); err != nil {
		return nil, err
	}
	if err := validateDateOfBirth(in.DateOfBirth, time.Now()); err != nil {
		return nil, err
	}

	var user models.User
	if err := storage.DB.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundf("user %d not found", userID)
		}
		return nil, err
	}

	var existing models.IdentityVerification
	err := storage.DB.Where("user_id = ?", userID).First(&existing).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if err == nil {
		switch existing.Status {
		case models.VerificationStatusNone, models.VerificationStatusRejected, models.VerificationStatusExpired:
			// re-submission allowed
		default:
			return nil, Conflictf("a verification is already %s for this user", existing.Status)
		}
	}

	frontURL := uploadVerificationImage(in.IDFrontImage, userID, "id_front")
	backURL := uploadVerificationImage(in.IDBackImage, userID, "id_back")
	selfieURL := uploadVerificationImage(in.SelfieImage, userID, "selfie")

	now := time.Now()
	results, _ := json.Marshal(models.VerificationResults{
		DocumentAuthenticity: models.CheckPending,
		BiometricMatch:       models.CheckPending,
		FaceMatch:            models.CheckPending,
		DuplicateCheck:       models.CheckPending,
	})

	record := existing
	record.UserID = userID
	record.IDType = in.IDType
	record.IDNumber = in.IDNumber
	record.Country = strings.ToUpper(in.Country)
	record.FullName = in.FullName
	record.DateOfBirth = in.DateOfBirth
	record.IDFrontImage = frontURL
	record.IDBackImage = backURL
	record.SelfieImage = selfieURL
	record.CaptureQuality = in.CaptureQuality
	record.BiometricConfidence = in.BiometricConfidence
	record.Status = models.VerificationStatusPending
	record.Level = models.VerificationLevelIDSubmitted
	record.Results = results
	record.ReviewedBy = nil
	record.ReviewedAt = nil
	record.Notes = ""
	record.SubmittedAt = &now

	if err := storage.DB.Save(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func uploadVerificationImage(image string, userID uint, name string) string {
	if image == "" || strings.Contains(image, "res.cloudinary.com") {
		return image
	}
	urlMap := storage.UploadBase64Image(image, storage.VerificationImageID(userID, name))
	if urlMap != nil && urlMap["url"] != "" {
		return urlMap["url"]
	}
	return image
}

func checkScore(result string) float64 {
	switch result {
	case models.CheckPassed:
		return 1
	case models.CheckPending:
		return 0.5
	default:
		return 0
	}
}

// OverallScore aggregates the sub-check outcomes into a weighted composite.
func OverallScore(r models.VerificationResults) float64 {
	return weightDocument*checkScore(r.DocumentAuthenticity) +
		weightBiometric*checkScore(r.BiometricMatch) +
		weightFace*checkScore(r.FaceMatch) +
		weightDuplicate*checkScore(r.DuplicateCheck)
}

// Evaluate runs the external sub-checks for a submitted verification and
// derives status and level: fully verified only when all four checks passed,
// rejected on any definitive failure, in review otherwise.
func Evaluate(verificationID uint) (*models.IdentityVerification, error) {
	var record models.IdentityVerification
	if err := storage.DB.First(&record, verificationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundf("verification %d not found", verificationID)
		}
		return nil, err
	}

	switch record.Status {
	case models.VerificationStatusPending, models.VerificationStatusInReview:
		// evaluable
	default:
		return nil, Conflictf("verification %d is %s and cannot be evaluated", verificationID, record.Status)
	}

	results, err := ActiveVerifier.RunChecks(&record)
	if err != nil {
		return nil, err
	}
	results.OverallScore = OverallScore(results)

	checks := []string{
		results.DocumentAuthenticity,
		results.BiometricMatch,
		results.FaceMatch,
		results.DuplicateCheck,
	}
	allPassed := true
	anyFailed := false
	for _, c := range checks {
		if c != models.CheckPassed {
			allPassed = false
		}
		if c == models.CheckFailed {
			anyFailed = true
		}
	}

	switch {
	case allPassed:
		record.Status = models.VerificationStatusVerified
		record.Level = models.VerificationLevelFullyVerified
	case anyFailed:
		record.Status = models.VerificationStatusRejected
		record.Level = models.VerificationLevelRejected
	default:
		record.Status = models.VerificationStatusInReview
		if results.DocumentAuthenticity == models.CheckPassed {
			record.Level = models.VerificationLevelBiometricPending
		} else {
			record.Level = models.VerificationLevelIDSubmitted
		}
	}

	if results.DuplicateCheck == models.CheckFailed {
		log.Printf("FRAUD: duplicate identity detected for verification %d (user %d, %s %s)",
			record.ID, record.UserID, record.IDType, record.IDNumber)
		record.Notes = "duplicate identity detected; held for manual review"
	}

	encoded, _ := json.Marshal(results)
	record.Results = encoded

	if err := storage.DB.Save(&record).Error; err != nil {
		return nil, err
	}

	NotifyVerificationOutcome(&record)

	return &record, nil
}

// CanListApartments is the single gate for creating or activating a listing
// and for offering split settlements: the owner must be fully verified and
// hold a verified payment account.
func CanListApartments(userID uint) (bool, error) {
	var verification models.IdentityVerification
	err := storage.DB.Where("user_id = ?", userID).First(&verification).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	if verification.Level != models.VerificationLevelFullyVerified ||
		verification.Status != models.VerificationStatusVerified {
		return false, nil
	}

	var account models.PaymentAccount
	err = storage.DB.Where("user_id = ?", userID).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return account.IsVerified, nil
}

// ReviewVerification applies a manual admin decision to a record held in
// review (or still pending).
func ReviewVerification(verificationID, adminID uint, approve bool, notes string) (*models.IdentityVerification, error) {
	var record models.IdentityVerification
	if err := storage.DB.First(&record, verificationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundf("verification %d not found", verificationID)
		}
		return nil, err
	}

	switch record.Status {
	case models.VerificationStatusPending, models.VerificationStatusInReview:
		// reviewable
	default:
		return nil, Conflictf("verification %d is already %s", verificationID, record.Status)
	}

	now := time.Now()
	record.ReviewedBy = &adminID
	record.ReviewedAt = &now
	record.Notes = notes

	if approve {
		var results models.VerificationResults
		_ = json.Unmarshal(record.Results, &results)
		results.DocumentAuthenticity = models.CheckPassed
		results.BiometricMatch = models.CheckPassed
		results.FaceMatch = models.CheckPassed
		results.DuplicateCheck = models.CheckPassed
		results.OverallScore = OverallScore(results)
		encoded, _ := json.Marshal(results)
		record.Results = encoded
		record.Status = models.VerificationStatusVerified
		record.Level = models.VerificationLevelFullyVerified
	} else {
		record.Status = models.VerificationStatusRejected
		record.Level = models.VerificationLevelRejected
	}

	if err := storage.DB.Save(&record).Error; err != nil {
		return nil, err
	}

	NotifyVerificationOutcome(&record)

	return &record, nil
}

// SimulatedVerifier stands in for the external document/biometric provider.
// Document and biometric outcomes derive from the capture metadata; the
// duplicate check is a real lookup against other users' submissions.
type SimulatedVerifier struct{}

func (SimulatedVerifier) RunChecks(v *models.IdentityVerification) (models.VerificationResults, error) {
	results := models.VerificationResults{
		DocumentAuthenticity: gradeScore(v.CaptureQuality, 0.5, 0.3),
		BiometricMatch:       gradeScore(v.BiometricConfidence, 0.75, 0.5),
		FaceMatch:            gradeScore(v.BiometricConfidence, 0.7, 0.45),
		DuplicateCheck:       models.CheckPassed,
	}

	var duplicates int64
	err := storage.DB.Model(&models.IdentityVerification{}).
		Where("id_type = ? AND id_number = ? AND country = ? AND user_id <> ?",
			v.IDType, v.IDNumber, v.Country, v.UserID).
		Count(&duplicates).Error
	if err != nil {
		return models.VerificationResults{}, err
	}
	if duplicates > 0 {
		results.DuplicateCheck = models.CheckFailed
	}

	return results, nil
}

func gradeScore(score, passAt, failBelow float64) string {
	switch {
	case score >= passAt:
		return models.CheckPassed
	case score < failBelow:
		return models.CheckFailed
	default:
		return models.CheckPending
	}
}

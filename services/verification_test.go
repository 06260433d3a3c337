package services

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/Apetorku/StayGlobal-sub001/models"
	"github.com/Apetorku/StayGlobal-sub001/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func submitInput() SubmitVerificationInput {
	return SubmitVerificationInput{
		IDType:              "passport",
		IDNumber:            "P7654321",
		Country:             "gh",
		FullName:            "Ama Mensah",
		DateOfBirth:         "1990-06-15",
		IDFrontImage:        "https://res.cloudinary.com/demo/front.jpg",
		IDBackImage:         "https://res.cloudinary.com/demo/back.jpg",
		SelfieImage:         "https://res.cloudinary.com/demo/selfie.jpg",
		CaptureQuality:      0.9,
		BiometricConfidence: 0.9,
	}
}

func TestValidateIDNumber(t *testing.T) {
	// Country-specific rules win over the generic ones
	assert.NoError(t, validateIDNumber("national_id", "GH", "GHA-123456789-0"))
	assert.Error(t, validateIDNumber("national_id", "GH", "12345678"))
	assert.NoError(t, validateIDNumber("national_id", "NG", "12345678901"))
	assert.NoError(t, validateIDNumber("passport", "GH", "P1234567"))
	assert.Error(t, validateIDNumber("passport", "GH", "P123456"))

	// Generic fallbacks for countries without overrides
	assert.NoError(t, validateIDNumber("passport", "US", "123456"))
	assert.Error(t, validateIDNumber("passport", "US", "12345"))
	assert.NoError(t, validateIDNumber("voters_card", "GH", "1234567890"))
	assert.Error(t, validateIDNumber("voters_card", "GH", "123456789"))

	err := validateIDNumber("horse_license", "GH", "12345678")
	assert.IsType(t, ValidationError{}, err)
}

func TestValidateDateOfBirth(t *testing.T) {
	now := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)

	assert.NoError(t, validateDateOfBirth("1990-06-15", now))
	assert.NoError(t, validateDateOfBirth("2007-09-01", now)) // 18 today
	assert.Error(t, validateDateOfBirth("2007-09-02", now))   // 18 tomorrow
	assert.Error(t, validateDateOfBirth("2030-01-01", now))
	assert.Error(t, validateDateOfBirth("15/06/1990", now))
	assert.Error(t, validateDateOfBirth("", now))
}

func TestSubmitVerification(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t, "guest")

	record, err := SubmitVerification(user.ID, submitInput())
	require.NoError(t, err)
	assert.Equal(t, models.VerificationStatusPending, record.Status)
	assert.Equal(t, models.VerificationLevelIDSubmitted, record.Level)
	assert.Equal(t, "GH", record.Country)
	require.NotNil(t, record.SubmittedAt)

	var results models.VerificationResults
	require.NoError(t, json.Unmarshal(record.Results, &results))
	assert.Equal(t, models.CheckPending, results.DocumentAuthenticity)
	assert.Equal(t, models.CheckPending, results.BiometricMatch)
	assert.Equal(t, models.CheckPending, results.FaceMatch)
	assert.Equal(t, models.CheckPending, results.DuplicateCheck)
}

func TestSubmitVerificationResubmission(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t, "guest")

	first, err := SubmitVerification(user.ID, submitInput())
	require.NoError(t, err)

	_, err = SubmitVerification(user.ID, submitInput())
	assert.IsType(t, ConflictError{}, err)

	require.NoError(t, storage.DB.Model(first).Updates(map[string]interface{}{
		"status": models.VerificationStatusRejected,
		"level":  models.VerificationLevelRejected,
	}).Error)

	second, err := SubmitVerification(user.ID, submitInput())
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, models.VerificationStatusPending, second.Status)
	assert.Nil(t, second.ReviewedBy)
	assert.Empty(t, second.Notes)
}

func TestOverallScore(t *testing.T) {
	allPassed := models.VerificationResults{
		DocumentAuthenticity: models.CheckPassed,
		BiometricMatch:       models.CheckPassed,
		FaceMatch:            models.CheckPassed,
		DuplicateCheck:       models.CheckPassed,
	}
	assert.InDelta(t, 1.0, OverallScore(allPassed), 1e-9)

	allPending := models.VerificationResults{
		DocumentAuthenticity: models.CheckPending,
		BiometricMatch:       models.CheckPending,
		FaceMatch:            models.CheckPending,
		DuplicateCheck:       models.CheckPending,
	}
	assert.InDelta(t, 0.5, OverallScore(allPending), 1e-9)

	docOnly := models.VerificationResults{
		DocumentAuthenticity: models.CheckPassed,
		BiometricMatch:       models.CheckPending,
		FaceMatch:            models.CheckPending,
		DuplicateCheck:       models.CheckPending,
	}
	assert.InDelta(t, 0.65, OverallScore(docOnly), 1e-9)
}

func TestEvaluateAllPassed(t *testing.T) {
	setupTestDB(t)
	ActiveVerifier = fakeVerifier{results: models.VerificationResults{
		DocumentAuthenticity: models.CheckPassed,
		BiometricMatch:       models.CheckPassed,
		FaceMatch:            models.CheckPassed,
		DuplicateCheck:       models.CheckPassed,
	}}

	user := createTestUser(t, "guest")
	record, err := SubmitVerification(user.ID, submitInput())
	require.NoError(t, err)

	evaluated, err := Evaluate(record.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VerificationStatusVerified, evaluated.Status)
	assert.Equal(t, models.VerificationLevelFullyVerified, evaluated.Level)

	var results models.VerificationResults
	require.NoError(t, json.Unmarshal(evaluated.Results, &results))
	assert.InDelta(t, 1.0, results.OverallScore, 1e-9)

	// A settled record cannot be re-evaluated
	_, err = Evaluate(record.ID)
	assert.IsType(t, ConflictError{}, err)
}

func TestEvaluateAnyFailedRejects(t *testing.T) {
	setupTestDB(t)
	ActiveVerifier = fakeVerifier{results: models.VerificationResults{
		DocumentAuthenticity: models.CheckPassed,
		BiometricMatch:       models.CheckFailed,
		FaceMatch:            models.CheckPassed,
		DuplicateCheck:       models.CheckPassed,
	}}

	user := createTestUser(t, "guest")
	record, err := SubmitVerification(user.ID, submitInput())
	require.NoError(t, err)

	evaluated, err := Evaluate(record.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VerificationStatusRejected, evaluated.Status)
	assert.Equal(t, models.VerificationLevelRejected, evaluated.Level)
}

func TestEvaluateInconclusiveHoldsForReview(t *testing.T) {
	setupTestDB(t)
	ActiveVerifier = fakeVerifier{results: models.VerificationResults{
		DocumentAuthenticity: models.CheckPassed,
		BiometricMatch:       models.CheckPending,
		FaceMatch:            models.CheckPending,
		DuplicateCheck:       models.CheckPending,
	}}

	user := createTestUser(t, "guest")
	record, err := SubmitVerification(user.ID, submitInput())
	require.NoError(t, err)

	evaluated, err := Evaluate(record.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VerificationStatusInReview, evaluated.Status)
	assert.Equal(t, models.VerificationLevelBiometricPending, evaluated.Level)

	var results models.VerificationResults
	require.NoError(t, json.Unmarshal(evaluated.Results, &results))
	assert.InDelta(t, 0.65, results.OverallScore, 1e-9)
}

func TestSimulatedVerifierDuplicateIdentity(t *testing.T) {
	setupTestDB(t)
	ActiveVerifier = SimulatedVerifier{}

	original := createTestUser(t, "guest")
	imposter := createTestUser(t, "guest")

	_, err := SubmitVerification(original.ID, submitInput())
	require.NoError(t, err)

	record, err := SubmitVerification(imposter.ID, submitInput())
	require.NoError(t, err)

	evaluated, err := Evaluate(record.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VerificationStatusRejected, evaluated.Status)
	assert.Equal(t, "duplicate identity detected; held for manual review", evaluated.Notes)

	var results models.VerificationResults
	require.NoError(t, json.Unmarshal(evaluated.Results, &results))
	assert.Equal(t, models.CheckFailed, results.DuplicateCheck)
	assert.Equal(t, models.CheckPassed, results.DocumentAuthenticity)
}

func TestSimulatedVerifierGradesCaptureMetadata(t *testing.T) {
	setupTestDB(t)

	user := createTestUser(t, "guest")
	in := submitInput()
	in.CaptureQuality = 0.4 // between the fail and pass thresholds
	in.BiometricConfidence = 0.3

	record, err := SubmitVerification(user.ID, in)
	require.NoError(t, err)

	results, err := SimulatedVerifier{}.RunChecks(record)
	require.NoError(t, err)
	assert.Equal(t, models.CheckPending, results.DocumentAuthenticity)
	assert.Equal(t, models.CheckFailed, results.BiometricMatch)
	assert.Equal(t, models.CheckFailed, results.FaceMatch)
	assert.Equal(t, models.CheckPassed, results.DuplicateCheck)
}

func TestCanListApartments(t *testing.T) {
	setupTestDB(t)

	// No verification at all
	user := createTestUser(t, "guest")
	ok, err := CanListApartments(user.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	// Verified identity but no payment account
	verifiedOnly := createTestUser(t, "guest")
	require.NoError(t, storage.DB.Create(&models.IdentityVerification{
		UserID:   verifiedOnly.ID,
		IDType:   "passport",
		IDNumber: "P0000001",
		Country:  "GH",
		Status:   models.VerificationStatusVerified,
		Level:    models.VerificationLevelFullyVerified,
	}).Error)
	ok, err = CanListApartments(verifiedOnly.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	// Verified identity but unverified payment account
	unverifiedAccount := createTestUser(t, "guest")
	require.NoError(t, storage.DB.Create(&models.IdentityVerification{
		UserID:   unverifiedAccount.ID,
		IDType:   "passport",
		IDNumber: "P0000002",
		Country:  "GH",
		Status:   models.VerificationStatusVerified,
		Level:    models.VerificationLevelFullyVerified,
	}).Error)
	require.NoError(t, storage.DB.Create(&models.PaymentAccount{
		UserID:         unverifiedAccount.ID,
		BusinessName:   "Pending Rentals",
		BankCode:       "058",
		AccountNumber:  "0099887766",
		AccountName:    "Pending Rentals",
		SubaccountCode: "ACCT_pending",
		IsVerified:     false,
	}).Error)
	ok, err = CanListApartments(unverifiedAccount.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	// Fully verified on both counts
	listable := createTestUser(t, "guest")
	makeListable(t, listable.ID)
	ok, err = CanListApartments(listable.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReviewVerification(t *testing.T) {
	setupTestDB(t)
	admin := createTestUser(t, "admin")

	applicant := createTestUser(t, "guest")
	record, err := SubmitVerification(applicant.ID, submitInput())
	require.NoError(t, err)

	approved, err := ReviewVerification(record.ID, admin.ID, true, "documents checked manually")
	require.NoError(t, err)
	assert.Equal(t, models.VerificationStatusVerified, approved.Status)
	assert.Equal(t, models.VerificationLevelFullyVerified, approved.Level)
	require.NotNil(t, approved.ReviewedBy)
	assert.Equal(t, admin.ID, *approved.ReviewedBy)
	assert.NotNil(t, approved.ReviewedAt)

	var results models.VerificationResults
	require.NoError(t, json.Unmarshal(approved.Results, &results))
	assert.Equal(t, models.CheckPassed, results.DocumentAuthenticity)
	assert.Equal(t, models.CheckPassed, results.DuplicateCheck)
	assert.InDelta(t, 1.0, results.OverallScore, 1e-9)

	// Decisions are final
	_, err = ReviewVerification(record.ID, admin.ID, false, "changed my mind")
	assert.IsType(t, ConflictError{}, err)

	rejectee := createTestUser(t, "guest")
	in := submitInput()
	in.IDNumber = "P9998887"
	record2, err := SubmitVerification(rejectee.ID, in)
	require.NoError(t, err)

	rejected, err := ReviewVerification(record2.ID, admin.ID, false, "document unreadable")
	require.NoError(t, err)
	assert.Equal(t, models.VerificationStatusRejected, rejected.Status)
	assert.Equal(t, models.VerificationLevelRejected, rejected.Level)
	assert.Equal(t, "document unreadable", rejected.Notes)
}

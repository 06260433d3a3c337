package utils

import (
	"regexp"
	"strings"
)

// FormatPhoneNumber formats a phone number to a standard format
// Removes all non-digit characters and ensures it starts with country code
func FormatPhoneNumber(phoneNumber string) string {
	// Remove all non-digit characters
	re := regexp.MustCompile(`\D`)
	digits := re.ReplaceAllString(phoneNumber, "")

	// If it doesn't start with country code, assume Ghana (+233)
	if len(digits) > 0 && !strings.HasPrefix(digits, "233") {
		// Remove leading zeros
		digits = strings.TrimLeft(digits, "0")
		// Add Ghana country code
		digits = "233" + digits
	}

	return digits
}

// ValidatePhoneNumber validates if a phone number is in correct format
func ValidatePhoneNumber(phoneNumber string) bool {
	// Remove all non-digit characters
	re := regexp.MustCompile(`\D`)
	cleaned := re.ReplaceAllString(phoneNumber, "")

	// Strip country code or leading zero for the local-part check
	if strings.HasPrefix(cleaned, "233") {
		cleaned = cleaned[3:]
	} else {
		cleaned = strings.TrimLeft(cleaned, "0")
	}

	// Ghanaian mobile numbers are 9 digits after the country code
	if len(cleaned) != 9 {
		return false
	}

	// Valid mobile prefixes start with 2 or 5
	firstDigit := string(cleaned[0])
	return firstDigit == "2" || firstDigit == "5"
}

// NormalizePhoneNumber normalizes phone number for database storage
func NormalizePhoneNumber(phoneNumber string) string {
	return FormatPhoneNumber(phoneNumber)
}

// DisplayPhoneNumber formats phone number for display
func DisplayPhoneNumber(phoneNumber string) string {
	formatted := FormatPhoneNumber(phoneNumber)
	if len(formatted) == 12 && strings.HasPrefix(formatted, "233") {
		// Format as +233 XX XXX XXXX
		return "+" + formatted[:3] + " " + formatted[3:5] + " " + formatted[5:8] + " " + formatted[8:]
	}
	return phoneNumber
}

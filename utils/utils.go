package utils

import (
	"os"
	"regexp"
	"strings"
)

var nonPhoneChars = regexp.MustCompile(`[^\d+]`)

func FileExist(filePath string) bool {
	_, err := os.Stat(filePath)
	return err == nil
}

func CreateDirIfNotExist(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}

	return nil
}

// NormalizePhoneNumber strips everything but digits and a leading '+',
// so "(555) 123-4567" and "555-123-4567" compare equal.
func NormalizePhoneNumber(phoneNumber string) string {
	phoneNumber = strings.TrimSpace(phoneNumber)
	leadingPlus := strings.HasPrefix(phoneNumber, "+")

	digits := strings.ReplaceAll(nonPhoneChars.ReplaceAllString(phoneNumber, ""), "+", "")
	if leadingPlus {
		return "+" + digits
	}
	return digits
}

package model

import "strings"

// MinPasswordLength is the shortest password accepted by the registration form.
const MinPasswordLength = 8

// Registration is the account-creation payload sent to the backend.
type Registration struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

// ValidatePassword checks that a password meets the minimum length.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return invalid("password", "Password must be at least 8 characters.")
	}
	return nil
}

// ParseRegistration validates the registration form.
func ParseRegistration(fullName, email, password, confirm string) (Registration, error) {
	fullName = strings.TrimSpace(fullName)
	email = strings.TrimSpace(email)

	if fullName == "" || email == "" || password == "" {
		return Registration{}, invalid("", "Name, email and password are required.")
	}
	if password != confirm {
		return Registration{}, invalid("confirm", "Passwords do not match.")
	}
	if err := ValidatePassword(password); err != nil {
		return Registration{}, err
	}
	return Registration{Email: email, Password: password, FullName: fullName}, nil
}

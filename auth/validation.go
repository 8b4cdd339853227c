package auth

import (
	"fmt"
	"slices"
	"strings"

	"github.com/jrsteele09/go-clinic-client/users"
)

// Validator checks auth payloads before they reach a user repository. Every
// error it returns wraps ErrValidation.
type Validator struct {
	selfServiceRoles []users.RoleType
}

// NewValidator creates a validator that allows self-registration only for
// the given roles, patient if none are given.
func NewValidator(selfServiceRoles ...users.RoleType) *Validator {
	if len(selfServiceRoles) == 0 {
		selfServiceRoles = []users.RoleType{users.RolePatient}
	}
	return &Validator{selfServiceRoles: selfServiceRoles}
}

// ValidateCredentials validates login credentials
func (v *Validator) ValidateCredentials(creds Credentials) error {
	if err := validateEmail(creds.Email); err != nil {
		return err
	}
	if creds.Password == "" {
		return fmt.Errorf("%w: password is required", ErrValidation)
	}
	return nil
}

// ValidateProfile validates a registration request
func (v *Validator) ValidateProfile(profile Profile) error {
	if strings.TrimSpace(profile.FirstName) == "" || strings.TrimSpace(profile.LastName) == "" {
		return fmt.Errorf("%w: first and last name are required", ErrValidation)
	}
	if err := validateEmail(profile.Email); err != nil {
		return err
	}
	if err := users.ValidatePasswordStrength(profile.Password); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	for _, role := range profile.Roles {
		if !slices.Contains(v.selfServiceRoles, role) {
			return fmt.Errorf("%w: role %q cannot be self-assigned", ErrValidation, role)
		}
	}
	return nil
}

func validateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}

	// Basic email format validation
	at := strings.Index(email, "@")
	if at < 1 || !strings.Contains(email[at:], ".") {
		return fmt.Errorf("%w: invalid email format", ErrValidation)
	}
	return nil
}

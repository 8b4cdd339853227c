package users

import (
	"fmt"
	"slices"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// RoleType is a role label carried by a clinic user. Roles are not mutually
// exclusive: a doctor may also be an admin.
type RoleType string

const (
	RoleAdmin        RoleType = "admin"
	RoleDoctor       RoleType = "doctor"
	RolePatient      RoleType = "patient"
	RoleReceptionist RoleType = "receptionist"
)

// User is the identity record held by the session and mirrored to persistence.
type User struct {
	ID           string     `json:"id"`                   // Unique identifier for the user
	FirstName    string     `json:"firstName,omitempty"`  // First name of the user
	LastName     string     `json:"lastName,omitempty"`   // Last name of the user
	Email        string     `json:"email"`                // User's email address
	Roles        []RoleType `json:"roles"`                // Ordered role labels
	PasswordHash string     `json:"-"`                    // Only populated by backend repos, never serialized
}

// DisplayName returns "First Last", falling back to the email address.
func (u *User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

// HasRole reports whether the user carries role.
func (u *User) HasRole(role RoleType) bool {
	if u == nil {
		return false
	}
	return slices.Contains(u.Roles, role)
}

// Satisfies reports whether the user meets a route requirement. An empty
// requirement is met by any user.
func (u *User) Satisfies(required RoleType) bool {
	if required == "" {
		return u != nil
	}
	return u.HasRole(required)
}

// Clone returns a deep copy so that callers cannot mutate session state.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.Roles = slices.Clone(u.Roles)
	return &c
}

// RoleStrings returns the roles as plain strings.
func (u *User) RoleStrings() []string {
	roles := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		roles = append(roles, string(r))
	}
	return roles
}

// ParseRoles converts role labels into RoleTypes, dropping blanks.
func ParseRoles(labels []string) []RoleType {
	roles := make([]RoleType, 0, len(labels))
	for _, l := range labels {
		l = strings.TrimSpace(strings.ToLower(l))
		if l == "" {
			continue
		}
		roles = append(roles, RoleType(l))
	}
	return roles
}

// ValidatePasswordStrength checks if password meets security requirements:
// - At least 8 characters long
// - Contains uppercase and lowercase letters
// - Contains at least one number
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}

	var (
		hasUpper  bool
		hasLower  bool
		hasNumber bool
	)

	for _, char := range password {
		if unicode.IsUpper(char) {
			hasUpper = true
		} else if unicode.IsLower(char) {
			hasLower = true
		} else if unicode.IsDigit(char) {
			hasNumber = true
		}
	}

	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return fmt.Errorf("password must contain at least one number")
	}

	return nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

package users

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// User is the authenticated identity held in memory for the life of a session.
type User struct {
	ID          string   `json:"id"`                    // Unique identifier issued by the auth service
	Name        string   `json:"name"`                  // Display name
	Email       string   `json:"email"`                 // Login email
	Role        string   `json:"role"`                  // Primary role
	Roles       []string `json:"roles,omitempty"`       // Additional roles, when the service issues several
	Permissions []string `json:"permissions,omitempty"` // Fine grained permissions
}

// Record is the projection of a User that is persisted for session restoration.
type Record struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Record returns the persisted form of the user
func (u *User) Record() Record {
	return Record{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// User rebuilds an in-memory user from a persisted record
func (r Record) User() *User {
	return &User{ID: r.ID, Name: r.Name, Email: r.Email, Role: r.Role}
}

// Valid reports whether the record identifies someone
func (r Record) Valid() bool {
	return strings.TrimSpace(r.ID) != ""
}

// HasRole matches either the primary role or membership in Roles. A nil user has no roles.
func (u *User) HasRole(role string) bool {
	if u == nil || role == "" {
		return false
	}
	if u.Role == role {
		return true
	}
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasPermission checks the permission list. A nil user has no permissions.
func (u *User) HasPermission(permission string) bool {
	if u == nil || permission == "" {
		return false
	}
	for _, p := range u.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers cannot mutate session state
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.Roles = append([]string(nil), u.Roles...)
	c.Permissions = append([]string(nil), u.Permissions...)
	return &c
}

// Account is a user known to an auth service together with its credentials.
type Account struct {
	User
	PasswordHash string `json:"-"` // Hashed version of the user's password - never serialize
	Blocked      bool   `json:"blocked,omitempty"`
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

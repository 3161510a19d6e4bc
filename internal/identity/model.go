package identity

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is an authenticated principal optionally bound to a phone number or CTR code.
type User struct {
	ID           string    `json:"id"`
	Phone        string    `json:"phone,omitempty"`
	CTRCode      string    `json:"ctr_code,omitempty"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	PINHash      []byte    `json:"-"`
	Blocked      bool      `json:"blocked"`
	TokenVersion int       `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	LastLogin    time.Time `json:"last_login"`
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Credentials identify a user by exactly one contact plus PIN.
type Credentials struct {
	Phone   string
	CTRCode string
	PIN     string
}

// Profile is the user editable part of an identity.
type Profile struct {
	Name string `json:"name"`
}

package domain

import "time"

// DefaultSuperAdminEmail is the super-administrator identity used when none is configured.
const DefaultSuperAdminEmail = "superadmin@gmail.com"

// User models an account that can authenticate against the admin backend.
type User struct {
	ID                int64     `json:"user_id"`
	FirstName         string    `json:"first_name"`
	LastName          string    `json:"last_name"`
	Email             string    `json:"email"`
	Phone             string    `json:"phone_no"`
	PasswordHash      string    `json:"-"`
	Active            bool      `json:"active"`
	MustResetPassword bool      `json:"must_reset_password"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Identity is what a verified token resolves to. The user it names may no
// longer exist; callers that care must look it up.
type Identity struct {
	UserID int64  `json:"userId"`
	Email  string `json:"email"`
}

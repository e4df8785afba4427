package auth

import "time"

// Roles a user may hold. Operators record call outcomes; admins additionally
// manage users and bypass operator rate ceilings.
const (
	RoleAdmin    = "admin"
	RoleOperator = "operator"
)

// BootstrapUsername is the protected default admin account created when the
// user table is empty. It can never be deleted.
const BootstrapUsername = "admin"

// User is an operator or administrator account.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

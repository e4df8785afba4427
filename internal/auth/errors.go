package auth

import "errors"

var (
	// ErrInvalidCredentials covers both unknown usernames and wrong
	// passwords so login failures never reveal which one it was.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrUserNotFound is returned when a user is not found
	ErrUserNotFound = errors.New("user not found")

	// ErrUsernameTaken is returned when the username is already registered
	ErrUsernameTaken = errors.New("username already taken")

	// ErrPasswordTooShort is returned when the password has fewer than 6 characters
	ErrPasswordTooShort = errors.New("password must be at least 6 characters")

	// ErrProtectedUser is returned when deleting one's own account or the
	// bootstrap admin
	ErrProtectedUser = errors.New("this account cannot be deleted")

	// ErrInvalidRole is returned when the role is neither admin nor operator
	ErrInvalidRole = errors.New("role must be admin or operator")

	// ErrForbidden is returned when an authenticated user lacks the admin role
	ErrForbidden = errors.New("admin role required")
)

package user

import pkgerrors "user-crud-service/pkg/errors"

// ErrUserNotFound is returned when no row matches the requested id.
var ErrUserNotFound = pkgerrors.NewNotFoundError("user", "User not found")

// User represents a user entity in the system.
type User struct {
	ID    int64  `json:"id"`    // ID is assigned by storage on insert
	Name  string `json:"name"`  // Name is the full name of the user
	Email string `json:"email"` // Email is unique across all users
}

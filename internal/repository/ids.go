package repository

import "github.com/google/uuid"

// newID generates a primary key for rows created inside the repository layer.
func newID() string {
	return uuid.New().String()
}

package entity

import (
	"time"
)

// User is the aggregate root of the directory.
// ID, CreatedAt and UpdatedAt are assigned by the store.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

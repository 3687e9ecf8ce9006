package domain

import "github.com/google/uuid"

// User is the read view of an external staff account
type User struct {
	ID         uuid.UUID
	Name       string
	Email      string
	Phone      string
	Department Department
	Role       Role
	IsActive   bool
}

// Contact returns the user's delivery addresses
func (u *User) Contact() *Contact {
	return &Contact{UserID: u.ID, Email: u.Email, Phone: u.Phone}
}

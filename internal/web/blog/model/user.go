package model

import "time"

// User blog users
type User struct {
	// ID unique identifier for the user
	ID string `bson:"_id" json:"id"`
	// Email login account, unique and lower-cased
	Email string `bson:"email" json:"email"`
	// Name display name
	Name string `bson:"name" json:"name"`
	// Password bcrypt hash, never sent to clients
	Password string `bson:"password" json:"-"`
	// CreatedAt time when the user registered
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}

// Collection returns the name of the collection/table for users
func (User) Collection() string {
	return "users"
}

// PublicUser is the client-facing view of a user
type PublicUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Public strips credentials from the user
func (u *User) Public() *PublicUser {
	return &PublicUser{
		ID:    u.ID,
		Email: u.Email,
		Name:  u.Name,
	}
}

package models

import "time"

// User is the authenticated account holder.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Avatar    *string   `json:"avatar,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Initial returns the first letter of the user's name for avatar placeholders.
func (u *User) Initial() string {
	if u == nil {
		return "U"
	}
	for _, r := range u.Name {
		return string(r)
	}
	return "U"
}

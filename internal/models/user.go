package models

import "time"

// RoleUser is the base role granted to every identity on first sign-in.
const RoleUser = "USER"

// User is the local identity of a principal. Sub is the subject identifier
// issued by the external identity provider and is unique across users.
type User struct {
	ID         string    `bson:"_id" json:"id"`
	Sub        string    `bson:"sub" json:"sub"`
	Email      string    `bson:"email" json:"email"`
	Name       string    `bson:"name" json:"name"`
	PictureURL string    `bson:"picture,omitempty" json:"picture,omitempty"`
	Roles      []string  `bson:"roles" json:"roles"`
	CreatedAt  time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Username is the login name carried in issued tokens: the email when the
// provider supplied one, otherwise the subject.
func (u *User) Username() string {
	if u.Email != "" {
		return u.Email
	}
	return u.Sub
}

package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username     string             `bson:"username" json:"username"`
	FirstName    string             `bson:"firstName" json:"firstName"`
	MiddleName   string             `bson:"middleName" json:"middleName"`
	LastName     string             `bson:"lastName" json:"lastName"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"password" json:"-"`

	EmailVerified            bool       `bson:"emailVerified" json:"emailVerified"`
	EmailVerificationToken   *string    `bson:"emailVerificationToken,omitempty" json:"-"`
	EmailVerificationExpires *time.Time `bson:"emailVerificationExpires,omitempty" json:"-"`
	ResetPasswordToken       *string    `bson:"resetPasswordToken,omitempty" json:"-"`
	ResetPasswordExpires     *time.Time `bson:"resetPasswordExpires,omitempty" json:"-"`

	ProfilePicture string `bson:"profilePicture" json:"profilePicture"`
	Bio            string `bson:"bio" json:"bio"`

	Followers []primitive.ObjectID `bson:"followers" json:"followers"`
	Following []primitive.ObjectID `bson:"following" json:"following"`
	Posts     []primitive.ObjectID `bson:"posts" json:"posts"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// UserSummary is the populated author shape embedded in feed responses.
// A nil *UserSummary on a post or comment means the referenced user no
// longer exists.
type UserSummary struct {
	ID             primitive.ObjectID `bson:"_id" json:"id"`
	Username       string             `bson:"username" json:"username"`
	ProfilePicture string             `bson:"profilePicture" json:"profilePicture"`
}

// Summary trims a full user document down to the embeddable shape.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:             u.ID,
		Username:       u.Username,
		ProfilePicture: u.ProfilePicture,
	}
}

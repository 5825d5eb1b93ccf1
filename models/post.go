package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	PostTypeReview   = "review"
	PostTypeUnboxing = "unboxing"
	PostTypeGeneral  = "general"
)

// Categories mirrors the category enumeration of the post schema. Free text
// is rejected at create time; the feed only ever compares normalized strings.
var Categories = []string{
	"Product", "Food", "Hotel", "Homestay", "Restaurant", "Cafe",
	"Electronics", "Fashion", "Beauty", "Sports", "Books", "Movies",
	"Music", "Travel", "Technology", "Automotive", "Home & Garden",
	"Health & Wellness", "Entertainment", "Business", "Education", "Other",
}

func ValidPostType(t string) bool {
	return t == PostTypeReview || t == PostTypeUnboxing || t == PostTypeGeneral
}

func ValidCategory(c string) bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

// Stat is one labeled score of a review's multi-aspect rating breakdown.
type Stat struct {
	Label string  `bson:"label" json:"label"`
	Value float64 `bson:"value" json:"value"`
}

type Comment struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	UserID    primitive.ObjectID `bson:"user" json:"-"`
	User      *UserSummary       `bson:"-" json:"user,omitempty"`
	Text      string             `bson:"text" json:"text"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// Post is a stored post document. Title, Category, Rating and Video are
// pointers so that an absent field stays distinguishable from a zero value.
// User, comment User fields, TotalRating and TotalRatingsCount are populated
// on reads only and never written back to the store.
type Post struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	PostType string             `bson:"postType" json:"postType"`
	Title    *string            `bson:"title,omitempty" json:"title,omitempty"`
	Category *string            `bson:"category,omitempty" json:"category,omitempty"`
	Caption  string             `bson:"caption" json:"caption"`
	Image    string             `bson:"image" json:"image"`
	Images   []string           `bson:"images,omitempty" json:"images,omitempty"`
	Video    *string            `bson:"video,omitempty" json:"video,omitempty"`

	UserID primitive.ObjectID `bson:"user" json:"-"`
	User   *UserSummary       `bson:"-" json:"user,omitempty"`

	Likes    []primitive.ObjectID `bson:"likes" json:"likes"`
	Comments []Comment            `bson:"comments" json:"comments"`

	Rating *int     `bson:"rating,omitempty" json:"rating,omitempty"`
	Stats  []Stat   `bson:"stats,omitempty" json:"stats,omitempty"`
	Tags   []string `bson:"tags,omitempty" json:"tags,omitempty"`

	TotalRating       *int `bson:"-" json:"totalRating,omitempty"`
	TotalRatingsCount *int `bson:"-" json:"totalRatingsCount,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestValidPostType(t *testing.T) {
	assert.True(t, ValidPostType(PostTypeReview))
	assert.True(t, ValidPostType(PostTypeUnboxing))
	assert.True(t, ValidPostType(PostTypeGeneral))
	assert.False(t, ValidPostType("story"))
	assert.False(t, ValidPostType(""))
}

func TestValidCategory(t *testing.T) {
	assert.True(t, ValidCategory("Electronics"))
	assert.True(t, ValidCategory("Home & Garden"))
	assert.False(t, ValidCategory("electronics"))
	assert.False(t, ValidCategory("Spaceships"))
}

func TestPostJSONOmitsDerivedFieldsWhenUnset(t *testing.T) {
	p := Post{
		ID:        primitive.NewObjectID(),
		PostType:  PostTypeUnboxing,
		Image:     "https://img.example/p.jpg",
		CreatedAt: time.Now(),
	}

	data, err := json.Marshal(p)
	require.NoError(t, err)

	assert.NotContains(t, string(data), "totalRating")
	assert.NotContains(t, string(data), "rating")
	assert.NotContains(t, string(data), "title")
}

func TestPostJSONIncludesRollupWhenSet(t *testing.T) {
	total, count := 6, 2
	rating := 4
	title := "Great Camera"
	p := Post{
		ID:                primitive.NewObjectID(),
		PostType:          PostTypeReview,
		Title:             &title,
		Image:             "https://img.example/p.jpg",
		Rating:            &rating,
		TotalRating:       &total,
		TotalRatingsCount: &count,
	}

	data, err := json.Marshal(p)
	require.NoError(t, err)

	assert.Contains(t, string(data), `"totalRating":6`)
	assert.Contains(t, string(data), `"totalRatingsCount":2`)
	assert.Contains(t, string(data), `"rating":4`)
}

package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"instrevi/models"
)

func strptr(s string) *string { return &s }
func intptr(n int) *int       { return &n }

func author(name string) *models.UserSummary {
	return &models.UserSummary{ID: primitive.NewObjectID(), Username: name}
}

func post(t time.Time, user *models.UserSummary) models.Post {
	return models.Post{
		ID:        primitive.NewObjectID(),
		PostType:  models.PostTypeGeneral,
		Image:     "https://img.example/p.jpg",
		User:      user,
		CreatedAt: t,
	}
}

func review(t time.Time, user *models.UserSummary, category, title string, rating *int) models.Post {
	p := post(t, user)
	p.PostType = models.PostTypeReview
	if category != "" {
		p.Category = strptr(category)
	}
	if title != "" {
		p.Title = strptr(title)
	}
	p.Rating = rating
	return p
}

type staticSource struct {
	posts []models.Post
	err   error
}

func (s staticSource) Posts(context.Context) ([]models.Post, error) {
	return s.posts, s.err
}

func TestBuildPropagatesSourceError(t *testing.T) {
	_, err := Build(context.Background(), staticSource{err: errors.New("store down")})
	assert.Error(t, err)
}

func TestDropsPostsWithDeletedAuthor(t *testing.T) {
	now := time.Now()
	u := author("ada")
	posts := []models.Post{
		post(now, u),
		post(now.Add(-time.Minute), nil),
		post(now.Add(-2*time.Minute), u),
	}

	out := Aggregate(posts)

	require.Len(t, out, 2)
	for _, p := range out {
		assert.NotNil(t, p.User)
	}
}

func TestFiltersCommentsWithDeletedAuthor(t *testing.T) {
	now := time.Now()
	u := author("ada")
	commenter := author("bob")
	p := post(now, u)
	p.Comments = []models.Comment{
		{ID: primitive.NewObjectID(), User: commenter, Text: "first", CreatedAt: now},
		{ID: primitive.NewObjectID(), User: nil, Text: "gone", CreatedAt: now},
		{ID: primitive.NewObjectID(), User: commenter, Text: "last", CreatedAt: now},
	}

	out := Aggregate([]models.Post{p})

	require.Len(t, out, 1)
	require.Len(t, out[0].Comments, 2)
	assert.Equal(t, "first", out[0].Comments[0].Text)
	assert.Equal(t, "last", out[0].Comments[1].Text)
}

func TestGroupingNormalizesCategoryAndTitle(t *testing.T) {
	now := time.Now()
	a := review(now, author("ada"), "Electronics", "Great Camera", intptr(4))
	b := review(now.Add(-time.Minute), author("bob"), "electronics", " Great Camera ", intptr(2))

	out := Aggregate([]models.Post{a, b})

	require.Len(t, out, 2)
	for _, p := range out {
		require.NotNil(t, p.TotalRating)
		require.NotNil(t, p.TotalRatingsCount)
		assert.Equal(t, 6, *p.TotalRating)
		assert.Equal(t, 2, *p.TotalRatingsCount)
	}
}

func TestReviewWithoutKeyFallsBackToOwnRating(t *testing.T) {
	now := time.Now()
	// Same title as another review, but no category: never joins a group.
	solo := review(now, author("ada"), "", "Ramen", intptr(3))
	other := review(now.Add(-time.Minute), author("bob"), "Food", "Ramen", intptr(5))

	out := Aggregate([]models.Post{solo, other})

	require.Len(t, out, 2)
	assert.Equal(t, 3, *out[0].TotalRating)
	assert.Equal(t, 1, *out[0].TotalRatingsCount)
	assert.Equal(t, 5, *out[1].TotalRating)
	assert.Equal(t, 1, *out[1].TotalRatingsCount)
}

func TestReviewWithoutKeyOrRating(t *testing.T) {
	out := Aggregate([]models.Post{review(time.Now(), author("ada"), "", "", nil)})

	require.Len(t, out, 1)
	assert.Equal(t, 0, *out[0].TotalRating)
	assert.Equal(t, 0, *out[0].TotalRatingsCount)
}

func TestUnratedReviewWithKeyDoesNotContribute(t *testing.T) {
	now := time.Now()
	rated := review(now, author("ada"), "Food", "Ramen", intptr(5))
	unrated := review(now.Add(-time.Minute), author("bob"), "Food", "Ramen", nil)

	out := Aggregate([]models.Post{rated, unrated})

	require.Len(t, out, 2)
	// The group holds only the rated review, but both merge against it.
	assert.Equal(t, 5, *out[0].TotalRating)
	assert.Equal(t, 1, *out[0].TotalRatingsCount)
	assert.Equal(t, 5, *out[1].TotalRating)
	assert.Equal(t, 1, *out[1].TotalRatingsCount)
}

func TestNonReviewPostsPassThrough(t *testing.T) {
	now := time.Now()
	unboxing := post(now, author("ada"))
	unboxing.PostType = models.PostTypeUnboxing
	unboxing.Title = strptr("New Phone")
	unboxing.Category = strptr("Electronics")

	out := Aggregate([]models.Post{unboxing})

	require.Len(t, out, 1)
	assert.Nil(t, out[0].TotalRating)
	assert.Nil(t, out[0].TotalRatingsCount)
}

func TestOrderPreserved(t *testing.T) {
	now := time.Now()
	u := author("ada")
	posts := []models.Post{
		review(now, u, "Food", "Ramen", intptr(4)),
		post(now.Add(-time.Minute), u),
		review(now.Add(-2*time.Minute), u, "food", "ramen", intptr(2)),
		post(now.Add(-3*time.Minute), u),
	}

	out := Aggregate(posts)

	require.Len(t, out, 4)
	for i, p := range out {
		assert.Equal(t, posts[i].ID, p.ID)
	}
}

func TestIdempotentOverFrozenInput(t *testing.T) {
	now := time.Now()
	u := author("ada")
	posts := []models.Post{
		review(now, u, "Food", "Ramen", intptr(5)),
		review(now.Add(-time.Minute), author("bob"), "food", "ramen", intptr(-1)),
		post(now.Add(-2*time.Minute), nil),
	}

	first := Aggregate(posts)
	second := Aggregate(posts)

	assert.Equal(t, first, second)
}

func TestRollupScenario(t *testing.T) {
	now := time.Now()
	reviewA := review(now, author("u1"), "Food", "Ramen", intptr(5))
	reviewB := review(now.Add(-time.Minute), author("u2"), "food", "ramen", intptr(-1))
	orphan := post(now.Add(-2*time.Minute), nil)

	out, err := Build(context.Background(), staticSource{posts: []models.Post{reviewA, reviewB, orphan}})
	require.NoError(t, err)

	require.Len(t, out, 2)
	assert.Equal(t, reviewA.ID, out[0].ID)
	assert.Equal(t, reviewB.ID, out[1].ID)
	for _, p := range out {
		assert.Equal(t, 4, *p.TotalRating)
		assert.Equal(t, 2, *p.TotalRatingsCount)
	}
}

func TestAggregateDoesNotMutateInput(t *testing.T) {
	now := time.Now()
	posts := []models.Post{review(now, author("ada"), "Food", "Ramen", intptr(5))}

	Aggregate(posts)

	assert.Nil(t, posts[0].TotalRating)
	assert.Nil(t, posts[0].TotalRatingsCount)
}

// Package feed builds the home feed: it filters out posts and comments whose
// authors have since been deleted and annotates review posts with community
// rating rollups shared across reviews of the same category and title.
package feed

import (
	"context"
	"strings"

	"instrevi/models"
)

// Source supplies the full post collection, sorted by createdAt descending,
// with every post's User and every comment's User either resolved to a
// summary or nil for a dangling reference. The Mongo-backed source lives in
// the handlers package; tests inject in-memory fixtures.
type Source interface {
	Posts(ctx context.Context) ([]models.Post, error)
}

// Build loads posts from src and runs the aggregation pass over them.
func Build(ctx context.Context, src Source) ([]models.Post, error) {
	posts, err := src.Posts(ctx)
	if err != nil {
		return nil, err
	}
	return Aggregate(posts), nil
}

type rollup struct {
	total int
	count int
}

// reviewKey derives the grouping key for a review post. The key only exists
// when both category and title survive trim+lowercase; reviews group by exact
// normalized string match, so "Great Camera" and "Really Great Camera" are
// distinct groups.
func reviewKey(p *models.Post) (string, bool) {
	if p.PostType != models.PostTypeReview {
		return "", false
	}
	title := normalize(p.Title)
	category := normalize(p.Category)
	if title == "" || category == "" {
		return "", false
	}
	return category + "|" + title, true
}

func normalize(s *string) string {
	if s == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(*s))
}

// Aggregate is a pure transform over an already-sorted post list:
//
//  1. posts whose author no longer resolves are dropped, and surviving posts
//     have comments with unresolvable authors removed;
//  2. every surviving review with a rating and a derivable key contributes to
//     its group's running total, across the entire input set;
//  3. each review is annotated with its group totals, falling back to its own
//     rating (or zero) when no group exists for it.
//
// Non-review posts pass through untouched and input order is preserved.
func Aggregate(posts []models.Post) []models.Post {
	visible := make([]models.Post, 0, len(posts))
	for _, p := range posts {
		if p.User == nil {
			continue
		}
		kept := make([]models.Comment, 0, len(p.Comments))
		for _, c := range p.Comments {
			if c.User != nil {
				kept = append(kept, c)
			}
		}
		p.Comments = kept
		visible = append(visible, p)
	}

	totals := make(map[string]*rollup)
	for i := range visible {
		p := &visible[i]
		key, ok := reviewKey(p)
		if !ok || p.Rating == nil {
			continue
		}
		r := totals[key]
		if r == nil {
			r = &rollup{}
			totals[key] = r
		}
		r.total += *p.Rating
		r.count++
	}

	for i := range visible {
		p := &visible[i]
		if p.PostType != models.PostTypeReview {
			continue
		}
		var group *rollup
		if key, ok := reviewKey(p); ok {
			group = totals[key]
		}
		if group != nil {
			total, count := group.total, group.count
			p.TotalRating = &total
			p.TotalRatingsCount = &count
			continue
		}
		total, count := 0, 0
		if p.Rating != nil {
			total, count = *p.Rating, 1
		}
		p.TotalRating = &total
		p.TotalRatingsCount = &count
	}

	return visible
}

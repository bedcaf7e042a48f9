package db

import (
	"threadfeed/models"
	"threadfeed/query"

	"github.com/huandu/go-sqlbuilder"
	"github.com/samber/lo"
)

// anonymousListingVisibilities are the communities whose posts show up in
// listings for readers without an account. Unlisted communities are only
// reachable through their own feed or their authors' profiles.
var anonymousListingVisibilities = []models.CommunityVisibility{
	models.VisibilityPublic,
	models.VisibilityLocalOnlyPublic,
}

// anonymousProfileVisibilities are the communities whose posts show up on a
// person's profile for readers without an account
var anonymousProfileVisibilities = []models.CommunityVisibility{
	models.VisibilityPublic,
	models.VisibilityUnlisted,
	models.VisibilityLocalOnlyPublic,
}

// VisiblePostsFilter hides deleted and removed posts and communities
type VisiblePostsFilter struct{}

func (f *VisiblePostsFilter) ApplyFilter(sb *sqlbuilder.SelectBuilder) {
	sb.Where(
		sb.Equal("post.deleted", 0),
		sb.Equal("post.removed", 0),
		sb.Equal("community.deleted", 0),
		sb.Equal("community.removed", 0),
	)
}

// ListingFilter narrows posts to a listing scope
type ListingFilter struct {
	Listing  query.ListingType
	PersonId int64
}

func (f *ListingFilter) ApplyFilter(sb *sqlbuilder.SelectBuilder) {
	switch f.Listing {
	case query.ListingLocal:
		sb.Where(sb.Equal("community.local", 1))
	case query.ListingSubscribed:
		follows := sqlbuilder.NewSelectBuilder()
		follows.Select("community_id").From("community_follower").Where(follows.Equal("person_id", f.PersonId))
		sb.Where(sb.In("post.community_id", follows))
	}
}

// CommunityFilter restricts posts to one community
type CommunityFilter struct {
	CommunityId int64
}

func (f *CommunityFilter) ApplyFilter(sb *sqlbuilder.SelectBuilder) {
	if f.CommunityId != 0 {
		sb.Where(sb.Equal("post.community_id", f.CommunityId))
	}
}

// CommunityVisibilityFilter keeps posts of communities with one of the given
// visibilities
type CommunityVisibilityFilter struct {
	Visibilities []models.CommunityVisibility
}

func (f *CommunityVisibilityFilter) ApplyFilter(sb *sqlbuilder.SelectBuilder) {
	values := lo.Map(f.Visibilities, func(v models.CommunityVisibility, _ int) interface{} {
		return string(v)
	})
	sb.Where(sb.In("community.visibility", values...))
}

// NSFWFilter hides NSFW posts and communities unless the reader opted in
type NSFWFilter struct {
	Show bool
}

func (f *NSFWFilter) ApplyFilter(sb *sqlbuilder.SelectBuilder) {
	if !f.Show {
		sb.Where(sb.Equal("post.nsfw", 0), sb.Equal("community.nsfw", 0))
	}
}

// BotFilter hides content written by bot accounts unless the reader opted in
type BotFilter struct {
	Show   bool
	Column string
}

func (f *BotFilter) ApplyFilter(sb *sqlbuilder.SelectBuilder) {
	if !f.Show {
		sb.Where(sb.Equal(f.Column, 0))
	}
}

// postFilters returns the filters for a post listing
func postFilters(q query.PostQuery) []query.FilterStrategy {
	filters := []query.FilterStrategy{
		&VisiblePostsFilter{},
		&ListingFilter{Listing: q.Listing, PersonId: q.PersonId},
		&CommunityFilter{CommunityId: q.CommunityId},
		&NSFWFilter{Show: q.ShowNSFW},
	}

	if q.PersonId != 0 {
		filters = append(filters, &BotFilter{Show: q.ShowBotAccounts, Column: "creator.bot_account"})
	}
	// a single community was already checked for anonymous access by name
	if q.PersonId == 0 && q.CommunityId == 0 {
		filters = append(filters, &CommunityVisibilityFilter{Visibilities: anonymousListingVisibilities})
	}

	return filters
}

// profileFilters returns the filters for a person's content as seen by a
// reader without an account
func profileFilters() []query.FilterStrategy {
	return []query.FilterStrategy{
		&VisiblePostsFilter{},
		&NSFWFilter{},
		&CommunityVisibilityFilter{Visibilities: anonymousProfileVisibilities},
	}
}

var _ query.FilterStrategy = (*VisiblePostsFilter)(nil)
var _ query.FilterStrategy = (*ListingFilter)(nil)
var _ query.FilterStrategy = (*CommunityFilter)(nil)
var _ query.FilterStrategy = (*CommunityVisibilityFilter)(nil)
var _ query.FilterStrategy = (*NSFWFilter)(nil)
var _ query.FilterStrategy = (*BotFilter)(nil)

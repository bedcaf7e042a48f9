package query

import (
	"fmt"

	"github.com/huandu/go-sqlbuilder"
	"github.com/samber/lo"
)

// SortType is the ranking strategy for post listings
type SortType string

const (
	SortActive        SortType = "Active"
	SortHot           SortType = "Hot"
	SortNew           SortType = "New"
	SortOld           SortType = "Old"
	SortTop           SortType = "Top"
	SortMostComments  SortType = "MostComments"
	SortNewComments   SortType = "NewComments"
	SortControversial SortType = "Controversial"
	SortScaled        SortType = "Scaled"
)

// DefaultSort is used when a request does not name a sort
const DefaultSort = SortHot

// SortTypes lists every valid sort in declaration order
var SortTypes = []SortType{
	SortActive,
	SortHot,
	SortNew,
	SortOld,
	SortTop,
	SortMostComments,
	SortNewComments,
	SortControversial,
	SortScaled,
}

// ParseSortType parses the string form of a sort. Matching is case sensitive.
func ParseSortType(s string) (SortType, error) {
	if lo.Contains(SortTypes, SortType(s)) {
		return SortType(s), nil
	}
	return "", fmt.Errorf("unknown sort type %q", s)
}

func (s SortType) String() string {
	return string(s)
}

// ListingType is the breadth of content a post listing considers
type ListingType string

const (
	ListingAll        ListingType = "All"
	ListingLocal      ListingType = "Local"
	ListingSubscribed ListingType = "Subscribed"
)

func (l ListingType) String() string {
	return string(l)
}

// PostQuery selects a bounded page of posts
type PostQuery struct {
	Listing     ListingType
	Sort        SortType
	CommunityId int64
	// PersonId is the viewing person, zero for anonymous readers
	PersonId        int64
	ShowNSFW        bool
	ShowBotAccounts bool
	Limit           int
}

// PersonContentType narrows the combined person content listing
type PersonContentType string

const (
	PersonContentAll      PersonContentType = "All"
	PersonContentPosts    PersonContentType = "Posts"
	PersonContentComments PersonContentType = "Comments"
)

// PersonContentQuery lists what a person has written, newest first
type PersonContentQuery struct {
	CreatorId int64
	Type      PersonContentType
	Limit     int
}

// InboxQuery lists notifications addressed to a person, newest first.
// A zero Limit means the store default.
type InboxQuery struct {
	RecipientId     int64
	ShowBotAccounts bool
	Limit           int
}

// FilterStrategy adds WHERE conditions to the query
type FilterStrategy interface {
	// ApplyFilter adds filter conditions to the query builder
	ApplyFilter(sb *sqlbuilder.SelectBuilder)
}

// SortStrategy orders a post listing
type SortStrategy interface {
	// GetSort returns the ORDER BY terms
	GetSort() []string
}

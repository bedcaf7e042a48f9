package db

import (
	"threadfeed/query"
)

// RankSort orders by a precomputed rank column, newest first on ties
type RankSort struct {
	Column string
}

func (s *RankSort) GetSort() []string {
	return []string{s.Column + " DESC", "post.published DESC", "post.id DESC"}
}

// PublishedSort orders by publish time
type PublishedSort struct {
	Ascending bool
}

func (s *PublishedSort) GetSort() []string {
	if s.Ascending {
		return []string{"post.published ASC", "post.id ASC"}
	}
	return []string{"post.published DESC", "post.id DESC"}
}

// sortStrategy maps a sort type to its ORDER BY terms. Unknown sorts fall back
// to Hot.
func sortStrategy(sort query.SortType) query.SortStrategy {
	switch sort {
	case query.SortActive:
		return &RankSort{Column: "post.hot_rank_active"}
	case query.SortNew:
		return &PublishedSort{}
	case query.SortOld:
		return &PublishedSort{Ascending: true}
	case query.SortTop:
		return &RankSort{Column: "post.score"}
	case query.SortMostComments:
		return &RankSort{Column: "post.comments"}
	case query.SortNewComments:
		return &RankSort{Column: "post.newest_comment_time"}
	case query.SortControversial:
		return &RankSort{Column: "post.controversy_rank"}
	case query.SortScaled:
		return &RankSort{Column: "post.scaled_rank"}
	default:
		return &RankSort{Column: "post.hot_rank"}
	}
}

var _ query.SortStrategy = (*RankSort)(nil)
var _ query.SortStrategy = (*PublishedSort)(nil)

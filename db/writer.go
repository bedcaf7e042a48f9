package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"threadfeed/models"

	sqlbuilder "github.com/huandu/go-sqlbuilder"
	log "github.com/sirupsen/logrus"
)

// Writer owns the single read-write connection
type Writer struct {
	db *sql.DB
}

func NewWriter(database string) (*Writer, error) {
	db, err := connection(database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &Writer{db: db}, nil
}

func (writer *Writer) Close() error {
	return writer.db.Close()
}

func (writer *Writer) CreateLoginToken(ctx context.Context, token models.LoginToken) error {
	ib := sqlbuilder.NewInsertBuilder()
	ib.InsertInto("login_token").Cols("id", "local_user_id", "published", "expires").
		Values(token.Id, token.LocalUserId, token.Published.Unix(), token.Expires.Unix())

	sql, args := build(ib)
	if _, err := writer.db.ExecContext(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert error: %w", err)
	}
	return nil
}

// RevokeLoginTokens deletes every login token of a local user
func (writer *Writer) RevokeLoginTokens(ctx context.Context, localUserId int64) (int64, error) {
	del := sqlbuilder.NewDeleteBuilder()
	del.DeleteFrom("login_token").Where(del.Equal("local_user_id", localUserId))

	sql, args := build(del)
	res, err := writer.db.ExecContext(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("delete error: %w", err)
	}
	return res.RowsAffected()
}

func (writer *Writer) SetPassword(ctx context.Context, localUserId int64, hash string) error {
	ub := sqlbuilder.NewUpdateBuilder()
	ub.Update("local_user").Set(ub.Assign("password_encrypted", hash)).Where(ub.Equal("id", localUserId))

	sql, args := build(ub)
	res, err := writer.db.ExecContext(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("local user %d: %w", localUserId, models.ErrNotFound)
	}
	return nil
}

// ExecScript runs a multi statement SQL script in one transaction
func (writer *Writer) ExecScript(ctx context.Context, script string) error {
	tx, err := writer.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, script); err != nil {
		return fmt.Errorf("script error: %w", err)
	}
	return tx.Commit()
}

type rankRow struct {
	id                int64
	score             int64
	upvotes           int64
	downvotes         int64
	published         int64
	newestCommentTime int64
	usersActiveMonth  int64
}

// RefreshRanks recomputes the rank columns of posts inside the rank window.
// Posts past the window are zeroed in one statement, the rest are updated row
// by row. Returns the number of recomputed posts.
func (writer *Writer) RefreshRanks(ctx context.Context, now time.Time) (int64, error) {
	start := time.Now()
	cutoff := now.Add(-rankWindow).Unix()

	tx, err := writer.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	ub := sqlbuilder.NewUpdateBuilder()
	ub.Update("post").Set(
		ub.Assign("hot_rank", 0),
		ub.Assign("hot_rank_active", 0),
		ub.Assign("scaled_rank", 0),
	).Where(ub.LessThan("published", cutoff), ub.LessThan("newest_comment_time", cutoff))
	sql, args := build(ub)
	if _, err := tx.ExecContext(ctx, sql, args...); err != nil {
		return 0, fmt.Errorf("update error: %w", err)
	}

	sb := sqlbuilder.NewSelectBuilder()
	sb.Select(
		"post.id", "post.score", "post.upvotes", "post.downvotes", "post.published",
		"post.newest_comment_time", "community.users_active_month",
	).From("post")
	sb.Join("community", "community.id = post.community_id")
	sb.Where(sb.Or(
		sb.GreaterEqualThan("post.published", cutoff),
		sb.GreaterEqualThan("post.newest_comment_time", cutoff),
	))
	sql, args = build(sb)

	rows, err := tx.QueryContext(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("query error: %w", err)
	}
	var posts []rankRow
	for rows.Next() {
		var r rankRow
		if err := rows.Scan(&r.id, &r.score, &r.upvotes, &r.downvotes, &r.published, &r.newestCommentTime, &r.usersActiveMonth); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan error: %w", err)
		}
		posts = append(posts, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx, `UPDATE post SET hot_rank = ?, hot_rank_active = ?, controversy_rank = ?, scaled_rank = ? WHERE id = ?`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, r := range posts {
		hot := HotRank(r.score, unix(r.published), now)
		active := HotRank(r.score, unix(max(r.published, r.newestCommentTime)), now)
		controversy := ControversyRank(r.upvotes, r.downvotes)
		scaled := ScaledRank(hot, r.usersActiveMonth)
		if _, err := stmt.ExecContext(ctx, hot, active, controversy, scaled, r.id); err != nil {
			return 0, fmt.Errorf("update error: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	log.WithFields(log.Fields{
		"posts":    len(posts),
		"duration": time.Since(start),
	}).Info("Refreshed post ranks")

	return int64(len(posts)), nil
}

// RunRanker refreshes ranks on every tick until ctx is done
func (writer *Writer) RunRanker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if _, err := writer.RefreshRanks(ctx, now); err != nil {
				log.WithError(err).Error("Error refreshing ranks")
			}
		}
	}
}

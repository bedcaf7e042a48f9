package db

import (
	"context"
	"time"

	sb "github.com/huandu/go-sqlbuilder"
	log "github.com/sirupsen/logrus"
)

// Tidy removes expired login tokens from the database
func Tidy(ctx context.Context, database string) (int64, error) {
	writer, err := NewWriter(database)
	if err != nil {
		return 0, err
	}
	defer writer.Close()

	return writer.DeleteExpiredTokens(ctx, time.Now())
}

func (writer *Writer) DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	deleteTokens := sb.NewDeleteBuilder()
	deleteTokens.DeleteFrom("login_token").Where(deleteTokens.LessEqualThan("expires", now.Unix()))
	sql, args := build(deleteTokens)

	res, err := writer.db.ExecContext(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	log.WithFields(log.Fields{
		"deleted": deleted,
	}).Info("Tidied expired login tokens")

	return deleted, nil
}

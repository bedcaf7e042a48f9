package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// connection opens the single writer connection. Pragmas are set through the
// DSN so every pooled connection gets them.
func connection(database string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"+
		"&_pragma=synchronous(NORMAL)&_pragma=cache_size(-32000)&_pragma=temp_store(MEMORY)", database)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer at a time
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(time.Hour)

	return db, nil
}

// readConnection opens a read only pool for serving feeds
func readConnection(database string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(5000)&_pragma=cache_size(-32000)"+
		"&_pragma=temp_store(MEMORY)&_pragma=mmap_size(268435456)", database)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(4) // Allow multiple concurrent readers
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(time.Hour)

	return db, nil
}

// WaitForDatabase pings the database until it answers or maxWait passes.
// Serving starts before a freshly provisioned volume may be mounted.
func WaitForDatabase(ctx context.Context, database string, maxWait time.Duration) error {
	db, err := readConnection(database)
	if err != nil {
		return err
	}
	defer db.Close()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = maxWait

	attempt := 0
	return backoff.RetryNotify(func() error {
		attempt++
		var version int
		return db.QueryRowContext(ctx, "SELECT version FROM schema_migrations LIMIT 1").Scan(&version)
	}, backoff.WithContext(b, ctx), func(err error, next time.Duration) {
		log.WithFields(log.Fields{
			"database": database,
			"attempt":  attempt,
			"retryIn":  next,
			"error":    err,
		}).Warn("Database not ready")
	})
}

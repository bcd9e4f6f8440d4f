package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Open connects to MySQL and verifies the connection.
func Open(user, pass, host, port, name string) (*sql.DB, error) {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, host, port, name)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

// EnsureSchema creates the users and tickets tables when they do not
// exist yet. The unique key on tickets.tid is load-bearing: it is the
// backstop that turns an ID-generator collision into a loud insert
// failure instead of a silent overwrite.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	const users = `CREATE TABLE IF NOT EXISTS users (
		uid        VARCHAR(64)  NOT NULL,
		name       VARCHAR(255) NOT NULL DEFAULT 'Commuter',
		wallet     BIGINT       NOT NULL DEFAULT 0,
		created_at DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (uid)
	)`
	const tickets = `CREATE TABLE IF NOT EXISTS tickets (
		tid            VARCHAR(64)  NOT NULL,
		uid            VARCHAR(64)  NOT NULL,
		source         VARCHAR(255) NOT NULL,
		destination    VARCHAR(255) NOT NULL,
		class_type     VARCHAR(32)  NOT NULL,
		count          INT          NOT NULL DEFAULT 1,
		amount         BIGINT       NOT NULL,
		booking_method VARCHAR(32)  NOT NULL,
		token_payload  TEXT         NOT NULL,
		created_at     DATETIME     NOT NULL,
		expires_at     DATETIME     NOT NULL,
		used           TINYINT(1)   NOT NULL DEFAULT 0,
		used_at        DATETIME     NULL,
		gate_id        VARCHAR(64)  NULL,
		PRIMARY KEY (tid),
		KEY idx_tickets_uid_created (uid, created_at)
	)`
	if _, err := db.ExecContext(ctx, users); err != nil {
		return err
	}
	_, err := db.ExecContext(ctx, tickets)
	return err
}

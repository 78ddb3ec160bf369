//go:build integration_pg
// +build integration_pg

package pg

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startPostgres(t *testing.T) (dsn string, stop func()) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)

	req := tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "postgres",
			"POSTGRES_PASSWORD": "postgres",
			"POSTGRES_DB":       "postgres",
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("5432/tcp"),
			wait.ForLog("database system is ready to accept connections"),
		).WithDeadline(2 * time.Minute),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		cancel()
		t.Fatalf("failed to start postgres container: %v", err)
	}

	host, err := c.Host(ctx)
	if err != nil {
		_ = c.Terminate(context.Background())
		cancel()
		t.Fatalf("failed to get container host: %v", err)
	}
	mapped, err := c.MappedPort(ctx, "5432/tcp")
	if err != nil {
		_ = c.Terminate(context.Background())
		cancel()
		t.Fatalf("failed to get mapped port: %v", err)
	}

	dsn = fmt.Sprintf("postgres://postgres:postgres@%s:%s/postgres?sslmode=disable", host, mapped.Port())
	stop = func() {
		_ = c.Terminate(context.Background())
		cancel()
	}
	return dsn, stop
}

const testSchema = `
CREATE TABLE users (
    id          BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    telegram_id BIGINT NOT NULL UNIQUE
);
CREATE TABLE habits (
    id      BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    user_id BIGINT NOT NULL REFERENCES users (id),
    name    TEXT   NOT NULL,
    CONSTRAINT habits_user_name_unique UNIQUE (user_id, name)
);
CREATE TABLE habit_logs (
    id                  BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    user_id             BIGINT NOT NULL REFERENCES users (id),
    habit_id            BIGINT NOT NULL REFERENCES habits (id),
    last_completed_date DATE   NOT NULL,
    CONSTRAINT habit_logs_user_habit_date_unique UNIQUE (user_id, habit_id, last_completed_date)
);`

// TestCompletionUniqueness_Integration verifies the behavior the completion
// engine leans on: a second insert for the same (user, habit, date) fails
// with a unique violation instead of silently duplicating
func TestCompletionUniqueness_Integration(t *testing.T) {
	dsn, stop := startPostgres(t)
	defer stop()

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	p, err := Open(ctx, Config{URL: dsn, MaxConns: 2}, nil, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer p.Close()

	if _, err := p.Pool.Exec(ctx, testSchema); err != nil {
		t.Fatalf("apply schema: %v", err)
	}

	var userID, habitID int64
	if err := p.Pool.QueryRow(ctx,
		`INSERT INTO users (telegram_id) VALUES (100) RETURNING id`).Scan(&userID); err != nil {
		t.Fatalf("insert user: %v", err)
	}
	if err := p.Pool.QueryRow(ctx,
		`INSERT INTO habits (user_id, name) VALUES ($1, 'run') RETURNING id`, userID).Scan(&habitID); err != nil {
		t.Fatalf("insert habit: %v", err)
	}

	insert := func() error {
		_, err := p.Pool.Exec(ctx,
			`INSERT INTO habit_logs (user_id, habit_id, last_completed_date) VALUES ($1, $2, '2024-03-01')`,
			userID, habitID)
		return err
	}

	if err := insert(); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	err = insert()
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		t.Fatalf("second insert: got %v, want unique violation 23505", err)
	}

	// a different day for the same habit still goes through
	if _, err := p.Pool.Exec(ctx,
		`INSERT INTO habit_logs (user_id, habit_id, last_completed_date) VALUES ($1, $2, '2024-03-02')`,
		userID, habitID); err != nil {
		t.Fatalf("next-day insert: %v", err)
	}
}

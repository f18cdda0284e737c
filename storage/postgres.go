package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/AbhayTopno/PopQuiz/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepo serves users and quiz content.
type PostgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresRepo(ctx context.Context, connString string) (*PostgresRepo, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
	}
	return &PostgresRepo{pool: pool}, nil
}

func (pgr *PostgresRepo) Close() {
	pgr.pool.Close()
}

func (pgr *PostgresRepo) GetUserById(ctx context.Context, id string) (domain.User, error) {
	user := domain.User{Id: id}

	row := pgr.pool.QueryRow(ctx, "SELECT username, avatar, is_admin FROM users WHERE id = $1", id)
	err := row.Scan(&user.Username, &user.Avatar, &user.IsAdmin)
	if err != nil {
		return domain.User{}, classify(err, domain.ErrUserNotFound)
	}
	return user, nil
}

func (pgr *PostgresRepo) GetQuizById(ctx context.Context, id string) (domain.Quiz, error) {
	quiz := domain.Quiz{Id: id}
	var (
		difficulty string
		questions  []byte
	)

	row := pgr.pool.QueryRow(ctx, "SELECT topic, difficulty, questions FROM quizzes WHERE id = $1", id)
	err := row.Scan(&quiz.Topic, &difficulty, &questions)
	if err != nil {
		return domain.Quiz{}, classify(err, domain.ErrQuizNotFound)
	}

	quiz.Difficulty = domain.Difficulty(difficulty)
	if err := json.Unmarshal(questions, &quiz.Questions); err != nil {
		return domain.Quiz{}, fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
	}
	return quiz, nil
}

func classify(err error, notFound error) error {
	var pgErr *pgconn.PgError
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return notFound
	case errors.As(err, &pgErr) && pgErr.Code == "22P02":
		// invalid_text_representation: the id is not a uuid
		return notFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
	}
}

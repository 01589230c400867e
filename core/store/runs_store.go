package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// RunsStore is the write path for incident runs and their chat artifacts.
// Each insert is a single unconditioned statement; errors come back from the
// store verbatim with no retry or idempotency handling.
type RunsStore interface {
	// InsertRun inserts an arbitrary attribute map as one incident row.
	// Required fields are the caller's responsibility; only the table
	// constraints validate them.
	InsertRun(ctx context.Context, attrs map[string]any) error
	// InsertPost records that a chat artifact exists at a creation time.
	InsertPost(ctx context.Context, id string, createAt int64) error
	// InsertStatusPost links a post to its incident. No existence check is
	// performed here; the foreign keys reject a premature link.
	InsertStatusPost(ctx context.Context, incidentID, postID string) error
	// CreateStatusUpdate inserts the post row and its link row in one
	// transaction, so a status update lands fully or not at all.
	CreateStatusUpdate(ctx context.Context, incidentID, postID string, createAt int64) error
	// PruneOrphanPosts deletes posts older than the cutoff that never got a
	// status-post link, cleaning up after failed non-transactional writes.
	PruneOrphanPosts(ctx context.Context, olderThan time.Time) (int64, error)
}

type runsStore struct {
	db *DB
}

func NewRunsStore(db *DB) RunsStore {
	return &runsStore{db: db}
}

func (s *runsStore) InsertRun(ctx context.Context, attrs map[string]any) error {
	if len(attrs) == 0 {
		return errors.New("empty run attributes")
	}
	_, err := s.db.execBuilder(ctx, s.db.Builder().
		Insert("incidents").
		SetMap(attrs))
	return err
}

func (s *runsStore) InsertPost(ctx context.Context, id string, createAt int64) error {
	_, err := s.db.execBuilder(ctx, s.db.Builder().
		Insert("posts").
		SetMap(map[string]any{
			"id":        id,
			"create_at": createAt,
		}))
	return err
}

func (s *runsStore) InsertStatusPost(ctx context.Context, incidentID, postID string) error {
	_, err := s.db.execBuilder(ctx, s.db.Builder().
		Insert("status_posts").
		SetMap(map[string]any{
			"incident_id": incidentID,
			"post_id":     postID,
		}))
	return err
}

func (s *runsStore) CreateStatusUpdate(ctx context.Context, incidentID, postID string, createAt int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	postQuery, postArgs, err := s.db.Builder().
		Insert("posts").
		SetMap(map[string]any{
			"id":        postID,
			"create_at": createAt,
		}).ToSql()
	if err != nil {
		tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, postQuery, postArgs...); err != nil {
		tx.Rollback()
		return fmt.Errorf("insert post: %w", err)
	}
	linkQuery, linkArgs, err := s.db.Builder().
		Insert("status_posts").
		SetMap(map[string]any{
			"incident_id": incidentID,
			"post_id":     postID,
		}).ToSql()
	if err != nil {
		tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, linkQuery, linkArgs...); err != nil {
		tx.Rollback()
		return fmt.Errorf("insert status post: %w", err)
	}
	return tx.Commit()
}

func (s *runsStore) PruneOrphanPosts(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.execBuilder(ctx, s.db.Builder().
		Delete("posts").
		Where(sq.Lt{"create_at": olderThan.UnixMilli()}).
		Where(sq.Expr("id NOT IN (SELECT post_id FROM status_posts)")))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

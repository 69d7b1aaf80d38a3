package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"mdtree/internal/markup"
)

var ErrNotFound = errors.New("document not found")

// Store caches assembled trees in sqlite, keyed by post slug.
type Store struct {
	db          *sql.DB
	lockTimeout time.Duration
}

type Entry struct {
	Slug      string
	PostID    string
	Title     string
	Hash      string
	Tree      markup.Document
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Summary struct {
	Slug      string
	PostID    string
	Title     string
	UpdatedAt time.Time
}

func Open(path string, busyTimeout time.Duration) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)", path, busyTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	db.SetMaxOpenConns(1)
	return &Store{db: db, lockTimeout: busyTimeout}, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Init creates the schema. A schema version change drops every cached tree.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	version, err := s.schemaVersion(ctx)
	if err != nil {
		return err
	}
	if version == schemaVersion {
		return nil
	}
	slog.Info("store schema changed, clearing cache", "from", version, "to", schemaVersion)
	tx, start, err := s.beginTx(ctx, "init")
	if err != nil {
		return err
	}
	defer s.rollbackTx(tx, "init", start)
	for _, stmt := range []string{"DELETE FROM documents", "DELETE FROM schema_version"} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version(version) VALUES(?)", schemaVersion); err != nil {
		return err
	}
	return s.commitTx(tx, "init", start)
}

func (s *Store) schemaVersion(ctx context.Context) (int, error) {
	var v int
	err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return v, nil
}

func (s *Store) Get(ctx context.Context, slug string) (*Entry, error) {
	var (
		e                Entry
		tree             string
		created, updated int64
	)
	err := s.retry(ctx, "get", func() error {
		return s.db.QueryRowContext(ctx,
			"SELECT slug, post_id, title, hash, tree, created_at, updated_at FROM documents WHERE slug=?", slug,
		).Scan(&e.Slug, &e.PostID, &e.Title, &e.Hash, &tree, &created, &updated)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, slug)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", slug, err)
	}
	doc, err := markup.DecodeDocument([]byte(tree))
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", slug, err)
	}
	e.Tree = doc
	e.CreatedAt = time.Unix(created, 0).UTC()
	e.UpdatedAt = time.Unix(updated, 0).UTC()
	return &e, nil
}

// Lookup returns the cached entry for slug when it was assembled from
// content with the given hash by the current build.
func (s *Store) Lookup(ctx context.Context, slug, hash string) (*Entry, bool, error) {
	e, err := s.Get(ctx, slug)
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if e.Hash != hash || !hashMatchesBuildVersion(e.Hash) {
		return e, false, nil
	}
	return e, true, nil
}

// Put inserts or replaces the entry for e.Slug. An empty PostID keeps the
// id already stored for the slug, or gets a fresh uuid.
func (s *Store) Put(ctx context.Context, e Entry) (*Entry, error) {
	if e.Slug == "" {
		return nil, errors.New("put: empty slug")
	}
	tree, err := e.Tree.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("put %s: %w", e.Slug, err)
	}
	now := time.Now().UTC().Truncate(time.Second)
	err = s.retry(ctx, "put", func() error {
		tx, start, err := s.beginTx(ctx, "put")
		if err != nil {
			return err
		}
		defer s.rollbackTx(tx, "put", start)

		var existingID string
		var created int64
		err = tx.QueryRowContext(ctx, "SELECT post_id, created_at FROM documents WHERE slug=?", e.Slug).Scan(&existingID, &created)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			created = now.Unix()
		case err != nil:
			return err
		}
		if e.PostID == "" {
			e.PostID = existingID
		}
		if e.PostID == "" {
			e.PostID = uuid.NewString()
		}
		_, err = tx.ExecContext(ctx, `
INSERT INTO documents(slug, post_id, title, hash, tree, created_at, updated_at)
VALUES(?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(slug) DO UPDATE SET
	post_id=excluded.post_id,
	title=excluded.title,
	hash=excluded.hash,
	tree=excluded.tree,
	updated_at=excluded.updated_at`,
			e.Slug, e.PostID, e.Title, e.Hash, string(tree), created, now.Unix())
		if err != nil {
			return err
		}
		e.CreatedAt = time.Unix(created, 0).UTC()
		e.UpdatedAt = now
		return s.commitTx(tx, "put", start)
	})
	if err != nil {
		return nil, fmt.Errorf("put %s: %w", e.Slug, err)
	}
	return &e, nil
}

func (s *Store) Delete(ctx context.Context, slug string) error {
	var affected int64
	err := s.retry(ctx, "delete", func() error {
		res, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE slug=?", slug)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", slug, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, slug)
	}
	return nil
}

// List returns cached documents ordered by slug.
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	var out []Summary
	err := s.retry(ctx, "list", func() error {
		out = out[:0]
		rows, err := s.db.QueryContext(ctx, "SELECT slug, post_id, title, updated_at FROM documents ORDER BY slug")
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var sum Summary
			var updated int64
			if err := rows.Scan(&sum.Slug, &sum.PostID, &sum.Title, &updated); err != nil {
				return err
			}
			sum.UpdatedAt = time.Unix(updated, 0).UTC()
			out = append(out, sum)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	return out, nil
}

package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/alucardeht/morse-mcp/internal/logger"
)

var log = logger.ForComponent("history")

type Store struct {
	db  *sql.DB
	mu  sync.RWMutex
	now func() time.Time
}

func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	store := &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS translations (
		id TEXT PRIMARY KEY,
		direction TEXT NOT NULL,
		input TEXT NOT NULL,
		output TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_translations_created ON translations(created_at);
	CREATE INDEX IF NOT EXISTS idx_translations_direction ON translations(direction)
	`

	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}

func (s *Store) Record(ctx context.Context, direction Direction, input, output string) (*Entry, error) {
	if !direction.Valid() {
		return nil, fmt.Errorf("invalid direction %q", direction)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry := &Entry{
		ID:        uuid.NewString(),
		Direction: direction,
		Input:     input,
		Output:    output,
		CreatedAt: s.now(),
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO translations (id, direction, input, output, created_at) VALUES (?, ?, ?, ?, ?)",
		entry.ID, string(entry.Direction), entry.Input, entry.Output, entry.CreatedAt.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record translation: %w", err)
	}

	return entry, nil
}

// List returns matching entries, newest first.
func (s *Store) List(ctx context.Context, filter Filter) ([]*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT id, direction, input, output, created_at FROM translations WHERE 1=1"
	var args []interface{}

	if filter.Direction != "" {
		query += " AND direction = ?"
		args = append(args, string(filter.Direction))
	}

	if filter.Query != "" {
		query += " AND (instr(input, ?) > 0 OR instr(output, ?) > 0)"
		args = append(args, filter.Query, filter.Query)
	}

	query += " ORDER BY created_at DESC, rowid DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		entry := &Entry{}
		var direction string
		var createdAt int64

		if err := rows.Scan(&entry.ID, &direction, &entry.Input, &entry.Output, &createdAt); err != nil {
			return nil, err
		}

		entry.Direction = Direction(direction)
		entry.CreatedAt = time.Unix(0, createdAt).UTC()
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// Clear deletes every entry, or only those with the given direction.
func (s *Store) Clear(ctx context.Context, direction Direction) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result sql.Result
	var err error
	if direction == "" {
		result, err = s.db.ExecContext(ctx, "DELETE FROM translations")
	} else {
		result, err = s.db.ExecContext(ctx, "DELETE FROM translations WHERE direction = ?", string(direction))
	}
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// Purge removes entries older than maxAge.
func (s *Store) Purge(ctx context.Context, maxAge time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-maxAge).UnixNano()
	result, err := s.db.ExecContext(ctx, "DELETE FROM translations WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, err
	}

	rows, _ := result.RowsAffected()
	if rows > 0 {
		log.Info("purged old translations", "count", rows, "max_age", maxAge)
	}
	return rows, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM translations").Scan(&n)
	return n, err
}

func (s *Store) Close() error {
	return s.db.Close()
}

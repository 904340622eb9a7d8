package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database with methods for memories and events.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending migrations.
// Pass ":memory:" as dataDir for an in-memory database (used by tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "scribe.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Set busy timeout so concurrent access waits briefly instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	// Ensure schema_version table exists (bootstrap).
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort by filename to guarantee ascending order.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		// Check if already applied.
		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the list of applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// --- Memories ---

// SaveMemory inserts a new memory record.
func (s *Store) SaveMemory(m Memory) error {
	now := time.Now().UTC()
	created := m.CreatedAt
	if created.IsZero() {
		created = now
	}
	updated := m.UpdatedAt
	if updated.IsZero() {
		updated = created
	}
	_, err := s.db.Exec(`
		INSERT INTO memories (id, category, content, normalized, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, 1, ?, ?)`,
		m.ID, m.Category, m.Content, m.Normalized,
		created.Format(time.RFC3339), updated.Format(time.RFC3339),
	)
	return err
}

// TouchMemory refreshes updated_at on an existing record. Saving a
// duplicate fact touches the original instead of inserting.
func (s *Store) TouchMemory(id string) error {
	res, err := s.db.Exec(`UPDATE memories SET updated_at = ? WHERE id = ? AND active = 1`,
		time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetMemory returns a single memory by id, active or not.
func (s *Store) GetMemory(id string) (Memory, error) {
	var m Memory
	var active int
	var createdAt, updatedAt string
	err := s.db.QueryRow(`
		SELECT id, category, content, normalized, active, created_at, updated_at
		FROM memories WHERE id = ?`, id,
	).Scan(&m.ID, &m.Category, &m.Content, &m.Normalized, &active, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return Memory{}, ErrNotFound
	}
	if err != nil {
		return Memory{}, err
	}
	m.Active = active == 1
	if m.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return Memory{}, fmt.Errorf("parsing created_at: %w", err)
	}
	if m.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return Memory{}, fmt.Errorf("parsing updated_at: %w", err)
	}
	return m, nil
}

// ListMemories returns active memories, newest first. An empty
// category returns all categories.
func (s *Store) ListMemories(category string, limit int) ([]Memory, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, category, content, normalized, active, created_at, updated_at
		FROM memories WHERE active = 1`
	args := []any{}
	if category != "" {
		query += ` AND category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY updated_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Memory
	for rows.Next() {
		var m Memory
		var active int
		var createdAt, updatedAt string
		if err := rows.Scan(&m.ID, &m.Category, &m.Content, &m.Normalized, &active, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		m.Active = active == 1
		if m.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		if m.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
			return nil, fmt.Errorf("parsing updated_at: %w", err)
		}
		results = append(results, m)
	}
	return results, rows.Err()
}

// Categories returns every category holding active memories, with
// counts, most populated first.
func (s *Store) Categories() ([]CategoryCount, error) {
	rows, err := s.db.Query(`
		SELECT category, COUNT(*) FROM memories
		WHERE active = 1 GROUP BY category ORDER BY COUNT(*) DESC, category ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []CategoryCount
	for rows.Next() {
		var c CategoryCount
		if err := rows.Scan(&c.Category, &c.Count); err != nil {
			return nil, err
		}
		results = append(results, c)
	}
	return results, rows.Err()
}

// DeleteMemory deactivates a memory. The row stays for audit.
func (s *Store) DeleteMemory(id string) error {
	res, err := s.db.Exec(`UPDATE memories SET active = 0, updated_at = ? WHERE id = ? AND active = 1`,
		time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Events ---

// SaveEvent inserts a new calendar event.
func (s *Store) SaveEvent(e Event) error {
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := s.db.Exec(`
		INSERT INTO events (id, title, start_date, color, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.Title, e.StartDate.UTC().Format(time.DateOnly), e.Color, e.Description,
		created.Format(time.RFC3339),
	)
	return err
}

// ListUpcomingEvents returns events starting on or after the given
// day, soonest first.
func (s *Store) ListUpcomingEvents(from time.Time, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(`
		SELECT id, title, start_date, color, description, created_at
		FROM events WHERE start_date >= ?
		ORDER BY start_date ASC, created_at ASC LIMIT ?`,
		from.UTC().Format(time.DateOnly), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Event
	for rows.Next() {
		var e Event
		var startDate, createdAt string
		if err := rows.Scan(&e.ID, &e.Title, &startDate, &e.Color, &e.Description, &createdAt); err != nil {
			return nil, err
		}
		if e.StartDate, err = time.Parse(time.DateOnly, startDate); err != nil {
			return nil, fmt.Errorf("parsing start_date: %w", err)
		}
		if e.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		results = append(results, e)
	}
	return results, rows.Err()
}

// FindEvent returns the id of an event with the same title (case
// insensitive) on the same day, or ErrNotFound.
func (s *Store) FindEvent(title string, startDate time.Time) (string, error) {
	var id string
	err := s.db.QueryRow(`
		SELECT id FROM events WHERE lower(title) = lower(?) AND start_date = ?`,
		title, startDate.UTC().Format(time.DateOnly),
	).Scan(&id)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	return id, err
}

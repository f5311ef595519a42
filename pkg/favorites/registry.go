package favorites

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Registry persists favorites in a sqlite database under a data directory.
type Registry struct {
	db      *sql.DB
	dataDir string
}

var _ Store = (*Registry)(nil)

// NewRegistry opens, or creates, the favorites database in dataDir.
func NewRegistry(dataDir string) (*Registry, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, "favorites.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	r := &Registry{
		db:      db,
		dataDir: dataDir,
	}

	if err := r.init(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize registry: %w", err)
	}

	return r, nil
}

func (r *Registry) init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS favorites (
		kind TEXT NOT NULL,
		id TEXT NOT NULL,
		name TEXT NOT NULL,
		group_id TEXT,
		drive_id TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		last_used TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (kind, id)
	);

	CREATE INDEX IF NOT EXISTS idx_favorites_id ON favorites(id);
	`

	_, err := r.db.Exec(schema)
	return err
}

// Put inserts or replaces a favorite, keeping its creation time.
func (r *Registry) Put(f Favorite) error {
	if err := f.Validate(); err != nil {
		return fmt.Errorf("validate favorite: %w", err)
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now()
	}
	if f.LastUsed.IsZero() {
		f.LastUsed = f.CreatedAt
	}

	query := `
	INSERT INTO favorites (kind, id, name, group_id, drive_id, created_at, last_used)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(kind, id) DO UPDATE SET
		name = excluded.name,
		group_id = excluded.group_id,
		drive_id = excluded.drive_id,
		last_used = excluded.last_used
	`

	_, err := r.db.Exec(query, string(f.Kind), f.ID, f.Name, f.GroupID, f.DriveID, f.CreatedAt, f.LastUsed)
	return err
}

// List returns every favorite, oldest first.
func (r *Registry) List() ([]Favorite, error) {
	query := `
	SELECT kind, id, name, group_id, drive_id, created_at, last_used
	FROM favorites ORDER BY created_at ASC, rowid ASC
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var favorites []Favorite
	for rows.Next() {
		var (
			f                Favorite
			kind             string
			groupID, driveID sql.NullString
		)
		if err := rows.Scan(&kind, &f.ID, &f.Name, &groupID, &driveID, &f.CreatedAt, &f.LastUsed); err != nil {
			return nil, err
		}
		f.Kind = Kind(kind)
		f.GroupID = groupID.String
		f.DriveID = driveID.String
		favorites = append(favorites, f)
	}

	return favorites, rows.Err()
}

// Delete removes one favorite.
func (r *Registry) Delete(kind Kind, id string) error {
	_, err := r.db.Exec("DELETE FROM favorites WHERE kind = ? AND id = ?", string(kind), id)
	return err
}

// DeleteID removes every favorite referring to id, whatever its kind.
func (r *Registry) DeleteID(id string) error {
	_, err := r.db.Exec("DELETE FROM favorites WHERE id = ?", id)
	return err
}

// Close closes the registry database
func (r *Registry) Close() error {
	return r.db.Close()
}

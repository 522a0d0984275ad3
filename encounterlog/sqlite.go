package encounterlog

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pkmn-tools/shinyhunt-go/gamestate"
	"github.com/pkmn-tools/shinyhunt-go/logger"
)

// Record is one persisted encounter row.
type Record struct {
	Ordinal     int       `json:"ordinal"`
	Species     int       `json:"species"`
	Shiny       bool      `json:"shiny"`
	TrainerID   int       `json:"trainer_id"`
	SecretID    int       `json:"secret_id"`
	Personality int       `json:"personality"`
	SeenAt      time.Time `json:"seen_at"`
}

// Store keeps the encounter history in SQLite so long hunts survive
// restarts and the status API can page through past encounters.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create encounter db directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS encounters (
		ordinal INTEGER NOT NULL,
		species INTEGER NOT NULL,
		shiny INTEGER NOT NULL DEFAULT 0,
		trainer_id INTEGER NOT NULL,
		secret_id INTEGER NOT NULL,
		personality INTEGER NOT NULL,
		seen_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_encounters_seen_at ON encounters(seen_at);
	CREATE INDEX IF NOT EXISTS idx_encounters_shiny ON encounters(shiny);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to init encounter schema: %w", err)
	}
	return nil
}

// Log inserts one encounter row. Insert failures are logged and swallowed.
func (s *Store) Log(enc gamestate.Encounter, ordinal int) {
	shiny := 0
	if enc.Shiny {
		shiny = 1
	}
	_, err := s.db.Exec(
		`INSERT INTO encounters (ordinal, species, shiny, trainer_id, secret_id, personality, seen_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ordinal, enc.Species, shiny, enc.TrainerID, enc.SecretID, enc.Personality,
		time.Now().UTC().Unix(),
	)
	if err != nil {
		logger.Warn("Encounter insert failed", "ordinal", ordinal, "error", err)
	}
}

// Recent returns up to limit encounters, newest first.
func (s *Store) Recent(limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT ordinal, species, shiny, trainer_id, secret_id, personality, seen_at
		 FROM encounters ORDER BY seen_at DESC, ordinal DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query encounters: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var shiny int
		var seenAt int64
		if err := rows.Scan(&rec.Ordinal, &rec.Species, &shiny, &rec.TrainerID, &rec.SecretID, &rec.Personality, &seenAt); err != nil {
			return nil, fmt.Errorf("failed to scan encounter row: %w", err)
		}
		rec.Shiny = shiny != 0
		rec.SeenAt = time.Unix(seenAt, 0).UTC()
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Count returns the total number of recorded encounters.
func (s *Store) Count() (int, error) {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM encounters`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count encounters: %w", err)
	}
	return count, nil
}

// ShinyCount returns the number of recorded shiny encounters.
func (s *Store) ShinyCount() (int, error) {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM encounters WHERE shiny = 1`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count shiny encounters: %w", err)
	}
	return count, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

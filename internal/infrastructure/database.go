// Package infrastructure provides the sqlite store backing the star
// catalog and the audit trail, plus the shared HTTP client used by the
// remote adapters.
package infrastructure

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed catalog.json
var catalogJSON []byte

// Star is one row of the star catalog.
type Star struct {
	Name               string  `json:"name"`
	Constellation      string  `json:"constellation"`
	Magnitude          float64 `json:"magnitude"`
	DistanceLightYears float64 `json:"distance_light_years"`
	SpectralType       string  `json:"spectral_type"`
}

// Constellation is one row of the constellation catalog.
type Constellation struct {
	Name             string `json:"name"`
	Hemisphere       string `json:"hemisphere"`
	BestViewingMonth string `json:"best_viewing_month"`
	Area             int    `json:"area_square_degrees"`
}

// AuditEvent is one recorded tool invocation.
type AuditEvent struct {
	ID        int64
	Timestamp time.Time
	SessionID string
	Tool      string
	Argument  string
	Success   bool
	ErrorMsg  string
}

type catalog struct {
	Stars          []Star          `json:"stars"`
	Constellations []Constellation `json:"constellations"`
}

// Database is the sqlite-backed store.
type Database struct {
	db *sql.DB
}

// OpenDatabase opens (creating if needed) the sqlite database at dbPath
// and ensures the schema exists.
func OpenDatabase(dbPath string) (*Database, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	d := &Database{db: db}
	if err := d.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

// Close closes the underlying connection.
func (d *Database) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

func (d *Database) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS audit_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL,
		session_id TEXT NOT NULL,
		tool TEXT NOT NULL,
		argument TEXT NOT NULL,
		success BOOLEAN NOT NULL,
		error_msg TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_session ON audit_logs(session_id);
	CREATE INDEX IF NOT EXISTS idx_timestamp ON audit_logs(timestamp);

	CREATE TABLE IF NOT EXISTS stars (
		name TEXT PRIMARY KEY,
		constellation TEXT NOT NULL,
		magnitude REAL NOT NULL,
		distance_light_years REAL NOT NULL,
		spectral_type TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_constellation ON stars(constellation);

	CREATE TABLE IF NOT EXISTS constellations (
		name TEXT PRIMARY KEY,
		hemisphere TEXT NOT NULL,
		best_viewing_month TEXT NOT NULL,
		area_square_degrees INTEGER NOT NULL
	);
	`
	if _, err := d.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return d.loadCatalog()
}

// loadCatalog seeds the star and constellation tables from the embedded
// catalog. Idempotent: existing rows are replaced.
func (d *Database) loadCatalog() error {
	var cat catalog
	if err := json.Unmarshal(catalogJSON, &cat); err != nil {
		return fmt.Errorf("failed to parse embedded catalog: %w", err)
	}

	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin catalog load: %w", err)
	}
	defer tx.Rollback()

	for _, s := range cat.Stars {
		_, err := tx.Exec(
			`INSERT OR REPLACE INTO stars (name, constellation, magnitude, distance_light_years, spectral_type) VALUES (?, ?, ?, ?, ?)`,
			s.Name, s.Constellation, s.Magnitude, s.DistanceLightYears, s.SpectralType,
		)
		if err != nil {
			return fmt.Errorf("failed to load star %q: %w", s.Name, err)
		}
	}
	for _, c := range cat.Constellations {
		_, err := tx.Exec(
			`INSERT OR REPLACE INTO constellations (name, hemisphere, best_viewing_month, area_square_degrees) VALUES (?, ?, ?, ?)`,
			c.Name, c.Hemisphere, c.BestViewingMonth, c.Area,
		)
		if err != nil {
			return fmt.Errorf("failed to load constellation %q: %w", c.Name, err)
		}
	}
	return tx.Commit()
}

// GetStar returns the star with the given name, matched case-insensitively.
func (d *Database) GetStar(name string) (*Star, error) {
	row := d.db.QueryRow(
		`SELECT name, constellation, magnitude, distance_light_years, spectral_type FROM stars WHERE name = ? COLLATE NOCASE`,
		name,
	)
	var s Star
	err := row.Scan(&s.Name, &s.Constellation, &s.Magnitude, &s.DistanceLightYears, &s.SpectralType)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query star: %w", err)
	}
	return &s, nil
}

// GetConstellation returns the constellation with the given name, matched
// case-insensitively.
func (d *Database) GetConstellation(name string) (*Constellation, error) {
	row := d.db.QueryRow(
		`SELECT name, hemisphere, best_viewing_month, area_square_degrees FROM constellations WHERE name = ? COLLATE NOCASE`,
		name,
	)
	var c Constellation
	err := row.Scan(&c.Name, &c.Hemisphere, &c.BestViewingMonth, &c.Area)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query constellation: %w", err)
	}
	return &c, nil
}

// AllStars returns every star in catalog order.
func (d *Database) AllStars() ([]Star, error) {
	rows, err := d.db.Query(`SELECT name, constellation, magnitude, distance_light_years, spectral_type FROM stars ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query stars: %w", err)
	}
	defer rows.Close()
	return scanStars(rows)
}

// AllConstellations returns every constellation in catalog order.
func (d *Database) AllConstellations() ([]Constellation, error) {
	rows, err := d.db.Query(`SELECT name, hemisphere, best_viewing_month, area_square_degrees FROM constellations ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query constellations: %w", err)
	}
	defer rows.Close()

	var out []Constellation
	for rows.Next() {
		var c Constellation
		if err := rows.Scan(&c.Name, &c.Hemisphere, &c.BestViewingMonth, &c.Area); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// StarsByConstellation returns the stars of one constellation, matched
// case-insensitively.
func (d *Database) StarsByConstellation(constellation string) ([]Star, error) {
	rows, err := d.db.Query(
		`SELECT name, constellation, magnitude, distance_light_years, spectral_type FROM stars WHERE constellation = ? COLLATE NOCASE ORDER BY name`,
		constellation,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query stars: %w", err)
	}
	defer rows.Close()
	return scanStars(rows)
}

// StarsByMagnitude returns stars with magnitude strictly below limit when
// below is true, strictly above otherwise. Lower magnitude means brighter.
func (d *Database) StarsByMagnitude(limit float64, below bool) ([]Star, error) {
	op := ">"
	if below {
		op = "<"
	}
	query := fmt.Sprintf(
		`SELECT name, constellation, magnitude, distance_light_years, spectral_type FROM stars WHERE magnitude %s ? ORDER BY magnitude`,
		op,
	)
	rows, err := d.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query stars: %w", err)
	}
	defer rows.Close()
	return scanStars(rows)
}

func scanStars(rows *sql.Rows) ([]Star, error) {
	var out []Star
	for rows.Next() {
		var s Star
		if err := rows.Scan(&s.Name, &s.Constellation, &s.Magnitude, &s.DistanceLightYears, &s.SpectralType); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// LogAuditEvent records one tool invocation.
func (d *Database) LogAuditEvent(sessionID, tool, argument string, success bool, errorMsg string) error {
	_, err := d.db.Exec(
		`INSERT INTO audit_logs (timestamp, session_id, tool, argument, success, error_msg) VALUES (?, ?, ?, ?, ?, ?)`,
		time.Now(), sessionID, tool, argument, success, errorMsg,
	)
	return err
}

// RecentAuditEvents retrieves the latest audit events for a session.
func (d *Database) RecentAuditEvents(sessionID string, limit int) ([]AuditEvent, error) {
	rows, err := d.db.Query(
		`SELECT id, timestamp, session_id, tool, argument, success, error_msg
		 FROM audit_logs WHERE session_id = ? ORDER BY timestamp DESC, id DESC LIMIT ?`,
		sessionID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []AuditEvent
	for rows.Next() {
		var e AuditEvent
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.SessionID, &e.Tool, &e.Argument, &e.Success, &e.ErrorMsg); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	_ "github.com/mattn/go-sqlite3"

	"github.com/abrezinsky/cartepays/internal/models"
)

// Setting keys
const (
	SettingGeoJSONURL    = "geojson_url"
	SettingBaseURL       = "base_url"
	SettingMatchPolicy   = "match_policy"
	SettingDefaultFill   = "default_fill"
	settingTiersSaved    = "tiers_saved"
	settingTiersSavedYes = "true"
)

// Repository provides data access methods
type Repository struct {
	db *sql.DB
}

// New creates a new Repository
func New(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, err
	}

	// SQLite works best with a single connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	repo := &Repository{db: db}
	if err := repo.migrate(); err != nil {
		return nil, err
	}
	return repo, nil
}

// DB returns the underlying database connection
func (r *Repository) DB() *sql.DB {
	return r.db
}

// Close closes the database connection
func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks if the database connection is alive
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS tiers (
			rank INTEGER PRIMARY KEY,
			color TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS tier_countries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			rank INTEGER NOT NULL,
			position INTEGER NOT NULL,
			code TEXT NOT NULL,
			nom TEXT NOT NULL,
			FOREIGN KEY (rank) REFERENCES tiers(rank) ON DELETE CASCADE,
			UNIQUE(rank, position)
		)`,
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tier_countries_code ON tier_countries(code)`,
	}

	for _, migration := range migrations {
		if _, err := r.db.Exec(migration); err != nil {
			return err
		}
	}

	defaultSettings := map[string]string{
		SettingMatchPolicy: "code",
	}
	for key, value := range defaultSettings {
		if _, err := r.db.Exec(`INSERT OR IGNORE INTO settings (key, value) VALUES (?, ?)`, key, value); err != nil {
			return err
		}
	}
	return nil
}

// ==================== Tier Methods ====================

// GetTierConfig loads every tier in rank order with its countries in list order
func (r *Repository) GetTierConfig(ctx context.Context) (models.TierConfig, error) {
	cfg := models.TierConfig{Tiers: []models.TierList{}, Colors: []string{}}

	rows, err := r.db.QueryContext(ctx, `SELECT rank, color FROM tiers ORDER BY rank`)
	if err != nil {
		return cfg, err
	}
	index := map[int]int{}
	for rows.Next() {
		var rank int
		var color string
		if err := rows.Scan(&rank, &color); err != nil {
			rows.Close()
			return cfg, err
		}
		index[rank] = len(cfg.Colors)
		cfg.Colors = append(cfg.Colors, color)
		cfg.Tiers = append(cfg.Tiers, models.TierList{})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return cfg, err
	}
	rows.Close()

	rows, err = r.db.QueryContext(ctx, `SELECT rank, code, nom FROM tier_countries ORDER BY rank, position`)
	if err != nil {
		return cfg, err
	}
	defer rows.Close()
	for rows.Next() {
		var rank int
		var rec models.CountryRecord
		if err := rows.Scan(&rank, &rec.Code, &rec.Name); err != nil {
			return cfg, err
		}
		i, ok := index[rank]
		if !ok {
			continue
		}
		cfg.Tiers[i] = append(cfg.Tiers[i], rec)
	}
	return cfg, rows.Err()
}

// ReplaceTierConfig swaps the stored tiers for cfg in one transaction
func (r *Repository) ReplaceTierConfig(ctx context.Context, cfg models.TierConfig) error {
	if len(cfg.Tiers) != len(cfg.Colors) {
		return fmt.Errorf("%d tier lists but %d colors", len(cfg.Tiers), len(cfg.Colors))
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM tier_countries`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tiers`); err != nil {
		return err
	}
	for rank, color := range cfg.Colors {
		if _, err := tx.ExecContext(ctx, `INSERT INTO tiers (rank, color) VALUES (?, ?)`, rank, color); err != nil {
			return err
		}
		for pos, rec := range cfg.Tiers[rank] {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO tier_countries (rank, position, code, nom) VALUES (?, ?, ?, ?)`,
				rank, pos, rec.Code, rec.Name); err != nil {
				return err
			}
		}
	}
	if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)`, settingTiersSaved, settingTiersSavedYes); err != nil {
		return err
	}
	return tx.Commit()
}

// HasTierConfig reports whether a tier configuration was ever saved. An
// empty configuration counts as saved.
func (r *Repository) HasTierConfig(ctx context.Context) (bool, error) {
	v, err := r.GetSetting(ctx, settingTiersSaved)
	if err == ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return v == settingTiersSavedYes, nil
}

// CountCountries returns the number of country entries across all tiers
func (r *Repository) CountCountries(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tier_countries`).Scan(&n)
	return n, err
}

// ==================== Settings Methods ====================

// GetSetting retrieves a setting value
func (r *Repository) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	return value, err
}

// SetSetting updates a setting value
func (r *Repository) SetSetting(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)`, key, value)
	return err
}

// SetSettings writes every key in one transaction. Nothing is stored when
// any write fails.
func (r *Repository) SetSettings(ctx context.Context, settings map[string]string) error {
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, k := range keys {
		if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)`, k, settings[k]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// AllSettings returns every stored setting
func (r *Repository) AllSettings(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		settings[k] = v
	}
	return settings, rows.Err()
}

package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/mamadbah2/nogal/internal/repository"
)

// DB wraps a SQLite database connection
type DB struct {
	*sql.DB
}

// New creates a new SQLite database connection. The pool is limited to one
// connection so in-memory databases are shared and writes are serialized.
func New(dataSourceName string) (*DB, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &DB{db}, nil
}

// Open opens the trial database at path, applies the schema and returns a
// Store backed by it.
func Open(path string) (*repository.Store, error) {
	db, err := New(path)
	if err != nil {
		return nil, err
	}
	if err := db.RunMigrations(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return repository.NewStore(repository.Store{
		Projects:    NewProjectRepository(db),
		Montes:      NewMonteRepository(db),
		Campaigns:   NewCampaignRepository(db),
		Costs:       NewCostRepository(db),
		Investments: NewInvestmentRepository(db),
		Productions: NewProductionRepository(db),
		YieldModels: NewYieldModelRepository(db),
	}, db.Close), nil
}

// RunMigrations creates the schema when it does not exist yet.
func (db *DB) RunMigrations() error {
	migration := `
CREATE TABLE IF NOT EXISTS projects (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    location TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS montes (
    id TEXT PRIMARY KEY,
    project_id TEXT NOT NULL,
    name TEXT NOT NULL,
    hectares REAL NOT NULL,
    density REAL NOT NULL DEFAULT 0,
    planting_year INTEGER NOT NULL,
    variety TEXT NOT NULL DEFAULT '',
    FOREIGN KEY (project_id) REFERENCES projects(id)
);
CREATE INDEX IF NOT EXISTS idx_project_montes ON montes(project_id);

CREATE TABLE IF NOT EXISTS campaigns (
    id TEXT PRIMARY KEY,
    project_id TEXT NOT NULL,
    year INTEGER NOT NULL,
    average_price TEXT NOT NULL DEFAULT '0',
    total_production REAL NOT NULL DEFAULT 0,
    status TEXT NOT NULL DEFAULT '',
    UNIQUE (project_id, year),
    FOREIGN KEY (project_id) REFERENCES projects(id)
);

CREATE TABLE IF NOT EXISTS costs (
    id TEXT PRIMARY KEY,
    project_id TEXT NOT NULL,
    campaign_id TEXT NOT NULL,
    category TEXT NOT NULL,
    amount REAL NOT NULL DEFAULT 0,
    description TEXT NOT NULL DEFAULT '',
    date TIMESTAMP,
    FOREIGN KEY (project_id) REFERENCES projects(id),
    FOREIGN KEY (campaign_id) REFERENCES campaigns(id)
);
CREATE INDEX IF NOT EXISTS idx_project_costs ON costs(project_id, campaign_id);

CREATE TABLE IF NOT EXISTS investments (
    id TEXT PRIMARY KEY,
    project_id TEXT NOT NULL,
    campaign_id TEXT NOT NULL,
    category TEXT NOT NULL,
    amount REAL NOT NULL DEFAULT 0,
    description TEXT NOT NULL DEFAULT '',
    date TIMESTAMP,
    FOREIGN KEY (project_id) REFERENCES projects(id),
    FOREIGN KEY (campaign_id) REFERENCES campaigns(id)
);
CREATE INDEX IF NOT EXISTS idx_project_investments ON investments(project_id, campaign_id);

CREATE TABLE IF NOT EXISTS productions (
    id TEXT PRIMARY KEY,
    monte_id TEXT NOT NULL,
    campaign_id TEXT NOT NULL,
    quantity_kg REAL NOT NULL CHECK (quantity_kg >= 0),
    input_type TEXT NOT NULL CHECK (input_type IN ('detail', 'total')),
    FOREIGN KEY (monte_id) REFERENCES montes(id) ON DELETE CASCADE,
    FOREIGN KEY (campaign_id) REFERENCES campaigns(id)
);
CREATE INDEX IF NOT EXISTS idx_campaign_productions ON productions(campaign_id);

CREATE TABLE IF NOT EXISTS yield_models (
    id TEXT PRIMARY KEY,
    project_id TEXT NOT NULL,
    variety TEXT NOT NULL,
    data TEXT NOT NULL DEFAULT '[]',
    UNIQUE (project_id, variety),
    FOREIGN KEY (project_id) REFERENCES projects(id)
);
`

	if _, err := db.Exec(migration); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

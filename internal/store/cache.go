// Package store caches raw run results in SQLite so a rerun with the same
// configuration can skip the simulation.
package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	config "github.com/Vincent-lau/crnfigs/internal/configs"
	"github.com/Vincent-lau/crnfigs/internal/engine"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	key       TEXT PRIMARY KEY,
	scenario  TEXT NOT NULL,
	seed      INTEGER NOT NULL,
	policy    TEXT NOT NULL,
	arm       TEXT NOT NULL,
	steps     INTEGER NOT NULL,
	channels  BLOB NOT NULL
);
`

type Cache struct {
	db *sql.DB
}

// Open opens or creates the cache at path.
func Open(ctx context.Context, path string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache schema: %w", err)
	}

	log.WithFields(log.Fields{
		"path": path,
	}).Debug("opened run cache")

	return &Cache{db: db}, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

// Key hashes everything that determines a run: the full configuration
// including its policy, the seed and the arm. For a matrix network the
// contents of the matrix file are hashed too, not only its path.
func Key(cfg config.ScenarioConfig, seed uint64, arm config.Arm) (string, error) {
	var matrix string
	if cfg.Network.Kind == config.NetMatrix {
		data, err := os.ReadFile(cfg.Network.MatrixFile)
		if err != nil {
			return "", fmt.Errorf("reading matrix file for cache key: %w", err)
		}
		sum := sha256.Sum256(data)
		matrix = hex.EncodeToString(sum[:])
	}

	b, err := yaml.Marshal(struct {
		Config config.ScenarioConfig `yaml:"config"`
		Policy string                `yaml:"policy"`
		Seed   uint64                `yaml:"seed"`
		Arm    string                `yaml:"arm"`
		Cov    float64               `yaml:"coverage"`
		Matrix string                `yaml:"matrix,omitempty"`
	}{cfg, cfg.Policy.String(), seed, arm.Name, arm.Coverage, matrix})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// Get returns the cached result for the run, or false if there is none.
func (c *Cache) Get(ctx context.Context, cfg config.ScenarioConfig, seed uint64, arm config.Arm) (*engine.RunResult, bool, error) {
	key, err := Key(cfg, seed, arm)
	if err != nil {
		return nil, false, err
	}

	var steps int
	var blob []byte
	err = c.db.QueryRowContext(ctx, `SELECT steps, channels FROM runs WHERE key = ?`, key).Scan(&steps, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading cached run: %w", err)
	}

	var ch map[string][]float64
	if err := json.Unmarshal(blob, &ch); err != nil {
		return nil, false, fmt.Errorf("decoding cached run %s: %w", key, err)
	}

	return &engine.RunResult{
		Key: engine.RunKey{
			Scenario: cfg.Scenario,
			Seed:     seed,
			Policy:   cfg.Policy,
			Arm:      arm.Name,
		},
		Config:   cfg,
		Steps:    steps,
		Channels: ch,
	}, true, nil
}

// Put stores r, replacing any earlier entry for the same run.
func (c *Cache) Put(ctx context.Context, r *engine.RunResult, arm config.Arm) error {
	key, err := Key(r.Config, r.Key.Seed, arm)
	if err != nil {
		return err
	}
	blob, err := json.Marshal(r.Channels)
	if err != nil {
		return err
	}

	_, err = c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs (key, scenario, seed, policy, arm, steps, channels) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		key, r.Key.Scenario, int64(r.Key.Seed), r.Key.Policy.String(), r.Key.Arm, r.Steps, blob)
	if err != nil {
		return fmt.Errorf("writing cached run: %w", err)
	}
	return nil
}

// Len is the number of cached runs.
func (c *Cache) Len(ctx context.Context) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&n)
	return n, err
}

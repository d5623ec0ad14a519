package store

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	config "github.com/Vincent-lau/crnfigs/internal/configs"
	"github.com/Vincent-lau/crnfigs/internal/engine"
	"github.com/Vincent-lau/crnfigs/internal/rng"
)

func openCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(context.Background(), filepath.Join(t.TempDir(), "nested", "cache.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestKey(t *testing.T) {
	cfg, _ := config.Defaults(config.SIR)
	arm := cfg.Arms()[1]

	a, err := Key(cfg.WithPolicy(rng.CRN), 1, arm)
	if err != nil {
		t.Fatal(err)
	}
	same, _ := Key(cfg.WithPolicy(rng.CRN), 1, arm)
	if a != same {
		t.Fatal("Key is not stable")
	}

	for name, other := range map[string]func() (string, error){
		"policy": func() (string, error) { return Key(cfg.WithPolicy(rng.Centralized), 1, arm) },
		"seed":   func() (string, error) { return Key(cfg.WithPolicy(rng.CRN), 2, arm) },
		"arm":    func() (string, error) { return Key(cfg.WithPolicy(rng.CRN), 1, cfg.Arms()[0]) },
		"config": func() (string, error) {
			c := cfg.WithPolicy(rng.CRN)
			c.SIR.Beta = 0.07
			return Key(c, 1, arm)
		},
	} {
		k, err := other()
		if err != nil {
			t.Fatal(err)
		}
		if k == a {
			t.Fatalf("changing the %s did not change the key", name)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := openCache(t)

	cfg, _ := config.Defaults(config.PPH)
	cfg.Population = 200
	cfg.Steps = 30
	cfg = cfg.WithPolicy(rng.Centralized)
	arm := cfg.Arms()[1]

	if _, ok, err := c.Get(ctx, cfg, 4, arm); err != nil || ok {
		t.Fatalf("Get on an empty cache = %v, %v", ok, err)
	}

	r, err := engine.PPH{}.Run(ctx, cfg, 4, arm)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Put(ctx, r, arm); err != nil {
		t.Fatal(err)
	}
	// replacing is not an error
	if err := c.Put(ctx, r, arm); err != nil {
		t.Fatal(err)
	}

	got, ok, err := c.Get(ctx, cfg, 4, arm)
	if err != nil || !ok {
		t.Fatalf("Get after Put = %v, %v", ok, err)
	}
	if got.Key != r.Key || got.Steps != r.Steps {
		t.Fatalf("got %v/%d, want %v/%d", got.Key, got.Steps, r.Key, r.Steps)
	}
	if !reflect.DeepEqual(got.Channels, r.Channels) {
		t.Fatal("channels changed through the cache")
	}

	if n, err := c.Len(ctx); err != nil || n != 1 {
		t.Fatalf("Len = %d, %v", n, err)
	}
}

func TestKeyFollowsMatrixContents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.txt")
	if err := os.WriteFile(path, []byte("0,1\n1,0\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, _ := config.Defaults(config.SIR)
	cfg.Population = 2
	cfg.Network = config.NetworkConfig{Kind: config.NetMatrix, MatrixFile: path}
	arm := cfg.Arms()[0]

	before, err := Key(cfg, 1, arm)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("0,0\n0,0\n"), 0644); err != nil {
		t.Fatal(err)
	}
	after, err := Key(cfg, 1, arm)
	if err != nil {
		t.Fatal(err)
	}
	if before == after {
		t.Fatal("same key after the matrix file changed")
	}

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if _, err := Key(cfg, 1, arm); err == nil {
		t.Fatal("expected an error for a missing matrix file")
	}
}

package experiment

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	config "github.com/Vincent-lau/crnfigs/internal/configs"
	log "github.com/sirupsen/logrus"
)

func TestRunScenarioSIR(t *testing.T) {
	cfg, err := config.Defaults(config.SIR)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Population != 1000 || cfg.Steps != 100 || cfg.Seeds != 10 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}

	dir := t.TempDir()
	out, err := RunScenario(context.Background(), cfg, Options{FigDir: dir, Workers: 4})
	if err != nil {
		t.Fatal(err)
	}
	if out.Summary.Seeds != 10 || len(out.Summary.Arms) != len(cfg.Intervention.Coverages) {
		t.Fatalf("summary has %d seeds, %d arms", out.Summary.Seeds, len(out.Summary.Arms))
	}
	// one effect figure per arm, the variance chart and the table
	if len(out.Files) != len(cfg.Intervention.Coverages)+2 {
		t.Fatalf("wrote %v", out.Files)
	}
	for _, f := range out.Files {
		if filepath.Dir(f) != filepath.Join(dir, config.SIR) {
			t.Fatalf("%s is outside the scenario folder", f)
		}
		if _, err := os.Stat(f); err != nil {
			t.Fatal(err)
		}
	}
}

func TestCRNReducesVariance(t *testing.T) {
	cfg, _ := config.Defaults(config.SIR)
	cfg.Seeds = 20

	out, err := RunScenario(context.Background(), cfg, Options{FigDir: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	for _, a := range out.Summary.Arms {
		if a.CRN.Var >= a.Centralized.Var {
			t.Fatalf("%s: crn variance %v not below centralized %v", a.Arm.Name, a.CRN.Var, a.Centralized.Var)
		}
	}
}

func TestRunScenarioCached(t *testing.T) {
	cfg, _ := config.Defaults(config.PPH)
	cfg.Population = 300
	cfg.Steps = 30
	cfg.Seeds = 3

	opts := Options{FigDir: t.TempDir(), Workers: 2, CachePath: filepath.Join(t.TempDir(), "runs.db")}
	a, err := RunScenario(context.Background(), cfg, opts)
	if err != nil {
		t.Fatal(err)
	}
	b, err := RunScenario(context.Background(), cfg, opts)
	if err != nil {
		t.Fatal(err)
	}
	for i := range a.Summary.Arms {
		if a.Summary.Arms[i].CRN.Mean != b.Summary.Arms[i].CRN.Mean ||
			a.Summary.Arms[i].Centralized.Var != b.Summary.Arms[i].Centralized.Var {
			t.Fatalf("cached rerun of %s differs", a.Summary.Arms[i].Arm.Name)
		}
	}
}

func TestRunScenarioInvalid(t *testing.T) {
	cfg, _ := config.Defaults(config.VMMC)
	cfg.Population = 0
	_, err := RunScenario(context.Background(), cfg, Options{FigDir: t.TempDir()})
	var ce *config.ConfigurationError
	if !errors.As(err, &ce) || ce.Field != "population" {
		t.Fatalf("RunScenario() = %v, want a population ConfigurationError", err)
	}

	if _, err := Scenario(context.Background(), "measles", "", Options{FigDir: t.TempDir()}); err == nil {
		t.Fatal("expected an error for an unknown scenario")
	}
}

func TestArmSummaryLoggedAsJSON(t *testing.T) {
	var buf bytes.Buffer
	out, level, formatter := log.StandardLogger().Out, log.GetLevel(), log.StandardLogger().Formatter
	log.SetOutput(&buf)
	log.SetLevel(log.InfoLevel)
	log.SetFormatter(&log.JSONFormatter{})
	defer func() {
		log.SetOutput(out)
		log.SetLevel(level)
		log.SetFormatter(formatter)
	}()

	// nobody is ever infected, so every effect is zero
	cfg, _ := config.Defaults(config.SIR)
	cfg.Population = 20
	cfg.Steps = 5
	cfg.Seeds = 3
	cfg.SIR.InitPrev = 0
	cfg.Intervention.Start = 2

	res, err := RunScenario(context.Background(), cfg, Options{FigDir: t.TempDir(), Workers: 1})
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsNaN(res.Summary.Arms[0].VarianceReduction) {
		t.Fatalf("variance reduction = %v, want NaN", res.Summary.Arms[0].VarianceReduction)
	}

	lines := 0
	sc := bufio.NewScanner(&buf)
	for sc.Scan() {
		var entry map[string]any
		if err := json.Unmarshal(sc.Bytes(), &entry); err != nil {
			t.Fatalf("not a JSON log line: %s", sc.Text())
		}
		if entry["msg"] != "arm summary" {
			continue
		}
		lines++
		if entry["variance reduction"] != "NaN" {
			t.Fatalf("variance reduction field = %#v", entry["variance reduction"])
		}
	}
	if lines != len(cfg.Intervention.Coverages) {
		t.Fatalf("got %d arm summary lines, want %d", lines, len(cfg.Intervention.Coverages))
	}
}

package pairwise

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/Vincent-lau/crnfigs/internal/plot"
	"github.com/Vincent-lau/crnfigs/internal/util"
	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/maps"
	"gonum.org/v1/gonum/graph/simple"
)

type Report struct {
	Config  Config
	Tallies []*Tally
	// graph hashes in sorted order, and Table[i][m] the count of graph
	// Hashes[i] under method m
	Hashes []string
	Table  [][]int
	// p-value of each method against TrueRandom, keyed by method
	PValues map[Method]float64
	Files   []string
}

// Dir is the figure folder of the experiment under root.
func Dir(root string, cfg Config) string {
	return filepath.Join(root, fmt.Sprintf("ERCorr_n%d_reps%d", cfg.Nodes, cfg.Reps))
}

// Run draws the graphs for every method concurrently, tests each method
// against TrueRandom and writes results.csv, chisq.csv and graph_hist.png
// into dir.
func Run(ctx context.Context, cfg Config, dir string) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	type result struct {
		t   *Tally
		err error
	}
	methods := Methods()
	done := make(chan result)
	for _, m := range methods {
		go func(m Method) {
			t, err := MakeGraphs(ctx, cfg, m)
			done <- result{t, err}
		}(m)
	}

	rep := &Report{Config: cfg, Tallies: make([]*Tally, len(methods)), PValues: make(map[Method]float64)}
	var firstErr error
	for range methods {
		r := <-done
		if r.err != nil {
			if firstErr == nil {
				firstErr = r.err
			}
			continue
		}
		rep.Tallies[r.t.Method] = r.t
	}
	if firstErr != nil {
		return nil, firstErr
	}

	seen := make(map[string]bool)
	for _, t := range rep.Tallies {
		for h := range t.Counts {
			seen[h] = true
		}
	}
	rep.Hashes = maps.Keys(seen)
	sort.Strings(rep.Hashes)

	rep.Table = make([][]int, len(rep.Hashes))
	for i, h := range rep.Hashes {
		row := make([]int, len(methods))
		for m, t := range rep.Tallies {
			row[m] = t.Counts[h]
		}
		rep.Table[i] = row
	}

	for _, m := range methods[1:] {
		ct := make([][]float64, len(rep.Table))
		for i, row := range rep.Table {
			ct[i] = []float64{float64(row[TrueRandom]), float64(row[m])}
		}
		_, p, _, err := ChiSquare(ct)
		if err != nil {
			return nil, fmt.Errorf("chi-square for %s: %w", m, err)
		}
		rep.PValues[m] = p
	}

	if err := rep.write(dir); err != nil {
		return nil, err
	}

	for _, h := range rep.Hashes {
		g := rep.graph(h)
		BiasLogger.WithFields(log.Fields{
			"hash":  h,
			"edges": g.Edges().Len(),
		}).Debugf("unique graph\n%s", EdgeList(g))
	}
	for _, t := range rep.Tallies {
		BiasLogger.WithFields(rep.methodFields(t)).Info("pairwise method done")
	}

	return rep, nil
}

// methodFields has no p-value for TrueRandom, the reference of every test.
func (rep *Report) methodFields(t *Tally) log.Fields {
	f := log.Fields{
		"method":     t.Method.String(),
		"time taken": t.Elapsed.Seconds(),
	}
	if p, ok := rep.PValues[t.Method]; ok {
		f["p-value"] = util.LogFloat(p)
	}
	return f
}

func (rep *Report) graph(h string) *simple.UndirectedGraph {
	for _, t := range rep.Tallies {
		if g, ok := t.Graphs[h]; ok {
			return g
		}
	}
	return nil
}

func (rep *Report) write(dir string) error {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return fmt.Errorf("error creating figure directory: %w", err)
	}
	methods := Methods()

	header := []string{"Graph Hash"}
	for _, m := range methods {
		header = append(header, m.String())
	}
	rows := [][]string{header}
	for i, h := range rep.Hashes {
		row := []string{h}
		for _, c := range rep.Table[i] {
			row = append(row, strconv.Itoa(c))
		}
		rows = append(rows, row)
	}
	results := filepath.Join(dir, "results.csv")
	if err := writeCSV(results, rows); err != nil {
		return err
	}

	rows = [][]string{{"Method", "P-Value"}}
	for _, m := range methods[1:] {
		rows = append(rows, []string{m.String(), strconv.FormatFloat(rep.PValues[m], 'g', -1, 64)})
	}
	chisq := filepath.Join(dir, "chisq.csv")
	if err := writeCSV(chisq, rows); err != nil {
		return err
	}

	names := make([]string, len(methods))
	values := make([][]float64, len(methods))
	for m := range methods {
		names[m] = methods[m].String()
		values[m] = make([]float64, len(rep.Hashes))
		for i := range rep.Hashes {
			values[m][i] = float64(rep.Table[i][m])
		}
	}
	hist := filepath.Join(dir, "graph_hist.png")
	title := fmt.Sprintf("Graph counts, n=%d, reps=%d", rep.Config.Nodes, rep.Config.Reps)
	if err := plot.Histograms(hist, title, rep.Hashes, names, values); err != nil {
		return err
	}

	rep.Files = []string{results, chisq, hist}
	return nil
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

package util

import (
	"fmt"
	"os"
	"runtime/pprof"
	"runtime/trace"

	log "github.com/sirupsen/logrus"
)

// StartProfile starts a CPU profile and an execution trace when the
// respective paths are set. The returned function stops both.
func StartProfile(cpuProfile, tracePath string) (func(), error) {
	var stops []func()
	stop := func() {
		for i := len(stops) - 1; i >= 0; i-- {
			stops[i]()
		}
	}

	if cpuProfile != "" {
		f, err := os.Create(cpuProfile)
		if err != nil {
			return nil, fmt.Errorf("error creating cpu profile: %w", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			f.Close()
			return nil, fmt.Errorf("error starting cpu profile: %w", err)
		}
		stops = append(stops, func() {
			pprof.StopCPUProfile()
			closeLogged(f)
		})
	}

	if tracePath != "" {
		f, err := os.Create(tracePath)
		if err != nil {
			stop()
			return nil, fmt.Errorf("error creating trace file: %w", err)
		}
		if err := trace.Start(f); err != nil {
			f.Close()
			stop()
			return nil, fmt.Errorf("error starting trace: %w", err)
		}
		stops = append(stops, func() {
			trace.Stop()
			closeLogged(f)
		})
	}

	return stop, nil
}

func closeLogged(f *os.File) {
	if err := f.Close(); err != nil {
		log.WithFields(log.Fields{
			"file":  f.Name(),
			"error": err,
		}).Warn("failed to close profile file")
	}
}

package util

import (
	"runtime"

	linuxproc "github.com/c9s/goprocinfo/linux"
	log "github.com/sirupsen/logrus"
)

// NumProcs counts the processors listed in /proc/cpuinfo, falling back to
// runtime.NumCPU where that file cannot be read.
func NumProcs() int {
	info, err := linuxproc.ReadCPUInfo("/proc/cpuinfo")
	if err != nil || len(info.Processors) == 0 {
		log.WithFields(log.Fields{
			"error": err,
		}).Debug("cannot read cpuinfo, using runtime.NumCPU")
		return runtime.NumCPU()
	}
	return len(info.Processors)
}

// Workers resolves a configured worker count, 0 or less meaning one per
// processor.
func Workers(n int) int {
	if n > 0 {
		return n
	}
	return NumProcs()
}

package config

// process wide settings, bound to command line flags in cmd/crnfigs
var (
	// DEV logs colored text at debug level, PROD logs JSON at info level
	Mode = "DEV"

	// root of the figure tree, one subfolder per scenario
	FigDir = "figs"

	// optional YAML file overriding the scenario defaults
	File = ""

	// number of concurrent runs, 0 means one per processor
	Workers = 0

	// SQLite file caching raw run results, empty disables the cache
	CachePath = ""

	// serve prometheus metrics on this address when set, e.g. ":8080"
	MetricsAddr = ""

	CpuProfile = ""
	Trace      = ""
)

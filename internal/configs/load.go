package config

import (
	"bytes"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Load starts from the scenario defaults and applies the YAML file at path
// on top of them. An empty path returns the defaults. The result is
// validated.
func Load(scenario, path string) (ScenarioConfig, error) {
	c, err := Defaults(scenario)
	if err != nil {
		return ScenarioConfig{}, err
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return ScenarioConfig{}, fmt.Errorf("reading config file: %w", err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&c); err != nil {
			return ScenarioConfig{}, fmt.Errorf("parsing config file %s: %w", path, err)
		}
		if c.Scenario != scenario {
			return ScenarioConfig{}, &ConfigurationError{
				Field:  "scenario",
				Reason: fmt.Sprintf("file is for %q, command is %q", c.Scenario, scenario),
			}
		}

		log.WithFields(log.Fields{
			"file":     path,
			"scenario": scenario,
		}).Debug("applied config file")
	}

	if err := c.Validate(); err != nil {
		return ScenarioConfig{}, err
	}
	return c.clone(), nil
}

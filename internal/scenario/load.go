package scenario

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const defaultScenarioPath = "files/showcase.yaml"

// Load reads and validates the scenario at path. An empty path selects
// the embedded default session.
func Load(path string) (Scenario, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("read scenario: %w", err)
	}
	sc, err := parse(data)
	if err != nil {
		return Scenario{}, fmt.Errorf("scenario %s: %w", path, err)
	}
	return sc, nil
}

// Default returns the embedded showcase session.
func Default() (Scenario, error) {
	data, err := readEmbeddedFile(defaultScenarioPath)
	if err != nil {
		return Scenario{}, err
	}
	return parse(data)
}

func parse(data []byte) (Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return Scenario{}, fmt.Errorf("parse scenario: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return Scenario{}, err
	}
	return sc, nil
}

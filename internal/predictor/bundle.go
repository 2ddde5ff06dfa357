package predictor

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"bidforecast/server/internal/models"
)

// Bundle is the on-disk layout of the exported models
type Bundle struct {
	Version     string                          `yaml:"version"`
	Round       *LinearModel                    `yaml:"round"`
	Probability *LinearModel                    `yaml:"probability"`
	Price       map[string]map[int]*LinearModel `yaml:"price"`
}

// LoadBundle reads a model bundle and builds the router from it
func LoadBundle(path string) (*Router, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model bundle: %w", err)
	}
	return ParseBundle(data)
}

// ParseBundle decodes bundle YAML and builds the router from it
func ParseBundle(data []byte) (*Router, error) {
	var bundle Bundle
	if err := yaml.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("failed to parse model bundle: %w", err)
	}

	if bundle.Round == nil || bundle.Probability == nil {
		return nil, fmt.Errorf("model bundle must define round and probability models")
	}
	for _, m := range []*LinearModel{bundle.Round, bundle.Probability} {
		if err := m.Validate(); err != nil {
			return nil, err
		}
	}

	price := make(map[RouteKey]Predictor)
	for category, rounds := range bundle.Price {
		if category != models.CategoryVehicle && category != models.CategoryOther {
			return nil, fmt.Errorf("model bundle has unknown price category %q", category)
		}
		for round, m := range rounds {
			if m == nil {
				continue
			}
			if err := m.Validate(); err != nil {
				return nil, err
			}
			price[RouteKey{Category: category, Round: round}] = m
		}
	}

	return NewRouter(bundle.Round, bundle.Probability, price)
}

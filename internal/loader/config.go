package loader

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/copyleftdev/annealloc/internal/assign"
	"github.com/copyleftdev/annealloc/internal/errors"
)

// ConfigDocument is the on-disk shape of the search tunables. Rank
// weights are keyed "1st"/"2nd"/"3rd"; omitted fields keep their
// defaults.
type ConfigDocument struct {
	PreferenceWeights     map[string]float64 `mapstructure:"preference_weights" json:"preference_weights,omitempty"`
	BoostWeight           *float64           `mapstructure:"boost_weight" json:"boost_weight,omitempty"`
	QBoostProbability     *float64           `mapstructure:"q_boost_probability" json:"q_boost_probability,omitempty"`
	NumPatterns           *int               `mapstructure:"num_patterns" json:"num_patterns,omitempty"`
	MaxWorkers            *int               `mapstructure:"max_workers" json:"max_workers,omitempty"`
	LocalSearchIterations *int               `mapstructure:"local_search_iterations" json:"local_search_iterations,omitempty"`
	InitialTemperature    *float64           `mapstructure:"initial_temperature" json:"initial_temperature,omitempty"`
	CoolingRate           *float64           `mapstructure:"cooling_rate" json:"cooling_rate,omitempty"`
	Seed                  *int64             `mapstructure:"seed" json:"seed,omitempty"`
	SnapshotInterval      *int               `mapstructure:"snapshot_interval" json:"snapshot_interval,omitempty"`
}

// LoadConfig reads a JSON or YAML search-config document and merges
// it over base. Unknown keys are rejected so a typoed tunable fails
// loudly instead of silently keeping its default.
func LoadConfig(path string, base assign.Config) (assign.Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return base, errors.Wrap(err, "opening config file").WithComponent("loader")
	}
	defer f.Close()

	var raw map[string]interface{}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.NewDecoder(f).Decode(&raw)
	case ".yaml", ".yml":
		err = yaml.NewDecoder(f).Decode(&raw)
	default:
		return base, errors.Errorf("unsupported config format %q", ext).WithComponent("loader")
	}
	if err != nil {
		return base, errors.Wrap(err, "decoding config").WithComponent("loader")
	}

	var doc ConfigDocument
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &doc,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return base, errors.Wrap(err, "building config decoder").WithComponent("loader")
	}
	if err := dec.Decode(raw); err != nil {
		return base, errors.Wrap(err, "mapping config").WithComponent("loader")
	}

	return doc.Apply(base)
}

func (d ConfigDocument) Apply(cfg assign.Config) (assign.Config, error) {
	for rank, w := range d.PreferenceWeights {
		switch rank {
		case "1st":
			cfg.Weights.First = w
		case "2nd":
			cfg.Weights.Second = w
		case "3rd":
			cfg.Weights.Third = w
		default:
			return cfg, errors.Errorf("unknown preference weight rank %q", rank).WithComponent("loader")
		}
	}
	if d.BoostWeight != nil {
		cfg.BoostWeight = *d.BoostWeight
	}
	if d.QBoostProbability != nil {
		cfg.QBoostProbability = *d.QBoostProbability
	}
	if d.NumPatterns != nil {
		cfg.NumPatterns = *d.NumPatterns
	}
	if d.MaxWorkers != nil {
		cfg.MaxWorkers = *d.MaxWorkers
	}
	if d.LocalSearchIterations != nil {
		cfg.LocalSearchIterations = *d.LocalSearchIterations
	}
	if d.InitialTemperature != nil {
		cfg.InitialTemperature = *d.InitialTemperature
	}
	if d.CoolingRate != nil {
		cfg.CoolingRate = *d.CoolingRate
	}
	if d.Seed != nil {
		cfg.Seed = *d.Seed
	}
	if d.SnapshotInterval != nil {
		cfg.SnapshotInterval = *d.SnapshotInterval
	}
	return cfg, nil
}

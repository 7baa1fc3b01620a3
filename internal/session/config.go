package session

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/orbitlab/starmap/pkg/cluster"
	"github.com/orbitlab/starmap/pkg/layout"
)

// Config is the viewer configuration, loadable from YAML.
type Config struct {
	// BackendURL is the simulation backend root.
	BackendURL string `yaml:"backend_url"`
	// ListenAddr is where the viewer's own HTTP surface binds.
	ListenAddr string `yaml:"listen_addr"`

	// PollInterval is the snapshot poll cadence.
	PollInterval time.Duration `yaml:"poll_interval"`
	// StepInterval is the physics tick cadence while settling.
	StepInterval time.Duration `yaml:"step_interval"`

	Canvas  CanvasConfig  `yaml:"canvas"`
	Cluster ClusterConfig `yaml:"cluster"`
	Layout  LayoutConfig  `yaml:"layout"`
}

// CanvasConfig sizes the layout viewport.
type CanvasConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// ClusterConfig tunes sector detection.
type ClusterConfig struct {
	Ratio              float64 `yaml:"ratio"`
	MaxIterations      int     `yaml:"max_iterations"`
	ConvergenceEpsilon float64 `yaml:"convergence_epsilon"`
	// Seed, when non-zero, makes sector assignment reproducible.
	Seed int64 `yaml:"seed"`
}

// LayoutConfig tunes the physics solver.
type LayoutConfig struct {
	MinEnergy   float64 `yaml:"min_energy"`
	EnergyDecay float64 `yaml:"energy_decay"`
	Seed        int64   `yaml:"seed"`
}

// DefaultConfig returns the stock viewer configuration.
func DefaultConfig() Config {
	return Config{
		BackendURL:   "http://localhost:9090",
		ListenAddr:   ":8080",
		PollInterval: 2 * time.Second,
		StepInterval: 25 * time.Millisecond,
		Canvas:       CanvasConfig{Width: 1600, Height: 1000},
		Cluster: ClusterConfig{
			Ratio:              cluster.DefaultRatio,
			MaxIterations:      cluster.DefaultMaxIterations,
			ConvergenceEpsilon: cluster.DefaultConvergenceEpsilon,
		},
		Layout: LayoutConfig{
			MinEnergy:   0.005,
			EnergyDecay: 0.98,
			Seed:        1,
		},
	}
}

// LoadConfig reads a YAML config file over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) layoutConfig() layout.Config {
	lc := layout.DefaultConfig()
	lc.Width = float64(c.Canvas.Width)
	lc.Height = float64(c.Canvas.Height)
	if c.Layout.MinEnergy > 0 {
		lc.MinEnergy = c.Layout.MinEnergy
	}
	if c.Layout.EnergyDecay > 0 {
		lc.EnergyDecay = c.Layout.EnergyDecay
	}
	if c.Layout.Seed != 0 {
		lc.Seed = c.Layout.Seed
	}
	return lc
}

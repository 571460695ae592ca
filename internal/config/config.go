package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/udisondev/horde/internal/genetic"
	"github.com/udisondev/horde/internal/spawn"
)

// EnvPath overrides the config file path.
const EnvPath = "HORDE_CONFIG"

// Server holds all configuration for the horde server.
type Server struct {
	LogLevel string `yaml:"log_level"`
	// Mode is single, host or client
	Mode     string        `yaml:"mode"`
	TickRate time.Duration `yaml:"tick_rate"`
	// WavesPath points at the authored archetype/wave/obstacle file
	WavesPath string `yaml:"waves_path"`
	// Seed makes spawning reproducible (0 for random)
	Seed uint64 `yaml:"seed"`

	Replication Replication    `yaml:"replication"`
	Spawn       Spawn          `yaml:"spawn"`
	Despawn     Despawn        `yaml:"despawn"`
	Evolution   Evolution      `yaml:"evolution"`
	Difficulty  Difficulty     `yaml:"difficulty"`
	Database    DatabaseConfig `yaml:"database"`
	Persistence Persistence    `yaml:"persistence"`
}

// Replication configures host listeners and the observer connection.
type Replication struct {
	TCPAddress string `yaml:"tcp_address"`
	WSAddress  string `yaml:"ws_address"`
	// HostAddress is dialed by observers: host:port or a ws:// URL
	HostAddress string `yaml:"host_address"`
	// Key is the hex-encoded Blowfish key shared by host and observers
	Key           string `yaml:"key"`
	SendQueueSize int    `yaml:"send_queue_size"`
	// CommandQueueSize bounds the spawner's outbound command channel
	CommandQueueSize int `yaml:"command_queue_size"`
}

// Spawn holds placement, safety and balancing parameters.
type Spawn struct {
	MinSpread              float64 `yaml:"min_spread"`
	VisibilityBuffer       float64 `yaml:"visibility_buffer"`
	SideMargin             float64 `yaml:"side_margin"`
	MinDistanceFromPlayers float64 `yaml:"min_distance_from_players"`
	CheckRadius            float64 `yaml:"check_radius"`
	MaxAttempts            int     `yaml:"max_attempts"`
	ImbalanceThreshold     int     `yaml:"imbalance_threshold"`
	// Camera viewport used when no player is known
	ViewportHalfWidth float64 `yaml:"viewport_half_width"`
	ViewportHalfDepth float64 `yaml:"viewport_half_depth"`
	ViewportMargin    float64 `yaml:"viewport_margin"`
	// GridCellSize buckets static colliders
	GridCellSize float64 `yaml:"grid_cell_size"`
}

// Despawn holds the distance despawn loop parameters.
type Despawn struct {
	Interval         time.Duration `yaml:"interval"`
	Radius           float64       `yaml:"radius"`
	FadeDuration     time.Duration `yaml:"fade_duration"`
	RequireOffscreen bool          `yaml:"require_offscreen"`
	ViewHalfWidth    float64       `yaml:"view_half_width"`
	ViewHalfDepth    float64       `yaml:"view_half_depth"`
}

// Evolution holds gene pool parameters.
type Evolution struct {
	PoolSize         int           `yaml:"pool_size"`
	MutationRate     float64       `yaml:"mutation_rate"`
	MutationStrength float64       `yaml:"mutation_strength"`
	MaxMultiplier    float64       `yaml:"max_multiplier"`
	Interval         time.Duration `yaml:"interval"`
	MinSamples       int           `yaml:"min_samples"`
}

// Difficulty ramps enemy health and damage with session time.
type Difficulty struct {
	HealthPerMinute float64 `yaml:"health_per_minute"`
	DamagePerMinute float64 `yaml:"damage_per_minute"`
	Max             float64 `yaml:"max"`
}

// Persistence controls generation recording and warm start.
type Persistence struct {
	Enabled bool `yaml:"enabled"`
	// WarmStart seeds the first pool from the latest stored generation
	WarmStart bool `yaml:"warm_start"`
	QueueSize int  `yaml:"queue_size"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// Default returns Server config with sensible defaults.
func Default() Server {
	solver := spawn.DefaultSolverConfig()
	safety := spawn.DefaultSafetyConfig()
	despawn := spawn.DefaultDespawnConfig()
	evo := genetic.DefaultConfig()

	return Server{
		LogLevel:  "info",
		Mode:      "single",
		TickRate:  50 * time.Millisecond,
		WavesPath: "config/waves.yaml",
		Replication: Replication{
			TCPAddress:       "0.0.0.0:7780",
			WSAddress:        "0.0.0.0:7781",
			HostAddress:      "127.0.0.1:7780",
			SendQueueSize:    256,
			CommandQueueSize: 1024,
		},
		Spawn: Spawn{
			MinSpread:              solver.MinSpread,
			VisibilityBuffer:       solver.VisibilityBuffer,
			SideMargin:             solver.SideMargin,
			MinDistanceFromPlayers: safety.MinDistanceFromPlayers,
			CheckRadius:            safety.CheckRadius,
			MaxAttempts:            safety.MaxAttempts,
			ImbalanceThreshold:     spawn.DefaultBalancerConfig().ImbalanceThreshold,
			ViewportHalfWidth:      20,
			ViewportHalfDepth:      12,
			ViewportMargin:         2,
			GridCellSize:           16,
		},
		Despawn: Despawn{
			Interval:         despawn.Interval,
			Radius:           despawn.Radius,
			FadeDuration:     despawn.FadeDuration,
			RequireOffscreen: despawn.RequireOffscreen,
			ViewHalfWidth:    despawn.ViewHalfWidth,
			ViewHalfDepth:    despawn.ViewHalfDepth,
		},
		Evolution: Evolution{
			PoolSize:         evo.PoolSize,
			MutationRate:     evo.MutationRate,
			MutationStrength: evo.MutationStrength,
			MaxMultiplier:    evo.MaxMultiplier,
			Interval:         evo.Interval,
			MinSamples:       evo.MinSamples,
		},
		Difficulty: Difficulty{
			Max: 1,
		},
		Database: DatabaseConfig{
			Host:     "127.0.0.1",
			Port:     5432,
			User:     "horde",
			Password: "horde",
			DBName:   "horde",
			SSLMode:  "disable",
		},
		Persistence: Persistence{
			QueueSize: 16,
		},
	}
}

// Load loads server config from a YAML file.
// If the file doesn't exist, returns defaults.
func Load(path string) (Server, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// Path returns the config path from HORDE_CONFIG, or fallback.
func Path(fallback string) string {
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	return fallback
}

// SolverConfig converts the spawn section for spawn.NewSolver.
func (s Spawn) SolverConfig() spawn.SolverConfig {
	return spawn.SolverConfig{
		MinSpread:        s.MinSpread,
		VisibilityBuffer: s.VisibilityBuffer,
		SideMargin:       s.SideMargin,
	}
}

// SafetyConfig converts the spawn section for spawn.NewValidator.
func (s Spawn) SafetyConfig() spawn.SafetyConfig {
	return spawn.SafetyConfig{
		MinDistanceFromPlayers: s.MinDistanceFromPlayers,
		CheckRadius:            s.CheckRadius,
		MaxAttempts:            s.MaxAttempts,
	}
}

// BalancerConfig converts the spawn section for spawn.NewBalancer.
func (s Spawn) BalancerConfig() spawn.BalancerConfig {
	return spawn.BalancerConfig{ImbalanceThreshold: s.ImbalanceThreshold}
}

// DespawnConfig converts the despawn section.
func (d Despawn) DespawnConfig() spawn.DespawnConfig {
	return spawn.DespawnConfig{
		Interval:         d.Interval,
		Radius:           d.Radius,
		FadeDuration:     d.FadeDuration,
		RequireOffscreen: d.RequireOffscreen,
		ViewHalfWidth:    d.ViewHalfWidth,
		ViewHalfDepth:    d.ViewHalfDepth,
	}
}

// EngineConfig converts the evolution section; seed is shared with spawning.
func (e Evolution) EngineConfig(seed uint64) genetic.Config {
	return genetic.Config{
		PoolSize:         e.PoolSize,
		MutationRate:     e.MutationRate,
		MutationStrength: e.MutationStrength,
		MaxMultiplier:    e.MaxMultiplier,
		Interval:         e.Interval,
		MinSamples:       e.MinSamples,
		Seed:             seed,
	}
}

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"

	"github.com/udisondev/horde/internal/model"
	"github.com/udisondev/horde/internal/world"
)

var (
	ErrNoArchetypes = errors.New("no archetypes defined")
	ErrNoWaves      = errors.New("no waves defined")
)

// ContentFile is the authored archetype/wave/obstacle document.
type ContentFile struct {
	Archetypes []ArchetypeDef `yaml:"archetypes" json:"archetypes" jsonschema:"required,minItems=1"`
	Waves      []WaveDef      `yaml:"waves" json:"waves" jsonschema:"required"`
	Obstacles  []ObstacleDef  `yaml:"obstacles,omitempty" json:"obstacles,omitempty"`
}

// ArchetypeDef describes one enemy template.
type ArchetypeDef struct {
	ID           string  `yaml:"id" json:"id" jsonschema:"required,minLength=1"`
	Name         string  `yaml:"name" json:"name,omitempty"`
	BoundsRadius float64 `yaml:"bounds_radius" json:"bounds_radius" jsonschema:"minimum=0"`
	BaseHealth   float64 `yaml:"base_health" json:"base_health" jsonschema:"required,exclusiveMinimum=0"`
	BaseDamage   float64 `yaml:"base_damage" json:"base_damage" jsonschema:"minimum=0"`
	BaseSpeed    float64 `yaml:"base_speed" json:"base_speed" jsonschema:"minimum=0"`
}

// WaveDef describes one wave.
type WaveDef struct {
	Name              string         `yaml:"name" json:"name,omitempty"`
	Entries           []WaveEntryDef `yaml:"entries" json:"entries" jsonschema:"required"`
	TimeUntilNextWave Duration       `yaml:"time_until_next_wave" json:"time_until_next_wave" jsonschema:"required"`
	SpawnInterval     Duration       `yaml:"spawn_interval" json:"spawn_interval" jsonschema:"required"`
}

// WaveEntryDef is an (archetype, count) pair.
type WaveEntryDef struct {
	Archetype string `yaml:"archetype" json:"archetype" jsonschema:"required"`
	Count     int    `yaml:"count" json:"count" jsonschema:"required,minimum=1"`
}

// ObstacleDef is a static box collider.
type ObstacleDef struct {
	Center      [3]float64 `yaml:"center" json:"center" jsonschema:"required"`
	HalfExtents [3]float64 `yaml:"half_extents" json:"half_extents" jsonschema:"required"`
	Trigger     bool       `yaml:"trigger,omitempty" json:"trigger,omitempty"`
}

// Duration is a time.Duration written as "1.5s" in authored files.
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("line %d: duration must be a string: %w", node.Line, err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalYAML writes the duration string.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// JSONSchema describes the duration string format.
func (Duration) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "string",
		Pattern:     `^([0-9]+(\.[0-9]+)?(ns|us|ms|s|m|h))+$`,
		Description: "Go duration, e.g. \"500ms\" or \"1m30s\"",
	}
}

// Content is validated, ready-to-use authored data.
type Content struct {
	Archetypes map[string]model.Archetype
	Waves      []model.Wave
	Obstacles  []world.Collider
}

// LoadContent reads and validates an authored content file.
// Bad entries are skipped with a warning. An unreadable file or an empty
// archetype catalog is an error. No waves is ErrNoWaves, returned with the
// rest of the content so the caller can decide.
func LoadContent(path string) (Content, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Content{}, fmt.Errorf("reading content %s: %w", path, err)
	}

	var file ContentFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Content{}, fmt.Errorf("parsing content %s: %w", path, err)
	}

	content := file.Build()
	if len(content.Archetypes) == 0 {
		return content, fmt.Errorf("content %s: %w", path, ErrNoArchetypes)
	}
	if len(content.Waves) == 0 {
		return content, fmt.Errorf("content %s: %w", path, ErrNoWaves)
	}

	slog.Info("content loaded",
		"path", path,
		"archetypes", len(content.Archetypes),
		"waves", len(content.Waves),
		"obstacles", len(content.Obstacles))
	return content, nil
}

// Build converts the document into domain values.
func (f ContentFile) Build() Content {
	content := Content{
		Archetypes: make(map[string]model.Archetype, len(f.Archetypes)),
	}

	for _, def := range f.Archetypes {
		if def.ID == "" {
			slog.Warn("archetype skipped (empty id)", "name", def.Name)
			continue
		}
		if _, dup := content.Archetypes[def.ID]; dup {
			slog.Warn("archetype skipped (duplicate id)", "archetype", def.ID)
			continue
		}
		if def.BaseHealth <= 0 {
			slog.Warn("archetype skipped (non-positive health)", "archetype", def.ID, "health", def.BaseHealth)
			continue
		}
		name := def.Name
		if name == "" {
			name = def.ID
		}
		content.Archetypes[def.ID] = model.Archetype{
			ID:           def.ID,
			Name:         name,
			BoundsRadius: max(def.BoundsRadius, 0),
			BaseHealth:   def.BaseHealth,
			BaseDamage:   max(def.BaseDamage, 0),
			BaseSpeed:    max(def.BaseSpeed, 0),
		}
	}

	for i, def := range f.Waves {
		name := def.Name
		if name == "" {
			name = fmt.Sprintf("wave-%d", i+1)
		}
		if def.SpawnInterval <= 0 {
			slog.Warn("wave skipped (non-positive spawn interval)", "wave", name)
			continue
		}
		if def.TimeUntilNextWave < 0 {
			slog.Warn("wave skipped (negative pause)", "wave", name)
			continue
		}

		// entry-level problems are reported by the scheduler when the wave starts
		entries := make([]model.WaveEntry, 0, len(def.Entries))
		for _, e := range def.Entries {
			entries = append(entries, model.WaveEntry{ArchetypeID: e.Archetype, BaseCount: e.Count})
		}
		content.Waves = append(content.Waves, model.Wave{
			Name:              name,
			Entries:           entries,
			TimeUntilNextWave: time.Duration(def.TimeUntilNextWave),
			SpawnInterval:     time.Duration(def.SpawnInterval),
		})
	}

	for _, def := range f.Obstacles {
		half := model.NewVec3(def.HalfExtents[0], def.HalfExtents[1], def.HalfExtents[2])
		if half.X <= 0 || half.Y <= 0 || half.Z <= 0 {
			slog.Warn("obstacle skipped (non-positive extents)", "center", def.Center)
			continue
		}
		content.Obstacles = append(content.Obstacles, world.Collider{
			Center:      model.NewVec3(def.Center[0], def.Center[1], def.Center[2]),
			HalfExtents: half,
			Trigger:     def.Trigger,
		})
	}

	return content
}

// Geometry builds the static collision grid from the obstacles.
func (c Content) Geometry(cellSize float64) *world.Geometry {
	g := world.NewGeometry(cellSize)
	for _, o := range c.Obstacles {
		g.Add(o)
	}
	return g
}

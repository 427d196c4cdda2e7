package config

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/raytheonbbn/parliament-sub002/internal/engine"
	"github.com/raytheonbbn/parliament-sub002/internal/index/numeric"
	"github.com/raytheonbbn/parliament-sub002/internal/ir"
	"github.com/raytheonbbn/parliament-sub002/internal/optimize"
	"github.com/raytheonbbn/parliament-sub002/internal/solver"
)

//go:embed schema.cue
var schemaSource string

// DefaultFile is the configuration file name used when none is given.
const DefaultFile = "kbgraph.yaml"

// DefaultStore is the store path used when the file names none.
const DefaultStore = "kbgraph.db"

// Config is the on-disk configuration of a kbgraph instance.
type Config struct {
	Graph         string           `yaml:"graph"`
	Store         string           `yaml:"store"`
	MaxRows       int              `yaml:"max_rows"`
	PlanCacheSize int              `yaml:"plan_cache_size"`
	Optimizer     optimize.Options `yaml:"optimizer"`
	Solver        solver.Options   `yaml:"solver"`
	Indexes       []Index          `yaml:"indexes,omitempty"`

	// dir anchors relative paths; it is the directory of the loaded file.
	dir string
}

// Index declares one numeric index and the property functions it backs.
type Index struct {
	Name      string     `yaml:"name"`
	Predicate string     `yaml:"predicate"`
	Backend   string     `yaml:"backend,omitempty"`
	Dir       string     `yaml:"dir,omitempty"`
	Functions []Function `yaml:"functions,omitempty"`
}

// Function binds a property function URI to a comparison.
type Function struct {
	URI string `yaml:"uri"`
	Op  string `yaml:"op"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Graph:         engine.DefaultGraph,
		Store:         DefaultStore,
		MaxRows:       engine.DefaultMaxRows,
		PlanCacheSize: engine.DefaultPlanCacheSize,
		Optimizer:     optimize.DefaultOptions(),
		Solver:        solver.DefaultOptions(),
		dir:           ".",
	}
}

// Load reads path. A missing file yields the defaults anchored at the
// file's directory, so a later Save creates it.
func Load(path string) (*Config, error) {
	cfg := Default()
	cfg.dir = filepath.Dir(path)

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := Validate(data); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.check(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks raw YAML against the embedded schema.
func Validate(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	if doc == nil {
		return nil
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	v := schema.LookupPath(cue.ParsePath("#Config")).Unify(ctx.Encode(doc))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// check enforces the rules the schema cannot express.
func (c *Config) check() error {
	seen := make(map[string]bool)
	for _, idx := range c.Indexes {
		if seen[idx.Name] {
			return fmt.Errorf("duplicate index %q", idx.Name)
		}
		seen[idx.Name] = true
	}
	return nil
}

// Save writes the configuration to path.
func (c *Config) Save(path string) error {
	data, err := c.encode()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Check validates the configuration as it would be saved.
func (c *Config) Check() error {
	_, err := c.encode()
	return err
}

func (c *Config) encode() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	if err := Validate(data); err != nil {
		return nil, err
	}
	return data, nil
}

// Resolve anchors a relative path at the configuration's directory.
func (c *Config) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.dir, p)
}

// StorePath is the resolved store location.
func (c *Config) StorePath() string {
	return c.Resolve(c.Store)
}

// AddIndex appends idx, rejecting a duplicate name.
func (c *Config) AddIndex(idx Index) error {
	for _, existing := range c.Indexes {
		if existing.Name == idx.Name {
			return fmt.Errorf("index %q already configured", idx.Name)
		}
	}
	c.Indexes = append(c.Indexes, idx)
	return nil
}

// RemoveIndex drops the named index and reports whether it was present.
func (c *Config) RemoveIndex(name string) bool {
	for i, idx := range c.Indexes {
		if idx.Name == name {
			c.Indexes = append(c.Indexes[:i], c.Indexes[i+1:]...)
			return true
		}
	}
	return false
}

// EngineOptions translates the configuration into engine options.
func (c *Config) EngineOptions(logger *slog.Logger) []engine.Option {
	return []engine.Option{
		engine.WithLogger(logger),
		engine.WithGraph(c.Graph),
		engine.WithOptimizer(c.Optimizer),
		engine.WithSolver(c.Solver),
		engine.WithMaxRows(c.MaxRows),
		engine.WithPlanCacheSize(c.PlanCacheSize),
	}
}

// Definition converts idx for the engine. Badger directories are
// resolved against the configuration's directory.
func (c *Config) Definition(idx Index) engine.IndexDefinition {
	def := engine.IndexDefinition{
		Definition: numeric.Definition{
			Name:      idx.Name,
			Predicate: ir.NewURI(idx.Predicate),
			Backend:   idx.Backend,
			Dir:       c.Resolve(idx.Dir),
		},
	}
	for _, f := range idx.Functions {
		def.Functions = append(def.Functions, engine.FunctionDefinition{
			URI: ir.NewURI(f.URI),
			Op:  ir.CompareOp(f.Op),
		})
	}
	return def
}

// Definitions converts every configured index.
func (c *Config) Definitions() []engine.IndexDefinition {
	out := make([]engine.IndexDefinition, 0, len(c.Indexes))
	for _, idx := range c.Indexes {
		out = append(out, c.Definition(idx))
	}
	return out
}

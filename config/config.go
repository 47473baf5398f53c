// Package config handles clvm.toml project configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/chazu/clvm/asm"
	"github.com/chazu/clvm/vm"
)

// FileName is the configuration file looked up by Load and FindAndLoad.
const FileName = "clvm.toml"

// DefaultMaxCost is the cost ceiling used when none is configured.
const DefaultMaxCost = 11_000_000_000

// Config represents a clvm.toml configuration.
type Config struct {
	Run       Run            `toml:"run"`
	Operators map[string]int `toml:"operators"`
	Server    Server         `toml:"server"`
	Log       Log            `toml:"log"`

	// Dir is the directory containing the clvm.toml file (set at load time).
	Dir string `toml:"-"`
}

// Run configures evaluation.
type Run struct {
	MaxCost uint64 `toml:"max-cost"`
	Quote   *int   `toml:"quote"`
	Apply   *int   `toml:"apply"`
	// Strict rejects assembly symbols that match no keyword instead of
	// assembling them as text.
	Strict bool `toml:"strict"`
}

// Server configures the evaluation service.
type Server struct {
	Addr    string `toml:"addr"`
	Workers int    `toml:"workers"`
	AuditDB string `toml:"audit-db"`
}

// Log configures logging.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Default returns the configuration used when no clvm.toml exists.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Run.MaxCost == 0 {
		c.Run.MaxCost = DefaultMaxCost
	}
	if c.Run.Quote == nil {
		q := int(vm.QuoteOpcode)
		c.Run.Quote = &q
	}
	if c.Run.Apply == nil {
		a := int(vm.ApplyOpcode)
		c.Run.Apply = &a
	}
	if c.Server.Addr == "" {
		c.Server.Addr = "localhost:8546"
	}
	if c.Server.Workers <= 0 {
		c.Server.Workers = runtime.NumCPU()
	}
}

// Load parses a clvm.toml file from the given directory.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var c Config
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &c, nil
}

// FindAndLoad walks up from startDir to find a clvm.toml file,
// then loads and returns it. Returns nil if no file is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

// Validate checks opcode ranges and that no two keywords (quote, apply
// and every operator after overrides) share an opcode.
func (c *Config) Validate() error {
	if err := checkOpcode("quote", *c.Run.Quote); err != nil {
		return err
	}
	if err := checkOpcode("apply", *c.Run.Apply); err != nil {
		return err
	}
	for name, code := range c.Operators {
		if _, ok := vm.DefaultOpcodes[name]; !ok {
			return fmt.Errorf("[operators]: unknown operator %q", name)
		}
		if err := checkOpcode(name, code); err != nil {
			return fmt.Errorf("[operators]: %w", err)
		}
	}

	bound := map[byte]string{c.Quote(): "quote"}
	if *c.Run.Quote == *c.Run.Apply {
		return fmt.Errorf("quote and apply share opcode %d", *c.Run.Quote)
	}
	bound[c.Apply()] = "apply"
	ops := c.Opcodes()
	names := make([]string, 0, len(ops))
	for name := range ops {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		code := ops[name]
		if other, ok := bound[code]; ok {
			return fmt.Errorf("operator %q and %s share opcode %d", name, other, code)
		}
		bound[code] = fmt.Sprintf("operator %q", name)
	}
	return nil
}

func checkOpcode(name string, code int) error {
	if code < 0 || code > 0xff {
		return fmt.Errorf("opcode for %s out of range: %d", name, code)
	}
	return nil
}

// Quote returns the quote opcode.
func (c *Config) Quote() byte { return byte(*c.Run.Quote) }

// Apply returns the apply opcode.
func (c *Config) Apply() byte { return byte(*c.Run.Apply) }

// Opcodes returns the built-in operator table with overrides applied.
func (c *Config) Opcodes() map[string]byte {
	ops := make(map[string]byte, len(vm.DefaultOpcodes))
	for name, code := range vm.DefaultOpcodes {
		ops[name] = code
	}
	for name, code := range c.Operators {
		ops[name] = byte(code)
	}
	return ops
}

// Keywords returns the assembler keyword table for the configured opcodes.
func (c *Config) Keywords() asm.Keywords {
	return asm.KeywordsFor(c.Opcodes(), c.Quote(), c.Apply())
}

// Dialect builds the operator table for the configured opcodes.
func (c *Config) Dialect() (*vm.Dialect[vm.NodePtr], error) {
	d, err := vm.NewDialect[vm.NodePtr](c.Opcodes(), c.Quote(), c.Apply(), nil)
	if err != nil {
		return nil, fmt.Errorf("building dialect: %w", err)
	}
	return d, nil
}

// AuditDBPath returns the audit database path resolved against Dir, or ""
// when auditing is disabled.
func (c *Config) AuditDBPath() string {
	if c.Server.AuditDB == "" || filepath.IsAbs(c.Server.AuditDB) || c.Dir == "" {
		return c.Server.AuditDB
	}
	return filepath.Join(c.Dir, c.Server.AuditDB)
}

// LogPath returns the log file path resolved against Dir, or nil to log to
// stderr.
func (c *Config) LogPath() *string {
	if c.Log.File == "" {
		return nil
	}
	p := c.Log.File
	if !filepath.IsAbs(p) && c.Dir != "" {
		p = filepath.Join(c.Dir, p)
	}
	return &p
}

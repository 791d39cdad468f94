package model

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/encoding/yaml"
	yamlv3 "gopkg.in/yaml.v3"

	_ "embed"
)

const (
	LogStderr  = "stderr"
	LogStdout  = "stdout"
	LogDiscard = "discard"

	DefaultNmapPath = "nmap"
)

//go:embed config.cue
var cueSource []byte

var (
	cueCtx *cue.Context
	schema cue.Value
)

func init() {
	if len(cueSource) == 0 {
		panic("variable cueSource is empty")
	}
	cueCtx = cuecontext.New()
	compiled := cueCtx.CompileBytes(cueSource)
	if compiled.Err() != nil {
		panic(compiled.Err())
	}

	if err := compiled.Validate(); err != nil {
		panic(err)
	}

	schema = compiled.LookupPath(cue.ParsePath("#Config"))
	if schema.Err() != nil {
		panic(schema.Err())
	}
	if err := schema.Validate(); err != nil {
		panic(err)
	}
}

// Config is the content of osfp.yaml. It is loaded once at startup
// and never written back during a session.
type Config struct {
	NmapPath        string `json:"nmap_path" yaml:"nmap_path"`
	DefaultScanMode string `json:"default_scanmode" yaml:"default_scanmode"`
	Log             string `json:"log" yaml:"log"`
	Verbose         bool   `json:"verbose" yaml:"verbose"`
}

func DefaultConfig() Config {
	return Config{
		NmapPath:        DefaultNmapPath,
		DefaultScanMode: ScanModeQuick,
		Log:             LogDiscard,
		Verbose:         false,
	}
}

// LoadConfig validates YAML from r against CUE schema and decodes to Config.
// Missing keys get their schema defaults.
func LoadConfig(r io.Reader) (Config, error) {
	yamlFile, err := yaml.Extract("osfp.yaml", r)
	if err != nil {
		return Config{}, err
	}
	yamlValue := cueCtx.BuildFile(yamlFile)

	unified := schema.Unify(yamlValue)
	if err := unified.Validate(
		cue.All(),
		cue.Concrete(true),
	); err != nil {
		return Config{}, err
	}

	var out Config
	if err := unified.Decode(&out); err != nil {
		return Config{}, err
	}

	return out, nil
}

// StoreConfig writes cfg to path. The file appears either complete or
// not at all: content goes to a temporary file in the same directory
// which is renamed over path.
func StoreConfig(path string, cfg Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	f, err := os.CreateTemp(dir, ".osfp-*.yaml")
	if err != nil {
		return fmt.Errorf("creating temporary file in %s: %w", dir, err)
	}
	tmp := f.Name()
	defer func() {
		_ = os.Remove(tmp)
	}()

	enc := yamlv3.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		_ = f.Close()
		return fmt.Errorf("storing configuration: %w", err)
	}
	if err := enc.Close(); err != nil {
		_ = f.Close()
		return fmt.Errorf("storing configuration: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("syncing %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("renaming %s to %s: %w", tmp, path, err)
	}
	return nil
}

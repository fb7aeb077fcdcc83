// Package config is used to load the configuration file
package config

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"
)

const (
	// DefaultDataDirName is created in the user's home directory.
	DefaultDataDirName = ".il2cpp-decompile"
	// DefaultCacheDirName is created in the current working directory.
	DefaultCacheDirName = "il2cpp-decompile"
)

// Patterns are the glob patterns used to find installed tools, relative to the apps directory.
type Patterns struct {
	Dumper    string `json:"dumper,omitempty" yaml:"dumper,omitempty" mapstructure:"dumper" jsonschema:"description=Il2CppDumper executable relative to the apps directory"`
	Converter string `json:"converter,omitempty" yaml:"converter,omitempty" mapstructure:"converter" jsonschema:"description=header to Ghidra conversion script relative to the apps directory"`
	Java      string `json:"java,omitempty" yaml:"java,omitempty" mapstructure:"java" jsonschema:"description=java executable glob relative to the apps directory"`
	Ghidra    string `json:"ghidra,omitempty" yaml:"ghidra,omitempty" mapstructure:"ghidra" jsonschema:"description=pyghidraRun launcher glob relative to the apps directory"`
	Python    string `json:"python,omitempty" yaml:"python,omitempty" mapstructure:"python" jsonschema:"description=interpreter path relative to the managed virtual environment"`
}

// Config is the configuration struct
type Config struct {
	DataDir  string   `json:"data-dir,omitempty" yaml:"data-dir,omitempty" mapstructure:"data-dir" jsonschema:"description=directory holding the managed runtime and toolchain (default ~/.il2cpp-decompile)"`
	CacheDir string   `json:"cache-dir,omitempty" yaml:"cache-dir,omitempty" mapstructure:"cache-dir" jsonschema:"description=root of the fingerprint keyed work directories (default ./il2cpp-decompile)"`
	Python   string   `json:"python,omitempty" yaml:"python,omitempty" mapstructure:"python" jsonschema:"description=base python interpreter used to create the managed runtime"`
	Proxy    string   `json:"proxy,omitempty" yaml:"proxy,omitempty" mapstructure:"proxy" jsonschema:"description=HTTP/HTTPS proxy used for downloads"`
	Insecure bool     `json:"insecure,omitempty" yaml:"insecure,omitempty" mapstructure:"insecure" jsonschema:"description=do not verify TLS certificates when downloading"`
	Force    bool     `json:"force,omitempty" yaml:"force,omitempty" mapstructure:"force" jsonschema:"description=ignore an existing project and decompile again"`
	Verbose  bool     `json:"verbose,omitempty" yaml:"verbose,omitempty" mapstructure:"verbose"`
	Patterns Patterns `json:"patterns,omitempty" yaml:"patterns,omitempty" mapstructure:"patterns"`
}

// VenvDir is the managed python virtual environment.
func (c *Config) VenvDir() string { return filepath.Join(c.DataDir, "venv") }

// AppsDir is the toolchain installation root.
func (c *Config) AppsDir() string { return filepath.Join(c.DataDir, "apps") }

// LogsDir holds the per-day log files.
func (c *Config) LogsDir() string { return filepath.Join(c.DataDir, "logs") }

// ScriptsDir holds the bundled Ghidra scripts.
func (c *Config) ScriptsDir() string { return filepath.Join(c.DataDir, "scripts") }

// EnvFile is the dotenv file holding the download URLs.
func (c *Config) EnvFile() string { return filepath.Join(c.DataDir, ".env") }

// DefaultPatterns returns the tool patterns for goos.
func DefaultPatterns(goos string) Patterns {
	switch goos {
	case "windows":
		return Patterns{
			Dumper:    "Il2CppDumper/Il2CppDumper.exe",
			Converter: "Il2CppDumper/il2cpp_header_to_ghidra.py",
			Java:      "jdk-*/bin/java.exe",
			Ghidra:    "ghidra_*/support/pyghidraRun.bat",
			Python:    "Scripts/python.exe",
		}
	case "darwin":
		return Patterns{
			Dumper:    "Il2CppDumper/Il2CppDumper",
			Converter: "Il2CppDumper/il2cpp_header_to_ghidra.py",
			Java:      "jdk-*/Contents/Home/bin/java",
			Ghidra:    "ghidra_*/support/pyghidraRun",
			Python:    "bin/python",
		}
	default:
		return Patterns{
			Dumper:    "Il2CppDumper/Il2CppDumper",
			Converter: "Il2CppDumper/il2cpp_header_to_ghidra.py",
			Java:      "jdk-*/bin/java",
			Ghidra:    "ghidra_*/support/pyghidraRun",
			Python:    "bin/python",
		}
	}
}

func (p *Patterns) fill(def Patterns) {
	if p.Dumper == "" {
		p.Dumper = def.Dumper
	}
	if p.Converter == "" {
		p.Converter = def.Converter
	}
	if p.Java == "" {
		p.Java = def.Java
	}
	if p.Ghidra == "" {
		p.Ghidra = def.Ghidra
	}
	if p.Python == "" {
		p.Python = def.Python
	}
}

func (c *Config) verify() error {
	if c.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("config: failed to get user home directory: %v", err)
		}
		c.DataDir = filepath.Join(home, DefaultDataDirName)
	}
	if c.CacheDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("config: failed to get current working directory: %v", err)
		}
		c.CacheDir = filepath.Join(cwd, DefaultCacheDirName)
	}
	for _, dir := range []*string{&c.DataDir, &c.CacheDir} {
		abs, err := filepath.Abs(*dir)
		if err != nil {
			return fmt.Errorf("config: failed to get absolute path of %s: %v", *dir, err)
		}
		*dir = abs
	}
	if c.DataDir == c.CacheDir {
		return fmt.Errorf("config: data-dir and cache-dir cannot be the same directory (%s)", c.DataDir)
	}
	c.Patterns.fill(DefaultPatterns(runtime.GOOS))
	if c.Python == "" {
		c.Python = findPython()
	}
	return nil
}

func findPython() string {
	for _, name := range []string{"python3", "python", "py"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	return ""
}

// LoadConfig loads the configuration from viper
func LoadConfig() (*Config, error) {
	return Load(viper.GetViper())
}

// Load unmarshals and verifies the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var c *Config

	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal: %v", err)
	}
	if c == nil {
		c = &Config{}
	}

	if err := c.verify(); err != nil {
		return nil, fmt.Errorf("config: failed to verify: %v", err)
	}

	return c, nil
}

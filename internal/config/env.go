package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/apex/log"
	"github.com/caarlos0/env/v8"
	"github.com/spf13/viper"
)

// Environment variable names of the toolchain download URLs.
const (
	EnvDumperURL = "IL2CPPDECOMPILE_DOWNLOAD_URL_IL2CPPDUMPER"
	EnvJDKURL    = "IL2CPPDECOMPILE_DOWNLOAD_URL_JDK"
	EnvGhidraURL = "IL2CPPDECOMPILE_DOWNLOAD_URL_GHIDRA"
)

//go:embed static/.env.example
var envExample []byte

// ErrMissingDownloadURL is matched by every MissingURLError.
var ErrMissingDownloadURL = errors.New("missing download URL")

// MissingURLError is returned when a tool is not installed and no download URL is configured for it.
type MissingURLError struct {
	Tool string
	Key  string
}

func (e *MissingURLError) Error() string {
	return fmt.Sprintf("missing download URL for %s: set %s", e.Tool, e.Key)
}

func (e *MissingURLError) Is(target error) bool {
	return target == ErrMissingDownloadURL
}

// Downloads holds the toolchain download URLs.
type Downloads struct {
	Dumper string `env:"IL2CPPDECOMPILE_DOWNLOAD_URL_IL2CPPDUMPER"`
	JDK    string `env:"IL2CPPDECOMPILE_DOWNLOAD_URL_JDK"`
	Ghidra string `env:"IL2CPPDECOMPILE_DOWNLOAD_URL_GHIDRA"`
}

// LoadDownloads parses the download URLs from the process environment.
func LoadDownloads() (*Downloads, error) {
	var d Downloads
	if err := env.Parse(&d); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment: %w", err)
	}
	return &d, nil
}

// SeedEnvFile creates path from the bundled template if it does not exist yet.
// It returns true when the file was created.
func SeedEnvFile(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, envExample, 0o600); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return true, nil
}

// LoadEnvFile seeds (if needed) and reads the dotenv file at path into the
// process environment. Variables that are already set are left untouched.
func LoadEnvFile(path string) error {
	created, err := SeedEnvFile(path)
	if err != nil {
		return err
	}
	if created {
		log.WithField("file", path).Info("created configuration file from template")
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	for _, key := range v.AllKeys() {
		name := strings.ToUpper(key)
		if _, ok := os.LookupEnv(name); ok {
			continue
		}
		value := v.GetString(key)
		if value == "" {
			continue
		}
		if err := os.Setenv(name, value); err != nil {
			return fmt.Errorf("failed to set %s: %w", name, err)
		}
		log.WithField("key", name).Debug("loaded from env file")
	}
	return nil
}

package simfs

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tailscale/hujson"
)

// Config holds the process-wide configuration a [cmd/simfsctl] instance (or
// any embedder) loads once at startup (spec §9 "Global state": "Storage
// directory path is a process-wide constant set at initialisation; treat as
// injected configuration").
type Config struct {
	// StorageRoot is the directory under which per-subscriber cache
	// directories (<IMSI>-<phase>/) are created.
	StorageRoot string `json:"storage_root"` //nolint:tagliatelle // snake_case for config file

	// ForceUncacheable lists EF ids, as 4-hex-digit strings in either case
	// (e.g. "6f05"), that must always be treated as uncacheable (spec I4)
	// regardless of what access conditions the driver reports for them.
	// This is an operator escape hatch for cards that misreport access
	// bytes for a specific EF: rather than risk a stale ADM-looking file
	// being cached and never refreshed, the operator can pin it uncached.
	ForceUncacheable []string `json:"force_uncacheable,omitempty"` //nolint:tagliatelle
}

// ConfigSources tracks which config files were loaded, for diagnostics.
type ConfigSources struct {
	Global  string
	Project string
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		StorageRoot: ".simfs-cache",
	}
}

// ConfigFileName is the default project config file name.
const ConfigFileName = ".simfsctl.json"

var (
	errConfigFileNotFound    = errors.New("config file not found")
	errConfigFileRead        = errors.New("cannot read config file")
	errConfigInvalid         = errors.New("invalid config file")
	errStorageRootEmpty      = errors.New("storage_root cannot be empty")
	errForceUncacheableEntry = errors.New("force_uncacheable entry must be a 4-hex-digit EF id")
)

// getGlobalConfigPath returns $XDG_CONFIG_HOME/simfsctl/config.json, falling
// back to ~/.config/simfsctl/config.json. Returns "" if neither can be
// determined.
func getGlobalConfigPath(env []string) string {
	for _, e := range env {
		if after, ok := strings.CutPrefix(e, "XDG_CONFIG_HOME="); ok {
			return filepath.Join(after, "simfsctl", "config.json")
		}
	}

	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "simfsctl", "config.json")
	}

	home, err := os.UserHomeDir()
	if err == nil {
		return filepath.Join(home, ".config", "simfsctl", "config.json")
	}

	return ""
}

// LoadConfig loads configuration with the following precedence (highest
// wins): 1. defaults, 2. global user config, 3. project config file
// (.simfsctl.json or an explicit configPath), 4. CLI overrides.
func LoadConfig(
	workDir, configPath string, cliOverrides Config, hasStorageRootOverride bool, env []string,
) (Config, ConfigSources, error) {
	cfg := DefaultConfig()

	var sources ConfigSources

	globalCfg, globalPath, err := loadGlobalConfig(env)
	if err != nil {
		return Config{}, ConfigSources{}, err
	}

	sources.Global = globalPath
	cfg = mergeConfig(cfg, globalCfg)

	projectCfg, projectPath, err := loadProjectConfig(workDir, configPath)
	if err != nil {
		return Config{}, ConfigSources{}, err
	}

	sources.Project = projectPath
	cfg = mergeConfig(cfg, projectCfg)

	if hasStorageRootOverride {
		cfg.StorageRoot = cliOverrides.StorageRoot
	}

	if validateErr := validateConfig(cfg); validateErr != nil {
		return Config{}, ConfigSources{}, validateErr
	}

	return cfg, sources, nil
}

func loadGlobalConfig(env []string) (Config, string, error) {
	globalCfgPath := getGlobalConfigPath(env)
	if globalCfgPath == "" {
		return Config{}, "", nil
	}

	globalCfg, explicitEmpty, loaded, err := loadConfigFile(globalCfgPath, false)
	if err != nil {
		return Config{}, "", err
	}

	if !loaded {
		return Config{}, "", nil
	}

	if explicitEmpty["storage_root"] {
		return Config{}, "", fmt.Errorf("%w %s: %w", errConfigInvalid, globalCfgPath, errStorageRootEmpty)
	}

	return globalCfg, globalCfgPath, nil
}

func loadProjectConfig(workDir, configPath string) (Config, string, error) {
	var cfgFile string

	var mustExist bool

	if configPath != "" {
		cfgFile = configPath
		if !filepath.IsAbs(cfgFile) {
			cfgFile = filepath.Join(workDir, cfgFile)
		}

		mustExist = true

		if _, statErr := os.Stat(cfgFile); statErr != nil {
			return Config{}, "", fmt.Errorf("%w: %s", errConfigFileNotFound, configPath)
		}
	} else {
		cfgFile = filepath.Join(workDir, ConfigFileName)
		mustExist = false
	}

	fileCfg, explicitEmpty, loaded, err := loadConfigFile(cfgFile, mustExist)
	if err != nil {
		return Config{}, "", err
	}

	if !loaded {
		return Config{}, "", nil
	}

	if explicitEmpty["storage_root"] {
		return Config{}, "", fmt.Errorf("%w %s: %w", errConfigInvalid, cfgFile, errStorageRootEmpty)
	}

	return fileCfg, cfgFile, nil
}

func loadConfigFile(path string, mustExist bool) (Config, map[string]bool, bool, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is intentionally user-controlled
	if err != nil {
		if os.IsNotExist(err) && !mustExist {
			return Config{}, nil, false, nil
		}

		if mustExist {
			return Config{}, nil, false, fmt.Errorf("%w: %s", errConfigFileRead, path)
		}

		return Config{}, nil, false, nil
	}

	cfg, explicitEmpty, parseErr := parseConfig(data)
	if parseErr != nil {
		return Config{}, nil, false, fmt.Errorf("%w %s: %w", errConfigInvalid, path, parseErr)
	}

	return cfg, explicitEmpty, true, nil
}

func parseConfig(data []byte) (Config, map[string]bool, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, nil, fmt.Errorf("invalid JSONC: %w", err)
	}

	var cfg Config

	if unmarshalErr := json.Unmarshal(standardized, &cfg); unmarshalErr != nil {
		return Config{}, nil, fmt.Errorf("invalid JSON: %w", unmarshalErr)
	}

	var raw map[string]any

	_ = json.Unmarshal(standardized, &raw)

	explicitEmpty := make(map[string]bool)

	if val, exists := raw["storage_root"]; exists {
		if str, ok := val.(string); ok && str == "" {
			explicitEmpty["storage_root"] = true
		}
	}

	return cfg, explicitEmpty, nil
}

func mergeConfig(base, overlay Config) Config {
	if overlay.StorageRoot != "" {
		base.StorageRoot = overlay.StorageRoot
	}

	if overlay.ForceUncacheable != nil {
		base.ForceUncacheable = overlay.ForceUncacheable
	}

	return base
}

func validateConfig(cfg Config) error {
	if cfg.StorageRoot == "" {
		return errStorageRootEmpty
	}

	if _, err := cfg.ForceUncacheableEFIDs(); err != nil {
		return err
	}

	return nil
}

// ForceUncacheableEFIDs parses ForceUncacheable into EF ids, validating that
// every entry is exactly four hex digits (the same name format EF cache
// files are written with, per §6's on-disk layout).
func (cfg Config) ForceUncacheableEFIDs() ([]EFID, error) {
	ids := make([]EFID, 0, len(cfg.ForceUncacheable))

	for _, entry := range cfg.ForceUncacheable {
		if len(entry) != 4 {
			return nil, fmt.Errorf("%w: %q", errForceUncacheableEntry, entry)
		}

		v, err := strconv.ParseUint(entry, 16, 16)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", errForceUncacheableEntry, entry)
		}

		ids = append(ids, EFID(v))
	}

	return ids, nil
}

// FormatConfig returns cfg as formatted JSON, for the CLI's "config" command.
func FormatConfig(cfg Config) (string, error) {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to format config: %w", err)
	}

	return string(data), nil
}

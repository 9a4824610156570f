package main

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"voxelterrain/internal/config"
)

var errNoConfigPath = errors.New("no --config path supplied")

const (
	envConfigJSON    = "TERRAIN_CONFIG_JSON"
	envConfigYAMLB64 = "TERRAIN_CONFIG_YAML_B64"
)

// writeConfigFromEnv materializes a configuration handed over through the
// environment at cfgPath. It reports false when neither variable is set.
// Fields missing from the payload keep their defaults.
func writeConfigFromEnv(cfgPath string) (bool, error) {
	cfg, err := configFromEnv()
	if err != nil || cfg == nil {
		return false, err
	}
	// Without a path the payload would be dropped and defaults loaded instead.
	if cfgPath == "" {
		return false, fmt.Errorf("configuration provided through %s or %s: %w", envConfigJSON, envConfigYAMLB64, errNoConfigPath)
	}
	if err := cfg.Validate(); err != nil {
		return false, fmt.Errorf("validate config: %w", err)
	}

	if dir := filepath.Dir(cfgPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return false, fmt.Errorf("create config directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return false, fmt.Errorf("marshal config json: %w", err)
	}
	if err := os.WriteFile(cfgPath, data, 0o600); err != nil {
		return false, fmt.Errorf("write config file: %w", err)
	}
	return true, nil
}

// configFromEnv decodes the environment payload over the defaults. JSON wins
// when both variables are set; a nil config means neither is.
func configFromEnv() (*config.Config, error) {
	jsonPayload, yamlPayload := os.Getenv(envConfigJSON), os.Getenv(envConfigYAMLB64)
	cfg := config.Default()
	switch {
	case jsonPayload != "":
		if err := json.Unmarshal([]byte(jsonPayload), cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", envConfigJSON, err)
		}
	case yamlPayload != "":
		data, err := base64.StdEncoding.DecodeString(yamlPayload)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", envConfigYAMLB64, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", envConfigYAMLB64, err)
		}
	default:
		return nil, nil
	}
	return cfg, nil
}

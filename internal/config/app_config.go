package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/temirov/dirstat/internal/utils"
)

// LoadOptions controls how application configuration is discovered.
type LoadOptions struct {
	WorkingDirectory string
	ExplicitFilePath string
}

// ApplicationConfiguration holds defaults for the scan and load commands.
type ApplicationConfiguration struct {
	Scan    ScanConfiguration    `mapstructure:"scan"`
	Output  OutputConfiguration  `mapstructure:"output"`
	Cache   CacheConfiguration   `mapstructure:"cache"`
	Logging LoggingConfiguration `mapstructure:"logging"`
}

// ScanConfiguration mirrors dirtree.ScanConfig with optional fields.
type ScanConfiguration struct {
	CrossFileSystems  *bool    `mapstructure:"cross_filesystems"`
	OverflowGrouping  *bool    `mapstructure:"overflow_grouping"`
	OverflowThreshold *int     `mapstructure:"overflow_threshold" validate:"omitempty,min=1"`
	Exclude           []string `mapstructure:"exclude"`
	UseExcludeFile    *bool    `mapstructure:"use_ignore"`
}

// OutputConfiguration controls report rendering.
type OutputConfiguration struct {
	Format    string `mapstructure:"format" validate:"omitempty,oneof=raw json ndjson"`
	Depth     *int   `mapstructure:"depth" validate:"omitempty,min=0"`
	Clipboard *bool  `mapstructure:"clipboard"`
	Events    *bool  `mapstructure:"events"`
}

// CacheConfiguration names the cache file written after a scan.
type CacheConfiguration struct {
	File string `mapstructure:"file"`
}

// LoggingConfiguration selects the application log level.
type LoggingConfiguration struct {
	Level string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
}

// LoadApplicationConfiguration loads configuration from global and local files.
func LoadApplicationConfiguration(options LoadOptions) (ApplicationConfiguration, error) {
	workingDirectory := options.WorkingDirectory
	if workingDirectory == "" {
		currentDirectory, err := os.Getwd()
		if err != nil {
			return ApplicationConfiguration{}, fmt.Errorf("determine working directory: %w", err)
		}
		workingDirectory = currentDirectory
	}

	var merged ApplicationConfiguration

	if homeDirectory, err := os.UserHomeDir(); err == nil && homeDirectory != "" {
		globalPath := filepath.Join(homeDirectory, utils.GlobalConfigDirectoryName, utils.GlobalConfigFileName)
		globalConfig, loadErr := loadConfigurationFromPath(globalPath)
		if loadErr != nil {
			return ApplicationConfiguration{}, loadErr
		}
		merged = merged.Merge(globalConfig)
	}

	localPath, resolveErr := resolveLocalConfigPath(workingDirectory, options.ExplicitFilePath)
	if resolveErr != nil {
		return ApplicationConfiguration{}, resolveErr
	}
	if localPath != "" {
		localConfig, loadErr := loadConfigurationFromPath(localPath)
		if loadErr != nil {
			return ApplicationConfiguration{}, loadErr
		}
		merged = merged.Merge(localConfig)
	}

	merged.Scan.Exclude = utils.DeduplicatePatterns(merged.Scan.Exclude)

	if validationErr := Validate(&merged); validationErr != nil {
		return ApplicationConfiguration{}, validationErr
	}
	return merged, nil
}

func resolveLocalConfigPath(workingDirectory, explicitPath string) (string, error) {
	if explicitPath != "" {
		if filepath.IsAbs(explicitPath) {
			return explicitPath, nil
		}
		if workingDirectory == "" {
			absolute, err := filepath.Abs(explicitPath)
			if err != nil {
				return "", fmt.Errorf("resolve configuration path %s: %w", explicitPath, err)
			}
			return absolute, nil
		}
		return filepath.Join(workingDirectory, explicitPath), nil
	}
	if workingDirectory == "" {
		return "", nil
	}
	return filepath.Join(workingDirectory, utils.LocalConfigFileName), nil
}

func loadConfigurationFromPath(path string) (ApplicationConfiguration, error) {
	if path == "" {
		return ApplicationConfiguration{}, nil
	}
	info, statErr := os.Stat(path)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return ApplicationConfiguration{}, nil
		}
		return ApplicationConfiguration{}, fmt.Errorf("stat configuration %s: %w", path, statErr)
	}
	if info.IsDir() {
		return ApplicationConfiguration{}, fmt.Errorf("configuration path %s is a directory", path)
	}

	reader := viper.New()
	reader.SetConfigFile(path)
	reader.SetConfigType("yaml")
	if readErr := reader.ReadInConfig(); readErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("read configuration from %s: %w", path, readErr)
	}
	var config ApplicationConfiguration
	if decodeErr := reader.Unmarshal(&config); decodeErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("decode configuration from %s: %w", path, decodeErr)
	}
	return config, nil
}

// Merge overlays override onto the receiver returning the combined configuration.
func (config ApplicationConfiguration) Merge(override ApplicationConfiguration) ApplicationConfiguration {
	result := config
	result.Scan = result.Scan.merge(override.Scan)
	result.Output = result.Output.merge(override.Output)
	if override.Cache.File != "" {
		result.Cache.File = override.Cache.File
	}
	if override.Logging.Level != "" {
		result.Logging.Level = override.Logging.Level
	}
	return result
}

func (config ScanConfiguration) merge(override ScanConfiguration) ScanConfiguration {
	result := config
	if override.CrossFileSystems != nil {
		result.CrossFileSystems = cloneBool(override.CrossFileSystems)
	}
	if override.OverflowGrouping != nil {
		result.OverflowGrouping = cloneBool(override.OverflowGrouping)
	}
	if override.OverflowThreshold != nil {
		result.OverflowThreshold = cloneInt(override.OverflowThreshold)
	}
	if len(override.Exclude) > 0 {
		result.Exclude = append([]string{}, utils.DeduplicatePatterns(override.Exclude)...)
	}
	if override.UseExcludeFile != nil {
		result.UseExcludeFile = cloneBool(override.UseExcludeFile)
	}
	return result
}

func (config OutputConfiguration) merge(override OutputConfiguration) OutputConfiguration {
	result := config
	if override.Format != "" {
		result.Format = override.Format
	}
	if override.Depth != nil {
		result.Depth = cloneInt(override.Depth)
	}
	if override.Clipboard != nil {
		result.Clipboard = cloneBool(override.Clipboard)
	}
	if override.Events != nil {
		result.Events = cloneBool(override.Events)
	}
	return result
}

func cloneBool(value *bool) *bool {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}

func cloneInt(value *int) *int {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}

// Package config loads lc defaults from global and local YAML files.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/TwoAbove/lc/internal/ignore"
	"github.com/TwoAbove/lc/internal/tokenizer"
	"github.com/TwoAbove/lc/internal/utils"
)

const (
	workingDirectoryErrorFormat = "determine working directory: %w"
	resolvePathErrorFormat      = "resolve configuration path %s: %w"
	statErrorFormat             = "stat configuration %s: %w"
	directoryPathErrorFormat    = "configuration path %s is a directory"
	readErrorFormat             = "read configuration from %s: %w"
	decodeErrorFormat           = "decode configuration from %s: %w"
	invalidValueErrorFormat     = "configuration value %s must not be negative, got %d"
)

// LoadOptions controls how application configuration is discovered.
type LoadOptions struct {
	WorkingDirectory string
	ExplicitFilePath string
	// HomeDirectory overrides the directory holding the global configuration.
	HomeDirectory string
}

// ApplicationConfiguration mirrors the YAML file. Unset keys stay nil or empty
// so that a local file only overrides what it names.
type ApplicationConfiguration struct {
	TokenLimit    *int              `mapstructure:"token_limit" yaml:"token_limit"`
	DirectoryOnly *bool             `mapstructure:"directory_only" yaml:"directory_only"`
	Model         string            `mapstructure:"model" yaml:"model"`
	Concurrency   *int              `mapstructure:"concurrency" yaml:"concurrency"`
	Output        string            `mapstructure:"output" yaml:"output"`
	Paths         PathConfiguration `mapstructure:"paths" yaml:"paths"`
}

// PathConfiguration configures which paths a snapshot skips.
type PathConfiguration struct {
	IgnoreFile      string   `mapstructure:"ignore_file" yaml:"ignore_file"`
	UseGitignore    *bool    `mapstructure:"use_gitignore" yaml:"use_gitignore"`
	UseGlobalIgnore *bool    `mapstructure:"use_global_ignore" yaml:"use_global_ignore"`
	DefaultIgnores  []string `mapstructure:"default_ignores" yaml:"default_ignores"`
	Exclude         []string `mapstructure:"exclude" yaml:"exclude"`
}

// Settings is a fully resolved configuration with defaults applied.
type Settings struct {
	TokenLimit      int
	DirectoryOnly   bool
	Model           string
	Concurrency     int
	Output          string
	IgnoreFileName  string
	UseGitignore    bool
	UseGlobalIgnore bool
	DefaultIgnores  []string
	Exclude         []string
}

// DefaultConfiguration returns the built-in defaults in file form.
func DefaultConfiguration() ApplicationConfiguration {
	return ApplicationConfiguration{
		TokenLimit:    intPointer(tokenizer.DefaultTokenLimit),
		DirectoryOnly: boolPointer(false),
		Model:         tokenizer.DefaultEncodingName,
		Concurrency:   intPointer(0),
		Paths: PathConfiguration{
			IgnoreFile:      utils.ToolIgnoreFileName,
			UseGitignore:    boolPointer(true),
			UseGlobalIgnore: boolPointer(true),
			DefaultIgnores:  append([]string{}, ignore.DefaultPatterns...),
			Exclude:         []string{},
		},
	}
}

// LoadApplicationConfiguration loads the global file and then the local or
// explicit file, the latter taking precedence key by key.
func LoadApplicationConfiguration(options LoadOptions) (ApplicationConfiguration, error) {
	workingDirectory := options.WorkingDirectory
	if workingDirectory == "" {
		currentDirectory, err := os.Getwd()
		if err != nil {
			return ApplicationConfiguration{}, fmt.Errorf(workingDirectoryErrorFormat, err)
		}
		workingDirectory = currentDirectory
	}

	var merged ApplicationConfiguration

	homeDirectory := options.HomeDirectory
	if homeDirectory == "" {
		if resolvedHome, err := os.UserHomeDir(); err == nil {
			homeDirectory = resolvedHome
		}
	}
	if homeDirectory != "" {
		globalConfig, loadErr := loadConfigurationFromPath(GlobalConfigurationPath(homeDirectory))
		if loadErr != nil {
			return ApplicationConfiguration{}, loadErr
		}
		merged = merged.Merge(globalConfig)
	}

	localPath, resolveErr := resolveLocalConfigPath(workingDirectory, options.ExplicitFilePath)
	if resolveErr != nil {
		return ApplicationConfiguration{}, resolveErr
	}
	localConfig, loadErr := loadConfigurationFromPath(localPath)
	if loadErr != nil {
		return ApplicationConfiguration{}, loadErr
	}
	merged = merged.Merge(localConfig)

	merged.Paths.Exclude = utils.DeduplicatePatterns(merged.Paths.Exclude)
	return merged, nil
}

// GlobalConfigurationPath returns the global configuration file below homeDirectory.
func GlobalConfigurationPath(homeDirectory string) string {
	return filepath.Join(homeDirectory, utils.GlobalConfigDirectoryName, utils.ConfigFileName)
}

func resolveLocalConfigPath(workingDirectory, explicitPath string) (string, error) {
	if explicitPath == "" {
		return filepath.Join(workingDirectory, utils.ConfigFileName), nil
	}
	if filepath.IsAbs(explicitPath) {
		return explicitPath, nil
	}
	if workingDirectory == "" {
		absolute, err := filepath.Abs(explicitPath)
		if err != nil {
			return "", fmt.Errorf(resolvePathErrorFormat, explicitPath, err)
		}
		return absolute, nil
	}
	return filepath.Join(workingDirectory, explicitPath), nil
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
		return ApplicationConfiguration{}, fmt.Errorf(statErrorFormat, path, statErr)
	}
	if info.IsDir() {
		return ApplicationConfiguration{}, fmt.Errorf(directoryPathErrorFormat, path)
	}

	reader := viper.New()
	reader.SetConfigFile(path)
	reader.SetConfigType("yaml")
	if readErr := reader.ReadInConfig(); readErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf(readErrorFormat, path, readErr)
	}
	var config ApplicationConfiguration
	if decodeErr := reader.Unmarshal(&config); decodeErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf(decodeErrorFormat, path, decodeErr)
	}
	return config, nil
}

// Merge overlays override onto the receiver returning the combined configuration.
func (config ApplicationConfiguration) Merge(override ApplicationConfiguration) ApplicationConfiguration {
	result := config
	if override.TokenLimit != nil {
		result.TokenLimit = cloneInt(override.TokenLimit)
	}
	if override.DirectoryOnly != nil {
		result.DirectoryOnly = cloneBool(override.DirectoryOnly)
	}
	if override.Model != "" {
		result.Model = override.Model
	}
	if override.Concurrency != nil {
		result.Concurrency = cloneInt(override.Concurrency)
	}
	if override.Output != "" {
		result.Output = override.Output
	}
	result.Paths = result.Paths.merge(override.Paths)
	return result
}

func (config PathConfiguration) merge(override PathConfiguration) PathConfiguration {
	result := config
	if override.IgnoreFile != "" {
		result.IgnoreFile = override.IgnoreFile
	}
	if override.UseGitignore != nil {
		result.UseGitignore = cloneBool(override.UseGitignore)
	}
	if override.UseGlobalIgnore != nil {
		result.UseGlobalIgnore = cloneBool(override.UseGlobalIgnore)
	}
	if override.DefaultIgnores != nil {
		result.DefaultIgnores = append([]string{}, override.DefaultIgnores...)
	}
	if len(override.Exclude) > 0 {
		result.Exclude = append([]string{}, utils.DeduplicatePatterns(override.Exclude)...)
	}
	return result
}

// Resolve applies the built-in defaults to every unset key.
func (config ApplicationConfiguration) Resolve() (Settings, error) {
	resolved := DefaultConfiguration().Merge(config)
	if *resolved.TokenLimit < 0 {
		return Settings{}, fmt.Errorf(invalidValueErrorFormat, "token_limit", *resolved.TokenLimit)
	}
	if *resolved.Concurrency < 0 {
		return Settings{}, fmt.Errorf(invalidValueErrorFormat, "concurrency", *resolved.Concurrency)
	}
	return Settings{
		TokenLimit:      *resolved.TokenLimit,
		DirectoryOnly:   *resolved.DirectoryOnly,
		Model:           resolved.Model,
		Concurrency:     *resolved.Concurrency,
		Output:          resolved.Output,
		IgnoreFileName:  resolved.Paths.IgnoreFile,
		UseGitignore:    *resolved.Paths.UseGitignore,
		UseGlobalIgnore: *resolved.Paths.UseGlobalIgnore,
		DefaultIgnores:  resolved.Paths.DefaultIgnores,
		Exclude:         utils.DeduplicatePatterns(resolved.Paths.Exclude),
	}, nil
}

func boolPointer(value bool) *bool {
	return &value
}

func intPointer(value int) *int {
	return &value
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

package config

import (
	_ "embed"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

var (
	//go:embed default/config.yaml
	defaultConfigData []byte
)

const (
	ConfigurationName = "config.yaml"
	HistoryName       = "history"
	EventLogName      = "events.log"
)

// Configuration holds the shell's settings, loaded from a config
// directory.
type Configuration struct {
	configFs  afero.Fs
	configDir string

	// Prompt is the prompt format; \t, \u, \h, \w and \$ expand to the
	// time, user, host, working directory and privilege marker.
	Prompt string `json:"prompt" validate:"required"`

	// Color controls prompt and notice coloring.
	Color string `json:"color" validate:"oneof=always auto never"`

	// HistoryLimit caps the number of entries in the history file.
	HistoryLimit int `json:"history_limit" validate:"gte=0"`

	// EventLog enables the JSON-lines event log in the config
	// directory.
	EventLog bool `json:"event_log"`
}

// Validate the configuration for basic semantic errors.
func (c *Configuration) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		return name
	})

	return validate.Struct(c)
}

func (c *Configuration) fs() afero.Fs {
	if c.configFs == nil {
		c.configFs = afero.NewBasePathFs(afero.NewOsFs(), c.configDir)
	}
	return c.configFs
}

// HistoryPath is the location of the readline history file. It is
// empty when the configuration isn't backed by a directory, which
// disables history persistence.
func (c *Configuration) HistoryPath() string {
	if c.configDir == "" {
		return ""
	}
	return filepath.Join(c.configDir, HistoryName)
}

// OpenEventLog opens the event log in an append only state.
func (c *Configuration) OpenEventLog() (afero.File, error) {
	return c.fs().OpenFile(EventLogName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
}

func defaultConfig() *Configuration {
	var out Configuration
	if err := yaml.UnmarshalStrict(defaultConfigData, &out); err != nil {
		panic(err)
	}
	return &out
}

// Default returns the built-in configuration backed by an in-memory
// filesystem, used when no config directory exists.
func Default() *Configuration {
	out := defaultConfig()
	out.configFs = afero.NewMemMapFs()
	return out
}

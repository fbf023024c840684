// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package config loads process settings from the environment.
//
// An optional .env file is read first; variables already present in the
// environment win over the file. Only the command line entry point and the
// workspace facade read a Config; everything below them takes plain
// parameters.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/poiesic/docchat/ai"
	"github.com/poiesic/docchat/core"
)

// DefaultEnvFile is loaded when no env file is named explicitly.
const DefaultEnvFile = ".env"

// Config holds the application configuration
type Config struct {
	// Directories
	DataDir     string `env:"DATA_DIR" envDefault:"data" validate:"required"`
	DBDir       string `env:"DB_DIR" envDefault:"db" validate:"required"`
	MetadataDir string `env:"METADATA_DIR" envDefault:"metadata" validate:"required"`

	// CollectionName namespaces the keys inside every partition.
	CollectionName string `env:"COLLECTION_NAME" envDefault:"assistant_db" validate:"required"`

	// Upstream AI
	Provider       string        `env:"AI_PROVIDER" envDefault:"gemini" validate:"oneof=gemini openai"`
	GoogleAPIKey   string        `env:"GOOGLE_API_KEY"`
	OpenAIHost     string        `env:"OPENAI_HOST"`
	OpenAIAPIKey   string        `env:"OPENAI_API_KEY"`
	EmbeddingModel string        `env:"EMBEDDING_MODEL"`
	ChatModel      string        `env:"CHAT_MODEL"`
	Temperature    float64       `env:"TEMPERATURE" envDefault:"0" validate:"gte=0,lte=2"`
	MaxRetries     int           `env:"MAX_RETRIES" envDefault:"2" validate:"gte=0"`
	RetryDelay     time.Duration `env:"RETRY_DELAY" envDefault:"1s" validate:"gte=0"`

	// Retrieval and chunking
	RetrievalK   int `env:"RETRIEVAL_K" envDefault:"3" validate:"gt=0"`
	ChunkSize    int `env:"CHUNK_SIZE" envDefault:"1000" validate:"gt=0"`
	ChunkOverlap int `env:"CHUNK_OVERLAP" envDefault:"100" validate:"gte=0"`

	// Ingestion
	UnidocLicenseKey string   `env:"UNIDOC_LICENSE_KEY"`
	DataSources      []string `env:"DATA_SOURCES" envSeparator:","`
	IngestSchedule   string   `env:"INGEST_SCHEDULE"`
	IngestWorkers    int      `env:"INGEST_WORKERS" envDefault:"1" validate:"gt=0"`

	// Web
	HTTPAddr   string        `env:"HTTP_ADDR" envDefault:":8080" validate:"required"`
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"1h" validate:"gt=0"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
}

// Load reads envFile (DefaultEnvFile when empty) if it exists, then parses
// and validates the environment. A missing default file is not an error;
// a missing file that was named explicitly is.
func Load(envFile string) (*Config, error) {
	explicit := envFile != ""
	if !explicit {
		envFile = DefaultEnvFile
	}
	if err := godotenv.Load(envFile); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, &core.ConfigurationError{Path: envFile, Err: err}
		}
	}
	return parse(env.Options{})
}

// FromMap builds a Config from vars alone, ignoring the process environment.
func FromMap(vars map[string]string) (*Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, &core.ConfigurationError{Err: err}
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))

	sources := c.DataSources[:0]
	for _, s := range c.DataSources {
		if s = strings.TrimSpace(s); s != "" {
			sources = append(sources, s)
		}
	}
	c.DataSources = sources
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their environment variable.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("env"), ",")
		if name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// Validate checks field ranges and the settings that depend on each other.
// Provider credentials are checked when the provider is created, so
// commands that never call upstream work without them.
func (c *Config) Validate() error {
	var problems []string

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return &core.ConfigurationError{Err: err}
		}
		for _, fe := range verrs {
			problems = append(problems, describe(fe))
		}
	}

	if c.ChunkOverlap >= c.ChunkSize {
		problems = append(problems, fmt.Sprintf("CHUNK_OVERLAP (%d) must be smaller than CHUNK_SIZE (%d)", c.ChunkOverlap, c.ChunkSize))
	}
	for _, s := range c.DataSources {
		if err := core.ValidateSourceName(s); err != nil {
			problems = append(problems, fmt.Sprintf("DATA_SOURCES: %v", err))
		}
	}

	if len(problems) > 0 {
		return &core.ConfigurationError{Err: errors.New(strings.Join(problems, "; "))}
	}
	return nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", fe.Field(), fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("%s must satisfy %s=%s, got %v", fe.Field(), fe.Tag(), fe.Param(), fe.Value())
	}
}

// AI returns the upstream provider settings. The API key is taken from
// the variable that belongs to the selected provider.
func (c *Config) AI() *ai.Config {
	opts := []ai.ConfigOption{
		ai.WithProvider(c.Provider),
		ai.WithTemperature(c.Temperature),
		ai.WithRetry(c.MaxRetries, c.RetryDelay),
	}
	switch c.Provider {
	case ai.ProviderOpenAI:
		opts = append(opts, ai.WithAPIKey(c.OpenAIAPIKey))
		if c.OpenAIHost != "" {
			opts = append(opts, ai.WithHost(c.OpenAIHost))
		}
	default:
		opts = append(opts, ai.WithAPIKey(c.GoogleAPIKey))
	}
	if c.EmbeddingModel != "" {
		opts = append(opts, ai.WithEmbeddingModel(c.EmbeddingModel))
	}
	if c.ChatModel != "" {
		opts = append(opts, ai.WithChatModel(c.ChatModel))
	}
	cfg := ai.NewConfig(opts...)
	cfg.Normalize()
	return cfg
}

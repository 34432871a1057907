// Package config provides configuration loading and structs for doctopics.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable that overrides the config path.
const EnvConfigPath = "DOCTOPICS_CONFIG"

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Corpus     CorpusConfig     `yaml:"corpus"`
	BOW        BOWConfig        `yaml:"bow"`
	Topics     TopicsConfig     `yaml:"topics"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Similarity SimilarityConfig `yaml:"similarity"`
	Cluster    ClusterConfig    `yaml:"cluster"`
	Storage    StorageConfig    `yaml:"storage"`
	Server     ServerConfig     `yaml:"server"`
	Watch      WatchConfig      `yaml:"watch"`
}

// CorpusConfig describes where documents are loaded from. Each first-level
// subdirectory of a corpus directory is a category.
type CorpusConfig struct {
	Directories  []string `yaml:"directories"`
	Categories   []string `yaml:"categories"`
	Extensions   []string `yaml:"extensions"`
	Recursive    *bool    `yaml:"recursive"`
	MaxDocuments int      `yaml:"max_documents"`
}

// RecursiveOrDefault returns whether to walk recursively; defaults to true when unset.
func (c *CorpusConfig) RecursiveOrDefault() bool {
	if c.Recursive != nil {
		return *c.Recursive
	}
	return true
}

// BOWConfig holds bag-of-words settings.
type BOWConfig struct {
	// StopWords is "english", "none" or a path to a file with one word per line.
	StopWords string `yaml:"stopwords"`
	MinDF     int    `yaml:"min_df"`
}

// TopicsConfig holds LDA settings.
type TopicsConfig struct {
	NumTopics int   `yaml:"num_topics"`
	Passes    int   `yaml:"passes"`
	Seed      int64 `yaml:"seed"`
	TopTerms  int   `yaml:"top_terms"`
	Workers   int   `yaml:"workers"`
}

// EmbeddingConfig selects and tunes the word-embedding source.
type EmbeddingConfig struct {
	Source       string  `yaml:"source"`
	Dimension    int     `yaml:"dimension"`
	Window       int     `yaml:"window"`
	MinCount     int     `yaml:"min_count"`
	Epochs       int     `yaml:"epochs"`
	Negative     int     `yaml:"negative"`
	LearningRate float64 `yaml:"learning_rate"`
	Seed         int64   `yaml:"seed"`
	VectorsPath  string  `yaml:"vectors_path"`
	ModelPath    string  `yaml:"model_path"`
	MaxTokens    int     `yaml:"max_tokens"`
	CacheSize    int     `yaml:"cache_size"`
}

// Embedding sources.
const (
	SourceTrain = "train"
	SourceText  = "text"
	SourceONNX  = "onnx"
)

// SimilarityConfig holds similarity matrix settings.
type SimilarityConfig struct {
	Workers int `yaml:"workers"`
}

// ClusterConfig holds k-means settings.
type ClusterConfig struct {
	K             int     `yaml:"k"`
	Seed          int64   `yaml:"seed"`
	MaxIterations int     `yaml:"max_iterations"`
	Tolerance     float64 `yaml:"tolerance"`
	Restarts      int     `yaml:"restarts"`
}

// StorageConfig holds paths for the database, keyword index and vocabulary.
type StorageConfig struct {
	DatabasePath   string `yaml:"database_path"`
	IndexPath      string `yaml:"index_path"`
	VocabularyPath string `yaml:"vocabulary_path"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// WatchConfig holds corpus watch settings.
type WatchConfig struct {
	DebounceMS int `yaml:"debounce_ms"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.ExpandPaths(filepath.Dir(path))

	return &cfg, nil
}

// Default returns a config with every default applied and paths relative to dir.
func Default(dir string) *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	cfg.ExpandPaths(dir)
	return cfg
}

// ExpandPaths rewrites relative paths against configDir.
func (c *Config) ExpandPaths(configDir string) {
	c.Storage.DatabasePath = expandPath(c.Storage.DatabasePath, configDir)
	c.Storage.IndexPath = expandPath(c.Storage.IndexPath, configDir)
	c.Storage.VocabularyPath = expandPath(c.Storage.VocabularyPath, configDir)
	if c.Embedding.VectorsPath != "" {
		c.Embedding.VectorsPath = expandPath(c.Embedding.VectorsPath, configDir)
	}
	if c.Embedding.ModelPath != "" {
		c.Embedding.ModelPath = expandPath(c.Embedding.ModelPath, configDir)
	}
	if c.BOW.StopWords != StopWordsEnglish && c.BOW.StopWords != StopWordsNone {
		c.BOW.StopWords = expandPath(c.BOW.StopWords, configDir)
	}
	for i := range c.Corpus.Directories {
		c.Corpus.Directories[i] = expandPath(c.Corpus.Directories[i], configDir)
	}
}

// Validate rejects settings no stage could run with.
func (c *Config) Validate() error {
	switch c.Embedding.Source {
	case SourceTrain, SourceText, SourceONNX:
	default:
		return fmt.Errorf("invalid embedding source %q", c.Embedding.Source)
	}
	if c.Embedding.Source == SourceText && c.Embedding.VectorsPath == "" {
		return fmt.Errorf("embedding source %q requires vectors_path", SourceText)
	}
	if c.Embedding.Source == SourceONNX && c.Embedding.ModelPath == "" {
		return fmt.Errorf("embedding source %q requires model_path", SourceONNX)
	}
	if c.Cluster.K < 0 {
		return fmt.Errorf("cluster k must be positive, got %d", c.Cluster.K)
	}
	if c.Topics.NumTopics < 0 {
		return fmt.Errorf("num_topics must be positive, got %d", c.Topics.NumTopics)
	}
	return nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}

// Package config handles configuration loading, validation, and hot
// reload for layoutd.
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// Version is the current configuration schema version.
const Version = 1

// Config holds the complete daemon configuration.
type Config struct {
	// Version is the configuration schema version.
	Version int `toml:"version" json:"version" yaml:"version"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`

	// Segmenter configuration for word buffering.
	Segmenter SegmenterConfig `toml:"segmenter" json:"segmenter" yaml:"segmenter"`

	// Classifier configuration for signal fusion.
	Classifier ClassifierConfig `toml:"classifier" json:"classifier" yaml:"classifier"`

	// Engine configuration for decision thresholds.
	Engine EngineConfig `toml:"engine" json:"engine" yaml:"engine"`

	// Learning configuration for the preference store.
	Learning LearningConfig `toml:"learning" json:"learning" yaml:"learning"`

	// Cache configuration, one section per signal type.
	Cache CacheConfig `toml:"cache" json:"cache" yaml:"cache"`

	// Scheduler configuration for the background pools.
	Scheduler SchedulerConfig `toml:"scheduler" json:"scheduler" yaml:"scheduler"`

	// Keyboard configuration for platform adapters.
	Keyboard KeyboardConfig `toml:"keyboard" json:"keyboard" yaml:"keyboard"`

	// IPC configuration for the control socket.
	IPC IPCConfig `toml:"ipc" json:"ipc" yaml:"ipc"`

	// Rules lists user rule files merged into the classifier tables.
	Rules RulesConfig `toml:"rules" json:"rules" yaml:"rules"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level    string `toml:"level" json:"level" yaml:"level"`
	Format   string `toml:"format" json:"format" yaml:"format"`
	Output   string `toml:"output" json:"output" yaml:"output"`
	FilePath string `toml:"file_path" json:"file_path" yaml:"file_path"`
}

// SegmenterConfig bounds the word buffer.
type SegmenterConfig struct {
	MaxWordLength int `toml:"max_word_length" json:"max_word_length" yaml:"max_word_length"`
	MaxHistory    int `toml:"max_history" json:"max_history" yaml:"max_history"`
}

// ClassifierConfig tunes the fusion signals.
type ClassifierConfig struct {
	EnableKnownWords bool    `toml:"enable_known_words" json:"enable_known_words" yaml:"enable_known_words"`
	EnablePatterns   bool    `toml:"enable_patterns" json:"enable_patterns" yaml:"enable_patterns"`
	EnableOracle     bool    `toml:"enable_oracle" json:"enable_oracle" yaml:"enable_oracle"`
	EnableLearned    bool    `toml:"enable_learned" json:"enable_learned" yaml:"enable_learned"`
	EnableNgram      bool    `toml:"enable_ngram" json:"enable_ngram" yaml:"enable_ngram"`
	EnableNeural     bool    `toml:"enable_neural" json:"enable_neural" yaml:"enable_neural"`
	EnableContext    bool    `toml:"enable_context" json:"enable_context" yaml:"enable_context"`
	RepeatThreshold  float64 `toml:"repeat_threshold" json:"repeat_threshold" yaml:"repeat_threshold"`
	NeuralFloor      float64 `toml:"neural_floor" json:"neural_floor" yaml:"neural_floor"`
	OracleTimeoutMS  int     `toml:"oracle_timeout_ms" json:"oracle_timeout_ms" yaml:"oracle_timeout_ms"`
	WordlistDir      string  `toml:"wordlist_dir" json:"wordlist_dir" yaml:"wordlist_dir"`
}

// EngineConfig tunes the decision thresholds.
type EngineConfig struct {
	MinWordLength       int     `toml:"min_word_length" json:"min_word_length" yaml:"min_word_length"`
	ConfidenceShort     float64 `toml:"confidence_short" json:"confidence_short" yaml:"confidence_short"`
	ConfidenceLong      float64 `toml:"confidence_long" json:"confidence_long" yaml:"confidence_long"`
	SuppressionSeconds  int     `toml:"suppression_seconds" json:"suppression_seconds" yaml:"suppression_seconds"`
	SuppressionWords    int     `toml:"suppression_words" json:"suppression_words" yaml:"suppression_words"`
	MaxRecursionDepth   int     `toml:"max_recursion_depth" json:"max_recursion_depth" yaml:"max_recursion_depth"`
	SwitchRetryAttempts int     `toml:"switch_retry_attempts" json:"switch_retry_attempts" yaml:"switch_retry_attempts"`
}

// LearningConfig tunes the preference store.
type LearningConfig struct {
	DecayRate          float64 `toml:"decay_rate" json:"decay_rate" yaml:"decay_rate"`
	StalenessDays      int     `toml:"staleness_days" json:"staleness_days" yaml:"staleness_days"`
	PersistMinutes     int     `toml:"persist_minutes" json:"persist_minutes" yaml:"persist_minutes"`
	MaxContextPatterns int     `toml:"max_context_patterns" json:"max_context_patterns" yaml:"max_context_patterns"`
	DatabasePath       string  `toml:"database_path" json:"database_path" yaml:"database_path"`
}

// CacheSection bounds one cache.
type CacheSection struct {
	MaxSize    int `toml:"max_size" json:"max_size" yaml:"max_size"`
	TTLSeconds int `toml:"ttl_seconds" json:"ttl_seconds" yaml:"ttl_seconds"`
}

// CacheConfig holds per-signal cache bounds.
type CacheConfig struct {
	Dictionary   CacheSection `toml:"dictionary" json:"dictionary" yaml:"dictionary"`
	Suggestions  CacheSection `toml:"suggestions" json:"suggestions" yaml:"suggestions"`
	Neural       CacheSection `toml:"neural" json:"neural" yaml:"neural"`
	SweepSeconds int          `toml:"sweep_seconds" json:"sweep_seconds" yaml:"sweep_seconds"`
}

// SchedulerConfig sets the pool ceilings.
type SchedulerConfig struct {
	HighWorkers   int `toml:"high_workers" json:"high_workers" yaml:"high_workers"`
	NormalWorkers int `toml:"normal_workers" json:"normal_workers" yaml:"normal_workers"`
	LowWorkers    int `toml:"low_workers" json:"low_workers" yaml:"low_workers"`
	QueueDepth    int `toml:"queue_depth" json:"queue_depth" yaml:"queue_depth"`
}

// KeyboardConfig configures the platform adapters.
type KeyboardConfig struct {
	// Engines maps language names to IBus engine identifiers on Linux.
	Engines map[string]string `toml:"engines" json:"engines" yaml:"engines"`
}

// IPCConfig configures the control socket.
type IPCConfig struct {
	Enabled    bool   `toml:"enabled" json:"enabled" yaml:"enabled"`
	SocketPath string `toml:"socket_path" json:"socket_path" yaml:"socket_path"`
}

// RulesConfig lists rule files.
type RulesConfig struct {
	Paths []string `toml:"paths" json:"paths" yaml:"paths"`
}

// Dir returns the layoutd state directory, creating nothing.
func Dir() string {
	if dir := os.Getenv("LAYOUTD_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".layoutd"
	}
	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Application Support", "layoutd")
	}
	return filepath.Join(home, ".layoutd")
}

// DefaultPath returns the default config file path.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.toml")
}

// SuppressionWindow returns the engine suppression duration.
func (c *Config) SuppressionWindow() time.Duration {
	return time.Duration(c.Engine.SuppressionSeconds) * time.Second
}

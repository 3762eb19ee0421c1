package config

import (
	"errors"
	"fmt"
)

// ValidationError reports a single invalid field.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s (got %v)", e.Field, e.Message, e.Value)
}

func invalid(field string, value any, msg string) error {
	return &ValidationError{Field: field, Value: value, Message: msg}
}

// Validate checks the configuration for internal consistency. All
// failures are joined so the user sees every problem at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Version != Version {
		errs = append(errs, invalid("version", c.Version, fmt.Sprintf("unsupported version, expected %d", Version)))
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, invalid("logging.level", c.Logging.Level, "must be debug, info, warn, or error"))
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		errs = append(errs, invalid("logging.format", c.Logging.Format, "must be text or json"))
	}
	switch c.Logging.Output {
	case "stdout", "stderr", "file":
	default:
		errs = append(errs, invalid("logging.output", c.Logging.Output, "must be stdout, stderr, or file"))
	}
	if c.Logging.Output == "file" && c.Logging.FilePath == "" {
		errs = append(errs, invalid("logging.file_path", "", "required when output is file"))
	}

	if c.Segmenter.MaxWordLength < 1 {
		errs = append(errs, invalid("segmenter.max_word_length", c.Segmenter.MaxWordLength, "must be positive"))
	}
	if c.Segmenter.MaxHistory < c.Segmenter.MaxWordLength {
		errs = append(errs, invalid("segmenter.max_history", c.Segmenter.MaxHistory, "must be at least max_word_length"))
	}

	if c.Classifier.RepeatThreshold < 0 {
		errs = append(errs, invalid("classifier.repeat_threshold", c.Classifier.RepeatThreshold, "must not be negative"))
	}
	if c.Classifier.NeuralFloor < 0 || c.Classifier.NeuralFloor > 1 {
		errs = append(errs, invalid("classifier.neural_floor", c.Classifier.NeuralFloor, "must be in [0, 1]"))
	}
	if c.Classifier.OracleTimeoutMS < 1 {
		errs = append(errs, invalid("classifier.oracle_timeout_ms", c.Classifier.OracleTimeoutMS, "must be positive"))
	}

	if c.Engine.MinWordLength < 1 {
		errs = append(errs, invalid("engine.min_word_length", c.Engine.MinWordLength, "must be positive"))
	}
	for name, v := range map[string]float64{
		"engine.confidence_short": c.Engine.ConfidenceShort,
		"engine.confidence_long":  c.Engine.ConfidenceLong,
	} {
		if v < 0 || v > 1 {
			errs = append(errs, invalid(name, v, "must be in [0, 1]"))
		}
	}
	if c.Engine.SuppressionSeconds < 0 {
		errs = append(errs, invalid("engine.suppression_seconds", c.Engine.SuppressionSeconds, "must not be negative"))
	}
	if c.Engine.SuppressionWords < 0 {
		errs = append(errs, invalid("engine.suppression_words", c.Engine.SuppressionWords, "must not be negative"))
	}
	if c.Engine.MaxRecursionDepth < 1 {
		errs = append(errs, invalid("engine.max_recursion_depth", c.Engine.MaxRecursionDepth, "must be positive"))
	}
	if c.Engine.SwitchRetryAttempts < 1 {
		errs = append(errs, invalid("engine.switch_retry_attempts", c.Engine.SwitchRetryAttempts, "must be positive"))
	}

	if c.Learning.DecayRate <= 0 || c.Learning.DecayRate > 1 {
		errs = append(errs, invalid("learning.decay_rate", c.Learning.DecayRate, "must be in (0, 1]"))
	}
	if c.Learning.StalenessDays < 1 {
		errs = append(errs, invalid("learning.staleness_days", c.Learning.StalenessDays, "must be positive"))
	}
	if c.Learning.PersistMinutes < 1 {
		errs = append(errs, invalid("learning.persist_minutes", c.Learning.PersistMinutes, "must be positive"))
	}
	if c.Learning.MaxContextPatterns < 1 {
		errs = append(errs, invalid("learning.max_context_patterns", c.Learning.MaxContextPatterns, "must be positive"))
	}

	for name, s := range map[string]CacheSection{
		"cache.dictionary":  c.Cache.Dictionary,
		"cache.suggestions": c.Cache.Suggestions,
		"cache.neural":      c.Cache.Neural,
	} {
		if s.MaxSize < 1 {
			errs = append(errs, invalid(name+".max_size", s.MaxSize, "must be positive"))
		}
		if s.TTLSeconds < 1 {
			errs = append(errs, invalid(name+".ttl_seconds", s.TTLSeconds, "must be positive"))
		}
	}
	if c.Cache.SweepSeconds < 1 {
		errs = append(errs, invalid("cache.sweep_seconds", c.Cache.SweepSeconds, "must be positive"))
	}

	for name, v := range map[string]int{
		"scheduler.high_workers":   c.Scheduler.HighWorkers,
		"scheduler.normal_workers": c.Scheduler.NormalWorkers,
		"scheduler.low_workers":    c.Scheduler.LowWorkers,
		"scheduler.queue_depth":    c.Scheduler.QueueDepth,
	} {
		if v < 1 {
			errs = append(errs, invalid(name, v, "must be positive"))
		}
	}

	if c.IPC.Enabled && c.IPC.SocketPath == "" {
		errs = append(errs, invalid("ipc.socket_path", "", "required when ipc is enabled"))
	}

	return errors.Join(errs...)
}

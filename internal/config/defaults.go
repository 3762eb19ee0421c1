package config

import "path/filepath"

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Version: Version,
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Segmenter: SegmenterConfig{
			MaxWordLength: 50,
			MaxHistory:    1000,
		},
		Classifier: ClassifierConfig{
			EnableKnownWords: true,
			EnablePatterns:   true,
			EnableOracle:     true,
			EnableLearned:    true,
			EnableNgram:      true,
			EnableNeural:     true,
			EnableContext:    true,
			RepeatThreshold:  2,
			NeuralFloor:      0.65,
			OracleTimeoutMS:  150,
		},
		Engine: EngineConfig{
			MinWordLength:       4,
			ConfidenceShort:     0.8,
			ConfidenceLong:      0.9,
			SuppressionSeconds:  5,
			SuppressionWords:    5,
			MaxRecursionDepth:   3,
			SwitchRetryAttempts: 3,
		},
		Learning: LearningConfig{
			DecayRate:          0.99,
			StalenessDays:      7,
			PersistMinutes:     5,
			MaxContextPatterns: 200,
			DatabasePath:       filepath.Join(Dir(), "learning.db"),
		},
		Cache: CacheConfig{
			Dictionary:   CacheSection{MaxSize: 4096, TTLSeconds: 3600},
			Suggestions:  CacheSection{MaxSize: 1024, TTLSeconds: 1800},
			Neural:       CacheSection{MaxSize: 2048, TTLSeconds: 900},
			SweepSeconds: 60,
		},
		Scheduler: SchedulerConfig{
			HighWorkers:   2,
			NormalWorkers: 4,
			LowWorkers:    8,
			QueueDepth:    64,
		},
		Keyboard: KeyboardConfig{
			Engines: map[string]string{},
		},
		IPC: IPCConfig{
			Enabled:    true,
			SocketPath: filepath.Join(Dir(), "layoutd.sock"),
		},
	}
}

package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.TokenMode == "" {
		cfg.Server.TokenMode = "off"
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "./agrafes/agrafes.db"
	}
	if cfg.Storage.IndexPath == "" {
		cfg.Storage.IndexPath = "./agrafes/index.bleve"
	}
	if cfg.Storage.RunsDir == "" {
		cfg.Storage.RunsDir = "./agrafes/runs"
	}
	if cfg.Ingest.DefaultFormat == "" {
		cfg.Ingest.DefaultFormat = "numbered-line"
	}
	if cfg.Ingest.DefaultRole == "" {
		cfg.Ingest.DefaultRole = "standalone"
	}
	if cfg.Query.DefaultLimit == 0 {
		cfg.Query.DefaultLimit = 50
	}
	if cfg.Query.MaxLimit == 0 {
		cfg.Query.MaxLimit = 200
	}
	if cfg.Query.DefaultWindow == 0 {
		cfg.Query.DefaultWindow = 10
	}
	if cfg.Alignment.DefaultStrategy == "" {
		cfg.Alignment.DefaultStrategy = "anchor"
	}
	if cfg.Alignment.DefaultSimThreshold == 0 {
		cfg.Alignment.DefaultSimThreshold = 0.8
	}
	if cfg.Job.RetentionCount == 0 {
		cfg.Job.RetentionCount = 100
	}
}

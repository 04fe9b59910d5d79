package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Census    CensusConfig    `yaml:"census" mapstructure:"census"`
	Tiger     TigerConfig     `yaml:"tiger" mapstructure:"tiger"`
	Gazetteer GazetteerConfig `yaml:"gazetteer" mapstructure:"gazetteer"`
	Paths     PathsConfig     `yaml:"paths" mapstructure:"paths"`
	Region    RegionConfig    `yaml:"region" mapstructure:"region"`
	Render    RenderConfig    `yaml:"render" mapstructure:"render"`
	Synth     SynthConfig     `yaml:"synth" mapstructure:"synth"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// CensusConfig configures the ACS and TIGERweb clients.
type CensusConfig struct {
	APIKey       string `yaml:"api_key" mapstructure:"api_key"`
	Year         int    `yaml:"year" mapstructure:"year"`
	BaseURL      string `yaml:"base_url" mapstructure:"base_url"`
	TigerWebURL  string `yaml:"tigerweb_url" mapstructure:"tigerweb_url"`
	TimeoutSecs  int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries   int    `yaml:"max_retries" mapstructure:"max_retries"`
	Concurrency  int    `yaml:"concurrency" mapstructure:"concurrency"`
	RequestsPerS int    `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
}

// TigerConfig configures TIGER/Line shapefile downloads.
type TigerConfig struct {
	Year    int    `yaml:"year" mapstructure:"year"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	TempDir string `yaml:"temp_dir" mapstructure:"temp_dir"`
}

// GazetteerConfig configures the ZIP gazetteer cache.
type GazetteerConfig struct {
	URL         string `yaml:"url" mapstructure:"url"`
	DBPath      string `yaml:"db_path" mapstructure:"db_path"`
	MemoTTLMins int    `yaml:"memo_ttl_mins" mapstructure:"memo_ttl_mins"`
}

// PathsConfig holds default input and output locations.
type PathsConfig struct {
	WorkDir   string `yaml:"work_dir" mapstructure:"work_dir"`
	OutputDir string `yaml:"output_dir" mapstructure:"output_dir"`
}

// RegionConfig points at an optional region definition file.
type RegionConfig struct {
	File string `yaml:"file" mapstructure:"file"`
}

// RenderConfig configures map rendering.
type RenderConfig struct {
	Tiles             string  `yaml:"tiles" mapstructure:"tiles"`
	ScaleFamily       string  `yaml:"scale_family" mapstructure:"scale_family"`
	SimplifyTolerance float64 `yaml:"simplify_tolerance" mapstructure:"simplify_tolerance"`
	SampleRate        int     `yaml:"sample_rate" mapstructure:"sample_rate"`
	DensityCap        float64 `yaml:"density_cap" mapstructure:"density_cap"`
	CellSize          float64 `yaml:"cell_size" mapstructure:"cell_size"`
	FillOpacity       float64 `yaml:"fill_opacity" mapstructure:"fill_opacity"`
}

// SynthConfig configures the synthetic data generator.
type SynthConfig struct {
	Seed int64 `yaml:"seed" mapstructure:"seed"`
}

// ServerConfig configures the preview server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment. An empty path searches
// the working directory for config.yaml.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Environment
	v.SetEnvPrefix("DEMOMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("census.api_key", "")
	v.SetDefault("census.year", 2022)
	v.SetDefault("census.base_url", "https://api.census.gov/data")
	v.SetDefault("census.tigerweb_url", "https://tigerweb.geo.census.gov/arcgis/rest/services/TIGERweb/Tracts_Blocks/MapServer/8/query")
	v.SetDefault("census.timeout_secs", 60)
	v.SetDefault("census.max_retries", 3)
	v.SetDefault("census.concurrency", 4)
	v.SetDefault("census.requests_per_sec", 5)
	v.SetDefault("tiger.year", 2022)
	v.SetDefault("tiger.base_url", "https://www2.census.gov/geo/tiger")
	v.SetDefault("tiger.temp_dir", "/tmp/demomap/tiger")
	v.SetDefault("gazetteer.url", "https://download.geonames.org/export/zip/US.zip")
	v.SetDefault("gazetteer.db_path", "demomap.db")
	v.SetDefault("gazetteer.memo_ttl_mins", 30)
	v.SetDefault("paths.work_dir", ".")
	v.SetDefault("paths.output_dir", "out")
	v.SetDefault("render.tiles", "cartodbpositron")
	v.SetDefault("render.scale_family", "strong")
	v.SetDefault("render.simplify_tolerance", 0.001)
	v.SetDefault("render.sample_rate", 1)
	v.SetDefault("render.density_cap", 10000)
	v.SetDefault("render.cell_size", 0.04)
	v.SetDefault("render.fill_opacity", 0.7)
	v.SetDefault("synth.seed", 42)
	v.SetDefault("server.port", 8080)

	// Read config file (optional when searching)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

// Validate checks the settings a command depends on. Problems are collected
// and reported together.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "fetch":
		if c.Census.Year < 2009 {
			problems = append(problems, "census.year must be 2009 or later")
		}
		if c.Census.Concurrency < 1 {
			problems = append(problems, "census.concurrency must be at least 1")
		}
	case "render":
		if c.Render.SampleRate < 1 {
			problems = append(problems, "render.sample_rate must be at least 1")
		}
		if c.Render.SimplifyTolerance < 0 {
			problems = append(problems, "render.simplify_tolerance must not be negative")
		}
		if c.Render.FillOpacity <= 0 || c.Render.FillOpacity > 1 {
			problems = append(problems, "render.fill_opacity must be in (0, 1]")
		}
	case "serve":
		if c.Server.Port < 1 || c.Server.Port > 65535 {
			problems = append(problems, "server.port must be between 1 and 65535")
		}
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

package config

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
)

// Config is the full application configuration.
type Config struct {
	Sheet    SheetConfig   `mapstructure:"sheet"`
	Cache    CacheConfig   `mapstructure:"cache"`
	Refresh  RefreshConfig `mapstructure:"refresh"`
	HTTP     HTTPConfig    `mapstructure:"http"`
	Geocode  GeocodeConfig `mapstructure:"geocode"`
	Map      MapConfig     `mapstructure:"map"`
	Census   CensusConfig  `mapstructure:"census"`
	Colors   ColorsConfig  `mapstructure:"colors"`
	Log      LogConfig     `mapstructure:"log"`
	Timezone string        `mapstructure:"timezone"`
	Port     string        `mapstructure:"port" validate:"required"`
}

// SheetConfig identifies the spreadsheet and its tabs. Leaving APIKey blank
// reads the public export instead of the values API.
type SheetConfig struct {
	ID          string `mapstructure:"id" validate:"required"`
	APIKey      string `mapstructure:"api_key"`
	ScheduleTab string `mapstructure:"schedule_tab" validate:"required"`
	TrackingTab string `mapstructure:"tracking_tab" validate:"required"`
	CensusTab   string `mapstructure:"census_tab" validate:"required"`
}

type CacheConfig struct {
	TTLMinutes int `mapstructure:"ttl_minutes" validate:"gte=0"`
}

type RefreshConfig struct {
	IntervalMS int `mapstructure:"interval_ms" validate:"gte=1000"`
}

type HTTPConfig struct {
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// GeocodeConfig selects and tunes the geocoding provider.
type GeocodeConfig struct {
	Provider    string        `mapstructure:"provider" validate:"oneof=nominatim google"`
	BaseURL     string        `mapstructure:"base_url" validate:"omitempty,url"`
	APIKey      string        `mapstructure:"api_key" validate:"required_if=Provider google"`
	UserAgent   string        `mapstructure:"user_agent"`
	Region      string        `mapstructure:"region"`
	MinInterval time.Duration `mapstructure:"min_interval" validate:"gte=0"`
}

// MapConfig is the initial view used before markers are fitted.
type MapConfig struct {
	CenterLat     float64 `mapstructure:"center_lat" validate:"latitude"`
	CenterLng     float64 `mapstructure:"center_lng" validate:"longitude"`
	Zoom          int     `mapstructure:"zoom" validate:"gte=0,lte=22"`
	BoundsPadding float64 `mapstructure:"bounds_padding" validate:"gte=0"`
}

type CensusConfig struct {
	GeoJSONPath string `mapstructure:"geojson_path"`
}

// ColorsConfig overrides individual palette colors; blanks keep the defaults.
type ColorsConfig struct {
	Today    string `mapstructure:"today"`
	Upcoming string `mapstructure:"upcoming"`
	Past     string `mapstructure:"past"`
	Tier1    string `mapstructure:"tier1"`
	Tier2    string `mapstructure:"tier2"`
	Tier3    string `mapstructure:"tier3"`
	Tier4    string `mapstructure:"tier4"`
	Unknown  string `mapstructure:"unknown"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

var validate = validator.New()

// CacheTTL is how long fetched datasets are served without refetching.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLMinutes) * time.Minute
}

// RefreshInterval is the period of the background refresh job.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.Refresh.IntervalMS) * time.Millisecond
}

// Location resolves Timezone; blank or "Local" means the host zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, eris.Wrapf(err, "config: load timezone %q", c.Timezone)
	}
	return loc, nil
}

// Load reads configuration from an optional .env file, an optional YAML
// file and the environment, in increasing precedence. file may be blank to
// look for ./config.yaml.
func Load(file string) (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	v := viper.New()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || file != "" {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: validate")
	}
	if _, err := cfg.Location(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("sheet.id", "")
	v.SetDefault("sheet.api_key", "")
	v.SetDefault("sheet.schedule_tab", "Van Schedule")
	v.SetDefault("sheet.tracking_tab", "Service Tracking")
	v.SetDefault("sheet.census_tab", "Census Tract Data")
	v.SetDefault("cache.ttl_minutes", 10)
	v.SetDefault("refresh.interval_ms", 300000)
	v.SetDefault("http.timeout", "15s")
	v.SetDefault("geocode.provider", "nominatim")
	v.SetDefault("geocode.base_url", "")
	v.SetDefault("geocode.api_key", "")
	v.SetDefault("geocode.user_agent", "")
	v.SetDefault("geocode.region", "Knox County, Maine")
	v.SetDefault("geocode.min_interval", "1s")
	v.SetDefault("map.center_lat", 44.1)
	v.SetDefault("map.center_lng", -69.1)
	v.SetDefault("map.zoom", 10)
	v.SetDefault("map.bounds_padding", 0.1)
	v.SetDefault("census.geojson_path", "")
	for _, k := range []string{"today", "upcoming", "past", "tier1", "tier2", "tier3", "tier4", "unknown"} {
		v.SetDefault("colors."+k, "")
	}
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("timezone", "Local")
	v.SetDefault("port", "8080")
}

package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Scene    SceneConfig    `mapstructure:"scene"`
	Trade    TradeConfig    `mapstructure:"trade"`
	Security SecurityConfig `mapstructure:"security"`
	Rules    RulesConfig    `mapstructure:"rules"`
}

type ServerConfig struct {
	Port    int    `mapstructure:"port"`
	Debug   bool   `mapstructure:"debug"`
	// HostKey guards the host routes that mint participant tokens. Empty disables them.
	HostKey string `mapstructure:"host_key"`
}

type DatabaseConfig struct {
	Mode         string        `mapstructure:"mode"` // sqlite | mysql
	SQLitePath   string        `mapstructure:"sqlite_path"`
	MySQLDSN     string        `mapstructure:"mysql_dsn"`
	MySQLMaxOpen int           `mapstructure:"mysql_max_open"`
	MySQLMaxIdle int           `mapstructure:"mysql_max_idle"`
	MySQLMaxLife time.Duration `mapstructure:"mysql_max_life"`
}

type CacheConfig struct {
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	LocalGCInterval time.Duration `mapstructure:"local_gc_interval"`
	LocalPubSubBuf  int           `mapstructure:"local_pubsub_buf"`
	CharacterTTL    time.Duration `mapstructure:"character_ttl"`
}

// SceneConfig describes the shared room this process attaches to.
type SceneConfig struct {
	RoomID      string  `mapstructure:"room_id"`
	CampaignID  string  `mapstructure:"campaign_id"`
	GridDPI     float64 `mapstructure:"grid_dpi"`
	Measurement string  `mapstructure:"measurement"` // chebyshev | euclidean | manhattan
	Transport   string  `mapstructure:"transport"`   // poll | pubsub
}

type TradeConfig struct {
	ProximityUnits       float64       `mapstructure:"proximity_units"`
	PollInterval         time.Duration `mapstructure:"poll_interval"`
	ClaimRefreshInterval time.Duration `mapstructure:"claim_refresh_interval"`
	CompareAndSwap       bool          `mapstructure:"compare_and_swap"`
}

type SecurityConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	JWTTTLH        time.Duration `mapstructure:"jwt_ttl_h"`
	RateLimitRPS   float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
}

// RulesConfig points at an optional YAML file replacing the built-in rule tables.
type RulesConfig struct {
	Path string `mapstructure:"path"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.debug", false)
	v.SetDefault("database.mode", "sqlite")
	v.SetDefault("database.sqlite_path", "./data/tabletrade.db")
	v.SetDefault("database.mysql_max_open", 20)
	v.SetDefault("database.mysql_max_idle", 5)
	v.SetDefault("database.mysql_max_life", "1h")
	v.SetDefault("cache.local_gc_interval", "30s")
	v.SetDefault("cache.local_pubsub_buf", 256)
	v.SetDefault("cache.character_ttl", "168h")
	v.SetDefault("scene.room_id", "default")
	v.SetDefault("scene.campaign_id", "default")
	v.SetDefault("scene.grid_dpi", 150)
	v.SetDefault("scene.measurement", "chebyshev")
	v.SetDefault("scene.transport", "poll")
	v.SetDefault("trade.proximity_units", 5)
	v.SetDefault("trade.poll_interval", "2s")
	v.SetDefault("trade.claim_refresh_interval", "5s")
	v.SetDefault("trade.compare_and_swap", true)
	v.SetDefault("security.jwt_ttl_h", "72h")
	v.SetDefault("security.rate_limit_rps", 50)
	v.SetDefault("security.rate_limit_burst", 100)
}

// Load reads config from the given YAML file path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration produced by the defaults alone.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	_ = v.Unmarshal(cfg)
	return cfg
}

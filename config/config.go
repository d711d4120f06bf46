// config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	envUsername          = "EARTHDATA_USERNAME"
	envPassword          = "EARTHDATA_PASSWORD"
	envDatabaseDriver    = "GNSS_DB_DRIVER"
	envDatabaseDSN       = "GNSS_DB_DSN"
	envLogLevel          = "GNSS_LOG_LEVEL"
	envIncludeRejections = "GNSS_LOG_REJECTIONS"
)

type ServerConfig struct {
	Port string `yaml:"port"`
}

// DatabaseConfig selects the optional SQL sink. An empty driver disables it.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // "mysql" or "sqlite"
	DSN      string `yaml:"dsn"`    // used as-is when set
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
}

type CredentialsConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type ArchiveConfig struct {
	CDDISBaseURL string        `yaml:"cddis_base_url"`
	TimeoutStr   string        `yaml:"timeout"`
	Timeout      time.Duration `yaml:"-"` // Parsed duration
}

type ProductConfig struct {
	Enabled bool     `yaml:"enabled"`
	Prefix  string   `yaml:"prefix"`
	Suffix  string   `yaml:"suffix"`
	Hours   []string `yaml:"hours"`
}

type ProductsConfig struct {
	Orbit ProductConfig `yaml:"orbit"`
	Ionex ProductConfig `yaml:"ionex"`
}

// IonexLayoutConfig holds the header line positions of the epoch fields.
type IonexLayoutConfig struct {
	FirstMapLine   int `yaml:"first_map_line"`
	LastMapLine    int `yaml:"last_map_line"`
	MinHeaderLines int `yaml:"min_header_lines"`
}

type StorageConfig struct {
	WorkDir          string        `yaml:"work_dir"`
	ArchiveDir       string        `yaml:"archive_dir"`
	HoldingDir       string        `yaml:"holding_dir"`
	LogDir           string        `yaml:"log_dir"`
	HoldingMaxAgeStr string        `yaml:"holding_max_age"`
	ArchiveMaxAgeStr string        `yaml:"archive_max_age"`
	HoldingMaxAge    time.Duration `yaml:"-"`
	ArchiveMaxAge    time.Duration `yaml:"-"` // zero keeps archives forever
}

type BulletinSelectorsConfig struct {
	LatestDate   string `yaml:"latest_date"`
	DownloadLink string `yaml:"download_link"`
}

type BulletinsConfig struct {
	Enabled   bool                    `yaml:"enabled"`
	Pages     map[string]string       `yaml:"pages"` // bulletin class -> listing URL
	Selectors BulletinSelectorsConfig `yaml:"selectors"`
}

type SolarConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Host       string `yaml:"host"`
	Path       string `yaml:"path"`
	Suffix     string `yaml:"suffix"`
	WindowDays int    `yaml:"window_days"`
}

type RunLogConfig struct {
	IncludeRejections bool `yaml:"include_rejections"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Credentials CredentialsConfig `yaml:"credentials"`
	Archive     ArchiveConfig     `yaml:"archive"`
	Products    ProductsConfig    `yaml:"products"`
	IonexLayout IonexLayoutConfig `yaml:"ionex_layout"`
	Storage     StorageConfig     `yaml:"storage"`
	Bulletins   BulletinsConfig   `yaml:"bulletins"`
	Solar       SolarConfig       `yaml:"solar"`
	RunLog      RunLogConfig      `yaml:"run_log"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// Default returns a configuration that runs against the public archives with local folders.
func Default() Config {
	return Config{
		Server: ServerConfig{Port: "8080"},
		Archive: ArchiveConfig{
			CDDISBaseURL: "https://cddis.nasa.gov/archive/gnss/products",
			TimeoutStr:   "60s",
			Timeout:      60 * time.Second,
		},
		Products: ProductsConfig{
			Orbit: ProductConfig{
				Enabled: true,
				Prefix:  "IGS0OPSULT_",
				Suffix:  "_02D_15M_ORB.SP3.gz",
				Hours:   []string{"0000", "0600", "1200", "1800"},
			},
			Ionex: ProductConfig{
				Prefix: "IGS0OPSRAP_",
				Suffix: "_01D_02H_GIM.INX.gz",
				Hours:  []string{"0000"},
			},
		},
		IonexLayout: IonexLayoutConfig{FirstMapLine: 2, LastMapLine: 3, MinHeaderLines: 4},
		Storage: StorageConfig{
			WorkDir:          "data/work",
			ArchiveDir:       "data/archive",
			HoldingDir:       "data/holding",
			LogDir:           "data/logs",
			HoldingMaxAgeStr: "168h",
			HoldingMaxAge:    7 * 24 * time.Hour,
		},
		Bulletins: BulletinsConfig{
			Pages: map[string]string{
				"A": "https://datacenter.iers.org/availableVersions.php?id=6",
				"B": "https://datacenter.iers.org/availableVersions.php?id=207",
				"C": "https://datacenter.iers.org/availableVersions.php?id=16",
				"D": "https://datacenter.iers.org/availableVersions.php?id=17",
			},
			Selectors: BulletinSelectorsConfig{
				LatestDate:   "table.versions tbody tr:first-of-type td:nth-of-type(2)",
				DownloadLink: "table.versions tbody tr:first-of-type td a",
			},
		},
		Solar: SolarConfig{
			Host:       "ftp.swpc.noaa.gov:21",
			Path:       "/pub/forecasts/RSGA",
			Suffix:     "RSGA.txt",
			WindowDays: 4,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// LoadConfig reads the YAML file (optional when configPath is empty), then .env files,
// then environment overrides, and parses durations.
func LoadConfig(configPath string, envFiles ...string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(file, &cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	// Missing .env files are normal on scheduled hosts that export variables directly.
	_ = godotenv.Load(envFiles...)
	cfg.applyEnvOverrides()

	if err := cfg.parseDurations(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(envUsername); v != "" {
		c.Credentials.Username = v
	}
	if v := os.Getenv(envPassword); v != "" {
		c.Credentials.Password = v
	}
	if v := os.Getenv(envDatabaseDriver); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv(envDatabaseDSN); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv(envLogLevel); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(envIncludeRejections); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.RunLog.IncludeRejections = b
		}
	}
}

func (c *Config) parseDurations() error {
	var err error
	if c.Archive.TimeoutStr != "" {
		c.Archive.Timeout, err = time.ParseDuration(c.Archive.TimeoutStr)
		if err != nil {
			return fmt.Errorf("failed to parse archive timeout: %w", err)
		}
	}
	if c.Storage.HoldingMaxAgeStr != "" {
		c.Storage.HoldingMaxAge, err = time.ParseDuration(c.Storage.HoldingMaxAgeStr)
		if err != nil {
			return fmt.Errorf("failed to parse holding_max_age: %w", err)
		}
	}
	if c.Storage.ArchiveMaxAgeStr != "" {
		c.Storage.ArchiveMaxAge, err = time.ParseDuration(c.Storage.ArchiveMaxAgeStr)
		if err != nil {
			return fmt.Errorf("failed to parse archive_max_age: %w", err)
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	def := Default()
	if c.Archive.Timeout <= 0 {
		c.Archive.Timeout = def.Archive.Timeout
	}
	c.Archive.CDDISBaseURL = strings.TrimSuffix(c.Archive.CDDISBaseURL, "/")
	if len(c.Products.Orbit.Hours) == 0 {
		c.Products.Orbit.Hours = def.Products.Orbit.Hours
	}
	if len(c.Products.Ionex.Hours) == 0 {
		c.Products.Ionex.Hours = def.Products.Ionex.Hours
	}
	if c.IonexLayout.MinHeaderLines <= 0 {
		c.IonexLayout = def.IonexLayout
	}
	if c.Solar.WindowDays <= 0 {
		c.Solar.WindowDays = def.Solar.WindowDays
	}
	if c.Solar.Suffix == "" {
		c.Solar.Suffix = def.Solar.Suffix
	}
	if c.Server.Port == "" {
		c.Server.Port = def.Server.Port
	}
}

// DataSourceName returns the DSN for the configured driver.
func (d DatabaseConfig) DataSourceName() string {
	if d.DSN != "" {
		return d.DSN
	}
	switch d.Driver {
	case "mysql":
		// username:password@protocol(address)/dbname?param=value
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true", d.User, d.Password, d.Host, d.Port, d.DBName)
	case "sqlite":
		if d.DBName != "" {
			return d.DBName
		}
		return "gnss-archiver.db"
	}
	return ""
}

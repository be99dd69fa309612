package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"time"
	_ "time/tzdata" // report timezones on hosts without zoneinfo

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port            int           `yaml:"port"`
		FrontendOrigin  string        `yaml:"frontendOrigin"`
		TrustProxy      bool          `yaml:"trustProxy"`
		ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	} `yaml:"server"`

	Database struct {
		Driver   string `yaml:"driver"` // sqlite (default) | mysql | postgres
		DSN      string `yaml:"dsn"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
	} `yaml:"database"`

	Minio struct {
		Enabled       bool   `yaml:"enabled"`
		Endpoint      string `yaml:"endpoint"`
		AccessKey     string `yaml:"accessKey"`
		SecretKey     string `yaml:"secretKey"`
		BucketName    string `yaml:"bucketName"`
		Region        string `yaml:"region"`
		UseSSL        bool   `yaml:"useSSL"`
		PublicBaseURL string `yaml:"publicBaseURL"`
	} `yaml:"minio"`

	Browser struct {
		ChromePath        string        `yaml:"chromePath"`
		NoSandbox         bool          `yaml:"noSandbox"`
		Headful           bool          `yaml:"headful"`
		UserAgent         string        `yaml:"userAgent"`
		WindowWidth       int           `yaml:"windowWidth"`
		WindowHeight      int           `yaml:"windowHeight"`
		NavigationTimeout time.Duration `yaml:"navigationTimeout"`
		IdleQuiet         time.Duration `yaml:"idleQuiet"`
	} `yaml:"browser"`

	Lighthouse struct {
		Binary      string   `yaml:"binary"`
		ChromeFlags []string `yaml:"chromeFlags"`
		TempDir     string   `yaml:"tempDir"`
		// DockerImage runs Lighthouse in a container; Binary is ignored.
		DockerImage string `yaml:"dockerImage"`
	} `yaml:"lighthouse"`

	Axe struct {
		ScriptPath string   `yaml:"scriptPath"`
		ScriptURL  string   `yaml:"scriptURL"`
		RunOnly    []string `yaml:"runOnly"`
	} `yaml:"axe"`

	Analysis struct {
		Timeout             time.Duration `yaml:"timeout"`
		Parallel            bool          `yaml:"parallel"`
		AllowPrivateTargets bool          `yaml:"allowPrivateTargets"`
		RateLimit           struct {
			Capacity  int     `yaml:"capacity"`
			PerMinute float64 `yaml:"perMinute"`
		} `yaml:"rateLimit"`
	} `yaml:"analysis"`

	Report struct {
		Timezone   string `yaml:"timezone"`
		DateLayout string `yaml:"dateLayout"`
	} `yaml:"report"`

	OpenAI struct {
		APIKey  string `yaml:"apiKey"`
		Model   string `yaml:"model"`
		BaseURL string `yaml:"baseURL"`
	} `yaml:"openai"`

	Logging struct {
		Format string `yaml:"format"` // "json"|"text"
		Level  string `yaml:"level"`  // "info"|"debug"|"warn"|"error"
	} `yaml:"logging"`
}

// Default returns the configuration used when no file or env override is set.
func Default() *Config {
	var c Config
	c.Server.Port = 5000
	c.Server.FrontendOrigin = "http://localhost:5173"
	c.Server.ShutdownTimeout = 15 * time.Second
	c.Database.Driver = "sqlite"
	c.Minio.BucketName = "inclusight"
	c.Minio.Region = "us-east-1"
	c.Browser.NoSandbox = true
	c.Browser.WindowWidth = 1366
	c.Browser.WindowHeight = 768
	c.Browser.NavigationTimeout = 30 * time.Second
	c.Browser.IdleQuiet = 500 * time.Millisecond
	c.Lighthouse.Binary = "lighthouse"
	c.Axe.RunOnly = []string{"wcag2a", "wcag2aa", "wcag21a", "wcag21aa", "best-practice"}
	c.Analysis.Timeout = 2 * time.Minute
	c.Analysis.Parallel = true
	c.Analysis.RateLimit.Capacity = 5
	c.Analysis.RateLimit.PerMinute = 10
	c.Report.Timezone = "UTC"
	c.OpenAI.Model = "gpt-4o-mini"
	c.Logging.Format = "json"
	c.Logging.Level = "info"
	return &c
}

// Load baca file config.yaml di atas default, lalu env override.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	if v, ok := lookup("PORT"); ok && v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q", v)
		}
		c.Server.Port = p
	}
	str("FRONTEND_ORIGIN", &c.Server.FrontendOrigin)
	str("DATABASE_DRIVER", &c.Database.Driver)
	str("DATABASE_DSN", &c.Database.DSN)
	str("OPENAI_API_KEY", &c.OpenAI.APIKey)
	str("LOG_LEVEL", &c.Logging.Level)
	str("LOG_FORMAT", &c.Logging.Format)
	str("CHROME_PATH", &c.Browser.ChromePath)
	str("LIGHTHOUSE_BIN", &c.Lighthouse.Binary)
	str("LIGHTHOUSE_IMAGE", &c.Lighthouse.DockerImage)
	str("AXE_SCRIPT_PATH", &c.Axe.ScriptPath)
	return nil
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "mysql", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Analysis.Timeout <= 0 || c.Browser.NavigationTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	if c.Browser.NavigationTimeout > c.Analysis.Timeout {
		return fmt.Errorf("navigation timeout %s exceeds analysis timeout %s", c.Browser.NavigationTimeout, c.Analysis.Timeout)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves the report timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Report.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Report.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid report timezone %q: %w", c.Report.Timezone, err)
	}
	return loc, nil
}

// DefaultSQLitePath is used when the sqlite driver has no DSN.
const DefaultSQLitePath = "./data/inclusight.db"

// DatabaseDSN returns the explicit DSN, or builds one from host/user fields.
func (c *Config) DatabaseDSN() string {
	if c.Database.DSN != "" {
		return c.Database.DSN
	}
	switch c.Database.Driver {
	case "mysql":
		return c.MySQLDSN()
	case "postgres":
		return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
			url.QueryEscape(c.Database.User), url.QueryEscape(c.Database.Password), c.Database.Host, c.Database.Port, c.Database.Name)
	}
	return DefaultSQLitePath
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

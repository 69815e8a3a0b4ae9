package configuration

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/iota-uz/utils/fs"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/demoseed/treeseed/pkg/logging"
)

const Production = "production"

var singleton = sync.OnceValue(func() *Configuration {
	c := &Configuration{}
	if err := c.load([]string{".env", ".env.local"}); err != nil {
		c.Unload()
		panic(err)
	}
	return c
})

func LoadEnv(envFiles []string) (int, error) {
	existingFiles := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if fs.FileExists(file) {
			existingFiles = append(existingFiles, file)
		}
	}

	if len(existingFiles) == 0 {
		return 0, nil
	}

	return len(existingFiles), godotenv.Load(existingFiles...)
}

// DatabaseOptions points at the Spree PostgreSQL database.
type DatabaseOptions struct {
	Opts     string `env:"-"`
	Name     string `env:"DB_NAME" envDefault:"spree"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
}

func (d *DatabaseOptions) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s password=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Name, d.Password,
	)
}

// MariaDBOptions points at a Frappe site database.
type MariaDBOptions struct {
	Opts     string `env:"-"`
	Name     string `env:"MARIADB_NAME" envDefault:"frappe"`
	Host     string `env:"MARIADB_HOST" envDefault:"localhost"`
	Port     string `env:"MARIADB_PORT" envDefault:"3306"`
	User     string `env:"MARIADB_USER" envDefault:"root"`
	Password string `env:"MARIADB_PASSWORD" envDefault:"admin"`
}

// DSN is in go-sql-driver/mysql format. clientFoundRows makes UPDATE report
// matched rows, so rewriting an unchanged interval still counts as a hit.
func (m *MariaDBOptions) DSN() string {
	return fmt.Sprintf(
		"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&clientFoundRows=true",
		m.User, m.Password, m.Host, m.Port, m.Name,
	)
}

type LogOptions struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`
	Path  string `env:"LOG_PATH" envDefault:""`
}

type PrometheusOptions struct {
	Enabled bool   `env:"PROMETHEUS_METRICS_ENABLED" envDefault:"false"`
	Path    string `env:"PROMETHEUS_METRICS_PATH" envDefault:"/debug/prometheus"`
}

// NestedSetOptions are the defaults the CLI and the HTTP API index with.
type NestedSetOptions struct {
	// Strict rejects unresolved parents instead of moving them to the root level.
	Strict bool `env:"NESTED_SET_STRICT" envDefault:"false"`
	// SharedCounter numbers all forests of one run in a single sequence.
	SharedCounter bool `env:"NESTED_SET_SHARED_COUNTER" envDefault:"false"`
	// Target is the default persistence target for apply/verify.
	Target string `env:"NESTED_SET_TARGET" envDefault:"spree-taxons"`
}

type Configuration struct {
	Database   DatabaseOptions
	MariaDB    MariaDBOptions
	Log        LogOptions
	Prometheus PrometheusOptions
	NestedSet  NestedSetOptions

	GoAppEnvironment string `env:"GO_APP_ENV" envDefault:"development"`
	ServerPort       int    `env:"PORT" envDefault:"3200"`
	SocketAddress    string `env:"-"`
	MaxRequestNodes  int    `env:"MAX_REQUEST_NODES" envDefault:"100000"`

	logFile *os.File
	logger  *logrus.Logger
}

func (c *Configuration) Logger() *logrus.Logger {
	return c.logger
}

func (c *Configuration) LogrusLogLevel() logrus.Level {
	switch c.Log.Level {
	case "silent":
		return logrus.PanicLevel
	case "error":
		return logrus.ErrorLevel
	case "warn":
		return logrus.WarnLevel
	case "info":
		return logrus.InfoLevel
	case "debug":
		return logrus.DebugLevel
	default:
		return logrus.InfoLevel
	}
}

func Use() *Configuration {
	return singleton()
}

func (c *Configuration) load(envFiles []string) error {
	n, err := LoadEnv(envFiles)
	if err != nil {
		return err
	}
	if n == 0 {
		wd, _ := os.Getwd()
		log.Println("No .env files found. Tried:")
		for _, file := range envFiles {
			log.Println(filepath.Join(wd, file))
		}
	}
	if err := env.Parse(c); err != nil {
		return err
	}
	if err := c.validate(); err != nil {
		return err
	}

	f, logger, err := logging.FileLogger(c.LogrusLogLevel(), c.Log.Path)
	if err != nil {
		return err
	}
	c.logFile = f
	c.logger = logger

	c.Database.Opts = c.Database.ConnectionString()
	c.MariaDB.Opts = c.MariaDB.DSN()
	if c.GoAppEnvironment == Production {
		c.SocketAddress = fmt.Sprintf(":%d", c.ServerPort)
	} else {
		c.SocketAddress = fmt.Sprintf("localhost:%d", c.ServerPort)
	}
	return nil
}

// Targets lists the persistence targets apply/verify understand.
var Targets = []string{"spree-taxons", "spree-menus", "frappe"}

func (c *Configuration) validate() error {
	level := strings.ToLower(strings.TrimSpace(c.Log.Level))
	switch level {
	case "silent", "error", "warn", "info", "debug":
	default:
		return fmt.Errorf("invalid LOG_LEVEL=%q (expected silent|error|warn|info|debug)", c.Log.Level)
	}
	c.Log.Level = level

	target := strings.ToLower(strings.TrimSpace(c.NestedSet.Target))
	valid := false
	for _, t := range Targets {
		if t == target {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("invalid NESTED_SET_TARGET=%q (expected %s)", c.NestedSet.Target, strings.Join(Targets, "|"))
	}
	c.NestedSet.Target = target

	if c.MaxRequestNodes <= 0 {
		return fmt.Errorf("MAX_REQUEST_NODES must be positive, got %d", c.MaxRequestNodes)
	}
	return nil
}

// Unload closes the log file, if any.
func (c *Configuration) Unload() {
	if c.logFile != nil {
		if err := c.logFile.Close(); err != nil {
			log.Printf("Failed to close log file: %v", err)
		}
	}
}

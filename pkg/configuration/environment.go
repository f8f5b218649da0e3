package configuration

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/iota-uz/utils/fs"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/orgcascade/pkg/logging"
)

const Production = "production"

var singleton = sync.OnceValue(func() *Configuration {
	c, err := Load(".env", ".env.local")
	if err != nil {
		panic(err)
	}
	return c
})

// LoadEnv loads the env files that exist, looking in the working directory
// first and then in the nearest parent that holds a go.mod.
func LoadEnv(envFiles []string) (int, error) {
	existingFiles := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if fs.FileExists(file) {
			existingFiles = append(existingFiles, file)
		}
	}
	if len(existingFiles) == 0 {
		if root := moduleRoot(); root != "" {
			for _, file := range envFiles {
				p := filepath.Join(root, file)
				if fs.FileExists(p) {
					existingFiles = append(existingFiles, p)
				}
			}
		}
	}
	if len(existingFiles) == 0 {
		return 0, nil
	}
	return len(existingFiles), godotenv.Load(existingFiles...)
}

func moduleRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if fs.FileExists(filepath.Join(dir, "go.mod")) {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

type OrgOptions struct {
	SourceURL       string        `env:"ORG_SOURCE_URL"`
	SourceFile      string        `env:"ORG_SOURCE_FILE"`
	SourceXLSX      string        `env:"ORG_SOURCE_XLSX"`
	FetchTimeout    time.Duration `env:"ORG_FETCH_TIMEOUT" envDefault:"30s"`
	Locale          string        `env:"ORG_LOCALE" envDefault:"es"`
	DefaultLanguage string        `env:"ORG_DEFAULT_LANGUAGE" envDefault:"en"`
}

// Validate requires exactly one org source.
func (o *OrgOptions) Validate() error {
	n := 0
	for _, v := range []string{o.SourceURL, o.SourceFile, o.SourceXLSX} {
		if strings.TrimSpace(v) != "" {
			n++
		}
	}
	switch {
	case n == 0:
		return fmt.Errorf("one of ORG_SOURCE_URL, ORG_SOURCE_FILE, ORG_SOURCE_XLSX is required")
	case n > 1:
		return fmt.Errorf("only one of ORG_SOURCE_URL, ORG_SOURCE_FILE, ORG_SOURCE_XLSX may be set")
	}
	if o.FetchTimeout < 0 {
		return fmt.Errorf("ORG_FETCH_TIMEOUT must be non-negative, got %s", o.FetchTimeout)
	}
	return nil
}

type PrometheusOptions struct {
	Enabled bool   `env:"PROMETHEUS_METRICS_ENABLED" envDefault:"false"`
	Path    string `env:"PROMETHEUS_METRICS_PATH" envDefault:"/debug/prometheus"`
}

// OpsGuardOptions restrict ops routes (health, metrics) in production.
type OpsGuardOptions struct {
	Enabled       bool   `env:"OPS_GUARD_ENABLED" envDefault:"true"`
	CIDRs         string `env:"OPS_GUARD_CIDRS" envDefault:""`
	Token         string `env:"OPS_GUARD_TOKEN" envDefault:""`
	BasicAuthUser string `env:"OPS_GUARD_BASIC_AUTH_USER" envDefault:""`
	BasicAuthPass string `env:"OPS_GUARD_BASIC_AUTH_PASS" envDefault:""`
	RealIPHeader  string `env:"REAL_IP_HEADER" envDefault:""`
}

type OpenTelemetryOptions struct {
	Enabled     bool   `env:"OTEL_ENABLED" envDefault:"false"`
	TempoURL    string `env:"OTEL_TEMPO_URL" envDefault:"localhost:4318"`
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"orgcascade"`
}

type Configuration struct {
	Org           OrgOptions
	Prometheus    PrometheusOptions
	OpsGuard      OpsGuardOptions
	OpenTelemetry OpenTelemetryOptions

	ServerPort       int    `env:"PORT" envDefault:"3200"`
	GoAppEnvironment string `env:"GO_APP_ENV" envDefault:"development"`
	SocketAddress    string `env:"-"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"error"`
	LogPath          string `env:"LOG_PATH" envDefault:""`
	// Incoming requests carrying this header keep their id; others get a fresh uuid.
	RequestIDHeader string `env:"REQUEST_ID_HEADER" envDefault:"X-Request-ID"`
	// Empty means the built-in route allowlist.
	RoutingAllowlistPath string `env:"ROUTING_ALLOWLIST_PATH"`

	logFile *os.File
	logger  *logrus.Logger
}

func (c *Configuration) Logger() *logrus.Logger {
	return c.logger
}

func (c *Configuration) LogrusLogLevel() logrus.Level {
	switch c.LogLevel {
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
		return logrus.ErrorLevel
	}
}

func Use() *Configuration {
	return singleton()
}

// Load reads env files and the process environment into a new Configuration.
func Load(envFiles ...string) (*Configuration, error) {
	c := &Configuration{}
	if err := c.load(envFiles); err != nil {
		c.Unload()
		return nil, err
	}
	return c, nil
}

func (c *Configuration) load(envFiles []string) error {
	n, err := LoadEnv(envFiles)
	if err != nil {
		return err
	}
	if n == 0 && len(envFiles) > 0 {
		wd, _ := os.Getwd()
		log.Println("No .env files found. Tried:")
		for _, file := range envFiles {
			log.Println(filepath.Join(wd, file))
		}
	}
	if err := env.Parse(c); err != nil {
		return err
	}
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("invalid PORT=%d", c.ServerPort)
	}

	f, logger, err := logging.FileLogger(c.LogrusLogLevel(), c.LogPath)
	if err != nil {
		return err
	}
	c.logFile = f
	c.logger = logger

	if c.GoAppEnvironment == Production {
		c.SocketAddress = fmt.Sprintf(":%d", c.ServerPort)
	} else {
		c.SocketAddress = fmt.Sprintf("localhost:%d", c.ServerPort)
	}
	return nil
}

// Unload handles a graceful shutdown.
func (c *Configuration) Unload() {
	if c.logFile != nil {
		if err := c.logFile.Close(); err != nil {
			log.Printf("Failed to close log file: %v", err)
		}
	}
}

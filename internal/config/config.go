// config предоставляет структуру конфигурации коллектора
// и функции загрузки из YAML/ENV с предсказуемым приоритетом.
package config

import (
	"fmt"
	"net"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/pribylovaa/go-feed-collector/internal/models"
)

// Config — корневая конфигурация сервиса.
// Приоритет источников:
//  1. явный путь, переданный в MustLoad/Load;
//  2. переменная окружения CONFIG_PATH;
//  3. файл ./local.yaml из рабочей директории;
//  4. переменные окружения.
type Config struct {
	Env string `yaml:"env" env:"ENV" env-default:"local"`
	// Interval — период между проходами; 0 — один проход и выход.
	Interval   time.Duration  `yaml:"interval" env:"COLLECT_INTERVAL" env-default:"0s"`
	GRPC       GRPCConfig     `yaml:"grpc"`
	HTTP       HTTPConfig     `yaml:"http"`
	Timeouts   TimeoutConfig  `yaml:"timeouts"`
	Storage    StorageConfig  `yaml:"storage"`
	DataFields []string       `yaml:"data_fields" env:"DATA_FIELDS" env-separator:","`
	LogFields  []string       `yaml:"log_fields"  env:"LOG_FIELDS"  env-separator:","`
	Direct     PhaseConfig    `yaml:"direct" env-prefix:"DIRECT_"`
	Proxy      ProxyConfig    `yaml:"proxy"`
	Sources    []SourceConfig `yaml:"sources"`
}

// TimeoutConfig — таймауты сервиса.
type TimeoutConfig struct {
	Service time.Duration `yaml:"service" env:"SERVICE_TIMEOUT" env-default:"5s"`
}

// GRPCConfig — сетевые настройки gRPC health-сервера.
type GRPCConfig struct {
	Enabled bool   `yaml:"enabled" env:"GRPC_ENABLED" env-default:"false"`
	Host    string `yaml:"host"    env:"GRPC_HOST"    env-default:"0.0.0.0"`
	Port    string `yaml:"port"    env:"GRPC_PORT"    env-default:"50061"`
}

// Addr возвращает адрес в формате host:port.
func (g GRPCConfig) Addr() string {
	return net.JoinHostPort(g.Host, g.Port)
}

// HTTPConfig — служебный HTTP-сервер: /livez, /healthz, /metrics.
type HTTPConfig struct {
	Enabled bool   `yaml:"enabled" env:"HTTP_ENABLED" env-default:"false"`
	Host    string `yaml:"host"    env:"HTTP_HOST"    env-default:"0.0.0.0"`
	Port    string `yaml:"port"    env:"HTTP_PORT"    env-default:"9090"`
}

// Addr возвращает адрес в формате host:port.
func (h HTTPConfig) Addr() string {
	return net.JoinHostPort(h.Host, h.Port)
}

// Драйверы хранилища.
const (
	DriverFiles    = "files"
	DriverPostgres = "postgres"
)

// StorageConfig — куда сохраняются данные, логи и пул прокси.
type StorageConfig struct {
	Driver      string `yaml:"driver"       env:"STORAGE_DRIVER" env-default:"files"`
	DataDir     string `yaml:"data_dir"     env:"DATA_DIR"       env-default:"data"`
	LogDir      string `yaml:"log_dir"      env:"LOG_DIR"        env-default:"log"`
	ProxiesFile string `yaml:"proxies_file" env:"PROXIES_FILE"   env-default:"configs/proxies.yaml"`
	DBURL       string `yaml:"db_url"       env:"DATABASE_URL"`
}

// PhaseConfig — параметры одной фазы прохода (без прокси или через прокси).
type PhaseConfig struct {
	WaitingTime            time.Duration `yaml:"waiting_time"             env:"WAITING_TIME"             env-default:"10s"`
	TimeoutBetweenRequests time.Duration `yaml:"timeout_between_requests" env:"TIMEOUT_BETWEEN_REQUESTS" env-default:"1s"`
	NumberOfTries          int           `yaml:"number_of_tries"          env:"NUMBER_OF_TRIES"          env-default:"3"`
	Workers                int           `yaml:"workers"                  env:"WORKERS"                  env-default:"1"`
	DataName               string        `yaml:"data_name"                env:"DATA_NAME"`
	LogName                string        `yaml:"log_name"                 env:"LOG_NAME"`
}

// ProxyConfig — фаза через прокси и источники пула.
type ProxyConfig struct {
	PhaseConfig `yaml:",inline" env-prefix:"PROXY_"`
	Sources     []ProxySourceConfig `yaml:"sources"`
}

// ProxySourceConfig — публичный список прокси.
type ProxySourceConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
	// Kind — html (таблица) или text (по адресу на строку).
	Kind      string `yaml:"kind"`
	HTTPSOnly bool   `yaml:"https_only"`
}

// SourceConfig — один источник данных.
type SourceConfig struct {
	Name          string            `yaml:"name"`
	URL           string            `yaml:"url"`
	Parser        string            `yaml:"parser"`
	RequiresProxy bool              `yaml:"requires_proxy"`
	Config        map[string]string `yaml:"config"`
}

// Имена выходных файлов/наборов по умолчанию.
const (
	defaultDirectData = "data_no_proxy"
	defaultDirectLog  = "log_no_proxy"
	defaultProxyData  = "data_proxy"
	defaultProxyLog   = "log_proxy"
)

// MustLoad — обёртка над Load с panic при ошибке.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load загружает конфигурацию по приоритету:
// 1) явный путь; 2) CONFIG_PATH; 3) ./local.yaml; 4) ENV.
func Load(path string) (*Config, error) {
	var cfg Config

	tryRead := func(p string) (*Config, error) {
		if p == "" {
			return nil, fmt.Errorf("empty config path")
		}
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file does not exist: %s", p)
		}
		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		return &cfg, nil
	}

	// 1) Явный путь.
	if path != "" {
		c, err := tryRead(path)
		if err != nil {
			return nil, err
		}
		return c.finish()
	}

	// 2) CONFIG_PATH.
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		c, err := tryRead(envPath)
		if err != nil {
			return nil, err
		}
		return c.finish()
	}

	// 3) ./local.yaml.
	if _, err := os.Stat("local.yaml"); err == nil {
		if err := cleanenv.ReadConfig("local.yaml", &cfg); err != nil {
			return nil, fmt.Errorf("failed to read local.yaml: %w", err)
		}
		return cfg.finish()
	}

	// 4) Только ENV.
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}
	return cfg.finish()
}

// finish проставляет производные значения и валидирует конфиг.
func (c *Config) finish() (*Config, error) {
	if c.Direct.DataName == "" {
		c.Direct.DataName = defaultDirectData
	}
	if c.Direct.LogName == "" {
		c.Direct.LogName = defaultDirectLog
	}
	if c.Proxy.DataName == "" {
		c.Proxy.DataName = defaultProxyData
	}
	if c.Proxy.LogName == "" {
		c.Proxy.LogName = defaultProxyLog
	}
	if len(c.DataFields) == 0 {
		c.DataFields = []string{
			models.FieldTitle, models.FieldSummary, models.FieldDate,
			models.FieldLink, models.FieldType, models.FieldSource,
			models.FieldFetchedAt,
		}
	}
	if len(c.LogFields) == 0 {
		c.LogFields = []string{
			models.FieldTitle, models.FieldSummary, models.FieldDate,
			models.FieldLink, models.FieldType,
		}
	}

	if err := c.validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// validate — базовая валидация значений.
func (c *Config) validate() error {
	switch c.Storage.Driver {
	case DriverFiles:
	case DriverPostgres:
		if c.Storage.DBURL == "" {
			return fmt.Errorf("storage.db_url is required for driver %q", DriverPostgres)
		}
	default:
		return fmt.Errorf("storage.driver must be %q or %q", DriverFiles, DriverPostgres)
	}
	if len(c.Sources) == 0 {
		return fmt.Errorf("sources must contain at least one source")
	}
	if c.Interval < 0 {
		return fmt.Errorf("interval must be >= 0")
	}
	if c.Interval > 0 && c.Interval < time.Minute {
		return fmt.Errorf("interval must be 0 or at least 1m")
	}
	if !slices.Contains(c.LogFields, models.FieldTitle) {
		return fmt.Errorf("log_fields must include %q", models.FieldTitle)
	}

	for name, p := range map[string]PhaseConfig{"direct": c.Direct, "proxy": c.Proxy.PhaseConfig} {
		if p.NumberOfTries < 1 {
			return fmt.Errorf("%s.number_of_tries must be >= 1", name)
		}
		if p.WaitingTime < 0 || p.TimeoutBetweenRequests < 0 {
			return fmt.Errorf("%s: durations must be >= 0", name)
		}
		if p.Workers < 0 {
			return fmt.Errorf("%s.workers must be >= 0", name)
		}
	}

	for i, s := range c.Sources {
		if strings.TrimSpace(s.Name) == "" || strings.TrimSpace(s.URL) == "" {
			return fmt.Errorf("sources[%d]: name and url are required", i)
		}
		if strings.TrimSpace(s.Parser) == "" {
			return fmt.Errorf("sources[%d] (%s): parser is required", i, s.Name)
		}
	}

	for i, s := range c.Proxy.Sources {
		if strings.TrimSpace(s.URL) == "" {
			return fmt.Errorf("proxy.sources[%d]: url is required", i)
		}
	}

	return nil
}

// Items разбивает источники на элементы без прокси и через прокси,
// сохраняя порядок из конфига.
func (c *Config) Items() (direct, proxied []models.FetchItem) {
	for _, s := range c.Sources {
		it := models.FetchItem{
			Source:          s.Name,
			URL:             s.URL,
			ExtractorType:   s.Parser,
			ExtractorConfig: s.Config,
			RequiresProxy:   s.RequiresProxy,
		}
		if s.RequiresProxy {
			proxied = append(proxied, it)
		} else {
			direct = append(direct, it)
		}
	}

	return direct, proxied
}

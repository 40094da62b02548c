package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/craigmcc/cityteam-guests-client/pkg/utils/errs"
)

// DefaultPath is used when CONFIG_PATH is not set.
var DefaultPath = filepath.Join("cmd/bot/etc", "app.yml")

type Redis struct {
	Addr     string        `yaml:"addr" validate:"required,hostname_port"`
	DB       int           `yaml:"db" validate:"gte=0"`
	TTL      time.Duration `yaml:"ttl" validate:"required"`
	Password string        `yaml:"-"`
}

type AMQP struct {
	Exchange   string        `yaml:"exchange"`
	Retries    int           `yaml:"retries" validate:"gte=0"`
	RetryDelay time.Duration `yaml:"retry_delay"`
	URL        string        `yaml:"-"`
}

type Config struct {
	ServerURI         string        `yaml:"server_uri" validate:"required,url"`
	PostgreAddr       string        `yaml:"postgre_addr"`
	HTTPPort          int           `yaml:"http_port" validate:"required,gt=0,lt=65536"`
	WorkerCount       int           `yaml:"worker_count" validate:"required,gt=0"`
	RequestTimeout    time.Duration `yaml:"request_timeout" validate:"required"`
	DefaultAmount     string        `yaml:"default_amount" validate:"omitempty,numeric"`
	GuestPageSize     int           `yaml:"guest_page_size" validate:"gte=0"`
	ReportCron        string        `yaml:"report_cron"`
	ReportFacilityIDs []int64       `yaml:"report_facility_ids" validate:"required_with=ReportCron"`
	Redis             Redis         `yaml:"redis"`
	AMQP              AMQP          `yaml:"amqp"`

	BotToken  string `yaml:"-"`
	ChannelID string `yaml:"-"`
}

// LoadConfig reads the YAML file at CONFIG_PATH (or DefaultPath), validates
// it and fills the secrets from the environment, loading .env first when one
// exists.
func LoadConfig() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = DefaultPath
	}
	return Load(path)
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.New("failed to read config file").Arg("path", path).Wrap(err)
	}

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errs.New("failed to unmarshal YAML").Arg("path", path).Wrap(err)
	}

	if err = godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errs.New("failed to load .env").Wrap(err)
	}
	cfg.BotToken = os.Getenv("TG_TOKEN")
	cfg.ChannelID = os.Getenv("TG_CHANNEL_ID")
	cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
	cfg.AMQP.URL = os.Getenv("AMQP_URL")
	if addr := os.Getenv("POSTGRE_ADDR"); addr != "" {
		cfg.PostgreAddr = addr
	}

	if err = validator.New().Struct(cfg); err != nil {
		return nil, errs.New("config validation failed").Wrap(err)
	}
	if cfg.BotToken == "" {
		return nil, errs.New("empty token")
	}
	if cfg.PostgreAddr == "" {
		return nil, errs.New("empty postgres address")
	}
	if cfg.ReportCron != "" && cfg.ChannelID == "" {
		return nil, errs.New("empty channel id").Arg("report_cron", cfg.ReportCron)
	}

	return &cfg, nil
}

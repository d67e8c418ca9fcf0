package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
)

const (
	ModeService = "service"
	ModeOnce    = "once"
)

type (
	Config struct {
		App       App       `yaml:"app"       env-prefix:"APP_"`
		Logger    Logger    `yaml:"logger"    env-prefix:"LOGGER_"`
		Postgres  Postgres  `yaml:"postgres"  env-prefix:"POSTGRES_"`
		Redis     Redis     `yaml:"redis"     env-prefix:"REDIS_"`
		HTTP      HTTP      `yaml:"http"      env-prefix:"HTTP_"`
		Metrics   Metrics   `yaml:"metrics"   env-prefix:"METRICS_"`
		Scheduler Scheduler `yaml:"scheduler" env-prefix:"SCHEDULER_"`
		Dispatch  Dispatch  `yaml:"dispatch"  env-prefix:"DISPATCH_"`
		Transport Transport `yaml:"transport" env-prefix:"TRANSPORT_"`
		SMTP      SMTP      `yaml:"smtp"      env-prefix:"SMTP_"`
		AMQP      AMQP      `yaml:"amqp"      env-prefix:"AMQP_"`
		Telegram  Telegram  `yaml:"telegram"  env-prefix:"TELEGRAM_"`
		Kafka     Kafka     `yaml:"kafka"     env-prefix:"KAFKA_"`
		Tracing   Tracing   `yaml:"tracing"   env-prefix:"TRACING_"`
		Env       string    `yaml:"env"       env:"ENV" env-default:"local" validate:"oneof=local dev staging prod"`
	}

	App struct {
		Name     string `yaml:"name"     env:"NAME"     env-default:"certalert" validate:"required"`
		Version  string `yaml:"version"  env:"VERSION"  env-default:"dev"       validate:"required"`
		Mode     string `yaml:"mode"     env:"MODE"     env-default:"service"   validate:"oneof=service once"`
		Timezone string `yaml:"timezone" env:"TIMEZONE" env-default:"UTC"       validate:"required,timezone"`
	}

	Logger struct {
		Level      string `yaml:"level"       env:"LEVEL"       env-default:"info" validate:"oneof=debug info warn error"`
		Filename   string `yaml:"filename"    env:"FILENAME"`
		MaxSize    int    `yaml:"max_size"    env:"MAX_SIZE"    env-default:"100"  validate:"min=1,max=1000"`
		MaxBackups int    `yaml:"max_backups" env:"MAX_BACKUPS" env-default:"3"    validate:"min=0,max=20"`
		MaxAge     int    `yaml:"max_age"     env:"MAX_AGE"     env-default:"28"   validate:"min=1,max=365"`
	}

	Postgres struct {
		DSN            string        `yaml:"dsn"              env:"DSN"              validate:"required"`
		PoolMax        int           `yaml:"pool_max"         env:"POOL_MAX"         env-default:"10"         validate:"min=1,max=200"`
		ConnAttempts   int           `yaml:"conn_attempts"    env:"CONN_ATTEMPTS"    env-default:"5"          validate:"min=1,max=50"`
		BaseRetryDelay time.Duration `yaml:"base_retry_delay" env:"BASE_RETRY_DELAY" env-default:"500ms"      validate:"gte=10ms,lte=1m"`
		MaxRetryDelay  time.Duration `yaml:"max_retry_delay"  env:"MAX_RETRY_DELAY"  env-default:"10s"        validate:"gte=10ms,lte=5m"`
		MigrationsDir  string        `yaml:"migrations_dir"   env:"MIGRATIONS_DIR"   env-default:"migrations"`
		AutoMigrate    bool          `yaml:"auto_migrate"     env:"AUTO_MIGRATE"     env-default:"true"`
	}

	Redis struct {
		Enabled     bool          `yaml:"enabled"       env:"ENABLED"       env-default:"false"`
		Addr        string        `yaml:"addr"          env:"ADDR"          validate:"required_if=Enabled true"`
		Password    string        `yaml:"password"      env:"PASSWORD"`
		DB          int           `yaml:"db"            env:"DB"            env-default:"0"     validate:"min=0,max=15"`
		PoolSize    int           `yaml:"pool_size"     env:"POOL_SIZE"     env-default:"20"    validate:"min=1,max=100"`
		MinIdleCons int           `yaml:"min_idle_cons" env:"MIN_IDLE_CONS" env-default:"5"     validate:"min=1,max=100"`
		PoolTimeout time.Duration `yaml:"pool_timeout"  env:"POOL_TIMEOUT"  env-default:"1s"    validate:"gte=10ms,lte=10s"`
		CacheTTL    time.Duration `yaml:"cache_ttl"     env:"CACHE_TTL"     env-default:"5m"    validate:"gte=1s,lte=24h"`
		LockKey     string        `yaml:"lock_key"      env:"LOCK_KEY"      env-default:"certalert:run-lock"`
		LockTTL     time.Duration `yaml:"lock_ttl"      env:"LOCK_TTL"      env-default:"30m"   validate:"gte=1s,lte=24h"`
	}

	HTTP struct {
		Host              string        `yaml:"host"                env:"HOST"                env-default:"0.0.0.0" validate:"required"`
		Port              string        `yaml:"port"                env:"PORT"                env-default:"8080"    validate:"required,numeric"`
		ReadTimeout       time.Duration `yaml:"read_timeout"        env:"READ_TIMEOUT"        env-default:"5s"      validate:"gte=10ms,lte=30s"`
		WriteTimeout      time.Duration `yaml:"write_timeout"       env:"WRITE_TIMEOUT"       env-default:"5m"      validate:"gte=10ms,lte=30m"`
		IdleTimeout       time.Duration `yaml:"idle_timeout"        env:"IDLE_TIMEOUT"        env-default:"60s"     validate:"gte=10ms,lte=5m"`
		ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"    env:"SHUTDOWN_TIMEOUT"    env-default:"10s"     validate:"gte=10ms,lte=30s"`
		ReadHeaderTimeout time.Duration `yaml:"read_header_timeout" env:"READ_HEADER_TIMEOUT" env-default:"5s"      validate:"gte=10ms,lte=30s"`
	}

	Metrics struct {
		Enabled           bool          `yaml:"enabled"             env:"ENABLED"             env-default:"true"`
		Host              string        `yaml:"host"                env:"HOST"                env-default:"0.0.0.0" validate:"required"`
		Port              string        `yaml:"port"                env:"PORT"                env-default:"9090"    validate:"required,numeric"`
		ReadTimeout       time.Duration `yaml:"read_timeout"        env:"READ_TIMEOUT"        env-default:"5s"      validate:"gte=10ms,lte=30s"`
		WriteTimeout      time.Duration `yaml:"write_timeout"       env:"WRITE_TIMEOUT"       env-default:"5s"      validate:"gte=10ms,lte=30s"`
		ReadHeaderTimeout time.Duration `yaml:"read_header_timeout" env:"READ_HEADER_TIMEOUT" env-default:"5s"      validate:"gte=10ms,lte=30s"`
	}

	Scheduler struct {
		RunAt      string `yaml:"run_at"       env:"RUN_AT"       env-default:"06:00" validate:"datetime=15:04"`
		RunOnStart bool   `yaml:"run_on_start" env:"RUN_ON_START" env-default:"false"`
	}

	Dispatch struct {
		Concurrency    int           `yaml:"concurrency"     env:"CONCURRENCY"     env-default:"1"     validate:"min=1,max=64"`
		ItemTimeout    time.Duration `yaml:"item_timeout"    env:"ITEM_TIMEOUT"    env-default:"30s"   validate:"gte=100ms,lte=10m"`
		BatchLimit     uint64        `yaml:"batch_limit"     env:"BATCH_LIMIT"     env-default:"500"   validate:"min=1,max=10000"`
		ClaimTTL       time.Duration `yaml:"claim_ttl"       env:"CLAIM_TTL"       env-default:"15m"   validate:"gte=1m,lte=24h"`
		MaxRetries     uint64        `yaml:"max_retries"     env:"MAX_RETRIES"     env-default:"2"     validate:"min=0,max=10"`
		RetryInitial   time.Duration `yaml:"retry_initial"   env:"RETRY_INITIAL"   env-default:"500ms" validate:"gte=10ms,lte=1m"`
		RatePerSecond  float64       `yaml:"rate_per_second" env:"RATE_PER_SECOND" env-default:"0"     validate:"min=0"`
		RateBurst      int           `yaml:"rate_burst"      env:"RATE_BURST"      env-default:"1"     validate:"min=1"`
	}

	Transport struct {
		Provider      string `yaml:"provider"       env:"PROVIDER"       env-default:"log" validate:"oneof=smtp amqp telegram kafka log"`
		DefaultSender string `yaml:"default_sender" env:"DEFAULT_SENDER" env-default:"notifications@certalert.local" validate:"required,email"`
	}

	SMTP struct {
		Host               string `yaml:"host"                 env:"HOST"`
		Port               int    `yaml:"port"                 env:"PORT"                 env-default:"587" validate:"gte=1,lte=65535"`
		Username           string `yaml:"username"             env:"USERNAME"`
		Password           string `yaml:"password"             env:"PASSWORD"`
		InsecureSkipVerify bool   `yaml:"insecure_skip_verify" env:"INSECURE_SKIP_VERIFY" env-default:"false"`
	}

	AMQP struct {
		URL            string        `yaml:"url"             env:"URL"`
		Exchange       string        `yaml:"exchange"        env:"EXCHANGE"        env-default:"certalert.notifications"`
		RoutingPrefix  string        `yaml:"routing_prefix"  env:"ROUTING_PREFIX"  env-default:"certalert.notification"`
		ConnectionName string        `yaml:"connection_name" env:"CONNECTION_NAME" env-default:"certalert"`
		Heartbeat      time.Duration `yaml:"heartbeat"       env:"HEARTBEAT"       env-default:"10s" validate:"gte=1s,lte=5m"`
	}

	Telegram struct {
		Token  string `yaml:"token"   env:"TOKEN"`
		ChatID int64  `yaml:"chat_id" env:"CHAT_ID"`
	}

	Kafka struct {
		Brokers      []string      `yaml:"brokers"       env:"BROKERS"       env-separator:","`
		Topic        string        `yaml:"topic"         env:"TOPIC"         env-default:"certalert.notifications"`
		BatchTimeout time.Duration `yaml:"batch_timeout" env:"BATCH_TIMEOUT" env-default:"10ms" validate:"gte=1ms,lte=10s"`
	}

	Tracing struct {
		Enabled     bool    `yaml:"enabled"      env:"ENABLED"      env-default:"false"`
		Endpoint    string  `yaml:"endpoint"     env:"ENDPOINT"     validate:"required_if=Enabled true"`
		SampleRatio float64 `yaml:"sample_ratio" env:"SAMPLE_RATIO" env-default:"1" validate:"min=0,max=1"`
	}
)

// Location returns the zone "today" is computed in.
func (a App) Location() (*time.Location, error) {
	return time.LoadLocation(a.Timezone)
}

// ProviderConfigured reports whether the settings for the named provider are present.
func (c *Config) ProviderConfigured(provider string) bool {
	switch provider {
	case "smtp":
		return c.SMTP.Host != ""
	case "amqp":
		return c.AMQP.URL != ""
	case "telegram":
		return c.Telegram.Token != "" && c.Telegram.ChatID != 0
	case "kafka":
		return len(c.Kafka.Brokers) > 0 && c.Kafka.Topic != ""
	case "log":
		return true
	}
	return false
}

// Load reads the file named by -config or CONFIG_PATH. Without a file the
// configuration comes from the environment only.
func Load() (*Config, error) {
	path := fetchConfigPath()
	if path == "" {
		return LoadEnv()
	}
	return LoadPath(path)
}

func LoadPath(configPath string) (*Config, error) {
	const op = "config.LoadPath"

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: config file does not exist: %s", op, configPath)
	} else if err != nil {
		return nil, fmt.Errorf("%s: checking config file: %w", op, err)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("%s: read config: %w", op, err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &cfg, nil
}

func LoadEnv() (*Config, error) {
	const op = "config.LoadEnv"

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("%s: read env: %w", op, err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	v := validator.New()

	if err := v.Struct(cfg); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			msgs := make([]string, 0, len(validationErrs))
			for _, ve := range validationErrs {
				msgs = append(msgs, fmt.Sprintf("%s=%v must satisfy '%s'", ve.Namespace(), ve.Value(), ve.Tag()))
			}
			return fmt.Errorf("config validation: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("config validation: %w", err)
	}

	return nil
}

func fetchConfigPath() string {
	var path string
	if f := flag.Lookup("config"); f != nil {
		path = f.Value.String()
	} else {
		flag.StringVar(&path, "config", "", "Path to config file")
		flag.Parse()
	}

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	return path
}

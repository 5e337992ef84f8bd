package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/golang-jwt/jwt"
	"github.com/spf13/viper"
)

const DEFAULT_TTL = 60
const DEFAULT_PORT = 1337
const ENV_PREFIX = "FWRULES"

var ErrFileNotFound = errors.New("config file not found")

type ServiceConfig struct {
	Port       uint16 `mapstructure:"port"`
	Host       string `mapstructure:"host"`
	Ttl        int64  `mapstructure:"ttl"`
	HealthPort uint16 `mapstructure:"health_port"`
}

type VerificationConfig struct {
	Algo          string `mapstructure:"algo"`
	PublicKeyFile string `mapstructure:"publicKeyFile"`
	Secret        string `mapstructure:"secret"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Key      string `mapstructure:"key"`
}

type PostgresConfig struct {
	Dsn   string `mapstructure:"dsn"`
	Table string `mapstructure:"table"`
}

type RulesConfig struct {
	// Source is one of file, yaml, redis or postgres.
	Source   string         `mapstructure:"source"`
	Path     string         `mapstructure:"path"`
	Watch    bool           `mapstructure:"watch"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type LoggerConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

type EnforceConfig struct {
	// Backend is iptables or nftables.
	Backend       string `mapstructure:"backend"`
	Table         string `mapstructure:"table"`
	InboundChain  string `mapstructure:"inbound_chain"`
	OutboundChain string `mapstructure:"outbound_chain"`
}

type MarshalledConfig struct {
	Service      ServiceConfig      `mapstructure:"service"`
	Verification VerificationConfig `mapstructure:"verification"`
	Rules        RulesConfig        `mapstructure:"rules"`
	Logger       LoggerConfig       `mapstructure:"logger"`
	Enforce      EnforceConfig      `mapstructure:"enforce"`
}

type AppConfig struct {
	Service      ServiceConfig
	Verification VerificationConfig
	Rules        RulesConfig
	Logger       LoggerConfig
	Enforce      EnforceConfig
	// Keyfunc is nil when queries are not authenticated.
	Keyfunc jwt.Keyfunc
}

type JwtAlgorithm struct {
	GetKeyFunc func(config VerificationConfig) jwt.Keyfunc
}

var SUPPORTED_ALGOS = map[string]JwtAlgorithm{
	"rs256": {
		GetKeyFunc: func(config VerificationConfig) jwt.Keyfunc {
			return func(token *jwt.Token) (interface{}, error) {
				if config.PublicKeyFile == "" {
					return nil, fmt.Errorf("jwt algo rs256 (RSA with SHA256) requires publicKeyFile to be set")
				}
				if strings.ToLower(token.Method.Alg()) != "rs256" {
					return nil, fmt.Errorf("token uses algo %s, expected rs256", token.Method.Alg())
				}

				pem, err := os.ReadFile(config.PublicKeyFile)
				if err != nil {
					return nil, err
				}
				return jwt.ParseRSAPublicKeyFromPEM(pem)
			}
		},
	},
	"hs256": {
		GetKeyFunc: func(config VerificationConfig) jwt.Keyfunc {
			return func(token *jwt.Token) (interface{}, error) {
				if config.Secret == "" {
					return nil, fmt.Errorf("jwt algo hs256 (HMAC SHA256) requires secret to be set")
				}
				if strings.ToLower(token.Method.Alg()) != "hs256" {
					return nil, fmt.Errorf("token uses algo %s, expected hs256", token.Method.Alg())
				}

				return []byte(config.Secret), nil
			}
		},
	},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service.host", "0.0.0.0")
	v.SetDefault("service.port", DEFAULT_PORT)
	v.SetDefault("service.ttl", DEFAULT_TTL)
	v.SetDefault("service.health_port", 0)
	v.SetDefault("verification.algo", "")
	v.SetDefault("verification.publicKeyFile", "")
	v.SetDefault("verification.secret", "")
	v.SetDefault("rules.source", "file")
	v.SetDefault("rules.path", "rules.csv")
	v.SetDefault("rules.watch", false)
	v.SetDefault("rules.redis.address", "localhost:6379")
	v.SetDefault("rules.redis.password", "")
	v.SetDefault("rules.redis.db", 0)
	v.SetDefault("rules.redis.key", "fwrules:rules")
	v.SetDefault("rules.postgres.dsn", "")
	v.SetDefault("rules.postgres.table", "firewall_rules")
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "text")
	v.SetDefault("logger.file", "")
	v.SetDefault("enforce.backend", "iptables")
	v.SetDefault("enforce.table", "filter")
	v.SetDefault("enforce.inbound_chain", "INPUT")
	v.SetDefault("enforce.outbound_chain", "OUTPUT")
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(ENV_PREFIX)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "__", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// Load reads the config at path. An empty path searches ./fwrules.yaml and
// /etc/fwrules/fwrules.yaml and falls back to defaults when neither exists.
func Load(path string) (*AppConfig, error) {
	v := newViper()

	if path == "" {
		v.SetConfigName("fwrules")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/fwrules")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
		return fromViper(v)
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", path, ErrFileNotFound)
		}
		return nil, err
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return fromViper(v)
}

// New parses a YAML config from reader.
func New(reader io.Reader) (*AppConfig, error) {
	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(reader); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	v := newViper()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(buf); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) (*AppConfig, error) {
	var tempConfig MarshalledConfig
	if err := v.Unmarshal(&tempConfig); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if tempConfig.Service.Ttl == 0 {
		tempConfig.Service.Ttl = DEFAULT_TTL
	}
	if tempConfig.Service.Host == "" || tempConfig.Service.Port == 0 {
		return nil, fmt.Errorf("config service definition is invalid: %+v", tempConfig.Service)
	}

	switch tempConfig.Rules.Source {
	case "file", "yaml", "redis", "postgres":
	default:
		return nil, fmt.Errorf("unsupported rules source %q", tempConfig.Rules.Source)
	}

	appConfig := &AppConfig{
		Service:      tempConfig.Service,
		Verification: tempConfig.Verification,
		Rules:        tempConfig.Rules,
		Logger:       tempConfig.Logger,
		Enforce:      tempConfig.Enforce,
	}

	if tempConfig.Verification.Algo != "" {
		algo, ok := SUPPORTED_ALGOS[strings.ToLower(tempConfig.Verification.Algo)]
		if !ok {
			return nil, fmt.Errorf("unsupported algorithm %s", tempConfig.Verification.Algo)
		}
		appConfig.Keyfunc = algo.GetKeyFunc(tempConfig.Verification)
	}

	return appConfig, nil
}

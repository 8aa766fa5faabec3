package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
	"github.com/slighter12/go-lib/database/postgres"
)

const (
	defaultPath               = "."
	defaultMaxRequestBodySize = "100KB"

	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour

	defaultAccessCookieMaxAge  = time.Hour
	defaultRefreshCookieMaxAge = 7 * 24 * time.Hour

	defaultOTPLength         = 6
	defaultOTPTTL            = 10 * time.Minute
	defaultOTPResendCooldown = 60 * time.Second
	defaultOTPMaxAttempts    = 5

	defaultPasswordMinLength = 4
	defaultPasswordMaxLength = 8
)

// Storage drivers for user records and the refresh token registry.
const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

// OTP challenge store drivers.
const (
	OTPStoreMemory = "memory"
	OTPStoreRedis  = "redis"
)

// Supported code delivery transports. An empty provider disables delivery.
const (
	PubSubProviderGoogle = "google"
	PubSubProviderLocal  = "local"
)

type Config struct {
	Env struct {
		Env         string `json:"env" yaml:"env"`
		ServiceName string `json:"serviceName" yaml:"serviceName"`
		Debug       bool   `json:"debug" yaml:"debug"`
		Log         Log    `json:"log" yaml:"log"`
	} `json:"env" yaml:"env"`

	HTTP HTTPConfig `json:"http" yaml:"http"`

	Postgres *postgres.DBConn `json:"postgres" yaml:"postgres" mapstructure:"postgres"`

	Redis *RedisConfig `json:"redis" yaml:"redis"`

	Storage *StorageConfig `json:"storage" yaml:"storage"`

	SecretKey SecretKeyConfig `json:"secretKey" yaml:"secretKey"`

	Token *TokenConfig `json:"token" yaml:"token"`

	Auth *AuthConfig `json:"auth" yaml:"auth"`

	OTP *OTPConfig `json:"otp" yaml:"otp"`

	PasswordStrength *PasswordStrengthConfig `json:"passwordStrength" yaml:"passwordStrength"`

	// PubSub configuration for OTP delivery events
	PubSub *PubSubConfig `json:"pubsub" yaml:"pubsub"`

	// BootstrapAdmin seeds the first administrator account at startup
	BootstrapAdmin *BootstrapAdminConfig `json:"bootstrapAdmin" yaml:"bootstrapAdmin"`
}

type HTTPConfig struct {
	Port               int    `json:"port" yaml:"port"`
	MaxRequestBodySize string `json:"maxRequestBodySize" yaml:"maxRequestBodySize"`
	Timeouts           struct {
		ReadTimeout       time.Duration `json:"readTimeout" yaml:"readTimeout"`
		ReadHeaderTimeout time.Duration `json:"readHeaderTimeout" yaml:"readHeaderTimeout"`
		WriteTimeout      time.Duration `json:"writeTimeout" yaml:"writeTimeout"`
		IdleTimeout       time.Duration `json:"idleTimeout" yaml:"idleTimeout"`
	} `json:"timeouts" yaml:"timeouts"`
	Cookie CookieConfig `json:"cookie" yaml:"cookie"`
}

// CookieConfig controls the token cookies set on login and refresh.
type CookieConfig struct {
	Domain        string        `json:"domain" yaml:"domain"`
	Path          string        `json:"path" yaml:"path"`
	Secure        bool          `json:"secure" yaml:"secure"`
	AccessMaxAge  time.Duration `json:"accessMaxAge" yaml:"accessMaxAge"`
	RefreshMaxAge time.Duration `json:"refreshMaxAge" yaml:"refreshMaxAge"`
}

// SecretKeyConfig holds the HMAC signing secrets. Both are required.
type SecretKeyConfig struct {
	Access  string `json:"access" yaml:"access"`
	Refresh string `json:"refresh" yaml:"refresh"`
}

// TokenConfig defines token lifetimes
type TokenConfig struct {
	Issuer     string        `json:"issuer" yaml:"issuer"`
	AccessTTL  time.Duration `json:"accessTTL" yaml:"accessTTL"`
	RefreshTTL time.Duration `json:"refreshTTL" yaml:"refreshTTL"`
}

// AuthConfig defines authentication-related configuration
type AuthConfig struct {
	BcryptCost int `json:"bcryptCost" yaml:"bcryptCost"`
	// RefreshTokenRegistry records issued refresh tokens so they can be rotated and revoked.
	RefreshTokenRegistry bool `json:"refreshTokenRegistry" yaml:"refreshTokenRegistry"`
}

// OTPConfig defines one-time passcode behavior
type OTPConfig struct {
	Store          string        `json:"store" yaml:"store"`
	Length         int           `json:"length" yaml:"length"`
	TTL            time.Duration `json:"ttl" yaml:"ttl"`
	// ResendCooldown is the minimum gap between two issued codes. Negative disables it.
	ResendCooldown time.Duration `json:"resendCooldown" yaml:"resendCooldown"`
	MaxAttempts    int           `json:"maxAttempts" yaml:"maxAttempts"`
	// Retention keeps expired challenges around long enough to report them as expired.
	Retention time.Duration `json:"retention" yaml:"retention"`
	// SweepInterval enables periodic cleanup for the memory store. Zero disables it.
	SweepInterval time.Duration `json:"sweepInterval" yaml:"sweepInterval"`
}

// PasswordStrengthConfig defines password strength requirements
type PasswordStrengthConfig struct {
	MinLength        int  `json:"minLength" yaml:"minLength"`
	RequireUppercase bool `json:"requireUppercase" yaml:"requireUppercase"`
	RequireLowercase bool `json:"requireLowercase" yaml:"requireLowercase"`
	RequireNumbers   bool `json:"requireNumbers" yaml:"requireNumbers"`
	RequireSpecial   bool `json:"requireSpecial" yaml:"requireSpecial"`
	MaxLength        int  `json:"maxLength" yaml:"maxLength"`
}

// StorageConfig selects the persistence backend
type StorageConfig struct {
	Driver string `json:"driver" yaml:"driver"`
	// AutoMigrate creates or updates the postgres tables at startup.
	AutoMigrate bool `json:"autoMigrate" yaml:"autoMigrate"`
}

// RedisConfig defines the redis connection used by the OTP store
type RedisConfig struct {
	Addr     string `json:"addr" yaml:"addr"`
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`
	Prefix   string `json:"prefix" yaml:"prefix"`
}

type Log struct {
	Pretty bool   `json:"pretty" yaml:"pretty"`
	Level  string `json:"level" yaml:"level"`
}

// PubSubConfig defines Pub/Sub configuration for OTP delivery events
type PubSubConfig struct {
	// Provider type: "local" for local HTTP or "google" for Google Pub/Sub
	Provider string `json:"provider" yaml:"provider"`

	// Google Cloud project ID (for google provider)
	ProjectID string `json:"projectId" yaml:"projectId"`

	// Pub/Sub topic ID (for google provider)
	TopicID string `json:"topicId" yaml:"topicId"`

	// Local HTTP endpoint for development (for local provider)
	LocalEndpoint string `json:"localEndpoint" yaml:"localEndpoint"`
}

// BootstrapAdminConfig describes the administrator created on first start
type BootstrapAdminConfig struct {
	Email     string `json:"email" yaml:"email"`
	Password  string `json:"password" yaml:"password"`
	FirstName string `json:"firstName" yaml:"firstName"`
	LastName  string `json:"lastName" yaml:"lastName"`
}

// LoadWithEnv loads .yaml files through koanf.
func LoadWithEnv[T any](currEnv string, configPath ...string) (*T, error) {
	cfg := new(T)
	koanfInstance := koanf.New(".")

	// Build list of paths to search for config file
	searchPaths := []string{defaultPath}
	if len(configPath) != 0 {
		pwd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, "os.Getwd")
		}
		for _, path := range configPath {
			abs := filepath.Join(pwd, path)
			searchPaths = append(searchPaths, abs)
		}
	}

	var configFile string
	var found bool
	for _, path := range searchPaths {
		candidate := filepath.Join(path, currEnv+".yaml")
		if _, err := os.Stat(candidate); err == nil {
			configFile = candidate
			found = true

			break
		}
	}

	if !found {
		return nil, errors.Errorf("config file %s.yaml not found in any search path", currEnv)
	}

	if err := koanfInstance.Load(file.Provider(configFile), yaml.Parser()); err != nil {
		return nil, errors.Wrapf(err, "read %s config failed", currEnv)
	}

	existingConfigMap := koanfInstance.Raw()

	// Load environment variables
	if err := koanfInstance.Load(env.Provider(".", env.Opt{
		TransformFunc: func(k, v string) (string, any) {
			// Example: SECRETKEY_ACCESS -> secretKey.access
			key := canonicalizeEnvKey(k, existingConfigMap)

			return key, v
		},
	}), nil); err != nil {
		return nil, errors.Wrap(err, "load env variables failed")
	}

	if err := koanfInstance.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
			MatchName: func(mapKey, fieldName string) bool {
				// Case-insensitive matching for env var overrides
				return strings.EqualFold(mapKey, fieldName)
			},
		},
	}); err != nil {
		return nil, errors.Wrapf(err, "unmarshal %s config failed", currEnv)
	}

	return cfg, nil
}

func New() (*Config, error) {
	cfg, err := LoadWithEnv[Config]("config", "config", "../config", "../../config")
	if err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()

	if cfg.Postgres != nil {
		// Build replicas from environment variables (POSTGRES_REPLICAS_0_HOST, POSTGRES_REPLICAS_0_PORT, etc.)
		cfg.Postgres.Replicas = buildReplicasFromEnv()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyDefaults fills optional sections. Signing secrets never get a default.
func (c *Config) ApplyDefaults() {
	if strings.TrimSpace(c.HTTP.MaxRequestBodySize) == "" {
		c.HTTP.MaxRequestBodySize = defaultMaxRequestBodySize
	}
	if c.HTTP.Cookie.Path == "" {
		c.HTTP.Cookie.Path = "/"
	}
	if c.HTTP.Cookie.AccessMaxAge <= 0 {
		c.HTTP.Cookie.AccessMaxAge = defaultAccessCookieMaxAge
	}
	if c.HTTP.Cookie.RefreshMaxAge <= 0 {
		c.HTTP.Cookie.RefreshMaxAge = defaultRefreshCookieMaxAge
	}

	if c.Storage == nil {
		c.Storage = &StorageConfig{}
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = StorageDriverPostgres
	}

	if c.Token == nil {
		c.Token = &TokenConfig{}
	}
	if c.Token.AccessTTL == 0 {
		c.Token.AccessTTL = defaultAccessTTL
	}
	if c.Token.RefreshTTL == 0 {
		c.Token.RefreshTTL = defaultRefreshTTL
	}
	if c.Token.Issuer == "" {
		c.Token.Issuer = c.Env.ServiceName
	}

	if c.Auth == nil {
		c.Auth = &AuthConfig{}
	}

	if c.OTP == nil {
		c.OTP = &OTPConfig{}
	}
	if c.OTP.Store == "" {
		c.OTP.Store = OTPStoreMemory
	}
	if c.OTP.Length <= 0 {
		c.OTP.Length = defaultOTPLength
	}
	if c.OTP.TTL <= 0 {
		c.OTP.TTL = defaultOTPTTL
	}
	if c.OTP.ResendCooldown == 0 {
		c.OTP.ResendCooldown = defaultOTPResendCooldown
	}
	if c.OTP.MaxAttempts <= 0 {
		c.OTP.MaxAttempts = defaultOTPMaxAttempts
	}
	if c.OTP.Retention <= 0 {
		c.OTP.Retention = c.OTP.TTL
	}

	if c.PasswordStrength == nil {
		c.PasswordStrength = &PasswordStrengthConfig{
			MinLength: defaultPasswordMinLength,
			MaxLength: defaultPasswordMaxLength,
		}
	}
}

// Validate rejects configurations the service must not start with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.SecretKey.Access) == "" || strings.TrimSpace(c.SecretKey.Refresh) == "" {
		return errors.New("secretKey.access and secretKey.refresh must be configured")
	}

	if c.Token != nil {
		if c.Token.AccessTTL <= 0 || c.Token.RefreshTTL <= 0 {
			return errors.New("token TTLs must be positive")
		}
		if c.Token.AccessTTL >= c.Token.RefreshTTL {
			return errors.Errorf("token.accessTTL (%s) must be shorter than token.refreshTTL (%s)", c.Token.AccessTTL, c.Token.RefreshTTL)
		}
	}

	if c.Storage != nil {
		switch c.Storage.Driver {
		case StorageDriverPostgres:
			if c.Postgres == nil {
				return errors.New("postgres configuration is required for the postgres storage driver")
			}
		case StorageDriverMemory:
		default:
			return errors.Errorf("unknown storage driver: %s", c.Storage.Driver)
		}
	}

	if c.OTP != nil {
		switch c.OTP.Store {
		case OTPStoreMemory:
		case OTPStoreRedis:
			if c.Redis == nil || c.Redis.Addr == "" {
				return errors.New("redis.addr is required for the redis otp store")
			}
		default:
			return errors.Errorf("unknown otp store: %s", c.OTP.Store)
		}
	}

	if c.PasswordStrength != nil && c.PasswordStrength.MaxLength > 0 &&
		c.PasswordStrength.MaxLength < c.PasswordStrength.MinLength {
		return errors.New("passwordStrength.maxLength must not be less than minLength")
	}

	return nil
}

func canonicalizeEnvKey(rawKey string, existing map[string]any) string {
	segments := strings.Split(strings.ToLower(rawKey), "_")
	canonical := make([]string, 0, len(segments))
	current := existing

	for _, segment := range segments {
		if segment == "" {
			continue
		}

		if matched, next, ok := findExistingSegment(current, segment); ok {
			canonical = append(canonical, matched)
			current = next
		} else {
			canonical = append(canonical, segment)
			current = nil
		}
	}

	return strings.Join(canonical, ".")
}

func findExistingSegment(current map[string]any, segment string) (matched string, next map[string]any, ok bool) {
	if len(current) == 0 {
		return "", nil, false
	}

	needle := normalizeToken(segment)
	for key, value := range current {
		if normalizeToken(key) != needle {
			continue
		}

		child, _ := value.(map[string]any)

		return key, child, true
	}

	return "", nil, false
}

func normalizeToken(s string) string {
	var normalized strings.Builder
	normalized.Grow(len(s))

	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		normalized.WriteRune(unicode.ToLower(r))
	}

	return normalized.String()
}

// buildReplicasFromEnv builds the replicas slice from environment variables.
// Environment variable format: POSTGRES_REPLICAS_{index}_{field}
func buildReplicasFromEnv() []postgres.ConnectionConfig {
	var replicas []postgres.ConnectionConfig

	for i := 0; ; i++ {
		prefix := "POSTGRES_REPLICAS_" + strconv.Itoa(i) + "_"

		host := os.Getenv(prefix + "HOST")
		port := os.Getenv(prefix + "PORT")
		if host == "" || port == "" {
			break
		}

		replicas = append(replicas, postgres.ConnectionConfig{
			Host:     host,
			Port:     port,
			UserName: os.Getenv(prefix + "USERNAME"),
			Password: os.Getenv(prefix + "PASSWORD"),
		})
	}

	return replicas
}

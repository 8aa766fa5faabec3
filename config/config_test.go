package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newValidConfig() *Config {
	cfg := &Config{
		SecretKey: SecretKeyConfig{
			Access:  "access-secret",
			Refresh: "refresh-secret",
		},
		Storage: &StorageConfig{Driver: StorageDriverMemory},
	}
	cfg.ApplyDefaults()

	return cfg
}

func TestApplyDefaults(t *testing.T) {
	cfg := newValidConfig()

	assert.Equal(t, defaultAccessTTL, cfg.Token.AccessTTL)
	assert.Equal(t, defaultRefreshTTL, cfg.Token.RefreshTTL)
	assert.Equal(t, 6, cfg.OTP.Length)
	assert.Equal(t, 10*time.Minute, cfg.OTP.TTL)
	assert.Equal(t, 60*time.Second, cfg.OTP.ResendCooldown)
	assert.Equal(t, OTPStoreMemory, cfg.OTP.Store)
	assert.Equal(t, time.Hour, cfg.HTTP.Cookie.AccessMaxAge)
	assert.Equal(t, 7*24*time.Hour, cfg.HTTP.Cookie.RefreshMaxAge)
	assert.Equal(t, 4, cfg.PasswordStrength.MinLength)
	assert.Equal(t, 8, cfg.PasswordStrength.MaxLength)
	assert.Equal(t, StorageDriverMemory, cfg.Storage.Driver)

	require.NoError(t, cfg.Validate())
}

func TestApplyDefaults_NegativeCooldownIsKept(t *testing.T) {
	cfg := &Config{OTP: &OTPConfig{ResendCooldown: -time.Second}}
	cfg.ApplyDefaults()

	assert.Equal(t, -time.Second, cfg.OTP.ResendCooldown)
}

func TestValidate_RequiresSecrets(t *testing.T) {
	tests := []struct {
		name    string
		access  string
		refresh string
	}{
		{name: "both missing"},
		{name: "access missing", refresh: "r"},
		{name: "refresh missing", access: "a"},
		{name: "blank access", access: "   ", refresh: "r"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newValidConfig()
			cfg.SecretKey = SecretKeyConfig{Access: tt.access, Refresh: tt.refresh}

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "secretKey")
		})
	}
}

func TestValidate_AccessTTLMustBeShorter(t *testing.T) {
	cfg := newValidConfig()
	cfg.Token.AccessTTL = 2 * time.Hour
	cfg.Token.RefreshTTL = time.Hour

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be shorter")
}

func TestValidate_StoreDrivers(t *testing.T) {
	cfg := newValidConfig()
	cfg.Storage.Driver = StorageDriverPostgres
	assert.Error(t, cfg.Validate(), "postgres driver without connection settings")

	cfg = newValidConfig()
	cfg.Storage.Driver = "mongo"
	assert.Error(t, cfg.Validate())

	cfg = newValidConfig()
	cfg.OTP.Store = OTPStoreRedis
	assert.Error(t, cfg.Validate(), "redis store without address")

	cfg.Redis = &RedisConfig{Addr: "localhost:6379"}
	assert.NoError(t, cfg.Validate())
}

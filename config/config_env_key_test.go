package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalizeEnvKey(t *testing.T) {
	existing := map[string]any{
		"postgres": map[string]any{
			"sslMode": "disable",
			"master":  map[string]any{"userName": "user"},
		},
		"otp":            map[string]any{"resendCooldown": "60s", "maxAttempts": 5},
		"secretKey":      map[string]any{"access": "", "refresh": ""},
		"token":          map[string]any{"accessTTL": "15m"},
		"bootstrapAdmin": map[string]any{"email": ""},
		"http":           map[string]any{"cookie": map[string]any{"secure": false}},
	}

	tests := map[string]string{
		"POSTGRES_SSLMODE":         "postgres.sslMode",
		"POSTGRES_MASTER_USERNAME": "postgres.master.userName",
		"OTP_RESENDCOOLDOWN":       "otp.resendCooldown",
		"OTP_MAXATTEMPTS":          "otp.maxAttempts",
		"SECRETKEY_ACCESS":         "secretKey.access",
		"SECRETKEY_REFRESH":        "secretKey.refresh",
		"TOKEN_ACCESSTTL":          "token.accessTTL",
		"BOOTSTRAPADMIN_EMAIL":     "bootstrapAdmin.email",
		"HTTP_COOKIE_SECURE":       "http.cookie.secure",
		"NEW_FEATURE_FLAG":         "new.feature.flag",
		"OTP__TTL":                 "otp.ttl",
	}

	for envKey, want := range tests {
		t.Run(envKey, func(t *testing.T) {
			assert.Equal(t, want, canonicalizeEnvKey(envKey, existing))
		})
	}
}

package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withEnv(t *testing.T, envVars map[string]string) {
	for key, value := range envVars {
		t.Setenv(key, value)
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		check   func(t *testing.T, cfg *Config)
		wantErr bool
	}{
		{
			name: "valid configuration",
			envVars: map[string]string{
				"DB_HOST":            "test-host",
				"DB_PORT":            "5433",
				"DB_NAME":            "portal_test",
				"DB_USER":            "portal",
				"DB_PASSWORD":        "secret",
				"DB_SSL_MODE":        "require",
				"LISTEN_ADDR":        ":9090",
				"ADMIN_API_TOKEN":    "admin-token",
				"UPLOAD_DIR":         "/var/lib/portal/uploads",
				"API_BASE_URL":       "https://portal.internal",
				"API_CLIENT_TIMEOUT": "45s",
				"SCHEDULER_ENABLED":  "false",
				"SCHEDULER_TIMEZONE": "Europe/Berlin",
				"LOG_LEVEL":          "debug",
				"ENVIRONMENT":        "staging",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "test-host", cfg.Database.Host)
				assert.Equal(t, 5433, cfg.Database.Port)
				assert.Equal(t, "require", cfg.Database.SSLMode)
				assert.Equal(t, ":9090", cfg.Server.ListenAddr)
				assert.Equal(t, "admin-token", cfg.Server.AdminAPIToken)
				assert.Equal(t, "/var/lib/portal/uploads", cfg.Server.UploadDir)
				assert.Equal(t, "https://portal.internal", cfg.Client.BaseURL)
				assert.Equal(t, 45*time.Second, cfg.Client.Timeout)
				assert.False(t, cfg.Scheduler.Enabled)
				assert.Equal(t, "Europe/Berlin", cfg.Scheduler.Timezone)
				assert.Equal(t, "debug", cfg.App.LogLevel)
			},
		},
		{
			name:    "defaults",
			envVars: map[string]string{},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "localhost", cfg.Database.Host)
				assert.Equal(t, 5432, cfg.Database.Port)
				assert.Equal(t, ":8080", cfg.Server.ListenAddr)
				assert.Equal(t, "uploads", cfg.Server.UploadDir)
				assert.True(t, cfg.Scheduler.Enabled)
				assert.Equal(t, "UTC", cfg.Scheduler.Timezone)
				assert.Equal(t, "info", cfg.App.LogLevel)
			},
		},
		{
			name: "client token falls back to admin token",
			envVars: map[string]string{
				"ADMIN_API_TOKEN": "shared-token",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "shared-token", cfg.Client.APIToken)
			},
		},
		{
			name: "invalid DB_PORT",
			envVars: map[string]string{
				"DB_PORT": "not-a-port",
			},
			wantErr: true,
		},
		{
			name: "invalid SCHEDULER_ENABLED",
			envVars: map[string]string{
				"SCHEDULER_ENABLED": "perhaps",
			},
			wantErr: true,
		},
		{
			name: "invalid client timeout",
			envVars: map[string]string{
				"API_CLIENT_TIMEOUT": "soon",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			withEnv(t, tt.envVars)

			cfg, err := Load()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	validConfig := func() *Config {
		return &Config{
			Database: DatabaseConfig{
				Host:            "localhost",
				Port:            5432,
				Name:            "pentest_portal",
				User:            "pentest_portal",
				SSLMode:         "disable",
				ConnectTimeout:  30 * time.Second,
				MaxOpenConns:    25,
				MaxIdleConns:    5,
				ConnMaxLifetime: 5 * time.Minute,
			},
			Server: ServerConfig{
				ListenAddr: ":8080",
				UploadDir:  "uploads",
			},
			App: AppConfig{
				LogLevel:    "info",
				LogFormat:   "text",
				Environment: "development",
			},
		}
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, validConfig().Validate())
	})

	t.Run("bad ssl mode", func(t *testing.T) {
		cfg := validConfig()
		cfg.Database.SSLMode = "maybe"
		assert.Error(t, cfg.Validate())
	})

	t.Run("idle conns exceed open conns", func(t *testing.T) {
		cfg := validConfig()
		cfg.Database.MaxIdleConns = 50
		assert.Error(t, cfg.Validate())
	})

	t.Run("production requires admin token", func(t *testing.T) {
		cfg := validConfig()
		cfg.App.Environment = "production"
		assert.Error(t, cfg.Validate())

		cfg.Server.AdminAPIToken = "token"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("bad log level", func(t *testing.T) {
		cfg := validConfig()
		cfg.App.LogLevel = "verbose"
		assert.Error(t, cfg.Validate())
	})

	t.Run("bad log format", func(t *testing.T) {
		cfg := validConfig()
		cfg.App.LogFormat = "xml"
		assert.Error(t, cfg.Validate())
	})
}

func TestConfig_GetDSN(t *testing.T) {
	cfg := &Config{
		Database: DatabaseConfig{
			Host:           "db.internal",
			Port:           5432,
			Name:           "pentest_portal",
			User:           "portal",
			Password:       "secret",
			SSLMode:        "require",
			ConnectTimeout: 30 * time.Second,
		},
	}

	assert.Equal(t,
		"host=db.internal port=5432 dbname=pentest_portal user=portal password=secret sslmode=require connect_timeout=30",
		cfg.GetDSN())
}

package flexconfig

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saruyev/flexconfig/feeders"
)

type databaseConfig struct {
	Host     string        `json:"host"`
	Port     int           `json:"port"`
	Replicas []string      `json:"replicas"`
	Timeout  time.Duration `json:"timeout"`
	Pool     struct {
		Max int `json:"max"`
	} `json:"pool"`
}

func TestUnmarshalSection(t *testing.T) {
	cfg := buildConfig(t, map[string]string{
		"Database:Host":     "db1",
		"Database:Port":     "5432",
		"Database:Replicas": "db2,db3",
		"Database:Timeout":  "45s",
		"Database:Pool:Max": "10",
	})

	var db databaseConfig
	require.NoError(t, cfg.Section("Database").Unmarshal(&db, nil))

	assert.Equal(t, "db1", db.Host)
	assert.Equal(t, 5432, db.Port)
	assert.Equal(t, []string{"db2", "db3"}, db.Replicas)
	assert.Equal(t, 45*time.Second, db.Timeout)
	assert.Equal(t, 10, db.Pool.Max)
}

func TestUnmarshalCustomTag(t *testing.T) {
	type tagged struct {
		Name string `cfg:"host"`
	}
	cfg := buildConfig(t, map[string]string{"host": "db1"})

	var out tagged
	require.NoError(t, cfg.Unmarshal(&out, &BindOptions{TagName: "cfg"}))
	assert.Equal(t, "db1", out.Name)
}

func TestUnmarshalErrorUnused(t *testing.T) {
	type narrow struct {
		Host string `json:"host"`
	}
	cfg := buildConfig(t, map[string]string{
		"host":  "db1",
		"extra": "unexpected",
	})

	var out narrow
	err := cfg.Unmarshal(&out, &BindOptions{ErrorUnused: true})
	assert.Error(t, err)
}

func TestUnmarshalTargetValidation(t *testing.T) {
	cfg := buildConfig(t, map[string]string{"host": "db1"})

	assert.ErrorIs(t, cfg.Unmarshal(nil, nil), ErrConfigNil)

	var notPointer databaseConfig
	assert.ErrorIs(t, cfg.Unmarshal(notPointer, nil), ErrTargetNotPointer)
}

func TestUnmarshalIntoMap(t *testing.T) {
	cfg := buildConfig(t, map[string]string{
		"App:Name": "demo",
		"App:Port": "8080",
	})

	out := map[string]any{}
	require.NoError(t, cfg.Section("App").Unmarshal(&out, nil))
	assert.Equal(t, "demo", out["Name"])
}

type validatedConfig struct {
	Name string `json:"name" default:"fallback"`
	Port int    `json:"port" required:"true"`
}

var errPortTooSmall = errors.New("port too small")

func (c *validatedConfig) Validate() error {
	if c.Port < 1024 {
		return errPortTooSmall
	}
	return nil
}

func TestUnmarshalAppliesDefaultsAndValidation(t *testing.T) {
	cfg := buildConfig(t, map[string]string{"port": "8080"})

	var out validatedConfig
	require.NoError(t, cfg.Unmarshal(&out, nil))
	assert.Equal(t, "fallback", out.Name)
	assert.Equal(t, 8080, out.Port)
}

func TestUnmarshalReportsMissingRequired(t *testing.T) {
	cfg := buildConfig(t, map[string]string{"name": "demo"})

	var out validatedConfig
	err := cfg.Unmarshal(&out, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRequiredFieldMissing)
	assert.Contains(t, err.Error(), "Port")
}

func TestUnmarshalRunsCustomValidation(t *testing.T) {
	cfg := buildConfig(t, map[string]string{"port": "80"})

	var out validatedConfig
	err := cfg.Unmarshal(&out, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidationFailed)
	assert.ErrorIs(t, err, errPortTooSmall)
}

func TestUnmarshalRebindsAfterReload(t *testing.T) {
	feeder := feeders.NewMemoryFeeder(map[string]string{"server:port": "8080"})
	cfg, err := NewBuilder().AddFeeder(feeder).Build(context.Background())
	require.NoError(t, err)

	type serverConfig struct {
		Port int `json:"port"`
	}
	var out serverConfig
	require.NoError(t, cfg.Section("server").Unmarshal(&out, nil))
	assert.Equal(t, 8080, out.Port)

	feeder.Set("server:port", "9090")
	require.NoError(t, cfg.Reload(context.Background()))
	require.NoError(t, cfg.Section("server").Unmarshal(&out, nil))
	assert.Equal(t, 9090, out.Port)
}

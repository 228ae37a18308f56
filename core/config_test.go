package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("ENV", "")

		conf, err := NewConfig()
		require.NoError(t, err)
		assert.Equal(t, "DEV", conf.Env)
		assert.True(t, conf.Debug)
		assert.False(t, conf.TestMode)
		assert.Equal(t, ":8000", conf.Server.Address)
		assert.Equal(t, "sqlite", conf.Database.Engine)
	})

	t.Run("test env", func(t *testing.T) {
		t.Setenv("ENV", "test")
		t.Setenv("TEST_DATABASE_ENGINE", "postgres")
		t.Setenv("TEST_DATABASE_DSN", "postgres://localhost/teacherhub_test")
		t.Setenv("TEST_SERVER_ADDRESS", ":9000")
		t.Setenv("TEST_DEBUG", "false")

		conf, err := NewConfig()
		require.NoError(t, err)
		assert.Equal(t, "TEST", conf.Env)
		assert.True(t, conf.TestMode)
		assert.False(t, conf.Debug)
		assert.Equal(t, ":9000", conf.Server.Address)
		assert.Equal(t, "postgres", conf.Database.Engine)
		assert.Equal(t, "postgres://localhost/teacherhub_test", conf.Database.DSN)
	})
}

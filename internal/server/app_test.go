package server

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func testConfig() *config.Config {
	c := &config.Config{}
	c.LoadDefaults()
	c.DatabaseDriver = config.DriverSQLite
	c.DatabaseDSN = ":memory:"
	c.HTTPAddr = "127.0.0.1:0"
	c.GRPCAddr = "127.0.0.1:0"
	c.BcryptCost = 4
	return c
}

func TestNewApp_UnknownDriver(t *testing.T) {
	c := testConfig()
	c.DatabaseDriver = "mysql"

	_, err := NewApp(context.Background(), c, logging.Nop())
	require.Error(t, err)
}

func TestNewApp_WarnsAboutDefaultSecrets(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(c *config.Config)
		warnings int
	}{
		{name: "defaults", mutate: func(*config.Config) {}, warnings: 1},
		{name: "own secrets", mutate: func(c *config.Config) {
			c.AccessTokenSecret = "a"
			c.RefreshTokenSecret = "r"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testConfig()
			tt.mutate(c)
			core, logs := observer.New(zapcore.WarnLevel)

			app, err := NewApp(context.Background(), c, logging.NewZapLogger(zap.New(core)))
			require.NoError(t, err)
			t.Cleanup(func() { app.db.Close() })

			assert.Equal(t, tt.warnings, logs.FilterMessageSnippet("development token secrets").Len())
		})
	}
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	app, err := NewApp(context.Background(), testConfig(), logging.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("app did not stop")
	}
}

func TestApp_RunFailsOnBadAddress(t *testing.T) {
	c := testConfig()
	c.HTTPAddr = "127.0.0.1:99999"

	app, err := NewApp(context.Background(), c, logging.Nop())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- app.Run(context.Background()) }()

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("app did not stop")
	}
}

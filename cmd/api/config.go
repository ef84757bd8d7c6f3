package main

import (
	"log/slog"
	"time"

	"github.com/virtualgoods/ordercore/internal/infra/pgutils"
	"github.com/virtualgoods/ordercore/internal/provider"
	"github.com/virtualgoods/ordercore/internal/services/reconciler"
)

type apiConfig struct {
	Port            uint16        `env:"APP_PORT"`
	LogLevel        slog.Level    `env:"APP_LOG_LEVEL"`
	ShutdownTimeout time.Duration `env:"APP_SHUTDOWN_TIMEOUT"`

	Postgres   postgresConf
	Provider   providerConf
	Reconciler reconcilerConf
}

type postgresConf struct {
	DSN             string        `env:"PG_DSN"`
	MaxOpenConns    int           `env:"PG_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `env:"PG_MAX_IDLE_CONNS"`
	ConnMaxIdleTime time.Duration `env:"PG_CONN_MAX_IDLE_TIME"`
	ConnMaxLifetime time.Duration `env:"PG_CONN_MAX_LIFETIME"`
}

func (pc postgresConf) pool() pgutils.PoolConfig {
	return pgutils.PoolConfig{
		MaxOpenConns:    pc.MaxOpenConns,
		MaxIdleConns:    pc.MaxIdleConns,
		ConnMaxIdleTime: pc.ConnMaxIdleTime,
		ConnMaxLifetime: pc.ConnMaxLifetime,
	}
}

type providerConf struct {
	BaseURL string        `env:"PROVIDER_BASE_URL"`
	APIKey  string        `env:"PROVIDER_API_KEY"`
	Timeout time.Duration `env:"PROVIDER_TIMEOUT"`
}

func (pc providerConf) clientConfig() provider.Config {
	return provider.Config{
		BaseURL: pc.BaseURL,
		APIKey:  pc.APIKey,
		Timeout: pc.Timeout,
	}
}

type reconcilerConf struct {
	Interval    time.Duration `env:"RECONCILE_INTERVAL"`
	CallTimeout time.Duration `env:"RECONCILE_CALL_TIMEOUT"`
}

func (rc reconcilerConf) config() reconciler.Config {
	return reconciler.Config{
		Interval:    rc.Interval,
		CallTimeout: rc.CallTimeout,
	}
}

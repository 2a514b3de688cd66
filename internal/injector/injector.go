//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package injector

import (
	"github.com/google/wire"

	"github.com/simlink/simlink/internal/core/config"
	"github.com/simlink/simlink/internal/core/observability/log"
	"github.com/simlink/simlink/internal/core/rpc"
	"github.com/simlink/simlink/internal/core/session"
)

// ProvideSession assembles a session from configuration.
func ProvideSession(cfg config.Config) (*session.Session, error) {
	wire.Build(
		ProvideLogger,
		ProvideGuard,
		session.New,
	)
	return nil, nil
}

func ProvideLogger(cfg config.Config) log.Log {
	return log.New(log.ParseLevel(cfg.LogLevel))
}

func ProvideGuard(cfg config.Config, logger log.Log) (*session.Guard, error) {
	transport, err := rpc.TransportFor(cfg.Transport, cfg.ConnectTimeout)
	if err != nil {
		return nil, err
	}
	dial := session.TransportDialer(transport, cfg.Addr(), cfg.RequestTimeout, logger)
	guard := session.NewGuard(dial, cfg.Addr(), cfg.RequestTimeout, logger)
	guard.SetProbeTimeout(cfg.ProbeTimeout)
	return guard, nil
}

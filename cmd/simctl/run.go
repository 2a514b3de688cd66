package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/simlink/simlink/internal/core/config"
	"github.com/simlink/simlink/internal/core/entity"
	"github.com/simlink/simlink/internal/core/executor"
	"github.com/simlink/simlink/internal/core/observability/log"
	"github.com/simlink/simlink/internal/core/rpc"
	"github.com/simlink/simlink/internal/core/session"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	var (
		duration float64
		ticks    int
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Spawn the configured scenario and drive the simulation",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(opts)
			if err != nil {
				return err
			}

			sess, err := buildSession(cfg, logger)
			if err != nil {
				return err
			}

			return sess.Run(cmd.Context(), func(ctx context.Context, s *session.Session) error {
				if err := buildScenario(s.Registry(), cfg.Scenario); err != nil {
					return err
				}
				if err := s.SpawnAll(ctx); err != nil {
					return err
				}
				logger.Info("Scenario spawned", log.Int("entities", len(cfg.Scenario.Entities)))

				exec, err := buildExecutor(ctx, s, cfg.Executor)
				if err != nil {
					return err
				}
				defer func() {
					if cerr := exec.Close(); cerr != nil {
						logger.Warn("Executor close failed", log.Error(cerr))
					}
				}()

				progress := executor.WithProgress(executor.LogProgress(logger))
				switch {
				case ticks > 0:
					return exec.WaitTicks(ctx, ticks, progress)
				case duration > 0:
					return exec.WaitSimSeconds(ctx, duration, progress)
				default:
					logger.Info("No duration given, spinning until interrupted")
					return exec.Spin(ctx)
				}
			})
		},
	}

	cmd.Flags().Float64VarP(&duration, "duration", "d", 0, "simulated seconds to run")
	cmd.Flags().IntVarP(&ticks, "ticks", "t", 0, "server ticks to run (takes precedence over --duration)")

	return cmd
}

func newPingCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the simulation server is reachable",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(opts)
			if err != nil {
				return err
			}

			guard, err := buildGuard(cfg, logger)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if err = guard.Connect(ctx); err != nil {
				return err
			}
			defer guard.Disconnect()

			now, err := guard.Server().ServerTime(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("server %s is up: tick=%d elapsed=%.3fs\n", cfg.Addr(), now.Tick, now.Elapsed)
			return nil
		},
	}
}

func loadConfig(opts *rootOptions) (config.Config, log.Log, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return config.Config{}, nil, err
	}
	if opts.host != "" {
		cfg.Host = opts.host
	}
	if opts.port != 0 {
		cfg.Port = opts.port
	}
	if opts.transport != "" {
		cfg.Transport = opts.transport
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	if err = cfg.Validate(); err != nil {
		return config.Config{}, nil, err
	}

	return cfg, log.New(log.ParseLevel(cfg.LogLevel)), nil
}

func buildGuard(cfg config.Config, logger log.Log) (*session.Guard, error) {
	transport, err := rpc.TransportFor(cfg.Transport, cfg.ConnectTimeout)
	if err != nil {
		return nil, err
	}
	dial := session.TransportDialer(transport, cfg.Addr(), cfg.RequestTimeout, logger)
	guard := session.NewGuard(dial, cfg.Addr(), cfg.RequestTimeout, logger)
	guard.SetProbeTimeout(cfg.ProbeTimeout)
	return guard, nil
}

func buildSession(cfg config.Config, logger log.Log) (*session.Session, error) {
	guard, err := buildGuard(cfg, logger)
	if err != nil {
		return nil, err
	}
	return session.New(guard, logger), nil
}

func buildExecutor(ctx context.Context, s *session.Session, cfg config.ExecutorConfig) (executor.Executor, error) {
	switch cfg.Mode {
	case "driven":
		return s.Driven(ctx, cfg.Interval, cfg.MinTickWait)
	case "passive":
		return s.Passive(ctx)
	default:
		return nil, fmt.Errorf("unknown executor mode %q", cfg.Mode)
	}
}

// buildScenario registers declarative entity specs with the registry.
// Parent references are resolved by spec name, so parents must be
// declared before their children.
func buildScenario(reg *entity.Registry, scenario config.Scenario) error {
	byName := make(map[string]*entity.Entity, len(scenario.Entities))

	for i, spec := range scenario.Entities {
		if spec.Blueprint == "" {
			return fmt.Errorf("scenario entity %d: blueprint must not be empty", i)
		}

		b := reg.New(spec.Blueprint).WithPose(spec.Pose)
		if spec.Name != "" {
			b = b.WithName(spec.Name)
		}
		for k, v := range spec.Attributes {
			b = b.WithAttribute(k, v)
		}
		if spec.Parent != "" {
			parent, ok := byName[spec.Parent]
			if !ok {
				return fmt.Errorf("scenario entity %d: unknown parent %q", i, spec.Parent)
			}
			b = b.WithParent(parent)
		}

		var core *entity.Entity
		switch spec.Kind {
		case "", "static":
			core = b.Build()
		case "vehicle":
			core = b.BuildVehicle().Entity
		case "camera.rgb":
			core = b.BuildSensor(&entity.RGBCamera{}).Entity
		case "camera.depth":
			core = b.BuildSensor(entity.NewDepthCamera()).Entity
		case "lidar":
			core = b.BuildSensor(&entity.Lidar{}).Entity
		case "lidar.semantic":
			core = b.BuildSensor(&entity.SemanticLidar{}).Entity
		case "radar":
			core = b.BuildSensor(&entity.Radar{}).Entity
		default:
			return fmt.Errorf("scenario entity %d: unknown kind %q", i, spec.Kind)
		}

		if spec.Name != "" {
			byName[spec.Name] = core
		}
	}
	return nil
}

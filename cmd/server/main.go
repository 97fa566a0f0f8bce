// Command server runs the payment connector gateway.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/payorch/connector-gateway/internal/config"
	"github.com/payorch/connector-gateway/internal/connector"
	"github.com/payorch/connector-gateway/internal/connector/fiserv"
	"github.com/payorch/connector-gateway/internal/connector/paytm"
	"github.com/payorch/connector-gateway/internal/connector/razorpay"
	"github.com/payorch/connector-gateway/internal/domain"
	"github.com/payorch/connector-gateway/internal/gateway"
	"github.com/payorch/connector-gateway/internal/monitor"
	"github.com/payorch/connector-gateway/internal/observability"
	"github.com/payorch/connector-gateway/internal/policy"
	"github.com/payorch/connector-gateway/internal/server"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "connector-gateway",
		Short:         "Stateless gateway translating one payment surface to external processors",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var configPath string
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			fx.New(appOptions(cfg)).Run()
			return nil
		},
	}
	serve.Flags().StringVarP(&configPath, "config", "c", "", "path to the configuration file")
	root.AddCommand(serve)
	return root
}

// appOptions declares the full dependency graph. Kept separate from the
// command so tests can validate the wiring without starting a listener.
func appOptions(cfg config.Config) fx.Option {
	return fx.Options(
		fx.Supply(cfg),
		fx.Provide(
			func(cfg config.Config) (*zap.Logger, error) { return observability.NewLogger(cfg.Logging) },
			func(cfg config.Config) observability.TracingConfig { return cfg.Tracing },
			observability.NewTracerProvider,
			observability.NewMetrics,
			func(cfg config.Config) *gateway.Breaker {
				return gateway.NewBreaker(cfg.Breaker.FailureThreshold, cfg.Breaker.CooldownPeriod)
			},
			func(cfg config.Config, breaker *gateway.Breaker, metrics *observability.Metrics, logger *zap.Logger) *gateway.Pipeline {
				client := &http.Client{Timeout: cfg.Client.Timeout}
				return gateway.NewPipeline(client, breaker, metrics, logger)
			},
			func(cfg config.Config) (*policy.Enforcer, error) { return policy.NewEnforcer(cfg.Policy) },
			gateway.NewGateway,
			monitor.NewContractMonitor,
			newCardRegistry,
			newTokenRegistry,
			newServer,
		),
		fx.Invoke(registerHTTPServer),
		fx.NopLogger,
	)
}

func newCardRegistry() (*connector.Registry[domain.Card], error) {
	return connector.NewRegistry[domain.Card](
		fiserv.New[domain.Card](),
		paytm.New[domain.Card](),
		razorpay.New[domain.Card](),
	)
}

func newTokenRegistry() (*connector.Registry[domain.SavedToken], error) {
	return connector.NewRegistry[domain.SavedToken](
		fiserv.New[domain.SavedToken](),
		paytm.New[domain.SavedToken](),
		razorpay.New[domain.SavedToken](),
	)
}

func newServer(
	cfg config.Config,
	gw *gateway.Gateway,
	mon *monitor.ContractMonitor,
	cards *connector.Registry[domain.Card],
	tokens *connector.Registry[domain.SavedToken],
	metrics *observability.Metrics,
	logger *zap.Logger,
) *server.Server {
	return server.New(gw, mon, cards, tokens, cfg.Endpoints(), metrics, logger, cfg.TestMode)
}

func registerHTTPServer(
	lc fx.Lifecycle,
	cfg config.Config,
	srv *server.Server,
	logger *zap.Logger,
	_ trace.TracerProvider,
) {
	httpServer := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      srv.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			listener, err := net.Listen("tcp", httpServer.Addr)
			if err != nil {
				return err
			}
			logger.Info("gateway listening", zap.String("address", httpServer.Addr))
			go func() {
				if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
			defer cancel()
			logger.Info("gateway shutting down")
			return httpServer.Shutdown(shutdownCtx)
		},
	})
}

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"golang.org/x/text/language"

	"github.com/iota-uz/orgcascade/modules"
	"github.com/iota-uz/orgcascade/modules/org/services"
	"github.com/iota-uz/orgcascade/pkg/application"
	"github.com/iota-uz/orgcascade/pkg/configuration"
	"github.com/iota-uz/orgcascade/pkg/eventbus"
	"github.com/iota-uz/orgcascade/pkg/httpapi"
	"github.com/iota-uz/orgcascade/pkg/intl"
	"github.com/iota-uz/orgcascade/pkg/logging"
	"github.com/iota-uz/orgcascade/pkg/metrics"
	"github.com/iota-uz/orgcascade/pkg/middleware"
	"github.com/iota-uz/orgcascade/pkg/routing"
	"github.com/iota-uz/orgcascade/pkg/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	defer func() {
		if r := recover(); r != nil {
			configuration.Use().Unload()
			log.Println(r)
			debug.PrintStack()
			os.Exit(1)
		}
	}()

	conf := configuration.Use()
	logger := conf.Logger()
	defer conf.Unload()

	if conf.OpenTelemetry.Enabled {
		cleanup := logging.SetupTracing(context.Background(), conf.OpenTelemetry.ServiceName, conf.OpenTelemetry.TempoURL)
		defer cleanup()
	}

	source, err := services.NewSourceFromOptions(conf.Org)
	if err != nil {
		log.Fatalf("invalid org source configuration: %v", err)
	}
	store, err := services.NewHierarchyStore(source, logger.WithField("source", source.Name()))
	if err != nil {
		log.Fatalf("failed to create org hierarchy store: %v", err)
	}

	app := application.New(&application.ApplicationOptions{
		Bundle:   intl.NewBundle(),
		EventBus: eventbus.NewEventPublisher(logger),
		Logger:   logger,
	})
	if err := modules.Load(app, modules.BuiltInModules(conf, store)...); err != nil {
		log.Fatalf("failed to load modules: %v", err)
	}
	if conf.Prometheus.Enabled {
		app.RegisterControllers(metrics.NewPrometheusController(conf.Prometheus.Path))
	}

	rules, err := routing.LoadAllowlist(conf.RoutingAllowlistPath, "server")
	if err != nil {
		log.Fatalf("failed to load routing allowlist: %v", err)
	}
	routes := routing.NewClassifier(rules)

	loggerOpts := middleware.DefaultLoggerOptions()
	loggerOpts.RequestIDHeader = conf.RequestIDHeader
	loggerOpts.Routes = routes
	app.RegisterMiddleware(
		middleware.WithLogger(logger, loggerOpts),
		middleware.ProvideLocalizer(app, intl.ParseLocale(conf.Org.DefaultLanguage, language.English)),
	)
	if conf.GoAppEnvironment == configuration.Production {
		app.RegisterMiddleware(middleware.OpsGuard(conf.OpsGuard, routes))
	}

	serverInstance := server.NewHTTPServer(app, notFoundHandler(routes), methodNotAllowedHandler(routes))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Warm the hierarchy so the first request does not pay for the fetch.
	go func() {
		if err := store.Ensure(ctx); err != nil && ctx.Err() == nil {
			logger.WithError(err).Warn("org hierarchy preload failed")
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Listening on: %s\n", conf.SocketAddress)
		errCh <- serverInstance.Start(conf.SocketAddress)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to start server: %v", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := serverInstance.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("graceful shutdown failed")
		}
	}
}

func notFoundHandler(routes *routing.Classifier) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if routes.ClassifyPath(r.URL.Path).IsAPI() {
			_ = httpapi.WriteError(w, http.StatusNotFound, "NOT_FOUND", "route not found", nil)
			return
		}
		http.NotFound(w, r)
	})
}

func methodNotAllowedHandler(routes *routing.Classifier) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if routes.ClassifyPath(r.URL.Path).IsAPI() {
			_ = httpapi.WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
			return
		}
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})
}

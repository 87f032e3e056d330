// Command dialer runs the outbound call scheduler with its HTTP surface:
// provider callbacks, the admin API, health and metrics.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	dialermodule "github.com/dmitrymomot/coldcall/modules/dialer"
	"github.com/dmitrymomot/coldcall/pkg/clientip"
	"github.com/dmitrymomot/coldcall/pkg/config"
	"github.com/dmitrymomot/coldcall/pkg/email"
	"github.com/dmitrymomot/coldcall/pkg/httpserver"
	"github.com/dmitrymomot/coldcall/pkg/logger"
	"github.com/dmitrymomot/coldcall/pkg/pg"
	"github.com/dmitrymomot/coldcall/pkg/redis"
	"github.com/dmitrymomot/coldcall/pkg/requestid"
	"github.com/dmitrymomot/coldcall/svc/dialer"
	"github.com/dmitrymomot/coldcall/svc/dialer/pgstore"
	"github.com/dmitrymomot/coldcall/svc/dialer/redisstore"
	"github.com/dmitrymomot/coldcall/svc/providers"
)

type appConfig struct {
	Logger    logger.Config
	HTTP      httpserver.Config
	Postgres  pg.Config
	Redis     redis.Config
	Email     email.Config
	Dialer    dialer.Config
	Providers providers.Config

	PublicURL  string `env:"PUBLIC_URL"`
	AdminToken string `env:"ADMIN_TOKEN"`
}

func (c appConfig) Validate() error {
	return errors.Join(c.Dialer.Validate(), c.Providers.Validate())
}

func main() {
	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewFromConfig(cfg.Logger, logger.WithContextExtractors(
		requestid.LoggerExtractor(),
		clientip.LoggerExtractor(),
	))
	logger.SetAsDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("dialer exited with error", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg appConfig, log *slog.Logger) error {
	pool, err := pg.Connect(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, pgstore.Migrations, cfg.Postgres, log); err != nil {
		return err
	}

	rdb, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer func() { _ = rdb.Close() }()

	providerOpts := []providers.Option{providers.WithLogger(log)}
	twilio, err := providers.NewTwilio(cfg.Providers.Telephony, providerOpts...)
	if err != nil {
		return fmt.Errorf("telephony client: %w", err)
	}
	conversation, err := providers.NewConversationClient(cfg.Providers.Conversation, providerOpts...)
	if err != nil {
		return fmt.Errorf("conversation client: %w", err)
	}
	meetings, err := providers.NewMeetingClient(ctx, cfg.Providers.Meeting, providerOpts...)
	if err != nil {
		return fmt.Errorf("meeting client: %w", err)
	}

	sender, err := email.NewSender(cfg.Email)
	if err != nil {
		return fmt.Errorf("email sender: %w", err)
	}
	notifier, err := providers.NewEmailNotifier(cfg.Providers.Notifier, sender)
	if err != nil {
		return fmt.Errorf("notifier: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := dialer.NewMetrics(reg)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	opts := []dialer.Option{
		dialer.WithLogger(log),
		dialer.WithMetrics(metrics),
		dialer.WithIdempotencyStore(redisstore.NewIdempotency(rdb, cfg.Redis.KeyPrefix)),
		dialer.WithNotifier(notifier),
	}
	sink, err := providers.NewWebhookSink(cfg.Providers.Outcome, providerOpts...)
	if err != nil {
		return fmt.Errorf("outcome sink: %w", err)
	}
	if sink != nil {
		opts = append(opts, dialer.WithOutcomeSink(sink))
	}

	engine, err := dialer.New(cfg.Dialer, pgstore.New(pool), twilio, conversation, meetings, opts...)
	if err != nil {
		return err
	}

	router := dialermodule.Router(dialermodule.RouterOptions{
		Engine:       engine,
		Telephony:    twilio,
		PublicURL:    cfg.PublicURL,
		Conversation: conversation,
		Metrics:      promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		Checks: []httpserver.Check{
			{Name: "postgres", Fn: pg.Healthcheck(pool)},
			{Name: "redis", Fn: redis.Healthcheck(rdb)},
			{Name: "engine", Fn: func(context.Context) error {
				if !engine.Serving() {
					return dialer.ErrEngineStopped
				}
				return nil
			}},
		},
		AdminToken: cfg.AdminToken,
		Logger:     log,
	})
	server := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return engine.Run(ctx) })
	g.Go(func() error { return server.Run(ctx, router) })
	return g.Wait()
}

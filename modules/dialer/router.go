package dialer

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/dmitrymomot/coldcall/handler"
	"github.com/dmitrymomot/coldcall/pkg/clientip"
	"github.com/dmitrymomot/coldcall/pkg/httpserver"
	"github.com/dmitrymomot/coldcall/pkg/logger"
	"github.com/dmitrymomot/coldcall/pkg/requestid"
	dialersvc "github.com/dmitrymomot/coldcall/svc/dialer"
	"github.com/dmitrymomot/coldcall/svc/providers"
)

// Engine is the part of *dialer.Engine the router drives.
type Engine interface {
	Submit(ctx context.Context, ev dialersvc.Event) error
	Start() bool
	Stop() bool
	DispatchNow(ctx context.Context) (int, error)
	Status(ctx context.Context) (dialersvc.Snapshot, error)
	Stats(ctx context.Context, days int) (dialersvc.Stats, error)

	AddLead(ctx context.Context, in dialersvc.LeadInput) (*dialersvc.Lead, error)
	GetLead(ctx context.Context, id uuid.UUID) (*dialersvc.Lead, error)
	UpdateLead(ctx context.Context, id uuid.UUID, patch dialersvc.LeadPatch) (*dialersvc.Lead, error)
	DeleteLead(ctx context.Context, id uuid.UUID) error
	ScheduleCall(ctx context.Context, id uuid.UUID, at time.Time) (*dialersvc.Lead, error)
	LeadHistory(ctx context.Context, id uuid.UUID) ([]dialersvc.CallAttempt, error)
}

// SignatureVerifier checks a telephony status callback signature.
type SignatureVerifier interface {
	VerifySignature(fullURL string, form url.Values, signature string) error
}

// ReportParser verifies and decodes a conversation report.
type ReportParser interface {
	ParseReport(header http.Header, body []byte) (providers.Report, error)
}

// RouterOptions configures the dialer module. Engine is required; every
// other field is optional and its route is skipped or relaxed when unset.
type RouterOptions struct {
	Engine Engine

	// Telephony verifies status callbacks. Nil disables verification.
	Telephony SignatureVerifier
	// PublicURL is the externally visible base URL used to rebuild the
	// signed callback URL behind a proxy. Empty uses the request host.
	PublicURL string

	// Conversation parses conversation reports. Nil skips the route.
	Conversation ReportParser

	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
	// Checks run on /health.
	Checks       []httpserver.Check
	CheckTimeout time.Duration

	// AdminToken guards the admin API with a bearer token when set.
	AdminToken string

	Logger *slog.Logger
	Now    func() time.Time
}

// Router builds the dialer HTTP surface.
//
// Example:
//
//	r := chi.NewRouter()
//	r.Mount("/", dialer.Router(dialer.RouterOptions{
//	    Engine:       engine,
//	    Telephony:    twilio,
//	    Conversation: conversation,
//	    Metrics:      promhttp.Handler(),
//	}))
func Router(opts RouterOptions) chi.Router {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.CheckTimeout <= 0 {
		opts.CheckTimeout = 5 * time.Second
	}

	log := opts.Logger.With(logger.Component("dialer_http"))
	h := &handlers{
		engine:       opts.Engine,
		telephony:    opts.Telephony,
		conversation: opts.Conversation,
		publicURL:    opts.PublicURL,
		log:          log,
		onError:      handler.NewErrorHandler(log),
		now:          opts.Now,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer, clientip.Middleware())

	r.Get("/health", httpserver.HealthCheckHandler(opts.Logger, opts.CheckTimeout, opts.Checks...))
	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics)
	}

	r.Route("/webhooks", func(r chi.Router) {
		r.Use(requestid.WithFallbackHeaders(requestid.TwilioIdempotencyHeader))
		r.Post("/telephony/status", h.telephonyStatus())
		if opts.Conversation != nil {
			r.Post("/conversation", h.conversationReport())
		}
	})

	r.Group(func(r chi.Router) {
		r.Use(requestid.Middleware)
		if opts.AdminToken != "" {
			r.Use(bearerAuth(opts.AdminToken))
		}

		r.Route("/scheduler", func(r chi.Router) {
			r.Get("/status", h.schedulerStatus())
			r.Get("/stats", h.schedulerStats())
			r.Post("/start", h.schedulerStart())
			r.Post("/stop", h.schedulerStop())
			r.Post("/dispatch", h.schedulerDispatch())
		})

		r.Route("/leads", func(r chi.Router) {
			r.Post("/", h.createLead())
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.getLead())
				r.Patch("/", h.updateLead())
				r.Delete("/", h.deleteLead())
				r.Get("/calls", h.leadCalls())
				r.Post("/schedule", h.scheduleCall())
			})
		})
	})

	return r
}

type handlers struct {
	engine       Engine
	telephony    SignatureVerifier
	conversation ReportParser
	publicURL    string
	log          *slog.Logger
	onError      handler.ErrorHandler[handler.Context]
	now          func() time.Time
}

package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"pagos/internal/cache"
	"pagos/internal/core"
	"pagos/internal/ledger"
	applog "pagos/internal/log"
	"pagos/internal/middleware/ratelimit"
	"pagos/internal/middleware/security"
	"pagos/internal/middleware/trace"
	"pagos/internal/ratefeed"
	appweb "pagos/web"
)

// Ledger is the part of ledger.Ledger the handlers use.
type Ledger interface {
	Snapshot() ledger.Snapshot
	Views(q ledger.Query) ledger.Views
	RangeStats(start, end string) (core.Stats, error)
	CheckReference(reference, excludeID, date string) (core.Payment, bool)
	Submit(ctx context.Context, e core.Entry) (core.Payment, error)
	Update(ctx context.Context, id string, e core.Entry) (core.Payment, error)
	Delete(ctx context.Context, id string, confirmed bool) error
	CloseDay(ctx context.Context, date, summarySearch string, confirmed bool) (ledger.Closing, error)
	Online() bool
	FeeRate() decimal.Decimal
	SupportsClose() bool
	Ready() <-chan struct{}
}

// RateSource exposes the exchange rate feed state.
type RateSource interface {
	Rates() ratefeed.Rates
}

// Dependencies are the collaborators of the server. Rates and Logger are
// optional.
type Dependencies struct {
	Ledger       Ledger
	Rates        RateSource
	Logger       *applog.Logger
	RateLimitRPM int
	// Now defaults to time.Now; it decides the default date filter.
	Now func() time.Time
}

type Server struct {
	http.Server
	ledger    Ledger
	rates     RateSource
	templates *template.Template
	logger    *applog.Logger
	slog      *applog.StructuredLogger
	now       func() time.Time
	started   time.Time

	detector    *security.Detector
	rateLimiter *ratelimit.Limiter

	// Keys carry the snapshot version, so entries never outlive the
	// snapshot they were computed from.
	rangeCache   *cache.LRU[core.Stats]
	pdfCache     *cache.LRU[[]byte]
	cacheManager *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes, templates and middleware.
func NewServer(addr string, deps Dependencies) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	mux := http.NewServeMux()
	s := &Server{
		ledger:       deps.Ledger,
		rates:        deps.Rates,
		logger:       logger,
		slog:         applog.NewStructuredLogger(logger),
		now:          now,
		started:      now(),
		detector:     security.NewDetector(),
		rateLimiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: deps.RateLimitRPM}),
		rangeCache:   cache.NewLRU[core.Stats](100, 5*time.Minute),
		pdfCache:     cache.NewLRU[[]byte](20, 5*time.Minute),
		cacheManager: cache.NewManager(),
	}
	s.cacheManager.Register(s.rangeCache)
	s.cacheManager.Register(s.pdfCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	t, err := template.New("").Funcs(templateFuncs(s.ledger.FeeRate())).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Error("Failed parsing templates", "error", err)
	} else {
		s.templates = t
	}

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", "error", err)
	}

	// Page and partials
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /ui/stats", s.handleStatsPartial)
	mux.HandleFunc("GET /ui/summary", s.handleSummaryPartial)
	mux.HandleFunc("GET /ui/history", s.handleHistoryPartial)

	// Payments
	mux.HandleFunc("GET /payments/check", s.handleCheckReference)
	mux.HandleFunc("POST /payments", s.handleCreatePayment)
	mux.HandleFunc("POST /payments/{id}", s.handleUpdatePayment)
	mux.HandleFunc("DELETE /payments/{id}", s.handleDeletePayment)
	mux.HandleFunc("POST /close", s.handleCloseDay)

	// JSON API
	mux.HandleFunc("GET /api/stats", s.handleAPIStats)
	mux.HandleFunc("GET /api/range", s.handleAPIRange)
	mux.HandleFunc("GET /api/rates", s.handleAPIRates)

	// Reports
	mux.Handle("GET /report.pdf", security.NoStore(http.HandlerFunc(s.handleReportPDF)))
	mux.Handle("GET /report/chart.png", security.NoStore(http.HandlerFunc(s.handleReportChart)))

	// Probes
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.middleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// middleware wraps next outermost first: tracing, suspicious request
// filter, security headers, then the write rate limit.
func (s *Server) middleware(next http.Handler) http.Handler {
	tr := trace.NewMiddleware(s.detector.ExtractClientIP, s.logger)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limit := s.rateLimiter.Middleware(s.detector.ExtractClientIP, s.onRateLimited,
		http.MethodPost, http.MethodDelete)

	return tr.Middleware(s.detector.Middleware(headers.Middleware(limit(next))))
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	Failure(http.StatusTooManyRequests, msgRateLimited).
		Set("Retry-After", "60").
		Send(w)
}

// Shutdown stops the background goroutines and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

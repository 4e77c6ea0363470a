package http

import (
	"context"
	"encoding/json"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"kakeibo/internal/aggregate"
	"kakeibo/internal/cache"
	"kakeibo/internal/core"
	applog "kakeibo/internal/log"
	"kakeibo/internal/middleware/ratelimit"
	"kakeibo/internal/middleware/security"
	"kakeibo/internal/middleware/trace"
	"kakeibo/internal/services"
	appweb "kakeibo/web"
)

// Server serves the ledger UI: the index page, HTMX partials for the
// transaction table and month summary, and a small JSON API for the
// yearly series and snapshot export.
type Server struct {
	http.Server
	templates  *template.Template
	dispatcher *services.Dispatcher
	svc        *services.LedgerService
	engine     *aggregate.Engine

	detector *security.Detector
	limiter  *ratelimit.Limiter

	// Month summaries and yearly series are recomputed only after a
	// mutation touches their period; everything else is a cache hit.
	summaryCache *cache.LRUCache[summaryView]
	seriesCache  *cache.LRUCache[seriesView]
	cacheManager *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes, middleware, and templates, returning a
// ready-to-run http.Server.
func NewServer(addr string, dispatcher *services.Dispatcher, svc *services.LedgerService, engine *aggregate.Engine, logger *applog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		dispatcher:   dispatcher,
		svc:          svc,
		engine:       engine,
		detector:     security.NewDetector(),
		limiter:      ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		summaryCache: cache.NewLRUCache[summaryView](100, 5*time.Minute),
		seriesCache:  cache.NewLRUCache[seriesView](20, 5*time.Minute),
		cacheManager: cache.NewManager(),
	}

	s.cacheManager.Register(s.summaryCache)
	s.cacheManager.Register(s.seriesCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	// Parse embedded templates at startup.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/transactions", s.handleSubmit)
	mux.HandleFunc("/transactions/delete", s.handleDelete)
	mux.HandleFunc("/transactions/edit", s.handleEdit)
	mux.HandleFunc("/transactions/cancel", s.handleCancel)
	mux.HandleFunc("/period", s.handleSelectPeriod)
	mux.HandleFunc("/categories", s.handleAddCategory)
	mux.HandleFunc("/theme", s.handleTheme)
	// UI partials
	mux.HandleFunc("/ui/month-summary", s.handleMonthSummary)
	mux.HandleFunc("/ui/transactions", s.handleTransactionTable)
	// JSON API
	mux.HandleFunc("/api/yearly-series", s.handleYearlySeries)
	mux.HandleFunc("/api/snapshot", s.handleSnapshotExport)
	mux.HandleFunc("/metrics", s.handleMetrics)

	headersMW := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	traceMW := trace.NewMiddleware(s.detector.ExtractClientIP)

	var handler http.Handler = mux
	handler = headersMW.Middleware(handler)
	handler = s.guardMutations(handler)
	handler = traceMW.Middleware(handler)
	if logger != nil {
		handler = applog.Middleware(logger)(handler)
	}

	s.Server = http.Server{
		Addr:    addr,
		Handler: handler,
	}

	return s
}

// guardMutations applies probe detection and the per-IP limiter to
// mutating methods only, so HTMX partial refreshes are never throttled.
func (s *Server) guardMutations(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodDelete {
			clientIP := s.detector.ExtractClientIP(r)
			if s.detector.DetectSuspiciousRequest(r) {
				slog.WarnContext(r.Context(), "Suspicious request blocked",
					"client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
				http.Error(w, "Request blocked", http.StatusForbidden)
				return
			}
			if !s.limiter.Allow(clientIP) {
				slog.WarnContext(r.Context(), "Rate limit exceeded",
					"client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
				w.Header().Set("Retry-After", "60")
				http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// AddTrustedProxies extends the set of sources whose forwarded headers
// are honored when resolving client IPs.
func (s *Server) AddTrustedProxies(cidrs []string) error {
	for _, cidr := range cidrs {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			return err
		}
	}
	return nil
}

// invalidatePeriod drops the cached summary for the transaction's month
// and the yearly series for its year. The currently selected period is
// dropped too so the visible summary never goes stale.
func (s *Server) invalidatePeriod(date string) {
	year, month := 0, 0
	if d, err := core.ParseDate(date); err == nil {
		year, month = d.Year(), int(d.Month())
		s.summaryCache.Delete(periodKey(year, month))
		s.seriesCache.Delete(yearKey(year))
	}
	selYear, selMonth := s.dispatcher.Period()
	if selYear != year || int(selMonth) != month {
		s.summaryCache.Delete(periodKey(selYear, int(selMonth)))
		s.seriesCache.Delete(yearKey(selYear))
	}
}

// Shutdown gracefully shuts down the server and its cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleMetrics exposes the security and rate limiting counters as JSON.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	detection := s.detector.GetMetrics()
	limits := s.limiter.GetMetrics()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]int64{
		"suspicious_requests": detection.SuspiciousRequests,
		"invalid_ip_attempts": detection.InvalidIPAttempts,
		"rate_limit_hits":     limits.TotalHits,
		"tracked_clients":     limits.ClientCount,
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("templates not loaded"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

package middleware

import (
	"net/http"
	"strconv"

	"github.com/Kar2410/FLOW-FIX/internal/config"
	"github.com/Kar2410/FLOW-FIX/internal/metrics"
	"github.com/Kar2410/FLOW-FIX/pkg/logger_i"
	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"
)

type requestResponseStruct struct {
	writer     http.ResponseWriter
	req        *http.Request
	badRequest failureStruct
	logger     *logger_i.Logger
}

type failureStruct struct {
	isBadRequest bool
	httpCode     int
	errorMessage string
}

// Middleware runs trace injection, bearer auth and per-IP rate limiting in
// front of every wrapped handler.
type Middleware struct {
	authToken string
	limiter   *IPRateLimiter
	logger    *logger_i.Logger
}

// New builds the chain from server settings. An empty auth token disables
// authentication and a non-positive rate disables the limiter.
func New(cfg config.ServerSettings) *Middleware {
	m := &Middleware{
		authToken: cfg.AuthToken,
		logger:    logger_i.NewLogger("middleware"),
	}
	if cfg.AuthToken == "" {
		m.logger.Warn("No auth token configured, requests are not authenticated")
	}
	if cfg.RateLimitPerSecond > 0 {
		m.limiter = NewIPRateLimiter(rate.Limit(cfg.RateLimitPerSecond), max(cfg.RateLimitBurst, 1))
	}
	return m
}

func (m *Middleware) Wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &metrics.HttpStatusRecorder{ResponseWriter: w, Status: http.StatusOK}
		re := m.processRequest(requestResponseStruct{req: r, writer: rec, logger: m.logger})

		if re.badRequest.isBadRequest {
			handleBadRequest(re)
		} else {
			next(rec, re.req)
		}

		metrics.HttpRequestsTotal.WithLabelValues(routeLabel(re.req), strconv.Itoa(rec.Status)).Inc()
	}
}

func (m *Middleware) WrapHandler(next http.Handler) http.Handler {
	return m.Wrap(next.ServeHTTP)
}

func (m *Middleware) processRequest(re requestResponseStruct) requestResponseStruct {
	re.logger.Debug("New request received")
	re = injectTrace(re)
	if re.badRequest.isBadRequest {
		return re
	}
	re = m.authenticate(re)
	if re.badRequest.isBadRequest {
		return re
	}
	if m.limiter != nil {
		re = m.rateLimiter(re)
	}
	return re
}

// routeLabel prefers the chi pattern so ids do not explode label cardinality.
func routeLabel(r *http.Request) string {
	if r == nil {
		return ""
	}
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/quokkahq/tokenforge/internal/service"
	"github.com/quokkahq/tokenforge/internal/store"
	"github.com/quokkahq/tokenforge/pkg/httpx"
	"github.com/quokkahq/tokenforge/pkg/jwex"
	"github.com/quokkahq/tokenforge/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	codec        *jwex.Codec
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store        store.Store
	TokenService *service.TokenService

	// Limiter guards the token endpoint. The housekeeping service prunes
	// its idle buckets.
	Limiter *httpx.RateLimiter
}

func NewRouter(
	codec *jwex.Codec,
	buildVersion string,
	st store.Store,
	limiter *httpx.RateLimiter,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		codec:        codec,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		Limiter:      limiter,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerOAuth2()
	r.registerAPI()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerOAuth2() {
	tokenHandler := &TokenHandler{TokenService: r.TokenService}

	// Only the token endpoint is rate limited; it is the only one that
	// does credential checking and expensive minting.
	r.Mux.Handle("POST /v1/oauth2/token",
		httpx.Chain(tokenHandler,
			httpx.RateLimitMiddleware(r.Limiter, httpx.TokenEndpointKeyExtractor()),
		),
	)

	r.Mux.Handle("POST /v1/oauth2/validate", &ValidateHandler{TokenService: r.TokenService, Codec: r.codec})
	r.Mux.Handle("POST /v1/oauth2/revoke", &RevokeHandler{TokenService: r.TokenService})
	r.Mux.Handle("POST /v1/oauth2/logout", &LogoutHandler{TokenService: r.TokenService})
}

func (r *Router) registerAPI() {
	authn := httpx.AuthnMiddleware(r.codec)

	r.Mux.Handle("GET /v1/api/profile",
		httpx.Chain(http.HandlerFunc(ProfileHandler),
			authn, httpx.RequireAnyScope("read"),
		),
	)
	r.Mux.Handle("GET /v1/api/data",
		httpx.Chain(http.HandlerFunc(DataHandler),
			authn, httpx.RequireAnyScope("read"),
		),
	)
	r.Mux.Handle("POST /v1/api/data",
		httpx.Chain(http.HandlerFunc(CreateDataHandler),
			authn, httpx.RequireAnyScope("write"),
		),
	)
	r.Mux.Handle("GET /v1/api/admin/users",
		httpx.Chain(AdminUsersHandler(r.store),
			authn, httpx.RequireRole("ADMIN"),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store))
}

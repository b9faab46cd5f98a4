// Package apitest provides an in-memory implementation of the Fleetwave API
// for exercising the client engine against realistic server behavior:
// workspace token issuing, cursor pagination, partial batch results, and
// scriptable failures. Tests mount the service behind an in-process
// transport, so no network listener is involved.
package apitest

import (
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/fleetwave/fleetwave/internal/common/httpx"
	"github.com/fleetwave/fleetwave/internal/common/middleware"
	"github.com/fleetwave/fleetwave/internal/common/uuid"
)

// Options configures a Service. Zero values use test defaults.
type Options struct {
	APIKey   string        // account key accepted by the token endpoint
	Password string        // password accepted by the login endpoint
	TokenTTL time.Duration // lifetime of issued workspace tokens
}

// Service is an in-memory Fleetwave API. All methods are safe for
// concurrent use.
type Service struct {
	apiKey   string
	password string
	secret   []byte

	router *chi.Mux

	mu         sync.Mutex
	tokenTTL   time.Duration
	generation int // bumped by RevokeTokens; tokens carry it as a claim
	issued     int
	calls      map[string]int
	scripts    map[string][]scriptedResponse
	delays     map[string][]time.Duration
	hooks      map[string]func(call int)

	workspaces *store
	devices    *store
	fleets     *store
	firmware   *store
	users      *store
	settings   map[string]map[string]any
}

type scriptedResponse struct {
	status  int
	code    string
	message string
}

// New creates a service with empty collections.
func New(opts Options) *Service {
	s := &Service{
		apiKey:     opts.APIKey,
		password:   opts.Password,
		secret:     []byte(uuid.New().String() + uuid.New().String()),
		tokenTTL:   opts.TokenTTL,
		calls:      make(map[string]int),
		scripts:    make(map[string][]scriptedResponse),
		delays:     make(map[string][]time.Duration),
		hooks:      make(map[string]func(int)),
		workspaces: newStore("workspace"),
		devices:    newStore("device"),
		fleets:     newStore("fleet"),
		firmware:   newStore("firmware"),
		users:      newStore("user"),
		settings:   make(map[string]map[string]any),
	}
	if s.apiKey == "" {
		s.apiKey = "fw_test_key"
	}
	if s.password == "" {
		s.password = "fleetwave"
	}
	if s.tokenTTL == 0 {
		s.tokenTTL = 15 * time.Minute
	}

	s.router = chi.NewRouter()
	s.router.Use(middleware.RequestLogger)
	s.router.Use(middleware.PanicHandler)
	s.router.Use(middleware.SetTimeout(30 * time.Second))
	s.router.Use(s.interceptor)
	s.mountResourceHandlers(s.router)
	return s
}

// Handler returns the service's HTTP handler.
func (s *Service) Handler() http.Handler {
	return s.router
}

// APIKey returns the account key the token endpoint accepts.
func (s *Service) APIKey() string {
	return s.apiKey
}

// Password returns the password the login endpoint accepts.
func (s *Service) Password() string {
	return s.password
}

func (s *Service) mountResourceHandlers(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Get("/status", httpx.WrapHttpRsp(s.getStatus))
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", httpx.WrapHttpRsp(s.login))
			r.Post("/workspace-tokens/{workspaceID}", httpx.WrapHttpRsp(s.issueWorkspaceToken))
		})

		// Workspace listing works with the account key alone, so a client
		// can discover workspaces before selecting one.
		r.Group(func(r chi.Router) {
			r.Use(s.accountAuth)
			r.Get("/workspaces", httpx.WrapHttpRsp(s.listCollection(s.workspaces)))
			r.Get("/workspaces/{id}", httpx.WrapHttpRsp(s.getFrom(s.workspaces)))
		})

		// Everything else requires a workspace token.
		r.Group(func(r chi.Router) {
			r.Use(s.workspaceAuth)
			r.Route("/devices", s.collectionRoutes(s.devices))
			r.Route("/fleets", s.collectionRoutes(s.fleets))
			r.Route("/firmware", s.collectionRoutes(s.firmware))
			r.Route("/users", s.collectionRoutes(s.users))
			r.Post("/devices/actions/reboot", httpx.WrapHttpRsp(s.rebootDevices))
			r.Get("/fleets/{fleetName}/settings", httpx.WrapHttpRsp(s.getSettings))
			r.Put("/fleets/{fleetName}/settings/{key}", httpx.WrapHttpRsp(s.putSetting))
			r.Post("/fleets/{fleetName}/firmware", httpx.WrapHttpRsp(s.assignFirmware))
			r.Post("/firmware/images", httpx.WrapHttpRsp(s.uploadFirmware))
		})
	})
}

func (s *Service) collectionRoutes(st *store) func(chi.Router) {
	return func(r chi.Router) {
		r.Get("/", httpx.WrapHttpRsp(s.listCollection(st)))
		r.Post("/", httpx.WrapHttpRsp(s.createIn(st)))
		r.Get("/{id}", httpx.WrapHttpRsp(s.getFrom(st)))
		r.Put("/{id}", httpx.WrapHttpRsp(s.updateIn(st)))
		r.Delete("/{id}", httpx.WrapHttpRsp(s.deleteFrom(st)))
	}
}

// interceptor counts every request and serves scripted delays and failures
// before the real handler runs.
func (s *Service) interceptor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		s.mu.Lock()
		s.calls[path]++
		call := s.calls[path]
		hook := s.hooks[path]
		var delay time.Duration
		if q := s.delays[path]; len(q) > 0 {
			delay = q[0]
			s.delays[path] = q[1:]
		}
		var script *scriptedResponse
		if q := s.scripts[path]; len(q) > 0 {
			script = &q[0]
			s.scripts[path] = q[1:]
		}
		s.mu.Unlock()

		if hook != nil {
			hook(call)
		}
		if delay > 0 {
			timer := time.NewTimer(delay)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-r.Context().Done():
				// The client gave up; there is nobody to respond to.
				return
			}
		}
		if script != nil {
			(&httpx.Error{
				Code:        script.code,
				Description: script.message,
				StatusCode:  script.status,
			}).Send(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// accountAuth admits requests carrying the account key or a valid workspace
// token.
func (s *Service) accountAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerFrom(r)
		if token == "" {
			httpx.ErrMissingKeyInRequest().Send(w)
			return
		}
		if token == s.apiKey {
			next.ServeHTTP(w, r)
			return
		}
		if httperr := s.checkWorkspaceToken(token); httperr != nil {
			httperr.Send(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// workspaceAuth admits only requests carrying a valid workspace token. The
// account key is deliberately rejected here; data-plane calls must be
// workspace scoped.
func (s *Service) workspaceAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerFrom(r)
		if token == "" {
			httpx.ErrMissingKeyInRequest().Send(w)
			return
		}
		if httperr := s.checkWorkspaceToken(token); httperr != nil {
			httperr.Send(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Service) checkWorkspaceToken(tokenString string) *httpx.Error {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return httpx.ErrTokenExpired()
		}
		return httpx.ErrUnAuthorized("invalid workspace token")
	}

	s.mu.Lock()
	current := s.generation
	s.mu.Unlock()
	gen, ok := claims["gen"].(float64)
	if !ok || int(gen) < current {
		return httpx.ErrTokenRevoked()
	}
	return nil
}

func (s *Service) mintToken(workspaceID string) (string, time.Time, error) {
	s.mu.Lock()
	ttl := s.tokenTTL
	gen := s.generation
	s.issued++
	s.mu.Unlock()

	now := time.Now()
	expiry := now.Add(ttl)
	claims := jwt.MapClaims{
		"sub": workspaceID,
		"jti": uuid.New().String(),
		"gen": gen,
		"iat": now.Unix(),
		"exp": expiry.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	return signed, expiry, err
}

func bearerFrom(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}

// FailNext scripts the next n requests to path to fail with the given HTTP
// status. The failure body carries the API error envelope.
func (s *Service) FailNext(path string, status int, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < n; i++ {
		s.scripts[path] = append(s.scripts[path], scriptedResponse{
			status:  status,
			code:    failureCode(status),
			message: failureMessage(status),
		})
	}
}

// DelayNext delays the next n requests to path by d before they are
// handled. A request whose context expires during the delay gets no
// response at all.
func (s *Service) DelayNext(path string, d time.Duration, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < n; i++ {
		s.delays[path] = append(s.delays[path], d)
	}
}

// OnRequest registers a hook invoked before each request to path is
// handled, with the 1-based call number for that path.
func (s *Service) OnRequest(path string, fn func(call int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks[path] = fn
}

// Calls returns how many requests have reached the given path.
func (s *Service) Calls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

// TotalCalls returns how many requests have reached the service on any
// path.
func (s *Service) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.calls {
		total += n
	}
	return total
}

// TokensIssued returns how many workspace tokens the service has minted.
func (s *Service) TokensIssued() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issued
}

// RevokeTokens invalidates every previously issued workspace token. Tokens
// issued afterwards are valid.
func (s *Service) RevokeTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
}

// SetTokenTTL changes the lifetime of subsequently issued tokens.
func (s *Service) SetTokenTTL(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokenTTL = d
}

func failureCode(status int) string {
	switch {
	case status == http.StatusTooManyRequests:
		return "rate_limited"
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return "unauthorized"
	case status >= 500:
		return "server_error"
	default:
		return "invalid_request"
	}
}

func failureMessage(status int) string {
	return "simulated " + http.StatusText(status) + " failure"
}

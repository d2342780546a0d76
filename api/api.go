package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.vocdoni.io/dvote/log"

	"github.com/zkpoll/zkvote/auth"
	"github.com/zkpoll/zkvote/ledger"
	"github.com/zkpoll/zkvote/signer"
	"github.com/zkpoll/zkvote/storage"
	"github.com/zkpoll/zkvote/voting"
)

// APIConfig represents the configuration for the API HTTP server. All
// collaborators are constructed by the caller and injected here.
type APIConfig struct {
	Host    string
	Port    int
	Flow    *auth.Flow
	Signer  *signer.Signer
	Voting  *voting.Program
	Ledger  *ledger.Client
	Storage *storage.Storage
}

// API is the HTTP server exposing the login flow and vote submission.
type API struct {
	router *chi.Mux
	conf   *APIConfig
}

// New creates a new API instance with the given configuration and builds its
// router. Call Start to begin serving.
func New(conf *APIConfig) (*API, error) {
	if conf == nil {
		return nil, fmt.Errorf("missing API configuration")
	}
	if conf.Flow == nil || conf.Signer == nil || conf.Voting == nil ||
		conf.Ledger == nil || conf.Storage == nil {
		return nil, fmt.Errorf("missing API collaborator")
	}
	a := &API{conf: conf}
	a.initRouter()
	return a, nil
}

// Start begins serving the API in a background goroutine.
func (a *API) Start() {
	go func() {
		addr := fmt.Sprintf("%s:%d", a.conf.Host, a.conf.Port)
		log.Infow("starting API server", "host", a.conf.Host, "port", a.conf.Port)
		if err := http.ListenAndServe(addr, a.router); err != nil {
			log.Fatalf("failed to start the API server: %v", err)
		}
	}()
}

// Router returns the chi router for testing purposes
func (a *API) Router() *chi.Mux {
	return a.router
}

// registerHandlers registers all the API handlers.
func (a *API) registerHandlers() {
	log.Infow("register handler", "endpoint", PingEndpoint, "method", "GET")
	a.router.Get(PingEndpoint, func(w http.ResponseWriter, r *http.Request) {
		httpWriteOK(w)
	})
	log.Infow("register handler", "endpoint", LoginEndpoint, "method", "POST")
	a.router.Post(LoginEndpoint, a.login)
	log.Infow("register handler", "endpoint", CallbackEndpoint, "method", "POST")
	a.router.Post(CallbackEndpoint, a.callback)
	log.Infow("register handler", "endpoint", AccountsEndpoint, "method", "GET")
	a.router.Get(AccountsEndpoint, a.accounts)
	log.Infow("register handler", "endpoint", LogoutEndpoint, "method", "POST")
	a.router.Post(LogoutEndpoint, a.logout)
	log.Infow("register handler", "endpoint", PollsEndpoint, "method", "POST")
	a.router.Post(PollsEndpoint, a.newPoll)
	log.Infow("register handler", "endpoint", VotesEndpoint, "method", "POST")
	a.router.Post(VotesEndpoint, a.newVote)
	log.Infow("register handler", "endpoint", GroupJoinEndpoint, "method", "POST")
	a.router.Post(GroupJoinEndpoint, a.joinGroup)
	log.Infow("register handler", "endpoint", GroupVotesEndpoint, "method", "POST")
	a.router.Post(GroupVotesEndpoint, a.groupVote)
	log.Infow("register handler", "endpoint", BalanceEndpoint, "method", "GET")
	a.router.Get(BalanceEndpoint, a.balance)
}

// initRouter creates the router with all the routes and middleware.
func (a *API) initRouter() {
	// Create the router with a basic middleware stack
	a.router = chi.NewRouter()
	a.router.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}).Handler)
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Throttle(100))
	a.router.Use(middleware.ThrottleBacklog(5000, 40000, 60*time.Second))
	// the callback handler waits on the proving service, which can take
	// tens of seconds
	a.router.Use(middleware.Timeout(90 * time.Second))

	// Register the API handlers
	a.registerHandlers()
}

// Package api exposes the admin panel HTTP surface: entity CRUD, the click
// endpoint, the stats views and the activity trail. Authentication and
// authorization live in front of this server; the X-User-ID header names
// the acting user for the activity trail.
package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/guluwater/navadmin/pkg/analytics"
	"github.com/guluwater/navadmin/pkg/audit"
	"github.com/guluwater/navadmin/pkg/observability"
	"github.com/guluwater/navadmin/pkg/store"
)

// StatsProvider answers the stats queries. Satisfied by both the plain
// analytics service and the cached one.
type StatsProvider interface {
	Overview(ctx context.Context) (*analytics.OverviewReport, error)
	Trends(ctx context.Context, days int) (*analytics.TrendsReport, error)
	Ranking(ctx context.Context, typ analytics.RankingType, limit, days int) (*analytics.RankingReport, error)
}

// Server represents our API server
type Server struct {
	store    store.Store
	recorder *analytics.Recorder
	stats    StatsProvider
	activity *audit.Logger
	router   *mux.Router
	logger   *observability.Logger
}

// NewServer creates a new API server
func NewServer(st store.Store, recorder *analytics.Recorder, stats StatsProvider,
	activity *audit.Logger, logger *observability.Logger) *Server {
	s := &Server{
		store:    st,
		recorder: recorder,
		stats:    stats,
		activity: activity,
		router:   mux.NewRouter(),
		logger:   logger,
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Site routes
	api.HandleFunc("/sites", s.listSites).Methods("GET")
	api.HandleFunc("/sites", s.createSite).Methods("POST")
	api.HandleFunc("/sites/{id}", s.getSite).Methods("GET")
	api.HandleFunc("/sites/{id}", s.updateSite).Methods("PUT")
	api.HandleFunc("/sites/{id}", s.deleteSite).Methods("DELETE")
	api.HandleFunc("/sites/{id}/click", s.clickSite).Methods("POST")

	// Category routes
	api.HandleFunc("/categories", s.listCategories).Methods("GET")
	api.HandleFunc("/categories", s.createCategory).Methods("POST")
	api.HandleFunc("/categories/{id}", s.getCategory).Methods("GET")
	api.HandleFunc("/categories/{id}", s.updateCategory).Methods("PUT")
	api.HandleFunc("/categories/{id}", s.deleteCategory).Methods("DELETE")

	// User routes
	api.HandleFunc("/users", s.listUsers).Methods("GET")
	api.HandleFunc("/users", s.createUser).Methods("POST")
	api.HandleFunc("/users/{id}", s.getUser).Methods("GET")
	api.HandleFunc("/users/{id}", s.updateUser).Methods("PUT")
	api.HandleFunc("/users/{id}", s.deleteUser).Methods("DELETE")

	// Setting routes
	api.HandleFunc("/settings", s.listSettings).Methods("GET")
	api.HandleFunc("/settings/{key}", s.getSetting).Methods("GET")
	api.HandleFunc("/settings/{key}", s.putSetting).Methods("PUT")
	api.HandleFunc("/settings/{key}", s.deleteSetting).Methods("DELETE")

	// Stats routes
	api.HandleFunc("/stats/overview", s.statsOverview).Methods("GET")
	api.HandleFunc("/stats/trends", s.statsTrends).Methods("GET")
	api.HandleFunc("/stats/ranking", s.statsRanking).Methods("GET")
	api.HandleFunc("/stats/categories", s.statsCategories).Methods("GET")

	// Activity trail
	api.HandleFunc("/activity", s.listActivity).Methods("GET")
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// actorID reads the acting user id set by the auth layer in front of us.
// Zero means unattributed; the entry is still written.
func actorID(r *http.Request) int64 {
	id, err := strconv.ParseInt(r.Header.Get("X-User-ID"), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

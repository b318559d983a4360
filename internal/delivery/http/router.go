package http

import (
	"net/http"

	"github.com/SerhiiMaksymiv/kneu-book-tennis-court/internal/delivery/http/handler"

	"github.com/gorilla/mux"
)

type Router struct {
	router        *mux.Router
	authHandler   *handler.AuthHandler
	statusHandler *handler.StatusHandler
}

func NewRouter(authHandler *handler.AuthHandler, statusHandler *handler.StatusHandler) *Router {
	return &Router{
		router:        mux.NewRouter(),
		authHandler:   authHandler,
		statusHandler: statusHandler,
	}
}

func (r *Router) Setup() *mux.Router {
	r.router.HandleFunc("/", r.statusHandler.Status).Methods(http.MethodGet)
	r.router.HandleFunc("/health", r.healthCheck).Methods(http.MethodGet)

	// Calendar authorization flow
	r.router.HandleFunc("/auth", r.authHandler.Authorize).Methods(http.MethodGet)
	r.router.HandleFunc("/auth/callback", r.authHandler.Callback).Methods(http.MethodGet)

	// Read-only API
	api := r.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/slots", r.statusHandler.Slots).Methods(http.MethodGet)
	api.HandleFunc("/bookings", r.statusHandler.Bookings).Methods(http.MethodGet)
	api.HandleFunc("/statistics", r.statusHandler.Statistics).Methods(http.MethodGet)

	return r.router
}

func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "ok"}`))
}

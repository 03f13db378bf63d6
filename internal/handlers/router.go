package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/fynbos-digital/invoiceflow/internal/buildinfo"
	"github.com/fynbos-digital/invoiceflow/internal/config"
	"github.com/fynbos-digital/invoiceflow/internal/middleware"
	"github.com/fynbos-digital/invoiceflow/internal/services/intake"
	"github.com/fynbos-digital/invoiceflow/internal/services/odoo"
	"github.com/fynbos-digital/invoiceflow/internal/services/pipeline"
	"github.com/fynbos-digital/invoiceflow/internal/store"
	"github.com/fynbos-digital/invoiceflow/internal/websocket"
	"github.com/fynbos-digital/invoiceflow/web"
)

// Router wraps the mux router and the services the API surfaces.
type Router struct {
	*mux.Router
	store    *store.Store
	pipeline *pipeline.Service
	intake   *intake.Service
	odoo     *odoo.Service
	hub      *websocket.Hub
	cfg      *config.Config
}

// NewRouter creates the HTTP router with all routes. The Odoo service may be
// nil when no ERP endpoint is configured; the affected endpoints then answer
// with an explanatory error instead of 404.
func NewRouter(st *store.Store, pl *pipeline.Service, in *intake.Service, od *odoo.Service, hub *websocket.Hub, cfg *config.Config) *Router {
	r := &Router{
		Router:   mux.NewRouter(),
		store:    st,
		pipeline: pl,
		intake:   in,
		odoo:     od,
		hub:      hub,
		cfg:      cfg,
	}

	// Public routes. Registered before the protected /api subrouter so mux
	// matches them first.
	r.HandleFunc("/api/health", r.healthCheck).Methods("GET")
	r.HandleFunc("/api/auth/login", r.login).Methods("POST")

	auth := middleware.Auth(cfg.JWTSecret)

	// Websocket: the browser cannot set an Authorization header here, the
	// middleware accepts ?token= as fallback.
	r.Handle("/ws", auth(http.HandlerFunc(r.serveWs))).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(auth)

	// Imports
	api.HandleFunc("/imports/upload", r.uploadImport).Methods("POST")
	api.HandleFunc("/imports", r.listImports).Methods("GET")
	api.HandleFunc("/imports/stats", r.importStats).Methods("GET")
	api.HandleFunc("/imports/{id}", r.getImport).Methods("GET")
	api.HandleFunc("/imports/{id}/retry", r.retryImport).Methods("POST")
	api.HandleFunc("/imports/{id}/rematch", r.rematchImport).Methods("POST")
	api.HandleFunc("/imports/{id}/supplier/confirm", r.confirmSupplier).Methods("POST")
	api.HandleFunc("/imports/{id}/lines/{lineID}/confirm", r.confirmLine).Methods("POST")
	api.HandleFunc("/imports/{id}/documents", r.createDocument).Methods("POST")

	// Master data (read-only pickers)
	api.HandleFunc("/suppliers", r.listSuppliers).Methods("GET")
	api.HandleFunc("/items", r.listItems).Methods("GET")
	api.HandleFunc("/sync/masterdata", r.triggerSync).Methods("POST")

	// Learned-rule admin
	api.HandleFunc("/aliases/suppliers", r.listSupplierAliases).Methods("GET")
	api.HandleFunc("/aliases/suppliers/{id}", r.deleteSupplierAlias).Methods("DELETE")
	api.HandleFunc("/aliases/items", r.listItemAliases).Methods("GET")
	api.HandleFunc("/aliases/items/{id}", r.deleteItemAlias).Methods("DELETE")
	api.HandleFunc("/mappings", r.listServiceMappings).Methods("GET")
	api.HandleFunc("/mappings/{id}", r.deleteServiceMapping).Methods("DELETE")

	// Review dashboard (embedded, FRONTEND_DIR overrides in dev)
	if fsys, err := web.GetFileSystem(); err != nil {
		log.Printf("⚠️ Frontend assets unavailable: %v", err)
	} else {
		r.PathPrefix("/").Handler(http.FileServer(http.FS(fsys)))
	}

	return r
}

// healthCheck returns the health status of the API
func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"commit":    buildinfo.CommitHash,
		"buildTime": buildinfo.BuildTime,
		"startTime": buildinfo.StartTime,
	})
}

func (r *Router) serveWs(w http.ResponseWriter, req *http.Request) {
	websocket.ServeWs(r.hub, w, req)
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

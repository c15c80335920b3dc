/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/rates/*          Reference rate table
  /api/products         Retail catalog
  /api/bonds/*          Saved bond definitions
  /api/ledger           Interest ledger
  /api/profit           Profit curve
  /api/compare          Several profit curves
  /api/scenarios/*      Reference datasets
  /                     API index

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured. An empty
// allowedOrigins list falls back to the local development origins.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Rate routes
		r.Route("/rates", func(r chi.Router) {
			r.Get("/", h.GetRates)
			r.Get("/snapshots", h.ListSnapshots)
			r.Post("/save", h.SaveRates)
			r.Post("/load", h.LoadRatesSnapshot)
			r.Get("/{series}", h.GetRate)
			r.Post("/{series}/periodic", h.SetPeriodic)
			r.Post("/{series}/continuous", h.SetContinuous)
			r.Post("/{series}/extend", h.Extend)
		})

		// Bond routes
		r.Get("/products", h.ListProducts)
		r.Route("/bonds", func(r chi.Router) {
			r.Get("/", h.ListBonds)
			r.Post("/", h.CreateBond)
			r.Get("/{id}", h.GetBond)
			r.Delete("/{id}", h.DeleteBond)
		})

		// Computation routes
		r.Post("/ledger", h.Ledger)
		r.Post("/profit", h.Profit)
		r.Post("/compare", h.Compare)

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Bond Engine</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Bond Engine API</h1>
<h2>API Endpoints</h2>
<ul>
<li><a href="/api/rates">/api/rates</a> - Reference rate table</li>
<li><a href="/api/products">/api/products</a> - Retail bond catalog</li>
<li><a href="/api/bonds">/api/bonds</a> - Saved bonds</li>
<li><a href="/api/scenarios">/api/scenarios</a> - Reference datasets</li>
</ul>
<p>POST a bond to /api/ledger, /api/profit or /api/compare to compute it.</p>
</body>
</html>`))
	})

	return r
}

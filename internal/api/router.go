package api

import (
	"net/http"
	"strings"
)

// Router gerencia as rotas da API
type Router struct {
	handler     *Handler
	mux         *http.ServeMux
	basePath    string
	middlewares []Middleware
}

// NewRouter cria um novo router para a API
func NewRouter(flight FlightComputer, store HistoryStore, basePath string) *Router {
	if basePath != "" && !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	basePath = strings.TrimSuffix(basePath, "/")

	return &Router{
		handler:  NewHandler(flight, store),
		mux:      http.NewServeMux(),
		basePath: basePath,
		middlewares: []Middleware{
			LoggingMiddleware,
			RecoveryMiddleware,
			CorsMiddleware,
		},
	}
}

// Setup configura todas as rotas
func (r *Router) Setup() {
	r.handle("/status", r.handler.GetStatus)
	r.handle("/current", r.handler.GetCurrentData)
	r.handle("/transitions", r.handler.GetTransitions)
	r.handle("/history/", r.handler.GetHistory)
	r.handle("/burst", r.handler.GetLastBurst)
	r.handle("/abort", r.handler.PostAbort)

	log.Infof("API configurada com base path: %s", r.basePath)
}

func (r *Router) handle(route string, fn http.HandlerFunc) {
	chain := append([]Middleware{MetricsMiddleware(route)}, r.middlewares...)
	r.mux.Handle(r.path(route), Chain(chain...)(fn))
}

// AddMiddleware adiciona um novo middleware; vale para as rotas registradas depois
func (r *Router) AddMiddleware(middleware Middleware) {
	r.middlewares = append(r.middlewares, middleware)
}

// path retorna o caminho completo para uma rota
func (r *Router) path(route string) string {
	if !strings.HasPrefix(route, "/") {
		route = "/" + route
	}
	return r.basePath + route
}

// ServeHTTP implementa a interface http.Handler
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

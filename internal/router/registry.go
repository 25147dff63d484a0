package router

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/pterm/pterm"

	"github.com/deepsearchstack/deepsearch/internal/logger"
)

// Middleware wraps a handler. Chains are applied outermost-first in the
// order given to WireUpWithMiddleware.
type Middleware func(http.Handler) http.Handler

type RouteInfo struct {
	Handler     http.HandlerFunc
	Description string
	Method      string
	Order       int
	Streaming   bool // streaming routes skip body buffering middleware
}

// RouteRegistry collects routes so they can be wired to a mux in one pass
// and printed as a startup table.
type RouteRegistry struct {
	routes   map[string]RouteInfo
	logger   logger.StyledLogger
	orderSeq int
}

func NewRouteRegistry(logger logger.StyledLogger) *RouteRegistry {
	return &RouteRegistry{
		routes: make(map[string]RouteInfo),
		logger: logger,
	}
}

func (r *RouteRegistry) Register(route string, handler http.HandlerFunc, description string) {
	r.RegisterWithMethod(route, handler, description, http.MethodGet)
}

func (r *RouteRegistry) RegisterWithMethod(route string, handler http.HandlerFunc, description, method string) {
	r.register(route, handler, description, method, false)
}

// RegisterStreaming marks the route as a long-lived SSE producer.
func (r *RouteRegistry) RegisterStreaming(route string, handler http.HandlerFunc, description, method string) {
	r.register(route, handler, description, method, true)
}

func (r *RouteRegistry) register(route string, handler http.HandlerFunc, description, method string, streaming bool) {
	r.routes[route] = RouteInfo{
		Handler:     handler,
		Description: description,
		Method:      method,
		Order:       r.orderSeq,
		Streaming:   streaming,
	}
	r.orderSeq++
}

// WireUpWithMiddleware attaches every route with the common chain applied.
// streamingChain replaces the common chain on streaming routes so buffering
// middleware never sits in front of an SSE response.
func (r *RouteRegistry) WireUpWithMiddleware(mux *http.ServeMux, common, streamingChain []Middleware) {
	for route, info := range r.routes {
		chain := common
		if info.Streaming && streamingChain != nil {
			chain = streamingChain
		}

		var handler http.Handler = info.Handler
		for i := len(chain) - 1; i >= 0; i-- {
			handler = chain[i](handler)
		}
		mux.Handle(route, handler)
	}
	r.logRoutesTable()
}

func (r *RouteRegistry) GetRoutes() map[string]RouteInfo {
	return r.routes
}

func (r *RouteRegistry) logRoutesTable() {
	if len(r.routes) == 0 {
		return
	}

	type routeEntry struct {
		path   string
		method string
		desc   string
		order  int
	}

	var entries []routeEntry
	for route, info := range r.routes {
		entries = append(entries, routeEntry{
			path:   route,
			method: info.Method,
			desc:   info.Description,
			order:  info.Order,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].order < entries[j].order
	})

	tableData := [][]string{
		{"ROUTE", "METHOD", "DESCRIPTION"},
	}
	for _, entry := range entries {
		tableData = append(tableData, []string{entry.path, entry.method, entry.desc})
	}

	r.logger.InfoWithCount("Registered web routes", len(entries))
	tableString, _ := pterm.DefaultTable.WithHasHeader().WithData(tableData).Srender()
	fmt.Print(tableString)
}

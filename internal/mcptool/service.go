// Package mcptool implements the inbound tool contracts (spec.md §6):
// query, analyze_files, status, compare, diagnose_file_access. MCP
// JSON-RPC framing itself is out of scope (spec.md §1); each tool is a
// plain Go method returning a structured result, callable directly by
// a transport adapter in cmd/router.
//
// DESIGN: one method per tool rather than a shared dispatch-by-name
// base class, following spec.md §9's redesign note ("no base classes,
// one sum type, one handler per variant"); the teacher's own
// gateway.Tool surface is not reused since its shape is specific to
// passthrough-proxy tool filtering, a concern this router doesn't have.
package mcptool

import (
	"github.com/compresr/ai-request-router/internal/cache"
	"github.com/compresr/ai-request-router/internal/config"
	"github.com/compresr/ai-request-router/internal/endpoint"
	"github.com/compresr/ai-request-router/internal/executor"
	"github.com/compresr/ai-request-router/internal/learner"
	"github.com/compresr/ai-request-router/internal/monitoring"
	"github.com/compresr/ai-request-router/internal/router"
	"github.com/compresr/ai-request-router/internal/store"
)

// Service wires every core component behind the five tool contracts.
type Service struct {
	cfg *config.Config

	registry  *endpoint.Registry
	cache     *cache.Cache
	learner   *learner.Learner
	router    *router.Router
	executor  *executor.Executor
	collector *monitoring.Collector
	store     *store.Store
}

// New builds a Service from already-constructed components, the way
// cmd/router wires them at startup.
func New(cfg *config.Config, reg *endpoint.Registry, ca *cache.Cache, l *learner.Learner, rtr *router.Router, ex *executor.Executor, collector *monitoring.Collector, st *store.Store) *Service {
	return &Service{
		cfg:       cfg,
		registry:  reg,
		cache:     ca,
		learner:   l,
		router:    rtr,
		executor:  ex,
		collector: collector,
		store:     st,
	}
}

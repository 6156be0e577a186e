package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/pipefs/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/pipefs/internal/shared/types"
)

var (
	ErrInvalidToolID   = errors.New("invalid tool ID format")
	ErrServiceNotFound = errors.New("service not found")
	ErrToolNotFound    = errors.New("tool not found")
	ErrDuplicate       = errors.New("service already registered")
)

// Provider is implemented by every service.
type Provider interface {
	Definition() types.Service
	Execute(ctx context.Context, toolID string, params map[string]interface{}, appCtx *types.Context) (*types.Result, error)
}

// Registry manages service discovery and execution.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	log       *zap.Logger
	metrics   *monitoring.Metrics
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) { r.log = l }
}

// WithMetrics records every tool call.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

// NewRegistry creates a new service registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		providers: make(map[string]Provider),
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a service provider.
func (r *Registry) Register(provider Provider) error {
	def := provider.Definition()
	if def.ID == "" {
		return fmt.Errorf("service ID cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.providers[def.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, def.ID)
	}
	r.providers[def.ID] = provider
	r.log.Info("Service registered", zap.String("service", def.ID), zap.Int("tools", len(def.Tools)))
	return nil
}

// Unregister removes a service provider.
func (r *Registry) Unregister(serviceID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.providers, serviceID)
}

// Get retrieves a service by ID.
func (r *Registry) Get(serviceID string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[serviceID]
	return p, ok
}

// List returns the registered services sorted by ID, optionally
// filtered by category.
func (r *Registry) List(category *types.Category) []types.Service {
	r.mu.RLock()
	defer r.mu.RUnlock()

	services := make([]types.Service, 0, len(r.providers))
	for _, p := range r.providers {
		def := p.Definition()
		if category == nil || def.Category == *category {
			services = append(services, def)
		}
	}
	sort.Slice(services, func(i, j int) bool { return services[i].ID < services[j].ID })
	return services
}

// Discover ranks services by how well their name, description and
// capabilities match query.
func (r *Registry) Discover(query string, limit int) []types.Service {
	type scored struct {
		service types.Service
		score   float64
	}

	query = strings.ToLower(query)
	var results []scored
	for _, def := range r.List(nil) {
		if score := relevance(query, def); score > 0 {
			results = append(results, scored{service: def, score: score})
		}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].score > results[j].score })

	out := make([]types.Service, 0, min(limit, len(results)))
	for i := 0; i < len(results) && i < limit; i++ {
		out = append(out, results[i].service)
	}
	return out
}

func relevance(query string, def types.Service) float64 {
	score := 0.0
	if strings.Contains(query, def.ID) || strings.Contains(query, strings.ToLower(def.Name)) {
		score += 10
	}
	for _, word := range strings.Fields(query) {
		if len(word) > 2 && strings.Contains(strings.ToLower(def.Description), word) {
			score += 5
		}
	}
	for _, c := range def.Capabilities {
		if strings.Contains(query, strings.ReplaceAll(strings.ToLower(c), "_", " ")) {
			score += 3
		}
	}
	if strings.Contains(query, string(def.Category)) {
		score += 2
	}
	return score
}

// Execute runs a tool. toolID has the form "<service>.<tool>".
func (r *Registry) Execute(ctx context.Context, toolID string, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	serviceID, _, ok := strings.Cut(toolID, ".")
	if !ok || serviceID == "" {
		return failure(fmt.Errorf("%w: %s", ErrInvalidToolID, toolID))
	}

	provider, ok := r.Get(serviceID)
	if !ok {
		return failure(fmt.Errorf("%w: %s", ErrServiceNotFound, serviceID))
	}
	if !hasTool(provider.Definition(), toolID) {
		return failure(fmt.Errorf("%w: %s", ErrToolNotFound, toolID))
	}

	var timer *monitoring.Timer
	if r.metrics != nil {
		timer = monitoring.NewTimer(r.metrics, serviceID, toolID)
	}

	result, err := provider.Execute(ctx, toolID, params, appCtx)

	status := "success"
	if err != nil || result == nil || !result.Success {
		status = "failure"
	}
	if timer != nil {
		timer.Stop(status)
	}
	if err != nil {
		r.log.Debug("Tool call failed", zap.String("tool", toolID), zap.Error(err))
	}
	return result, err
}

// Stats returns registry statistics.
func (r *Registry) Stats() map[string]interface{} {
	services := r.List(nil)
	tools := 0
	categories := make(map[string]int)
	for _, def := range services {
		tools += len(def.Tools)
		categories[string(def.Category)]++
	}

	return map[string]interface{}{
		"total_services": len(services),
		"total_tools":    tools,
		"categories":     categories,
	}
}

func hasTool(def types.Service, toolID string) bool {
	for _, t := range def.Tools {
		if t.ID == toolID {
			return true
		}
	}
	return false
}

func failure(err error) (*types.Result, error) {
	msg := err.Error()
	return &types.Result{Success: false, Code: -1, Error: &msg}, err
}

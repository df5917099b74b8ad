package tracklet

import (
	"context"
	"sync"

	"github.com/banshee-data/tracklets/internal/tracklet/debug"
)

// ClustererInterface abstracts the clustering implementation so the
// pipeline and the sweep can be driven with alternative strategies in tests.
type ClustererInterface interface {
	// Cluster labels every skeleton of features.
	Cluster(ctx context.Context, features Features) (*Result, error)

	// GetParams returns the current clustering parameters.
	GetParams() Params

	// SetParams updates the clustering parameters.
	SetParams(params Params)
}

// Clusterer is the greedy chaining clusterer with optional instrumentation.
type Clusterer struct {
	mu        sync.Mutex
	params    Params
	collector *debug.Collector
}

// NewClusterer creates a clusterer with the given parameters.
func NewClusterer(params Params) *Clusterer {
	return &Clusterer{params: params}
}

// SetCollector attaches a debug collector. Pass nil to detach.
func (c *Clusterer) SetCollector(collector *debug.Collector) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.collector = collector
}

// Cluster implements ClustererInterface.
func (c *Clusterer) Cluster(ctx context.Context, features Features) (*Result, error) {
	c.mu.Lock()
	params := c.params
	collector := c.collector
	c.mu.Unlock()

	return cluster(ctx, features, params, collector)
}

// GetParams implements ClustererInterface.
func (c *Clusterer) GetParams() Params {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.params
}

// SetParams implements ClustererInterface.
func (c *Clusterer) SetParams(params Params) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.params = params
}

var _ ClustererInterface = (*Clusterer)(nil)

// Copyright © 2023 Sloan Childers
package recorder

import (
	"fmt"
	"sync"

	"github.com/osintami/sentrycam/base"
)

// Registry routes requests to camera pipelines by name. It is created by
// main and handed to the HTTP server.
type Registry struct {
	mutex     sync.RWMutex
	pipelines map[string]*Pipeline
	order     []string
}

func NewRegistry() *Registry {
	return &Registry{pipelines: make(map[string]*Pipeline)}
}

func (x *Registry) Add(pipeline *Pipeline) error {
	x.mutex.Lock()
	defer x.mutex.Unlock()
	name := pipeline.Name()
	if _, exists := x.pipelines[name]; exists {
		return fmt.Errorf("camera %q already registered", name)
	}
	x.pipelines[name] = pipeline
	x.order = append(x.order, name)
	return nil
}

// Get returns the named pipeline; an empty name selects the first camera.
func (x *Registry) Get(name string) (*Pipeline, error) {
	x.mutex.RLock()
	defer x.mutex.RUnlock()
	if name == "" && len(x.order) > 0 {
		name = x.order[0]
	}
	pipeline, ok := x.pipelines[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, base.ErrCameraNotFound)
	}
	return pipeline, nil
}

func (x *Registry) Names() []string {
	x.mutex.RLock()
	defer x.mutex.RUnlock()
	out := make([]string, len(x.order))
	copy(out, x.order)
	return out
}

func (x *Registry) All() []*Pipeline {
	x.mutex.RLock()
	defer x.mutex.RUnlock()
	out := make([]*Pipeline, 0, len(x.order))
	for _, name := range x.order {
		out = append(out, x.pipelines[name])
	}
	return out
}

func (x *Registry) StartAll() {
	for _, pipeline := range x.All() {
		pipeline.Start()
	}
}

// StopAll stops every pipeline concurrently so clip flushes overlap.
func (x *Registry) StopAll() {
	var wg sync.WaitGroup
	for _, pipeline := range x.All() {
		wg.Add(1)
		go func(p *Pipeline) {
			defer wg.Done()
			p.Stop()
		}(pipeline)
	}
	wg.Wait()
}

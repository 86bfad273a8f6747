package detect

import (
	"fmt"
	"sort"
	"strings"
)

// Registry manages all available detectors
type Registry struct {
	detectors map[string]Detector
}

// NewRegistry creates a new detector registry
func NewRegistry() *Registry {
	return &Registry{
		detectors: make(map[string]Detector),
	}
}

// Register adds a detector to the registry
func (r *Registry) Register(detector Detector) {
	r.detectors[strings.ToLower(detector.Name())] = detector
}

// Get retrieves a detector by name
func (r *Registry) Get(name string) (Detector, error) {
	detector, exists := r.detectors[strings.ToLower(name)]
	if !exists {
		return nil, fmt.Errorf("detector %s not found (available: %s)", name, strings.Join(r.List(), ", "))
	}
	return detector, nil
}

// List returns all available detector names, sorted
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.detectors))
	for name := range r.detectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasDetector checks if a detector is registered
func (r *Registry) HasDetector(name string) bool {
	_, exists := r.detectors[strings.ToLower(name)]
	return exists
}

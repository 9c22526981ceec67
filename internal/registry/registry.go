package registry

import (
	_ "embed"
	"errors"
	"fmt"
	"net/http"
	"os"
	"slices"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// MockBaseURL marks a descriptor that has no real backend behind it.
const MockBaseURL = "mock"

var (
	ErrInvalidTable = errors.New("invalid service table")
	ErrEmptyTable   = errors.New("service table has no services")
)

//go:embed services.yaml
var defaultTable []byte

var validate = validator.New()

// ServiceDescriptor says how to reach, or mock, one backend.
type ServiceDescriptor struct {
	ID         string `yaml:"-" validate:"required,max=64"`
	BaseURL    string `yaml:"base_url" validate:"required,eq=mock|http_url"`
	Path       string `yaml:"path" validate:"omitempty,startswith=/"`
	HTTPMethod string `yaml:"method" validate:"oneof=POST"`
}

// IsMock reports whether requests for this service take the mock path.
func (d ServiceDescriptor) IsMock() bool {
	return d.BaseURL == MockBaseURL
}

// URL is the outbound target for a real backend.
func (d ServiceDescriptor) URL() string {
	return d.BaseURL + d.Path
}

type file struct {
	Services map[string]ServiceDescriptor `yaml:"services"`
}

// Registry is the immutable id -> descriptor table. It is safe for
// concurrent reads since nothing mutates it after construction.
type Registry struct {
	services map[string]ServiceDescriptor
}

// New validates the descriptors and builds a registry keyed by ID.
func New(descriptors ...ServiceDescriptor) (*Registry, error) {
	if len(descriptors) == 0 {
		return nil, ErrEmptyTable
	}
	services := make(map[string]ServiceDescriptor, len(descriptors))
	for _, d := range descriptors {
		if d.HTTPMethod == "" {
			d.HTTPMethod = http.MethodPost
		}
		if err := validate.Struct(d); err != nil {
			return nil, fmt.Errorf("%w: service %q: %v", ErrInvalidTable, d.ID, err)
		}
		if _, dup := services[d.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate service %q", ErrInvalidTable, d.ID)
		}
		services[d.ID] = d
	}
	return &Registry{services: services}, nil
}

// Parse reads a YAML service table.
func Parse(data []byte) (*Registry, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTable, err)
	}
	descriptors := lo.MapToSlice(f.Services, func(id string, d ServiceDescriptor) ServiceDescriptor {
		d.ID = id
		return d
	})
	return New(descriptors...)
}

// Load reads the table at path, or the built-in table when path is empty.
func Load(path string) (*Registry, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service table: %w", err)
	}
	return Parse(data)
}

// Default returns the table compiled into the binary.
func Default() (*Registry, error) {
	return Parse(defaultTable)
}

// Lookup returns the descriptor for id.
func (r *Registry) Lookup(id string) (ServiceDescriptor, bool) {
	d, ok := r.services[id]
	return d, ok
}

// IDs returns the configured service ids in sorted order.
func (r *Registry) IDs() []string {
	ids := lo.Keys(r.services)
	slices.Sort(ids)
	return ids
}

// Descriptors returns every descriptor ordered by ID.
func (r *Registry) Descriptors() []ServiceDescriptor {
	return lo.Map(r.IDs(), func(id string, _ int) ServiceDescriptor {
		return r.services[id]
	})
}

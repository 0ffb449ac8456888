// Package tokens builds the payloads of short-lived tokens handed to the
// embedded rich content editor and signs them.
package tokens

import (
	"errors"
	"fmt"
	"sort"

	"github.com/SAP-F-2025/question-bank-service/internal/models"
	"github.com/SAP-F-2025/question-bank-service/internal/policy"
)

var ErrUnknownWorkflow = errors.New("unknown token workflow")

// Subject is everything a builder may look at. Context and User may be nil.
type Subject struct {
	Context      *models.ContextInfo
	User         *models.User
	Capabilities policy.CapabilitySet
}

// PayloadBuilder returns the claims one workflow contributes
type PayloadBuilder func(Subject) map[string]any

type Registry struct {
	builders map[string]PayloadBuilder
}

func NewRegistry() *Registry {
	return &Registry{builders: make(map[string]PayloadBuilder)}
}

// DefaultRegistry has the rich_content and ui workflows registered
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(WorkflowRichContent, RichContentPayload)
	r.Register(WorkflowUI, UIPayload)
	return r
}

func (r *Registry) Register(name string, builder PayloadBuilder) {
	r.builders[name] = builder
}

func (r *Registry) Lookup(name string) (PayloadBuilder, bool) {
	builder, ok := r.builders[name]
	return builder, ok
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Payload merges the output of every named workflow. Later workflows win on
// key collisions. No payload is built if any name is unknown.
func (r *Registry) Payload(workflows []string, subject Subject) (map[string]any, error) {
	builders := make([]PayloadBuilder, 0, len(workflows))
	for _, name := range workflows {
		builder, ok := r.builders[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownWorkflow, name)
		}
		builders = append(builders, builder)
	}

	payload := make(map[string]any)
	for _, builder := range builders {
		for k, v := range builder(subject) {
			payload[k] = v
		}
	}
	return payload, nil
}

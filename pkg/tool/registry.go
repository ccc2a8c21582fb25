package tool

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"google.golang.org/genai"
)

// ErrToolNotFound is returned when the model calls a function no tool declares
var ErrToolNotFound = goerr.New("tool not found")

// Registry maps function names to the tools that declare them
type Registry struct {
	byName map[string]Tool
	tools  []Tool
	specs  []*genai.Tool
}

// New creates a new tool registry with the given tools
func New(tools ...Tool) *Registry {
	r := &Registry{
		byName: make(map[string]Tool),
		tools:  tools,
	}

	for _, t := range tools {
		spec := t.Spec()
		if spec == nil || len(spec.FunctionDeclarations) == 0 {
			continue
		}
		r.specs = append(r.specs, spec)
		for _, fd := range spec.FunctionDeclarations {
			r.byName[fd.Name] = t
		}
	}

	return r
}

// Specs returns all tool specifications in registration order
func (r *Registry) Specs() []*genai.Tool {
	return r.specs
}

// Names returns the declared function names
func (r *Registry) Names() []string {
	var names []string
	for _, spec := range r.specs {
		for _, fd := range spec.FunctionDeclarations {
			names = append(names, fd.Name)
		}
	}
	return names
}

// Prompts returns all tool prompts concatenated
func (r *Registry) Prompts(ctx context.Context) string {
	var prompts []string
	for _, t := range r.tools {
		if prompt := t.Prompt(ctx); prompt != "" {
			prompts = append(prompts, prompt)
		}
	}
	return strings.Join(prompts, "\n\n")
}

// Flags returns all tool flags combined
func (r *Registry) Flags() []cli.Flag {
	var flags []cli.Flag
	for _, t := range r.tools {
		flags = append(flags, t.Flags()...)
	}
	return flags
}

// Execute runs the tool declaring fc.Name
func (r *Registry) Execute(ctx context.Context, fc genai.FunctionCall) (*genai.FunctionResponse, error) {
	t, ok := r.byName[fc.Name]
	if !ok {
		return nil, goerr.Wrap(ErrToolNotFound, "no tool declares the function", goerr.V("name", fc.Name))
	}

	return t.Execute(ctx, fc)
}

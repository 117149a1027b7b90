package scanner

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/khanhnv2901/seca-suite/internal/domain/finding"
	sharedErrors "github.com/khanhnv2901/seca-suite/internal/shared/errors"
)

// InputKind describes what a tool expects as target
type InputKind string

const (
	InputURL      InputKind = "url"
	InputDomain   InputKind = "domain"
	InputHost     InputKind = "host"
	InputCIDR     InputKind = "cidr"
	InputText     InputKind = "text"
	InputOptional InputKind = "search"
)

// Options tune a tool run
type Options struct {
	Seed            uint32
	Delay           *time.Duration
	IncludeNegative bool
	Now             time.Time

	// ports
	Full bool
	// hash; in file mode the target is the file name and FileSize is
	// reported by the caller, the scanner never touches the filesystem
	Compare  string
	FileMode bool
	FileSize int64
	// subdomain
	Offline bool
	Demo    bool
	Lookup  Lookuper
	// cve
	Severity finding.Severity
	Vendor   string
}

// Tool binds a catalog and policy to a name
type Tool struct {
	Name         string
	Title        string
	Description  string
	Input        InputKind
	DefaultDelay time.Duration
	Probability  float64

	catalog func(opts Options) Catalog
	policy  func(opts Options, p *Policy)
}

// Catalog returns the tool catalog for the given options
func (t *Tool) Catalog(opts Options) Catalog {
	c := t.catalog(opts)
	c.Tool = t.Name
	return c
}

// Policy returns the run policy for the given options
func (t *Tool) Policy(opts Options) Policy {
	p := Policy{
		Probability:     t.Probability,
		Delay:           t.DefaultDelay,
		IncludeNegative: opts.IncludeNegative,
		Validate:        validatorFor(t.Input),
		Seed:            opts.Seed,
	}
	if opts.Delay != nil {
		p.Delay = *opts.Delay
	}
	if t.policy != nil {
		t.policy(opts, &p)
	}
	return p
}

func validatorFor(kind InputKind) Validator {
	switch kind {
	case InputURL:
		return NormalizeURL
	case InputDomain:
		return ValidateDomain
	case InputHost:
		return ValidateHost
	case InputCIDR:
		return ValidateCIDR
	case InputText:
		return ValidateText
	default:
		return ValidateOptional
	}
}

// Registry holds the available tools
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*Tool
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*Tool)}
}

// DefaultRegistry returns a registry with every built-in panel
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, t := range []*Tool{
		subdomainTool(),
		portsTool(),
		headersTool(),
		corsTool(),
		sslTool(),
		sqliTool(),
		xssTool(),
		cveTool(),
		hashTool(),
		networkTool(),
	} {
		r.Register(t)
	}
	return r
}

// Register adds or replaces a tool
func (r *Registry) Register(t *Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name] = t
}

// Get returns a tool by name, case-insensitively
func (r *Registry) Get(name string) (*Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %s", sharedErrors.ErrUnknownTool, name)
	}
	return t, nil
}

// List returns the tools sorted by name
func (r *Registry) List() []*Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns the sorted tool names
func (r *Registry) Names() []string {
	tools := r.List()
	names := make([]string, len(tools))
	for i, t := range tools {
		names[i] = t.Name
	}
	return names
}

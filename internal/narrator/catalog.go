// Package narrator holds the narrated signaling procedures and plays them
// back as a lazy sequence of timed lines.
package narrator

import (
	_ "embed"
	"errors"
	"fmt"
	"iter"
	"slices"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownProcedure   = errors.New("unknown procedure")
	ErrApplicationMissing = errors.New("application type is required")
)

//go:embed scripts.yaml
var embeddedScripts []byte

// Kind distinguishes timed scripts from single-line lookups
type Kind string

const (
	KindScript Kind = "script"
	KindLookup Kind = "lookup"
)

// Procedure is one selectable narration. Lines is empty for lookups.
type Procedure struct {
	ID          string   `yaml:"id" json:"id"`
	Name        string   `yaml:"name" json:"name"`
	Kind        Kind     `yaml:"kind" json:"kind"`
	Description string   `yaml:"description" json:"description"`
	Lines       []string `yaml:"lines,omitempty" json:"lines,omitempty"`
}

// Catalog is an immutable, ordered set of procedures
type Catalog struct {
	procedures []Procedure
	byID       map[string]int
}

type catalogFile struct {
	Procedures []Procedure `yaml:"procedures"`
}

// LoadCatalog parses and validates a YAML procedure catalog.
func LoadCatalog(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse procedure catalog: %w", err)
	}
	if len(f.Procedures) == 0 {
		return nil, fmt.Errorf("procedure catalog is empty")
	}

	c := &Catalog{byID: make(map[string]int, len(f.Procedures))}
	for i, p := range f.Procedures {
		if p.ID == "" {
			return nil, fmt.Errorf("procedure %d: id cannot be empty", i)
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate procedure id: %s", p.ID)
		}
		if p.Name == "" {
			return nil, fmt.Errorf("procedure %s: name cannot be empty", p.ID)
		}
		switch p.Kind {
		case KindScript:
			if len(p.Lines) == 0 {
				return nil, fmt.Errorf("procedure %s: script has no lines", p.ID)
			}
			for j, line := range p.Lines {
				if line == "" {
					return nil, fmt.Errorf("procedure %s: line %d is empty", p.ID, j+1)
				}
			}
		case KindLookup:
			if len(p.Lines) != 0 {
				return nil, fmt.Errorf("procedure %s: lookup procedures cannot define lines", p.ID)
			}
		default:
			return nil, fmt.Errorf("procedure %s: kind must be 'script' or 'lookup', got %q", p.ID, p.Kind)
		}
		c.byID[p.ID] = i
		c.procedures = append(c.procedures, p)
	}
	return c, nil
}

var defaultCatalog = sync.OnceValue(func() *Catalog {
	c, err := LoadCatalog(embeddedScripts)
	if err != nil {
		panic(fmt.Sprintf("narrator: embedded catalog: %v", err))
	}
	return c
})

// DefaultCatalog returns the built-in procedures: pdp-context, ims-signaling,
// mobility-handoff, security and qos-mapper.
func DefaultCatalog() *Catalog {
	return defaultCatalog()
}

func clone(p Procedure) Procedure {
	p.Lines = slices.Clone(p.Lines)
	return p
}

// Get returns a copy of the procedure with the given id
func (c *Catalog) Get(id string) (Procedure, error) {
	i, ok := c.byID[id]
	if !ok {
		return Procedure{}, fmt.Errorf("%w: %s", ErrUnknownProcedure, id)
	}
	return clone(c.procedures[i]), nil
}

// List returns copies of all procedures in catalog order
func (c *Catalog) List() []Procedure {
	out := make([]Procedure, 0, len(c.procedures))
	for _, p := range c.procedures {
		out = append(out, clone(p))
	}
	return out
}

// Sequence resolves a procedure into its playable steps. Lookup procedures
// need app and produce a single undelayed line.
func (c *Catalog) Sequence(id, app string, pause time.Duration) (Procedure, iter.Seq[Step], error) {
	p, err := c.Get(id)
	if err != nil {
		return Procedure{}, nil, err
	}
	if p.Kind == KindLookup {
		if app == "" {
			return Procedure{}, nil, ErrApplicationMissing
		}
		q, err := LookupQoS(app)
		if err != nil {
			return Procedure{}, nil, err
		}
		p.Lines = []string{q.Line()}
		return p, Steps(p, 0), nil
	}
	return p, Steps(p, pause), nil
}

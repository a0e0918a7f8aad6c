// Package toolexec loads the tool catalog agents draw from when building
// their tool-call plans (§4.3) and executes individual tool calls for its
// two tool families, query and search, as filtered reads against the
// document store.
package toolexec

import (
	"context"
	"fmt"

	"github.com/vigil-soc/vigil/pkg/store"
)

// Kind distinguishes the two tool families named in §4.3.
type Kind string

const (
	KindQuery  Kind = "query"
	KindSearch Kind = "search"
)

// SearchMode is the retrieval strategy a search tool uses.
type SearchMode string

const (
	SearchKeyword SearchMode = "keyword"
	SearchHybrid  SearchMode = "hybrid"
	SearchKNN     SearchMode = "knn"
)

// ParamSpec describes one parameter a tool call must supply.
type ParamSpec struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"` // string|number|bool|string_array
	Required bool   `yaml:"required"`
}

// ToolDef is one entry in the catalog.
type ToolDef struct {
	Name       string      `yaml:"name"`
	Kind       Kind        `yaml:"kind"`
	Index      string      `yaml:"index"`
	SearchMode SearchMode  `yaml:"search_mode,omitempty"`
	Params     []ParamSpec `yaml:"params"`
	Description string     `yaml:"description,omitempty"`
}

// ErrToolNotFound is returned when a requested tool name isn't in the
// catalog.
var ErrToolNotFound = fmt.Errorf("tool not found")

// InvalidDefinitionError reports a structurally invalid ToolDef caught at
// catalog load time, before any agent ever tries to call it.
type InvalidDefinitionError struct {
	Tool   string
	Reason string
}

func (e *InvalidDefinitionError) Error() string {
	return fmt.Sprintf("tool %q: invalid definition: %s", e.Tool, e.Reason)
}

// InvalidCallError reports a tool invocation whose arguments don't satisfy
// its ParamSpec list.
type InvalidCallError struct {
	Tool   string
	Reason string
}

func (e *InvalidCallError) Error() string {
	return fmt.Sprintf("tool %q: invalid call: %s", e.Tool, e.Reason)
}

// Catalog holds validated tool definitions keyed by name.
type Catalog struct {
	tools map[string]ToolDef
}

// NewCatalog validates and indexes a list of tool definitions.
func NewCatalog(defs []ToolDef) (*Catalog, error) {
	c := &Catalog{tools: make(map[string]ToolDef, len(defs))}
	for _, d := range defs {
		if d.Name == "" {
			return nil, &InvalidDefinitionError{Tool: "<unnamed>", Reason: "name is required"}
		}
		if d.Kind != KindQuery && d.Kind != KindSearch {
			return nil, &InvalidDefinitionError{Tool: d.Name, Reason: "kind must be query or search"}
		}
		if d.Index == "" {
			return nil, &InvalidDefinitionError{Tool: d.Name, Reason: "index is required"}
		}
		if d.Kind == KindSearch {
			switch d.SearchMode {
			case SearchKeyword, SearchHybrid, SearchKNN:
			default:
				return nil, &InvalidDefinitionError{Tool: d.Name, Reason: "search_mode must be keyword, hybrid, or knn"}
			}
		}
		c.tools[d.Name] = d
	}
	return c, nil
}

// Get retrieves a tool definition by name.
func (c *Catalog) Get(name string) (ToolDef, error) {
	d, ok := c.tools[name]
	if !ok {
		return ToolDef{}, fmt.Errorf("%w: %q", ErrToolNotFound, name)
	}
	return d, nil
}

// All returns every catalog entry.
func (c *Catalog) All() map[string]ToolDef {
	return c.tools
}

// Executor runs validated tool calls against a document store.
type Executor struct {
	catalog *Catalog
	store   store.Store
}

// NewExecutor builds an Executor bound to one catalog and one store.
func NewExecutor(catalog *Catalog, s store.Store) *Executor {
	return &Executor{catalog: catalog, store: s}
}

// Result is one tool call's output: a ranked/filtered set of documents.
type Result struct {
	Tool string
	Docs []store.VersionedDoc
}

// Execute validates args against the tool's ParamSpec list, then runs one
// filtered store.Search over the tool's index. Query and search tools take
// the same path: SearchMode is checked when the catalog loads but not
// consulted here, and no placeholder substitution or columnar result shape
// is produced.
func (e *Executor) Execute(ctx context.Context, toolName string, args map[string]any) (Result, error) {
	def, err := e.catalog.Get(toolName)
	if err != nil {
		return Result{}, err
	}
	if err := validateArgs(def, args); err != nil {
		return Result{}, err
	}

	q := store.SearchQuery{Filters: make(map[string]any)}
	for _, p := range def.Params {
		if v, ok := args[p.Name]; ok {
			q.Filters[p.Name] = v
		}
	}
	if text, ok := args["query_text"].(string); ok {
		q.Text = text
	}

	size := 50
	if s, ok := args["size"].(int); ok && s > 0 {
		size = s
	}

	docs, err := e.store.Search(ctx, def.Index, q, nil, size)
	if err != nil {
		return Result{}, fmt.Errorf("tool %q: %w", toolName, err)
	}
	return Result{Tool: toolName, Docs: docs}, nil
}

func validateArgs(def ToolDef, args map[string]any) error {
	for _, p := range def.Params {
		v, present := args[p.Name]
		if p.Required && !present {
			return &InvalidCallError{Tool: def.Name, Reason: fmt.Sprintf("missing required parameter %q", p.Name)}
		}
		if !present {
			continue
		}
		if !typeMatches(p.Type, v) {
			return &InvalidCallError{Tool: def.Name, Reason: fmt.Sprintf("parameter %q expects type %s", p.Name, p.Type)}
		}
	}
	return nil
}

func typeMatches(want string, v any) bool {
	switch want {
	case "string":
		_, ok := v.(string)
		return ok
	case "number":
		switch v.(type) {
		case float64, int, int64:
			return true
		}
		return false
	case "bool":
		_, ok := v.(bool)
		return ok
	case "string_array":
		switch vv := v.(type) {
		case []string:
			return true
		case []any:
			for _, e := range vv {
				if _, ok := e.(string); !ok {
					return false
				}
			}
			return true
		}
		return false
	default:
		return true
	}
}

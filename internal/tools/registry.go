package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Conversation modes. The mode discriminator on a turn request selects the
// active tool set; adding a mode is a table entry, not new branching.
const (
	ModeChat      = "chat"
	ModeReasoning = "reasoning"
)

// modeTools maps each mode to the tool names callable in that mode. The
// reasoning mode runs without tools so the model answers in freeform text.
var modeTools = map[string][]string{
	ModeChat:      {WeatherToolName, CreateDocumentToolName, UpdateDocumentToolName, RequestSuggestionsToolName},
	ModeReasoning: {},
}

// ActiveToolNames returns the tool names callable in the given mode.
// Unknown modes fall back to the default chat mode.
func ActiveToolNames(mode string) []string {
	names, ok := modeTools[mode]
	if !ok {
		return modeTools[ModeChat]
	}
	return names
}

// Registry is a fixed mapping from tool name to factory. Registration
// happens once at startup; requests only read.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a tool factory by name, replacing any previous entry.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// ActiveTools constructs the tools callable in the given mode, bound to the
// turn's context. Names without a registered factory are skipped.
func (r *Registry) ActiveTools(mode string, tc TurnContext) []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := ActiveToolNames(mode)
	active := make([]Tool, 0, len(names))
	for _, name := range names {
		if factory, ok := r.factories[name]; ok {
			active = append(active, factory(tc))
		}
	}
	return active
}

// DefaultRegistry returns a registry populated with every tool this
// deployment ships.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(WeatherToolName, func(TurnContext) Tool { return NewWeatherTool() })
	r.Register(CreateDocumentToolName, func(tc TurnContext) Tool { return NewCreateDocumentTool(tc) })
	r.Register(UpdateDocumentToolName, func(tc TurnContext) Tool { return NewUpdateDocumentTool(tc) })
	r.Register(RequestSuggestionsToolName, func(tc TurnContext) Tool { return NewRequestSuggestionsTool(tc) })
	return r
}

var schemaCache sync.Map

// compileSchema compiles and caches a JSON Schema keyed by its source text.
func compileSchema(schema []byte) (*jsonschema.Schema, error) {
	key := string(schema)
	if cached, ok := schemaCache.Load(key); ok {
		if compiled, ok := cached.(*jsonschema.Schema); ok {
			return compiled, nil
		}
	}

	compiled, err := jsonschema.CompileString("tool.schema.json", key)
	if err != nil {
		return nil, err
	}
	schemaCache.Store(key, compiled)
	return compiled, nil
}

// ValidateInput checks tool call arguments against the tool's declared
// schema. A validation failure is reported as an error for the caller to
// convert into a tool-level error result.
func ValidateInput(t Tool, input json.RawMessage) error {
	compiled, err := compileSchema(t.Schema())
	if err != nil {
		return fmt.Errorf("compile schema for %s: %w", t.Name(), err)
	}

	var decoded any
	if len(input) > 0 {
		if err := json.Unmarshal(input, &decoded); err != nil {
			return fmt.Errorf("arguments are not valid JSON: %w", err)
		}
	} else {
		decoded = map[string]any{}
	}

	if err := compiled.Validate(decoded); err != nil {
		return fmt.Errorf("arguments invalid for %s: %w", t.Name(), err)
	}
	return nil
}

// Execute validates and runs a tool call. Invalid arguments and executor
// failures both come back as error results so the model can correct itself
// within the step budget.
func Execute(ctx context.Context, t Tool, input json.RawMessage) *Result {
	if err := ValidateInput(t, input); err != nil {
		return errorResult(err.Error())
	}

	result, err := t.Execute(ctx, input)
	if err != nil {
		return errorResult(fmt.Sprintf("tool %s failed: %v", t.Name(), err))
	}
	if result == nil {
		return errorResult(fmt.Sprintf("tool %s returned no result", t.Name()))
	}
	return result
}

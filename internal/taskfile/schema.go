package taskfile

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Document is the top-level task file structure. Task order is the
// declaration order in the file and is preserved exactly.
type Document struct {
	Information string
	Variables   map[string]any
	Helpers     map[string]*Spec
	Tasks       []*Spec
}

// Spec describes one task or helper entry. Helpers use a subset of the
// fields; the validator rejects task-only fields on helpers.
type Spec struct {
	Name          string            `yaml:"-"`
	Description   string            `yaml:"description"`
	Run           RunSpec           `yaml:"run"`
	Each          EachSpec          `yaml:"each"`
	WorkingDir    string            `yaml:"working_dir"`
	Env           map[string]string `yaml:"env"`
	SuccessCode   int               `yaml:"success_code"`
	ShowOutput    bool              `yaml:"show_output"`
	RequireInput  InputPrompt       `yaml:"require_input"`
	Check         string            `yaml:"check"`
	Prerequisites string            `yaml:"prerequisites"`
	OnSuccess     *Hook             `yaml:"on_success"`
	OnFailure     *Hook             `yaml:"on_failure"`
}

// RunSpec is either a single shell string or a literal argv list.
// The string form goes through the platform shell; the list form is
// executed as-is with no interpreter.
type RunSpec struct {
	Line string
	Argv []string
}

func (r *RunSpec) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		return node.Decode(&r.Line)
	case yaml.SequenceNode:
		return node.Decode(&r.Argv)
	default:
		return fmt.Errorf("line %d: run must be a string or a list", node.Line)
	}
}

// IsZero reports whether no run template was given.
func (r RunSpec) IsZero() bool {
	return r.Line == "" && len(r.Argv) == 0
}

// EachSpec is an iteration source: either a variables.<name> reference
// string or a literal sequence.
type EachSpec struct {
	Ref   string
	Items []any
}

func (e *EachSpec) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		return node.Decode(&e.Ref)
	case yaml.SequenceNode:
		return node.Decode(&e.Items)
	default:
		return fmt.Errorf("line %d: each must be a string or a list", node.Line)
	}
}

// IsZero reports whether no iteration source was given.
func (e EachSpec) IsZero() bool {
	return e.Ref == "" && len(e.Items) == 0
}

// InputPrompt is the require_input field: true for the default prompt,
// or a string carrying the prompt text.
type InputPrompt struct {
	Required bool
	Prompt   string
}

func (p *InputPrompt) UnmarshalYAML(node *yaml.Node) error {
	var b bool
	if err := node.Decode(&b); err == nil {
		p.Required = b
		return nil
	}
	var s string
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("line %d: require_input must be a boolean or a string", node.Line)
	}
	p.Required = true
	p.Prompt = s
	return nil
}

// Hook is an on_success/on_failure action: a plain message string, or a
// mapping with an optional message, auxiliary command, and skip target.
type Hook struct {
	Message string  `yaml:"message"`
	Run     RunSpec `yaml:"run"`
	SkipTo  string  `yaml:"skip_to"`
}

func (h *Hook) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		return node.Decode(&h.Message)
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: hook must be a string or a mapping", node.Line)
	}
	type plain Hook
	return node.Decode((*plain)(h))
}

func (d *Document) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("task file must be a mapping")
	}
	for i := 0; i < len(node.Content)-1; i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		switch key.Value {
		case "information":
			if err := val.Decode(&d.Information); err != nil {
				return err
			}
		case "variables":
			if err := decodeVariables(val, d); err != nil {
				return err
			}
		case "helpers":
			specs, err := decodeSpecs(val, "helper")
			if err != nil {
				return err
			}
			d.Helpers = map[string]*Spec{}
			for _, s := range specs {
				d.Helpers[s.Name] = s
			}
		case "tasks":
			specs, err := decodeSpecs(val, "task")
			if err != nil {
				return err
			}
			d.Tasks = specs
		}
	}
	return nil
}

// decodeVariables accepts a mapping, or the legacy form of a sequence of
// single-pair mappings, merged in order with later entries winning.
func decodeVariables(node *yaml.Node, d *Document) error {
	d.Variables = map[string]any{}
	switch node.Kind {
	case yaml.MappingNode:
		return node.Decode(&d.Variables)
	case yaml.SequenceNode:
		var entries []map[string]any
		if err := node.Decode(&entries); err != nil {
			return err
		}
		for _, entry := range entries {
			for name, value := range entry {
				d.Variables[name] = value
			}
		}
		return nil
	default:
		return fmt.Errorf("line %d: variables must be a mapping or a list of mappings", node.Line)
	}
}

// decodeSpecs walks a mapping node pairwise so declaration order
// survives decoding. Duplicate names are a document error.
func decodeSpecs(node *yaml.Node, kind string) ([]*Spec, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: %ss must be a mapping", node.Line, kind)
	}
	var specs []*Spec
	seen := map[string]bool{}
	for i := 0; i < len(node.Content)-1; i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		if seen[key.Value] {
			return nil, fmt.Errorf("line %d: duplicate %s %q", key.Line, kind, key.Value)
		}
		seen[key.Value] = true
		s := &Spec{Name: key.Value}
		if err := val.Decode(s); err != nil {
			return nil, fmt.Errorf("%s %q: %w", kind, key.Value, err)
		}
		specs = append(specs, s)
	}
	return specs, nil
}

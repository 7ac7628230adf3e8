// Package pipelineyaml reads the runtime parameters declared by an Azure
// Pipelines YAML file.
package pipelineyaml

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type (
	// Parameter is one entry of the top-level parameters section.
	Parameter struct {
		Name        string
		DisplayName string
		Type        string
		Default     string
		HasDefault  bool
		Values      []string
	}

	// Parameters accepts both the list form and the legacy name: default map form.
	Parameters []Parameter

	file struct {
		Parameters Parameters `yaml:"parameters"`
	}

	listEntry struct {
		Name        string    `yaml:"name"`
		DisplayName string    `yaml:"displayName"`
		Type        string    `yaml:"type"`
		Default     yaml.Node `yaml:"default"`
		Values      []any     `yaml:"values"`
	}
)

// Load reads the parameters declared in the pipeline file at path.
func Load(path string) (Parameters, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pipeline file: %w", err)
	}
	params, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return params, nil
}

// Parse returns the parameters declared in a pipeline document, in order.
func Parse(data []byte) (Parameters, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return f.Parameters, nil
}

func (p *Parameters) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		var entries []listEntry
		if err := value.Decode(&entries); err != nil {
			return err
		}
		params := make(Parameters, 0, len(entries))
		for _, e := range entries {
			if e.Name == "" {
				return fmt.Errorf("line %d: parameter without a name", value.Line)
			}
			param := Parameter{
				Name:        e.Name,
				DisplayName: e.DisplayName,
				Type:        e.Type,
			}
			if param.Type == "" {
				param.Type = "string"
			}
			if e.Default.Kind != 0 {
				def, err := render(&e.Default)
				if err != nil {
					return err
				}
				param.Default, param.HasDefault = def, true
			}
			for _, v := range e.Values {
				param.Values = append(param.Values, fmt.Sprint(v))
			}
			params = append(params, param)
		}
		*p = params
		return nil

	case yaml.MappingNode:
		params := make(Parameters, 0, len(value.Content)/2)
		for i := 0; i+1 < len(value.Content); i += 2 {
			def, err := render(value.Content[i+1])
			if err != nil {
				return err
			}
			params = append(params, Parameter{
				Name:       value.Content[i].Value,
				Type:       "string",
				Default:    def,
				HasDefault: true,
			})
		}
		*p = params
		return nil

	default:
		return fmt.Errorf("line %d: parameters must be a list or a mapping", value.Line)
	}
}

// render returns scalars verbatim and encodes anything else as YAML.
func render(n *yaml.Node) (string, error) {
	if n.Kind == yaml.ScalarNode {
		if n.Tag == "!!null" {
			return "", nil
		}
		return n.Value, nil
	}
	out, err := yaml.Marshal(n)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// Defaults returns the default value of every parameter that has one.
func (p Parameters) Defaults() map[string]string {
	out := make(map[string]string, len(p))
	for _, param := range p {
		if param.HasDefault {
			out[param.Name] = param.Default
		}
	}
	return out
}

// Validate checks supplied values against the allowed values of each parameter.
// Unknown names are rejected.
func (p Parameters) Validate(values map[string]string) error {
	known := make(map[string]Parameter, len(p))
	for _, param := range p {
		known[param.Name] = param
	}
	for name, v := range values {
		param, ok := known[name]
		if !ok {
			return fmt.Errorf("unknown parameter %q", name)
		}
		if len(param.Values) > 0 && !contains(param.Values, v) {
			return fmt.Errorf("parameter %q: %q is not one of %s", name, v, strings.Join(param.Values, ", "))
		}
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

package space

import (
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// spaceFile is the on-disk layout of a search space:
//
//	hyperparameters:
//	  x0: {type: uniform_float, lower: -5, upper: 10}
//	  optimizer: {type: categorical, choices: [adam, sgd]}
type spaceFile struct {
	Hyperparameters map[string]map[string]any `yaml:"hyperparameters"`
}

// Load reads a YAML search space definition from disk.
func Load(path string) (*Space, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read search space: %w", err)
	}
	return Parse(data)
}

// Parse builds a Space from a YAML document.
func Parse(data []byte) (*Space, error) {
	var file spaceFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse search space: %w", err)
	}
	if len(file.Hyperparameters) == 0 {
		return nil, fmt.Errorf("search space defines no hyperparameters")
	}

	params := make([]Hyperparameter, 0, len(file.Hyperparameters))
	for name, raw := range file.Hyperparameters {
		hp, err := FromMap(name, raw)
		if err != nil {
			return nil, err
		}
		params = append(params, hp)
	}
	return New(params...)
}

// FromMap decodes one hyperparameter definition.
func FromMap(name string, raw map[string]any) (Hyperparameter, error) {
	hp := Hyperparameter{Name: name}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &hp,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return Hyperparameter{}, err
	}
	if err := dec.Decode(raw); err != nil {
		return Hyperparameter{}, fmt.Errorf("hyperparameter %s: %w", name, err)
	}
	hp.Name = name
	return hp, nil
}

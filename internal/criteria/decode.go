package criteria

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Definition is the configuration form of a Criterion.
type Definition struct {
	Key             string   `mapstructure:"key"`
	Name            string   `mapstructure:"name"`
	MinScore        float64  `mapstructure:"min-score"`
	MaxScore        float64  `mapstructure:"max-score"`
	Description     string   `mapstructure:"description"`
	RequiredAspects []string `mapstructure:"required-aspects"`
}

// Decode builds a schema from the raw `criteria` configuration value.
// An empty value yields the default schema.
func Decode(raw any, opts ...Option) (*Schema, error) {
	if raw == nil {
		return Default(opts...), nil
	}

	var defs []Definition
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &defs,
	})
	if err != nil {
		return nil, fmt.Errorf("create criteria decoder: %w", err)
	}

	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("decode criteria: %w", err)
	}

	if len(defs) == 0 {
		return Default(opts...), nil
	}

	list := make([]Criterion, 0, len(defs))
	for _, d := range defs {
		list = append(list, Criterion(d))
	}

	return New(list, opts...)
}

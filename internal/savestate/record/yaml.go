package record

import (
	"encoding/hex"
	"fmt"

	"gopkg.in/yaml.v3"
)

type yamlRecord struct {
	Key   string `yaml:"key"`
	Kind  string `yaml:"kind"`
	Value any    `yaml:"value"`
}

// MarshalYAML renders a set as a YAML sequence of {key, kind, value}
// entries in set order. Byte values are rendered as hex.
func MarshalYAML(s *Set) ([]byte, error) {
	out := make([]yamlRecord, 0, s.Len())
	s.Each(func(key string, v Value) {
		val := v.Interface()
		if b, ok := val.([]byte); ok {
			val = hex.EncodeToString(b)
		}
		out = append(out, yamlRecord{Key: key, Kind: v.Kind().String(), Value: val})
	})
	data, err := yaml.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("marshal record set: %w", err)
	}
	return data, nil
}

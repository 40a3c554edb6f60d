package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML as a Go duration
// string such as "10m" or "1h30m", or as a plain number of seconds
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var seconds int64
	if err := value.Decode(&seconds); err == nil {
		*d = Duration(time.Duration(seconds) * time.Second)
		return nil
	}

	var str string
	if err := value.Decode(&str); err != nil {
		return fmt.Errorf("invalid duration value: %s", value.Value)
	}
	parsed, err := time.ParseDuration(str)
	if err != nil {
		return fmt.Errorf("invalid duration value '%s': %w", str, err)
	}

	*d = Duration(parsed)
	return nil
}

// MarshalJSON implements json.Marshaler so the config dump stays readable
func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// ParseYAML parses YAML settings. Unknown keys are rejected.
func ParseYAML(data []byte) (*Settings, error) {
	if len(data) > MaxConfigSize {
		return nil, &ParseError{
			Message: "settings file too large",
			Detail:  fmt.Sprintf("%d bytes, maximum is %d", len(data), MaxConfigSize),
		}
	}

	s := &Settings{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(s); err != nil && !errors.Is(err, io.EOF) {
		return nil, &ParseError{
			Message: "YAML syntax error",
			Detail:  err.Error(),
			Err:     err,
		}
	}

	s.applyDefaults()
	if err := s.Validate(); err != nil {
		return nil, &ParseError{
			Message: "settings validation failed",
			Detail:  err.Error(),
			Err:     err,
		}
	}
	return s, nil
}

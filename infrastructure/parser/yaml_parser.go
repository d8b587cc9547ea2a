// Package parser reads reference-host fixtures from YAML.
package parser

import (
	"bytes"
	stdErrors "errors"
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"
	"github.com/ocwasm/ocsafe/domain/entities"
	"github.com/ocwasm/ocsafe/domain/ports"
	"gopkg.in/yaml.v3"
)

// validate is a package-level singleton; validators cache struct metadata.
var validate = validator.New()

// YamlFixtureParser implements FixtureParser for YAML.
type YamlFixtureParser struct {
	strict bool
}

// ParserOption configures a YamlFixtureParser.
type ParserOption func(*YamlFixtureParser)

// WithStrict rejects keys that do not map to a fixture field. Enabled by default.
func WithStrict(enabled bool) ParserOption {
	return func(p *YamlFixtureParser) {
		p.strict = enabled
	}
}

// NewYamlFixtureParser creates a new YamlFixtureParser.
func NewYamlFixtureParser(opts ...ParserOption) ports.FixtureParser {
	p := &YamlFixtureParser{strict: true}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse unmarshals YAML bytes into a HostFixture and checks required fields.
func (p *YamlFixtureParser) Parse(data []byte) (*entities.HostFixture, error) {
	var fixture entities.HostFixture

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(p.strict)
	if err := dec.Decode(&fixture); err != nil {
		if stdErrors.Is(err, io.EOF) {
			return nil, fmt.Errorf("fixture is empty")
		}
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}

	if err := validate.Struct(&fixture); err != nil {
		var verrs validator.ValidationErrors
		if stdErrors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return nil, fmt.Errorf("invalid fixture: %s failed on '%s' rule", fe.Namespace(), fe.Tag())
		}
		return nil, fmt.Errorf("invalid fixture: %w", err)
	}
	return &fixture, nil
}

// Compile-time interface check
var _ ports.FixtureParser = (*YamlFixtureParser)(nil)

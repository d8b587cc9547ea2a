package parser

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/ocwasm/ocsafe/domain/entities"
)

// Schema returns the JSON schema of a host fixture document.
func Schema() ([]byte, error) {
	r := &jsonschema.Reflector{
		DoNotReference: true,
	}
	s := r.Reflect(&entities.HostFixture{})
	s.Title = "Host fixture"
	s.Description = "Components, canned method results and queued signals of a scripted host"

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal fixture schema: %w", err)
	}
	return data, nil
}

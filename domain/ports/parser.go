package ports

import "github.com/ocwasm/ocsafe/domain/entities"

// FixtureParser parses raw YAML bytes into a HostFixture.
type FixtureParser interface {
	// Parse unmarshals YAML bytes into a HostFixture struct.
	Parse(data []byte) (*entities.HostFixture, error)
}

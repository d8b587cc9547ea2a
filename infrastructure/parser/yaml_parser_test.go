package parser

import (
	"encoding/json"
	"testing"

	"github.com/ocwasm/ocsafe/domain/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureYAML = `
components:
  - address: eeprom-0
    type: eeprom
    methods:
      - name: getLabel
        doc: "function():string -- Get the label of the EEPROM."
        returns: ["EEPROM"]
        direct: true
      - name: set
        status: 7
  - address: modem-0
    type: modem
    slot: 2
signals:
  - name: modem_message
    params: ["modem-0", 42, {port: 1}]
`

func TestYamlFixtureParser_Parse(t *testing.T) {
	fix, err := NewYamlFixtureParser().Parse([]byte(fixtureYAML))
	require.NoError(t, err)

	require.Len(t, fix.Components, 2)
	eeprom := fix.Components[0]
	assert.Equal(t, "eeprom-0", eeprom.Address)
	assert.Equal(t, "eeprom", eeprom.Type)
	require.Len(t, eeprom.Methods, 2)
	assert.Equal(t, "getLabel", eeprom.Methods[0].Name)
	assert.Equal(t, []any{"EEPROM"}, eeprom.Methods[0].Returns)
	assert.Equal(t, uint32(7), eeprom.Methods[1].Status)
	assert.Equal(t, entities.AttrDirect, eeprom.Methods[0].Attributes())
	assert.Nil(t, eeprom.Slot)
	assert.Empty(t, fix.Components[1].Methods)
	require.NotNil(t, fix.Components[1].Slot)
	assert.Equal(t, 2, *fix.Components[1].Slot)

	require.Len(t, fix.Signals, 1)
	assert.Equal(t, "modem_message", fix.Signals[0].Name)
	require.Len(t, fix.Signals[0].Params, 3)
	assert.Equal(t, 42, fix.Signals[0].Params[1])
	assert.Equal(t, map[string]any{"port": 1}, fix.Signals[0].Params[2])
}

func TestYamlFixtureParser_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"empty", "", "fixture is empty"},
		{"syntax", "components: [", "failed to parse fixture"},
		{"no components", "components: []", "HostFixture.Components"},
		{"missing address", "components:\n  - type: gpu", "Components[0].Address"},
		{"missing method name", "components:\n  - address: gpu-0\n    type: gpu\n    methods:\n      - doc: x", "Name"},
		{"missing signal name", "components:\n  - address: gpu-0\n    type: gpu\nsignals:\n  - params: [1]", "Name"},
		{"unknown key", "components:\n  - address: gpu-0\n    type: gpu\n    colour: red", "colour"},
	}

	p := NewYamlFixtureParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestYamlFixtureParser_Lenient(t *testing.T) {
	fix, err := NewYamlFixtureParser(WithStrict(false)).Parse(
		[]byte("components:\n  - address: gpu-0\n    type: gpu\n    colour: red"))
	require.NoError(t, err)
	assert.Equal(t, "gpu-0", fix.Components[0].Address)
}

func TestSchema(t *testing.T) {
	data, err := Schema()
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "Host fixture", doc["title"])

	props, ok := doc["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "components")
	assert.Contains(t, props, "signals")
}

package wireformat

import (
	"math"
	"testing"

	"github.com/ocwasm/ocsafe/domain/entities"
	"github.com/ocwasm/ocsafe/domain/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleValues() map[string]entities.Value {
	return map[string]entities.Value{
		"null":        entities.Null{},
		"true":        entities.Bool(true),
		"false":       entities.Bool(false),
		"int":         entities.Int(-42),
		"int min":     entities.Int(math.MinInt64),
		"float":       entities.Float(3.25),
		"float nan":   entities.Float(math.NaN()),
		"float -inf":  entities.Float(math.Inf(-1)),
		"string":      entities.String("héllo"),
		"empty str":   entities.String(""),
		"bytes":       entities.Bytes{0x00, 0xFF, 0x10},
		"empty bytes": entities.Bytes{},
		"descriptor":  entities.DescriptorRef(7),
		"array": entities.Array{
			entities.Int(1), entities.String("two"), entities.Null{},
		},
		"nested": entities.Array{
			entities.Array{entities.Bool(true)},
			entities.Table{{Key: entities.String("k"), Value: entities.Bytes("v")}},
		},
		"table": entities.Table{
			{Key: entities.String("address"), Value: entities.String("gpu-1")},
			{Key: entities.Int(3), Value: entities.DescriptorRef(9)},
		},
	}
}

func TestRoundTrip_AllShapes(t *testing.T) {
	for name, v := range sampleValues() {
		t.Run(name, func(t *testing.T) {
			b, err := Encode(v)
			require.NoError(t, err)

			size, err := NewCodec().Size(v)
			require.NoError(t, err)
			assert.Len(t, b, size)

			got, err := Decode(b)
			require.NoError(t, err)
			assert.True(t, entities.Equal(v, got), "decoded %#v, want %#v", got, v)

			again, err := Encode(got)
			require.NoError(t, err)
			assert.Equal(t, b, again, "re-encoding must reproduce the bytes")
		})
	}
}

func TestRoundTrip_TableOfTwoInts(t *testing.T) {
	v := entities.Table{
		{Key: entities.String("x"), Value: entities.Int(10)},
		{Key: entities.String("y"), Value: entities.Int(-20)},
	}

	b, err := Encode(v)
	require.NoError(t, err)
	got, err := Decode(b)
	require.NoError(t, err)

	assert.True(t, entities.Equal(v, got))
	tbl := got.(entities.Table)
	y, ok := tbl.Field("y")
	require.True(t, ok)
	assert.Equal(t, entities.Int(-20), y)
}

func TestEncode_Layout(t *testing.T) {
	tests := []struct {
		name string
		v    entities.Value
		want []byte
	}{
		{"null", entities.Null{}, []byte{0x00}},
		{"bool", entities.Bool(true), []byte{0x01, 0x01}},
		{"int", entities.Int(1), []byte{0x02, 1, 0, 0, 0, 0, 0, 0, 0}},
		{"int negative", entities.Int(-1), []byte{0x02, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}},
		{"float", entities.Float(1), []byte{0x03, 0, 0, 0, 0, 0, 0, 0xF0, 0x3F}},
		{"string", entities.String("ab"), []byte{0x04, 2, 0, 0, 0, 'a', 'b'}},
		{"bytes", entities.Bytes{9}, []byte{0x05, 1, 0, 0, 0, 9}},
		{"array", entities.Array{entities.Null{}}, []byte{0x06, 1, 0, 0, 0, 0x00}},
		{"table", entities.Table{{Key: entities.Null{}, Value: entities.Bool(false)}}, []byte{0x07, 1, 0, 0, 0, 0x00, 0x01, 0x00}},
		{"descriptor", entities.DescriptorRef(0x0102), []byte{0x08, 0x02, 0x01, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.v)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncode_Errors(t *testing.T) {
	cyclic := entities.Array{nil}
	cyclic[0] = cyclic

	tests := []struct {
		name string
		v    entities.Value
	}{
		{"nil value", nil},
		{"nil element", entities.Array{nil}},
		{"invalid utf8", entities.String([]byte{0xff, 0xfe})},
		{"cyclic", cyclic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := []byte{0xAA}
			out, err := NewCodec().Append(dst, tt.v)
			assert.ErrorIs(t, err, errors.ErrBadArgument)
			assert.Equal(t, []byte{0xAA}, out)
		})
	}
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name string
		b    []byte
	}{
		{"empty", nil},
		{"unknown tag", []byte{0x09}},
		{"bool out of range", []byte{0x01, 0x02}},
		{"short int", []byte{0x02, 1, 2, 3}},
		{"short string", []byte{0x04, 5, 0, 0, 0, 'a'}},
		{"invalid utf8", []byte{0x04, 1, 0, 0, 0, 0xff}},
		{"hostile array count", []byte{0x06, 0xFF, 0xFF, 0xFF, 0xFF}},
		{"hostile table count", []byte{0x07, 2, 0, 0, 0, 0x00, 0x00}},
		{"trailing bytes", []byte{0x00, 0x00}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.b)
			assert.ErrorIs(t, err, errors.ErrProtocolViolation)
		})
	}
}

func TestDecode_DepthLimit(t *testing.T) {
	var v entities.Value = entities.Null{}
	for i := 0; i < 4; i++ {
		v = entities.Array{v}
	}
	b, err := Encode(v)
	require.NoError(t, err)

	shallow := NewCodec(WithMaxDepth(3))
	_, err = shallow.DecodeAll(b)
	assert.ErrorIs(t, err, errors.ErrProtocolViolation)

	_, err = shallow.Size(v)
	assert.ErrorIs(t, err, errors.ErrBadArgument)

	got, err := NewCodec(WithMaxDepth(4)).DecodeAll(b)
	require.NoError(t, err)
	assert.True(t, entities.Equal(v, got))
}

func TestDecodeValue_ReportsConsumed(t *testing.T) {
	b, err := NewCodec().AppendAll(nil, entities.Int(5), entities.String("x"))
	require.NoError(t, err)

	v, n, err := NewCodec().DecodeValue(b)
	require.NoError(t, err)
	assert.Equal(t, entities.Int(5), v)
	assert.Equal(t, 9, n)

	seq, err := NewCodec().DecodeSeq(b)
	require.NoError(t, err)
	assert.Len(t, seq, 2)
}

func TestEqual(t *testing.T) {
	a := entities.Table{
		{Key: entities.String("a"), Value: entities.Int(1)},
		{Key: entities.String("b"), Value: entities.Int(2)},
	}
	b := entities.Table{
		{Key: entities.String("b"), Value: entities.Int(2)},
		{Key: entities.String("a"), Value: entities.Int(1)},
	}
	assert.True(t, entities.Equal(a, b), "table order must not matter")
	assert.False(t, entities.Equal(a, b[:1]))
	assert.False(t, entities.Equal(entities.Int(1), entities.Float(1)))
	assert.True(t, entities.Equal(entities.Bytes(nil), entities.Bytes{}))
	assert.False(t, entities.Equal(entities.Array{entities.Int(1)}, entities.Array{entities.Int(2)}))
	assert.True(t, entities.Equal(nil, nil))
	assert.False(t, entities.Equal(nil, entities.Null{}))
}

package ref

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want Key
	}{
		{"nil", nil, ""},
		{"trimmed string", "  intro  ", "intro"},
		{"leading zeros", "007", "7"},
		{"zero fraction", "42.0", "42"},
		{"negative", "-003", "-3"},
		{"non integral stays", "1.5", "1.5"},
		{"object id lowered", "65A1B2C3D4E5F60718293A4B", "65a1b2c3d4e5f60718293a4b"},
		{"uuid canonical", "6F1C2D3E-0000-4000-8000-000000000001", "6f1c2d3e-0000-4000-8000-000000000001"},
		{"int", 42, "42"},
		{"float integral", 42.0, "42"},
		{"float fraction", 2.5, "2.5"},
		{"json number", json.Number("0012"), "12"},
		{"embedded _id", map[string]any{"_id": "007"}, "7"},
		{"embedded oid", map[string]any{"_id": map[string]any{"$oid": "65A1B2C3D4E5F60718293A4B"}}, "65a1b2c3d4e5f60718293a4b"},
		{"embedded id", map[string]any{"id": 3, "title": "x"}, "3"},
		{"object without id", map[string]any{"title": "x"}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Normalize(tc.in))
		})
	}
}

func TestKeyJSONAcceptsHeterogeneousInputs(t *testing.T) {
	var body struct {
		A Key `json:"a"`
		B Key `json:"b"`
		C Key `json:"c"`
		D Key `json:"d"`
	}
	raw := `{"a":"007","b":7,"c":{"_id":"7"},"d":null}`
	require.NoError(t, json.Unmarshal([]byte(raw), &body))
	assert.Equal(t, Key("7"), body.A)
	assert.Equal(t, body.A, body.B)
	assert.Equal(t, body.A, body.C)
	assert.True(t, body.D.IsZero())

	out, err := json.Marshal(body.B)
	require.NoError(t, err)
	assert.Equal(t, `"7"`, string(out))
}

func TestKeyJSONRejectsBooleans(t *testing.T) {
	var k Key
	assert.Error(t, json.Unmarshal([]byte(`true`), &k))
}

func TestSetAndContains(t *testing.T) {
	got := Set("1", "01", " 2 ", "", "1.0", "3")
	assert.Equal(t, []Key{"1", "2", "3"}, got)
	assert.True(t, Contains(got, "002"))
	assert.False(t, Contains(got, "4"))
}

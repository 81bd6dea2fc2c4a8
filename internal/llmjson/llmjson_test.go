package llmjson

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClean(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"prose around", `Вот ответ: {"a":1} Надеюсь, помог.`, `{"a":1}`},
		{"no object", "not json", "not json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Clean(tt.in))
		})
	}
}

func TestFlexString(t *testing.T) {
	t.Parallel()

	var v struct {
		A FlexString `json:"a"`
		B FlexString `json:"b"`
		C FlexString `json:"c"`
		D FlexString `json:"d"`
		E FlexString `json:"e"`
	}
	err := json.Unmarshal([]byte(`{"a":"  ИТ ","b":50000,"c":null,"d":["CRM","BI"],"e":"unknown"}`), &v)

	require.NoError(t, err)
	assert.Equal(t, FlexString("ИТ"), v.A)
	assert.Equal(t, FlexString("50000"), v.B)
	assert.Empty(t, v.C)
	assert.Equal(t, FlexString("CRM, BI"), v.D)
	assert.Empty(t, v.E)
}

func TestFlexList(t *testing.T) {
	t.Parallel()

	var v struct {
		A FlexList `json:"a"`
		B FlexList `json:"b"`
		C FlexList `json:"c"`
	}
	err := json.Unmarshal([]byte(`{"a":["CRM", "", 42],"b":"ЭДО; BI, CRM","c":null}`), &v)

	require.NoError(t, err)
	assert.Equal(t, FlexList{"CRM", "42"}, v.A)
	assert.Equal(t, FlexList{"ЭДО", "BI", "CRM"}, v.B)
	assert.Nil(t, v.C)
}

const testSchema = `{
	"type": "object",
	"required": ["name"],
	"properties": {"name": {"type": "string", "minLength": 1}}
}`

func TestDecode(t *testing.T) {
	t.Parallel()

	schema := MustCompile(testSchema)

	var ok struct {
		Name string `json:"name"`
	}
	require.NoError(t, Decode("```json\n{\"name\":\"Сбер\"}\n```", schema, &ok))
	assert.Equal(t, "Сбер", ok.Name)

	var bad struct{}
	err := Decode(`{"name": ""}`, schema, &bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema violations")

	err = Decode("Извините, не могу помочь", schema, &bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no JSON object")
}

func TestMustCompile_Panics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { MustCompile(`{"type": 12}`) })
}

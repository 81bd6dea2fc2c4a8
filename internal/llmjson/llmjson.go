// Package llmjson turns free-form model output into validated JSON.
package llmjson

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/xeipuuv/gojsonschema"
)

// Clean extracts a JSON object from text that may be wrapped in markdown
// code fences or surrounded by prose.
func Clean(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}

// Schema is a compiled JSON Schema.
type Schema struct {
	schema *gojsonschema.Schema
}

// MustCompile compiles a JSON Schema document and panics if it is invalid.
func MustCompile(doc string) *Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(doc))
	if err != nil {
		panic("llmjson: compile schema: " + err.Error())
	}
	return &Schema{schema: s}
}

// Validate checks doc against the schema and reports every violation.
func (s *Schema) Validate(doc []byte) error {
	result, err := s.schema.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return eris.Wrap(err, "llmjson: validate")
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return eris.Errorf("llmjson: schema violations: %s", strings.Join(msgs, "; "))
}

// Decode cleans text, validates it against schema (when non-nil) and
// unmarshals it into v.
func Decode(text string, schema *Schema, v any) error {
	cleaned := Clean(text)
	if cleaned == "" || cleaned[0] != '{' {
		return eris.New("llmjson: no JSON object in output")
	}
	if schema != nil {
		if err := schema.Validate([]byte(cleaned)); err != nil {
			return err
		}
	}
	if err := json.Unmarshal([]byte(cleaned), v); err != nil {
		return eris.Wrap(err, "llmjson: unmarshal")
	}
	return nil
}

// FlexString accepts a JSON string, number, boolean or list of those.
// Null and the literal strings "null", "unknown" and "n/a" decode to "".
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(normalize(s))
	case '[':
		var items FlexList
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*f = FlexString(strings.Join(items, ", "))
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err == nil {
			*f = FlexString(n.String())
			return nil
		}
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return eris.Errorf("llmjson: unsupported value %s", string(data))
		}
		*f = FlexString(strconv.FormatBool(b))
	}
	return nil
}

// FlexList accepts a JSON list of scalars or a delimited string.
type FlexList []string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = nil
		return nil
	}
	if data[0] == '[' {
		var raw []FlexString
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		out := make(FlexList, 0, len(raw))
		for _, r := range raw {
			if s := strings.TrimSpace(string(r)); s != "" {
				out = append(out, s)
			}
		}
		*f = out
		return nil
	}
	var s FlexString
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	var out FlexList
	for _, p := range strings.FieldsFunc(string(s), func(r rune) bool { return r == ',' || r == ';' }) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	*f = out
	return nil
}

func normalize(s string) string {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "null", "none", "unknown", "n/a", "нет данных", "неизвестно":
		return ""
	}
	return s
}

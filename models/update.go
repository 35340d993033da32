package models

import (
	"bytes"
	"encoding/json"
)

// MaterialUpdate carries only the fields present in an update request.
// A key that is absent is left untouched; a key present with a nil value
// clears the stored field.
type MaterialUpdate struct {
	fields map[string]interface{}
}

type updateField struct {
	name     string
	nullable bool
	decode   func(raw json.RawMessage) (interface{}, *FieldError)
}

var updateFields = []updateField{
	{name: "titulo", decode: stringRule("titulo", "min=3,max=200")},
	{name: "descripcion", nullable: true, decode: stringRule("descripcion", "max=1000")},
	{name: "tipo", decode: stringRule("tipo", "oneof=video documento quiz tarea")},
	{name: "recurso", decode: stringRule("recurso", "min=1")},
	{name: "autor", nullable: true, decode: stringRule("autor", "")},
	{name: "tags", nullable: true, decode: decodeTags},
	{name: "publicado", decode: decodeBool("publicado")},
	{name: "acceso", decode: stringRule("acceso", "oneof=publico inscritos")},
}

// NewMaterialUpdate builds an update from already validated values. It is
// meant for callers inside the service; request bodies go through
// ParseMaterialUpdate.
func NewMaterialUpdate(fields map[string]interface{}) MaterialUpdate {
	u := MaterialUpdate{fields: make(map[string]interface{}, len(fields))}
	for k, v := range fields {
		u.fields[k] = v
	}
	return u
}

// ParseMaterialUpdate decodes a JSON object, keeping only the known fields
// that are present. cursoId and unknown keys are ignored.
func ParseMaterialUpdate(data []byte) (MaterialUpdate, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return MaterialUpdate{}, DecodeError(err)
	}
	if raw == nil {
		return MaterialUpdate{}, ValidationErrors{{Field: "body", Message: "must be a JSON object"}}
	}

	u := MaterialUpdate{fields: map[string]interface{}{}}
	var errs ValidationErrors
	for _, f := range updateFields {
		value, ok := raw[f.name]
		if !ok {
			continue
		}
		if isNull(value) {
			if !f.nullable {
				errs = append(errs, FieldError{Field: f.name, Message: "may not be null"})
				continue
			}
			if f.name == "tags" {
				u.fields[f.name] = []string{}
			} else {
				u.fields[f.name] = nil
			}
			continue
		}
		decoded, fe := f.decode(value)
		if fe != nil {
			errs = append(errs, *fe)
			continue
		}
		u.fields[f.name] = decoded
	}
	if len(errs) > 0 {
		return MaterialUpdate{}, errs
	}
	return u, nil
}

func (u MaterialUpdate) IsEmpty() bool {
	return len(u.fields) == 0
}

func (u MaterialUpdate) Has(field string) bool {
	_, ok := u.fields[field]
	return ok
}

// Fields returns a copy of the supplied fields keyed by stored field name.
func (u MaterialUpdate) Fields() map[string]interface{} {
	out := make(map[string]interface{}, len(u.fields))
	for k, v := range u.fields {
		out[k] = v
	}
	return out
}

// Apply writes the supplied fields onto m.
func (u MaterialUpdate) Apply(m *Material) {
	for k, v := range u.fields {
		switch k {
		case "titulo":
			m.Titulo = v.(string)
		case "descripcion":
			m.Descripcion = optionalString(v)
		case "tipo":
			m.Tipo = v.(string)
		case "recurso":
			m.Recurso = v.(string)
		case "autor":
			m.Autor = optionalString(v)
		case "tags":
			m.Tags = v.([]string)
		case "publicado":
			m.Publicado = v.(bool)
		case "acceso":
			m.Acceso = v.(string)
		}
	}
}

func optionalString(v interface{}) *string {
	if v == nil {
		return nil
	}
	s := v.(string)
	return &s
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func stringRule(field, rules string) func(json.RawMessage) (interface{}, *FieldError) {
	return func(raw json.RawMessage) (interface{}, *FieldError) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, &FieldError{Field: field, Message: "must be of type string"}
		}
		if rules != "" {
			if fe := validateValue(field, s, rules); fe != nil {
				return nil, fe
			}
		}
		return s, nil
	}
}

func decodeBool(field string) func(json.RawMessage) (interface{}, *FieldError) {
	return func(raw json.RawMessage) (interface{}, *FieldError) {
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, &FieldError{Field: field, Message: "must be of type boolean"}
		}
		return b, nil
	}
}

func decodeTags(raw json.RawMessage) (interface{}, *FieldError) {
	var tags []string
	if err := json.Unmarshal(raw, &tags); err != nil {
		return nil, &FieldError{Field: "tags", Message: "must be an array of strings"}
	}
	return tags, nil
}

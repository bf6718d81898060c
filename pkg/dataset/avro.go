package dataset

import (
	"io"

	"github.com/linkedin/goavro/v2"

	"github.com/ajitpratap0/ntuple/pkg/errors"
	"github.com/ajitpratap0/ntuple/pkg/json"
)

// avroColumn accumulates decoded datum values for one record field
type avroColumn interface {
	append(v interface{}) error
	addTo(m *Memory, name string) error
}

type avroScalar[T any] struct{ values []T }

func (c *avroScalar[T]) append(v interface{}) error {
	var x T
	if v != nil {
		var ok bool
		if x, ok = v.(T); !ok {
			return errors.Newf(errors.ErrorTypeData, "unexpected avro value %T", v)
		}
	}
	c.values = append(c.values, x)
	return nil
}

func (c *avroScalar[T]) addTo(m *Memory, name string) error {
	return AddScalar(m, name, c.values)
}

type avroArray[E any] struct{ values [][]E }

func (c *avroArray[E]) append(v interface{}) error {
	var out []E
	if v != nil {
		items, ok := v.([]interface{})
		if !ok {
			return errors.Newf(errors.ErrorTypeData, "unexpected avro array %T", v)
		}
		out = make([]E, 0, len(items))
		for _, item := range items {
			x, ok := item.(E)
			if !ok {
				return errors.Newf(errors.ErrorTypeData, "unexpected avro array item %T", item)
			}
			out = append(out, x)
		}
	}
	c.values = append(c.values, out)
	return nil
}

func (c *avroArray[E]) addTo(m *Memory, name string) error {
	return AddVector(m, name, c.values)
}

type avroMap[V any] struct{ values []map[string]V }

func (c *avroMap[V]) append(v interface{}) error {
	out := make(map[string]V)
	if v != nil {
		items, ok := v.(map[string]interface{})
		if !ok {
			return errors.Newf(errors.ErrorTypeData, "unexpected avro map %T", v)
		}
		for k, item := range items {
			x, ok := item.(V)
			if !ok {
				return errors.Newf(errors.ErrorTypeData, "unexpected avro map value %T", item)
			}
			out[k] = x
		}
	}
	c.values = append(c.values, out)
	return nil
}

func (c *avroMap[V]) addTo(m *Memory, name string) error {
	return AddMap(m, name, c.values)
}

func newAvroScalar(primitive string) avroColumn {
	switch primitive {
	case "boolean":
		return &avroScalar[bool]{}
	case "int":
		return &avroScalar[int32]{}
	case "long":
		return &avroScalar[int64]{}
	case "float":
		return &avroScalar[float32]{}
	case "double":
		return &avroScalar[float64]{}
	case "string":
		return &avroScalar[string]{}
	}
	return nil
}

func newAvroArray(primitive string) avroColumn {
	switch primitive {
	case "boolean":
		return &avroArray[bool]{}
	case "int":
		return &avroArray[int32]{}
	case "long":
		return &avroArray[int64]{}
	case "float":
		return &avroArray[float32]{}
	case "double":
		return &avroArray[float64]{}
	case "string":
		return &avroArray[string]{}
	}
	return nil
}

func newAvroMap(primitive string) avroColumn {
	switch primitive {
	case "int":
		return &avroMap[int32]{}
	case "long":
		return &avroMap[int64]{}
	case "float":
		return &avroMap[float32]{}
	case "double":
		return &avroMap[float64]{}
	case "string":
		return &avroMap[string]{}
	}
	return nil
}

type avroSchema struct {
	Type   string `json:"type"`
	Fields []struct {
		Name string          `json:"name"`
		Type json.RawMessage `json:"type"`
	} `json:"fields"`
}

type avroComplex struct {
	Type   string          `json:"type"`
	Items  json.RawMessage `json:"items"`
	Values json.RawMessage `json:"values"`
}

// avroField describes how one record field maps onto a branch
type avroField struct {
	name     string
	nullable bool
	column   avroColumn
}

// primitiveName decodes a schema that must be a primitive type name
func primitiveName(raw json.RawMessage) string {
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		return name
	}
	var c avroComplex
	if err := json.Unmarshal(raw, &c); err == nil && c.Items == nil && c.Values == nil {
		return c.Type
	}
	return ""
}

// parseFieldType maps a field schema to a column builder. Unions of null and
// one other type are treated as that type.
func parseFieldType(raw json.RawMessage) (avroColumn, bool) {
	var union []json.RawMessage
	if err := json.Unmarshal(raw, &union); err == nil {
		var inner []json.RawMessage
		for _, branch := range union {
			if primitiveName(branch) != "null" {
				inner = append(inner, branch)
			}
		}
		if len(inner) != 1 || len(union) != 2 {
			return nil, false
		}
		col, _ := parseFieldType(inner[0])
		return col, true
	}

	if name := primitiveName(raw); name != "" {
		return newAvroScalar(name), false
	}

	var c avroComplex
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, false
	}
	switch c.Type {
	case "array":
		return newAvroArray(primitiveName(c.Items)), false
	case "map":
		return newAvroMap(primitiveName(c.Values)), false
	}
	return nil, false
}

// unwrapUnion returns the single value of a decoded union datum
func unwrapUnion(v interface{}) interface{} {
	m, ok := v.(map[string]interface{})
	if !ok || len(m) != 1 {
		return v
	}
	for _, inner := range m {
		return inner
	}
	return nil
}

// ReadAvro decodes an Avro object container file into an in-memory dataset.
// Fields whose schema has no column mapping are skipped.
func ReadAvro(r io.Reader, name string) (*Memory, error) {
	ocf, err := goavro.NewOCFReader(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create Avro reader")
	}

	var schema avroSchema
	if err := json.Unmarshal([]byte(ocf.Codec().Schema()), &schema); err != nil || schema.Type != "record" {
		return nil, errors.Newf(errors.ErrorTypeCapability, "Avro schema of %s is not a record", name).
			WithDetail("schema", ocf.Codec().Schema())
	}

	fields := make([]avroField, 0, len(schema.Fields))
	for _, f := range schema.Fields {
		col, nullable := parseFieldType(f.Type)
		if col == nil {
			continue
		}
		fields = append(fields, avroField{name: f.Name, nullable: nullable, column: col})
	}

	for ocf.Scan() {
		datum, err := ocf.Read()
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to read Avro datum")
		}
		record, ok := datum.(map[string]interface{})
		if !ok {
			return nil, errors.Newf(errors.ErrorTypeData, "unexpected Avro datum %T", datum)
		}
		for _, f := range fields {
			v := record[f.name]
			if f.nullable {
				v = unwrapUnion(v)
			}
			if err := f.column.append(v); err != nil {
				return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to decode Avro field").
					WithDetail("branch", f.name)
			}
		}
	}
	if err := ocf.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to scan Avro file")
	}

	m := NewMemory(name)
	for _, f := range fields {
		if err := f.column.addTo(m, f.name); err != nil {
			return nil, err
		}
	}
	return m, nil
}

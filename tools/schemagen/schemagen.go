// Package main generates JSON schemas for the documents codeatlas emits:
// session responses and the JSON output of the snapshot, hotspots and
// timeline commands.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/Sumatoshi-tech/codeatlas/pkg/hotspot"
	"github.com/Sumatoshi-tech/codeatlas/pkg/session"
	"github.com/Sumatoshi-tech/codeatlas/pkg/snapshot"
	"github.com/Sumatoshi-tech/codeatlas/pkg/timeline"
)

const draft07 = "http://json-schema.org/draft-07/schema#"

// Schema is the subset of JSON Schema the generator writes.
type Schema struct {
	Schema               string             `json:"$schema,omitempty"`
	Title                string             `json:"title,omitempty"`
	Description          string             `json:"description,omitempty"`
	Type                 string             `json:"type,omitempty"`
	Format               string             `json:"format,omitempty"`
	Properties           map[string]*Schema `json:"properties,omitempty"`
	AdditionalProperties *Schema            `json:"additionalProperties,omitempty"`
	Items                *Schema            `json:"items,omitempty"`
	Required             []string           `json:"required,omitempty"`
	Ref                  string             `json:"$ref,omitempty"`
	Definitions          map[string]*Schema `json:"definitions,omitempty"`
}

// document names one generated schema and the Go value it describes.
type document struct {
	name  string
	title string
	value any
}

func documents() []document {
	return []document{
		{name: "response", title: "Session response", value: session.Response{}},
		{name: "snapshot", title: "Snapshot", value: snapshot.Snapshot{}},
		{name: "hotspots", title: "Hotspot ranking", value: []hotspot.Entry{}},
		{name: "timeline", title: "Commit timeline", value: []timeline.Entry{}},
	}
}

func main() {
	outputDir := flag.String("o", "docs/schemas", "Output directory for schemas")
	flag.Parse()

	err := run(*outputDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(outputDir string) error {
	err := os.MkdirAll(outputDir, 0o755)
	if err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	for _, doc := range documents() {
		err = writeSchema(outputDir, doc.name, generateSchema(doc.title, doc.value))
		if err != nil {
			return fmt.Errorf("write schema for %s: %w", doc.name, err)
		}

		fmt.Printf("Generated schema for %s\n", doc.name)
	}

	return nil
}

func generateSchema(title string, v any) *Schema {
	defs := make(map[string]*Schema)

	schema := typeToSchema(reflect.TypeOf(v), defs)
	schema.Schema = draft07
	schema.Title = title
	schema.Description = "JSON schema for codeatlas " + strings.ToLower(title) + " output"

	if len(defs) > 0 {
		schema.Definitions = defs
	}

	return schema
}

func structToProperties(t reflect.Type, defs map[string]*Schema, props map[string]*Schema, required []string) []string {
	for i := range t.NumField() {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		jsonTag, tagged := field.Tag.Lookup("json")
		if jsonTag == "-" {
			continue
		}

		if field.Anonymous && !tagged {
			embedded := field.Type
			if embedded.Kind() == reflect.Ptr {
				embedded = embedded.Elem()
			}

			required = structToProperties(embedded, defs, props, required)

			continue
		}

		parts := strings.Split(jsonTag, ",")

		jsonName := parts[0]
		if jsonName == "" {
			jsonName = field.Name
		}

		props[jsonName] = typeToSchema(field.Type, defs)

		if !strings.Contains(jsonTag, ",omitempty") {
			required = append(required, jsonName)
		}
	}

	return required
}

func objectSchema(t reflect.Type, defs map[string]*Schema) *Schema {
	props := make(map[string]*Schema)
	required := structToProperties(t, defs, props, nil)
	sort.Strings(required)

	return &Schema{Type: "object", Properties: props, Required: required}
}

func typeToSchema(t reflect.Type, defs map[string]*Schema) *Schema {
	switch t.Kind() {
	case reflect.String:
		return &Schema{Type: "string"}

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if t == reflect.TypeFor[time.Duration]() {
			return &Schema{Type: "integer", Description: "Duration in nanoseconds"}
		}

		return &Schema{Type: "integer"}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &Schema{Type: "integer"}

	case reflect.Float32, reflect.Float64:
		return &Schema{Type: "number"}

	case reflect.Bool:
		return &Schema{Type: "boolean"}

	case reflect.Slice, reflect.Array:
		return &Schema{Type: "array", Items: typeToSchema(t.Elem(), defs)}

	case reflect.Map:
		return &Schema{Type: "object", AdditionalProperties: typeToSchema(t.Elem(), defs)}

	case reflect.Struct:
		if t == reflect.TypeFor[time.Time]() {
			return &Schema{Type: "string", Format: "date-time"}
		}

		if t.Name() == "" {
			return objectSchema(t, defs)
		}

		name := t.Name()
		if _, exists := defs[name]; !exists {
			// Reserve the name first so recursive types terminate.
			defs[name] = &Schema{}
			*defs[name] = *objectSchema(t, defs)
		}

		return &Schema{Ref: "#/definitions/" + name}

	case reflect.Ptr:
		return typeToSchema(t.Elem(), defs)

	default:
		return &Schema{}
	}
}

func writeSchema(outputDir, name string, schema *Schema) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	path := filepath.Join(outputDir, name+".json")

	err = os.WriteFile(path, append(data, '\n'), 0o644)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	return nil
}

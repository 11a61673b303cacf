package flow

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	jschema "github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

// Format — формат файла определения.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath определяет формат по расширению файла.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

//go:embed schema.json
var schemaJSON string

const schemaURI = "urn:conduit:schema:pipeline"

var (
	schemaOnce     sync.Once
	schemaCompiled *jschema.Schema
	schemaErr      error
)

// compiledSchema компилирует встроенную схему один раз.
func compiledSchema() (*jschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := jschema.UnmarshalJSON(strings.NewReader(schemaJSON))
		if err != nil {
			schemaErr = fmt.Errorf("parse schema: %w", err)
			return
		}
		c := jschema.NewCompiler()
		if err := c.AddResource(schemaURI, doc); err != nil {
			schemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		schemaCompiled, schemaErr = c.Compile(schemaURI)
	})
	return schemaCompiled, schemaErr
}

// Schema возвращает JSON Schema определений.
func Schema() json.RawMessage {
	return json.RawMessage(schemaJSON)
}

// Parse разбирает определение из YAML или JSON и проверяет его по схеме.
//
// Семантические проверки (существование transformer'ов и skill)
// выполняет Validate.
func Parse(data []byte, format Format) (*Definition, error) {
	jsonData, err := toJSON(data, format)
	if err != nil {
		return nil, err
	}

	if err := validateSchema(jsonData); err != nil {
		return nil, err
	}

	var def Definition
	if err := json.Unmarshal(jsonData, &def); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if def.Mode == "" {
		def.Mode = ModeSequential
	}
	if len(def.Steps) == 0 {
		return nil, NewValidationError("", "steps", "pipeline has no steps", ErrEmptySteps)
	}

	return &def, nil
}

// LoadFile читает и разбирает файл определения.
func LoadFile(path string) (*Definition, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	def, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	def.Source = path
	return def, nil
}

// toJSON приводит документ к JSON. YAML проходит через yaml.v3.
func toJSON(data []byte, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		if !json.Valid(data) {
			return nil, fmt.Errorf("%w: malformed JSON", ErrInvalidDocument)
		}
		return data, nil

	case FormatYAML:
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
		out, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
		return out, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// validateSchema проверяет JSON документ по встроенной схеме.
func validateSchema(data []byte) error {
	sch, err := compiledSchema()
	if err != nil {
		return err
	}

	inst, err := jschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if err := sch.Validate(inst); err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}
	return nil
}

package validation

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/microsoft/sweep/internal/utils"
	"github.com/microsoft/sweep/schemas"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

// defaultPrinter is used to format schema validation error messages.
var defaultPrinter = message.NewPrinter(language.English)

// sweepSchema is the compiled JSON Schema for sweep YAML files.
var sweepSchema *jsonschema.Schema

// outcomeSchema is the compiled JSON Schema for outcome JSON files.
var outcomeSchema *jsonschema.Schema

func init() {
	sweepSchema = mustCompileSchema(schemas.SweepSchemaJSON, "sweep.schema.json")
	outcomeSchema = mustCompileSchema(schemas.OutcomeSchemaJSON, "outcome.schema.json")
}

func mustCompileSchema(raw string, name string) *jsonschema.Schema {
	var schemaDoc any
	if err := json.Unmarshal([]byte(raw), &schemaDoc); err != nil {
		panic(fmt.Sprintf("failed to parse embedded %s: %v", name, err))
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, schemaDoc); err != nil {
		panic(fmt.Sprintf("failed to add %s resource: %v", name, err))
	}

	sch, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("failed to compile %s: %v", name, err))
	}
	return sch
}

// ValidateSweepFile validates a sweep YAML file against the JSON schema.
// dataErrs reports data sources that cannot be found, resolved relative to
// the sweep file.
func ValidateSweepFile(sweepPath string) (sweepErrs []string, dataErrs []string, err error) {
	data, err := os.ReadFile(sweepPath)
	if err != nil {
		return nil, nil, fmt.Errorf("reading sweep file: %w", err)
	}

	sweepErrs = ValidateSweepBytes(data)

	// Parse into a minimal struct to locate the data source
	var spec struct {
		Data struct {
			Path   string `yaml:"path"`
			SQLite struct {
				Path string `yaml:"path"`
			} `yaml:"sqlite"`
		} `yaml:"data"`
	}
	if yamlErr := yaml.Unmarshal(data, &spec); yamlErr != nil {
		return sweepErrs, nil, nil // can't resolve the data source, but schema errors are still useful
	}

	baseDir := filepath.Dir(sweepPath)
	for _, p := range []string{spec.Data.Path, spec.Data.SQLite.Path} {
		if p == "" {
			continue
		}
		if _, statErr := os.Stat(utils.ResolvePath(p, baseDir)); statErr != nil {
			dataErrs = append(dataErrs, fmt.Sprintf("%s: data source not readable: %v", p, statErr))
		}
	}

	return sweepErrs, dataErrs, nil
}

// ValidateSweepBytes validates raw YAML bytes against the sweep schema.
func ValidateSweepBytes(data []byte) []string {
	return validateYAMLBytes(sweepSchema, data)
}

// ValidateOutcomeBytes validates raw JSON bytes against the outcome schema.
func ValidateOutcomeBytes(data []byte) []string {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return []string{fmt.Sprintf("JSON parse error: %v", err)}
	}
	return validateAgainstSchema(outcomeSchema, doc)
}

func validateYAMLBytes(schema *jsonschema.Schema, data []byte) []string {
	var yamlDoc any
	if err := yaml.Unmarshal(data, &yamlDoc); err != nil {
		return []string{fmt.Sprintf("YAML parse error: %v", err)}
	}

	return validateAgainstSchema(schema, convertToJSONCompatible(yamlDoc))
}

func validateAgainstSchema(schema *jsonschema.Schema, instance any) []string {
	err := schema.Validate(instance)
	if err == nil {
		return nil
	}
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []string{fmt.Sprintf("schema: %v", err)}
	}
	var errs []string
	collectSchemaErrors(ve, &errs)
	return errs
}

func collectSchemaErrors(ve *jsonschema.ValidationError, errs *[]string) {
	if len(ve.Causes) == 0 {
		loc := "/"
		if len(ve.InstanceLocation) > 0 {
			loc = "/" + strings.Join(ve.InstanceLocation, "/")
		}
		*errs = append(*errs, fmt.Sprintf("%s: %s", loc, ve.ErrorKind.LocalizedString(defaultPrinter)))
		return
	}
	for _, c := range ve.Causes {
		collectSchemaErrors(c, errs)
	}
}

// convertToJSONCompatible converts YAML-decoded values to JSON-compatible types.
// Mapping keys that are not strings (e.g. `1: x`) are rendered with fmt.
func convertToJSONCompatible(v any) any {
	switch val := v.(type) {
	case map[string]any:
		result := make(map[string]any, len(val))
		for k, v2 := range val {
			result[k] = convertToJSONCompatible(v2)
		}
		return result
	case map[any]any:
		result := make(map[string]any, len(val))
		for k, v2 := range val {
			result[fmt.Sprint(k)] = convertToJSONCompatible(v2)
		}
		return result
	case []any:
		result := make([]any, len(val))
		for i, v2 := range val {
			result[i] = convertToJSONCompatible(v2)
		}
		return result
	default:
		return val
	}
}

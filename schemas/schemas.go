// Package schemas embeds the JSON Schemas for sweep files and sweep outcomes.
package schemas

import _ "embed"

//go:embed sweep.schema.json
var SweepSchemaJSON string

//go:embed outcome.schema.json
var OutcomeSchemaJSON string

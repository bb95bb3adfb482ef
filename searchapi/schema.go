package searchapi

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Request schemas. Date fields are validated structurally here; calendar
// validity stays in the services so schema failures and date failures
// produce distinct messages.
const (
	flightSearchSchema = `{
		"type": "object",
		"required": ["origin", "destination", "departure_date"],
		"additionalProperties": false,
		"properties": {
			"origin": {"type": "string", "minLength": 1},
			"destination": {"type": "string", "minLength": 1},
			"departure_date": {"type": "string", "pattern": "^\\d{4}-\\d{2}-\\d{2}$"},
			"return_date": {"type": ["string", "null"], "pattern": "^\\d{4}-\\d{2}-\\d{2}$"}
		}
	}`

	hotelSearchSchema = `{
		"type": "object",
		"required": ["location", "check_in_date", "check_out_date"],
		"additionalProperties": false,
		"properties": {
			"location": {"type": "string", "minLength": 1},
			"check_in_date": {"type": "string", "pattern": "^\\d{4}-\\d{2}-\\d{2}$"},
			"check_out_date": {"type": "string", "pattern": "^\\d{4}-\\d{2}-\\d{2}$"}
		}
	}`
)

// compileSchema compiles an embedded schema document. Panics on failure:
// the schemas are compile-time constants and a typo should fail loudly at
// startup, not per request.
func compileSchema(doc string) *jsonschema.Schema {
	var schemaDoc any
	if err := json.Unmarshal([]byte(doc), &schemaDoc); err != nil {
		panic(fmt.Sprintf("searchapi: unmarshal schema: %v", err))
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("schema.json", schemaDoc); err != nil {
		panic(fmt.Sprintf("searchapi: add schema resource: %v", err))
	}
	schema, err := c.Compile("schema.json")
	if err != nil {
		panic(fmt.Sprintf("searchapi: compile schema: %v", err))
	}
	return schema
}

var (
	flightRequestSchema = compileSchema(flightSearchSchema)
	hotelRequestSchema  = compileSchema(hotelSearchSchema)
)

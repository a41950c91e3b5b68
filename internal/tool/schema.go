package tool

import "github.com/invopop/jsonschema"

// GenerateSchema reflects the JSON schema of an argument struct. Fields without
// omitempty are required; descriptions come from jsonschema_description tags.
func GenerateSchema[T any]() *jsonschema.Schema {
	r := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	s := r.Reflect(v)
	s.Version = ""
	s.ID = ""
	return s
}

// NoArgs is the argument type of tools without parameters.
type NoArgs struct{}

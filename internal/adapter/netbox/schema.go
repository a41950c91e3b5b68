package netbox

import (
	"context"
	"fmt"
	"sort"
)

const availableQueriesQuery = `query AvailableQueries {
  __schema {
    queryType {
      fields {
        name
        description
        args {
          name
          description
          type {
            name
            kind
            ofType {
              name
              kind
            }
          }
        }
      }
    }
  }
}`

// TypeRef is a (possibly wrapped) GraphQL type reference from introspection.
type TypeRef struct {
	Name   string   `json:"name"`
	Kind   string   `json:"kind"`
	OfType *TypeRef `json:"ofType,omitempty"`
}

// String renders the reference in SDL notation, e.g. "String!" or "[ID]".
func (t TypeRef) String() string {
	switch t.Kind {
	case "NON_NULL":
		if t.OfType != nil {
			return t.OfType.String() + "!"
		}
	case "LIST":
		if t.OfType != nil {
			return "[" + t.OfType.String() + "]"
		}
	}
	return t.Name
}

// QueryArg is one argument of a root query field.
type QueryArg struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Type        TypeRef `json:"type"`
}

// QueryField is one root query field exposed by the NetBox GraphQL schema.
type QueryField struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Args        []QueryArg `json:"args"`
}

// AvailableQueries lists the root query fields, sorted by name.
func (c *Client) AvailableQueries(ctx context.Context) ([]QueryField, error) {
	var resp struct {
		Schema struct {
			QueryType struct {
				Fields []QueryField `json:"fields"`
			} `json:"queryType"`
		} `json:"__schema"`
	}
	if err := c.Query(ctx, availableQueriesQuery, nil, &resp); err != nil {
		return nil, fmt.Errorf("available queries: %w", err)
	}
	fields := resp.Schema.QueryType.Fields
	sort.Slice(fields, func(i, j int) bool { return fields[i].Name < fields[j].Name })
	return fields, nil
}

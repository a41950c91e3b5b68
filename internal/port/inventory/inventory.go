// Package inventory defines the port to the network inventory GraphQL API.
package inventory

import "context"

// Querier executes a GraphQL query and decodes the "data" member into out.
// GraphQL-level errors are returned as errors.
type Querier interface {
	Query(ctx context.Context, query string, vars map[string]any, out any) error
}

package netbox

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Strob0t/NetBoxAssistant/internal/port/inventory"
	"github.com/Strob0t/NetBoxAssistant/internal/query"
	"github.com/Strob0t/NetBoxAssistant/internal/tool"
)

// advancedArgs only drives the advertised schema; Invoke decodes the raw
// structure itself to keep field order.
type advancedArgs struct {
	QueryStructure map[string]any `json:"query_structure" jsonschema_description:"Nested field selection. Keys are GraphQL fields, values are nested selections or {} for leaves. Put field arguments under '__args', e.g. {\"device\": {\"__args\": {\"id\": 241}, \"name\": {}, \"role\": {\"name\": {}}}}."`
}

type advancedQuery struct {
	q inventory.Querier
}

// AdvancedQuery compiles an arbitrary nested selection into a GraphQL query and runs it.
func AdvancedQuery(q inventory.Querier) tool.Tool {
	return &advancedQuery{q: q}
}

func (t *advancedQuery) Spec() tool.Spec {
	return tool.Spec{
		Name:        "netbox_advanced_query",
		Description: "Run a custom read-only NetBox GraphQL query built from a nested field selection. Use when no other tool covers the question.",
		Parameters:  tool.GenerateSchema[advancedArgs](),
	}
}

func (t *advancedQuery) Invoke(ctx context.Context, raw json.RawMessage) (tool.Result, error) {
	var args struct {
		QueryStructure json.RawMessage `json:"query_structure"`
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &args); err != nil {
			return tool.Result{}, &tool.ArgumentError{Tool: "netbox_advanced_query", Err: err}
		}
	}
	if len(args.QueryStructure) == 0 || string(args.QueryStructure) == "null" {
		return tool.Errorf("'query_structure' is a required parameter."), nil
	}

	sel, err := query.ParseSelection(args.QueryStructure)
	if err != nil {
		return tool.Errorf("%v", err), nil
	}
	built, err := query.Build(sel)
	if err != nil {
		return tool.Errorf("%v", err), nil
	}
	slog.Debug("advanced query built", "query", built.Text, "variables", len(built.Variables))

	var data json.RawMessage
	if err := t.q.Query(ctx, built.Text, built.Vars(), &data); err != nil {
		return tool.Result{}, fmt.Errorf("advanced query: %w", err)
	}
	return tool.Result{Data: data}, nil
}

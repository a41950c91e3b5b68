package netbox

import (
	"context"
	"encoding/json"

	"github.com/Strob0t/NetBoxAssistant/internal/port/inventory"
	"github.com/Strob0t/NetBoxAssistant/internal/tool"
)

type ipAddressArgs struct {
	IPAddressRegex string `json:"ipaddress_regex,omitempty" jsonschema_description:"Regular expression matched against the address, e.g. '^192\\.168\\.'."`
	DNSNameRegex   string `json:"dns_name_regex,omitempty" jsonschema_description:"Regular expression matched against the DNS name."`
	FilterLogic    string `json:"filter_logic,omitempty" jsonschema:"enum=and,enum=or,default=and" jsonschema_description:"How to combine the two filters when both are given."`
}

// IPAddresses looks up IP addresses by address and/or DNS name regex.
// With filter_logic "or" each filter is queried separately and the union is
// returned, de-duplicated by id with first-seen order kept.
func IPAddresses(q inventory.Querier) tool.Tool {
	return tool.New("netbox_ipaddresses",
		"Get IP addresses (status, tenant, VRF, NAT, DNS name, services) by address regex and/or DNS name regex.",
		func(ctx context.Context, a ipAddressArgs) (tool.Result, error) {
			if a.IPAddressRegex == "" && a.DNSNameRegex == "" {
				return tool.Errorf("At least one of 'ipaddress_regex' or 'dns_name_regex' must be non-empty."), nil
			}
			logic := trimLower(a.FilterLogic)
			if logic == "" {
				logic = "and"
			}
			if logic != "and" && logic != "or" {
				return tool.Errorf("Invalid filter_logic. Must be 'and' or 'or'."), nil
			}

			var found []json.RawMessage
			if logic == "and" {
				items, err := queryIPs(ctx, q, a.IPAddressRegex, a.DNSNameRegex)
				if err != nil {
					return tool.Result{}, err
				}
				found = items
			} else {
				var byIP, byDNS []json.RawMessage
				var err error
				if a.IPAddressRegex != "" {
					if byIP, err = queryIPs(ctx, q, a.IPAddressRegex, nil); err != nil {
						return tool.Result{}, err
					}
				}
				if a.DNSNameRegex != "" {
					if byDNS, err = queryIPs(ctx, q, nil, a.DNSNameRegex); err != nil {
						return tool.Result{}, err
					}
				}
				found = dedupeByID(append(byIP, byDNS...))
			}

			if len(found) == 0 {
				return tool.Errorf("No IP addresses found matching the provided criteria."), nil
			}
			return tool.Result{Data: map[string]any{"ip addresses": found}}, nil
		})
}

func queryIPs(ctx context.Context, q inventory.Querier, ipRegex, dnsRegex any) ([]json.RawMessage, error) {
	var resp struct {
		IPs []json.RawMessage `json:"ip_address_list"`
	}
	vars := map[string]any{"ipaddressRegex": ipRegex, "dnsNameRegex": dnsRegex}
	if err := q.Query(ctx, ipAddressesQuery, vars, &resp); err != nil {
		return nil, err
	}
	return resp.IPs, nil
}

// dedupeByID keeps the first record per id. Records without an id are kept as-is.
func dedupeByID(items []json.RawMessage) []json.RawMessage {
	seen := make(map[string]bool, len(items))
	out := make([]json.RawMessage, 0, len(items))
	for _, it := range items {
		var rec struct {
			ID json.RawMessage `json:"id"`
		}
		if err := json.Unmarshal(it, &rec); err != nil || len(rec.ID) == 0 {
			out = append(out, it)
			continue
		}
		key := string(rec.ID)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, it)
	}
	return out
}

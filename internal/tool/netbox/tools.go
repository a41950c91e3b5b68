// Package netbox implements the NetBox inventory lookups offered to the assistant.
package netbox

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Strob0t/NetBoxAssistant/internal/port/inventory"
	"github.com/Strob0t/NetBoxAssistant/internal/tool"
)

// Tools returns every NetBox lookup bound to q, in the order they are advertised.
func Tools(q inventory.Querier) []tool.Tool {
	return []tool.Tool{
		Sites(q),
		DeviceDetails(q),
		Prefixes(q),
		ChildPrefixes(q),
		IPAddresses(q),
		Interfaces(q),
		SearchRoles(q),
		AllRoles(q),
		AdvancedQuery(q),
	}
}

type siteArgs struct {
	SiteName string `json:"site_name" jsonschema_description:"Beginning of the site name; matched as the regex '<site_name>.*'."`
}

// Sites looks up sites whose name starts with site_name.
func Sites(q inventory.Querier) tool.Tool {
	return tool.New("netbox_sites",
		"Get details of NetBox sites (status, facility, address, locations, devices, contacts) by site name.",
		func(ctx context.Context, a siteArgs) (tool.Result, error) {
			if a.SiteName == "" {
				return tool.Errorf("'site_name' is a required parameter."), nil
			}
			var resp struct {
				Sites []json.RawMessage `json:"site_list"`
			}
			if err := q.Query(ctx, sitesQuery, map[string]any{"name": a.SiteName + ".*"}, &resp); err != nil {
				return tool.Result{}, err
			}
			if len(resp.Sites) == 0 {
				return tool.Errorf("No sites found matching the name: %s.", a.SiteName), nil
			}
			return tool.Result{Data: map[string]any{"sites": resp.Sites}}, nil
		})
}

type deviceArgs struct {
	DeviceNameContains string `json:"device_name_contains" jsonschema_description:"Substring of the device name."`
}

// DeviceDetails looks up devices whose name contains a substring.
func DeviceDetails(q inventory.Querier) tool.Tool {
	return tool.New("netbox_device_details",
		"Get device details (type, role, location, rack, primary IPs, interfaces, VLANs, cabling) for devices whose name contains a string.",
		func(ctx context.Context, a deviceArgs) (tool.Result, error) {
			if a.DeviceNameContains == "" {
				return tool.Errorf("'device_name_contains' is a required parameter."), nil
			}
			var resp struct {
				Devices []json.RawMessage `json:"device_list"`
			}
			if err := q.Query(ctx, deviceDetailsQuery, map[string]any{"nameContains": a.DeviceNameContains}, &resp); err != nil {
				return tool.Result{}, err
			}
			if len(resp.Devices) == 0 {
				return tool.Errorf("No device found matching contains: %s", a.DeviceNameContains), nil
			}
			return tool.Result{Data: map[string]any{"devices": resp.Devices}}, nil
		})
}

type prefixArgs struct {
	PrefixRegex string `json:"prefix_regex" jsonschema_description:"Regular expression matched against the prefix, e.g. '^10\\.1\\.'."`
}

// Prefixes looks up IP prefixes by regex.
func Prefixes(q inventory.Querier) tool.Tool {
	return tool.New("netbox_prefixes",
		"Get IP prefixes (status, role, VRF, site, VLAN, child count) whose prefix matches a regular expression.",
		func(ctx context.Context, a prefixArgs) (tool.Result, error) {
			if a.PrefixRegex == "" {
				return tool.Errorf("'prefix_regex' is a required parameter."), nil
			}
			var resp struct {
				Prefixes []json.RawMessage `json:"prefix_list"`
			}
			if err := q.Query(ctx, prefixesQuery, map[string]any{"prefixRegex": a.PrefixRegex}, &resp); err != nil {
				return tool.Result{}, err
			}
			if len(resp.Prefixes) == 0 {
				return tool.Errorf("No prefixes found matching regex: %s", a.PrefixRegex), nil
			}
			return tool.Result{Data: map[string]any{"prefixes": resp.Prefixes}}, nil
		})
}

type childPrefixArgs struct {
	ParentPrefix string `json:"parent_prefix" jsonschema_description:"Parent prefix in CIDR notation, e.g. '10.0.0.0/16'."`
}

// ChildPrefixes lists prefixes contained in a parent prefix.
func ChildPrefixes(q inventory.Querier) tool.Tool {
	return tool.New("netbox_child_prefixes",
		"List the prefixes that fall within a parent prefix.",
		func(ctx context.Context, a childPrefixArgs) (tool.Result, error) {
			if a.ParentPrefix == "" {
				return tool.Errorf("'parent_prefix' is a required parameter."), nil
			}
			var resp struct {
				Prefixes []json.RawMessage `json:"prefix_list"`
			}
			if err := q.Query(ctx, childPrefixesQuery, map[string]any{"parentPrefix": a.ParentPrefix}, &resp); err != nil {
				return tool.Result{}, err
			}
			if len(resp.Prefixes) == 0 {
				return tool.Errorf("No prefixes found within: %s", a.ParentPrefix), nil
			}
			return tool.Result{Data: map[string]any{"prefixes": resp.Prefixes}}, nil
		})
}

type interfaceArgs struct {
	InterfaceRegex string `json:"interface_regex" jsonschema_description:"Regular expression matched against the interface name."`
}

// Interfaces looks up interfaces by name regex.
func Interfaces(q inventory.Querier) tool.Tool {
	return tool.New("netbox_interfaces",
		"Get interfaces (device, cable, VLANs, speed, MAC, LAG, IP addresses) whose name matches a regular expression.",
		func(ctx context.Context, a interfaceArgs) (tool.Result, error) {
			if a.InterfaceRegex == "" {
				return tool.Errorf("'interface_regex' is a required parameter."), nil
			}
			var resp struct {
				Interfaces []json.RawMessage `json:"interface_list"`
			}
			if err := q.Query(ctx, interfacesQuery, map[string]any{"interfaceRegex": a.InterfaceRegex}, &resp); err != nil {
				return tool.Result{}, err
			}
			if len(resp.Interfaces) == 0 {
				return tool.Errorf("No interfaces found matching regex: %s.", a.InterfaceRegex), nil
			}
			return tool.Result{Data: map[string]any{"interfaces": resp.Interfaces}}, nil
		})
}

type roleSearchArgs struct {
	RoleNameContains string `json:"role_name_contains" jsonschema_description:"Case-insensitive substring of the device role name."`
}

// SearchRoles finds device roles by name and lists their devices.
func SearchRoles(q inventory.Querier) tool.Tool {
	return tool.New("netbox_search_roles",
		"Search device roles by name (case-insensitive) and list the devices holding each role.",
		func(ctx context.Context, a roleSearchArgs) (tool.Result, error) {
			if a.RoleNameContains == "" {
				return tool.Errorf("'role_name_contains' is a required parameter for searching roles."), nil
			}
			var resp struct {
				Roles []json.RawMessage `json:"device_role_list"`
			}
			if err := q.Query(ctx, searchRolesQuery, map[string]any{"nameContains": a.RoleNameContains}, &resp); err != nil {
				return tool.Result{}, err
			}
			if len(resp.Roles) == 0 {
				return tool.Result{
					Data:    map[string]any{},
					Message: fmt.Sprintf("No device roles found matching: '%s'", a.RoleNameContains),
				}, nil
			}
			return tool.Result{
				Data:    map[string]any{"device_roles": resp.Roles},
				Message: fmt.Sprintf("%d device role(s) found matching: '%s'", len(resp.Roles), a.RoleNameContains),
			}, nil
		})
}

// AllRoles lists every device role.
func AllRoles(q inventory.Querier) tool.Tool {
	return tool.New("netbox_get_all_roles",
		"List all device roles defined in NetBox.",
		func(ctx context.Context, _ tool.NoArgs) (tool.Result, error) {
			var resp struct {
				Roles []json.RawMessage `json:"device_role_list"`
			}
			if err := q.Query(ctx, allRolesQuery, nil, &resp); err != nil {
				return tool.Result{}, err
			}
			if len(resp.Roles) == 0 {
				return tool.Result{Data: map[string]any{}, Message: "No device roles found."}, nil
			}
			return tool.Result{
				Data:    map[string]any{"device_roles": resp.Roles},
				Message: fmt.Sprintf("%d device role(s) found.", len(resp.Roles)),
			}, nil
		})
}

// trimLower normalizes enum-like string arguments.
func trimLower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

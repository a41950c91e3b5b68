package netbox

// GraphQL documents for the fixed lookups. Field selections mirror what the
// assistant prompt expects to be able to cite.

const sitesQuery = `query Sites($name: String!) {
  site_list(filters: {name: {regex: $name}}) {
    status
    comments
    contacts {
      contact {
        name
        link
        phone
      }
    }
    locations {
      site {
        name
      }
      name
      facility
      devices {
        name
        description
        rack {
          name
        }
      }
      tenant {
        name
      }
    }
    facility
    time_zone
    physical_address
    description
    region {
      name
    }
    group {
      name
    }
    tenant {
      name
    }
  }
}`

const deviceDetailsQuery = `query Device($nameContains: String!) {
  device_list(filters: {name: {contains: $nameContains}}) {
    name
    primary_ip4 {
      display
    }
    primary_ip6 {
      display
    }
    oob_ip {
      address
    }
    device_type {
      model
      manufacturer {
        name
      }
    }
    role {
      name
    }
    location {
      name
      site {
        name
        racks {
          name
          starting_unit
        }
      }
    }
    consoleports {
      name
    }
    interfaces {
      tagged_vlans {
        name
      }
      untagged_vlan {
        name
      }
      name
      type
      lag {
        name
      }
      mtu
      mode
      cable {
        label
        terminations {
          display
        }
        display
      }
      ip_addresses {
        display
      }
    }
  }
}`

const prefixFields = `
    description
    status
    role {
      name
    }
    prefix
    vrf {
      name
    }
    site {
      name
    }
    vlan {
      name
      tenant {
        name
      }
    }`

const prefixesQuery = `query Prefixes($prefixRegex: String!) {
  prefix_list(filters: {prefix: {regex: $prefixRegex}}) {` + prefixFields + `
    _children
  }
}`

const childPrefixesQuery = `query ChildPrefixes($parentPrefix: String!) {
  prefix_list(filters: {within: $parentPrefix}) {` + prefixFields + `
  }
}`

const ipAddressesQuery = `query IPAddresses($ipaddressRegex: String, $dnsNameRegex: String) {
  ip_address_list(filters: {address: {regex: $ipaddressRegex}, dns_name: {regex: $dnsNameRegex}}) {
    id
    status
    tenant {
      name
    }
    display
    description
    nat_inside {
      description
      address
    }
    nat_outside {
      description
      address
    }
    vrf {
      name
      interfaces {
        ip_addresses {
          address
        }
        device {
          name
        }
      }
    }
    dns_name
    role
    services {
      name
      protocol
      ports
      description
    }
  }
}`

const interfacesQuery = `query Interfaces($interfaceRegex: String!) {
  interface_list(filters: {name: {regex: $interfaceRegex}}) {
    device {
      name
    }
    cable {
      display
      label
      status
    }
    connected_endpoints {
      __typename
    }
    type
    tags {
      name
    }
    speed
    duplex
    child_interfaces {
      name
    }
    wwn
    mac_address
    tagged_vlans {
      name
    }
    untagged_vlan {
      name
    }
    mtu
    enabled
    mgmt_only
    mode
    bridge {
      name
    }
    lag {
      name
    }
    description
    parent {
      name
    }
    display
    ip_addresses {
      address
      role
      status
      tenant {
        name
      }
      dns_name
      description
      assigned_object {
        __typename
      }
      vrf {
        name
      }
    }
  }
}`

const searchRolesQuery = `query SearchRoles($nameContains: String!) {
  device_role_list(filters: {name: {i_contains: $nameContains}}) {
    display
    description
    devices {
      status
      name
      role {
        name
      }
      id
      location {
        name
      }
      site {
        name
      }
      rack {
        name
      }
    }
  }
}`

const allRolesQuery = `query RolesListAll {
  device_role_list {
    display
    description
  }
}`

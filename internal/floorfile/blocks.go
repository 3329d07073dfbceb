package floorfile

import "github.com/hashicorp/hcl/v2"

// fileRoot is used to decode all possible top-level blocks from any file.
type fileRoot struct {
	Offices        []*officeBlock        `hcl:"office,block"`
	Teams          []*teamBlock          `hcl:"team,block"`
	ManagedObjects []*managedObjectBlock `hcl:"managed_object,block"`
	Governance     []*governanceBlock    `hcl:"governance,block"`
	Administrators []*administratorBlock `hcl:"administrator,block"`
	Functions      []*functionBlock      `hcl:"function,block"`
	Escalations    []*escalationBlock    `hcl:"escalation,block"`
	Invocations    []*invokeBlock        `hcl:"invoke,block"`
}

type officeBlock struct {
	Name               string         `hcl:"name,optional"`
	GovernancePolicy   string         `hcl:"governance_policy,optional"`
	AssetCheckInterval hcl.Expression `hcl:"asset_check_interval,optional"`
	DefaultTeam        string         `hcl:"default_team,optional"`
}

type teamBlock struct {
	Name string `hcl:"name,label"`
	Kind string `hcl:"kind"`
	Size int    `hcl:"size,optional"`
}

type managedObjectBlock struct {
	Name    string         `hcl:"name,label"`
	Source  string         `hcl:"source,optional"`
	Scope   string         `hcl:"scope,optional"`
	Timeout hcl.Expression `hcl:"timeout,optional"`
	Props   hcl.Body       `hcl:",remain"`
}

type governanceBlock struct {
	Name      string   `hcl:"name,label"`
	Factory   string   `hcl:"factory"`
	Extension string   `hcl:"extension"`
	Props     hcl.Body `hcl:",remain"`
}

type administratorBlock struct {
	Name      string   `hcl:"name,label"`
	Factory   string   `hcl:"factory"`
	Extension string   `hcl:"extension"`
	Props     hcl.Body `hcl:",remain"`
}

type functionBlock struct {
	Name           string             `hcl:"name,label"`
	Body           string             `hcl:"body,optional"`
	Team           string             `hcl:"team,optional"`
	Next           string             `hcl:"next,optional"`
	ManagedObjects []string           `hcl:"managed_objects,optional"`
	Governance     []string           `hcl:"governance,optional"`
	Administrators []string           `hcl:"administrators,optional"`
	ThreadPolicy   string             `hcl:"thread_policy,optional"`
	Escalations    []*escalationBlock `hcl:"escalation,block"`
}

type escalationBlock struct {
	Match   string `hcl:"match"`
	Handler string `hcl:"handler"`
}

type invokeBlock struct {
	Function  string         `hcl:"function,label"`
	Parameter hcl.Expression `hcl:"parameter,optional"`
	Delay     hcl.Expression `hcl:"delay,optional"`
}

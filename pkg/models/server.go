package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// FlexID is an integer id that also accepts quoted numbers and the "root"
// keyword, as found in configuration files written by older tooling.
type FlexID int

func parseFlexID(s string) (FlexID, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "", "root":
		return FlexID(RootCollectionID), nil
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return FlexID(i), nil
}

func (f *FlexID) UnmarshalJSON(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		v, err := parseFlexID(n.String())
		*f = v
		return err
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid id %s", string(data))
	}
	v, err := parseFlexID(s)
	*f = v
	return err
}

func (f *FlexID) UnmarshalYAML(node *yaml.Node) error {
	v, err := parseFlexID(node.Value)
	*f = v
	return err
}

func (f FlexID) Int() int { return int(f) }

// Server is one analytics instance taking part in a sync, either as source or destination.
type Server struct {
	Host         string   `json:"host" yaml:"host"`
	SessionToken string   `json:"session_token,omitempty" yaml:"session_token,omitempty"`
	Email        string   `json:"email,omitempty" yaml:"email,omitempty"`
	Password     string   `json:"password,omitempty" yaml:"password,omitempty"`
	Database     FlexID   `json:"database" yaml:"database"`
	Collection   FlexID   `json:"collection" yaml:"collection"`
	ExcludedIDs  []string `json:"excludedIDs,omitempty" yaml:"excludedIDs,omitempty"`

	// Populated by hydration, never serialized.
	Schema    *DatabaseMeta `json:"-" yaml:"-"`
	Tree      *Collection   `json:"-" yaml:"-"`
	Databases []Database    `json:"-" yaml:"-"`
}

// IsExcluded reports whether the entity key is on this server's exclusion list.
func (s *Server) IsExcluded(key string) bool {
	for _, id := range s.ExcludedIDs {
		if id == key {
			return true
		}
	}
	return false
}

// Settings are the batch-wide toggles of a configuration document.
type Settings struct {
	RefreshMapping bool   `json:"refreshMapping" yaml:"refreshMapping"`
	SyncMarkdown   bool   `json:"syncMarkdown" yaml:"syncMarkdown"`
	ExcludeRegex   string `json:"excludeRegex" yaml:"excludeRegex"`
}

// ServersConfig is the import/export document.
type ServersConfig struct {
	SourceServers      []*Server `json:"sourceServers" yaml:"sourceServers"`
	DestinationServers []*Server `json:"destinationServers" yaml:"destinationServers"`
	Settings           Settings  `json:"settings" yaml:"settings"`
}

// Hosts returns the hosts of every configured server, sources first.
func (c *ServersConfig) Hosts() []string {
	hosts := make([]string, 0, len(c.SourceServers)+len(c.DestinationServers))
	for _, s := range c.SourceServers {
		hosts = append(hosts, s.Host)
	}
	for _, s := range c.DestinationServers {
		hosts = append(hosts, s.Host)
	}
	return hosts
}

package models

import (
	"fmt"
	"strconv"
)

// StatusText is the sync state of a (source entity, destination) pair.
type StatusText string

const (
	StatusReady    StatusText = "ready"
	StatusOutdated StatusText = "outdated"
	StatusInSync   StatusText = "in-sync"
	StatusSyncing  StatusText = "syncing"
	StatusSuccess  StatusText = "success"
	StatusError    StatusText = "error"
)

var statusOrder = map[StatusText]int{
	StatusReady:    0,
	StatusOutdated: 1,
	StatusInSync:   2,
	StatusSyncing:  3,
	StatusSuccess:  4,
	StatusError:    5,
}

// Rank orders statuses for display.
func (s StatusText) Rank() int {
	if r, ok := statusOrder[s]; ok {
		return r
	}
	return len(statusOrder)
}

// Entity is a card or a dashboard as seen by the sync engine.
type Entity struct {
	Type           EntityType `json:"type"`
	Card           *Card      `json:"card,omitempty"`
	Dashboard      *Dashboard `json:"dashboard,omitempty"`
	CollectionPath []string   `json:"collection_path,omitempty"`
}

func CardEntity(c *Card) Entity { return Entity{Type: EntityCard, Card: c} }

func DashboardEntity(d *Dashboard) Entity { return Entity{Type: EntityDashboard, Dashboard: d} }

// ID is the instance-local numeric id.
func (e Entity) ID() int {
	if e.Type == EntityDashboard {
		return e.Dashboard.ID
	}
	return e.Card.ID
}

// Key is the value recorded in the mapping table: entity_id for cards, the
// numeric id for dashboards.
func (e Entity) Key() string {
	if e.Type == EntityDashboard {
		return strconv.Itoa(e.Dashboard.ID)
	}
	return e.Card.EntityID
}

func (e Entity) Name() string {
	if e.Type == EntityDashboard {
		return e.Dashboard.Name
	}
	return e.Card.Name
}

func (e Entity) Description() string {
	if e.Type == EntityDashboard {
		return e.Dashboard.Description
	}
	return e.Card.Description
}

// Display is the visualization type; dashboards have none.
func (e Entity) Display() string {
	if e.Type == EntityDashboard {
		return ""
	}
	return e.Card.Display
}

func (e Entity) CollectionID() int {
	if e.Type == EntityDashboard {
		return CollectionIDOf(e.Dashboard.CollectionID)
	}
	return CollectionIDOf(e.Card.CollectionID)
}

func (e Entity) Archived() bool {
	if e.Type == EntityDashboard {
		return e.Dashboard.Archived
	}
	return e.Card.Archived
}

// IsDependent reports whether the entity is a card referencing another card.
func (e Entity) IsDependent() bool {
	return e.Type == EntityCard && e.Card.DatasetQuery.IsDependent()
}

// ChangesRequired compares the fields that decide between in-sync and outdated.
func ChangesRequired(source, dest Entity) bool {
	return source.Description() != dest.Description() ||
		source.Display() != dest.Display() ||
		source.Name() != dest.Name()
}

// SyncStatus pairs a source entity with a destination server for one run.
type SyncStatus struct {
	ID          string     `json:"id"`
	Source      *Server    `json:"-"`
	Destination *Server    `json:"-"`
	Entity      Entity     `json:"entity"`
	Mapped      *Entity    `json:"mapped,omitempty"`
	Status      StatusText `json:"status"`
	Checked     bool       `json:"checked"`
	Excluded    bool       `json:"excluded"`
	Error       string     `json:"error,omitempty"`
}

// StatusID builds the stable row id of a (destination, entity) pair.
func StatusID(destHost string, e Entity) string {
	key := e.Key()
	if e.Type == EntityDashboard || key == "" {
		key = strconv.Itoa(e.ID())
	}
	return fmt.Sprintf("%s-%s-%s", destHost, e.Name(), key)
}

// MappedID returns the destination numeric id when the status has a match.
func (s *SyncStatus) MappedID() (int, bool) {
	if s.Mapped == nil {
		return 0, false
	}
	return s.Mapped.ID(), true
}

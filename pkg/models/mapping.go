package models

import "time"

// EntityType distinguishes the two kinds of synced objects.
type EntityType string

const (
	EntityCard      EntityType = "card"
	EntityDashboard EntityType = "dashboard"
)

// SyncMapping records that a source entity has a counterpart on a destination server.
// The natural key is (SourceEntityID, DestinationServer, Type).
//
// For cards both entity ids are the cross-instance entity_id; for dashboards they
// are the numeric ids rendered as strings.
type SyncMapping struct {
	SourceServer        string     `json:"sourceServer" bson:"sourceServer"`
	SourceEntityID      string     `json:"sourceCardID" bson:"sourceCardID"`
	DestinationServer   string     `json:"destinationServer" bson:"destinationServer"`
	DestinationEntityID string     `json:"destinationCardID" bson:"destinationCardID"`
	Type                EntityType `json:"type" bson:"type"`
}

// MappingFilter selects mappings; empty fields do not constrain the result.
type MappingFilter struct {
	SourceEntityID    string
	Type              EntityType
	SourceServer      string
	DestinationServer string
}

// Matches reports whether m satisfies every non-empty field of f.
func (f MappingFilter) Matches(m SyncMapping) bool {
	if f.SourceEntityID != "" && m.SourceEntityID != f.SourceEntityID {
		return false
	}
	if f.Type != "" && m.Type != f.Type {
		return false
	}
	if f.SourceServer != "" && m.SourceServer != f.SourceServer {
		return false
	}
	if f.DestinationServer != "" && m.DestinationServer != f.DestinationServer {
		return false
	}
	return true
}

// BatchOutcome classifies a finished batch.
type BatchOutcome string

const (
	OutcomeComplete BatchOutcome = "complete"
	OutcomePartial  BatchOutcome = "partial"
	OutcomeFailure  BatchOutcome = "failure"
)

// ClassifyOutcome derives the batch outcome from its success count.
func ClassifyOutcome(succeeded, total int) BatchOutcome {
	switch {
	case succeeded == total:
		return OutcomeComplete
	case succeeded > 0:
		return OutcomePartial
	default:
		return OutcomeFailure
	}
}

// BatchRecord is the persisted history entry of one sync batch.
type BatchRecord struct {
	ID               string       `json:"id" bson:"_id"`
	Timestamp        time.Time    `json:"timestamp" bson:"timestamp"`
	Outcome          BatchOutcome `json:"status" bson:"status"`
	SourceHosts      []string     `json:"sourceHosts" bson:"sourceHosts"`
	DestinationHosts []string     `json:"destinationHosts" bson:"destinationHosts"`
	Items            []ItemRecord `json:"detailedRecords" bson:"detailedRecords"`
}

// ItemRecord is the outcome of a single item inside a BatchRecord.
type ItemRecord struct {
	SyncID string     `json:"syncId" bson:"syncId"`
	Name   string     `json:"name" bson:"name"`
	Type   EntityType `json:"type" bson:"type"`
	Status StatusText `json:"status" bson:"status"`
	Error  string     `json:"error,omitempty" bson:"error,omitempty"`
}

package models

import (
	"encoding/json"
	"fmt"
)

const (
	// RootCollectionID is the id given to the implicit top of a collection tree.
	// Entities stored there have a null collection_id.
	RootCollectionID = 0
	// NoRestriction as a configured collection means "the whole tree".
	NoRestriction = -1

	RootCollectionName = "Our analytics"
)

// Collection is a node of a collection tree.
type Collection struct {
	ID       int           `json:"id"`
	Name     string        `json:"name"`
	Archived bool          `json:"archived,omitempty"`
	Children []*Collection `json:"children,omitempty"`
}

// UnmarshalJSON accepts both numeric ids and the "root" id used by the API.
func (c *Collection) UnmarshalJSON(data []byte) error {
	type alias struct {
		ID       any           `json:"id"`
		Name     string        `json:"name"`
		Archived bool          `json:"archived"`
		Children []*Collection `json:"children"`
	}
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	switch v := a.ID.(type) {
	case float64:
		c.ID = int(v)
	case string:
		if v != "root" {
			return fmt.Errorf("unexpected collection id %q", v)
		}
		c.ID = RootCollectionID
	case nil:
		c.ID = RootCollectionID
	default:
		return fmt.Errorf("unexpected collection id type %T", a.ID)
	}
	c.Name = a.Name
	c.Archived = a.Archived
	c.Children = a.Children
	return nil
}

// NewRootCollection wraps the top-level collections returned by the tree endpoint.
func NewRootCollection(children []*Collection) *Collection {
	return &Collection{ID: RootCollectionID, Name: RootCollectionName, Children: children}
}

// CollectionIDOf normalizes a nullable collection id.
func CollectionIDOf(id *int) int {
	if id == nil {
		return RootCollectionID
	}
	return *id
}

// CollectionRef is the inverse of CollectionIDOf, for request payloads.
func CollectionRef(id int) *int {
	if id == RootCollectionID || id == NoRestriction {
		return nil
	}
	return &id
}

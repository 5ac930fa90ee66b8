package collection

import (
	"context"
	"fmt"
	"strconv"

	"github.com/BartekS5/cardsync/pkg/logger"
	"github.com/BartekS5/cardsync/pkg/models"
)

// Creator is the part of the analytics client the mirror needs.
type Creator interface {
	CollectionTree(ctx context.Context) (*models.Collection, error)
	CreateCollection(ctx context.Context, name string, parentID int) (*models.Collection, error)
}

// Mirror makes sure the collection path of sourceCollectionID (relative to
// sourceRootID) exists below destRootID on the destination and returns the
// id of the last segment. The destination tree is fetched once; collections
// created during the walk are tracked in memory.
func Mirror(ctx context.Context, sourceTree *models.Collection, dest Creator, sourceRootID, destRootID, sourceCollectionID int) (int, error) {
	sourcePath := ResolvePath(sourceTree, sourceCollectionID, sourceRootID)
	if sourcePath == nil {
		return 0, &models.NotFoundError{Kind: "source collection", ID: strconv.Itoa(sourceCollectionID)}
	}

	destTree, err := dest.CollectionTree(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch destination collection tree: %w", err)
	}

	return walk(sourcePath, destTree, destRootID, func(name string, parent *models.Collection) (*models.Collection, error) {
		created, err := dest.CreateCollection(ctx, name, parent.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to create collection %q: %w", name, err)
		}
		logger.Infof("Created collection %q (id %d) under %q", name, created.ID, parent.Name)
		return created, nil
	})
}

// Locate is the read-only variant of Mirror over an already fetched
// destination tree: a missing segment yields a NotFoundError instead of a
// creation.
func Locate(sourceTree, destTree *models.Collection, sourceRootID, destRootID, sourceCollectionID int) (int, error) {
	sourcePath := ResolvePath(sourceTree, sourceCollectionID, sourceRootID)
	if sourcePath == nil {
		return 0, &models.NotFoundError{Kind: "source collection", ID: strconv.Itoa(sourceCollectionID)}
	}
	return walk(sourcePath, destTree, destRootID, nil)
}

type createFunc func(name string, parent *models.Collection) (*models.Collection, error)

// walk follows sourcePath[1:] down from the destination root. The first
// segment is the shared root and is never looked up by name.
func walk(sourcePath []string, destTree *models.Collection, destRootID int, create createFunc) (int, error) {
	current := destTree
	if destRootID != models.NoRestriction {
		current = Find(destTree, destRootID)
	}
	if current == nil {
		return 0, &models.NotFoundError{Kind: "destination collection", ID: strconv.Itoa(destRootID)}
	}

	for _, name := range sourcePath[1:] {
		if id, ok := ResolveIDByName(current, name, current.Name); ok {
			current = Find(current, id)
			continue
		}
		if create == nil {
			return 0, &models.NotFoundError{Kind: "destination collection", ID: name}
		}
		created, err := create(name, current)
		if err != nil {
			return 0, err
		}
		node := &models.Collection{ID: created.ID, Name: name}
		current.Children = append(current.Children, node)
		current = node
	}
	return current.ID, nil
}

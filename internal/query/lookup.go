package query

import (
	"strconv"

	"github.com/BartekS5/cardsync/pkg/models"
)

// Kind selects what ResolveTableOrField looks up.
type Kind string

const (
	KindTable Kind = "table"
	KindField Kind = "field"
)

// NoContext means the owning table of a field is unknown.
const NoContext = 0

// ResolveTableOrField maps a source table or field id to the destination id
// of the table or field with the same name. Numeric ids are never comparable
// across instances, so names are the only join key.
func ResolveTableOrField(kind Kind, sourceID int, src, dst *models.DatabaseMeta, contextTableID int) (int, error) {
	if kind == KindTable {
		return resolveTable(sourceID, src, dst)
	}
	return resolveField(sourceID, src, dst, contextTableID)
}

func resolveTable(sourceID int, src, dst *models.DatabaseMeta) (int, error) {
	table := src.TableByID(sourceID)
	if table == nil {
		return 0, &models.SchemaMismatchError{Kind: "table", SourceID: strconv.Itoa(sourceID), Side: "source"}
	}
	destTable := dst.TableByName(table.Name)
	if destTable == nil {
		return 0, &models.SchemaMismatchError{Kind: "table", SourceID: strconv.Itoa(sourceID), Name: table.Name, Side: "destination"}
	}
	return destTable.ID, nil
}

// resolveField looks in contextTableID first. A miss there falls back to a
// scan of every source table: field ids are unique within a database, and a
// join condition may compare against a table joined earlier rather than the
// query's own source table.
func resolveField(sourceID int, src, dst *models.DatabaseMeta, contextTableID int) (int, error) {
	var (
		field *models.Field
		table *models.Table
	)
	if contextTableID != NoContext {
		if table = src.TableByID(contextTableID); table != nil {
			field = table.FieldByID(sourceID)
		}
	}
	if field == nil && src != nil {
		for i := range src.Tables {
			if f := src.Tables[i].FieldByID(sourceID); f != nil {
				field = f
				table = &src.Tables[i]
				break
			}
		}
		if field != nil && field.TableID != 0 && field.TableID != table.ID {
			if owner := src.TableByID(field.TableID); owner != nil {
				table = owner
			}
		}
	}
	if field == nil {
		return 0, &models.SchemaMismatchError{Kind: "field", SourceID: strconv.Itoa(sourceID), Side: "source"}
	}

	destTable := dst.TableByName(table.Name)
	if destTable == nil {
		return 0, &models.SchemaMismatchError{Kind: "table", SourceID: strconv.Itoa(table.ID), Name: table.Name, Side: "destination"}
	}
	destField := destTable.FieldByName(field.Name)
	if destField == nil {
		return 0, &models.SchemaMismatchError{Kind: "field", SourceID: strconv.Itoa(sourceID), Name: table.Name + "." + field.Name, Side: "destination"}
	}
	return destField.ID, nil
}

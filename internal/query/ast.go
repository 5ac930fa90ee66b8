// Package query rewrites dataset query ASTs from source schema coordinates to
// destination schema coordinates.
//
// Queries arrive as decoded JSON (map[string]any / []any / scalars). Parse
// classifies the schema-relative shapes once into typed nodes; Rewriter then
// dispatches on node type and Encode turns the result back into plain JSON
// values.
package query

import (
	"sort"
	"strings"

	"github.com/BartekS5/cardsync/pkg/models"
)

// Node is one element of a parsed query AST.
type Node interface {
	isNode()
}

// Scalar is any leaf value: string, number, bool or null.
type Scalar struct {
	Value any
}

// Array is a JSON array with no special meaning.
type Array struct {
	Items []Node
}

// Object is a JSON object with no special meaning of its own; its keys may
// still hold special nodes.
type Object struct {
	Fields map[string]Node
}

// FieldRef is ["field", id, options...].
type FieldRef struct {
	ID      any
	Options []Node
}

// TableRef is the value of a "source-table" key: a table id or "card__<id>".
type TableRef struct {
	ID any
}

// SourceFieldRef is the value of a "source-field" key (an FK field id).
type SourceFieldRef struct {
	ID any
}

// Joins is the value of a "joins" key.
type Joins struct {
	Clauses []Node
}

// JoinClause is one element of Joins. SourceTable is nil for joins against a
// nested source-query.
type JoinClause struct {
	SourceTable *TableRef
	Condition   Node
	Rest        map[string]Node
}

// CardTag is a "#..." template tag of type card: a dependency on another card.
type CardTag struct {
	Tag map[string]any
}

func (Scalar) isNode()         {}
func (Array) isNode()          {}
func (Object) isNode()         {}
func (FieldRef) isNode()       {}
func (TableRef) isNode()       {}
func (SourceFieldRef) isNode() {}
func (Joins) isNode()          {}
func (JoinClause) isNode()     {}
func (CardTag) isNode()        {}

const (
	keySourceTable  = "source-table"
	keySourceField  = "source-field"
	keyJoins        = "joins"
	keyCondition    = "condition"
	fieldTag        = "field"
	cardTablePrefix = models.CardTablePrefix
)

// Parse classifies a decoded JSON value.
func Parse(v any) Node {
	switch x := v.(type) {
	case []any:
		if len(x) >= 2 && x[0] == fieldTag {
			return FieldRef{ID: x[1], Options: parseAll(x[2:])}
		}
		return Array{Items: parseAll(x)}
	case map[string]any:
		fields := make(map[string]Node, len(x))
		for key, val := range x {
			fields[key] = parseKey(key, val)
		}
		return Object{Fields: fields}
	default:
		return Scalar{Value: v}
	}
}

func parseAll(items []any) []Node {
	out := make([]Node, len(items))
	for i, item := range items {
		out[i] = Parse(item)
	}
	return out
}

func parseKey(key string, val any) Node {
	switch {
	case key == keySourceTable:
		return TableRef{ID: val}
	case key == keySourceField:
		return SourceFieldRef{ID: val}
	case key == keyJoins:
		if items, ok := val.([]any); ok {
			return parseJoins(items)
		}
	case strings.HasPrefix(key, "#"):
		if tag, ok := val.(map[string]any); ok && tag["type"] == "card" {
			return CardTag{Tag: tag}
		}
	}
	return Parse(val)
}

func parseJoins(items []any) Joins {
	clauses := make([]Node, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			clauses[i] = Parse(item)
			continue
		}
		j := JoinClause{Rest: map[string]Node{}}
		for key, val := range m {
			switch key {
			case keySourceTable:
				j.SourceTable = &TableRef{ID: val}
			case keyCondition:
				j.Condition = Parse(val)
			default:
				j.Rest[key] = parseKey(key, val)
			}
		}
		clauses[i] = j
	}
	return Joins{Clauses: clauses}
}

// Encode turns a node back into plain JSON values.
func Encode(n Node) any {
	switch x := n.(type) {
	case Scalar:
		return x.Value
	case Array:
		return encodeAll(x.Items)
	case Object:
		out := make(map[string]any, len(x.Fields))
		for key, val := range x.Fields {
			out[key] = Encode(val)
		}
		return out
	case FieldRef:
		return append([]any{fieldTag, x.ID}, encodeAll(x.Options)...)
	case TableRef:
		return x.ID
	case SourceFieldRef:
		return x.ID
	case Joins:
		return encodeAll(x.Clauses)
	case JoinClause:
		out := make(map[string]any, len(x.Rest)+2)
		for key, val := range x.Rest {
			out[key] = Encode(val)
		}
		if x.SourceTable != nil {
			out[keySourceTable] = x.SourceTable.ID
		}
		if x.Condition != nil {
			out[keyCondition] = Encode(x.Condition)
		}
		return out
	case CardTag:
		return x.Tag
	default:
		return nil
	}
}

func encodeAll(items []Node) []any {
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = Encode(item)
	}
	return out
}

// sortedKeys keeps rewrite errors deterministic.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

package query

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/BartekS5/cardsync/pkg/models"
	"github.com/BartekS5/cardsync/pkg/utils"
)

// CardResolver maps a card referenced at the source to the id of its
// counterpart at the destination. It returns a *models.MissingDependencyError
// when no counterpart exists.
type CardResolver interface {
	ResolveCard(ctx context.Context, sourceCardID int, displayName string) (int, error)
}

// Rewriter translates query ASTs from Source to Dest schema coordinates.
// Cards may be nil when the query cannot reference other cards.
type Rewriter struct {
	Source *models.DatabaseMeta
	Dest   *models.DatabaseMeta
	Cards  CardResolver
}

// Rewrite returns a rewritten copy of n. contextTableID is the source table
// that owns bare field references, or NoContext.
func (r *Rewriter) Rewrite(ctx context.Context, n Node, contextTableID int) (Node, error) {
	switch x := n.(type) {
	case FieldRef:
		return r.rewriteField(ctx, x, contextTableID)
	case TableRef:
		return r.rewriteTable(ctx, x)
	case SourceFieldRef:
		if !utils.IsInteger(x.ID) {
			return x, nil
		}
		id, err := r.field(x.ID, contextTableID)
		if err != nil {
			return nil, err
		}
		return SourceFieldRef{ID: id}, nil
	case Joins:
		return r.rewriteJoins(ctx, x, contextTableID)
	case CardTag:
		return r.rewriteCardTag(ctx, x)
	case Object:
		return r.rewriteObject(ctx, x, contextTableID)
	case Array:
		items, err := r.rewriteAll(ctx, x.Items, contextTableID)
		if err != nil {
			return nil, err
		}
		return Array{Items: items}, nil
	default:
		return n, nil
	}
}

func (r *Rewriter) rewriteAll(ctx context.Context, items []Node, contextTableID int) ([]Node, error) {
	out := make([]Node, len(items))
	for i, item := range items {
		rewritten, err := r.Rewrite(ctx, item, contextTableID)
		if err != nil {
			return nil, err
		}
		out[i] = rewritten
	}
	return out, nil
}

// rewriteObject handles "joins" with the object's own source-table as the
// outer side of every join condition.
func (r *Rewriter) rewriteObject(ctx context.Context, o Object, contextTableID int) (Node, error) {
	outer := contextTableID
	if t, ok := o.Fields[keySourceTable].(TableRef); ok && utils.IsInteger(t.ID) {
		outer, _ = utils.ConvertToInt(t.ID)
	}

	fields := make(map[string]Node, len(o.Fields))
	for _, key := range sortedKeys(o.Fields) {
		val := o.Fields[key]
		var (
			rewritten Node
			err       error
		)
		if joins, ok := val.(Joins); ok {
			rewritten, err = r.rewriteJoins(ctx, joins, outer)
		} else {
			rewritten, err = r.Rewrite(ctx, val, contextTableID)
		}
		if err != nil {
			return nil, err
		}
		fields[key] = rewritten
	}
	return Object{Fields: fields}, nil
}

func (r *Rewriter) rewriteField(ctx context.Context, f FieldRef, contextTableID int) (Node, error) {
	options, err := r.rewriteAll(ctx, f.Options, contextTableID)
	if err != nil {
		return nil, err
	}
	// Fields of nested queries are referenced by name.
	if !utils.IsInteger(f.ID) {
		return FieldRef{ID: f.ID, Options: options}, nil
	}
	id, err := r.field(f.ID, contextTableID)
	if err != nil {
		return nil, err
	}
	return FieldRef{ID: id, Options: options}, nil
}

func (r *Rewriter) field(raw any, contextTableID int) (int, error) {
	sourceID, err := utils.ConvertToInt(raw)
	if err != nil {
		return 0, err
	}
	return ResolveTableOrField(KindField, sourceID, r.Source, r.Dest, contextTableID)
}

func (r *Rewriter) rewriteTable(ctx context.Context, t TableRef) (Node, error) {
	if utils.IsInteger(t.ID) {
		sourceID, err := utils.ConvertToInt(t.ID)
		if err != nil {
			return nil, err
		}
		id, err := ResolveTableOrField(KindTable, sourceID, r.Source, r.Dest, NoContext)
		if err != nil {
			return nil, err
		}
		return TableRef{ID: id}, nil
	}

	s, ok := t.ID.(string)
	if !ok || !strings.HasPrefix(s, cardTablePrefix) {
		return t, nil
	}
	sourceCardID, err := strconv.Atoi(strings.TrimPrefix(s, cardTablePrefix))
	if err != nil {
		return t, nil
	}
	destCardID, err := r.resolveCard(ctx, sourceCardID, s)
	if err != nil {
		return nil, err
	}
	return TableRef{ID: cardTablePrefix + strconv.Itoa(destCardID)}, nil
}

func (r *Rewriter) rewriteJoins(ctx context.Context, j Joins, outer int) (Node, error) {
	clauses := make([]Node, len(j.Clauses))
	for i, clause := range j.Clauses {
		jc, ok := clause.(JoinClause)
		if !ok {
			rewritten, err := r.Rewrite(ctx, clause, outer)
			if err != nil {
				return nil, err
			}
			clauses[i] = rewritten
			continue
		}
		rewritten, err := r.rewriteJoin(ctx, jc, outer)
		if err != nil {
			return nil, err
		}
		clauses[i] = rewritten
	}
	return Joins{Clauses: clauses}, nil
}

func (r *Rewriter) rewriteJoin(ctx context.Context, j JoinClause, outer int) (JoinClause, error) {
	inner := NoContext
	out := JoinClause{Rest: make(map[string]Node, len(j.Rest))}

	if j.SourceTable != nil {
		if utils.IsInteger(j.SourceTable.ID) {
			inner, _ = utils.ConvertToInt(j.SourceTable.ID)
		}
		rewritten, err := r.rewriteTable(ctx, *j.SourceTable)
		if err != nil {
			return JoinClause{}, err
		}
		t := rewritten.(TableRef)
		out.SourceTable = &t
	}

	if j.Condition != nil {
		cond, err := r.rewriteCondition(ctx, j.Condition, outer, inner)
		if err != nil {
			return JoinClause{}, err
		}
		out.Condition = cond
	}

	for _, key := range sortedKeys(j.Rest) {
		rewritten, err := r.Rewrite(ctx, j.Rest[key], inner)
		if err != nil {
			return JoinClause{}, err
		}
		out.Rest[key] = rewritten
	}
	return out, nil
}

// rewriteCondition resolves the left operand of a comparison against the
// outer table and the right operand against the joined table. Compound
// conditions (["and", [...], [...]]) recurse with the same pair.
func (r *Rewriter) rewriteCondition(ctx context.Context, n Node, outer, inner int) (Node, error) {
	arr, ok := n.(Array)
	if !ok {
		return r.Rewrite(ctx, n, outer)
	}
	items := make([]Node, len(arr.Items))
	for i, item := range arr.Items {
		var (
			rewritten Node
			err       error
		)
		switch x := item.(type) {
		case FieldRef:
			side := outer
			if i > 1 {
				side = inner
			}
			rewritten, err = r.rewriteField(ctx, x, side)
		case Array:
			rewritten, err = r.rewriteCondition(ctx, x, outer, inner)
		default:
			rewritten, err = r.Rewrite(ctx, x, outer)
		}
		if err != nil {
			return nil, err
		}
		items[i] = rewritten
	}
	return Array{Items: items}, nil
}

func (r *Rewriter) rewriteCardTag(ctx context.Context, c CardTag) (Node, error) {
	displayName, _ := c.Tag["display-name"].(string)
	name, _ := c.Tag["name"].(string)
	if displayName == "" {
		displayName = name
	}
	sourceCardID, err := utils.ConvertToInt(c.Tag["card-id"])
	if err != nil {
		return nil, &models.MissingDependencyError{DisplayName: displayName, AtSource: true}
	}
	destCardID, err := r.resolveCard(ctx, sourceCardID, displayName)
	if err != nil {
		return nil, err
	}

	tag := make(map[string]any, len(c.Tag))
	for k, v := range c.Tag {
		tag[k] = v
	}
	tag["card-id"] = destCardID
	if name != "" {
		tag["name"] = retag(name, "-", destCardID)
	}
	if d, ok := c.Tag["display-name"].(string); ok && d != "" {
		tag["display-name"] = retag(d, " ", destCardID)
	}
	return CardTag{Tag: tag}, nil
}

func (r *Rewriter) resolveCard(ctx context.Context, sourceCardID int, displayName string) (int, error) {
	if r.Cards == nil {
		return 0, &models.MissingDependencyError{DisplayName: displayName}
	}
	return r.Cards.ResolveCard(ctx, sourceCardID, displayName)
}

// retag replaces the "#<id>" prefix of a tag name: "#12-orders" -> "#40-orders".
func retag(s, sep string, id int) string {
	prefix := "#" + strconv.Itoa(id)
	if _, rest, found := strings.Cut(s, sep); found {
		return prefix + sep + rest
	}
	return prefix
}

// RewriteDatasetQuery returns a copy of q pointed at destDatabase with every
// schema-relative reference translated. q is never modified.
func (r *Rewriter) RewriteDatasetQuery(ctx context.Context, q models.DatasetQuery, destDatabase int) (models.DatasetQuery, error) {
	out := models.DatasetQuery{Type: q.Type, Database: destDatabase}

	if q.Query != nil {
		rewritten, err := r.Rewrite(ctx, Parse(q.Query), NoContext)
		if err != nil {
			return models.DatasetQuery{}, fmt.Errorf("failed to rewrite query: %w", err)
		}
		out.Query = Encode(rewritten).(map[string]any)
	}

	if q.Native != nil {
		native, err := r.rewriteNative(ctx, q.Native)
		if err != nil {
			return models.DatasetQuery{}, fmt.Errorf("failed to rewrite native query: %w", err)
		}
		out.Native = native
	}
	return out, nil
}

// rewriteNative rewrites everything but the SQL text, then renames template
// tags whose name changed and follows the rename inside the SQL.
func (r *Rewriter) rewriteNative(ctx context.Context, native map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(native))
	for _, key := range sortedKeys(native) {
		if key == "query" {
			out[key] = native[key]
			continue
		}
		rewritten, err := r.Rewrite(ctx, parseKey(key, native[key]), NoContext)
		if err != nil {
			return nil, err
		}
		out[key] = Encode(rewritten)
	}

	tags, ok := out["template-tags"].(map[string]any)
	if !ok {
		return out, nil
	}
	sql, _ := out["query"].(string)
	renamed := make(map[string]any, len(tags))
	for _, key := range sortedKeys(tags) {
		tag, _ := tags[key].(map[string]any)
		name, _ := tag["name"].(string)
		if name == "" || name == key {
			renamed[key] = tags[key]
			continue
		}
		renamed[name] = tags[key]
		sql = replaceTag(sql, key, name)
	}
	out["template-tags"] = renamed
	if _, hasQuery := out["query"]; hasQuery {
		out["query"] = sql
	}
	return out, nil
}

// replaceTag rewrites {{old}} (whitespace inside the braces allowed) to {{name}}.
func replaceTag(sql, old, name string) string {
	re := regexp.MustCompile(`\{\{\s*` + regexp.QuoteMeta(old) + `\s*\}\}`)
	return re.ReplaceAllLiteralString(sql, "{{"+name+"}}")
}

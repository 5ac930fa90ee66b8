package models

import (
	"sort"
	"strconv"
	"strings"

	"github.com/BartekS5/cardsync/pkg/utils"
)

// Query types of a dataset_query.
const (
	QueryTypeStructured = "query"
	QueryTypeNative     = "native"
)

// Card is a saved question.
type Card struct {
	ID                    int            `json:"id,omitempty"`
	EntityID              string         `json:"entity_id,omitempty"`
	Name                  string         `json:"name"`
	Description           string         `json:"description"`
	Display               string         `json:"display"`
	CollectionID          *int           `json:"collection_id"`
	CollectionPosition    *int           `json:"collection_position,omitempty"`
	DatasetQuery          DatasetQuery   `json:"dataset_query"`
	VisualizationSettings map[string]any `json:"visualization_settings,omitempty"`
	Parameters            []any          `json:"parameters,omitempty"`
	ParameterMappings     []any          `json:"parameter_mappings,omitempty"`
	ResultMetadata        []any          `json:"result_metadata,omitempty"`
	CacheTTL              *int           `json:"cache_ttl,omitempty"`
	Archived              bool           `json:"archived"`
}

// DatasetQuery is the query AST envelope of a card.
type DatasetQuery struct {
	Type     string         `json:"type"`
	Database int            `json:"database"`
	Query    map[string]any `json:"query,omitempty"`
	Native   map[string]any `json:"native,omitempty"`
}

// CardTablePrefix marks a source-table that is a saved question, e.g. "card__12".
const CardTablePrefix = "card__"

// CardDependencies returns the numeric ids of cards the query builds on, sorted
// ascending: #-prefixed template tags of a native query, or card__N source
// tables anywhere in a structured one (nested source-query and joins included).
func (q DatasetQuery) CardDependencies() []int {
	seen := map[int]bool{}
	switch q.Type {
	case QueryTypeNative:
		tags, _ := q.Native["template-tags"].(map[string]any)
		for key, raw := range tags {
			if !strings.HasPrefix(key, "#") {
				continue
			}
			tag, ok := raw.(map[string]any)
			if !ok || tag["type"] != "card" {
				continue
			}
			if id, err := utils.ConvertToInt(tag["card-id"]); err == nil {
				seen[id] = true
			}
		}
	case QueryTypeStructured:
		collectCardTables(q.Query, seen)
	}

	var ids []int
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func collectCardTables(node any, seen map[int]bool) {
	switch v := node.(type) {
	case map[string]any:
		for key, child := range v {
			if key == "source-table" {
				if s, ok := child.(string); ok && strings.HasPrefix(s, CardTablePrefix) {
					if id, err := strconv.Atoi(strings.TrimPrefix(s, CardTablePrefix)); err == nil {
						seen[id] = true
					}
				}
				continue
			}
			collectCardTables(child, seen)
		}
	case []any:
		for _, child := range v {
			collectCardTables(child, seen)
		}
	}
}

// IsDependent reports whether the query builds on another card.
func (q DatasetQuery) IsDependent() bool {
	return len(q.CardDependencies()) > 0
}

// Dashboard is a named set of positioned tiles.
type Dashboard struct {
	ID                 int             `json:"id"`
	EntityID           string          `json:"entity_id,omitempty"`
	Name               string          `json:"name"`
	Description        string          `json:"description"`
	CollectionID       *int            `json:"collection_id"`
	CollectionPosition *int            `json:"collection_position,omitempty"`
	Parameters         []any           `json:"parameters,omitempty"`
	CacheTTL           *int            `json:"cache_ttl,omitempty"`
	Archived           bool            `json:"archived"`
	EnableEmbedding    bool            `json:"enable_embedding"`
	EmbeddingParams    any             `json:"embedding_params,omitempty"`
	Position           any             `json:"position,omitempty"`
	PointsOfInterest   any             `json:"points_of_interest,omitempty"`
	Caveats            any             `json:"caveats,omitempty"`
	IsAppPage          bool            `json:"is_app_page"`
	OrderedCards       []DashboardCard `json:"ordered_cards,omitempty"`
	Dashcards          []DashboardCard `json:"dashcards,omitempty"`
}

// Tiles returns the dashboard layout regardless of which field the server version used.
func (d Dashboard) Tiles() []DashboardCard {
	if len(d.Dashcards) > 0 {
		return d.Dashcards
	}
	return d.OrderedCards
}

// DashboardCard is one tile of a dashboard layout.
type DashboardCard struct {
	ID                    int              `json:"id"`
	DashboardID           int              `json:"dashboard_id,omitempty"`
	DashboardTabID        *int             `json:"dashboard_tab_id"`
	CardID                *int             `json:"card_id"`
	ActionID              *int             `json:"action_id"`
	Card                  *Card            `json:"card,omitempty"`
	Col                   int              `json:"col"`
	Row                   int              `json:"row"`
	SizeX                 int              `json:"size_x"`
	SizeY                 int              `json:"size_y"`
	Series                []SeriesCard     `json:"series"`
	ParameterMappings     []map[string]any `json:"parameter_mappings"`
	VisualizationSettings map[string]any   `json:"visualization_settings"`
}

// SeriesCard is a card overlaid on a dashboard tile.
type SeriesCard struct {
	ID       int    `json:"id"`
	EntityID string `json:"entity_id,omitempty"`
	Name     string `json:"name,omitempty"`
}

// IsQuestion reports whether the tile shows a saved question, as opposed to
// a free text, heading or link tile.
func (dc DashboardCard) IsQuestion() bool {
	return dc.Card != nil && dc.Card.EntityID != ""
}

// Text returns the markdown of a free tile, or "".
func (dc DashboardCard) Text() string {
	s, _ := dc.VisualizationSettings["text"].(string)
	return s
}

package syncer

import "github.com/BartekS5/cardsync/pkg/models"

// Request bodies are built as fresh values from the fields the API accepts;
// server-owned fields (ids, entity ids, timestamps) never leave the source.

func cardBody(c *models.Card, q models.DatasetQuery, collectionID int) map[string]any {
	return map[string]any{
		"name":                   c.Name,
		"description":            c.Description,
		"display":                c.Display,
		"collection_id":          models.CollectionRef(collectionID),
		"collection_position":    c.CollectionPosition,
		"database_id":            q.Database,
		"dataset_query":          q,
		"visualization_settings": orEmptyMap(c.VisualizationSettings),
		"parameters":             orEmptySlice(c.Parameters),
		"parameter_mappings":     orEmptySlice(c.ParameterMappings),
		"result_metadata":        c.ResultMetadata,
		"cache_ttl":              c.CacheTTL,
		"archived":               c.Archived,
	}
}

func dashboardCreateBody(d *models.Dashboard, collectionID int) map[string]any {
	return map[string]any{
		"name":                d.Name,
		"description":         d.Description,
		"parameters":          orEmptySlice(d.Parameters),
		"collection_position": d.CollectionPosition,
		"cache_ttl":           d.CacheTTL,
		"collection_id":       models.CollectionRef(collectionID),
	}
}

func dashboardUpdateBody(d *models.Dashboard, collectionID int) map[string]any {
	return map[string]any{
		"name":                    d.Name,
		"description":             d.Description,
		"archived":                d.Archived,
		"collection_position":     d.CollectionPosition,
		"collection_id":           models.CollectionRef(collectionID),
		"can_write":               true,
		"enable_embedding":        d.EnableEmbedding,
		"embedding_params":        d.EmbeddingParams,
		"show_in_getting_started": false,
		"caveats":                 d.Caveats,
		"is_app_page":             d.IsAppPage,
		"cache_ttl":               d.CacheTTL,
		"position":                d.Position,
		"parameters":              orEmptySlice(d.Parameters),
		"points_of_interest":      d.PointsOfInterest,
	}
}

// tileBody is one element of the dashboard cards PUT. cardID is nil for
// free tiles; series holds destination card ids.
func tileBody(t models.DashboardCard, id, dashboardID int, cardID *int, series []int) map[string]any {
	sizeX, sizeY := t.SizeX, t.SizeY
	if sizeX == 0 {
		sizeX = 4
	}
	if sizeY == 0 {
		sizeY = 3
	}

	seriesBody := make([]map[string]any, len(series))
	for i, sid := range series {
		seriesBody[i] = map[string]any{"id": sid}
	}

	mappings := make([]map[string]any, len(t.ParameterMappings))
	for i, pm := range t.ParameterMappings {
		m := make(map[string]any, len(pm))
		for k, v := range pm {
			m[k] = v
		}
		if _, ok := m["card_id"]; ok && cardID != nil {
			m["card_id"] = *cardID
		}
		mappings[i] = m
	}

	return map[string]any{
		"id":                     id,
		"dashboard_id":           dashboardID,
		"dashboard_tab_id":       t.DashboardTabID,
		"action_id":              t.ActionID,
		"card_id":                cardID,
		"col":                    t.Col,
		"row":                    t.Row,
		"size_x":                 sizeX,
		"size_y":                 sizeY,
		"series":                 seriesBody,
		"parameter_mappings":     mappings,
		"visualization_settings": orEmptyMap(t.VisualizationSettings),
	}
}

func orEmptyMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func orEmptySlice(s []any) []any {
	if s == nil {
		return []any{}
	}
	return s
}

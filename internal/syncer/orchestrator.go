package syncer

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/BartekS5/cardsync/pkg/logger"
	"github.com/BartekS5/cardsync/pkg/models"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// StatusFunc observes status transitions. It may be called from several
// goroutines at once.
type StatusFunc func(st *models.SyncStatus)

// ItemResult is the outcome of one selected row.
type ItemResult struct {
	Status *models.SyncStatus
	Err    error
}

// Result summarizes a finished batch.
type Result struct {
	BatchID   string
	Outcome   models.BatchOutcome
	Succeeded int
	Failed    int
	Skipped   int
	Items     []ItemResult
}

// Run syncs the selected rows. Plain cards go first, then cards that depend
// on other selected cards (level by level), then dashboards. Rows inside one
// level run concurrently; a failing row never stops the others. Excluded
// rows are skipped.
func (s *Syncer) Run(ctx context.Context, sources []*Source, selected []*models.SyncStatus, onStatus StatusFunc) (*Result, error) {
	if err := validateSelection(selected); err != nil {
		return nil, err
	}
	if onStatus == nil {
		onStatus = func(*models.SyncStatus) {}
	}
	s.resetCaches()

	bySource := make(map[string]*Source, len(sources))
	for _, src := range sources {
		bySource[src.Server.Host] = src
	}

	res := &Result{BatchID: uuid.NewString()}
	var runnable []*models.SyncStatus
	for _, st := range selected {
		if st.Excluded {
			logger.Infof("Skipping excluded %s", st.ID)
			res.Skipped++
			continue
		}
		runnable = append(runnable, st)
	}

	levels, cyclic := planLevels(runnable)
	items := make(map[*models.SyncStatus]*ItemResult, len(runnable))
	for _, st := range runnable {
		items[st] = &ItemResult{Status: st}
	}
	for _, st := range cyclic {
		err := &models.MissingDependencyError{DisplayName: st.Entity.Name(), Host: st.Destination.Host}
		s.finish(st, items[st], err, onStatus)
	}

	start := time.Now()
	logger.Infof("Starting batch %s: %d items in %d levels, concurrency %d", res.BatchID, len(runnable), len(levels), s.concurrency)
	for i, level := range levels {
		logger.Debugf("Batch %s level %d: %d items", res.BatchID, i, len(level))
		var g errgroup.Group
		g.SetLimit(s.concurrency)
		for _, st := range level {
			st := st
			item := items[st]
			g.Go(func() error {
				st.Status = models.StatusSyncing
				onStatus(st)
				s.finish(st, item, s.syncItem(ctx, bySource[st.Source.Host], st), onStatus)
				return nil
			})
		}
		g.Wait()
	}

	for _, st := range runnable {
		item := items[st]
		res.Items = append(res.Items, *item)
		if item.Err == nil {
			res.Succeeded++
		} else {
			res.Failed++
		}
	}
	res.Outcome = models.ClassifyOutcome(res.Succeeded, len(runnable))
	logger.Infof("Batch %s finished in %s: %s (%d succeeded, %d failed, %d skipped)",
		res.BatchID, time.Since(start).Round(time.Millisecond), res.Outcome, res.Succeeded, res.Failed, res.Skipped)

	if err := s.store.RecordBatch(ctx, batchRecord(res, sources, runnable)); err != nil {
		logger.Warnf("Failed to record batch %s: %v", res.BatchID, err)
	}
	return res, nil
}

func (s *Syncer) syncItem(ctx context.Context, src *Source, st *models.SyncStatus) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while syncing %s: %v", st.ID, r)
		}
	}()
	if src == nil {
		return fmt.Errorf("unknown source server %s", st.Source.Host)
	}
	d := s.destination(st.Destination)
	if st.Entity.Type == models.EntityDashboard {
		return s.syncDashboard(ctx, src, d, st)
	}
	return s.syncCard(ctx, src, d, st)
}

func (s *Syncer) finish(st *models.SyncStatus, item *ItemResult, err error, onStatus StatusFunc) {
	item.Err = err
	if err != nil {
		st.Status = models.StatusError
		st.Error = err.Error()
		logger.Errorf("Sync of %s failed: %v", st.ID, err)
	} else {
		st.Status = models.StatusSuccess
		st.Error = ""
		logger.Infof("Synced %s", st.ID)
	}
	onStatus(st)
}

// planLevels orders rows for execution. Level 0 holds cards without card
// dependencies; a dependent card sits one level after the deepest selected
// card it references on the same destination; dashboards come last. Rows in
// a dependency cycle are returned separately.
func planLevels(rows []*models.SyncStatus) ([][]*models.SyncStatus, []*models.SyncStatus) {
	type cardKey struct {
		source, dest string
		id           int
	}
	cards := map[cardKey]*models.SyncStatus{}
	var dashboards []*models.SyncStatus
	for _, st := range rows {
		if st.Entity.Type == models.EntityDashboard {
			dashboards = append(dashboards, st)
			continue
		}
		cards[cardKey{st.Source.Host, st.Destination.Host, st.Entity.ID()}] = st
	}

	const (
		unvisited = iota
		visiting
		done
	)
	state := map[*models.SyncStatus]int{}
	level := map[*models.SyncStatus]int{}
	var cyclic []*models.SyncStatus

	var visit func(st *models.SyncStatus) (int, bool)
	visit = func(st *models.SyncStatus) (int, bool) {
		switch state[st] {
		case visiting:
			return 0, false
		case done:
			lvl, ok := level[st]
			return lvl, ok
		}
		state[st] = visiting
		lvl, ok := 0, true
		for _, dep := range st.Entity.Card.DatasetQuery.CardDependencies() {
			target, selected := cards[cardKey{st.Source.Host, st.Destination.Host, dep}]
			if !selected {
				continue
			}
			depLevel, depOK := visit(target)
			if !depOK {
				ok = false
				continue
			}
			if depLevel+1 > lvl {
				lvl = depLevel + 1
			}
		}
		state[st] = done
		if ok {
			level[st] = lvl
		} else {
			cyclic = append(cyclic, st)
		}
		return lvl, ok
	}

	ordered := make([]*models.SyncStatus, 0, len(cards))
	for _, st := range rows {
		if st.Entity.Type == models.EntityCard {
			ordered = append(ordered, st)
		}
	}
	maxLevel := -1
	for _, st := range ordered {
		if lvl, ok := visit(st); ok && lvl > maxLevel {
			maxLevel = lvl
		}
	}

	levels := make([][]*models.SyncStatus, maxLevel+1)
	for _, st := range ordered {
		if lvl, ok := level[st]; ok {
			levels[lvl] = append(levels[lvl], st)
		}
	}
	if len(dashboards) > 0 {
		levels = append(levels, dashboards)
	}
	sort.SliceStable(cyclic, func(i, j int) bool { return cyclic[i].ID < cyclic[j].ID })
	return levels, cyclic
}

func batchRecord(res *Result, sources []*Source, rows []*models.SyncStatus) models.BatchRecord {
	rec := models.BatchRecord{
		ID:        res.BatchID,
		Timestamp: time.Now().UTC(),
		Outcome:   res.Outcome,
	}
	for _, src := range sources {
		rec.SourceHosts = append(rec.SourceHosts, src.Server.Host)
	}
	seen := map[string]bool{}
	for _, st := range rows {
		if !seen[st.Destination.Host] {
			seen[st.Destination.Host] = true
			rec.DestinationHosts = append(rec.DestinationHosts, st.Destination.Host)
		}
	}
	for _, item := range res.Items {
		ir := models.ItemRecord{
			SyncID: item.Status.ID,
			Name:   item.Status.Entity.Name(),
			Type:   item.Status.Entity.Type,
			Status: item.Status.Status,
		}
		if item.Err != nil {
			ir.Error = item.Err.Error()
		}
		rec.Items = append(rec.Items, ir)
	}
	return rec
}

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/BartekS5/cardsync/internal/syncer"
	"github.com/BartekS5/cardsync/pkg/models"
	"github.com/olekukonko/tablewriter"
)

const (
	outputTable = "table"
	outputJSON  = "json"
)

// statusRow is the printable form of a SyncStatus.
type statusRow struct {
	ID          string `json:"id"`
	Destination string `json:"destination"`
	Type        string `json:"type"`
	Name        string `json:"name"`
	Collection  string `json:"collection"`
	Status      string `json:"status"`
	MappedID    *int   `json:"mappedId,omitempty"`
	Excluded    bool   `json:"excluded"`
	Error       string `json:"error,omitempty"`
}

func toRow(st *models.SyncStatus) statusRow {
	r := statusRow{
		ID:          st.ID,
		Destination: st.Destination.Host,
		Type:        string(st.Entity.Type),
		Name:        st.Entity.Name(),
		Collection:  strings.Join(st.Entity.CollectionPath, " / "),
		Status:      string(st.Status),
		Excluded:    st.Excluded,
		Error:       st.Error,
	}
	if st.Entity.IsDependent() {
		r.Type += " (dependent)"
	}
	if id, ok := st.MappedID(); ok {
		r.MappedID = &id
	}
	return r
}

func writeJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func printStatuses(w io.Writer, format string, statuses []*models.SyncStatus) error {
	rows := make([]statusRow, len(statuses))
	for i, st := range statuses {
		rows[i] = toRow(st)
	}
	if format == outputJSON {
		return writeJSON(w, rows)
	}

	tw := tablewriter.NewWriter(w)
	tw.SetHeader([]string{"Destination", "Collection", "Type", "Name", "Status", "Mapped", "Note"})
	for _, r := range rows {
		mapped := ""
		if r.MappedID != nil {
			mapped = fmt.Sprint(*r.MappedID)
		}
		note := r.Error
		if r.Excluded {
			note = "excluded"
		}
		tw.Append([]string{r.Destination, r.Collection, r.Type, r.Name, r.Status, mapped, note})
	}
	tw.Render()
	return nil
}

type resultItem struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type resultView struct {
	BatchID   string       `json:"batchId"`
	Outcome   string       `json:"outcome"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	Skipped   int          `json:"skipped"`
	Items     []resultItem `json:"items"`
}

func printResult(w io.Writer, format string, res *syncer.Result) error {
	view := resultView{
		BatchID:   res.BatchID,
		Outcome:   string(res.Outcome),
		Succeeded: res.Succeeded,
		Failed:    res.Failed,
		Skipped:   res.Skipped,
	}
	for _, item := range res.Items {
		ri := resultItem{ID: item.Status.ID, Name: item.Status.Entity.Name(), Status: string(item.Status.Status)}
		if item.Err != nil {
			ri.Error = item.Err.Error()
		}
		view.Items = append(view.Items, ri)
	}
	if format == outputJSON {
		return writeJSON(w, view)
	}

	tw := tablewriter.NewWriter(w)
	tw.SetHeader([]string{"Item", "Status", "Error"})
	for _, ri := range view.Items {
		tw.Append([]string{ri.ID, ri.Status, ri.Error})
	}
	tw.Render()
	fmt.Fprintf(w, "Batch %s: %s (%d succeeded, %d failed, %d skipped)\n",
		view.BatchID, view.Outcome, view.Succeeded, view.Failed, view.Skipped)
	return nil
}

func printMappings(w io.Writer, format string, mappings []models.SyncMapping) error {
	if format == outputJSON {
		if mappings == nil {
			mappings = []models.SyncMapping{}
		}
		return writeJSON(w, mappings)
	}
	tw := tablewriter.NewWriter(w)
	tw.SetHeader([]string{"Type", "Source", "Source ID", "Destination", "Destination ID"})
	for _, m := range mappings {
		tw.Append([]string{string(m.Type), m.SourceServer, m.SourceEntityID, m.DestinationServer, m.DestinationEntityID})
	}
	tw.Render()
	return nil
}

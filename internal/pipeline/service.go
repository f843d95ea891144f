package pipeline

import (
	"context"
	"fmt"
	"time"

	"carecount/internal"
	"carecount/internal/storage"
	"carecount/internal/util"
)

// LogService ties normalization, the ingest reconciler, and the local audit
// trail together for one volunteer interaction. The reconciler's store may
// be the local database or the remote backend; audit events always go local.
type LogService struct {
	db   *storage.DB
	rec  *Reconciler
	norm *Normalizer
}

func NewLogService(db *storage.DB, rec *Reconciler, norm *Normalizer) *LogService {
	return &LogService{db: db, rec: rec, norm: norm}
}

// ItemInput is the volunteer-entered (or recognizer-suggested, then edited)
// form content for one item.
type ItemInput struct {
	Name     string
	Qty      int
	Category string
	Unit     string
	Barcode  string
}

// LogItem persists one item against a visit, stamping it with the current
// time.
func (s *LogService) LogItem(ctx context.Context, email string, visitID int, in ItemInput) (internal.IngestResult, internal.LoggedItem, error) {
	return s.LogItemAt(ctx, email, visitID, in, time.Now().UTC())
}

// LogItemAt is LogItem with an explicit timestamp so batch imports share one
// submission time and dedup correctly on resubmit.
func (s *LogService) LogItemAt(ctx context.Context, email string, visitID int, in ItemInput, at time.Time) (internal.IngestResult, internal.LoggedItem, error) {
	nameClean := util.CleanText(in.Name, internal.MaxItemNameLen)
	if nameClean == nil {
		return internal.IngestResult{}, internal.LoggedItem{}, fmt.Errorf("item name is required")
	}
	if visitID <= 0 {
		return internal.IngestResult{}, internal.LoggedItem{}, fmt.Errorf("start a visit first, then save items")
	}
	qty := in.Qty
	if qty < 1 {
		qty = 1
	}

	ts := at.Format(time.RFC3339)
	item := internal.LoggedItem{
		VisitID:        visitID,
		VolunteerEmail: email,
		ItemName:       *nameClean,
		Qty:            qty,
		Category:       util.CleanText(in.Category, 80),
		Unit:           util.CleanText(in.Unit, 40),
		Barcode:        util.CleanText(in.Barcode, 64),
		Timestamp:      ts,
	}
	item.IngestID = ComputeIngestID(item.VisitID, item.VolunteerEmail, item.ItemName, item.Qty, item.Timestamp)

	result := s.rec.Ingest(ctx, item)

	_ = s.db.InsertEvent(email, "item_log", map[string]any{
		"visit_id":  item.VisitID,
		"item_name": item.ItemName,
		"qty":       item.Qty,
		"ingest_id": item.IngestID,
		"outcome":   string(result.Outcome),
	})

	return result, item, nil
}

// ImportReport summarizes one manifest run. Total always equals
// Ingested + Failed + Skipped.
type ImportReport struct {
	Total    int
	Ingested int
	Failed   int
	Skipped  int
	Results  []internal.IngestResult
}

// ImportManifest normalizes and ingests every manifest line under one shared
// batch timestamp. Lines that normalize to nothing are skipped, not failed.
func (s *LogService) ImportManifest(ctx context.Context, email string, visitID int, items []internal.ManifestItem) (ImportReport, error) {
	report := ImportReport{Total: len(items)}
	batchAt := time.Now().UTC()

	for _, m := range items {
		name := s.norm.Normalize(m.Name)
		if name.IsEmpty() {
			report.Skipped++
			continue
		}

		qty := 1
		if m.Qty != nil && *m.Qty >= 1 {
			qty = int(*m.Qty)
		}
		unit := ""
		if m.Unit != nil {
			unit = *m.Unit
		}

		result, _, err := s.LogItemAt(ctx, email, visitID, ItemInput{Name: name.Value, Qty: qty, Unit: unit}, batchAt)
		if err != nil {
			report.Failed++
			continue
		}
		report.Results = append(report.Results, result)
		if result.Succeeded() {
			report.Ingested++
		} else {
			report.Failed++
		}
	}

	_ = s.db.InsertEvent(email, "manifest_import", map[string]any{
		"visit_id": visitID,
		"total":    report.Total,
		"ingested": report.Ingested,
		"failed":   report.Failed,
		"skipped":  report.Skipped,
	})

	return report, nil
}

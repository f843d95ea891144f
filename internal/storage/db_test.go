package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"carecount/internal"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "app.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func loggedItem(visitID int, name string, qty int, ts string) internal.LoggedItem {
	return internal.LoggedItem{
		VisitID:        visitID,
		VolunteerEmail: "vol@example.org",
		ItemName:       name,
		Qty:            qty,
		Timestamp:      ts,
		IngestID:       "id-" + name + "-" + ts,
	}
}

func TestVisitLifecycle(t *testing.T) {
	db := openTestDB(t)

	now := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	first, err := db.StartVisit("vol@example.org", now)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(first.VisitCode, "V-1-20260830-") {
		t.Fatalf("visit code = %q", first.VisitCode)
	}

	second, err := db.StartVisit("vol@example.org", now)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(second.VisitCode, "V-2-20260830-") {
		t.Fatalf("second visit code = %q", second.VisitCode)
	}

	active, err := db.ActiveVisit()
	if err != nil {
		t.Fatal(err)
	}
	if active == nil || active.ID != second.ID {
		t.Fatalf("active = %+v", active)
	}

	if err := db.EndVisit(second.ID, "2026-08-30T11:00:00Z"); err != nil {
		t.Fatal(err)
	}
	if err := db.EndVisit(second.ID, "2026-08-30T11:00:00Z"); err == nil {
		t.Fatal("ending an ended visit must fail")
	}
}

func TestValidatedIngestRules(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	visit, err := db.StartVisit("vol@example.org", time.Now())
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name string
		item internal.LoggedItem
		ok   bool
	}{
		{name: "valid", item: loggedItem(visit.ID, "Soup", 2, "2026-08-30T12:00:00Z"), ok: true},
		{name: "zero qty", item: loggedItem(visit.ID, "Tea", 0, "2026-08-30T12:00:01Z"), ok: false},
		{name: "blank name", item: loggedItem(visit.ID, "  ", 1, "2026-08-30T12:00:02Z"), ok: false},
		{name: "missing visit", item: loggedItem(visit.ID+99, "Rice", 1, "2026-08-30T12:00:03Z"), ok: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, msg, err := db.ValidatedIngest(ctx, tc.item)
			if err != nil {
				t.Fatal(err)
			}
			if ok != tc.ok {
				t.Fatalf("ok = %v (%s), want %v", ok, msg, tc.ok)
			}
		})
	}
}

func TestValidatedIngestRejectsClosedVisit(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	visit, err := db.StartVisit("vol@example.org", time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if err := db.EndVisit(visit.ID, "2026-08-30T11:00:00Z"); err != nil {
		t.Fatal(err)
	}

	ok, msg, err := db.ValidatedIngest(ctx, loggedItem(visit.ID, "Soup", 1, "2026-08-30T12:00:00Z"))
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("ingest into a checked-out visit must be rejected")
	}
	if !strings.Contains(msg, "checked out") {
		t.Fatalf("msg = %q", msg)
	}
}

func TestIngestIDUniqueIsNoOp(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	visit, err := db.StartVisit("vol@example.org", time.Now())
	if err != nil {
		t.Fatal(err)
	}

	item := loggedItem(visit.ID, "Soup", 2, "2026-08-30T12:00:00Z")
	for i := 0; i < 2; i++ {
		ok, _, err := db.ValidatedIngest(ctx, item)
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			t.Fatalf("attempt %d not ok", i)
		}
	}

	items, err := db.ListVisitItems(visit.ID, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1", len(items))
	}
}

func TestLegacyInsertAndDelete(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	visit, err := db.StartVisit("vol@example.org", time.Now())
	if err != nil {
		t.Fatal(err)
	}

	if err := db.InsertLegacy(ctx, loggedItem(visit.ID, "Beans", 4, "2026-08-30T12:00:00Z")); err != nil {
		t.Fatal(err)
	}

	items, err := db.ListVisitItems(visit.ID, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].Table != internal.TableLegacy {
		t.Fatalf("items = %+v", items)
	}
	if items[0].IngestID != nil {
		t.Fatal("legacy rows carry no ingest id")
	}

	if err := db.DeleteItem(items[0].Table, items[0].ID); err != nil {
		t.Fatal(err)
	}
	if err := db.DeleteItem(items[0].Table, items[0].ID); err == nil {
		t.Fatal("deleting a missing item must fail")
	}
	if err := db.DeleteItem("orders", items[0].ID); err == nil {
		t.Fatal("unknown table must be rejected")
	}
}

func TestDeleteItemTargetsNamedTable(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	visit, err := db.StartVisit("vol@example.org", time.Now())
	if err != nil {
		t.Fatal(err)
	}

	// Each table auto-increments on its own, so the first row in either one
	// gets id 1. Deleting the legacy row must not touch the preferred row
	// that happens to share its id.
	if err := db.InsertPreferred(ctx, loggedItem(visit.ID, "Soup", 1, "2026-08-30T12:00:00Z")); err != nil {
		t.Fatal(err)
	}
	if err := db.InsertLegacy(ctx, loggedItem(visit.ID, "Tea", 1, "2026-08-30T12:01:00Z")); err != nil {
		t.Fatal(err)
	}

	items, err := db.ListVisitItems(visit.ID, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	var legacy internal.ItemRow
	for _, item := range items {
		if item.Table == internal.TableLegacy {
			legacy = item
		}
	}
	if legacy.ItemName != "Tea" {
		t.Fatalf("legacy row = %+v", legacy)
	}

	if err := db.DeleteItem(legacy.Table, legacy.ID); err != nil {
		t.Fatal(err)
	}

	remaining, err := db.ListVisitItems(visit.ID, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(remaining) != 1 {
		t.Fatalf("remaining = %d, want 1", len(remaining))
	}
	if remaining[0].Table != internal.TablePreferred || remaining[0].ItemName != "Soup" {
		t.Fatalf("survivor = %+v, want the preferred Soup row", remaining[0])
	}
}

func TestListVisitItemsCapsMergedResult(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	visit, err := db.StartVisit("vol@example.org", time.Now())
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		ts := fmt.Sprintf("2026-08-30T12:00:0%dZ", i)
		if err := db.InsertPreferred(ctx, loggedItem(visit.ID, "Soup", 1, ts)); err != nil {
			t.Fatal(err)
		}
		if err := db.InsertLegacy(ctx, loggedItem(visit.ID, "Tea", 1, ts)); err != nil {
			t.Fatal(err)
		}
	}

	items, err := db.ListVisitItems(visit.ID, 4)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 4 {
		t.Fatalf("items = %d, want the limit applied to the merged rows", len(items))
	}
	for _, item := range items[:3] {
		if item.Table != internal.TablePreferred {
			t.Fatalf("preferred rows must fill first, got %+v", item)
		}
	}
}

func TestCountsAndDailyActivity(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	visit, err := db.StartVisit("vol@example.org", time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}

	if err := db.InsertPreferred(ctx, loggedItem(visit.ID, "Soup", 1, "2026-08-30T12:00:00Z")); err != nil {
		t.Fatal(err)
	}
	if err := db.InsertLegacy(ctx, loggedItem(visit.ID, "Tea", 1, "2026-08-30T13:00:00Z")); err != nil {
		t.Fatal(err)
	}
	if err := db.InsertPreferred(ctx, loggedItem(visit.ID, "Rice", 1, "2026-08-29T12:00:00Z")); err != nil {
		t.Fatal(err)
	}

	today, err := db.ItemsLoggedOnDay("vol@example.org", "2026-08-30")
	if err != nil {
		t.Fatal(err)
	}
	if today != 2 {
		t.Fatalf("today = %d, want 2", today)
	}

	lifetime, err := db.LifetimeItems("vol@example.org")
	if err != nil {
		t.Fatal(err)
	}
	if lifetime != 3 {
		t.Fatalf("lifetime = %d, want 3", lifetime)
	}

	activity, err := db.DailyActivity("2026-08-30")
	if err != nil {
		t.Fatal(err)
	}
	if activity.Visits != 1 || activity.Items != 2 {
		t.Fatalf("activity = %+v", activity)
	}
}

func TestVolunteerShift(t *testing.T) {
	db := openTestDB(t)

	if err := db.SignInVolunteer("vol@example.org", "2026-08-30T09:00:00Z"); err != nil {
		t.Fatal(err)
	}
	row, err := db.GetVolunteer("vol@example.org")
	if err != nil {
		t.Fatal(err)
	}
	if row == nil || row.ShiftStartedAt == nil || row.ShiftEndedAt != nil {
		t.Fatalf("row = %+v", row)
	}

	if err := db.EndShift("vol@example.org", "2026-08-30T17:00:00Z"); err != nil {
		t.Fatal(err)
	}
	row, err = db.GetVolunteer("vol@example.org")
	if err != nil {
		t.Fatal(err)
	}
	if row.ShiftEndedAt == nil {
		t.Fatal("shift not ended")
	}

	// Signing back in reopens the shift.
	if err := db.SignInVolunteer("vol@example.org", "2026-08-31T09:00:00Z"); err != nil {
		t.Fatal(err)
	}
	row, err = db.GetVolunteer("vol@example.org")
	if err != nil {
		t.Fatal(err)
	}
	if row.ShiftEndedAt != nil {
		t.Fatal("shift_ended_at should reset on sign-in")
	}
}

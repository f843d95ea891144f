package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"carecount/internal"
	"carecount/internal/config"
	"carecount/internal/pipeline"
	"carecount/internal/recognizer"
	"carecount/internal/remote"
	"carecount/internal/storage"
	"carecount/internal/vocab"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	voc, err := vocab.Load(cfg.VocabPath)
	must(err)
	norm := pipeline.NewNormalizer(voc)
	logsvc := pipeline.NewLogService(db, pipeline.NewReconciler(itemStore(cfg, db)), norm)

	ctx := context.Background()
	cmd := os.Args[1]
	switch cmd {
	case "shift:start":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		email := fs.String("email", "", "volunteer email")
		_ = fs.Parse(os.Args[2:])
		must(cfg.Require("--email", *email))
		must(db.SignInVolunteer(*email, nowISO()))
		_ = db.InsertEvent(*email, "login", map[string]any{"method": "cli"})
		fmt.Printf("shift started for %s\n", *email)
	case "shift:end":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		email := fs.String("email", "", "volunteer email")
		_ = fs.Parse(os.Args[2:])
		must(cfg.Require("--email", *email))
		must(db.EndShift(*email, nowISO()))
		_ = db.InsertEvent(*email, "shift_end", map[string]any{"reason": "manual"})
		fmt.Printf("shift ended for %s\n", *email)
	case "visit:start":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		email := fs.String("email", "", "volunteer email")
		_ = fs.Parse(os.Args[2:])
		must(cfg.Require("--email", *email))
		visit, err := db.StartVisit(*email, time.Now())
		must(err)
		_ = db.InsertEvent(*email, "visit_start", map[string]any{"visit_id": visit.ID, "visit_code": visit.VisitCode})
		fmt.Printf("visit #%d started, code: %s\n", visit.ID, visit.VisitCode)
	case "visit:end":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		visitID := fs.Int("visitId", 0, "visit id")
		_ = fs.Parse(os.Args[2:])
		if *visitID == 0 {
			must(fmt.Errorf("--visitId is required"))
		}
		must(db.EndVisit(*visitID, nowISO()))
		fmt.Printf("visit #%d checked out\n", *visitID)
	case "item:identify":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		imagePath := fs.String("image", "", "item photo path")
		_ = fs.Parse(os.Args[2:])
		must(cfg.Require("--image", *imagePath))
		chain, err := recognizer.BuildChain(cfg, norm)
		must(err)
		image, err := os.ReadFile(*imagePath)
		must(err)
		name, observations, err := chain.Identify(ctx, image)
		for _, obs := range observations {
			fmt.Printf("%s: %s\n", obs.Source, obs.Text)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		}
		fmt.Printf("normalized: %s\n", name.Value)
	case "item:log":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		email := fs.String("email", "", "volunteer email")
		visitID := fs.Int("visitId", 0, "visit id")
		name := fs.String("name", "", "item name")
		qty := fs.Int("qty", 1, "quantity")
		category := fs.String("category", "", "category")
		unit := fs.String("unit", "", "unit, e.g. 500 mL")
		barcode := fs.String("barcode", "", "barcode")
		raw := fs.Bool("raw", false, "skip normalization, log the name as typed")
		_ = fs.Parse(os.Args[2:])
		must(cfg.Require("--email", *email))
		value := *name
		if !*raw {
			value = norm.Normalize(*name).Value
		}
		result, item, err := logsvc.LogItem(ctx, *email, *visitID, pipeline.ItemInput{
			Name: value, Qty: *qty, Category: *category, Unit: *unit, Barcode: *barcode,
		})
		must(err)
		fmt.Printf("%s: %s (ingest id %s)\n", result.Outcome, result.Message, item.IngestID)
		for _, a := range result.Attempts {
			fmt.Printf("  %s ok=%v %s\n", a.Stage, a.OK, a.Detail)
		}
		if !result.Succeeded() {
			os.Exit(1)
		}
	case "item:list":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		visitID := fs.Int("visitId", 0, "visit id")
		limit := fs.Int("limit", 500, "max rows")
		_ = fs.Parse(os.Args[2:])
		items, err := db.ListVisitItems(*visitID, *limit)
		must(err)
		for _, item := range items {
			fmt.Printf("%d\t%s\t%s\tx%d\t%s\n", item.ID, item.Table, item.ItemName, item.Qty, item.Timestamp)
		}
		fmt.Printf("%d items\n", len(items))
	case "item:delete":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		itemID := fs.Int("id", 0, "item id")
		table := fs.String("table", "", "table the row was listed from (visit_items_p|visit_items)")
		_ = fs.Parse(os.Args[2:])
		if *itemID == 0 {
			must(fmt.Errorf("--id is required"))
		}
		must(cfg.Require("--table", *table))
		must(db.DeleteItem(internal.ItemTable(*table), *itemID))
		fmt.Println("deleted")
	case "import:manifest":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		email := fs.String("email", "", "volunteer email")
		visitID := fs.Int("visitId", 0, "visit id")
		input := fs.String("input", "", "manifest file path")
		inType := fs.String("type", "", "text|html|xlsx|pdf")
		_ = fs.Parse(os.Args[2:])
		must(cfg.Require("--email", *email))
		must(cfg.Require("--input", *input))
		must(cfg.Require("--type", *inType))
		items, err := pipeline.ExtractManifest(*inType, *input)
		must(err)
		report, err := logsvc.ImportManifest(ctx, *email, *visitID, items)
		must(err)
		fmt.Printf("manifest import: total=%d ingested=%d failed=%d skipped=%d\n",
			report.Total, report.Ingested, report.Failed, report.Skipped)
	case "export:xlsx":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		visitID := fs.Int("visitId", 0, "visit id")
		out := fs.String("out", "", "output xlsx path (default OUTPUT_DIR/visit-<id>.xlsx)")
		_ = fs.Parse(os.Args[2:])
		if *visitID == 0 {
			must(fmt.Errorf("--visitId is required"))
		}
		if strings.TrimSpace(*out) == "" {
			*out = filepath.Join(cfg.OutputDir, fmt.Sprintf("visit-%d.xlsx", *visitID))
		}
		items, err := db.ListVisitItems(*visitID, 0)
		must(err)
		if len(items) == 0 {
			must(fmt.Errorf("no items for visitId=%d", *visitID))
		}
		must(pipeline.ExportItemsToXLSX(items, *out))
		fmt.Printf("exported %d items to %s\n", len(items), *out)
	case "impact":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		email := fs.String("email", "", "volunteer email")
		_ = fs.Parse(os.Args[2:])
		must(cfg.Require("--email", *email))
		day := time.Now().Format("2006-01-02")
		today, err := db.ItemsLoggedOnDay(*email, day)
		must(err)
		lifetime, err := db.LifetimeItems(*email)
		must(err)
		fmt.Printf("items today: %d · lifetime: %d\n", today, lifetime)
		if row, err := db.GetVolunteer(*email); err == nil && row != nil && row.TotalHours != nil {
			fmt.Printf("lifetime hours: %.1f\n", *row.TotalHours)
		}
	case "today":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		out := fs.String("out", "", "optional xlsx path for the day's numbers")
		_ = fs.Parse(os.Args[2:])
		day := time.Now().Format("2006-01-02")
		activity, err := db.DailyActivity(day)
		must(err)
		fmt.Printf("%s · visits: %d · items: %d\n", activity.Day, activity.Visits, activity.Items)
		if strings.TrimSpace(*out) != "" {
			must(pipeline.ExportDailyActivityToXLSX([]internal.DailyActivity{activity}, *out))
			fmt.Printf("wrote %s\n", *out)
		}
	default:
		usage()
		os.Exit(1)
	}
}

// itemStore picks the ingest destination: the hosted backend when
// configured, otherwise the local database.
func itemStore(cfg config.Config, db *storage.DB) pipeline.ItemStore {
	if strings.TrimSpace(cfg.RemoteBaseURL) != "" {
		return remote.NewClient(cfg)
	}
	return db
}

func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func usage() {
	fmt.Println("usage: carecount <command>")
	fmt.Println("commands:")
	fmt.Println("  shift:start --email=...")
	fmt.Println("  shift:end --email=...")
	fmt.Println("  visit:start --email=...")
	fmt.Println("  visit:end --visitId=1")
	fmt.Println("  item:identify --image=./item.png")
	fmt.Println("  item:log --email=... --visitId=1 --name=... [--qty=1] [--category=] [--unit=] [--barcode=] [--raw]")
	fmt.Println("  item:list --visitId=1")
	fmt.Println("  item:delete --id=1 --table=visit_items_p|visit_items")
	fmt.Println("  import:manifest --email=... --visitId=1 --input=./manifest.xlsx --type=text|html|xlsx|pdf")
	fmt.Println("  export:xlsx --visitId=1 [--out=./out/visit.xlsx]")
	fmt.Println("  impact --email=...")
	fmt.Println("  today [--out=./out/today.xlsx]")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

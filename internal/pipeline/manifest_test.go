package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"carecount/internal"
)

func TestParseManifestText(t *testing.T) {
	text := `Donation drop-off list
Canned soup 12 cans
Peanut butter 3 jars
Water 500 ml 24 bottles
--------
Thank you!
http://example.org
`
	items := parseManifestText(text)
	if len(items) != 4 {
		t.Fatalf("items = %d, want 4 (header line plus three products)", len(items))
	}

	soup := items[1]
	if soup.Qty == nil || *soup.Qty != 12 {
		t.Fatalf("soup qty = %v", soup.Qty)
	}
	if soup.Name != "Canned soup" {
		t.Fatalf("soup name = %q", soup.Name)
	}

	water := items[3]
	if water.Qty == nil || *water.Qty != 24 {
		t.Fatalf("water qty = %v", water.Qty)
	}
}

func TestParseManifestHTML(t *testing.T) {
	html := `<html><body><table>
<tr><th>Item</th><th>Qty</th><th>Unit</th></tr>
<tr><td>Tomato soup</td><td>6</td><td>can</td></tr>
<tr><td>Rice</td><td>2</td><td>bag</td></tr>
</table></body></html>`

	items := parseManifestHTML(html)
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	if items[0].Name != "Tomato soup" {
		t.Fatalf("name = %q", items[0].Name)
	}
	if items[0].Qty == nil || *items[0].Qty != 6 {
		t.Fatalf("qty = %v", items[0].Qty)
	}
	if items[0].Unit == nil || *items[0].Unit != "can" {
		t.Fatalf("unit = %v", items[0].Unit)
	}
	if items[1].Source != internal.ManifestHTML {
		t.Fatalf("source = %s", items[1].Source)
	}
}

func TestExtractManifestXLSX(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "manifest.xlsx")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]any{
		{"Item", "Quantity", "Unit"},
		{"Pasta", 10, "box"},
		{"Cooking oil", 4, "bottle"},
	}
	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				t.Fatal(err)
			}
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	_ = f.Close()

	items, err := ExtractManifest("xlsx", path)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	if items[0].Name != "Pasta" {
		t.Fatalf("name = %q", items[0].Name)
	}
	if items[1].Unit == nil || *items[1].Unit != "bottle" {
		t.Fatalf("unit = %v", items[1].Unit)
	}
}

func TestExtractManifestUnsupportedType(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "m.txt")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ExtractManifest("docx", path); err == nil {
		t.Fatal("expected error for unsupported type")
	}
}

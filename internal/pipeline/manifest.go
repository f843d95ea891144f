package pipeline

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	pdf "github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"

	"carecount/internal"
	"carecount/internal/util"
)

var ignorePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^--+$`),
	regexp.MustCompile(`(?i)^thank`),
	regexp.MustCompile(`(?i)^sincerely`),
	regexp.MustCompile(`(?i)^donated by\b`),
	regexp.MustCompile(`(?i)^total\b`),
	regexp.MustCompile(`(?i)^tel[:\s]`),
	regexp.MustCompile(`(?i)^e-?mail[:\s]`),
	regexp.MustCompile(`(?i)^http`),
}

var unitWords = regexp.MustCompile(`(?i)\b(pcs|pc|cans?|bottles?|boxe?s?|packs?|bags?|jars?|kg|g|lbs?|l|ml|oz)\b`)

var hasLetter = regexp.MustCompile(`[A-Za-z]`)

// ExtractManifest reads a donation manifest file and returns its item
// lines. Supported types: text, html, xlsx, pdf.
func ExtractManifest(inputType, path string) ([]internal.ManifestItem, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	switch inputType {
	case "text":
		return parseManifestText(string(blob)), nil
	case "html":
		return parseManifestHTML(string(blob)), nil
	case "xlsx":
		return parseManifestXLSX(blob)
	case "pdf":
		return parseManifestPDF(blob)
	default:
		return nil, fmt.Errorf("unsupported manifest type: %s", inputType)
	}
}

func parseManifestText(text string) []internal.ManifestItem {
	lines := splitLines(text)
	out := make([]internal.ManifestItem, 0, len(lines))
	lineNo := 0
	for _, line := range lines {
		lineNo++
		item := lineToManifestItem(internal.ManifestText, lineNo, line)
		if item == nil {
			continue
		}
		out = append(out, *item)
	}
	return renumber(out)
}

func parseManifestHTML(html string) []internal.ManifestItem {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	out := []internal.ManifestItem{}
	globalLine := 0
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		rows := table.Find("tr")
		if rows.Length() < 2 {
			return
		}

		headers := []string{}
		rows.First().Find("th,td").Each(func(_ int, cell *goquery.Selection) {
			headers = append(headers, strings.ToLower(strings.TrimSpace(cell.Text())))
		})

		nameIdx := findHeaderIndex(headers, []string{"item", "name", "product", "description"})
		qtyIdx := findHeaderIndex(headers, []string{"qty", "quantity", "count", "#"})
		unitIdx := findHeaderIndex(headers, []string{"unit", "size"})

		rows.Slice(1, rows.Length()).Each(func(_ int, row *goquery.Selection) {
			cells := []string{}
			row.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
				cells = append(cells, util.CollapseSpaces(cell.Text()))
			})
			if len(cells) == 0 {
				return
			}

			nameCell := pickCell(cells, nameIdx, 0)
			qtyCell := pickCell(cells, qtyIdx, -1)
			if qtyCell == "" {
				for _, c := range cells {
					if strings.ContainsAny(c, "0123456789") {
						qtyCell = c
						break
					}
				}
			}

			parsed := util.ParseQty(qtyCell)
			if strings.TrimSpace(nameCell) == "" {
				return
			}

			globalLine++
			item := internal.ManifestItem{
				LineNo:  globalLine,
				Source:  internal.ManifestHTML,
				RawLine: strings.Join(cells, " | "),
				Name:    nameCell,
				Qty:     parsed.Qty,
				Unit:    parsed.Unit,
			}
			if unit := pickCell(cells, unitIdx, -1); unit != "" {
				item.Unit = util.StringPtr(unit)
			}
			out = append(out, item)
		})
	})

	return out
}

func parseManifestXLSX(content []byte) ([]internal.ManifestItem, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	lineNo := 0
	out := []internal.ManifestItem{}
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}

		nameIdx, qtyIdx, unitIdx := -1, -1, -1
		for i, row := range rows {
			cells := normalizeCells(row)
			if len(cells) == 0 {
				continue
			}
			if i < 3 && nameIdx < 0 {
				nameIdx, qtyIdx, unitIdx = inferColumns(cells)
				if nameIdx >= 0 || qtyIdx >= 0 {
					continue
				}
			}
			if nameIdx < 0 {
				nameIdx, qtyIdx, unitIdx = 0, 1, 2
			}

			name := pickCell(cells, nameIdx, 0)
			qtyCell := pickCell(cells, qtyIdx, -1)
			if qtyCell == "" {
				qtyCell = strings.Join(cells, " ")
			}
			parsed := util.ParseQty(qtyCell)
			if strings.TrimSpace(name) == "" {
				continue
			}

			lineNo++
			item := internal.ManifestItem{
				LineNo:  lineNo,
				Source:  internal.ManifestXLSX,
				RawLine: strings.Join(cells, " | "),
				Name:    name,
				Qty:     parsed.Qty,
				Unit:    parsed.Unit,
			}
			if unit := pickCell(cells, unitIdx, -1); unit != "" {
				item.Unit = util.StringPtr(unit)
			}
			out = append(out, item)
		}
	}

	return out, nil
}

func parseManifestPDF(content []byte) ([]internal.ManifestItem, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, err
	}

	out := []internal.ManifestItem{}
	lineNo := 0
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		for _, line := range splitLines(text) {
			lineNo++
			item := lineToManifestItem(internal.ManifestPDF, lineNo, line)
			if item == nil {
				continue
			}
			out = append(out, *item)
		}
	}
	return renumber(out), nil
}

func lineToManifestItem(source internal.ManifestSource, lineNo int, rawLine string) *internal.ManifestItem {
	compact := util.CollapseSpaces(rawLine)
	if compact == "" || isLikelyNoise(compact) {
		return nil
	}
	if !hasLetter.MatchString(compact) {
		return nil
	}

	parsed := util.ParseQty(compact)
	name := compact
	if parsed.QtyRaw != nil {
		if idx := strings.LastIndex(name, *parsed.QtyRaw); idx >= 0 {
			name = name[:idx] + " " + name[idx+len(*parsed.QtyRaw):]
		}
	}
	name = util.CollapseSpaces(unitWords.ReplaceAllString(name, " "))
	if name == "" {
		return nil
	}

	return &internal.ManifestItem{
		LineNo:  lineNo,
		Source:  source,
		RawLine: compact,
		Name:    name,
		Qty:     parsed.Qty,
		Unit:    parsed.Unit,
	}
}

func isLikelyNoise(line string) bool {
	for _, p := range ignorePatterns {
		if p.MatchString(line) {
			return true
		}
	}
	return false
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	parts := strings.Split(text, "\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func findHeaderIndex(headers []string, needles []string) int {
	for i, h := range headers {
		for _, n := range needles {
			if strings.Contains(h, n) {
				return i
			}
		}
	}
	return -1
}

func pickCell(cells []string, idx, fallback int) string {
	if idx >= 0 && idx < len(cells) {
		return strings.TrimSpace(cells[idx])
	}
	if fallback >= 0 && fallback < len(cells) {
		return strings.TrimSpace(cells[fallback])
	}
	return ""
}

func normalizeCells(row []string) []string {
	out := make([]string, 0, len(row))
	empty := true
	for _, cell := range row {
		c := util.CollapseSpaces(cell)
		if c != "" {
			empty = false
		}
		out = append(out, c)
	}
	if empty {
		return nil
	}
	return out
}

func inferColumns(cells []string) (nameIdx, qtyIdx, unitIdx int) {
	nameIdx, qtyIdx, unitIdx = -1, -1, -1
	for i, cell := range cells {
		low := strings.ToLower(cell)
		switch {
		case nameIdx < 0 && (strings.Contains(low, "item") || strings.Contains(low, "name") || strings.Contains(low, "product") || strings.Contains(low, "description")):
			nameIdx = i
		case qtyIdx < 0 && (strings.Contains(low, "qty") || strings.Contains(low, "quantity") || strings.Contains(low, "count")):
			qtyIdx = i
		case unitIdx < 0 && (strings.Contains(low, "unit") || strings.Contains(low, "size")):
			unitIdx = i
		}
	}
	return nameIdx, qtyIdx, unitIdx
}

func renumber(items []internal.ManifestItem) []internal.ManifestItem {
	for i := range items {
		items[i].LineNo = i + 1
	}
	return items
}

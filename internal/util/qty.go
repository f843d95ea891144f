package util

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	unitPattern    = regexp.MustCompile(`(?i)\b(pcs|pc|cans?|bottles?|boxe?s?|packs?|bags?|jars?|kg|g|lbs?|l|ml|oz)\b`)
	numberPattern  = regexp.MustCompile(`(?i)(?:^|[^0-9.,])(\d{1,3}(?:[\s,]\d{3})+|\d+(?:[.,]\d+)?)`)
	qtyWithUnit    = regexp.MustCompile(`(?i)(?:^|[^0-9.,])(\d{1,3}(?:[\s,]\d{3})+|\d+(?:[.,]\d+)?)\s*(pcs|pc|cans?|bottles?|boxe?s?|packs?|bags?|jars?|kg|g|lbs?|l|ml|oz)\b`)
	thousandGroups = regexp.MustCompile(`^\d{1,3}(?:,\d{3})+$`)
)

type ParsedQty struct {
	Qty    *float64
	Unit   *string
	QtyRaw *string
}

// ParseQty pulls the last quantity-looking token out of a manifest line,
// preferring one followed by a unit word.
func ParseQty(input string) ParsedQty {
	line := strings.ReplaceAll(input, " ", " ")

	qtyRaw := ""
	qtyToken := ""

	if wm := qtyWithUnit.FindAllStringSubmatch(line, -1); len(wm) > 0 {
		last := wm[len(wm)-1]
		qtyRaw = strings.TrimSpace(last[1] + " " + last[2])
		qtyToken = strings.TrimSpace(last[1])
	} else if nm := numberPattern.FindAllStringSubmatch(line, -1); len(nm) > 0 {
		last := nm[len(nm)-1]
		qtyRaw = strings.TrimSpace(last[1])
		qtyToken = qtyRaw
	}

	var qtyPtr *float64
	if qtyToken != "" {
		norm := normalizeNumericToken(qtyToken)
		if parsed, err := strconv.ParseFloat(norm, 64); err == nil {
			qtyPtr = FloatPtr(parsed)
		}
	}

	var unitPtr *string
	if um := unitPattern.FindStringSubmatch(line); len(um) > 1 {
		u := normalizeUnit(um[1])
		unitPtr = &u
	}

	var qtyRawPtr *string
	if qtyRaw != "" {
		qtyRawPtr = &qtyRaw
	}

	return ParsedQty{Qty: qtyPtr, Unit: unitPtr, QtyRaw: qtyRawPtr}
}

func normalizeUnit(unit string) string {
	u := strings.ToLower(strings.TrimSpace(unit))
	switch u {
	case "pc", "pcs":
		return "pcs"
	case "can", "cans":
		return "can"
	case "bottle", "bottles":
		return "bottle"
	case "box", "boxes":
		return "box"
	case "pack", "packs":
		return "pack"
	case "bag", "bags":
		return "bag"
	case "jar", "jars":
		return "jar"
	case "lb", "lbs":
		return "lb"
	default:
		return u
	}
}

func normalizeNumericToken(token string) string {
	compact := strings.ReplaceAll(token, " ", "")
	if thousandGroups.MatchString(compact) {
		return strings.ReplaceAll(compact, ",", "")
	}
	if strings.Contains(compact, ",") && !strings.Contains(compact, ".") {
		return strings.ReplaceAll(compact, ",", ".")
	}
	return compact
}

// Package extractor turns an SEM105 "Outstanding Sales Order Listing" PDF
// into order lines.
//
// The listing is a fixed report layout: a column header row, one
// "SO-<n> <customer>" row per sales order, followed by numbered item rows
// carrying the item code, description, location code, delivery date and
// outstanding quantity.
package extractor

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	reSOHeader   = regexp.MustCompile(`^(SO-\d+)\s+(.+)$`)
	reSOAnywhere = regexp.MustCompile(`\bSO-\d+\b`)
	reLocation   = regexp.MustCompile(`\bAVINA\d{2,3}\b`)
	reDate       = regexp.MustCompile(`\b(\d{1,2}/\d{1,2}/\d{2,4})\b`)
	reDateToken  = regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{2,4}$`)
	reSeqStart   = regexp.MustCompile(`^\d+\s+`)
)

// unitSuffixes terminate an item code. Text glued after them belongs to the
// next column, e.g. "TCD029-20PKT/BAGTRENDCELL".
var unitSuffixes = []string{
	"/BAG", "/PKT", "/KG", "/BOX", "/CTN",
	"/PCS", "/SET", "/TIN", "/BTL", "/ROLL",
	"/PAC", "/PAK", "/UNIT", "/G",
}

// OrderLine is one extracted item row
type OrderLine struct {
	Seq          int     `json:"seq"`
	SONumber     string  `json:"soNumber"`
	Customer     string  `json:"customer"`
	ItemCode     string  `json:"itemCode"`
	Description  string  `json:"description"`
	LocationCode string  `json:"locationCode"`
	Qty          float64 `json:"qty"`
	DeliveryDate string  `json:"deliveryDate"`
}

// ParsedDocument is the result of a successful extraction
type ParsedDocument struct {
	SONumbers    []string
	Customer     string
	DeliveryDate string
	LocationCode string
	Lines        []OrderLine
}

// Extract reads the PDF and parses the listing layout
func Extract(data []byte) (*ParsedDocument, error) {
	rows, err := ReadRows(data)
	if err != nil {
		return nil, err
	}
	return ParseRows(rows)
}

// ParseRows parses already extracted text rows. Any layout problem fails the
// whole document and no lines are returned.
func ParseRows(rows []string) (*ParsedDocument, error) {
	doc := &ParsedDocument{}
	customers := map[string]string{}
	var problems []string

	headerSeen := false
	for _, row := range rows {
		if isColumnHeader(row) {
			headerSeen = true
			break
		}
	}
	if !headerSeen {
		problems = append(problems, "column header row not found")
	}

	for _, row := range rows {
		row = strings.TrimSpace(row)
		if m := reSOHeader.FindStringSubmatch(row); m != nil {
			so, customer := m[1], strings.TrimSpace(m[2])
			if !contains(doc.SONumbers, so) {
				doc.SONumbers = append(doc.SONumbers, so)
			}
			if _, ok := customers[so]; !ok {
				customers[so] = customer
			}
			if doc.Customer == "" {
				doc.Customer = customer
			}
		}
	}
	if len(doc.SONumbers) == 0 {
		for _, row := range rows {
			for _, so := range reSOAnywhere.FindAllString(row, -1) {
				if !contains(doc.SONumbers, so) {
					doc.SONumbers = append(doc.SONumbers, so)
				}
			}
		}
	}
	if len(doc.SONumbers) == 0 {
		problems = append(problems, "No SO numbers found")
	}

	if headerSeen {
		doc.Lines = parseItems(rows, doc.SONumbers, customers)
		if len(doc.Lines) == 0 {
			problems = append(problems, "No line items extracted from PDF")
		}
	}

	if len(problems) > 0 {
		return nil, &LayoutError{Problems: problems}
	}

	doc.DeliveryDate = doc.Lines[0].DeliveryDate
	doc.LocationCode = doc.Lines[0].LocationCode
	return doc, nil
}

func parseItems(rows []string, soNumbers []string, customers map[string]string) []OrderLine {
	var lines []OrderLine
	currentSO := ""
	if len(soNumbers) > 0 {
		currentSO = soNumbers[0]
	}

	headerSeen := false
	for _, row := range rows {
		row = strings.TrimSpace(row)
		if row == "" {
			continue
		}
		if !headerSeen {
			headerSeen = isColumnHeader(row)
			continue
		}
		if m := reSOHeader.FindStringSubmatch(row); m != nil {
			currentSO = m[1]
			continue
		}
		if line, ok := parseItemRow(row); ok {
			line.SONumber = currentSO
			line.Customer = customers[currentSO]
			lines = append(lines, line)
		}
	}
	return lines
}

func parseItemRow(row string) (OrderLine, bool) {
	if !reSeqStart.MatchString(row) {
		return OrderLine{}, false
	}
	loc := reLocation.FindString(row)
	if loc == "" {
		return OrderLine{}, false
	}
	date := reDate.FindStringSubmatch(row)
	if date == nil {
		return OrderLine{}, false
	}

	parts := strings.Fields(row)
	if len(parts) < 5 {
		return OrderLine{}, false
	}
	seq, err := strconv.Atoi(parts[0])
	if err != nil {
		return OrderLine{}, false
	}

	locIdx := -1
	for i, p := range parts {
		if p == loc {
			locIdx = i
			break
		}
	}
	if locIdx < 2 {
		return OrderLine{}, false
	}

	var qty float64
	for _, p := range parts[locIdx+1:] {
		if v, err := parseQty(p); err == nil {
			qty = v
			break
		}
	}

	var desc []string
	for _, p := range parts[2:locIdx] {
		if reDateToken.MatchString(p) {
			continue
		}
		desc = append(desc, p)
	}

	itemCode := CleanItemCode(parts[1])
	if itemCode == "" || qty == 0 {
		return OrderLine{}, false
	}

	return OrderLine{
		Seq:          seq,
		ItemCode:     itemCode,
		Description:  strings.Join(desc, " "),
		LocationCode: loc,
		Qty:          qty,
		DeliveryDate: NormalizeDate(date[1]),
	}, true
}

// CleanItemCode cuts a merged token after the first known unit suffix
func CleanItemCode(raw string) string {
	upper := strings.ToUpper(raw)
	for _, suffix := range unitSuffixes {
		if idx := strings.Index(upper, suffix); idx != -1 {
			return raw[:idx+len(suffix)]
		}
	}
	return raw
}

// NormalizeDate converts a day-first d/m/yy or d/m/yyyy date to YYYY-MM-DD.
// Unparseable input is returned unchanged.
func NormalizeDate(raw string) string {
	for _, layout := range []string{"2/1/2006", "2/1/06"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return raw
}

func isColumnHeader(row string) bool {
	upper := strings.ToUpper(row)
	if !strings.Contains(upper, "ITEM") || !strings.Contains(upper, "LOC") {
		return false
	}
	return strings.Contains(upper, "QTY") || strings.Contains(upper, "QUANTITY")
}

// parseQty reads a finite quantity such as "1,250.5"
func parseQty(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", ""), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("quantity %q is not a number", s)
	}
	return v, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

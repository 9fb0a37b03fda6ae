package devbackend

import (
	"bytes"
	"encoding/base64"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"competitive-intel/internal/dataset"
	"competitive-intel/internal/model"

	"github.com/xuri/excelize/v2"
)

// Row is one competitor as read from a dataset, keyed by column header.
type Row map[string]any

// DefaultCompetitor is returned when a dataset is missing or yields no rows.
func DefaultCompetitor() Row {
	return Row{
		"name":           "Default Competitor",
		"revenue":        10.8,
		"nps":            64.0,
		"r_d_spend":      18.0,
		"regions":        6.0,
		"retention_rate": 90.0,
	}
}

// ParseDataset reads competitor rows from the content of a metrics request.
// CSV content is plain text; spreadsheets arrive base64 encoded.
func ParseDataset(content, filename string) ([]Row, error) {
	switch dataset.KindOf(filename) {
	case dataset.KindCSV:
		return parseCSV(strings.NewReader(content))
	case dataset.KindSpreadsheet:
		raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(content))
		if err != nil {
			// Some clients send the workbook bytes unencoded.
			raw = []byte(content)
		}
		return parseSpreadsheet(raw)
	default:
		return nil, dataset.ErrUnsupported
	}
}

func parseCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return rowsFromRecords(records), nil
}

func parseSpreadsheet(raw []byte) ([]Row, error) {
	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return rowsFromRecords(records), nil
}

// rowsFromRecords treats the first record as the header. Numeric cells
// become float64; short rows get empty strings for the missing columns.
func rowsFromRecords(records [][]string) []Row {
	if len(records) < 2 {
		return nil
	}
	header := records[0]
	out := make([]Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		if blank(rec) {
			continue
		}
		row := make(Row, len(header))
		for i, h := range header {
			if h == "" {
				continue
			}
			cell := ""
			if i < len(rec) {
				cell = rec[i]
			}
			row[h] = cellValue(cell)
		}
		out = append(out, row)
	}
	return out
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func cellValue(s string) any {
	if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		return v
	}
	return s
}

// keyAliases maps common spellings of R&D spend onto the wire key.
var keyAliases = map[string]string{
	"randd_spend":   model.KPIRDSpend,
	"r_and_d_spend": model.KPIRDSpend,
	"rd_spend":      model.KPIRDSpend,
}

// NormalizeKey maps a column header to the wire key, e.g. "R&D Spend" to
// "r_d_spend" and "Retention Rate" to "retention_rate".
func NormalizeKey(k string) string {
	k = strings.ToLower(strings.TrimSpace(k))
	k = strings.ReplaceAll(k, " ", "_")
	k = strings.ReplaceAll(k, "&", "and")
	k = strings.ReplaceAll(k, ".", "")
	k = strings.ReplaceAll(k, "-", "_")
	if alias, ok := keyAliases[k]; ok {
		return alias
	}
	return k
}

// FillDefaults normalizes keys and fills absent or empty KPIs: 0 for
// every KPI except NPS, which becomes "-".
func FillDefaults(row Row) Row {
	out := make(Row, len(row)+len(model.KPIs))
	for k, v := range row {
		out[NormalizeKey(k)] = v
	}
	for _, kpi := range model.KPIs {
		if v, ok := out[kpi]; !ok || v == nil || v == "" {
			if kpi == model.KPINPS {
				out[kpi] = "-"
			} else {
				out[kpi] = 0.0
			}
		}
	}
	return out
}

// Sanitize replaces NaN and infinite numbers, which JSON cannot carry, with nil.
func Sanitize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, x := range t {
			out[k] = Sanitize(x)
		}
		return out
	case Row:
		return Sanitize(map[string]any(t))
	case []any:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = Sanitize(x)
		}
		return out
	case []Row:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = Sanitize(x)
		}
		return out
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil
		}
		return t
	default:
		return v
	}
}

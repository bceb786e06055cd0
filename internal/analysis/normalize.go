package analysis

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// WideTable is an uploaded table: one row per product, one column per month.
type WideTable struct {
	Name   string
	Header []string
	Rows   [][]string
}

// NormalizeOptions selects identifier columns and the numeric locale.
type NormalizeOptions struct {
	// NameColumn is required.
	NameColumn string
	// CodeColumn is optional; codes are derived from names when empty.
	CodeColumn string
	// If DecimalSeparator is 0, auto-detect per value.
	DecimalSeparator   rune
	ThousandsSeparator rune
}

// IngestReport summarizes what Normalize saw. It backs the import quality check.
type IngestReport struct {
	Name            string   `json:"name,omitempty"`
	Rows            int      `json:"rows"`
	Products        int      `json:"products"`
	Records         int      `json:"records"`
	MonthColumns    []string `json:"month_columns"`
	IgnoredColumns  []string `json:"ignored_columns,omitempty"`
	FirstMonth      Month    `json:"first_month"`
	LastMonth       Month    `json:"last_month"`
	MissingCells    int      `json:"missing_cells"`
	NonNumericCells int      `json:"non_numeric_cells"`
	DuplicateRows   int      `json:"duplicate_rows"`
	SkippedRows     int      `json:"skipped_rows"`

	// CodeCollisions counts names whose derived slug was already taken by a
	// different name and that received a hashed code instead.
	CodeCollisions int `json:"code_collisions,omitempty"`
}

type cellAcc struct {
	sum     float64
	present bool
}

// Normalize converts a wide table into long-form records sorted by code then month.
// Only the month columns of the table are emitted; FillMissing expands gaps.
func Normalize(t WideTable, opt NormalizeOptions) ([]MonthlyRecord, *IngestReport, error) {
	index := map[string]int{}
	for i, h := range t.Header {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}
	nameIdx, ok := index[strings.ToLower(strings.TrimSpace(opt.NameColumn))]
	if !ok || strings.TrimSpace(opt.NameColumn) == "" {
		return nil, nil, schemaErr(fmt.Sprintf("column %q", opt.NameColumn), ErrNameColumnMissing)
	}
	codeIdx := -1
	if strings.TrimSpace(opt.CodeColumn) != "" {
		ci, ok := index[strings.ToLower(strings.TrimSpace(opt.CodeColumn))]
		if !ok {
			return nil, nil, schemaErr(fmt.Sprintf("column %q", opt.CodeColumn), ErrCodeColumnMissing)
		}
		codeIdx = ci
	}

	rep := &IngestReport{Name: t.Name, Rows: len(t.Rows)}
	monthOf := map[int]Month{}
	for i, h := range t.Header {
		if i == nameIdx || i == codeIdx {
			continue
		}
		if m, ok := ParseMonth(h); ok {
			monthOf[i] = m
			rep.MonthColumns = append(rep.MonthColumns, strings.TrimSpace(h))
			continue
		}
		rep.IgnoredColumns = append(rep.IgnoredColumns, strings.TrimSpace(h))
	}
	if len(monthOf) == 0 {
		return nil, nil, schemaErr(fmt.Sprintf("%d columns inspected", len(t.Header)), ErrNoMonthColumns)
	}
	months := make([]Month, 0, len(monthOf))
	seenMonth := map[Month]bool{}
	for _, m := range monthOf {
		if !seenMonth[m] {
			seenMonth[m] = true
			months = append(months, m)
		}
	}
	sort.Slice(months, func(a, b int) bool { return months[a] < months[b] })
	rep.FirstMonth, rep.LastMonth = months[0], months[len(months)-1]

	cells := map[string]map[Month]*cellAcc{}
	names := map[string]string{}
	slugOwner := map[string]string{}
	collided := map[string]bool{}
	var codes []string
	for _, row := range t.Rows {
		name := cell(row, nameIdx)
		code := ""
		if codeIdx >= 0 {
			code = cell(row, codeIdx)
		}
		if name == "" && code == "" {
			rep.SkippedRows++
			continue
		}
		if code == "" {
			norm := normalizeName(name)
			code = DeriveCode(name)
			if owner, taken := slugOwner[code]; !taken {
				slugOwner[code] = norm
			} else if owner != norm {
				code = hashedCode(norm)
				if !collided[norm] {
					collided[norm] = true
					rep.CodeCollisions++
				}
			}
		}
		if name == "" {
			name = code
		}
		byMonth, seen := cells[code]
		if seen {
			rep.DuplicateRows++
		} else {
			byMonth = map[Month]*cellAcc{}
			cells[code] = byMonth
			names[code] = name
			codes = append(codes, code)
		}
		for j, m := range monthOf {
			acc := byMonth[m]
			if acc == nil {
				acc = &cellAcc{}
				byMonth[m] = acc
			}
			raw := cell(row, j)
			if isBlank(raw) {
				rep.MissingCells++
				continue
			}
			v, ok := parseNumeric(raw, opt.DecimalSeparator, opt.ThousandsSeparator)
			if !ok {
				rep.NonNumericCells++
				rep.MissingCells++
				continue
			}
			acc.sum += v
			acc.present = true
		}
	}
	sort.Strings(codes)

	out := make([]MonthlyRecord, 0, len(codes)*len(months))
	for _, code := range codes {
		for _, m := range months {
			rec := MonthlyRecord{ProductCode: code, ProductName: names[code], Month: m}
			if acc := cells[code][m]; acc != nil && acc.present {
				rec.Amount = Some(acc.sum)
			} else {
				rec.IsMissing = true
			}
			out = append(out, rec)
		}
	}
	rep.Products = len(codes)
	rep.Records = len(out)
	return out, rep, nil
}

// FillMissing expands every product to the full observed month range and applies policy.
// Unknown policies behave like mark_missing so no history is manufactured.
func FillMissing(records []MonthlyRecord, policy Policy) []MonthlyRecord {
	if len(records) == 0 {
		return nil
	}
	first, last := records[0].Month, records[0].Month
	byCode := map[string]map[Month]MonthlyRecord{}
	names := map[string]string{}
	var codes []string
	for _, r := range records {
		if r.Month < first {
			first = r.Month
		}
		if r.Month > last {
			last = r.Month
		}
		m, ok := byCode[r.ProductCode]
		if !ok {
			m = map[Month]MonthlyRecord{}
			byCode[r.ProductCode] = m
			codes = append(codes, r.ProductCode)
		}
		m[r.Month] = r
		if names[r.ProductCode] == "" {
			names[r.ProductCode] = r.ProductName
		}
	}
	sort.Strings(codes)
	span := MonthRange(first, last)
	out := make([]MonthlyRecord, 0, len(codes)*len(span))
	for _, code := range codes {
		for _, m := range span {
			rec, ok := byCode[code][m]
			if !ok {
				rec = MonthlyRecord{ProductCode: code, ProductName: names[code], Month: m, IsMissing: true}
			}
			if rec.IsMissing || !rec.Amount.Valid {
				rec.IsMissing = true
				rec.Amount = Null
				if policy == PolicyZeroFill {
					rec.Amount = Some(0)
				}
			}
			out = append(out, rec)
		}
	}
	return out
}

var productNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/KaramelBytes/yearlens/product"))

// DeriveCode maps a product name to a stable code: a lowercase slug when the
// name is plain ASCII, otherwise a name-based UUID prefix. Equal names always
// map to the same code.
func DeriveCode(name string) string {
	norm := normalizeName(name)
	var b strings.Builder
	ascii := true
	dash := false
	for _, r := range norm {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		case r < unicode.MaxASCII:
			if b.Len() > 0 && !dash {
				b.WriteByte('-')
				dash = true
			}
		default:
			ascii = false
		}
	}
	slug := strings.TrimRight(b.String(), "-")
	if ascii && slug != "" {
		return slug
	}
	return hashedCode(norm)
}

func normalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

func hashedCode(norm string) string {
	return "p-" + strings.ReplaceAll(uuid.NewSHA1(productNamespace, []byte(norm)).String(), "-", "")[:12]
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func isBlank(s string) bool {
	switch strings.TrimSpace(s) {
	case "", "-", "—", "–", "N/A", "n/a", "NA", "nan", "NaN", "null":
		return true
	}
	return false
}

var currencyMarks = strings.NewReplacer("¥", "", "￥", "", "円", "", "$", "", "€", "", "£", "", " ", " ")

func parseNumeric(s string, dec, thou rune) (float64, bool) {
	raw := strings.TrimSpace(currencyMarks.Replace(s))
	neg := false
	if strings.HasPrefix(raw, "(") && strings.HasSuffix(raw, ")") {
		neg = true
		raw = strings.TrimSpace(raw[1 : len(raw)-1])
	}
	if dec == 0 {
		cpos := strings.LastIndex(raw, ",")
		dpos := strings.LastIndex(raw, ".")
		switch {
		case cpos >= 0 && dpos >= 0:
			if cpos > dpos {
				dec, thou = ',', '.'
			} else {
				dec, thou = '.', ','
			}
		case cpos >= 0 && strings.Count(raw, ",") == 1 && len(raw)-cpos-1 != 3:
			// "0,5" is a decimal comma; "1,000" stays a thousands separator.
			dec = ','
		default:
			dec = '.'
		}
	}
	if thou == 0 {
		for _, sep := range []rune{',', '.', ' '} {
			if sep != dec {
				raw = strings.ReplaceAll(raw, string(sep), "")
			}
		}
	} else if thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	raw = strings.ReplaceAll(raw, " ", "")
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	if neg {
		f = -f
	}
	return f, true
}

package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"

	"ad-insights-go/internal/logger"
	"ad-insights-go/internal/types"
)

var (
	ErrMissingColumn = errors.New("missing required column")
	ErrInvalidNumber = errors.New("invalid numeric value")
)

// headerScanDepth is how many leading rows may hold report titles before
// the header row.
const headerScanDepth = 5

type column struct {
	name     string
	aliases  []string
	required bool
}

var queryColumns = []column{
	{name: "text", aliases: []string{"search term", "search terms", "query"}, required: true},
	{name: "impressions", aliases: []string{"impressions", "impr."}, required: true},
	{name: "clicks", aliases: []string{"clicks"}, required: true},
	{name: "cost", aliases: []string{"cost"}, required: true},
	{name: "conversions", aliases: []string{"conversions"}, required: true},
	{name: "conversion_value", aliases: []string{"conv. value", "conversion value", "conv value"}, required: true},
}

var adColumns = []column{
	{name: "campaign", aliases: []string{"campaign"}, required: true},
	{name: "ad_group", aliases: []string{"ad group"}, required: true},
	{name: "headline", aliases: []string{"headline 1", "headline"}, required: true},
	{name: "description", aliases: []string{"description 1", "description"}},
	{name: "impressions", aliases: []string{"impressions", "impr."}, required: true},
	{name: "clicks", aliases: []string{"clicks"}, required: true},
}

// Loader reads ad-platform exports and logs through the caller's logger.
type Loader struct {
	log *logger.Logger
}

// NewLoader accepts a nil logger.
func NewLoader(log *logger.Logger) *Loader {
	if log == nil {
		log = logger.Discard()
	}
	return &Loader{log: log}
}

// LoadQueries reads a search-terms export (.csv or .xlsx).
func (l *Loader) LoadQueries(path string) ([]types.QueryRecord, error) {
	log := l.log.Component("dataset.queries").WithField("path", path)
	rows, err := readRows(path)
	if err != nil {
		return nil, err
	}
	idx, start, err := locateHeader(rows, queryColumns)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.WithField("columns", idx).Debug("detected query columns")

	out := []types.QueryRecord{}
	for i := start; i < len(rows); i++ {
		r := rows[i]
		if skipRow(r) {
			continue
		}
		var rec types.QueryRecord
		rec.Text = cell(r, idx["text"])
		nums, err := parseCells(r, idx, i+1, "impressions", "clicks", "cost", "conversions", "conversion_value")
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		rec.Totals = types.Totals{
			Impressions:     nums[0],
			Clicks:          nums[1],
			Cost:            nums[2],
			Conversions:     nums[3],
			ConversionValue: nums[4],
		}
		if err := rec.Validate(); err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i+1, err)
		}
		out = append(out, rec)
	}
	log.WithField("rows", len(out)).Info("query records loaded")
	return out, nil
}

// LoadAds reads an ads export (.csv or .xlsx).
func (l *Loader) LoadAds(path string) ([]types.AdRecord, error) {
	log := l.log.Component("dataset.ads").WithField("path", path)
	rows, err := readRows(path)
	if err != nil {
		return nil, err
	}
	idx, start, err := locateHeader(rows, adColumns)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.WithField("columns", idx).Debug("detected ad columns")

	out := []types.AdRecord{}
	for i := start; i < len(rows); i++ {
		r := rows[i]
		if skipRow(r) {
			continue
		}
		nums, err := parseCells(r, idx, i+1, "impressions", "clicks")
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		ad := types.AdRecord{
			Campaign:    cell(r, idx["campaign"]),
			AdGroup:     cell(r, idx["ad_group"]),
			Headline:    cell(r, idx["headline"]),
			Description: cell(r, idx["description"]),
			Impressions: nums[0],
			Clicks:      nums[1],
		}
		if err := ad.Validate(); err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i+1, err)
		}
		out = append(out, ad)
	}
	log.WithField("rows", len(out)).Info("ad records loaded")
	return out, nil
}

// LoadAll reads both exports concurrently.
func (l *Loader) LoadAll(ctx context.Context, queriesPath, adsPath string) ([]types.QueryRecord, []types.AdRecord, error) {
	var (
		queries []types.QueryRecord
		ads     []types.AdRecord
	)
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		queries, err = l.LoadQueries(queriesPath)
		return err
	})
	g.Go(func() error {
		var err error
		ads, err = l.LoadAds(adsPath)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return queries, ads, nil
}

func readRows(path string) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return readXLSX(path)
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open file: %w", err)
		}
		defer f.Close()
		return readCSV(f)
	}
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	return rows, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return rows, nil
}

// locateHeader finds the first row among the leading rows that carries every
// required column. It returns column indices (-1 when an optional column is
// absent) and the index of the first data row.
func locateHeader(rows [][]string, cols []column) (map[string]int, int, error) {
	if len(rows) == 0 {
		return nil, 0, fmt.Errorf("%w: empty file", ErrMissingColumn)
	}
	var missing []string
	for h := 0; h < len(rows) && h < headerScanDepth; h++ {
		idx, miss := matchColumns(rows[h], cols)
		if len(miss) == 0 {
			return idx, h + 1, nil
		}
		if h == 0 {
			missing = miss
		}
	}
	return nil, 0, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
}

func matchColumns(header []string, cols []column) (map[string]int, []string) {
	idx := make(map[string]int, len(cols))
	var missing []string
	for _, c := range cols {
		idx[c.name] = -1
		for i, h := range header {
			if headerMatches(h, c.aliases) {
				idx[c.name] = i
				break
			}
		}
		if idx[c.name] == -1 && c.required {
			missing = append(missing, c.name)
		}
	}
	return idx, missing
}

func headerMatches(h string, aliases []string) bool {
	n := strings.Join(strings.Fields(strings.ToLower(h)), " ")
	for _, a := range aliases {
		if n == a {
			return true
		}
	}
	return false
}

// skipRow drops blank lines and the "Total: ..." summary rows exports append.
func skipRow(r []string) bool {
	empty := true
	for _, c := range r {
		if strings.TrimSpace(c) != "" {
			empty = false
			break
		}
	}
	if empty {
		return true
	}
	return strings.HasPrefix(strings.TrimSpace(r[0]), "Total:")
}

func cell(r []string, i int) string {
	if i < 0 || i >= len(r) {
		return ""
	}
	return strings.TrimSpace(r[i])
}

func parseCells(r []string, idx map[string]int, line int, names ...string) ([]float64, error) {
	out := make([]float64, len(names))
	for i, name := range names {
		v, err := ParseNumber(cell(r, idx[name]))
		if err != nil {
			return nil, fmt.Errorf("row %d column %s: %w", line, name, err)
		}
		out[i] = v
	}
	return out, nil
}

// ParseNumber reads an export number. Thousands separators, currency symbols
// and percent signs are stripped; blank and "--" mean no activity (0).
func ParseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "--" {
		return 0, nil
	}
	clean := strings.NewReplacer(",", "", "$", "", "€", "", "£", "", "%", "", " ", "", "\u00a0", "").Replace(s)
	v, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNumber, s)
	}
	return v, nil
}

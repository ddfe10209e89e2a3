// Package export renders canonical metric records into the CSV layout of the
// "Recent Newsletter Performance" Google Sheet and emails the file through SES.
// The sheet layout is fixed: 17 columns, one section per platform, brands in
// the configured row order, and weekend days reduced to send counts only.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ignite/newsletter-metrics/internal/config"
	"github.com/ignite/newsletter-metrics/internal/domain"
)

const columnCount = 17

// sheetHeaders matches the Google Sheet column row verbatim, including the
// sheet's own "Unsuscribe" spelling. Changing it breaks the paste-over import.
var sheetHeaders = []string{
	"Date", "Brands", "Sends", "Delivered", "Opens", "Open Rate",
	"Unique Opens", "Unique Open Rate", "Clicks", "CTR",
	"Unique Clicks", "UCTR", "Brand List Size", "List Growth",
	"% Unsuscribe", "Unsuscribe", "Spam",
}

// MetricsReader is the slice of the repository the exporter needs.
type MetricsReader interface {
	ListRangeByPlatform(ctx context.Context, start, end time.Time, platform domain.Platform) ([]domain.MetricRecord, error)
}

// Exporter renders stored metrics into sheet-compatible CSV.
type Exporter struct {
	repo MetricsReader
	cfg  config.ExportConfig
}

// NewExporter creates an exporter over the given metrics source.
func NewExporter(repo MetricsReader, cfg config.ExportConfig) *Exporter {
	return &Exporter{repo: repo, cfg: cfg}
}

// PlatformCSV renders one platform's section for the inclusive date range.
func (e *Exporter) PlatformCSV(ctx context.Context, start, end time.Time, platform domain.Platform) (string, error) {
	records, err := e.repo.ListRangeByPlatform(ctx, start, end, platform)
	if err != nil {
		return "", fmt.Errorf("fetching %s records: %w", platform, err)
	}
	log.Printf("export: found %d %s record(s)", len(records), platform)

	rows := platformRows(records, start, end, sectionTitle(platform), e.brandOrder(platform))
	return writeRows(rows)
}

// CombinedCSV renders the TinyEmail section followed by the Beehiiv section,
// separated by two blank rows, for the inclusive date range.
func (e *Exporter) CombinedCSV(ctx context.Context, start, end time.Time) (string, error) {
	tiny, err := e.PlatformCSV(ctx, start, end, domain.PlatformTinyEmail)
	if err != nil {
		return "", err
	}
	bee, err := e.PlatformCSV(ctx, start, end, domain.PlatformBeehiiv)
	if err != nil {
		return "", err
	}

	separator, err := writeRows([][]string{emptyRow(), emptyRow()})
	if err != nil {
		return "", err
	}
	return tiny + separator + bee, nil
}

// ExportToFile renders the export and writes it to outputPath. An empty
// platform renders both sections; an empty outputPath derives a timestamped
// filename under the configured output directory. Returns the written path.
func (e *Exporter) ExportToFile(ctx context.Context, start, end time.Time, outputPath string, platform domain.Platform) (string, error) {
	log.Printf("export: exporting newsletter data from %s to %s",
		start.Format("2006-01-02"), end.Format("2006-01-02"))

	var content, prefix string
	var err error
	switch platform {
	case domain.PlatformTinyEmail:
		content, err = e.PlatformCSV(ctx, start, end, platform)
		prefix = "tinyemail"
	case domain.PlatformBeehiiv:
		content, err = e.PlatformCSV(ctx, start, end, platform)
		prefix = "beehiiv"
	default:
		content, err = e.CombinedCSV(ctx, start, end)
		prefix = "newsletter"
	}
	if err != nil {
		return "", err
	}

	if outputPath == "" {
		if err := os.MkdirAll(e.cfg.OutputDir, 0o755); err != nil {
			return "", fmt.Errorf("creating output dir: %w", err)
		}
		outputPath = filepath.Join(e.cfg.OutputDir, fmt.Sprintf("%s_%s_to_%s_%s.csv",
			prefix, start.Format("2006-01-02"), end.Format("2006-01-02"),
			time.Now().Format("20060102_150405")))
	}

	if err := os.WriteFile(outputPath, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("writing export file: %w", err)
	}
	log.Printf("export: wrote %s", outputPath)
	return outputPath, nil
}

func (e *Exporter) brandOrder(platform domain.Platform) []string {
	if platform == domain.PlatformBeehiiv {
		return e.cfg.BeehiivBrands
	}
	return e.cfg.TinyEmailBrands
}

// sectionTitle is the platform banner cell in the sheet.
func sectionTitle(platform domain.Platform) string {
	if platform == domain.PlatformTinyEmail {
		return "TINY EMAIL"
	}
	return strings.ToUpper(string(platform))
}

// platformRows lays out one platform section: a blank row, the title row, the
// header row, then per date a date-only row followed by one row per brand in
// sheet order. Weekend days and days with no stored record carry only the
// brand and its send count.
func platformRows(records []domain.MetricRecord, start, end time.Time, title string, brands []string) [][]string {
	rows := [][]string{emptyRow()}

	titleRow := emptyRow()
	titleRow[2] = title
	rows = append(rows, titleRow, append([]string(nil), sheetHeaders...))

	byDate := map[string]map[string]domain.MetricRecord{}
	for _, rec := range records {
		key := rec.Date.Format("2006-01-02")
		if byDate[key] == nil {
			byDate[key] = map[string]domain.MetricRecord{}
		}
		byDate[key][rec.Brand] = rec
	}

	for day := domain.DateOnly(start); !day.After(domain.DateOnly(end)); day = day.AddDate(0, 0, 1) {
		display := displayDate(day)
		weekend := isWeekend(day)
		dateData := byDate[day.Format("2006-01-02")]

		dateRow := emptyRow()
		dateRow[0] = display
		rows = append(rows, dateRow)

		for i, brand := range brands {
			rec, ok := dateData[brand]

			var row []string
			if ok && !weekend {
				row = fullRow(rec)
			} else {
				row = reducedRow(rec.Sends, weekend)
			}
			if i == 0 {
				row[0] = display
			}
			row[1] = brand
			rows = append(rows, row)
		}
	}

	return rows
}

// fullRow renders a weekday record. Zero-valued percentages and counts render
// blank so the sheet stays readable; sends and list size always render.
func fullRow(rec domain.MetricRecord) []string {
	return []string{
		"",
		rec.Brand,
		formatCount(rec.Sends),
		formatPercent(rec.DeliveredRate),
		formatCount(rec.Opens),
		formatPercent(rec.OpenRate),
		formatCount(rec.UniqueOpens),
		formatPercent(rec.UniqueOpenRate),
		formatCount(rec.Clicks),
		formatPercent(rec.CTR),
		formatCount(rec.UniqueClicks),
		formatPercent(rec.UCTR),
		formatCount(rec.ListSize),
		formatGrowth(rec.ListGrowth),
		formatUnsubRate(rec.UnsubscribeRate),
		blankIfZero(rec.Unsubscribes),
		blankIfZero(rec.SpamReports),
	}
}

// reducedRow renders a weekend or missing day: brand, sends, and list size
// only. Weekends pin list growth to "0".
func reducedRow(sends int64, weekend bool) []string {
	row := emptyRow()
	if sends != 0 {
		row[2] = formatCount(sends)
		row[12] = formatCount(sends)
	}
	if weekend {
		row[13] = "0"
	}
	return row
}

func emptyRow() []string {
	return make([]string, columnCount)
}

func isWeekend(day time.Time) bool {
	return day.Weekday() == time.Saturday || day.Weekday() == time.Sunday
}

// displayDate renders the sheet's M/D/YYYY date format, no zero padding.
func displayDate(day time.Time) string {
	return fmt.Sprintf("%d/%d/%d", day.Month(), day.Day(), day.Year())
}

// formatCount renders an integer with thousands separators.
func formatCount(v int64) string {
	return groupDigits(v)
}

// formatGrowth renders day-over-day list growth with an explicit sign, or "0"
// for flat days.
func formatGrowth(v int64) string {
	if v == 0 {
		return "0"
	}
	if v > 0 {
		return "+" + groupDigits(v)
	}
	return "-" + groupDigits(-v)
}

// formatPercent renders a percentage cell, blank when zero.
func formatPercent(v float64) string {
	if v == 0 {
		return ""
	}
	return fmt.Sprintf("%.2f%%", v)
}

// formatUnsubRate renders the unsubscribe-rate cell to 4 decimal places,
// blank when zero.
func formatUnsubRate(v float64) string {
	if v == 0 {
		return ""
	}
	return fmt.Sprintf("%.4f", v)
}

func blankIfZero(v int64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatInt(v, 10)
}

func groupDigits(v int64) string {
	s := strconv.FormatInt(v, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}

	if neg {
		return "-" + b.String()
	}
	return b.String()
}

func writeRows(rows [][]string) (string, error) {
	var buf strings.Builder
	w := csv.NewWriter(&buf)
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("writing csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flushing csv: %w", err)
	}
	return buf.String(), nil
}

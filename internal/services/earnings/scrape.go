package earnings

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/models"
)

const calendarBaseURL = "https://finance.yahoo.com/calendar/earnings"

// CalendarScraper scrapes the public earnings calendar page as a best-effort
// backup when the API carries no calendar entry for a symbol.
type CalendarScraper struct {
	baseURL    string
	httpClient *http.Client
	logger     arbor.ILogger
}

// NewCalendarScraper creates a calendar scraper.
func NewCalendarScraper(logger arbor.ILogger, httpClient *http.Client) *CalendarScraper {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &CalendarScraper{
		baseURL:    calendarBaseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// ScrapeEarnings fetches the calendar page for a symbol and extracts report
// dates from the results table.
func (c *CalendarScraper) ScrapeEarnings(ctx context.Context, symbol string) ([]models.EarningsEvent, error) {
	url := fmt.Sprintf("%s?symbol=%s", c.baseURL, symbol)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch earnings calendar: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse calendar HTML: %w", err)
	}

	var events []models.EarningsEvent
	doc.Find("table tbody tr").Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 3 {
			return
		}

		rowSymbol := strings.TrimSpace(cells.Eq(0).Text())
		if !strings.EqualFold(rowSymbol, symbol) {
			return
		}

		companyName := strings.TrimSpace(cells.Eq(1).Text())
		dateText := strings.TrimSpace(cells.Eq(2).Text())

		date, ok := parseCalendarDate(dateText)
		if !ok {
			c.logger.Debug().
				Str("symbol", symbol).
				Str("date_text", dateText).
				Msg("Unparseable earnings calendar date")
			return
		}

		events = append(events, models.EarningsEvent{
			Symbol:       strings.ToUpper(rowSymbol),
			CompanyName:  companyName,
			EarningsDate: date,
		})
	})

	return events, nil
}

// parseCalendarDate tries the date formats the calendar page is known to use.
func parseCalendarDate(text string) (time.Time, bool) {
	// The page appends a timezone suffix to some formats, e.g.
	// "Oct 30, 2025, 4 PM EST". Strip everything past the year.
	if idx := strings.Index(text, ","); idx > 0 {
		if second := strings.Index(text[idx+1:], ","); second > 0 {
			text = text[:idx+1+second]
		}
	}

	formats := []string{
		"Jan 2, 2006",
		"Jan 02, 2006",
		"2006-01-02",
	}
	for _, format := range formats {
		if t, err := time.Parse(format, strings.TrimSpace(text)); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

package agent

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ternarybob/folio/internal/models"
)

const (
	maxContextAlerts   = 5
	maxContextEarnings = 5
	maxContextNews     = 5
	maxContextHoldings = 10
)

const systemPrompt = `You are a portfolio analyst. You are given a snapshot of a stock portfolio
with daily performance, fluctuation alerts, upcoming earnings, and recent news.
Write an objective analysis of the data. This is analysis, not investment advice.

Respond in exactly this format:

SUMMARY:
<two or three sentences describing the overall portfolio state>

KEY INSIGHTS:
- <insight>
- <insight>

RECOMMENDATIONS:
- <area to watch>
- <area to watch>

RISK FACTORS:
- <risk>
- <risk>`

// buildContext renders the analysis result into the structured text block the
// narrative provider receives. Sections are capped so the prompt stays small
// regardless of portfolio size.
func buildContext(result *models.AnalysisResult) string {
	var b strings.Builder

	b.WriteString("PORTFOLIO OVERVIEW:\n")
	holdingsCount := 0
	totalValue := 0.0
	if result.Holdings != nil {
		holdingsCount = result.Holdings.Count()
		totalValue = result.Holdings.TotalValue
	}
	fmt.Fprintf(&b, "- Holdings: %d positions, total value $%.2f\n", holdingsCount, totalValue)
	fmt.Fprintf(&b, "- High fluctuation alerts: %d\n", len(result.Alerts))
	fmt.Fprintf(&b, "- Upcoming earnings reports: %d\n", len(result.Earnings))
	fmt.Fprintf(&b, "- Recent news articles: %d\n", len(result.News))

	if len(result.Alerts) > 0 {
		b.WriteString("\nHIGH FLUCTUATIONS:\n")
		for i, alert := range result.Alerts {
			if i >= maxContextAlerts {
				break
			}
			fmt.Fprintf(&b, "- %s (%s): %+.2f%% to $%.2f\n", alert.Symbol, alert.Name, alert.ChangePercent, alert.CurrentPrice)
		}
	}

	if len(result.Earnings) > 0 {
		b.WriteString("\nUPCOMING EARNINGS:\n")
		for i, event := range result.Earnings {
			if i >= maxContextEarnings {
				break
			}
			fmt.Fprintf(&b, "- %s reports on %s\n", event.Symbol, event.EarningsDate.Format("2006-01-02"))
		}
	}

	if len(result.News) > 0 {
		b.WriteString("\nRECENT NEWS:\n")
		for i, item := range result.News {
			if i >= maxContextNews {
				break
			}
			fmt.Fprintf(&b, "- [%s] %s\n", item.Symbol, item.Title)
		}
	}

	if len(result.Performance) > 0 {
		b.WriteString("\nTOP HOLDINGS BY VALUE:\n")
		records := make([]models.PerformanceRecord, len(result.Performance))
		copy(records, result.Performance)
		sort.SliceStable(records, func(i, j int) bool {
			return records[i].MarketValue > records[j].MarketValue
		})
		for i, record := range records {
			if i >= maxContextHoldings {
				break
			}
			fmt.Fprintf(&b, "- %s: %.0f shares at $%.2f (%+.2f%% today)\n",
				record.Symbol, record.Shares, record.CurrentPrice, record.ChangePercent)
		}
	}

	return b.String()
}

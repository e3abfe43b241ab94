package finance

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/vicanso/go-charts/v2"

	"telegramRiskBot/internal/storage"
)

// UsageAnalytics handles usage metrics visualization
type UsageAnalytics struct{}

func NewUsageAnalytics() *UsageAnalytics {
	return &UsageAnalytics{}
}

func sortedCommands(stats map[string]*storage.UsageStats) []string {
	out := make([]string, 0, len(stats))
	for cmd := range stats {
		out = append(out, cmd)
	}
	sort.Strings(out)
	return out
}

// MakeUsageChart creates a pie chart of command usage
func (ua *UsageAnalytics) MakeUsageChart(stats map[string]*storage.UsageStats, days int) ([]byte, error) {
	if len(stats) == 0 {
		return nil, fmt.Errorf("no usage data available")
	}

	commands := sortedCommands(stats)
	values := make([]float64, 0, len(commands))
	total := 0
	for _, cmd := range commands {
		values = append(values, float64(stats[cmd].Count))
		total += stats[cmd].Count
	}

	labels := make([]string, 0, len(commands))
	for i, cmd := range commands {
		labels = append(labels, fmt.Sprintf("/%s (%.1f%%)", cmd, values[i]/float64(total)*100))
	}

	p, err := charts.PieRender(
		values,
		charts.TitleTextOptionFunc(fmt.Sprintf("Command Usage Distribution (%d days)", days)),
		charts.LegendOptionFunc(charts.LegendOption{
			Data: labels,
			Top:  charts.PositionTop,
		}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(800),
		charts.HeightOptionFunc(600),
	)
	if err != nil {
		return nil, err
	}

	buf, err := p.Bytes()
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// FormatUsageStatsText creates a formatted text summary of usage statistics
func (ua *UsageAnalytics) FormatUsageStatsText(stats map[string]*storage.UsageStats, days int) string {
	if len(stats) == 0 {
		return "No usage data available for the specified period."
	}

	commands := sortedCommands(stats)
	total := 0
	for _, cmd := range commands {
		total += stats[cmd].Count
	}
	// most used first, name breaks ties
	sort.SliceStable(commands, func(i, j int) bool {
		return stats[commands[i]].Count > stats[commands[j]].Count
	})

	var b strings.Builder
	fmt.Fprintf(&b, "📊 Usage (%d days)\n\n", days)
	fmt.Fprintf(&b, "Total commands: %s\n\n", humanize.Comma(int64(total)))
	for _, cmd := range commands {
		st := stats[cmd]
		fmt.Fprintf(&b, "/%s: %s (%.1f%%), %d chats, last %s\n",
			cmd, humanize.Comma(int64(st.Count)), float64(st.Count)/float64(total)*100,
			st.Chats, st.LastUsed.UTC().Format("2006-01-02 15:04"))
	}
	return b.String()
}

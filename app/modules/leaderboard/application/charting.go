package leaderboardservice

import (
	"bytes"
	"math"

	leaderboarddb "github.com/Black-And-White-Club/promptduel/app/modules/leaderboard/infrastructure/repositories"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ChartPalette colors the standings chart.
type ChartPalette struct {
	Background drawing.Color
	Bar        drawing.Color
	Leader     drawing.Color
	Text       drawing.Color
}

var DefaultPalette = ChartPalette{
	Background: drawing.ColorFromHex("101418"),
	Bar:        drawing.ColorFromHex("3b82f6"),
	Leader:     drawing.ColorFromHex("f5b301"),
	Text:       drawing.ColorFromHex("e5e7eb"),
}

// chartBars caps the chart so labels stay readable.
const chartBars = 20

// GenerateStandingsChart renders the top totals as a PNG bar chart.
func GenerateStandingsChart(entries []leaderboarddb.Entry, palette ChartPalette) ([]byte, error) {
	if len(entries) > chartBars {
		entries = entries[:chartBars]
	}

	bars := make([]chart.Value, 0, len(entries))
	top := 0.0
	for i, e := range entries {
		color := palette.Bar
		if i == 0 {
			color = palette.Leader
		}
		bars = append(bars, chart.Value{
			Label: e.Username,
			Value: e.TotalScore,
			Style: chart.Style{FillColor: color, StrokeColor: color},
		})
		top = math.Max(top, e.TotalScore)
	}
	if len(bars) == 0 {
		bars = append(bars, chart.Value{Label: "No submissions yet", Value: 0})
	}

	graph := chart.BarChart{
		Title:      "Leaderboard",
		TitleStyle: chart.Style{FontColor: palette.Text},
		Width:      1000,
		Height:     480,
		BarWidth:   36,
		BarSpacing: 12,
		Background: chart.Style{
			FillColor: palette.Background,
			Padding:   chart.Box{Top: 40, Bottom: 20, Left: 20, Right: 20},
		},
		Canvas: chart.Style{FillColor: palette.Background},
		XAxis:  chart.Style{FontColor: palette.Text, FontSize: 8},
		YAxis: chart.YAxis{
			Style: chart.Style{FontColor: palette.Text},
			// An explicit range keeps single-bar and all-zero charts renderable.
			Range: &chart.ContinuousRange{Min: 0, Max: math.Max(1, math.Ceil(top))},
		},
		Bars: bars,
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

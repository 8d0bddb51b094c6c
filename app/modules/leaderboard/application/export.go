package leaderboardservice

import (
	"fmt"

	leaderboarddb "github.com/Black-And-White-Club/promptduel/app/modules/leaderboard/infrastructure/repositories"
	"github.com/xuri/excelize/v2"
)

const (
	standingsSheet = "Standings"
	bestsSheet     = "Challenge Bests"
)

// BuildWorkbook writes the standings and every per-challenge best to XLSX.
func BuildWorkbook(entries []leaderboarddb.Entry, bests []leaderboarddb.ChallengeBest) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", standingsSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(bestsSheet); err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	if err := writeRows(f, standingsSheet, header, []any{"Rank", "Username", "Total Score"}, len(entries), func(i int) []any {
		e := entries[i]
		return []any{i + 1, e.Username, e.TotalScore}
	}); err != nil {
		return nil, err
	}

	if err := writeRows(f, bestsSheet, header, []any{"Username", "Challenge", "Best Score", "Attempts"}, len(bests), func(i int) []any {
		b := bests[i]
		return []any{b.Username, b.ChallengeID, b.BestScore, b.Attempts}
	}); err != nil {
		return nil, err
	}

	if err := f.SetColWidth(standingsSheet, "B", "B", 20); err != nil {
		return nil, fmt.Errorf("set column width: %w", err)
	}
	if err := f.SetColWidth(bestsSheet, "A", "A", 20); err != nil {
		return nil, fmt.Errorf("set column width: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRows(f *excelize.File, sheet string, headerStyle int, header []any, n int, row func(i int) []any) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write %s header: %w", sheet, err)
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("style %s header: %w", sheet, err)
	}

	for i := 0; i < n; i++ {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := row(i)
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+2, err)
		}
	}
	return nil
}

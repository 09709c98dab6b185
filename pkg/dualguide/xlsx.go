package dualguide

import (
	"log/slog"

	"github.com/liserjrqlxue/goUtil/simpleUtil"
	"github.com/xuri/excelize/v2"
)

func SetRow(xlsx *excelize.File, sheet string, col, row int, value []interface{}) {
	simpleUtil.CheckErr(
		xlsx.SetSheetRow(
			sheet,
			simpleUtil.HandleError(excelize.CoordinatesToCellName(col, row)),
			&value,
		),
	)
}

var summaryTitle = []interface{}{
	"Sample_ID",
	"Partitions",
	"BarcodeRows",
	"ClusterRows",
	"ClusterDropped",
	"BartenderPairs",
	"BartenderSkipped",
	"MergedRows",
	"ReadRecords",
	"ReadDropped",
	"UnifiedRows",
	"OrphanDropped",
	"RawGroups",
	"CompleteGroups",
	"Status",
}

// WriteSummaryXlsx writes one row per sample: rows in, rows dropped per
// join, rows out, and whether the sample was skipped.
func (batch *Batch) WriteSummaryXlsx(path string) {
	var (
		xlsx  = excelize.NewFile()
		sheet = "Summary"
	)
	simpleUtil.CheckErr(xlsx.SetSheetName("Sheet1", sheet))
	SetRow(xlsx, sheet, 1, 1, summaryTitle)

	for i, result := range batch.Results {
		var status = "OK"
		if result.Err != nil {
			status = result.Err.Error()
		}
		SetRow(xlsx, sheet, 1, i+2, []interface{}{
			result.SampleID,
			result.Stats.PartitionFiles,
			result.Stats.BarcodeRows,
			result.Stats.ClusterRows,
			result.Stats.ClusterDropped,
			result.Stats.BartenderPairs,
			result.Stats.BartenderSkipped,
			result.Stats.MergedRows,
			result.Stats.ReadRecords,
			result.Stats.ReadDropped,
			result.Stats.UnifiedRows,
			result.Stats.OrphanDropped,
			result.RawGroups,
			result.CompleteGroups,
			status,
		})
	}

	slog.Info("save summary", "path", path)
	simpleUtil.CheckErr(xlsx.SaveAs(path))
}

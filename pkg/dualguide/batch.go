package dualguide

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/liserjrqlxue/goUtil/simpleUtil"
)

// SampleResult is one sample's aggregation outcome, kept for the run
// summary. Err is set when the sample was skipped.
type SampleResult struct {
	SampleID       string
	Stats          MergeStats
	RawGroups      int
	CompleteGroups int
	Err            error
}

// Batch runs merge and deduplication for every sample subdirectory of
// InputDir and combines the complete tables. Samples run sequentially;
// a failing sample is recorded and skipped, the run continues.
type Batch struct {
	InputDir     string
	OutputPrefix string

	Results  []*SampleResult
	Combined []FrequencyRow
}

// FindSamples lists the sample subdirectories of InputDir, sorted by name.
func (batch *Batch) FindSamples() (samples []string, err error) {
	entries, err := os.ReadDir(batch.InputDir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			samples = append(samples, entry.Name())
		}
	}
	return
}

// RunSample merges and deduplicates one sample and writes both frequency
// tables under <OutputPrefix><sampleID>/. A panic inside the sample is
// recovered into result.Err so the batch can move on.
func (batch *Batch) RunSample(sampleID string) (complete []FrequencyRow, result *SampleResult) {
	result = &SampleResult{SampleID: sampleID}
	defer func() {
		if r := recover(); r != nil {
			result.Err = fmt.Errorf("sample %s: %v", sampleID, r)
		}
	}()

	var unified, stats, err = CombineSample(filepath.Join(batch.InputDir, sampleID))
	result.Stats = stats
	if err != nil {
		result.Err = err
		return
	}

	var (
		raw    = DeduplicateRaw(unified)
		dedup  = DeduplicateComplete(unified)
		outDir = batch.OutputPrefix + sampleID
	)
	result.RawGroups = len(raw)
	result.CompleteGroups = len(dedup)

	simpleUtil.CheckErr(os.MkdirAll(outDir, 0755))
	WriteRawTable(filepath.Join(outDir, "Combined_ND_df.csv"), raw)
	WriteCompleteTable(filepath.Join(outDir, "Combined_deduplexed_df.csv"), dedup)

	complete = dedup
	return
}

// BatchRun processes every sample, writes the cross-sample combined
// table and the run summary workbook. It fails only when no sample
// succeeded.
func (batch *Batch) BatchRun() error {
	samples, err := batch.FindSamples()
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		return fmt.Errorf("no sample subdirectory under [%s]", batch.InputDir)
	}

	var succeeded = 0
	for _, sampleID := range samples {
		slog.Info("aggregate sample", "id", sampleID)
		var complete, result = batch.RunSample(sampleID)
		batch.Results = append(batch.Results, result)
		if result.Err != nil {
			slog.Error("skip sample", "id", sampleID, "err", result.Err)
			continue
		}
		succeeded++
		batch.Combined = append(batch.Combined, complete...)
	}
	if succeeded == 0 {
		return fmt.Errorf("all %d samples failed under [%s]", len(samples), batch.InputDir)
	}

	WriteCompleteTable(batch.OutputPrefix+"gRNA_clonalbarcode_combined.csv", batch.Combined)
	batch.WriteSummaryXlsx(batch.OutputPrefix + "summary.xlsx")
	return nil
}

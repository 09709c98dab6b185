package dualguide

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

func TestBatchRun(t *testing.T) {
	var (
		inputDir = t.TempDir()
		prefix   = filepath.Join(t.TempDir(), "out") + "/"
	)

	writeSample(t, filepath.Join(inputDir, "M1"), "G000001_G000002", []string{
		RecordTitle,
		intermediateRow("G000001", "G000002", "BARCODEAAAACCCC1", "@r1", "M1", "Expected"),
		intermediateRow("G000001", "G000002", "BARCODEAAAACCCC1", "@r2", "M1", "Expected"),
		intermediateRow("G000001", "G000002", "BARCODEAAAACCCC2", "@r3", "M1", "Expected"),
	})
	writeSample(t, filepath.Join(inputDir, "M2"), "G000001_G000002", []string{
		RecordTitle,
		intermediateRow("G000001", "G000002", "BARCODEAAAACCCC1", "@r1", "M2", "Expected"),
	})
	// a sample with no usable inputs is skipped, the run continues
	if err := os.MkdirAll(filepath.Join(inputDir, "Mbad"), 0755); err != nil {
		t.Fatal(err)
	}

	var batch = &Batch{InputDir: inputDir, OutputPrefix: prefix}
	if err := batch.BatchRun(); err != nil {
		t.Fatal(err)
	}

	if len(batch.Results) != 3 {
		t.Fatalf("got %d sample results; want 3", len(batch.Results))
	}
	var failed = 0
	for _, result := range batch.Results {
		if result.Err != nil {
			failed++
			if result.SampleID != "Mbad" {
				t.Errorf("sample %s failed: %v", result.SampleID, result.Err)
			}
		}
	}
	if failed != 1 {
		t.Errorf("got %d failed samples; want 1", failed)
	}

	for _, sampleID := range []string{"M1", "M2"} {
		for _, name := range []string{"Combined_ND_df.csv", "Combined_deduplexed_df.csv"} {
			if _, err := os.Stat(filepath.Join(prefix+sampleID, name)); err != nil {
				t.Errorf("missing output: %v", err)
			}
		}
	}
	if _, err := os.Stat(prefix + "summary.xlsx"); err != nil {
		t.Errorf("missing summary workbook: %v", err)
	}

	// the combined table filtered by sample reproduces that sample's
	// own complete table
	var combined = readLines(t, prefix+"gRNA_clonalbarcode_combined.csv")
	if combined[0] != CompleteTitle {
		t.Fatalf("combined title = %q", combined[0])
	}
	for _, sampleID := range []string{"M1", "M2"} {
		var fromCombined []string
		for _, line := range combined[1:] {
			if strings.Contains(line, ","+sampleID+",") {
				fromCombined = append(fromCombined, line)
			}
		}
		var own = readLines(t, filepath.Join(prefix+sampleID, "Combined_deduplexed_df.csv"))[1:]
		sort.Strings(fromCombined)
		sort.Strings(own)
		if strings.Join(fromCombined, "\n") != strings.Join(own, "\n") {
			t.Errorf(
				"sample %s: combined slice %v != own table %v",
				sampleID, fromCombined, own,
			)
		}
	}
}

func TestBatchRunIdempotent(t *testing.T) {
	// unchanged inputs reproduce identical tables
	var inputDir = t.TempDir()
	writeSample(t, filepath.Join(inputDir, "M1"), "G000001_G000002", []string{
		RecordTitle,
		intermediateRow("G000001", "G000002", "BARCODEAAAACCCC1", "@r1", "M1", "Expected"),
		intermediateRow("G000001", "G000002", "BARCODEAAAACCCC1", "@r2", "M1", "Expected"),
		intermediateRow("G000001", "G000002", "BARCODEAAAACCCC2", "@r3", "M1", "Expected"),
	})

	var prefixes [2]string
	for i := range prefixes {
		prefixes[i] = filepath.Join(t.TempDir(), "out") + "/"
		var batch = &Batch{InputDir: inputDir, OutputPrefix: prefixes[i]}
		if err := batch.BatchRun(); err != nil {
			t.Fatal(err)
		}
	}

	for _, name := range []string{
		"M1/Combined_ND_df.csv",
		"M1/Combined_deduplexed_df.csv",
		"gRNA_clonalbarcode_combined.csv",
	} {
		var (
			first  = strings.Join(readLines(t, prefixes[0]+name), "\n")
			second = strings.Join(readLines(t, prefixes[1]+name), "\n")
		)
		if first != second {
			t.Errorf("%s differs between runs:\n%s\n---\n%s", name, first, second)
		}
	}
}

func TestBatchRunEmptyInput(t *testing.T) {
	var batch = &Batch{InputDir: t.TempDir(), OutputPrefix: t.TempDir() + "/"}
	if err := batch.BatchRun(); err == nil {
		t.Error("Expected an error for an input dir without samples, but got nil")
	}
}

package dualguide

import (
	"sort"
	"strings"

	"github.com/liserjrqlxue/goUtil/fmtUtil"
	"github.com/liserjrqlxue/goUtil/osUtil"
	"github.com/liserjrqlxue/goUtil/simpleUtil"
)

const (
	RawTitle      = "gRNA_combination,Clonal_barcode_center,gRNA1,gRNA2,Clonal_barcode,Sample_ID,Frequency"
	CompleteTitle = "gRNA_combination,Clonal_barcode,gRNA1,gRNA2,Sample_ID,Frequency"
)

// FrequencyRow is one deduplicated group. Raw rows keep the raw Barcode
// next to its cluster Center; complete rows collapse the raw barcodes of
// a cluster, Barcode stays empty and Center carries the output barcode.
type FrequencyRow struct {
	Combination string
	Center      string
	Guide1      string
	Guide2      string
	Barcode     string
	SampleID    string
	Frequency   int
}

const keySep = "\x00"

// DeduplicateRaw counts unified rows per
// (gRNA_combination, Clonal_barcode_center, gRNA1, gRNA2, Clonal_barcode,
// Sample_ID), keeping raw barcode variants within a cluster distinct.
// Rows without a cluster center are excluded: their barcode has no
// cluster correspondence. Groups come out in lexicographic key order.
func DeduplicateRaw(rows []UnifiedRow) (out []FrequencyRow) {
	var count = make(map[string]int)
	for _, row := range rows {
		if row.Center == "" {
			continue
		}
		var key = strings.Join(
			[]string{row.Combination, row.Center, row.Guide1, row.Guide2, row.Barcode, row.SampleID},
			keySep,
		)
		count[key]++
	}
	for _, key := range sortedKeys(count) {
		var a = strings.Split(key, keySep)
		out = append(out, FrequencyRow{
			Combination: a[0],
			Center:      a[1],
			Guide1:      a[2],
			Guide2:      a[3],
			Barcode:     a[4],
			SampleID:    a[5],
			Frequency:   count[key],
		})
	}
	return
}

// DeduplicateComplete counts unified rows per
// (gRNA_combination, Clonal_barcode_center, gRNA1, gRNA2, Sample_ID),
// collapsing all raw barcodes that share a cluster center. Rows without
// a cluster center are excluded, as in DeduplicateRaw.
func DeduplicateComplete(rows []UnifiedRow) (out []FrequencyRow) {
	var count = make(map[string]int)
	for _, row := range rows {
		if row.Center == "" {
			continue
		}
		var key = strings.Join(
			[]string{row.Combination, row.Center, row.Guide1, row.Guide2, row.SampleID},
			keySep,
		)
		count[key]++
	}
	for _, key := range sortedKeys(count) {
		var a = strings.Split(key, keySep)
		out = append(out, FrequencyRow{
			Combination: a[0],
			Center:      a[1],
			Guide1:      a[2],
			Guide2:      a[3],
			SampleID:    a[4],
			Frequency:   count[key],
		})
	}
	return
}

func sortedKeys(count map[string]int) (keys []string) {
	for key := range count {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return
}

// WriteRawTable writes Combined_ND_df.csv
func WriteRawTable(path string, rows []FrequencyRow) {
	var out = osUtil.Create(path)
	defer simpleUtil.DeferClose(out)

	fmtUtil.Fprintln(out, RawTitle)
	for _, row := range rows {
		fmtUtil.Fprintf(
			out,
			"%s,%s,%s,%s,%s,%s,%d\n",
			row.Combination, row.Center, row.Guide1, row.Guide2, row.Barcode, row.SampleID, row.Frequency,
		)
	}
}

// WriteCompleteTable writes Combined_deduplexed_df.csv and the final
// combined table, with the cluster center in the Clonal_barcode column.
func WriteCompleteTable(path string, rows []FrequencyRow) {
	var out = osUtil.Create(path)
	defer simpleUtil.DeferClose(out)

	fmtUtil.Fprintln(out, CompleteTitle)
	for _, row := range rows {
		fmtUtil.Fprintf(
			out,
			"%s,%s,%s,%s,%s,%d\n",
			row.Combination, row.Center, row.Guide1, row.Guide2, row.SampleID, row.Frequency,
		)
	}
}

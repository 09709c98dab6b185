package dualguide

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/liserjrqlxue/goUtil/osUtil"
	"github.com/liserjrqlxue/goUtil/textUtil"
)

// cluster table row, from *_cluster.csv (Cluster.Score and time_point_1
// columns are dropped on load)
type ClusterRow struct {
	ClusterID string
	Center    string
}

// barcode table row, from *_barcode.csv (Frequency column is dropped on load)
type BarcodeRow struct {
	ClusterID string
	Barcode   string // Unique.reads
}

// BartenderPair is one (Clonal_barcode,Read_ID) line of a .bartender file
type BartenderPair struct {
	Barcode string
	ReadID  string
}

// MergedRow is the result of the cluster and bartender joins. Center is
// empty when the barcode has no cluster correspondence.
type MergedRow struct {
	Barcode string
	Center  string
	ReadID  string
}

// UnifiedRow is one fully annotated read of a sample.
type UnifiedRow struct {
	Combination string
	Center      string
	Guide1      string
	Guide2      string
	Barcode     string
	ReadID      string
	SampleID    string
	Class       string
}

// MergeStats makes the lossy joins observable: both inner joins drop
// unmatched rows on purpose, the counts tell how many.
type MergeStats struct {
	PartitionFiles int
	BarcodeRows    int
	ClusterRows    int
	ClusterDropped int // barcode rows without a cluster entry
	BartenderPairs   int
	BartenderSkipped int // malformed bartender lines without a comma
	MergedRows       int
	ReadRecords      int
	ReadDropped      int // merged rows without a per-read record
	UnifiedRows      int
	OrphanDropped    int // unified rows whose barcode lost its cluster center
}

func LoadClusterTable(path string) (rows []ClusterRow) {
	var data, _ = textUtil.File2MapArray(path, ",", nil)
	for _, item := range data {
		rows = append(rows, ClusterRow{
			ClusterID: item["Cluster.ID"],
			Center:    item["Center"],
		})
	}
	return
}

func LoadBarcodeTable(path string) (rows []BarcodeRow) {
	var data, _ = textUtil.File2MapArray(path, ",", nil)
	for _, item := range data {
		rows = append(rows, BarcodeRow{
			ClusterID: item["Cluster.ID"],
			Barcode:   item["Unique.reads"],
		})
	}
	return
}

func LoadBartenderPairs(path string) (pairs []BartenderPair, skipped int) {
	for _, line := range textUtil.File2Array(path) {
		var a = strings.SplitN(line, ",", 2)
		if len(a) < 2 {
			skipped++
			continue
		}
		pairs = append(pairs, BartenderPair{Barcode: a[0], ReadID: a[1]})
	}
	if skipped > 0 {
		slog.Warn("skip malformed bartender lines", "path", path, "skipped", skipped)
	}
	return
}

// JoinCluster inner-joins barcode rows with cluster rows on Cluster.ID.
// Barcode rows whose cluster id has no cluster entry are dropped and
// counted in stats.ClusterDropped.
func JoinCluster(barcodes []BarcodeRow, clusters []ClusterRow, stats *MergeStats) (rows []MergedRow) {
	var centers = make(map[string][]string)
	for _, cluster := range clusters {
		centers[cluster.ClusterID] = append(centers[cluster.ClusterID], cluster.Center)
	}
	for _, barcode := range barcodes {
		var cs, ok = centers[barcode.ClusterID]
		if !ok {
			stats.ClusterDropped++
			continue
		}
		for _, center := range cs {
			rows = append(rows, MergedRow{Barcode: barcode.Barcode, Center: center})
		}
	}
	return
}

// JoinBartender right-joins the cluster-join result onto the bartender
// pairs on the barcode: every pair is kept, Center stays empty when the
// barcode has no cluster correspondence.
func JoinBartender(merged []MergedRow, pairs []BartenderPair) (rows []MergedRow) {
	var byBarcode = make(map[string][]MergedRow)
	for _, row := range merged {
		byBarcode[row.Barcode] = append(byBarcode[row.Barcode], row)
	}
	for _, pair := range pairs {
		var ms, ok = byBarcode[pair.Barcode]
		if !ok {
			rows = append(rows, MergedRow{Barcode: pair.Barcode, ReadID: pair.ReadID})
			continue
		}
		for _, m := range ms {
			rows = append(rows, MergedRow{Barcode: pair.Barcode, Center: m.Center, ReadID: pair.ReadID})
		}
	}
	return
}

// readRecord is the per-read annotation recovered from Intermediate_df.csv
type readRecord struct {
	Guide1      string
	Guide2      string
	SampleID    string
	Class       string
	Combination string
}

func loadReadRecords(path string) (records map[string][]readRecord, n int) {
	records = make(map[string][]readRecord)
	var data, _ = textUtil.File2MapArray(path, ",", nil)
	for _, item := range data {
		var key = item["Read_ID"] + "\x00" + item["Clonal_barcode"]
		records[key] = append(records[key], readRecord{
			Guide1:      item["gRNA1"],
			Guide2:      item["gRNA2"],
			SampleID:    item["Sample_ID"],
			Class:       item["Class"],
			Combination: item["gRNA_combination"],
		})
		n++
	}
	return
}

// JoinReads inner-joins the merged rows with the per-read records on
// (Read_ID, Clonal_barcode). Merged rows without a record are dropped
// and counted in stats.ReadDropped.
func JoinReads(merged []MergedRow, records map[string][]readRecord, stats *MergeStats) (rows []UnifiedRow) {
	for _, m := range merged {
		var rs, ok = records[m.ReadID+"\x00"+m.Barcode]
		if !ok {
			stats.ReadDropped++
			continue
		}
		for _, r := range rs {
			rows = append(rows, UnifiedRow{
				Combination: r.Combination,
				Center:      m.Center,
				Guide1:      r.Guide1,
				Guide2:      r.Guide2,
				Barcode:     m.Barcode,
				ReadID:      m.ReadID,
				SampleID:    r.SampleID,
				Class:       r.Class,
			})
		}
	}
	return
}

// FindClusterFiles walks a sample tree for
// **/Clonal_barcode/*_cluster.csv, sorted for deterministic output.
func FindClusterFiles(sampleDir string) (files []string, err error) {
	err = filepath.WalkDir(sampleDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasSuffix(path, "_cluster.csv") &&
			filepath.Base(filepath.Dir(path)) == "Clonal_barcode" {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return
}

// CombineSample reconstructs the unified read table of one sample: every
// partition's cluster, barcode and bartender files are merged, the
// partition results concatenated, then joined with the sample's
// Intermediate_df.csv.
func CombineSample(sampleDir string) (unified []UnifiedRow, stats MergeStats, err error) {
	var clusterFiles []string
	clusterFiles, err = FindClusterFiles(sampleDir)
	if err != nil {
		return
	}
	if len(clusterFiles) == 0 {
		err = fmt.Errorf("no Clonal_barcode/*_cluster.csv under [%s]", sampleDir)
		return
	}
	stats.PartitionFiles = len(clusterFiles)

	var refFile = filepath.Join(sampleDir, "Intermediate_df.csv")
	if !osUtil.FileExists(refFile) {
		err = fmt.Errorf("missing [%s]", refFile)
		return
	}

	var merged []MergedRow
	for _, clusterFile := range clusterFiles {
		var (
			barcodeFile   = strings.ReplaceAll(clusterFile, "cluster", "barcode")
			bartenderFile = strings.TrimSuffix(clusterFile, "_cluster.csv") + ".bartender"
		)
		if !osUtil.FileExists(barcodeFile) || !osUtil.FileExists(bartenderFile) {
			err = fmt.Errorf("missing [%s] or [%s]", barcodeFile, bartenderFile)
			return
		}

		var (
			barcodes       = LoadBarcodeTable(barcodeFile)
			clusters       = LoadClusterTable(clusterFile)
			pairs, skipped = LoadBartenderPairs(bartenderFile)
		)
		stats.BarcodeRows += len(barcodes)
		stats.ClusterRows += len(clusters)
		stats.BartenderPairs += len(pairs)
		stats.BartenderSkipped += skipped

		merged = append(merged, JoinBartender(JoinCluster(barcodes, clusters, &stats), pairs)...)
	}
	stats.MergedRows = len(merged)

	var records, n = loadReadRecords(refFile)
	stats.ReadRecords = n

	unified = JoinReads(merged, records, &stats)
	stats.UnifiedRows = len(unified)
	for _, row := range unified {
		if row.Center == "" {
			stats.OrphanDropped++
		}
	}

	slog.Info(
		"combine sample",
		"dir", sampleDir,
		"partitions", stats.PartitionFiles,
		"clusterDropped", stats.ClusterDropped,
		"bartenderSkipped", stats.BartenderSkipped,
		"readDropped", stats.ReadDropped,
		"unified", stats.UnifiedRows,
		"orphanDropped", stats.OrphanDropped,
	)
	return
}

package dualguide

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/cloudflare/ahocorasick"
	gzip "github.com/klauspost/pgzip"

	"github.com/liserjrqlxue/goUtil/fmtUtil"
	"github.com/liserjrqlxue/goUtil/osUtil"
	"github.com/liserjrqlxue/goUtil/simpleUtil"
	"github.com/liserjrqlxue/goUtil/textUtil"
)

// extraction patterns
// read1: 16nt clonal barcode then 16-21nt gRNA1 between fixed flanks
// read2 (reverse complemented): 16-21nt gRNA2 between fixed flanks
var (
	regGuide1 = regexp.MustCompile(`TAGTT(.{16})TATGG(.{16,21})GTTTA`)
	regGuide2 = regexp.MustCompile(`TGTTG(.{16,21})GTTTG`)
)

// fixed flanks of regGuide1/regGuide2, prescreened with Aho-Corasick:
// a read missing any flank cannot submatch, so it skips the regexp
var (
	anchors1 = []string{"TAGTT", "TATGG", "GTTTA"}
	anchors2 = []string{"TGTTG", "GTTTG"}
)

const RecordTitle = "gRNA1,gRNA2,Clonal_barcode,Read_ID,Sample_ID,Class,gRNA_combination"

// Record is one read pair with both patterns matched
type Record struct {
	Guide1  string
	Guide2  string
	Barcode string
	ReadID  string
	Class   string // Expected or Unexpected
}

func (r *Record) Combination() string {
	return r.Guide1 + "_" + r.Guide2
}

type ExtractInfo struct {
	SampleID  string
	Fastq1    string
	Fastq2    string
	OutputDir string

	Guide1Set map[string]bool
	Guide2Set map[string]bool

	matcher1 *ahocorasick.Matcher
	matcher2 *ahocorasick.Matcher

	TotalReads     int
	ExtractedReads int
	MatchedReads   int

	Records []*Record
}

func NewExtractInfo(fq1, fq2, ref, outputDir string) *ExtractInfo {
	var info = &ExtractInfo{
		SampleID:  filepath.Base(outputDir),
		Fastq1:    fq1,
		Fastq2:    fq2,
		OutputDir: outputDir,
		Guide1Set: make(map[string]bool),
		Guide2Set: make(map[string]bool),
		matcher1:  ahocorasick.NewStringMatcher(anchors1),
		matcher2:  ahocorasick.NewStringMatcher(anchors2),
	}
	info.LoadRef(ref)
	return info
}

// LoadRef loads the reference sgRNA csv and fills the two guide sets
// from its Position (G1/G2) and gRNA_complete columns.
func (info *ExtractInfo) LoadRef(path string) {
	var data, _ = textUtil.File2MapArray(path, ",", nil)
	for _, item := range data {
		switch item["Position"] {
		case "G1":
			info.Guide1Set[item["gRNA_complete"]] = true
		case "G2":
			info.Guide2Set[item["gRNA_complete"]] = true
		}
	}
	slog.Info("load reference", "path", path, "G1", len(info.Guide1Set), "G2", len(info.Guide2Set))
}

// Extract consumes both fastq streams in lock-step, one record from each
// per iteration. The two files must stay record-aligned: if one stream
// ends before the other, or a 4-line record is truncated, Extract returns
// an error instead of silently truncating.
func (info *ExtractInfo) Extract() error {
	var (
		inF1 = osUtil.Open(info.Fastq1)
		inF2 = osUtil.Open(info.Fastq2)
		gr1  = simpleUtil.HandleError(gzip.NewReader(inF1))
		gr2  = simpleUtil.HandleError(gzip.NewReader(inF2))

		scanner1 = bufio.NewScanner(gr1)
		scanner2 = bufio.NewScanner(gr2)

		n      = 0
		readID string
	)
	defer simpleUtil.DeferClose(inF1)
	defer simpleUtil.DeferClose(inF2)
	defer simpleUtil.DeferClose(gr1)
	defer simpleUtil.DeferClose(gr2)

	for {
		var ok1 = scanner1.Scan()
		var ok2 = scanner2.Scan()
		if ok1 != ok2 {
			return fmt.Errorf(
				"fastq desynchronization after %d lines: [%s] and [%s] differ in length",
				n, info.Fastq1, info.Fastq2,
			)
		}
		if !ok1 {
			break
		}
		n++
		switch n % 4 {
		case 1:
			readID = scanner1.Text()
		case 2:
			info.Extract1Pair(readID, scanner1.Text(), ReverseComplement(scanner2.Text()))
		}
	}
	simpleUtil.CheckErr(scanner1.Err())
	simpleUtil.CheckErr(scanner2.Err())

	if n%4 != 0 {
		return fmt.Errorf("truncated fastq record: %d lines in [%s]", n, info.Fastq1)
	}
	return nil
}

// Extract1Pair applies both patterns to one read pair. seq2 is the
// already reverse-complemented mate-2 sequence.
func (info *ExtractInfo) Extract1Pair(readID, seq1, seq2 string) {
	info.TotalReads++

	if len(info.matcher1.Match([]byte(seq1))) < len(anchors1) ||
		len(info.matcher2.Match([]byte(seq2))) < len(anchors2) {
		return
	}
	var match1 = regGuide1.FindStringSubmatch(seq1)
	if match1 == nil {
		return
	}
	var match2 = regGuide2.FindStringSubmatch(seq2)
	if match2 == nil {
		return
	}

	info.ExtractedReads++
	var record = &Record{
		Barcode: match1[1],
		Guide1:  match1[2],
		Guide2:  match2[1],
		ReadID:  readID,
		Class:   "Unexpected",
	}
	if info.Guide1Set[record.Guide1] && info.Guide2Set[record.Guide2] {
		info.MatchedReads++
		record.Class = "Expected"
	}
	info.Records = append(info.Records, record)
}

// WriteRecords writes Unexpected_reads.csv (Unexpected only) and
// Intermediate_df.csv (every record with both patterns matched,
// Unexpected included).
func (info *ExtractInfo) WriteRecords() {
	var (
		unexpected   = osUtil.Create(filepath.Join(info.OutputDir, "Unexpected_reads.csv"))
		intermediate = osUtil.Create(filepath.Join(info.OutputDir, "Intermediate_df.csv"))
	)
	defer simpleUtil.DeferClose(unexpected)
	defer simpleUtil.DeferClose(intermediate)

	fmtUtil.Fprintln(unexpected, RecordTitle)
	fmtUtil.Fprintln(intermediate, RecordTitle)
	for _, record := range info.Records {
		var line = fmt.Sprintf(
			"%s,%s,%s,%s,%s,%s,%s",
			record.Guide1, record.Guide2, record.Barcode, record.ReadID,
			info.SampleID, record.Class, record.Combination(),
		)
		if record.Class == "Unexpected" {
			fmtUtil.Fprintln(unexpected, line)
		}
		fmtUtil.Fprintln(intermediate, line)
	}
}

// WriteBartender partitions the records by gRNA combination, writes one
// headerless (Clonal_barcode,Read_ID) file per combination under
// Clonal_barcode/, and lists every partition path in the
// Bartender_input_address manifest.
func (info *ExtractInfo) WriteBartender() {
	var dir = filepath.Join(info.OutputDir, "Clonal_barcode")
	simpleUtil.CheckErr(os.MkdirAll(dir, 0755))

	var groups = make(map[string][]*Record)
	for _, record := range info.Records {
		var key = record.Combination()
		groups[key] = append(groups[key], record)
	}
	var keys []string
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var manifest = osUtil.Create(filepath.Join(info.OutputDir, "Bartender_input_address"))
	defer simpleUtil.DeferClose(manifest)
	for _, key := range keys {
		var path = filepath.Join(dir, key+".bartender")
		fmtUtil.Fprintln(manifest, path)

		var out = osUtil.Create(path)
		for _, record := range groups[key] {
			fmtUtil.Fprintf(out, "%s,%s\n", record.Barcode, record.ReadID)
		}
		simpleUtil.CheckErr(out.Close())
	}
}

// Summary is the one line report printed after extraction. Rates are
// zero when no read was processed.
func (info *ExtractInfo) Summary() string {
	var extractedRate, matchedRate float64
	if info.TotalReads > 0 {
		extractedRate = float64(info.ExtractedReads) / float64(info.TotalReads)
		matchedRate = float64(info.MatchedReads) / float64(info.TotalReads)
	}
	return fmt.Sprintf(
		"Sample %s has a total of %d reads. %d reads (%.3f) have barcode and sgRNA. %d reads (%.3f) have expected sgRNA.",
		info.SampleID, info.TotalReads,
		info.ExtractedReads, extractedRate,
		info.MatchedReads, matchedRate,
	)
}

// SingleRun extracts one sample and writes all extraction outputs.
func (info *ExtractInfo) SingleRun() error {
	simpleUtil.CheckErr(os.MkdirAll(info.OutputDir, 0755))
	if err := info.Extract(); err != nil {
		return err
	}
	info.WriteRecords()
	info.WriteBartender()
	return nil
}

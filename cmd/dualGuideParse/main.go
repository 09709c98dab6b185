package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"DualGuideBarcode/pkg/dualguide"
)

var (
	fq1 = flag.String(
		"1",
		"",
		"input fastq gz R1",
	)
	fq2 = flag.String(
		"2",
		"",
		"input fastq gz R2",
	)
	ref = flag.String(
		"b",
		"",
		"reference sgRNA csv, columns Position(G1/G2) and gRNA_complete",
	)
	outputDir = flag.String(
		"o",
		"",
		"output directory, its base name is the Sample_ID",
	)
)

func main() {
	t0 := time.Now()
	flag.Parse()
	if *fq1 == "" || *fq2 == "" || *ref == "" || *outputDir == "" {
		flag.PrintDefaults()
		log.Fatal("-1/-2/-b/-o required!")
	}

	var info = dualguide.NewExtractInfo(*fq1, *fq2, *ref, *outputDir)
	if err := info.SingleRun(); err != nil {
		log.Fatal(err)
	}
	fmt.Println(info.Summary())

	log.Print("Done in ", time.Since(t0))
}

package main

import (
	"flag"
	"log"
	"time"

	"DualGuideBarcode/pkg/dualguide"
)

var (
	input = flag.String(
		"i",
		"",
		"input folder containing one subdirectory per sample",
	)
	output = flag.String(
		"o",
		"",
		"output prefix",
	)
)

func main() {
	t0 := time.Now()
	flag.Parse()
	if *input == "" || *output == "" {
		flag.PrintDefaults()
		log.Fatal("-i/-o required!")
	}

	var batch = &dualguide.Batch{
		InputDir:     *input,
		OutputPrefix: *output,
	}
	if err := batch.BatchRun(); err != nil {
		log.Fatal(err)
	}

	log.Print("Done in ", time.Since(t0))
}

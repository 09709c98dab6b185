package main

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"regexp"

	// "compress/gzip"
	gzip "github.com/klauspost/pgzip"

	"github.com/liserjrqlxue/DNA/pkg/util"
	"github.com/liserjrqlxue/goUtil/osUtil"
	"github.com/liserjrqlxue/goUtil/simpleUtil"
)

var isGz = regexp.MustCompile(`\.gz$`)

// rc prints the reverse complement of its arguments: sequences directly,
// files (plain or gz) line by line, stdin when no argument is given.
func main() {
	var paths []string
	for i, v := range os.Args {
		if i == 0 {
			continue
		}
		if osUtil.FileExists(v) {
			paths = append(paths, v)
		} else {
			fmt.Println(util.ReverseComplement(v))
		}
	}
	if len(paths) == 0 && len(os.Args) == 1 {
		rcLines(os.Stdin, "STDIN")
	}
	for _, path := range paths {
		var in = osUtil.Open(path)
		if isGz.MatchString(path) {
			var gr = simpleUtil.HandleError(gzip.NewReader(in))
			rcLines(gr, path)
			simpleUtil.CheckErr(gr.Close())
		} else {
			rcLines(in, path)
		}
		simpleUtil.CheckErr(in.Close())
	}
}

func rcLines(r io.Reader, name string) {
	var scanner = bufio.NewScanner(r)
	for scanner.Scan() {
		fmt.Println(util.ReverseComplement(scanner.Text()))
	}
	if scanner.Err() != nil {
		log.Fatalf("file:[%s] load with error:[%v]", name, scanner.Err())
	}
}

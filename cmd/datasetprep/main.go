// Command datasetprep splits a labeled CSV export into train/validation/test
// JSONL files for fine-tuning the category classifier.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"sort"
	"time"

	"github.com/devansoliman/cs152bots-spr24-group19/internal/dataset"
)

func main() {
	var (
		inPath    = flag.String("in", "", "input CSV file (message,category per row)")
		trainPath = flag.String("train", "finetuning_train.jsonl", "output training JSONL file")
		valPath   = flag.String("val", "finetuning_val.jsonl", "output validation JSONL file")
		testPath  = flag.String("test", "finetuning_test.jsonl", "output test JSONL file")
		trainSize = flag.Int("train-size", 100, "number of training examples")
		valSize   = flag.Int("val-size", 25, "number of validation examples")
		seed      = flag.Int64("seed", 0, "shuffle seed (0 uses the current time)")
	)
	flag.Parse()

	if *inPath == "" {
		flag.Usage()
		log.Fatalf("-in is required")
	}

	f, err := os.Open(*inPath)
	if err != nil {
		log.Fatalf("open input: %v", err)
	}
	defer f.Close()

	records, err := dataset.ReadRows(f)
	if err != nil {
		log.Fatalf("read input: %v", err)
	}

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	split := dataset.SplitRows(records, *trainSize, *valSize, rand.New(rand.NewSource(*seed)))

	writeSet(*trainPath, split.Train)
	writeSet(*valPath, split.Val)
	writeSet(*testPath, split.Test)

	printCounts("Training set", split.Train)
	printCounts("Validation set", split.Val)
	printCounts("Test set", split.Test)
}

func writeSet(path string, rows []dataset.Row) {
	f, err := os.Create(path)
	if err != nil {
		log.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	n, err := dataset.WriteJSONL(f, rows)
	if err != nil {
		log.Fatalf("write %s: %v", path, err)
	}
	fmt.Printf("Total entries written to %s: %d\n", path, n)
}

func printCounts(name string, rows []dataset.Row) {
	counts := dataset.Counts(rows)
	labels := make([]string, 0, len(counts))
	for label := range counts {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	fmt.Printf("\n%s category counts:\n", name)
	for _, label := range labels {
		fmt.Printf("%s: %d\n", label, counts[label])
	}
}

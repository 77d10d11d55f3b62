//go:build ignore

// generate_testdata.go writes catalogue snapshots of increasing size for
// manual benchmarking of the browser and the exporters.
// Usage: go run scripts/generate_testdata.go [-out dir]
//
// Creates:
//
//	testdata/benchmark/small.json   (depth 3, breadth 3)
//	testdata/benchmark/medium.json  (depth 4, breadth 5)
//	testdata/benchmark/large.json   (depth 5, breadth 6)
//	testdata/benchmark/large.yaml   (same tree as large.json)
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/reqdb/pkg/model"
	"github.com/vanderheijden86/reqdb/pkg/testutil"
)

type datasetSpec struct {
	name    string
	depth   int
	breadth int
	maxReqs int
	yaml    bool
}

var datasets = []datasetSpec{
	{"small", 3, 3, 4, false},
	{"medium", 4, 5, 6, false},
	{"large", 5, 6, 8, true},
}

var titles = []string{
	"Enforce multi-factor authentication",
	"Rotate service credentials",
	"Log privileged access",
	"Encrypt data at rest",
	"Review firewall rules",
	"Document incident response",
	"Restrict admin interfaces",
	"Patch within 30 days",
}

func main() {
	outputDir := flag.String("out", "testdata/benchmark", "output directory")
	flag.Parse()

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create output directory: %v\n", err)
		os.Exit(1)
	}

	for i, ds := range datasets {
		cfg := testutil.DefaultConfig()
		cfg.Seed = int64(100 + i)
		cfg.WithComments = true
		cfg.EmptyTopics = true

		cat := testutil.New(cfg).Tree(ds.depth, ds.breadth, ds.maxReqs)
		cat.Title = fmt.Sprintf("Benchmark %s", ds.name)
		addRealisticTitles(cat)

		data, err := json.MarshalIndent(cat, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode %s: %v\n", ds.name, err)
			os.Exit(1)
		}
		write(filepath.Join(*outputDir, ds.name+".json"), data)

		if ds.yaml {
			data, err := yaml.Marshal(cat)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Failed to encode %s: %v\n", ds.name, err)
				os.Exit(1)
			}
			write(filepath.Join(*outputDir, ds.name+".yaml"), data)
		}
		fmt.Printf("  %s: %d requirements\n", ds.name, cat.RequirementCount())
	}

	fmt.Println("\nDone! Snapshots created in", *outputDir)
}

func write(path string, data []byte) {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", path, err)
		os.Exit(1)
	}
	fmt.Printf("Written %s (%d bytes)\n", path, len(data))
}

func addRealisticTitles(cat *model.Catalogue) {
	n := 0
	cat.Walk(func(t *model.Topic, _ int) bool {
		for _, r := range t.Requirements {
			r.Title = fmt.Sprintf("%s (%s)", titles[n%len(titles)], r.Key)
			n++
		}
		return true
	})
}

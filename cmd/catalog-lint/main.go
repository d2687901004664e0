// Package main provides the catalog linter for nova.
// It validates custom catalog files against the entry schema so authoring
// mistakes surface before a worker or console loads them.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sosagent/nova/internal/catalog"
)

func main() {
	initPath := flag.String("init", "", "Write a starter catalog template to PATH and exit")
	flag.Parse()

	if *initPath != "" {
		if err := catalog.SaveTemplate(*initPath); err != nil {
			fmt.Fprintf(os.Stderr, "catalog-lint: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("✅ Template saved to %s\n", *initPath)
		return
	}

	files := flag.Args()
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "usage: catalog-lint [-init PATH] FILE...")
		os.Exit(2)
	}

	failed := 0
	for _, path := range files {
		if !lintFile(path) {
			failed++
		}
	}

	if failed > 0 {
		fmt.Printf("\n%d of %d files have problems\n", failed, len(files))
		os.Exit(1)
	}
	fmt.Printf("\n%d files OK\n", len(files))
}

// lintFile validates one catalog file and prints its findings. It returns
// false when the file is unreadable or any entry fails validation.
func lintFile(path string) bool {
	cat, issues, err := catalog.Load(path)
	if err != nil {
		fmt.Printf("%s: %v\n", path, err)
		return false
	}

	for _, issue := range issues {
		fmt.Printf("%s: %s\n", path, issue.Error())
	}

	total := cat.Len() + len(issues)
	if len(issues) > 0 {
		fmt.Printf("%s: %d of %d entries OK\n", path, cat.Len(), total)
		return false
	}
	fmt.Printf("%s: %d entries OK\n", path, cat.Len())
	return true
}

// Command resetpages clears scraped content and scheduling state from every
// board document in a pages directory, leaving the board's identity and
// policy untouched.
package main

import (
	"flag"
	"fmt"
	"os"

	"jobwatch/pkg/store"
)

func main() {
	var (
		pagesDirFlag = flag.String("pages-dir", "data/pages", "Directory with *.json board documents")
		backupFlag   = flag.Bool("backup", false, "Write a .bak copy of each document before modifying it")
	)
	flag.Parse()

	n, err := resetPages(*pagesDirFlag, *backupFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "resetpages: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Done. Reset %d page(s).\n", n)
}

func resetPages(pagesDir string, backup bool) (int, error) {
	s := store.New(pagesDir, nil)

	files, err := s.ListPageFiles()
	if err != nil {
		return 0, fmt.Errorf("listing page files: %w", err)
	}

	n := 0
	for _, f := range files {
		board, err := s.Load(f)
		if err != nil {
			fmt.Printf("Skipping %s: %v\n", f, err)
			continue
		}

		if backup {
			if err := copyFile(f, f+".bak"); err != nil {
				fmt.Printf("Skipping %s: backup failed: %v\n", f, err)
				continue
			}
		}

		board.Content = nil
		board.LastScraped = nil
		board.NextScrapeAt = nil

		if err := s.Save(board); err != nil {
			fmt.Printf("Skipping %s: %v\n", f, err)
			continue
		}
		fmt.Printf("Reset %s\n", f)
		n++
	}
	return n, nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}

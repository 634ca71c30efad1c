package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"gesagent/dataset"
	"gesagent/scrape"
	"gesagent/storage"
)

const batchSize = 10

func main() {
	out := flag.String("out", "data/dejure/cases", "output directory for JSONL files")
	csvPath := flag.String("csv", "", "optional CSV file path to also write a flattened subset")
	maxPages := flag.Int("max-pages", 50, "max pages to visit (0 = unlimited)")
	delay := flag.Float64("delay", 2.0, "seconds delay between requests")
	onlyCourt := flag.String("only-court", "", "optional court name filter (substring match against link text)")
	userAgent := flag.String("user-agent", scrape.DefaultUserAgent, "custom User-Agent string")
	dbDir := flag.String("db", "", "optional data directory: also ingest records into its sqlite case store")
	flag.Parse()

	if err := os.MkdirAll(*out, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	jsonlPath := filepath.Join(*out, "cases.jsonl")

	var store *storage.CaseStore
	if *dbDir != "" {
		var err error
		store, err = storage.NewCaseStore(*dbDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()
	}

	scraper := scrape.New(scrape.Options{
		BaseURL:     "https://dejure.org",
		StartPath:   "/gerichte",
		Delay:       time.Duration(*delay * float64(time.Second)),
		UserAgent:   *userAgent,
		CourtFilter: *onlyCourt,
		MaxPages:    *maxPages,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	written := 0
	var batch []dataset.CaseRecord
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := dataset.AppendCases(jsonlPath, batch); err != nil {
			return err
		}
		if *csvPath != "" {
			if err := dataset.AppendCasesCSV(*csvPath, batch); err != nil {
				return err
			}
		}
		if store != nil {
			if err := store.Ingest(batch); err != nil {
				return err
			}
		}
		written += len(batch)
		batch = batch[:0]
		return nil
	}

	err := scraper.Run(ctx, func(rec dataset.CaseRecord) error {
		batch = append(batch, rec)
		if len(batch) >= batchSize {
			return flush()
		}
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "Scrape error: %v\n", err)
		// Records gathered before the failure are still flushed below.
	}
	if flushErr := flush(); flushErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", flushErr)
		os.Exit(1)
	}

	msg := fmt.Sprintf("Wrote %d records to %s", written, jsonlPath)
	if *csvPath != "" {
		msg += " and " + *csvPath
	}
	fmt.Println(msg)
	if err != nil && !errors.Is(err, context.Canceled) {
		os.Exit(1)
	}
}

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"jobwatch/pkg/ats"
	"jobwatch/pkg/engine"
	"jobwatch/pkg/httpclient"
	"jobwatch/pkg/renderer"
	"jobwatch/pkg/scheduler"
	"jobwatch/pkg/store"
)

func main() {
	godotenv.Load()

	var (
		pagesDirFlag      = flag.String("pages-dir", "data/pages", "Directory holding board JSON documents")
		concurrencyFlag   = flag.Int("concurrency", 3, "Number of boards to scrape concurrently")
		onceFlag          = flag.Bool("once", false, "Run a single pass and exit")
		dryRunFlag        = flag.Bool("dry-run", false, "Scrape without writing results to disk")
		baseFrequencyFlag = flag.Duration("base-frequency", time.Hour, "Base scrape cadence")
		verboseFlag       = flag.Bool("verbose", false, "Verbose logging")
		protonLocations   = flag.String("proton-locations", "", "Comma-separated location terms the Proton adapter filters postings to (empty accepts all)")
	)
	flag.Parse()

	log := logrus.New()
	if *verboseFlag {
		log.SetLevel(logrus.DebugLevel)
	}

	app, err := NewApplication(*pagesDirFlag, *protonLocations, log)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}
	defer app.Close()

	cfg := scheduler.DefaultWorkerConfig()
	cfg.BaseFrequency = *baseFrequencyFlag
	cfg.Concurrency = *concurrencyFlag
	cfg.Once = *onceFlag
	cfg.DryRun = *dryRunFlag

	worker := scheduler.New(app.store, app.engine, cfg, log)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Infof("starting scheduler: pages-dir=%s concurrency=%d once=%v dry-run=%v", *pagesDirFlag, *concurrencyFlag, *onceFlag, *dryRunFlag)
	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("scheduler stopped: %v", err)
	}
}

// Application wires the scheduler's dependencies: the ATS registry (in the
// fixed dispatch order), the rendering/HTTP stack underneath it, the scrape
// engine built on top, and the page-document store.
type Application struct {
	store    *store.Store
	engine   *engine.Engine
	renderer *renderer.Renderer
}

func NewApplication(pagesDir, protonLocationsCSV string, log *logrus.Logger) (*Application, error) {
	httpClient := httpclient.New(log, 20*time.Second, 4, 8)
	r := renderer.New(log)

	var protonLocations []string
	if protonLocationsCSV != "" {
		for _, term := range strings.Split(protonLocationsCSV, ",") {
			term = strings.TrimSpace(term)
			if term != "" {
				protonLocations = append(protonLocations, term)
			}
		}
	}

	registry := ats.NewRegistry(
		ats.NewLeverAdapter(httpClient),
		ats.NewMetaAdapter(r),
		ats.NewMicrosoftAdapter(r),
		ats.NewProtonAdapter(r, protonLocations, 2),
		ats.NewWorkdayAdapter(httpClient),
		ats.NewJoinAdapter(r),
		ats.NewGreenhouseAdapter(r),
		ats.NewAshbyAdapter(r),
	)

	eng := engine.New(httpClient, r, registry, log)
	s := store.New(pagesDir, log)

	return &Application{store: s, engine: eng, renderer: r}, nil
}

func (a *Application) Close() {
	if a.renderer != nil {
		a.renderer.Close()
	}
}

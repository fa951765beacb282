package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"pizzeria-rag/internal/chromemdb"
	"pizzeria-rag/internal/config"
	"pizzeria-rag/internal/console"
	"pizzeria-rag/internal/ingest"
	"pizzeria-rag/internal/menu"
	"pizzeria-rag/internal/rag"
	"pizzeria-rag/internal/web"
)

const defaultConfigPath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Caller().Logger()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("Error loading .env file")
	}

	configPath := flag.String("config", defaultConfigPath, "Path to the YAML config file")
	pipeline := flag.String("pipeline", "menu", "Pipeline profile to use")
	ingestMenu := flag.Bool("ingest-menu", false, "Index the menu and allergen tables")
	files := flag.String("file", "", "Comma separated documents to index (pdf, docx, pptx, xlsx, txt, md)")
	reset := flag.Bool("reset", false, "Empty the collection before indexing")
	dryRun := flag.Bool("dry-run", false, "Dry run, print the chunks without saving them")
	query := flag.String("query", "", "Question to be answered")
	chat := flag.Bool("chat", false, "Start the console chat")
	serve := flag.Bool("serve", false, "Start the web chat")
	exportPath := flag.String("export", "", "Export the collection to a file (chromem store only)")
	importPath := flag.String("import", "", "Import the collection from a file (chromem store only)")
	flag.Parse()

	actions := 0
	for _, set := range []bool{*ingestMenu, *files != "", *query != "", *chat, *serve, *exportPath != "", *importPath != ""} {
		if set {
			actions++
		}
	}
	if actions != 1 {
		flag.Usage()
		log.Fatal().Msg("Please provide exactly one of -ingest-menu, -file, -query, -chat, -serve, -export or -import")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatal().Err(err).Str("level", cfg.LogLevel).Msg("Invalid log level")
	}
	zerolog.SetGlobalLevel(level)
	log.Debug().Interface("config", cfg).Msg("Loaded config")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := rag.Setup(ctx, cfg, *pipeline)
	if err != nil {
		log.Fatal().Err(err).Str("pipeline", *pipeline).Msg("Error setting up pipeline")
	}
	defer p.Close()

	opts := ingest.Options{Reset: *reset, DryRun: *dryRun}
	if *dryRun {
		opts.Preview = os.Stdout
	}

	switch {
	case *ingestMenu:
		err = storeMenu(ctx, cfg, p, opts)
	case *files != "":
		err = storeFiles(ctx, cfg, p, splitList(*files), opts)
	case *query != "":
		err = performRAG(ctx, p, *query)
	case *chat:
		err = console.New(os.Stdin, os.Stdout, console.Glamour).Run(ctx, p)
	case *serve:
		err = serveWeb(ctx, cfg, p)
	case *exportPath != "":
		err = withChromem(p, func(db *chromemdb.VectorDBManager) error { return db.Export(ctx, *exportPath) })
	case *importPath != "":
		err = withChromem(p, func(db *chromemdb.VectorDBManager) error { return db.Import(ctx, *importPath) })
	}
	if err != nil {
		log.Error().Err(err).Msg("Command failed")
		p.Close()
		os.Exit(1)
	}
}

func storeMenu(ctx context.Context, cfg *config.Config, p *rag.Pipeline, opts ingest.Options) error {
	dishes, table, err := menu.Load(cfg.Menu)
	if err != nil {
		return err
	}
	log.Info().Int("dishes", len(dishes)).Int("allergens", len(table)).Msg("Loaded menu")

	n, err := ingest.New(p.Embedder(), p.Store(), p.EmbeddingModel()).IngestMenu(ctx, dishes, table, opts)
	if err != nil {
		return err
	}
	log.Info().Int("documents", n).Str("pipeline", p.Name()).Msg("Menu indexed")
	return nil
}

func storeFiles(ctx context.Context, cfg *config.Config, p *rag.Pipeline, paths []string, opts ingest.Options) error {
	n, err := ingest.New(p.Embedder(), p.Store(), p.EmbeddingModel()).IngestFiles(ctx, paths, cfg.RAG, opts)
	if err != nil {
		return err
	}
	log.Info().Int("documents", n).Str("pipeline", p.Name()).Msg("Documents indexed")
	return nil
}

func performRAG(ctx context.Context, p *rag.Pipeline, query string) error {
	response, err := p.Query(ctx, query)
	if err != nil {
		return err
	}

	log.Info().Msg("Query: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", query)

	log.Info().Msg("Source: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", response.Source)

	log.Info().Msg("Assistant: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", console.Glamour(response.Content))
	return nil
}

func serveWeb(ctx context.Context, cfg *config.Config, p *rag.Pipeline) error {
	srv := web.NewServer(p, cfg.Server.Title)
	go func() {
		<-ctx.Done()
		if err := srv.Shutdown(); err != nil {
			log.Warn().Err(err).Msg("Error shutting down web server")
		}
	}()
	return srv.Listen(cfg.Server.Addr)
}

func withChromem(p *rag.Pipeline, fn func(*chromemdb.VectorDBManager) error) error {
	db, ok := p.Store().(*chromemdb.VectorDBManager)
	if !ok {
		return errors.New("export and import need the chromem store")
	}
	return fn(db)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

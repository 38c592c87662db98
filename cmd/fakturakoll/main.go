package main

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/TheoLangborg/MinFakturaKoll/internal/history"
	"github.com/TheoLangborg/MinFakturaKoll/internal/invoice"
	"github.com/TheoLangborg/MinFakturaKoll/internal/market"
	"github.com/TheoLangborg/MinFakturaKoll/internal/scanning"
	"github.com/TheoLangborg/MinFakturaKoll/internal/server"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	fs := ff.NewFlagSet("fakturakoll")
	var (
		port           = fs.IntLong("port", 8080, "HTTP server port")
		dbPath         = fs.StringLong("db", "fakturakoll.db", "Database file path")
		geminiKey      = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel    = fs.StringLong("gemini-model", "gemini-2.5-flash", "Google Gemini model name")
		serpAPIKey     = fs.StringLong("serpapi-key", "", "SerpAPI key for live market prices (or set SERPAPI_KEY env var)")
		marketProvider = fs.StringLong("market-provider", "auto", "Market price provider: 'auto', 'serpapi' or 'fallback'")
		cacheTTLHours  = fs.IntLong("market-cache-ttl-hours", 24, "Market price cache lifetime in hours (1-168)")
		authUser       = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass       = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		showVersion    = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("FAKTURAKOLL"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	// Initialize database
	slog.Info("Initializing database...")
	db, err := history.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Initialize scanner. Without a Gemini key the service still runs
	// and falls back to rule-based extraction.
	var scanner scanning.Scanner
	apiKey := *geminiKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		slog.Warn("No Gemini API key configured, using rule-based extraction only")
	} else {
		slog.Info("Initializing Gemini scanner...", "model", *geminiModel)
		scanner, err = scanning.NewGemini(apiKey, *geminiModel)
		if err != nil {
			slog.Error("Failed to initialize Gemini", "error", err)
			os.Exit(1)
		}
		defer scanner.Close()
	}

	// Initialize the market price comparator
	var priceSource market.PriceSource
	serpKey := *serpAPIKey
	if serpKey == "" {
		serpKey = os.Getenv("SERPAPI_KEY")
	}
	switch *marketProvider {
	case "auto", "serpapi":
		if serpKey == "" {
			if *marketProvider == "serpapi" {
				slog.Error("SerpAPI key is required. Set --serpapi-key flag or SERPAPI_KEY environment variable")
				os.Exit(1)
			}
			slog.Warn("No SerpAPI key configured, market comparisons use reference levels")
		} else {
			slog.Info("Initializing SerpAPI price source...")
			priceSource, err = market.NewSerpAPI(serpKey)
			if err != nil {
				slog.Error("Failed to initialize SerpAPI", "error", err)
				os.Exit(1)
			}
		}
	case "fallback":
		slog.Info("Market comparisons use reference levels")
	default:
		slog.Error("Invalid market provider", "provider", *marketProvider, "valid", "auto, serpapi or fallback")
		os.Exit(1)
	}

	mode := "serpapi"
	if priceSource == nil {
		mode = "fallback"
	}
	comparator := market.NewComparator(priceSource, mode, time.Duration(*cacheTTLHours)*time.Hour)

	// Initialize service
	historyService := history.NewService(db, scanner, invoice.NewShuffleOrder(time.Now().UnixNano()))

	// Initialize server
	basicAuth := server.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	srv := server.NewServer(historyService, comparator, basicAuth)

	// Start server in goroutine
	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := srv.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr))
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}

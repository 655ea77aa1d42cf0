package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/dileep-u-k/chatbot-gateway/internal/chat"
	"github.com/dileep-u-k/chatbot-gateway/internal/httpx"
	"github.com/dileep-u-k/chatbot-gateway/internal/search"
	"github.com/dileep-u-k/chatbot-gateway/internal/tools"
	"github.com/dileep-u-k/chatbot-gateway/internal/weather"
	"github.com/dileep-u-k/chatbot-gateway/internal/whatsapp"
	"github.com/dileep-u-k/chatbot-gateway/internal/worker"
)

const (
	// restartDelay is waited before relaunching a crashed serve loop in
	// persistent mode.
	restartDelay = 5 * time.Second

	// monitorInterval is the poll period of the async mode's health loop.
	monitorInterval = time.Second

	// healthLogInterval spaces out the periodic "still alive" log line.
	healthLogInterval = 5 * time.Minute

	// cliSearchResults is how many results the one-off --search mode asks for.
	cliSearchResults = 3
)

type cliArgs struct {
	Server           bool   `arg:"--server" help:"run as MCP server (blocking mode)"`
	ServerAsync      bool   `arg:"--server-async" help:"run as MCP server with health monitoring"`
	ServerPersistent bool   `arg:"--server-persistent" help:"run as persistent MCP server (production mode)"`
	Chat             string `arg:"--chat" placeholder:"MESSAGE" help:"test chat with a message"`
	Search           string `arg:"--search" placeholder:"QUERY" help:"test search with a query"`
	Weather          string `arg:"--weather" placeholder:"CITY" help:"test weather for a city"`
	Units            string `arg:"--units" placeholder:"UNITS" help:"units for --weather (metric or imperial)"`
	Config           bool   `arg:"--config" help:"show current configuration"`
	LogLevel         string `arg:"--log-level" placeholder:"LEVEL" help:"override log level"`
}

func (cliArgs) Version() string {
	info := GetBuildInfo()
	return fmt.Sprintf("chatbot-gateway %s (%s, %s)", info.Version, info.GitCommit, info.Platform)
}

func main() {
	os.Exit(run())
}

// run is the composition root: it loads configuration, initializes all
// services, injects dependencies, and dispatches the selected mode.
func run() int {
	var args cliArgs
	parser := arg.MustParse(&args)

	cfg, err := LoadConfig()
	if err != nil {
		var missing *MissingKeysError
		if errors.As(err, &missing) {
			printRemediation(missing)
			// The weather key is the hard requirement with its own exit code.
			for _, key := range missing.Keys {
				if key == "OPENWEATHER_API_KEY" {
					return 2
				}
			}
			return 1
		}
		fmt.Fprintf(os.Stderr, "Configuration Error: %v\n", err)
		return 1
	}

	logLevel := cfg.LogLevel
	if args.LogLevel != "" {
		logLevel = args.LogLevel
	}
	log, cleanup, err := setupLogging(logLevel, cfg.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration Error: %v\n", err)
		return 1
	}
	defer cleanup()

	if args.Config {
		printConfig(cfg)
		return 0
	}

	info := GetBuildInfo()
	log.Info().
		Str("version", info.Version).
		Str("commit", info.GitCommit).
		Str("go", info.GoVersion).
		Msg("🚀 Starting chatbot gateway")
	log.Info().Str("openweather_key", maskKey(cfg.OpenWeatherAPIKey)).
		Str("gemini_key", maskKey(cfg.GeminiAPIKey)).
		Msg("✅ Configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svcs, err := initializeServices(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("❌ Service initialization failed")
		fmt.Fprintf(os.Stderr, "Failed to initialize services: %v\n", err)
		return 1
	}
	defer svcs.pool.Close()
	log.Info().Msg("✅ All services initialized")

	switch {
	case args.Server:
		return runServerBlocking(ctx, cfg, svcs, log)
	case args.ServerAsync:
		return runServerAsync(ctx, cfg, svcs, log)
	case args.ServerPersistent:
		return runServerPersistent(ctx, cfg, svcs, log)
	case args.Chat != "":
		return runChat(ctx, svcs, args.Chat)
	case args.Search != "":
		return runSearch(ctx, svcs, args.Search)
	case args.Weather != "":
		return runWeather(ctx, svcs, args.Weather, args.Units)
	default:
		parser.WriteUsage(os.Stdout)
		return 0
	}
}

// services bundles everything the serve and test modes need.
type services struct {
	pool    *worker.Pool
	chat    *chat.Service
	search  *search.Service
	weather *weather.Service
	sender  *whatsapp.Sender
}

func initializeServices(ctx context.Context, cfg *AppConfig, log zerolog.Logger) (*services, error) {
	client := httpx.NewClient(time.Duration(cfg.SearchTimeout) * time.Second)
	pool := worker.NewPool(worker.DefaultSize)

	provider, err := chat.NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create Gemini provider: %w", err)
	}

	selectors := search.DefaultSelectorChain()
	if cfg.SelectorsFile != "" {
		selectors, err = search.LoadSelectorChain(cfg.SelectorsFile)
		if err != nil {
			log.Warn().Err(err).Str("file", cfg.SelectorsFile).
				Msg("selector config unreadable, using built-in chain")
		}
	}

	return &services{
		pool: pool,
		chat: chat.NewService(provider, pool, log),
		search: search.NewService(search.Config{
			UserAgent: cfg.SearchUserAgent,
			Selectors: selectors,
		}, client, log),
		weather: weather.NewService(weather.Config{
			APIKey:       cfg.OpenWeatherAPIKey,
			BaseURL:      cfg.OpenWeatherBaseURL,
			DefaultUnits: cfg.DefaultUnits,
		}, client, log),
		sender: whatsapp.NewSender(whatsapp.SenderConfig{
			Token:      cfg.WhatsAppToken,
			PhoneID:    cfg.WhatsAppPhoneID,
			APIVersion: cfg.GraphAPIVersion,
		}, client, log),
	}, nil
}

// startWebhookServer runs the gin webhook frontend alongside the MCP loop.
// The returned shutdown func must be called before process exit.
func startWebhookServer(cfg *AppConfig, svcs *services, log zerolog.Logger) func() {
	gin.SetMode(os.Getenv("GIN_MODE"))
	engine := gin.New()
	engine.Use(gin.Recovery())

	adapter := whatsapp.NewAdapter(cfg.VerifyToken, svcs.weather, svcs.sender, log)
	adapter.Register(engine)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: engine}
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("👂 Webhook server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("❌ Webhook server error")
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("❌ Webhook server shutdown failed")
		}
	}
}

func runServerBlocking(ctx context.Context, cfg *AppConfig, svcs *services, log zerolog.Logger) int {
	stopWebhook := startWebhookServer(cfg, svcs, log)
	defer stopWebhook()

	log.Info().Msg("=== MCP SERVER STARTING ===")
	log.Info().Msg("Available tools: chat, search_web, get_weather")

	srv := tools.NewServer(version, svcs.chat, svcs.search, svcs.weather)
	if err := tools.Run(ctx, srv); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("❌ Server error")
		return 1
	}
	log.Info().Msg("👋 Server exited gracefully")
	return 0
}

// runServerAsync runs the MCP loop on its own goroutine and keeps a health
// monitoring loop in the foreground.
func runServerAsync(ctx context.Context, cfg *AppConfig, svcs *services, log zerolog.Logger) int {
	stopWebhook := startWebhookServer(cfg, svcs, log)
	defer stopWebhook()

	srv := tools.NewServer(version, svcs.chat, svcs.search, svcs.weather)
	done := make(chan error, 1)
	go func() {
		done <- tools.Run(ctx, srv)
	}()

	log.Info().Msg("=== MCP SERVER READY ===")
	log.Info().Msg("Available tools: chat, search_web, get_weather")

	started := time.Now()
	lastHealthLog := started
	ticker := time.NewTicker(monitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("🛑 Shutting down server...")
			<-done
			log.Info().Msg("👋 Server exited gracefully")
			return 0
		case err := <-done:
			if err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("❌ Server error")
				return 1
			}
			return 0
		case <-ticker.C:
			if time.Since(lastHealthLog) >= healthLogInterval {
				log.Info().Dur("uptime", time.Since(started).Round(time.Second)).
					Msg("🩺 Server healthy")
				lastHealthLog = time.Now()
			}
		}
	}
}

// runServerPersistent restarts the serve loop after crashes until a shutdown
// signal arrives.
func runServerPersistent(ctx context.Context, cfg *AppConfig, svcs *services, log zerolog.Logger) int {
	stopWebhook := startWebhookServer(cfg, svcs, log)
	defer stopWebhook()

	log.Info().Msg("=== PRODUCTION MCP SERVER ===")
	log.Info().Msg("Server will run continuously until stopped")

	for ctx.Err() == nil {
		srv := tools.NewServer(version, svcs.chat, svcs.search, svcs.weather)
		err := tools.Run(ctx, srv)
		if ctx.Err() != nil {
			break
		}
		log.Error().Err(err).Msgf("❌ MCP server error, restarting in %s...", restartDelay)
		select {
		case <-time.After(restartDelay):
		case <-ctx.Done():
		}
	}
	log.Info().Msg("👋 Server exited gracefully")
	return 0
}

func runChat(ctx context.Context, svcs *services, message string) int {
	result := svcs.chat.Process(ctx, message, "")
	if !result.OK {
		printJSON(result)
		return 1
	}
	fmt.Println(result.Response)
	if result.Usage != nil {
		fmt.Printf("\n(prompt %d chars, response %d chars)\n",
			result.Usage.PromptTokens, result.Usage.CompletionTokens)
	}
	return 0
}

func runSearch(ctx context.Context, svcs *services, query string) int {
	outcome := svcs.search.Search(ctx, query, cliSearchResults)
	if !outcome.OK {
		printJSON(outcome)
		return 1
	}
	fmt.Printf("Results for %q:\n", outcome.Query)
	for i, r := range outcome.Results {
		fmt.Printf("%d. %s\n   %s\n   %s\n", i+1, r.Title, r.URL, r.Snippet)
	}
	return 0
}

func runWeather(ctx context.Context, svcs *services, city, units string) int {
	outcome := svcs.weather.Lookup(ctx, city, units)
	if !outcome.OK {
		printJSON(outcome)
		return 1
	}
	sym := "°C"
	if outcome.Units == "imperial" {
		sym = "°F"
	}
	fmt.Printf("Weather for %s, %s\n", outcome.City, outcome.Country)
	fmt.Printf("  Temp: %.1f%s (feels like %.1f%s)\n", outcome.Temp, sym, outcome.FeelsLike, sym)
	fmt.Printf("  Conditions: %s\n", outcome.Conditions)
	fmt.Printf("  Humidity: %d%%\n", outcome.Humidity)
	fmt.Printf("  Wind: %.1f m/s\n", outcome.WindSpeed)
	return 0
}

func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to render result: %v\n", err)
		return
	}
	fmt.Println(string(out))
}

func printRemediation(missing *MissingKeysError) {
	fmt.Fprintf(os.Stderr, "Configuration Error: %v\n", missing)
	fmt.Fprintln(os.Stderr, "\nSolution:")
	fmt.Fprintln(os.Stderr, "1. Create a .env file in the project root with:")
	fmt.Fprintln(os.Stderr, "   OPENWEATHER_API_KEY=your_openweather_key")
	fmt.Fprintln(os.Stderr, "   GEMINI_API_KEY=your_gemini_key")
	fmt.Fprintln(os.Stderr, "2. Or set these as environment variables")
	fmt.Fprintln(os.Stderr, "\nGet API keys:")
	fmt.Fprintln(os.Stderr, "   OpenWeather: https://openweathermap.org/api")
	fmt.Fprintln(os.Stderr, "   Gemini: https://makersuite.google.com/app/apikey")
}

// setupLogging builds the root logger: console output on stderr, plus an
// append-only log file when one is configured.
func setupLogging(level, file string) (zerolog.Logger, func(), error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	writers := []io.Writer{console}
	cleanup := func() {}

	if file != "" {
		f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			// A broken log file should not keep the process from starting.
			fmt.Fprintf(os.Stderr, "WARNING: cannot open log file %s: %v\n", file, err)
		} else {
			writers = append(writers, f)
			cleanup = func() { f.Close() }
		}
	}

	log := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(lvl).
		With().Timestamp().Logger()
	return log, cleanup, nil
}

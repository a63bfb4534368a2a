package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/olekukonko/tablewriter"

	"github.com/efreitasn/marketsim/internal/agent"
	"github.com/efreitasn/marketsim/internal/config"
	"github.com/efreitasn/marketsim/internal/domain"
	"github.com/efreitasn/marketsim/internal/handler"
	"github.com/efreitasn/marketsim/internal/service"
	"github.com/efreitasn/marketsim/internal/sim"
	"github.com/efreitasn/marketsim/internal/ticks"
)

// roster is the sample agent lineup: name and built-in strategy kind.
var roster = [][2]string{
	{agent.LiquidityPrefix + "mm", "market_maker"},
	{"random_1", "random"},
	{"random_2", "random"},
	{"momentum_1", "momentum"},
	{"mean_reversion_1", "mean_reversion"},
	{"accumulator_1", "accumulator"},
}

func main() {
	healthcheck := flag.Bool("healthcheck", false, "Run health check against running server")
	serve := flag.Bool("serve", false, "Serve the inspection API until interrupted")
	out := flag.String("out", "", "Write results JSON to this file")
	csvPath := flag.String("csv", "", "Replay ticks from a CSV file instead of a random walk")
	seed := flag.Uint64("seed", 1, "Random walk seed")
	start := flag.Float64("start", 100, "Random walk starting price in dollars")
	vol := flag.Float64("vol", 50, "Random walk per-tick volatility in basis points")
	flag.Parse()

	// Handle -healthcheck flag: HTTP GET to localhost:PORT/healthz, exit 0/1.
	if *healthcheck {
		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		resp, err := http.Get(fmt.Sprintf("http://localhost:%s/healthz", port))
		if err != nil || resp.StatusCode != http.StatusOK {
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up slog logger with configured level.
	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	s, err := sim.New(logger, cfg.Simulation())
	if err != nil {
		logger.Error("invalid simulation config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	for _, r := range roster {
		strategy, err := agent.Build(r[1], r[0])
		if err == nil {
			err = s.AddAgent(r[0], strategy)
		}
		if err != nil {
			logger.Error("failed to add agent", slog.String("agent", r[0]), slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	src, closeSrc, err := tickSource(cfg.Symbol, *csvPath, *start, *vol, *seed)
	if err != nil {
		logger.Error("failed to open tick source", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeSrc()

	// SIGINT/SIGTERM interrupts the run and stops the server.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var srv *http.Server
	if *serve {
		addr := fmt.Sprintf(":%d", cfg.Port)
		srv = &http.Server{
			Addr:         addr,
			Handler:      handler.NewRouter(s, logger),
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		}
		go func() {
			logger.Info("server starting", slog.String("addr", addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("server error", slog.String("error", err.Error()))
				os.Exit(1)
			}
		}()
	}

	res, runErr := s.Run(ctx, src)
	if runErr != nil {
		logger.Error("simulation failed", slog.String("error", runErr.Error()))
	}
	if res != nil {
		report(s, res, cfg.DepthLevels)
		if *out != "" {
			if err := writeResults(*out, res); err != nil {
				logger.Error("failed to write results", slog.String("file", *out), slog.String("error", err.Error()))
			}
		}
	}

	if srv != nil {
		<-ctx.Done()
		logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", slog.String("error", err.Error()))
		}
		logger.Info("server stopped")
	}

	if runErr != nil {
		os.Exit(1)
	}
}

// tickSource opens the CSV replay when path is set, otherwise a seeded
// random walk. The walk is unbounded; MAX_TICKS stops the run.
func tickSource(symbol, path string, start, vol float64, seed uint64) (sim.TickSource, func(), error) {
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, err
		}
		src, err := ticks.NewCSV(f, symbol)
		if err != nil {
			f.Close()
			return nil, nil, err
		}
		return src, func() { f.Close() }, nil
	}

	startCents, err := domain.DollarsToCents(start)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid start price: %w", err)
	}
	if startCents <= 0 {
		return nil, nil, errors.New("start price must be positive")
	}
	return ticks.NewRandomWalk(symbol, startCents, vol, seed, 0), func() {}, nil
}

func writeResults(path string, res *sim.Results) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := res.WriteJSON(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func dollars(c int64) string {
	return strconv.FormatFloat(domain.CentsToDollars(c), 'f', 2, 64)
}

func report(s *sim.Simulation, res *sim.Results, depth int) {
	fmt.Printf("%s: %s after %d ticks, %d trades, %d shares, price %s -> %s\n",
		res.Symbol, res.State, res.Stats.Ticks, res.Stats.Trades, res.Stats.Volume,
		dollars(res.Stats.FirstPrice), dollars(res.Stats.LastPrice))
	if res.AbortReason != "" {
		fmt.Printf("aborted: %s\n", res.AbortReason)
	}

	printStandings("leaderboard", res.Leaderboard)
	if len(res.LiquidityProviders) > 0 {
		printStandings("liquidity providers", res.LiquidityProviders)
	}

	book, err := s.MarketDepth(depth)
	if err != nil {
		return
	}
	printDepth(book)
}

func printStandings(title string, rows []service.Standing) {
	writer := tablewriter.NewWriter(os.Stdout)
	writer.SetHeader([]string{"#", "agent", "roi %", "value", "cash", "stock", "trades"})
	for i, r := range rows {
		writer.Append([]string{strconv.Itoa(i + 1), r.Name, strconv.FormatFloat(r.ROI, 'f', 2, 64),
			dollars(r.TotalValue), dollars(r.Cash), strconv.FormatInt(r.Stock, 10), strconv.Itoa(r.Trades)})
	}
	writer.SetCaption(true, title)
	writer.Render()
}

func printDepth(book *service.BookResponse) {
	writer := tablewriter.NewWriter(os.Stdout)
	writer.SetHeader([]string{"side", "price", "qty", "orders"})
	for i := len(book.Asks) - 1; i >= 0; i-- {
		a := book.Asks[i]
		writer.Append([]string{"ask", dollars(a.Price), strconv.FormatInt(a.TotalQuantity, 10), strconv.Itoa(a.OrderCount)})
	}
	for _, b := range book.Bids {
		writer.Append([]string{"bid", dollars(b.Price), strconv.FormatInt(b.TotalQuantity, 10), strconv.Itoa(b.OrderCount)})
	}
	writer.SetCaption(true, "book")
	writer.Render()
}

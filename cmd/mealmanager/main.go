package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/Mahbub96/BachelorsMealManager-sub000/internal/api"
	"github.com/Mahbub96/BachelorsMealManager-sub000/internal/config"
	"github.com/Mahbub96/BachelorsMealManager-sub000/internal/domain"
	"github.com/Mahbub96/BachelorsMealManager-sub000/internal/log"
	"github.com/Mahbub96/BachelorsMealManager-sub000/internal/netmon"
	"github.com/Mahbub96/BachelorsMealManager-sub000/internal/offline"
	"github.com/Mahbub96/BachelorsMealManager-sub000/internal/service"
	"github.com/Mahbub96/BachelorsMealManager-sub000/internal/store"
	"github.com/Mahbub96/BachelorsMealManager-sub000/internal/throttle"
	"github.com/Mahbub96/BachelorsMealManager-sub000/internal/tui"
)

// Version is set at build time via -ldflags
var Version = "dev"

func main() {
	var showVersion bool
	var initConfig bool
	var setToken string
	flag.BoolVar(&showVersion, "v", false, "print version")
	flag.BoolVar(&showVersion, "version", false, "print version")
	flag.BoolVar(&initConfig, "init", false, "write a default config file and exit")
	flag.StringVar(&setToken, "set-token", "", "save the API token to the config file and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("mealmanager %s\n", Version)
		return
	}

	if initConfig {
		if err := config.SaveConfig(config.DefaultConfig()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Wrote default config. Set api.url and api.token, or use -set-token.")
		return
	}

	if setToken != "" {
		if err := config.SaveToken(setToken); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Token saved.")
		return
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := log.SetupLogger(&cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger = log.NullLogger()
	}
	slog.SetDefault(logger)

	logger.Info("starting mealmanager", "version", Version)

	if !cfg.IsConfigured() {
		fmt.Println("mealmanager is not configured yet.")
		fmt.Println("Run 'mealmanager -init' to write a config file, then set api.url")
		fmt.Println("and save your token with 'mealmanager -set-token <token>', or export")
		fmt.Println("MEALMANAGER_API_URL and MEALMANAGER_API_TOKEN.")
		return nil
	}

	st, err := store.Open(cfg.Cache.Dir, cfg.API.URL)
	if err != nil {
		return fmt.Errorf("failed to open local store: %w", err)
	}
	defer st.Close()
	st.SetDefaultTTL(cfg.Cache.DefaultTTL)

	client := api.NewClient(cfg.API.URL, domain.StaticToken(cfg.API.Token), st, logger)
	client.SetTimeout(cfg.API.Timeout)

	queue := offline.NewQueue(st, offline.SenderFunc(client.Replay), logger)
	queue.SetMaxAttempts(cfg.Offline.MaxAttempts)
	client.AttachQueue(queue)

	monitor := netmon.New(netmon.HTTPProbe(cfg.API.URL+"/health"), cfg.Offline.ProbeInterval, logger)
	client.AttachMonitor(monitor)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connectivity restored -> one drain. The queue's guard keeps a
	// simultaneous manual retry from overlapping.
	monitor.Subscribe(func(online bool) {
		if online {
			queue.Drain(ctx)
		}
	})
	monitor.Start(ctx)
	defer monitor.Close()

	serializer := throttle.New(cfg.Offline.ThrottleGap, logger)
	defer serializer.Close()

	meals := service.NewMealService(client, serializer, logger)

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		// Non-interactive: attempt one drain, show the month at a glance.
		result := queue.Drain(ctx)
		fmt.Printf("delivered %d, failed %d, pending %d\n",
			len(result.Delivered), len(result.Failed), queue.PendingCount())

		month := time.Now().Format("2006-01")
		if summary, res := meals.MonthSummary(ctx, month); res.Success {
			fmt.Printf("%s: %d meals, %.2f bazar, meal rate %.2f\n",
				summary.Month, summary.TotalMeals, summary.TotalBazar, summary.MealRate)
		}
		return nil
	}

	model := tui.NewModel(queue, monitor)
	p := tea.NewProgram(model, tea.WithAltScreen())

	logger.Info("starting status TUI")

	if _, err := p.Run(); err != nil {
		logger.Error("TUI error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}

	logger.Info("shutting down")
	return nil
}

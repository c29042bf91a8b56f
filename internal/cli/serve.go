package cli

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/lazypower/ballast/internal/collect"
	"github.com/lazypower/ballast/internal/config"
	"github.com/lazypower/ballast/internal/host"
	"github.com/lazypower/ballast/internal/ledger"
	"github.com/lazypower/ballast/internal/memory"
	"github.com/lazypower/ballast/internal/monitor"
	"github.com/lazypower/ballast/internal/patterns"
	"github.com/lazypower/ballast/internal/persist"
	"github.com/lazypower/ballast/internal/recall"
	"github.com/lazypower/ballast/internal/server"
	"github.com/lazypower/ballast/internal/store"
)

var serveConfigPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the ballast event server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Path to config file (default ~/.ballast/config.toml)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfgPath := serveConfigPath
	if cfgPath == "" {
		var err error
		cfgPath, err = config.DefaultPath()
		if err != nil {
			return fmt.Errorf("resolve config path: %w", err)
		}
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	// Env overrides for the remote memory backend.
	if url := os.Getenv("BALLAST_MEMORY_URL"); url != "" {
		cfg.Memory.Backend = "remote"
		cfg.Memory.URL = url
	}
	if key := os.Getenv("BALLAST_MEMORY_API_KEY"); key != "" {
		cfg.Memory.APIKey = key
	}

	svc, cleanup, err := buildMemoryService(cfg.Memory)
	if err != nil {
		// Memory is an enhancement, not a requirement. Run without it.
		fmt.Fprintf(os.Stderr, "warning: memory backend unavailable (%v), continuing without memory\n", err)
	}
	if cleanup != nil {
		defer cleanup()
	}

	identity := cfg.Memory.Identity
	if identity == "" {
		identity = os.Getenv("USER")
	}
	projectPath, err := os.Getwd()
	if err != nil {
		projectPath = "unknown"
	}
	mem := memory.NewClient(svc, identity, projectPath, cfg.MemoryTimeout(), cfg.Memory.MaxResults)

	led := ledger.New(cfg.CooldownDuration())
	queue := collect.NewQueue()
	notifier := server.NewQueueNotifier(queue, cfg.Notify.Verbosity, uuid.NewString)
	hostClient := host.NewClient(cfg.Host.URL)
	hostWait := time.Duration(cfg.Host.Timeout) * time.Second

	mon := monitor.New(cfg.Compaction, led, hostClient, notifier, mem, queue, nil, hostWait)

	var rec *recall.Engine
	var pat *patterns.Engine
	if mem.Enabled() {
		rec = recall.New(mem, queue, cfg.Recall.Limit, cfg.Recall.MinSimilarity)
		pat = patterns.New(mem, nil, cfg.Patterns.MinMessages, cfg.Patterns.MinConfidence, cfg.Patterns.MaxChars)

		per := persist.New(mem, cfg.Patterns.MaxChars)
		mon.SetPreSummarize(func(ctx context.Context, sessionID string) {
			text, err := hostClient.Transcript(ctx, sessionID)
			if err != nil {
				log.Printf("serve: fetch transcript for %s: %v", sessionID, err)
				return
			}
			per.OnPreCompaction(ctx, sessionID, tail(text, 80))
		})
	}

	srv := server.New(VersionString(), led, queue, mem, mon, rec, pat)
	addr := cfg.ListenAddr()

	httpServer := &http.Server{
		Addr:    addr,
		Handler: srv,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		fmt.Fprintf(os.Stderr, "ballast serving on %s\n", addr)
		fmt.Fprintf(os.Stderr, "  host: %s\n", cfg.Host.URL)
		fmt.Fprintf(os.Stderr, "  memory: %s\n", describeBackend(cfg.Memory, mem.Enabled()))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "server error: %v\n", err)
			os.Exit(1)
		}
	}()

	<-done
	fmt.Fprintln(os.Stderr, "\nshutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return httpServer.Shutdown(ctx)
}

// buildMemoryService picks the configured backend. The cleanup func closes
// the local database when one was opened.
func buildMemoryService(cfg config.MemoryConfig) (memory.Service, func(), error) {
	switch cfg.Backend {
	case "remote":
		if cfg.URL == "" {
			return nil, nil, fmt.Errorf("remote memory backend requires a url")
		}
		return memory.NewRemoteService(cfg.URL, cfg.APIKey), nil, nil

	case "local", "":
		dbPath := cfg.Path
		if dbPath == "" {
			var err error
			dbPath, err = store.DefaultDBPath()
			if err != nil {
				return nil, nil, fmt.Errorf("resolve db path: %w", err)
			}
		}
		db, err := store.Open(dbPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open database: %w", err)
		}
		return memory.NewLocalService(db), func() { db.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown memory backend %q", cfg.Backend)
	}
}

func describeBackend(cfg config.MemoryConfig, enabled bool) string {
	if !enabled {
		return "disabled"
	}
	if cfg.Backend == "remote" {
		return "remote (" + cfg.URL + ")"
	}
	return "local"
}

// tail returns the last n lines of text.
func tail(text string, n int) string {
	lines := strings.Split(text, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

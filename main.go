package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"

	bookingx "github.com/primeauto/concierge/assistant/booking"
	catalogx "github.com/primeauto/concierge/assistant/catalog"
	intentx "github.com/primeauto/concierge/assistant/intent"
	oraclex "github.com/primeauto/concierge/assistant/oracle"
	orchestratorx "github.com/primeauto/concierge/assistant/orchestrator"
	promptx "github.com/primeauto/concierge/assistant/prompt"
	sessionx "github.com/primeauto/concierge/assistant/session"
	voicex "github.com/primeauto/concierge/assistant/voice"
	configx "github.com/primeauto/concierge/pkg/config"
	_ "github.com/primeauto/concierge/pkg/logger/autoload"
	notifyx "github.com/primeauto/concierge/pkg/notify"
	openaix "github.com/primeauto/concierge/pkg/openai"
	serverx "github.com/primeauto/concierge/server"
)

type AppConfig struct {
	InventoryPath string `split_words:"true" default:"data/car_inventory.json"`
}

func main() {
	serve := flag.Bool("serve", false, "run the HTTP/WebSocket server instead of the terminal chat")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appCfg := configx.MustNew[AppConfig]("APP")

	cat, err := catalogx.Load(appCfg.InventoryPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", appCfg.InventoryPath).Msg("load vehicle inventory")
	}

	engine := buildEngine(ctx, cat)
	router := intentx.NewRouter(cat, engine)
	sessions := sessionx.NewManager(*configx.MustNew[sessionx.Config]("SESSION"))

	llmCfg := configx.MustNew[openaix.Config]("OPENAI")
	chatModel, err := llmCfg.New(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize chat model")
	}

	oracle, err := oraclex.New(chatModel, promptx.Assistant(), intentx.ToolInfos())
	if err != nil {
		log.Fatal().Err(err).Msg("initialize oracle")
	}

	orch, err := orchestratorx.New(sessions, oracle, router, *configx.MustNew[orchestratorx.Config]("ORCHESTRATOR"))
	if err != nil {
		log.Fatal().Err(err).Msg("initialize orchestrator")
	}

	if *serve {
		voiceCfg := configx.MustNew[voicex.Config]("VOICE")
		providers, err := voicex.NewProviders(*voiceCfg, *llmCfg)
		if err != nil {
			log.Fatal().Err(err).Str("provider", voiceCfg.Provider).Msg("initialize voice providers")
		}

		srv, err := serverx.New(*configx.MustNew[serverx.Config]("SERVER"), orch, cat, engine, providers)
		if err != nil {
			log.Fatal().Err(err).Msg("initialize http server")
		}
		if err := srv.ListenAndServe(ctx); err != nil {
			log.Fatal().Err(err).Msg("http server failed")
		}
		return
	}

	runREPL(ctx, orch, engine, cat)
}

func buildEngine(ctx context.Context, cat *catalogx.Catalog) *bookingx.Engine {
	opts := []bookingx.Option{}

	pgCfg := configx.MustNew[bookingx.PostgresConfig]("BOOKING_POSTGRES")
	if strings.TrimSpace(pgCfg.DSN) != "" {
		store, err := bookingx.NewPostgresStore(*pgCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("initialize booking store")
		}
		if err := store.Init(ctx); err != nil {
			log.Fatal().Err(err).Msg("prepare booking table")
		}
		opts = append(opts, bookingx.WithStore(store))
		log.Info().Msg("booking write-through store enabled")
	}

	notifyCfg := configx.MustNew[notifyx.Config]("NOTIFY")
	if strings.TrimSpace(notifyCfg.URL) != "" {
		client, err := notifyx.NewClient(*notifyCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("initialize booking notifier")
		}
		opts = append(opts, bookingx.WithNotifier(client))
		log.Info().Str("url", notifyCfg.URL).Msg("booking notifications enabled")
	}

	return bookingx.NewEngine(cat, opts...)
}

const greeting = "Welcome to %s! I'm your virtual assistant. I can help you browse our vehicles, check availability, and book a test drive. How can I help you today?"

func runREPL(ctx context.Context, orch *orchestratorx.Orchestrator, engine *bookingx.Engine, cat *catalogx.Catalog) {
	sessionID := fmt.Sprintf("cli-%d", os.Getpid())
	chatLoop(ctx, os.Stdin, os.Stdout, sessionID, orch, engine, cat)
}

// chatLoop drives the terminal conversation. Input is read on its own
// goroutine so a cancelled context (Ctrl-C) ends the loop without waiting
// for the next line.
func chatLoop(ctx context.Context, in io.Reader, out io.Writer, sessionID string, orch *orchestratorx.Orchestrator, engine *bookingx.Engine, cat *catalogx.Catalog) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	fmt.Fprintf(out, greeting+"\n\n", cat.Dealership().Name)

loop:
	for {
		fmt.Fprint(out, "You: ")
		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			break loop
		case text, ok := <-lines:
			if !ok {
				break loop
			}
			line = strings.TrimSpace(text)
		}
		if line == "" {
			continue
		}
		if isFarewell(line) {
			break
		}

		reply, err := orch.HandleTurn(ctx, sessionID, line)
		if err != nil {
			log.Warn().Err(err).Msg("turn failed")
			fmt.Fprintln(out, "Assistant: Sorry, something went wrong. Please try again.")
			continue
		}
		fmt.Fprintf(out, "Assistant: %s\n\n", reply)
	}

	fmt.Fprintln(out, "\nThank you for visiting! Have a great day.")
	printBookingSummary(out, engine)
}

func isFarewell(line string) bool {
	switch strings.ToLower(line) {
	case "quit", "exit", "bye", "goodbye":
		return true
	}
	return false
}

func printBookingSummary(out io.Writer, engine *bookingx.Engine) {
	bookings := engine.List()
	if len(bookings) == 0 {
		return
	}
	fmt.Fprintln(out, "\nBookings made this session:")
	for _, b := range bookings {
		fmt.Fprintf(out, "  %s  %s  %s %s  (%s)\n", b.ID, b.VehicleName, b.Date, b.Time, b.Status)
	}
}

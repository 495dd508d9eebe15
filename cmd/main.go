package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/amirphl/futures-order-bot/internal/api"
	"github.com/amirphl/futures-order-bot/internal/config"
	"github.com/amirphl/futures-order-bot/internal/confirm"
	"github.com/amirphl/futures-order-bot/internal/exchange"
	"github.com/amirphl/futures-order-bot/internal/intent"
	"github.com/amirphl/futures-order-bot/internal/notifier"
	"github.com/amirphl/futures-order-bot/internal/order"
	"github.com/amirphl/futures-order-bot/internal/session"
	"github.com/amirphl/futures-order-bot/internal/symbols"
	"github.com/shopspring/decimal"
)

func main() {
	cfg := config.MustLoadConfig()
	log.Println("Starting Futures Order Bot in mode:", cfg.Mode)

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	registry := buildRegistry(cfg)
	ex := buildExchange(cfg)

	var notif notifier.Notifier = notifier.Noop{}
	if cfg.TelegramToken != "" && cfg.TelegramChatID != "" {
		notif = notifier.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID,
			cfg.NotificationRetries, cfg.NotificationDelay.Std())
	}

	groq := intent.NewGroqExtractor(cfg.GroqAPIKey, cfg.GroqModel, "")
	manager := session.NewManager(session.Deps{
		Exchange:  ex,
		Registry:  registry,
		Gate:      confirm.NewGate(cfg.ConfirmTTL.Std()),
		Extractor: intent.Chain{intent.RuleParser{}, groq},
		Advisor:   groq,
		Notifier:  notif,
	})

	switch cfg.Mode {
	case "order":
		runOrder(ctx, cfg, manager)
	case "chat":
		runChat(ctx, cfg, manager)
	case "run-bot":
		runBot(ctx, cfg, manager)
	case "serve":
		runServe(ctx, cfg, manager, registry, ex)
	default:
		log.Fatalf("Unknown mode %q, expected order, chat, run-bot, or serve", cfg.Mode)
	}
}

func buildRegistry(cfg config.Config) *symbols.Registry {
	registry := symbols.Default()
	if len(cfg.SymbolRules) == 0 {
		return registry
	}
	overrides := make([]symbols.Rule, 0, len(cfg.SymbolRules))
	for _, r := range cfg.SymbolRules {
		step, err := decimal.NewFromString(r.QuantityStep)
		if err != nil {
			log.Fatalf("Invalid quantity_step for %s: %v", r.Symbol, err)
		}
		minNotional, err := decimal.NewFromString(r.MinNotional)
		if err != nil {
			log.Fatalf("Invalid min_notional for %s: %v", r.Symbol, err)
		}
		overrides = append(overrides, symbols.Rule{
			Symbol:           r.Symbol,
			QuantityStep:     step,
			QuantityDecimals: r.QuantityDecimals,
			MinNotional:      minNotional,
		})
	}
	return registry.Merge(overrides...)
}

func buildExchange(cfg config.Config) exchange.Client {
	if cfg.DryRun {
		log.Println("Dry run: using the in-memory mock exchange")
		mock := exchange.NewMockExchange()
		mock.SetPrice("BTCUSDT", decimal.NewFromInt(60000))
		mock.SetPrice("ETHUSDT", decimal.NewFromInt(3000))
		return mock
	}
	ex, err := exchange.NewBinanceFutures(cfg.BinanceAPIKey, cfg.BinanceAPISecret, cfg.BinanceBaseURL)
	if err != nil {
		log.Fatalf("Failed to create exchange client: %v", err)
	}
	return ex
}

func runOrder(ctx context.Context, cfg config.Config, manager *session.Manager) {
	sess := manager.Session("cli")

	opCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout.Std())
	defer cancel()

	reply, err := sess.PlaceDraft(opCtx, order.Fields{
		Symbol:      cfg.Symbol,
		Side:        cfg.Side,
		Type:        cfg.Type,
		Quantity:    cfg.Quantity,
		Notional:    cfg.Notional,
		Price:       cfg.Price,
		TimeInForce: cfg.TimeInForce,
	}, cfg.SkipConfirm)
	if err != nil {
		fmt.Printf("\nError: %v\n", err)
		os.Exit(1)
	}

	if reply.Pending != nil {
		reply, ok := promptConfirm(ctx, cfg, sess, reply.Pending)
		if !ok {
			return
		}
		fmt.Println(reply.Text)
		fmt.Println("\nSuccess: Order placed successfully.")
		return
	}

	fmt.Println(reply.Text)
	fmt.Println("\nSuccess: Order placed successfully.")
}

// promptConfirm shows the pending order and asks for a y/N answer. It
// returns false when the user declined and the order was cancelled.
func promptConfirm(ctx context.Context, cfg config.Config, sess *session.Session, pending *confirm.Pending) (session.Reply, bool) {
	fmt.Println(session.FormatSummary(pending.Order))
	fmt.Print("Place this order? [y/N]: ")
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	if answer != "y" && answer != "yes" {
		if _, err := sess.Cancel(pending.ID); err != nil {
			fmt.Printf("\nError: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Cancelled.")
		return session.Reply{}, false
	}
	confirmCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout.Std())
	defer cancel()
	reply, err := sess.Confirm(confirmCtx, pending.ID)
	if err != nil {
		fmt.Printf("\nError: %v\n", err)
		os.Exit(1)
	}
	return reply, true
}

func runBot(ctx context.Context, cfg config.Config, manager *session.Manager) {
	symbol := cfg.Symbol
	if symbol == "" {
		symbol = "BTCUSDT"
	}
	sess := manager.Session("cli")

	opCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout.Std())
	defer cancel()
	reply, err := sess.Suggest(opCtx, symbol)
	if err != nil {
		fmt.Printf("\nError: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(reply.Text)
	if reply.Pending == nil {
		return
	}
	if reply, ok := promptConfirm(ctx, cfg, sess, reply.Pending); ok {
		fmt.Println(reply.Text)
	}
}

func runChat(ctx context.Context, cfg config.Config, manager *session.Manager) {
	sess := manager.Session("cli-chat")
	scanner := bufio.NewScanner(os.Stdin)

	fmt.Println("Chat mode. Describe an order (e.g. \"limit buy BTC at 62000 for 100 usdt\"),")
	fmt.Println("then \"confirm\" or \"cancel\". Ctrl-D to quit.")
	fmt.Print("> ")
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			fmt.Print("> ")
			continue
		}

		opCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout.Std())
		reply, err := sess.HandleMessage(opCtx, text)
		cancel()
		switch {
		case errors.Is(err, intent.ErrUnrecognized):
			fmt.Println("Couldn't read an order from that. Include a symbol, side, and amount.")
		case err != nil:
			fmt.Printf("Error: %v\n", err)
		default:
			fmt.Println(reply.Text)
		}
		fmt.Print("> ")
	}
}

func runServe(ctx context.Context, cfg config.Config, manager *session.Manager, registry *symbols.Registry, ex exchange.Client) {
	server := api.NewServer(manager, registry, ex, cfg.SkipConfirm)
	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: server.Router(),
	}

	go func() {
		log.Printf("HTTP API listening on %s", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown: %v", err)
	}
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/nbd-wtf/go-nostr"
	"github.com/w3irdrobot/bullhorn/internal/config"
	bullnostr "github.com/w3irdrobot/bullhorn/internal/nostr"
	"github.com/w3irdrobot/bullhorn/internal/notify"
	"github.com/w3irdrobot/bullhorn/internal/ops"
	"github.com/w3irdrobot/bullhorn/internal/storage"
	"github.com/w3irdrobot/bullhorn/internal/watch"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "init" {
		handleInit()
		return
	}

	var (
		showVersion = flag.Bool("version", false, "Show version information")
		configPath  = flag.String("config", "", "Path to configuration file")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("bullhorn %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		os.Exit(0)
	}

	if *configPath == "" {
		fmt.Println("bullhorn - Nostr to ntfy push notification bridge")
		fmt.Println()
		fmt.Println("No configuration file specified. Use --config <path> to specify config.")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  bullhorn init              Generate example configuration")
		fmt.Println("  bullhorn --version         Show version information")
		fmt.Println("  bullhorn --config <path>   Start with configuration file")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	logger := ops.NewLogger(&cfg.Logging)
	ops.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("bullhorn exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *ops.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.LogStartup(version, cfg.Identity.Npub)

	pubkey, err := config.DecodePubkey(cfg.Identity.Npub)
	if err != nil {
		return fmt.Errorf("failed to decode identity npub: %w", err)
	}

	follows := make([]string, 0, len(cfg.Follows.Npubs))
	for _, npub := range cfg.Follows.Npubs {
		pk, err := config.DecodePubkey(npub)
		if err != nil {
			return fmt.Errorf("failed to decode follow npub %s: %w", npub, err)
		}
		follows = append(follows, pk)
	}

	topic := cfg.Ntfy.Topic
	if topic == "" {
		topic, err = notify.LoadOrCreateTopic(cfg.Ntfy.TopicFile)
		if err != nil {
			return fmt.Errorf("failed to load subscription topic: %w", err)
		}
	}
	displaySubscriptionQR(topic)

	st, err := storage.New(&cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer st.Close()

	client := bullnostr.New(ctx, &cfg.Relays, logger)
	defer client.Close()

	filters := bullnostr.ReceiveFilters(pubkey, follows, &cfg.Notify, nostr.Now())
	stream := client.Subscribe(ctx, filters)

	ntfy := notify.NewNtfy(nil, cfg.Ntfy.Endpoint, topic, logger)
	classifier := watch.NewClassifier(pubkey, st, logger, cfg.Notify.AcceptedChannelCapacity)
	router := notify.NewRouter(ntfy, &cfg.Notify, logger)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		classifier.Run(ctx, stream)
	}()
	go func() {
		defer wg.Done()
		router.Run(ctx, classifier.Accepted())
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logger.LogShutdown("signal received")

	cancel()
	wg.Wait()

	logger.Info("successfully shut down")
	return nil
}

func displaySubscriptionQR(topic string) {
	fmt.Println("This is your subscription topic. Messages will be sent to this topic in ntfy.")
	fmt.Println()
	if qr, err := notify.TopicQR(topic); err == nil {
		fmt.Println(qr)
	}
	fmt.Println(topic)
	fmt.Println()
	fmt.Println("Load this into the ntfy app to receive push notifications.")
}

func handleInit() {
	exampleConfig, err := config.GetExampleConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading example config: %v\n", err)
		os.Exit(1)
	}

	fmt.Print(string(exampleConfig))
}

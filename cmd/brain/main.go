package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"brain/internal/config"
	"brain/internal/history"
	"brain/internal/orchestrator"
	"brain/internal/provider"
	"brain/internal/session"
)

var (
	// Global flags
	verbose    bool
	configPath string

	// Prompt flags
	providerFlag    string
	modelFlag       string
	threadFlag      string
	outputFlag      string
	deepFlag        bool
	allFlag         bool
	interactiveFlag bool
	temperatureFlag float64
	maxTokensFlag   int

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "brain [prompt]",
	Short: "brain - multi-backend AI completion CLI",
	Long: `brain sends prompts to one or several AI backends and keeps the
conversation in named threads.

A plain prompt goes to the active backend. With --deep the prompt fans out
to every configured backend concurrently and a synthesis pass combines the
responses into one answer. With --all the raw per-backend responses are
shown side by side instead.

Run without arguments to start the interactive chat interface.`,
	Args: cobra.ArbitraryArgs,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// The interactive UI owns the terminal; keep the logger quiet there.
		if len(args) == 0 || interactiveFlag {
			logger = zap.NewNop()
			return nil
		}

		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 || interactiveFlag {
			return runInteractiveChat()
		}
		return runSingle(cmd, strings.Join(args, " "))
	},
}

// historyCmd shows the message history of a thread
var historyCmd = &cobra.Command{
	Use:   "history [thread]",
	Short: "Show the message history of a thread",
	Long: `Prints the stored messages of a thread in order, oldest first.
Defaults to the "default" thread.`,
	Args: cobra.MaximumNArgs(1),
	RunE: showHistory,
}

// threadsCmd lists stored threads
var threadsCmd = &cobra.Command{
	Use:   "threads",
	Short: "List threads with stored history",
	RunE:  listThreads,
}

// providersCmd lists backends and their credential status
var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List configured backends and credential status",
	RunE:  listProviders,
}

// configCmd shows the effective configuration
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	RunE:  showConfig,
}

// configInitCmd writes a default config file
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config.yaml",
	RunE:  initConfig,
}

var historyLimit int

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (default: ./config.yaml)")

	rootCmd.Flags().StringVarP(&providerFlag, "provider", "p", "", "Backend to use for this prompt")
	rootCmd.Flags().StringVarP(&modelFlag, "model", "m", "", "Model override for the selected backend")
	rootCmd.Flags().StringVarP(&threadFlag, "thread", "t", "", "Thread to converse in (default: \"default\")")
	rootCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Also write the exchange to this file")
	rootCmd.Flags().BoolVarP(&deepFlag, "deep", "d", false, "Fan out to all backends and synthesize one answer")
	rootCmd.Flags().BoolVar(&allFlag, "all", false, "Fan out to all backends and show each response")
	rootCmd.Flags().BoolVarP(&interactiveFlag, "interactive", "i", false, "Start the interactive chat interface")
	rootCmd.Flags().Float64Var(&temperatureFlag, "temperature", -1, "Sampling temperature override")
	rootCmd.Flags().IntVar(&maxTokensFlag, "max-tokens", 0, "Response token limit override")

	historyCmd.Flags().IntVar(&historyLimit, "limit", 0, "Show only the last N messages")

	configCmd.AddCommand(configInitCmd)

	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(threadsCmd)
	rootCmd.AddCommand(providersCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app bundles the wired components behind every command.
type app struct {
	cfg   config.Config
	creds config.Credentials
	store history.Store
	ctrl  *session.Controller
}

// newApp loads configuration, applies command-line overrides, and wires the
// registry, orchestrator, store, and session controller.
func newApp(log *zap.Logger) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if modelFlag != "" {
		cfg.DefaultModel = modelFlag
	}
	if temperatureFlag >= 0 {
		cfg.Temperature = temperatureFlag
	}
	if maxTokensFlag > 0 {
		cfg.MaxTokens = maxTokensFlag
	}
	if providerFlag != "" {
		cfg.DefaultProvider = providerFlag
	}

	creds := config.LoadCredentials()
	reg := provider.NewDefaultRegistry(cfg, creds)

	store, err := history.Open(cfg.History)
	if err != nil {
		return nil, fmt.Errorf("opening history store: %w", err)
	}

	orch := orchestrator.New(reg, log)
	synth := orchestrator.NewSynthesizer(reg, cfg.SynthesisBackend(), log)
	ctrl := session.New(cfg, store, orch, synth, log)

	if providerFlag != "" {
		if err := ctrl.SwitchBackend(providerFlag); err != nil {
			store.Close()
			return nil, err
		}
	}
	if threadFlag != "" {
		if err := ctrl.SwitchThread(threadFlag); err != nil {
			store.Close()
			return nil, err
		}
	}

	return &app{cfg: cfg, creds: creds, store: store, ctrl: ctrl}, nil
}

func (a *app) Close() {
	_ = a.store.Close()
}

func showHistory(cmd *cobra.Command, args []string) error {
	a, err := newApp(logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if len(args) == 1 {
		if err := a.ctrl.SwitchThread(args[0]); err != nil {
			return err
		}
	}

	msgs, err := a.ctrl.History(historyLimit)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		fmt.Printf("Thread %q is empty.\n", a.ctrl.Thread())
		return nil
	}

	for _, msg := range msgs {
		label := msg.Role
		if msg.Provider != "" {
			label = fmt.Sprintf("%s (%s)", msg.Role, msg.Provider)
		}
		fmt.Printf("[%s] %s\n%s\n\n", msg.Timestamp, label, msg.Content)
	}
	return nil
}

func listThreads(cmd *cobra.Command, args []string) error {
	a, err := newApp(logger)
	if err != nil {
		return err
	}
	defer a.Close()

	threads, err := a.ctrl.Threads()
	if err != nil {
		return err
	}
	if len(threads) == 0 {
		fmt.Println("No threads yet.")
		return nil
	}
	for _, name := range threads {
		fmt.Println(name)
	}
	return nil
}

func listProviders(cmd *cobra.Command, args []string) error {
	a, err := newApp(logger)
	if err != nil {
		return err
	}
	defer a.Close()

	missing := make(map[string]bool)
	for _, name := range a.creds.Missing() {
		missing[name] = true
	}

	for _, name := range a.ctrl.Backends() {
		status := "ready"
		if missing[name] {
			status = "no API key"
		}
		marker := " "
		if name == a.ctrl.Backend() {
			marker = "*"
		}
		fmt.Printf("%s %-10s %s\n", marker, name, status)
	}
	return nil
}

func showConfig(cmd *cobra.Command, args []string) error {
	a, err := newApp(logger)
	if err != nil {
		return err
	}
	defer a.Close()

	// Effective config after flag overrides, in config.yaml form.
	data, err := yaml.Marshal(a.cfg)
	if err != nil {
		return err
	}
	fmt.Print(string(data))
	return nil
}

func initConfig(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		path = config.DefaultConfigFile
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if err := config.Default().Save(path); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", path)
	return nil
}

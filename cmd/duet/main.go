package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/duet-dev/duet/config"
	"github.com/duet-dev/duet/dialogue"
	"github.com/duet-dev/duet/llm"
	"github.com/duet-dev/duet/search"
)

var (
	version = "0.1.0"
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "duet",
		Short: "Turn-based dialogue between two model-backed agents",
		Long: `Duet runs a structured conversation between two LLM agents on a topic
you choose. You can interrupt a reply at any time by pressing Enter, speak
into the conversation, or let it run headless with --auto.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")

	var autoTurns int
	runCmd := &cobra.Command{
		Use:   "run <topic>",
		Short: "Start an interactive conversation on a topic",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConversation(strings.Join(args, " "), 0)
		},
	}
	rootCmd.AddCommand(runCmd)

	autoCmd := &cobra.Command{
		Use:   "auto <topic>",
		Short: "Run a conversation headless and print the transcript",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConversation(strings.Join(args, " "), autoTurns)
		},
	}
	autoCmd.Flags().IntVar(&autoTurns, "turns", 40, "maximum number of turns")
	rootCmd.AddCommand(autoCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "models",
		Short: "List known models",
		Run: func(cmd *cobra.Command, args []string) {
			for _, m := range llm.ListModels("") {
				fmt.Printf("%-24s %-10s context=%d\n", m.ID, m.Provider, m.ContextWindow)
			}
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("duet version %s\n", version)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// runConversation assembles the engine from configuration and runs it.
// autoTurns > 0 selects headless mode.
func runConversation(topic string, autoTurns int) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer logger.Sync()

	client, err := buildClient(cfg, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	conv := buildConversation(cfg, client, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if autoTurns > 0 {
		transcript, err := conv.RunAuto(ctx, topic, autoTurns)
		if err != nil {
			return err
		}
		fmt.Print(transcript.Markdown())
		return nil
	}

	_, err = conv.Run(ctx, topic)
	return err
}

// buildClient registers one provider adapter per provider the agents need.
func buildClient(cfg *config.Config, logger *zap.Logger) (*llm.Client, error) {
	client := llm.NewClient(
		llm.WithMiddleware(llm.RequestLogging(logger)),
		llm.WithStreamMiddleware(llm.StreamLogging(logger)),
	)

	needed := map[string]bool{}
	for _, a := range cfg.Agents {
		provider := a.Provider
		if provider == "" {
			if info := llm.GetModelInfo(a.Model); info != nil {
				provider = info.Provider
			}
		}
		if provider == "" {
			return nil, fmt.Errorf("cannot infer provider for model %q; set provider explicitly", a.Model)
		}
		needed[provider] = true
	}

	for provider := range needed {
		var key string
		switch provider {
		case "anthropic":
			key = cfg.Credentials.AnthropicAPIKey
		case "openai":
			key = cfg.Credentials.OpenAIAPIKey
		default:
			return nil, fmt.Errorf("unknown provider %q", provider)
		}
		if key == "" {
			return nil, fmt.Errorf("no API key for provider %q (set %s_API_KEY)", provider, strings.ToUpper(provider))
		}
		adapter, err := llm.NewGollmAdapter(provider, key)
		if err != nil {
			return nil, err
		}
		client.RegisterProvider(provider, adapter)
	}
	return client, nil
}

func buildConversation(cfg *config.Config, client *llm.Client, logger *zap.Logger) *dialogue.Conversation {
	dcfg := dialogue.DefaultConfig()
	dcfg.MaxTurns = cfg.Conversation.MaxTurns
	dcfg.TurnInterval = cfg.Conversation.TurnInterval.Std()
	dcfg.MaxResponseTokens = cfg.Conversation.MaxResponseTokens
	dcfg.RepetitionWindow = cfg.Conversation.RepetitionWindow
	dcfg.TranscriptDir = cfg.Conversation.TranscriptDir
	dcfg.SearchInterval = cfg.Search.Interval
	dcfg.SearchMaxResults = cfg.Search.MaxResults
	dcfg.ToolInterval = cfg.Tools.Interval
	dcfg.Budget = dialogue.BudgetConfig{
		MaxTokens:        cfg.Budget.MaxTokens,
		WarningThreshold: cfg.Budget.WarningThreshold,
		TrimTargetRatio:  cfg.Budget.TrimTargetRatio,
		KeepRecentCount:  cfg.Budget.KeepRecent,
		MaxTrimCount:     cfg.Budget.MaxTrims,
	}
	dcfg.End.MinTurns = cfg.Conversation.MinTurnsBeforeEnd
	dcfg.End.AutoConfirm = cfg.Conversation.AutoConfirmEnd

	agentA := agentFromConfig(cfg.Agents[0])
	agentB := agentFromConfig(cfg.Agents[1])

	conv := dialogue.NewConversation(agentA, agentB, client, dcfg)
	conv.SetLogger(logger)
	conv.SetSummarizer(dialogue.NewAgentSummarizer(client, agentA.Model, agentA.Provider, logger))

	if cfg.Search.Enabled {
		conv.SetSearcher(search.NewDuckDuckGo(nil, logger))
	}
	if cfg.Tools.Enabled {
		inspector := dialogue.NewWorkspaceInspector(cfg.Tools.Workspace)
		direct := dialogue.NewDirectBackend(inspector)

		host := dialogue.NewToolHost(logger)
		host.Register(dialogue.HostedTool{
			Name:        "inspect",
			Description: "Search the workspace for material relevant to a question",
			Fn:          inspector.Answer,
		})
		host.SetHooks(dialogue.Hooks{
			PostInvoke: func(ev dialogue.HookEvent) {
				logger.Debug("tool invoked",
					zap.String("tool", ev.Tool),
					zap.Duration("duration", ev.Duration),
					zap.Error(ev.Err))
			},
		})
		hosted := dialogue.NewHostBackend(host, "inspect")

		conv.SetToolAdapter(dialogue.NewToolAdapter(hosted, direct, cfg.Tools.Timeout.Std(), logger))
	}

	// Surface engine events in the log at debug level.
	go func() {
		for ev := range conv.Events() {
			logger.Debug("event", zap.String("kind", string(ev.Kind)), zap.Any("data", ev.Data))
		}
	}()

	return conv
}

func agentFromConfig(a config.AgentConfig) dialogue.Agent {
	return dialogue.Agent{
		Name:     a.Name,
		Persona:  a.Persona,
		Model:    a.Model,
		Provider: a.Provider,
	}
}

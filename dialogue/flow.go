package dialogue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/duet-dev/duet/llm"
)

// State represents the current lifecycle state of a conversation.
type State string

const (
	StateIdle          State = "idle"
	StateStreaming     State = "streaming"
	StateAwaitingInput State = "awaiting_input"
	StateClosed        State = "closed"
)

// Config holds the tunable parameters of the turn loop.
type Config struct {
	// MaxTurns stops the conversation after this many completed turns;
	// zero means unlimited (interactive mode only).
	MaxTurns int
	// TurnInterval is the pause between turns.
	TurnInterval time.Duration
	// SearchInterval triggers a periodic web search every N turns; zero
	// disables the periodic fallback. Explicit directives always work.
	SearchInterval int
	// SearchMaxResults caps results per search.
	SearchMaxResults int
	// ToolInterval injects a tool query every N turns; zero disables.
	ToolInterval int
	// RepetitionWindow is the window for echo-loop detection; zero disables.
	RepetitionWindow int
	// MaxResponseTokens caps each agent reply.
	MaxResponseTokens int
	// TranscriptDir is where transcripts are saved; empty means
	// "transcripts" under the working directory.
	TranscriptDir string
	// Budget configures the context budget.
	Budget BudgetConfig
	// End configures end-of-conversation detection.
	End EndConfig
}

// DefaultConfig returns the standard turn loop parameters.
func DefaultConfig() *Config {
	return &Config{
		TurnInterval:      2 * time.Second,
		SearchInterval:    0,
		SearchMaxResults:  5,
		RepetitionWindow:  6,
		MaxResponseTokens: 2048,
		Budget:            DefaultBudgetConfig(),
		End:               DefaultEndConfig(),
	}
}

// Conversation orchestrates a turn-based dialogue between two agents, with
// an operator able to interject at any time. All log mutation happens on the
// goroutine that called Run or RunAuto; accessors are safe from any
// goroutine.
type Conversation struct {
	id     string
	agents [2]Agent
	cfg    *Config
	client *llm.Client

	log       *Log
	memory    *BudgetManager
	detector  *EndDetector
	policy    *TriggerPolicy
	bridge    *StreamBridge
	emitter   *EventEmitter
	interrupt *InterruptFlag
	console   Console
	searcher  Searcher
	tools     *ToolAdapter
	summ      Summarizer
	logger    *zap.Logger

	prompts [2]string

	mu             sync.Mutex
	state          State
	running        bool
	current        int
	turn           int
	turnsSinceSrch int
	turnsSinceTool int
	topic          string
	endReason      string
	startTime      time.Time
}

// NewConversation creates a Conversation between two agents sharing one
// client. Optional collaborators are attached through the Set methods before
// Run.
func NewConversation(agentA, agentB Agent, client *llm.Client, cfg *Config) *Conversation {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	id := uuid.New().String()[:8]
	return &Conversation{
		id:        id,
		agents:    [2]Agent{agentA, agentB},
		cfg:       cfg,
		client:    client,
		log:       NewLog(),
		detector:  NewEndDetector(cfg.End),
		policy:    &TriggerPolicy{Interval: cfg.SearchInterval},
		emitter:   NewEventEmitter(id, 256),
		interrupt: &InterruptFlag{},
		console:   NewStdioConsole(),
		logger:    zap.NewNop(),
		state:     StateIdle,
	}
}

// ID returns the conversation's identifier.
func (c *Conversation) ID() string { return c.id }

// State returns the current lifecycle state.
func (c *Conversation) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Events returns the engine's event channel.
func (c *Conversation) Events() <-chan Event { return c.emitter.Events() }

// Log returns a snapshot of the conversation history.
func (c *Conversation) Log() []Message { return c.log.Messages() }

// SetLogger attaches a structured logger.
func (c *Conversation) SetLogger(logger *zap.Logger) {
	if logger != nil {
		c.logger = logger
	}
}

// SetConsole replaces the operator console.
func (c *Conversation) SetConsole(console Console) {
	if console != nil {
		c.console = console
	}
}

// SetSearcher attaches a web searcher.
func (c *Conversation) SetSearcher(s Searcher) { c.searcher = s }

// SetToolAdapter attaches a tool adapter.
func (c *Conversation) SetToolAdapter(t *ToolAdapter) { c.tools = t }

// SetSummarizer attaches the summarizer used when the trim budget runs out.
func (c *Conversation) SetSummarizer(s Summarizer) { c.summ = s }

// SetBudgetManager replaces the context budget manager, mainly to supply a
// custom token estimator.
func (c *Conversation) SetBudgetManager(m *BudgetManager) { c.memory = m }

// Interrupt raises the interrupt flag, stopping the current stream at the
// next chunk boundary. Safe from any goroutine.
func (c *Conversation) Interrupt() { c.interrupt.Set() }

func (c *Conversation) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Conversation) emit(kind EventKind, data map[string]interface{}) {
	c.emitter.Emit(kind, data)
}

func (c *Conversation) init(topic string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateIdle {
		return fmt.Errorf("conversation %s already started", c.id)
	}
	c.topic = topic
	c.running = true
	c.startTime = time.Now()
	c.state = StateStreaming

	if c.memory == nil {
		c.memory = NewBudgetManager(c.cfg.Budget, NewTiktokenEstimator("cl100k_base"), c.logger)
	}
	if c.bridge == nil {
		c.bridge = NewStreamBridge(c.client, llm.DefaultRetryPolicy(), c.logger)
	}
	for i := range c.agents {
		peer := c.agents[1-i].Name
		c.prompts[i] = BuildSystemPrompt(c.agents[i], PromptOptions{
			PeerName:      peer,
			EndMarker:     c.cfg.End.Marker,
			EndEnabled:    c.cfg.End.Enabled,
			SearchEnabled: c.searcher != nil,
		})
	}

	c.log.Append(Message{
		Role: RoleHuman,
		Content: fmt.Sprintf("Topic: %s\n\nDiscuss this topic from your assigned perspectives. Engage with each other directly.",
			topic),
	})
	return nil
}

// Run drives the conversation interactively until an end condition or the
// operator quits. It returns the finished transcript; the transcript is also
// saved to the configured directory.
func (c *Conversation) Run(ctx context.Context, topic string) (*Transcript, error) {
	if err := c.init(topic); err != nil {
		return nil, err
	}
	c.emit(EventConversationStart, map[string]interface{}{
		"topic":   topic,
		"agent_a": c.agents[0].Name,
		"agent_b": c.agents[1].Name,
	})
	c.console.Printf("Topic: %s\n", topic)
	c.console.Print("Press Enter during a reply to interrupt. Commands: /quit, /clear, /stats\n")

	err := c.loop(ctx, true)
	return c.finish(err)
}

// RunAuto drives the conversation headlessly for at most maxTurns turns,
// with end proposals auto-confirmed and no operator input.
func (c *Conversation) RunAuto(ctx context.Context, topic string, maxTurns int) (*Transcript, error) {
	if maxTurns <= 0 {
		maxTurns = 500
	}
	c.cfg.MaxTurns = maxTurns
	c.cfg.End.AutoConfirm = true
	c.console = NopConsole{}
	if err := c.init(topic); err != nil {
		return nil, err
	}
	c.emit(EventConversationStart, map[string]interface{}{
		"topic": topic,
		"mode":  "auto",
	})
	err := c.loop(ctx, false)
	return c.finish(err)
}

func (c *Conversation) loop(ctx context.Context, interactive bool) error {
	for {
		c.mu.Lock()
		running := c.running
		turn := c.turn
		c.mu.Unlock()
		if !running || ctx.Err() != nil {
			break
		}
		if c.cfg.MaxTurns > 0 && turn >= c.cfg.MaxTurns {
			c.setEndReason("turn limit reached")
			break
		}

		if interactive && c.console.InputReady() {
			c.inputMode()
			continue
		}

		if err := c.step(ctx, interactive); err != nil {
			return err
		}

		if c.cfg.TurnInterval > 0 {
			select {
			case <-time.After(c.cfg.TurnInterval):
			case <-ctx.Done():
			}
		}
	}
	if ctx.Err() != nil {
		c.setEndReason("cancelled")
	}
	return nil
}

func (c *Conversation) setEndReason(reason string) {
	c.mu.Lock()
	if c.endReason == "" {
		c.endReason = reason
	}
	c.running = false
	c.mu.Unlock()
}

// step runs a single turn: optional search and tool injection, then one
// streamed agent response with interrupt handling.
func (c *Conversation) step(ctx context.Context, interactive bool) error {
	c.mu.Lock()
	speaker := c.current
	turn := c.turn
	c.mu.Unlock()
	agent := c.agents[speaker]

	c.emit(EventTurnStart, map[string]interface{}{
		"turn":    turn,
		"speaker": agent.Name,
	})

	c.maybeSearch(ctx)
	c.maybeToolQuery(ctx, turn)

	req := llm.Request{
		Model:    agent.Model,
		Provider: agent.Provider,
		Messages: append([]llm.Message{llm.SystemMessage(c.prompts[speaker])}, c.log.ToWire(speaker)...),
	}
	if c.cfg.MaxResponseTokens > 0 {
		req.MaxTokens = &c.cfg.MaxResponseTokens
	}

	c.console.Printf("\n[%s]: ", agent.Name)
	c.setState(StateStreaming)

	stopMonitor := func() {}
	if interactive {
		stopMonitor = c.watchForInterrupt()
	}
	result := c.bridge.Respond(ctx, req, c.interrupt, func(delta string) {
		c.console.Print(delta)
	})
	stopMonitor()
	c.console.Print("\n")

	switch result.Outcome {
	case OutcomeFailed:
		return c.handleFailure(result.Err, agent.Name)
	case OutcomeInterrupted:
		c.handleInterrupt(result, speaker, agent.Name)
		if interactive {
			c.inputMode()
		}
		return nil
	default:
		return c.handleCompleted(ctx, result, speaker, agent)
	}
}

func (c *Conversation) handleFailure(err error, speaker string) error {
	c.emit(EventError, map[string]interface{}{
		"speaker": speaker,
		"error":   fmt.Sprint(err),
	})
	c.logger.Error("turn failed", zap.String("speaker", speaker), zap.Error(err))
	c.setEndReason("error: " + fmt.Sprint(err))
	return err
}

func (c *Conversation) handleInterrupt(result StreamResult, speaker int, name string) {
	if strings.TrimSpace(result.Text) != "" {
		c.mu.Lock()
		turn := c.turn
		c.mu.Unlock()
		c.log.Append(Message{
			Role:       AgentRole(speaker),
			Content:    CleanSpeakerPrefix(result.Text, name),
			TurnIndex:  turn,
			Incomplete: true,
		})
	}
	c.emit(EventInterrupted, map[string]interface{}{
		"speaker":       name,
		"partial_chars": len(result.Text),
	})
	c.console.Print("\n[interrupted]\n")
}

func (c *Conversation) handleCompleted(ctx context.Context, result StreamResult, speaker int, agent Agent) error {
	c.mu.Lock()
	c.turn++
	turn := c.turn
	c.mu.Unlock()

	text := CleanSpeakerPrefix(result.Text, agent.Name)
	proposed := c.detector.Detect(text, turn)
	clean := c.detector.Clean(text)

	c.log.Append(Message{
		Role:      AgentRole(speaker),
		Content:   clean,
		TurnIndex: turn,
		Citations: result.Citations,
	})
	c.emit(EventResponseComplete, map[string]interface{}{
		"turn":    turn,
		"speaker": agent.Name,
		"chars":   len(clean),
		"tokens":  result.Usage.TotalTokens,
	})
	for _, cit := range result.Citations {
		c.console.Printf("  > %s — %s\n", cit.Title, cit.URL)
	}

	if err := c.checkBudget(ctx); err != nil {
		return nil // graceful end already arranged
	}

	if proposed {
		c.handleEndProposal(agent.Name, clean, turn)
	}

	if DetectRepetition(c.log, c.cfg.RepetitionWindow) {
		c.emit(EventRepetition, map[string]interface{}{"turn": turn})
		c.logger.Warn("repetition detected", zap.Int("turn", turn))
	}

	c.mu.Lock()
	c.current = 1 - c.current
	c.turnsSinceSrch++
	c.turnsSinceTool++
	c.mu.Unlock()
	return nil
}

// maybeSearch injects web search results when the previous response asked
// for them explicitly or the periodic interval has elapsed.
func (c *Conversation) maybeSearch(ctx context.Context) {
	if c.searcher == nil {
		return
	}
	last, ok := c.log.LastAgentMessage()
	if !ok {
		return
	}
	c.mu.Lock()
	since := c.turnsSinceSrch
	topic := c.topic
	c.mu.Unlock()

	decision := c.policy.ShouldTrigger(last.Content, since, c.log, topic)
	if !decision.Trigger {
		return
	}

	sctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	results, err := c.searcher.Search(sctx, decision.Query, c.cfg.SearchMaxResults)
	cancel()
	if err != nil {
		c.emit(EventWarning, map[string]interface{}{
			"warning": "search failed",
			"query":   decision.Query,
			"error":   fmt.Sprint(err),
		})
		c.logger.Warn("search failed", zap.String("query", decision.Query), zap.Error(err))
		return
	}

	body := ClipInjected(FormatSearchResults(decision.Query, results), "search_results")
	c.mu.Lock()
	turn := c.turn
	c.turnsSinceSrch = 0
	c.mu.Unlock()
	c.log.Append(Message{Role: RoleHuman, Content: body, TurnIndex: turn})
	c.emit(EventSearch, map[string]interface{}{
		"query":    decision.Query,
		"explicit": decision.Explicit,
		"results":  len(results),
	})
	c.console.Printf("\n[search: %s — %d results]\n", decision.Query, len(results))
}

// maybeToolQuery periodically asks the tool adapter for background material.
func (c *Conversation) maybeToolQuery(ctx context.Context, turn int) {
	if c.tools == nil || c.cfg.ToolInterval <= 0 || turn == 0 {
		return
	}
	c.mu.Lock()
	since := c.turnsSinceTool
	topic := c.topic
	c.mu.Unlock()
	if since < c.cfg.ToolInterval {
		return
	}

	question := DefaultQueryExtractor(c.log, topic)
	if question == "" {
		return
	}
	answer, ok := c.tools.Query(ctx, question)
	if !ok {
		c.emit(EventWarning, map[string]interface{}{
			"warning":  "tool query failed",
			"question": question,
		})
		return
	}

	c.mu.Lock()
	c.turnsSinceTool = 0
	c.mu.Unlock()
	c.log.Append(Message{Role: RoleHuman, Content: FormatToolResult(question, answer), TurnIndex: turn})
	c.emit(EventToolQuery, map[string]interface{}{"question": question})
}

// checkBudget trims or summarizes when the log busts the context budget. On
// an unrecoverable budget condition it ends the conversation gracefully and
// returns the error.
func (c *Conversation) checkBudget(ctx context.Context) error {
	state := c.memory.Evaluate(c.log)
	switch state.Status {
	case BudgetYellow:
		c.emit(EventWarning, map[string]interface{}{
			"warning": "context budget above warning threshold",
			"tokens":  state.EstimatedTokens,
		})
		return nil
	case BudgetGreen:
		return nil
	}

	removed, err := c.memory.Trim(c.log)
	if err == nil {
		c.emit(EventTrim, map[string]interface{}{
			"removed":    removed,
			"trim_count": c.memory.TrimCount(),
		})
		return nil
	}

	if errors.Is(err, ErrTrimExhausted) {
		c.mu.Lock()
		topic := c.topic
		c.mu.Unlock()
		serr := c.memory.SummarizeAndReset(ctx, c.log, topic, c.summ)
		if serr == nil {
			c.emit(EventSummarized, map[string]interface{}{
				"tokens": c.memory.Evaluate(c.log).EstimatedTokens,
			})
			return nil
		}
		err = serr
	}

	c.emit(EventError, map[string]interface{}{"error": fmt.Sprint(err)})
	c.logger.Error("context budget unrecoverable", zap.Error(err))
	c.setEndReason("context budget exhausted")
	return err
}

func (c *Conversation) handleEndProposal(proposer, clean string, turn int) {
	c.emit(EventEndProposed, map[string]interface{}{
		"proposer": proposer,
		"turn":     turn,
	})

	confirmed := c.cfg.End.AutoConfirm
	if !confirmed {
		c.console.Printf("\n%s proposes to end the conversation. Press Enter to accept, or type a reply to continue: ", proposer)
		line, err := c.console.ReadLine()
		if err != nil || strings.TrimSpace(line) == "" {
			confirmed = true
		} else {
			c.mu.Lock()
			t := c.turn
			c.mu.Unlock()
			c.log.Append(Message{Role: RoleHuman, Content: line, TurnIndex: t})
			c.emit(EventEndCancelled, map[string]interface{}{"proposer": proposer})
		}
	}

	if confirmed {
		c.emit(EventEndConfirmed, map[string]interface{}{"proposer": proposer})
		c.setEndReason("ended by " + proposer)
	}
}

// watchForInterrupt polls the console while a response streams, raising the
// interrupt flag when the operator presses Enter.
func (c *Conversation) watchForInterrupt() (stop func()) {
	done := make(chan struct{})
	var once sync.Once
	go func() {
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if c.console.InputReady() {
					c.interrupt.Set()
					return
				}
			case <-done:
				return
			}
		}
	}()
	return func() { once.Do(func() { close(done) }) }
}

// inputMode lets the operator speak. Blank input resumes the conversation;
// commands start with a slash.
func (c *Conversation) inputMode() {
	c.setState(StateAwaitingInput)
	defer func() {
		c.interrupt.Clear()
		c.setState(StateStreaming)
	}()

	line, err := c.console.ReadLine()
	if err != nil {
		c.setEndReason("input closed")
		return
	}
	if strings.TrimSpace(line) == "" {
		c.console.Print(">>> ")
		line, err = c.console.ReadLine()
		if err != nil {
			c.setEndReason("input closed")
			return
		}
	}

	input := strings.TrimSpace(line)
	switch {
	case input == "":
		c.console.Print("[resuming]\n")
	case input == "/quit" || input == "/exit":
		c.setEndReason("operator quit")
	case input == "/clear":
		c.log.Reset(1)
		c.console.Print("[history cleared]\n")
	case input == "/stats":
		c.printStats()
	default:
		c.mu.Lock()
		turn := c.turn
		c.mu.Unlock()
		c.log.Append(Message{Role: RoleHuman, Content: input, TurnIndex: turn})
		c.emit(EventUserInput, map[string]interface{}{"chars": len(input)})
	}
}

func (c *Conversation) printStats() {
	state := c.memory.Evaluate(c.log)
	c.mu.Lock()
	turn := c.turn
	c.mu.Unlock()
	c.console.Printf("[turns: %d, messages: %d, est. tokens: %d (%s), trims: %d]\n",
		turn, c.log.Len(), state.EstimatedTokens, state.Status, state.TrimCount)
	if c.tools != nil {
		s := c.tools.Stats()
		c.console.Printf("[tool calls: %d preferred, %d fallback, %d failed]\n",
			s.PreferredCalls, s.FallbackCalls, s.Failures)
	}
}

// finish closes the conversation, saves the transcript, and emits the end
// event.
func (c *Conversation) finish(runErr error) (*Transcript, error) {
	c.mu.Lock()
	c.state = StateClosed
	c.running = false
	reason := c.endReason
	turn := c.turn
	start := c.startTime
	topic := c.topic
	c.mu.Unlock()

	t := &Transcript{
		ID:        c.id,
		Topic:     topic,
		AgentA:    c.agents[0].Name,
		AgentB:    c.agents[1].Name,
		StartTime: start,
		EndTime:   time.Now(),
		TurnCount: turn,
		TrimCount: c.memory.TrimCount(),
		EndReason: reason,
		Messages:  c.log.Messages(),
	}
	if path, err := t.Save(c.cfg.TranscriptDir); err != nil {
		c.logger.Warn("transcript save failed", zap.Error(err))
	} else {
		c.console.Printf("\n[transcript saved: %s]\n", path)
	}

	c.emit(EventConversationEnd, map[string]interface{}{
		"turns":  turn,
		"reason": reason,
	})
	c.emitter.Close()
	return t, runErr
}

// Package dialogue implements a turn-based conversation engine for two
// model-backed agents.
//
// A Conversation alternates turns between two agents, streaming each reply
// to the operator's console. The operator can interrupt a reply mid-stream,
// speak into the conversation, or let it run headless. The engine watches
// the context budget and shrinks the log by trimming old messages, falling
// back to summarization once the trim budget is spent; it detects an
// agent-proposed ending through a sentinel marker; and it can enrich the
// conversation with web search results and tool answers.
//
// # Architecture
//
// The package is organized around these core concepts:
//
//   - Conversation: The turn loop, owning the log and orchestrating every
//     other component.
//   - Log: The append-only message history, projected into provider wire
//     messages per speaker.
//   - BudgetManager: Token accounting, trimming, and summarize-and-reset.
//   - EndDetector: Marker-based end-of-conversation detection with a
//     minimum-turn gate.
//   - StreamBridge / InterruptFlag: Streaming with cooperative interrupt at
//     chunk boundaries.
//   - TriggerPolicy / Searcher: Explicit and periodic web search injection.
//   - ToolAdapter: Preferred tool backend with a one-shot fallback.
//   - EventEmitter: Typed event stream for host application integration.
//
// # Quick Start
//
//	ada := dialogue.Agent{Name: "Ada", Persona: "A pragmatic engineer.", Model: "claude-sonnet-4-5"}
//	bob := dialogue.Agent{Name: "Bob", Persona: "A cautious historian.", Model: "claude-sonnet-4-5"}
//	conv := dialogue.NewConversation(ada, bob, client, nil)
//
//	transcript, err := conv.Run(ctx, "What did the printing press really change?")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(transcript.Markdown())
package dialogue

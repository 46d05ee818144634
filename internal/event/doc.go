/*
Package event provides a type-safe pub/sub event system for the document
wizard engine's real-time surface.

The event system lets the Scheduler, Executor, and Clarification Engine
notify subscribers of per-session progress without direct dependencies on
the server's transport layer.

# Architecture

The package is built on top of watermill's gochannel for infrastructure while
maintaining direct-call semantics to preserve type information. It provides
both synchronous and asynchronous event publishing patterns.

# Event Types

  - progress: a Prompt's status changed
  - model_result: an LLM call for a Prompt produced normalized content
  - clarification: a new pending clarification question was extracted
  - completed: a session's Result Assembler finished a version
  - error: a processing error failed the session

Every event's Data is an Envelope carrying the session id, an ISO-8601
timestamp, and the type-specific payload (ProgressData, ModelResultData,
ClarificationData, CompletedData, ErrorData).

# Basic Usage

Publishing events:

	event.Publish(event.Event{
		Type: event.Progress,
		Data: event.Envelope{
			SessionID: session.ID,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Data:      event.ProgressData{PromptID: prompt.ID, Status: prompt.Status},
		},
	})

	event.PublishSync(event.Event{
		Type: event.Completed,
		Data: event.Envelope{SessionID: session.ID, Data: event.CompletedData{ResultID: result.ID, Version: result.Version}},
	})

Subscribing to specific events:

	unsubscribe := event.Subscribe(event.Clarification, func(e event.Event) {
		env := e.Data.(event.Envelope)
		data := env.Data.(event.ClarificationData)
		log.Info().Str("question", data.Question).Msg("clarification pending")
	})
	defer unsubscribe()

Subscribing to all events for a session-filtering SSE bridge:

	unsubscribe := event.SubscribeAll(func(e event.Event) {
		env, ok := e.Data.(event.Envelope)
		if ok && env.SessionID == wantedSessionID {
			forwardToClient(e)
		}
	})
	defer unsubscribe()

# Subscriber Safety Guidelines

When using PublishSync, subscribers are called synchronously in the
publisher's goroutine. To avoid blocking or deadlocks, subscribers MUST:

  - Complete quickly (avoid long-running operations)
  - Use non-blocking channel sends (select with default case)
  - Never call Publish/PublishSync from within a subscriber (no re-entrant publishing)
  - Never acquire locks that the publisher might hold

# Custom Event Bus

For testing or isolation, create custom bus instances:

	bus := event.NewBus()
	defer bus.Close()

	unsubscribe := bus.Subscribe(event.Progress, handler)
	bus.PublishSync(event.Event{Type: event.Progress, Data: data})

# Testing

	// Reset global bus state (use in test cleanup)
	event.Reset()

# Thread Safety

The event bus is thread-safe and can be used concurrently from multiple
goroutines. Both publishing and subscribing operations are protected by
internal synchronization.

# Integration with Watermill

The package uses watermill's gochannel internally, providing access to the
underlying pubsub infrastructure for advanced use cases:

	pubsub := event.PubSub()
	// Use watermill features like middleware, routing, etc.

This allows future migration to a distributed broker without changing the
package's public API.
*/
package event

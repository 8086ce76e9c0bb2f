package service

import (
	"context"
	"errors"
)

// RemoteEventKind enumerates the remote-agent event types the orchestrator
// consumes (spec §4.1 table).
type RemoteEventKind string

const (
	EventMessageOutput      RemoteEventKind = "message-output"
	EventAgentHandoffDone   RemoteEventKind = "agent-handoff-done"
	EventToolExecutionStart RemoteEventKind = "tool-execution-started"
	EventFunctionCall       RemoteEventKind = "function-call"
	EventResponseError      RemoteEventKind = "response-error"
)

// RemoteEvent is one item of the remote-agent's event stream. Only the
// fields relevant to Kind are populated.
type RemoteEvent struct {
	Kind RemoteEventKind

	// Set on the first event of a brand-new remote conversation.
	RemoteConversationID string

	// message-output
	TextChunk string
	Agent     string

	// agent-handoff-done
	NextAgent string

	// tool-execution-started
	Tool string

	// function-call
	ToolCallID  string
	FunctionName string
	ArgsChunk   string

	// response-error
	ErrorMessage string
}

// EventIterator yields RemoteEvents until the stream completes or ctx is
// cancelled. Next returns (nil, nil) at the stream completion sentinel.
type EventIterator interface {
	Next(ctx context.Context) (*RemoteEvent, error)
	Close() error
}

// RunResult is the non-streaming response used by the artifact pipeline's
// summary-agent call (§4.5 step 3).
type RunResult struct {
	Text         string
	FunctionArgs []byte // populated if the agent called generate_summary instead of returning text
}

// ErrRemoteHandleInvalid is the sentinel the adapter returns when a stored
// remote-conversation handle is rejected by the upstream service (e.g. TTL
// expiry). Per the resolved Open Question (SPEC_FULL §7), the orchestrator
// surfaces this as an explicit error frame rather than silently starting a
// fresh remote conversation.
var ErrRemoteHandleInvalid = errors.New("remote conversation handle is no longer valid")

// RemoteAgent is the streaming RPC boundary named in spec §6.
type RemoteAgent interface {
	StartStream(ctx context.Context, agentID string, input string) (EventIterator, error)
	AppendStream(ctx context.Context, handle string, input string) (EventIterator, error)
	Run(ctx context.Context, handle string, input string) (RunResult, error)
}

package domain

// RequestToken correlates a recognition request with its completion.
type RequestToken string

// OutcomeKind classifies how a recognition attempt ended.
type OutcomeKind string

const (
	OutcomeSuccess     OutcomeKind = "success"
	OutcomeCancelled   OutcomeKind = "cancelled"
	OutcomeUnavailable OutcomeKind = "unavailable"
)

// RecognitionOutcome is the single result of one recognition request.
type RecognitionOutcome struct {
	Kind       OutcomeKind `json:"kind"`
	Transcript string      `json:"transcript,omitempty"`
}

func Success(transcript string) RecognitionOutcome {
	return RecognitionOutcome{Kind: OutcomeSuccess, Transcript: transcript}
}

func Cancelled() RecognitionOutcome {
	return RecognitionOutcome{Kind: OutcomeCancelled}
}

func Unavailable() RecognitionOutcome {
	return RecognitionOutcome{Kind: OutcomeUnavailable}
}

// SynthesisReadiness models the text-to-speech engine lifecycle.
type SynthesisReadiness string

const (
	SynthesisUninitialized SynthesisReadiness = "uninitialized"
	SynthesisInitializing  SynthesisReadiness = "initializing"
	SynthesisReady         SynthesisReadiness = "ready"
	SynthesisFailed        SynthesisReadiness = "failed"
)

// ActionKind identifies a user action.
type ActionKind string

const (
	ActionAdd    ActionKind = "add"
	ActionDelete ActionKind = "delete"
	ActionSelect ActionKind = "select"
)

// Action is a discrete user action. Index is only meaningful for ActionSelect.
type Action struct {
	Kind  ActionKind `json:"kind"`
	Index int        `json:"index,omitempty"`
}

func AddAction() Action { return Action{Kind: ActionAdd} }

func DeleteAction() Action { return Action{Kind: ActionDelete} }

func SelectAction(index int) Action { return Action{Kind: ActionSelect, Index: index} }

// NoticeCode identifies transient, non-fatal user notices.
type NoticeCode string

const (
	NoticeRecognitionUnavailable NoticeCode = "recognition_unavailable"
)

// ErrorCode identifies errors surfaced to the UI.
type ErrorCode string

const (
	ErrorCodeStartup ErrorCode = "startup"
	ErrorCodeAction  ErrorCode = "action"
	ErrorCodeClosed  ErrorCode = "closed"
)

// Status summarizes the current runtime status.
type Status struct {
	Count              int                `json:"count"`
	RecognitionPending bool               `json:"recognitionPending"`
	Synthesis          SynthesisReadiness `json:"synthesis"`
	Message            string             `json:"message,omitempty"`
}

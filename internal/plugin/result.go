package plugin

// ResultKind selects the outbound action a handler result maps to.
type ResultKind int

const (
	// ResultNone - no visible action.
	ResultNone ResultKind = iota

	// ResultReply - a text reply.
	ResultReply

	// ResultReact - a fixed positive or negative acknowledgement
	// reaction on the triggering message.
	ResultReact

	// ResultContinue - store a continuation and reply with its prompt.
	ResultContinue
)

// String returns a string representation of the kind.
func (k ResultKind) String() string {
	switch k {
	case ResultNone:
		return "none"
	case ResultReply:
		return "reply"
	case ResultReact:
		return "react"
	case ResultContinue:
		return "continue"
	default:
		return "unknown"
	}
}

// Result is a handler's normalized return value. Exactly one primary
// outbound action results from it.
type Result struct {
	Kind ResultKind

	// Text is the reply text (ResultReply) or the continuation prompt
	// (ResultContinue).
	Text string

	// Ok is the reaction polarity for ResultReact.
	Ok bool

	// Interaction names the resume handler within the owning plugin,
	// and State is the opaque payload handed back on resume
	// (ResultContinue).
	Interaction string
	State       []byte
}

// None returns a result with no visible action.
func None() Result {
	return Result{Kind: ResultNone}
}

// Reply returns a text reply.
func Reply(text string) Result {
	return Result{Kind: ResultReply, Text: text}
}

// React returns an acknowledgement reaction.
func React(ok bool) Result {
	return Result{Kind: ResultReact, Ok: ok}
}

// Continue pauses the command: the prompt is sent as a reply and the
// next message from the same conversation key resumes at the named
// interaction with the given state.
func Continue(prompt, interaction string, state []byte) Result {
	return Result{Kind: ResultContinue, Text: prompt, Interaction: interaction, State: state}
}

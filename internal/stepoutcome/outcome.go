// Package stepoutcome gives the cursor-advance decision a name at the call
// site instead of hiding it inside a try/except-shaped call tree (spec.md §9,
// Design Note "Exceptions for control flow in the source").
package stepoutcome

// Kind is the four-valued result of processing one message or one channel.
type Kind int

const (
	// OK means the unit of work completed; the caller should advance its
	// cursor/watermark past it.
	OK Kind = iota
	// SkipAdvance means the unit of work was intentionally not done (empty
	// text, duplicate lead) but the cursor still advances past it — it will
	// never be retried.
	SkipAdvance
	// SkipRetain means the unit of work failed transiently; the cursor must
	// NOT advance so the next tick retries it.
	SkipRetain
	// Fatal means a programmer-error-class failure; log with context and
	// move on to the next unit of work without poisoning the tick.
	Fatal
)

func (k Kind) String() string {
	switch k {
	case OK:
		return "ok"
	case SkipAdvance:
		return "skip-advance"
	case SkipRetain:
		return "skip-retain"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Outcome pairs a Kind with the error that produced it, if any.
type Outcome struct {
	Kind Kind
	Err  error
}

func Ok() Outcome               { return Outcome{Kind: OK} }
func Advance() Outcome          { return Outcome{Kind: SkipAdvance} }
func Retain(err error) Outcome  { return Outcome{Kind: SkipRetain, Err: err} }
func FatalErr(err error) Outcome { return Outcome{Kind: Fatal, Err: err} }

// ShouldAdvanceCursor reports whether the caller should move its cursor past
// the unit of work that produced this Outcome.
func (o Outcome) ShouldAdvanceCursor() bool {
	return o.Kind == OK || o.Kind == SkipAdvance
}

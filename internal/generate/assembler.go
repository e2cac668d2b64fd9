package generate

import (
	"strings"

	"github.com/cloudwego/eino/schema"
)

// completedCall is one fully assembled tool call, ready for dispatch.
type completedCall struct {
	Name      string
	Arguments string
}

// toolCallAssembler reassembles streamed tool-call fragments. Providers
// emit a tool call as a sequence of chunks sharing a stream index, with
// the arguments JSON split across them; a call is complete when a chunk
// for a different index arrives or the stream ends. Completion order
// therefore matches the model's emission order.
type toolCallAssembler struct {
	pending *pendingCall
}

type pendingCall struct {
	index int
	name  string
	args  strings.Builder
}

// push feeds the tool-call fragments of one stream chunk and returns
// any calls completed by their arrival.
func (a *toolCallAssembler) push(fragments []schema.ToolCall) []completedCall {
	var done []completedCall
	for _, frag := range fragments {
		if frag.Index == nil {
			// Non-streaming providers deliver whole calls.
			done = append(done, a.flush()...)
			done = append(done, completedCall{
				Name:      frag.Function.Name,
				Arguments: frag.Function.Arguments,
			})
			continue
		}

		if a.pending != nil && a.pending.index != *frag.Index {
			done = append(done, a.flush()...)
		}
		if a.pending == nil {
			a.pending = &pendingCall{index: *frag.Index}
		}
		if frag.Function.Name != "" {
			a.pending.name = frag.Function.Name
		}
		a.pending.args.WriteString(frag.Function.Arguments)
	}
	return done
}

// finish flushes the trailing call, if any. Call once at stream end.
func (a *toolCallAssembler) finish() []completedCall {
	return a.flush()
}

func (a *toolCallAssembler) flush() []completedCall {
	if a.pending == nil {
		return nil
	}
	call := completedCall{
		Name:      a.pending.name,
		Arguments: a.pending.args.String(),
	}
	a.pending = nil
	return []completedCall{call}
}

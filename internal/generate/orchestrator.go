package generate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/tobyward/sitegen/internal/events"
	"github.com/tobyward/sitegen/internal/sandbox"
	"github.com/tobyward/sitegen/internal/store"
	"github.com/tobyward/sitegen/internal/tools"
)

// ValidationError rejects a request before any side effect occurs.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// GenerationRecorder persists generation lifecycle state. Satisfied by
// *store.GenerationStore.
type GenerationRecorder interface {
	Create(ctx context.Context, sessionID, prompt string) (*store.Generation, error)
	SetSandbox(ctx context.Context, id, sandboxID, previewURL string) error
	MarkDone(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id, errMsg string) error
}

// Request is one website generation request.
type Request struct {
	Prompt    string
	SessionID string
}

// Orchestrator drives a single generation: provision a sandbox, stream
// the model response, dispatch tool calls in the order the model emits
// them, and stream the combined text to the caller's sink.
type Orchestrator struct {
	chatModel    model.ToolCallingChatModel
	registry     *sandbox.Registry
	hub          events.Sink
	gens         GenerationRecorder
	systemPrompt string
	logger       *slog.Logger
}

// NewOrchestrator wires an Orchestrator. systemPrompt falls back to
// the built-in default when empty.
func NewOrchestrator(chatModel model.ToolCallingChatModel, registry *sandbox.Registry, hub events.Sink, gens GenerationRecorder, systemPrompt string, logger *slog.Logger) *Orchestrator {
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	return &Orchestrator{
		chatModel:    chatModel,
		registry:     registry,
		hub:          hub,
		gens:         gens,
		systemPrompt: systemPrompt,
		logger:       logger,
	}
}

// Run executes one generation request, writing the response body to
// sink. Errors returned before sink.Commit() has been called can still
// become structured error responses; once committed, failures are
// reported in-band on the stream and Run returns nil.
func (o *Orchestrator) Run(ctx context.Context, req Request, sink Sink) error {
	if req.Prompt == "" {
		return &ValidationError{Message: "prompt is required."}
	}

	gen, err := o.gens.Create(ctx, req.SessionID, req.Prompt)
	if err != nil {
		return fmt.Errorf("recording generation: %w", err)
	}

	emitter := events.NewEmitter(req.SessionID, o.hub)

	sb, err := o.registry.Create(ctx, emitter)
	if err != nil {
		o.markFailed(ctx, gen.ID, err)
		return err
	}
	if err := o.gens.SetSandbox(ctx, gen.ID, sb.SandboxID, sb.PreviewURL); err != nil {
		o.logger.Warn("recording sandbox on generation failed", "generation_id", gen.ID, "error", err)
	}

	toolModel, err := o.chatModel.WithTools(tools.Declarations())
	if err != nil {
		o.markFailed(ctx, gen.ID, err)
		return fmt.Errorf("binding tools: %w", err)
	}

	messages := []*schema.Message{
		schema.SystemMessage(o.systemPrompt),
		schema.UserMessage(req.Prompt),
	}

	stream, err := toolModel.Stream(ctx, messages)
	if err != nil {
		o.markFailed(ctx, gen.ID, err)
		return fmt.Errorf("starting model stream: %w", err)
	}
	defer stream.Close()

	sink.Commit()

	dispatcher := tools.NewDispatcher(emitter, o.logger)
	assembler := &toolCallAssembler{}

	var streamErr error
	for {
		chunk, err := stream.Recv()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				streamErr = err
			}
			break
		}
		if chunk.Content != "" {
			sink.Write([]byte(chunk.Content))
		}
		for _, call := range assembler.push(chunk.ToolCalls) {
			o.dispatch(ctx, dispatcher, call, sb, sink)
		}
	}
	for _, call := range assembler.finish() {
		o.dispatch(ctx, dispatcher, call, sb, sink)
	}

	if streamErr != nil {
		fmt.Fprintf(sink, "\n[Tool stream error: %v]\n", streamErr)
		o.markFailed(ctx, gen.ID, streamErr)
		o.logger.Error("model stream failed", "generation_id", gen.ID, "error", streamErr)
		return nil
	}

	o.writeTrailer(sink, sb)

	if err := o.gens.MarkDone(ctx, gen.ID); err != nil {
		o.logger.Warn("marking generation done failed", "generation_id", gen.ID, "error", err)
	}
	if werr := writeErr(sink); werr != nil {
		o.logger.Warn("client disconnected mid-stream, sandbox left running",
			"generation_id", gen.ID, "sandbox_id", sb.SandboxID, "error", werr)
	}
	o.logger.Info("generation complete", "generation_id", gen.ID, "sandbox_id", sb.SandboxID)
	return nil
}

// dispatch runs one assembled tool call and writes its in-band marker.
// Tool failures become error markers on the stream; generation always
// continues so a single bad call cannot strand the sandbox.
func (o *Orchestrator) dispatch(ctx context.Context, d *tools.Dispatcher, call completedCall, sb *sandbox.Handle, sink Sink) {
	result, err := d.Execute(ctx, call.Name, call.Arguments, sb)
	if err != nil {
		fmt.Fprintf(sink, "\n[Tool %s error: %v]\n", call.Name, err)
		return
	}
	fmt.Fprintf(sink, "\n[Tool %s executed: %s]\n", call.Name, result)
}

func (o *Orchestrator) writeTrailer(sink Sink, sb *sandbox.Handle) {
	fmt.Fprintf(sink, "\n\n**Website Preview Available!**\n")
	fmt.Fprintf(sink, "Preview URL: %s\n", sb.PreviewURL)
	fmt.Fprintf(sink, "Sandbox ID: %s\n", sb.SandboxID)
	fmt.Fprintf(sink, "\nYou can now view your website at the preview URL above!\n")
	fmt.Fprintf(sink, "\nTo clean up this sandbox later, use: DELETE /sandbox/%s\n", sb.SandboxID)
}

func (o *Orchestrator) markFailed(ctx context.Context, id string, cause error) {
	if err := o.gens.MarkFailed(ctx, id, cause.Error()); err != nil {
		o.logger.Warn("marking generation failed errored", "generation_id", id, "error", err)
	}
}

package generate

import (
	"testing"

	"github.com/cloudwego/eino/schema"
)

func indexed(index int, name, args string) schema.ToolCall {
	i := index
	return schema.ToolCall{
		Index:    &i,
		Function: schema.FunctionCall{Name: name, Arguments: args},
	}
}

func TestAssemblerJoinsFragmentedArguments(t *testing.T) {
	a := &toolCallAssembler{}

	if got := a.push([]schema.ToolCall{indexed(0, "createFile", `{"location":"src/`)}); len(got) != 0 {
		t.Fatalf("expected no completed calls mid-stream, got %v", got)
	}
	if got := a.push([]schema.ToolCall{indexed(0, "", `App.jsx","content":"hi"}`)}); len(got) != 0 {
		t.Fatalf("expected no completed calls mid-stream, got %v", got)
	}

	done := a.finish()
	if len(done) != 1 {
		t.Fatalf("expected 1 completed call, got %d", len(done))
	}
	if done[0].Name != "createFile" {
		t.Errorf("name = %q, want createFile", done[0].Name)
	}
	want := `{"location":"src/App.jsx","content":"hi"}`
	if done[0].Arguments != want {
		t.Errorf("arguments = %q, want %q", done[0].Arguments, want)
	}
}

func TestAssemblerFlushesOnIndexChange(t *testing.T) {
	a := &toolCallAssembler{}

	a.push([]schema.ToolCall{indexed(0, "createFile", `{"location":"a"}`)})
	done := a.push([]schema.ToolCall{indexed(1, "runCommand", `{"command":"npm install"}`)})
	if len(done) != 1 || done[0].Name != "createFile" {
		t.Fatalf("expected createFile completed on index change, got %v", done)
	}

	done = a.finish()
	if len(done) != 1 || done[0].Name != "runCommand" {
		t.Fatalf("expected runCommand at finish, got %v", done)
	}
	if done[0].Arguments != `{"command":"npm install"}` {
		t.Errorf("arguments = %q", done[0].Arguments)
	}
}

func TestAssemblerPassesWholeCallsThrough(t *testing.T) {
	a := &toolCallAssembler{}

	done := a.push([]schema.ToolCall{{
		Function: schema.FunctionCall{Name: "deleteFile", Arguments: `{"location":"old.txt"}`},
	}})
	if len(done) != 1 || done[0].Name != "deleteFile" {
		t.Fatalf("expected immediate completion for unindexed call, got %v", done)
	}
	if got := a.finish(); len(got) != 0 {
		t.Fatalf("expected no trailing call, got %v", got)
	}
}

func TestAssemblerFlushesPendingBeforeWholeCall(t *testing.T) {
	a := &toolCallAssembler{}

	a.push([]schema.ToolCall{indexed(0, "createFile", `{"location":"a"}`)})
	done := a.push([]schema.ToolCall{{
		Function: schema.FunctionCall{Name: "readFile", Arguments: `{"location":"b"}`},
	}})
	if len(done) != 2 {
		t.Fatalf("expected 2 completed calls, got %d", len(done))
	}
	if done[0].Name != "createFile" || done[1].Name != "readFile" {
		t.Errorf("order = %s, %s; want createFile, readFile", done[0].Name, done[1].Name)
	}
}

func TestAssemblerFinishEmptyIsNoop(t *testing.T) {
	a := &toolCallAssembler{}
	if got := a.finish(); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

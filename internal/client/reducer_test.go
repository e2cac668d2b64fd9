package client

import (
	"strings"
	"testing"
)

const sampleStream = "Building your landing page.\n" +
	"\n" +
	"[Tool createFile executed: File 'src/App.jsx' created successfully.]\n" +
	"[Tool runCommand executed: Command: `npm install`\n" +
	"Adding more styling now.\n" +
	"\n" +
	"**Website Preview Available!**\n" +
	"Preview URL: https://5173-abc123.e2b.dev\n" +
	"Sandbox ID: abc123\n" +
	"\n" +
	"You can now view your website at the preview URL above!\n" +
	"\n" +
	"To clean up this sandbox later, use: DELETE /sandbox/abc123\n"

func feedAll(r *Reducer, stream string, chunkSize int) []string {
	var out []string
	for len(stream) > 0 {
		n := chunkSize
		if n > len(stream) {
			n = len(stream)
		}
		out = append(out, r.Feed(stream[:n])...)
		stream = stream[n:]
	}
	return append(out, r.Finish()...)
}

func TestReducerExtractsMetadataAcrossChunkBoundaries(t *testing.T) {
	// Chunk sizes chosen to split lines, markers, and the URLs
	// themselves at arbitrary byte offsets.
	for _, size := range []int{1, 3, 7, 16, 64, len(sampleStream)} {
		r := &Reducer{}
		lines := feedAll(r, sampleStream, size)

		if r.SandboxID() != "abc123" {
			t.Errorf("chunk size %d: sandbox id = %q, want abc123", size, r.SandboxID())
		}
		if r.PreviewURL() != "https://5173-abc123.e2b.dev" {
			t.Errorf("chunk size %d: preview url = %q", size, r.PreviewURL())
		}

		joined := strings.Join(lines, "\n")
		for _, want := range []string{
			"Building your landing page.",
			"Adding more styling now.",
			"✨ Your website has been generated successfully!",
			"You can now view your website at the preview URL above!",
		} {
			if !strings.Contains(joined, want) {
				t.Errorf("chunk size %d: output missing %q:\n%s", size, want, joined)
			}
		}
	}
}

func TestReducerFiltersInternalLines(t *testing.T) {
	r := &Reducer{}
	lines := feedAll(r, sampleStream, 32)
	joined := strings.Join(lines, "\n")

	for _, internal := range []string{
		"[Tool createFile executed:",
		"DELETE /sandbox/",
		"Sandbox ID:",
		"Preview URL:",
		"**Website Preview Available!**",
	} {
		if strings.Contains(joined, internal) {
			t.Errorf("internal text leaked to display: %q in\n%s", internal, joined)
		}
	}
}

func TestReducerSandboxCommandErrorsAreInternal(t *testing.T) {
	r := &Reducer{}
	lines := feedAll(r, "Error executing command 'npm run dev' in sandbox: timeout\nStill working on it.\n", 8)
	joined := strings.Join(lines, "\n")
	if strings.Contains(joined, "Error executing command") {
		t.Errorf("sandbox command error leaked:\n%s", joined)
	}
	if !strings.Contains(joined, "Still working on it.") {
		t.Errorf("regular line dropped:\n%s", joined)
	}
}

func TestReducerDropsBlankLines(t *testing.T) {
	for _, size := range []int{4, 32, len(sampleStream)} {
		r := &Reducer{}
		for _, line := range feedAll(r, sampleStream, size) {
			if strings.TrimSpace(line) == "" {
				t.Fatalf("chunk size %d: blank line reached display output", size)
			}
		}
	}

	r := &Reducer{}
	if lines := feedAll(r, "\n   \n\t\n", 2); len(lines) != 0 {
		t.Fatalf("whitespace-only stream produced lines: %q", lines)
	}
}

func TestReducerFinishFlushesPartialLine(t *testing.T) {
	r := &Reducer{}
	if lines := r.Feed("no trailing newline"); len(lines) != 0 {
		t.Fatalf("partial line emitted early: %v", lines)
	}
	lines := r.Finish()
	if len(lines) != 1 || lines[0] != "no trailing newline" {
		t.Fatalf("finish = %v", lines)
	}
	if lines := r.Finish(); lines != nil {
		t.Fatalf("second finish emitted %v", lines)
	}
}

func TestReducerToolErrorMarkersAreDisplayed(t *testing.T) {
	// Error markers carry information the user needs; only success
	// markers are housekeeping.
	r := &Reducer{}
	lines := feedAll(r, "[Tool createFile error: write src/App.jsx: disk full]\n", 16)
	if len(lines) != 1 {
		t.Fatalf("lines = %v", lines)
	}
	if !strings.Contains(lines[0], "disk full") {
		t.Errorf("error marker lost: %q", lines[0])
	}
}

package client

import (
	"regexp"
	"strings"
)

var (
	previewURLRe = regexp.MustCompile(`Preview URL: (https://[^\s]+)`)
	sandboxIDRe  = regexp.MustCompile(`Sandbox ID: ([^\s]+)`)
)

// Reducer folds the raw generation stream into displayable lines.
// Chunk boundaries are arbitrary, so it assembles complete lines
// before classifying them: housekeeping lines (tool markers, sandbox
// bookkeeping) are consumed for their metadata and dropped, blank
// lines are dropped, the rest pass through.
type Reducer struct {
	tail       string
	sandboxID  string
	previewURL string
}

// Feed consumes one stream chunk and returns the display lines it
// completed. A line split across chunks is held back until its
// newline arrives.
func (r *Reducer) Feed(chunk string) []string {
	r.tail += chunk

	parts := strings.Split(r.tail, "\n")
	r.tail = parts[len(parts)-1]

	var out []string
	for _, line := range parts[:len(parts)-1] {
		if display, ok := r.reduce(line); ok {
			out = append(out, display)
		}
	}
	return out
}

// Finish flushes the trailing partial line. Call once at stream end.
func (r *Reducer) Finish() []string {
	if r.tail == "" {
		return nil
	}
	line := r.tail
	r.tail = ""
	if display, ok := r.reduce(line); ok {
		return []string{display}
	}
	return nil
}

// SandboxID returns the sandbox id extracted from the stream, if seen.
func (r *Reducer) SandboxID() string { return r.sandboxID }

// PreviewURL returns the preview URL extracted from the stream, if seen.
func (r *Reducer) PreviewURL() string { return r.previewURL }

func (r *Reducer) reduce(line string) (string, bool) {
	if strings.TrimSpace(line) == "" {
		return "", false
	}
	if m := previewURLRe.FindStringSubmatch(line); m != nil {
		r.previewURL = m[1]
	}
	if m := sandboxIDRe.FindStringSubmatch(line); m != nil {
		r.sandboxID = m[1]
	}
	if isInternalLine(line) {
		return "", false
	}
	return cleanLine(line), true
}

// isInternalLine reports whether a line is stream housekeeping rather
// than content meant for the user.
func isInternalLine(line string) bool {
	switch {
	case strings.Contains(line, "[Tool") && strings.Contains(line, "executed:"):
		return true
	case strings.Contains(line, "Error executing command") && strings.Contains(line, "sandbox"):
		return true
	case strings.Contains(line, "DELETE /sandbox/"):
		return true
	case strings.Contains(line, "Sandbox ID:"):
		return true
	case strings.Contains(line, "Preview URL:"):
		return true
	}
	return false
}

func cleanLine(line string) string {
	if strings.Contains(line, "**Website Preview Available!**") {
		return "✨ Your website has been generated successfully!"
	}
	return line
}

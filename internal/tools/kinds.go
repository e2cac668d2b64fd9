package tools

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownTool reports a tool name outside the supported set.
var ErrUnknownTool = errors.New("unknown tool")

// Kind identifies one of the supported tool operations. The set is
// closed; dispatch over it is an exhaustive switch.
type Kind int

const (
	KindCreateFile Kind = iota
	KindUpdateFile
	KindDeleteFile
	KindReadFile
	KindRunCommand
)

// Wire names as declared to the model. These are part of the model
// integration contract and must not change.
const (
	NameCreateFile = "createFile"
	NameUpdateFile = "updateFile"
	NameDeleteFile = "deleteFile"
	NameReadFile   = "readFile"
	NameRunCommand = "runCommand"
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindCreateFile:
		return NameCreateFile
	case KindUpdateFile:
		return NameUpdateFile
	case KindDeleteFile:
		return NameDeleteFile
	case KindReadFile:
		return NameReadFile
	case KindRunCommand:
		return NameRunCommand
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind maps a wire name to its Kind.
func ParseKind(name string) (Kind, error) {
	switch name {
	case NameCreateFile:
		return KindCreateFile, nil
	case NameUpdateFile:
		return KindUpdateFile, nil
	case NameDeleteFile:
		return KindDeleteFile, nil
	case NameReadFile:
		return KindReadFile, nil
	case NameRunCommand:
		return KindRunCommand, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownTool, name)
}

// Input is the structured argument payload of a tool call. Which
// fields are meaningful depends on the kind.
type Input struct {
	Location string `json:"location"`
	Content  string `json:"content"`
	Command  string `json:"command"`
}

// Call is one transient unit of work emitted by the model stream.
type Call struct {
	Kind  Kind
	Input Input
}

// ParseCall validates a tool name and decodes its JSON arguments.
func ParseCall(name string, arguments string) (Call, error) {
	kind, err := ParseKind(name)
	if err != nil {
		return Call{}, err
	}
	var input Input
	if arguments != "" {
		if err := json.Unmarshal([]byte(arguments), &input); err != nil {
			return Call{}, fmt.Errorf("parse %s arguments: %w", name, err)
		}
	}
	return Call{Kind: kind, Input: input}, nil
}

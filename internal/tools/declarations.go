package tools

import (
	"github.com/cloudwego/eino/schema"
)

// Declarations returns the tool set exposed to the model. Field names
// are part of the tool-call contract; renaming them breaks parsing of
// the model's tool calls.
func Declarations() []*schema.ToolInfo {
	return []*schema.ToolInfo{
		{
			Name: NameCreateFile,
			Desc: "Create a file at a certain directory",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"location": {
					Type:     schema.String,
					Desc:     "Relative path to the file (e.g., src/components/Button.tsx)",
					Required: true,
				},
				"content": {
					Type:     schema.String,
					Desc:     "Content of the file",
					Required: true,
				},
			}),
		},
		{
			Name: NameUpdateFile,
			Desc: "Update a file at a certain directory. This overwrites the file.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"location": {
					Type:     schema.String,
					Desc:     "Relative path to the file",
					Required: true,
				},
				"content": {
					Type:     schema.String,
					Desc:     "New content of the file",
					Required: true,
				},
			}),
		},
		{
			Name: NameDeleteFile,
			Desc: "Delete a file or directory at a certain directory",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"location": {
					Type:     schema.String,
					Desc:     "Relative path to the file or directory",
					Required: true,
				},
			}),
		},
		{
			Name: NameReadFile,
			Desc: "Read the content of a file at a certain directory",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"location": {
					Type:     schema.String,
					Desc:     "Relative path to the file",
					Required: true,
				},
			}),
		},
		{
			Name: NameRunCommand,
			Desc: "Execute a shell command in the sandbox and get its output. Use this for `npm install`, `npm run build`, `npm run dev`, or any other shell commands.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"command": {
					Type:     schema.String,
					Desc:     "The shell command to execute",
					Required: true,
				},
			}),
		},
	}
}

package pipe

import "github.com/GriffinCanCode/AgentOS/pipefs/internal/shared/types"

// ServiceID is the registry key of the pipe service.
const ServiceID = "pipe"

func definition() types.Service {
	return types.Service{
		ID:          ServiceID,
		Name:        "Named Pipes",
		Description: "Named pipes that hand data from a writer to blocked readers, one buffer-sized chunk at a time",
		Category:    types.CategoryIPC,
		Capabilities: []string{
			"create_pipe",
			"open_pipe",
			"read_pipe",
			"write_pipe",
			"remove_pipe",
			"list_pipes",
		},
		Tools: []types.Tool{
			{
				ID:          "pipe.create",
				Name:        "Create Pipe",
				Description: "Create an idle named pipe",
				Parameters: []types.Parameter{
					{Name: "name", Type: "string", Description: "Pipe name", Required: true},
					{Name: "size", Type: "number", Description: "Recorded size hint; does not limit transfers", Required: false},
				},
				Returns: "Pipe path",
			},
			{
				ID:          "pipe.open",
				Name:        "Open Pipe",
				Description: "Open a pipe and return a file descriptor",
				Parameters: []types.Parameter{
					{Name: "name", Type: "string", Description: "Pipe name", Required: true},
				},
				Returns: "File descriptor (number)",
			},
			{
				ID:          "pipe.close",
				Name:        "Close Pipe",
				Description: "Release a file descriptor",
				Parameters: []types.Parameter{
					{Name: "fd", Type: "number", Description: "File descriptor", Required: true},
				},
				Returns: "Success",
			},
			{
				ID:          "pipe.remove",
				Name:        "Remove Pipe",
				Description: "Remove a pipe; blocked readers and writers fail",
				Parameters: []types.Parameter{
					{Name: "name", Type: "string", Description: "Pipe name", Required: true},
				},
				Returns: "Success",
			},
			{
				ID:          "pipe.read",
				Name:        "Read from Pipe",
				Description: "Block until exactly size bytes have been read",
				Parameters: []types.Parameter{
					{Name: "fd", Type: "number", Description: "File descriptor (or pass name)", Required: false},
					{Name: "name", Type: "string", Description: "Pipe name (or pass fd)", Required: false},
					{Name: "size", Type: "number", Description: "Bytes to read", Required: true},
					{Name: "encoding", Type: "string", Description: "\"text\" (default) or \"base64\"", Required: false},
					{Name: "timeout_ms", Type: "number", Description: "Give up if no writer arrives in time", Required: false},
				},
				Returns: "Data read (string) and byte count",
			},
			{
				ID:          "pipe.write",
				Name:        "Write to Pipe",
				Description: "Deliver data as one transaction to waiting readers",
				Parameters: []types.Parameter{
					{Name: "fd", Type: "number", Description: "File descriptor (or pass name)", Required: false},
					{Name: "name", Type: "string", Description: "Pipe name (or pass fd)", Required: false},
					{Name: "data", Type: "string", Description: "Data to write", Required: true},
					{Name: "encoding", Type: "string", Description: "\"text\" (default) or \"base64\"", Required: false},
					{Name: "timeout_ms", Type: "number", Description: "Give up if no reader arrives in time", Required: false},
				},
				Returns: "Number of bytes written",
			},
			{
				ID:          "pipe.list",
				Name:        "List Pipes",
				Description: "List pipes, optionally filtered by a glob",
				Parameters: []types.Parameter{
					{Name: "match", Type: "string", Description: "Glob pattern, e.g. jobs.*", Required: false},
				},
				Returns: "Array of pipe descriptions",
			},
			{
				ID:          "pipe.stats",
				Name:        "Pipe Statistics",
				Description: "Describe one pipe, or the whole volume when name is omitted",
				Parameters: []types.Parameter{
					{Name: "name", Type: "string", Description: "Pipe name", Required: false},
				},
				Returns: "Pipe or volume statistics",
			},
		},
	}
}

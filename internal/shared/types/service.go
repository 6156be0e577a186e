package types

// Category groups services.
type Category string

const (
	CategoryIPC        Category = "ipc"
	CategoryFilesystem Category = "filesystem"
	CategorySystem     Category = "system"
)

// Service describes a provider and the tools it exposes.
type Service struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Category     Category `json:"category"`
	Capabilities []string `json:"capabilities"`
	Tools        []Tool   `json:"tools"`
}

// Tool is one callable operation of a service.
type Tool struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  []Parameter `json:"parameters"`
	Returns     string      `json:"returns"`
}

// Parameter describes a tool argument.
type Parameter struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// Context carries the caller's identity into a tool call.
type Context struct {
	RequestID string `json:"request_id,omitempty"`
	ClientID  string `json:"client_id,omitempty"`
}

// Result is the outcome of a tool call. Code carries the numeric
// filesystem result when the call touched a volume.
type Result struct {
	Success bool                   `json:"success"`
	Code    int                    `json:"code"`
	Data    map[string]interface{} `json:"data,omitempty"`
	Error   *string                `json:"error,omitempty"`
}

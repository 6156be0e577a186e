package types

// ExecuteRequest is the body of POST /services/execute.
type ExecuteRequest struct {
	ToolID string                 `json:"tool_id" binding:"required"`
	Params map[string]interface{} `json:"params"`
}

// CreatePipeRequest is the body of POST /pipes.
type CreatePipeRequest struct {
	Name string `json:"name" binding:"required"`
	Size int    `json:"size"`
}

// FSInfo summarises the pipe volume.
type FSInfo struct {
	Volume     string `json:"volume"`
	Capacity   int    `json:"capacity"`
	Free       int    `json:"free"`
	Used       int    `json:"used"`
	BufferSize int    `json:"buffer_size"`
	OpenFiles  int    `json:"open_files"`
}

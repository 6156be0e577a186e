package grpc

import (
	"fmt"

	"github.com/bytedance/sonic"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/GriffinCanCode/AgentOS/pipefs/internal/shared/types"
)

// toStruct converts any JSON-encodable value into a Struct.
func toStruct(v interface{}) (*structpb.Struct, error) {
	raw, err := sonic.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode: %w", err)
	}
	var m map[string]interface{}
	if err := sonic.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("failed to encode: %w", err)
	}
	return structpb.NewStruct(m)
}

// fromStruct decodes s into out through its JSON form.
func fromStruct(s *structpb.Struct, out interface{}) error {
	raw, err := sonic.Marshal(s.AsMap())
	if err != nil {
		return fmt.Errorf("failed to decode: %w", err)
	}
	if err := sonic.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode: %w", err)
	}
	return nil
}

type request struct {
	ToolID string                 `json:"tool_id"`
	Params map[string]interface{} `json:"params,omitempty"`
}

func decodeRequest(s *structpb.Struct) (request, error) {
	var req request
	if err := fromStruct(s, &req); err != nil {
		return request{}, err
	}
	return req, nil
}

func decodeResult(s *structpb.Struct) (*types.Result, error) {
	var res types.Result
	if err := fromStruct(s, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

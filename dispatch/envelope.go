package dispatch

import (
	"encoding/json"
	"fmt"

	"github.com/mohitkumar/tokenflow/model"
	"github.com/mohitkumar/tokenflow/util"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Encode serializes a request as a protobuf Struct. Variables travel in their
// JSON shape: numbers come back as float64 and typed slices or maps such as
// []string come back as []any and map[string]any.
func Encode(req *model.DispatchRequest) ([]byte, error) {
	variables, err := jsonShape(req.Variables)
	if err != nil {
		return nil, fmt.Errorf("encode dispatch request: %w", err)
	}
	st, err := structpb.NewStruct(map[string]any{
		"targetWorkerId":    req.TargetWorkerId,
		"implementationKey": req.ImplementationKey,
		"instanceRef":       req.InstanceRef,
		"attributes":        util.StringMapToAny(req.Attributes),
		"variables":         variables,
	})
	if err != nil {
		return nil, fmt.Errorf("encode dispatch request: %w", err)
	}
	return proto.Marshal(st)
}

func Decode(data []byte) (*model.DispatchRequest, error) {
	st := &structpb.Struct{}
	if err := proto.Unmarshal(data, st); err != nil {
		return nil, fmt.Errorf("decode dispatch request: %w", err)
	}
	m := st.AsMap()
	req := &model.DispatchRequest{
		TargetWorkerId:    stringField(m, "targetWorkerId"),
		ImplementationKey: stringField(m, "implementationKey"),
		InstanceRef:       stringField(m, "instanceRef"),
		Variables:         map[string]any{},
	}
	if attrs, ok := m["attributes"].(map[string]any); ok {
		req.Attributes = util.AnyMapToString(attrs)
	}
	if vars, ok := m["variables"].(map[string]any); ok {
		req.Variables = vars
	}
	return req, nil
}

// jsonShape rewrites variables into the value kinds structpb accepts.
func jsonShape(variables map[string]any) (map[string]any, error) {
	out := map[string]any{}
	if len(variables) == 0 {
		return out, nil
	}
	data, err := json.Marshal(variables)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

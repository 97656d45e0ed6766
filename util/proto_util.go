package util

import (
	"google.golang.org/protobuf/types/known/structpb"
)

// ConvertToProto drops values structpb cannot represent.
func ConvertToProto(data map[string]any) map[string]*structpb.Value {
	out := make(map[string]*structpb.Value)
	for k, v := range data {
		if val, err := structpb.NewValue(v); err == nil {
			out[k] = val
		}
	}
	return out
}

func ConvertFromProto(data map[string]*structpb.Value) map[string]any {
	out := make(map[string]any)
	for k, v := range data {
		out[k] = v.AsInterface()
	}
	return out
}

func StringMapToAny(in map[string]string) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func AnyMapToString(in map[string]any) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

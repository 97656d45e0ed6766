package worker

import (
	"context"

	"github.com/mohitkumar/tokenflow/dispatch"
	"github.com/mohitkumar/tokenflow/model"
)

type Worker interface {
	Execute(map[string]any) (map[string]any, error)
	GetName() string
}

// Handler adapts w to a dispatch handler. The returned map is merged into the
// request variables.
func Handler(w Worker) dispatch.Handler {
	return func(ctx context.Context, req *model.DispatchRequest) error {
		input := make(map[string]any, len(req.Variables)+len(req.Attributes))
		for k, v := range req.Variables {
			input[k] = v
		}
		for k, v := range req.Attributes {
			if _, ok := input[k]; !ok {
				input[k] = v
			}
		}
		out, err := w.Execute(input)
		if err != nil {
			return err
		}
		for k, v := range out {
			req.Variables[k] = v
		}
		return nil
	}
}

// Register adds w to registry under its name.
func Register(registry *dispatch.Registry, w Worker) error {
	return registry.Register(w.GetName(), Handler(w))
}

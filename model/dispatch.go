package model

// DispatchRequest is call scoped. Variables is shared with the caller and local
// handlers mutate it in place.
type DispatchRequest struct {
	TargetWorkerId    string            `json:"targetWorkerId,omitempty"`
	ImplementationKey string            `json:"implementationKey"`
	InstanceRef       string            `json:"instanceRef,omitempty"`
	Attributes        map[string]string `json:"attributes,omitempty"`
	Variables         map[string]any    `json:"variables,omitempty"`
}

// RoutingKey orders requests that must be handled by the same worker partition.
func (r *DispatchRequest) RoutingKey() string {
	if key, ok := r.Attributes["routingKey"]; ok && key != "" {
		return key
	}
	if r.InstanceRef != "" {
		return r.InstanceRef
	}
	return r.ImplementationKey
}

package handlers

import (
	"context"
	"testing"

	"github.com/mohitkumar/tokenflow/model"
	"github.com/stretchr/testify/require"
)

func TestScript(t *testing.T) {
	req := &model.DispatchRequest{
		ImplementationKey: SCRIPT,
		Attributes: map[string]string{
			"script":         "$.total = $.price * $.qty; $.total > 10",
			"resultVariable": "expensive",
		},
		Variables: map[string]any{"price": 4, "qty": 3},
	}
	require.NoError(t, Script(context.Background(), req))
	require.EqualValues(t, 12, req.Variables["total"])
	require.Equal(t, true, req.Variables["expensive"])
}

func TestScriptErrors(t *testing.T) {
	for scenario, attrs := range map[string]map[string]string{
		"empty":  {},
		"syntax": {"script": "$.a = ;"},
		"throws": {"script": "throw new Error('boom')"},
	} {
		t.Run(scenario, func(t *testing.T) {
			err := Script(context.Background(), &model.DispatchRequest{Attributes: attrs, Variables: map[string]any{}})
			require.Error(t, err)
		})
	}
}

func TestScriptInterruptedByContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Script(ctx, &model.DispatchRequest{Attributes: map[string]string{"script": "while(true){}"}, Variables: map[string]any{}})
	require.Error(t, err)
}

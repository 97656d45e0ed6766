package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dop251/goja"
	"github.com/mitchellh/mapstructure"
	"github.com/mohitkumar/tokenflow/logger"
	"github.com/mohitkumar/tokenflow/model"
	"github.com/mohitkumar/tokenflow/util"
	"go.uber.org/zap"
)

const SCRIPT = "script"

type ScriptConfig struct {
	Script         string `mapstructure:"script"`
	ResultVariable string `mapstructure:"resultVariable"`
}

// Script runs the javascript in the script attribute. Variables are exposed as
// $ and whatever the script leaves in $ is written back. The completion value
// is stored under resultVariable when set.
func Script(ctx context.Context, req *model.DispatchRequest) error {
	var conf ScriptConfig
	if err := mapstructure.Decode(util.StringMapToAny(req.Attributes), &conf); err != nil {
		return fmt.Errorf("invalid script configuration: %w", err)
	}
	if len(conf.Script) == 0 {
		return fmt.Errorf("script can not be empty")
	}
	logger.Info("running script", zap.String("instance", req.InstanceRef))
	data, err := json.Marshal(req.Variables)
	if err != nil {
		return err
	}
	vm := goja.New()
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			vm.Interrupt(ctx.Err())
		case <-stop:
		}
	}()
	if _, err := vm.RunString(fmt.Sprintf("var $ = %s;\n", data)); err != nil {
		return fmt.Errorf("error executing javascript %w", err)
	}
	completion, err := vm.RunString(conf.Script)
	if err != nil {
		return fmt.Errorf("error executing javascript %w", err)
	}
	val, err := vm.RunString("$")
	if err != nil {
		return fmt.Errorf("error executing javascript %w", err)
	}
	res, err := json.Marshal(val.Export())
	if err != nil {
		return err
	}
	var output map[string]any
	if err := json.Unmarshal(res, &output); err != nil {
		return fmt.Errorf("script must leave an object in $: %w", err)
	}
	for k, v := range output {
		req.Variables[k] = v
	}
	if conf.ResultVariable != "" && completion != nil && !goja.IsUndefined(completion) {
		req.Variables[conf.ResultVariable] = completion.Export()
	}
	return nil
}

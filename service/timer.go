package service

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/mohitkumar/tokenflow/dispatch"
	"github.com/mohitkumar/tokenflow/logger"
	"github.com/mohitkumar/tokenflow/model"
	"github.com/sosodev/duration"
	"go.uber.org/zap"
)

const TIMER_FIRED = "timer-fired"

// ParseDuration reads ISO 8601 durations (PnYnMnWnDTnHnMnS). Years and months
// use their average length.
func ParseDuration(s string) (time.Duration, error) {
	if s == "P" || s == "PT" {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	d, err := duration.Parse(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if d.Negative {
		return 0, fmt.Errorf("negative duration %q", s)
	}
	return d.ToTimeDuration(), nil
}

// TimerRequest maps a BPMN timer definition onto a job request. Cycles are
// either cron specs or ISO repeating intervals "R/<duration>".
func TimerRequest(timer model.TimerDefinition, now time.Time) (model.JobScheduleRequest, error) {
	req := model.JobScheduleRequest{Kind: model.JOB_KIND_TIMER}
	switch {
	case timer.Duration != "":
		d, err := ParseDuration(timer.Duration)
		if err != nil {
			return req, err
		}
		req.DelaySeconds = int(d.Round(time.Second) / time.Second)
	case timer.Date != "":
		at, err := time.Parse(time.RFC3339, timer.Date)
		if err != nil {
			return req, fmt.Errorf("invalid timer date %q: %w", timer.Date, err)
		}
		if delay := at.Sub(now); delay > 0 {
			req.DelaySeconds = int(delay.Round(time.Second) / time.Second)
		}
	case timer.Cycle != "":
		cycle, err := cronCycle(timer.Cycle)
		if err != nil {
			return req, err
		}
		req.Cycle = cycle
	default:
		return req, fmt.Errorf("empty timer definition")
	}
	return req, nil
}

var isoRepeat = regexp.MustCompile(`^R\d*/(P.*)$`)

func cronCycle(cycle string) (string, error) {
	m := isoRepeat.FindStringSubmatch(cycle)
	if m == nil {
		return cycle, nil
	}
	d, err := ParseDuration(m[1])
	if err != nil {
		return "", err
	}
	if d <= 0 {
		return "", fmt.Errorf("invalid cycle %q", cycle)
	}
	return "@every " + d.String(), nil
}

// TimerFired is the handler run when a timer job comes due. It appends the
// firing to the instance trace.
func (s *ProcessService) TimerFired(ctx context.Context, req *model.DispatchRequest) error {
	rec, err := s.instances.GetInstance(ctx, req.InstanceRef)
	if err != nil {
		return err
	}
	eventId := req.Attributes["eventId"]
	rec.Trace = append(rec.Trace, "TimerFired: "+eventId)
	rec.UpdatedAt = s.now()
	logger.Info("timer fired", zap.String("instance", rec.Id), zap.String("event", eventId))
	return s.instances.SaveInstance(ctx, rec)
}

// RegisterHandlers adds the service's job handlers to registry.
func (s *ProcessService) RegisterHandlers(registry *dispatch.Registry) error {
	return registry.Register(TIMER_FIRED, s.TimerFired)
}

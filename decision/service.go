package decision

import (
	"fmt"

	"github.com/mohitkumar/tokenflow/logger"
	"github.com/mohitkumar/tokenflow/model"
	"go.uber.org/zap"
)

type TableSource interface {
	GetDecisionTable(key string) (*model.DecisionTable, error)
}

// Service evaluates decisions by key against a TableSource.
type Service struct {
	source    TableSource
	evaluator *Evaluator
}

func NewService(source TableSource, evaluator *Evaluator) *Service {
	return &Service{
		source:    source,
		evaluator: evaluator,
	}
}

func (s *Service) Decide(key string, inputs map[string]any) (Result, error) {
	table, err := s.source.GetDecisionTable(key)
	if err != nil {
		return nil, fmt.Errorf("decision %s: %w", key, err)
	}
	res, err := s.evaluator.Evaluate(table, inputs)
	if err != nil {
		logger.Error("error evaluating decision", zap.String("decision", key), zap.Error(err))
		return nil, err
	}
	logger.Debug("decision evaluated", zap.String("decision", key), zap.String("hitPolicy", string(table.HitPolicy)), zap.Any("result", res))
	return res, nil
}

// MapSource serves tables kept in memory, keyed by table key.
type MapSource map[string]*model.DecisionTable

func (m MapSource) GetDecisionTable(key string) (*model.DecisionTable, error) {
	t, ok := m[key]
	if !ok {
		return nil, fmt.Errorf("decision table %s not found", key)
	}
	return t, nil
}

package metadata

import (
	"context"
	"fmt"
	"time"

	"github.com/mohitkumar/tokenflow/bpmn"
	"github.com/mohitkumar/tokenflow/decision"
	"github.com/mohitkumar/tokenflow/dmn"
	"github.com/mohitkumar/tokenflow/logger"
	"github.com/mohitkumar/tokenflow/model"
	"github.com/mohitkumar/tokenflow/persistence"
	c "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const (
	processPrefix  = "process:"
	decisionPrefix = "decision:"
)

type MetadataService interface {
	DeployProcess(ctx context.Context, source []byte) (*model.ProcessGraph, error)
	GetProcess(ctx context.Context, id string) (*model.ProcessGraph, error)
	ListProcesses(ctx context.Context) ([]string, error)
	DeployDecisions(ctx context.Context, source []byte) ([]*model.DecisionTable, error)
	GetDecisionTable(key string) (*model.DecisionTable, error)
	GetMetadataStorage() persistence.DefinitionStore
}

var _ MetadataService = new(MetadataServiceImpl)
var _ decision.TableSource = new(MetadataServiceImpl)

// MetadataServiceImpl validates and stores BPMN and DMN documents and keeps
// the parsed forms in an expiring cache.
type MetadataServiceImpl struct {
	storage persistence.DefinitionStore
	cache   *c.Cache
}

func NewMetadataService(storage persistence.DefinitionStore, ttl time.Duration) *MetadataServiceImpl {
	if ttl <= 0 {
		ttl = c.NoExpiration
	}
	return &MetadataServiceImpl{
		storage: storage,
		cache:   c.New(ttl, 10*time.Minute),
	}
}

func (s *MetadataServiceImpl) DeployProcess(ctx context.Context, source []byte) (*model.ProcessGraph, error) {
	graph, err := bpmn.Build(source)
	if err != nil {
		return nil, err
	}
	if err := ValidateProcess(graph); err != nil {
		return nil, err
	}
	if err := s.storage.SaveProcess(ctx, graph.Id, source); err != nil {
		return nil, err
	}
	s.cache.SetDefault(processPrefix+graph.Id, graph)
	logger.Info("process deployed", zap.String("process", graph.Id), zap.Int("flows", len(graph.Flows)))
	return graph, nil
}

func (s *MetadataServiceImpl) GetProcess(ctx context.Context, id string) (*model.ProcessGraph, error) {
	if g, found := s.cache.Get(processPrefix + id); found {
		return g.(*model.ProcessGraph), nil
	}
	source, err := s.storage.GetProcess(ctx, id)
	if err != nil {
		return nil, err
	}
	graph, err := bpmn.Build(source)
	if err != nil {
		return nil, err
	}
	s.cache.SetDefault(processPrefix+id, graph)
	return graph, nil
}

func (s *MetadataServiceImpl) ListProcesses(ctx context.Context) ([]string, error) {
	return s.storage.ListProcesses(ctx)
}

// DeployDecisions stores source under the key of every decision table it
// contains.
func (s *MetadataServiceImpl) DeployDecisions(ctx context.Context, source []byte) ([]*model.DecisionTable, error) {
	tables, err := dmn.Build(source)
	if err != nil {
		return nil, err
	}
	for _, t := range tables {
		if err := s.storage.SaveDecision(ctx, t.Key, source); err != nil {
			return nil, err
		}
		s.cache.SetDefault(decisionPrefix+t.Key, t)
		logger.Info("decision deployed", zap.String("decision", t.Key), zap.String("hitPolicy", string(t.HitPolicy)), zap.Int("rules", len(t.Rules)))
	}
	return tables, nil
}

func (s *MetadataServiceImpl) GetDecisionTable(key string) (*model.DecisionTable, error) {
	if t, found := s.cache.Get(decisionPrefix + key); found {
		return t.(*model.DecisionTable), nil
	}
	source, err := s.storage.GetDecision(context.Background(), key)
	if err != nil {
		return nil, err
	}
	tables, err := dmn.Build(source)
	if err != nil {
		return nil, err
	}
	var found *model.DecisionTable
	for _, t := range tables {
		s.cache.SetDefault(decisionPrefix+t.Key, t)
		if t.Key == key {
			found = t
		}
	}
	if found == nil {
		return nil, fmt.Errorf("decision %s: %w", key, persistence.ErrNotFound)
	}
	return found, nil
}

func (s *MetadataServiceImpl) GetMetadataStorage() persistence.DefinitionStore {
	return s.storage
}

// ValidateProcess rejects graphs that can never be walked and graphs whose
// node ids collide across element kinds.
func ValidateProcess(graph *model.ProcessGraph) error {
	if graph.Id == "" {
		return fmt.Errorf("%w: process has no id", model.ErrMalformedGraph)
	}
	if len(graph.StartEvents()) == 0 {
		return fmt.Errorf("%w: process %s has no start event", model.ErrMalformedGraph, graph.Id)
	}
	seen := make(map[string]bool)
	var ids []string
	for _, ev := range graph.Events {
		ids = append(ids, ev.Id)
	}
	for _, t := range graph.Tasks {
		ids = append(ids, t.Id)
	}
	for _, gw := range graph.Gateways {
		ids = append(ids, gw.Id)
	}
	for _, sp := range graph.Subprocesses {
		ids = append(ids, sp.Id)
	}
	for _, id := range ids {
		if seen[id] {
			return fmt.Errorf("%w: node id %s is duplicate", model.ErrMalformedGraph, id)
		}
		seen[id] = true
	}
	return nil
}

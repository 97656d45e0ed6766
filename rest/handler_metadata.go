package rest

import (
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/mohitkumar/tokenflow/logger"
)

const maxDocumentSize = 4 << 20

func readDocument(r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	return io.ReadAll(io.LimitReader(r.Body, maxDocumentSize))
}

func (s *Server) HandleDeployProcess(w http.ResponseWriter, r *http.Request) {
	source, err := readDocument(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	graph, err := s.metadataService.DeployProcess(r.Context(), source)
	if err != nil {
		logger.Error("error deploying process", zap.Error(err))
		respondWithFailure(w, err)
		return
	}
	respondOK(w, map[string]any{"processId": graph.Id})
}

func (s *Server) HandleListProcesses(w http.ResponseWriter, r *http.Request) {
	ids, err := s.metadataService.ListProcesses(r.Context())
	if err != nil {
		respondWithFailure(w, err)
		return
	}
	respondOK(w, map[string]any{"processes": ids})
}

func (s *Server) HandleGetProcess(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	graph, err := s.metadataService.GetProcess(r.Context(), id)
	if err != nil {
		logger.Info("process does not exist", zap.String("process", id))
		respondWithFailure(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, graph)
}

func (s *Server) HandleDeployDecision(w http.ResponseWriter, r *http.Request) {
	source, err := readDocument(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	tables, err := s.metadataService.DeployDecisions(r.Context(), source)
	if err != nil {
		logger.Error("error deploying decisions", zap.Error(err))
		respondWithFailure(w, err)
		return
	}
	keys := make([]string, 0, len(tables))
	for _, t := range tables {
		keys = append(keys, t.Key)
	}
	respondOK(w, map[string]any{"decisions": keys})
}

func (s *Server) HandleGetDecision(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	table, err := s.metadataService.GetDecisionTable(key)
	if err != nil {
		respondWithFailure(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, table)
}

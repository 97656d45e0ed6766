package rest

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/mohitkumar/tokenflow/logger"
	"github.com/mohitkumar/tokenflow/model"
	"go.uber.org/zap"
)

func (s *Server) HandleStartProcess(w http.ResponseWriter, r *http.Request) {
	var runReq model.ProcessStartRequest
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&runReq); err != nil && !errors.Is(err, io.EOF) {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	runReq.ProcessId = mux.Vars(r)["id"]
	rec, err := s.processService.Start(r.Context(), runReq)
	if err != nil {
		logger.Error("error starting process", zap.String("process", runReq.ProcessId), zap.Error(err))
		respondWithFailure(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, rec)
}

func (s *Server) HandleGetInstance(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	rec, err := s.processService.GetInstance(r.Context(), id)
	if err != nil {
		respondWithFailure(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, rec)
}

func (s *Server) HandleEvaluateDecision(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	var inputs map[string]any
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&inputs); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.decisionService.Decide(key, inputs)
	if err != nil {
		respondWithFailure(w, err)
		return
	}
	respondOK(w, res)
}

func (s *Server) HandleScheduleJob(w http.ResponseWriter, r *http.Request) {
	var req model.JobScheduleRequest
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	job, err := s.scheduler.Schedule(r.Context(), req)
	if err != nil {
		logger.Error("error scheduling job", zap.String("instance", req.InstanceRef), zap.Error(err))
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, job)
}

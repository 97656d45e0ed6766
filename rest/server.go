package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/mohitkumar/tokenflow/decision"
	"github.com/mohitkumar/tokenflow/logger"
	"github.com/mohitkumar/tokenflow/metadata"
	"github.com/mohitkumar/tokenflow/model"
	"github.com/mohitkumar/tokenflow/persistence"
	"github.com/mohitkumar/tokenflow/scheduler"
	"github.com/mohitkumar/tokenflow/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Server struct {
	http.Server
	Port            int
	metadataService metadata.MetadataService
	processService  *service.ProcessService
	decisionService *decision.Service
	scheduler       *scheduler.Scheduler
}

func NewServer(httpPort int, metadataService metadata.MetadataService, processService *service.ProcessService,
	decisionService *decision.Service, sched *scheduler.Scheduler, gatherer prometheus.Gatherer) (*Server, error) {

	s := &Server{
		Server: http.Server{
			Addr:        fmt.Sprintf(":%d", httpPort),
			IdleTimeout: 2 * time.Second,
		},
		metadataService: metadataService,
		processService:  processService,
		decisionService: decisionService,
		scheduler:       sched,
		Port:            httpPort,
	}

	router := mux.NewRouter()
	router.HandleFunc("/process", s.HandleDeployProcess).Methods(http.MethodPost)
	router.HandleFunc("/process", s.HandleListProcesses).Methods(http.MethodGet)
	router.HandleFunc("/process/{id}", s.HandleGetProcess).Methods(http.MethodGet)
	router.HandleFunc("/process/{id}/start", s.HandleStartProcess).Methods(http.MethodPost)
	router.HandleFunc("/instance/{id}", s.HandleGetInstance).Methods(http.MethodGet)

	router.HandleFunc("/decision", s.HandleDeployDecision).Methods(http.MethodPost)
	router.HandleFunc("/decision/{key}", s.HandleGetDecision).Methods(http.MethodGet)
	router.HandleFunc("/decision/{key}/evaluate", s.HandleEvaluateDecision).Methods(http.MethodPost)

	router.HandleFunc("/job", s.HandleScheduleJob).Methods(http.MethodPost)

	if gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	router.Use(loggingMiddleware)
	s.Handler = router
	return s, nil
}

func (s *Server) Start() error {
	logger.Info("starting http server on", zap.Int("port", s.Port))
	if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop() error {
	logger.Info("stopping http server")
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	err := s.Shutdown(ctx)
	if err != nil {
		logger.Error("error shutting down http server", zap.Error(err))
	}
	return err
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Info(r.RequestURI, zap.String("method", r.Method))
		next.ServeHTTP(w, r)
	})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondOK(w http.ResponseWriter, message map[string]any) {
	respondWithJSON(w, http.StatusOK, message)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithFailure maps err onto a status code.
func respondWithFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrMalformedGraph), errors.Is(err, model.ErrMalformedDecisionTable):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, persistence.ErrNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, decision.ErrRuleConflict):
		respondWithError(w, http.StatusConflict, err.Error())
	default:
		respondWithError(w, http.StatusInternalServerError, err.Error())
	}
}

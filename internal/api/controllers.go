package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"binary-core/internal/session"
	"binary-core/internal/strategy"
	"binary-core/pkg/db"
)

func (s *Server) startSession(c *gin.Context) {
	var params session.Params
	if err := c.BindJSON(&params); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_PAYLOAD", "invalid request payload")
		return
	}
	// The token's account claim wins over whatever the body says.
	params.AccountID = CurrentAccountID(c)

	id, err := s.Sessions.Start(c.Request.Context(), params)
	if err != nil {
		switch {
		case session.IsValidation(err):
			respondError(c, http.StatusBadRequest, "INVALID_PARAMS", err.Error())
		case errors.Is(err, session.ErrSessionAlreadyRunning):
			respondError(c, http.StatusConflict, "SESSION_RUNNING", err.Error())
		default:
			s.Log.WithError(err).Error("session start failed")
			respondError(c, http.StatusBadGateway, "START_FAILED", err.Error())
		}
		return
	}
	c.JSON(http.StatusCreated, gin.H{"session_id": id})
}

func (s *Server) listSessions(c *gin.Context) {
	account := CurrentAccountID(c)
	all := s.Sessions.List()
	own := make([]session.Status, 0, len(all))
	for _, st := range all {
		if st.AccountID == account {
			own = append(own, st)
		}
	}
	c.JSON(http.StatusOK, gin.H{"sessions": own})
}

// ownSession resolves a session id to an orchestrator owned by the caller.
func (s *Server) ownSession(c *gin.Context) (*session.Orchestrator, bool) {
	orch, err := s.Sessions.Get(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusNotFound, "SESSION_NOT_FOUND", "session not found")
		return nil, false
	}
	if orch.Status().AccountID != CurrentAccountID(c) {
		respondError(c, http.StatusForbidden, "FORBIDDEN", "session belongs to another account")
		return nil, false
	}
	return orch, true
}

func (s *Server) getSession(c *gin.Context) {
	orch, ok := s.ownSession(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, orch.Status())
}

func (s *Server) getSessionRuns(c *gin.Context) {
	orch, ok := s.ownSession(c)
	if !ok {
		return
	}
	runs, err := s.DB.ListRuns(c.Request.Context(), orch.ID())
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		s.Log.WithError(err).Error("list runs failed")
		respondError(c, http.StatusInternalServerError, "QUERY_FAILED", "could not load runs")
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (s *Server) stopSession(c *gin.Context) {
	orch, ok := s.ownSession(c)
	if !ok {
		return
	}
	reason := c.Query("reason")
	if err := s.Sessions.Stop(orch.ID(), reason); err != nil {
		respondError(c, http.StatusNotFound, "SESSION_NOT_FOUND", "session not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"stopped": orch.ID()})
}

func (s *Server) updateSessionConfig(c *gin.Context) {
	orch, ok := s.ownSession(c)
	if !ok {
		return
	}
	var cfg strategy.Config
	if err := c.BindJSON(&cfg); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_PAYLOAD", "invalid request payload")
		return
	}
	if err := orch.ReplaceStrategyConfig(cfg); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_CONFIG", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": orch.ID()})
}

func (s *Server) pauseSession(c *gin.Context) {
	orch, ok := s.ownSession(c)
	if !ok {
		return
	}
	orch.Pause()
	c.JSON(http.StatusOK, gin.H{"paused": orch.ID()})
}

func (s *Server) resumeSession(c *gin.Context) {
	orch, ok := s.ownSession(c)
	if !ok {
		return
	}
	orch.Resume()
	c.JSON(http.StatusOK, gin.H{"resumed": orch.ID()})
}

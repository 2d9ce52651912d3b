package api

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// handleListRuns returns every persisted run's summary, most recent first.
func (s *Server) handleListRuns(c *gin.Context) {
	runs, err := s.store.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list runs: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// handleGetRun returns one run's metadata.
func (s *Server) handleGetRun(c *gin.Context) {
	id := c.Param("id")
	run, err := s.store.Get(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get run: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, run)
}

// handleGetEquityCurve returns a run's full daily equity curve.
func (s *Server) handleGetEquityCurve(c *gin.Context) {
	id := c.Param("id")
	points, err := s.store.EquityCurve(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get equity curve: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"run_id": id, "points": points})
}

// handleGetTransactions returns a run's full transaction log.
func (s *Server) handleGetTransactions(c *gin.Context) {
	id := c.Param("id")
	txns, err := s.store.Transactions(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get transactions: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"run_id": id, "transactions": txns})
}

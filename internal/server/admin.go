package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prelimth/examgate/internal/exam"
)

type sessionToggleRequest struct {
	SessionTime string `json:"session_time"`
	ExamDate    string `json:"exam_date"`
}

func (s *Server) CloseSession(c *gin.Context) {
	s.setSessionClosed(c, true)
}

func (s *Server) ReopenSession(c *gin.Context) {
	s.setSessionClosed(c, false)
}

func (s *Server) setSessionClosed(c *gin.Context, closed bool) {
	var req sessionToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request"))
		return
	}

	sessionTime, err := exam.ParseSessionTime(req.SessionTime)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	examDate, err := exam.ParseExamDate(req.ExamDate)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	status, err := s.registrationSvc.SetSessionClosed(c.Request.Context(), sessionTime, examDate, closed)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

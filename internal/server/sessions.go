package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prelimth/examgate/internal/exam"
)

func (s *Server) GetSessionStatus(c *gin.Context) {
	sessionTime, err := exam.ParseSessionTime(c.Query("session_time"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	examDate, err := exam.ParseExamDate(c.Query("exam_date"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	status, err := s.registrationSvc.GetStatus(c.Request.Context(), sessionTime, examDate)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

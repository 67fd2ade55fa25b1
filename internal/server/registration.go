package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prelimth/examgate/internal/exam"
	registrationdomain "github.com/prelimth/examgate/internal/registration/domain"
	"gorm.io/datatypes"
)

type createRegistrationRequest struct {
	UserID      string            `json:"user_id"`
	SessionTime string            `json:"session_time"`
	ExamDate    string            `json:"exam_date"`
	PackageType string            `json:"package_type"`
	Subject     string            `json:"subject"`
	Metadata    datatypes.JSONMap `json:"metadata"`
}

func (s *Server) CreateRegistration(c *gin.Context) {
	var req createRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request"))
		return
	}

	userID, err := snowflake.ParseString(strings.TrimSpace(req.UserID))
	if err != nil {
		AbortWithError(c, newValidationError("user_id", "invalid_user_id", "invalid value"))
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

	pkg, err := exam.ParsePackageRequest(req.PackageType, req.Subject)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	admitted, err := s.registrationSvc.Admit(c.Request.Context(), registrationdomain.AdmitRequest{
		UserID:      userID,
		SessionTime: sessionTime,
		ExamDate:    examDate,
		Package:     pkg,
		Metadata:    req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, admitted)
}

func (s *Server) ListUserCodes(c *gin.Context) {
	userID, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_user_id", "invalid value"))
		return
	}

	codes, err := s.registrationSvc.ListUserCodes(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"codes": codes})
}

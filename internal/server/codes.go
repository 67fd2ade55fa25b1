package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	examcodedomain "github.com/prelimth/examgate/internal/examcode/domain"
)

type codeRequest struct {
	Code string `json:"code"`
}

// ValidateCode answers whether a presented string matches a code template.
// Pure format check, no lookup; scanners use it to reject garbage before
// hitting check-in.
func (s *Server) ValidateCode(c *gin.Context) {
	var req codeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request"))
		return
	}

	code := strings.TrimSpace(req.Code)
	c.JSON(http.StatusOK, gin.H{
		"code":  code,
		"valid": examcodedomain.IsValidCode(code),
	})
}

func (s *Server) CheckinCode(c *gin.Context) {
	var req codeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request"))
		return
	}

	result, err := s.registrationSvc.CheckIn(c.Request.Context(), strings.TrimSpace(req.Code))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

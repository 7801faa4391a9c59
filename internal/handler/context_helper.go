package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-api/internal/middleware"
	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/internal/policy"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
	"github.com/noah-isme/lms-api/pkg/export"
	"github.com/noah-isme/lms-api/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	claims, ok := middleware.Claims(c)
	if !ok {
		return nil
	}
	return claims
}

// actorFromContext returns the anonymous actor when the gate attached no claims.
func actorFromContext(c *gin.Context) policy.Actor {
	return policy.ActorFromClaims(claimsFromContext(c))
}

// requireActor writes a 401 and returns false when the request is anonymous.
func requireActor(c *gin.Context) (policy.Actor, bool) {
	actor := actorFromContext(c)
	if actor.Anonymous() {
		response.Error(c, appErrors.ErrAuthenticationRequired)
		return actor, false
	}
	return actor, true
}

// exportFormat reads ?format=. ok is false when no export was requested or
// the value was rejected; in the latter case a 400 has been written.
func exportFormat(c *gin.Context) (format export.Format, requested bool, ok bool) {
	raw := c.Query("format")
	if raw == "" {
		return "", false, true
	}
	format, err := export.ParseFormat(raw)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "format must be csv or pdf"))
		return "", true, false
	}
	return format, true, true
}

func requestMeta(c *gin.Context) models.RequestMeta {
	return models.RequestMeta{IP: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}
}

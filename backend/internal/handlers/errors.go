package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"

	"hrmspro/backend/internal/apperr"
	"hrmspro/backend/internal/middleware"
	"hrmspro/backend/internal/models"
	"hrmspro/backend/internal/utils"
)

var statusByKind = map[apperr.Kind]int{
	apperr.KindValidation:      http.StatusBadRequest,
	apperr.KindUnauthenticated: http.StatusUnauthorized,
	apperr.KindForbidden:       http.StatusForbidden,
	apperr.KindNotFound:        http.StatusNotFound,
	apperr.KindConflict:        http.StatusConflict,
	apperr.KindUpstream:        http.StatusBadGateway,
}

// handleError writes err as the standard error envelope. Causes of
// upstream failures are logged, never returned.
func handleError(c *gin.Context, err error) {
	appErr, ok := apperr.As(err)
	if !ok {
		log.Printf("❌ unclassified error on %s %s: %v", c.Request.Method, c.FullPath(), err)
		appErr = apperr.Upstream("internal failure", err)
	}

	status, known := statusByKind[appErr.Kind]
	if !known {
		status = http.StatusInternalServerError
	}
	if appErr.Kind == apperr.KindUpstream && appErr.Unwrap() != nil {
		log.Printf("⚠️  upstream failure on %s %s: %v", c.Request.Method, c.FullPath(), appErr.Unwrap())
	}

	body := gin.H{
		"kind":    appErr.Kind,
		"message": appErr.Message,
	}
	if appErr.Code != "" {
		body["code"] = appErr.Code
	}
	if len(appErr.Details) > 0 {
		body["details"] = appErr.Details
	}
	c.AbortWithStatusJSON(status, gin.H{"error": body})
}

func bindError(c *gin.Context, err error) {
	handleError(c, apperr.Validation("invalid request body: %v", err))
}

// principal reads the caller set by the auth middleware. A missing
// principal is answered with 401 and ok=false.
func principal(c *gin.Context) (models.Principal, bool) {
	p, ok := middleware.PrincipalFromContext(c)
	if !ok {
		handleError(c, apperr.Unauthenticated("authentication required"))
	}
	return p, ok
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := utils.ParseUUIDParam(name, c.Param(name))
	if err != nil {
		handleError(c, apperr.Validation("%s", err.Error()))
		return uuid.Nil, false
	}
	return id, true
}

// optionalUUID parses an optional id field; empty means absent.
func optionalUUID(field string, value *string) (*uuid.UUID, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	id, err := utils.ParseUUIDParam(field, *value)
	if err != nil {
		return nil, apperr.Validation("%s", err.Error())
	}
	return &id, nil
}

// parseDate accepts RFC 3339 timestamps and plain YYYY-MM-DD dates, the
// latter as midnight UTC.
func parseDate(field string, value *string) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02"} {
		if t, err := time.Parse(layout, *value); err == nil {
			return &t, nil
		}
	}
	return nil, apperr.Validation("%s must be an RFC 3339 timestamp or YYYY-MM-DD date", field)
}

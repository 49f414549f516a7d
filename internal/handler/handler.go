package handler

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/finscale/finscale-api/internal/middleware"
	"github.com/finscale/finscale-api/internal/model"
	"github.com/finscale/finscale-api/internal/service"
	"github.com/finscale/finscale-api/pkg/apperrors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const dateOnly = "2006-01-02"

// RegisterValidation makes binding errors report json field names
func RegisterValidation() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})
}

// respondError writes err as a model.ErrorResponse with the status it carries
func respondError(c *gin.Context, err error) {
	appErr := apperrors.From(err)
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		log.Printf("❌ %s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(appErr.HTTPStatus, model.ErrorResponse{Error: appErr.Message, Code: string(appErr.Code)})
}

// bindJSON binds the body into req and answers 400 on failure
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request", Code: string(apperrors.CodeValidation), Message: describeBindError(err)})
		return false
	}
	return true
}

func bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid query", Code: string(apperrors.CodeValidation), Message: describeBindError(err)})
		return false
	}
	return true
}

func describeBindError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fe.Field()+" is required")
		case "email":
			msgs = append(msgs, fe.Field()+" must be a valid email")
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param()))
		case "min", "gte":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param()))
		case "max", "lte":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}

// paramUUID parses the :name path parameter, answering 400 when malformed
func paramUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

func actor(c *gin.Context) service.Actor {
	return service.Actor{ID: middleware.CurrentUserID(c), Role: middleware.CurrentRole(c)}
}

// parseDate accepts RFC3339 or YYYY-MM-DD (midnight in loc). With endOfDay a
// bare date covers the whole day.
func parseDate(value string, loc *time.Location, endOfDay bool) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, nil
	}
	t, err := time.ParseInLocation(dateOnly, value, loc)
	if err != nil {
		return nil, apperrors.BadRequest(fmt.Sprintf("invalid date %q, use RFC3339 or YYYY-MM-DD", value))
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return &t, nil
}

// dateRange parses the from/to query values
func dateRange(rawFrom, rawTo string, loc *time.Location) (from, to *time.Time, err error) {
	if from, err = parseDate(rawFrom, loc, false); err != nil {
		return nil, nil, err
	}
	if to, err = parseDate(rawTo, loc, true); err != nil {
		return nil, nil, err
	}
	return from, to, nil
}

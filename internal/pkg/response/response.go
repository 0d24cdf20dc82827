package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nn1-dev/club-api/internal/pkg/apperr"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Default messages for error envelopes.
const (
	MsgBadRequest      = "The request was invalid."
	MsgUnauthorized    = "Unauthorized access."
	MsgNotFound        = "The requested resource was not found."
	MsgConflict        = "Data conflict error."
	MsgTooManyRequests = "Too many requests."
	MsgInternal        = "An internal server error occurred."
	MsgDelivery        = "Failed to send an email."
	MsgUnknownTemplate = "Template is not configured."
	MsgInvalidToken    = "The confirmation token is invalid."
)

// Envelope is the body of every response.
type Envelope struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data"`
	// Populated on delivery failures that happened after a committed write.
	Stage      string      `json:"stage,omitempty"`
	Record     interface{} `json:"record,omitempty"`
	Recipients []string    `json:"recipients,omitempty"`
}

func Success(c *gin.Context, code int, data interface{}) {
	c.JSON(code, Envelope{Status: StatusSuccess, Data: data})
}

// OK sends a 200 success envelope.
func OK(c *gin.Context, data interface{}) { Success(c, http.StatusOK, data) }

// Created sends a 201 success envelope.
func Created(c *gin.Context, data interface{}) { Success(c, http.StatusCreated, data) }

// Fail aborts with an error envelope.
func Fail(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, Envelope{Status: StatusError, Data: message})
}

func BadRequest(c *gin.Context, message string) {
	if message == "" {
		message = MsgBadRequest
	}
	Fail(c, http.StatusBadRequest, message)
}

func Unauthorized(c *gin.Context) { Fail(c, http.StatusUnauthorized, MsgUnauthorized) }

func NotFound(c *gin.Context) { Fail(c, http.StatusNotFound, MsgNotFound) }

func Conflict(c *gin.Context, message string) {
	if message == "" {
		message = MsgConflict
	}
	Fail(c, http.StatusConflict, message)
}

func TooManyRequests(c *gin.Context) { Fail(c, http.StatusTooManyRequests, MsgTooManyRequests) }

// InternalError hides err from the client and records it on the context for the request logger.
func InternalError(c *gin.Context, err error) {
	if err != nil {
		_ = c.Error(err)
	}
	Fail(c, http.StatusInternalServerError, MsgInternal)
}

// StatusOf maps a domain error to an HTTP status.
func StatusOf(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindValidation, apperr.KindInvalidToken, apperr.KindUnknownTemplate:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindDataConflict:
		return http.StatusConflict
	case apperr.KindDelivery:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// Error writes the envelope for err.
func Error(c *gin.Context, err error) {
	Partial(c, err, nil)
}

// Partial writes the envelope for err along with the record the operation committed before failing.
func Partial(c *gin.Context, err error, record interface{}) {
	code := StatusOf(err)
	if code == http.StatusInternalServerError {
		InternalError(c, err)
		return
	}
	_ = c.Error(err)
	env := Envelope{Status: StatusError, Data: messageOf(err)}
	var e *apperr.Error
	if errors.As(err, &e) && e.Kind == apperr.KindDelivery {
		env.Stage = e.Stage
		env.Recipients = e.Recipients
		env.Record = record
	}
	c.AbortWithStatusJSON(code, env)
}

func messageOf(err error) string {
	var e *apperr.Error
	if !errors.As(err, &e) {
		return MsgInternal
	}
	switch e.Kind {
	case apperr.KindValidation:
		if e.Message != "" {
			return e.Message
		}
		return MsgBadRequest
	case apperr.KindNotFound:
		return MsgNotFound
	case apperr.KindInvalidToken:
		return MsgInvalidToken
	case apperr.KindUnknownTemplate:
		return MsgUnknownTemplate
	case apperr.KindDataConflict:
		return MsgConflict
	case apperr.KindDelivery:
		return MsgDelivery
	}
	return MsgInternal
}

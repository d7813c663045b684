package myhttp

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/sklim84/agentic-commerce-protocol/lib/myerrors"
	"github.com/sklim84/agentic-commerce-protocol/lib/mylog"
)

type ResponseWriter interface {
	WriteError(c context.Context, w http.ResponseWriter, err error)
	Write(c context.Context, w http.ResponseWriter, httpStatus int, resp interface{})
	WriteRaw(c context.Context, w http.ResponseWriter, httpStatus int, body []byte)
}

// ErrorResponse is the flat error body: {type, code, message, param?}
type ErrorResponse struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Param   string `json:"param,omitempty"`
}

type SuccessResponse struct {
	Message string `json:"message"`
}

func NewWriter(logger mylog.Logger) ResponseWriter {
	return &responseWriter{
		logger: logger,
	}
}

type responseWriter struct {
	logger mylog.Logger
}

func (rw responseWriter) WriteError(c context.Context, w http.ResponseWriter, err error) {
	httpStatus := myerrors.GetHTTPStatus(err)
	rw.logger.Log(c, "", mylog.SeverityWarn, "Error response: http-status:%d, code:%s, error-msg:%s", httpStatus, myerrors.GetCode(err), err)
	rw.write(w, httpStatus, ErrorResponse{
		Type:    myerrors.GetType(err),
		Code:    myerrors.GetCode(err),
		Message: err.Error(),
		Param:   myerrors.GetParam(err),
	})
}

func (rw responseWriter) Write(c context.Context, w http.ResponseWriter, httpStatus int, resp interface{}) {
	rw.logger.Log(c, "", mylog.SeverityInfo, "Success response: http-status:%d", httpStatus)
	rw.write(w, httpStatus, resp)
}

// WriteRaw writes a pre-serialized body. Used for idempotent replay, where the
// response must be byte-identical to the original.
func (rw responseWriter) WriteRaw(c context.Context, w http.ResponseWriter, httpStatus int, body []byte) {
	rw.logger.Log(c, "", mylog.SeverityInfo, "Raw response: http-status:%d", httpStatus)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	_, err := w.Write(body)
	if err != nil {
		log.Printf("Error writing raw response: %s", err)
	}
}

func (rw responseWriter) write(w http.ResponseWriter, httpStatus int, resp interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "\t")
	err := encoder.Encode(resp)
	if err != nil {
		log.Printf("Error writing response: %s", err)
		return
	}
}

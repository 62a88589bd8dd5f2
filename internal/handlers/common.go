package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/diewo77/go-fieldops/httpx"
	"github.com/diewo77/go-fieldops/i18n"
	"github.com/diewo77/go-fieldops/internal/services"
)

const maxBodyBytes = 1 << 20

// decodePayload reads a JSON object body. An empty body decodes as {}.
func decodePayload(w http.ResponseWriter, r *http.Request) (services.Payload, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, i18n.T(i18n.LangFrom(r.Context()), "invalid_json"))
		return nil, false
	}
	p := services.Payload{}
	if len(bytes.TrimSpace(body)) == 0 {
		return p, true
	}
	if err := json.Unmarshal(body, &p); err != nil || p == nil {
		httpx.Fail(w, http.StatusBadRequest, i18n.T(i18n.LangFrom(r.Context()), "invalid_json"))
		return nil, false
	}
	return p, true
}

// writeError maps service errors to responses: validation 400, missing
// records 404 with notFoundCode, anything else 500 with the raw error text.
func writeError(w http.ResponseWriter, r *http.Request, log logrus.FieldLogger, err error, notFoundCode string) {
	lang := i18n.LangFrom(r.Context())
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		httpx.Fail(w, http.StatusBadRequest, verr.Message(lang))
	case errors.Is(err, services.ErrNotFound):
		httpx.Fail(w, http.StatusNotFound, i18n.T(lang, notFoundCode))
	default:
		log.WithError(err).WithFields(logrus.Fields{"method": r.Method, "path": r.URL.Path}).Error("request failed")
		httpx.Fail(w, http.StatusInternalServerError, err.Error())
	}
}

// queryInt parses a positive integer query parameter, falling back to def.
func queryInt(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v < 1 {
		return def
	}
	return v
}

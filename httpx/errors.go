package httpx

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/opinio-app/opinio/log"
	"github.com/opinio-app/opinio/model"
)

// Will log an error, and send an HTTP response with status 500 and default text
func LogInternalError(w http.ResponseWriter, code string, err error) {
	log.Errorf("%s: %s", code, err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// Will log a debug message, and send an HTTP response with status 404 and default text
func LogNotFound(w http.ResponseWriter, code string, id any) {
	log.Debugf("%s: not found (%v)", code, id)
	w.WriteHeader(http.StatusNotFound)
}

// Will log an error code at the given level, and send
// an HTTP response with status and default text
func LogStatus(w http.ResponseWriter, status int, level log.Level, code string) {
	log.Log(level, code)
	http.Error(w, http.StatusText(status), status)
}

// Will log an error code and message at the given level,
// and send an HTTP response with the given status and formatted message
func LogStatusMsg(w http.ResponseWriter, status int, level log.Level, code string, msg string, args ...any) {
	errMsg := fmt.Sprintf(msg, args...)
	log.Log(level, code+":", errMsg)
	http.Error(w, errMsg, status)
}

// LogDomainError maps the core's error kinds to HTTP statuses with their
// user-facing message; anything unrecognized is an internal error.
func LogDomainError(w http.ResponseWriter, code string, err error) {
	var notFound model.NotFoundError
	var referential model.ReferentialError
	var domainRange model.DomainRangeError
	var unavailable model.UnavailableSurveyError
	var bounds model.OrderingBoundsError
	var conflict model.ConflictError

	switch {
	case errors.As(err, &notFound):
		LogNotFound(w, code, notFound.ID)
	case errors.As(err, &referential):
		LogStatusMsg(w, http.StatusUnprocessableEntity, log.DebugLevel, code, "%s", referential.Error())
	case errors.As(err, &domainRange):
		LogStatusMsg(w, http.StatusUnprocessableEntity, log.DebugLevel, code, "%s", domainRange.Error())
	case errors.As(err, &bounds):
		LogStatusMsg(w, http.StatusUnprocessableEntity, log.DebugLevel, code, "%s", bounds.Error())
	case errors.As(err, &unavailable):
		LogStatusMsg(w, http.StatusConflict, log.DebugLevel, code, "%s", unavailable.Error())
	case errors.As(err, &conflict):
		LogStatusMsg(w, http.StatusConflict, log.DebugLevel, code, "%s", conflict.Error())
	default:
		LogInternalError(w, code, err)
	}
}

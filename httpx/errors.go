package httpx

import (
	"fmt"
	"net/http"

	"github.com/go-chi/render"

	"github.com/mbolis/quick-fields/log"
	"github.com/mbolis/quick-fields/model"
)

// WriteError sends the structured error body every API failure carries.
func WriteError(w http.ResponseWriter, r *http.Request, status int, code model.ErrorCode, msg string, args ...string) {
	if args == nil {
		args = []string{}
	}
	render.Status(r, status)
	render.JSON(w, r, &model.APIError{Message: msg, Code: code, Arguments: args})
}

// Will log an error, and send an HTTP response with status 500 and an internal error body
func LogInternalError(w http.ResponseWriter, r *http.Request, code string, err error) {
	log.With(code, log.Fields{"path": r.URL.Path}).Error(err)
	WriteError(w, r, http.StatusInternalServerError, model.CodeInternal, http.StatusText(http.StatusInternalServerError))
}

// Will log a debug message, and send an HTTP response with status 404 and a not found body
func LogNotFound(w http.ResponseWriter, r *http.Request, code string, id any) {
	log.Debugf("%s: not found (%v)", code, id)
	WriteError(w, r, http.StatusNotFound, model.CodeNotFound, http.StatusText(http.StatusNotFound), fmt.Sprint(id))
}

// Will log an error code at the given level, and send
// an HTTP response with status and default text
func LogStatus(w http.ResponseWriter, r *http.Request, status int, level log.Level, code string) {
	log.Log(level, code)
	WriteError(w, r, status, model.CodeForStatus(status), http.StatusText(status))
}

// Will log an error code and message at the given level,
// and send an HTTP response with the given status and formatted message
func LogStatusMsg(w http.ResponseWriter, r *http.Request, status int, level log.Level, code string, msg string, args ...any) {
	errMsg := fmt.Sprintf(msg, args...)
	log.Log(level, code+":", errMsg)
	WriteError(w, r, status, model.CodeForStatus(status), errMsg)
}

// Will log the problems at debug level, and send an HTTP response with
// status 400 listing them as arguments
func LogInvalid(w http.ResponseWriter, r *http.Request, code string, problems []string) {
	log.With(code, log.Fields{"problems": problems}).Debug("invalid request")
	WriteError(w, r, http.StatusBadRequest, model.CodeValidation, "invalid field", problems...)
}

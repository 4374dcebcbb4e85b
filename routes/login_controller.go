package routes

import (
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/mbolis/quick-fields/app"
	"github.com/mbolis/quick-fields/httpx"
	"github.com/mbolis/quick-fields/log"
	"github.com/mbolis/quick-fields/model"
)

var reRefresh = regexp.MustCompile(`(?i)^refresh\s+(.*)`)

func Login(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok {
			httpx.LogStatus(w, r, http.StatusUnauthorized, log.DebugLevel, "login.basic_auth")
			return
		}

		body := url.Values{
			"grant_type": {"password"},
			"username":   {user},
			"password":   {pass},
		}
		req, err := tokenRequest(r, body)
		if err != nil {
			httpx.LogInternalError(w, r, "login.new_request", err)
			return
		}
		issueToken(app, w, req, "login.credentials")
	}
}

func Refresh(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		match := reRefresh.FindStringSubmatch(r.Header.Get("authorization"))
		if len(match) == 0 {
			httpx.LogStatus(w, r, http.StatusUnauthorized, log.DebugLevel, "refresh.token")
			return
		}

		body := url.Values{
			"grant_type":    {"refresh_token"},
			"refresh_token": {match[1]},
		}
		req, err := tokenRequest(r, body)
		if err != nil {
			httpx.LogInternalError(w, r, "refresh.new_request", err)
			return
		}
		issueToken(app, w, req, "refresh.token")
	}
}

func tokenRequest(r *http.Request, body url.Values) (*http.Request, error) {
	encoded := body.Encode()
	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, "/", strings.NewReader(encoded))
	if err != nil {
		return nil, err
	}
	req.Header.Set("content-type", "application/x-www-form-urlencoded")
	req.Header.Set("content-length", strconv.Itoa(len(encoded)))
	return req, nil
}

// issueToken runs the token grant and turns any failure into a structured
// not-authenticated error.
func issueToken(app app.App, w http.ResponseWriter, req *http.Request, code string) {
	resp := httpx.NewResponseBuffer()
	app.UserCredentials(resp, req)

	if resp.Status() >= http.StatusBadRequest {
		log.With(code, log.Fields{"status": resp.Status()}).Debug(strings.TrimSpace(string(resp.Body())))
		httpx.WriteError(w, req, http.StatusUnauthorized, model.CodeNotAuthenticated, http.StatusText(http.StatusUnauthorized))
		return
	}
	resp.Flush(w)
}

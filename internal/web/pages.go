package web

import (
	"net/http"
	"net/url"

	"github.com/desertthunder/peai/internal/server"
)

var loginErrors = map[string]string{
	server.ErrCodeConfiguration: "登录服务配置有误，请联系管理员",
	server.ErrCodeAccessDenied:  "你已取消登录或没有访问权限",
	server.ErrCodeState:         "登录请求已过期，请重新登录",
	server.ErrCodeCallback:      "登录回调失败，请重试",
}

type landingPage struct {
	Lessons int
}

type loginPage struct {
	Error     string
	SignInURL string
	Provider  string
}

type dashboardPage struct {
	Lessons int
}

func (a *App) landing(w http.ResponseWriter, r *http.Request) {
	a.render(w, r, http.StatusOK, "landing", "", landingPage{Lessons: a.catalog.Len()})
}

// login shows the sign-in button. An unknown error code still gets a generic message.
func (a *App) login(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page := loginPage{SignInURL: "/auth/login", Provider: "SSO"}
	if a.provider != nil {
		page.Provider = a.provider.Name()
	}
	if cb := q.Get("callbackUrl"); cb != "" {
		page.SignInURL += "?callbackUrl=" + url.QueryEscape(server.SanitizeCallback(cb, a.config.Server.BaseURL))
	}
	if code := q.Get("error"); code != "" {
		msg, ok := loginErrors[code]
		if !ok {
			msg = "登录失败，请重试"
		}
		page.Error = msg
	}

	a.render(w, r, http.StatusOK, "login", "", page)
}

func (a *App) dashboard(w http.ResponseWriter, r *http.Request) {
	a.render(w, r, http.StatusOK, "dashboard", "dashboard", dashboardPage{Lessons: a.catalog.Len()})
}

func (a *App) chatHome(w http.ResponseWriter, r *http.Request) {
	a.render(w, r, http.StatusOK, "chat", "chat", nil)
}

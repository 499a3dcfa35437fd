package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/desertthunder/peai/internal/chat"
	"github.com/desertthunder/peai/internal/models"
	"github.com/desertthunder/peai/internal/server"
	"github.com/desertthunder/peai/internal/shared"
)

type qaPage struct {
	Messages []models.Message
	Error    *qaError
	Input    string
}

type qaError struct {
	Message  string
	CanRetry bool
}

// chatKey is the conversation key of the signed-in session.
func chatKey(r *http.Request) string {
	identity, _ := server.IdentityFromContext(r.Context())
	return identity.Session.ID()
}

func (a *App) qa(w http.ResponseWriter, r *http.Request) {
	a.renderQA(w, r, http.StatusOK, qaPage{Messages: a.chat.History(chatKey(r))})
}

func (a *App) qaSend(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "无效的请求", http.StatusBadRequest)
		return
	}

	key := chatKey(r)
	content := r.PostFormValue("content")
	if _, err := a.chat.Send(r.Context(), key, content); err != nil {
		status, qe, ok := sendFailure(err, false)
		if !ok {
			a.serverError(w, r, err)
			return
		}
		input := content
		var se *chat.SendError
		if errors.As(err, &se) && se.Input != "" {
			input = se.Input
		}
		a.renderQA(w, r, status, qaPage{Messages: a.chat.History(key), Error: qe, Input: input})
		return
	}

	http.Redirect(w, r, "/chat/qa", http.StatusSeeOther)
}

func (a *App) qaRegenerate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "无效的请求", http.StatusBadRequest)
		return
	}

	key := chatKey(r)
	index, err := strconv.Atoi(r.PostFormValue("index"))
	if err == nil {
		_, err = a.chat.Regenerate(r.Context(), key, index)
	} else {
		err = shared.ErrInvalidInput
	}
	if err != nil {
		status, qe, ok := sendFailure(err, true)
		if !ok {
			a.serverError(w, r, err)
			return
		}
		a.renderQA(w, r, status, qaPage{Messages: a.chat.History(key), Error: qe})
		return
	}

	http.Redirect(w, r, "/chat/qa", http.StatusSeeOther)
}

func (a *App) renderQA(w http.ResponseWriter, r *http.Request, status int, page qaPage) {
	a.render(w, r, status, "chat_qa", "qa", page)
}

// sendFailure maps a chat error to the response status and the message shown above the input.
// Only sends that failed in transit offer a retry.
func sendFailure(err error, regenerate bool) (int, *qaError, bool) {
	switch {
	case errors.Is(err, shared.ErrRateLimited):
		return http.StatusTooManyRequests, &qaError{Message: "发送太频繁，请稍后再试"}, true
	case errors.Is(err, shared.ErrInvalidInput):
		if regenerate {
			return http.StatusBadRequest, &qaError{Message: "无法重新生成这条消息"}, true
		}
		var se *chat.SendError
		if errors.As(err, &se) {
			return http.StatusBadRequest, &qaError{Message: "消息过长，请精简后再发送"}, true
		}
		return http.StatusBadRequest, &qaError{Message: "请输入问题"}, true
	case errors.Is(err, shared.ErrInvalidState):
		return http.StatusConflict, &qaError{Message: "上一条消息还在回复中，请稍候"}, true
	case errors.Is(err, shared.ErrTransientSend):
		if regenerate {
			return http.StatusOK, &qaError{Message: "重新生成失败，请重试"}, true
		}
		return http.StatusOK, &qaError{Message: "网络连接失败，请重试", CanRetry: true}, true
	default:
		return 0, nil, false
	}
}

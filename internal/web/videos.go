package web

import (
	"html/template"
	"net/http"
	"net/url"

	"github.com/desertthunder/peai/internal/catalog"
	"github.com/desertthunder/peai/internal/models"
	"github.com/desertthunder/peai/internal/player"
	"github.com/desertthunder/peai/internal/server"
)

// FragmentHeader marks player event posts that want the player body back instead of a redirect.
const FragmentHeader = "X-Player-Fragment"

const stateInvalid = "invalid"

type videosPage struct {
	Query  string
	Videos []models.Video
}

type videoPage struct {
	Video      models.Video
	Player     template.HTML
	Nav        player.Navigation
	ReplaceURL string
	path       string
}

// PartURL links to page of the current video.
func (p videoPage) PartURL(page int) string {
	return partURL(p.path, page)
}

// playerView is the data of the "player" and "player-body" templates.
type playerView struct {
	Page           int
	State          string
	Title          string
	EmbedURL       string
	WatchURL       string
	EventsURL      string
	Sandbox        string
	ReferrerPolicy string
}

func videoPath(course, id string) string {
	return "/videos/" + course + "/" + id
}

func partURL(path string, page int) string {
	return player.SyncPage(&url.URL{Path: path}, page).RequestURI()
}

func (a *App) videos(w http.ResponseWriter, r *http.Request) {
	course := a.catalog.Course()
	if r.PathValue("course") != course.Slug {
		a.notFound(w, r, "课程不存在", "找不到这个课程", "/dashboard")
		return
	}

	q := r.URL.Query().Get("q")
	videos, err := a.catalog.Search(r.Context(), q, 0)
	if err != nil {
		a.serverError(w, r, err)
		return
	}

	a.render(w, r, http.StatusOK, "videos", "videos", videosPage{Query: q, Videos: videos})
}

// lookupVideo resolves the course and video path values, writing a 404 page on a miss.
func (a *App) lookupVideo(w http.ResponseWriter, r *http.Request) (models.Video, bool) {
	course := a.catalog.Course()
	if r.PathValue("course") != course.Slug {
		a.notFound(w, r, "课程不存在", "找不到这个课程", "/dashboard")
		return models.Video{}, false
	}

	v, err := a.catalog.FindVideo(r.PathValue("videoId"))
	if err != nil {
		if catalog.IsNotFound(err) {
			a.notFound(w, r, "视频不存在", "找不到这个视频，它可能已被移除", "/videos/"+course.Slug)
		} else {
			a.serverError(w, r, err)
		}
		return models.Video{}, false
	}
	return v, true
}

func (a *App) video(w http.ResponseWriter, r *http.Request) {
	v, ok := a.lookupVideo(w, r)
	if !ok {
		return
	}
	identity, _ := server.IdentityFromContext(r.Context())

	nav := player.Resolve(v, r.URL.Query().Get(player.PageParam))
	page := videoPage{Video: v, Nav: nav, path: videoPath(a.catalog.Course().Slug, v.ID)}
	if canonical, changed := player.Canonical(r.URL, nav.Page); changed {
		page.ReplaceURL = canonical
	}

	view := a.playerView(v, nav.Page)
	if view.State == stateInvalid {
		html, err := a.partial("player", view)
		if err != nil {
			a.serverError(w, r, err)
			return
		}
		page.Player = html
		a.render(w, r, http.StatusOK, "video", "videos", page)
		return
	}

	m := a.tracker.Mount(identity.Session.ID(), v.ID, player.Identity{Bvid: v.Bvid, Page: nav.Page})
	guard := player.NewGuard(m, a.logger)
	err := guard.Render(func() error {
		view.State = m.State().String()
		html, err := a.partial("player", view)
		if err != nil {
			return err
		}
		page.Player = html
		return nil
	})
	if err != nil {
		view.State = m.State().String()
		html, perr := a.partial("player", view)
		if perr != nil {
			a.serverError(w, r, perr)
			return
		}
		page.Player = html
	}

	a.render(w, r, http.StatusOK, "video", "videos", page)
}

// playerEvent applies a load event posted by the lesson page to the session's player.
//
// Events for a video or page the session is no longer showing are ignored, except retry,
// which mounts a fresh player.
func (a *App) playerEvent(w http.ResponseWriter, r *http.Request) {
	v, ok := a.lookupVideo(w, r)
	if !ok {
		return
	}
	identity, _ := server.IdentityFromContext(r.Context())
	session := identity.Session.ID()

	if err := r.ParseForm(); err != nil {
		http.Error(w, "无效的请求", http.StatusBadRequest)
		return
	}
	ev, err := player.ParseEvent(r.PostFormValue("event"))
	if err != nil {
		http.Error(w, "无效的播放器事件", http.StatusBadRequest)
		return
	}

	page := player.ResolvePage(player.ParsePage(r.PostFormValue("page")), len(v.Parts))
	want := player.Identity{Bvid: v.Bvid, Page: page}

	m, tracked := a.tracker.Lookup(session, v.ID)
	switch {
	case tracked && m.Identity() == want:
		if _, err := m.Fire(ev); err != nil {
			a.logger.Debug("player event ignored", "video", v.ID, "page", page, "error", err)
		}
	case ev == player.EventRetry:
		m = a.tracker.Mount(session, v.ID, want)
	default:
		a.logger.Debug("stale player event", "video", v.ID, "page", page, "event", ev)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if r.Header.Get(FragmentHeader) == "" {
		http.Redirect(w, r, partURL(videoPath(a.catalog.Course().Slug, v.ID), page), http.StatusSeeOther)
		return
	}

	view := a.playerView(v, page)
	if view.State != stateInvalid {
		view.State = m.State().String()
	}
	html, err := a.partial("player-body", view)
	if err != nil {
		a.serverError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write([]byte(html))
}

// playerView builds the embed for v at page. A rejected player URL gives the invalid state.
func (a *App) playerView(v models.Video, page int) playerView {
	view := playerView{
		Page:           page,
		Title:          v.Title,
		EventsURL:      videoPath(a.catalog.Course().Slug, v.ID) + "/player",
		Sandbox:        player.Sandbox,
		ReferrerPolicy: player.ReferrerPolicy,
	}
	if part, ok := v.Part(page); ok && v.MultiPart() {
		view.Title = v.Title + " - " + part.Title
	}

	embed, err := player.BuildPlayerURL(v.Bvid, page, player.DefaultOptions())
	if err != nil {
		a.logger.Warn("player url rejected", "video", v.ID, "bvid", v.Bvid, "error", err)
		view.State = stateInvalid
		return view
	}
	view.EmbedURL = embed
	view.WatchURL, _ = player.WatchURL(v.Bvid, page)
	return view
}

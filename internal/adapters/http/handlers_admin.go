package web

import (
	"log/slog"
	"net/http"
	"net/url"

	"ellarises/internal/adapters/http/middleware"
	"ellarises/internal/adapters/http/perf"
	"ellarises/internal/application/apperr"
	"ellarises/internal/application/listutil"
	"ellarises/internal/application/orchestrators"
	"ellarises/internal/application/projections"
	"ellarises/internal/domain/user"
)

// dashboardSlowest is how many routes and statements the dashboard ranks.
const dashboardSlowest = 5

// userLevels feeds the level select and filter.
var userLevels = []string{user.LevelManager, user.LevelUser}

type userFormData struct {
	Action string
	Levels []string
	Edit   bool
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := projections.QueryListUsers(r.Context(), projections.ListUsersQuery{
		Params: listutil.Parse(q),
		Level:  q.Get("level"),
	}, projections.ListUsersDeps{Users: s.stores.Users})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "users.html", page{
		Title: "Users",
		Data: struct {
			projections.ListUsersResult
			Levels []string
		}{result, userLevels},
	})
}

func (s *Server) handleAddUserForm(w http.ResponseWriter, r *http.Request) {
	form := url.Values{}
	form.Set("level", user.LevelUser)
	s.render(w, r, http.StatusOK, "user_form.html", page{
		Title: "Add user",
		Form:  form,
		Data:  userFormData{Action: "/addUser", Levels: userLevels},
	})
}

func (s *Server) handleAddUser(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	input := orchestrators.CreateUserInput{
		Email:    r.PostForm.Get("email"),
		Password: r.PostForm.Get("password"),
		Level:    r.PostForm.Get("level"),
	}
	form := r.PostForm
	form.Del("password")
	if _, err := orchestrators.ExecuteCreateUser(r.Context(), input, s.userDeps()); err != nil {
		s.failForm(w, r, err, &formPage{"user_form.html", page{
			Title: "Add user",
			Form:  form,
			Data:  userFormData{Action: "/addUser", Levels: userLevels},
		}})
		return
	}
	http.Redirect(w, r, "/viewUsers", http.StatusSeeOther)
}

func (s *Server) handleEditUserForm(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.badPath(w, r, "User")
		return
	}
	u, err := s.stores.Users.GetByID(r.Context(), id)
	if err != nil {
		s.fail(w, r, loadError(err, "User"))
		return
	}
	form := url.Values{}
	form.Set("email", u.Email)
	form.Set("level", u.Level)
	s.render(w, r, http.StatusOK, "user_form.html", page{
		Title: "Edit " + u.Email,
		Form:  form,
		Data:  userFormData{Action: r.URL.Path, Levels: userLevels, Edit: true},
	})
}

// handleEditUser saves a user. The user's sessions end so a changed level or
// email takes effect on their next request.
func (s *Server) handleEditUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.badPath(w, r, "User")
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	input := orchestrators.UpdateUserInput{
		ID:       id,
		Email:    r.PostForm.Get("email"),
		Password: r.PostForm.Get("password"),
		Level:    r.PostForm.Get("level"),
	}
	form := r.PostForm
	form.Del("password")
	if err := orchestrators.ExecuteUpdateUser(r.Context(), input, s.userDeps()); err != nil {
		s.failForm(w, r, err, &formPage{"user_form.html", page{
			Title: "Edit user",
			Form:  form,
			Data:  userFormData{Action: r.URL.Path, Levels: userLevels, Edit: true},
		}})
		return
	}
	if sess, _ := middleware.SessionFromContext(r.Context()); sess.UserID != id {
		s.sessions.DeleteUser(id)
	}
	http.Redirect(w, r, "/viewUsers", http.StatusSeeOther)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.badPath(w, r, "User")
		return
	}
	sess, _ := middleware.SessionFromContext(r.Context())
	if err := orchestrators.ExecuteDeleteUser(r.Context(), id, sess.UserID, s.userDeps()); err != nil {
		s.fail(w, r, err)
		return
	}
	s.sessions.DeleteUser(id)
	http.Redirect(w, r, "/viewUsers", http.StatusSeeOther)
}

// dashboardData is the manager dashboard: organisation figures plus request
// timings since the process started.
type dashboardData struct {
	projections.DashboardResult
	Perf perf.Snapshot
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	deps := projections.GetDashboardDeps{
		Participants:  s.stores.Participants,
		Milestones:    s.stores.Milestones,
		Donations:     s.stores.Donations,
		Events:        s.stores.Events,
		Registrations: s.stores.Registrations,
		Surveys:       s.stores.Surveys,
	}
	if s.stores.Outbox != nil {
		deps.Outbox = s.stores.Outbox
	}
	result, err := projections.QueryGetDashboard(r.Context(), s.now(), deps)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "dashboard.html", page{
		Title: "Dashboard",
		Data:  dashboardData{DashboardResult: result, Perf: s.collector.Snapshot(s.started, dashboardSlowest)},
	})
}

func (s *Server) handleOutbox(w http.ResponseWriter, r *http.Request) {
	if s.stores.Outbox == nil {
		s.fail(w, r, apperr.NotFound("Page not found"))
		return
	}
	result, err := projections.QueryGetOutbox(r.Context(), s.stores.Outbox)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "outbox.html", page{Title: "Email outbox", Data: result})
}

// handleOutboxAction retries or abandons one queued email.
func (s *Server) handleOutboxAction(w http.ResponseWriter, r *http.Request) {
	if s.opts.Outbox == nil {
		s.fail(w, r, apperr.NotFound("Page not found"))
		return
	}
	id := r.PathValue("id")
	var err error
	switch action := r.PathValue("action"); action {
	case "retry":
		err = s.opts.Outbox.ProcessSingle(r.Context(), id)
	case "abandon":
		err = s.opts.Outbox.AbandonEntry(r.Context(), id)
	default:
		s.fail(w, r, apperr.NotFound("Page not found"))
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	slog.Info("outbox_action", "entry_id", id, "action", r.PathValue("action"))
	http.Redirect(w, r, "/admin/outbox", http.StatusSeeOther)
}

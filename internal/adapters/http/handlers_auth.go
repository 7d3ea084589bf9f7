package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"ellarises/internal/adapters/http/middleware"
	"ellarises/internal/application/orchestrators"
)

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "home.html", page{Title: "Ella Rises"})
}

func (s *Server) handleAbout(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "about.html", page{Title: "About"})
}

// handlePrivacy answers with 418. There is no privacy page yet.
func (s *Server) handlePrivacy(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusTeapot, "privacy.html", page{Title: "Privacy"})
}

// handleHealth reports whether the database answers a ping.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if s.opts.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.opts.DB.Ping(ctx); err != nil {
			slog.Error("health_check_failed", "error", err.Error())
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("database unavailable\n"))
			return
		}
	}
	w.Write([]byte("ok\n"))
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.SessionFromContext(r.Context()); ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "login.html", page{Title: "Log in"})
}

// handleLogin checks credentials and starts a session. The form accepts
// "username" as an alias for "email".
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	email := r.PostForm.Get("email")
	if email == "" {
		email = r.PostForm.Get("username")
	}
	input := orchestrators.LoginInput{Email: email, Password: r.PostForm.Get("password")}
	form := r.PostForm
	form.Del("password")

	result, err := orchestrators.ExecuteLogin(r.Context(), input, orchestrators.LoginDeps{Users: s.stores.Users, Now: s.now})
	if err != nil {
		s.failForm(w, r, err, &formPage{"login.html", page{Title: "Log in", Form: form}})
		return
	}
	s.startSession(w, r, result)
}

// startSession replaces any current session with one for result and sends
// the browser home.
func (s *Server) startSession(w http.ResponseWriter, r *http.Request, result orchestrators.LoginResult) {
	if old, ok := middleware.SessionFromContext(r.Context()); ok {
		s.sessions.Delete(old.Token)
	}
	sess, err := s.sessions.Create(result.UserID, result.Email, result.Level, result.ParticipantID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.cookies.Write(w, sess.Token); err != nil {
		s.sessions.Delete(sess.Token)
		s.fail(w, r, err)
		return
	}
	slog.Info("auth_event", "event", "session_started", "user_id", result.UserID, "level", result.Level)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sess, ok := middleware.SessionFromContext(r.Context()); ok {
		s.sessions.Delete(sess.Token)
		slog.Info("auth_event", "event", "logout", "user_id", sess.UserID)
	}
	s.cookies.Clear(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleSignupForm(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.SessionFromContext(r.Context()); ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "signup.html", page{Title: "Sign up"})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	input := orchestrators.SignupInput{
		Email:           r.PostForm.Get("email"),
		Password:        r.PostForm.Get("password"),
		ConfirmPassword: r.PostForm.Get("confirm_password"),
	}
	form := r.PostForm
	form.Del("password")
	form.Del("confirm_password")

	result, err := orchestrators.ExecuteSignup(r.Context(), input, s.userDeps())
	if err != nil {
		s.failForm(w, r, err, &formPage{"signup.html", page{Title: "Sign up", Form: form}})
		return
	}
	s.startSession(w, r, result)
}

package orchestrators

import (
	"context"
	"errors"
	"testing"
	"time"

	"ellarises/internal/application/apperr"
	"ellarises/internal/domain/user"
)

func TestExecuteLogin_Success(t *testing.T) {
	u := mustUser(t, 7, "pat@example.org", "correct-horse", user.LevelManager)
	u.ParticipantID = 3
	u.FailedLogins = 2
	users := newMockUsers(u)

	res, err := ExecuteLogin(context.Background(), LoginInput{Email: " Pat@Example.org ", Password: "correct-horse"},
		LoginDeps{Users: users, Now: fixedNow})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.UserID != 7 || res.Level != user.LevelManager || res.ParticipantID != 3 {
		t.Errorf("unexpected result: %+v", res)
	}
	if users.rows[7].FailedLogins != 0 {
		t.Errorf("expected failed logins reset, got %d", users.rows[7].FailedLogins)
	}
}

func TestExecuteLogin_WrongPasswordIsInvalidLogin(t *testing.T) {
	users := newMockUsers(mustUser(t, 1, "pat@example.org", "correct-horse", user.LevelUser))

	_, err := ExecuteLogin(context.Background(), LoginInput{Email: "pat@example.org", Password: "wrong-horse"},
		LoginDeps{Users: users, Now: fixedNow})
	if !errors.Is(err, ErrInvalidLogin) {
		t.Fatalf("expected ErrInvalidLogin, got %v", err)
	}
	if apperr.Message(err) != "Invalid login" {
		t.Errorf("message = %q", apperr.Message(err))
	}
	if users.rows[1].FailedLogins != 1 {
		t.Errorf("expected one failed login recorded, got %d", users.rows[1].FailedLogins)
	}
}

func TestExecuteLogin_UnknownEmailMatchesWrongPassword(t *testing.T) {
	users := newMockUsers()
	_, err := ExecuteLogin(context.Background(), LoginInput{Email: "nobody@example.org", Password: "whatever1"},
		LoginDeps{Users: users, Now: fixedNow})
	if !errors.Is(err, ErrInvalidLogin) {
		t.Fatalf("expected ErrInvalidLogin, got %v", err)
	}
}

func TestExecuteLogin_EmptyFields(t *testing.T) {
	for _, in := range []LoginInput{{}, {Email: "a@b.org"}, {Password: "x"}} {
		_, err := ExecuteLogin(context.Background(), in, LoginDeps{Users: newMockUsers(), Now: fixedNow})
		if !errors.Is(err, ErrInvalidLogin) {
			t.Errorf("%+v: expected ErrInvalidLogin, got %v", in, err)
		}
	}
}

func TestExecuteLogin_LockoutBlocksCorrectPassword(t *testing.T) {
	users := newMockUsers(mustUser(t, 1, "pat@example.org", "correct-horse", user.LevelUser))
	deps := LoginDeps{Users: users, Now: fixedNow}

	for i := 0; i < user.MaxFailedLogins; i++ {
		_, _ = ExecuteLogin(context.Background(), LoginInput{Email: "pat@example.org", Password: "nope-nope"}, deps)
	}
	_, err := ExecuteLogin(context.Background(), LoginInput{Email: "pat@example.org", Password: "correct-horse"}, deps)
	if !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected ErrAccountLocked, got %v", err)
	}

	deps.Now = func() time.Time { return fixedTime.Add(user.LockoutDuration + time.Second) }
	if _, err := ExecuteLogin(context.Background(), LoginInput{Email: "pat@example.org", Password: "correct-horse"}, deps); err != nil {
		t.Fatalf("expected login after lockout expiry, got %v", err)
	}
}

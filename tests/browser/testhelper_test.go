//go:build browser

package browser_test

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"

	web "ellarises/internal/adapters/http"
	"ellarises/internal/adapters/storage"
	donationStore "ellarises/internal/adapters/storage/donation"
	eventStore "ellarises/internal/adapters/storage/event"
	milestoneStore "ellarises/internal/adapters/storage/milestone"
	outboxStore "ellarises/internal/adapters/storage/outbox"
	participantStore "ellarises/internal/adapters/storage/participant"
	registrationStore "ellarises/internal/adapters/storage/registration"
	"ellarises/internal/adapters/storage/storagetest"
	surveyStore "ellarises/internal/adapters/storage/survey"
	userStore "ellarises/internal/adapters/storage/user"
	"ellarises/internal/application/orchestrators"
	"ellarises/internal/domain/event"
	"ellarises/internal/domain/user"
)

const (
	managerEmail = "director@ellarises.org"
	userEmail    = "ana@example.org"
	testPassword = "TestPass123!"
)

// testApp holds the running test server and Playwright handles.
type testApp struct {
	BaseURL      string
	DB           *storage.TimedDB
	Server       *http.Server
	PW           *playwright.Playwright
	Browser      playwright.Browser
	Stores       web.Stores
	OccurrenceID int64
}

// newTestApp wires the app on a temp SQLite database, seeds a manager, a
// user and one upcoming workshop, and starts an HTTP server with CSRF on.
func newTestApp(t *testing.T) *testApp {
	t.Helper()
	user.PasswordCost = 4

	db := storagetest.OpenSQLite(t)
	stores := web.Stores{
		Users:         userStore.NewSQLStore(db),
		Participants:  participantStore.NewSQLStore(db),
		Milestones:    milestoneStore.NewSQLStore(db),
		Donations:     donationStore.NewSQLStore(db),
		Events:        eventStore.NewSQLStore(db),
		Registrations: registrationStore.NewSQLStore(db),
		Surveys:       surveyStore.NewSQLStore(db),
		Outbox:        outboxStore.NewSQLStore(db),
	}

	ctx := context.Background()
	userDeps := orchestrators.UserDeps{Users: stores.Users, Participants: stores.Participants, Now: time.Now}
	for _, seed := range []struct{ email, level string }{{managerEmail, user.LevelManager}, {userEmail, user.LevelUser}} {
		if _, err := orchestrators.ExecuteCreateUser(ctx, orchestrators.CreateUserInput{
			Email: seed.email, Password: testPassword, Level: seed.level,
		}, userDeps); err != nil {
			t.Fatalf("failed to seed %s: %v", seed.email, err)
		}
	}
	oid := seedOccurrence(t, stores)

	srv, err := web.NewServer(stores, web.Options{
		SessionSecret: []byte("0123456789abcdef0123456789abcdef"),
		CSRFKey:       []byte("fedcba9876543210fedcba9876543210"),
		DB:            db,
	})
	if err != nil {
		t.Fatalf("failed to build server: %v", err)
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to find free port: %v", err)
	}
	baseURL := fmt.Sprintf("http://%s", listener.Addr())
	httpSrv := &http.Server{Handler: srv.Handler()}
	go func() {
		if err := httpSrv.Serve(listener); err != http.ErrServerClosed {
			log.Printf("test server error: %v", err)
		}
	}()

	pw, err := playwright.Run()
	if err != nil {
		t.Fatalf("failed to start Playwright: %v", err)
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
	})
	if err != nil {
		t.Fatalf("failed to launch browser: %v", err)
	}

	t.Cleanup(func() {
		browser.Close()
		pw.Stop()
		httpSrv.Close()
	})

	return &testApp{
		BaseURL:      baseURL,
		DB:           db,
		Server:       httpSrv,
		PW:           pw,
		Browser:      browser,
		Stores:       stores,
		OccurrenceID: oid,
	}
}

func seedOccurrence(t *testing.T, stores web.Stores) int64 {
	t.Helper()
	ctx := context.Background()
	deps := orchestrators.EventDeps{Events: stores.Events, Registrations: stores.Registrations}
	tid, err := orchestrators.ExecuteCreateTemplate(ctx, orchestrators.TemplateInput{
		Name: "Coding Summit", Type: event.TypeSummit, Description: "A day of **code**.",
	}, deps)
	if err != nil {
		t.Fatalf("failed to seed template: %v", err)
	}
	lid, err := orchestrators.ExecuteCreateLocation(ctx, orchestrators.LocationInput{Name: "Library", Capacity: "20"}, deps)
	if err != nil {
		t.Fatalf("failed to seed location: %v", err)
	}
	oid, err := orchestrators.ExecuteCreateOccurrence(ctx, orchestrators.OccurrenceInput{
		Template: fmt.Sprint(tid),
		Location: fmt.Sprint(lid),
		StartsAt: time.Now().Add(72 * time.Hour).Format(event.TimeLayout),
	}, deps)
	if err != nil {
		t.Fatalf("failed to seed occurrence: %v", err)
	}
	return oid
}

// newPage creates a new browser page (tab) with its own cookies.
func (a *testApp) newPage(t *testing.T) playwright.Page {
	t.Helper()
	ctx, err := a.Browser.NewContext()
	if err != nil {
		t.Fatalf("failed to create browser context: %v", err)
	}
	page, err := ctx.NewPage()
	if err != nil {
		t.Fatalf("failed to create page: %v", err)
	}
	t.Cleanup(func() { ctx.Close() })
	return page
}

// login fills the login form and waits for the redirect home.
func (a *testApp) login(t *testing.T, page playwright.Page, email string) {
	t.Helper()
	if _, err := page.Goto(a.BaseURL + "/login"); err != nil {
		t.Fatalf("failed to navigate to login: %v", err)
	}
	if err := page.Locator("input[name=email]").Fill(email); err != nil {
		t.Fatalf("failed to fill email: %v", err)
	}
	if err := page.Locator("input[name=password]").Fill(testPassword); err != nil {
		t.Fatalf("failed to fill password: %v", err)
	}
	if err := page.Locator("main button[type=submit]").Click(); err != nil {
		t.Fatalf("failed to click login: %v", err)
	}
	if err := page.WaitForURL(a.BaseURL+"/", playwright.PageWaitForURLOptions{
		Timeout: playwright.Float(10000),
	}); err != nil {
		t.Fatalf("login did not redirect home: %v", err)
	}
}

// bodyText returns the visible text of the main element.
func bodyText(t *testing.T, page playwright.Page) string {
	t.Helper()
	text, err := page.Locator("main").InnerText()
	if err != nil {
		t.Fatalf("failed to read page text: %v", err)
	}
	return text
}

package tritonlink

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/tritonscrape/pkg/driver/drivertest"
)

const (
	auditHTML   = `<html><head><title>Degree Audit Report</title></head><body><h1>Degree Audit</h1><p>Requirements met.</p></body></html>`
	historyHTML = `<html><head><title>Academic History</title></head><body><table><tr><td>CSE 100</td><td>A</td></tr></table></body></html>`
	loginHTML   = `<html><head><title>Single Sign-On</title></head><body><form><input id="ssousername"><input id="ssopassword"></form></body></html>`
)

var testCreds = Credentials{Username: "tritonuser", Password: "hunter2"}

// portal wires a fake driver so that every page behaves like the portal:
// the entry URL redirects to the SSO form, the login script lands on the
// authenticated page and the report form opens a new window.
type portal struct {
	endpoints Endpoints
	driver    *drivertest.Driver

	// stallLogin keeps the login script from changing the URL.
	stallLogin bool
	// stallReport opens the report window but never loads it.
	stallReport bool
	// noisyReport fires unrelated navigations in the report window first.
	noisyReport bool
}

func newPortal() *portal {
	p := &portal{
		endpoints: DefaultEndpoints(),
		driver:    drivertest.New(),
	}
	p.driver.Configure = p.configure
	return p
}

func (p *portal) configure(pg *drivertest.Page) {
	e := p.endpoints
	pg.OnNavigate = func(pg *drivertest.Page, url string) {
		switch url {
		case e.Portal:
			pg.Load(e.Portal)
			pg.Load(e.SSOLogin)
		case e.AcademicHistory:
			pg.SetHTML(historyHTML)
			pg.Load(url)
		default:
			pg.Load(url)
		}
	}
	pg.OnScript = func(pg *drivertest.Page, s drivertest.Script) {
		switch {
		case strings.Contains(s.Fn, "ssousername"):
			if !p.stallLogin {
				pg.ChangeURL(e.Authenticated)
				pg.FinishNavigation()
			}
		case strings.Contains(s.Fn, "unReport"):
			popup := pg.Open()
			if p.stallReport {
				return
			}
			if p.noisyReport {
				popup.Load("about:blank")
				popup.Load(e.DegreeAudit)
			}
			popup.SetHTML(auditHTML)
			popup.Load(e.DegreeAuditReport)
		}
	}
}

// primary returns the first page of the launched browser.
func (p *portal) primary(t *testing.T) *drivertest.Page {
	t.Helper()
	b := p.driver.Browser()
	require.NotNil(t, b, "browser was not launched")
	pages := b.Pages()
	require.NotEmpty(t, pages)
	return pages[0]
}

func fastTimeouts() Timeouts {
	return Timeouts{
		OpenPortal:        2 * time.Second,
		Login:             2 * time.Second,
		DegreeAudit:       2 * time.Second,
		DegreeAuditReport: 2 * time.Second,
		AcademicHistory:   2 * time.Second,
		Content:           2 * time.Second,
	}
}

// testSession launches a fake browser with one primary page.
func testSession(t *testing.T) (*Session, *drivertest.Browser, *drivertest.Page) {
	t.Helper()
	d := drivertest.New()
	b, err := d.Launch(context.Background())
	require.NoError(t, err)
	s := newSession(b)
	pg, err := b.NewPage(context.Background())
	require.NoError(t, err)
	s.addPage(pg)
	return s, d.Browser(), pg.(*drivertest.Page)
}

// testAttempt starts an attempt for s outside of a machine run.
func testAttempt(t *testing.T, s Step, sess *Session) *attempt {
	t.Helper()
	m := newMachine(drivertest.New(), nil, NewAssertions(), nil)
	m.session = sess
	a := newAttempt(context.Background(), m, s)
	a.assertion = m.assertions.Arm(s.Name, s.Timeout, a.timedOut)
	t.Cleanup(a.cancel)
	return a
}

// waitSettled waits for the attempt outcome.
func waitSettled(t *testing.T, a *attempt) error {
	t.Helper()
	select {
	case <-a.done:
		return a.err
	case <-time.After(3 * time.Second):
		t.Fatal("step did not settle")
		return nil
	}
}

// recorder is an Observer that keeps every event.
type recorder struct {
	mu       sync.Mutex
	started  []string
	finished []string
	errs     []error
}

func (r *recorder) StepStarted(s Step) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, s.Name)
}

func (r *recorder) StepFinished(s Step, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append(r.finished, s.Name)
	r.errs = append(r.errs, err)
}

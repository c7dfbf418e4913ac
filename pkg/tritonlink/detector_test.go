package tritonlink

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/tritonscrape/pkg/driver"
)

func urlStep(want string, timeout time.Duration) Step {
	return Step{Name: StepOpenDegreeAudit, Timeout: timeout, Expect: ExpectURL, URL: want}
}

func TestWatchURL_IgnoresMismatchesUntilMatch(t *testing.T) {
	sess, _, pg := testSession(t)
	want := "https://act.ucsd.edu/studentDars/select"
	a := testAttempt(t, urlStep(want, 2*time.Second), sess)
	require.True(t, a.watch())

	for i := 0; i < 5; i++ {
		pg.Load("https://a4.ucsd.edu/redirect")
		assert.False(t, a.settled(), "mismatched navigation must not resolve the step")
	}

	pg.Load(want)
	require.NoError(t, waitSettled(t, a))

	// Further matching events are ignored.
	pg.Load(want)
	pg.FinishNavigation()

	nav, _, _ := pg.Subscribers()
	assert.Equal(t, 0, nav, "detector should unsubscribe after resolving")
	assert.Equal(t, 0, a.machine.assertions.Pending())
}

func TestWatchURL_ExactComparison(t *testing.T) {
	sess, _, pg := testSession(t)
	want := "https://act.ucsd.edu/studentDars/select"
	a := testAttempt(t, urlStep(want, 100*time.Millisecond), sess)
	require.True(t, a.watch())

	pg.Load(want + "/")
	pg.Load(want + "?term=FA24")
	pg.Load("http://act.ucsd.edu/studentDars/select")

	err := waitSettled(t, a)
	assert.ErrorIs(t, err, ErrNavigationTimeout)
}

func TestWatchURL_ReadErrorFailsStep(t *testing.T) {
	sess, _, pg := testSession(t)
	a := testAttempt(t, urlStep("https://example.com/", 2*time.Second), sess)
	require.True(t, a.watch())

	pg.URLErr = errors.New("target closed")
	pg.FinishNavigation()

	err := waitSettled(t, a)
	assert.ErrorIs(t, err, ErrURLRead)

	var se *StepError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StepOpenDegreeAudit, se.Step)
}

func TestWatchURL_LateEventAfterTimeoutIgnored(t *testing.T) {
	sess, b, pg := testSession(t)
	want := "https://example.com/done"
	a := testAttempt(t, urlStep(want, 20*time.Millisecond), sess)
	require.True(t, a.watch())

	err := waitSettled(t, a)
	require.ErrorIs(t, err, ErrNavigationTimeout)
	assert.True(t, sess.Released(), "timeout must release the browser")
	assert.Equal(t, 1, b.Closes())

	assert.NotPanics(t, func() { pg.Load(want) })
	assert.ErrorIs(t, a.err, ErrNavigationTimeout)
}

func TestWatchURLChange(t *testing.T) {
	sess, _, pg := testSession(t)
	want := "https://act.ucsd.edu/myTritonlink20/display.htm"
	a := testAttempt(t, Step{Name: StepLogin, Timeout: 2 * time.Second, Expect: ExpectURLChange, URL: want}, sess)
	require.True(t, a.watch())

	pg.ChangeURL("https://a4.ucsd.edu/tritON/profile/SAML2/Redirect/SSO")
	assert.False(t, a.settled())

	pg.ChangeURL(want)
	require.NoError(t, waitSettled(t, a))

	_, changed, _ := pg.Subscribers()
	assert.Equal(t, 0, changed)
}

func TestWatchNewPage_RecordsPageThenWaitsForURL(t *testing.T) {
	sess, _, pg := testSession(t)
	want := "https://act.ucsd.edu/studentDars/view"
	a := testAttempt(t, Step{Name: StepOpenDegreeAuditReport, Timeout: 2 * time.Second, Expect: ExpectNewPage, URL: want}, sess)
	require.True(t, a.watch())

	popup := pg.Open()
	assert.Equal(t, 2, sess.PageCount(), "new page should be appended on creation")
	assert.False(t, a.settled(), "step must wait for the new page to load")

	_, _, created := pg.Subscribers()
	assert.Equal(t, 0, created, "parent page detector should be removed")

	// A second window is not recorded.
	pg.Open()
	assert.Equal(t, 2, sess.PageCount())

	popup.Load("about:blank")
	assert.False(t, a.settled())
	popup.Load(want)
	require.NoError(t, waitSettled(t, a))

	second, err := sess.Page(1)
	require.NoError(t, err)
	assert.Same(t, popup, second)
}

func TestWatchNewPage_TimeoutKeepsPage(t *testing.T) {
	sess, _, pg := testSession(t)
	a := testAttempt(t, Step{Name: StepOpenDegreeAuditReport, Timeout: 50 * time.Millisecond, Expect: ExpectNewPage, URL: "https://example.com/report"}, sess)
	require.True(t, a.watch())

	popup := pg.Open()
	err := waitSettled(t, a)
	require.ErrorIs(t, err, ErrNavigationTimeout)
	assert.Equal(t, 2, sess.PageCount())

	nav, _, _ := popup.Subscribers()
	assert.Equal(t, 0, nav, "detector on the new page should be removed on timeout")
}

func TestRegistration_BindAfterResolveCancels(t *testing.T) {
	r := &registration{}
	require.True(t, r.resolve())
	assert.False(t, r.resolve())

	cancelled := false
	r.bind(driver.SubscriptionFunc(func() { cancelled = true }))
	assert.True(t, cancelled)
	assert.False(t, r.active())
}

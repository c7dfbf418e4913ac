package tritonlink

import (
	"time"
)

// Step names, in workflow order.
const (
	StepOpenBrowser           = "Open Browser"
	StepCreatePage            = "Create Webpage"
	StepOpenPortal            = "Open Login Page"
	StepLogin                 = "Login to SSO"
	StepOpenDegreeAudit       = "Open Degree Audit Page"
	StepOpenDegreeAuditReport = "Open Degree Audit Report"
	StepGetDegreeAudit        = "Get Degree Audit Report Content"
	StepOpenAcademicHistory   = "Open Academic History Page"
	StepGetAcademicHistory    = "Get Academic History Content"
	StepCloseBrowser          = "Close Browser"
)

// Expectation is how a step recognises that it succeeded.
type Expectation int

const (
	// ExpectReturn succeeds when the step's own driver call returns.
	ExpectReturn Expectation = iota
	// ExpectURL succeeds when a navigation finishes and the page URL equals Step.URL.
	ExpectURL
	// ExpectURLChange succeeds when the page reports a URL change to Step.URL.
	ExpectURLChange
	// ExpectNewPage succeeds when the page opens a new page and that new page
	// finishes navigating to Step.URL.
	ExpectNewPage
)

func (e Expectation) String() string {
	switch e {
	case ExpectReturn:
		return "return"
	case ExpectURL:
		return "url"
	case ExpectURLChange:
		return "url-change"
	case ExpectNewPage:
		return "new-page"
	default:
		return "unknown"
	}
}

// Step describes one stage of the workflow. The table is built once per
// Scraper and never changes while it runs.
type Step struct {
	Name    string
	Timeout time.Duration // zero means unbounded
	Expect  Expectation
	URL     string // expected URL for ExpectURL, ExpectURLChange and ExpectNewPage
	Page    int    // page index the step acts on
	Slot    string // content slot for extraction steps
	From    State
	To      State

	perform func(a *attempt)
}

// Scripts run in the portal pages. Values arrive as bound parameters.
const (
	loginScript = `function(username, password) {
	document.getElementById("ssousername").value = username;
	document.getElementById("ssopassword").value = password;
	document.getElementsByClassName("sso-button")[0].click();
	return true;
}`

	reportScript = `function(target) {
	var form = document.getElementById("unReport").form;
	form.target = target;
	form.submit();
	return true;
}`
)

func buildSteps(cfg Config, creds Credentials) []Step {
	e, t := cfg.Endpoints, cfg.Timeouts
	return []Step{
		{
			Name: StepOpenBrowser, Expect: ExpectReturn,
			From: StateIdle, To: StateCreated,
			perform: launch,
		},
		{
			Name: StepCreatePage, Expect: ExpectReturn,
			From: StateCreated, To: StatePageOpen,
			perform: createPage,
		},
		{
			Name: StepOpenPortal, Timeout: t.OpenPortal, Expect: ExpectURL, URL: e.SSOLogin,
			From: StatePageOpen, To: StatePortalLoaded,
			perform: navigate(e.Portal),
		},
		{
			Name: StepLogin, Timeout: t.Login, Expect: ExpectURLChange, URL: e.Authenticated,
			From: StatePortalLoaded, To: StateAuthenticated,
			perform: runScript(loginScript, creds.Username, creds.Password),
		},
		{
			Name: StepOpenDegreeAudit, Timeout: t.DegreeAudit, Expect: ExpectURL, URL: e.DegreeAudit,
			From: StateAuthenticated, To: StateAuditSelectorOpen,
			perform: navigate(e.DegreeAudit),
		},
		{
			Name: StepOpenDegreeAuditReport, Timeout: t.DegreeAuditReport, Expect: ExpectNewPage, URL: e.DegreeAuditReport,
			From: StateAuditSelectorOpen, To: StateAuditReportOpen,
			perform: runScript(reportScript, cfg.ReportTarget),
		},
		{
			Name: StepGetDegreeAudit, Timeout: t.Content, Expect: ExpectReturn, Page: 1, Slot: SlotDegreeAudit,
			From: StateAuditReportOpen, To: StateAuditExtracted,
			perform: extract(1, SlotDegreeAudit, cfg.MinContentBytes),
		},
		{
			Name: StepOpenAcademicHistory, Timeout: t.AcademicHistory, Expect: ExpectURL, URL: e.AcademicHistory,
			From: StateAuditExtracted, To: StateHistoryOpen,
			perform: navigate(e.AcademicHistory),
		},
		{
			Name: StepGetAcademicHistory, Timeout: t.Content, Expect: ExpectReturn, Page: 0, Slot: SlotAcademicHistory,
			From: StateHistoryOpen, To: StateHistoryExtracted,
			perform: extract(0, SlotAcademicHistory, cfg.MinContentBytes),
		},
		{
			Name: StepCloseBrowser, Expect: ExpectReturn,
			From: StateHistoryExtracted, To: StateClosed,
			perform: closeBrowser,
		},
	}
}

package tritonlink

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Endpoints are the fixed portal URLs the workflow visits or expects.
// Detection compares them to page URLs by exact string equality.
type Endpoints struct {
	Portal            string `json:"portal" yaml:"portal" mapstructure:"portal" validate:"required,url"`
	SSOLogin          string `json:"sso_login" yaml:"sso_login" mapstructure:"sso_login" validate:"required,url"`
	Authenticated     string `json:"authenticated" yaml:"authenticated" mapstructure:"authenticated" validate:"required,url"`
	DegreeAudit       string `json:"degree_audit" yaml:"degree_audit" mapstructure:"degree_audit" validate:"required,url"`
	DegreeAuditReport string `json:"degree_audit_report" yaml:"degree_audit_report" mapstructure:"degree_audit_report" validate:"required,url"`
	AcademicHistory   string `json:"academic_history" yaml:"academic_history" mapstructure:"academic_history" validate:"required,url"`
}

// DefaultEndpoints returns the UCSD TritonLink URLs.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Portal:            "http://mytritonlink.ucsd.edu/",
		SSOLogin:          "https://a4.ucsd.edu/tritON/Authn/UserPassword",
		Authenticated:     "https://act.ucsd.edu/myTritonlink20/display.htm",
		DegreeAudit:       "https://act.ucsd.edu/studentDars/select",
		DegreeAuditReport: "https://act.ucsd.edu/studentDars/view",
		AcademicHistory:   "https://act.ucsd.edu/studentAcademicHistory/academichistorystudentdisplay.htm",
	}
}

// Timeouts bound the steps that wait on the portal. Launching the browser,
// opening the first page and closing the browser are not bounded.
type Timeouts struct {
	OpenPortal        time.Duration `json:"open_portal" yaml:"open_portal" mapstructure:"open_portal" validate:"gt=0"`
	Login             time.Duration `json:"login" yaml:"login" mapstructure:"login" validate:"gt=0"`
	DegreeAudit       time.Duration `json:"degree_audit" yaml:"degree_audit" mapstructure:"degree_audit" validate:"gt=0"`
	DegreeAuditReport time.Duration `json:"degree_audit_report" yaml:"degree_audit_report" mapstructure:"degree_audit_report" validate:"gt=0"`
	AcademicHistory   time.Duration `json:"academic_history" yaml:"academic_history" mapstructure:"academic_history" validate:"gt=0"`
	Content           time.Duration `json:"content" yaml:"content" mapstructure:"content" validate:"gt=0"`
}

// DefaultTimeouts returns the deadlines the portal normally meets.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		OpenPortal:        10 * time.Second,
		Login:             5 * time.Second,
		DegreeAudit:       10 * time.Second,
		DegreeAuditReport: 10 * time.Second,
		AcademicHistory:   10 * time.Second,
		Content:           10 * time.Second,
	}
}

// Credentials are the SSO identifier and secret.
type Credentials struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

// String never prints the password.
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{Username: %q, Password: <redacted>}", c.Username)
}

// Config holds all scraper configuration.
type Config struct {
	Endpoints Endpoints
	Timeouts  Timeouts

	// ReportTarget is the window name the degree audit form is submitted to.
	ReportTarget string `validate:"required"`

	// MinContentBytes rejects documents smaller than this (0 disables the check).
	MinContentBytes int `validate:"gte=0"`

	// Observer is notified as steps start and finish. Optional.
	Observer Observer `validate:"-"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Endpoints:    DefaultEndpoints(),
		Timeouts:     DefaultTimeouts(),
		ReportTarget: "TritonLink2",
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Option configures a Scraper.
type Option func(*Config)

// WithEndpoints replaces the portal URLs.
func WithEndpoints(e Endpoints) Option {
	return func(c *Config) {
		c.Endpoints = e
	}
}

// WithTimeouts replaces the step deadlines.
func WithTimeouts(t Timeouts) Option {
	return func(c *Config) {
		c.Timeouts = t
	}
}

// WithReportTarget sets the window name the degree audit report opens in.
func WithReportTarget(name string) Option {
	return func(c *Config) {
		c.ReportTarget = name
	}
}

// WithMinContentBytes rejects extracted documents smaller than n bytes.
func WithMinContentBytes(n int) Option {
	return func(c *Config) {
		c.MinContentBytes = n
	}
}

// WithObserver registers a progress observer.
func WithObserver(o Observer) Option {
	return func(c *Config) {
		c.Observer = o
	}
}

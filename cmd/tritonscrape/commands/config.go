package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jmylchreest/tritonscrape/cmd/tritonscrape/browser"
	"github.com/jmylchreest/tritonscrape/pkg/tritonlink"
)

var envKeyReplacer = strings.NewReplacer(".", "_", "-", "_")

// Config keys shared by the config file, TRITONSCRAPE_* variables and flags.
const (
	keyUsername   = "username"
	keyPassword   = "password"
	keyTarget     = "report_target"
	keyMinContent = "min_content"

	keyHeadless  = "browser.headless"
	keyChrome    = "browser.chrome_path"
	keyUserAgent = "browser.user_agent"
	keyVerbose   = "browser.verbose"
)

// endpointKeys maps config keys to the endpoint they override.
var endpointKeys = map[string]func(*tritonlink.Endpoints) *string{
	"endpoints.portal":              func(e *tritonlink.Endpoints) *string { return &e.Portal },
	"endpoints.sso_login":           func(e *tritonlink.Endpoints) *string { return &e.SSOLogin },
	"endpoints.authenticated":       func(e *tritonlink.Endpoints) *string { return &e.Authenticated },
	"endpoints.degree_audit":        func(e *tritonlink.Endpoints) *string { return &e.DegreeAudit },
	"endpoints.degree_audit_report": func(e *tritonlink.Endpoints) *string { return &e.DegreeAuditReport },
	"endpoints.academic_history":    func(e *tritonlink.Endpoints) *string { return &e.AcademicHistory },
}

// setDefaults registers every workflow setting with viper so that config
// file, environment and flags all resolve through the same keys.
func setDefaults(v *viper.Viper) {
	def := tritonlink.DefaultConfig()
	for key, field := range endpointKeys {
		v.SetDefault(key, *field(&def.Endpoints))
	}
	v.SetDefault("timeouts.open_portal", def.Timeouts.OpenPortal)
	v.SetDefault("timeouts.login", def.Timeouts.Login)
	v.SetDefault("timeouts.degree_audit", def.Timeouts.DegreeAudit)
	v.SetDefault("timeouts.degree_audit_report", def.Timeouts.DegreeAuditReport)
	v.SetDefault("timeouts.academic_history", def.Timeouts.AcademicHistory)
	v.SetDefault("timeouts.content", def.Timeouts.Content)
	v.SetDefault(keyTarget, def.ReportTarget)
	v.SetDefault(keyMinContent, "0")

	bc := browser.DefaultConfig()
	v.SetDefault(keyHeadless, bc.Headless)
}

// bindFlags binds flags to config keys, keyed by flag name.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) {
	for flag, key := range keys {
		_ = v.BindPFlag(key, flags.Lookup(flag))
	}
}

// scraperOptions reads the workflow settings from v.
func scraperOptions(v *viper.Viper) ([]tritonlink.Option, error) {
	def := tritonlink.DefaultConfig()

	minContent, err := humanize.ParseBytes(v.GetString(keyMinContent))
	if err != nil {
		return nil, fmt.Errorf("invalid min content size: %w", err)
	}
	if minContent > math.MaxInt {
		return nil, fmt.Errorf("invalid min content size: %s is too large", v.GetString(keyMinContent))
	}

	endpoints := def.Endpoints
	for key, field := range endpointKeys {
		*field(&endpoints) = v.GetString(key)
	}

	timeouts := tritonlink.Timeouts{
		OpenPortal:        v.GetDuration("timeouts.open_portal"),
		Login:             v.GetDuration("timeouts.login"),
		DegreeAudit:       v.GetDuration("timeouts.degree_audit"),
		DegreeAuditReport: v.GetDuration("timeouts.degree_audit_report"),
		AcademicHistory:   v.GetDuration("timeouts.academic_history"),
		Content:           v.GetDuration("timeouts.content"),
	}

	return []tritonlink.Option{
		tritonlink.WithEndpoints(endpoints),
		tritonlink.WithTimeouts(timeouts),
		tritonlink.WithReportTarget(v.GetString(keyTarget)),
		tritonlink.WithMinContentBytes(int(minContent)),
	}, nil
}

// browserConfig reads the Chrome settings from v.
func browserConfig(v *viper.Viper) browser.Config {
	cfg := browser.DefaultConfig()
	cfg.Headless = v.GetBool(keyHeadless)
	cfg.ExecPath = v.GetString(keyChrome)
	if ua := v.GetString(keyUserAgent); ua != "" {
		cfg.UserAgent = ua
	}
	cfg.Verbose = v.GetBool(keyVerbose)
	return cfg
}

// credentials resolves the username and password. With fromStdin the
// password is the first line of stdin and any configured one is ignored.
func credentials(v *viper.Viper, stdin io.Reader, fromStdin bool) (tritonlink.Credentials, error) {
	creds := tritonlink.Credentials{
		Username: strings.TrimSpace(v.GetString(keyUsername)),
		Password: v.GetString(keyPassword),
	}

	if fromStdin {
		line, err := bufio.NewReader(stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return creds, fmt.Errorf("failed to read password from stdin: %w", err)
		}
		creds.Password = strings.TrimRight(line, "\r\n")
	}

	switch {
	case creds.Username == "":
		return creds, errors.New("username is required (--username or TRITONSCRAPE_USERNAME)")
	case creds.Password == "":
		return creds, errors.New("password is required (--password-stdin or TRITONSCRAPE_PASSWORD)")
	}
	return creds, nil
}

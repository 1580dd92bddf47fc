// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

package admdiags

type sourcelessDiagnostic struct {
	severity Severity
	summary  string
	detail   string
	subject  string
}

var _ Diagnostic = sourcelessDiagnostic{}

// Sourceless creates a new Diagnostic with the given severity and details
// that is not associated with any particular input artifact.
func Sourceless(severity Severity, summary, detail string) Diagnostic {
	return sourcelessDiagnostic{
		severity: severity,
		summary:  summary,
		detail:   detail,
	}
}

// WithSubject creates a Diagnostic whose description names the input it is
// about, such as a layout file path or a scope token.
func WithSubject(severity Severity, subject, summary, detail string) Diagnostic {
	return sourcelessDiagnostic{
		severity: severity,
		summary:  summary,
		detail:   detail,
		subject:  subject,
	}
}

func (d sourcelessDiagnostic) Severity() Severity {
	return d.severity
}

func (d sourcelessDiagnostic) Description() Description {
	return Description{
		Subject: d.subject,
		Summary: d.summary,
		Detail:  d.detail,
	}
}

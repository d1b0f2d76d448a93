package model

import (
	"errors"
	"log/slog"
)

// ErrMissingCredentials is returned when the mail credential identifier or the
// application password is absent at notification time.
var ErrMissingCredentials = errors.New("mail credentials not configured: set GMAIL_USER and GMAIL_APP_PWD")

// Secrets holds the two opaque values injected by the runner for one run.
// They are never rendered by String or by slog.
type Secrets struct {
	User        string
	AppPassword string
}

// Complete reports whether both values are present.
func (s Secrets) Complete() bool {
	return s.User != "" && s.AppPassword != ""
}

// String redacts both values.
func (s Secrets) String() string {
	return "Secrets{redacted}"
}

// LogValue implements slog.LogValuer. Only presence is logged.
func (s Secrets) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("user_set", s.User != ""),
		slog.Bool("app_password_set", s.AppPassword != ""),
	)
}

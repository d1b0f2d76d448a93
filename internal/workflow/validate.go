package workflow

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrInvalidWorkflow is returned when a workflow cannot be parsed or violates
// one of the checked properties.
var ErrInvalidWorkflow = errors.New("invalid workflow")

// Expectations describe what a valid workflow must contain.
type Expectations struct {
	// Cron is the expected schedule. Empty accepts any daily fixed-time rule.
	Cron string
	// EntryPoint is the exact command of the single step that runs the job.
	EntryPoint string
	// Secrets are environment variable names that must be sourced from
	// repository secrets of the same name.
	Secrets []string
}

// DefaultExpectations returns the expectations for the doji alert workflow.
func DefaultExpectations() Expectations {
	return Expectations{
		Cron:       "50 3 * * *",
		EntryPoint: "go run ./cmd/dojialert run",
		Secrets:    []string{"GMAIL_USER", "GMAIL_APP_PWD"},
	}
}

var anySecretRef = regexp.MustCompile(`secrets\.[A-Za-z_][A-Za-z0-9_]*`)

// Validate checks wf against exp and returns every violation found, joined
// and wrapped with ErrInvalidWorkflow.
func Validate(wf *Workflow, exp Expectations) error {
	var errs []error
	errs = append(errs, validateTriggers(wf, exp)...)
	errs = append(errs, validateEntryPoint(wf, exp)...)
	errs = append(errs, validateSecrets(wf, exp)...)

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidWorkflow, errors.Join(errs...))
}

func validateTriggers(wf *Workflow, exp Expectations) []error {
	var errs []error

	if !wf.Triggers.Dispatch {
		errs = append(errs, errors.New("trigger: workflow_dispatch is missing"))
	}

	if len(wf.Triggers.Schedules) != 1 {
		return append(errs, fmt.Errorf("trigger: want exactly one schedule, got %d", len(wf.Triggers.Schedules)))
	}

	expr := wf.Triggers.Schedules[0]
	hour, minute, err := DailyUTC(expr)
	if err != nil {
		return append(errs, fmt.Errorf("schedule: %w", err))
	}

	if exp.Cron != "" {
		wantHour, wantMinute, err := DailyUTC(exp.Cron)
		if err != nil {
			return append(errs, fmt.Errorf("expected schedule: %w", err))
		}
		if hour != wantHour || minute != wantMinute {
			errs = append(errs, fmt.Errorf("schedule: fires at %02d:%02d UTC, want %02d:%02d UTC",
				hour, minute, wantHour, wantMinute))
		}
	}

	return errs
}

func validateEntryPoint(wf *Workflow, exp Expectations) []error {
	if exp.EntryPoint == "" {
		return nil
	}

	var found []string
	for _, jobName := range wf.JobNames() {
		for i, step := range wf.Jobs[jobName].Steps {
			if strings.Contains(step.Run, exp.EntryPoint) {
				found = append(found, fmt.Sprintf("%s.steps[%d]", jobName, i))
				if strings.TrimSpace(step.Run) != exp.EntryPoint {
					return []error{fmt.Errorf("entry point: %s.steps[%d] runs %q, want exactly %q",
						jobName, i, strings.TrimSpace(step.Run), exp.EntryPoint)}
				}
			}
		}
	}

	if len(found) != 1 {
		return []error{fmt.Errorf("entry point: want exactly one step running %q, found %d %v",
			exp.EntryPoint, len(found), found)}
	}
	return nil
}

// validateSecrets requires each named secret to reach the entry-point step
// as an environment variable whose value is exactly the secret expression,
// and forbids secret references anywhere except env values.
func validateSecrets(wf *Workflow, exp Expectations) []error {
	var errs []error

	errs = append(errs, checkEnvMap("env", wf.Env, exp.Secrets)...)
	for _, jobName := range wf.JobNames() {
		job := wf.Jobs[jobName]
		errs = append(errs, checkEnvMap(jobName+".env", job.Env, exp.Secrets)...)

		for i, step := range job.Steps {
			where := fmt.Sprintf("%s.steps[%d]", jobName, i)
			errs = append(errs, checkEnvMap(where+".env", step.Env, exp.Secrets)...)

			if ref := anySecretRef.FindString(step.Run); ref != "" {
				errs = append(errs, fmt.Errorf("secrets: %s.run references %s; secrets may only be env values", where, ref))
			}
			for k, v := range step.With {
				if ref := anySecretRef.FindString(v); ref != "" {
					errs = append(errs, fmt.Errorf("secrets: %s.with.%s references %s; secrets may only be env values", where, k, ref))
				}
			}

			if exp.EntryPoint != "" && strings.Contains(step.Run, exp.EntryPoint) {
				for _, name := range exp.Secrets {
					if _, ok := resolveEnv(name, wf.Env, job.Env, step.Env); !ok {
						errs = append(errs, fmt.Errorf("secrets: %s is not provided to %s", name, where))
					}
				}
			}
		}
	}

	return errs
}

// checkEnvMap rejects secret names bound to anything other than their own
// secret expression.
func checkEnvMap(where string, env map[string]string, secrets []string) []error {
	var errs []error
	for _, name := range secrets {
		value, ok := env[name]
		if !ok {
			continue
		}
		if !isSecretExpr(value, name) {
			errs = append(errs, fmt.Errorf("secrets: %s.%s must be ${{ secrets.%s }}, not a literal", where, name, name))
		}
	}
	return errs
}

// resolveEnv returns the effective value of name, with step env overriding job
// env overriding workflow env.
func resolveEnv(name string, scopes ...map[string]string) (string, bool) {
	var (
		value string
		found bool
	)
	for _, scope := range scopes {
		if v, ok := scope[name]; ok {
			value, found = v, true
		}
	}
	return value, found
}

func isSecretExpr(value, name string) bool {
	v := strings.TrimSpace(value)
	if !strings.HasPrefix(v, "${{") || !strings.HasSuffix(v, "}}") {
		return false
	}
	inner := strings.TrimSpace(v[3 : len(v)-2])
	return inner == "secrets."+name
}

// DailyUTC reports the UTC hour and minute of a standard five-field cron
// expression that fires exactly once every day at a fixed time.
func DailyUTC(expr string) (hour, minute int, err error) {
	if _, err := cron.ParseStandard(expr); err != nil {
		return 0, 0, fmt.Errorf("parse %q: %w", expr, err)
	}

	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return 0, 0, fmt.Errorf("%q: want five fields", expr)
	}
	if fields[2] != "*" || fields[3] != "*" || fields[4] != "*" {
		return 0, 0, fmt.Errorf("%q: day-of-month, month and day-of-week must be *", expr)
	}

	minute, err = strconv.Atoi(fields[0])
	if err != nil {
		return 0, 0, fmt.Errorf("%q: minute must be a single value", expr)
	}
	hour, err = strconv.Atoi(fields[1])
	if err != nil {
		return 0, 0, fmt.Errorf("%q: hour must be a single value", expr)
	}

	return hour, minute, nil
}

// NextFire returns the first time after t at which expr fires, in UTC.
func NextFire(expr string, t time.Time) (time.Time, error) {
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %q: %w", expr, err)
	}
	return schedule.Next(t.UTC()), nil
}

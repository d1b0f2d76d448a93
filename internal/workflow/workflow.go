// Package workflow parses the CI workflow that runs the scan and checks it
// against the properties the job relies on: a daily fixed-time UTC schedule
// plus an on-demand trigger, a single entry-point step, and mail credentials
// that only ever arrive through secret-sourced environment variables.
package workflow

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the workflow lives relative to the repository root.
const DefaultPath = ".github/workflows/doji_alert.yml"

// Workflow is a parsed CI workflow definition.
type Workflow struct {
	Name     string
	Triggers Triggers
	Env      map[string]string
	Jobs     map[string]*Job
}

// Triggers is the normalized form of the workflow's "on" key.
type Triggers struct {
	// Events lists every trigger name, sorted.
	Events []string
	// Schedules holds the cron expressions of the schedule trigger, in file order.
	Schedules []string
	// Dispatch reports whether the workflow can be started on demand.
	Dispatch bool
}

// Job is a single job of the workflow.
type Job struct {
	Name   string            `yaml:"name"`
	RunsOn any               `yaml:"runs-on"`
	Env    map[string]string `yaml:"env"`
	Steps  []Step            `yaml:"steps"`
}

// Step is a single step of a job.
type Step struct {
	ID   string            `yaml:"id"`
	Name string            `yaml:"name"`
	Uses string            `yaml:"uses"`
	Run  string            `yaml:"run"`
	With map[string]string `yaml:"with"`
	Env  map[string]string `yaml:"env"`
}

// rawWorkflow is the intermediate YAML structure before normalization.
type rawWorkflow struct {
	Name string            `yaml:"name"`
	On   yaml.Node         `yaml:"on"`
	Env  map[string]string `yaml:"env"`
	Jobs map[string]*Job   `yaml:"jobs"`
}

type scheduleEntry struct {
	Cron string `yaml:"cron"`
}

// Parse parses a workflow YAML definition.
func Parse(data []byte) (*Workflow, error) {
	var raw rawWorkflow
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: parse workflow YAML: %w", ErrInvalidWorkflow, err)
	}

	if len(raw.Jobs) == 0 {
		return nil, fmt.Errorf("%w: workflow has no jobs", ErrInvalidWorkflow)
	}

	triggers, err := parseTriggers(&raw.On)
	if err != nil {
		return nil, fmt.Errorf("%w: on: %w", ErrInvalidWorkflow, err)
	}

	for key, job := range raw.Jobs {
		if job == nil {
			return nil, fmt.Errorf("%w: job %q is empty", ErrInvalidWorkflow, key)
		}
	}

	return &Workflow{
		Name:     raw.Name,
		Triggers: triggers,
		Env:      raw.Env,
		Jobs:     raw.Jobs,
	}, nil
}

// ParseFile reads and parses the workflow at path.
func ParseFile(path string) (*Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workflow: %w", err)
	}

	wf, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return wf, nil
}

// parseTriggers normalizes "on", which may be a single event name, a list of
// event names, or a mapping of event name to configuration.
func parseTriggers(node *yaml.Node) (Triggers, error) {
	var t Triggers

	switch node.Kind {
	case 0:
		return t, errors.New("missing")
	case yaml.ScalarNode:
		t.Events = []string{node.Value}
	case yaml.SequenceNode:
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode {
				return t, errors.New("event list must contain strings")
			}
			t.Events = append(t.Events, item.Value)
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, value := node.Content[i], node.Content[i+1]
			t.Events = append(t.Events, key.Value)
			if key.Value != "schedule" {
				continue
			}
			var entries []scheduleEntry
			if err := value.Decode(&entries); err != nil {
				return t, fmt.Errorf("schedule: %w", err)
			}
			for _, e := range entries {
				t.Schedules = append(t.Schedules, e.Cron)
			}
		}
	default:
		return t, fmt.Errorf("unsupported node kind %d", node.Kind)
	}

	for _, ev := range t.Events {
		if ev == "workflow_dispatch" {
			t.Dispatch = true
		}
	}
	sort.Strings(t.Events)

	return t, nil
}

// JobNames returns the workflow's job keys, sorted.
func (w *Workflow) JobNames() []string {
	names := make([]string, 0, len(w.Jobs))
	for name := range w.Jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

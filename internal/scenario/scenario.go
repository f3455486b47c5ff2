// Package scenario describes scripted sim sessions: an ordered list of
// steps driven through a running engine with sim actors behind it. The
// default session ships embedded; others load from YAML files.
package scenario

import (
	"errors"
	"fmt"
)

// CurrentVersion gates scenario files against format drift.
const CurrentVersion = 1

// Step actions. Each names a verb the runner knows how to drive.
const (
	ActionLoad       = "load"
	ActionIFrame     = "iframe"
	ActionCanvas     = "canvas"
	ActionWebGL      = "webgl"
	ActionAlert      = "alert"
	ActionKey        = "key"
	ActionHide       = "hide"
	ActionShow       = "show"
	ActionScriptLoad = "script-load"
	ActionBack       = "back"
	ActionForward    = "forward"
	ActionRemove     = "remove"
	ActionCrash      = "crash"
)

// Scenario is a named, ordered session script.
type Scenario struct {
	Version int    `yaml:"version"`
	Name    string `yaml:"name"`
	Steps   []Step `yaml:"steps"`
}

// Step is one scripted action. Action selects the verb; the remaining
// fields parameterize it and unused ones stay zero.
type Step struct {
	Action    string `yaml:"action"`
	URL       string `yaml:"url,omitempty"`
	Title     string `yaml:"title,omitempty"`
	Favicon   string `yaml:"favicon,omitempty"`
	Subpage   uint32 `yaml:"subpage,omitempty"`
	Width     int32  `yaml:"width,omitempty"`
	Height    int32  `yaml:"height,omitempty"`
	Message   string `yaml:"message,omitempty"`
	Char      string `yaml:"char,omitempty"`
	Reason    string `yaml:"reason,omitempty"`
	Sandboxed bool   `yaml:"sandboxed,omitempty"`
}

// Validate checks the version gate and every step's required fields.
func (s Scenario) Validate() error {
	if s.Version != CurrentVersion {
		return fmt.Errorf("unsupported scenario version %d (want %d)", s.Version, CurrentVersion)
	}
	if len(s.Steps) == 0 {
		return errors.New("scenario has no steps")
	}
	if s.Steps[0].Action != ActionLoad {
		return errors.New("first step must load a page")
	}
	for i, step := range s.Steps {
		if err := step.validate(); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	return nil
}

func (st Step) validate() error {
	switch st.Action {
	case ActionLoad, ActionScriptLoad:
		if st.URL == "" {
			return fmt.Errorf("%s needs a url", st.Action)
		}
	case ActionIFrame:
		if st.URL == "" {
			return errors.New("iframe needs a url")
		}
		if st.Subpage == 0 {
			return errors.New("iframe needs a subpage")
		}
	case ActionAlert:
		if st.Message == "" {
			return errors.New("alert needs a message")
		}
	case ActionKey:
		if st.Char == "" {
			return errors.New("key needs a char")
		}
	case ActionRemove:
		if st.Subpage == 0 {
			return errors.New("remove needs a subpage")
		}
	case ActionCrash:
		if st.Reason == "" {
			return errors.New("crash needs a reason")
		}
	case ActionCanvas, ActionWebGL, ActionHide, ActionShow, ActionBack, ActionForward:
	case "":
		return errors.New("step has no action")
	default:
		return fmt.Errorf("unknown action %q", st.Action)
	}
	return nil
}

package taskfile

import (
	"fmt"
	"regexp"

	trerrors "github.com/taskrunner-go/taskrunner/internal/errors"
)

// Validate checks a document for structural correctness. Unknown
// variable and helper references are deliberately not checked here:
// they are tolerated at run time by design.
func Validate(d *Document) error {
	taskNames := map[string]bool{}
	for _, t := range d.Tasks {
		taskNames[t.Name] = true
	}

	for _, t := range d.Tasks {
		if err := validateCommon(t, "task"); err != nil {
			return err
		}
		if t.Check != "" {
			if _, err := regexp.Compile(t.Check); err != nil {
				return trerrors.NewConfigError(t.Name, fmt.Sprintf("invalid check pattern: %v", err))
			}
		}
		if err := validateHookTargets(t, taskNames); err != nil {
			return err
		}
	}

	for _, h := range d.Helpers {
		if err := validateCommon(h, "helper"); err != nil {
			return err
		}
		if h.Check != "" {
			return trerrors.NewConfigError(h.Name, "check is only valid on tasks")
		}
		if h.Prerequisites != "" {
			return trerrors.NewConfigError(h.Name, "prerequisites are only valid on tasks")
		}
		if h.RequireInput.Required {
			return trerrors.NewConfigError(h.Name, "require_input is only valid on tasks")
		}
		if err := validateHookTargets(h, taskNames); err != nil {
			return err
		}
	}

	return nil
}

func validateCommon(s *Spec, kind string) error {
	if s.Name == "" {
		return trerrors.NewConfigError("", fmt.Sprintf("%s with empty name", kind))
	}
	// each iterates a single command template; a discrete command list
	// has nothing to substitute into.
	if !s.Each.IsZero() && len(s.Run.Argv) > 0 {
		return trerrors.NewConfigError(s.Name, "each requires run to be a single string, not a list")
	}
	return nil
}

func validateHookTargets(s *Spec, taskNames map[string]bool) error {
	for _, h := range []*Hook{s.OnSuccess, s.OnFailure} {
		if h == nil || h.SkipTo == "" {
			continue
		}
		if !taskNames[h.SkipTo] {
			return trerrors.NewConfigError(s.Name, fmt.Sprintf("skip_to names unknown task %q", h.SkipTo))
		}
	}
	return nil
}

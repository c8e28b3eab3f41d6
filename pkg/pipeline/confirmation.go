package pipeline

import (
	"context"
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/corvyn/toolcore/pkg/tool"
)

// ConfirmationHandler decides whether to proceed with an invocation that
// either the Permission stage resolved to "ask" or whose ToolInvocation
// itself requested confirmation.
type ConfirmationHandler interface {
	Confirm(ctx context.Context, details *tool.ConfirmationDetails) (bool, error)
}

// AutoApprover always approves, the behavior AutoEdit/Yolo modes want once
// the Permission stage has already resolved "ask" to "allow" (in which
// case the Confirmation stage should not re-prompt).
type AutoApprover struct{}

func (AutoApprover) Confirm(ctx context.Context, details *tool.ConfirmationDetails) (bool, error) {
	return true, nil
}

// AutoRejecter always rejects, useful for unattended/CI runs where an
// "ask" or an invocation-level confirmation must fail closed rather than
// block forever on a prompt nobody will answer.
type AutoRejecter struct{}

func (AutoRejecter) Confirm(ctx context.Context, details *tool.ConfirmationDetails) (bool, error) {
	return false, nil
}

// HuhConfirmer prompts interactively via a charmbracelet/huh confirmation
// form, generalizing the teacher's bufio.Scanner-based CLIApprover into a
// proper form the way the rest of the teacher's CLI surface already uses
// huh for prompts.
type HuhConfirmer struct {
	// AlwaysApprove tracks confirmation titles (ConfirmationDetails.Title)
	// the operator marked "always" during this run, mirroring CLIApprover's
	// alwaysApprove set.
	AlwaysApprove map[string]bool
}

// NewHuhConfirmer returns a confirmer with an empty always-approve set.
func NewHuhConfirmer() *HuhConfirmer {
	return &HuhConfirmer{AlwaysApprove: make(map[string]bool)}
}

func (h *HuhConfirmer) Confirm(ctx context.Context, details *tool.ConfirmationDetails) (bool, error) {
	if details == nil {
		return true, nil
	}
	if h.AlwaysApprove[details.Title] {
		return true, nil
	}

	var choice string
	options := []huh.Option[string]{
		huh.NewOption("Yes", "yes"),
		huh.NewOption("No", "no"),
		huh.NewOption("Always allow this", "always"),
	}

	description := details.Description
	if len(details.AffectedPaths) > 0 {
		description = fmt.Sprintf("%s\nAffected paths: %v", description, details.AffectedPaths)
	}

	form := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title(details.Title).
			Description(description).
			Options(options...).
			Value(&choice),
	))

	if err := form.RunWithContext(ctx); err != nil {
		return false, fmt.Errorf("pipeline: confirmation prompt: %w", err)
	}

	switch choice {
	case "always":
		h.AlwaysApprove[details.Title] = true
		return true, nil
	case "yes":
		return true, nil
	default:
		return false, nil
	}
}

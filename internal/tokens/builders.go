package tokens

import (
	"github.com/SAP-F-2025/question-bank-service/internal/policy"
)

const (
	WorkflowRichContent = "rich_content"
	WorkflowUI          = "ui"
)

// RichContentPayload tells the editor what the user may do in the context.
// Capabilities are expected to already include grants from the parent account.
func RichContentPayload(s Subject) map[string]any {
	caps := s.Capabilities
	if caps == nil {
		caps = policy.NewCapabilitySet()
	}

	usageRightsRequired := false
	canCreatePages := false
	if s.Context != nil && s.Context.Ref.IsCourse() {
		usageRightsRequired = s.Context.UsageRightsRequired
		canCreatePages = caps.Has(policy.CreatePages)
	}

	return map[string]any{
		"usage_rights_required": usageRightsRequired,
		"can_upload_files":      caps.Has(policy.ManageFiles),
		"can_create_pages":      canCreatePages,
	}
}

func UIPayload(s Subject) map[string]any {
	return map[string]any{
		"use_high_contrast": s.User != nil && s.User.PrefersHighContrast,
	}
}

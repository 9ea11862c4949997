package fork

import (
	"fmt"
	"strings"

	"github.com/Strob0t/promptbox/internal/domain"
	"github.com/Strob0t/promptbox/internal/domain/agent"
)

// CreateRequest asks the manager to spawn a new fork.
type CreateRequest struct {
	Agent               string          `json:"agent"`
	ModelTier           agent.Tier      `json:"modelTier"`
	Prompt              string          `json:"prompt"`
	IncludeSummary      bool            `json:"includeSummary"`
	ConversationHistory []agent.Message `json:"conversationHistory,omitempty"`
}

// Validate checks required fields and enumerations. Agent existence is
// checked by the manager against the live catalog.
func (r *CreateRequest) Validate() error {
	if r.Agent == "" {
		return fmt.Errorf("%w: agent is required", domain.ErrValidation)
	}
	if r.ModelTier == "" {
		r.ModelTier = agent.TierDefault
	}
	if !agent.ValidTier(string(r.ModelTier)) {
		return fmt.Errorf("%w: invalid modelTier %q", domain.ErrValidation, r.ModelTier)
	}
	if strings.TrimSpace(r.Prompt) == "" {
		return fmt.Errorf("%w: prompt is required", domain.ErrValidation)
	}
	for i, m := range r.ConversationHistory {
		if m.Role != agent.RoleUser && m.Role != agent.RoleAgent {
			return fmt.Errorf("%w: conversationHistory[%d]: invalid role %q", domain.ErrValidation, i, m.Role)
		}
	}
	return nil
}

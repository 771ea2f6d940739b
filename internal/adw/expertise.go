package adw

import (
	"context"
	"encoding/json"
	"fmt"

	"kotadb/internal/kerrors"
	"kotadb/internal/store"
	"kotadb/internal/tools"
)

// expertisePatternType is the store.Pattern.PatternType used for per-domain
// expertise notes, so UpsertPattern's unique-per-pattern_type semantics
// give sync_expertise "one row per domain, last writer wins" for free.
const expertisePatternType = "expertise:"

// RegisterExpertiseTools adds validate_expertise and sync_expertise to reg
// under TierExpertise (§4.7). These are registered by the adw package
// rather than internal/tools/catalog.go because they're specific to the
// improve phase's domain-expertise workflow (§4.11 step 4), not the
// general-purpose catalog every toolset below TierExpertise sees.
func RegisterExpertiseTools(reg *tools.Registry, st *store.Store) error {
	if err := reg.Register(validateExpertiseTool(st)); err != nil {
		return err
	}
	return reg.Register(syncExpertiseTool(st))
}

func validateExpertiseTool(st *store.Store) *tools.Tool {
	return &tools.Tool{
		Name:        "validate_expertise",
		Description: "Check whether a domain has a recorded expertise note and return it for review before overwriting.",
		Tier:        tools.TierExpertise,
		Schema: tools.ToolSchema{
			Required: []string{"repository_id", "domain"},
			Properties: map[string]tools.Property{
				"repository_id": {Type: "string"},
				"domain":        {Type: "string"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			repositoryID, _ := args["repository_id"].(string)
			domain, _ := args["domain"].(string)
			if domain == "" {
				return "", fmt.Errorf("%w: domain is required", kerrors.ErrInvalidParams)
			}

			patterns, err := st.SearchPatterns(expertisePatternType+domain, "", repositoryID, 1)
			if err != nil {
				return "", err
			}
			exists := len(patterns) > 0
			out := struct {
				Domain string         `json:"domain"`
				Exists bool           `json:"exists"`
				Note   *store.Pattern `json:"note,omitempty"`
			}{Domain: domain, Exists: exists}
			if exists {
				out.Note = &patterns[0]
			}
			data, err := json.Marshal(out)
			return string(data), err
		},
	}
}

func syncExpertiseTool(st *store.Store) *tools.Tool {
	return &tools.Tool{
		Name:        "sync_expertise",
		Description: "Write or replace the expertise note for a domain, recorded from the improve phase's companion commit (§4.11).",
		Tier:        tools.TierExpertise,
		Schema: tools.ToolSchema{
			Required: []string{"repository_id", "domain", "content"},
			Properties: map[string]tools.Property{
				"repository_id": {Type: "string"},
				"domain":        {Type: "string"},
				"content":       {Type: "string"},
				"file_path":     {Type: "string"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			repositoryID, _ := args["repository_id"].(string)
			domain, _ := args["domain"].(string)
			content, _ := args["content"].(string)
			filePath, _ := args["file_path"].(string)
			if domain == "" || content == "" {
				return "", fmt.Errorf("%w: domain and content are required", kerrors.ErrInvalidParams)
			}

			id, err := st.UpsertPattern(store.Pattern{
				RepositoryID: repositoryID,
				PatternType:  expertisePatternType + domain,
				FilePath:     filePath,
				Description:  fmt.Sprintf("expertise note for domain %s", domain),
				Example:      content,
			})
			if err != nil {
				return "", err
			}
			data, err := json.Marshal(struct {
				ID     string `json:"id"`
				Domain string `json:"domain"`
			}{ID: id, Domain: domain})
			return string(data), err
		},
	}
}

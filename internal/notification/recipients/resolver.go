// Package recipients turns a broadcast audience into concrete users.
package recipients

import (
	"context"
	"fmt"

	"edumatch-notifications/internal/common/errors"
	"edumatch-notifications/internal/common/logger"
	"edumatch-notifications/internal/models"
	"edumatch-notifications/internal/notification/directory"
)

const DefaultPageSize = 100

const (
	RoleApplicant = "ROLE_USER"
	RoleProvider  = "ROLE_EMPLOYER"
)

// Directory is the user listing the resolver pages through.
type Directory interface {
	ListUsers(ctx context.Context, q directory.Query, token string) (*models.DirectoryPage, error)
}

// Selector is a resolvable audience. Contact is only read for SPECIFIC.
type Selector struct {
	Audience  models.Audience
	Contact   string
	AuthToken string
}

type Resolver struct {
	dir      Directory
	pageSize int
	logger   logger.Logger
}

func NewResolver(dir Directory, pageSize int, log logger.Logger) *Resolver {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Resolver{dir: dir, pageSize: pageSize, logger: log}
}

// Resolve lists the audience's users, deduplicated by ID in first-seen order.
// A failing directory page ends paging; whatever was collected is returned.
func (r *Resolver) Resolve(ctx context.Context, sel Selector) ([]models.Recipient, error) {
	switch sel.Audience {
	case models.AudienceAllUsers, models.AudiencePremium:
		// no subscription data upstream; premium goes to everyone
		return r.collect(ctx, "", sel.AuthToken), nil
	case models.AudienceApplicants:
		return r.collect(ctx, RoleApplicant, sel.AuthToken), nil
	case models.AudienceProviders:
		return r.collect(ctx, RoleProvider, sel.AuthToken), nil
	case models.AudienceSpecific:
		return r.specific(ctx, sel), nil
	default:
		return nil, errors.NewInvalidRequestError(fmt.Sprintf("unsupported audience %q", sel.Audience))
	}
}

func (r *Resolver) collect(ctx context.Context, role, token string) []models.Recipient {
	seen := make(map[int64]struct{})
	var out []models.Recipient

	for page := 0; ; page++ {
		res, err := r.dir.ListUsers(ctx, directory.Query{Page: page, Size: r.pageSize, Role: role}, token)
		if err != nil {
			r.logger.Warn("directory page failed, using partial recipient list", map[string]interface{}{
				"role":      role,
				"page":      page,
				"collected": len(out),
				"error":     errors.NewDirectoryUnavailableError(err),
			})
			return out
		}

		out = appendUnique(out, seen, res.Users)

		if page >= res.TotalPages-1 {
			return out
		}
	}
}

func (r *Resolver) specific(ctx context.Context, sel Selector) []models.Recipient {
	if sel.Contact == "" {
		return nil
	}

	res, err := r.dir.ListUsers(ctx, directory.Query{Page: 0, Size: 1, Keyword: sel.Contact}, sel.AuthToken)
	if err != nil {
		r.logger.Warn("directory lookup failed", map[string]interface{}{
			"error": errors.NewDirectoryUnavailableError(err),
		})
		return nil
	}

	out := appendUnique(nil, map[int64]struct{}{}, res.Users)
	if len(out) > 1 {
		out = out[:1]
	}
	return out
}

func appendUnique(out []models.Recipient, seen map[int64]struct{}, users []models.DirectoryUser) []models.Recipient {
	for _, u := range users {
		if !u.ID.Valid {
			continue
		}
		if _, dup := seen[u.ID.Value]; dup {
			continue
		}
		seen[u.ID.Value] = struct{}{}
		out = append(out, models.Recipient{ID: u.ID.Value, Email: u.Email})
	}
	return out
}

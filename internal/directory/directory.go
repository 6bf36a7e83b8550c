// Package directory lists and filters the subjects known to the backend.
package directory

import (
	"context"
	"log/slog"
	"strings"

	"github.com/Veraticus/caseworker/internal/model"
)

// DefaultWarnSize is the listing size above which client-side filtering is
// flagged as a scaling risk.
const DefaultWarnSize = 5000

// Lister fetches every user.
type Lister interface {
	ListUsers(ctx context.Context) ([]model.User, error)
}

// Load fetches the full user list once. Filtering happens locally, so a
// warning is logged when the set grows past warnSize.
func Load(ctx context.Context, lister Lister, warnSize int) ([]model.User, error) {
	users, err := lister.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	if warnSize <= 0 {
		warnSize = DefaultWarnSize
	}
	if len(users) > warnSize {
		slog.Warn("User list is large; filtering is done client-side",
			"users", len(users),
			"warn_size", warnSize)
	}
	if users == nil {
		users = []model.User{}
	}
	return users, nil
}

// Filter returns users whose full name or email contains query, ignoring
// case. The query is matched as typed; an empty query returns every user.
func Filter(users []model.User, query string) []model.User {
	query = strings.ToLower(query)
	out := make([]model.User, 0, len(users))
	for _, u := range users {
		if query == "" ||
			strings.Contains(strings.ToLower(u.FullName), query) ||
			strings.Contains(strings.ToLower(u.Email), query) {
			out = append(out, u)
		}
	}
	return out
}

package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/coinhatch/coinhatch/internal/audit"
	"github.com/coinhatch/coinhatch/internal/domain"
	"github.com/coinhatch/coinhatch/internal/repository"
	"github.com/coinhatch/coinhatch/pkg/jwt"
	"github.com/coinhatch/coinhatch/pkg/log"
)

// Resolver maps an external identity-provider subject to an internal
// user record, creating the record on first sight.
type Resolver struct {
	users   repository.UserRepository
	timeout time.Duration
}

// NewResolver creates a resolver backed by the user repository.
func NewResolver(users repository.UserRepository, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Resolver{users: users, timeout: timeout}
}

// Resolve returns the internal user for the given verified claims,
// inserting a new record the first time a subject is seen.
func (r *Resolver) Resolve(ctx context.Context, claims *jwt.Claims) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	user, err := r.users.GetBySubject(ctx, claims.Subject)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}

	user = &domain.User{
		Subject:  claims.Subject,
		Username: displayName(claims),
		Email:    claims.Email,
	}
	if err := r.users.Create(ctx, user); err != nil {
		// Two connections can race on first sight; the loser re-reads
		// the row the winner inserted.
		if existing, lookupErr := r.users.GetBySubject(ctx, claims.Subject); lookupErr == nil {
			return existing, nil
		}
		return nil, err
	}

	l := log.Ctx(ctx)
	l.Info().Str(log.FieldUserID, user.ID).Str(log.FieldSubject, user.Subject).Msg("created user on first sight")
	audit.Log(ctx, audit.ActionUserFirstSeen, user.ID, "user record created from identity claims")

	return user, nil
}

// displayName picks a human-readable name from the claims, falling back
// to the email local part and finally the raw subject.
func displayName(claims *jwt.Claims) string {
	if claims.Username != "" {
		return claims.Username
	}
	if claims.Email != "" {
		if at := strings.Index(claims.Email, "@"); at > 0 {
			return claims.Email[:at]
		}
		return claims.Email
	}
	return claims.Subject
}

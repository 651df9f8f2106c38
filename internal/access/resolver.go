package access

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// ProfileStore is the single point-read the resolver needs: the role and
// status columns of one user profile.
type ProfileStore interface {
	RoleByUserID(ctx context.Context, userID int64) (role string, status ProfileStatus, err error)
}

// Resolution pairs a resolved role with its permission tree. It is only ever
// handed out complete; an unresolved user yields no Resolution at all.
type Resolution struct {
	Role        Role
	Permissions PermissionTree
}

type cacheEntry struct {
	resolution Resolution
	expiresAt  time.Time
}

// Resolver binds authenticated users to their permission trees. Resolutions
// are cached per user with a TTL; Invalidate drops a user after sign-out or
// a role change. Every failure path resolves to "no access".
type Resolver struct {
	store        ProfileStore
	logger       *slog.Logger
	ttl          time.Duration
	fetchTimeout time.Duration
	now          func() time.Time

	mu      sync.Mutex
	entries map[int64]cacheEntry
	gens    map[int64]uint64
}

// ResolverConfig tunes cache lifetime and the profile fetch deadline.
type ResolverConfig struct {
	TTL          time.Duration
	FetchTimeout time.Duration
	Now          func() time.Time
}

// NewResolver constructs a Resolver around the given profile store.
func NewResolver(store ProfileStore, logger *slog.Logger, cfg ResolverConfig) *Resolver {
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 3 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Resolver{
		store:        store,
		logger:       logger,
		ttl:          cfg.TTL,
		fetchTimeout: cfg.FetchTimeout,
		now:          cfg.Now,
		entries:      make(map[int64]cacheEntry),
		gens:         make(map[int64]uint64),
	}
}

// Resolve returns the cached or freshly loaded resolution for a user. The
// second return value is false while unresolved: missing profile, pending or
// rejected status, unknown role value, or a fetch error. Errors are logged
// and not retried; the caller re-triggers on the next request.
func (r *Resolver) Resolve(ctx context.Context, userID int64) (Resolution, bool) {
	r.mu.Lock()
	if entry, ok := r.entries[userID]; ok && r.now().Before(entry.expiresAt) {
		r.mu.Unlock()
		return entry.resolution, true
	}
	gen := r.gens[userID]
	r.gens[userID] = gen // materialise the key so InvalidateAll supersedes in-flight fetches
	r.mu.Unlock()

	fetchCtx, cancel := context.WithTimeout(ctx, r.fetchTimeout)
	defer cancel()

	rawRole, status, err := r.store.RoleByUserID(fetchCtx, userID)
	if err != nil {
		if r.logger != nil {
			r.logger.Error("resolve role", slog.Int64("user_id", userID), slog.Any("error", err))
		}
		return Resolution{}, false
	}
	if status != StatusApproved {
		return Resolution{}, false
	}
	role, err := ParseRole(rawRole)
	if err != nil {
		if r.logger != nil {
			r.logger.Error("resolve role", slog.Int64("user_id", userID), slog.Any("error", err))
		}
		return Resolution{}, false
	}

	resolution := Resolution{Role: role, Permissions: PermissionsFor(role)}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gens[userID] != gen {
		// Invalidated while the fetch was in flight (sign-out or role
		// change); the stale result must not repopulate the cache.
		return Resolution{}, false
	}
	r.entries[userID] = cacheEntry{resolution: resolution, expiresAt: r.now().Add(r.ttl)}
	return resolution, true
}

// CheckAccess evaluates one permission check for a user. Unresolved state
// always yields false.
func (r *Resolver) CheckAccess(ctx context.Context, userID int64, section, action string) bool {
	resolution, ok := r.Resolve(ctx, userID)
	if !ok {
		return false
	}
	return resolution.Permissions.Allows(section, action)
}

// Invalidate drops the cached resolution for a user and supersedes any
// in-flight fetch for them.
func (r *Resolver) Invalidate(userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, userID)
	r.gens[userID]++
}

// InvalidateAll clears the whole cache, e.g. after a bulk role update.
func (r *Resolver) InvalidateAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id := range r.entries {
		delete(r.entries, id)
	}
	for id := range r.gens {
		r.gens[id]++
	}
}

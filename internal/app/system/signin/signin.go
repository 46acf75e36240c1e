// Package signin decides, per sign-in attempt, whether an authenticated
// identity profile may use the service, provisioning tenant and user
// records as a side effect so the decision is auditable and repeatable.
package signin

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	tenantstore "github.com/qgovau/qchat/internal/app/store/tenants"
	userstore "github.com/qgovau/qchat/internal/app/store/users"
	"github.com/qgovau/qchat/internal/app/system/normalize"
	"github.com/qgovau/qchat/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Profile is the subset of the identity provider's claims the resolver
// needs. All four fields come from the verified ID token.
type Profile struct {
	UPN      string
	TenantID string
	Name     string
	Email    string
}

// Reason explains a denial.
type Reason string

const (
	// ReasonMissingFields: the profile lacked a tenant id or principal
	// name. No records are touched.
	ReasonMissingFields Reason = "missing_profile_fields"
	// ReasonTenantNotOnboarded: the tenant record was just provisioned and
	// has no approved groups yet; an administrator must configure it.
	ReasonTenantNotOnboarded Reason = "tenant_not_onboarded"
	// ReasonGroupMismatch: the tenant requires group login and none of the
	// claimed groups is on the approved list.
	ReasonGroupMismatch Reason = "group_mismatch"
)

// Outcome is the resolver's tagged result: authorized, denied with a
// reason, or failed on a store error. Denials are the resolver's normal
// negative outcome; Err marks infrastructure failure, distinguished so
// callers can route users to the right error page without parsing logs.
type Outcome struct {
	Authorized bool
	Reason     Reason
	Err        error

	User          *models.UserRecord
	Tenant        *models.TenantRecord
	TenantCreated bool
}

// Denied reports a normal negative decision (not a store failure).
func (o Outcome) Denied() bool { return !o.Authorized && o.Err == nil }

// StoreError reports that infrastructure, not policy, decided the outcome.
func (o Outcome) StoreError() bool { return o.Err != nil }

func denied(reason Reason) Outcome { return Outcome{Reason: reason} }
func storeErr(err error) Outcome   { return Outcome{Err: err} }

// UserStore is the slice of the user store the resolver depends on.
type UserStore interface {
	GetByUPN(ctx context.Context, tenantID, upn string) (*models.UserRecord, error)
	Create(ctx context.Context, u models.UserRecord) (models.UserRecord, error)
	Upsert(ctx context.Context, u models.UserRecord) (models.UserRecord, error)
}

// TenantStore is the slice of the tenant store the resolver depends on.
type TenantStore interface {
	GetByID(ctx context.Context, tenantID string) (*models.TenantRecord, error)
	Create(ctx context.Context, t models.TenantRecord) (models.TenantRecord, error)
}

// Resolver runs the sign-in authorization algorithm. One instance is
// shared by all requests; it holds no per-attempt state.
type Resolver struct {
	users   UserStore
	tenants TenantStore

	// bootstrapAdmins seeds the administrator list of auto-provisioned
	// tenants. Injected at construction from configuration.
	bootstrapAdmins []string

	log *zap.Logger
	now func() time.Time
}

// NewResolver wires the resolver to its stores. bootstrapAdmins should
// already be lower-cased and trimmed (normalize.AdminList does this).
func NewResolver(users UserStore, tenants TenantStore, bootstrapAdmins []string, logger *zap.Logger) *Resolver {
	return &Resolver{
		users:           users,
		tenants:         tenants,
		bootstrapAdmins: bootstrapAdmins,
		log:             logger,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// HashValue returns the deterministic one-way id for a principal name, so
// the same user always maps to the same record without storing the raw
// identifier as the key.
func HashValue(v string) string {
	sum := sha256.Sum256([]byte(v))
	return hex.EncodeToString(sum[:])
}

// Resolve runs one sign-in attempt. groups must already be normalized
// (trimmed list, shape-independent); matching against the tenant's
// approved list is exact and case-sensitive.
//
// Side effects: exactly one user-store mutation and at most one
// tenant-store create per call. Record history is append-only, each entry
// prefixed with an RFC3339 timestamp. The algorithm is idempotent across
// retries because every create is preceded by a lookup and duplicate
// creates are treated as lost races.
func (r *Resolver) Resolve(ctx context.Context, p Profile, groups []string) Outcome {
	if p.TenantID == "" || p.UPN == "" {
		r.log.Warn("sign-in rejected: incomplete profile",
			zap.Bool("has_tenant", p.TenantID != ""),
			zap.Bool("has_upn", p.UPN != ""))
		return denied(ReasonMissingFields)
	}

	tenant, err := r.tenants.GetByID(ctx, p.TenantID)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		r.log.Error("sign-in: tenant lookup failed", zap.Error(err), zap.String("tenant_id", p.TenantID))
		return storeErr(err)
	}

	user, err := r.users.GetByUPN(ctx, p.TenantID, p.UPN)
	switch {
	case err == nil:
		// existing user, mutated below
	case errors.Is(err, mongo.ErrNoDocuments):
		user, err = r.createUser(ctx, p, groups)
		if err != nil {
			r.log.Error("sign-in: user create failed", zap.Error(err), zap.String("tenant_id", p.TenantID))
			return storeErr(err)
		}
	default:
		r.log.Error("sign-in: user lookup failed", zap.Error(err), zap.String("tenant_id", p.TenantID))
		return storeErr(err)
	}

	if tenant == nil {
		created, createErr := r.createTenant(ctx, user)
		if createErr != nil {
			if !errors.Is(createErr, tenantstore.ErrDuplicate) {
				r.log.Error("sign-in: tenant create failed", zap.Error(createErr), zap.String("tenant_id", p.TenantID))
				return storeErr(createErr)
			}
			// Lost the provisioning race to a concurrent first sign-in;
			// the winner's record governs this attempt.
			tenant, err = r.tenants.GetByID(ctx, p.TenantID)
			if err != nil {
				return storeErr(err)
			}
		} else {
			// Freshly provisioned tenants have no approved groups, so this
			// very attempt is denied until an administrator configures them.
			// No group has been vetted yet, so none are retained either.
			user, err = r.recordFailedLogin(ctx, user, []string{}, "tenant awaiting onboarding")
			if err != nil {
				return storeErr(err)
			}
			r.log.Info("sign-in denied: tenant provisioned on first sight",
				zap.String("tenant_id", created.ID),
				zap.String("user_id", user.ID))
			out := denied(ReasonTenantNotOnboarded)
			out.User = user
			out.Tenant = &created
			out.TenantCreated = true
			return out
		}
	}

	if !tenant.RequiresGroupLogin {
		user, err = r.recordSuccessfulLogin(ctx, user, groups)
		if err != nil {
			return storeErr(err)
		}
		return Outcome{Authorized: true, User: user, Tenant: tenant}
	}

	if hasAnyGroup(groups, tenant.Groups) {
		user, err = r.recordSuccessfulLogin(ctx, user, groups)
		if err != nil {
			return storeErr(err)
		}
		return Outcome{Authorized: true, User: user, Tenant: tenant}
	}

	user, err = r.recordFailedLogin(ctx, user, groups, "no approved group membership")
	if err != nil {
		return storeErr(err)
	}
	r.log.Info("sign-in denied: group mismatch",
		zap.String("tenant_id", tenant.ID),
		zap.String("user_id", user.ID),
		zap.Int("claimed_groups", len(groups)))
	out := denied(ReasonGroupMismatch)
	out.User = user
	out.Tenant = tenant
	return out
}

// hasAnyGroup reports whether any claimed group is on the approved list.
// An empty approved list always denies, however many groups are claimed.
func hasAnyGroup(claimed, approved []string) bool {
	if len(approved) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(approved))
	for _, g := range approved {
		set[g] = struct{}{}
	}
	for _, g := range claimed {
		if _, ok := set[g]; ok {
			return true
		}
	}
	return false
}

func (r *Resolver) createUser(ctx context.Context, p Profile, groups []string) (*models.UserRecord, error) {
	now := r.now()
	email := p.Email
	if email == "" {
		email = p.UPN
	}
	u := models.UserRecord{
		ID:         HashValue(p.UPN),
		TenantID:   p.TenantID,
		UPN:        p.UPN,
		Email:      email,
		Name:       p.Name,
		Groups:     groups,
		FirstLogin: now,
		LastLogin:  now,
		History:    []string{now.Format(time.RFC3339) + ": User created."},
	}
	created, err := r.users.Create(ctx, u)
	if err != nil {
		if errors.Is(err, userstore.ErrDuplicate) {
			// A concurrent sign-in for the same pair created it first.
			return r.users.GetByUPN(ctx, p.TenantID, p.UPN)
		}
		return nil, err
	}
	return &created, nil
}

func (r *Resolver) createTenant(ctx context.Context, user *models.UserRecord) (models.TenantRecord, error) {
	now := r.now()
	domain := normalize.Domain(user.UPN)
	t := models.TenantRecord{
		ID:                 user.TenantID,
		PrimaryDomain:      domain,
		Email:              user.UPN,
		SupportEmail:       "support@" + domain,
		RequiresGroupLogin: true,
		Groups:             []string{},
		Administrators:     r.bootstrapAdmins,
		CreatedBy:          user.UPN,
		DateCreated:        now,
		DateUpdated:        now,
		History: []string{
			fmt.Sprintf("%s: Tenant created by user %s on failed login.", now.Format(time.RFC3339), user.UPN),
		},
	}
	return r.tenants.Create(ctx, t)
}

func (r *Resolver) recordSuccessfulLogin(ctx context.Context, u *models.UserRecord, groups []string) (*models.UserRecord, error) {
	now := r.now()
	u.FailedLoginAttempts = 0
	u.LastLogin = now
	u.Groups = groups
	u.History = append(u.History, now.Format(time.RFC3339)+": Signed in.")
	updated, err := r.users.Upsert(ctx, *u)
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *Resolver) recordFailedLogin(ctx context.Context, u *models.UserRecord, groups []string, why string) (*models.UserRecord, error) {
	now := r.now()
	u.FailedLoginAttempts++
	u.LastFailedLogin = &now
	u.Groups = groups
	u.History = append(u.History, now.Format(time.RFC3339)+": Sign-in denied: "+why+".")
	updated, err := r.users.Upsert(ctx, *u)
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

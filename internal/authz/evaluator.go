package authz

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Decision is the outcome of a permission check. A denial is a value, not
// an error; errors are reserved for invariant violations and upstream
// failures.
type Decision struct {
	Granted bool   `json:"granted"`
	Reason  string `json:"reason,omitempty"`
}

func granted() Decision {
	return Decision{Granted: true}
}

func denied(format string, args ...any) Decision {
	return Decision{Granted: false, Reason: fmt.Sprintf(format, args...)}
}

// Evaluator answers permission questions against the role catalog, the
// directory and the delegate grant store. It holds no mutable state and is
// safe for concurrent use.
type Evaluator struct {
	dir       Directory
	delegates DelegateStore
	now       func() time.Time
}

// NewEvaluator constructs an Evaluator over the given collaborators.
func NewEvaluator(dir Directory, delegates DelegateStore) (*Evaluator, error) {
	if dir == nil {
		return nil, errors.New("authz: directory is required")
	}
	if delegates == nil {
		return nil, errors.New("authz: delegate store is required")
	}
	return &Evaluator{dir: dir, delegates: delegates, now: time.Now}, nil
}

// CheckPermission decides whether the acting role in pc may exercise perm
// against the targets in pc. Permission membership is checked before any
// scope lookup so principals lacking the base permission never trigger
// directory reads.
func (e *Evaluator) CheckPermission(ctx context.Context, perm Permission, pc PermissionContext) (Decision, error) {
	if !perm.Valid() {
		return Decision{}, fmt.Errorf("%w: unknown permission %q", ErrInvalidInput, perm)
	}
	def, err := LookupRole(pc.Role)
	if err != nil {
		return Decision{}, err
	}
	if !def.HasPermission(perm) {
		return denied("role %s does not have permission %s", pc.Role, perm), nil
	}
	return e.checkScopeAccess(ctx, def.Scope, pc)
}

// checkScopeAccess dispatches on the role's scope. Every branch ends in an
// explicit grant or deny; an unrecognized scope is an error, never a
// default decision.
func (e *Evaluator) checkScopeAccess(ctx context.Context, scope AccessScope, pc PermissionContext) (Decision, error) {
	switch scope {
	case ScopeGlobal:
		return granted(), nil
	case ScopeEdition:
		return e.checkEditionAccess(ctx, pc)
	case ScopeCompany:
		return e.checkCompanyAccess(ctx, pc)
	case ScopeSelf:
		if pc.TargetUserID != "" && pc.TargetUserID != pc.UserID {
			return denied("role %s may only act on the user's own account", pc.Role), nil
		}
		return granted(), nil
	default:
		return Decision{}, fmt.Errorf("%w: %q", ErrUnknownScope, scope)
	}
}

// checkEditionAccess verifies every present target belongs to the acting
// user's assigned edition, denying on the first mismatch.
func (e *Evaluator) checkEditionAccess(ctx context.Context, pc PermissionContext) (Decision, error) {
	user, err := e.dir.FindUser(ctx, pc.UserID)
	if err != nil {
		return Decision{}, err
	}
	if user.SystemEditionID == "" {
		return denied("user %s has no assigned edition", pc.UserID), nil
	}
	if pc.TargetSystemEditionID != "" && pc.TargetSystemEditionID != user.SystemEditionID {
		return denied("target edition is not the assigned edition"), nil
	}
	if pc.TargetCompanyID != "" {
		company, err := e.dir.FindCompany(ctx, pc.TargetCompanyID)
		if err != nil {
			return Decision{}, err
		}
		if company.SystemEditionID != user.SystemEditionID {
			return denied("target company is not in assigned edition"), nil
		}
	}
	if pc.TargetUserID != "" && pc.TargetUserID != pc.UserID {
		target, err := e.dir.FindUser(ctx, pc.TargetUserID)
		if err != nil {
			return Decision{}, err
		}
		if target.SystemEditionID != user.SystemEditionID {
			return denied("target user is not in assigned edition"), nil
		}
	}
	return granted(), nil
}

// checkCompanyAccess mirrors checkEditionAccess keyed on company
// membership.
func (e *Evaluator) checkCompanyAccess(ctx context.Context, pc PermissionContext) (Decision, error) {
	user, err := e.dir.FindUser(ctx, pc.UserID)
	if err != nil {
		return Decision{}, err
	}
	if user.CompanyID == "" {
		return denied("user %s has no assigned company", pc.UserID), nil
	}
	if pc.TargetCompanyID != "" && pc.TargetCompanyID != user.CompanyID {
		return denied("target company is not the assigned company"), nil
	}
	if pc.TargetSystemEditionID != "" {
		company, err := e.dir.FindCompany(ctx, user.CompanyID)
		if err != nil {
			return Decision{}, err
		}
		if company.SystemEditionID != pc.TargetSystemEditionID {
			return denied("target edition is not the company's edition"), nil
		}
	}
	if pc.TargetUserID != "" && pc.TargetUserID != pc.UserID {
		target, err := e.dir.FindUser(ctx, pc.TargetUserID)
		if err != nil {
			return Decision{}, err
		}
		if target.CompanyID != user.CompanyID {
			return denied("target user is not in assigned company"), nil
		}
	}
	return granted(), nil
}

// CheckDelegateAccess decides whether delegateID may exercise perm on
// behalf of delegatorID. Independent of role grants and scopes: the
// delegated permission subset is matched exactly.
func (e *Evaluator) CheckDelegateAccess(ctx context.Context, delegatorID, delegateID string, perm Permission) (Decision, error) {
	if delegatorID == "" || delegateID == "" {
		return Decision{}, fmt.Errorf("%w: delegator_id and delegate_id are required", ErrInvalidInput)
	}
	if !perm.Valid() {
		return Decision{}, fmt.Errorf("%w: unknown permission %q", ErrInvalidInput, perm)
	}
	grant, err := e.delegates.FindActiveGrant(ctx, delegateID, delegatorID)
	if errors.Is(err, ErrNotFound) {
		return denied("no active delegation from %s to %s", delegatorID, delegateID), nil
	}
	if err != nil {
		return Decision{}, err
	}
	if !grant.IsActive {
		return denied("delegation is not active"), nil
	}
	if !grant.Allows(perm) {
		return denied("delegation does not include permission %s", perm), nil
	}
	if grant.IsExpired(e.now()) {
		return denied("delegation expired on %s", grant.ExpirationDate.UTC().Format("2006-01-02")), nil
	}
	return granted(), nil
}

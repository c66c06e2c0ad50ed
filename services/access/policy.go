package access

import (
	"context"
	"fmt"

	"smallbiznis-license/pkg/errutil"
	"smallbiznis-license/pkg/i18n"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"go.uber.org/zap"
)

type Operation string

const (
	OpCreate Operation = "create"
	OpList   Operation = "list"
	OpReset  Operation = "reset"
	OpStatus Operation = "status"
	OpRead   Operation = "read"
)

const (
	SubjectAdmin     = "admin"
	SubjectAnonymous = "anonymous"

	resourceLicense = "license"
)

const policyModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && r.obj == p.obj && r.act == p.act
`

// NewEnforcer builds the in-memory policy: the admin subject may perform
// every administrative operation on licenses, nobody else may.
func NewEnforcer() (*casbin.Enforcer, error) {
	m, err := model.NewModelFromString(policyModel)
	if err != nil {
		return nil, fmt.Errorf("load access model: %w", err)
	}

	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create enforcer: %w", err)
	}

	for _, op := range []Operation{OpCreate, OpList, OpReset, OpStatus, OpRead} {
		if _, err := e.AddPolicy(SubjectAdmin, resourceLicense, string(op)); err != nil {
			return nil, fmt.Errorf("add policy %s: %w", op, err)
		}
	}

	return e, nil
}

// Guard gates administrative operations. Authorize has no side effects.
type Guard struct {
	credential Credential
	enforcer   *casbin.Enforcer
	printer    *i18n.Printer
}

func NewGuard(credential Credential, enforcer *casbin.Enforcer, printer *i18n.Printer) *Guard {
	return &Guard{credential: credential, enforcer: enforcer, printer: printer}
}

func (g *Guard) subject(secret string) string {
	if g.credential != nil && g.credential.Match(secret) {
		return SubjectAdmin
	}
	return SubjectAnonymous
}

func (g *Guard) Authorize(ctx context.Context, secret string, op Operation) error {
	sub := g.subject(secret)

	allowed, err := g.enforcer.Enforce(sub, resourceLicense, string(op))
	if err != nil {
		zap.L().Error("[access] policy evaluation failed", zap.String("operation", string(op)), zap.Error(err))
		allowed = false
	}

	if !allowed {
		return errutil.Unauthorized(g.printer.Sprintf(i18n.Unauthorized), nil)
	}
	return nil
}

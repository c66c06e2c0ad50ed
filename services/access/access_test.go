package access

import (
	"context"
	"testing"

	"smallbiznis-license/pkg/config"
	"smallbiznis-license/pkg/errutil"
	"smallbiznis-license/pkg/i18n"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func TestStaticCredential(t *testing.T) {
	c := StaticCredential("s3cret")
	require.True(t, c.Match("s3cret"))
	require.False(t, c.Match("s3cre"))
	require.False(t, c.Match(""))

	require.False(t, StaticCredential("").Match(""))
}

func TestBcryptCredential(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	c, err := NewBcryptCredential(string(hash))
	require.NoError(t, err)
	require.True(t, c.Match("s3cret"))
	require.False(t, c.Match("other"))
	require.False(t, c.Match(""))

	_, err = NewBcryptCredential("not-a-hash")
	require.Error(t, err)
}

func TestNewCredentialPrefersHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hashed"), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Admin.Secret = "plain"
	cfg.Admin.SecretHash = string(hash)

	c, err := NewCredential(cfg)
	require.NoError(t, err)
	require.True(t, c.Match("hashed"))
	require.False(t, c.Match("plain"))
}

func TestGuardAuthorize(t *testing.T) {
	e, err := NewEnforcer()
	require.NoError(t, err)
	g := NewGuard(StaticCredential("s3cret"), e, i18n.NewPrinter("fr"))
	ctx := context.Background()

	for _, op := range []Operation{OpCreate, OpList, OpReset, OpStatus, OpRead} {
		require.NoError(t, g.Authorize(ctx, "s3cret", op), op)

		err := g.Authorize(ctx, "wrong", op)
		require.Error(t, err)
		require.Equal(t, errutil.StatusUnauthorized, errutil.StatusOf(err))
	}

	err = g.Authorize(ctx, "s3cret", Operation("drop"))
	require.Equal(t, errutil.StatusUnauthorized, errutil.StatusOf(err))

	base, ok := errutil.As(g.Authorize(ctx, "", OpList))
	require.True(t, ok)
	require.Equal(t, "Non autorisé", base.Message)
}

func TestGuardLockedWithoutSecret(t *testing.T) {
	e, err := NewEnforcer()
	require.NoError(t, err)
	g := NewGuard(StaticCredential(""), e, i18n.NewPrinter("en"))

	err = g.Authorize(context.Background(), "", OpCreate)
	base, ok := errutil.As(err)
	require.True(t, ok)
	require.Equal(t, "Unauthorized", base.Message)
}

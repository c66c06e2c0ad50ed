package license

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"smallbiznis-license/pkg/config"
	"smallbiznis-license/pkg/db/pagination"
	"smallbiznis-license/pkg/errutil"
	"smallbiznis-license/pkg/i18n"
	"smallbiznis-license/services/auditlog"
	"smallbiznis-license/services/testutil"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

// 10:00 in Paris, so the registry's today is 2026-03-10.
var testNow = time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

type sequenceKeys struct {
	keys  []string
	calls int
}

func (s *sequenceKeys) Generate() (string, error) {
	key := s.keys[min(s.calls, len(s.keys)-1)]
	s.calls++
	return key, nil
}

type fixture struct {
	svc   *Service
	db    *gorm.DB
	repo  Repository
	audit *auditlog.Service
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.License.Timezone = "Europe/Paris"
	cfg.License.KeyAttempts = 5
	return cfg
}

func newFixture(t *testing.T, wrap func(Repository) Repository) *fixture {
	t.Helper()

	db := testutil.NewTestDB(t, &License{}, &auditlog.Entry{})
	repo := NewRepository(db)
	if wrap != nil {
		repo = wrap(repo)
	}
	audit := auditlog.NewService(auditlog.ServiceParams{DB: db})

	keys, err := NewKeyGenerator("MOULIN")
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{
		Repo:    repo,
		Keys:    keys,
		Config:  testConfig(),
		Audit:   audit,
		Printer: i18n.NewPrinter("fr"),
	})
	require.NoError(t, err)
	svc.now = func() time.Time { return testNow }

	return &fixture{svc: svc, db: db, repo: repo, audit: audit}
}

func (f *fixture) seed(t *testing.T, key string, expiresAt time.Time, active bool) *License {
	t.Helper()
	lic := &License{LicenseKey: key, ClientName: "Moulin Test", ExpiresAt: expiresAt, IsActive: true}
	require.NoError(t, f.db.Create(lic).Error)
	if !active {
		require.NoError(t, f.repo.SetActive(context.Background(), lic.ID, false))
		lic.IsActive = false
	}
	return lic
}

func (f *fixture) reload(t *testing.T, key string) *License {
	t.Helper()
	lic, err := f.repo.FindByKey(context.Background(), key)
	require.NoError(t, err)
	require.NotNil(t, lic)
	return lic
}

func (f *fixture) entries(t *testing.T) []auditlog.Entry {
	t.Helper()
	var entries []auditlog.Entry
	require.NoError(t, f.db.Order("id asc").Find(&entries).Error)
	return entries
}

func requireError(t *testing.T, err error, code errutil.CoreStatus, msg string) {
	t.Helper()
	require.Error(t, err)
	base, ok := errutil.As(err)
	require.True(t, ok, "expected BaseError, got %v", err)
	require.Equal(t, code, base.Code)
	if msg != "" {
		require.Equal(t, msg, base.Message)
	}
}

func TestMoulinScenario(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	src := auditlog.Source{Address: "203.0.113.7"}

	lic, err := f.svc.Create(ctx, CreateRequest{ClientName: "Moulin Test", ExpiresAt: testNow.AddDate(0, 0, 30)})
	require.NoError(t, err)
	require.True(t, ValidKeyFormat(lic.LicenseKey))
	require.Nil(t, lic.MachineID)
	require.True(t, lic.IsActive)

	res, err := f.svc.Activate(ctx, ActivateRequest{LicenseKey: lic.LicenseKey, MachineID: "PC-001", Source: src})
	require.NoError(t, err)
	require.Equal(t, 30, res.DaysRemaining)
	require.Equal(t, "Moulin Test", res.ClientName)
	require.Equal(t, "Licence activée avec succès", res.Message)

	_, err = f.svc.Activate(ctx, ActivateRequest{LicenseKey: lic.LicenseKey, MachineID: "PC-002", Source: src})
	requireError(t, err, errutil.StatusForbidden, "Cette licence est déjà activée sur une autre machine")
	require.Equal(t, "PC-001", f.reload(t, lic.LicenseKey).BoundTo())

	_, err = f.svc.ResetMachine(ctx, lic.LicenseKey, src)
	require.NoError(t, err)

	res, err = f.svc.Activate(ctx, ActivateRequest{LicenseKey: lic.LicenseKey, MachineID: "PC-002", Source: src})
	require.NoError(t, err)
	require.Equal(t, 30, res.DaysRemaining)
	require.Equal(t, "PC-002", f.reload(t, lic.LicenseKey).BoundTo())

	var actions []auditlog.Action
	for _, e := range f.entries(t) {
		actions = append(actions, e.Action)
		require.Equal(t, "203.0.113.7", e.SourceAddress)
	}
	require.Equal(t, []auditlog.Action{
		auditlog.ActionActivate,
		auditlog.ActionActivate,
		auditlog.ActionReset,
		auditlog.ActionActivate,
	}, actions)
}

func TestActivateIsIdempotent(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	lic := f.seed(t, "MOULIN-AAAA-BBBB-CCCC-DDDD", date(2026, time.April, 1), true)

	_, err := f.svc.Activate(ctx, ActivateRequest{LicenseKey: "  moulin-aaaa-bbbb-cccc-dddd ", MachineID: "PC-001"})
	require.NoError(t, err)
	first := f.reload(t, lic.LicenseKey)
	require.NotNil(t, first.ActivatedAt)
	require.True(t, first.ActivatedAt.Equal(testNow))

	f.svc.now = func() time.Time { return testNow.Add(2 * time.Hour) }
	res, err := f.svc.Activate(ctx, ActivateRequest{LicenseKey: lic.LicenseKey, MachineID: "PC-001"})
	require.NoError(t, err)
	require.Equal(t, 22, res.DaysRemaining)

	second := f.reload(t, lic.LicenseKey)
	require.True(t, second.ActivatedAt.Equal(testNow))
	require.Equal(t, "PC-001", second.BoundTo())

	entries := f.entries(t)
	require.Len(t, entries, 2)
	for _, e := range entries {
		require.True(t, e.Succeeded)
		require.Equal(t, lic.LicenseKey, e.LicenseKey)
	}
}

func TestActivateRejections(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.seed(t, "MOULIN-OFFF-0000-0000-0001", date(2026, time.December, 31), false)
	f.seed(t, "MOULIN-EXPD-0000-0000-0002", date(2026, time.March, 9), true)
	bound := f.seed(t, "MOULIN-BOND-0000-0000-0003", date(2026, time.December, 31), true)
	_, err := f.repo.BindMachine(ctx, bound.ID, "PC-001", testNow)
	require.NoError(t, err)

	cases := []struct {
		name string
		key  string
		code errutil.CoreStatus
		msg  string
	}{
		{"malformed key", "not-a-key", errutil.StatusNotFound, "Clé de licence invalide"},
		{"unknown key", "MOULIN-ZZZZ-ZZZZ-ZZZZ-ZZZZ", errutil.StatusNotFound, "Clé de licence invalide"},
		{"deactivated", "MOULIN-OFFF-0000-0000-0001", errutil.StatusForbidden, "Licence désactivée"},
		{"expired", "MOULIN-EXPD-0000-0000-0002", errutil.StatusForbidden, "Licence expirée le 09/03/2026"},
		{"other machine", "MOULIN-BOND-0000-0000-0003", errutil.StatusForbidden, "Cette licence est déjà activée sur une autre machine"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Activate(ctx, ActivateRequest{LicenseKey: tc.key, MachineID: "PC-002"})
			requireError(t, err, tc.code, tc.msg)
		})
	}

	entries := f.entries(t)
	require.Len(t, entries, len(cases))
	for i, e := range entries {
		require.Equal(t, auditlog.ActionActivate, e.Action)
		require.False(t, e.Succeeded)
		require.Equal(t, cases[i].msg, e.Message)
		require.Equal(t, "PC-002", e.MachineID)
	}

	require.Equal(t, "PC-001", f.reload(t, bound.LicenseKey).BoundTo())
	require.Nil(t, f.reload(t, "MOULIN-EXPD-0000-0000-0002").MachineID)
}

func TestActivateRecordsOversizedKey(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.Activate(context.Background(), ActivateRequest{LicenseKey: strings.Repeat("A", 300), MachineID: "PC-001"})
	requireError(t, err, errutil.StatusNotFound, "Clé de licence invalide")

	entries := f.entries(t)
	require.Len(t, entries, 1)
	require.Len(t, entries[0].LicenseKey, 64)
	require.True(t, strings.HasSuffix(entries[0].LicenseKey, "..."))
	require.False(t, entries[0].Succeeded)
}

func TestActivateRequiresKeyAndMachine(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.Activate(context.Background(), ActivateRequest{LicenseKey: "MOULIN-AAAA-BBBB-CCCC-DDDD", MachineID: "  "})
	requireError(t, err, errutil.StatusValidationFailed, "Clé de licence et identifiant machine requis")

	_, err = f.svc.Activate(context.Background(), ActivateRequest{MachineID: "PC-001"})
	requireError(t, err, errutil.StatusValidationFailed, "")

	require.Empty(t, f.entries(t))
}

func TestActivateExpiryBoundary(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.seed(t, "MOULIN-TDAY-0000-0000-0001", date(2026, time.March, 10), true)
	res, err := f.svc.Activate(ctx, ActivateRequest{LicenseKey: "MOULIN-TDAY-0000-0000-0001", MachineID: "PC-001"})
	require.NoError(t, err)
	require.Equal(t, 0, res.DaysRemaining)

	// 23:30 UTC is already the next day in Paris.
	f.svc.now = func() time.Time { return time.Date(2026, time.March, 10, 23, 30, 0, 0, time.UTC) }
	_, err = f.svc.Activate(ctx, ActivateRequest{LicenseKey: "MOULIN-TDAY-0000-0000-0001", MachineID: "PC-001"})
	requireError(t, err, errutil.StatusForbidden, "Licence expirée le 10/03/2026")
}

type racingRepository struct {
	Repository
	rival string
	raced bool
}

// BindMachine lets a rival machine win the first race.
func (r *racingRepository) BindMachine(ctx context.Context, id uint64, machineID string, at time.Time) (bool, error) {
	if !r.raced {
		r.raced = true
		if _, err := r.Repository.BindMachine(ctx, id, r.rival, at); err != nil {
			return false, err
		}
	}
	return r.Repository.BindMachine(ctx, id, machineID, at)
}

func TestActivateLostRace(t *testing.T) {
	t.Run("rival machine wins", func(t *testing.T) {
		f := newFixture(t, func(r Repository) Repository { return &racingRepository{Repository: r, rival: "PC-RIVAL"} })
		lic := f.seed(t, "MOULIN-RACE-0000-0000-0001", date(2026, time.December, 31), true)

		_, err := f.svc.Activate(context.Background(), ActivateRequest{LicenseKey: lic.LicenseKey, MachineID: "PC-001"})
		requireError(t, err, errutil.StatusForbidden, "Cette licence est déjà activée sur une autre machine")
		require.Equal(t, "PC-RIVAL", f.reload(t, lic.LicenseKey).BoundTo())

		entries := f.entries(t)
		require.Len(t, entries, 1)
		require.False(t, entries[0].Succeeded)
	})

	t.Run("same machine wins", func(t *testing.T) {
		f := newFixture(t, func(r Repository) Repository { return &racingRepository{Repository: r, rival: "PC-001"} })
		lic := f.seed(t, "MOULIN-RACE-0000-0000-0002", date(2026, time.December, 31), true)

		res, err := f.svc.Activate(context.Background(), ActivateRequest{LicenseKey: lic.LicenseKey, MachineID: "PC-001"})
		require.NoError(t, err)
		require.Equal(t, "Moulin Test", res.ClientName)
		require.Equal(t, "PC-001", f.reload(t, lic.LicenseKey).BoundTo())
	})
}

type unsettledRepository struct {
	Repository
	binds int
}

func (r *unsettledRepository) FindByKey(ctx context.Context, key string) (*License, error) {
	return &License{ID: 1, LicenseKey: key, ClientName: "Moulin Test", ExpiresAt: date(2026, time.December, 31), IsActive: true}, nil
}

func (r *unsettledRepository) BindMachine(context.Context, uint64, string, time.Time) (bool, error) {
	r.binds++
	return false, nil
}

func TestActivateGivesUpAfterBindRounds(t *testing.T) {
	repo := &unsettledRepository{}
	f := newFixture(t, func(r Repository) Repository {
		repo.Repository = r
		return repo
	})

	_, err := f.svc.Activate(context.Background(), ActivateRequest{LicenseKey: "MOULIN-LOOP-0000-0000-0001", MachineID: "PC-001"})
	requireError(t, err, errutil.StatusForbidden, "Cette licence est déjà activée sur une autre machine")
	require.Equal(t, bindRounds, repo.binds)
}

type brokenRepository struct {
	Repository
}

func (brokenRepository) FindByKey(context.Context, string) (*License, error) {
	return nil, errors.New("dial tcp 10.0.0.5:5432: connection refused")
}

func (brokenRepository) FindByKeyAndMachine(context.Context, string, string) (*License, error) {
	return nil, errors.New("dial tcp 10.0.0.5:5432: connection refused")
}

func TestStoreFailureIsInternal(t *testing.T) {
	f := newFixture(t, func(r Repository) Repository { return brokenRepository{Repository: r} })
	ctx := context.Background()

	_, err := f.svc.Activate(ctx, ActivateRequest{LicenseKey: "MOULIN-AAAA-BBBB-CCCC-DDDD", MachineID: "PC-001"})
	requireError(t, err, errutil.StatusInternal, "Erreur serveur")
	require.ErrorContains(t, err, "connection refused")

	_, err = f.svc.Verify(ctx, VerifyRequest{LicenseKey: "MOULIN-AAAA-BBBB-CCCC-DDDD", MachineID: "PC-001"})
	requireError(t, err, errutil.StatusInternal, "Erreur serveur")

	_, err = f.svc.ResetMachine(ctx, "MOULIN-AAAA-BBBB-CCCC-DDDD", auditlog.Source{})
	requireError(t, err, errutil.StatusInternal, "Erreur serveur")

	entries := f.entries(t)
	require.Len(t, entries, 1)
	require.Equal(t, auditlog.ActionActivate, entries[0].Action)
	require.False(t, entries[0].Succeeded)
}

func TestVerify(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	lic := f.seed(t, "MOULIN-VRFY-0000-0000-0001", date(2026, time.April, 9), true)
	_, err := f.repo.BindMachine(ctx, lic.ID, "PC-001", testNow)
	require.NoError(t, err)

	res, err := f.svc.Verify(ctx, VerifyRequest{LicenseKey: "moulin-vrfy-0000-0000-0001", MachineID: "PC-001"})
	require.NoError(t, err)
	require.True(t, res.Found)
	require.True(t, res.Valid)
	require.True(t, res.IsActive)
	require.Equal(t, 30, res.DaysRemaining)
	require.Equal(t, "Licence valide", res.Message)

	other, err := f.svc.Verify(ctx, VerifyRequest{LicenseKey: lic.LicenseKey, MachineID: "PC-002"})
	require.NoError(t, err)
	unknown, err := f.svc.Verify(ctx, VerifyRequest{LicenseKey: "MOULIN-ZZZZ-ZZZZ-ZZZZ-ZZZZ", MachineID: "PC-002"})
	require.NoError(t, err)
	require.Equal(t, unknown, other)
	require.False(t, other.Found)
	require.False(t, other.Valid)
	require.Equal(t, "Licence non trouvée pour cette machine", other.Message)

	f.svc.now = func() time.Time { return time.Date(2026, time.April, 10, 9, 0, 0, 0, time.UTC) }
	expired, err := f.svc.Verify(ctx, VerifyRequest{LicenseKey: lic.LicenseKey, MachineID: "PC-001"})
	require.NoError(t, err)
	require.True(t, expired.Found)
	require.False(t, expired.Valid)
	require.Equal(t, -1, expired.DaysRemaining)
	require.Equal(t, "Licence expirée le 09/04/2026", expired.Message)

	require.NoError(t, f.repo.SetActive(ctx, lic.ID, false))
	f.svc.now = func() time.Time { return testNow }
	off, err := f.svc.Verify(ctx, VerifyRequest{LicenseKey: lic.LicenseKey, MachineID: "PC-001"})
	require.NoError(t, err)
	require.False(t, off.Valid)
	require.False(t, off.IsActive)
	require.Equal(t, "Licence désactivée", off.Message)

	_, err = f.svc.Verify(ctx, VerifyRequest{LicenseKey: lic.LicenseKey})
	requireError(t, err, errutil.StatusValidationFailed, "")

	entries := f.entries(t)
	require.Len(t, entries, 5)
	for _, e := range entries {
		require.Equal(t, auditlog.ActionVerify, e.Action)
	}
	require.True(t, entries[0].Succeeded)
	require.False(t, entries[1].Succeeded)

	// verify never binds
	require.Equal(t, "PC-001", f.reload(t, lic.LicenseKey).BoundTo())
}

func TestCreate(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, CreateRequest{ClientName: "   ", ExpiresAt: testNow})
	requireError(t, err, errutil.StatusValidationFailed, "Nom du client et date d'expiration requis")

	_, err = f.svc.Create(ctx, CreateRequest{ClientName: "Moulin Test"})
	requireError(t, err, errutil.StatusValidationFailed, "")

	paris, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)
	lic, err := f.svc.Create(ctx, CreateRequest{
		ClientName:  " Moulin Test ",
		ClientEmail: "contact@moulin.test",
		Notes:       "salon 2026",
		ExpiresAt:   time.Date(2026, time.April, 9, 18, 0, 0, 0, paris),
	})
	require.NoError(t, err)
	require.Equal(t, "Moulin Test", lic.ClientName)

	stored := f.reload(t, lic.LicenseKey)
	require.True(t, stored.ExpiresAt.Equal(date(2026, time.April, 9)))
	require.Equal(t, "contact@moulin.test", stored.ClientEmail)
	require.Equal(t, "salon 2026", stored.Notes)
	require.True(t, stored.IsActive)
	require.Nil(t, stored.MachineID)
	require.Nil(t, stored.ActivatedAt)

	require.Empty(t, f.entries(t))
}

func TestCreatedKeyActivatesWithCustomPrefix(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	keys, err := NewKeyGenerator("HASNAFACT")
	require.NoError(t, err)
	f.svc.keys = keys

	lic, err := f.svc.Create(ctx, CreateRequest{ClientName: "Hasna", ExpiresAt: date(2026, time.December, 31)})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(lic.LicenseKey, "HASNAFACT-"), lic.LicenseKey)

	res, err := f.svc.Activate(ctx, ActivateRequest{LicenseKey: lic.LicenseKey, MachineID: "PC-HASNA"})
	require.NoError(t, err)
	require.Equal(t, "Hasna", res.ClientName)

	verified, err := f.svc.Verify(ctx, VerifyRequest{LicenseKey: lic.LicenseKey, MachineID: "PC-HASNA"})
	require.NoError(t, err)
	require.True(t, verified.Valid)
}

func TestCreateRetriesOnDuplicateKey(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.seed(t, "MOULIN-AAAA-AAAA-AAAA-AAAA", date(2026, time.December, 31), true)

	keys := &sequenceKeys{keys: []string{"MOULIN-AAAA-AAAA-AAAA-AAAA", "MOULIN-AAAA-AAAA-AAAA-AAAA", "MOULIN-BBBB-BBBB-BBBB-BBBB"}}
	f.svc.keys = keys

	lic, err := f.svc.Create(ctx, CreateRequest{ClientName: "Moulin Test", ExpiresAt: testNow})
	require.NoError(t, err)
	require.Equal(t, "MOULIN-BBBB-BBBB-BBBB-BBBB", lic.LicenseKey)
	require.Equal(t, 3, keys.calls)

	keys = &sequenceKeys{keys: []string{"MOULIN-AAAA-AAAA-AAAA-AAAA"}}
	f.svc.keys = keys
	_, err = f.svc.Create(ctx, CreateRequest{ClientName: "Moulin Test", ExpiresAt: testNow})
	requireError(t, err, errutil.StatusInternal, "Erreur serveur")
	require.Equal(t, 5, keys.calls)

	var count int64
	require.NoError(t, f.db.Model(&License{}).Count(&count).Error)
	require.EqualValues(t, 2, count)
}

func TestResetMachine(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	lic := f.seed(t, "MOULIN-RSET-0000-0000-0001", date(2026, time.December, 31), true)
	_, err := f.repo.BindMachine(ctx, lic.ID, "PC-001", testNow)
	require.NoError(t, err)

	got, err := f.svc.ResetMachine(ctx, " moulin-rset-0000-0000-0001", auditlog.Source{Address: "192.0.2.10", RequestID: "req-9"})
	require.NoError(t, err)
	require.Nil(t, got.MachineID)

	stored := f.reload(t, lic.LicenseKey)
	require.Nil(t, stored.MachineID)
	require.NotNil(t, stored.ActivatedAt)
	require.True(t, stored.IsActive)
	require.True(t, stored.ExpiresAt.Equal(date(2026, time.December, 31)))

	_, err = f.svc.ResetMachine(ctx, "MOULIN-ZZZZ-ZZZZ-ZZZZ-ZZZZ", auditlog.Source{})
	requireError(t, err, errutil.StatusNotFound, "Licence non trouvée")
	_, err = f.svc.ResetMachine(ctx, "", auditlog.Source{})
	requireError(t, err, errutil.StatusNotFound, "")

	entries := f.entries(t)
	require.Len(t, entries, 1)
	require.Equal(t, auditlog.ActionReset, entries[0].Action)
	require.Equal(t, "PC-001", entries[0].MachineID)

	var meta map[string]string
	require.NoError(t, json.Unmarshal(entries[0].Metadata, &meta))
	require.Equal(t, "PC-001", meta["previous_machine_id"])
	require.Equal(t, "req-9", meta["request_id"])
}

func TestSetActive(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	lic := f.seed(t, "MOULIN-STAT-0000-0000-0001", date(2026, time.December, 31), true)

	got, err := f.svc.SetActive(ctx, lic.LicenseKey, false, auditlog.Source{})
	require.NoError(t, err)
	require.False(t, got.IsActive)

	_, err = f.svc.Activate(ctx, ActivateRequest{LicenseKey: lic.LicenseKey, MachineID: "PC-001"})
	requireError(t, err, errutil.StatusForbidden, "Licence désactivée")

	got, err = f.svc.SetActive(ctx, lic.LicenseKey, true, auditlog.Source{})
	require.NoError(t, err)
	require.True(t, got.IsActive)

	_, err = f.svc.Activate(ctx, ActivateRequest{LicenseKey: lic.LicenseKey, MachineID: "PC-001"})
	require.NoError(t, err)

	_, err = f.svc.SetActive(ctx, "MOULIN-ZZZZ-ZZZZ-ZZZZ-ZZZZ", true, auditlog.Source{})
	requireError(t, err, errutil.StatusNotFound, "")

	var actions []auditlog.Action
	for _, e := range f.entries(t) {
		actions = append(actions, e.Action)
	}
	require.Equal(t, []auditlog.Action{
		auditlog.ActionDeactivate,
		auditlog.ActionActivate,
		auditlog.ActionReactivate,
		auditlog.ActionActivate,
	}, actions)
}

func TestList(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	keys := []string{
		"MOULIN-LIST-0000-0000-0001",
		"MOULIN-LIST-0000-0000-0002",
		"MOULIN-LIST-0000-0000-0003",
	}
	for _, k := range keys {
		f.seed(t, k, date(2026, time.December, 31), true)
	}

	all, err := f.svc.List(ctx, ListRequest{})
	require.NoError(t, err)
	require.EqualValues(t, 3, all.Total)
	require.Len(t, all.Licenses, 3)
	require.Equal(t, keys[2], all.Licenses[0].LicenseKey)
	require.Equal(t, keys[0], all.Licenses[2].LicenseKey)
	require.False(t, all.PageInfo.HasMore)

	page, err := f.svc.List(ctx, ListRequest{Pagination: pagination.Pagination{Limit: 2}})
	require.NoError(t, err)
	require.Len(t, page.Licenses, 2)
	require.True(t, page.PageInfo.HasMore)
	require.NotEmpty(t, page.PageInfo.NextCursor)

	next, err := f.svc.List(ctx, ListRequest{Pagination: pagination.Pagination{Limit: 2, Cursor: page.PageInfo.NextCursor}})
	require.NoError(t, err)
	require.Len(t, next.Licenses, 1)
	require.Equal(t, keys[0], next.Licenses[0].LicenseKey)
	require.False(t, next.PageInfo.HasMore)
	require.EqualValues(t, 3, next.Total)

	_, err = f.svc.List(ctx, ListRequest{Pagination: pagination.Pagination{Cursor: "%%%"}})
	requireError(t, err, errutil.StatusBadRequest, "")

	_, err = f.svc.List(ctx, ListRequest{Pagination: pagination.Pagination{Limit: -1}})
	requireError(t, err, errutil.StatusBadRequest, "")
}

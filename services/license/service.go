package license

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"smallbiznis-license/pkg/config"
	"smallbiznis-license/pkg/db/pagination"
	"smallbiznis-license/pkg/errutil"
	"smallbiznis-license/pkg/i18n"
	"smallbiznis-license/services/auditlog"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	defaultKeyAttempts = 5
	// bindRounds bounds how often a lost binding race is re-evaluated.
	bindRounds = 3
)

type Service struct {
	repo        Repository
	audit       auditlog.Recorder
	keys        KeyGenerator
	printer     *i18n.Printer
	metrics     *Metrics
	location    *time.Location
	keyAttempts int
	now         func() time.Time
}

type ServiceParams struct {
	fx.In
	Repo    Repository
	Keys    KeyGenerator
	Config  *config.Config
	Audit   auditlog.Recorder
	Printer *i18n.Printer
	Metrics *Metrics `optional:"true"`
}

func NewService(p ServiceParams) (*Service, error) {
	loc, err := time.LoadLocation(p.Config.License.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load LICENSE_TIMEZONE: %w", err)
	}

	attempts := p.Config.License.KeyAttempts
	if attempts <= 0 {
		attempts = defaultKeyAttempts
	}

	return &Service{
		repo:        p.Repo,
		audit:       p.Audit,
		keys:        p.Keys,
		printer:     p.Printer,
		metrics:     p.Metrics,
		location:    loc,
		keyAttempts: attempts,
		now:         time.Now,
	}, nil
}

// today is the current calendar date in the registry's timezone.
func (s *Service) today() time.Time {
	return CivilDate(s.now().In(s.location))
}

func (s *Service) internal(err error) error {
	return errutil.Internal(s.printer.Sprintf(i18n.InternalError), err)
}

type ActivateRequest struct {
	LicenseKey string
	MachineID  string
	Source     auditlog.Source
}

type ActivationResult struct {
	Message       string
	ClientName    string
	ExpiresAt     time.Time
	DaysRemaining int
}

// Activate binds the license to the caller's machine on first use and
// confirms repeat activations from that same machine.
func (s *Service) Activate(ctx context.Context, req ActivateRequest) (*ActivationResult, error) {
	key := NormalizeKey(req.LicenseKey)
	machineID := strings.TrimSpace(req.MachineID)
	if key == "" || machineID == "" {
		return nil, errutil.ValidationFailed(s.printer.Sprintf(msgKeyMachineRequired), nil)
	}

	zapLog := zap.L().With(zap.String("license_key", key), zap.String("machine_id", machineID))
	today := s.today()

	reject := func(outcome, msg string, err error) error {
		s.metrics.activation(outcome)
		s.record(ctx, auditlog.ActionActivate, key, machineID, req.Source, false, msg, nil)
		return err
	}

	if !ValidKeyFormat(key) {
		msg := s.printer.Sprintf(msgInvalidKey)
		return nil, reject(outcomeInvalidKey, msg, errutil.NotFound(msg, nil))
	}

	for round := 0; round < bindRounds; round++ {
		lic, err := s.repo.FindByKey(ctx, key)
		if err != nil {
			zapLog.Error("failed to load license", zap.Error(err))
			return nil, reject(outcomeError, s.printer.Sprintf(i18n.InternalError), s.internal(err))
		}

		switch {
		case lic == nil:
			msg := s.printer.Sprintf(msgInvalidKey)
			return nil, reject(outcomeInvalidKey, msg, errutil.NotFound(msg, nil))
		case !lic.IsActive:
			msg := s.printer.Sprintf(msgDeactivated)
			return nil, reject(outcomeDeactivated, msg, errutil.Forbidden(msg, nil))
		case lic.Expired(today):
			msg := s.printer.Sprintf(msgExpired, s.printer.FormatDate(lic.ExpiresAt))
			return nil, reject(outcomeExpired, msg, errutil.Forbidden(msg, nil))
		case lic.MachineID != nil && *lic.MachineID != machineID:
			msg := s.printer.Sprintf(msgOtherMachine)
			return nil, reject(outcomeBound, msg, errutil.Forbidden(msg, nil))
		}

		if lic.MachineID == nil {
			bound, err := s.repo.BindMachine(ctx, lic.ID, machineID, s.now())
			if err != nil {
				zapLog.Error("failed to bind machine", zap.Error(err))
				return nil, reject(outcomeError, s.printer.Sprintf(i18n.InternalError), s.internal(err))
			}
			if !bound {
				zapLog.Info("lost activation race, re-evaluating", zap.Int("round", round+1))
				continue
			}
			zapLog.Info("license bound to machine", zap.Uint64("license_id", lic.ID))
		}

		msg := s.printer.Sprintf(msgActivated)
		s.metrics.activation(outcomeActivated)
		s.record(ctx, auditlog.ActionActivate, key, machineID, req.Source, true, msg, nil)

		return &ActivationResult{
			Message:       msg,
			ClientName:    lic.ClientName,
			ExpiresAt:     lic.ExpiresAt,
			DaysRemaining: DaysRemaining(today, lic.ExpiresAt),
		}, nil
	}

	zapLog.Warn("activation race not settled", zap.Int("rounds", bindRounds))
	msg := s.printer.Sprintf(msgOtherMachine)
	return nil, reject(outcomeBound, msg, errutil.Forbidden(msg, nil))
}

type VerifyRequest struct {
	LicenseKey string
	MachineID  string
	Source     auditlog.Source
}

type VerifyResult struct {
	Found         bool
	Valid         bool
	Message       string
	ClientName    string
	ExpiresAt     time.Time
	DaysRemaining int
	IsActive      bool
}

// Verify reports the state of the license bound to the caller's machine.
// A license bound elsewhere is reported exactly like an unknown key.
func (s *Service) Verify(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	key := NormalizeKey(req.LicenseKey)
	machineID := strings.TrimSpace(req.MachineID)
	if key == "" || machineID == "" {
		return nil, errutil.ValidationFailed(s.printer.Sprintf(msgKeyMachineRequired), nil)
	}

	var lic *License
	if ValidKeyFormat(key) {
		var err error
		lic, err = s.repo.FindByKeyAndMachine(ctx, key, machineID)
		if err != nil {
			zap.L().Error("failed to load license", zap.String("license_key", key), zap.Error(err))
			return nil, s.internal(err)
		}
	}

	if lic == nil {
		msg := s.printer.Sprintf(msgNotFoundForMachine)
		s.metrics.verification(false)
		s.record(ctx, auditlog.ActionVerify, key, machineID, req.Source, false, msg, nil)
		return &VerifyResult{Found: false, Valid: false, Message: msg}, nil
	}

	today := s.today()
	res := &VerifyResult{
		Found:         true,
		Valid:         lic.Usable(today),
		ClientName:    lic.ClientName,
		ExpiresAt:     lic.ExpiresAt,
		DaysRemaining: DaysRemaining(today, lic.ExpiresAt),
		IsActive:      lic.IsActive,
	}

	switch {
	case !lic.IsActive:
		res.Message = s.printer.Sprintf(msgDeactivated)
	case lic.Expired(today):
		res.Message = s.printer.Sprintf(msgExpired, s.printer.FormatDate(lic.ExpiresAt))
	default:
		res.Message = s.printer.Sprintf(msgValid)
	}

	s.metrics.verification(res.Valid)
	s.record(ctx, auditlog.ActionVerify, key, machineID, req.Source, res.Valid, res.Message, nil)
	return res, nil
}

type CreateRequest struct {
	ClientName  string
	ClientEmail string
	ExpiresAt   time.Time
	Notes       string
}

// Create issues a new license. The returned key is never shown again.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*License, error) {
	name := strings.TrimSpace(req.ClientName)
	if name == "" || req.ExpiresAt.IsZero() {
		return nil, errutil.ValidationFailed(s.printer.Sprintf(msgNameExpiryRequired), nil)
	}

	for attempt := 1; attempt <= s.keyAttempts; attempt++ {
		key, err := s.keys.Generate()
		if err != nil {
			zap.L().Error("failed to generate license key", zap.Error(err))
			return nil, s.internal(err)
		}

		lic := &License{
			LicenseKey:  key,
			ClientName:  name,
			ClientEmail: strings.TrimSpace(req.ClientEmail),
			ExpiresAt:   CivilDate(req.ExpiresAt),
			IsActive:    true,
			Notes:       req.Notes,
		}

		err = s.repo.Create(ctx, lic)
		if err == nil {
			zap.L().Info("license created",
				zap.Uint64("license_id", lic.ID),
				zap.String("client_name", lic.ClientName),
				zap.Time("expires_at", lic.ExpiresAt),
			)
			return lic, nil
		}
		if !errors.Is(err, ErrDuplicateKey) {
			zap.L().Error("failed to create license", zap.Error(err))
			return nil, s.internal(err)
		}

		zap.L().Warn("license key collision, regenerating", zap.Int("attempt", attempt))
	}

	return nil, s.internal(fmt.Errorf("no unique license key after %d attempts", s.keyAttempts))
}

func (s *Service) find(ctx context.Context, rawKey string) (*License, error) {
	key := NormalizeKey(rawKey)
	if key == "" {
		return nil, errutil.NotFound(s.printer.Sprintf(msgNotFound), nil)
	}

	lic, err := s.repo.FindByKey(ctx, key)
	if err != nil {
		zap.L().Error("failed to load license", zap.String("license_key", key), zap.Error(err))
		return nil, s.internal(err)
	}
	if lic == nil {
		return nil, errutil.NotFound(s.printer.Sprintf(msgNotFound), nil)
	}
	return lic, nil
}

// Get returns a license by key.
func (s *Service) Get(ctx context.Context, key string) (*License, error) {
	return s.find(ctx, key)
}

// ResetMachine makes the license available for a new first activation.
// Expiry, activation date and the active flag are left as they are.
func (s *Service) ResetMachine(ctx context.Context, key string, src auditlog.Source) (*License, error) {
	lic, err := s.find(ctx, key)
	if err != nil {
		return nil, err
	}

	previous := lic.BoundTo()
	if err := s.repo.ResetMachine(ctx, lic.ID); err != nil {
		zap.L().Error("failed to reset machine", zap.Uint64("license_id", lic.ID), zap.Error(err))
		return nil, s.internal(err)
	}
	lic.MachineID = nil

	zap.L().Info("license machine reset", zap.Uint64("license_id", lic.ID), zap.String("previous_machine_id", previous))
	s.record(ctx, auditlog.ActionReset, lic.LicenseKey, previous, src, true, s.printer.Sprintf(msgMachineReset),
		map[string]string{"previous_machine_id": previous})

	return lic, nil
}

// SetActive flips the administrative kill switch.
func (s *Service) SetActive(ctx context.Context, key string, active bool, src auditlog.Source) (*License, error) {
	lic, err := s.find(ctx, key)
	if err != nil {
		return nil, err
	}

	if err := s.repo.SetActive(ctx, lic.ID, active); err != nil {
		zap.L().Error("failed to update license status", zap.Uint64("license_id", lic.ID), zap.Error(err))
		return nil, s.internal(err)
	}
	lic.IsActive = active

	action, msg := auditlog.ActionDeactivate, s.printer.Sprintf(msgDeactivated)
	if active {
		action, msg = auditlog.ActionReactivate, s.printer.Sprintf(msgReactivated)
	}

	zap.L().Info("license status changed", zap.Uint64("license_id", lic.ID), zap.Bool("is_active", active))
	s.record(ctx, action, lic.LicenseKey, lic.BoundTo(), src, true, msg, nil)

	return lic, nil
}

type ListRequest struct {
	pagination.Pagination
}

type ListResult struct {
	Licenses []*License
	Total    int64
	PageInfo *pagination.PageInfo
}

// List returns licenses newest first. A zero limit returns all of them.
func (s *Service) List(ctx context.Context, req ListRequest) (*ListResult, error) {
	if err := req.Validate(); err != nil {
		return nil, errutil.BadRequest(err.Error(), nil)
	}

	params := ListParams{}
	if req.Cursor != "" {
		id, err := pagination.DecodeID(req.Cursor)
		if err != nil {
			return nil, errutil.BadRequest("invalid cursor", err)
		}
		params.BeforeID = id
	}
	if req.Limit > 0 {
		params.Limit = req.Limit + 1
	}

	licenses, err := s.repo.List(ctx, params)
	if err != nil {
		zap.L().Error("failed to list licenses", zap.Error(err))
		return nil, s.internal(err)
	}

	total, err := s.repo.Count(ctx)
	if err != nil {
		zap.L().Error("failed to count licenses", zap.Error(err))
		return nil, s.internal(err)
	}

	licenses, info := pagination.BuildCursorPageInfo(licenses, req.Limit, func(l *License) string {
		return pagination.EncodeID(l.ID)
	})

	return &ListResult{Licenses: licenses, Total: total, PageInfo: info}, nil
}

func (s *Service) record(ctx context.Context, action auditlog.Action, key, machineID string, src auditlog.Source, ok bool, msg string, extra map[string]string) {
	if s.audit == nil {
		return
	}
	s.audit.Record(ctx, &auditlog.Entry{
		LicenseKey:    key,
		MachineID:     machineID,
		SourceAddress: src.Address,
		Action:        action,
		Succeeded:     ok,
		Message:       msg,
		Metadata:      src.Metadata(extra),
	})
}

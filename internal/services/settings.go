package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"net/url"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/fraudguard-backend/internal/data/repos"
	types "github.com/yungbote/fraudguard-backend/internal/domain/fraud"
	"github.com/yungbote/fraudguard-backend/internal/platform/apierr"
	"github.com/yungbote/fraudguard-backend/internal/platform/ctxutil"
	"github.com/yungbote/fraudguard-backend/internal/platform/dbctx"
	"github.com/yungbote/fraudguard-backend/internal/platform/logger"
	"github.com/yungbote/fraudguard-backend/internal/platform/mlclient"
)

type MLServiceInfo struct {
	Endpoint       string `json:"endpoint"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	MaxAttempts    int    `json:"max_attempts"`
}

type SettingsView struct {
	Thresholds  types.RiskThresholds `json:"risk_thresholds"`
	Alerts      types.AlertSettings  `json:"alerts"`
	VendorRules types.VendorRules    `json:"vendor_rules"`
	MLService   MLServiceInfo        `json:"ml_service"`
}

// SettingsService serves the runtime-tunable business settings. Values are
// read from the settings table on every call so all processes agree.
type SettingsService interface {
	Get(ctx context.Context) (*SettingsView, error)
	Thresholds(ctx context.Context) (types.RiskThresholds, error)
	UpdateThresholds(ctx context.Context, in types.RiskThresholds) (*types.RiskThresholds, error)
	UpdateAlerts(ctx context.Context, in types.AlertSettings) (*types.AlertSettings, error)
	UpdateVendorRules(ctx context.Context, in types.VendorRules) (*types.VendorRules, error)
	TestMLConnection(ctx context.Context) (*mlclient.Health, error)
}

type settingsService struct {
	db    *gorm.DB
	log   *logger.Logger
	repo  repos.SettingRepo
	audit AuditService
	ml    mlclient.Client
	info  MLServiceInfo
}

func NewSettingsService(
	db *gorm.DB,
	baseLog *logger.Logger,
	repo repos.SettingRepo,
	audit AuditService,
	ml mlclient.Client,
	info MLServiceInfo,
) SettingsService {
	return &settingsService{
		db:    db,
		log:   baseLog.With("service", "SettingsService"),
		repo:  repo,
		audit: audit,
		ml:    ml,
		info:  info,
	}
}

func (s *settingsService) load(dbc dbctx.Context, key string, dst any) error {
	row, err := s.repo.Get(dbc, key)
	if err != nil {
		return fmt.Errorf("load setting %s: %w", key, err)
	}
	if row == nil || len(row.Value) == 0 {
		return nil
	}
	if err := json.Unmarshal(row.Value, dst); err != nil {
		s.log.Warn("stored setting is malformed; using defaults", "key", key, "error", err)
	}
	return nil
}

func (s *settingsService) Get(ctx context.Context) (*SettingsView, error) {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID == 0 {
		return nil, errUnauthenticated
	}
	dbc := dbctx.Context{Ctx: ctx}
	view := &SettingsView{
		Thresholds:  types.DefaultRiskThresholds(),
		Alerts:      types.DefaultAlertSettings(),
		VendorRules: types.DefaultVendorRules(),
		MLService:   s.info,
	}
	if err := s.load(dbc, types.SettingRiskThresholds, &view.Thresholds); err != nil {
		return nil, err
	}
	if err := s.load(dbc, types.SettingAlerts, &view.Alerts); err != nil {
		return nil, err
	}
	if err := s.load(dbc, types.SettingVendorRules, &view.VendorRules); err != nil {
		return nil, err
	}
	if view.VendorRules.Blacklist == nil {
		view.VendorRules.Blacklist = []string{}
	}
	return view, nil
}

func (s *settingsService) Thresholds(ctx context.Context) (types.RiskThresholds, error) {
	out := types.DefaultRiskThresholds()
	if err := s.load(dbctx.Context{Ctx: ctx}, types.SettingRiskThresholds, &out); err != nil {
		return types.DefaultRiskThresholds(), err
	}
	return out, nil
}

func ValidateThresholds(in types.RiskThresholds) map[string]string {
	fields := map[string]string{}
	if in.High < 50 || in.High > 100 {
		fields["high"] = "high must be between 50 and 100"
	}
	if in.Medium < 30 || in.Medium > 90 {
		fields["medium"] = "medium must be between 30 and 90"
	}
	if in.Low < 10 || in.Low > 70 {
		fields["low"] = "low must be between 10 and 70"
	}
	if len(fields) == 0 && (in.High <= in.Medium || in.Medium <= in.Low) {
		fields["thresholds"] = "thresholds must be in descending order: high > medium > low"
	}
	return fields
}

func (s *settingsService) UpdateThresholds(ctx context.Context, in types.RiskThresholds) (*types.RiskThresholds, error) {
	if fields := ValidateThresholds(in); len(fields) > 0 {
		return nil, apierr.Validation(fields)
	}
	old := types.DefaultRiskThresholds()
	if err := s.write(ctx, types.SettingRiskThresholds, &old, in); err != nil {
		return nil, err
	}
	return &in, nil
}

func ValidateAlerts(in types.AlertSettings) map[string]string {
	fields := map[string]string{}
	if hook := strings.TrimSpace(in.SlackWebhook); hook != "" {
		u, err := url.ParseRequestURI(hook)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			fields["slack_webhook"] = "slack_webhook must be a valid URL"
		}
	}
	if in.SlackAlerts && strings.TrimSpace(in.SlackWebhook) == "" {
		fields["slack_webhook"] = "slack_webhook is required when slack alerts are enabled"
	}
	if email := strings.TrimSpace(in.AlertEmail); email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			fields["alert_email"] = "alert_email must be a valid email address"
		}
	}
	return fields
}

func (s *settingsService) UpdateAlerts(ctx context.Context, in types.AlertSettings) (*types.AlertSettings, error) {
	in.SlackWebhook = strings.TrimSpace(in.SlackWebhook)
	in.AlertEmail = strings.TrimSpace(in.AlertEmail)
	if fields := ValidateAlerts(in); len(fields) > 0 {
		return nil, apierr.Validation(fields)
	}
	old := types.DefaultAlertSettings()
	if err := s.write(ctx, types.SettingAlerts, &old, in); err != nil {
		return nil, err
	}
	return &in, nil
}

var sensitivities = map[string]bool{"low": true, "medium": true, "high": true}

func ValidateVendorRules(in types.VendorRules) map[string]string {
	fields := map[string]string{}
	if in.MaxDailyLimit < 1000 {
		fields["max_daily_limit"] = "max_daily_limit must be at least 1000"
	}
	if !sensitivities[in.Sensitivity] {
		fields["sensitivity"] = "sensitivity must be one of: low, medium, high"
	}
	return fields
}

func (s *settingsService) UpdateVendorRules(ctx context.Context, in types.VendorRules) (*types.VendorRules, error) {
	in.Sensitivity = strings.ToLower(strings.TrimSpace(in.Sensitivity))
	in.Blacklist = normalizeBlacklist(in.Blacklist)
	if fields := ValidateVendorRules(in); len(fields) > 0 {
		return nil, apierr.Validation(fields)
	}
	old := types.DefaultVendorRules()
	if err := s.write(ctx, types.SettingVendorRules, &old, in); err != nil {
		return nil, err
	}
	return &in, nil
}

func normalizeBlacklist(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]bool{}
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// write replaces a setting and audits the previous and new value. old is
// filled with the stored value (or left at its default) before the write.
func (s *settingsService) write(ctx context.Context, key string, old any, next any) error {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID == 0 {
		return errUnauthenticated
	}
	if !rd.IsAdmin() {
		return apierr.Forbidden("forbidden", errors.New("only administrators can modify settings"))
	}
	raw, err := json.Marshal(next)
	if err != nil {
		return err
	}
	actor := rd.UserID
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: ctx, Tx: tx}
		if err := s.load(inner, key, old); err != nil {
			return err
		}
		return s.repo.Upsert(inner, &types.Setting{
			Key:       key,
			Value:     datatypes.JSON(raw),
			UpdatedBy: &actor,
		})
	})
	if err != nil {
		return fmt.Errorf("store setting %s: %w", key, err)
	}
	s.audit.Record(dbctx.Context{Ctx: ctx},
		types.AuditSettingsUpdated,
		fmt.Sprintf("Setting '%s' updated", key),
		&actor,
		map[string]any{"key": key, "old_value": old, "new_value": next},
	)
	return nil
}

func (s *settingsService) TestMLConnection(ctx context.Context) (*mlclient.Health, error) {
	if _, err := requirePrivileged(ctx); err != nil {
		return nil, err
	}
	if s.ml == nil {
		return nil, apierr.New(http.StatusServiceUnavailable, "ml_not_configured", errors.New("ML service is not configured"))
	}
	h, err := s.ml.Health(ctx)
	if err != nil {
		s.log.Warn("ML health check failed", "error", err)
		return &mlclient.Health{Status: "unreachable"}, nil
	}
	return h, nil
}

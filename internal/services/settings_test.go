package services

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	types "github.com/yungbote/fraudguard-backend/internal/domain/fraud"
)

func (f *fixture) settingsService(ml *stubML) SettingsService {
	info := MLServiceInfo{Endpoint: "http://ml.test", TimeoutSeconds: 30, MaxAttempts: 3}
	if ml == nil {
		return NewSettingsService(f.db, f.log, f.settings, f.audit, nil, info)
	}
	return NewSettingsService(f.db, f.log, f.settings, f.audit, ml, info)
}

func TestSettingsDefaults(t *testing.T) {
	f := newFixture(t)
	view, err := f.settingsService(nil).Get(asUser(7, "vendor"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if view.Thresholds != types.DefaultRiskThresholds() {
		t.Fatalf("unexpected default thresholds: %+v", view.Thresholds)
	}
	if view.VendorRules.Sensitivity != "medium" || view.VendorRules.Blacklist == nil {
		t.Fatalf("unexpected default vendor rules: %+v", view.VendorRules)
	}
	if view.MLService.Endpoint != "http://ml.test" {
		t.Fatalf("expected ML service info, got %+v", view.MLService)
	}
}

func TestUpdateThresholdsAuditsOldAndNew(t *testing.T) {
	f := newFixture(t)
	svc := f.settingsService(nil)
	admin := asUser(1, "admin")

	if _, err := svc.UpdateThresholds(admin, types.RiskThresholds{High: 80, Medium: 60, Low: 20}); err != nil {
		t.Fatalf("UpdateThresholds: %v", err)
	}
	got, err := svc.Thresholds(admin)
	if err != nil {
		t.Fatalf("Thresholds: %v", err)
	}
	if got.High != 80 || got.Medium != 60 || got.Low != 20 {
		t.Fatalf("thresholds not persisted: %+v", got)
	}

	var entry types.AuditLog
	if err := f.db.Where("action = ?", types.AuditSettingsUpdated).First(&entry).Error; err != nil {
		t.Fatalf("load audit row: %v", err)
	}
	var ctx struct {
		Key      string               `json:"key"`
		OldValue types.RiskThresholds `json:"old_value"`
		NewValue types.RiskThresholds `json:"new_value"`
	}
	if err := json.Unmarshal(entry.Context, &ctx); err != nil {
		t.Fatalf("decode audit context: %v", err)
	}
	if ctx.Key != types.SettingRiskThresholds || ctx.OldValue.High != 70 || ctx.NewValue.High != 80 {
		t.Fatalf("unexpected audit context: %+v", ctx)
	}
}

func TestUpdateSettingsRejections(t *testing.T) {
	f := newFixture(t)
	svc := f.settingsService(nil)

	_, err := svc.UpdateThresholds(asUser(7, "analyst"), types.RiskThresholds{High: 80, Medium: 60, Low: 20})
	requireAPIError(t, err, http.StatusForbidden, "forbidden")

	_, err = svc.UpdateThresholds(asUser(1, "admin"), types.RiskThresholds{High: 60, Medium: 60, Low: 20})
	ae := requireAPIError(t, err, http.StatusUnprocessableEntity, "validation_failed")
	if _, ok := ae.Fields["thresholds"]; !ok {
		t.Fatalf("expected ordering error, got %v", ae.Fields)
	}

	_, err = svc.UpdateAlerts(asUser(1, "admin"), types.AlertSettings{SlackAlerts: true, AlertEmail: "not-an-email"})
	ae = requireAPIError(t, err, http.StatusUnprocessableEntity, "validation_failed")
	if _, ok := ae.Fields["slack_webhook"]; !ok {
		t.Fatalf("expected slack_webhook error, got %v", ae.Fields)
	}
	if _, ok := ae.Fields["alert_email"]; !ok {
		t.Fatalf("expected alert_email error, got %v", ae.Fields)
	}

	_, err = svc.UpdateVendorRules(asUser(1, "admin"), types.VendorRules{MaxDailyLimit: 10, Sensitivity: "extreme"})
	ae = requireAPIError(t, err, http.StatusUnprocessableEntity, "validation_failed")
	if len(ae.Fields) != 2 {
		t.Fatalf("expected two vendor rule errors, got %v", ae.Fields)
	}
}

func TestUpdateVendorRulesNormalizesBlacklist(t *testing.T) {
	f := newFixture(t)
	out, err := f.settingsService(nil).UpdateVendorRules(asUser(1, "admin"), types.VendorRules{
		MaxDailyLimit: 5000,
		Sensitivity:   " HIGH ",
		Blacklist:     []string{" V1 ", "V2", "", "V1"},
	})
	if err != nil {
		t.Fatalf("UpdateVendorRules: %v", err)
	}
	if out.Sensitivity != "high" || len(out.Blacklist) != 2 || out.Blacklist[0] != "V1" || out.Blacklist[1] != "V2" {
		t.Fatalf("unexpected normalized rules: %+v", out)
	}
}

func TestMLConnection(t *testing.T) {
	f := newFixture(t)

	_, err := f.settingsService(nil).TestMLConnection(asUser(1, "admin"))
	requireAPIError(t, err, http.StatusServiceUnavailable, "ml_not_configured")

	h, err := f.settingsService(&stubML{}).TestMLConnection(asUser(1, "analyst"))
	if err != nil || h.Status != "ok" {
		t.Fatalf("expected healthy ML service, got %+v (%v)", h, err)
	}

	h, err = f.settingsService(&stubML{healthErr: errors.New("dial tcp: refused")}).TestMLConnection(asUser(1, "admin"))
	if err != nil || h.Status != "unreachable" {
		t.Fatalf("expected unreachable status, got %+v (%v)", h, err)
	}
}

package settingsstore

import (
	"fmt"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/ratings"
)

// Reconcile run outcomes stored in SettingKeyReconcileLastStatus.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// ReconcileConfig is the effective schedule for the rating reconcile job.
type ReconcileConfig struct {
	Enabled  bool   `json:"enabled"`
	Schedule string `json:"schedule"`
}

// ReconcileConfigInfo includes source information for each field.
type ReconcileConfigInfo struct {
	Enabled        bool   `json:"enabled"`
	EnabledSource  string `json:"enabled_source"`
	Schedule       string `json:"schedule"`
	ScheduleSource string `json:"schedule_source"`
	Description    string `json:"description"`
}

// ReconcileStatus describes the last finished reconcile run.
type ReconcileStatus struct {
	LastRunAt *time.Time `json:"last_run_at,omitempty"`
	Status    string     `json:"status,omitempty"`
	Message   string     `json:"message,omitempty"`
	Changed   int        `json:"changed"`
}

func (s *SettingsStore) GetReconcileEnabled() bool {
	if v, ok := s.lookup(entities.SettingKeyReconcileEnabled); ok {
		return v == "true"
	}
	return s.reconcile.Enabled
}

func (s *SettingsStore) GetReconcileEnabledSource() string {
	if _, ok := s.lookup(entities.SettingKeyReconcileEnabled); ok {
		return SourceDatabase
	}
	return SourceEnvironment
}

func (s *SettingsStore) SetReconcileEnabled(enabled bool) error {
	return s.repo.SetSetting(entities.SettingKeyReconcileEnabled, strconv.FormatBool(enabled))
}

func (s *SettingsStore) GetReconcileSchedule() string {
	if v, ok := s.lookup(entities.SettingKeyReconcileSchedule); ok {
		return v
	}
	return s.reconcile.Schedule
}

func (s *SettingsStore) GetReconcileScheduleSource() string {
	if _, ok := s.lookup(entities.SettingKeyReconcileSchedule); ok {
		return SourceDatabase
	}
	return SourceEnvironment
}

// SetReconcileSchedule stores a schedule override after validating it.
func (s *SettingsStore) SetReconcileSchedule(schedule string) error {
	if err := ValidateCronSchedule(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
	}
	return s.repo.SetSetting(entities.SettingKeyReconcileSchedule, schedule)
}

func (s *SettingsStore) GetReconcileConfig() ReconcileConfig {
	return ReconcileConfig{
		Enabled:  s.GetReconcileEnabled(),
		Schedule: s.GetReconcileSchedule(),
	}
}

func (s *SettingsStore) GetReconcileConfigInfo() ReconcileConfigInfo {
	schedule := s.GetReconcileSchedule()
	return ReconcileConfigInfo{
		Enabled:        s.GetReconcileEnabled(),
		EnabledSource:  s.GetReconcileEnabledSource(),
		Schedule:       schedule,
		ScheduleSource: s.GetReconcileScheduleSource(),
		Description:    GetCronDescription(schedule),
	}
}

// GetReconcileStatus returns the outcome of the last reconcile run.
func (s *SettingsStore) GetReconcileStatus() ReconcileStatus {
	status := ReconcileStatus{}

	if v, ok := s.lookup(entities.SettingKeyReconcileLastAt); ok {
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			status.LastRunAt = &ts
		}
	}
	status.Status, _ = s.lookup(entities.SettingKeyReconcileLastStatus)
	status.Message, _ = s.lookup(entities.SettingKeyReconcileLastMessage)
	if v, ok := s.lookup(entities.SettingKeyReconcileLastChanged); ok {
		status.Changed, _ = strconv.Atoi(v)
	}

	return status
}

// RecordReconcileRun stores the outcome of a reconcile run in one write.
func (s *SettingsStore) RecordReconcileRun(result ratings.ReconcileResult, runErr error) error {
	status := StatusSuccess
	message := fmt.Sprintf("Checked %d books, repaired %d, failed %d", result.Checked, result.Changed, result.Failed)
	if runErr != nil {
		status = StatusFailed
		message = runErr.Error()
	}

	return s.repo.SetSettings(map[string]string{
		entities.SettingKeyReconcileLastAt:      s.now().UTC().Format(time.RFC3339),
		entities.SettingKeyReconcileLastStatus:  status,
		entities.SettingKeyReconcileLastMessage: message,
		entities.SettingKeyReconcileLastChanged: strconv.Itoa(result.Changed),
	})
}

// ClearReconcileSettings drops database overrides, reverting to the environment.
func (s *SettingsStore) ClearReconcileSettings() error {
	return s.clear(entities.SettingKeyReconcileEnabled, entities.SettingKeyReconcileSchedule)
}

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateCronSchedule validates a five-field cron schedule string.
func ValidateCronSchedule(schedule string) error {
	_, err := cronParser.Parse(schedule)
	return err
}

// GetCronDescription returns a human-readable description of a cron schedule
func GetCronDescription(schedule string) string {
	switch schedule {
	case "0 * * * *":
		return "Every hour at :00"
	case "*/15 * * * *":
		return "Every 15 minutes"
	case "*/30 * * * *":
		return "Every 30 minutes"
	case "0 */6 * * *":
		return "Every 6 hours"
	case "0 0 * * *":
		return "Daily at midnight"
	case "0 3 * * *":
		return "Daily at 03:00"
	case "0 0 * * 0":
		return "Weekly on Sunday at midnight"
	default:
		return "Custom schedule: " + schedule
	}
}

// GetNextRunTime calculates when a schedule next fires after from.
func GetNextRunTime(schedule string, from time.Time) (*time.Time, error) {
	sched, err := cronParser.Parse(schedule)
	if err != nil {
		return nil, err
	}
	next := sched.Next(from)
	return &next, nil
}

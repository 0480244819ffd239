package scheduler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/rondalog/rondalog/internal/config"
	"github.com/rondalog/rondalog/internal/shift"
)

const lastReminderKey = "last_reminder"

// StateStore keeps the last reminder across restarts. *store.DB satisfies it.
type StateStore interface {
	GetState(key string) (string, error)
	SetState(key, value string) error
}

// Scheduler reminds the crew to file the patrol report when a shift ends.
type Scheduler struct {
	sched  cron.Schedule
	spec   string
	loc    *time.Location
	notify bool
	state  StateStore
	logger *slog.Logger

	notifier func(title, message string) error
	out      io.Writer
}

// New parses the cron schedule from cfg. The default "0 6,18 * * *" fires at
// every shift boundary.
func New(cfg *config.Config, state StateStore, logger *slog.Logger) (*Scheduler, error) {
	spec := strings.TrimSpace(cfg.Notifications.Schedule)
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid notifications.schedule %q: %w", spec, err)
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Scheduler{
		sched:    sched,
		spec:     spec,
		loc:      cfg.Location(),
		notify:   cfg.Notifications.Enabled,
		state:    state,
		logger:   logger,
		notifier: SendNotification,
		out:      os.Stdout,
	}, nil
}

func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.writePID(); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer s.removePID()

	fmt.Fprintf(s.out, "Reminder started (cron: %s, timezone: %s)\n", s.spec, s.loc)
	if last, err := s.state.GetState(lastReminderKey); err == nil && last != "" {
		fmt.Fprintf(s.out, "Last reminder: %s\n", last)
	}

	for {
		now := time.Now().In(s.loc)
		next := s.sched.Next(now)
		fmt.Fprintf(s.out, "Next reminder at %s\n", next.Format("02/01 15:04"))

		select {
		case <-ctx.Done():
			fmt.Fprintln(s.out, "\nReminder stopped.")
			return nil
		case <-time.After(time.Until(next)):
		}

		s.remind(next)
	}
}

// remind announces the shift ending at at and records it.
func (s *Scheduler) remind(at time.Time) {
	at = at.In(s.loc)
	iv, ok := shift.EndingAt(at)
	if !ok {
		iv = shift.Containing(at)
	}
	title, message := reminderText(iv, ok)

	if s.notify {
		if err := s.notifier(title, message); err != nil {
			s.logger.Warn("notification failed", "error", err)
		}
	}
	fmt.Fprintf(s.out, "%s: %s\n", title, message)
	s.logger.Info("shift reminder", "shift", iv.String(), "boundary", ok)

	if err := s.state.SetState(lastReminderKey, at.Format(time.RFC3339)); err != nil {
		s.logger.Warn("recording reminder failed", "error", err)
	}
}

func reminderText(iv shift.Interval, ended bool) (string, string) {
	if ended {
		return "rondalog", fmt.Sprintf("Plantão %s encerrado. Registre a ronda de %s.", iv.Code, iv.Date.Display())
	}
	return "rondalog", fmt.Sprintf("Plantão %s em andamento. Registre as ocorrências.", iv.Code)
}

func pidPath() (string, error) {
	dir, err := config.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "rondalog.pid"), nil
}

func (s *Scheduler) writePID() error {
	path, err := pidPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0644)
}

func (s *Scheduler) removePID() {
	if path, err := pidPath(); err == nil {
		os.Remove(path)
	}
}

func ReadPID() (int, error) {
	path, err := pidPath()
	if err != nil {
		return 0, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("no running reminder found")
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID file")
	}

	return pid, nil
}

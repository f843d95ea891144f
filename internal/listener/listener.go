// Package listener runs the station mode: a polling loop over a drop
// directory of item photos, identifying and logging each one against the
// active visit.
package listener

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"carecount/internal"
	"carecount/internal/config"
	"carecount/internal/pipeline"
	"carecount/internal/recognizer"
	"carecount/internal/session"
	"carecount/internal/storage"
)

type Service struct {
	db     *storage.DB
	cfg    config.Config
	chain  *recognizer.Chain
	logsvc *pipeline.LogService
	policy session.Policy
}

func NewService(db *storage.DB, cfg config.Config, chain *recognizer.Chain, logsvc *pipeline.LogService, policy session.Policy) *Service {
	return &Service{db: db, cfg: cfg, chain: chain, logsvc: logsvc, policy: policy}
}

// Run signs the station account in and processes dropped images until the
// context is cancelled or the session policy ends the shift.
func (s *Service) Run(ctx context.Context) error {
	email := strings.TrimSpace(s.cfg.StationEmail)
	if email == "" {
		return errors.New("STATION_EMAIL is required for station mode")
	}

	now := time.Now()
	if err := s.db.SignInVolunteer(email, now.UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	_ = s.db.InsertEvent(email, "login", map[string]any{"mode": "station"})

	sess := session.New(email, now)

	for {
		now = time.Now()
		if guard := sess.Guard(s.policy, now); guard != session.GuardOK {
			_ = s.db.EndShift(email, now.UTC().Format(time.RFC3339))
			_ = s.db.InsertEvent(email, "shift_end", map[string]any{"reason": string(guard)})
			fmt.Printf("station shift ended: %s\n", guard)
			return nil
		}

		if err := s.runCycle(ctx, sess); err != nil {
			fmt.Printf("station cycle error: %v\n", err)
		}

		select {
		case <-ctx.Done():
			ts := time.Now().UTC().Format(time.RFC3339)
			_ = s.db.EndShift(email, ts)
			_ = s.db.InsertEvent(email, "shift_end", map[string]any{"reason": "shutdown"})
			return nil
		case <-time.After(time.Duration(s.cfg.StationIntervalSec) * time.Second):
		}
	}
}

func (s *Service) runCycle(ctx context.Context, sess *session.Context) error {
	images, err := s.pendingImages()
	if err != nil {
		return err
	}
	if len(images) == 0 {
		return nil
	}

	visit, err := s.activeVisit(sess)
	if err != nil {
		return err
	}

	for _, path := range images {
		if err := s.processImage(ctx, sess, visit, path); err != nil {
			fmt.Printf("station image error %s: %v\n", filepath.Base(path), err)
		}
	}
	return nil
}

func (s *Service) pendingImages() ([]string, error) {
	entries, err := os.ReadDir(s.cfg.StationDropDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	out := []string{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".png", ".jpg", ".jpeg":
			out = append(out, filepath.Join(s.cfg.StationDropDir, entry.Name()))
		}
	}
	sort.Strings(out)
	if len(out) > s.cfg.StationBatchMax {
		out = out[:s.cfg.StationBatchMax]
	}
	return out, nil
}

func (s *Service) activeVisit(sess *session.Context) (internal.VisitRow, error) {
	visit, err := s.db.ActiveVisit()
	if err != nil {
		return internal.VisitRow{}, err
	}
	if visit == nil {
		started, err := s.db.StartVisit(sess.Email, time.Now())
		if err != nil {
			return internal.VisitRow{}, err
		}
		_ = s.db.InsertEvent(sess.Email, "visit_start", map[string]any{"visit_id": started.ID, "visit_code": started.VisitCode})
		visit = &started
	}
	sess.VisitID = visit.ID
	return *visit, nil
}

func (s *Service) processImage(ctx context.Context, sess *session.Context, visit internal.VisitRow, path string) error {
	image, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	name, _, err := s.chain.Identify(ctx, image)
	if err != nil {
		_ = s.db.InsertEvent(sess.Email, "vlm_error", map[string]any{"image": filepath.Base(path), "error": err.Error()})
		return s.moveTo(path, "failed")
	}
	sess.ScannedName = name.Value

	result, _, err := s.logsvc.LogItem(ctx, sess.Email, visit.ID, pipeline.ItemInput{Name: name.Value, Qty: 1})
	if err != nil {
		return err
	}
	if !result.Succeeded() {
		fmt.Printf("station ingest failed for %s: %s\n", filepath.Base(path), result.Message)
		return s.moveTo(path, "failed")
	}

	sess.Touch(time.Now())
	fmt.Printf("station logged %q (visit %d, %s)\n", name.Value, visit.ID, result.Outcome)
	return s.moveTo(path, "processed")
}

func (s *Service) moveTo(path, subdir string) error {
	dir := filepath.Join(s.cfg.StationDropDir, subdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.Rename(path, filepath.Join(dir, filepath.Base(path)))
}

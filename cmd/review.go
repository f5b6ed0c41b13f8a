package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
	"go.uber.org/zap"

	"github.com/spigell/cv-screener/internal/candidate"
	"github.com/spigell/cv-screener/internal/notify"
	"github.com/spigell/cv-screener/internal/report"
)

const (
	PromptShowTables    = "Show candidates"
	PromptReviewOne     = "Review a candidate"
	PromptBulkRejection = "Send rejection emails to all rejected"
	PromptMissingInfo   = "Request missing contact information"
	PromptExport        = "Export results"
	PromptExit          = "Exit"
	PromptBack          = "back"
	PromptChangeVerdict = "Change verdict"
	PromptEditNotes     = "Edit recruiter notes"
	PromptSendEmail     = "Send verdict email"
	PromptSchedule      = "Schedule interview"
	PromptSaveSummary   = "Save summary pdf"
	reviewDateLayout    = "2006-01-02"
	summaryFileMode     = 0o644
)

var errExit = errors.New("exit requested")

// review runs the interactive loop. Exports made from the menu go to exportDir.
func review(ctx context.Context, rt *runtime, exportDir string, logger *zap.Logger) error {
	for {
		menu := promptui.Select{
			Label: "What next?",
			Items: []string{PromptShowTables, PromptReviewOne, PromptBulkRejection, PromptMissingInfo, PromptExport, PromptExit},
		}
		_, action, err := menu.Run()
		if err != nil {
			return err
		}

		if err := handleReviewAction(ctx, action, rt, exportDir, logger); err != nil {
			if errors.Is(err, errExit) {
				return nil
			}
			return err
		}
	}
}

func handleReviewAction(ctx context.Context, action string, rt *runtime, exportDir string, logger *zap.Logger) error {
	switch action {
	case PromptShowTables:
		sess, err := rt.sessions.Current()
		if err != nil {
			return err
		}
		printBatch(os.Stdout, sess.Batch)
		return nil
	case PromptReviewOne:
		return reviewCandidate(ctx, rt, logger)
	case PromptBulkRejection:
		if rt.notifier == nil {
			logger.Warn("notifications are disabled", zap.String("hint", "set notify.enabled in the configuration"))
			return nil
		}
		sess, err := rt.sessions.Current()
		if err != nil {
			return err
		}
		logResults(logger, rt.notifier.NotifyAll(ctx, sess.Batch.ByVerdict(candidate.Reject)))
		return nil
	case PromptMissingInfo:
		if rt.notifier == nil {
			logger.Warn("notifications are disabled", zap.String("hint", "set notify.enabled in the configuration"))
			return nil
		}
		sess, err := rt.sessions.Current()
		if err != nil {
			return err
		}
		logResults(logger, rt.notifier.RequestMissingInfo(ctx, sess.Batch.MissingContact()))
		return nil
	case PromptExport:
		if exportDir == "" {
			logger.Warn("exports are disabled", zap.String("hint", "pass --export-dir"))
			return nil
		}
		return exportAll(ctx, rt, exportDir, logger)
	case PromptExit:
		logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func reviewCandidate(ctx context.Context, rt *runtime, logger *zap.Logger) error {
	sess, err := rt.sessions.Current()
	if err != nil {
		return err
	}

	items := make([]string, 0, sess.Batch.Len()+1)
	for _, r := range sess.Batch.Ranked() {
		items = append(items, fmt.Sprintf("%s | %s | %s | %.2f", r.ResumeFile, r.Name, r.Verdict, r.Score))
	}
	picker := promptui.Select{
		Label: "Choose a candidate and press ENTER",
		Items: append(items, PromptBack),
		Size:  10,
	}
	_, selected, err := picker.Run()
	if err != nil {
		return err
	}
	if selected == PromptBack {
		return nil
	}
	file := strings.TrimSpace(strings.Split(selected, "|")[0])

	for {
		rec, err := rt.sessions.Candidate(file)
		if err != nil {
			return err
		}
		logger.Info("candidate",
			zap.String("name", rec.Name),
			zap.String("verdict", string(rec.Verdict)),
			zap.Float64("score", rec.Score),
			zap.String("fitment", rec.Fitment),
			zap.Strings("missing_contact", rec.MissingContact()),
			zap.String("notes", rec.RecruiterNotes),
		)

		actions := promptui.Select{
			Label: fmt.Sprintf("%s (%s)", rec.DisplayName(), rec.Verdict),
			Items: []string{PromptChangeVerdict, PromptEditNotes, PromptSendEmail, PromptSchedule, PromptSaveSummary, PromptBack},
		}
		_, action, err := actions.Run()
		if err != nil {
			return err
		}

		switch action {
		case PromptBack:
			return nil
		case PromptChangeVerdict:
			choose := promptui.Select{Label: "New verdict", Items: []string{string(candidate.Shortlist), string(candidate.Review), string(candidate.Reject)}}
			_, v, err := choose.Run()
			if err != nil {
				return err
			}
			if _, err := rt.sessions.Override(file, v, nil); err != nil {
				return err
			}
		case PromptEditNotes:
			input := promptui.Prompt{Label: "Notes", Default: rec.RecruiterNotes, AllowEdit: true}
			notes, err := input.Run()
			if err != nil {
				return err
			}
			if _, err := rt.sessions.Override(file, "", &notes); err != nil {
				return err
			}
		case PromptSendEmail:
			if rt.notifier == nil {
				logger.Warn("notifications are disabled", zap.String("hint", "set notify.enabled in the configuration"))
				continue
			}
			logResults(logger, []notify.Result{rt.notifier.Notify(ctx, &rec)})
		case PromptSchedule:
			if err := scheduleInterview(ctx, rt, &rec, logger); err != nil {
				logger.Error("scheduling failed", zap.Error(err))
			}
		case PromptSaveSummary:
			data, err := report.RenderSummaryPDF(&rec)
			if err != nil {
				return err
			}
			name, err := summaryName(rt, &rec)
			if err != nil {
				return err
			}
			if err := os.WriteFile(name, data, summaryFileMode); err != nil {
				return err
			}
			if err := rt.blobs.Put(ctx, rt.containers.Reports, name, data); err != nil {
				logger.Warn("persisting summary failed", zap.Error(err))
			}
			logger.Info("summary saved", zap.String("filename", name))
		}
	}
}

// summaryName keeps a single summary consistent with the names exportAll uses.
func summaryName(rt *runtime, rec *candidate.Record) (string, error) {
	sess, err := rt.sessions.Current()
	if err != nil {
		return "", err
	}
	if name, ok := report.PDFNames(sess.Batch.Items)[rec.ResumeFile]; ok {
		return name, nil
	}
	return report.PDFName(rec), nil
}

func scheduleInterview(ctx context.Context, rt *runtime, rec *candidate.Record, logger *zap.Logger) error {
	if rt.scheduler == nil {
		return errors.New("interview scheduling is disabled")
	}
	if rec.Verdict != candidate.Shortlist {
		return errors.New("interviews can only be scheduled for shortlisted candidates")
	}

	dateInput := promptui.Prompt{
		Label:   "Interview date",
		Default: notify.DefaultDate(time.Now()).Format(reviewDateLayout),
		Validate: func(s string) error {
			_, err := time.Parse(reviewDateLayout, s)
			return err
		},
	}
	rawDate, err := dateInput.Run()
	if err != nil {
		return err
	}
	date, _ := time.Parse(reviewDateLayout, rawDate)

	slotPicker := promptui.Select{Label: "Interview time", Items: notify.Slots(), Size: 10}
	_, slot, err := slotPicker.Run()
	if err != nil {
		return err
	}

	link, err := rt.scheduler.Schedule(ctx, rec.Email, rec.DisplayName(), date, slot)
	if err != nil {
		return err
	}
	if link == "" {
		logger.Warn("interview scheduled without a meeting link")
		return nil
	}
	logger.Info("interview scheduled", zap.String("meet_link", link))
	return nil
}

func logResults(logger *zap.Logger, results []notify.Result) {
	for _, r := range results {
		if r.Sent {
			logger.Info("email sent", zap.String("to", r.Recipient), zap.String("resume_file", r.ResumeFile))
			continue
		}
		logger.Warn("email not sent", zap.String("to", r.Recipient), zap.String("resume_file", r.ResumeFile), zap.Error(r.Err))
	}
}

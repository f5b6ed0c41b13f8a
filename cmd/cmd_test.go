package cmd

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/cv-screener/internal/ai"
	"github.com/spigell/cv-screener/internal/candidate"
	"github.com/spigell/cv-screener/internal/logger"
	"github.com/spigell/cv-screener/internal/screening"
	"github.com/spigell/cv-screener/internal/session"
	"github.com/spigell/cv-screener/internal/storage"
)

type fixedCompleter struct{}

func (fixedCompleter) Complete(context.Context, ai.Request) (string, error) { return "{}", nil }

type fixedRunner struct{}

func (fixedRunner) Run(_ context.Context, _ *candidate.Job, uploads []screening.Upload, _ screening.ProgressFunc) *candidate.Batch {
	batch := &candidate.Batch{}
	for i, up := range uploads {
		batch.Items = append(batch.Items, &candidate.Record{
			Name:            candidate.NotAvailable,
			Email:           up.Name + "@example.com",
			SkillsMatch:     70,
			DomainMatch:     70,
			ExperienceMatch: 70,
			JDSimilarity:    70,
			Score:           70,
			Verdict:         candidate.Review,
			ResumeFile:      up.Name,
			Order:           i,
		})
	}
	return batch
}

func readCSV(t *testing.T, pattern string) [][]string {
	t.Helper()
	matches, err := filepath.Glob(pattern)
	require.NoError(t, err)
	require.Len(t, matches, 1)

	f, err := os.Open(matches[0])
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestReadResumes(t *testing.T) {
	dir := t.TempDir()
	for name, body := range map[string]string{
		"b.pdf":     "%PDF-1.4",
		"a.txt":     "Jane Doe",
		"notes.doc": "ignored",
		"c.MD":      "# John",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.txt"), 0o755))

	uploads, err := readResumes(dir)
	require.NoError(t, err)

	var names []string
	for _, up := range uploads {
		names = append(names, up.Name)
	}
	assert.Equal(t, []string{"a.txt", "b.pdf", "c.MD"}, names)
	assert.Equal(t, "Jane Doe", string(uploads[0].Data))

	_, err = readResumes(t.TempDir())
	assert.Error(t, err)
	_, err = readResumes("")
	assert.Error(t, err)
}

func TestJobFromFlags(t *testing.T) {
	jd := filepath.Join(t.TempDir(), "jd.txt")
	require.NoError(t, os.WriteFile(jd, []byte("Senior Go developer"), 0o644))

	cmd := &cobra.Command{}
	cmd.Flags().AddFlagSet(analyzeCmd.Flags())
	require.NoError(t, cmd.Flags().Set("jd", jd))
	require.NoError(t, cmd.Flags().Set("skills", " Go, SQL "))
	require.NoError(t, cmd.Flags().Set("experience", candidate.ExperienceSenior))
	require.NoError(t, cmd.Flags().Set("top-n", "3"))

	th := candidate.DefaultThresholds()
	th.Skills = 70
	job, err := jobFromFlags(cmd, &Config{Thresholds: th})
	require.NoError(t, err)

	assert.Equal(t, "Senior Go developer", job.Description)
	assert.Equal(t, "Go, SQL", job.Skills)
	assert.Equal(t, 3, job.TopN)
	assert.Equal(t, 70.0, job.Thresholds.Skills)
	require.NoError(t, job.Validate())
}

func TestNewOracleUnsupportedProvider(t *testing.T) {
	_, err := newOracle(context.Background(), &AIConfig{Provider: "openai"}, &runtime{}, zap.NewNop())
	require.Error(t, err)
	assert.Equal(t, "unsupported ai provider: openai", err.Error())

	_, err = newOracle(context.Background(), &AIConfig{Provider: "anthropic"}, &runtime{}, zap.NewNop())
	assert.Error(t, err)
}

func TestLogOracleNamesProviderOnce(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	log := zap.New(core)

	oracle, err := newOracle(context.Background(), &AIConfig{
		Provider:  "anthropic",
		Anthropic: &AnthropicConfig{APIKey: "test-key", Model: "claude-test"},
	}, &runtime{}, log)
	require.NoError(t, err)

	logOracle(log, oracle)

	entries := logs.FilterMessage("ai oracle ready").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "anthropic", fields[logger.FieldProvider])
	assert.Equal(t, "claude-test", fields[logger.FieldModel])
	assert.Len(t, entries[0].Context, 2)

	logOracle(log, fixedCompleter{})
	assert.Equal(t, 2, logs.FilterMessage("ai oracle ready").Len())
}

func TestNewEmbedderFallsBackWithoutKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	e, err := newEmbedder(context.Background(), &AIConfig{}, nil, zap.NewNop())
	require.NoError(t, err)
	_, err = e.Embed(context.Background(), "text")
	assert.ErrorIs(t, err, errEmbeddingsDisabled)
}

func TestNewStorage(t *testing.T) {
	rt := &runtime{}
	require.NoError(t, newStorage(context.Background(), nil, rt))
	assert.IsType(t, storage.Discard{}, rt.blobs)
	assert.Equal(t, storage.DefaultContainers(), rt.containers)

	rt = &runtime{}
	dir := filepath.Join(t.TempDir(), "data")
	require.NoError(t, newStorage(context.Background(), &StorageConfig{Backend: "local", Dir: dir}, rt))
	require.NoError(t, rt.blobs.Put(context.Background(), rt.containers.Exports, "x.csv", []byte("a")))
	_, err := os.Stat(filepath.Join(dir, "exports", "x.csv"))
	assert.NoError(t, err)

	assert.Error(t, newStorage(context.Background(), &StorageConfig{Backend: "s3"}, &runtime{}))
}

func TestNotificationsDisabledByDefault(t *testing.T) {
	rt := &runtime{}
	require.NoError(t, newNotifications(context.Background(), &NotifyConfig{}, rt, zap.NewNop()))
	assert.Nil(t, rt.notifier)
	assert.Nil(t, rt.scheduler)

	require.NoError(t, newNotifications(context.Background(), &NotifyConfig{Enabled: true, DryRun: true}, rt, zap.NewNop()))
	assert.NotNil(t, rt.notifier)
}

func TestPrintBatch(t *testing.T) {
	batch := &candidate.Batch{Items: []*candidate.Record{
		{Name: "Jane", ResumeFile: "jane", Score: 81.5, Verdict: candidate.Shortlist, Fitment: "Strong\nmatch"},
		{Name: "Joe", ResumeFile: "joe", Score: 20, Verdict: candidate.Reject},
	}}

	var out bytes.Buffer
	printBatch(&out, batch)
	text := out.String()

	assert.Contains(t, text, "SHORTLIST (1)")
	assert.Contains(t, text, "REVIEW (0)")
	assert.Contains(t, text, "REJECT (1)")
	assert.Contains(t, text, "81.50")
	assert.Contains(t, text, "Strong match")
	assert.Equal(t, 2, strings.Count(text, "FILE"))
}

func TestExportReflectsReviewOverrides(t *testing.T) {
	ctx := context.Background()
	rt := &runtime{
		sessions:   session.NewManager(nil, fixedRunner{}, zap.NewNop()),
		blobs:      storage.Discard{},
		containers: storage.DefaultContainers(),
	}

	job := candidate.Job{
		Description:     "Data engineer",
		Role:            "Data Engineer",
		ExperienceRange: candidate.ExperienceEarly,
		Thresholds:      candidate.DefaultThresholds(),
	}
	uploads := []screening.Upload{{Name: "ann"}, {Name: "bob"}}
	_, err := rt.sessions.Analyze(ctx, job, uploads, nil)
	require.NoError(t, err)

	notes := "great references"
	_, err = rt.sessions.Override("bob", string(candidate.Reject), &notes)
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, handleReviewAction(ctx, PromptExport, rt, dir, zap.NewNop()))

	rejected := readCSV(t, filepath.Join(dir, "reject_export_*.csv"))
	require.Len(t, rejected, 2)
	row := map[string]string{}
	for i, col := range rejected[0] {
		row[col] = rejected[1][i]
	}
	assert.Equal(t, "bob", row["resume_file"])
	assert.Equal(t, "great references", row["recruiter_notes"])

	shortlisted := readCSV(t, filepath.Join(dir, "shortlist_export_*.csv"))
	require.Len(t, shortlisted, 2)

	for _, name := range []string{"Candidate_Shortlist.pdf", "Candidate_Reject.pdf", "analytics.xlsx"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	assert.NoError(t, handleReviewAction(ctx, PromptExport, rt, "", zap.NewNop()))
}

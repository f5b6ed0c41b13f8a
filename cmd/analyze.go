package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/cv-screener/internal/candidate"
	"github.com/spigell/cv-screener/internal/logger"
	"github.com/spigell/cv-screener/internal/report"
	"github.com/spigell/cv-screener/internal/screening"
	"github.com/spigell/cv-screener/internal/util"
)

var resumeExtensions = map[string]bool{".pdf": true, ".txt": true, ".md": true}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Score a folder of resumes against a job description",
	Run: func(cmd *cobra.Command, _ []string) {
		analyze(cmd)
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	f := analyzeCmd.Flags()
	f.String("jd", "", "a file with the job description (required)")
	f.String("resumes", "", "a directory with resumes in pdf, txt or md format (required)")
	f.String("role", "", "job role, extracted from the job description when empty")
	f.String("domain", "", "required domain")
	f.String("skills", "", "required skills, comma separated")
	f.String("experience", candidate.ExperienceEarly, fmt.Sprintf("required experience, one of %s", strings.Join(candidate.ExperienceRanges(), ", ")))
	f.Float64("jd-threshold", candidate.DefaultThreshold, "minimum jd similarity")
	f.Float64("skills-threshold", candidate.DefaultThreshold, "minimum skills match")
	f.Float64("domain-threshold", candidate.DefaultThreshold, "minimum domain match")
	f.Float64("experience-threshold", candidate.DefaultThreshold, "minimum experience match")
	f.Float64("score-threshold", candidate.DefaultThreshold, "minimum final score")
	f.Int("top-n", 0, "shortlist only the best N candidates, 0 disables")
	f.Bool("review", false, "open the interactive review after the analysis")
	f.String("export-dir", "", "write csv exports, pdf summaries and the analytics workbook to this directory")

	viper.BindPFlag("thresholds.jd-similarity", f.Lookup("jd-threshold"))
	viper.BindPFlag("thresholds.skills", f.Lookup("skills-threshold"))
	viper.BindPFlag("thresholds.domain", f.Lookup("domain-threshold"))
	viper.BindPFlag("thresholds.experience", f.Lookup("experience-threshold"))
	viper.BindPFlag("thresholds.final-score", f.Lookup("score-threshold"))
}

func analyze(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the cv-screener", zap.String("version", version))

	job, err := jobFromFlags(cmd, config)
	if err != nil {
		logger.Fatal("reading the job context", zap.Error(err))
	}

	uploads, err := readResumes(flagString(cmd, "resumes"))
	if err != nil {
		logger.Fatal("reading resumes", zap.Error(err))
	}
	logger.Info("resumes found", zap.Int("count", len(uploads)))

	rt, err := newRuntime(ctx, config, logger)
	if err != nil {
		logger.Fatal("preparing the pipeline", zap.Error(err))
	}
	defer rt.Close()

	sess, err := rt.sessions.Analyze(ctx, job, uploads, func(dispatched, total int, msg string) {
		logger.Info(msg, zap.Int("dispatched", dispatched), zap.Int("total", total))
	})
	if err != nil {
		logger.Fatal("analysis failed", zap.Error(err))
	}

	printBatch(os.Stdout, sess.Batch)

	dir := flagString(cmd, "export-dir")
	if flagBool(cmd, "review") {
		if err := review(ctx, rt, dir, logger); err != nil {
			logger.Fatal("review failed", zap.Error(err))
		}
	}

	if dir != "" {
		if err := exportAll(ctx, rt, dir, logger); err != nil {
			logger.Fatal("exporting results", zap.Error(err))
		}
	}
}

func jobFromFlags(cmd *cobra.Command, config *Config) (candidate.Job, error) {
	jdFile := flagString(cmd, "jd")
	if jdFile == "" {
		return candidate.Job{}, fmt.Errorf("--jd is required")
	}
	jd, err := os.ReadFile(jdFile)
	if err != nil {
		return candidate.Job{}, fmt.Errorf("read job description: %w", err)
	}

	topN, _ := cmd.Flags().GetInt("top-n")
	return candidate.Job{
		Description:     string(jd),
		Role:            flagString(cmd, "role"),
		Domain:          flagString(cmd, "domain"),
		Skills:          flagString(cmd, "skills"),
		ExperienceRange: flagString(cmd, "experience"),
		Thresholds:      config.Thresholds,
		TopN:            topN,
	}, nil
}

// readResumes loads every supported file of dir in name order.
func readResumes(dir string) ([]screening.Upload, error) {
	if dir == "" {
		return nil, fmt.Errorf("--resumes is required")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read resumes directory: %w", err)
	}

	var uploads []screening.Upload
	for _, e := range entries {
		if e.IsDir() || !resumeExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Name(), err)
		}
		uploads = append(uploads, screening.Upload{Name: e.Name(), Data: data})
	}
	sort.Slice(uploads, func(i, j int) bool { return uploads[i].Name < uploads[j].Name })

	if len(uploads) == 0 {
		return nil, fmt.Errorf("no resumes in %s", dir)
	}
	return uploads, nil
}

func printBatch(out io.Writer, batch *candidate.Batch) {
	counts := batch.Counts()
	for _, v := range candidate.Verdicts() {
		records := batch.ByVerdict(v)
		fmt.Fprintf(out, "\n%s (%d)\n", strings.ToUpper(string(v)), counts[v])
		if len(records) == 0 {
			continue
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "FILE\tNAME\tEMAIL\tSCORE\tSKILLS\tDOMAIN\tEXP\tJD\tFITMENT")
		for _, r := range records {
			fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%.0f\t%.0f\t%.0f\t%.2f\t%s\n",
				r.ResumeFile, r.Name, r.Email, r.Score,
				r.SkillsMatch, r.DomainMatch, r.ExperienceMatch, r.JDSimilarity,
				util.TruncateForLog(r.Fitment, 60),
			)
		}
		w.Flush()
	}
}

// exportAll writes per verdict csv files, candidate summaries and the
// analytics workbook of the current session to dir and to the blob store.
func exportAll(ctx context.Context, rt *runtime, dir string, log *zap.Logger) error {
	sess, err := rt.sessions.Current()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	now := time.Now()

	write := func(container, name string, data []byte) error {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		if err := rt.blobs.Put(ctx, container, name, data); err != nil {
			log.Warn("persisting export failed", zap.String("name", name), zap.Error(err))
		}
		return nil
	}

	for _, v := range candidate.Verdicts() {
		data, err := report.RenderCSV(sess.Batch.ByVerdict(v))
		if err != nil {
			return err
		}
		if err := write(rt.containers.Exports, report.CSVName(v, now), data); err != nil {
			return err
		}
	}

	names := report.PDFNames(sess.Batch.Items)
	for _, r := range sess.Batch.Items {
		data, err := report.RenderSummaryPDF(r)
		if err != nil {
			log.Warn("rendering summary failed", zap.String("resume_file", r.ResumeFile), zap.Error(err))
			continue
		}
		if err := write(rt.containers.Reports, names[r.ResumeFile], data); err != nil {
			return err
		}
	}

	data, err := report.RenderAnalyticsXLSX(sess.Job, sess.Batch, now)
	if err != nil {
		return err
	}
	if err := write(rt.containers.Reports, report.XLSXName, data); err != nil {
		return err
	}

	log.Info("exports written", zap.String("dir", dir))
	return nil
}

func flagString(cmd *cobra.Command, name string) string {
	v, _ := cmd.Flags().GetString(name)
	return strings.TrimSpace(v)
}

func flagBool(cmd *cobra.Command, name string) bool {
	v, _ := cmd.Flags().GetBool(name)
	return v
}

package screening

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/cv-screener/internal/candidate"
	"github.com/spigell/cv-screener/internal/evaluation"
	"github.com/spigell/cv-screener/internal/logger"
	"github.com/spigell/cv-screener/internal/resume"
	"github.com/spigell/cv-screener/internal/storage"
)

// Upload is a resume file as received from the recruiter.
type Upload struct {
	Name string
	Data []byte
}

// ProgressFunc receives the number of dispatched resumes out of total.
type ProgressFunc func(dispatched, total int, msg string)

// Evaluator scores one resume. It must not fail; problems become fallback records.
type Evaluator interface {
	Evaluate(ctx context.Context, in evaluation.Input) *candidate.Record
}

// Similarity compares two texts on a 0–100 scale.
type Similarity interface {
	Similarity(ctx context.Context, a, b string) float64
}

// Deps are the collaborators of an Orchestrator.
type Deps struct {
	Extractor  resume.Extractor
	Similarity Similarity
	Evaluator  Evaluator
	Blobs      storage.BlobStore
	Container  string
	Logger     *zap.Logger
}

// Orchestrator evaluates a batch of resumes concurrently.
type Orchestrator struct {
	deps           Deps
	maxConcurrency int
}

// NewOrchestrator creates an Orchestrator. maxConcurrency <= 0 runs every resume at once.
func NewOrchestrator(deps Deps, maxConcurrency int) *Orchestrator {
	if deps.Blobs == nil {
		deps.Blobs = storage.Discard{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Orchestrator{deps: deps, maxConcurrency: maxConcurrency}
}

// Run returns exactly one record per upload, in upload order. A failing
// resume yields its fallback record and never affects the others.
func (o *Orchestrator) Run(ctx context.Context, job *candidate.Job, uploads []Upload, progress ProgressFunc) *candidate.Batch {
	total := len(uploads)
	slots := make([]*candidate.Record, total)
	names := uniqueNames(uploads)

	var g errgroup.Group
	if o.maxConcurrency > 0 {
		g.SetLimit(o.maxConcurrency)
	}

	var dispatched atomic.Int64
	for i := range uploads {
		g.Go(func() error {
			slots[i] = o.process(ctx, job, uploads[i], names[i], i)
			return nil
		})

		n := int(dispatched.Add(1))
		if progress != nil {
			progress(n, total, fmt.Sprintf("Processing %d of %d...", n, total))
		}
	}

	_ = g.Wait()

	o.deps.Logger.Info("batch evaluated", zap.Int("resumes", total))
	return &candidate.Batch{Items: slots}
}

func (o *Orchestrator) process(ctx context.Context, job *candidate.Job, up Upload, name string, order int) (record *candidate.Record) {
	log := logger.ForResume(o.deps.Logger, name)

	in := evaluation.Input{
		JD:              job.Description,
		Role:            job.Role,
		Domain:          job.Domain,
		Skills:          job.Skills,
		ExperienceRange: job.ExperienceRange,
		ResumeFile:      name,
		Order:           order,
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("resume pipeline panicked", zap.Any("panic", r))
			record = evaluation.Fallback(in, fmt.Sprintf("resume pipeline panicked: %v", r))
		}
	}()

	if err := o.deps.Blobs.Put(ctx, o.deps.Container, blobName(name, up.Name), up.Data); err != nil {
		log.Warn("persisting resume failed", zap.Error(err))
	}

	text, err := o.deps.Extractor.Extract(ctx, up.Name, up.Data)
	if err != nil {
		log.Warn("text extraction failed", zap.Error(err))
		text = ""
	}
	in.ResumeText = text
	in.Contact = resume.ExtractContact(text)
	in.JDSimilarity = o.deps.Similarity.Similarity(ctx, job.Description, resume.EmbeddingText(text))

	return o.deps.Evaluator.Evaluate(ctx, in)
}

// uniqueNames tags each upload with its base file name, suffixing duplicates.
func uniqueNames(uploads []Upload) []string {
	taken := make(map[string]bool, len(uploads))
	names := make([]string, len(uploads))
	for i, up := range uploads {
		base := resume.BaseName(up.Name)
		if base == "" || base == "." {
			base = fmt.Sprintf("resume_%d", i+1)
		}
		name := base
		for n := 2; taken[name]; n++ {
			name = fmt.Sprintf("%s_%d", base, n)
		}
		taken[name] = true
		names[i] = name
	}
	return names
}

// blobName keeps the uploaded extension on the resume tag.
func blobName(tag, upload string) string {
	return tag + filepath.Ext(filepath.Base(strings.TrimSpace(upload)))
}

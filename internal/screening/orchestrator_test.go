package screening

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/cv-screener/internal/candidate"
	"github.com/spigell/cv-screener/internal/evaluation"
)

type fakeExtractor struct{}

func (fakeExtractor) Extract(_ context.Context, name string, data []byte) (string, error) {
	if strings.HasSuffix(name, ".bin") {
		return "", errors.New("unsupported")
	}
	return string(data), nil
}

type fixedSimilarity float64

func (f fixedSimilarity) Similarity(context.Context, string, string) float64 { return float64(f) }

type recordingEvaluator struct {
	mu     sync.Mutex
	inputs []evaluation.Input
}

func (r *recordingEvaluator) Evaluate(_ context.Context, in evaluation.Input) *candidate.Record {
	r.mu.Lock()
	r.inputs = append(r.inputs, in)
	r.mu.Unlock()

	switch {
	case strings.Contains(in.ResumeText, "panic"):
		panic("boom")
	case in.ResumeText == "":
		return evaluation.Fallback(in, "empty resume")
	}
	return &candidate.Record{
		Name:       in.Contact.Name,
		Email:      in.Contact.Email,
		Score:      70,
		Verdict:    candidate.Review,
		ResumeFile: in.ResumeFile,
		Order:      in.Order,
	}
}

type memoryBlobs struct {
	mu    sync.Mutex
	names []string
	fail  bool
}

func (m *memoryBlobs) Put(_ context.Context, container, name string, _ []byte) error {
	if m.fail {
		return errors.New("bucket unavailable")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.names = append(m.names, container+"/"+name)
	return nil
}

func testJob() *candidate.Job {
	return &candidate.Job{
		Description:     "Backend engineer working on Go services",
		Role:            "Backend Engineer",
		ExperienceRange: candidate.ExperienceEarly,
		Thresholds:      candidate.DefaultThresholds(),
	}
}

func TestRunReturnsOneRecordPerUpload(t *testing.T) {
	eval := &recordingEvaluator{}
	blobs := &memoryBlobs{}
	o := NewOrchestrator(Deps{
		Extractor:  fakeExtractor{},
		Similarity: fixedSimilarity(64.2),
		Evaluator:  eval,
		Blobs:      blobs,
		Container:  "resumes",
	}, 2)

	uploads := []Upload{
		{Name: "alice.txt", Data: []byte("Alice Smith\nalice@example.com\n+1 555 123 4567")},
		{Name: "broken.bin", Data: []byte{0x00}},
		{Name: "crash.txt", Data: []byte("panic please")},
		{Name: "bob.txt", Data: []byte("Bob Stone\nbob@example.com")},
	}

	batch := o.Run(context.Background(), testJob(), uploads, nil)
	require.Equal(t, len(uploads), batch.Len())

	for i, rec := range batch.Items {
		require.NotNil(t, rec, "slot %d", i)
		assert.Equal(t, i, rec.Order)
	}

	assert.Equal(t, "alice", batch.Items[0].ResumeFile)
	assert.Equal(t, "alice@example.com", batch.Items[0].Email)
	assert.Equal(t, candidate.Reject, batch.Items[1].Verdict)
	assert.True(t, batch.Items[1].FraudDetected)
	assert.Equal(t, candidate.Reject, batch.Items[2].Verdict)
	assert.Contains(t, batch.Items[2].Fitment, "panicked")
	assert.Equal(t, candidate.Review, batch.Items[3].Verdict)

	for _, in := range eval.inputs {
		assert.Equal(t, 64.2, in.JDSimilarity)
		assert.Equal(t, "Backend Engineer", in.Role)
	}
	assert.Len(t, blobs.names, len(uploads))
	assert.Contains(t, blobs.names, "resumes/alice.txt")
}

func TestRunReportsMonotonicProgress(t *testing.T) {
	o := NewOrchestrator(Deps{
		Extractor:  fakeExtractor{},
		Similarity: fixedSimilarity(0),
		Evaluator:  &recordingEvaluator{},
	}, 0)

	var uploads []Upload
	for i := 0; i < 5; i++ {
		uploads = append(uploads, Upload{Name: fmt.Sprintf("cv%d.txt", i), Data: []byte("text")})
	}

	var seen []int
	o.Run(context.Background(), testJob(), uploads, func(dispatched, total int, msg string) {
		assert.Equal(t, 5, total)
		assert.Equal(t, fmt.Sprintf("Processing %d of %d...", dispatched, total), msg)
		seen = append(seen, dispatched)
	})

	assert.Equal(t, []int{1, 2, 3, 4, 5}, seen)
}

func TestRunEmptyBatch(t *testing.T) {
	o := NewOrchestrator(Deps{Extractor: fakeExtractor{}, Similarity: fixedSimilarity(0), Evaluator: &recordingEvaluator{}}, 1)
	batch := o.Run(context.Background(), testJob(), nil, nil)
	assert.Equal(t, 0, batch.Len())
}

func TestRunToleratesStorageFailure(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	o := NewOrchestrator(Deps{
		Extractor:  fakeExtractor{},
		Similarity: fixedSimilarity(10),
		Evaluator:  &recordingEvaluator{},
		Blobs:      &memoryBlobs{fail: true},
		Container:  "resumes",
		Logger:     zap.New(core),
	}, 1)

	batch := o.Run(context.Background(), testJob(), []Upload{{Name: "a.txt", Data: []byte("Ann Lee")}}, nil)
	require.Equal(t, 1, batch.Len())
	assert.Equal(t, candidate.Review, batch.Items[0].Verdict)
	assert.Equal(t, 1, logs.FilterMessage("persisting resume failed").Len())
}

func TestUniqueNames(t *testing.T) {
	names := uniqueNames([]Upload{
		{Name: "cv.pdf"},
		{Name: "dir/cv.txt"},
		{Name: "other.pdf"},
		{Name: "cv.pdf"},
		{Name: ""},
	})
	assert.Equal(t, []string{"cv", "cv_2", "other", "cv_3", "resume_5"}, names)

	names = uniqueNames([]Upload{{Name: "a.txt"}, {Name: "a.txt"}, {Name: "a_2.txt"}})
	assert.Equal(t, []string{"a", "a_2", "a_2_2"}, names)
}

func TestRunStoresDuplicateUploadsSeparately(t *testing.T) {
	blobs := &memoryBlobs{}
	o := NewOrchestrator(Deps{
		Extractor:  fakeExtractor{},
		Similarity: fixedSimilarity(0),
		Evaluator:  &recordingEvaluator{},
		Blobs:      blobs,
		Container:  "resumes",
	}, 0)

	uploads := []Upload{
		{Name: "cv.pdf", Data: []byte("first")},
		{Name: "cv.pdf", Data: []byte("second")},
		{Name: "notes", Data: []byte("third")},
	}
	o.Run(context.Background(), testJob(), uploads, nil)

	assert.ElementsMatch(t, []string{"resumes/cv.pdf", "resumes/cv_2.pdf", "resumes/notes"}, blobs.names)
}

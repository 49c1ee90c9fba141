package ocr

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/gmsas95/ocrdesk-cli/internal/errors"
)

func TestStartOCR_RecordsInitialSnapshot(t *testing.T) {
	svc := &fakeOCRService{startJobID: "job-1"}
	store := NewStore(svc, zap.NewNop())

	jobID, err := store.StartOCR(context.Background(), StartRequest{DocumentID: "doc-1"})
	require.NoError(t, err)
	assert.Equal(t, "job-1", jobID)

	// Queued snapshot exists before any poll tick
	st := store.Status("job-1")
	require.NotNil(t, st)
	assert.Equal(t, JobQueued, st.Status)
	assert.Equal(t, "doc-1", st.DocumentID)
	assert.False(t, st.StartedAt.IsZero())
}

func TestStartOCR_ErrorReRaised(t *testing.T) {
	svc := &fakeOCRService{
		startErr: apperrors.New("HTTP_002", "queue full"),
	}
	store := NewStore(svc, zap.NewNop())

	_, err := store.StartOCR(context.Background(), StartRequest{DocumentID: "doc-1"})
	require.Error(t, err)
	assert.Equal(t, "HTTP_002", apperrors.GetCode(err))
	assert.Contains(t, store.Error(), "queue full")
}

func TestGetResult_StoresByDocumentID(t *testing.T) {
	svc := &fakeOCRService{
		result: &Result{ID: "res-1", DocumentID: "doc-1", Text: "text", Confidence: 0.88},
	}
	store := NewStore(svc, zap.NewNop())

	result, err := store.GetResult(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "res-1", result.ID)

	cached := store.Result("doc-1")
	require.NotNil(t, cached)
	assert.Equal(t, "text", cached.Text)
}

func TestGetResult_KeyedByRequestedDocument(t *testing.T) {
	svc := &fakeOCRService{
		// Payload without a documentId field
		result: &Result{ID: "res-1", Text: "hello", Confidence: 0.91},
	}
	store := NewStore(svc, zap.NewNop())

	_, err := store.GetResult(context.Background(), "doc-42")
	require.NoError(t, err)

	cached := store.Result("doc-42")
	require.NotNil(t, cached)
	assert.Equal(t, "doc-42", cached.DocumentID)
	assert.Equal(t, "hello", cached.Text)
}

func TestGetResult_ErrorReRaised(t *testing.T) {
	svc := &fakeOCRService{
		resultErr: apperrors.New("GEN_001", "no result for document"),
	}
	store := NewStore(svc, zap.NewNop())

	_, err := store.GetResult(context.Background(), "doc-1")
	require.Error(t, err)
	assert.Nil(t, store.Result("doc-1"))
	assert.Contains(t, store.Error(), "no result for document")
}

func TestUpdateResult_ReplacesWholesale(t *testing.T) {
	svc := &fakeOCRService{
		result: &Result{ID: "res-1", DocumentID: "doc-1", Text: "corrected"},
	}
	store := NewStore(svc, zap.NewNop())

	// Pre-existing entry with different content
	store.setResult("doc-1", &Result{ID: "res-0", Text: "original", PageCount: 4})

	_, err := store.UpdateResult(context.Background(), "doc-1", ResultUpdate{Text: "corrected"})
	require.NoError(t, err)

	cached := store.Result("doc-1")
	assert.Equal(t, "res-1", cached.ID)
	assert.Equal(t, "corrected", cached.Text)
	assert.Zero(t, cached.PageCount) // no merge with the old entry
}

func TestReprocess_KeepsOldResultUntilCompletion(t *testing.T) {
	svc := &fakeOCRService{startJobID: "job-2"}
	store := NewStore(svc, zap.NewNop())
	store.setResult("doc-1", &Result{Text: "first pass"})

	jobID, err := store.Reprocess(context.Background(), ReprocessRequest{
		DocumentID: "doc-1",
		PageNumber: 2,
		Region:     BoundingBox{X: 10, Y: 20, Width: 200, Height: 50},
		Options:    ReprocessOptions{Enhance: true},
	})
	require.NoError(t, err)
	assert.Equal(t, "job-2", jobID)

	assert.Equal(t, "first pass", store.Result("doc-1").Text)
	require.NotNil(t, store.Status("job-2"))
}

func TestSetResult_AssemblesMissingText(t *testing.T) {
	store := NewStore(&fakeOCRService{}, zap.NewNop())

	store.setResult("doc-1", &Result{
		Pages: []Page{
			{Blocks: []Block{{Lines: []Line{{Text: "hello"}, {Text: "world"}}}}},
		},
	})

	assert.Equal(t, "hello\nworld", store.Result("doc-1").Text)
}

func TestStoreSubscribe(t *testing.T) {
	store := NewStore(&fakeOCRService{}, zap.NewNop())

	var calls int
	unsub := store.Subscribe(func() { calls++ })

	store.setStatus(&ProcessingStatus{JobID: "job-1", Status: JobQueued})
	assert.Equal(t, 1, calls)

	unsub()
	store.setStatus(&ProcessingStatus{JobID: "job-1", Status: JobProcessing})
	assert.Equal(t, 1, calls)
}

func TestStoreSnapshotsAreCopies(t *testing.T) {
	store := NewStore(&fakeOCRService{}, zap.NewNop())
	store.setStatus(&ProcessingStatus{JobID: "job-1", Status: JobQueued})

	st := store.Status("job-1")
	st.Status = JobFailed
	assert.Equal(t, JobQueued, store.Status("job-1").Status)

	all := store.Statuses()
	require.Len(t, all, 1)
	entry := all["job-1"]
	entry.Status = JobFailed
	assert.Equal(t, JobQueued, store.Status("job-1").Status)
}

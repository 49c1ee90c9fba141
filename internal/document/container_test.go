package document

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gmsas95/ocrdesk-cli/internal/config"
	apperrors "github.com/gmsas95/ocrdesk-cli/internal/errors"
	"github.com/gmsas95/ocrdesk-cli/internal/transport"
)

type fakeService struct {
	listResult   *ListResult
	listErr      error
	getDoc       *Document
	getErr       error
	uploadResult *UploadResult
	uploadErr    error
	updateDoc    *Document
	updateErr    error
	deleteErr    error
	bulkErr      error

	deleted []string
}

func (f *fakeService) List(ctx context.Context, query ListQuery) (*ListResult, error) {
	return f.listResult, f.listErr
}

func (f *fakeService) Get(ctx context.Context, id string) (*Document, error) {
	return f.getDoc, f.getErr
}

func (f *fakeService) Upload(ctx context.Context, fileName string, file io.Reader, opts UploadOptions, onProgress transport.ProgressFunc) (*UploadResult, error) {
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	if onProgress != nil {
		onProgress(50)
		onProgress(100)
	}
	return f.uploadResult, nil
}

func (f *fakeService) Update(ctx context.Context, id string, update Update) (*Document, error) {
	return f.updateDoc, f.updateErr
}

func (f *fakeService) Delete(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return f.deleteErr
}

func (f *fakeService) BulkDelete(ctx context.Context, ids []string) error {
	if f.bulkErr != nil {
		return f.bulkErr
	}
	f.deleted = append(f.deleted, ids...)
	return nil
}

func setupStore(t *testing.T, svc Service) *Store {
	t.Helper()

	cfg := config.DefaultConfig()
	return NewStore(svc, NewValidator(cfg), zap.NewNop())
}

func TestFetchDocuments(t *testing.T) {
	svc := &fakeService{
		listResult: &ListResult{
			Documents: []Document{
				{ID: "doc-1", Name: "invoice.pdf", Status: StatusCompleted},
				{ID: "doc-2", Name: "receipt.png", Status: StatusProcessing},
			},
			Total: 2,
		},
	}
	store := setupStore(t, svc)

	store.FetchDocuments(context.Background(), ListQuery{})

	docs := store.Documents()
	require.Len(t, docs, 2)
	assert.Equal(t, "doc-1", docs[0].ID)
	assert.False(t, store.Loading())
	assert.Empty(t, store.Error())
}

func TestFetchDocuments_ErrorSwallowed(t *testing.T) {
	svc := &fakeService{
		listErr: apperrors.New("HTTP_001", "connection refused"),
	}
	store := setupStore(t, svc)

	store.FetchDocuments(context.Background(), ListQuery{})

	assert.Empty(t, store.Documents())
	assert.Contains(t, store.Error(), "connection refused")
	assert.False(t, store.Loading())
}

func TestFetchDocument_SetsCurrent(t *testing.T) {
	svc := &fakeService{
		getDoc: &Document{ID: "doc-1", Name: "invoice.pdf", Status: StatusCompleted},
	}
	store := setupStore(t, svc)

	store.FetchDocument(context.Background(), "doc-1")

	current := store.Current()
	require.NotNil(t, current)
	assert.Equal(t, "doc-1", current.ID)
}

func TestUpload_Success(t *testing.T) {
	svc := &fakeService{
		uploadResult: &UploadResult{
			Document: Document{ID: "doc-new", Name: "scan.pdf", Status: StatusPending},
			JobID:    "job-1",
		},
	}
	store := setupStore(t, svc)

	dir := t.TempDir()
	path := filepath.Join(dir, "scan.pdf")
	require.NoError(t, os.WriteFile(path, []byte("pdf"), 0644))

	result, err := store.Upload(context.Background(), path, UploadOptions{Language: "eng"})
	require.NoError(t, err)
	assert.Equal(t, "job-1", result.JobID)

	// New document is prepended
	docs := store.Documents()
	require.Len(t, docs, 1)
	assert.Equal(t, "doc-new", docs[0].ID)

	// Progress entry ends at 100 / processing
	progress := store.Progress()
	entry, ok := progress["scan.pdf"]
	require.True(t, ok)
	assert.Equal(t, 100, entry.Progress)
	assert.Equal(t, UploadStateProcessing, entry.State)
	assert.Equal(t, "doc-new", entry.DocumentID)
}

func TestUpload_ValidationFailureReRaised(t *testing.T) {
	store := setupStore(t, &fakeService{})

	dir := t.TempDir()
	path := filepath.Join(dir, "malware.exe")
	require.NoError(t, os.WriteFile(path, []byte("nope"), 0644))

	_, err := store.Upload(context.Background(), path, UploadOptions{})
	require.Error(t, err)
	assert.Equal(t, "VAL_002", apperrors.GetCode(err))

	entry := store.Progress()["malware.exe"]
	assert.Equal(t, UploadStateFailed, entry.State)
	assert.Equal(t, 0, entry.Progress)
	assert.NotEmpty(t, entry.Error)
	assert.NotEmpty(t, store.Error())
}

func TestUpload_TransportFailureReRaised(t *testing.T) {
	svc := &fakeService{
		uploadErr: apperrors.New("HTTP_002", "storage unavailable"),
	}
	store := setupStore(t, svc)

	dir := t.TempDir()
	path := filepath.Join(dir, "scan.pdf")
	require.NoError(t, os.WriteFile(path, []byte("pdf"), 0644))

	_, err := store.Upload(context.Background(), path, UploadOptions{})
	require.Error(t, err)

	entry := store.Progress()["scan.pdf"]
	assert.Equal(t, UploadStateFailed, entry.State)
	assert.Contains(t, entry.Error, "storage unavailable")
	assert.Empty(t, store.Documents())
}

func TestUpload_RetryOverwritesProgressEntry(t *testing.T) {
	svc := &fakeService{
		uploadErr: apperrors.New("HTTP_001", "connection reset"),
	}
	store := setupStore(t, svc)

	dir := t.TempDir()
	path := filepath.Join(dir, "scan.pdf")
	require.NoError(t, os.WriteFile(path, []byte("pdf"), 0644))

	_, err := store.Upload(context.Background(), path, UploadOptions{})
	require.Error(t, err)
	assert.Equal(t, UploadStateFailed, store.Progress()["scan.pdf"].State)

	// Second attempt succeeds; the single entry is overwritten wholesale
	svc.uploadErr = nil
	svc.uploadResult = &UploadResult{
		Document: Document{ID: "doc-1", Name: "scan.pdf", Status: StatusPending},
		JobID:    "job-1",
	}

	_, err = store.Upload(context.Background(), path, UploadOptions{})
	require.NoError(t, err)

	progress := store.Progress()
	require.Len(t, progress, 1)
	entry := progress["scan.pdf"]
	assert.Equal(t, UploadStateProcessing, entry.State)
	assert.Empty(t, entry.Error)
}

func TestUpdate_ReplacesListAndCurrent(t *testing.T) {
	newName := "renamed.pdf"
	svc := &fakeService{
		updateDoc: &Document{ID: "doc-1", Name: newName, Status: StatusCompleted},
	}
	store := setupStore(t, svc)
	store.documents = []Document{{ID: "doc-1", Name: "old.pdf", Status: StatusCompleted}}
	store.current = &Document{ID: "doc-1", Name: "old.pdf", Status: StatusCompleted}

	store.Update(context.Background(), "doc-1", Update{Name: &newName})

	assert.Equal(t, newName, store.Documents()[0].Name)
	assert.Equal(t, newName, store.Current().Name)
}

func TestDelete_RemovesAndClearsSelection(t *testing.T) {
	svc := &fakeService{}
	store := setupStore(t, svc)
	store.documents = []Document{
		{ID: "doc-1", Status: StatusCompleted},
		{ID: "doc-2", Status: StatusCompleted},
	}
	store.current = &Document{ID: "doc-1", Status: StatusCompleted}

	store.Delete(context.Background(), "doc-1")

	docs := store.Documents()
	require.Len(t, docs, 1)
	assert.Equal(t, "doc-2", docs[0].ID)
	assert.Nil(t, store.Current())
	assert.Empty(t, store.Error())
}

func TestDelete_NotFoundTreatedAsSuccess(t *testing.T) {
	svc := &fakeService{
		deleteErr: apperrors.New("GEN_001", "document not found"),
	}
	store := setupStore(t, svc)
	store.documents = []Document{{ID: "doc-1", Status: StatusCompleted}}

	store.Delete(context.Background(), "doc-1")

	assert.Empty(t, store.Documents())
	assert.Empty(t, store.Error())
}

func TestDelete_TransportErrorKeepsDocument(t *testing.T) {
	svc := &fakeService{
		deleteErr: apperrors.New("HTTP_001", "connection refused"),
	}
	store := setupStore(t, svc)
	store.documents = []Document{{ID: "doc-1", Status: StatusCompleted}}

	store.Delete(context.Background(), "doc-1")

	assert.Len(t, store.Documents(), 1)
	assert.NotEmpty(t, store.Error())
}

func TestBulkDelete(t *testing.T) {
	svc := &fakeService{}
	store := setupStore(t, svc)
	store.documents = []Document{
		{ID: "doc-1"}, {ID: "doc-2"}, {ID: "doc-3"},
	}
	store.current = &Document{ID: "doc-2"}

	store.BulkDelete(context.Background(), []string{"doc-1", "doc-2"})

	docs := store.Documents()
	require.Len(t, docs, 1)
	assert.Equal(t, "doc-3", docs[0].ID)
	assert.Nil(t, store.Current())
	assert.Equal(t, []string{"doc-1", "doc-2"}, svc.deleted)
}

func TestFilter(t *testing.T) {
	store := setupStore(t, &fakeService{})
	store.documents = []Document{
		{ID: "doc-1", Name: "Invoice March.pdf", Status: StatusCompleted},
		{ID: "doc-2", Name: "receipt.png", Status: StatusCompleted},
		{ID: "doc-3", Name: "invoice draft.pdf", Status: StatusProcessing},
	}

	t.Run("by status", func(t *testing.T) {
		got := store.Filter(StatusCompleted, "")
		assert.Len(t, got, 2)
	})

	t.Run("by name substring case-insensitive", func(t *testing.T) {
		got := store.Filter("", "INVOICE")
		require.Len(t, got, 2)
		assert.Equal(t, "doc-1", got[0].ID)
		assert.Equal(t, "doc-3", got[1].ID)
	})

	t.Run("combined", func(t *testing.T) {
		got := store.Filter(StatusProcessing, "invoice")
		require.Len(t, got, 1)
		assert.Equal(t, "doc-3", got[0].ID)
	})

	t.Run("empty matches all", func(t *testing.T) {
		assert.Len(t, store.Filter("", ""), 3)
	})
}

func TestSubscribe(t *testing.T) {
	store := setupStore(t, &fakeService{listResult: &ListResult{}})

	var calls int
	unsub := store.Subscribe(func() { calls++ })

	store.FetchDocuments(context.Background(), ListQuery{})
	assert.GreaterOrEqual(t, calls, 2) // loading start + finish

	before := calls
	unsub()
	store.ClearError()
	assert.Equal(t, before, calls)
}

func TestSnapshotsAreCopies(t *testing.T) {
	store := setupStore(t, &fakeService{})
	store.documents = []Document{{ID: "doc-1", Name: "a.pdf"}}

	docs := store.Documents()
	docs[0].Name = "mutated"
	assert.Equal(t, "a.pdf", store.Documents()[0].Name)

	store.current = &Document{ID: "doc-1", Name: "a.pdf"}
	cur := store.Current()
	cur.Name = "mutated"
	assert.Equal(t, "a.pdf", store.Current().Name)
}

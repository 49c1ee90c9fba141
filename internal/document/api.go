package document

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"

	"github.com/google/uuid"

	apperrors "github.com/gmsas95/ocrdesk-cli/internal/errors"
	"github.com/gmsas95/ocrdesk-cli/internal/transport"
)

// Service is the document access layer: stateless, typed operations over
// the transport client.
type Service interface {
	List(ctx context.Context, query ListQuery) (*ListResult, error)
	Get(ctx context.Context, id string) (*Document, error)
	Upload(ctx context.Context, fileName string, file io.Reader, opts UploadOptions, onProgress transport.ProgressFunc) (*UploadResult, error)
	Update(ctx context.Context, id string, update Update) (*Document, error)
	Delete(ctx context.Context, id string) error
	BulkDelete(ctx context.Context, ids []string) error
}

type httpService struct {
	client *transport.Client
}

// NewService creates the document access layer over a transport client
func NewService(client *transport.Client) Service {
	return &httpService{client: client}
}

func (s *httpService) List(ctx context.Context, query ListQuery) (*ListResult, error) {
	params := url.Values{}
	if query.Status != "" {
		params.Set("status", string(query.Status))
	}
	if query.Search != "" {
		params.Set("search", query.Search)
	}
	if query.Page > 0 {
		params.Set("page", strconv.Itoa(query.Page))
	}
	if query.Limit > 0 {
		params.Set("limit", strconv.Itoa(query.Limit))
	}

	var result ListResult
	if err := s.client.GetJSON(ctx, "/api/documents", params, &result); err != nil {
		return nil, err
	}

	for i := range result.Documents {
		if _, err := ParseStatus(string(result.Documents[i].Status)); err != nil {
			return nil, apperrors.Wrap(err, "HTTP_002",
				fmt.Sprintf("document %s has an unknown status", result.Documents[i].ID))
		}
	}

	return &result, nil
}

func (s *httpService) Get(ctx context.Context, id string) (*Document, error) {
	var doc Document
	if err := s.client.GetJSON(ctx, "/api/documents/"+id, nil, &doc); err != nil {
		return nil, err
	}
	if _, err := ParseStatus(string(doc.Status)); err != nil {
		return nil, apperrors.Wrap(err, "HTTP_002", "backend reported an unknown document status")
	}
	return &doc, nil
}

func (s *httpService) Upload(ctx context.Context, fileName string, file io.Reader, opts UploadOptions, onProgress transport.ProgressFunc) (*UploadResult, error) {
	if opts.RequestID == "" {
		opts.RequestID = uuid.NewString()
	}

	var result UploadResult
	if err := s.client.UploadMultipart(ctx, "/api/documents/upload", fileName, file, opts, onProgress, &result); err != nil {
		return nil, err
	}
	if _, err := ParseStatus(string(result.Document.Status)); err != nil {
		return nil, apperrors.Wrap(err, "HTTP_002", "backend reported an unknown document status")
	}
	return &result, nil
}

func (s *httpService) Update(ctx context.Context, id string, update Update) (*Document, error) {
	var doc Document
	if err := s.client.PutJSON(ctx, "/api/documents/"+id, update, &doc); err != nil {
		return nil, err
	}
	if _, err := ParseStatus(string(doc.Status)); err != nil {
		return nil, apperrors.Wrap(err, "HTTP_002", "backend reported an unknown document status")
	}
	return &doc, nil
}

func (s *httpService) Delete(ctx context.Context, id string) error {
	return s.client.Delete(ctx, "/api/documents/"+id)
}

func (s *httpService) BulkDelete(ctx context.Context, ids []string) error {
	return s.client.PostJSON(ctx, "/api/documents/bulk-delete", map[string][]string{"ids": ids}, nil)
}

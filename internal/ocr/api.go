package ocr

import (
	"context"

	"github.com/google/uuid"

	apperrors "github.com/gmsas95/ocrdesk-cli/internal/errors"
	"github.com/gmsas95/ocrdesk-cli/internal/transport"
)

// Service is the OCR access layer over the transport client. Start and
// Reprocess return the backend-assigned job id; tracking the job is the
// poller's business.
type Service interface {
	Start(ctx context.Context, req StartRequest) (string, error)
	Status(ctx context.Context, jobID string) (*ProcessingStatus, error)
	Result(ctx context.Context, documentID string) (*Result, error)
	UpdateResult(ctx context.Context, documentID string, update ResultUpdate) (*Result, error)
	Reprocess(ctx context.Context, req ReprocessRequest) (string, error)
	Export(ctx context.Context, documentID string, format ExportFormat) ([]byte, error)
}

type httpService struct {
	client *transport.Client
}

// NewService creates the OCR access layer over a transport client
func NewService(client *transport.Client) Service {
	return &httpService{client: client}
}

type jobResponse struct {
	JobID string `json:"jobId"`
}

func (s *httpService) Start(ctx context.Context, req StartRequest) (string, error) {
	var resp jobResponse
	if err := s.client.PostJSON(ctx, "/api/ocr/process", req, &resp); err != nil {
		return "", err
	}
	if resp.JobID == "" {
		return "", apperrors.New("HTTP_002", "backend returned no job id")
	}
	return resp.JobID, nil
}

func (s *httpService) Status(ctx context.Context, jobID string) (*ProcessingStatus, error) {
	var status ProcessingStatus
	if err := s.client.GetJSON(ctx, "/api/ocr/status/"+jobID, nil, &status); err != nil {
		return nil, err
	}
	if _, err := ParseJobStatus(string(status.Status)); err != nil {
		return nil, apperrors.Wrap(err, "JOB_003", "backend reported an unknown job status")
	}
	return &status, nil
}

func (s *httpService) Result(ctx context.Context, documentID string) (*Result, error) {
	var result Result
	if err := s.client.GetJSON(ctx, "/api/ocr/result/"+documentID, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *httpService) UpdateResult(ctx context.Context, documentID string, update ResultUpdate) (*Result, error) {
	var result Result
	if err := s.client.PutJSON(ctx, "/api/ocr/result/"+documentID, update, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *httpService) Reprocess(ctx context.Context, req ReprocessRequest) (string, error) {
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	var resp jobResponse
	if err := s.client.PostJSON(ctx, "/api/ocr/reprocess", req, &resp); err != nil {
		return "", err
	}
	if resp.JobID == "" {
		return "", apperrors.New("HTTP_002", "backend returned no job id")
	}
	return resp.JobID, nil
}

func (s *httpService) Export(ctx context.Context, documentID string, format ExportFormat) ([]byte, error) {
	return s.client.PostBinary(ctx, "/api/export", map[string]string{
		"documentId": documentID,
		"format":     string(format),
	})
}

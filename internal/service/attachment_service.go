package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"backend/internal/model"
	"backend/internal/repository"
	"backend/internal/workflow"

	"github.com/google/uuid"
)

// FileStore is the storage collaborator behind attachments. The core only
// needs a path back; bytes live wherever the implementation puts them.
type FileStore interface {
	Save(ctx context.Context, name string, r io.Reader) (path string, size int64, err error)
	Remove(ctx context.Context, path string) error
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}

type AttachmentResponse struct {
	ID          string `json:"id"`
	RequestID   string `json:"request_id"`
	UploaderID  string `json:"uploader_id"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
	CreatedAt   string `json:"created_at"`
}

// AttachmentService attaches files to requests while they are still
// editable. Ownership checks mirror request editing rules.
type AttachmentService interface {
	Store(ctx context.Context, actor workflow.Actor, requestID uuid.UUID, fileName, contentType string, r io.Reader) (*AttachmentResponse, error)
	Delete(ctx context.Context, actor workflow.Actor, attachmentID uuid.UUID) error
	ListByRequest(ctx context.Context, actor workflow.Actor, requestID uuid.UUID) ([]AttachmentResponse, error)
	Download(ctx context.Context, actor workflow.Actor, attachmentID uuid.UUID) (*AttachmentResponse, io.ReadCloser, error)
}

type attachmentService struct {
	attachmentRepo repository.AttachmentRepository
	requestRepo    repository.RequestRepository
	auditRepo      repository.AuditRepository
	txManager      repository.TransactionManager
	store          FileStore
}

func NewAttachmentService(
	attachmentRepo repository.AttachmentRepository,
	requestRepo repository.RequestRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	store FileStore,
) AttachmentService {
	return &attachmentService{
		attachmentRepo: attachmentRepo,
		requestRepo:    requestRepo,
		auditRepo:      auditRepo,
		txManager:      txManager,
		store:          store,
	}
}

func (s *attachmentService) Store(ctx context.Context, actor workflow.Actor, requestID uuid.UUID, fileName, contentType string, r io.Reader) (*AttachmentResponse, error) {
	request, err := s.requestRepo.FindByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("request not found: %w", err)
	}

	if err := workflow.CanUpdate(actor, request); err != nil {
		return nil, err
	}

	path, size, err := s.store.Save(ctx, fileName, r)
	if err != nil {
		return nil, fmt.Errorf("failed to store file: %w", err)
	}

	attachment := &model.Attachment{
		RequestID:   request.ID,
		UploaderID:  actor.ID,
		FileName:    fileName,
		StoragePath: path,
		ContentType: contentType,
		SizeBytes:   size,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.attachmentRepo.Create(txCtx, attachment); createErr != nil {
			return fmt.Errorf("failed to create attachment: %w", createErr)
		}
		actorID := actor.ID
		audit := &model.AuditLog{
			UserID:     &actorID,
			Action:     model.ActionUploadAttachment,
			EntityID:   attachment.ID.String(),
			EntityName: fileName,
		}
		return s.auditRepo.Log(txCtx, audit)
	})
	if err != nil {
		// Best effort cleanup of the orphaned file.
		_ = s.store.Remove(ctx, path)
		return nil, &workflow.PersistenceError{Err: err}
	}

	resp := toAttachmentResponse(*attachment)
	return &resp, nil
}

func (s *attachmentService) Delete(ctx context.Context, actor workflow.Actor, attachmentID uuid.UUID) error {
	attachment, err := s.attachmentRepo.FindByID(ctx, attachmentID)
	if err != nil {
		return fmt.Errorf("attachment not found: %w", err)
	}
	request, err := s.requestRepo.FindByID(ctx, attachment.RequestID)
	if err != nil {
		return fmt.Errorf("request not found: %w", err)
	}

	if err := workflow.CanUpdate(actor, request); err != nil {
		return err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if deleteErr := s.attachmentRepo.Delete(txCtx, attachment.ID); deleteErr != nil {
			return fmt.Errorf("failed to delete attachment: %w", deleteErr)
		}
		actorID := actor.ID
		audit := &model.AuditLog{
			UserID:     &actorID,
			Action:     model.ActionDeleteAttachment,
			EntityID:   attachment.ID.String(),
			EntityName: attachment.FileName,
		}
		return s.auditRepo.Log(txCtx, audit)
	})
	if err != nil {
		return &workflow.PersistenceError{Err: err}
	}

	_ = s.store.Remove(ctx, attachment.StoragePath)
	return nil
}

func (s *attachmentService) ListByRequest(ctx context.Context, actor workflow.Actor, requestID uuid.UUID) ([]AttachmentResponse, error) {
	if _, err := s.requestRepo.FindByID(ctx, requestID); err != nil {
		return nil, fmt.Errorf("request not found: %w", err)
	}

	attachments, err := s.attachmentRepo.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, &workflow.PersistenceError{Err: err}
	}

	result := make([]AttachmentResponse, 0, len(attachments))
	for _, a := range attachments {
		result = append(result, toAttachmentResponse(a))
	}
	return result, nil
}

func (s *attachmentService) Download(ctx context.Context, actor workflow.Actor, attachmentID uuid.UUID) (*AttachmentResponse, io.ReadCloser, error) {
	attachment, err := s.attachmentRepo.FindByID(ctx, attachmentID)
	if err != nil {
		return nil, nil, fmt.Errorf("attachment not found: %w", err)
	}

	rc, err := s.store.Open(ctx, attachment.StoragePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open stored file: %w", err)
	}

	resp := toAttachmentResponse(*attachment)
	return &resp, rc, nil
}

func toAttachmentResponse(a model.Attachment) AttachmentResponse {
	return AttachmentResponse{
		ID:          a.ID.String(),
		RequestID:   a.RequestID.String(),
		UploaderID:  a.UploaderID.String(),
		FileName:    a.FileName,
		ContentType: a.ContentType,
		SizeBytes:   a.SizeBytes,
		CreatedAt:   a.CreatedAt.Format(time.RFC3339),
	}
}

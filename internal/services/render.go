package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"bizledger/internal/amqp"
	"bizledger/internal/core"
	"bizledger/internal/ledger"
	"bizledger/internal/log"
	"bizledger/internal/render"
)

// Rendered is a render result together with its HTML serialization.
type Rendered struct {
	render.Result
	HTML string `json:"html,omitempty"`
}

// RenderStores are the ledger ports the render service reads and writes.
type RenderStores struct {
	Invoices  ledger.InvoiceLister
	Templates ledger.TemplateStore
	Renders   ledger.RenderStore
}

// RenderService renders invoices synchronously and through the job queue.
type RenderService struct {
	stores    RenderStores
	publisher Publisher
	business  render.BusinessProfile
	pricing   render.Pricing
	newID     func() string
	now       func() time.Time
	logger    *log.Logger
}

// NewRenderService wires the stores. A nil publisher disables EnqueueRender.
func NewRenderService(stores RenderStores, publisher Publisher, business render.BusinessProfile, pricing render.Pricing, logger *log.Logger) *RenderService {
	if logger == nil {
		logger = log.Discard()
	}
	return &RenderService{
		stores:    stores,
		publisher: publisher,
		business:  business,
		pricing:   pricing,
		newID:     uuid.NewString,
		now:       time.Now,
		logger:    logger.WithComponent(log.ComponentRender),
	}
}

// Preview renders tpl with caller-supplied fields. HTML is produced only
// when withHTML is set.
func (s *RenderService) Preview(ctx context.Context, tpl render.Template, fields render.Fields, withHTML bool) (Rendered, error) {
	return s.render(ctx, tpl, fields, withHTML)
}

func (s *RenderService) render(ctx context.Context, tpl render.Template, fields render.Fields, withHTML bool) (Rendered, error) {
	res, err := render.Render(tpl, fields)
	if err != nil {
		var tce *core.TemplateConfigError
		if errors.As(err, &tce) && tce.TemplateID == "" {
			tce.TemplateID = tpl.ID
		}
		return Rendered{}, err
	}
	out := Rendered{Result: res}
	if withHTML {
		var buf bytes.Buffer
		if err := render.WriteHTML(&buf, res.Document); err != nil {
			return Rendered{}, fmt.Errorf("write html: %w", err)
		}
		out.HTML = buf.String()
	}
	if len(res.Warnings) > 0 {
		s.logger.WarnContext(ctx, "Template values replaced by defaults",
			log.FieldTemplateID, tpl.ID, log.FieldWarnings, len(res.Warnings))
	}
	return out, nil
}

// template returns the named template, or the first stored one when id is
// empty.
func (s *RenderService) template(ctx context.Context, id string) (render.Template, error) {
	if id != "" {
		return s.stores.Templates.GetTemplate(ctx, id)
	}
	all, err := s.stores.Templates.ListTemplates(ctx)
	if err != nil {
		return render.Template{}, err
	}
	if len(all) == 0 {
		return render.Template{}, fmt.Errorf("no templates stored: %w", core.ErrNotFound)
	}
	return all[0], nil
}

// RenderInvoice renders a stored invoice with a stored template.
func (s *RenderService) RenderInvoice(ctx context.Context, invoiceID, templateID string) (Rendered, error) {
	inv, err := s.stores.Invoices.GetInvoice(ctx, invoiceID)
	if err != nil {
		return Rendered{}, fmt.Errorf("invoice %q: %w", invoiceID, err)
	}
	tpl, err := s.template(ctx, templateID)
	if err != nil {
		return Rendered{}, fmt.Errorf("template %q: %w", templateID, err)
	}
	fields, err := render.FieldsFromInvoice(inv, s.business, s.pricing)
	if err != nil {
		return Rendered{}, err
	}
	return s.render(ctx, tpl, fields, true)
}

// EnqueueRender records a queued job and publishes it for the worker.
func (s *RenderService) EnqueueRender(ctx context.Context, invoiceID, templateID string) (ledger.RenderJob, error) {
	if s.publisher == nil {
		return ledger.RenderJob{}, ErrRenderQueueDisabled
	}
	if _, err := s.stores.Invoices.GetInvoice(ctx, invoiceID); err != nil {
		return ledger.RenderJob{}, fmt.Errorf("invoice %q: %w", invoiceID, err)
	}
	tpl, err := s.template(ctx, templateID)
	if err != nil {
		return ledger.RenderJob{}, fmt.Errorf("template %q: %w", templateID, err)
	}

	msg := amqp.NewRenderJobMessage(s.newID(), invoiceID, tpl.ID)
	job := ledger.RenderJob{
		JobID:       msg.JobID,
		InvoiceID:   invoiceID,
		TemplateID:  tpl.ID,
		Status:      ledger.RenderQueued,
		Warnings:    []core.ConfigValidationWarning{},
		RequestedAt: msg.RequestedAt,
	}
	if err := s.stores.Renders.SaveRender(ctx, job); err != nil {
		return ledger.RenderJob{}, fmt.Errorf("save render job: %w", err)
	}

	if err := s.publisher.PublishRenderJob(ctx, msg); err != nil {
		s.finish(ctx, &job, Rendered{}, err)
		return job, fmt.Errorf("publish render job: %w", err)
	}
	return job, nil
}

// ProcessJob renders the invoice named by msg and stores the outcome. It is
// idempotent: a job that already finished is left alone. Errors that a
// retry cannot fix are recorded on the job and returned marked permanent.
func (s *RenderService) ProcessJob(ctx context.Context, msg *amqp.RenderJobMessage) error {
	job, err := s.stores.Renders.GetRender(ctx, msg.JobID)
	switch {
	case errors.Is(err, core.ErrNotFound):
		job = ledger.RenderJob{
			JobID:       msg.JobID,
			InvoiceID:   msg.InvoiceID,
			TemplateID:  msg.TemplateID,
			Status:      ledger.RenderQueued,
			RequestedAt: msg.RequestedAt,
		}
	case err != nil:
		return fmt.Errorf("load render job: %w", err)
	case job.Status != ledger.RenderQueued:
		s.logger.InfoContext(ctx, "Render job already finished", log.FieldJobID, job.JobID, "status", job.Status)
		return nil
	}

	out, err := s.RenderInvoice(ctx, job.InvoiceID, job.TemplateID)
	if err != nil && !IsPermanent(err) {
		return err
	}
	if saveErr := s.finish(ctx, &job, out, err); saveErr != nil {
		return saveErr
	}
	return amqp.Permanent(err)
}

// finish stores the final state of job. cause nil means success.
func (s *RenderService) finish(ctx context.Context, job *ledger.RenderJob, out Rendered, cause error) error {
	completed := s.now().UTC()
	job.CompletedAt = &completed
	if cause != nil {
		job.Status = ledger.RenderFailed
		job.Error = cause.Error()
	} else {
		job.Status = ledger.RenderDone
		job.HTML = out.HTML
		job.Warnings = out.Warnings
	}
	if job.Warnings == nil {
		job.Warnings = []core.ConfigValidationWarning{}
	}
	if err := s.stores.Renders.SaveRender(ctx, *job); err != nil {
		s.logger.ErrorContext(ctx, "Failed to store render job", log.FieldJobID, job.JobID, log.FieldError, err)
		return fmt.Errorf("save render job: %w", err)
	}
	s.logger.InfoContext(ctx, "Render job finished",
		log.FieldJobID, job.JobID,
		log.FieldInvoiceID, job.InvoiceID,
		"status", job.Status)
	return nil
}

// GetRender returns a stored render job.
func (s *RenderService) GetRender(ctx context.Context, jobID string) (ledger.RenderJob, error) {
	return s.stores.Renders.GetRender(ctx, jobID)
}

package handlers

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/nclamvn/prismy-ultimate/internal/db/models"
	"github.com/nclamvn/prismy-ultimate/internal/db/repos"
	"github.com/nclamvn/prismy-ultimate/internal/services"
)

// JobHandler handles HTTP requests for the translation pipeline
type JobHandler struct {
	manager   *services.Manager
	uploadDir string
}

// NewJobHandler creates a new job handler instance
func NewJobHandler(manager *services.Manager, uploadDir string) *JobHandler {
	return &JobHandler{manager: manager, uploadDir: uploadDir}
}

// Translate accepts a document upload and creates a translation job
func (h *JobHandler) Translate(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "missing file upload")
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !supportedExtensions[ext] {
		return fiber.NewError(fiber.StatusBadRequest,
			fmt.Sprintf("unsupported file type %q: only PDF, TXT, DOC and DOCX are supported", ext))
	}
	if file.Size > maxUploadBytes {
		return fiber.NewError(fiber.StatusRequestEntityTooLarge,
			fmt.Sprintf("file too large: %d bytes (max %d)", file.Size, maxUploadBytes))
	}
	if file.Size == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "uploaded file is empty")
	}

	tier, err := models.ParseTier(strings.ToLower(c.FormValue("tier", models.TierStandard.String())))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	sourceLang := strings.ToLower(c.FormValue("source_lang", "auto"))
	targetLang := strings.ToLower(c.FormValue("target_lang", "vi"))

	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}
	path := filepath.Join(h.uploadDir, uuid.NewString()+"_"+filepath.Base(file.Filename))
	if err := c.SaveFile(file, path); err != nil {
		return fmt.Errorf("failed to save upload: %w", err)
	}

	totalPages := estimatePages(path, file.Size)
	job, err := h.manager.CreateJob(c.Context(), services.CreateJobParams{
		SourcePath: path,
		SourceLang: sourceLang,
		TargetLang: targetLang,
		Tier:       tier,
		TotalPages: totalPages,
	})
	if err != nil {
		return err
	}

	return c.JSON(SubmitResponse{
		JobID:         job.ID,
		Status:        job.Status.String(),
		TotalPages:    job.TotalPages,
		EstimatedTime: estimateTime(ext, totalPages),
		Progress:      job.Progress,
	})
}

// Status returns a job's current status and progress
func (h *JobHandler) Status(c *fiber.Ctx) error {
	job, err := h.manager.GetJob(c.Context(), c.Params("id"))
	if errors.Is(err, repos.ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "job not found")
	}
	if err != nil {
		return err
	}

	resp := StatusResponse{
		JobID:          job.ID,
		Status:         job.Status.String(),
		Progress:       job.Progress,
		TotalPages:     job.TotalPages,
		ProcessedPages: job.ProcessedPages,
		CreatedAt:      job.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      job.UpdatedAt.Format(time.RFC3339),
	}
	if job.Error != nil {
		resp.Error = *job.Error
	}
	return c.JSON(resp)
}

// QueueStatus reports pending counts per stage and the active job list
func (h *JobHandler) QueueStatus(c *fiber.Ctx) error {
	counts, err := h.manager.QueueStatus(c.Context())
	if err != nil {
		return err
	}
	active, err := h.manager.ActiveJobs(c.Context(), 10)
	if err != nil {
		return err
	}

	resp := QueueStatusResponse{
		Pending:    make(map[string]int64, len(counts)),
		ActiveJobs: make([]ActiveJob, 0, len(active)),
	}
	for stage, n := range counts {
		resp.Pending[stage.String()] = n
	}
	for _, job := range active {
		resp.ActiveJobs = append(resp.ActiveJobs, ActiveJob{
			JobID:      job.ID,
			Status:     job.Status.String(),
			Progress:   job.Progress,
			TotalPages: job.TotalPages,
		})
	}
	return c.JSON(resp)
}

// Cancel requests cancellation of an in-flight job
func (h *JobHandler) Cancel(c *fiber.Ctx) error {
	err := h.manager.CancelJob(c.Context(), c.Params("id"))
	if errors.Is(err, repos.ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "job not found")
	}
	if errors.Is(err, services.ErrCancelCompleted) {
		return fiber.NewError(fiber.StatusConflict, err.Error())
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"job_id": c.Params("id"), "status": models.JobStatusFailed.String()})
}

// Download serves the reconstructed output of a completed job
func (h *JobHandler) Download(c *fiber.Ctx) error {
	jobID := c.Params("id")
	job, err := h.manager.GetJob(c.Context(), jobID)
	if errors.Is(err, repos.ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "job not found")
	}
	if err != nil {
		return err
	}
	if job.Status != models.JobStatusCompleted {
		return fiber.NewError(fiber.StatusConflict,
			fmt.Sprintf("job is %s, not %s", job.Status, models.JobStatusCompleted))
	}

	text, err := h.manager.Artifacts().LoadResult(c.Context(), jobID)
	if errors.Is(err, repos.ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "output no longer available")
	}
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", jobID+"_translated.txt"))
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.SendString(text)
}

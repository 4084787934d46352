package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	apperrors "resume-ranker/internal/errors"
	"resume-ranker/internal/models"
	"resume-ranker/internal/objectstore"
	"resume-ranker/internal/pipeline"
	"resume-ranker/internal/preprocess"
	"resume-ranker/internal/queue"
	"resume-ranker/internal/storage"

	"github.com/google/uuid"
)

const (
	DefaultMaxUploadBytes = 32 << 20

	msgNoResumes        = "Please upload at least one resume"
	msgNoJobDescription = "Please enter a job description"
	msgNothingRanked    = "No valid resumes could be processed for ranking."
)

type JobStore interface {
	storage.JobCreator
	storage.JobReader
	FailJob(ctx context.Context, jobID uuid.UUID, reason string) error
}

// Runner ranks uploaded resumes against a job description.
type Runner interface {
	Run(ctx context.Context, jobDescription string, resumes []pipeline.Resume) (*models.Report, error)
}

type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type APIHandler struct {
	job      JobStore
	queue    queue.JobQueuer
	uploader objectstore.FileStorer
	s3Bucket string
	pipeline Runner

	maxUploadBytes int64
	checks         map[string]HealthChecker
	logger         *slog.Logger
}

type Option func(*APIHandler)

func WithMaxUploadBytes(n int64) Option {
	return func(h *APIHandler) {
		if n > 0 {
			h.maxUploadBytes = n
		}
	}
}

// WithHealthCheck adds a dependency reported by /healthz.
func WithHealthCheck(name string, checker HealthChecker) Option {
	return func(h *APIHandler) {
		h.checks[name] = checker
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(h *APIHandler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

func NewAPIHandler(db JobStore, queue queue.JobQueuer, store objectstore.FileStorer, s3Bucket string, runner Runner, opts ...Option) *APIHandler {
	h := &APIHandler{
		job:            db,
		queue:          queue,
		uploader:       store,
		s3Bucket:       s3Bucket,
		pipeline:       runner,
		maxUploadBytes: DefaultMaxUploadBytes,
		checks:         map[string]HealthChecker{},
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RankResponse is the body of a synchronous ranking. Message is set when
// nothing could be ranked.
type RankResponse struct {
	*models.Report
	Message string `json:"message,omitempty"`
}

type CreateJobResponse struct {
	JobID string `json:"jobId"`
}

// rankingForm is a parsed upload: the job description and every resume file.
type rankingForm struct {
	jobDescription string
	files          []*multipart.FileHeader
}

func (h *APIHandler) parseRankingForm(w http.ResponseWriter, r *http.Request) (*rankingForm, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, fmt.Sprintf("Upload exceeds the %d byte limit", tooLarge.Limit), http.StatusRequestEntityTooLarge)
			return nil, false
		}
		http.Error(w, "Expected a multipart form upload", http.StatusBadRequest)
		return nil, false
	}

	form := &rankingForm{
		jobDescription: r.FormValue("job_description"),
		files:          r.MultipartForm.File["resumes"],
	}

	if len(form.files) == 0 {
		http.Error(w, msgNoResumes, http.StatusBadRequest)
		return nil, false
	}
	if preprocess.IsBlank(form.jobDescription) {
		http.Error(w, msgNoJobDescription, http.StatusBadRequest)
		return nil, false
	}

	return form, true
}

// HandleRank extracts and ranks the uploaded resumes in the request.
func (h *APIHandler) HandleRank(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	form, ok := h.parseRankingForm(w, r)
	if !ok {
		return
	}
	defer r.MultipartForm.RemoveAll()

	resumes := make([]pipeline.Resume, len(form.files))
	for i, fileHeader := range form.files {
		resumes[i].Name = fileHeader.Filename
		resumes[i].Data, resumes[i].Err = readUpload(fileHeader)
	}

	report, err := h.pipeline.Run(r.Context(), form.jobDescription, resumes)
	if err != nil {
		h.logger.Error("ranking failed", "error", err)
		http.Error(w, "Ranking failed, please try again later", http.StatusInternalServerError)
		return
	}

	resp := RankResponse{Report: report}
	if report.Empty() {
		resp.Message = msgNothingRanked
	}

	writeJSON(w, http.StatusOK, resp, h.logger)
}

// HandleCreateJob stores the uploaded resumes and queues a ranking job for
// the worker.
func (h *APIHandler) HandleCreateJob(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	form, ok := h.parseRankingForm(w, r)
	if !ok {
		return
	}
	defer r.MultipartForm.RemoveAll()

	newJobID, err := uuid.NewV7()
	if err != nil {
		http.Error(w, "An error occurred while creating the job", http.StatusInternalServerError)
		return
	}

	newJob := &models.Job{
		ID:             newJobID,
		Status:         models.StatusQueued,
		JobDescription: form.jobDescription,
		Resumes:        make([]models.ResumeFile, len(form.files)),
	}

	for i, fileHeader := range form.files {
		name := filepath.Base(fileHeader.Filename)
		key := ObjectKey(newJobID, i, name)

		if err := h.upload(r.Context(), fileHeader, key); err != nil {
			h.logger.Error("failed to upload resume", "job_id", newJobID, "file", name, "error", err)
			h.discardUploads(r.Context(), newJobID, newJob.Resumes[:i])
			http.Error(w, "Failed to upload file "+name, http.StatusInternalServerError)
			return
		}

		newJob.Resumes[i] = models.ResumeFile{Position: i, FileName: name, ObjectKey: key}
	}

	if err := h.job.CreateJob(r.Context(), newJob); err != nil {
		h.logger.Error("failed to create job", "job_id", newJobID, "error", err)
		h.discardUploads(r.Context(), newJobID, newJob.Resumes)
		http.Error(w, "An error occurred while processing your resumes", http.StatusInternalServerError)
		return
	}

	if err := h.queue.InsertJob(r.Context(), newJobID.String()); err != nil {
		h.logger.Error("failed to queue job", "job_id", newJobID, "error", err)
		cleanupCtx := context.WithoutCancel(r.Context())
		if err := h.job.FailJob(cleanupCtx, newJobID, "job could not be queued"); err != nil {
			h.logger.Error("failed to mark unqueued job as failed", "job_id", newJobID, "error", err)
		}
		h.discardUploads(cleanupCtx, newJobID, newJob.Resumes)
		http.Error(w, "An error occurred while processing your resumes", http.StatusInternalServerError)
		return
	}

	h.logger.Info("job queued", "job_id", newJobID, "resumes", len(newJob.Resumes))
	writeJSON(w, http.StatusOK, CreateJobResponse{JobID: newJobID.String()}, h.logger)
}

// HandleViewJob returns a job's status, and its report once completed.
func (h *APIHandler) HandleViewJob(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	jobIDString := r.PathValue("jobId")

	jobID, err := uuid.Parse(jobIDString)
	if err != nil {
		http.Error(w, "Invalid job id format", http.StatusBadRequest)
		return
	}

	jobData, err := h.job.JobByID(r.Context(), jobID)
	if errors.Is(err, apperrors.ErrJobNotFound) {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("error retrieving job", "job_id", jobIDString, "error", err)
		http.Error(w, "An error occurred while retrieving the job", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, jobData, h.logger)
}

func (h *APIHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	body := map[string]string{"status": "ok"}

	for name, checker := range h.checks {
		if err := checker.HealthCheck(r.Context()); err != nil {
			h.logger.Warn("health check failed", "dependency", name, "error", err)
			status = http.StatusServiceUnavailable
			body["status"] = "unavailable"
			body[name] = err.Error()
			continue
		}
		body[name] = "ok"
	}

	writeJSON(w, status, body, h.logger)
}

// discardUploads removes the stored resumes of a job that was not queued.
// It runs even when the client has gone away.
func (h *APIHandler) discardUploads(ctx context.Context, jobID uuid.UUID, files []models.ResumeFile) {
	ctx = context.WithoutCancel(ctx)
	for _, file := range files {
		if err := h.uploader.Delete(ctx, h.s3Bucket, file.ObjectKey); err != nil {
			h.logger.Warn("failed to delete orphaned resume", "job_id", jobID, "key", file.ObjectKey, "error", err)
		}
	}
}

// ObjectKey is where a job's resume is stored in the bucket.
func ObjectKey(jobID uuid.UUID, position int, fileName string) string {
	return fmt.Sprintf("jobs/%s/%d-%s", jobID, position, strings.ReplaceAll(fileName, "/", "_"))
}

func (h *APIHandler) upload(ctx context.Context, fileHeader *multipart.FileHeader, key string) error {
	file, err := fileHeader.Open()
	if err != nil {
		return err
	}
	defer file.Close()

	location, err := h.uploader.Upload(ctx, file, h.s3Bucket, key, "application/pdf")
	if err != nil {
		return err
	}

	h.logger.Debug("resume uploaded", "key", key, "location", location)
	return nil
}

func readUpload(fileHeader *multipart.FileHeader) ([]byte, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("error handling %s: %w", fileHeader.Filename, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("error handling %s: %w", fileHeader.Filename, err)
	}
	return data, nil
}

func writeJSON(w http.ResponseWriter, status int, body any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

package handler

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	importapp "github.com/logistics/backend/internal/application/import"
	"github.com/logistics/backend/internal/application/progress"
	"github.com/logistics/backend/internal/infrastructure/fileimport"
	"github.com/logistics/backend/internal/infrastructure/storage"
	"github.com/logistics/backend/internal/infrastructure/telemetry"
	"github.com/logistics/backend/internal/interfaces/http/dto"
)

// ImportService is the application-layer contract the import handler drives
type ImportService interface {
	ImportBatch(ctx context.Context, rows []importapp.RawRow) (*importapp.ImportResult, error)
	LastRun() (*importapp.Run, bool)
	Run(id uuid.UUID) (*importapp.Run, bool)
	CancelActiveRun() bool
}

// ImportHandler handles batch import uploads and the progress and report
// endpoints of the asynchronous reconciliation run.
type ImportHandler struct {
	BaseHandler
	service     ImportService
	reader      *fileimport.CSVReader
	tracker     *progress.Tracker
	archiver    storage.Archiver
	metrics     *telemetry.ImportMetrics
	logger      *zap.Logger
	maxFileSize int64
}

// NewImportHandler creates a new ImportHandler
func NewImportHandler(
	service ImportService,
	reader *fileimport.CSVReader,
	tracker *progress.Tracker,
	archiver storage.Archiver,
	metrics *telemetry.ImportMetrics,
	logger *zap.Logger,
	maxFileSize int64,
) *ImportHandler {
	if archiver == nil {
		archiver = storage.NoopArchiver{}
	}
	if maxFileSize <= 0 {
		maxFileSize = 5 << 20
	}
	return &ImportHandler{
		service:     service,
		reader:      reader,
		tracker:     tracker,
		archiver:    archiver,
		metrics:     metrics,
		logger:      logger,
		maxFileSize: maxFileSize,
	}
}

// ImportOrders godoc
//
//	@Summary		Import orders from an uploaded sheet
//	@Description	Validates the uploaded CSV and, when every row passes, stores the batch and starts the asynchronous tracking reconciliation run
//	@Tags			import
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"CSV file (UTF-8 or GB18030)"
//	@Success		200		{object}	dto.Response
//	@Failure		400		{object}	dto.Response
//	@Failure		409		{object}	dto.Response
//	@Failure		413		{object}	dto.Response
//	@Router			/orders/import [post]
func (h *ImportHandler) ImportOrders(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		h.BadRequest(c, "file is required")
		return
	}
	defer file.Close()

	if header.Size > h.maxFileSize {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeValidation, "上传文件超过大小限制")
		return
	}

	content, err := io.ReadAll(io.LimitReader(file, h.maxFileSize+1))
	if err != nil {
		h.InternalError(c, "failed to read uploaded file")
		return
	}
	if int64(len(content)) > h.maxFileSize {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeValidation, "上传文件超过大小限制")
		return
	}

	rows, err := h.reader.Read(content)
	if err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeValidation, err.Error())
		return
	}

	result, err := h.service.ImportBatch(c.Request.Context(), rows)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if !result.Success {
		if h.metrics != nil {
			h.metrics.RecordImportRejected(c.Request.Context(), len(rows))
		}
		h.Error(c, http.StatusBadRequest, dto.ErrCodeImportValidation, result.Message)
		return
	}

	h.archiveUpload(c, result.RunID, header.Filename, content)
	if h.metrics != nil {
		h.metrics.RecordImportAccepted(c.Request.Context(), len(result.Records))
		h.observeRun(result.RunID)
	}

	h.Success(c, dto.ImportResponse{
		Success:  true,
		Message:  result.Message,
		RunID:    result.RunID.String(),
		Imported: len(result.Records),
	})
}

// archiveUpload stores the original file for audit. Failures are logged,
// never surfaced to the caller.
func (h *ImportHandler) archiveUpload(c *gin.Context, runID uuid.UUID, filename string, content []byte) {
	key, err := h.archiver.ArchiveImportFile(c.Request.Context(), runID.String(), filename, content)
	if err != nil {
		h.logger.Warn("failed to archive import file",
			zap.String("run_id", runID.String()),
			zap.Error(err))
		return
	}
	if key != "" {
		h.logger.Info("import file archived",
			zap.String("run_id", runID.String()),
			zap.String("key", key))
	}
}

// observeRun records sync metrics once the reconciliation run finishes
func (h *ImportHandler) observeRun(runID uuid.UUID) {
	run, ok := h.service.Run(runID)
	if !ok {
		return
	}
	start := time.Now()
	go func() {
		<-run.Done()
		h.metrics.RecordSyncReport(context.Background(), run.Report(), time.Since(start))
	}()
}

// GetProgress godoc
//
//	@Summary	Get the progress of the active import run
//	@Tags		import
//	@Produce	json
//	@Success	200	{object}	dto.Response
//	@Router		/orders/import/progress [get]
func (h *ImportHandler) GetProgress(c *gin.Context) {
	h.Success(c, h.tracker.Snapshot())
}

// ResetProgress godoc
//
//	@Summary	Reset the progress tracker after a finished run
//	@Tags		import
//	@Produce	json
//	@Success	200	{object}	dto.Response
//	@Failure	409	{object}	dto.Response
//	@Router		/orders/import/progress/reset [post]
func (h *ImportHandler) ResetProgress(c *gin.Context) {
	if err := h.tracker.Reset(); err != nil {
		h.Error(c, http.StatusConflict, dto.ErrCodeInvalidState, err.Error())
		return
	}
	h.Success(c, h.tracker.Snapshot())
}

// ReportResponse represents the reconciliation report of a run
type ReportResponse struct {
	RunID    string      `json:"run_id"`
	Finished bool        `json:"finished"`
	Report   interface{} `json:"report,omitempty"`
	Summary  string      `json:"summary,omitempty"`
}

// GetLatestReport godoc
//
//	@Summary	Get the reconciliation report of the most recent run
//	@Tags		import
//	@Produce	json
//	@Success	200	{object}	dto.Response
//	@Failure	404	{object}	dto.Response
//	@Router		/orders/import/report [get]
func (h *ImportHandler) GetLatestReport(c *gin.Context) {
	run, ok := h.service.LastRun()
	if !ok {
		h.NotFound(c, "没有可查询的同步记录")
		return
	}
	h.Success(c, buildReportResponse(run))
}

// GetRunReport godoc
//
//	@Summary	Get the reconciliation report of a specific run
//	@Tags		import
//	@Produce	json
//	@Param		id	path		string	true	"Run ID"
//	@Success	200	{object}	dto.Response
//	@Failure	404	{object}	dto.Response
//	@Router		/orders/import/runs/{id}/report [get]
func (h *ImportHandler) GetRunReport(c *gin.Context) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "invalid run id")
		return
	}

	runID, err := uuid.Parse(req.ID)
	if err != nil {
		h.BadRequest(c, "invalid run id")
		return
	}

	run, ok := h.service.Run(runID)
	if !ok {
		h.NotFound(c, "没有可查询的同步记录")
		return
	}
	h.Success(c, buildReportResponse(run))
}

// CancelRun godoc
//
//	@Summary	Cancel the active reconciliation run
//	@Tags		import
//	@Produce	json
//	@Success	200	{object}	dto.Response
//	@Router		/orders/import/cancel [post]
func (h *ImportHandler) CancelRun(c *gin.Context) {
	cancelled := h.service.CancelActiveRun()
	h.Success(c, gin.H{"cancelled": cancelled})
}

func buildReportResponse(run *importapp.Run) ReportResponse {
	resp := ReportResponse{RunID: run.ID.String()}

	select {
	case <-run.Done():
		resp.Finished = true
	default:
	}

	if report := run.Report(); report != nil {
		resp.Report = report
		resp.Summary = report.Summary()
	}
	return resp
}

// RegisterRoutes registers all import routes
func (h *ImportHandler) RegisterRoutes(rg *gin.RouterGroup) {
	orders := rg.Group("/orders")
	{
		orders.POST("/import", h.ImportOrders)
		orders.GET("/import/progress", h.GetProgress)
		orders.POST("/import/progress/reset", h.ResetProgress)
		orders.GET("/import/report", h.GetLatestReport)
		orders.GET("/import/runs/:id/report", h.GetRunReport)
		orders.POST("/import/cancel", h.CancelRun)
	}
}

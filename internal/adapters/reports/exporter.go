// Package reports renders project-level report artifacts (overview
// aggregates, individuals tables) from committed store state and materializes
// them into a blob store through an asynchronous worker.
package reports

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	blob "variantcore/internal/blob/core"
	"variantcore/pkg/domain"
)

// ReportFormat identifies a materialized artifact encoding.
type ReportFormat string

const (
	FormatJSON ReportFormat = "json"
	FormatCSV  ReportFormat = "csv"
	FormatTSV  ReportFormat = "tsv"
	FormatHTML ReportFormat = "html"
)

// ReportKind selects which report a job renders.
type ReportKind string

const (
	KindProjectOverview    ReportKind = "project_overview"
	KindProjectIndividuals ReportKind = "project_individuals"
)

// ExportStatus describes the lifecycle stage of an export request.
type ExportStatus string

const (
	ExportStatusQueued    ExportStatus = "queued"
	ExportStatusRunning   ExportStatus = "running"
	ExportStatusSucceeded ExportStatus = "succeeded"
	ExportStatusFailed    ExportStatus = "failed"
)

// ExportArtifact captures one stored report artifact.
type ExportArtifact struct {
	Key         string       `json:"key"`
	Format      ReportFormat `json:"format"`
	ContentType string       `json:"content_type"`
	SizeBytes   int64        `json:"size_bytes"`
	ETag        string       `json:"etag,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// ExportRecord tracks an export request and its resulting artifacts.
type ExportRecord struct {
	ID          string           `json:"id"`
	Kind        ReportKind       `json:"kind"`
	ProjectGUID string           `json:"project_guid"`
	Formats     []ReportFormat   `json:"formats"`
	Status      ExportStatus     `json:"status"`
	Error       string           `json:"error,omitempty"`
	Artifacts   []ExportArtifact `json:"artifacts,omitempty"`
	RequestedBy string           `json:"requested_by"`
	Reason      string           `json:"reason,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

// ExportInput represents an enqueue request for the worker.
type ExportInput struct {
	Kind        ReportKind
	ProjectGUID string
	Formats     []ReportFormat
	RequestedBy string
	Reason      string
}

// AuditLogger records report export audit entries.
type AuditLogger interface {
	Record(ctx context.Context, entry AuditEntry)
}

// AuditEntry captures audit trail metadata for report exports.
type AuditEntry struct {
	ID          string         `json:"id"`
	Action      string         `json:"action"`
	Actor       string         `json:"actor"`
	Kind        ReportKind     `json:"kind"`
	ProjectGUID string         `json:"project_guid"`
	Status      ExportStatus   `json:"status"`
	Reason      string         `json:"reason,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	OccurredAt  time.Time      `json:"occurred_at"`
}

// supportedFormats maps each report kind to the encodings it can render.
var supportedFormats = map[ReportKind]map[ReportFormat]struct{}{
	KindProjectOverview: {
		FormatJSON: {}, FormatCSV: {}, FormatHTML: {},
	},
	KindProjectIndividuals: {
		FormatJSON: {}, FormatCSV: {}, FormatTSV: {}, FormatHTML: {},
	},
}

// Worker renders report exports asynchronously.
type Worker struct {
	store domain.PersistentStore
	blobs blob.Store
	audit AuditLogger

	queue chan exportTask
	mu    sync.RWMutex
	jobs  map[string]*ExportRecord

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type exportTask struct {
	id    string
	input ExportInput
}

type renderedArtifact struct {
	Artifact ExportArtifact
	Payload  []byte
}

// NewWorker constructs a report export worker.
func NewWorker(store domain.PersistentStore, blobs blob.Store, audit AuditLogger) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		store:  store,
		blobs:  blobs,
		audit:  audit,
		queue:  make(chan exportTask, 32),
		jobs:   make(map[string]*ExportRecord),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins processing export requests.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop signals the worker to halt and waits for completion.
func (w *Worker) Stop(ctx context.Context) error {
	w.cancel()
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case task := <-w.queue:
			w.process(task)
		}
	}
}

// EnqueueExport schedules a report job and returns the queued record.
func (w *Worker) EnqueueExport(ctx context.Context, input ExportInput) (ExportRecord, error) {
	if strings.TrimSpace(input.ProjectGUID) == "" {
		return ExportRecord{}, fmt.Errorf("project guid required")
	}
	kind := input.Kind
	if kind == "" {
		kind = KindProjectOverview
	}
	allowed, ok := supportedFormats[kind]
	if !ok {
		return ExportRecord{}, fmt.Errorf("unknown report kind %s", kind)
	}

	formats := input.Formats
	if len(formats) == 0 {
		formats = []ReportFormat{FormatJSON, FormatCSV}
	}
	uniqFormats := make([]ReportFormat, 0, len(formats))
	seen := make(map[ReportFormat]struct{})
	for _, format := range formats {
		if _, duplicate := seen[format]; duplicate {
			continue
		}
		if _, supported := allowed[format]; !supported {
			return ExportRecord{}, fmt.Errorf("format %s not supported by %s report", format, kind)
		}
		uniqFormats = append(uniqFormats, format)
		seen[format] = struct{}{}
	}

	id := newID()
	now := time.Now().UTC()
	record := ExportRecord{
		ID:          id,
		Kind:        kind,
		ProjectGUID: input.ProjectGUID,
		Formats:     uniqFormats,
		Status:      ExportStatusQueued,
		RequestedBy: input.RequestedBy,
		Reason:      input.Reason,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	w.mu.Lock()
	w.jobs[id] = &record
	queuedSnapshot := record.copy()
	w.mu.Unlock()

	if w.audit != nil {
		w.audit.Record(ctx, AuditEntry{
			ID:          newID(),
			Action:      "project_report",
			Actor:       input.RequestedBy,
			Kind:        kind,
			ProjectGUID: input.ProjectGUID,
			Status:      ExportStatusQueued,
			Reason:      input.Reason,
			OccurredAt:  now,
		})
	}

	select {
	case w.queue <- exportTask{id: id, input: input}:
	default:
		return ExportRecord{}, fmt.Errorf("export queue full")
	}

	return queuedSnapshot, nil
}

// GetExport returns a snapshot of the export record.
func (w *Worker) GetExport(id string) (ExportRecord, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	record, ok := w.jobs[id]
	if !ok {
		return ExportRecord{}, false
	}
	return record.copy(), true
}

func (w *Worker) process(task exportTask) {
	record, ok := w.GetExport(task.id)
	if !ok {
		return
	}

	w.updateStatus(task.id, ExportStatusRunning, "")

	var rendered []renderedArtifact
	err := w.store.View(w.ctx, func(view domain.TransactionView) error {
		var renderErr error
		rendered, renderErr = w.render(record, view)
		return renderErr
	})
	if err != nil {
		w.fail(task.id, err.Error())
		return
	}

	artifacts := make([]ExportArtifact, 0, len(rendered))
	for _, artifact := range rendered {
		stored := artifact.Artifact
		if w.blobs != nil {
			info, err := w.blobs.Put(w.ctx, artifact.Artifact.Key, bytes.NewReader(artifact.Payload), blob.PutOptions{
				ContentType: artifact.Artifact.ContentType,
				Metadata: map[string]string{
					"report_kind":  string(record.Kind),
					"project_guid": record.ProjectGUID,
				},
			})
			if err != nil {
				w.fail(task.id, fmt.Sprintf("store artifact failed: %v", err))
				return
			}
			stored.SizeBytes = info.Size
			stored.ETag = info.ETag
			if !info.LastModified.IsZero() {
				stored.CreatedAt = info.LastModified
			}
		}
		artifacts = append(artifacts, stored)
	}

	w.complete(task.id, artifacts)
}

func (w *Worker) render(record ExportRecord, view domain.TransactionView) ([]renderedArtifact, error) {
	switch record.Kind {
	case KindProjectIndividuals:
		rows, err := BuildIndividualRows(view, record.ProjectGUID)
		if err != nil {
			return nil, err
		}
		return w.materializeIndividuals(record, rows)
	default:
		report, err := BuildOverviewReport(view, record.ProjectGUID)
		if err != nil {
			return nil, err
		}
		return w.materializeOverview(record, report)
	}
}

func (w *Worker) materializeOverview(record ExportRecord, report OverviewReport) ([]renderedArtifact, error) {
	out := make([]renderedArtifact, 0, len(record.Formats))
	rows := overviewRows(report)
	title := "Project Overview: " + report.Project.Name
	for _, format := range record.Formats {
		var payload []byte
		var err error
		switch format {
		case FormatJSON:
			payload, err = json.Marshal(report)
		case FormatCSV:
			payload, err = renderTable([]string{"section", "key", "value"}, rows, ',')
		case FormatHTML:
			payload = renderHTML(title, []string{"section", "key", "value"}, rows)
		default:
			err = fmt.Errorf("unsupported overview format %s", format)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, newRendered(record, format, payload))
	}
	return out, nil
}

func (w *Worker) materializeIndividuals(record ExportRecord, rows []IndividualRow) ([]renderedArtifact, error) {
	table := make([][]string, len(rows))
	for i, row := range rows {
		table[i] = row.record()
	}
	out := make([]renderedArtifact, 0, len(record.Formats))
	for _, format := range record.Formats {
		var payload []byte
		var err error
		switch format {
		case FormatJSON:
			payload, err = json.Marshal(rows)
		case FormatCSV:
			payload, err = renderTable(individualColumns, table, ',')
		case FormatTSV:
			payload, err = renderTable(individualColumns, table, '\t')
		case FormatHTML:
			payload = renderHTML("Project Individuals", individualColumns, table)
		default:
			err = fmt.Errorf("unsupported individuals format %s", format)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, newRendered(record, format, payload))
	}
	return out, nil
}

func newRendered(record ExportRecord, format ReportFormat, payload []byte) renderedArtifact {
	return renderedArtifact{
		Artifact: ExportArtifact{
			Key:         fmt.Sprintf("reports/%s/%s/%s.%s", record.ProjectGUID, record.ID, record.Kind, format),
			Format:      format,
			ContentType: contentTypeFor(format),
			SizeBytes:   int64(len(payload)),
			CreatedAt:   time.Now().UTC(),
		},
		Payload: payload,
	}
}

func contentTypeFor(format ReportFormat) string {
	switch format {
	case FormatJSON:
		return "application/json"
	case FormatCSV:
		return "text/csv"
	case FormatTSV:
		return "text/tab-separated-values"
	case FormatHTML:
		return "text/html"
	default:
		return "application/octet-stream"
	}
}

func renderTable(headers []string, rows [][]string, comma rune) ([]byte, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	writer.Comma = comma
	if err := writer.Write(headers); err != nil {
		return nil, err
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderHTML(title string, headers []string, rows [][]string) []byte {
	buf := &strings.Builder{}
	buf.WriteString("<!DOCTYPE html><html><head><meta charset=\"utf-8\"><title>")
	buf.WriteString(title)
	buf.WriteString("</title></head><body><table>")
	buf.WriteString("<thead><tr>")
	for _, header := range headers {
		buf.WriteString("<th>")
		buf.WriteString(header)
		buf.WriteString("</th>")
	}
	buf.WriteString("</tr></thead><tbody>")
	for _, row := range rows {
		buf.WriteString("<tr>")
		for _, cell := range row {
			buf.WriteString("<td>")
			buf.WriteString(cell)
			buf.WriteString("</td>")
		}
		buf.WriteString("</tr>")
	}
	buf.WriteString("</tbody></table></body></html>")
	return []byte(buf.String())
}

func (w *Worker) updateStatus(id string, status ExportStatus, message string) {
	now := time.Now().UTC()
	w.mu.Lock()
	var kind ReportKind
	var projectGUID, actor string
	if record, ok := w.jobs[id]; ok {
		record.Status = status
		record.Error = message
		record.UpdatedAt = now
		kind = record.Kind
		projectGUID = record.ProjectGUID
		actor = record.RequestedBy
	}
	w.mu.Unlock()
	if w.audit != nil {
		w.audit.Record(w.ctx, AuditEntry{
			ID:          newID(),
			Action:      "project_report",
			Actor:       actor,
			Kind:        kind,
			ProjectGUID: projectGUID,
			Status:      status,
			OccurredAt:  now,
		})
	}
}

func (w *Worker) complete(id string, artifacts []ExportArtifact) {
	now := time.Now().UTC()
	w.mu.Lock()
	var kind ReportKind
	var projectGUID, actor string
	if record, ok := w.jobs[id]; ok {
		record.Status = ExportStatusSucceeded
		record.Error = ""
		record.Artifacts = artifacts
		record.UpdatedAt = now
		record.CompletedAt = &now
		kind = record.Kind
		projectGUID = record.ProjectGUID
		actor = record.RequestedBy
	}
	w.mu.Unlock()
	if w.audit != nil {
		w.audit.Record(w.ctx, AuditEntry{
			ID:          newID(),
			Action:      "project_report",
			Actor:       actor,
			Kind:        kind,
			ProjectGUID: projectGUID,
			Status:      ExportStatusSucceeded,
			Metadata:    map[string]any{"artifacts": len(artifacts)},
			OccurredAt:  now,
		})
	}
}

func (w *Worker) fail(id, reason string) {
	now := time.Now().UTC()
	w.mu.Lock()
	var kind ReportKind
	var projectGUID, actor string
	if record, ok := w.jobs[id]; ok {
		record.Status = ExportStatusFailed
		record.Error = reason
		record.UpdatedAt = now
		record.CompletedAt = &now
		kind = record.Kind
		projectGUID = record.ProjectGUID
		actor = record.RequestedBy
	}
	w.mu.Unlock()
	if w.audit != nil {
		w.audit.Record(w.ctx, AuditEntry{
			ID:          newID(),
			Action:      "project_report",
			Actor:       actor,
			Kind:        kind,
			ProjectGUID: projectGUID,
			Status:      ExportStatusFailed,
			Metadata:    map[string]any{"error": reason},
			OccurredAt:  now,
		})
	}
}

func (r ExportRecord) copy() ExportRecord {
	dup := r
	dup.Formats = append([]ReportFormat(nil), r.Formats...)
	if len(r.Artifacts) > 0 {
		dup.Artifacts = append([]ExportArtifact(nil), r.Artifacts...)
	}
	return dup
}

func newID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return fmt.Sprintf("%x", b[:])
}

// MemoryAuditLog captures audit entries in-memory for assertions.
type MemoryAuditLog struct {
	mu      sync.Mutex
	entries []AuditEntry
}

// Record stores an audit entry.
func (l *MemoryAuditLog) Record(_ context.Context, entry AuditEntry) {
	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()
}

// Entries returns a defensive copy of recorded audit entries.
func (l *MemoryAuditLog) Entries() []AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]AuditEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

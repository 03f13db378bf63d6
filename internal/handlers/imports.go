package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/fynbos-digital/invoiceflow/internal/models"
	"github.com/fynbos-digital/invoiceflow/internal/services/intake"
	"github.com/fynbos-digital/invoiceflow/internal/store"
)

// maxUploadBytes caps a manual upload. Matches the largest invoice PDF seen
// in practice with room to spare; the pollers enforce the same limit.
const maxUploadBytes = 10 << 20

// uploadImport receives one invoice file as multipart form data, registers
// it and queues it for extraction.
func (r *Router) uploadImport(w http.ResponseWriter, req *http.Request) {
	req.Body = http.MaxBytesReader(w, req.Body, maxUploadBytes)
	if err := req.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid multipart payload or file too large (10MB max)")
		return
	}

	file, header, err := req.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Missing 'file' field")
		return
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(header.Filename)) {
	case ".pdf", ".png", ".jpg", ".jpeg", ".webp":
	default:
		respondError(w, http.StatusBadRequest, "Only PDF and image files are accepted")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Failed to read upload")
		return
	}

	imp, created, err := r.intake.Register(req.Context(), intake.Registration{
		Source:   models.SourceUpload,
		FileName: header.Filename,
		Data:     data,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	status := http.StatusCreated
	if !created {
		// Same content was uploaded before; hand back the existing record.
		status = http.StatusOK
	}
	respondJSON(w, status, imp)
}

// listImports returns imports newest first, with optional status/source/
// supplier filters and limit/offset paging.
func (r *Router) listImports(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	filter := store.ImportFilter{
		Status:       q.Get("status"),
		Source:       q.Get("source"),
		SupplierCode: q.Get("supplier"),
		Search:       q.Get("search"),
		Limit:        queryInt(q.Get("limit"), 50),
		Offset:       queryInt(q.Get("offset"), 0),
	}

	imports, total, err := r.store.ListImports(req.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"imports": imports,
		"total":   total,
	})
}

// importStats returns the imports-by-status aggregate for the dashboard.
func (r *Router) importStats(w http.ResponseWriter, req *http.Request) {
	counts, err := r.store.CountImportsByStatus(req.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, counts)
}

func (r *Router) getImport(w http.ResponseWriter, req *http.Request) {
	imp, ok := r.loadImport(w, req)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, imp)
}

// retryImport puts a failed import back through the pipeline.
func (r *Router) retryImport(w http.ResponseWriter, req *http.Request) {
	id, ok := pathID(w, req, "id")
	if !ok {
		return
	}
	imp, err := r.pipeline.Retry(req.Context(), id)
	if err != nil {
		respondError(w, http.StatusConflict, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, imp)
}

// rematchImport re-runs reconciliation against current master data without
// another extraction call.
func (r *Router) rematchImport(w http.ResponseWriter, req *http.Request) {
	id, ok := pathID(w, req, "id")
	if !ok {
		return
	}
	imp, err := r.pipeline.Rematch(req.Context(), id)
	if err != nil {
		respondError(w, http.StatusConflict, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, imp)
}

// ConfirmSupplierRequest pins an import to a supplier the user picked.
type ConfirmSupplierRequest struct {
	SupplierCode string `json:"supplierCode"`
}

func (r *Router) confirmSupplier(w http.ResponseWriter, req *http.Request) {
	id, ok := pathID(w, req, "id")
	if !ok {
		return
	}
	var body ConfirmSupplierRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil || body.SupplierCode == "" {
		respondError(w, http.StatusBadRequest, "supplierCode is required")
		return
	}

	imp, err := r.pipeline.ConfirmSupplier(req.Context(), id, body.SupplierCode)
	if err != nil {
		respondError(w, http.StatusConflict, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, imp)
}

// ConfirmLineRequest pins a line to an item. ExpenseAccount and CostCenter
// are optional overrides; when blank the item master fills them in.
type ConfirmLineRequest struct {
	ItemCode       string `json:"itemCode"`
	ExpenseAccount string `json:"expenseAccount"`
	CostCenter     string `json:"costCenter"`
}

func (r *Router) confirmLine(w http.ResponseWriter, req *http.Request) {
	id, ok := pathID(w, req, "id")
	if !ok {
		return
	}
	lineID, ok := pathID(w, req, "lineID")
	if !ok {
		return
	}
	var body ConfirmLineRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil || body.ItemCode == "" {
		respondError(w, http.StatusBadRequest, "itemCode is required")
		return
	}

	imp, err := r.pipeline.ConfirmLine(req.Context(), id, lineID, body.ItemCode, body.ExpenseAccount, body.CostCenter)
	if err != nil {
		respondError(w, http.StatusConflict, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, imp)
}

// CreateDocumentRequest selects which terminal document to post.
type CreateDocumentRequest struct {
	Type string `json:"type"` // vendor_bill, goods_receipt, journal_entry
}

func (r *Router) createDocument(w http.ResponseWriter, req *http.Request) {
	id, ok := pathID(w, req, "id")
	if !ok {
		return
	}
	var body CreateDocumentRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil || body.Type == "" {
		respondError(w, http.StatusBadRequest, "type is required (vendor_bill, goods_receipt or journal_entry)")
		return
	}

	imp, err := r.pipeline.CreateDocument(req.Context(), id, body.Type)
	if err != nil {
		respondError(w, http.StatusConflict, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, imp)
}

// loadImport resolves {id} and answers 404 itself on a miss.
func (r *Router) loadImport(w http.ResponseWriter, req *http.Request) (*models.OCRImport, bool) {
	id, ok := pathID(w, req, "id")
	if !ok {
		return nil, false
	}
	imp, err := r.store.ImportByID(req.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	if imp == nil {
		respondError(w, http.StatusNotFound, "Import not found")
		return nil, false
	}
	return imp, true
}

// pathID parses a numeric path variable and answers 400 itself when it is
// not a number.
func pathID(w http.ResponseWriter, req *http.Request, name string) (uint, bool) {
	raw := mux.Vars(req)[name]
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}

func queryInt(raw string, def int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}

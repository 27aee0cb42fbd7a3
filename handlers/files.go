package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"miniplm/logger"
	"miniplm/middleware"
	"miniplm/models"
	"miniplm/services"
)

// uploadFieldName multipart 파일 필드 이름
const uploadFieldName = "uploaded_file"

// FileHandler는 파일 업로드 요청을 처리한다.
type FileHandler struct {
	files          services.FileService
	setup          services.SetupService
	maxUploadBytes int64
}

// NewFileHandler는 파일 핸들러를 생성한다. setup이 nil이면 업로더를 기록하지 않는다.
func NewFileHandler(files services.FileService, setup services.SetupService, maxUploadBytes int64) *FileHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 100 << 20
	}
	return &FileHandler{files: files, setup: setup, maxUploadBytes: maxUploadBytes}
}

// Upload 최상위 파일 업로드
// @Summary 파일 업로드
// @Description 최상위 파일을 업로드합니다. 같은 이름의 업로드가 있으면 다음 리비전 번호가 부여됩니다.
// @Tags 파일
// @Accept multipart/form-data
// @Produce json
// @Param uploaded_file formData file true "업로드할 파일"
// @Param status formData string false "상태 (in_work, review, released)"
// @Success 201 {object} models.APIResponse{data=models.FileUploadResult} "업로드 성공"
// @Failure 400 {object} models.APIResponse "잘못된 요청"
// @Failure 500 {object} models.APIResponse "서버 에러"
// @Router /api/files/ [post]
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	h.handleUpload(w, r, func(r *http.Request, req *models.FileUploadRequest) error {
		return nil
	})
}

// UploadChild 자식 파일 업로드
// @Summary 자식 파일 업로드
// @Description 부모 파일의 특정 리비전에 연결되는 자식 파일을 업로드합니다.
// @Tags 파일
// @Accept multipart/form-data
// @Produce json
// @Param uploaded_file formData file true "업로드할 파일"
// @Param parent_id formData string true "부모 파일 ID"
// @Param parent_revision formData int false "부모 리비전 번호"
// @Success 201 {object} models.APIResponse{data=models.FileUploadResult} "업로드 성공"
// @Failure 400 {object} models.APIResponse "잘못된 요청"
// @Failure 404 {object} models.APIResponse "부모 파일 없음"
// @Failure 500 {object} models.APIResponse "서버 에러"
// @Router /api/files/child/ [post]
func (h *FileHandler) UploadChild(w http.ResponseWriter, r *http.Request) {
	h.handleUpload(w, r, func(r *http.Request, req *models.FileUploadRequest) error {
		req.IsChild = true
		return parseParentFields(r, req)
	})
}

// UploadRevision 기존 파일의 새 리비전 업로드
// @Summary 리비전 업로드
// @Description 기존 파일의 새 리비전을 업로드합니다. original_name이 있으면 업로드 파일 이름 대신 사용합니다.
// @Tags 파일
// @Accept multipart/form-data
// @Produce json
// @Param uploaded_file formData file true "업로드할 파일"
// @Param original_name formData string false "원본 파일 이름"
// @Param is_child_file formData bool false "자식 파일 여부"
// @Param parent_id formData string false "부모 파일 ID (자식 파일일 때)"
// @Param parent_revision formData int false "부모 리비전 번호 (자식 파일일 때)"
// @Success 201 {object} models.APIResponse{data=models.FileUploadResult} "업로드 성공"
// @Failure 400 {object} models.APIResponse "잘못된 요청"
// @Failure 404 {object} models.APIResponse "부모 파일 없음"
// @Failure 500 {object} models.APIResponse "서버 에러"
// @Router /api/files/revision/ [post]
func (h *FileHandler) UploadRevision(w http.ResponseWriter, r *http.Request) {
	h.handleUpload(w, r, func(r *http.Request, req *models.FileUploadRequest) error {
		if name := strings.TrimSpace(r.FormValue("original_name")); name != "" {
			req.OriginalName = name
		}
		isChild, _ := strconv.ParseBool(strings.TrimSpace(r.FormValue("is_child_file")))
		if !isChild {
			return nil
		}
		req.IsChild = true
		return parseParentFields(r, req)
	})
}

func parseParentFields(r *http.Request, req *models.FileUploadRequest) error {
	req.ParentID = strings.TrimSpace(r.FormValue("parent_id"))
	if req.ParentID == "" {
		return errors.New("parent_id is required")
	}
	if v := strings.TrimSpace(r.FormValue("parent_revision")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return errors.New("parent_revision must be a positive integer")
		}
		req.ParentRevision = n
	}
	return nil
}

func (h *FileHandler) handleUpload(w http.ResponseWriter, r *http.Request, fill func(*http.Request, *models.FileUploadRequest) error) {
	requestID := middleware.RequestID(r.Context())

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		json.NewEncoder(w).Encode(models.ErrorResponse("Method not allowed", nil))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+int64(1<<20))
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(models.ErrorResponse("Failed to parse upload request", err))
		return
	}

	file, header, err := r.FormFile(uploadFieldName)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(models.ErrorResponse("File field is required", err))
		return
	}
	defer file.Close()

	req := models.FileUploadRequest{
		OriginalName: header.Filename,
		ContentType:  header.Header.Get("Content-Type"),
		Status:       r.FormValue("status"),
		Content:      file,
	}
	if err := fill(r, &req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(models.ErrorResponse("Invalid upload fields", err))
		return
	}

	uploadedBy := ""
	if h.setup != nil {
		if uploadedBy, err = h.setup.OwnerID(r.Context()); err != nil {
			logger.Warn("Failed to resolve owner account: %v", err)
			uploadedBy = ""
		}
	}

	asset, err := h.files.Upload(r.Context(), req, uploadedBy)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrParentNotFound):
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(models.ErrorResponse("Parent file not found", err))
		case errors.Is(err, services.ErrEmptyFileName), errors.Is(err, services.ErrInvalidStatus):
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(models.ErrorResponse("Invalid upload", err))
		default:
			logger.WithFields(map[string]interface{}{
				"request_id": requestID,
				"name":       req.OriginalName,
				"error":      err.Error(),
			}).Error("Failed to store uploaded file")
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(models.ErrorResponse("Failed to store file", err))
		}
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(models.SuccessResponse("File uploaded successfully", models.FileUploadResult{
		ID:       asset.ID,
		URL:      asset.URL,
		Revision: asset.Revision,
		Name:     asset.OriginalName,
		MimeType: asset.MimeType,
		FileSize: asset.FileSize,
		Checksum: asset.Checksum,
	}))
}

// Get 파일 메타데이터 조회
// @Summary 파일 메타데이터 조회
// @Tags 파일
// @Produce json
// @Param file_id path string true "파일 ID"
// @Success 200 {object} models.APIResponse{data=models.FileAsset} "조회 성공"
// @Failure 404 {object} models.APIResponse "파일 없음"
// @Failure 500 {object} models.APIResponse "서버 에러"
// @Router /api/files/{file_id} [get]
func (h *FileHandler) Get(w http.ResponseWriter, r *http.Request) {
	fileID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/files/"), "/")
	if fileID == "" {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(models.ErrorResponse("File ID is required", nil))
		return
	}

	asset, err := h.files.Get(r.Context(), fileID)
	if err != nil {
		if errors.Is(err, services.ErrFileNotFound) {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(models.ErrorResponse("File not found", nil))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(models.ErrorResponse("Failed to load file metadata", err))
		return
	}
	json.NewEncoder(w).Encode(models.SuccessResponse("File retrieved", asset))
}

// Route dispatches the /api/files/ subtree.
func (h *FileHandler) Route(w http.ResponseWriter, r *http.Request) {
	switch strings.TrimSuffix(r.URL.Path, "/") {
	case "/api/files":
		h.Upload(w, r)
	case "/api/files/child":
		h.UploadChild(w, r)
	case "/api/files/revision":
		h.UploadRevision(w, r)
	default:
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			json.NewEncoder(w).Encode(models.ErrorResponse("Method not allowed", nil))
			return
		}
		h.Get(w, r)
	}
}

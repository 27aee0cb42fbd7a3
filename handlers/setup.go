package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"miniplm/logger"
	"miniplm/models"
	"miniplm/services"
)

// SetupHandler 최초 설정 핸들러
type SetupHandler struct {
	service services.SetupService
}

// NewSetupHandler는 설정 핸들러를 생성한다.
func NewSetupHandler(service services.SetupService) *SetupHandler {
	return &SetupHandler{service: service}
}

// Handle routes GET to Status and POST to Run.
func (h *SetupHandler) Handle(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.Status(w, r)
	case http.MethodPost:
		h.Run(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
		json.NewEncoder(w).Encode(models.ErrorResponse("Method not allowed", nil))
	}
}

// Status 설정 상태 조회
// @Summary 설정 상태 조회
// @Tags 설정
// @Produce json
// @Success 200 {object} models.APIResponse{data=models.SetupStatus} "조회 성공"
// @Failure 500 {object} models.APIResponse "서버 에러"
// @Router /api/setup/ [get]
func (h *SetupHandler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.Status(r.Context())
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(models.ErrorResponse("Failed to load setup status", err))
		return
	}
	json.NewEncoder(w).Encode(models.SuccessResponse("Setup status", status))
}

// Run 초기 설정 실행
// @Summary 초기 설정
// @Description 소유자 계정과 기본 제품을 생성합니다. 한 번만 실행할 수 있습니다.
// @Tags 설정
// @Accept json
// @Produce json
// @Param request body models.SetupRequest true "소유자 계정 정보"
// @Success 201 {object} models.APIResponse{data=models.Account} "설정 완료"
// @Failure 400 {object} models.APIResponse "잘못된 요청"
// @Failure 409 {object} models.APIResponse "이미 설정됨"
// @Failure 500 {object} models.APIResponse "서버 에러"
// @Router /api/setup/ [post]
func (h *SetupHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req models.SetupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(models.ErrorResponse("Invalid request body", err))
		return
	}

	account, err := h.service.Run(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrSetupCompleted):
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(models.ErrorResponse("Setup already completed", nil))
		case errors.Is(err, services.ErrInvalidSetup):
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(models.ErrorResponse("Invalid setup request", err))
		default:
			logger.Error("Setup failed: %v", err)
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(models.ErrorResponse("Setup failed", err))
		}
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(models.SuccessResponse("Setup completed", account))
}

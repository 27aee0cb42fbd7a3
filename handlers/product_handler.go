package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"miniplm/logger"
	"miniplm/middleware"
	"miniplm/models"
	"miniplm/services"
)

// maxProductPayload 제품 트리 저장 요청 최대 크기
const maxProductPayload = 32 << 20

// ProductHandler는 제품 트리 관련 HTTP 요청을 처리한다.
type ProductHandler struct {
	service services.ProductService
}

// NewProductHandler는 제품 핸들러를 생성한다.
func NewProductHandler(service services.ProductService) *ProductHandler {
	return &ProductHandler{service: service}
}

// Save 제품 트리 전체 저장
// @Summary 제품 트리 저장
// @Description 저장된 제품 트리 전체를 요청 본문의 트리 배열로 교체합니다. 인라인 파일 데이터는 저장되지 않습니다.
// @Tags 제품
// @Accept json
// @Produce json
// @Param request body []models.Product true "제품 트리 배열 (또는 {\"products\": [...]})"
// @Success 200 {object} models.APIResponse{data=models.SaveProductsResult} "저장 성공"
// @Failure 400 {object} models.APIResponse "잘못된 요청"
// @Failure 500 {object} models.APIResponse "서버 에러"
// @Router /api/products/save [post]
func (h *ProductHandler) Save(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		json.NewEncoder(w).Encode(models.ErrorResponse("Method not allowed", nil))
		return
	}

	products, err := decodeProducts(http.MaxBytesReader(w, r.Body, maxProductPayload))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(models.ErrorResponse("Invalid request body", err))
		return
	}

	ids, err := h.service.SaveAll(r.Context(), products)
	if err != nil {
		if errors.Is(err, services.ErrInvalidProduct) {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(models.ErrorResponse("Invalid product tree", err))
			return
		}
		logger.WithFields(map[string]interface{}{
			"request_id": middleware.RequestID(r.Context()),
			"error":      err.Error(),
		}).Error("Failed to save products")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(models.ErrorResponse("Failed to save products", err))
		return
	}

	logger.WithFields(map[string]interface{}{
		"request_id": middleware.RequestID(r.Context()),
		"count":      len(ids),
	}).Info("Products saved")
	json.NewEncoder(w).Encode(models.SuccessResponse("Products saved successfully",
		models.SaveProductsResult{Saved: len(ids), IDs: ids}))
}

// decodeProducts accepts either a bare array or {"products": [...]}.
func decodeProducts(body io.Reader) ([]models.Product, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, errors.New("empty body")
	}

	if raw[0] == '{' {
		var req models.SaveProductsRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return nil, err
		}
		if req.Products == nil {
			return nil, errors.New("products field is required")
		}
		return req.Products, nil
	}

	var products []models.Product
	if err := json.Unmarshal(raw, &products); err != nil {
		return nil, err
	}
	if products == nil {
		products = []models.Product{}
	}
	return products, nil
}

// List 제품 트리 목록 조회
// @Summary 제품 트리 목록 조회
// @Description 저장된 제품 트리를 저장 순서대로 반환합니다. 빈 배열이면 클라이언트는 로컬 캐시를 사용합니다.
// @Tags 제품
// @Produce json
// @Success 200 {object} models.APIResponse{data=[]models.Product} "조회 성공"
// @Failure 500 {object} models.APIResponse "서버 에러"
// @Router /api/products/ [get]
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		json.NewEncoder(w).Encode(models.ErrorResponse("Method not allowed", nil))
		return
	}

	products, err := h.service.List(r.Context())
	if err != nil {
		logger.Error("Failed to query products: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(models.ErrorResponse("Failed to query products", err))
		return
	}

	json.NewEncoder(w).Encode(models.SuccessResponse("Products retrieved", products))
}

// Get 제품 트리 단건 조회
// @Summary 제품 트리 조회
// @Description ID로 저장된 제품 트리 하나를 반환합니다.
// @Tags 제품
// @Produce json
// @Param id path string true "제품 ID"
// @Success 200 {object} models.APIResponse{data=models.Product} "조회 성공"
// @Failure 404 {object} models.APIResponse "제품 없음"
// @Failure 500 {object} models.APIResponse "서버 에러"
// @Router /api/products/{id} [get]
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		json.NewEncoder(w).Encode(models.ErrorResponse("Method not allowed", nil))
		return
	}

	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/products/"), "/")
	product, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrProductNotFound) {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(models.ErrorResponse("Product not found", nil))
			return
		}
		logger.Error("Failed to query product %s: %v", id, err)
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(models.ErrorResponse("Failed to query product", err))
		return
	}

	json.NewEncoder(w).Encode(models.SuccessResponse("Product retrieved", product))
}

// Route dispatches /api/products/ to List and /api/products/{id} to Get.
func (h *ProductHandler) Route(w http.ResponseWriter, r *http.Request) {
	if strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/products/"), "/") == "" {
		h.List(w, r)
		return
	}
	h.Get(w, r)
}

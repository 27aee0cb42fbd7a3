package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"miniplm/logger"
	"miniplm/models"
	"miniplm/services"
	"miniplm/utils"
)

// MediaHandler는 업로드된 파일을 이름으로 제공한다.
type MediaHandler struct {
	files         services.FileService
	requireSigned bool
	tokenTTL      time.Duration
}

// NewMediaHandler는 미디어 핸들러를 생성한다.
func NewMediaHandler(files services.FileService, requireSigned bool, tokenTTL time.Duration) *MediaHandler {
	return &MediaHandler{files: files, requireSigned: requireSigned, tokenTTL: tokenTTL}
}

// Serve 미디어 파일 전송
// @Summary 미디어 파일 다운로드
// @Description id가 있으면 해당 업로드를, 없으면 이름이 같은 업로드 중 가장 최근 파일을 전송합니다. 서명 필수 모드에서는 token이 필요합니다.
// @Tags 미디어
// @Produce octet-stream
// @Param name path string true "URL 인코딩된 파일 이름"
// @Param id query string false "업로드 ID (특정 리비전)"
// @Param token query string false "서명된 미디어 토큰"
// @Success 200 "파일 스트림"
// @Failure 403 {object} models.APIResponse "서명 검증 실패 또는 만료"
// @Failure 404 {object} models.APIResponse "파일 없음"
// @Failure 500 {object} models.APIResponse "내부 오류"
// @Router /media/{name} [get]
func (h *MediaHandler) Serve(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(strings.TrimPrefix(r.URL.EscapedPath(), "/media/"))
	if err != nil || name == "" || strings.Contains(name, "/") {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(models.ErrorResponse("File name is required", err))
		return
	}

	if h.requireSigned {
		if err := utils.ValidateMediaToken(r.URL.Query().Get("token"), name); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			json.NewEncoder(w).Encode(models.ErrorResponse("Invalid or expired media link", err))
			return
		}
	}

	asset, err := h.files.Resolve(r.Context(), name, r.URL.Query().Get("id"))
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		if errors.Is(err, services.ErrFileNotFound) {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(models.ErrorResponse("File not found", nil))
		} else {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(models.ErrorResponse("Failed to load file metadata", err))
		}
		return
	}

	f, err := h.files.Open(r.Context(), asset)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		if errors.Is(err, services.ErrFileNotFound) {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(models.ErrorResponse("Stored file not found", nil))
		} else {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(models.ErrorResponse("Failed to open file", err))
		}
		return
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(models.ErrorResponse("Failed to stat file", err))
		return
	}

	disposition := fmt.Sprintf("inline; filename=\"%s\"; filename*=UTF-8''%s",
		sanitizeFilename(asset.OriginalName), url.PathEscape(asset.OriginalName))
	w.Header().Set("Content-Type", asset.MimeType)
	w.Header().Set("Content-Disposition", disposition)
	if asset.Checksum != "" {
		w.Header().Set("ETag", `"`+asset.Checksum+`"`)
	}

	modTime := stat.ModTime()
	if uploaded, err := utils.ParseDBDate(asset.CreatedAt); err == nil {
		modTime = uploaded
	}
	http.ServeContent(w, r, asset.OriginalName, modTime, f)
}

// Link 서명된 미디어 링크 발급
// @Summary 미디어 링크 발급
// @Description 파일 이름에 대한 만료 시간이 있는 서명된 미디어 URL을 발급합니다.
// @Tags 미디어
// @Produce json
// @Param name query string true "파일 이름"
// @Param id query string false "업로드 ID (특정 리비전)"
// @Success 200 {object} models.APIResponse{data=models.MediaLink} "발급 성공"
// @Failure 400 {object} models.APIResponse "잘못된 요청"
// @Failure 404 {object} models.APIResponse "파일 없음"
// @Failure 500 {object} models.APIResponse "서버 에러"
// @Router /api/media/link [get]
func (h *MediaHandler) Link(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(models.ErrorResponse("name is required", nil))
		return
	}

	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if _, err := h.files.Resolve(r.Context(), name, id); err != nil {
		if errors.Is(err, services.ErrFileNotFound) {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(models.ErrorResponse("File not found", nil))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(models.ErrorResponse("Failed to load file metadata", err))
		return
	}

	token, expiresAt, err := utils.SignMediaToken(name, h.tokenTTL)
	if err != nil {
		logger.Error("Failed to sign media token: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(models.ErrorResponse("Failed to sign media link", err))
		return
	}

	link := services.MediaURL(name) + "?token=" + url.QueryEscape(token)
	if id != "" {
		link = services.AssetURL(name, id) + "&token=" + url.QueryEscape(token)
	}
	json.NewEncoder(w).Encode(models.SuccessResponse("Media link issued", models.MediaLink{
		URL:       link,
		ExpiresAt: utils.FormatTimestamp(expiresAt),
	}))
}

func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\"", "")
	name = strings.ReplaceAll(name, "\\", "")
	return name
}

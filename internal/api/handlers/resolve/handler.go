// Package resolve 營養成分解析 API
package resolve

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"nutrition-calculator/internal/core/document"
	"nutrition-calculator/internal/core/nutrition"
	"nutrition-calculator/internal/core/service"
	"nutrition-calculator/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Resolver 處理器依賴的解析服務
type Resolver interface {
	ResolveLocation(ctx context.Context, ref string) (*service.Resolution, error)
	ResolveDocument(ctx context.Context, data []byte, format document.Format) (*service.Resolution, error)
}

// ResolveResponse 解析成功的響應
type ResolveResponse struct {
	ResolutionID string             `json:"resolution_id"`
	Facts        nutrition.Facts    `json:"facts"`
	Nutrients    []nutrition.Amount `json:"nutrients"`
	Basis        float64            `json:"basis"`
}

// Handler 營養成分處理器
type Handler struct {
	resolver Resolver
}

// NewHandler 創建營養成分處理器
func NewHandler(resolver Resolver) *Handler {
	return &Handler{resolver: resolver}
}

// HandleResolveDocument 解析請求體中的食譜文件
func (h *Handler) HandleResolveDocument(c *gin.Context) {
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, common.NewError(common.ErrCodeEntityTooLarge, "request body too large", http.StatusRequestEntityTooLarge, err))
			return
		}
		respondError(c, common.NewError(common.ErrCodeInvalidRequest, "failed to read request body", http.StatusBadRequest, err))
		return
	}

	format := document.FormatForContentType(c.ContentType())
	common.LogDebug("resolve document request",
		zap.String("request_id", requestid.Get(c)),
		zap.Stringer("format", format),
		zap.Int("size", len(data)),
	)

	res, err := h.resolver.ResolveDocument(c.Request.Context(), data, format)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, res)
}

// HandleResolvePath 解析基準目錄下已存放的食譜文件
func (h *Handler) HandleResolvePath(c *gin.Context) {
	path := strings.TrimSpace(c.Query("path"))
	if path == "" {
		respondError(c, common.NewValidationError("query parameter path is required"))
		return
	}

	res, err := h.resolver.ResolveLocation(c.Request.Context(), path)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, res)
}

func respond(c *gin.Context, res *service.Resolution) {
	c.JSON(http.StatusOK, ResolveResponse{
		ResolutionID: res.ID,
		Facts:        res.Facts,
		Nutrients:    res.Facts.Ordered(),
		Basis:        res.Basis,
	})
}

// respondError 將錯誤轉換為統一的錯誤響應
func respondError(c *gin.Context, err error) {
	ce := toCustomError(err)
	_ = c.Error(err)

	if ce.Status >= http.StatusInternalServerError {
		common.LogError("resolution request failed",
			zap.String("request_id", requestid.Get(c)),
			zap.String("code", ce.Code),
			zap.Error(err),
		)
	}

	c.AbortWithStatusJSON(ce.Status, ce.Response())
}

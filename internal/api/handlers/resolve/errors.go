package resolve

import (
	"context"
	"errors"
	"math"
	"net/http"

	"nutrition-calculator/internal/core/nutrition"
	"nutrition-calculator/internal/pkg/common"
)

// toCustomError 將解析錯誤轉換為 CustomError
func toCustomError(err error) *common.CustomError {
	var ce *common.CustomError
	if errors.As(err, &ce) {
		return ce
	}

	var (
		pnf *nutrition.ProductNotFoundError
		cyc *nutrition.CyclicReferenceError
		ibw *nutrition.InvalidBasisWeightError
		le  *nutrition.LoadError
	)

	switch {
	case errors.As(err, &pnf):
		e := common.NewError(common.ErrCodeProductNotFound, "product not found", http.StatusUnprocessableEntity, err)
		e.Details = map[string]interface{}{
			"product":   pnf.Product,
			"available": pnf.Available,
		}
		return e
	case errors.As(err, &cyc):
		e := common.NewError(common.ErrCodeCyclicReference, "cyclic recipe reference", http.StatusUnprocessableEntity, err)
		e.Details = map[string]interface{}{
			"chain": cyc.Chain,
		}
		return e
	case errors.As(err, &ibw):
		e := common.NewError(common.ErrCodeInvalidBasis, "invalid basis weight", http.StatusUnprocessableEntity, err)
		details := map[string]interface{}{"explicit": ibw.Explicit}
		if !math.IsNaN(ibw.Weight) && !math.IsInf(ibw.Weight, 0) {
			details["weight"] = ibw.Weight
		}
		e.Details = details
		return e
	case errors.As(err, &le):
		e := common.NewError(common.ErrCodeLoadError, "failed to load recipe", http.StatusUnprocessableEntity, err)
		e.Details = map[string]interface{}{
			"location": le.Location,
		}
		return e
	case errors.Is(err, context.DeadlineExceeded):
		return common.NewError(common.ErrCodeGatewayTimeout, "request timeout", http.StatusGatewayTimeout, err)
	case errors.Is(err, context.Canceled):
		// 用戶端已離開，不屬於伺服器錯誤
		return common.NewError(common.ErrCodeClientClosed, "client closed request", common.StatusClientClosedRequest, err)
	case common.IsValidationError(err):
		return common.NewError(common.ErrCodeInvalidRequest, "invalid request", http.StatusBadRequest, err)
	default:
		return common.NewError(common.ErrCodeInternalError, "internal server error", http.StatusInternalServerError, err)
	}
}

package common

import (
	"errors"
	"net/http"
)

// ErrorResponse 定義 API 錯誤響應結構
type ErrorResponse struct {
	Code    string      `json:"code"`              // 錯誤代碼
	Message string      `json:"message"`           // 錯誤信息
	Details interface{} `json:"details,omitempty"` // 詳細信息
}

// CustomError 定義自定義錯誤類型
type CustomError struct {
	Code    string      // 錯誤代碼
	Message string      // 錯誤信息
	Err     error       // 原始錯誤
	Status  int         // HTTP 狀態碼
	Details interface{} // 附加資訊
}

func (e *CustomError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *CustomError) Unwrap() error { return e.Err }

// Response 轉換為 API 錯誤響應
func (e *CustomError) Response() ErrorResponse {
	return ErrorResponse{
		Code:    e.Code,
		Message: e.Error(),
		Details: e.Details,
	}
}

// NewError 創建新的自定義錯誤
func NewError(code string, message string, status int, err error) *CustomError {
	return &CustomError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// ValidationError 表示驗證錯誤
type ValidationError struct {
	message string
}

// Error 實現 error 介面
func (e *ValidationError) Error() string {
	return e.message
}

// NewValidationError 創建新的驗證錯誤
func NewValidationError(message string) error {
	return &ValidationError{
		message: message,
	}
}

// IsValidationError 檢查是否為驗證錯誤
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// StatusClientClosedRequest 用戶端在回應前中斷連線（非標準狀態碼）
const StatusClientClosedRequest = 499

// 預定義錯誤代碼
const (
	ErrCodeInvalidRequest  = "INVALID_REQUEST"      // 400
	ErrCodeNotFound        = "NOT_FOUND"            // 404
	ErrCodeEntityTooLarge  = "ENTITY_TOO_LARGE"     // 413
	ErrCodeTooManyRequests = "TOO_MANY_REQUESTS"    // 429
	ErrCodeLoadError       = "LOAD_ERROR"           // 422
	ErrCodeProductNotFound = "PRODUCT_NOT_FOUND"    // 422
	ErrCodeCyclicReference = "CYCLIC_REFERENCE"     // 422
	ErrCodeInvalidBasis    = "INVALID_BASIS_WEIGHT" // 422
	ErrCodeClientClosed    = "CLIENT_CLOSED"        // 499
	ErrCodeInternalError   = "INTERNAL_ERROR"       // 500
	ErrCodeGatewayTimeout  = "GATEWAY_TIMEOUT"      // 504
)

// 預定義錯誤
var (
	ErrNotFound      = NewError(ErrCodeNotFound, "resource not found", http.StatusNotFound, nil)
	ErrInternalError = NewError(ErrCodeInternalError, "internal server error", http.StatusInternalServerError, nil)
	ErrCacheMiss     = NewError("CACHE_MISS", "cache miss", http.StatusNotFound, nil)
)

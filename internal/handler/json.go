package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/paiban/planning/pkg/errors"
	"github.com/paiban/planning/pkg/logger"
)

// maxBodyBytes 请求体上限
const maxBodyBytes = 8 << 20

// ErrorResponse 错误响应
type ErrorResponse struct {
	Error   bool                   `json:"error"`
	Code    apperrors.Code         `json:"code"`
	Message string                 `json:"message"`
	Details string                 `json:"details,omitempty"`
	Fields  map[string]interface{} `json:"fields,omitempty"`
}

// respondJSON 返回JSON响应
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.WithError(err).Msg("写入响应失败")
	}
}

// respondError 按 AppError 的错误码与 HTTP 状态返回错误
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperrors.As(err)
	ev := logger.WithContext(r.Context()).Warn()
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		ev = logger.WithContext(r.Context()).Error()
	}
	ev.Err(err).Str("code", string(appErr.Code)).Str("path", r.URL.Path).Msg("请求失败")

	respondJSON(w, appErr.HTTPStatus, ErrorResponse{
		Error:   true,
		Code:    appErr.Code,
		Message: appErr.Message,
		Details: appErr.Details,
		Fields:  appErr.Fields,
	})
}

// decodeAndValidate 解析请求体并执行结构校验
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperrors.Wrap(err, apperrors.CodeInvalidInput, "解析请求失败").WithDetails(err.Error())
	}
	return h.validateStruct(v)
}

// validateStruct 将校验错误翻译为中文并汇总为 VALIDATION_FAILED
func (h *Handler) validateStruct(v interface{}) error {
	err := h.validate.Struct(v)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return apperrors.Wrap(err, apperrors.CodeInvalidInput, "请求校验失败")
	}

	ve := &apperrors.ValidationErrors{}
	for _, fe := range validationErrors {
		ve.Add(fe.Namespace(), fe.Translate(h.translator))
	}
	appErr := ve.ToAppError()
	appErr.Details = validationErrors[0].Translate(h.translator)
	return appErr
}

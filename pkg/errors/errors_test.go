package errors

import (
	"fmt"
	"net/http"
	"testing"
)

func TestAppError_Codes(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		wantCode   Code
		wantStatus int
	}{
		{"数据完整性", DataIntegrity("时段 7 未关联岗位"), CodeDataIntegrity, http.StatusUnprocessableEntity},
		{"锁定无效", InvalidLock(3, 42, "人员不是候选"), CodeInvalidLock, http.StatusUnprocessableEntity},
		{"输入无效", InvalidInput("mode", "未知模式"), CodeInvalidInput, http.StatusBadRequest},
		{"不存在", NotFound("岗位", "9"), CodeNotFound, http.StatusNotFound},
		{"数据库", Wrap(fmt.Errorf("conn refused"), CodeDatabaseError, "查询失败"), CodeDatabaseError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.wantCode {
				t.Errorf("Code = %s, want %s", tt.err.Code, tt.wantCode)
			}
			if GetHTTPStatus(tt.err) != tt.wantStatus {
				t.Errorf("HTTPStatus = %d, want %d", GetHTTPStatus(tt.err), tt.wantStatus)
			}
		})
	}
}

func TestIs_Wrapped(t *testing.T) {
	base := InvalidLock(1, 2, "x")
	wrapped := fmt.Errorf("构建实例: %w", base)

	if !Is(wrapped, CodeInvalidLock) {
		t.Error("包装后的错误应能识别错误码")
	}
	if GetCode(fmt.Errorf("plain")) != CodeUnknown {
		t.Error("普通错误应返回 UNKNOWN")
	}
	if As(fmt.Errorf("plain")).Code != CodeInternal {
		t.Error("普通错误应转换为内部错误")
	}
	if base.Fields["slot_id"] != 1 {
		t.Errorf("Fields = %v", base.Fields)
	}
}

func TestValidationErrors(t *testing.T) {
	ve := &ValidationErrors{}
	if ve.HasErrors() {
		t.Fatal("初始不应有错误")
	}
	ve.Add("start_date", "必填")
	appErr := ve.ToAppError()
	if appErr.Code != CodeValidationFail || appErr.Fields["start_date"] != "必填" {
		t.Errorf("ToAppError() = %+v", appErr)
	}
}

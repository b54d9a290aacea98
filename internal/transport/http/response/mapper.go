package response

import (
	"errors"

	"newsfeed-account/internal/domain"
)

var kindCodes = map[domain.Kind]int{
	domain.KindDuplicateIdentity: CodeConflict,
	domain.KindAccountNotFound:   CodeNotFound,
	domain.KindInvalidCredential: CodeUnauthorized,
	domain.KindAlreadyDeleted:    CodeBadRequest,
	domain.KindWeakPassword:      CodeBadRequest,
	domain.KindInvalidArgument:   CodeBadRequest,
	domain.KindDeletionFailed:    CodeServerError,
	domain.KindUnclassified:      CodeBadRequest,
}

// FromError 把服务层错误翻译成 (HTTP 状态, 响应体)。
// 只下发 *domain.Error 自带的文案；其余错误一律用通用文案，不暴露内部细节。
func FromError(err error) (int, Resp) {
	var de *domain.Error
	if !errors.As(err, &de) || de.Kind == domain.KindUnclassified {
		return Status(CodeBadRequest), Error(CodeBadRequest, "")
	}
	code, ok := kindCodes[de.Kind]
	if !ok {
		code = CodeBadRequest
	}
	// Message 不含 Err（底层原因只进日志）
	return Status(code), Error(code, de.Message())
}

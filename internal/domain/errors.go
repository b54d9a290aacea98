package domain

import "errors"

// Kind 账号服务的失败分类；传输层只按 Kind 映射状态码
type Kind int

const (
	KindUnclassified Kind = iota
	KindDuplicateIdentity
	KindAccountNotFound
	KindInvalidCredential
	KindAlreadyDeleted
	KindWeakPassword
	KindInvalidArgument
	KindDeletionFailed
)

var kindNames = map[Kind]string{
	KindUnclassified:      "Unclassified",
	KindDuplicateIdentity: "DuplicateIdentity",
	KindAccountNotFound:   "AccountNotFound",
	KindInvalidCredential: "InvalidCredential",
	KindAlreadyDeleted:    "AlreadyDeleted",
	KindWeakPassword:      "WeakPassword",
	KindInvalidArgument:   "InvalidArgument",
	KindDeletionFailed:    "DeletionFailed",
}

var defaultMsg = map[Kind]string{
	KindUnclassified:      "request failed",
	KindDuplicateIdentity: "email is already registered",
	KindAccountNotFound:   "account not found",
	KindInvalidCredential: "password does not match",
	KindAlreadyDeleted:    "account is already deleted",
	KindWeakPassword:      "password must be 8-15 characters and contain upper case, lower case and special characters",
	KindInvalidArgument:   "invalid argument",
	KindDeletionFailed:    "unexpected error while deleting the account",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return kindNames[KindUnclassified]
}

// Error Msg 是面向客户端的文案；Err 只用于日志，不会下发
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Message()
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Message() string {
	if e.Msg != "" {
		return e.Msg
	}
	return defaultMsg[e.Kind]
}

func (e *Error) Unwrap() error { return e.Err }

// Is 与同 Kind 的哨兵值匹配：errors.Is(err, domain.ErrAccountNotFound)
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Msg == "" && t.Err == nil && t.Kind == e.Kind
}

var (
	ErrUnclassified      = &Error{Kind: KindUnclassified}
	ErrDuplicateIdentity = &Error{Kind: KindDuplicateIdentity}
	ErrAccountNotFound   = &Error{Kind: KindAccountNotFound}
	ErrInvalidCredential = &Error{Kind: KindInvalidCredential}
	ErrAlreadyDeleted    = &Error{Kind: KindAlreadyDeleted}
	ErrWeakPassword      = &Error{Kind: KindWeakPassword}
	ErrInvalidArgument   = &Error{Kind: KindInvalidArgument}
	ErrDeletionFailed    = &Error{Kind: KindDeletionFailed}
)

func DuplicateIdentity(msg string) error { return &Error{Kind: KindDuplicateIdentity, Msg: msg} }
func NotFound(msg string) error          { return &Error{Kind: KindAccountNotFound, Msg: msg} }
func InvalidCredential(msg string) error { return &Error{Kind: KindInvalidCredential, Msg: msg} }
func AlreadyDeleted(msg string) error    { return &Error{Kind: KindAlreadyDeleted, Msg: msg} }
func WeakPassword(msg string) error      { return &Error{Kind: KindWeakPassword, Msg: msg} }
func Invalid(msg string) error           { return &Error{Kind: KindInvalidArgument, Msg: msg} }
func DeletionFailed(err error) error     { return &Error{Kind: KindDeletionFailed, Err: err} }

// KindOf 非 *Error 一律归为 Unclassified
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnclassified
}

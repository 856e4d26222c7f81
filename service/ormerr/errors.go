/*
 * @module service/ormerr
 * @description 引擎统一的错误分类：八种 Kind，承载足够的信息让调用方决定是否重试、是否触发回滚
 * @architecture 横切关注点
 * @documentReference SPEC_FULL.md #7
 * @rules 引擎内部一律通过 New/Is 产生和判别错误，不对 error 做字符串嗅探
 */

package ormerr

import "fmt"

// Kind 对应 SPEC_FULL.md #7 表格里除 ConfigEntryWarning（只记日志）以外的八种错误类型。
type Kind string

const (
	KindConfig      Kind = "ConfigError"
	KindSignature   Kind = "SignatureError"
	KindRateLimit   Kind = "RateLimitError"
	KindValidation  Kind = "ValidationError"
	KindBuild       Kind = "BuildError"
	KindDriver      Kind = "DriverError"
	KindScript      Kind = "ScriptError"
	KindTransaction Kind = "TransactionError"
)

// Error 是引擎内部统一的错误类型。
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New 构造一个不带底层原因的引擎错误。
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap 构造一个包装了底层原因的引擎错误。
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Is 判断 err 是否为给定 Kind 的引擎错误。
func Is(err error, kind Kind) bool {
	var e *Error
	for err != nil {
		if asErr, ok := err.(*Error); ok {
			e = asErr
			break
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return e != nil && e.Kind == kind
}

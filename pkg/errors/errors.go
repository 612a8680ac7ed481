package errors

import "errors"

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// ── 错误分类 ──
//
// 服务层返回的错误均可通过 errors.Is 归入以下类别之一，
// Handler 层据此映射 HTTP 状态码与业务码。

var (
	// ErrInvalidInput 输入不合法（如出生日期格式错误），不写入任何数据
	ErrInvalidInput = errors.New("输入参数不合法")
	// ErrNotFound 儿童或记录不存在
	ErrNotFound = errors.New("记录不存在")
	// ErrConflict 并发修改冲突
	ErrConflict = errors.New("并发修改冲突")
	// ErrPersistence 存储不可用或写入失败
	ErrPersistence = errors.New("存储操作失败")
	// ErrDelivery 投递通道不可用（非致命）
	ErrDelivery = errors.New("通知投递失败")
)

// ErrorKind 错误类别
type ErrorKind string

const (
	KindInvalidInput ErrorKind = "invalid_input"
	KindNotFound     ErrorKind = "not_found"
	KindConflict     ErrorKind = "conflict"
	KindPersistence  ErrorKind = "persistence"
	KindDelivery     ErrorKind = "delivery"
	KindUnknown      ErrorKind = "unknown"
)

// Kind 判定错误链所属类别
func Kind(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrConflict), errors.Is(err, ErrOptimisticLock):
		return KindConflict
	case errors.Is(err, ErrPersistence):
		return KindPersistence
	case errors.Is(err, ErrDelivery):
		return KindDelivery
	default:
		return KindUnknown
	}
}

package core

import "fmt"

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）和消息（Message）
//   - 支持错误检查函数（IsXXX）
//
// 错误分类与传播策略：
//   - COLD_START / DATA_UNAVAILABLE 被编排层吸收进降级路径，不向调用方传播
//   - BAD_CONFIG 向 TriggerTraining 的调用方传播（配置错误，不是数据稀疏）
//   - NUMERICAL_FAULT 在训练器内部记录并恢复，从不外抛
type DomainError struct {
	Code    string // 错误代码（如 "COLD_START", "NOT_FOUND"）
	Message string // 错误消息
	Module  string // 模块名称（如 "factor", "store"）
}

func (e *DomainError) Error() string {
	return e.Message
}

// GetDomainError 获取 DomainError，如果不是则返回 nil。
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	if domainErr, ok := err.(*DomainError); ok {
		return domainErr
	}
	return nil
}

// NewDomainError 创建新的领域错误。
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// 错误代码常量
const (
	ErrorCodeColdStart       = "COLD_START"       // actor/entity 未被当前模型覆盖（预期的冷启动，不是失败）
	ErrorCodeDataUnavailable = "DATA_UNAVAILABLE" // 上游协作方查询失败或超时
	ErrorCodeNumericalFault  = "NUMERICAL_FAULT"  // 训练样本产出非有限值
	ErrorCodeBadConfig       = "BAD_CONFIG"       // 配置错误（如 factors <= 0）
	ErrorCodeNotFound        = "NOT_FOUND"        // 资源不存在
	ErrorCodeNotSupported    = "NOT_SUPPORTED"    // 操作不支持
)

// 模块名称常量
const (
	ModuleStore      = "store"
	ModuleMatrix     = "matrix"
	ModuleFactor     = "factor"
	ModuleSimilarity = "similarity"
	ModuleRank       = "rank"
	ModuleEngine     = "engine"
)

// 预定义领域错误
var (
	// ErrColdStart 表示 actor 不在已训练模型中（新用户/会话），编排层据此走降级路径
	ErrColdStart = NewDomainError(ModuleFactor, ErrorCodeColdStart, "factor: actor not covered by trained model")

	// ErrNoCandidates 表示两路召回均为空，编排层据此触发热门降级
	ErrNoCandidates = NewDomainError(ModuleRank, ErrorCodeColdStart, "rank: no candidates from any source")

	// ErrBadFactorConfig 表示训练配置非法（factors <= 0），向 TriggerTraining 调用方传播
	ErrBadFactorConfig = NewDomainError(ModuleFactor, ErrorCodeBadConfig, "factor: num factors must be positive")

	// ErrStoreNotFound 表示 key 不存在
	ErrStoreNotFound = NewDomainError(ModuleStore, ErrorCodeNotFound, "store: key not found")

	// ErrStoreNotSupported 表示操作不支持
	ErrStoreNotSupported = NewDomainError(ModuleStore, ErrorCodeNotSupported, "store: operation not supported")
)

// DataUnavailable 包装一次上游查询失败为 DATA_UNAVAILABLE 领域错误。
func DataUnavailable(module string, err error) *DomainError {
	return NewDomainError(module, ErrorCodeDataUnavailable, fmt.Sprintf("%s: upstream unavailable: %v", module, err))
}

// IsColdStart 检查错误是否为冷启动信号。
func IsColdStart(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeColdStart
	}
	return false
}

// IsDataUnavailable 检查错误是否为上游不可用。
func IsDataUnavailable(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeDataUnavailable
	}
	return false
}

// IsBadConfig 检查错误是否为配置错误。
func IsBadConfig(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeBadConfig
	}
	return false
}

// IsStoreNotFound 检查错误是否为 key 不存在。
func IsStoreNotFound(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Module == ModuleStore && domainErr.Code == ErrorCodeNotFound
	}
	return false
}

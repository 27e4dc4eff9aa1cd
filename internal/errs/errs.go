// Package errs 定义决策流水线的错误分类
package errs

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	// KindData 行情/新闻数据异常或不足
	KindData
	// KindTransport 访问外部数据源的网络/鉴权失败
	KindTransport
	// KindReasoning 推理步骤返回了无法解析或不合约的结果
	KindReasoning
	// KindExecution 下单失败
	KindExecution
)

func (k Kind) String() string {
	switch k {
	case KindData:
		return "data"
	case KindTransport:
		return "transport"
	case KindReasoning:
		return "reasoning"
	case KindExecution:
		return "execution"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

func Data(op string, err error) error {
	return newError(KindData, op, err)
}

func Dataf(op, format string, args ...any) error {
	return newError(KindData, op, fmt.Errorf(format, args...))
}

func Transport(op string, err error) error {
	return newError(KindTransport, op, err)
}

func Reasoning(op string, err error) error {
	return newError(KindReasoning, op, err)
}

func Reasoningf(op, format string, args ...any) error {
	return newError(KindReasoning, op, fmt.Errorf(format, args...))
}

func Execution(op string, err error) error {
	return newError(KindExecution, op, err)
}

// KindOf 返回错误链上第一个分类错误的类型
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

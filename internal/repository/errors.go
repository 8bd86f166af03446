package repository

import (
	"errors"
	"fmt"
)

var (
	// ErrMessageNotFound 按 id 未找到消息
	ErrMessageNotFound = errors.New("message not found")
	// ErrStorage 存储层故障（连接、非重复键的约束错误等）
	ErrStorage = errors.New("storage error")
)

// WrapStorage 将驱动错误包装为 ErrStorage，保留原始错误链
func WrapStorage(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

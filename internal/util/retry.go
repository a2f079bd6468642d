package util

import (
	"context"
	"time"
)

// Retry 以固定间隔重试fn, 最多maxAttempts次
// 首次成功立即返回nil, 全部失败返回最后一次错误; 重试间隔期间响应context取消
func Retry(ctx context.Context, maxAttempts int, delay time.Duration, fn func() error) error {
	var err error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}

		// 最后一次失败后不再等待
		if attempt < maxAttempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return err
}

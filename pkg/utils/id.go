package utils

import "github.com/google/uuid"

// UUIDGenerator 使用 UUIDv7 生成按时间递增的 ID
type UUIDGenerator struct{}

// NewID 生成新 ID，v7 生成失败时退回随机 v4
func (UUIDGenerator) NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

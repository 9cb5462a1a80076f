package util

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"
)

// GenerateUUID 生成一个标准的 UUID (v4)
func GenerateUUID() string {
	return uuid.New().String()
}

// SHA256Prefix 返回 sha256 十六进制摘要的前 n 位
func SHA256Prefix(data []byte, n int) string {
	sum := sha256.Sum256(data)
	h := hex.EncodeToString(sum[:])
	if n <= 0 || n >= len(h) {
		return h
	}
	return h[:n]
}

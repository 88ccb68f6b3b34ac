// Package promohash 提供促销码指纹计算。
// 目录只存储小写明文码的 md5 指纹，客户端校验时无需拿到明文码；
// 这里 md5 是目录的线上指纹格式，不承担安全职责。
package promohash

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// Fingerprint 计算促销码指纹：去除首尾空白、转小写后取 md5
func Fingerprint(code string) string {
	normalized := strings.ToLower(strings.TrimSpace(code))
	sum := md5.Sum([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

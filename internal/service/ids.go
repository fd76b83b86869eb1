package service

import (
	"crypto/rand"
	"encoding/hex"
	"path/filepath"
	"strings"
)

func newID() string {
	bytes := make([]byte, 16)
	_, _ = rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

func buildFileKey(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	base := randomHex(8)
	if ext == "" {
		return base
	}
	return base + ext
}

func randomHex(size int) string {
	if size <= 0 {
		return ""
	}
	buf := make([]byte, size)
	_, err := rand.Read(buf)
	if err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}

// Package token 提供会话标识的生成与校验。
//
// 会话标识由 7 位数字种子加上校验后缀组成，校验只能发现格式错误或手工篡改，
// 并不具备不可伪造性。
package token

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strconv"
)

const (
	seedDigits = 7
	seedLimit  = 10_000_000
)

var ErrInvalidSessionID = errors.New("invalid session id")

// NewSessionID 用安全随机数生成一个新的会话标识。
func NewSessionID() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(seedLimit))
	if err != nil {
		return "", fmt.Errorf("生成会话种子失败: %w", err)
	}
	return SessionIDFromSeed(int(n.Int64()))
}

// SessionIDFromSeed 由种子确定性地计算会话标识。
func SessionIDFromSeed(seed int) (string, error) {
	if seed < 0 || seed >= seedLimit {
		return "", fmt.Errorf("%w: seed %d out of range", ErrInvalidSessionID, seed)
	}
	checksum := ((seed * 643) % 97832) * 245
	return fmt.Sprintf("%07d%d", seed, checksum), nil
}

// VerifySessionID 从前 7 位重新计算校验后缀并比较。
func VerifySessionID(sessionID string) error {
	if len(sessionID) <= seedDigits {
		return fmt.Errorf("%w: too short", ErrInvalidSessionID)
	}
	seed, err := strconv.Atoi(sessionID[:seedDigits])
	if err != nil || seed < 0 {
		return fmt.Errorf("%w: non-numeric seed", ErrInvalidSessionID)
	}
	want, err := SessionIDFromSeed(seed)
	if err != nil {
		return err
	}
	if want != sessionID {
		return fmt.Errorf("%w: checksum mismatch", ErrInvalidSessionID)
	}
	return nil
}

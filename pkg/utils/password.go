package utils

import "golang.org/x/crypto/bcrypt"

// PasswordCodec 单向摘要 + 校验
type PasswordCodec interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}

// BcryptCodec Cost 为 0 时使用 bcrypt.DefaultCost
type BcryptCodec struct {
	Cost int
}

func NewBcryptCodec(cost int) BcryptCodec { return BcryptCodec{Cost: cost} }

func (b BcryptCodec) Hash(pw string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	out, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (b BcryptCodec) Verify(pw, digest string) bool {
	if digest == "" {
		return false
	}
	// 摘要损坏（ErrHashTooShort 等）同样按不匹配处理
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(pw)) == nil
}

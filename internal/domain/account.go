package domain

import (
	"context"
	"errors"
	"strings"
	"time"
)

// DateLayout 生日的序列化格式
const DateLayout = "2006-01-02"

type Sex string

const (
	SexMale   Sex = "MALE"
	SexFemale Sex = "FEMALE"
	SexOther  Sex = "OTHER"
)

func (s Sex) Valid() bool {
	switch s {
	case SexMale, SexFemale, SexOther:
		return true
	}
	return false
}

// ParseSex 大小写不敏感
func ParseSex(s string) (Sex, error) {
	v := Sex(strings.ToUpper(strings.TrimSpace(s)))
	if !v.Valid() {
		return "", Invalid("sex must be one of MALE, FEMALE, OTHER")
	}
	return v, nil
}

type Status string

const (
	StatusActive  Status = "ACTIVE"
	StatusDeleted Status = "DELETED"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Account 账号记录；仓储只返回副本，调用方修改不会影响存储
type Account struct {
	ID             int64      `json:"id"`
	Email          string     `json:"email"`
	UserName       string     `json:"userName"`
	PhoneNumber    string     `json:"phoneNumber"`
	BirthDate      time.Time  `json:"-"`
	Sex            Sex        `json:"sex"`
	PasswordDigest string     `json:"-"`
	Role           string     `json:"role"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
	DeletedAt      *time.Time `json:"deletedAt,omitempty"`
}

func (a Account) Status() Status {
	if a.DeletedAt != nil {
		return StatusDeleted
	}
	return StatusActive
}

// Profile 对外资料投影（不含摘要）
type Profile struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	UserName    string `json:"userName"`
	PhoneNumber string `json:"phoneNumber"`
	BirthDate   string `json:"birthDate"`
	Sex         Sex    `json:"sex"`
}

func (a Account) Profile() Profile {
	p := Profile{
		ID:          a.ID,
		Email:       a.Email,
		UserName:    a.UserName,
		PhoneNumber: a.PhoneNumber,
		Sex:         a.Sex,
	}
	if !a.BirthDate.IsZero() {
		p.BirthDate = a.BirthDate.Format(DateLayout)
	}
	return p
}

// Summary 更新接口只回 id
type Summary struct {
	ID int64 `json:"id"`
}

// ProfileUpdate nil 字段表示不修改
type ProfileUpdate struct {
	UserName    *string
	PhoneNumber *string
	BirthDate   *time.Time
	Sex         *Sex
}

func (u ProfileUpdate) Empty() bool {
	return u.UserName == nil && u.PhoneNumber == nil && u.BirthDate == nil && u.Sex == nil
}

// Apply 返回修改后的新值，不改动 a 本身
func (u ProfileUpdate) Apply(a Account) Account {
	if u.UserName != nil {
		a.UserName = *u.UserName
	}
	if u.PhoneNumber != nil {
		a.PhoneNumber = *u.PhoneNumber
	}
	if u.BirthDate != nil {
		a.BirthDate = *u.BirthDate
	}
	if u.Sex != nil {
		a.Sex = *u.Sex
	}
	return a
}

type ListFilter struct {
	Offset      int
	Limit       int
	Query       string // email / user_name 模糊匹配
	WithDeleted bool
}

// 仓储层错误，由 service 翻译成 Kind
var (
	// ErrConflict 唯一约束冲突（email 已被 ACTIVE 账号占用）
	ErrConflict = errors.New("account store: unique constraint violated")
	// ErrStale 目标记录不存在或已不是 ACTIVE
	ErrStale = errors.New("account store: record is not active")
)

// AccountStore 查询方法在记录不存在时返回 (nil, nil)
type AccountStore interface {
	FindByEmailActive(ctx context.Context, email string) (*Account, error)
	// FindByEmailAny 包含已删除账号，按 id 倒序取最新一条
	FindByEmailAny(ctx context.Context, email string) (*Account, error)
	FindByID(ctx context.Context, id int64) (*Account, error)
	FindDeletedByID(ctx context.Context, id int64) (*Account, error)
	Create(ctx context.Context, a *Account) (*Account, error)
	// Save 只更新 ACTIVE 账号；目标不存在或已删除时返回 ErrStale
	Save(ctx context.Context, a *Account) (*Account, error)
	// Delete 软删除（ACTIVE -> DELETED）
	Delete(ctx context.Context, a *Account) error
	List(ctx context.Context, f ListFilter) ([]Account, int64, error)
	// WithinTx fn 返回错误时整体回滚
	WithinTx(ctx context.Context, fn func(tx AccountStore) error) error
}

// NormalizeEmail 去空白并转小写
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

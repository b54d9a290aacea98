package account

import (
	"time"

	"gorm.io/gorm"

	"newsfeed-account/internal/domain"
)

// AccountModel accounts 表；email 唯一索引只覆盖未删除的行（postgres 部分索引）
type AccountModel struct {
	ID             int64     `gorm:"primaryKey;autoIncrement"`
	Email          string    `gorm:"size:191;not null;uniqueIndex:idx_accounts_email_active,where:deleted_at IS NULL"`
	UserName       string    `gorm:"size:64;not null"`
	PhoneNumber    string    `gorm:"size:32"`
	BirthDate      time.Time `gorm:"type:date"`
	Sex            string    `gorm:"size:6;not null"`
	PasswordDigest string    `gorm:"column:password;size:100;not null"`
	Role           string    `gorm:"size:16;not null;default:user"`

	CreatedAt time.Time      `gorm:"autoCreateTime"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (AccountModel) TableName() string { return "accounts" }

func FromDomain(a *domain.Account) AccountModel {
	m := AccountModel{
		ID:             a.ID,
		Email:          a.Email,
		UserName:       a.UserName,
		PhoneNumber:    a.PhoneNumber,
		BirthDate:      a.BirthDate,
		Sex:            string(a.Sex),
		PasswordDigest: a.PasswordDigest,
		Role:           a.Role,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
	if a.DeletedAt != nil {
		m.DeletedAt = gorm.DeletedAt{Time: *a.DeletedAt, Valid: true}
	}
	return m
}

func (m AccountModel) ToDomain() *domain.Account {
	a := &domain.Account{
		ID:             m.ID,
		Email:          m.Email,
		UserName:       m.UserName,
		PhoneNumber:    m.PhoneNumber,
		BirthDate:      m.BirthDate,
		Sex:            domain.Sex(m.Sex),
		PasswordDigest: m.PasswordDigest,
		Role:           m.Role,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
	if m.DeletedAt.Valid {
		t := m.DeletedAt.Time
		a.DeletedAt = &t
	}
	return a
}

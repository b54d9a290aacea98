package repo

import (
	"context"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"newsfeed-account/internal/domain"
	"newsfeed-account/internal/feature/account"
)

type AccountRepo struct{ db *gorm.DB }

func NewAccountRepo(db *gorm.DB) *AccountRepo { return &AccountRepo{db: db} }

var _ domain.AccountStore = (*AccountRepo)(nil)

func take(q *gorm.DB) (*domain.Account, error) {
	var m account.AccountModel
	err := q.Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m.ToDomain(), nil
}

func (r *AccountRepo) FindByEmailActive(ctx context.Context, email string) (*domain.Account, error) {
	return take(r.db.WithContext(ctx).Where("email = ?", email))
}

func (r *AccountRepo) FindByEmailAny(ctx context.Context, email string) (*domain.Account, error) {
	return take(r.db.WithContext(ctx).Unscoped().Where("email = ?", email).Order("id DESC"))
}

func (r *AccountRepo) FindByID(ctx context.Context, id int64) (*domain.Account, error) {
	return take(r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *AccountRepo) FindDeletedByID(ctx context.Context, id int64) (*domain.Account, error) {
	return take(r.db.WithContext(ctx).Unscoped().Where("id = ? AND deleted_at IS NOT NULL", id))
}

func (r *AccountRepo) Create(ctx context.Context, a *domain.Account) (*domain.Account, error) {
	m := account.FromDomain(a)
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		if isDupKey(err) {
			return nil, domain.ErrConflict
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

func (r *AccountRepo) Save(ctx context.Context, a *domain.Account) (*domain.Account, error) {
	res := r.db.WithContext(ctx).
		Model(&account.AccountModel{ID: a.ID}).
		Updates(map[string]any{
			"user_name":    a.UserName,
			"phone_number": a.PhoneNumber,
			"birth_date":   a.BirthDate,
			"sex":          string(a.Sex),
			"password":     a.PasswordDigest,
			"updated_at":   a.UpdatedAt,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, domain.ErrStale
	}
	out := *a
	return &out, nil
}

func (r *AccountRepo) Delete(ctx context.Context, a *domain.Account) error {
	res := r.db.WithContext(ctx).Delete(&account.AccountModel{ID: a.ID})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrStale
	}
	return nil
}

func (r *AccountRepo) List(ctx context.Context, f domain.ListFilter) ([]domain.Account, int64, error) {
	q := r.db.WithContext(ctx).Model(&account.AccountModel{})
	if f.WithDeleted {
		q = q.Unscoped()
	}
	if s := strings.TrimSpace(f.Query); s != "" {
		like := "%" + s + "%"
		q = q.Where("email LIKE ? OR user_name LIKE ?", like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []account.AccountModel
	if err := q.Order("created_at DESC").Limit(f.Limit).Offset(f.Offset).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	out := make([]domain.Account, 0, len(rows))
	for _, m := range rows {
		out = append(out, *m.ToDomain())
	}
	return out, total, nil
}

func (r *AccountRepo) WithinTx(ctx context.Context, fn func(tx domain.AccountStore) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&AccountRepo{db: tx})
	})
}

func isDupKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == 1062 {
		return true
	}
	// 其它驱动兜底
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "unique violation")
}

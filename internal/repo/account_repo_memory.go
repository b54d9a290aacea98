package repo

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"newsfeed-account/internal/domain"
)

// MemoryAccountRepo 进程内实现，用于本地运行（db.driver=memory）和测试。
// 事务之间串行；回滚只恢复数据，不回退自增 id（id 永不复用）。
type MemoryAccountRepo struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	seq  int64
	rows map[int64]domain.Account
	now  func() time.Time
}

func NewMemoryAccountRepo() *MemoryAccountRepo {
	return &MemoryAccountRepo{rows: map[int64]domain.Account{}, now: time.Now}
}

var _ domain.AccountStore = (*MemoryAccountRepo)(nil)

func clone(a domain.Account) *domain.Account {
	if a.DeletedAt != nil {
		t := *a.DeletedAt
		a.DeletedAt = &t
	}
	return &a
}

func (r *MemoryAccountRepo) FindByEmailActive(_ context.Context, email string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.rows {
		if a.Email == email && a.DeletedAt == nil {
			return clone(a), nil
		}
	}
	return nil, nil
}

func (r *MemoryAccountRepo) FindByEmailAny(_ context.Context, email string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var found *domain.Account
	for _, a := range r.rows {
		if a.Email == email && (found == nil || a.ID > found.ID) {
			found = clone(a)
		}
	}
	return found, nil
}

func (r *MemoryAccountRepo) FindByID(_ context.Context, id int64) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if a, ok := r.rows[id]; ok && a.DeletedAt == nil {
		return clone(a), nil
	}
	return nil, nil
}

func (r *MemoryAccountRepo) FindDeletedByID(_ context.Context, id int64) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if a, ok := r.rows[id]; ok && a.DeletedAt != nil {
		return clone(a), nil
	}
	return nil, nil
}

func (r *MemoryAccountRepo) Create(_ context.Context, in *domain.Account) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.rows {
		if a.Email == in.Email && a.DeletedAt == nil {
			return nil, domain.ErrConflict
		}
	}
	r.seq++
	a := *clone(*in)
	a.ID = r.seq
	now := r.now()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = a.CreatedAt
	}
	if a.Role == "" {
		a.Role = domain.RoleUser
	}
	r.rows[a.ID] = a
	return clone(a), nil
}

func (r *MemoryAccountRepo) Save(_ context.Context, in *domain.Account) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.rows[in.ID]
	if !ok || a.DeletedAt != nil {
		return nil, domain.ErrStale
	}
	// 与 gorm 实现一致：只写可变列
	a.UserName = in.UserName
	a.PhoneNumber = in.PhoneNumber
	a.BirthDate = in.BirthDate
	a.Sex = in.Sex
	a.PasswordDigest = in.PasswordDigest
	a.UpdatedAt = in.UpdatedAt
	r.rows[a.ID] = a
	return clone(a), nil
}

func (r *MemoryAccountRepo) Delete(_ context.Context, in *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.rows[in.ID]
	if !ok || a.DeletedAt != nil {
		return domain.ErrStale
	}
	now := r.now()
	a.DeletedAt = &now
	r.rows[a.ID] = a
	return nil
}

func (r *MemoryAccountRepo) List(_ context.Context, f domain.ListFilter) ([]domain.Account, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	q := strings.TrimSpace(f.Query)
	var all []domain.Account
	for _, a := range r.rows {
		if a.DeletedAt != nil && !f.WithDeleted {
			continue
		}
		if q != "" && !strings.Contains(a.Email, q) && !strings.Contains(a.UserName, q) {
			continue
		}
		all = append(all, *clone(a))
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})
	total := int64(len(all))
	if f.Offset >= len(all) {
		return []domain.Account{}, total, nil
	}
	all = all[f.Offset:]
	if f.Limit > 0 && f.Limit < len(all) {
		all = all[:f.Limit]
	}
	return all, total, nil
}

func (r *MemoryAccountRepo) WithinTx(ctx context.Context, fn func(tx domain.AccountStore) error) (err error) {
	r.txMu.Lock()
	defer r.txMu.Unlock()

	r.mu.RLock()
	snapshot := make(map[int64]domain.Account, len(r.rows))
	for id, a := range r.rows {
		snapshot[id] = *clone(a)
	}
	r.mu.RUnlock()

	rollback := func() {
		r.mu.Lock()
		r.rows = snapshot
		r.mu.Unlock()
	}
	defer func() {
		if p := recover(); p != nil {
			rollback()
			panic(p)
		}
	}()

	if err = fn(memTx{r}); err != nil {
		rollback()
	}
	return err
}

// memTx 事务内再次 WithinTx 直接复用当前事务
type memTx struct{ *MemoryAccountRepo }

func (t memTx) WithinTx(_ context.Context, fn func(tx domain.AccountStore) error) error {
	return fn(t)
}

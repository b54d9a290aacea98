package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"newsfeed-account/internal/core/events"
	"newsfeed-account/internal/domain"
	"newsfeed-account/pkg/utils"
)

// 登录失败统一文案：不暴露 email 是否存在
const msgLoginFailed = "invalid email or password"

type EventPublisher interface {
	Publish(ctx context.Context, eventType string, data any) error
}

type ProfileCache interface {
	GetOrLoad(ctx context.Context, id int64, load func(context.Context) (*domain.Profile, error)) (*domain.Profile, error)
	Invalidate(ctx context.Context, id int64)
}

type Policy struct {
	// 已注销账号的 email 能否再次注册
	AllowEmailReuseAfterDeletion bool
}

type Option func(*AccountService)

func WithLogger(l *zap.Logger) Option { return func(s *AccountService) { s.log = l } }

func WithEvents(p EventPublisher) Option { return func(s *AccountService) { s.events = p } }

func WithProfileCache(c ProfileCache) Option { return func(s *AccountService) { s.cache = c } }

func WithClock(now func() time.Time) Option { return func(s *AccountService) { s.now = now } }

// AccountService 账号状态迁移与凭证校验的唯一入口；自身无可变状态，所有状态在 store 里
type AccountService struct {
	store  domain.AccountStore
	codec  utils.PasswordCodec
	policy Policy
	log    *zap.Logger
	events EventPublisher
	cache  ProfileCache
	now    func() time.Time
}

func NewAccountService(store domain.AccountStore, codec utils.PasswordCodec, policy Policy, opts ...Option) *AccountService {
	s := &AccountService{
		store:  store,
		codec:  codec,
		policy: policy,
		log:    zap.NewNop(),
		events: events.Nop{},
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

type SignUpInput struct {
	Email       string
	UserName    string
	PhoneNumber string
	BirthDate   time.Time
	Sex         domain.Sex
	Password    string
}

type Page struct {
	Total int64            `json:"total"`
	Items []domain.Account `json:"items"`
}

func (s *AccountService) SignUp(ctx context.Context, in SignUpInput) (acc *domain.Account, err error) {
	defer observe(opSignUp, &err)

	email := domain.NormalizeEmail(in.Email)
	if email == "" {
		return nil, domain.Invalid("email is required")
	}
	if !in.Sex.Valid() {
		return nil, domain.Invalid("sex must be one of MALE, FEMALE, OTHER")
	}
	if !utils.IsValidPassword(in.Password) {
		return nil, domain.WeakPassword("")
	}
	// bcrypt 较慢，放在事务外
	digest, err := s.codec.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	err = s.store.WithinTx(ctx, func(tx domain.AccountStore) error {
		existing, err := s.findForSignUp(ctx, tx, email)
		if err != nil {
			return fmt.Errorf("lookup email: %w", err)
		}
		if existing != nil {
			return domain.DuplicateIdentity("")
		}
		created, err := tx.Create(ctx, &domain.Account{
			Email:          email,
			UserName:       strings.TrimSpace(in.UserName),
			PhoneNumber:    strings.TrimSpace(in.PhoneNumber),
			BirthDate:      in.BirthDate,
			Sex:            in.Sex,
			PasswordDigest: digest,
			Role:           domain.RoleUser,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
		if errors.Is(err, domain.ErrConflict) {
			// 并发注册：检查通过但唯一索引拦下
			return domain.DuplicateIdentity("")
		}
		if err != nil {
			return fmt.Errorf("create account: %w", err)
		}
		acc = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("account signed up", zap.Int64("account_id", acc.ID))
	s.publish(ctx, events.AccountCreated, events.AccountEvent{AccountID: acc.ID, Email: acc.Email})
	return acc, nil
}

func (s *AccountService) findForSignUp(ctx context.Context, tx domain.AccountStore, email string) (*domain.Account, error) {
	if s.policy.AllowEmailReuseAfterDeletion {
		return tx.FindByEmailActive(ctx, email)
	}
	return tx.FindByEmailAny(ctx, email)
}

// Login 已注销账号不参与登录查找，返回 AccountNotFound
func (s *AccountService) Login(ctx context.Context, email, password string) (p *domain.Profile, err error) {
	defer observe(opLogin, &err)

	a, err := s.store.FindByEmailActive(ctx, domain.NormalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("lookup account: %w", err)
	}
	if a == nil {
		return nil, domain.NotFound(msgLoginFailed)
	}
	if !s.codec.Verify(password, a.PasswordDigest) {
		return nil, domain.InvalidCredential(msgLoginFailed)
	}
	profile := a.Profile()
	return &profile, nil
}

func (s *AccountService) UpdateProfile(ctx context.Context, id int64, upd domain.ProfileUpdate) (sum *domain.Summary, err error) {
	defer observe(opUpdateProfile, &err)

	if upd.Sex != nil && !upd.Sex.Valid() {
		return nil, domain.Invalid("sex must be one of MALE, FEMALE, OTHER")
	}
	if upd.UserName != nil && strings.TrimSpace(*upd.UserName) == "" {
		return nil, domain.Invalid("userName must not be blank")
	}

	err = s.store.WithinTx(ctx, func(tx domain.AccountStore) error {
		a, err := tx.FindByID(ctx, id)
		if err != nil {
			return fmt.Errorf("lookup account: %w", err)
		}
		if a == nil {
			return domain.NotFound("")
		}
		next := upd.Apply(*a)
		next.UpdatedAt = s.now()
		if _, err := tx.Save(ctx, &next); err != nil {
			if errors.Is(err, domain.ErrStale) {
				return domain.NotFound("")
			}
			return fmt.Errorf("save account: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, id)
	s.publish(ctx, events.AccountUpdated, events.AccountEvent{AccountID: id})
	return &domain.Summary{ID: id}, nil
}

// ChangePassword 不校验旧密码（由调用方的身份令牌保证是本人）
func (s *AccountService) ChangePassword(ctx context.Context, id int64, newPassword string) (err error) {
	defer observe(opChangePassword, &err)

	err = s.store.WithinTx(ctx, func(tx domain.AccountStore) error {
		a, err := tx.FindByID(ctx, id)
		if err != nil {
			return fmt.Errorf("lookup account: %w", err)
		}
		if a == nil {
			return domain.NotFound("")
		}
		if !utils.IsValidPassword(newPassword) {
			return domain.WeakPassword("")
		}
		digest, err := s.codec.Hash(newPassword)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		next := *a
		next.PasswordDigest = digest
		next.UpdatedAt = s.now()
		if _, err := tx.Save(ctx, &next); err != nil {
			if errors.Is(err, domain.ErrStale) {
				return domain.NotFound("")
			}
			return fmt.Errorf("save account: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info("account password changed", zap.Int64("account_id", id))
	s.publish(ctx, events.AccountPasswordChanged, events.AccountEvent{AccountID: id})
	return nil
}

// Withdraw 软删除。已删除 / 不存在 / 密码不符之外的任何失败都归为 DeletionFailed。
func (s *AccountService) Withdraw(ctx context.Context, id int64, password string) (err error) {
	defer observe(opWithdraw, &err)

	err = s.store.WithinTx(ctx, func(tx domain.AccountStore) error {
		deleted, err := tx.FindDeletedByID(ctx, id)
		if err != nil {
			return fmt.Errorf("lookup deleted account: %w", err)
		}
		if deleted != nil {
			return domain.AlreadyDeleted("")
		}
		a, err := tx.FindByID(ctx, id)
		if err != nil {
			return fmt.Errorf("lookup account: %w", err)
		}
		if a == nil {
			return domain.NotFound("")
		}
		if !s.codec.Verify(password, a.PasswordDigest) {
			return domain.InvalidCredential("")
		}
		if err := tx.Delete(ctx, a); err != nil {
			if errors.Is(err, domain.ErrStale) {
				// 并发注销，另一请求先提交
				return domain.AlreadyDeleted("")
			}
			return fmt.Errorf("soft delete: %w", err)
		}
		return nil
	})
	if err != nil {
		return s.withdrawError(id, err)
	}

	s.invalidate(ctx, id)
	s.log.Info("account withdrawn", zap.Int64("account_id", id))
	s.publish(ctx, events.AccountDeleted, events.AccountEvent{AccountID: id})
	return nil
}

func (s *AccountService) withdrawError(id int64, err error) error {
	switch domain.KindOf(err) {
	case domain.KindAlreadyDeleted, domain.KindAccountNotFound, domain.KindInvalidCredential:
		return err
	}
	s.log.Error("account withdraw failed", zap.Int64("account_id", id), zap.Error(err))
	return domain.DeletionFailed(err)
}

// GetProfile 纯读；配置了缓存时走读穿缓存
func (s *AccountService) GetProfile(ctx context.Context, id int64) (p *domain.Profile, err error) {
	defer observe(opGetProfile, &err)

	load := func(ctx context.Context) (*domain.Profile, error) {
		a, err := s.GetAccount(ctx, id)
		if err != nil {
			return nil, err
		}
		profile := a.Profile()
		return &profile, nil
	}
	if s.cache != nil {
		return s.cache.GetOrLoad(ctx, id, load)
	}
	return load(ctx)
}

// GetAccount 供关注等协作模块查询 ACTIVE 账号
func (s *AccountService) GetAccount(ctx context.Context, id int64) (*domain.Account, error) {
	a, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("lookup account: %w", err)
	}
	if a == nil {
		return nil, domain.NotFound("")
	}
	return a, nil
}

func (s *AccountService) ListAccounts(ctx context.Context, f domain.ListFilter) (*Page, error) {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	items, total, err := s.store.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return &Page{Total: total, Items: items}, nil
}

func (s *AccountService) publish(ctx context.Context, eventType string, data any) {
	if err := s.events.Publish(ctx, eventType, data); err != nil {
		s.log.Warn("publish account event failed", zap.String("type", eventType), zap.Error(err))
	}
}

func (s *AccountService) invalidate(ctx context.Context, id int64) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, id)
	}
}

package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"newsfeed-account/internal/domain"
	"newsfeed-account/internal/repo"
	"newsfeed-account/pkg/utils"
)

const (
	goodPassword  = "Abcdef1!"
	otherPassword = "Xyzabc2@"
)

type recordedEvent struct {
	Type string
	Data any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []recordedEvent
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, eventType string, data any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{Type: eventType, Data: data})
	return p.err
}

func (p *fakePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fakeCache struct {
	entries     map[int64]*domain.Profile
	loads       int
	invalidated []int64
}

func newFakeCache() *fakeCache { return &fakeCache{entries: map[int64]*domain.Profile{}} }

func (c *fakeCache) GetOrLoad(ctx context.Context, id int64, load func(context.Context) (*domain.Profile, error)) (*domain.Profile, error) {
	if p, ok := c.entries[id]; ok {
		return p, nil
	}
	c.loads++
	p, err := load(ctx)
	if err != nil {
		return nil, err
	}
	c.entries[id] = p
	return p, nil
}

func (c *fakeCache) Invalidate(_ context.Context, id int64) {
	delete(c.entries, id)
	c.invalidated = append(c.invalidated, id)
}

// faultyStore 在内存仓储上注入故障
type faultyStore struct {
	*repo.MemoryAccountRepo
	findDeletedErr error
	findErr        error
	deleteErr      error
	createErr      error
}

func (f *faultyStore) FindDeletedByID(ctx context.Context, id int64) (*domain.Account, error) {
	if f.findDeletedErr != nil {
		return nil, f.findDeletedErr
	}
	return f.MemoryAccountRepo.FindDeletedByID(ctx, id)
}

func (f *faultyStore) FindByID(ctx context.Context, id int64) (*domain.Account, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.MemoryAccountRepo.FindByID(ctx, id)
}

func (f *faultyStore) Create(ctx context.Context, a *domain.Account) (*domain.Account, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.MemoryAccountRepo.Create(ctx, a)
}

func (f *faultyStore) Delete(ctx context.Context, a *domain.Account) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.MemoryAccountRepo.Delete(ctx, a)
}

func (f *faultyStore) WithinTx(ctx context.Context, fn func(tx domain.AccountStore) error) error {
	return f.MemoryAccountRepo.WithinTx(ctx, func(domain.AccountStore) error { return fn(f) })
}

func newTestService(t *testing.T, store domain.AccountStore, policy Policy, opts ...Option) *AccountService {
	t.Helper()
	if store == nil {
		store = repo.NewMemoryAccountRepo()
	}
	return NewAccountService(store, utils.NewBcryptCodec(bcrypt.MinCost), policy, opts...)
}

func signUp(t *testing.T, s *AccountService, email string) *domain.Account {
	t.Helper()
	a, err := s.SignUp(context.Background(), SignUpInput{
		Email:       email,
		UserName:    "alice",
		PhoneNumber: "010-1234-5678",
		BirthDate:   time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC),
		Sex:         domain.SexFemale,
		Password:    goodPassword,
	})
	require.NoError(t, err)
	return a
}

func TestAccountLifecycle(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{}
	s := newTestService(t, nil, Policy{}, WithEvents(pub))

	a := signUp(t, s, "a@x.com")
	assert.Equal(t, int64(1), a.ID)
	assert.NotEqual(t, goodPassword, a.PasswordDigest)

	p, err := s.Login(ctx, "a@x.com", goodPassword)
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.ID)
	assert.Equal(t, "alice", p.UserName)
	assert.Equal(t, "1990-01-01", p.BirthDate)

	name := "bob"
	sum, err := s.UpdateProfile(ctx, a.ID, domain.ProfileUpdate{UserName: &name})
	require.NoError(t, err)
	assert.Equal(t, a.ID, sum.ID)

	p, err = s.GetProfile(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "bob", p.UserName)
	assert.Equal(t, "010-1234-5678", p.PhoneNumber, "unchanged fields keep their values")

	require.NoError(t, s.ChangePassword(ctx, a.ID, otherPassword))
	_, err = s.Login(ctx, "a@x.com", goodPassword)
	assert.ErrorIs(t, err, domain.ErrInvalidCredential)
	_, err = s.Login(ctx, "a@x.com", otherPassword)
	require.NoError(t, err)

	require.NoError(t, s.Withdraw(ctx, a.ID, otherPassword))

	_, err = s.Login(ctx, "a@x.com", otherPassword)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	_, err = s.GetProfile(ctx, a.ID)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	err = s.Withdraw(ctx, a.ID, otherPassword)
	assert.ErrorIs(t, err, domain.ErrAlreadyDeleted)

	assert.Equal(t, []string{
		"account.created", "account.updated", "account.password_changed", "account.deleted",
	}, pub.types())
}

func TestSignUp(t *testing.T) {
	ctx := context.Background()

	t.Run("email normalized", func(t *testing.T) {
		s := newTestService(t, nil, Policy{})
		a := signUp(t, s, "  Mixed@Example.COM ")
		assert.Equal(t, "mixed@example.com", a.Email)
		_, err := s.Login(ctx, "MIXED@example.com", goodPassword)
		assert.NoError(t, err)
	})

	t.Run("duplicate active email", func(t *testing.T) {
		s := newTestService(t, nil, Policy{})
		signUp(t, s, "a@x.com")
		_, err := s.SignUp(ctx, SignUpInput{Email: "a@x.com", Sex: domain.SexMale, Password: goodPassword})
		assert.ErrorIs(t, err, domain.ErrDuplicateIdentity)
	})

	t.Run("deleted email blocked by default", func(t *testing.T) {
		s := newTestService(t, nil, Policy{})
		a := signUp(t, s, "a@x.com")
		require.NoError(t, s.Withdraw(ctx, a.ID, goodPassword))
		_, err := s.SignUp(ctx, SignUpInput{Email: "a@x.com", Sex: domain.SexMale, Password: goodPassword})
		assert.ErrorIs(t, err, domain.ErrDuplicateIdentity)
	})

	t.Run("deleted email reusable when allowed", func(t *testing.T) {
		s := newTestService(t, nil, Policy{AllowEmailReuseAfterDeletion: true})
		a := signUp(t, s, "a@x.com")
		require.NoError(t, s.Withdraw(ctx, a.ID, goodPassword))
		again := signUp(t, s, "a@x.com")
		assert.NotEqual(t, a.ID, again.ID)
	})

	t.Run("weak password", func(t *testing.T) {
		s := newTestService(t, nil, Policy{})
		_, err := s.SignUp(ctx, SignUpInput{Email: "a@x.com", Sex: domain.SexMale, Password: "abcdefgh"})
		assert.ErrorIs(t, err, domain.ErrWeakPassword)
	})

	t.Run("invalid sex", func(t *testing.T) {
		s := newTestService(t, nil, Policy{})
		_, err := s.SignUp(ctx, SignUpInput{Email: "a@x.com", Sex: "X", Password: goodPassword})
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	})

	t.Run("blank email", func(t *testing.T) {
		s := newTestService(t, nil, Policy{})
		_, err := s.SignUp(ctx, SignUpInput{Email: "  ", Sex: domain.SexMale, Password: goodPassword})
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	})

	t.Run("unique index race maps to duplicate", func(t *testing.T) {
		store := &faultyStore{MemoryAccountRepo: repo.NewMemoryAccountRepo(), createErr: domain.ErrConflict}
		s := newTestService(t, store, Policy{})
		_, err := s.SignUp(ctx, SignUpInput{Email: "a@x.com", Sex: domain.SexMale, Password: goodPassword})
		assert.ErrorIs(t, err, domain.ErrDuplicateIdentity)
	})

	t.Run("store fault is unclassified", func(t *testing.T) {
		boom := errors.New("connection reset")
		store := &faultyStore{MemoryAccountRepo: repo.NewMemoryAccountRepo(), createErr: boom}
		s := newTestService(t, store, Policy{})
		_, err := s.SignUp(ctx, SignUpInput{Email: "a@x.com", Sex: domain.SexMale, Password: goodPassword})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, domain.KindUnclassified, domain.KindOf(err))
	})
}

func TestLogin_Failures(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, nil, Policy{})
	signUp(t, s, "a@x.com")

	_, err := s.Login(ctx, "nobody@x.com", goodPassword)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)

	_, err = s.Login(ctx, "a@x.com", "Wrong123!")
	assert.ErrorIs(t, err, domain.ErrInvalidCredential)

	// 两种失败对外文案一致
	var e1, e2 *domain.Error
	_, err1 := s.Login(ctx, "nobody@x.com", goodPassword)
	_, err2 := s.Login(ctx, "a@x.com", "Wrong123!")
	require.ErrorAs(t, err1, &e1)
	require.ErrorAs(t, err2, &e2)
	assert.Equal(t, e1.Message(), e2.Message())
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	cache := newFakeCache()
	s := newTestService(t, nil, Policy{}, WithProfileCache(cache))
	a := signUp(t, s, "a@x.com")

	_, err := s.GetProfile(ctx, a.ID)
	require.NoError(t, err)

	sex := domain.SexOther
	birth := time.Date(2000, 2, 29, 0, 0, 0, 0, time.UTC)
	_, err = s.UpdateProfile(ctx, a.ID, domain.ProfileUpdate{Sex: &sex, BirthDate: &birth})
	require.NoError(t, err)
	assert.Equal(t, []int64{a.ID}, cache.invalidated)

	p, err := s.GetProfile(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SexOther, p.Sex)
	assert.Equal(t, "2000-02-29", p.BirthDate)
	assert.Equal(t, "alice", p.UserName)
	assert.Equal(t, 2, cache.loads)

	_, err = s.UpdateProfile(ctx, 999, domain.ProfileUpdate{Sex: &sex})
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)

	bad := domain.Sex("X")
	_, err = s.UpdateProfile(ctx, a.ID, domain.ProfileUpdate{Sex: &bad})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	blank := " "
	_, err = s.UpdateProfile(ctx, a.ID, domain.ProfileUpdate{UserName: &blank})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	require.NoError(t, s.Withdraw(ctx, a.ID, goodPassword))
	_, err = s.UpdateProfile(ctx, a.ID, domain.ProfileUpdate{Sex: &sex})
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, nil, Policy{})
	a := signUp(t, s, "a@x.com")

	err := s.ChangePassword(ctx, 999, "weak")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound, "missing account is reported before policy")

	for _, pw := range []string{"short1!", "nouppercase1!", "NOLOWERCASE1!", "NoSymbol123", "TooLongPassword1!"} {
		err := s.ChangePassword(ctx, a.ID, pw)
		assert.ErrorIs(t, err, domain.ErrWeakPassword, pw)
	}
	_, err = s.Login(ctx, "a@x.com", goodPassword)
	assert.NoError(t, err, "rejected change must keep the old password")

	require.NoError(t, s.ChangePassword(ctx, a.ID, otherPassword))
	_, err = s.Login(ctx, "a@x.com", otherPassword)
	assert.NoError(t, err)
}

func TestWithdraw(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown account", func(t *testing.T) {
		s := newTestService(t, nil, Policy{})
		assert.ErrorIs(t, s.Withdraw(ctx, 42, goodPassword), domain.ErrAccountNotFound)
	})

	t.Run("wrong password keeps account", func(t *testing.T) {
		s := newTestService(t, nil, Policy{})
		a := signUp(t, s, "a@x.com")
		assert.ErrorIs(t, s.Withdraw(ctx, a.ID, "Wrong123!"), domain.ErrInvalidCredential)
		_, err := s.GetAccount(ctx, a.ID)
		assert.NoError(t, err)
	})

	t.Run("delete fault is deletion failed", func(t *testing.T) {
		mem := repo.NewMemoryAccountRepo()
		s := newTestService(t, mem, Policy{})
		a := signUp(t, s, "a@x.com")

		store := &faultyStore{MemoryAccountRepo: mem, deleteErr: errors.New("disk full")}
		s = newTestService(t, store, Policy{})
		err := s.Withdraw(ctx, a.ID, goodPassword)
		assert.ErrorIs(t, err, domain.ErrDeletionFailed)
		assert.Contains(t, err.Error(), "disk full")

		got, err := mem.FindByID(ctx, a.ID)
		require.NoError(t, err)
		assert.NotNil(t, got, "account stays active")
	})

	t.Run("lookup fault is deletion failed", func(t *testing.T) {
		store := &faultyStore{MemoryAccountRepo: repo.NewMemoryAccountRepo(), findDeletedErr: errors.New("timeout")}
		s := newTestService(t, store, Policy{})
		assert.ErrorIs(t, s.Withdraw(ctx, 1, goodPassword), domain.ErrDeletionFailed)
	})

	t.Run("cache invalidated and event sent", func(t *testing.T) {
		cache := newFakeCache()
		pub := &fakePublisher{}
		s := newTestService(t, nil, Policy{}, WithProfileCache(cache), WithEvents(pub))
		a := signUp(t, s, "a@x.com")
		require.NoError(t, s.Withdraw(ctx, a.ID, goodPassword))
		assert.Equal(t, []int64{a.ID}, cache.invalidated)
		assert.Equal(t, []string{"account.created", "account.deleted"}, pub.types())
	})
}

func TestGetProfile_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, nil, Policy{})
	a := signUp(t, s, "a@x.com")

	p1, err := s.GetProfile(ctx, a.ID)
	require.NoError(t, err)
	p2, err := s.GetProfile(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, p1, p2)

	_, err = s.GetProfile(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestGetAccount_LookupFault(t *testing.T) {
	boom := errors.New("db down")
	store := &faultyStore{MemoryAccountRepo: repo.NewMemoryAccountRepo(), findErr: boom}
	s := newTestService(t, store, Policy{})
	_, err := s.GetAccount(context.Background(), 1)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, domain.KindUnclassified, domain.KindOf(err))
}

func TestPublishFailureDoesNotFailOperation(t *testing.T) {
	pub := &fakePublisher{err: errors.New("redis down")}
	s := newTestService(t, nil, Policy{}, WithEvents(pub))
	a := signUp(t, s, "a@x.com")
	assert.Equal(t, int64(1), a.ID)
}

func TestListAccounts(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	s := newTestService(t, nil, Policy{}, WithClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}))
	for _, e := range []string{"a@x.com", "b@x.com", "c@x.com"} {
		signUp(t, s, e)
	}
	require.NoError(t, s.Withdraw(ctx, 2, goodPassword))

	page, err := s.ListAccounts(ctx, domain.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "c@x.com", page.Items[0].Email)

	page, err = s.ListAccounts(ctx, domain.ListFilter{WithDeleted: true, Limit: 1, Offset: -3})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Len(t, page.Items, 1)
}

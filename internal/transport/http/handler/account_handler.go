package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"newsfeed-account/internal/core/auth"
	"newsfeed-account/internal/domain"
	"newsfeed-account/internal/service"
	"newsfeed-account/internal/transport/http/ez"
	mdw "newsfeed-account/internal/transport/http/middleware"
)

type AccountService interface {
	SignUp(ctx context.Context, in service.SignUpInput) (*domain.Account, error)
	Login(ctx context.Context, email, password string) (*domain.Profile, error)
	UpdateProfile(ctx context.Context, id int64, upd domain.ProfileUpdate) (*domain.Summary, error)
	ChangePassword(ctx context.Context, id int64, newPassword string) error
	Withdraw(ctx context.Context, id int64, password string) error
	GetProfile(ctx context.Context, id int64) (*domain.Profile, error)
	GetAccount(ctx context.Context, id int64) (*domain.Account, error)
	ListAccounts(ctx context.Context, f domain.ListFilter) (*service.Page, error)
}

// AccountHandler 同时挂用户端（/api/v1）和管理端（/admin/v1）接口
type AccountHandler struct {
	svc   AccountService
	jwter *auth.JWTer
	// 登录/注册的每 IP 限速
	authLimit gin.HandlerFunc
}

func NewAccountHandler(svc AccountService, jwter *auth.JWTer) *AccountHandler {
	return &AccountHandler{
		svc:       svc,
		jwter:     jwter,
		authLimit: mdw.RateLimitPerIP(5, 20, 10*time.Minute),
	}
}

func (h *AccountHandler) Priority() int { return 10 }

type signUpReq struct {
	Email       string `json:"email"       binding:"required,email,max=255"`
	Password    string `json:"password"    binding:"required"`
	UserName    string `json:"userName"    binding:"required,max=64"`
	PhoneNumber string `json:"phoneNumber" binding:"omitempty,max=32"`
	BirthDate   string `json:"birthDate"   binding:"omitempty,datetime=2006-01-02"`
	Sex         string `json:"sex"         binding:"required,sex"`
}

type loginReq struct {
	Email    string `json:"email"    binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginOut struct {
	Token     string          `json:"token"`
	TokenType string          `json:"tokenType"`
	ExpiresIn int64           `json:"expiresIn"`
	Account   *domain.Profile `json:"account"`
}

type idURI struct {
	ID int64 `uri:"id" binding:"required,gte=1"`
}

type updateReq struct {
	UserName    *string `json:"userName"    binding:"omitempty,max=64"`
	PhoneNumber *string `json:"phoneNumber" binding:"omitempty,max=32"`
	BirthDate   *string `json:"birthDate"   binding:"omitempty,datetime=2006-01-02"`
	Sex         *string `json:"sex"         binding:"omitempty,sex"`
}

type passwordReq struct {
	NewPassword string `json:"newPassword" binding:"required"`
}

type withdrawReq struct {
	Password string `json:"password" binding:"required"`
}

type listQ struct {
	Offset      int    `form:"offset,default=0"`
	Limit       int    `form:"limit,default=20"`
	Q           string `form:"q"`            // 按 email/userName 模糊搜
	WithDeleted bool   `form:"with_deleted"` // 是否包含已注销
}

// accountView 管理端视图（不含密码摘要）
type accountView struct {
	ID          int64         `json:"id"`
	Email       string        `json:"email"`
	UserName    string        `json:"userName"`
	PhoneNumber string        `json:"phoneNumber"`
	BirthDate   string        `json:"birthDate"`
	Sex         domain.Sex    `json:"sex"`
	Role        string        `json:"role"`
	Status      domain.Status `json:"status"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
	DeletedAt   *time.Time    `json:"deletedAt,omitempty"`
}

type listOut struct {
	Total int64         `json:"total"`
	Items []accountView `json:"items"`
}

func toView(a domain.Account) accountView {
	p := a.Profile()
	return accountView{
		ID:          a.ID,
		Email:       a.Email,
		UserName:    a.UserName,
		PhoneNumber: a.PhoneNumber,
		BirthDate:   p.BirthDate,
		Sex:         a.Sex,
		Role:        a.Role,
		Status:      a.Status(),
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
		DeletedAt:   a.DeletedAt,
	}
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		return time.Time{}, ez.BadRequest(fmt.Sprintf("birthDate must be a date formatted as %s", domain.DateLayout))
	}
	return t, nil
}

func (h *AccountHandler) MountAPI(api *gin.RouterGroup) {
	public := ez.New(api)
	authGroup := ez.New(api.Group("/auth", h.authLimit))

	ez.RegisterAction(authGroup, ez.Action[signUpReq, domain.Profile]{
		Method:  http.MethodPost,
		Path:    "/signup",
		Binder:  ez.BindJSON,
		Created: true,
		Handler: h.signUp,
	})
	ez.RegisterAction(authGroup, ez.Action[loginReq, loginOut]{
		Method:  http.MethodPost,
		Path:    "/login",
		Binder:  ez.BindJSON,
		Handler: h.login,
	})
	ez.RegisterAction(public, ez.Action[idURI, *domain.Profile]{
		Method: http.MethodGet,
		Path:   "/accounts/:id",
		Binder: ez.BindURI,
		Handler: func(c *gin.Context, in *idURI) (*domain.Profile, error) {
			return h.svc.GetProfile(c.Request.Context(), in.ID)
		},
	})

	// /me 必须挂在带鉴权中间件的分组，才能拿到 accountId
	me := ez.New(api.Group("/me", mdw.AuthJWT(h.jwter, "")))
	ez.RegisterAction(me, ez.Action[struct{}, *domain.Profile]{
		Method: http.MethodGet,
		Path:   "",
		Binder: ez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.Profile, error) {
			id, _ := mdw.AccountID(c)
			return h.svc.GetProfile(c.Request.Context(), id)
		},
	})
	ez.RegisterAction(me, ez.Action[updateReq, *domain.Summary]{
		Method:  http.MethodPatch,
		Path:    "",
		Binder:  ez.BindJSON,
		Auth:    true,
		Handler: h.updateProfile,
	})
	ez.RegisterAction(me, ez.Action[passwordReq, domain.Summary]{
		Method: http.MethodPut,
		Path:   "/password",
		Binder: ez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, in *passwordReq) (domain.Summary, error) {
			id, _ := mdw.AccountID(c)
			if err := h.svc.ChangePassword(c.Request.Context(), id, in.NewPassword); err != nil {
				return domain.Summary{}, err
			}
			return domain.Summary{ID: id}, nil
		},
	})
	ez.RegisterAction(me, ez.Action[withdrawReq, domain.Summary]{
		Method: http.MethodDelete,
		Path:   "",
		Binder: ez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, in *withdrawReq) (domain.Summary, error) {
			id, _ := mdw.AccountID(c)
			if err := h.svc.Withdraw(c.Request.Context(), id, in.Password); err != nil {
				return domain.Summary{}, err
			}
			return domain.Summary{ID: id}, nil
		},
	})
}

// MountAdmin 分组已走 AuthJWT("admin")
func (h *AccountHandler) MountAdmin(admin *gin.RouterGroup) {
	g := ez.New(admin)

	ez.RegisterAction(g, ez.Action[listQ, listOut]{
		Method: http.MethodGet,
		Path:   "/accounts",
		Binder: ez.BindQuery,
		Handler: func(c *gin.Context, in *listQ) (listOut, error) {
			page, err := h.svc.ListAccounts(c.Request.Context(), domain.ListFilter{
				Offset:      in.Offset,
				Limit:       in.Limit,
				Query:       strings.TrimSpace(in.Q),
				WithDeleted: in.WithDeleted,
			})
			if err != nil {
				return listOut{}, err
			}
			out := listOut{Total: page.Total, Items: make([]accountView, 0, len(page.Items))}
			for _, a := range page.Items {
				out.Items = append(out.Items, toView(a))
			}
			return out, nil
		},
	})
	ez.RegisterAction(g, ez.Action[idURI, accountView]{
		Method: http.MethodGet,
		Path:   "/accounts/:id",
		Binder: ez.BindURI,
		Handler: func(c *gin.Context, in *idURI) (accountView, error) {
			a, err := h.svc.GetAccount(c.Request.Context(), in.ID)
			if err != nil {
				return accountView{}, err
			}
			return toView(*a), nil
		},
	})
}

func (h *AccountHandler) signUp(c *gin.Context, in *signUpReq) (domain.Profile, error) {
	sex, err := domain.ParseSex(in.Sex)
	if err != nil {
		return domain.Profile{}, err
	}
	var birth time.Time
	if in.BirthDate != "" {
		if birth, err = parseDate(in.BirthDate); err != nil {
			return domain.Profile{}, err
		}
	}
	a, err := h.svc.SignUp(c.Request.Context(), service.SignUpInput{
		Email:       in.Email,
		UserName:    in.UserName,
		PhoneNumber: in.PhoneNumber,
		BirthDate:   birth,
		Sex:         sex,
		Password:    in.Password,
	})
	if err != nil {
		return domain.Profile{}, err
	}
	return a.Profile(), nil
}

func (h *AccountHandler) login(c *gin.Context, in *loginReq) (loginOut, error) {
	ctx := c.Request.Context()
	p, err := h.svc.Login(ctx, in.Email, in.Password)
	if err != nil {
		return loginOut{}, err
	}
	// token 里要带角色，Profile 不含角色
	a, err := h.svc.GetAccount(ctx, p.ID)
	if err != nil {
		return loginOut{}, err
	}
	tok, err := h.jwter.Issue(a.ID, a.Role)
	if err != nil {
		return loginOut{}, fmt.Errorf("issue token: %w", err)
	}
	return loginOut{
		Token:     tok,
		TokenType: "Bearer",
		ExpiresIn: int64(h.jwter.TTL.Seconds()),
		Account:   p,
	}, nil
}

func (h *AccountHandler) updateProfile(c *gin.Context, in *updateReq) (*domain.Summary, error) {
	var upd domain.ProfileUpdate
	upd.UserName = in.UserName
	upd.PhoneNumber = in.PhoneNumber
	if in.BirthDate != nil {
		t, err := parseDate(*in.BirthDate)
		if err != nil {
			return nil, err
		}
		upd.BirthDate = &t
	}
	if in.Sex != nil {
		sex, err := domain.ParseSex(*in.Sex)
		if err != nil {
			return nil, err
		}
		upd.Sex = &sex
	}
	if upd.Empty() {
		return nil, ez.BadRequest("nothing to update")
	}
	id, _ := mdw.AccountID(c)
	return h.svc.UpdateProfile(c.Request.Context(), id, upd)
}

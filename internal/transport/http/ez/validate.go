package ez

import (
	"encoding/json"
	"errors"
	"io"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"newsfeed-account/internal/domain"
)

var registerOnce sync.Once

// RegisterValidators 给 gin 的 validator 注册自定义 tag（sex），并让错误里的字段名用 json/form 名
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(fieldName)
		_ = v.RegisterValidation("sex", func(fl validator.FieldLevel) bool {
			_, err := domain.ParseSex(fl.Field().String())
			return err == nil
		})
	})
}

func fieldName(f reflect.StructField) string {
	for _, key := range []string{"json", "form", "uri"} {
		name, _, _ := strings.Cut(f.Tag.Get(key), ",")
		if name != "" && name != "-" {
			return name
		}
	}
	return ""
}

// describeBindError 只给出字段级提示，不回显解析器原文
func describeBindError(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		fe := ve[0]
		switch fe.Tag() {
		case "required":
			return fe.Field() + " is required"
		case "email":
			return fe.Field() + " must be a valid email address"
		case "sex":
			return fe.Field() + " must be one of MALE, FEMALE, OTHER"
		case "datetime":
			return fe.Field() + " must be a date formatted as " + fe.Param()
		case "max":
			return fe.Field() + " must be at most " + fe.Param() + " characters"
		case "min", "gte":
			return fe.Field() + " must be at least " + fe.Param()
		}
		return fe.Field() + " is invalid"
	}
	var te *json.UnmarshalTypeError
	if errors.As(err, &te) && te.Field != "" {
		return te.Field + " has the wrong type"
	}
	if errors.Is(err, io.EOF) {
		return "request body is required"
	}
	return "malformed request"
}

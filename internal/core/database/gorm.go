package database

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	applog "newsfeed-account/internal/core/logger"
)

var ErrUnsupportedDriver = errors.New("database: unsupported driver")

type Opts struct {
	Driver             string
	DSN                string
	Username           string
	Password           string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	LogLevel           string
}

func NewGorm(o Opts, l *zap.Logger) (*gorm.DB, error) {
	var dial gorm.Dialector
	switch o.Driver {
	case "postgres":
		l.Info("postgres dsn resolved", zap.String("dsn", MaskDSN(o.DSN)))
		dial = postgres.Open(o.DSN)
	case "mysql":
		dsn, err := NormalizeMySQLDSN(o.DSN, o.Username, o.Password)
		if err != nil {
			return nil, err
		}
		l.Info("mysql dsn resolved", zap.String("dsn", MaskDSN(dsn)))
		dial = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, o.Driver)
	}

	db, err := gorm.Open(dial, &gorm.Config{
		Logger:                 newGormLogger(l, o.LogLevel),
		TranslateError:         true, // 唯一冲突 -> gorm.ErrDuplicatedKey
		PrepareStmt:            true,
		SkipDefaultTransaction: true, // 只在 WithinTx 里开事务
	})
	if err != nil {
		return nil, fmt.Errorf("database: open %s: %w", o.Driver, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	o.applyPool(sqlDB)
	return db, nil
}

func (o Opts) applyPool(db *sql.DB) {
	open, idle, life := o.MaxOpenConns, o.MaxIdleConns, o.ConnMaxLifetimeMin
	if open <= 0 {
		open = 20
	}
	if idle <= 0 || idle > open {
		idle = open / 2
	}
	if life <= 0 {
		life = 30
	}
	db.SetMaxOpenConns(open)
	db.SetMaxIdleConns(idle)
	db.SetConnMaxLifetime(time.Duration(life) * time.Minute)
}

var gormLevels = map[string]gormlogger.LogLevel{
	"silent": gormlogger.Silent,
	"error":  gormlogger.Error,
	"warn":   gormlogger.Warn,
	"info":   gormlogger.Info,
}

// gorm 自带 logger 只认 io.Writer 风格的 Printf，借 zap 的 std logger 桥接过去
func newGormLogger(l *zap.Logger, level string) gormlogger.Interface {
	lvl, ok := gormLevels[strings.ToLower(level)]
	if !ok {
		lvl = gormlogger.Warn
	}
	return gormlogger.New(applog.ToStdLogger(l.Named("gorm"), zapcore.InfoLevel), gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  lvl,
		IgnoreRecordNotFoundError: true,
		ParameterizedQueries:      true, // 不把口令摘要等参数打进日志
	})
}

var pgPassword = regexp.MustCompile(`(?i)(password=)('[^']*'|\S+)`)

// MaskDSN 把口令替换成 ****，用于日志；支持 URL、go-sql-driver 和 libpq key=value 三种写法
func MaskDSN(dsn string) string {
	if u, err := url.Parse(dsn); err == nil && u.User != nil && strings.Contains(dsn, "://") {
		if _, has := u.User.Password(); has {
			u.User = url.UserPassword(u.User.Username(), "****")
		}
		return u.String()
	}
	if pgPassword.MatchString(dsn) {
		return pgPassword.ReplaceAllString(dsn, "${1}****")
	}
	if cfg, err := gomysql.ParseDSN(dsn); err == nil && cfg.Passwd != "" {
		cfg.Passwd = "****"
		return cfg.FormatDSN()
	}
	return dsn
}

// JDBC 连接串里 go-sql-driver 不认识的参数
var jdbcOnlyParams = []string{"useUnicode", "characterEncoding", "zeroDateTimeBehavior", "useSSL", "serverTimezone"}

// NormalizeMySQLDSN 接受原生 DSN、mysql:// 与 jdbc:mysql:// URL，统一输出 go-sql-driver 格式，
// 并强制 parseTime。user/pass 非空时覆盖连接串里的账号
func NormalizeMySQLDSN(input, user, pass string) (string, error) {
	in := strings.TrimPrefix(strings.TrimSpace(input), "jdbc:")
	if strings.HasPrefix(in, "mysql://") {
		native, err := mysqlURLToNative(in)
		if err != nil {
			return "", err
		}
		in = native
	}
	cfg, err := gomysql.ParseDSN(in)
	if err != nil {
		return "", fmt.Errorf("database: parse mysql dsn: %w", err)
	}
	if user != "" {
		cfg.User = user
	}
	if pass != "" {
		cfg.Passwd = pass
	}
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}

func mysqlURLToNative(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("database: parse mysql url: %w", err)
	}
	q := u.Query()
	for _, k := range jdbcOnlyParams {
		q.Del(k)
	}
	var b strings.Builder
	if u.User != nil {
		b.WriteString(u.User.Username())
		if p, ok := u.User.Password(); ok {
			b.WriteString(":" + p)
		}
		b.WriteByte('@')
	}
	fmt.Fprintf(&b, "tcp(%s)/%s", u.Host, strings.TrimPrefix(u.Path, "/"))
	if len(q) > 0 {
		b.WriteString("?" + q.Encode())
	}
	return b.String(), nil
}

// Package storage is herbot's SQL client. A Client wraps a *sql.DB and a
// Dialect; dialect packages (mssql, postgres, sqlite) register themselves
// in init and are pulled in by importing herbot/internal/storage/all.
package storage

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"herbot/internal/dataerr"
)

// DefaultTimeout bounds connecting and pinging when Config.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// Config describes one database connection. DSN, when set, is handed to the
// driver verbatim and the discrete fields are ignored.
type Config struct {
	Kind           string        `koanf:"kind" validate:"required,oneof=mssql postgres sqlite"`
	DSN            string        `koanf:"dsn"`
	Server         string        `koanf:"server"`
	Port           int           `koanf:"port" validate:"gte=0,lte=65535"`
	User           string        `koanf:"user"`
	Password       string        `koanf:"password"`
	Database       string        `koanf:"database"`
	Authentication string        `koanf:"authentication"`
	Timeout        time.Duration `koanf:"timeout"`
	MaxOpenConns   int           `koanf:"max_open_conns" validate:"gte=0"`

	// Params are extra driver parameters appended to the generated DSN,
	// such as applicationclientid for interactive Azure AD sign-in.
	Params map[string]string `koanf:"params"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("koanf"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate reports the first problem with c as an InvalidParameters error.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fe validator.ValidationErrors
		if errors.As(err, &fe) && len(fe) > 0 {
			return dataerr.New(dataerr.KindInvalidParameters, formatFieldError(fe[0]))
		}
		return dataerr.Wrap(dataerr.KindInvalidParameters, err, err.Error())
	}
	if c.Timeout < 0 {
		return dataerr.New(dataerr.KindInvalidParameters, "Timeout must be positive")
	}
	if c.DSN != "" {
		return nil
	}
	switch c.Kind {
	case "sqlite":
		if strings.TrimSpace(c.Database) == "" {
			return dataerr.New(dataerr.KindInvalidParameters, "Database path must be provided")
		}
	default:
		if c.Server == "" || c.User == "" || c.Database == "" {
			return dataerr.New(dataerr.KindInvalidParameters, "Server, UID, and database must all be provided")
		}
	}
	return nil
}

// EffectiveTimeout is Timeout, or DefaultTimeout when unset.
func (c Config) EffectiveTimeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}

func formatFieldError(err validator.FieldError) string {
	field := err.Namespace()
	if i := strings.IndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}
	param := err.Param()
	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, param)
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, param)
	default:
		return fmt.Sprintf("%s failed %s validation", field, err.Tag())
	}
}

package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
)

var validate = validator.New()

// Validate checks struct tags, then the rules tags cannot express
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}
	return validateCustomRules(cfg)
}

func validateCustomRules(cfg *Config) error {
	if cfg.Scan.AutoRefresh != "" {
		if _, err := cron.ParseStandard(cfg.Scan.AutoRefresh); err != nil {
			return fmt.Errorf("scan.auto_refresh: 无效的 cron 表达式 %q: %w", cfg.Scan.AutoRefresh, err)
		}
	}
	if cfg.Redis.UseSSH && cfg.Redis.SSH.Host == "" {
		return errors.New("redis.ssh.host: 启用 SSH 时必须填写")
	}
	return nil
}

func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		e := verrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)", e.Namespace(), e.Tag(), e.Value())
	}
	return err
}

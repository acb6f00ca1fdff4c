package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/teambition/rrule-go"
	"gopkg.in/yaml.v3"

	"github.com/oakridgegc/teetime-lottery/pkg/core/lottery"
)

// Restriction defines a club time-of-day or frequency rule in the config
// file. The rrule selects the dates the rule is active on; an empty rrule
// means every day.
type Restriction struct {
	Name  string `yaml:"name" validate:"required"`
	RRule string `yaml:"rrule,omitempty"`

	// Blocked time-of-day range in minutes from midnight (both or neither)
	StartMinute *int `yaml:"startMinute,omitempty" validate:"omitempty,min=0,max=1439"`
	EndMinute   *int `yaml:"endMinute,omitempty" validate:"omitempty,min=0,max=1440"`

	MemberIDs       []string `yaml:"memberIDs,omitempty"`
	MemberClasses   []string `yaml:"memberClasses,omitempty"`
	AppliesToGuests bool     `yaml:"appliesToGuests,omitempty"`

	// Frequency cap: at most maxPerPeriod assignments in the trailing periodDays
	MaxPerPeriod int `yaml:"maxPerPeriod,omitempty" validate:"omitempty,min=1"`
	PeriodDays   int `yaml:"periodDays,omitempty" validate:"omitempty,min=1"`
}

// Config represents the application configuration
type Config struct {
	DatabaseURL  string        `yaml:"databaseURL" validate:"required"`
	Restrictions []Restriction `yaml:"restrictions,omitempty" validate:"dive"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// LoadWithEnv loads and validates the configuration for an environment. It
// looks for teesheet_config.<env>.yaml in the current directory first, then
// in the user's home directory.
func LoadWithEnv(env string) (*Config, error) {
	configPath, err := findConfigFile(fmt.Sprintf("teesheet_config.%s.yaml", env))
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	return LoadFromPath(configPath)
}

// LoadFromPath loads and validates the configuration from a specific path
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate validates the configuration struct, restriction shape, and rrule
// syntax
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	for i, r := range cfg.Restrictions {
		if r.RRule != "" {
			if _, err := rrule.StrToRRule(r.RRule); err != nil {
				return fmt.Errorf("invalid rrule in restrictions[%d] (%s): %w", i, r.Name, err)
			}
		}

		if (r.StartMinute == nil) != (r.EndMinute == nil) {
			return fmt.Errorf("restrictions[%d] (%s): startMinute and endMinute must be set together", i, r.Name)
		}
		if r.StartMinute != nil && *r.EndMinute <= *r.StartMinute {
			return fmt.Errorf("restrictions[%d] (%s): endMinute must be after startMinute", i, r.Name)
		}

		if (r.MaxPerPeriod > 0) != (r.PeriodDays > 0) {
			return fmt.Errorf("restrictions[%d] (%s): maxPerPeriod and periodDays must be set together", i, r.Name)
		}

		if r.StartMinute == nil && r.MaxPerPeriod == 0 {
			return fmt.Errorf("restrictions[%d] (%s): needs a time range or a frequency cap", i, r.Name)
		}
	}

	return nil
}

// LotteryRestrictions converts the configured restrictions into the engine's
// restriction type
func (c *Config) LotteryRestrictions() []lottery.Restriction {
	out := make([]lottery.Restriction, 0, len(c.Restrictions))
	for _, r := range c.Restrictions {
		lr := lottery.Restriction{
			Name:            r.Name,
			RRule:           r.RRule,
			StartMinute:     -1,
			EndMinute:       -1,
			MemberIDs:       r.MemberIDs,
			MemberClasses:   r.MemberClasses,
			AppliesToGuests: r.AppliesToGuests,
			MaxPerPeriod:    r.MaxPerPeriod,
			PeriodDays:      r.PeriodDays,
		}
		if r.StartMinute != nil {
			lr.StartMinute = *r.StartMinute
			lr.EndMinute = *r.EndMinute
		}
		out = append(out, lr)
	}
	return out
}

// findConfigFile searches for the named config file in the current directory
// and the user's home directory
func findConfigFile(name string) (string, error) {
	if _, err := os.Stat(name); err == nil {
		return name, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	homePath := filepath.Join(homeDir, name)
	if _, err := os.Stat(homePath); err == nil {
		return homePath, nil
	}

	return "", fmt.Errorf("config file %s not found in current directory or home directory", name)
}

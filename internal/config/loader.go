package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	warperrors "github.com/warpmetrics/warp-coder/pkg/errors"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate
)

func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		validateInst = validator.New()
	})
	return validateInst
}

// Load reads and validates the configuration under projectRoot.
func Load(projectRoot string) (*Config, error) {
	path := filepath.Join(projectRoot, Dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, warperrors.NewParseError(path, 0, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, warperrors.NewParseError(path, 0, err)
	}
	cfg.ProjectRoot = projectRoot

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate performs schema validation on the configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return warperrors.NewValidationError("config", "configuration is nil", nil)
	}

	v := validatorInstance()
	if err := v.Struct(cfg); err != nil {
		if ves, ok := err.(validator.ValidationErrors); ok {
			ve := ves[0]
			msg := fmt.Sprintf("%s failed validation for tag '%s'", ve.StructNamespace(), ve.Tag())
			return warperrors.NewValidationError(ve.StructNamespace(), msg, err)
		}
		return warperrors.NewValidationError("config", err.Error(), err)
	}

	if len(cfg.Executors) > 0 {
		return warperrors.NewValidationError("executors",
			"custom executor modules cannot be loaded at runtime; executors are compiled into this binary and registered at startup", nil)
	}

	return nil
}

// LoadSecrets reads the project-root .env file (when present) into the
// process environment, then collects the recognised secrets. A missing
// .env is not an error; variables already set in the environment win.
func LoadSecrets(projectRoot string) (*Secrets, error) {
	envPath := filepath.Join(projectRoot, ".env")
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			return nil, warperrors.NewParseError(envPath, 0, err)
		}
	}

	return &Secrets{
		WarpmetricsKey:   os.Getenv("WARP_CODER_WARPMETRICS_KEY"),
		GitHubToken:      os.Getenv("WARP_CODER_GITHUB_TOKEN"),
		ReviewToken:      os.Getenv("WARP_CODER_REVIEW_TOKEN"),
		LinearKey:        os.Getenv("WARP_CODER_LINEAR_KEY"),
		ChangelogToken:   os.Getenv("WARP_CODER_CHANGELOG_TOKEN"),
		TelegramBotToken: os.Getenv("WARP_CODER_TELEGRAM_BOT_TOKEN"),
	}, nil
}

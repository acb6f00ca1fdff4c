package commands

import (
	"context"

	"go.uber.org/zap"

	"github.com/oakridgegc/teetime-lottery/internal/config"
	"github.com/oakridgegc/teetime-lottery/pkg/db"
)

// AppContext holds the application dependencies shared across all commands
type AppContext struct {
	Cfg      *config.Config
	Database db.Database
	Logger   *zap.Logger
	Ctx      context.Context
}

package services

import (
	"gorm.io/gorm"

	"tg-task-tracker/internal/config"
	"tg-task-tracker/internal/repositories"
)

// Services bundles the services shared by the API server and the bot.
type Services struct {
	Tasks    *TaskService
	Users    *UserService
	InitData *InitDataService
	JWT      *JWTService
}

// New wires repositories and services over db.
func New(db *gorm.DB, cfg *config.Config) *Services {
	taskRepo := repositories.NewTaskRepository(db)
	userRepo := repositories.NewUserRepository(db)

	return &Services{
		Tasks:    NewTaskService(db, taskRepo),
		Users:    NewUserService(db, userRepo, taskRepo),
		InitData: NewInitDataService(cfg.BotToken, cfg.InitDataMaxAge),
		JWT:      NewJWTService(cfg.SecretKey, cfg.SessionTTL),
	}
}

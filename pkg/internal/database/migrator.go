package database

import (
	"git.solsynth.dev/hypernet/crosspost/pkg/internal/models"
	"gorm.io/gorm"
)

var AutoMaintainRange = []any{
	&models.Account{},
	&models.Group{},
	&models.GroupMember{},
	&models.Forum{},
	&models.Topic{},
	&models.Attachment{},
	&models.Activity{},
	&models.Meta{},
}

func RunMigration(source *gorm.DB) error {
	if err := source.AutoMigrate(
		append(
			AutoMaintainRange,
			&models.FanoutTask{},
		)...,
	); err != nil {
		return err
	}

	return nil
}

package services

import (
	"errors"
	"fmt"
	"time"

	"git.solsynth.dev/hypernet/crosspost/pkg/internal/database"
	"git.solsynth.dev/hypernet/crosspost/pkg/internal/models"
	"git.solsynth.dev/hypernet/crosspost/pkg/internal/services/crosspost"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"gorm.io/gorm"
)

func GetFanoutTaskByTopic(tx *gorm.DB, topicID uint) (models.FanoutTask, error) {
	var task models.FanoutTask
	err := tx.Where("topic_id = ?", topicID).First(&task).Error
	return task, err
}

func EnqueueFanoutTask(tx *gorm.DB, task *models.FanoutTask) error {
	if _, err := GetFanoutTaskByTopic(tx.Unscoped(), task.TopicID); err == nil {
		return crosspost.ErrAlreadyCrossposted
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("unable to check existing fan-out: %v", err)
	}

	if len(task.Status) == 0 {
		task.Status = models.FanoutTaskPending
	}
	if err := tx.Create(task).Error; err != nil {
		return fmt.Errorf("unable to enqueue fan-out: %v", err)
	}
	return nil
}

// ClaimFanoutTasks flips pending tasks to running one by one.
// A task whose status changed under us is left to whoever changed it.
func ClaimFanoutTasks(tx *gorm.DB, limit int) ([]models.FanoutTask, error) {
	var pending []models.FanoutTask
	if err := tx.Where("status = ?", models.FanoutTaskPending).
		Order("id ASC").
		Limit(limit).
		Find(&pending).Error; err != nil {
		return nil, fmt.Errorf("unable to find pending fan-out tasks: %v", err)
	}

	claimed := make([]models.FanoutTask, 0, len(pending))
	for _, task := range pending {
		now := time.Now()
		result := tx.Model(&models.FanoutTask{}).
			Where("id = ? AND status = ?", task.ID, models.FanoutTaskPending).
			Updates(map[string]any{"status": models.FanoutTaskRunning, "started_at": now})
		if result.Error != nil {
			return claimed, fmt.Errorf("unable to claim fan-out task %d: %v", task.ID, result.Error)
		}
		if result.RowsAffected != 1 {
			continue
		}
		task.Status = models.FanoutTaskRunning
		task.StartedAt = &now
		claimed = append(claimed, task)
	}
	return claimed, nil
}

func FinishFanoutTask(tx *gorm.DB, task *models.FanoutTask) error {
	return tx.Save(task).Error
}

func DoAutoDatabaseCleanup() {
	retention := viper.GetDuration("crosspost.task_retention")
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}
	deadline := time.Now().Add(-retention)

	log.Debug().Time("deadline", deadline).Msg("Now cleaning up finished fan-out tasks...")

	tx := database.C.Unscoped().
		Where("status IN ? AND finished_at < ?", []string{models.FanoutTaskDone, models.FanoutTaskFailed}, deadline).
		Delete(&models.FanoutTask{})
	if tx.Error != nil {
		log.Error().Err(tx.Error).Msg("An error occurred when running fan-out task cleanup...")
		return
	}

	log.Debug().Int64("affected", tx.RowsAffected).Msg("Clean up finished fan-out tasks has been done.")
}

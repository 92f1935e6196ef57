package services

import (
	"fmt"
	"html"
	"strings"
	"time"

	"git.solsynth.dev/hypernet/crosspost/pkg/internal/models"
	"github.com/samber/lo"
	"github.com/spf13/viper"
	"gorm.io/gorm"
)

func GetForum(tx *gorm.DB, id uint) (models.Forum, error) {
	var forum models.Forum
	err := tx.Where("id = ?", id).First(&forum).Error
	return forum, err
}

func GetTopic(tx *gorm.DB, id uint) (models.Topic, error) {
	var topic models.Topic
	err := tx.Where("id = ?", id).First(&topic).Error
	return topic, err
}

func ListTopicAttachments(tx *gorm.DB, topicID uint) ([]models.Attachment, error) {
	var attachments []models.Attachment
	if err := tx.Where("topic_id = ?", topicID).Order("id ASC").Find(&attachments).Error; err != nil {
		return nil, fmt.Errorf("unable to list attachments: %v", err)
	}
	return attachments, nil
}

func siteURL() string {
	return strings.TrimSuffix(viper.GetString("site_url"), "/")
}

func TopicPermalink(topic models.Topic) string {
	return fmt.Sprintf("%s/forums/topic/%d", siteURL(), topic.ID)
}

func ForumPermalink(forum models.Forum) string {
	return fmt.Sprintf("%s/forums/forum/%s", siteURL(), forum.Alias)
}

func AccountPermalink(account models.Account) string {
	return fmt.Sprintf("%s/members/%s", siteURL(), account.Name)
}

func anchor(href, text string) string {
	return fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(href), html.EscapeString(text))
}

// UpdateTopicAggregates resets the counters of a new topic and refreshes its forum
// and every ancestor forum above it.
func UpdateTopicAggregates(tx *gorm.DB, topicID, forumID uint, lastActive time.Time) error {
	if err := tx.Model(&models.Topic{}).Where("id = ?", topicID).Updates(map[string]any{
		"reply_count":        0,
		"hidden_reply_count": 0,
		"last_reply_id":      0,
		"last_active_id":     topicID,
		"last_active_at":     lastActive,
		"voice_count":        1,
	}).Error; err != nil {
		return fmt.Errorf("unable to update topic counters: %v", err)
	}

	visited := make(map[uint]bool)
	for current := lo.ToPtr(forumID); current != nil && !visited[*current]; {
		visited[*current] = true

		forum, err := GetForum(tx, *current)
		if err != nil {
			return fmt.Errorf("unable to walk forum %d: %v", *current, err)
		}

		var direct, nested int64
		if err := tx.Model(&models.Topic{}).Where("forum_id = ?", forum.ID).Count(&direct).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Forum{}).
			Where("parent_id = ?", forum.ID).
			Select("COALESCE(SUM(topic_count), 0)").
			Scan(&nested).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Forum{}).Where("id = ?", forum.ID).Updates(map[string]any{
			"topic_count":    direct + nested,
			"last_topic_id":  topicID,
			"last_active_at": lastActive,
		}).Error; err != nil {
			return fmt.Errorf("unable to update forum counters: %v", err)
		}

		current = forum.ParentID
	}

	return nil
}

// NewTopic creates a topic in a forum with its counters and its feed entry.
func NewTopic(tx *gorm.DB, topic models.Topic) (models.Topic, models.Activity, error) {
	var activity models.Activity

	forum, err := GetForum(tx, topic.ForumID)
	if err != nil {
		return topic, activity, fmt.Errorf("unable to find forum: %v", err)
	}
	if len(topic.Language) == 0 {
		topic.Language = DetectLanguage(topic.Content)
	}

	err = tx.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&topic).Error; err != nil {
			return err
		}
		if err := UpdateTopicAggregates(tx, topic.ID, topic.ForumID, time.Now()); err != nil {
			return err
		}
		if forum.GroupID == nil {
			return nil
		}
		if activity, err = RecordTopicCreate(tx, topic, *forum.GroupID); err != nil {
			return err
		}
		return TouchGroup(tx, *forum.GroupID)
	})

	return topic, activity, err
}

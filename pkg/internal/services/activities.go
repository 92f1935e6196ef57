package services

import (
	"fmt"

	"git.solsynth.dev/hypernet/crosspost/pkg/internal/models"
	"git.solsynth.dev/hypernet/crosspost/pkg/internal/services/crosspost"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

func GetTopicCreateActivity(tx *gorm.DB, topicID uint) (models.Activity, error) {
	var activity models.Activity
	err := tx.Where("component = ? AND type = ? AND secondary_item_id = ?",
		models.ActivityComponentGroups,
		models.ActivityTypeTopicCreate,
		topicID,
	).Order("id ASC").First(&activity).Error
	return activity, err
}

func ListActivitiesByID(tx *gorm.DB, ids []uint) ([]models.Activity, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var items []models.Activity
	if err := tx.Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("unable to list activities: %v", err)
	}
	mapping := lo.KeyBy(items, func(item models.Activity) uint {
		return item.ID
	})
	return lo.FilterMap(ids, func(id uint, _ int) (models.Activity, bool) {
		item, ok := mapping[id]
		return item, ok
	}), nil
}

// RecordTopicCreate writes the feed entry narrating a topic created in a group's forum.
func RecordTopicCreate(tx *gorm.DB, topic models.Topic, groupID uint) (models.Activity, error) {
	account, err := GetAccount(tx, topic.AccountID)
	if err != nil {
		return models.Activity{}, fmt.Errorf("unable to find topic author: %v", err)
	}
	forum, err := GetForum(tx, topic.ForumID)
	if err != nil {
		return models.Activity{}, fmt.Errorf("unable to find topic forum: %v", err)
	}

	actorLink := anchor(AccountPermalink(account), lo.Ternary(len(account.Nick) > 0, account.Nick, account.Name))
	activity := models.Activity{
		Component:       models.ActivityComponentGroups,
		Type:            models.ActivityTypeTopicCreate,
		AccountID:       topic.AccountID,
		ItemID:          groupID,
		SecondaryItemID: topic.ID,
		ActorLink:       actorLink,
		Action: fmt.Sprintf(
			"%s started the topic %s in the forum %s",
			actorLink,
			anchor(TopicPermalink(topic), topic.Title),
			anchor(ForumPermalink(forum), forum.Name),
		),
		Content:     topic.Title,
		PrimaryLink: TopicPermalink(topic),
	}

	err = tx.Create(&activity).Error
	return activity, err
}

// ListActivities runs the raw feed query, newest first.
func ListActivities(tx *gorm.DB, q crosspost.FeedQuery) ([]models.Activity, int64, error) {
	tx = tx.Model(&models.Activity{})
	if q.GroupID != nil {
		tx = tx.Where("component = ? AND item_id = ?", models.ActivityComponentGroups, *q.GroupID)
	}
	if q.AccountID != nil {
		tx = tx.Where("account_id = ?", *q.AccountID)
	}
	if len(q.Exclude) > 0 {
		tx = tx.Where("id NOT IN ?", q.Exclude)
	}
	tx = tx.Session(&gorm.Session{})

	var count int64
	if err := tx.Count(&count).Error; err != nil {
		return nil, 0, fmt.Errorf("unable to count activities: %v", err)
	}

	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	if q.Offset > 0 {
		tx = tx.Offset(q.Offset)
	}

	var items []models.Activity
	if err := tx.Order("created_at DESC, id DESC").Find(&items).Error; err != nil {
		return nil, 0, fmt.Errorf("unable to list activities: %v", err)
	}
	return items, count, nil
}

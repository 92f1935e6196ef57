package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	localCache "git.solsynth.dev/hypernet/crosspost/pkg/internal/cache"
	"git.solsynth.dev/hypernet/crosspost/pkg/internal/models"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/marshaler"
	"github.com/eko/gocache/lib/v4/store"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"gorm.io/gorm"
)

func groupCacheKey(id uint) string {
	return fmt.Sprintf("crosspost-group#%d", id)
}

func GetGroup(tx *gorm.DB, id uint) (models.Group, error) {
	var group models.Group

	if localCache.S == nil {
		err := tx.Where("id = ?", id).First(&group).Error
		return group, err
	}

	cacheManager := cache.New[any](localCache.S)
	marshal := marshaler.New(cacheManager)
	ctx := context.Background()

	if cached, err := marshal.Get(ctx, groupCacheKey(id), new(models.Group)); err == nil {
		return *cached.(*models.Group), nil
	}

	if err := tx.Where("id = ?", id).First(&group).Error; err != nil {
		return group, err
	}

	ttl := viper.GetDuration("cache.ttl")
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if err := marshal.Set(ctx, groupCacheKey(id), group, store.WithExpiration(ttl), store.WithTags([]string{"group"})); err != nil {
		log.Warn().Err(err).Uint("group", id).Msg("Unable to cache group...")
	}

	return group, nil
}

func IsGroupMember(tx *gorm.DB, groupID, accountID uint) (bool, error) {
	var count int64
	if err := tx.Model(&models.GroupMember{}).
		Where("group_id = ? AND account_id = ?", groupID, accountID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("unable to check membership: %v", err)
	}
	return count > 0, nil
}

func ListGroupForumIDs(tx *gorm.DB, groupID uint) ([]uint, error) {
	var ids []uint
	if err := tx.Model(&models.Forum{}).
		Where("group_id = ?", groupID).
		Order("id ASC").
		Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("unable to list forums of group: %v", err)
	}
	return ids, nil
}

// ListCrosspostCandidates returns the account's groups with forums enabled, sorted by name,
// leaving out the group the topic is being written in.
func ListCrosspostCandidates(tx *gorm.DB, accountID uint, current uint) ([]models.Group, error) {
	var groupIDs []uint
	if err := tx.Model(&models.GroupMember{}).
		Where("account_id = ?", accountID).
		Pluck("group_id", &groupIDs).Error; err != nil {
		return nil, fmt.Errorf("unable to list memberships: %v", err)
	}
	if len(groupIDs) == 0 {
		return nil, nil
	}

	var groups []models.Group
	if err := tx.
		Where("id IN ? AND id <> ? AND enable_forum = ?", groupIDs, current, true).
		Order("name ASC").
		Find(&groups).Error; err != nil {
		return nil, fmt.Errorf("unable to list groups: %v", err)
	}
	return groups, nil
}

func ListGroupSubscribers(tx *gorm.DB, groupID uint) ([]models.GroupMember, error) {
	var members []models.GroupMember
	if err := tx.Preload("Account").
		Where("group_id = ? AND email_notify = ?", groupID, true).
		Order("id ASC").
		Find(&members).Error; err != nil {
		return nil, fmt.Errorf("unable to list group subscribers: %v", err)
	}
	return members, nil
}

func TouchGroup(tx *gorm.DB, groupID uint) error {
	if err := tx.Model(&models.Group{}).
		Where("id = ?", groupID).
		Update("last_activity_at", time.Now()).Error; err != nil {
		return err
	}
	if localCache.S != nil {
		_ = localCache.S.Delete(context.Background(), groupCacheKey(groupID))
	}
	return nil
}

func GetAccount(tx *gorm.DB, id uint) (models.Account, error) {
	var account models.Account
	if err := tx.Where("id = ?", id).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return account, err
		}
		return account, fmt.Errorf("unable to get account: %v", err)
	}
	return account, nil
}

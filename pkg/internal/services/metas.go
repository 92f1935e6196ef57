package services

import (
	"git.solsynth.dev/hypernet/crosspost/pkg/internal/models"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

func AddMeta(tx *gorm.DB, object string, objectID uint, key, value string) error {
	return tx.Create(&models.Meta{
		ObjectType: object,
		ObjectID:   objectID,
		Key:        key,
		Value:      value,
	}).Error
}

func GetMeta(tx *gorm.DB, object string, objectID uint, key string) ([]string, error) {
	var values []string
	err := tx.Model(&models.Meta{}).
		Where("object_type = ? AND object_id = ? AND meta_key = ?", object, objectID, key).
		Order("id ASC").
		Pluck("meta_value", &values).Error
	return values, err
}

func ListMeta(tx *gorm.DB, object string, objectIDs []uint, key string) (map[uint][]string, error) {
	out := make(map[uint][]string)
	if len(objectIDs) == 0 {
		return out, nil
	}

	var rows []models.Meta
	if err := tx.
		Where("object_type = ? AND object_id IN ? AND meta_key = ?", object, lo.Uniq(objectIDs), key).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ObjectID] = append(out[row.ObjectID], row.Value)
	}
	return out, nil
}

func FindByMeta(tx *gorm.DB, object, key, value string) ([]uint, error) {
	var ids []uint
	err := tx.Model(&models.Meta{}).
		Where("object_type = ? AND meta_key = ? AND meta_value = ?", object, key, value).
		Order("object_id ASC").
		Pluck("object_id", &ids).Error
	return lo.Uniq(ids), err
}

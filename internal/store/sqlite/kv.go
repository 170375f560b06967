package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"keeper/internal/store/model"
)

type kvRepo struct {
	db *gorm.DB
}

func (r *kvRepo) Get(ctx context.Context, key string, dest any) (bool, error) {
	var m model.KVModel
	err := r.db.WithContext(ctx).Where("key = ?", key).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if dest == nil {
		return true, nil
	}
	if err := json.Unmarshal(m.Value, dest); err != nil {
		return true, fmt.Errorf("kv decode %q: %w", key, err)
	}
	return true, nil
}

func (r *kvRepo) Put(ctx context.Context, key string, value any) error {
	if key == "" {
		return fmt.Errorf("kv key cannot be empty")
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("kv encode %q: %w", key, err)
	}
	m := model.KVModel{
		Key:           key,
		Value:         raw,
		UpdatedAtUnix: time.Now().Unix(),
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			UpdateAll: true,
		}).
		Create(&m).Error
}

func (r *kvRepo) Delete(ctx context.Context, key string) error {
	return r.db.WithContext(ctx).Where("key = ?", key).Delete(&model.KVModel{}).Error
}

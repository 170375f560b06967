package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"keeper/internal/store/model"
	"keeper/internal/types"
)

type positionRepo struct {
	db *gorm.DB
}

func (r *positionRepo) Save(ctx context.Context, p *types.Position) error {
	if p == nil || p.ID == "" {
		return fmt.Errorf("position requires an id")
	}
	m := model.FromPosition(p)
	m.UpdatedAtUnix = time.Now().Unix()
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(m).Error
}

func (r *positionRepo) FindByID(ctx context.Context, id string) (*types.Position, error) {
	var m model.PositionModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p := m.ToPosition()
	return &p, nil
}

func (r *positionRepo) FindByOrderID(ctx context.Context, orderID string) (*types.Position, error) {
	var m model.PositionModel
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p := m.ToPosition()
	return &p, nil
}

func (r *positionRepo) ListByStatus(ctx context.Context, status types.PositionStatus) ([]types.Position, error) {
	var rows []model.PositionModel
	q := r.db.WithContext(ctx).Order("entry_time ASC")
	if status != "" {
		q = q.Where("status = ?", string(status))
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]types.Position, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToPosition())
	}
	return out, nil
}

func (r *positionRepo) CountByStatus(ctx context.Context, status types.PositionStatus) (int, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.PositionModel{}).
		Where("status = ?", string(status)).
		Count(&n).Error
	return int(n), err
}

func (r *positionRepo) CountOpenedSince(ctx context.Context, since time.Time) (int, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.PositionModel{}).
		Where("entry_time >= ?", since.Unix()).
		Count(&n).Error
	return int(n), err
}

func (r *positionRepo) SumRealizedLossSince(ctx context.Context, since time.Time) (float64, error) {
	var total float64
	err := r.db.WithContext(ctx).
		Model(&model.PositionModel{}).
		Where("status = ? AND closed_at >= ? AND pnl < 0", string(types.PositionClosed), since.Unix()).
		Select("COALESCE(SUM(-pnl), 0)").
		Scan(&total).Error
	return total, err
}

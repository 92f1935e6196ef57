package crosspost

import (
	"context"
	"fmt"
	"strconv"

	"git.solsynth.dev/hypernet/crosspost/pkg/internal/models"
	"github.com/samber/lo"
)

const (
	MetaDuplicateOf   = "_duplicate_of"
	MetaDuplicates    = "_duplicates"
	MetaHasDuplicates = "_has_duplicates"
)

// Relations reads and writes the original/duplicate links of topics and activities.
// Links are written once at fan-out time and never edited afterwards.
type Relations struct {
	meta MetaStore
}

func NewRelations(meta MetaStore) *Relations {
	return &Relations{meta: meta}
}

// LinkDuplicate records duplicate as a copy of original.
func (r *Relations) LinkDuplicate(ctx context.Context, original, duplicate uint) error {
	if original == 0 || duplicate == 0 || original == duplicate {
		return NewError(ErrCodeValidation, "invalid topic pair")
	}
	if _, nested, err := r.OriginalOf(ctx, original); err != nil {
		return err
	} else if nested {
		return ErrInvalidRelation
	}
	if _, linked, err := r.OriginalOf(ctx, duplicate); err != nil {
		return err
	} else if linked {
		return ErrInvalidRelation
	}
	if children, err := r.DuplicatesOf(ctx, duplicate); err != nil {
		return err
	} else if len(children) > 0 {
		return ErrInvalidRelation
	}

	if err := r.meta.AddMeta(ctx, models.MetaObjectTopic, duplicate, MetaDuplicateOf, formatID(original)); err != nil {
		return fmt.Errorf("unable to record original of topic %d: %v", duplicate, err)
	}
	if err := r.meta.AddMeta(ctx, models.MetaObjectTopic, original, MetaDuplicates, formatID(duplicate)); err != nil {
		return fmt.Errorf("unable to record duplicate of topic %d: %v", original, err)
	}
	return nil
}

// DuplicatesOf returns the copies of original in creation order.
func (r *Relations) DuplicatesOf(ctx context.Context, original uint) ([]uint, error) {
	values, err := r.meta.GetMeta(ctx, models.MetaObjectTopic, original, MetaDuplicates)
	if err != nil {
		return nil, err
	}
	return lo.Uniq(parseIDs(values)), nil
}

// OriginalOf reports the topic duplicate was copied from.
func (r *Relations) OriginalOf(ctx context.Context, duplicate uint) (uint, bool, error) {
	values, err := r.meta.GetMeta(ctx, models.MetaObjectTopic, duplicate, MetaDuplicateOf)
	if err != nil {
		return 0, false, err
	}
	ids := parseIDs(values)
	if len(ids) == 0 {
		return 0, false, nil
	}
	return ids[0], true, nil
}

// RelatedIDs lists every other member of the logical event id belongs to.
// For a duplicate that is its original followed by its siblings, for an original its duplicates.
func (r *Relations) RelatedIDs(ctx context.Context, id uint) ([]uint, error) {
	original, isDuplicate, err := r.OriginalOf(ctx, id)
	if err != nil {
		return nil, err
	}
	if !isDuplicate {
		return r.DuplicatesOf(ctx, id)
	}

	siblings, err := r.DuplicatesOf(ctx, original)
	if err != nil {
		return nil, err
	}
	related := append([]uint{original}, siblings...)
	return lo.Without(lo.Uniq(related), id), nil
}

// LinkActivity mirrors a topic link onto the feed entries narrating both topics.
func (r *Relations) LinkActivity(ctx context.Context, original, duplicate uint) error {
	if original == 0 || duplicate == 0 || original == duplicate {
		return NewError(ErrCodeValidation, "invalid activity pair")
	}
	if _, linked, err := r.ActivityOriginalOf(ctx, duplicate); err != nil {
		return err
	} else if linked {
		return ErrInvalidRelation
	}
	if err := r.MarkHasDuplicates(ctx, original); err != nil {
		return err
	}
	if err := r.meta.AddMeta(ctx, models.MetaObjectActivity, duplicate, MetaDuplicateOf, formatID(original)); err != nil {
		return fmt.Errorf("unable to record original of activity %d: %v", duplicate, err)
	}
	return nil
}

func (r *Relations) MarkHasDuplicates(ctx context.Context, activity uint) error {
	marked, err := r.HasDuplicates(ctx, activity)
	if err != nil || marked {
		return err
	}
	if err := r.meta.AddMeta(ctx, models.MetaObjectActivity, activity, MetaHasDuplicates, "1"); err != nil {
		return fmt.Errorf("unable to mark activity %d: %v", activity, err)
	}
	return nil
}

func (r *Relations) HasDuplicates(ctx context.Context, activity uint) (bool, error) {
	values, err := r.meta.GetMeta(ctx, models.MetaObjectActivity, activity, MetaHasDuplicates)
	if err != nil {
		return false, err
	}
	return lo.Contains(values, "1"), nil
}

func (r *Relations) ActivityOriginalOf(ctx context.Context, activity uint) (uint, bool, error) {
	values, err := r.meta.GetMeta(ctx, models.MetaObjectActivity, activity, MetaDuplicateOf)
	if err != nil {
		return 0, false, err
	}
	ids := parseIDs(values)
	if len(ids) == 0 {
		return 0, false, nil
	}
	return ids[0], true, nil
}

// ActivityOriginals maps each duplicate among activities to its original.
// Activities that are not duplicates are absent from the result.
func (r *Relations) ActivityOriginals(ctx context.Context, activities []uint) (map[uint]uint, error) {
	out := make(map[uint]uint)
	if len(activities) == 0 {
		return out, nil
	}
	values, err := r.meta.ListMeta(ctx, models.MetaObjectActivity, activities, MetaDuplicateOf)
	if err != nil {
		return nil, err
	}
	for id, raw := range values {
		if ids := parseIDs(raw); len(ids) > 0 {
			out[id] = ids[0]
		}
	}
	return out, nil
}

func (r *Relations) ActivityDuplicatesOf(ctx context.Context, original uint) ([]uint, error) {
	return r.meta.FindByMeta(ctx, models.MetaObjectActivity, MetaDuplicateOf, formatID(original))
}

func formatID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func parseIDs(values []string) []uint {
	return lo.FilterMap(values, func(item string, _ int) (uint, bool) {
		id, err := strconv.ParseUint(item, 10, 64)
		return uint(id), err == nil && id > 0
	})
}

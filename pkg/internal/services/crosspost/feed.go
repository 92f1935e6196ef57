package crosspost

import (
	"context"

	"git.solsynth.dev/hypernet/crosspost/pkg/internal/models"
	"github.com/samber/lo"
)

const DefaultBackfillBuffer = 10

// Deduplicator is a feed pipeline stage that shows one entry per logical event
// and backfills the page so its size is kept.
type Deduplicator struct {
	next      FeedSource
	relations *Relations
	buffer    int
}

func Deduplicate(next FeedSource, relations *Relations, buffer int) *Deduplicator {
	if buffer < 0 {
		buffer = DefaultBackfillBuffer
	}
	return &Deduplicator{next: next, relations: relations, buffer: buffer}
}

func (d *Deduplicator) Query(ctx context.Context, q FeedQuery) (FeedPage, error) {
	page, err := d.next.Query(ctx, q)
	if err != nil || q.GroupID != nil {
		return page, err
	}

	want := len(page.Activities)
	seen := append(append([]uint{}, q.Exclude...), activityIDs(page.Activities)...)
	visible, err := d.collapse(ctx, page.Activities)
	if err != nil {
		return page, err
	}
	removed := want - len(visible)

	for removed > 0 && len(visible) < want {
		backfill := q
		backfill.Exclude = seen
		backfill.Limit = removed + d.buffer

		more, err := d.next.Query(ctx, backfill)
		if err != nil {
			return page, err
		}
		if len(more.Activities) == 0 {
			break
		}
		page.Total += int64(len(more.Activities))
		seen = append(seen, activityIDs(more.Activities)...)

		merged := append(visible, more.Activities...)
		if visible, err = d.collapse(ctx, merged); err != nil {
			return page, err
		}
		removed = len(merged) - len(visible)

		if len(more.Activities) < backfill.Limit {
			break
		}
	}

	if len(visible) > want {
		visible = visible[:want]
	}
	page.Activities = visible
	return page, nil
}

// collapse hides every duplicate whose original is present, and every duplicate
// after the first one for an original that is absent.
func (d *Deduplicator) collapse(ctx context.Context, items []models.Activity) ([]models.Activity, error) {
	ids := activityIDs(items)
	originals, err := d.relations.ActivityOriginals(ctx, ids)
	if err != nil {
		return nil, err
	}
	present := lo.SliceToMap(ids, func(item uint) (uint, struct{}) {
		return item, struct{}{}
	})

	kept := make(map[uint]struct{})
	out := make([]models.Activity, 0, len(items))
	for _, item := range items {
		original, isDuplicate := originals[item.ID]
		if !isDuplicate {
			out = append(out, item)
			continue
		}
		if _, ok := present[original]; ok {
			continue
		}
		if _, ok := kept[original]; ok {
			continue
		}
		kept[original] = struct{}{}
		out = append(out, item)
	}
	return out, nil
}

func activityIDs(items []models.Activity) []uint {
	return lo.Map(items, func(item models.Activity, _ int) uint {
		return item.ID
	})
}

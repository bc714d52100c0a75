package tracker

import (
	"time"

	"github.com/havenlist/tracker-backend/internal/models"
)

// timeLayout is whole-second UTC with no zone suffix. The dashboard's
// date-range filters parse exactly this shape, so fractional seconds must
// never appear in stored timestamps.
const timeLayout = "2006-01-02T15:04:05"

func formatTime(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(timeLayout)
}

// RecordObservation computes the price-history update for one freshly
// observed price. It returns false (and an empty update) when the
// observation carries no signal: a zero price or a price equal to what is
// already stored. Status and time-on-market are the caller's business; this
// function only ever touches price, history and update_at.
//
// An empty stored history is first seeded with the pre-change price so the
// original asking price survives as entry zero; the seed is stamped with
// the record's insertion time when known, otherwise with now.
func RecordObservation(p *models.Property, observed float64, now time.Time) (models.PropertyUpdate, bool) {
	if observed == 0 || observed == p.Price {
		return models.PropertyUpdate{}, false
	}

	history := make([]models.PriceChange, 0, len(p.PriceChanges)+2)
	history = append(history, p.PriceChanges...)

	if len(history) == 0 {
		seededAt := now
		if !p.InsertedAt.IsZero() {
			seededAt = p.InsertedAt
		}
		history = append(history, models.PriceChange{
			Price:     p.Price,
			UpdatedAt: formatTime(seededAt),
		})
	}

	ts := formatTime(now)
	history = append(history, models.PriceChange{Price: observed, UpdatedAt: ts})

	price := observed
	return models.PropertyUpdate{
		Price:        &price,
		PriceChanges: history,
		UpdatedAt:    &ts,
	}, true
}

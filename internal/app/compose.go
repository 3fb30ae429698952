package app

import "impacttrip/internal/domain"

const promoEvery = 2

// DefaultLanes is the display order of the catalog lanes. Items whose section
// has no lane are not shown.
var DefaultLanes = []string{"nature", "social", "culture", "events", "crowd"}

var DefaultPromoGallery = []string{
	"assets/promo/promo-1.jpg",
	"assets/promo/promo-2.jpg",
	"assets/promo/promo-3.jpg",
}

// Compose filters items in catalog order, partitions them into lanes and
// interleaves a promo after every second item of a lane unless it would end
// the lane. Promo images rotate through gallery by the promo's ordinal in its
// lane. Every lane is returned, empty or not.
func Compose(items []domain.CatalogItem, f domain.FacetSelection, lanes, gallery []string) []domain.Lane {
	byLane := make(map[string][]*domain.CatalogItem, len(lanes))
	for _, l := range lanes {
		byLane[l] = nil
	}
	for i := range items {
		it := &items[i]
		if _, ok := byLane[it.Section]; !ok {
			continue
		}
		if Matches(*it, f) {
			byLane[it.Section] = append(byLane[it.Section], it)
		}
	}

	out := make([]domain.Lane, 0, len(lanes))
	for _, name := range lanes {
		out = append(out, domain.Lane{Name: name, Entries: interleave(byLane[name], gallery)})
	}
	return out
}

func interleave(items []*domain.CatalogItem, gallery []string) []domain.RenderEntry {
	entries := make([]domain.RenderEntry, 0, len(items)+len(items)/promoEvery)
	promos := 0
	for i, it := range items {
		cp := *it
		entries = append(entries, domain.RenderEntry{Kind: domain.EntryItem, Item: &cp})
		if (i+1)%promoEvery == 0 && i+1 < len(items) {
			e := domain.RenderEntry{Kind: domain.EntryPromo, PromoIndex: promos}
			if len(gallery) > 0 {
				e.PromoImage = gallery[promos%len(gallery)]
			}
			entries = append(entries, e)
			promos++
		}
	}
	return entries
}

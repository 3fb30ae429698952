package domain

const PlaceholderImage = "assets/sample/placeholder.jpg"

// CatalogItem is one opportunity from the catalog snapshot.
type CatalogItem struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Org       string   `json:"org,omitempty"`
	Section   string   `json:"section"`
	Duration  string   `json:"duration,omitempty"`
	Languages []string `json:"languages,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	Fee       *string  `json:"fee,omitempty"`
	MinAge    *int     `json:"minAge,omitempty"`
	Image     *string  `json:"image,omitempty"`
}

func (c CatalogItem) ImageOrPlaceholder() string {
	if c.Image == nil || *c.Image == "" {
		return PlaceholderImage
	}
	return *c.Image
}

// Hotel is an entry of the hotel side panel. AffiliateURL may carry the
// {CHECKIN}, {CHECKOUT} and {ADULTS} placeholders.
type Hotel struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Area          string  `json:"area,omitempty"`
	Thumb         string  `json:"thumb,omitempty"`
	Currency      string  `json:"currency,omitempty"`
	PricePerNight float64 `json:"pricePerNight"`
	AffiliateURL  string  `json:"affiliateUrl,omitempty"`
}

type EntryKind string

const (
	EntryItem  EntryKind = "item"
	EntryPromo EntryKind = "promo"
)

// RenderEntry is either an item reference or a synthetic promo.
type RenderEntry struct {
	Kind       EntryKind    `json:"kind"`
	Item       *CatalogItem `json:"item,omitempty"`
	PromoIndex int          `json:"promoIndex"`
	PromoImage string       `json:"promoImage,omitempty"`
}

type Lane struct {
	Name    string        `json:"name"`
	Entries []RenderEntry `json:"entries"`
}

// HotelCard is a hotel bound to the current criteria.
type HotelCard struct {
	Hotel   Hotel  `json:"hotel"`
	BookURL string `json:"bookUrl"`
}

type HotelPanel struct {
	DatesLabel string      `json:"datesLabel"`
	Cards      []HotelCard `json:"cards"`
}

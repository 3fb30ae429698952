package app

import (
	"sync"

	"impacttrip/internal/domain"
)

// Frame is what a session would currently show.
type Frame struct {
	Version    uint64                  `json:"version"`
	Lanes      []domain.Lane           `json:"lanes"`
	Hotels     domain.HotelPanel       `json:"hotels"`
	Validation *domain.ValidationError `json:"validation,omitempty"`
	Detail     *domain.CatalogItem     `json:"detail,omitempty"`
}

// FrameRecorder implements domain.Renderer by keeping the latest frame.
// Every call bumps the version.
type FrameRecorder struct {
	mu sync.RWMutex
	f  Frame
}

var _ domain.Renderer = (*FrameRecorder)(nil)

func NewFrameRecorder() *FrameRecorder {
	return &FrameRecorder{f: Frame{Lanes: []domain.Lane{}, Hotels: domain.HotelPanel{Cards: []domain.HotelCard{}}}}
}

func (r *FrameRecorder) RenderLanes(lanes []domain.Lane) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.f.Lanes = lanes
	r.f.Version++
}

func (r *FrameRecorder) RenderHotels(p domain.HotelPanel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.f.Hotels = p
	r.f.Version++
}

func (r *FrameRecorder) ShowValidation(err *domain.ValidationError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		cp := *err
		err = &cp
	}
	r.f.Validation = err
	r.f.Version++
}

func (r *FrameRecorder) OpenDetail(item domain.CatalogItem) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.f.Detail = &item
	r.f.Version++
}

func (r *FrameRecorder) Snapshot() Frame {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.f
}

func (r *FrameRecorder) Version() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.f.Version
}

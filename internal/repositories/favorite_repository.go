package repositories

import (
	"context"

	"github.com/anonto42/voxmarket/backend/internal/models"
	"github.com/anonto42/voxmarket/backend/internal/storage"
)

// FavoriteRepository defines the interface for favorites and project shortlists
type FavoriteRepository interface {
	// AddFavorite stores the favorite and reports false when it already existed.
	AddFavorite(ctx context.Context, fav models.Favorite) (bool, error)
	ListFavorites(ctx context.Context, clientID string) ([]models.Favorite, error)
	// AddShortlist stores the entry and reports false when it already existed.
	AddShortlist(ctx context.Context, entry models.Shortlist) (bool, error)
	ListShortlist(ctx context.Context, clientID, projectID string) ([]models.Shortlist, error)
}

type storeFavoriteRepository struct {
	favorites  *storage.Collection[models.Favorite]
	shortlists *storage.Collection[models.Shortlist]
}

func NewStoreFavoriteRepository(store *storage.Store) FavoriteRepository {
	return &storeFavoriteRepository{
		favorites:  storage.NewCollection[models.Favorite](store, storage.KeyGeneralFavorites),
		shortlists: storage.NewCollection[models.Shortlist](store, storage.KeyProjectShortlists),
	}
}

func (r *storeFavoriteRepository) AddFavorite(ctx context.Context, fav models.Favorite) (bool, error) {
	added := false
	err := r.favorites.Update(ctx, func(items []models.Favorite) ([]models.Favorite, error) {
		for _, f := range items {
			if f.ClientID == fav.ClientID && f.TalentID == fav.TalentID {
				return items, nil
			}
		}
		added = true
		return append(items, fav), nil
	})
	return added, err
}

func (r *storeFavoriteRepository) ListFavorites(ctx context.Context, clientID string) ([]models.Favorite, error) {
	items, err := r.favorites.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Favorite, 0)
	for _, f := range items {
		if f.ClientID == clientID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (r *storeFavoriteRepository) AddShortlist(ctx context.Context, entry models.Shortlist) (bool, error) {
	added := false
	err := r.shortlists.Update(ctx, func(items []models.Shortlist) ([]models.Shortlist, error) {
		for _, s := range items {
			if s.ClientID == entry.ClientID && s.TalentID == entry.TalentID && s.ProjectID == entry.ProjectID {
				return items, nil
			}
		}
		added = true
		return append(items, entry), nil
	})
	return added, err
}

func (r *storeFavoriteRepository) ListShortlist(ctx context.Context, clientID, projectID string) ([]models.Shortlist, error) {
	items, err := r.shortlists.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Shortlist, 0)
	for _, s := range items {
		if s.ClientID == clientID && (projectID == "" || s.ProjectID == projectID) {
			out = append(out, s)
		}
	}
	return out, nil
}

// Package geo exposes the read-only region and city catalogue.
package geo

import (
	"context"
	"errors"

	"nutriadmin.org/internal/paging"
	"nutriadmin.org/internal/store/pg"
)

var ErrNotFound = errors.New("geo: not found")

const (
	procRegionGetAll  = "region_get_all"
	procRegionCount   = "region_count"
	procRegionGetByID = "region_get_by_id"
	procCityGetAll    = "city_get_all"
	procCityCount     = "city_count"
	procCityGetByID   = "city_get_by_id"
)

type Region struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

type City struct {
	ID         int64  `json:"id" db:"id"`
	Name       string `json:"name" db:"name"`
	RegionID   int64  `json:"region_id" db:"region_id"`
	RegionName string `json:"region_name" db:"region_name"`
}

type Repository interface {
	Regions(ctx context.Context, q paging.Query) (paging.Page[Region], error)
	RegionByID(ctx context.Context, id int64) (Region, error)
	// Cities lists cities, optionally restricted to one region (regionID > 0).
	Cities(ctx context.Context, q paging.Query, regionID int64) (paging.Page[City], error)
	CityByID(ctx context.Context, id int64) (City, error)
}

type PGRepository struct {
	db *pg.Store
}

var _ Repository = (*PGRepository)(nil)

func NewPGRepository(db *pg.Store) *PGRepository {
	return &PGRepository{db: db}
}

func (r *PGRepository) Regions(ctx context.Context, q paging.Query) (paging.Page[Region], error) {
	q = q.Normalize()
	regions := []Region{}
	if err := r.db.Select(ctx, &regions, procRegionGetAll, q.Take, q.Skip, q.Name, q.Alls); err != nil {
		return paging.Page[Region]{}, err
	}
	total, err := r.db.Scalar(ctx, procRegionCount, q.Name)
	if err != nil {
		return paging.Page[Region]{}, err
	}
	return paging.Page[Region]{Data: regions, Count: total}, nil
}

func (r *PGRepository) RegionByID(ctx context.Context, id int64) (Region, error) {
	var region Region
	if err := r.db.Get(ctx, &region, procRegionGetByID, id); err != nil {
		return Region{}, notFound(err)
	}
	return region, nil
}

func (r *PGRepository) Cities(ctx context.Context, q paging.Query, regionID int64) (paging.Page[City], error) {
	q = q.Normalize()
	cities := []City{}
	if err := r.db.Select(ctx, &cities, procCityGetAll, q.Take, q.Skip, q.Name, regionID, q.Alls); err != nil {
		return paging.Page[City]{}, err
	}
	total, err := r.db.Scalar(ctx, procCityCount, q.Name, regionID)
	if err != nil {
		return paging.Page[City]{}, err
	}
	return paging.Page[City]{Data: cities, Count: total}, nil
}

func (r *PGRepository) CityByID(ctx context.Context, id int64) (City, error) {
	var city City
	if err := r.db.Get(ctx, &city, procCityGetByID, id); err != nil {
		return City{}, notFound(err)
	}
	return city, nil
}

func notFound(err error) error {
	if errors.Is(err, pg.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

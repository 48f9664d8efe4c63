package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
)

func (a *API) geoRoutes(root *mux.Router) {
	r := root.PathPrefix("/geo").Subrouter()
	r.HandleFunc("/get-all-regions", a.listRegions).Methods(http.MethodGet)
	r.HandleFunc("/get-region-by-id/{id}", a.getRegion).Methods(http.MethodGet)
	r.HandleFunc("/get-all-cities", a.listCities).Methods(http.MethodGet)
	r.HandleFunc("/get-city-by-id/{id}", a.getCity).Methods(http.MethodGet)
}

func (a *API) listRegions(w http.ResponseWriter, r *http.Request) {
	if a.svc.Geo == nil {
		handleError(w, r, errUnavailable)
		return
	}
	q, ok := query(w, r)
	if !ok {
		return
	}
	page, err := a.svc.Geo.Regions(r.Context(), q.Paging())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (a *API) getRegion(w http.ResponseWriter, r *http.Request) {
	if a.svc.Geo == nil {
		handleError(w, r, errUnavailable)
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	region, err := a.svc.Geo.RegionByID(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, region)
}

func (a *API) listCities(w http.ResponseWriter, r *http.Request) {
	if a.svc.Geo == nil {
		handleError(w, r, errUnavailable)
		return
	}
	q, ok := query(w, r)
	if !ok {
		return
	}
	page, err := a.svc.Geo.Cities(r.Context(), q.Paging(), q.RegionID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (a *API) getCity(w http.ResponseWriter, r *http.Request) {
	if a.svc.Geo == nil {
		handleError(w, r, errUnavailable)
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	city, err := a.svc.Geo.CityByID(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, city)
}

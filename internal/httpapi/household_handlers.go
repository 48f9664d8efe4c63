package httpapi

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"nutriadmin.org/internal/household"
)

type householdView struct {
	household.Household
	AnnualIncome decimal.Decimal `json:"annual_income"`
}

func (a *API) householdRoutes(root *mux.Router) {
	h := root.PathPrefix("/household").Subrouter()
	h.HandleFunc("/get-household-by-id/{id}", a.getHousehold).Methods(http.MethodGet)
	h.HandleFunc("/get-all-households-from-db", a.listHouseholds).Methods(http.MethodGet)
	h.HandleFunc("/insert-household", a.insertHousehold).Methods(http.MethodPost)
	h.HandleFunc("/update-household", a.updateHousehold).Methods(http.MethodPut)
	h.HandleFunc("/delete-household/{id}", a.deleteHousehold).Methods(http.MethodDelete)

	m := root.PathPrefix("/household-member").Subrouter()
	m.HandleFunc("/get-household-member-by-id/{id}", a.getMember).Methods(http.MethodGet)
	m.HandleFunc("/get-all-household-members-from-db", a.listMembers).Methods(http.MethodGet)
	m.HandleFunc("/insert-household-member", a.insertMember).Methods(http.MethodPost)
	m.HandleFunc("/update-household-member", a.updateMember).Methods(http.MethodPut)
	m.HandleFunc("/delete-household-member/{id}", a.deleteMember).Methods(http.MethodDelete)

	i := root.PathPrefix("/household-member-income").Subrouter()
	i.HandleFunc("/get-all-household-member-incomes-from-db", a.listIncomes).Methods(http.MethodGet)
	i.HandleFunc("/insert-household-member-income", a.insertIncome).Methods(http.MethodPost)
	i.HandleFunc("/update-household-member-income", a.updateIncome).Methods(http.MethodPut)
	i.HandleFunc("/delete-household-member-income/{id}", a.deleteIncome).Methods(http.MethodDelete)
}

func (a *API) households(w http.ResponseWriter, r *http.Request) (household.Repository, bool) {
	if a.svc.Households == nil {
		handleError(w, r, errUnavailable)
		return nil, false
	}
	return a.svc.Households, true
}

// householdAgency resolves the owning agency of a household.
func householdAgency(ctx context.Context, repo household.Repository, householdID int64) (int64, error) {
	h, err := repo.GetByID(ctx, householdID)
	if err != nil {
		return 0, err
	}
	return h.AgencyID, nil
}

// memberScope checks the caller may touch the household the member belongs to.
func (a *API) memberScope(w http.ResponseWriter, r *http.Request, repo household.Repository, memberID int64) (household.Member, bool) {
	m, err := repo.MemberByID(r.Context(), memberID)
	if err != nil {
		handleError(w, r, err)
		return household.Member{}, false
	}
	return m, a.householdScope(w, r, repo, m.HouseholdID)
}

func (a *API) householdScope(w http.ResponseWriter, r *http.Request, repo household.Repository, householdID int64) bool {
	if isAdmin(r) {
		return true
	}
	agencyID, err := householdAgency(r.Context(), repo, householdID)
	if err != nil {
		handleError(w, r, err)
		return false
	}
	return a.requireAgency(w, r, agencyID)
}

func (a *API) getHousehold(w http.ResponseWriter, r *http.Request) {
	repo, ok := a.households(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	h, err := repo.GetByID(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if !a.requireAgency(w, r, h.AgencyID) {
		return
	}
	writeJSON(w, http.StatusOK, householdView{Household: h, AnnualIncome: h.AnnualIncome()})
}

func (a *API) listHouseholds(w http.ResponseWriter, r *http.Request) {
	repo, ok := a.households(w, r)
	if !ok {
		return
	}
	q, ok := query(w, r)
	if !ok {
		return
	}
	if !isAdmin(r) {
		q.AgencyID = callerAgency(r)
		if !a.requireAgency(w, r, q.AgencyID) {
			return
		}
	}
	page, err := repo.GetAll(r.Context(), household.Filter{Query: q.Paging(), AgencyID: q.AgencyID})
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (a *API) insertHousehold(w http.ResponseWriter, r *http.Request) {
	repo, ok := a.households(w, r)
	if !ok {
		return
	}
	var h household.Household
	if !decodeValid(w, r, &h) {
		return
	}
	if !a.requireAgency(w, r, h.AgencyID) {
		return
	}
	h.ID = 0
	id, err := repo.Insert(r.Context(), h)
	if err != nil {
		handleError(w, r, err)
		return
	}
	a.audit(r, "household.insert", "household", idString(id), map[string]string{
		"agency_id": idString(h.AgencyID),
		"members":   idString(int64(len(h.Members))),
	})
	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (a *API) updateHousehold(w http.ResponseWriter, r *http.Request) {
	repo, ok := a.households(w, r)
	if !ok {
		return
	}
	var h household.Household
	if !decodeValid(w, r, &h) {
		return
	}
	if !a.householdScope(w, r, repo, h.ID) || !a.requireAgency(w, r, h.AgencyID) {
		return
	}
	updated, err := repo.Update(r.Context(), h)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if !updated {
		writeError(w, r, http.StatusNotFound, "household not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"updated": true})
}

func (a *API) deleteHousehold(w http.ResponseWriter, r *http.Request) {
	repo, ok := a.households(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok || !a.householdScope(w, r, repo, id) {
		return
	}
	deleted, err := repo.Delete(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if !deleted {
		writeError(w, r, http.StatusNotFound, "household not found")
		return
	}
	a.audit(r, "household.delete", "household", idString(id), nil)
	w.WriteHeader(http.StatusNoContent)
}

// --- members ---

func (a *API) getMember(w http.ResponseWriter, r *http.Request) {
	repo, ok := a.households(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	m, ok := a.memberScope(w, r, repo, id)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (a *API) listMembers(w http.ResponseWriter, r *http.Request) {
	repo, ok := a.households(w, r)
	if !ok {
		return
	}
	q, ok := query(w, r)
	if !ok {
		return
	}
	if q.HouseholdID <= 0 {
		writeError(w, r, http.StatusBadRequest, "householdId is required")
		return
	}
	if !a.householdScope(w, r, repo, q.HouseholdID) {
		return
	}
	list, err := repo.MembersByHousehold(r.Context(), q.HouseholdID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) insertMember(w http.ResponseWriter, r *http.Request) {
	repo, ok := a.households(w, r)
	if !ok {
		return
	}
	var m household.Member
	if !decodeValid(w, r, &m) {
		return
	}
	if m.HouseholdID <= 0 {
		writeError(w, r, http.StatusBadRequest, "household_id is required")
		return
	}
	if !a.householdScope(w, r, repo, m.HouseholdID) {
		return
	}
	m.ID = 0
	id, err := repo.InsertMember(r.Context(), m)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (a *API) updateMember(w http.ResponseWriter, r *http.Request) {
	repo, ok := a.households(w, r)
	if !ok {
		return
	}
	var m household.Member
	if !decodeValid(w, r, &m) {
		return
	}
	current, ok := a.memberScope(w, r, repo, m.ID)
	if !ok {
		return
	}
	m.HouseholdID = current.HouseholdID
	updated, err := repo.UpdateMember(r.Context(), m)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if !updated {
		writeError(w, r, http.StatusNotFound, "household member not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"updated": true})
}

func (a *API) deleteMember(w http.ResponseWriter, r *http.Request) {
	repo, ok := a.households(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if _, ok := a.memberScope(w, r, repo, id); !ok {
		return
	}
	if _, err := repo.DeleteMember(r.Context(), id); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- incomes ---

func (a *API) listIncomes(w http.ResponseWriter, r *http.Request) {
	repo, ok := a.households(w, r)
	if !ok {
		return
	}
	q, ok := query(w, r)
	if !ok {
		return
	}
	if q.MemberID <= 0 {
		writeError(w, r, http.StatusBadRequest, "memberId is required")
		return
	}
	if _, ok := a.memberScope(w, r, repo, q.MemberID); !ok {
		return
	}
	list, err := repo.IncomesByMember(r.Context(), q.MemberID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) insertIncome(w http.ResponseWriter, r *http.Request) {
	repo, ok := a.households(w, r)
	if !ok {
		return
	}
	var inc household.Income
	if !decodeValid(w, r, &inc) {
		return
	}
	if inc.MemberID <= 0 {
		writeError(w, r, http.StatusBadRequest, "member_id is required")
		return
	}
	if _, ok := a.memberScope(w, r, repo, inc.MemberID); !ok {
		return
	}
	inc.ID = 0
	id, err := repo.InsertIncome(r.Context(), inc)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (a *API) updateIncome(w http.ResponseWriter, r *http.Request) {
	repo, ok := a.households(w, r)
	if !ok {
		return
	}
	var inc household.Income
	if !decodeValid(w, r, &inc) {
		return
	}
	if inc.ID <= 0 || inc.MemberID <= 0 {
		writeError(w, r, http.StatusBadRequest, "id and member_id are required")
		return
	}
	if _, ok := a.memberScope(w, r, repo, inc.MemberID); !ok {
		return
	}
	updated, err := repo.UpdateIncome(r.Context(), inc)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if !updated {
		writeError(w, r, http.StatusNotFound, "income not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"updated": true})
}

// deleteIncome requires non-administrators to pass the memberId the income belongs to.
func (a *API) deleteIncome(w http.ResponseWriter, r *http.Request) {
	repo, ok := a.households(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if !isAdmin(r) {
		q, ok := query(w, r)
		if !ok {
			return
		}
		if q.MemberID <= 0 {
			writeError(w, r, http.StatusBadRequest, "memberId is required")
			return
		}
		incomes, err := repo.IncomesByMember(r.Context(), q.MemberID)
		if err != nil {
			handleError(w, r, err)
			return
		}
		if !containsIncome(incomes, id) {
			writeError(w, r, http.StatusNotFound, "income not found")
			return
		}
		if _, ok := a.memberScope(w, r, repo, q.MemberID); !ok {
			return
		}
	}
	deleted, err := repo.DeleteIncome(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if !deleted {
		writeError(w, r, http.StatusNotFound, "income not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func containsIncome(list []household.Income, id int64) bool {
	for _, inc := range list {
		if inc.ID == id {
			return true
		}
	}
	return false
}

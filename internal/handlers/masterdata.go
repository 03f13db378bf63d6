package handlers

import (
	"net/http"
)

// listSuppliers returns the cached supplier master data for the review
// picker. Disabled rows are included; the dashboard greys them out.
func (r *Router) listSuppliers(w http.ResponseWriter, req *http.Request) {
	suppliers, err := r.store.Suppliers(req.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, suppliers)
}

// listItems returns the cached item master data.
func (r *Router) listItems(w http.ResponseWriter, req *http.Request) {
	items, err := r.store.Items(req.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, items)
}

// triggerSync forces a master-data sync cycle outside the regular interval.
func (r *Router) triggerSync(w http.ResponseWriter, req *http.Request) {
	if r.odoo == nil || !r.odoo.Enabled() {
		respondError(w, http.StatusServiceUnavailable, "No ERP endpoint is configured")
		return
	}
	if err := r.odoo.TriggerSync(); err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "sync started"})
}

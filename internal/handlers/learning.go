package handlers

import (
	"net/http"
)

// Learned-rule administration. Aliases and mappings are created by the
// learning writer; the API only lists and deletes them, e.g. when a wrong
// confirmation taught the matcher a bad rule.

func (r *Router) listSupplierAliases(w http.ResponseWriter, req *http.Request) {
	aliases, err := r.store.SupplierAliases(req.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, aliases)
}

func (r *Router) deleteSupplierAlias(w http.ResponseWriter, req *http.Request) {
	id, ok := pathID(w, req, "id")
	if !ok {
		return
	}
	if err := r.store.DeleteSupplierAlias(req.Context(), id); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (r *Router) listItemAliases(w http.ResponseWriter, req *http.Request) {
	aliases, err := r.store.ItemAliases(req.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, aliases)
}

func (r *Router) deleteItemAlias(w http.ResponseWriter, req *http.Request) {
	id, ok := pathID(w, req, "id")
	if !ok {
		return
	}
	if err := r.store.DeleteItemAlias(req.Context(), id); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (r *Router) listServiceMappings(w http.ResponseWriter, req *http.Request) {
	mappings, err := r.store.ServiceMappings(req.Context(), req.URL.Query().Get("company"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, mappings)
}

func (r *Router) deleteServiceMapping(w http.ResponseWriter, req *http.Request) {
	id, ok := pathID(w, req, "id")
	if !ok {
		return
	}
	if err := r.store.DeleteServiceMapping(req.Context(), id); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

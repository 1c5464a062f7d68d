package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/xraph/recur"
	"github.com/xraph/recur/schedule"
	"github.com/xraph/recur/types"
)

// AddTenantRequest is the body of POST /tenants.
type AddTenantRequest struct {
	Email string `json:"email"`
}

// AddScheduleRequest is the body of POST /schedules. Amount is in whole
// units; Deposit is in base units.
type AddScheduleRequest struct {
	Count            types.Amount `json:"count"`
	Amount           types.Amount `json:"amount"`
	RecipientAccount string       `json:"recipient_account"`
	RecipientEmail   string       `json:"recipient_email"`
	Deposit          types.Amount `json:"deposit"`
}

// FundRequest is the body of POST /accounts/{account}/funds, in base units.
type FundRequest struct {
	Amount types.Amount `json:"amount"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Store().Ping(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) addTenant(w http.ResponseWriter, r *http.Request) {
	var body AddTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "bad request body")
		return
	}

	tenantID, err := s.engine.AddTenant(r.Context(), Caller(r.Context()), body.Email)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"tenant_id": tenantID})
}

func (s *Server) addSchedule(w http.ResponseWriter, r *http.Request) {
	var body AddScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "bad request body")
		return
	}

	scheduleID, err := s.engine.AddTenantExecutable(r.Context(), Caller(r.Context()), recur.ScheduleInput{
		Count:            body.Count,
		Amount:           body.Amount,
		RecipientAccount: body.RecipientAccount,
		RecipientEmail:   body.RecipientEmail,
		Deposit:          body.Deposit,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"schedule_id": scheduleID})
}

func (s *Server) getSchedule(w http.ResponseWriter, r *http.Request) {
	sch, err := s.engine.GetSchedule(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sch)
}

func (s *Server) cancelSchedule(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.CancelExecutableEarly(r.Context(), Caller(r.Context()), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) triggerSchedule(w http.ResponseWriter, r *http.Request) {
	h, err := s.engine.TriggerTenantExecutable(r.Context(), Caller(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

func (s *Server) fundAccount(w http.ResponseWriter, r *http.Request) {
	caller := Caller(r.Context())
	if invoker := s.engine.TrustedInvoker(); invoker == "" || caller != invoker {
		s.fail(w, r, recur.ErrUnauthorized)
		return
	}

	var body FundRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "bad request body")
		return
	}

	account := chi.URLParam(r, "account")
	if err := s.funder.Fund(account, body.Amount); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Info("account funded",
		"account", account,
		"amount", body.Amount.String(),
		"request_id", RequestID(r.Context()),
	)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getEmail(w http.ResponseWriter, r *http.Request) {
	email, err := s.engine.GetEmailForAccount(r.Context(), chi.URLParam(r, "account"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"email": email})
}

func (s *Server) getTenantID(w http.ResponseWriter, r *http.Request) {
	tenantID, err := s.engine.GetTenantIDForAccount(r.Context(), chi.URLParam(r, "account"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"tenant_id": tenantID})
}

func (s *Server) listAccountSchedules(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := schedule.ListOpts{Recipient: q.Get("recipient")}

	var err error
	if v := q.Get("limit"); v != "" {
		if opts.Limit, err = strconv.Atoi(v); err != nil || opts.Limit < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
	}
	if v := q.Get("offset"); v != "" {
		if opts.Offset, err = strconv.Atoi(v); err != nil || opts.Offset < 0 {
			writeError(w, http.StatusBadRequest, "invalid offset")
			return
		}
	}

	list, err := s.engine.ListAccountSchedules(r.Context(), chi.URLParam(r, "account"), opts)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": list})
}

package http

import (
	"errors"
	"net/http"
	"sort"

	"github.com/shopspring/decimal"

	"spendsync/internal/core"
	"spendsync/internal/engine"
	applog "spendsync/internal/log"
	"spendsync/internal/messaging/twilio"
)

const msgTemporaryFailure = "Sorry, something went wrong on our side. Please try again in a minute."

func (s *Server) handleSMS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	if s.validator != nil && !s.validator.Validate(r.URL.Path, r.PostForm, r.Header.Get(twilio.SignatureHeader)) {
		applog.FromContext(ctx).WarnContext(ctx, "Rejected unsigned SMS webhook", applog.FieldErrorType, applog.ErrorTypeAuth)
		http.Error(w, "invalid signature", http.StatusForbidden)
		return
	}

	from := sanitizePhone(r.PostForm.Get("From"))
	if from == "" {
		http.Error(w, "missing sender", http.StatusBadRequest)
		return
	}
	body := r.PostForm.Get("Body")

	reply, err := s.engine.HandleMessage(ctx, from, body)
	if err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Failed to handle inbound message", applog.FieldPhone, from, applog.FieldError, err)
		reply = msgTemporaryFailure
	}
	writeTwiML(w, reply)
}

type providerWebhook struct {
	WebhookType string `json:"webhook_type"`
	WebhookCode string `json:"webhook_code"`
	ItemID      string `json:"item_id"`
	Error       *struct {
		ErrorCode    string `json:"error_code"`
		ErrorMessage string `json:"error_message"`
	} `json:"error"`
}

func (s *Server) handleProviderWebhook(w http.ResponseWriter, r *http.Request) {
	var req providerWebhook
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	hook := engine.Webhook{Type: req.WebhookType, Code: req.WebhookCode, ItemID: req.ItemID}
	if req.Error != nil {
		hook.Error = req.Error.ErrorCode
	}
	if err := s.engine.HandleWebhook(r.Context(), hook); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to handle provider webhook",
			applog.FieldItemID, req.ItemID, applog.FieldError, err)
		writeError(w, http.StatusInternalServerError, "webhook not processed")
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "OK"})
}

type phoneRequest struct {
	PhoneNumber string `json:"phone_number"`
}

type linkTokenResponse struct {
	LinkToken string `json:"link_token"`
}

func (s *Server) handleCreateLinkToken(w http.ResponseWriter, r *http.Request) {
	var req phoneRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	phone := sanitizePhone(req.PhoneNumber)
	if phone == "" {
		writeError(w, http.StatusBadRequest, "phone_number is required")
		return
	}
	token, err := s.engine.CreateLinkToken(r.Context(), phone)
	if err != nil {
		s.engineError(w, r, "create link token", err)
		return
	}
	writeJSON(w, http.StatusOK, linkTokenResponse{LinkToken: token})
}

type connectBankRequest struct {
	PhoneNumber string `json:"phone_number"`
	PublicToken string `json:"public_token"`
}

func (s *Server) handleConnectBank(w http.ResponseWriter, r *http.Request) {
	var req connectBankRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	phone := sanitizePhone(req.PhoneNumber)
	if phone == "" || req.PublicToken == "" {
		writeError(w, http.StatusBadRequest, "phone_number and public_token are required")
		return
	}
	if err := s.engine.ConnectBank(r.Context(), phone, req.PublicToken); err != nil {
		s.engineError(w, r, "connect bank", err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Bank account connected successfully"})
}

type budgetResponse struct {
	PhoneNumber   string            `json:"phone_number"`
	Month         string            `json:"month,omitempty"`
	Budgets       map[string]string `json:"budgets"`
	MonthlyTotals map[string]string `json:"monthly_totals"`
}

func budgetResponseOf(view engine.BudgetView) budgetResponse {
	resp := budgetResponse{
		PhoneNumber:   view.Phone,
		Budgets:       make(map[string]string),
		MonthlyTotals: make(map[string]string),
	}
	if !view.Month.IsZero() {
		resp.Month = view.Month.String()
	}
	for cat, entry := range view.Entries {
		if entry.Limit.IsPositive() {
			resp.Budgets[cat.String()] = entry.Limit.StringFixed(2)
		}
		if !entry.Spent.IsZero() {
			resp.MonthlyTotals[cat.String()] = entry.Spent.StringFixed(2)
		}
	}
	return resp
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	phone := sanitizePhone(r.URL.Query().Get("phone_number"))
	if phone == "" {
		writeError(w, http.StatusBadRequest, "phone_number is required")
		return
	}
	view, err := s.engine.Budget(r.Context(), phone)
	if err != nil {
		s.engineError(w, r, "get budget", err)
		return
	}
	writeJSON(w, http.StatusOK, budgetResponseOf(view))
}

type updateBudgetRequest struct {
	PhoneNumber string                     `json:"phone_number"`
	Budgets     map[string]decimal.Decimal `json:"budgets"`
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	var req updateBudgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	phone := sanitizePhone(req.PhoneNumber)
	if phone == "" || len(req.Budgets) == 0 {
		writeError(w, http.StatusBadRequest, "phone_number and budgets are required")
		return
	}

	names := make([]string, 0, len(req.Budgets))
	for name := range req.Budgets {
		names = append(names, name)
	}
	sort.Strings(names)

	limits := make(map[core.Category]decimal.Decimal, len(req.Budgets))
	for _, name := range names {
		cat, err := core.ParseMember(name)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		limits[cat] = req.Budgets[name]
	}

	view, err := s.engine.SetLimits(r.Context(), phone, limits)
	if err != nil {
		s.engineError(w, r, "update budget", err)
		return
	}
	writeJSON(w, http.StatusOK, budgetResponseOf(view))
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	phone := sanitizePhone(r.URL.Query().Get("phone_number"))
	if phone == "" && r.ContentLength != 0 {
		var req phoneRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		phone = sanitizePhone(req.PhoneNumber)
	}
	if phone == "" {
		writeError(w, http.StatusBadRequest, "phone_number is required")
		return
	}
	if err := s.engine.DeleteUser(r.Context(), phone); err != nil {
		s.engineError(w, r, "delete user", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// engineError maps engine sentinels to status codes and logs the rest.
func (s *Server) engineError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, engine.ErrUnknownUser):
		writeError(w, http.StatusNotFound, "unknown user")
	case errors.Is(err, engine.ErrInvalidLimit):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, engine.ErrLinkUnavailable):
		writeError(w, http.StatusServiceUnavailable, "bank linking is not configured")
	default:
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed", applog.FieldOperation, op, applog.FieldError, err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/madiallo/banque-backoffice/internal/apperrors"
	"github.com/madiallo/banque-backoffice/internal/clock"
	"github.com/madiallo/banque-backoffice/internal/models"
	"github.com/madiallo/banque-backoffice/internal/service"
	"go.uber.org/zap"
)

// Handler is for handling api requests
type Handler struct {
	accounts     *service.AccountService
	transactions *service.TransactionService
	lifecycle    *service.LifecycleService
	clock        clock.Clock
	logger       *zap.Logger
}

func NewHandler(accounts *service.AccountService, transactions *service.TransactionService, lifecycle *service.LifecycleService, clk clock.Clock, logger *zap.Logger) *Handler {
	return &Handler{
		accounts:     accounts,
		transactions: transactions,
		lifecycle:    lifecycle,
		clock:        clk,
		logger:       logger,
	}
}

// actorFrom reads the verified caller identity from the request.
// Token verification is owned by the gateway in front of this service;
// these headers carry its result. Absent headers mean an anonymous
// client actor, which fails every role or ownership check.
func actorFrom(r *http.Request) models.Actor {
	role := models.Role(r.Header.Get("X-Actor-Role"))
	if role != models.RoleAdmin {
		role = models.RoleClient
	}
	return models.Actor{
		ID:   r.Header.Get("X-Actor-Id"),
		Role: role,
	}
}

// account opening
func (h *Handler) OpenAccount(w http.ResponseWriter, r *http.Request) {
	var req models.OpenAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperrors.NewValidation("invalid request payload"))
		return
	}

	account, err := h.accounts.Open(r.Context(), actorFrom(r), req)
	if err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, http.StatusCreated, models.NewAccountResponse(account), "Compte créé avec succès")
}

// account retrieval by id or number
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.accounts.Get(r.Context(), actorFrom(r), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, models.NewAccountResponse(account), "Détail du compte récupéré")
}

// open-account listing with optional type filter and pagination
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	filter := models.AccountFilter{
		Type:   models.AccountType(r.URL.Query().Get("type")),
		Limit:  parseIntDefault(r.URL.Query().Get("limit"), 20),
		Offset: parseIntDefault(r.URL.Query().Get("offset"), 0),
	}

	accounts, err := h.accounts.List(r.Context(), actorFrom(r), filter)
	if err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, accountResponses(accounts), "Liste récupérée avec succès")
}

// soft close
func (h *Handler) CloseAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.accounts.Close(r.Context(), actorFrom(r), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, models.NewAccountResponse(account), "Compte fermé avec succès")
}

// sets a blocking window on a savings account
func (h *Handler) BlockAccount(w http.ResponseWriter, r *http.Request) {
	var req models.BlockAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperrors.NewValidation("invalid request payload"))
		return
	}

	account, err := h.accounts.Block(r.Context(), actorFrom(r), mux.Vars(r)["id"], req)
	if err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, models.NewAccountResponse(account), "Données de blocage enregistrées")
}

// clears the blocking window
func (h *Handler) UnblockAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.accounts.Unblock(r.Context(), actorFrom(r), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, models.NewAccountResponse(account), "Compte débloqué avec succès")
}

// manual archive flag flip
func (h *Handler) ArchiveAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.accounts.Archive(r.Context(), actorFrom(r), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, models.NewAccountResponse(account), "Compte archivé avec succès")
}

func (h *Handler) UnarchiveAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.accounts.Unarchive(r.Context(), actorFrom(r), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, models.NewAccountResponse(account), "Compte désarchivé avec succès")
}

// archived savings accounts (admin only)
func (h *Handler) ListArchivedAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accounts.ListArchived(r.Context(), actorFrom(r))
	if err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, accountResponses(accounts), "Comptes archivés récupérés")
}

// handles deposits
func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req models.TransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperrors.NewValidation("invalid request payload"))
		return
	}

	transaction, err := h.transactions.Deposit(r.Context(), actorFrom(r), req)
	if err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, http.StatusCreated, models.NewTransactionResponse(transaction), "Dépôt effectué")
}

// handles withdrawals
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req models.TransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperrors.NewValidation("invalid request payload"))
		return
	}

	transaction, err := h.transactions.Withdraw(r.Context(), actorFrom(r), req)
	if err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, http.StatusCreated, models.NewTransactionResponse(transaction), "Retrait effectué")
}

// handles ledger history retrieval, newest first
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	transactions, err := h.transactions.ListByAccount(r.Context(), actorFrom(r), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, err)
		return
	}

	response := make([]models.TransactionResponse, 0, len(transactions))
	for _, t := range transactions {
		response = append(response, models.NewTransactionResponse(t))
	}
	respondSuccess(w, http.StatusOK, response, "Transactions récupérées")
}

// manual trigger for the weekly archival procedure (admin only)
func (h *Handler) ArchiveWeek(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	if !actor.IsAdmin() {
		respondError(w, apperrors.NewForbidden("only admins may trigger archival"))
		return
	}

	count, err := h.lifecycle.ArchiveWeek(r.Context(), h.clock.Now())
	if err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]int{"archived": count}, "Transactions archivées")
}

// lists one weekly archive partition
func (h *Handler) ListArchivedWeek(w http.ResponseWriter, r *http.Request) {
	archived, err := h.lifecycle.ListArchivedWeek(r.Context(), mux.Vars(r)["weekId"])
	if err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, archived, "Transactions archivées récupérées")
}

// handles health check
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// sets up the API routes
func SetupRoutes(r *mux.Router, accounts *service.AccountService, transactions *service.TransactionService, lifecycle *service.LifecycleService, clk clock.Clock, logger *zap.Logger) {
	h := NewHandler(accounts, transactions, lifecycle, clk, logger)

	r.HandleFunc("/health", h.HealthCheck).Methods("GET")

	v1 := r.PathPrefix("/api/v1").Subrouter()

	// Account routes
	v1.HandleFunc("/accounts", h.OpenAccount).Methods("POST")
	v1.HandleFunc("/accounts", h.ListAccounts).Methods("GET")
	v1.HandleFunc("/accounts/archived", h.ListArchivedAccounts).Methods("GET")
	v1.HandleFunc("/accounts/{id}", h.GetAccount).Methods("GET")
	v1.HandleFunc("/accounts/{id}", h.CloseAccount).Methods("DELETE")
	v1.HandleFunc("/accounts/{id}/block", h.BlockAccount).Methods("POST")
	v1.HandleFunc("/accounts/{id}/unblock", h.UnblockAccount).Methods("POST")
	v1.HandleFunc("/accounts/{id}/archive", h.ArchiveAccount).Methods("POST")
	v1.HandleFunc("/accounts/{id}/unarchive", h.UnarchiveAccount).Methods("POST")
	v1.HandleFunc("/accounts/{id}/transactions", h.ListTransactions).Methods("GET")

	// Transaction routes
	v1.HandleFunc("/transactions/deposit", h.Deposit).Methods("POST")
	v1.HandleFunc("/transactions/withdraw", h.Withdraw).Methods("POST")
	v1.HandleFunc("/transactions/archive-week", h.ArchiveWeek).Methods("POST")

	// Archive routes
	v1.HandleFunc("/archives/week/{weekId}", h.ListArchivedWeek).Methods("GET")
}

func accountResponses(accounts []*models.Account) []models.AccountResponse {
	response := make([]models.AccountResponse, 0, len(accounts))
	for _, a := range accounts {
		response = append(response, models.NewAccountResponse(a))
	}
	return response
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return def
	}
	return v
}

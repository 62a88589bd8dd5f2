package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/diewo77/go-fieldops/auth"
	"github.com/diewo77/go-fieldops/httpx"
	"github.com/diewo77/go-fieldops/i18n"
	"github.com/diewo77/go-fieldops/internal/services"
	"github.com/diewo77/go-fieldops/internal/store"
)

type InvoiceHandler struct {
	svc *services.InvoiceService
	log logrus.FieldLogger
}

func NewInvoiceHandler(svc *services.InvoiceService, log logrus.FieldLogger) *InvoiceHandler {
	return &InvoiceHandler{svc: svc, log: log}
}

const invoiceNotFound = "invoice_not_found"

func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, perPage := services.NormalizePage(
		queryInt(r, "page", services.DefaultPage),
		queryInt(r, "per_page", services.DefaultPerPage),
	)
	filter := store.InvoiceFilter{Status: q.Get("estado"), ClientID: q.Get("cliente_id")}

	invoices, total, err := h.svc.List(r.Context(), filter, page, perPage)
	if err != nil {
		writeError(w, r, h.log, err, invoiceNotFound)
		return
	}
	lang := i18n.LangFrom(r.Context())
	httpx.Page(w, i18n.T(lang, "invoice_listed"), invoices, httpx.NewPagination(page, perPage, total))
}

func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := decodePayload(w, r)
	if !ok {
		return
	}
	claims, _ := auth.ClaimsFromContext(r.Context())
	inv, err := h.svc.Create(r.Context(), p, claims)
	if err != nil {
		writeError(w, r, h.log, err, invoiceNotFound)
		return
	}
	h.log.WithFields(logrus.Fields{"id": inv.ID, "numero_factura": inv.Number}).Info("invoice created")
	httpx.OK(w, http.StatusCreated, i18n.T(i18n.LangFrom(r.Context()), "invoice_created"), inv)
}

func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	inv, err := h.svc.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, h.log, err, invoiceNotFound)
		return
	}
	httpx.OK(w, http.StatusOK, "", inv)
}

func (h *InvoiceHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, ok := decodePayload(w, r)
	if !ok {
		return
	}
	inv, err := h.svc.Update(r.Context(), mux.Vars(r)["id"], p)
	if err != nil {
		writeError(w, r, h.log, err, invoiceNotFound)
		return
	}
	httpx.OK(w, http.StatusOK, i18n.T(i18n.LangFrom(r.Context()), "invoice_updated"), inv)
}

func (h *InvoiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, h.log, err, invoiceNotFound)
		return
	}
	httpx.OK(w, http.StatusOK, i18n.T(i18n.LangFrom(r.Context()), "invoice_deleted"), nil)
}

func (h *InvoiceHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	inv, err := h.svc.MarkPaid(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, h.log, err, invoiceNotFound)
		return
	}
	httpx.OK(w, http.StatusOK, i18n.T(i18n.LangFrom(r.Context()), "invoice_paid"), inv)
}

func (h *InvoiceHandler) Summary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sum, err := h.svc.Summary(r.Context(), q.Get("fecha_inicio"), q.Get("fecha_fin"))
	if err != nil {
		writeError(w, r, h.log, err, invoiceNotFound)
		return
	}
	httpx.OK(w, http.StatusOK, i18n.T(i18n.LangFrom(r.Context()), "invoice_summary"), sum)
}

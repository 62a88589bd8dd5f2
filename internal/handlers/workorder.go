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

type WorkOrderHandler struct {
	svc *services.WorkOrderService
	log logrus.FieldLogger
}

func NewWorkOrderHandler(svc *services.WorkOrderService, log logrus.FieldLogger) *WorkOrderHandler {
	return &WorkOrderHandler{svc: svc, log: log}
}

const workOrderNotFound = "workorder_not_found"

func (h *WorkOrderHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, perPage := services.NormalizePage(
		queryInt(r, "page", services.DefaultPage),
		queryInt(r, "per_page", services.DefaultPerPage),
	)
	filter := store.WorkOrderFilter{
		Status:     q.Get("estado"),
		ClientID:   q.Get("cliente_id"),
		Technician: q.Get("tecnico_asignado"),
	}

	orders, total, err := h.svc.List(r.Context(), filter, page, perPage)
	if err != nil {
		writeError(w, r, h.log, err, workOrderNotFound)
		return
	}
	lang := i18n.LangFrom(r.Context())
	httpx.Page(w, i18n.T(lang, "workorder_listed"), orders, httpx.NewPagination(page, perPage, total))
}

func (h *WorkOrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := decodePayload(w, r)
	if !ok {
		return
	}
	claims, _ := auth.ClaimsFromContext(r.Context())
	wo, err := h.svc.Create(r.Context(), p, claims)
	if err != nil {
		writeError(w, r, h.log, err, workOrderNotFound)
		return
	}
	h.log.WithFields(logrus.Fields{"id": wo.ID, "numero_orden": wo.Number}).Info("work order created")
	httpx.OK(w, http.StatusCreated, i18n.T(i18n.LangFrom(r.Context()), "workorder_created"), wo)
}

func (h *WorkOrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	wo, err := h.svc.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, h.log, err, workOrderNotFound)
		return
	}
	httpx.OK(w, http.StatusOK, "", wo)
}

func (h *WorkOrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, ok := decodePayload(w, r)
	if !ok {
		return
	}
	wo, err := h.svc.Update(r.Context(), mux.Vars(r)["id"], p)
	if err != nil {
		writeError(w, r, h.log, err, workOrderNotFound)
		return
	}
	httpx.OK(w, http.StatusOK, i18n.T(i18n.LangFrom(r.Context()), "workorder_updated"), wo)
}

func (h *WorkOrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, h.log, err, workOrderNotFound)
		return
	}
	httpx.OK(w, http.StatusOK, i18n.T(i18n.LangFrom(r.Context()), "workorder_deleted"), nil)
}

func (h *WorkOrderHandler) Assign(w http.ResponseWriter, r *http.Request) {
	p, ok := decodePayload(w, r)
	if !ok {
		return
	}
	technician, err := p.String("tecnico_asignado")
	if err != nil {
		writeError(w, r, h.log, err, workOrderNotFound)
		return
	}
	wo, err := h.svc.AssignTechnician(r.Context(), mux.Vars(r)["id"], technician)
	if err != nil {
		writeError(w, r, h.log, err, workOrderNotFound)
		return
	}
	httpx.OK(w, http.StatusOK, i18n.T(i18n.LangFrom(r.Context()), "technician_assigned"), wo)
}

func (h *WorkOrderHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	p, ok := decodePayload(w, r)
	if !ok {
		return
	}
	// a non-string estado is just another invalid status
	status, _ := p.String("estado")
	wo, err := h.svc.SetStatus(r.Context(), mux.Vars(r)["id"], status)
	if err != nil {
		writeError(w, r, h.log, err, workOrderNotFound)
		return
	}
	h.log.WithFields(logrus.Fields{"id": wo.ID, "estado": status}).Info("work order status changed")
	httpx.OK(w, http.StatusOK, i18n.Tf(i18n.LangFrom(r.Context()), "status_updated", status), wo)
}

func (h *WorkOrderHandler) AddTask(w http.ResponseWriter, r *http.Request) {
	p, ok := decodePayload(w, r)
	if !ok {
		return
	}
	description, err := p.String("descripcion")
	if err != nil {
		writeError(w, r, h.log, err, workOrderNotFound)
		return
	}
	status, err := p.String("estado")
	if err != nil {
		writeError(w, r, h.log, err, workOrderNotFound)
		return
	}
	wo, err := h.svc.AddTask(r.Context(), mux.Vars(r)["id"], description, status)
	if err != nil {
		writeError(w, r, h.log, err, workOrderNotFound)
		return
	}
	httpx.OK(w, http.StatusOK, i18n.T(i18n.LangFrom(r.Context()), "task_added"), wo)
}

func (h *WorkOrderHandler) Summary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.svc.Summary(r.Context())
	if err != nil {
		writeError(w, r, h.log, err, workOrderNotFound)
		return
	}
	httpx.OK(w, http.StatusOK, i18n.T(i18n.LangFrom(r.Context()), "workorder_summary"), sum)
}
